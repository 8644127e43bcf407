package memory

import (
	"context"

	"github.com/spec-kit/helpdesk-service/internal/repository"
)

type txKey struct{}

// undoLog collects the inverse of every write made inside a transaction.
type undoLog struct {
	steps []func()
}

type transactor struct{ *Store }

// Transactor returns a repository.Transactor whose rollback reverts the
// writes this store made through the transaction's ctx.
func (s *Store) Transactor() repository.Transactor { return transactor{s} }

func (t transactor) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(txKey{}).(*undoLog); ok {
		return fn(ctx)
	}
	log := &undoLog{}
	if err := fn(context.WithValue(ctx, txKey{}, log)); err != nil {
		t.mu.Lock()
		for i := len(log.steps) - 1; i >= 0; i-- {
			log.steps[i]()
		}
		t.mu.Unlock()
		return err
	}
	return nil
}

// onRollback registers step when ctx carries a transaction. Callers hold
// s.mu; steps run under it too.
func onRollback(ctx context.Context, step func()) {
	if log, ok := ctx.Value(txKey{}).(*undoLog); ok {
		log.steps = append(log.steps, step)
	}
}
