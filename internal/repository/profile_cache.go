package repository

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

const (
	profileCachePrefix = "helpdesk:profile:"
	// profileTombstone marks a key whose profile was just written. While it
	// lives no read may repopulate the key.
	profileTombstone    = "-"
	profileTombstoneTTL = 5 * time.Second
)

// cacheClient is the subset of *redis.Client the profile cache uses.
type cacheClient interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd
}

// cachedProfileRepository serves profile lookups from Redis. Every
// authorization check resolves a profile, so reads dominate. Redis failures
// are logged and fall through to the wrapped repository.
//
// Writes replace the cached entry with a short-lived tombstone and reads only
// fill a key with SETNX, so a read that started before a write cannot cache
// the profile it saw after the write has landed.
type cachedProfileRepository struct {
	ProfileRepository
	client cacheClient
	ttl    time.Duration
	logger *zap.Logger
}

// NewCachedProfileRepository wraps inner with a Redis read-through cache.
// A nil client or non-positive ttl returns inner unchanged.
func NewCachedProfileRepository(inner ProfileRepository, client *redis.Client, ttl time.Duration, logger *zap.Logger) ProfileRepository {
	if client == nil || ttl <= 0 {
		return inner
	}
	return newCachedProfileRepository(inner, client, ttl, logger)
}

func newCachedProfileRepository(inner ProfileRepository, client cacheClient, ttl time.Duration, logger *zap.Logger) *cachedProfileRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &cachedProfileRepository{ProfileRepository: inner, client: client, ttl: ttl, logger: logger}
}

func (r *cachedProfileRepository) GetByID(ctx context.Context, id string) (*domain.Profile, error) {
	key := profileCachePrefix + id
	raw, err := r.client.Get(ctx, key).Bytes()
	switch {
	case err == nil && string(raw) == profileTombstone:
		// recently written; read through and leave the key alone
	case err == nil:
		var profile domain.Profile
		if jsonErr := json.Unmarshal(raw, &profile); jsonErr == nil {
			return &profile, nil
		}
		r.logger.Warn("discarding corrupt cached profile", zap.String("profile_id", id))
	case !errors.Is(err, redis.Nil):
		r.logger.Warn("profile cache read failed", zap.String("profile_id", id), zap.Error(err))
	}

	profile, err := r.ProfileRepository.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	r.store(ctx, profile)
	return profile, nil
}

func (r *cachedProfileRepository) Upsert(ctx context.Context, profile *domain.Profile) error {
	if err := r.ProfileRepository.Upsert(ctx, profile); err != nil {
		return err
	}
	r.invalidate(ctx, profile.ID)
	return nil
}

func (r *cachedProfileRepository) Update(ctx context.Context, profile *domain.Profile) error {
	if err := r.ProfileRepository.Update(ctx, profile); err != nil {
		return err
	}
	r.invalidate(ctx, profile.ID)
	return nil
}

// store fills an empty key only; a tombstone or a fresher entry wins.
func (r *cachedProfileRepository) store(ctx context.Context, profile *domain.Profile) {
	raw, err := json.Marshal(profile)
	if err != nil {
		return
	}
	if err := r.client.SetNX(ctx, profileCachePrefix+profile.ID, raw, r.ttl).Err(); err != nil {
		r.logger.Debug("profile cache write failed", zap.String("profile_id", profile.ID), zap.Error(err))
	}
}

func (r *cachedProfileRepository) invalidate(ctx context.Context, id string) {
	if err := r.client.Set(ctx, profileCachePrefix+id, profileTombstone, profileTombstoneTTL).Err(); err != nil {
		r.logger.Warn("profile cache invalidation failed", zap.String("profile_id", id), zap.Error(err))
	}
}
