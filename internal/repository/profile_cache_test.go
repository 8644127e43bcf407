package repository

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

type countingProfiles struct {
	ProfileRepository
	profile *domain.Profile
	gets    int
	// afterRead runs once between reading the row and returning it.
	afterRead func()
}

func (c *countingProfiles) GetByID(_ context.Context, id string) (*domain.Profile, error) {
	c.gets++
	if c.profile == nil || c.profile.ID != id {
		return nil, ErrNotFound
	}
	p := *c.profile
	if hook := c.afterRead; hook != nil {
		c.afterRead = nil
		hook()
	}
	return &p, nil
}

func (c *countingProfiles) Update(_ context.Context, profile *domain.Profile) error {
	if c.profile == nil || c.profile.ID != profile.ID {
		return ErrNotFound
	}
	p := *profile
	c.profile = &p
	return nil
}

// fakeCache keeps values in a map and ignores expirations; expire drops a
// key as if its TTL had run out.
type fakeCache struct {
	mu     sync.Mutex
	values map[string]string
}

func newFakeCache() *fakeCache {
	return &fakeCache{values: map[string]string{}}
}

func (f *fakeCache) Get(ctx context.Context, key string) *redis.StringCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.values[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (f *fakeCache) Set(ctx context.Context, key string, value interface{}, _ time.Duration) *redis.StatusCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.values[key] = asString(value)
	return redis.NewStatusResult("OK", nil)
}

func (f *fakeCache) SetNX(ctx context.Context, key string, value interface{}, _ time.Duration) *redis.BoolCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.values[key]; ok {
		return redis.NewBoolResult(false, nil)
	}
	f.values[key] = asString(value)
	return redis.NewBoolResult(true, nil)
}

func (f *fakeCache) expire(key string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.values, key)
}

func asString(value interface{}) string {
	switch v := value.(type) {
	case []byte:
		return string(v)
	case string:
		return v
	}
	return ""
}

func TestCachedProfileRepositoryDisabled(t *testing.T) {
	inner := &countingProfiles{}
	assert.Same(t, ProfileRepository(inner), NewCachedProfileRepository(inner, nil, time.Minute, zap.NewNop()))
}

func TestCachedProfileRepositoryFallsThroughWhenRedisDown(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		MaxRetries:  -1,
		DialTimeout: 50 * time.Millisecond,
	})
	t.Cleanup(func() { _ = client.Close() })

	inner := &countingProfiles{profile: &domain.Profile{ID: "u1", FullName: "Ana", Role: domain.RoleAdmin}}
	repo := NewCachedProfileRepository(inner, client, time.Minute, zap.NewNop())

	profile, err := repo.GetByID(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, "Ana", profile.FullName)
	assert.Equal(t, 1, inner.gets)

	_, err = repo.GetByID(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCachedProfileRepositoryServesFromCache(t *testing.T) {
	ctx := context.Background()
	inner := &countingProfiles{profile: &domain.Profile{ID: "u1", FullName: "Ana", Role: domain.RoleAdmin}}
	repo := newCachedProfileRepository(inner, newFakeCache(), time.Minute, nil)

	for i := 0; i < 3; i++ {
		profile, err := repo.GetByID(ctx, "u1")
		require.NoError(t, err)
		assert.Equal(t, "Ana", profile.FullName)
	}
	assert.Equal(t, 1, inner.gets)
}

func TestCachedProfileRepositoryUpdateDuringReadDoesNotCacheStaleProfile(t *testing.T) {
	ctx := context.Background()
	cache := newFakeCache()
	inner := &countingProfiles{profile: &domain.Profile{ID: "u1", FullName: "Ana", Role: domain.RoleTechnician}}
	repo := newCachedProfileRepository(inner, cache, time.Minute, nil)

	// the row is renamed after the cold read fetched it but before the read
	// fills the cache
	inner.afterRead = func() {
		require.NoError(t, repo.Update(ctx, &domain.Profile{ID: "u1", FullName: "Bea", Role: domain.RoleTechnician}))
	}
	stale, err := repo.GetByID(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "Ana", stale.FullName)

	fresh, err := repo.GetByID(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "Bea", fresh.FullName)
	assert.Equal(t, 2, inner.gets)

	// once the tombstone lapses the fresh profile is cached again
	cache.expire(profileCachePrefix + "u1")
	_, err = repo.GetByID(ctx, "u1")
	require.NoError(t, err)
	cached, err := repo.GetByID(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "Bea", cached.FullName)
	assert.Equal(t, 3, inner.gets)
}
