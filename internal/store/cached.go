package store

import (
	"context"
	"errors"
	"strconv"

	"github.com/Evgesha-thunder/user-service/pkg/models"
)

const userKeyPrefix = "user:"

// UserCache is the subset of a versioned key/value cache CachedStore needs.
// Every key carries a generation counter that Invalidate bumps, so a fill
// that started before a write can never land after it.
// Implementations swallow their own faults: a miss is always safe.
type UserCache interface {
	Get(ctx context.Context, key string) (*models.User, bool)
	// Version reports the key's current generation. ok is false when the
	// generation could not be read, in which case the caller must not fill.
	Version(ctx context.Context, key string) (version int64, ok bool)
	// SetIfVersion stores value only while the key is still at version.
	SetIfVersion(ctx context.Context, key string, value *models.User, version int64)
	// Invalidate bumps the generation and drops the stored value.
	Invalidate(ctx context.Context, key string)
}

// CachedStore serves FindByID from a read-through cache. Writes invalidate
// the entry before and after they reach the next store.
type CachedStore struct {
	next  Store
	cache UserCache
}

func NewCachedStore(next Store, cache UserCache) *CachedStore {
	return &CachedStore{next: next, cache: cache}
}

func (s *CachedStore) Save(ctx context.Context, user *models.User) (int64, error) {
	return s.next.Save(ctx, user)
}

func (s *CachedStore) FindByID(ctx context.Context, id int64) (*models.User, error) {
	key := cacheKey(id)
	if user, ok := s.cache.Get(ctx, key); ok {
		return user, nil
	}

	version, versioned := s.cache.Version(ctx, key)
	user, err := s.next.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if versioned {
		s.cache.SetIfVersion(ctx, key, user, version)
	}
	return user, nil
}

func (s *CachedStore) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.next.FindByEmail(ctx, email)
}

func (s *CachedStore) FindAll(ctx context.Context) ([]models.User, error) {
	return s.next.FindAll(ctx)
}

func (s *CachedStore) Update(ctx context.Context, user *models.User) error {
	key := cacheKey(user.ID)
	s.cache.Invalidate(ctx, key)
	err := s.next.Update(ctx, user)
	if err == nil || errors.Is(err, ErrNotFound) {
		s.cache.Invalidate(ctx, key)
	}
	return err
}

func (s *CachedStore) DeleteByID(ctx context.Context, id int64) (*models.User, error) {
	key := cacheKey(id)
	s.cache.Invalidate(ctx, key)
	deleted, err := s.next.DeleteByID(ctx, id)
	if err == nil || errors.Is(err, ErrNotFound) {
		s.cache.Invalidate(ctx, key)
	}
	return deleted, err
}

func cacheKey(id int64) string {
	return userKeyPrefix + strconv.FormatInt(id, 10)
}
