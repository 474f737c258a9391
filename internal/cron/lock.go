package cron

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/billifyhq/billify-backend/pkg/kv"
)

const defaultLockTTL = 2 * time.Hour

// Lock coordinates exclusive job runs across worker instances.
type Lock interface {
	Acquire(ctx context.Context) (bool, error)
	Release(ctx context.Context) error
}

// StoreLock implements Lock with a SetNX token in the record store.
type StoreLock struct {
	store kv.Locker
	key   string
	ttl   time.Duration
	owner string
}

// NewStoreLock constructs a store-backed lock.
func NewStoreLock(store kv.Locker, key string, ttl time.Duration) (*StoreLock, error) {
	if store == nil {
		return nil, errors.New("record store required for lock")
	}
	if key == "" {
		return nil, errors.New("lock key is required")
	}
	if ttl <= 0 {
		ttl = defaultLockTTL
	}
	return &StoreLock{store: store, key: key, ttl: ttl}, nil
}

// Acquire tries to own the lock for the configured TTL.
func (l *StoreLock) Acquire(ctx context.Context) (bool, error) {
	owner := uuid.NewString()
	ok, err := l.store.SetNX(ctx, l.key, owner, l.ttl)
	if err != nil {
		return false, fmt.Errorf("setnx: %w", err)
	}
	if ok {
		l.owner = owner
	}
	return ok, nil
}

// Release frees the lock only if the owner value still matches.
func (l *StoreLock) Release(ctx context.Context) error {
	if l.owner == "" {
		return nil
	}
	value, ok, err := l.store.Get(ctx, l.key)
	if err != nil {
		return fmt.Errorf("read lock owner: %w", err)
	}
	if !ok || value != l.owner {
		return nil
	}
	if err := l.store.Delete(ctx, l.key); err != nil {
		return fmt.Errorf("delete lock: %w", err)
	}
	l.owner = ""
	return nil
}
