// Package store persists lot snapshots between runs.
//
// A snapshot is stored under a key, typically the tax year or "assets".
// Backends live in sub-packages: file, s3 and postgres. The redis
// sub-package provides the lock that serialises writers of one key.
package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/robinvdvleuten/taxlots/lots"
)

// ErrNotFound is returned by Load when no snapshot exists for a key.
var ErrNotFound = errors.New("snapshot not found")

// ErrLockHeld is returned when another run holds the key's lock.
var ErrLockHeld = errors.New("snapshot is locked by another run")

// Store loads and saves lot snapshots.
type Store interface {
	Load(ctx context.Context, key string) (lots.Snapshot, error)
	Save(ctx context.Context, key string, snap lots.Snapshot) error
}

// Locker serialises writers of a key.
type Locker interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (unlock func(), err error)
}

// NopLocker grants every lock immediately. It is used when no lock server is
// configured.
type NopLocker struct{}

func (NopLocker) Acquire(context.Context, string, time.Duration) (func(), error) {
	return func() {}, nil
}

// ValidateKey rejects keys that cannot be used as file or object names.
func ValidateKey(key string) error {
	if strings.TrimSpace(key) == "" {
		return errors.New("store: empty snapshot key")
	}
	if strings.ContainsAny(key, `/\`) || key == "." || key == ".." {
		return fmt.Errorf("store: invalid snapshot key %q", key)
	}
	return nil
}

// LoadOrEmpty is Load that returns an empty snapshot when none exists.
func LoadOrEmpty(ctx context.Context, s Store, key string) (lots.Snapshot, error) {
	snap, err := s.Load(ctx, key)
	if errors.Is(err, ErrNotFound) {
		return lots.Snapshot{}, nil
	}
	return snap, err
}
