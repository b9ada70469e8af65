// Package file stores lot snapshots as JSON files in a directory.
package file

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/robinvdvleuten/taxlots/lots"
	"github.com/robinvdvleuten/taxlots/store"
)

// Store keeps one "<key>.json" file per snapshot in Dir.
type Store struct {
	dir string
}

// New creates a Store rooted at dir. The directory is created on first save.
func New(dir string) *Store {
	return &Store{dir: dir}
}

// Path returns the file that holds key.
func (s *Store) Path(key string) string {
	return filepath.Join(s.dir, key+".json")
}

// Load reads the snapshot for key.
func (s *Store) Load(ctx context.Context, key string) (lots.Snapshot, error) {
	if err := store.ValidateKey(key); err != nil {
		return nil, err
	}

	f, err := os.Open(s.Path(key))
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("file: load %s: %w", key, store.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("file: load %s: %w", key, err)
	}
	defer f.Close()

	snap, err := lots.DecodeSnapshot(f)
	if err != nil {
		return nil, fmt.Errorf("file: load %s: %w", s.Path(key), err)
	}
	return snap, nil
}

// Save writes the snapshot for key. The file is replaced atomically so a
// failed save leaves the previous snapshot intact.
func (s *Store) Save(ctx context.Context, key string, snap lots.Snapshot) error {
	if err := store.ValidateKey(key); err != nil {
		return err
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("file: save %s: %w", key, err)
	}

	tmp, err := os.CreateTemp(s.dir, "."+key+"-*.json")
	if err != nil {
		return fmt.Errorf("file: save %s: %w", key, err)
	}
	defer os.Remove(tmp.Name())

	if err := lots.EncodeSnapshot(tmp, snap); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("file: save %s: %w", key, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("file: save %s: %w", key, err)
	}
	if err := os.Rename(tmp.Name(), s.Path(key)); err != nil {
		return fmt.Errorf("file: save %s: %w", key, err)
	}
	return nil
}

var _ store.Store = (*Store)(nil)
