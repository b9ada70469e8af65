package store

import (
	"context"
	"fmt"
	"testing"

	"github.com/alecthomas/assert/v2"
	"github.com/robinvdvleuten/taxlots/lots"
)

type mapStore map[string]lots.Snapshot

func (m mapStore) Load(_ context.Context, key string) (lots.Snapshot, error) {
	snap, ok := m[key]
	if !ok {
		return nil, fmt.Errorf("load %s: %w", key, ErrNotFound)
	}
	return snap, nil
}

func (m mapStore) Save(_ context.Context, key string, snap lots.Snapshot) error {
	m[key] = snap
	return nil
}

func TestLoadOrEmpty(t *testing.T) {
	s := mapStore{}

	snap, err := LoadOrEmpty(context.Background(), s, "2018")
	assert.NoError(t, err)
	assert.Equal(t, 0, len(snap))

	assert.NoError(t, s.Save(context.Background(), "2018", lots.Snapshot{"ETH": nil}))
	snap, err = LoadOrEmpty(context.Background(), s, "2018")
	assert.NoError(t, err)
	assert.Equal(t, []string{"ETH"}, snap.Assets())
}

func TestValidateKey(t *testing.T) {
	for _, key := range []string{"assets", "2018", "ledger-2019.final"} {
		assert.NoError(t, ValidateKey(key), key)
	}
	for _, key := range []string{"", " ", "..", "a/b", `a\b`} {
		assert.Error(t, ValidateKey(key), key)
	}
}

func TestNopLocker(t *testing.T) {
	unlock, err := NopLocker{}.Acquire(context.Background(), "assets", 0)
	assert.NoError(t, err)
	unlock()
	unlock()
}
