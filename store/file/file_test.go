package file

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/alecthomas/assert/v2"
	"github.com/robinvdvleuten/taxlots/lots"
	"github.com/robinvdvleuten/taxlots/store"
	"github.com/shopspring/decimal"
)

func TestStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	s := New(filepath.Join(t.TempDir(), "snapshots"))

	_, err := s.Load(ctx, "2018")
	assert.True(t, errors.Is(err, store.ErrNotFound))

	snap := lots.Snapshot{
		"ETH": {
			{Quantity: decimal.RequireFromString("1.5"), Price: decimal.RequireFromString("700.25"), Date: "2018-01-05"},
			{Quantity: decimal.RequireFromString("2"), Price: decimal.RequireFromString("10")},
		},
	}
	assert.NoError(t, s.Save(ctx, "2018", snap))

	loaded, err := s.Load(ctx, "2018")
	assert.NoError(t, err)
	assert.Equal(t, "3.5", loaded.Total("ETH").String())
	assert.Equal(t, "2018-01-05", loaded["ETH"][0].Date)

	entries, err := os.ReadDir(filepath.Dir(s.Path("2018")))
	assert.NoError(t, err)
	assert.Equal(t, 1, len(entries))
	assert.Equal(t, "2018.json", entries[0].Name())
}

func TestStore_Overwrite(t *testing.T) {
	ctx := context.Background()
	s := New(t.TempDir())

	assert.NoError(t, s.Save(ctx, "assets", lots.Snapshot{"BTC": {{Quantity: decimal.NewFromInt(1), Price: decimal.NewFromInt(1)}}}))
	assert.NoError(t, s.Save(ctx, "assets", lots.Snapshot{}))

	loaded, err := s.Load(ctx, "assets")
	assert.NoError(t, err)
	assert.Equal(t, 0, len(loaded))
}

func TestStore_ReadsHandWrittenNumbers(t *testing.T) {
	dir := t.TempDir()
	assert.NoError(t, os.WriteFile(filepath.Join(dir, "assets.json"),
		[]byte(`{"ETH": [{"quantity": 2, "price": 10}]}`), 0o644))

	loaded, err := New(dir).Load(context.Background(), "assets")
	assert.NoError(t, err)
	assert.Equal(t, "2", loaded.Total("ETH").String())
}

func TestStore_InvalidKey(t *testing.T) {
	s := New(t.TempDir())
	assert.Error(t, s.Save(context.Background(), "../escape", lots.Snapshot{}))
	_, err := s.Load(context.Background(), "")
	assert.Error(t, err)
}
