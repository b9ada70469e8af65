package loader

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/alecthomas/assert/v2"

	"github.com/robinvdvleuten/taxlots/history"
	"github.com/robinvdvleuten/taxlots/telemetry"
)

const header = "timestamp,asset,quantity,price,from,to\n"

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	assert.NoError(t, os.WriteFile(path, []byte(header+body), 0o644))
	return path
}

func timestamps(records []history.Record) []string {
	out := make([]string, len(records))
	for i, r := range records {
		out[i] = r.Timestamp
	}
	return out
}

func TestLoadSingleFile(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "main.csv",
		"180102-120000,ETH,1,700,ex-coinbase,self\n"+
			"180101-120000,ETH,2,650,ex-coinbase,self\n")

	absMain, err := filepath.Abs(path)
	assert.NoError(t, err)

	result, err := New().Load(context.Background(), path)
	assert.NoError(t, err)
	assert.Equal(t, absMain, result.Root)
	assert.Equal(t, []string{absMain}, result.Files)
	assert.Equal(t, []string{"180101-120000", "180102-120000"}, timestamps(result.Records))
	assert.Equal(t, 3, result.Records[0].Line)
}

func TestLoadWithoutSort(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "main.csv",
		"180102-120000,ETH,1,700,ex-coinbase,self\n"+
			"180101-120000,ETH,2,650,ex-coinbase,self\n")

	result, err := New(WithoutSort()).Load(context.Background(), path)
	assert.NoError(t, err)
	assert.Equal(t, []string{"180102-120000", "180101-120000"}, timestamps(result.Records))
}

func TestLoadMergesFiles(t *testing.T) {
	dir := t.TempDir()
	a := writeFile(t, dir, "a.csv",
		"180101-120000,ETH,1,700,ex-coinbase,self\n"+
			"180301-120000,ETH,1,900,self,ex-coinbase\n")
	b := writeFile(t, dir, "b.csv", "180201-120000,BTC,0.1,9000,ex-coinbase,wallet\n")

	result, err := New().Load(context.Background(), a, b, a)
	assert.NoError(t, err)
	assert.Equal(t, 2, len(result.Files))
	assert.Equal(t, []string{"180101-120000", "180201-120000", "180301-120000"}, timestamps(result.Records))
	assert.Equal(t, b, result.Records[1].Filename)
}

func TestLoadAppliesAddressBook(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "main.csv",
		"180101-120000,ETH,1,700,0x52908400098527886e0f7030069857d2e4169ee7,self\n")

	book := history.NewAddressBook(map[string]string{
		"0x52908400098527886E0F7030069857D2E4169EE7": "ex-binance",
	})

	result, err := New(WithAddressBook(book)).Load(context.Background(), path)
	assert.NoError(t, err)
	assert.Equal(t, "ex-binance", result.Records[0].From)
}

func TestLoadBytes(t *testing.T) {
	data := []byte(header + "180101-120000,ETH,1,700,ex-coinbase,self\n")

	result, err := New().LoadBytes(context.Background(), "<stdin>", data)
	assert.NoError(t, err)
	assert.Equal(t, "<stdin>", result.Root)
	assert.Equal(t, 1, len(result.Records))
	assert.Equal(t, "<stdin>", result.Records[0].Filename)
}

func TestLoadErrors(t *testing.T) {
	_, err := New().Load(context.Background())
	assert.Error(t, err)

	_, err = New().Load(context.Background(), filepath.Join(t.TempDir(), "missing.csv"))
	assert.Error(t, err)

	dir := t.TempDir()
	bad := filepath.Join(dir, "bad.csv")
	assert.NoError(t, os.WriteFile(bad, []byte("timestamp,asset\n"), 0o644))
	_, err = New().Load(context.Background(), bad)
	var missing *history.MissingColumnError
	assert.True(t, errors.As(err, &missing))
}

func TestLoadCancelled(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "main.csv", "")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New().Load(ctx, path)
	assert.IsError(t, err, context.Canceled)
}

func TestLoadRecordsTimers(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "main.csv", "")

	collector := telemetry.NewTimingCollector()
	ctx := telemetry.WithCollector(context.Background(), collector)

	_, err := New().Load(ctx, path)
	assert.NoError(t, err)

	var out strings.Builder
	collector.Report(&out, nil)
	assert.Contains(t, out.String(), "load 1 file(s)")
	assert.Contains(t, out.String(), "read main.csv")
}
