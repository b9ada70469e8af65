// Package loader reads transaction history files into a single record list
// ready for replay.
//
// Several files may be given, for example one export per wallet. Records of
// all files are merged, counterparties are resolved through an optional
// address book, and the result is sorted chronologically. A file named more
// than once is read once.
//
// Example usage:
//
//	ldr := loader.New(loader.WithAddressBook(book))
//	result, err := ldr.Load(ctx, "2018.csv", "wallet.csv")
package loader

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/robinvdvleuten/taxlots/history"
	"github.com/robinvdvleuten/taxlots/telemetry"
)

// Loader reads history files.
type Loader struct {
	// AddressBook resolves raw counterparty identifiers to names. Nil leaves
	// them untouched.
	AddressBook *history.AddressBook

	// Sort orders the merged records chronologically. When false the records
	// keep file order and out-of-order records fail the replay.
	Sort bool
}

// Option configures how files are loaded.
type Option func(*Loader)

// WithAddressBook resolves counterparties through book.
func WithAddressBook(book *history.AddressBook) Option {
	return func(l *Loader) {
		l.AddressBook = book
	}
}

// WithoutSort keeps records in file order.
func WithoutSort() Option {
	return func(l *Loader) {
		l.Sort = false
	}
}

// New creates a Loader with the given options.
func New(opts ...Option) *Loader {
	l := &Loader{Sort: true}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Result is the outcome of a load.
type Result struct {
	// Root is the absolute path of the first file.
	Root string
	// Files holds the absolute paths of every file read, in order.
	Files   []string
	Records []history.Record
}

// Load reads filenames and merges their records.
func (l *Loader) Load(ctx context.Context, filenames ...string) (*Result, error) {
	if len(filenames) == 0 {
		return nil, fmt.Errorf("no history file given")
	}

	timer, ctx := telemetry.StartTimer(ctx, fmt.Sprintf("load %d file(s)", len(filenames)))
	defer timer.End()

	result := &Result{}
	visited := make(map[string]bool)

	for _, filename := range filenames {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		absPath, err := filepath.Abs(filename)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve absolute path for %s: %w", filename, err)
		}
		if visited[absPath] {
			continue
		}
		visited[absPath] = true

		records, err := l.readFile(ctx, filename)
		if err != nil {
			return nil, err
		}

		if result.Root == "" {
			result.Root = absPath
		}
		result.Files = append(result.Files, absPath)
		result.Records = append(result.Records, records...)
	}

	l.finish(result)
	return result, nil
}

// LoadBytes reads a single history held in memory, such as stdin.
func (l *Loader) LoadBytes(ctx context.Context, filename string, data []byte) (*Result, error) {
	timer, _ := telemetry.StartTimer(ctx, fmt.Sprintf("read %s", filename))
	records, err := history.Read(bytes.NewReader(data), filename)
	timer.End()
	if err != nil {
		return nil, err
	}

	result := &Result{Root: filename, Files: []string{filename}, Records: records}
	l.finish(result)
	return result, nil
}

func (l *Loader) readFile(ctx context.Context, filename string) ([]history.Record, error) {
	timer, _ := telemetry.StartTimer(ctx, fmt.Sprintf("read %s", filepath.Base(filename)))
	defer timer.End()

	f, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", filename, err)
	}
	defer func() { _ = f.Close() }()

	return history.Read(f, filename)
}

func (l *Loader) finish(result *Result) {
	l.AddressBook.Apply(result.Records)
	if l.Sort {
		history.Sort(result.Records)
	}
}
