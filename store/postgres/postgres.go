// Package postgres stores lot snapshots in PostgreSQL via pgx.
//
// Every open lot is one row of lot_snapshots, ordered by seq within its
// asset. Quantities and prices are NUMERIC and cross the driver as text so
// no precision is lost.
package postgres

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/robinvdvleuten/taxlots/lots"
	"github.com/robinvdvleuten/taxlots/store"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// ClientConfig holds connection parameters.
type ClientConfig struct {
	DSN           string
	Host          string
	Port          int
	Database      string
	User          string
	Password      string
	SSLMode       string
	MaxConns      int
	MinConns      int
	RunMigrations bool
}

// DSN builds a connection string from cfg unless cfg.DSN is set.
func DSN(cfg ClientConfig) string {
	if strings.TrimSpace(cfg.DSN) != "" {
		return cfg.DSN
	}

	sslMode := cfg.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	port := cfg.Port
	if port == 0 {
		port = 5432
	}
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		cfg.User, cfg.Password, cfg.Host, port, cfg.Database, sslMode,
	)
}

// Store implements store.Store on a connection pool.
type Store struct {
	pool *pgxpool.Pool
}

// New connects, pings and optionally migrates the database.
func New(ctx context.Context, cfg ClientConfig) (*Store, error) {
	poolCfg, err := pgxpool.ParseConfig(DSN(cfg))
	if err != nil {
		return nil, fmt.Errorf("postgres: parse config: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = int32(cfg.MaxConns)
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = int32(cfg.MinConns)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("postgres: connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres: ping: %w", err)
	}

	s := &Store{pool: pool}
	if cfg.RunMigrations {
		if err := s.RunMigrations(ctx); err != nil {
			pool.Close()
			return nil, err
		}
	}
	return s, nil
}

// Close shuts down the connection pool.
func (s *Store) Close() {
	s.pool.Close()
}

// RunMigrations applies the embedded migrations in lexicographic order and
// records them in schema_migrations.
func (s *Store) RunMigrations(ctx context.Context) error {
	const createTracker = `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			filename TEXT PRIMARY KEY,
			applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);`
	if _, err := s.pool.Exec(ctx, createTracker); err != nil {
		return fmt.Errorf("postgres: create schema_migrations table: %w", err)
	}

	entries, err := fs.ReadDir(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("postgres: read migrations dir: %w", err)
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name() < entries[j].Name()
	})

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}

		var exists bool
		err := s.pool.QueryRow(ctx,
			"SELECT EXISTS(SELECT 1 FROM schema_migrations WHERE filename = $1)",
			entry.Name(),
		).Scan(&exists)
		if err != nil {
			return fmt.Errorf("postgres: check migration %s: %w", entry.Name(), err)
		}
		if exists {
			continue
		}

		data, err := migrationsFS.ReadFile("migrations/" + entry.Name())
		if err != nil {
			return fmt.Errorf("postgres: read migration %s: %w", entry.Name(), err)
		}

		err = pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
			if _, err := tx.Exec(ctx, string(data)); err != nil {
				return err
			}
			_, err := tx.Exec(ctx, "INSERT INTO schema_migrations (filename) VALUES ($1)", entry.Name())
			return err
		})
		if err != nil {
			return fmt.Errorf("postgres: apply migration %s: %w", entry.Name(), err)
		}
	}

	return nil
}

// lotRow is one lot_snapshots row with NUMERIC values as text.
type lotRow struct {
	Asset    string
	Seq      int
	Quantity string
	Price    string
	Acquired string // YYYY-MM-DD or empty
}

func toRows(snap lots.Snapshot) []lotRow {
	var rows []lotRow
	for _, asset := range snap.Assets() {
		for i, rec := range snap[asset] {
			rows = append(rows, lotRow{
				Asset:    asset,
				Seq:      i + 1,
				Quantity: rec.Quantity.String(),
				Price:    rec.Price.String(),
				Acquired: rec.Date,
			})
		}
	}
	return rows
}

func fromRows(rows []lotRow) (lots.Snapshot, error) {
	snap := lots.Snapshot{}
	for _, r := range rows {
		quantity, err := decimal.NewFromString(r.Quantity)
		if err != nil {
			return nil, fmt.Errorf("postgres: %s lot %d: quantity %q: %w", r.Asset, r.Seq, r.Quantity, err)
		}
		price, err := decimal.NewFromString(r.Price)
		if err != nil {
			return nil, fmt.Errorf("postgres: %s lot %d: price %q: %w", r.Asset, r.Seq, r.Price, err)
		}
		snap[r.Asset] = append(snap[r.Asset], lots.Record{
			Quantity: quantity,
			Price:    price,
			Date:     r.Acquired,
		})
	}
	return snap, nil
}

// Load reads the snapshot for key.
func (s *Store) Load(ctx context.Context, key string) (lots.Snapshot, error) {
	if err := store.ValidateKey(key); err != nil {
		return nil, err
	}

	var exists bool
	if err := s.pool.QueryRow(ctx,
		"SELECT EXISTS(SELECT 1 FROM snapshot_keys WHERE key = $1)", key,
	).Scan(&exists); err != nil {
		return nil, fmt.Errorf("postgres: load %s: %w", key, err)
	}
	if !exists {
		return nil, fmt.Errorf("postgres: load %s: %w", key, store.ErrNotFound)
	}

	const query = `
		SELECT asset, seq, quantity::TEXT, price::TEXT,
		       COALESCE(to_char(acquired, 'YYYY-MM-DD'), '')
		FROM lot_snapshots
		WHERE key = $1
		ORDER BY asset, seq`

	rows, err := s.pool.Query(ctx, query, key)
	if err != nil {
		return nil, fmt.Errorf("postgres: load %s: %w", key, err)
	}
	defer rows.Close()

	var lotRows []lotRow
	for rows.Next() {
		var r lotRow
		if err := rows.Scan(&r.Asset, &r.Seq, &r.Quantity, &r.Price, &r.Acquired); err != nil {
			return nil, fmt.Errorf("postgres: load %s: %w", key, err)
		}
		lotRows = append(lotRows, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: load %s: %w", key, err)
	}

	return fromRows(lotRows)
}

// Save replaces the snapshot for key in a single transaction.
func (s *Store) Save(ctx context.Context, key string, snap lots.Snapshot) error {
	if err := store.ValidateKey(key); err != nil {
		return err
	}

	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `
			INSERT INTO snapshot_keys (key) VALUES ($1)
			ON CONFLICT (key) DO UPDATE SET updated_at = NOW()`, key); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, "DELETE FROM lot_snapshots WHERE key = $1", key); err != nil {
			return err
		}

		batch := &pgx.Batch{}
		for _, r := range toRows(snap) {
			var acquired any
			if r.Acquired != "" {
				acquired = r.Acquired
			}
			batch.Queue(`
				INSERT INTO lot_snapshots (key, asset, seq, quantity, price, acquired)
				VALUES ($1, $2, $3, $4::TEXT::NUMERIC, $5::TEXT::NUMERIC, $6::TEXT::DATE)`,
				key, r.Asset, r.Seq, r.Quantity, r.Price, acquired)
		}
		return tx.SendBatch(ctx, batch).Close()
	})
	if err != nil {
		return fmt.Errorf("postgres: save %s: %w", key, err)
	}
	return nil
}

var _ store.Store = (*Store)(nil)
