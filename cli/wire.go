package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/robinvdvleuten/taxlots/config"
	"github.com/robinvdvleuten/taxlots/gains"
	"github.com/robinvdvleuten/taxlots/history"
	"github.com/robinvdvleuten/taxlots/loader"
	"github.com/robinvdvleuten/taxlots/session"
	"github.com/robinvdvleuten/taxlots/store"
	"github.com/robinvdvleuten/taxlots/store/file"
	"github.com/robinvdvleuten/taxlots/store/postgres"
	"github.com/robinvdvleuten/taxlots/store/redis"
	s3store "github.com/robinvdvleuten/taxlots/store/s3"
)

// openStore connects the configured snapshot backend. The returned close
// function is never nil.
func openStore(ctx context.Context, cfg *config.Config) (store.Store, func(), error) {
	switch strings.ToLower(cfg.Store.Backend) {
	case "", "file":
		return file.New(cfg.Store.Dir), func() {}, nil

	case "s3":
		s, err := s3store.New(ctx, s3store.ClientConfig{
			Endpoint:       cfg.S3.Endpoint,
			Region:         cfg.S3.Region,
			Bucket:         cfg.S3.Bucket,
			Prefix:         cfg.S3.Prefix,
			AccessKey:      cfg.S3.AccessKey,
			SecretKey:      cfg.S3.SecretKey,
			UseSSL:         cfg.S3.UseSSL,
			ForcePathStyle: cfg.S3.ForcePathStyle,
		})
		if err != nil {
			return nil, nil, err
		}
		return s, func() {}, nil

	case "postgres":
		s, err := postgres.New(ctx, postgres.ClientConfig{
			DSN:           cfg.Postgres.DSN,
			Host:          cfg.Postgres.Host,
			Port:          cfg.Postgres.Port,
			Database:      cfg.Postgres.Database,
			User:          cfg.Postgres.User,
			Password:      cfg.Postgres.Password,
			SSLMode:       cfg.Postgres.SSLMode,
			MaxConns:      cfg.Postgres.PoolMaxConns,
			MinConns:      cfg.Postgres.PoolMinConns,
			RunMigrations: cfg.Postgres.RunMigrations,
		})
		if err != nil {
			return nil, nil, err
		}
		return s, s.Close, nil

	default:
		return nil, nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
	}
}

// openLocker connects the Redis lock server, or grants every lock when none
// is configured.
func openLocker(ctx context.Context, cfg *config.Config) (store.Locker, func(), error) {
	if cfg.Redis.Addr == "" {
		return store.NopLocker{}, func() {}, nil
	}
	l, err := redis.New(ctx, redis.ClientConfig{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err != nil {
		return nil, nil, err
	}
	return l, func() { _ = l.Close() }, nil
}

// newLoader builds a loader with the configured address book.
func newLoader(cfg *config.Config, unsorted bool) (*loader.Loader, error) {
	var opts []loader.Option
	if cfg.History.AddressBook != "" {
		book, err := history.LoadAddressBookFile(cfg.History.AddressBook)
		if err != nil {
			return nil, fmt.Errorf("failed to load address book: %w", err)
		}
		opts = append(opts, loader.WithAddressBook(book))
	}
	if unsorted {
		opts = append(opts, loader.WithoutSort())
	}
	return loader.New(opts...), nil
}

// ReplayFlags are shared by every command that replays a history.
type ReplayFlags struct {
	Include     []string `help:"Additional history files merged into the replay." short:"i"`
	TaxYear     int      `help:"Only report disposals in this tax year (overrides tax_year)." name:"tax-year"`
	SkipInvalid bool     `help:"Skip malformed records instead of stopping."`
	Unsorted    bool     `help:"Keep records in file order; out-of-order records fail the replay."`
	Key         string   `help:"Snapshot key holding the starting lots (overrides store.key)."`
}

// newSession builds a session from the configuration and the replay flags.
func (f *ReplayFlags) newSession(e *env, st store.Store, locker store.Locker) *session.Session {
	cfg := e.cfg

	taxYear := cfg.TaxYear
	if f.TaxYear != 0 {
		taxYear = f.TaxYear
	}
	opts := []gains.Option{
		gains.WithClassifier(cfg.Counterparties),
		gains.WithLogger(e.logger),
	}
	if taxYear != 0 {
		opts = append(opts, gains.WithTaxYear(taxYear))
	}
	if f.SkipInvalid || cfg.SkipInvalid {
		opts = append(opts, gains.WithSkipInvalid())
	}

	return &session.Session{
		Store:       st,
		Locker:      locker,
		Key:         e.keyFor(f),
		LockTTL:     cfg.LockTTL(),
		Options:     opts,
		Personal:    cfg.Personal,
		RowsPerPage: cfg.Forms.RowsPerPage,
		LossLimit:   cfg.LossLimit(),
	}
}
