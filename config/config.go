// Package config defines the taxlots configuration file and its defaults.
package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/robinvdvleuten/taxlots/forms"
	"github.com/robinvdvleuten/taxlots/history"
	"github.com/shopspring/decimal"
)

// Config is the root configuration. Fields are read from a TOML file and
// then overridden by TAXLOTS_* environment variables.
type Config struct {
	TaxYear        int                `toml:"tax_year"`
	LogLevel       string             `toml:"log_level"`
	SkipInvalid    bool               `toml:"skip_invalid"`
	History        HistoryConfig      `toml:"history"`
	Counterparties history.Classifier `toml:"counterparties"`
	Store          StoreConfig        `toml:"store"`
	S3             S3Config           `toml:"s3"`
	Postgres       PostgresConfig     `toml:"postgres"`
	Redis          RedisConfig        `toml:"redis"`
	Personal       forms.Personal     `toml:"personal"`
	Forms          FormsConfig        `toml:"forms"`
	Server         ServerConfig       `toml:"server"`
}

// HistoryConfig locates inputs that accompany the ledger CSV.
type HistoryConfig struct {
	AddressBook string `toml:"address_book"`
}

// StoreConfig selects where lot snapshots are kept.
type StoreConfig struct {
	Backend string `toml:"backend"` // file, s3 or postgres
	Key     string `toml:"key"`
	Dir     string `toml:"dir"`
}

// S3Config holds S3 or S3-compatible object storage parameters.
type S3Config struct {
	Endpoint       string `toml:"endpoint"`
	Region         string `toml:"region"`
	Bucket         string `toml:"bucket"`
	Prefix         string `toml:"prefix"`
	AccessKey      string `toml:"access_key"`
	SecretKey      string `toml:"secret_key"`
	UseSSL         bool   `toml:"use_ssl"`
	ForcePathStyle bool   `toml:"force_path_style"`
}

// PostgresConfig holds PostgreSQL connection parameters.
type PostgresConfig struct {
	DSN           string `toml:"dsn"`
	Host          string `toml:"host"`
	Port          int    `toml:"port"`
	Database      string `toml:"database"`
	User          string `toml:"user"`
	Password      string `toml:"password"`
	SSLMode       string `toml:"ssl_mode"`
	PoolMaxConns  int    `toml:"pool_max_conns"`
	PoolMinConns  int    `toml:"pool_min_conns"`
	RunMigrations bool   `toml:"run_migrations"`
}

// RedisConfig holds the lock server parameters. Locking is disabled when
// Addr is empty.
type RedisConfig struct {
	Addr     string   `toml:"addr"`
	Password string   `toml:"password"`
	DB       int      `toml:"db"`
	LockTTL  duration `toml:"lock_ttl"`
}

// FormsConfig controls form output.
type FormsConfig struct {
	OutputDir        string `toml:"output_dir"`
	RowsPerPage      int    `toml:"rows_per_page"`
	CapitalLossLimit string `toml:"capital_loss_limit"` // empty derives it from the filing status
}

// ServerConfig holds the report server parameters.
type ServerConfig struct {
	Host  string `toml:"host"`
	Port  int    `toml:"port"`
	Watch bool   `toml:"watch"`
}

// duration decodes TOML strings such as "30s".
type duration struct {
	time.Duration
}

func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Defaults returns the configuration used when no file is given.
func Defaults() Config {
	return Config{
		LogLevel:       "warn",
		Counterparties: history.DefaultClassifier(),
		Store: StoreConfig{
			Backend: "file",
			Key:     "assets",
			Dir:     ".",
		},
		S3: S3Config{
			Region: "us-east-1",
			Prefix: "taxlots/",
			UseSSL: true,
		},
		Postgres: PostgresConfig{
			Host:          "localhost",
			Port:          5432,
			Database:      "taxlots",
			User:          "postgres",
			SSLMode:       "disable",
			PoolMaxConns:  4,
			PoolMinConns:  0,
			RunMigrations: true,
		},
		Redis: RedisConfig{
			LockTTL: duration{30 * time.Second},
		},
		Forms: FormsConfig{
			OutputDir:   "build",
			RowsPerPage: forms.DefaultRowsPerPage,
		},
		Server: ServerConfig{
			Host:  "127.0.0.1",
			Port:  8080,
			Watch: true,
		},
	}
}

var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

var validBackends = map[string]bool{
	"file":     true,
	"s3":       true,
	"postgres": true,
}

// Validate reports every invalid value at once.
func (c *Config) Validate() error {
	var errs []string

	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}
	if c.TaxYear < 0 || (c.TaxYear > 0 && c.TaxYear < 1970) {
		errs = append(errs, fmt.Sprintf("tax_year must be a four digit year, got %d", c.TaxYear))
	}

	backend := strings.ToLower(c.Store.Backend)
	if !validBackends[backend] {
		errs = append(errs, fmt.Sprintf("store: unknown backend %q (valid: file, s3, postgres)", c.Store.Backend))
	}
	if strings.TrimSpace(c.Store.Key) == "" {
		errs = append(errs, "store: key must not be empty")
	}
	if strings.ContainsAny(c.Store.Key, `/\`) {
		errs = append(errs, fmt.Sprintf("store: key %q must not contain path separators", c.Store.Key))
	}

	if backend == "s3" && c.S3.Bucket == "" {
		errs = append(errs, "s3: bucket must not be empty")
	}

	if backend == "postgres" {
		if strings.TrimSpace(c.Postgres.DSN) == "" {
			if c.Postgres.Host == "" {
				errs = append(errs, "postgres: host must not be empty (or set postgres.dsn)")
			}
			if c.Postgres.Port <= 0 || c.Postgres.Port > 65535 {
				errs = append(errs, fmt.Sprintf("postgres: port must be 1-65535, got %d", c.Postgres.Port))
			}
			if c.Postgres.Database == "" {
				errs = append(errs, "postgres: database must not be empty")
			}
		}
		if c.Postgres.PoolMaxConns < 1 {
			errs = append(errs, "postgres: pool_max_conns must be >= 1")
		}
		if c.Postgres.PoolMinConns < 0 || c.Postgres.PoolMinConns > c.Postgres.PoolMaxConns {
			errs = append(errs, "postgres: pool_min_conns must be between 0 and pool_max_conns")
		}
	}

	if c.Redis.Addr != "" && c.Redis.LockTTL.Duration <= 0 {
		errs = append(errs, "redis: lock_ttl must be positive")
	}

	if c.Forms.RowsPerPage < 1 {
		errs = append(errs, "forms: rows_per_page must be >= 1")
	}
	if c.Forms.CapitalLossLimit != "" {
		if _, err := decimal.NewFromString(c.Forms.CapitalLossLimit); err != nil {
			errs = append(errs, fmt.Sprintf("forms: capital_loss_limit %q is not a number", c.Forms.CapitalLossLimit))
		}
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("server: port must be 1-65535, got %d", c.Server.Port))
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

// Level returns the slog level for LogLevel.
func (c *Config) Level() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelWarn
	}
	return level
}

// LossLimit returns the Schedule D line 21 limit.
func (c *Config) LossLimit() decimal.Decimal {
	if limit, err := decimal.NewFromString(c.Forms.CapitalLossLimit); err == nil {
		return limit
	}
	return forms.LossLimit(c.Personal.FilingStatus)
}

// LockTTL returns how long a snapshot lock is held at most.
func (c *Config) LockTTL() time.Duration {
	return c.Redis.LockTTL.Duration
}

// Redacted returns a copy of c with secrets replaced by "***", for printing.
func (c *Config) Redacted() Config {
	out := *c
	redact(&out.S3.AccessKey)
	redact(&out.S3.SecretKey)
	redact(&out.Postgres.DSN)
	redact(&out.Postgres.Password)
	redact(&out.Redis.Password)
	redact(&out.Personal.SSN)
	return out
}

func redact(s *string) {
	if *s != "" {
		*s = "***"
	}
}
