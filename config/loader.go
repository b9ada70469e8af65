package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// DefaultPath is read when no configuration path is given. It may be absent.
const DefaultPath = "taxlots.toml"

// Load merges the TOML file at path over Defaults and applies TAXLOTS_*
// environment overrides. A missing file is an error unless path is empty or
// DefaultPath. The result is not validated.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	explicit := path != "" && path != DefaultPath
	if path == "" {
		path = DefaultPath
	}

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		if explicit || !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to load config %s: %w", path, err)
		}
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	setInt(&cfg.TaxYear, "TAXLOTS_TAX_YEAR")
	setStr(&cfg.LogLevel, "TAXLOTS_LOG_LEVEL")
	setBool(&cfg.SkipInvalid, "TAXLOTS_SKIP_INVALID")

	setStr(&cfg.History.AddressBook, "TAXLOTS_HISTORY_ADDRESS_BOOK")
	setStringSlice(&cfg.Counterparties.Self, "TAXLOTS_COUNTERPARTIES_SELF")
	setStringSlice(&cfg.Counterparties.Exchanges, "TAXLOTS_COUNTERPARTIES_EXCHANGES")
	setStringSlice(&cfg.Counterparties.Entities, "TAXLOTS_COUNTERPARTIES_ENTITIES")

	setStr(&cfg.Store.Backend, "TAXLOTS_STORE_BACKEND")
	setStr(&cfg.Store.Key, "TAXLOTS_STORE_KEY")
	setStr(&cfg.Store.Dir, "TAXLOTS_STORE_DIR")

	setStr(&cfg.S3.Endpoint, "TAXLOTS_S3_ENDPOINT")
	setStr(&cfg.S3.Region, "TAXLOTS_S3_REGION")
	setStr(&cfg.S3.Bucket, "TAXLOTS_S3_BUCKET")
	setStr(&cfg.S3.Prefix, "TAXLOTS_S3_PREFIX")
	setStr(&cfg.S3.AccessKey, "TAXLOTS_S3_ACCESS_KEY")
	setStr(&cfg.S3.SecretKey, "TAXLOTS_S3_SECRET_KEY")
	setBool(&cfg.S3.UseSSL, "TAXLOTS_S3_USE_SSL")
	setBool(&cfg.S3.ForcePathStyle, "TAXLOTS_S3_FORCE_PATH_STYLE")

	setStr(&cfg.Postgres.DSN, "TAXLOTS_POSTGRES_DSN")
	setStr(&cfg.Postgres.Host, "TAXLOTS_POSTGRES_HOST")
	setInt(&cfg.Postgres.Port, "TAXLOTS_POSTGRES_PORT")
	setStr(&cfg.Postgres.Database, "TAXLOTS_POSTGRES_DATABASE")
	setStr(&cfg.Postgres.User, "TAXLOTS_POSTGRES_USER")
	setStr(&cfg.Postgres.Password, "TAXLOTS_POSTGRES_PASSWORD")
	setStr(&cfg.Postgres.SSLMode, "TAXLOTS_POSTGRES_SSL_MODE")
	setInt(&cfg.Postgres.PoolMaxConns, "TAXLOTS_POSTGRES_POOL_MAX_CONNS")
	setInt(&cfg.Postgres.PoolMinConns, "TAXLOTS_POSTGRES_POOL_MIN_CONNS")
	setBool(&cfg.Postgres.RunMigrations, "TAXLOTS_POSTGRES_RUN_MIGRATIONS")

	setStr(&cfg.Redis.Addr, "TAXLOTS_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "TAXLOTS_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "TAXLOTS_REDIS_DB")
	setDuration(&cfg.Redis.LockTTL, "TAXLOTS_REDIS_LOCK_TTL")

	setStr(&cfg.Personal.FirstName, "TAXLOTS_PERSONAL_FIRST_NAME")
	setStr(&cfg.Personal.MiddleInitial, "TAXLOTS_PERSONAL_MIDDLE_INITIAL")
	setStr(&cfg.Personal.LastName, "TAXLOTS_PERSONAL_LAST_NAME")
	setStr(&cfg.Personal.SSN, "TAXLOTS_PERSONAL_SSN")
	setStr(&cfg.Personal.FilingStatus, "TAXLOTS_PERSONAL_FILING_STATUS")
	setBool(&cfg.Personal.QualifiedDividends, "TAXLOTS_PERSONAL_QUALIFIED_DIVIDENDS")

	setStr(&cfg.Forms.OutputDir, "TAXLOTS_FORMS_OUTPUT_DIR")
	setInt(&cfg.Forms.RowsPerPage, "TAXLOTS_FORMS_ROWS_PER_PAGE")
	setStr(&cfg.Forms.CapitalLossLimit, "TAXLOTS_FORMS_CAPITAL_LOSS_LIMIT")

	setStr(&cfg.Server.Host, "TAXLOTS_SERVER_HOST")
	setInt(&cfg.Server.Port, "TAXLOTS_SERVER_PORT")
	setBool(&cfg.Server.Watch, "TAXLOTS_SERVER_WATCH")
}

// Each setter only touches dst when the variable is set and parses.

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			dst.Duration = d
		}
	}
}

func setStringSlice(dst *[]string, key string) {
	if v := os.Getenv(key); v != "" {
		var cleaned []string
		for _, p := range strings.Split(v, ",") {
			if p = strings.TrimSpace(p); p != "" {
				cleaned = append(cleaned, p)
			}
		}
		if len(cleaned) > 0 {
			*dst = cleaned
		}
	}
}
