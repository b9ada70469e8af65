package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alecthomas/assert/v2"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "taxlots.toml")
	assert.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
tax_year = 2018
log_level = "debug"

[counterparties]
exchanges = ["ex-", "kraken"]

[store]
backend = "postgres"
key = "2018"

[postgres]
dsn = "postgres://localhost/taxes"

[redis]
addr = "localhost:6379"
lock_ttl = "1m"

[personal]
first_name = "Ada"
last_name = "Lovelace"
filing_status = "married_filing_separately"

[server]
port = 9000
`)

	cfg, err := Load(path)
	assert.NoError(t, err)
	assert.NoError(t, cfg.Validate())

	assert.Equal(t, 2018, cfg.TaxYear)
	assert.Equal(t, slog.LevelDebug, cfg.Level())
	assert.Equal(t, []string{"ex-", "kraken"}, cfg.Counterparties.Exchanges)
	assert.Equal(t, []string{"entity"}, cfg.Counterparties.Entities)
	assert.Equal(t, "postgres", cfg.Store.Backend)
	assert.Equal(t, "2018", cfg.Store.Key)
	assert.Equal(t, time.Minute, cfg.LockTTL())
	assert.Equal(t, "1500", cfg.LossLimit().String())
	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, "127.0.0.1", cfg.Server.Host)
	assert.Equal(t, 14, cfg.Forms.RowsPerPage)
}

func TestLoad_EnvOverrides(t *testing.T) {
	path := writeConfig(t, "tax_year = 2018\n")

	t.Setenv("TAXLOTS_TAX_YEAR", "2019")
	t.Setenv("TAXLOTS_STORE_BACKEND", "s3")
	t.Setenv("TAXLOTS_S3_BUCKET", "ledgers")
	t.Setenv("TAXLOTS_COUNTERPARTIES_SELF", "self, wallet-,")
	t.Setenv("TAXLOTS_SERVER_PORT", "not-a-port")

	cfg, err := Load(path)
	assert.NoError(t, err)
	assert.NoError(t, cfg.Validate())

	assert.Equal(t, 2019, cfg.TaxYear)
	assert.Equal(t, "s3", cfg.Store.Backend)
	assert.Equal(t, "ledgers", cfg.S3.Bucket)
	assert.Equal(t, []string{"self", "wallet-"}, cfg.Counterparties.Self)
	assert.Equal(t, 8080, cfg.Server.Port)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	assert.Error(t, err)

	t.Chdir(t.TempDir())
	cfg, err := Load("")
	assert.NoError(t, err)
	assert.Equal(t, "file", cfg.Store.Backend)
}

func TestLoad_Malformed(t *testing.T) {
	_, err := Load(writeConfig(t, "tax_year = \n"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
		errMsg string
	}{
		{"log level", func(c *Config) { c.LogLevel = "loud" }, `unknown log_level "loud"`},
		{"backend", func(c *Config) { c.Store.Backend = "ftp" }, `unknown backend "ftp"`},
		{"key", func(c *Config) { c.Store.Key = "../etc" }, "must not contain path separators"},
		{"bucket", func(c *Config) { c.Store.Backend = "s3" }, "s3: bucket must not be empty"},
		{"postgres port", func(c *Config) {
			c.Store.Backend = "postgres"
			c.Postgres.Port = 0
		}, "postgres: port must be 1-65535"},
		{"rows per page", func(c *Config) { c.Forms.RowsPerPage = 0 }, "rows_per_page"},
		{"loss limit", func(c *Config) { c.Forms.CapitalLossLimit = "lots" }, "capital_loss_limit"},
		{"tax year", func(c *Config) { c.TaxYear = 18 }, "four digit year"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Defaults()
			tt.modify(&cfg)
			err := cfg.Validate()
			assert.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}

	cfg := Defaults()
	assert.NoError(t, cfg.Validate())
	assert.Equal(t, slog.LevelWarn, cfg.Level())
	assert.Equal(t, "3000", cfg.LossLimit().String())
}

func TestRedacted(t *testing.T) {
	cfg := Defaults()
	cfg.S3.SecretKey = "secret"
	cfg.Personal.SSN = "123-45-6789"

	redacted := cfg.Redacted()
	assert.Equal(t, "***", redacted.S3.SecretKey)
	assert.Equal(t, "***", redacted.Personal.SSN)
	assert.Equal(t, "", redacted.S3.AccessKey)
	assert.Equal(t, "secret", cfg.S3.SecretKey)
}
