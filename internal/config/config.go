package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

// EnvPrefix is stripped from environment variables before they are mapped to keys.
// INVENTORY_UPSTREAM__BASE_URL becomes upstream.base_url.
const EnvPrefix = "INVENTORY_"

// Config captures the tunables required to start the inventory gateway.
type Config struct {
	Addr       string           `koanf:"addr" validate:"required"`
	DB         DBConfig         `koanf:"db"`
	Upstream   UpstreamConfig   `koanf:"upstream"`
	Enrich     EnrichConfig     `koanf:"enrich"`
	CORS       CORSConfig       `koanf:"cors"`
	Log        LogConfig        `koanf:"log"`
	AugmentAPI AugmentAPIConfig `koanf:"augment_api"`
}

type DBConfig struct {
	// Driver is "sqlite3" (mattn/go-sqlite3, cgo) or "sqlite" (modernc.org/sqlite).
	Driver        string `koanf:"driver" validate:"oneof=sqlite3 sqlite"`
	Path          string `koanf:"path" validate:"required"`
	MaxOpenConns  int    `koanf:"max_open_conns" validate:"min=1"`
	BusyTimeoutMs int    `koanf:"busy_timeout_ms" validate:"min=0"`
}

type UpstreamConfig struct {
	BaseURL     string        `koanf:"base_url" validate:"omitempty,url"`
	Token       string        `koanf:"token"`
	Timeout     time.Duration `koanf:"timeout" validate:"min=0"`
	InsecureTLS bool          `koanf:"insecure_tls"`
	UserAgent   string        `koanf:"user_agent"`
}

// EnrichConfig parameterizes the vendor lookup throttle shared by list views and exports.
type EnrichConfig struct {
	BatchSize  int           `koanf:"batch_size" validate:"min=1"`
	BatchDelay time.Duration `koanf:"batch_delay" validate:"min=0"`
}

type CORSConfig struct {
	AllowedOrigins []string `koanf:"allowed_origins"`
}

type LogConfig struct {
	Level       string `koanf:"level" validate:"oneof=debug info warn error"`
	Development bool   `koanf:"development"`
}

// AugmentAPIConfig points the export command at a running gateway.
type AugmentAPIConfig struct {
	BaseURL string        `koanf:"base_url" validate:"omitempty,url"`
	Timeout time.Duration `koanf:"timeout" validate:"min=0"`
}

// Default returns the configuration used when nothing else is supplied.
func Default() Config {
	return Config{
		Addr: ":8080",
		DB: DBConfig{
			Driver:        "sqlite3",
			Path:          "inventory.db",
			MaxOpenConns:  25,
			BusyTimeoutMs: 5000,
		},
		Upstream: UpstreamConfig{
			Timeout:   30 * time.Second,
			UserAgent: "inventory-gateway/1.0",
		},
		Enrich: EnrichConfig{
			BatchSize:  20,
			BatchDelay: 100 * time.Millisecond,
		},
		CORS: CORSConfig{
			AllowedOrigins: []string{"*"},
		},
		Log: LogConfig{
			Level: "info",
		},
		AugmentAPI: AugmentAPIConfig{
			BaseURL: "http://localhost:8080",
			Timeout: 30 * time.Second,
		},
	}
}

// BindFlags registers one flag per configuration key. Flag names are the koanf keys.
func BindFlags(fs *pflag.FlagSet) {
	d := Default()
	fs.String("addr", d.Addr, "listen address")
	fs.String("db.driver", d.DB.Driver, "database driver: sqlite3 or sqlite")
	fs.String("db.path", d.DB.Path, "path to the SQLite database file")
	fs.Int("db.max_open_conns", d.DB.MaxOpenConns, "maximum open database connections")
	fs.Int("db.busy_timeout_ms", d.DB.BusyTimeoutMs, "SQLite busy timeout in milliseconds")
	fs.String("upstream.base_url", d.Upstream.BaseURL, "base URL of the upstream inventory API")
	fs.String("upstream.token", d.Upstream.Token, "bearer token used when the caller does not forward one")
	fs.Duration("upstream.timeout", d.Upstream.Timeout, "timeout for upstream requests")
	fs.Bool("upstream.insecure_tls", d.Upstream.InsecureTLS, "skip TLS verification of the upstream API")
	fs.String("upstream.user_agent", d.Upstream.UserAgent, "User-Agent sent to the upstream API")
	fs.Int("enrich.batch_size", d.Enrich.BatchSize, "vendor lookups issued concurrently per batch")
	fs.Duration("enrich.batch_delay", d.Enrich.BatchDelay, "pause between vendor lookup batches")
	fs.StringSlice("cors.allowed_origins", d.CORS.AllowedOrigins, "origins allowed by CORS")
	fs.String("log.level", d.Log.Level, "log level: debug, info, warn or error")
	fs.Bool("log.development", d.Log.Development, "human readable development logging")
	fs.String("augment_api.base_url", d.AugmentAPI.BaseURL, "gateway URL used by the export command")
	fs.Duration("augment_api.timeout", d.AugmentAPI.Timeout, "timeout for augmentation API requests")
}

// Load layers the YAML file at path (optional), INVENTORY_* environment variables and
// command-line flags, in that order of increasing precedence, over Default().
func Load(path string, fs *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envToKey), nil); err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}

	if fs != nil {
		// Unchanged flags only fill keys that are still missing.
		if err := k.Load(posflag.Provider(fs, ".", k), nil); err != nil {
			return nil, fmt.Errorf("load flags: %w", err)
		}
	}

	cfg := Default()
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks cfg against its struct tags.
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

func envToKey(s string) string {
	s = strings.TrimPrefix(s, EnvPrefix)
	return strings.ReplaceAll(strings.ToLower(s), "__", ".")
}
