// Package config loads process configuration for the moviedw commands.
//
// Sources are layered in this order, later sources winning:
//
//  1. struct defaults (Default)
//  2. an optional YAML or JSON file (-config flag or CONFIG_PATH)
//  3. PG_* variables for the warehouse connection
//  4. MOVIEDW_* variables for everything else (MOVIEDW_WAREHOUSE_KIND -> warehouse.kind)
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix is the prefix for non-connection environment overrides.
const EnvPrefix = "MOVIEDW_"

// Config is the root configuration shared by cmd/clean, cmd/load and cmd/web.
type Config struct {
	DB        DBConfig        `koanf:"db"`
	Warehouse WarehouseConfig `koanf:"warehouse"`
	Paths     PathsConfig     `koanf:"paths"`
	Cleaning  CleaningConfig  `koanf:"cleaning"`
	Metrics   MetricsConfig   `koanf:"metrics"`
	Log       LogConfig       `koanf:"log"`
	Web       WebConfig       `koanf:"web"`
}

// DBConfig mirrors the PG_* connection variables.
type DBConfig struct {
	User string `koanf:"user"`
	Pass string `koanf:"pass"`
	Name string `koanf:"db"`
	Host string `koanf:"host"`
	Port int    `koanf:"port"`
}

// WarehouseConfig selects the storage backend.
//
// DSN, when set, is used verbatim; otherwise a DSN is derived from DBConfig
// for the selected kind (see DSN).
type WarehouseConfig struct {
	Kind         string        `koanf:"kind"`
	DSN          string        `koanf:"dsn"`
	StartupDelay time.Duration `koanf:"startup_delay"`
}

// PathsConfig holds the ordered candidate directories for each file role.
type PathsConfig struct {
	InputDirs  []string `koanf:"input_dirs"`
	OutputDirs []string `koanf:"output_dirs"`
	LoadDirs   []string `koanf:"load_dirs"`
}

// CleaningConfig tunes the record cleaners.
type CleaningConfig struct {
	LazyQuotes     bool    `koanf:"lazy_quotes"`
	Comma          string  `koanf:"comma"`
	DefaultScore   float64 `koanf:"default_score"`
	DefaultComment string  `koanf:"default_comment"`
	MaxCommentLen  int     `koanf:"max_comment_len"`
}

// MetricsConfig selects a metrics backend ("none" or "datadog").
type MetricsConfig struct {
	Backend string `koanf:"backend"`
	Tags    string `koanf:"tags"`
}

// LogConfig configures the zap logger.
type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"` // console | json
}

// WebConfig configures the HTTP front end.
type WebConfig struct {
	Addr      string        `koanf:"addr"`
	RedisAddr string        `koanf:"redis_addr"`
	CacheTTL  time.Duration `koanf:"cache_ttl"`
	Timeout   time.Duration `koanf:"timeout"`
}

// Default returns the configuration used when no file or env overrides exist.
func Default() Config {
	return Config{
		DB: DBConfig{
			User: "user",
			Pass: "secret",
			Name: "dw",
			Host: "pg-dados",
			Port: 5432,
		},
		Warehouse: WarehouseConfig{
			Kind:         "postgres",
			StartupDelay: 3 * time.Second,
		},
		Paths: PathsConfig{
			InputDirs:  []string{"/app/input", ".", ".."},
			OutputDirs: []string{"/app/data", ".", ".."},
			LoadDirs:   []string{"/app/data", "data", "..", "../etl-data-cleaning"},
		},
		Cleaning: CleaningConfig{
			LazyQuotes:     true,
			Comma:          ",",
			DefaultScore:   5.0,
			DefaultComment: "Sem comentário",
			MaxCommentLen:  500,
		},
		Metrics: MetricsConfig{Backend: "none"},
		Log:     LogConfig{Level: "info", Format: "console"},
		Web: WebConfig{
			Addr:     ":5000",
			CacheTTL: time.Minute,
			Timeout:  10 * time.Second,
		},
	}
}

// Load builds a Config from defaults, the optional file at path, and the
// environment. An empty path falls back to CONFIG_PATH; a missing file named
// explicitly is an error. Overrides (command-line flags) are applied last,
// before validation.
func Load(path string, overrides ...func(*Config)) (Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(Default(), "koanf"), nil); err != nil {
		return Config{}, fmt.Errorf("config: load defaults: %w", err)
	}

	if path == "" {
		path = os.Getenv("CONFIG_PATH")
	}
	if path != "" {
		if err := loadFile(k, path); err != nil {
			return Config{}, err
		}
	}

	if err := k.Load(env.Provider("PG_", ".", pgEnvKey), nil); err != nil {
		return Config{}, fmt.Errorf("config: load PG env: %w", err)
	}
	if err := k.Load(env.Provider(EnvPrefix, ".", appEnvKey), nil); err != nil {
		return Config{}, fmt.Errorf("config: load %s env: %w", EnvPrefix, err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, fmt.Errorf("config: unmarshal: %w", err)
	}
	for _, o := range overrides {
		o(&cfg)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

func loadFile(k *koanf.Koanf, path string) error {
	var parser koanf.Parser
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		parser = yaml.Parser()
	case ".json":
		parser = json.Parser()
	default:
		return fmt.Errorf("config: unsupported file format %q", ext)
	}
	if err := k.Load(file.Provider(path), parser); err != nil {
		return fmt.Errorf("config: load %s: %w", path, err)
	}
	return nil
}

// pgEnvKey maps PG_HOST to db.host.
func pgEnvKey(s string) string {
	return "db." + strings.ToLower(strings.TrimPrefix(s, "PG_"))
}

// appEnvKey maps MOVIEDW_WEB_REDIS_ADDR to web.redis_addr. Only the first
// underscore separates section from key.
func appEnvKey(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	section, key, ok := strings.Cut(s, "_")
	if !ok {
		return s
	}
	return section + "." + key
}

// Validate reports configuration errors that would make a run meaningless.
func (c Config) Validate() error {
	var errs []error

	switch c.Warehouse.Kind {
	case "postgres", "sqlite", "mssql":
	default:
		errs = append(errs, fmt.Errorf("warehouse.kind %q unsupported (postgres|sqlite|mssql)", c.Warehouse.Kind))
	}
	if c.Warehouse.Kind == "sqlite" && c.Warehouse.DSN == "" {
		errs = append(errs, errors.New("warehouse.dsn is required for sqlite"))
	}
	if c.Warehouse.StartupDelay < 0 {
		errs = append(errs, errors.New("warehouse.startup_delay must be >= 0"))
	}
	if c.DB.Port <= 0 || c.DB.Port > 65535 {
		errs = append(errs, fmt.Errorf("db.port %d out of range", c.DB.Port))
	}
	switch c.Metrics.Backend {
	case "", "none", "datadog", "dd":
	default:
		errs = append(errs, fmt.Errorf("metrics.backend %q unsupported (none|datadog)", c.Metrics.Backend))
	}
	switch c.Log.Format {
	case "", "console", "json":
	default:
		errs = append(errs, fmt.Errorf("log.format %q unsupported (console|json)", c.Log.Format))
	}
	if c.Cleaning.MaxCommentLen <= 0 {
		errs = append(errs, errors.New("cleaning.max_comment_len must be > 0"))
	}
	if c.Cleaning.DefaultScore < 0 || c.Cleaning.DefaultScore > 10 {
		errs = append(errs, errors.New("cleaning.default_score must be within [0,10]"))
	}
	return errors.Join(errs...)
}

// DSN returns the warehouse connection string for the configured kind.
func (c Config) DSN() string {
	if c.Warehouse.DSN != "" {
		return c.Warehouse.DSN
	}
	db := c.DB
	host := fmt.Sprintf("%s:%d", db.Host, db.Port)
	switch c.Warehouse.Kind {
	case "mssql":
		u := url.URL{
			Scheme:   "sqlserver",
			User:     url.UserPassword(db.User, db.Pass),
			Host:     host,
			RawQuery: url.Values{"database": {db.Name}}.Encode(),
		}
		return u.String()
	default:
		u := url.URL{
			Scheme:   "postgres",
			User:     url.UserPassword(db.User, db.Pass),
			Host:     host,
			Path:     "/" + db.Name,
			RawQuery: "sslmode=disable",
		}
		return u.String()
	}
}

// ParserOptions exposes the CSV settings in the option-bag form parsers take.
func (c CleaningConfig) ParserOptions() Options {
	return Options{
		"has_header":  true,
		"trim_space":  true,
		"lazy_quotes": c.LazyQuotes,
		"comma":       c.Comma,
	}
}
