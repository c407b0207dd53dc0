// Package config loads the scoreslides TOML configuration.
//
// The file lives at $XDG_CONFIG_HOME/scoreslides/config.toml unless a path is
// given explicitly. Every key is optional; values missing from the file keep
// the defaults returned by [Default]:
//
//	[data]
//	source = "sqlite"
//	path = "scores.db"
//
//	[render]
//	width = 1200
//	duration = "500ms"
//
//	[cache]
//	backend = "redis"
//	redis_addr = "redis://localhost:6379/0"
//	ttl = "24h"
//
// Command-line flags override file values; that merge happens in the CLI.
package config

import (
	"fmt"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/matzehuels/scoreslides/pkg/dataset"
	"github.com/matzehuels/scoreslides/pkg/errors"
)

// Data source kinds.
const (
	SourceCSV    = "csv"
	SourceSQLite = "sqlite"
	SourceMongo  = "mongo"
)

// Cache backends.
const (
	CacheNone  = "none"
	CacheFile  = "file"
	CacheRedis = "redis"
)

// Output formats.
const (
	FormatSVG = "svg"
	FormatPNG = "png"
	FormatPDF = "pdf"
)

// DefaultDataPath is the CSV file read when no data path is configured.
const DefaultDataPath = "StudentsPerformance.csv"

// Config is the complete configuration.
type Config struct {
	Data   DataConfig   `toml:"data"`
	Render RenderConfig `toml:"render"`
	Cache  CacheConfig  `toml:"cache"`
	Server ServerConfig `toml:"server"`
}

// DataConfig selects where records come from.
type DataConfig struct {
	Source     string        `toml:"source"`
	Path       string        `toml:"path"`
	Table      string        `toml:"table"`
	URI        string        `toml:"uri"`
	Database   string        `toml:"database"`
	Collection string        `toml:"collection"`
	Timeout    time.Duration `toml:"timeout"`
}

// RenderConfig controls slide output.
type RenderConfig struct {
	Width    float64       `toml:"width"`
	Height   float64       `toml:"height"`
	Duration time.Duration `toml:"duration"`
	Animate  bool          `toml:"animate"`
	Formats  []string      `toml:"formats"`
	Scale    float64       `toml:"scale"`
}

// CacheConfig selects the artifact cache.
type CacheConfig struct {
	Backend   string        `toml:"backend"`
	Dir       string        `toml:"dir"`
	RedisAddr string        `toml:"redis_addr"`
	Prefix    string        `toml:"prefix"`
	TTL       time.Duration `toml:"ttl"`
}

// ServerConfig controls the HTTP presenter.
type ServerConfig struct {
	Addr string `toml:"addr"`
}

// Default returns the built-in configuration. A zero Render.Duration keeps
// each chart's own transition duration.
func Default() Config {
	return Config{
		Data: DataConfig{
			Source:  SourceCSV,
			Path:    DefaultDataPath,
			Timeout: 10 * time.Second,
		},
		Render: RenderConfig{
			Width:   1000,
			Height:  750,
			Formats: []string{FormatSVG},
			Scale:   1,
		},
		Cache: CacheConfig{
			Backend: CacheFile,
			Prefix:  "scoreslides:",
			TTL:     7 * 24 * time.Hour,
		},
		Server: ServerConfig{
			Addr: "localhost:8080",
		},
	}
}

// Load reads the TOML file at path on top of [Default]. An empty path means
// [DefaultPath]. A missing file is not an error. Unknown keys are rejected so
// typos do not go unnoticed.
func Load(path string) (Config, error) {
	if path == "" {
		path = DefaultPath()
	}
	cfg := Default()
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return Config{}, fmt.Errorf("stat config: %w", err)
	}

	md, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return Config{}, errors.Wrap(errors.ErrCodeInvalidConfig, err, "decode %s", path)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return Config{}, errors.New(errors.ErrCodeInvalidConfig, "%s: unknown keys %s", path, strings.Join(keys, ", "))
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports the first invalid setting as INVALID_CONFIG.
func (c Config) Validate() error {
	invalid := func(format string, args ...any) error {
		return errors.New(errors.ErrCodeInvalidConfig, format, args...)
	}

	switch c.Data.Source {
	case SourceCSV, SourceSQLite:
		if c.Data.Path == "" {
			return invalid("data.path is required for source %q", c.Data.Source)
		}
	case SourceMongo:
		if c.Data.URI == "" {
			return invalid("data.uri is required for source %q", c.Data.Source)
		}
	default:
		return invalid("data.source must be csv, sqlite or mongo, got %q", c.Data.Source)
	}
	if c.Data.Timeout < 0 {
		return invalid("data.timeout must not be negative")
	}

	if c.Render.Width <= 0 || c.Render.Height <= 0 {
		return invalid("render size must be positive, got %gx%g", c.Render.Width, c.Render.Height)
	}
	if c.Render.Duration < 0 {
		return invalid("render.duration must not be negative")
	}
	if c.Render.Scale <= 0 {
		return invalid("render.scale must be positive")
	}
	for _, f := range c.Render.Formats {
		if !slices.Contains(Formats(), f) {
			return invalid("unknown render format %q", f)
		}
	}

	switch c.Cache.Backend {
	case CacheNone, CacheFile, CacheRedis:
	default:
		return invalid("cache.backend must be none, file or redis, got %q", c.Cache.Backend)
	}
	if c.Cache.TTL < 0 {
		return invalid("cache.ttl must not be negative")
	}

	if c.Server.Addr == "" {
		return invalid("server.addr is required")
	}
	return nil
}

// Formats lists the supported output formats.
func Formats() []string {
	return []string{FormatSVG, FormatPNG, FormatPDF}
}

// RecordSource builds the record source described by the data section.
func (d DataConfig) RecordSource() (dataset.Source, error) {
	switch d.Source {
	case SourceCSV:
		return dataset.CSVSource{Path: d.Path}, nil
	case SourceSQLite:
		return dataset.SQLiteSource{Path: d.Path, Table: d.Table}, nil
	case SourceMongo:
		return dataset.MongoSource{
			URI:        d.URI,
			Database:   d.Database,
			Collection: d.Collection,
			Timeout:    d.Timeout,
		}, nil
	default:
		return nil, errors.New(errors.ErrCodeInvalidConfig, "unknown data source %q", d.Source)
	}
}
