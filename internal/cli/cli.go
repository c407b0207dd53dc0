// Package cli implements the scoreslides command-line interface.
//
// # Commands
//
//   - render: write slides as SVG, PNG or PDF
//   - summary: print group means as tables
//   - present: step through the slides in the terminal
//   - serve: present the slides in a browser
//   - import: copy a CSV dataset into SQLite or MongoDB
//   - cache: manage the artifact cache
//   - completion: generate shell completion scripts
//
// # Configuration
//
// Settings come from $XDG_CONFIG_HOME/scoreslides/config.toml (or --config)
// and are overridden by flags. See package config.
//
// # Logging
//
// All commands support --verbose (-v) for debug-level logging, which also
// turns on the observability hooks of the library packages.
package cli

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/scoreslides/pkg/buildinfo"
	"github.com/matzehuels/scoreslides/pkg/cache"
	"github.com/matzehuels/scoreslides/pkg/config"
	"github.com/matzehuels/scoreslides/pkg/dataset"
	"github.com/matzehuels/scoreslides/pkg/pipeline"
)

// =============================================================================
// Constants
// =============================================================================

// appName is the application name used for directories and display.
const appName = "scoreslides"

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger
	Config config.Config

	configPath string
	dataFlags  dataFlags
}

// dataFlags are the persistent flags that override the [data] section.
type dataFlags struct {
	source string
	path   string
	uri    string
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{
		Logger: newLogger(w, level),
		Config: config.Default(),
	}
}

// SetLogLevel updates the logger's level. At debug level the library hooks
// log through the CLI logger as well.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
	if level <= log.DebugLevel {
		installHooks(c.Logger)
	}
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:          appName,
		Short:        "Scoreslides presents student exam scores as interactive slides",
		Long:         `Scoreslides turns a table of student exam scores into a short deck of interactive charts: grouped means by gender, parental education, race/ethnicity and lunch type, explorable in the terminal, in a browser or as rendered files.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cmd.SetContext(withLogger(cmd.Context(), c.Logger))
			return c.loadConfig()
		},
	}

	root.SetVersionTemplate(buildinfo.Template())

	flags := root.PersistentFlags()
	flags.StringVar(&c.configPath, "config", "", "config file (default "+config.DefaultPath()+")")
	flags.StringVar(&c.dataFlags.source, "source", "", "record source: csv, sqlite, mongo")
	flags.StringVarP(&c.dataFlags.path, "data", "d", "", "CSV or SQLite file with the score records")
	flags.StringVar(&c.dataFlags.uri, "mongo-uri", "", "MongoDB connection URI (source mongo)")

	root.AddCommand(c.renderCommand())
	root.AddCommand(c.summaryCommand())
	root.AddCommand(c.presentCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.importCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// =============================================================================
// Configuration
// =============================================================================

// loadConfig reads the config file and applies the persistent flags.
func (c *CLI) loadConfig() error {
	cfg, err := config.Load(c.configPath)
	if err != nil {
		return err
	}
	if c.dataFlags.source != "" {
		cfg.Data.Source = c.dataFlags.source
	}
	if c.dataFlags.path != "" {
		cfg.Data.Path = c.dataFlags.path
		if c.dataFlags.source == "" {
			cfg.Data.Source = sourceForPath(c.dataFlags.path)
		}
	}
	if c.dataFlags.uri != "" {
		cfg.Data.URI = c.dataFlags.uri
		if c.dataFlags.source == "" {
			cfg.Data.Source = config.SourceMongo
		}
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	c.Config = cfg
	return nil
}

// sourceForPath guesses the source kind from a file extension.
func sourceForPath(path string) string {
	lower := strings.ToLower(path)
	for _, ext := range []string{".db", ".sqlite", ".sqlite3"} {
		if strings.HasSuffix(lower, ext) {
			return config.SourceSQLite
		}
	}
	return config.SourceCSV
}

// =============================================================================
// Runner Factory
// =============================================================================

// loadStore reads the configured records.
func (c *CLI) loadStore(ctx context.Context) (*dataset.Store, error) {
	src, err := c.Config.Data.RecordSource()
	if err != nil {
		return nil, err
	}
	prog := newProgress(c.Logger)
	store, err := dataset.Load(ctx, src)
	if err != nil {
		return nil, err
	}
	prog.done(fmt.Sprintf("Loaded %d records from %s", store.Len(), src.Name()))
	return store, nil
}

// newRunner creates a pipeline runner for CLI use.
func (c *CLI) newRunner(ctx context.Context, noCache bool) (*pipeline.Runner, error) {
	ch, err := c.newCache(ctx, noCache)
	if err != nil {
		return nil, err
	}
	return pipeline.NewRunner(ch, cache.NewDefaultKeyer(), c.Logger), nil
}

// newCache opens the configured cache backend. An unreachable Redis falls
// back to no caching with a warning.
func (c *CLI) newCache(ctx context.Context, noCache bool) (cache.Cache, error) {
	if noCache {
		return cache.NewNullCache(), nil
	}
	switch c.Config.Cache.Backend {
	case config.CacheNone:
		return cache.NewNullCache(), nil
	case config.CacheRedis:
		rc, err := cache.NewRedisCache(ctx, cache.RedisConfig{
			Addr:   c.Config.Cache.RedisAddr,
			Prefix: c.Config.Cache.Prefix,
		})
		if err != nil {
			c.Logger.Warn("redis cache unavailable, caching disabled", "error", err)
			return cache.NewNullCache(), nil
		}
		return rc, nil
	default:
		fc, err := cache.NewFileCache(c.Config.Cache.CacheDir())
		if err != nil {
			return nil, err
		}
		return fc, nil
	}
}

// =============================================================================
// Options Helpers
// =============================================================================

// parseList splits a comma-separated flag value, dropping empty entries.
func parseList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
