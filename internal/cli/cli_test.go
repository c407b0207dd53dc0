package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"slices"
	"testing"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/scoreslides/pkg/cache"
	"github.com/matzehuels/scoreslides/pkg/config"
)

const fixtureCSV = "../../pkg/dataset/testdata/scores.csv"

// testCLI returns a CLI whose config reads the fixture and caches in a
// temporary directory.
func testCLI(t *testing.T) *CLI {
	t.Helper()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	var buf bytes.Buffer
	c := New(&buf, log.WarnLevel)
	c.dataFlags.path = fixtureCSV
	if err := c.loadConfig(); err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	c.Config.Cache.Dir = t.TempDir()
	return c
}

func TestRootCommandRegistersSubcommands(t *testing.T) {
	c := New(&bytes.Buffer{}, log.InfoLevel)
	root := c.RootCommand()

	var names []string
	for _, cmd := range root.Commands() {
		names = append(names, cmd.Name())
	}
	for _, want := range []string{"render", "summary", "present", "serve", "import", "cache", "completion"} {
		if !slices.Contains(names, want) {
			t.Errorf("missing subcommand %q in %v", want, names)
		}
	}
}

func TestLoadConfigFlags(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	tests := []struct {
		name       string
		flags      dataFlags
		wantSource string
		wantPath   string
	}{
		{"defaults", dataFlags{}, config.SourceCSV, config.DefaultDataPath},
		{"csv path", dataFlags{path: "other.csv"}, config.SourceCSV, "other.csv"},
		{"sqlite by extension", dataFlags{path: "scores.SQLITE"}, config.SourceSQLite, "scores.SQLITE"},
		{"explicit source wins", dataFlags{source: "csv", path: "scores.db"}, config.SourceCSV, "scores.db"},
		{"mongo uri", dataFlags{uri: "mongodb://localhost"}, config.SourceMongo, config.DefaultDataPath},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := New(&bytes.Buffer{}, log.InfoLevel)
			c.dataFlags = tt.flags
			if err := c.loadConfig(); err != nil {
				t.Fatalf("loadConfig: %v", err)
			}
			if c.Config.Data.Source != tt.wantSource || c.Config.Data.Path != tt.wantPath {
				t.Errorf("data = %s %s, want %s %s", c.Config.Data.Source, c.Config.Data.Path, tt.wantSource, tt.wantPath)
			}
		})
	}
}

func TestLoadConfigRejectsBadSource(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	c := New(&bytes.Buffer{}, log.InfoLevel)
	c.dataFlags.source = "excel"
	if err := c.loadConfig(); err == nil {
		t.Error("unknown source should fail")
	}
}

func TestLoadConfigFile(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("[render]\nwidth = 640\n"), 0644); err != nil {
		t.Fatal(err)
	}
	c := New(&bytes.Buffer{}, log.InfoLevel)
	c.configPath = path
	if err := c.loadConfig(); err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if c.Config.Render.Width != 640 {
		t.Errorf("width = %g, want 640", c.Config.Render.Width)
	}
}

func TestNewCache(t *testing.T) {
	c := testCLI(t)
	ctx := context.Background()

	tests := []struct {
		name     string
		backend  string
		noCache  bool
		wantFile bool
	}{
		{"file", config.CacheFile, false, true},
		{"none", config.CacheNone, false, false},
		{"no-cache flag", config.CacheFile, true, false},
		{"unreachable redis", config.CacheRedis, false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c.Config.Cache.Backend = tt.backend
			c.Config.Cache.RedisAddr = "127.0.0.1:1"
			ch, err := c.newCache(ctx, tt.noCache)
			if err != nil {
				t.Fatalf("newCache: %v", err)
			}
			defer ch.Close()
			_, isFile := ch.(*cache.FileCache)
			_, isNull := ch.(*cache.NullCache)
			if isFile != tt.wantFile || isNull == tt.wantFile {
				t.Errorf("got %T, wantFile %v", ch, tt.wantFile)
			}
		})
	}
}

func TestParseList(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"", nil},
		{"svg", []string{"svg"}},
		{"svg, png,,pdf ", []string{"svg", "png", "pdf"}},
	}
	for _, tt := range tests {
		if got := parseList(tt.in); !slices.Equal(got, tt.want) {
			t.Errorf("parseList(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestCacheClearCommand(t *testing.T) {
	c := testCLI(t)
	ctx := context.Background()

	fc, err := cache.NewFileCache(c.Config.Cache.CacheDir())
	if err != nil {
		t.Fatal(err)
	}
	if err := fc.Set(ctx, "frame:x", []byte("<svg/>"), 0); err != nil {
		t.Fatal(err)
	}

	cmd := c.cacheClearCommand()
	cmd.SetContext(ctx)
	if err := cmd.RunE(cmd, nil); err != nil {
		t.Fatalf("cache clear: %v", err)
	}
	if _, hit, _ := fc.Get(ctx, "frame:x"); hit {
		t.Error("entry should be gone after cache clear")
	}

	c.Config.Cache.Backend = config.CacheNone
	if err := cmd.RunE(cmd, nil); err != nil {
		t.Errorf("clearing a disabled cache should succeed: %v", err)
	}
}

func TestCompletionCommand(t *testing.T) {
	c := New(&bytes.Buffer{}, log.InfoLevel)
	root := c.RootCommand()
	root.PersistentPreRunE = nil

	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"completion", "bash"})
	if err := root.Execute(); err != nil {
		t.Fatalf("completion: %v", err)
	}
	if !bytes.Contains(out.Bytes(), []byte("scoreslides")) {
		t.Error("bash completion should mention the program name")
	}
}
