package cache

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestNullCache(t *testing.T) {
	ctx := context.Background()
	c := NewNullCache()
	defer c.Close()

	// Get always returns miss
	data, hit, err := c.Get(ctx, "key")
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if hit {
		t.Error("NullCache.Get should always return miss")
	}
	if data != nil {
		t.Error("NullCache.Get should return nil data")
	}

	if err := c.Set(ctx, "key", []byte("value"), time.Hour); err != nil {
		t.Errorf("Set error: %v", err)
	}

	// Still a miss after Set
	_, hit, _ = c.Get(ctx, "key")
	if hit {
		t.Error("NullCache should not store data")
	}

	if err := c.Delete(ctx, "key"); err != nil {
		t.Errorf("Delete error: %v", err)
	}
}

func TestHash(t *testing.T) {
	h1 := Hash([]byte("hello"))
	h2 := Hash([]byte("hello"))
	if h1 != h2 {
		t.Error("Hash should be deterministic")
	}

	h3 := Hash([]byte("world"))
	if h1 == h3 {
		t.Error("Different inputs should produce different hashes")
	}

	// SHA-256 produces 64 hex chars
	if len(h1) != 64 {
		t.Errorf("Hash length should be 64, got %d", len(h1))
	}
}

func TestDefaultKeyer(t *testing.T) {
	k := NewDefaultKeyer()
	base := FrameKeyOpts{Slide: "gender", Width: 960, Height: 610}

	tests := []struct {
		name string
		opts FrameKeyOpts
	}{
		{"slide", FrameKeyOpts{Slide: "race", Width: 960, Height: 610}},
		{"events", FrameKeyOpts{Slide: "gender", Events: []string{"metric:math"}, Width: 960, Height: 610}},
		{"size", FrameKeyOpts{Slide: "gender", Width: 800, Height: 610}},
		{"animate", FrameKeyOpts{Slide: "gender", Width: 960, Height: 610, Animate: true}},
		{"version", FrameKeyOpts{Slide: "gender", Width: 960, Height: 610, Version: "v2"}},
		{"strict", FrameKeyOpts{Slide: "gender", Width: 960, Height: 610, Strict: true}},
	}
	baseKey := k.FrameKey("data", base)
	if !strings.HasPrefix(baseKey, "frame:") {
		t.Errorf("FrameKey = %q, want frame: prefix", baseKey)
	}
	if k.FrameKey("data", base) != baseKey {
		t.Error("FrameKey should be deterministic")
	}
	if k.FrameKey("other", base) == baseKey {
		t.Error("different dataset hashes should produce different keys")
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if k.FrameKey("data", tt.opts) == baseKey {
				t.Errorf("changing %s should change the frame key", tt.name)
			}
		})
	}

	png := k.ArtifactKey("frame123", ArtifactKeyOpts{Format: "png", Scale: 2})
	pdf := k.ArtifactKey("frame123", ArtifactKeyOpts{Format: "pdf"})
	if !strings.HasPrefix(png, "artifact:png:") {
		t.Errorf("ArtifactKey = %q, want artifact:png: prefix", png)
	}
	if png == pdf {
		t.Error("different formats should produce different keys")
	}
	if k.ArtifactKey("frame123", ArtifactKeyOpts{Format: "png", Scale: 1}) == png {
		t.Error("different scales should produce different keys")
	}
}

func TestFileCache(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	c, err := NewFileCache(dir)
	if err != nil {
		t.Fatalf("NewFileCache: %v", err)
	}
	defer c.Close()

	if c.Dir() != dir {
		t.Errorf("Dir() = %q, want %q", c.Dir(), dir)
	}

	if _, hit, err := c.Get(ctx, "missing"); err != nil || hit {
		t.Fatalf("Get(missing) = hit %v, err %v", hit, err)
	}

	if err := c.Set(ctx, "frame:1", []byte("<svg/>"), time.Hour); err != nil {
		t.Fatalf("Set: %v", err)
	}
	data, hit, err := c.Get(ctx, "frame:1")
	if err != nil || !hit {
		t.Fatalf("Get = hit %v, err %v", hit, err)
	}
	if string(data) != "<svg/>" {
		t.Errorf("Get = %q, want <svg/>", data)
	}

	if err := c.Delete(ctx, "frame:1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, hit, _ := c.Get(ctx, "frame:1"); hit {
		t.Error("entry should be gone after Delete")
	}
	if err := c.Delete(ctx, "frame:1"); err != nil {
		t.Errorf("deleting a missing key should not fail: %v", err)
	}
}

func TestFileCacheExpiry(t *testing.T) {
	ctx := context.Background()
	c, err := NewFileCache(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileCache: %v", err)
	}

	if err := c.Set(ctx, "old", []byte("x"), time.Nanosecond); err != nil {
		t.Fatalf("Set: %v", err)
	}
	time.Sleep(5 * time.Millisecond)
	if _, hit, _ := c.Get(ctx, "old"); hit {
		t.Error("expired entry should be a miss")
	}
	if _, err := os.Stat(c.path("old")); !os.IsNotExist(err) {
		t.Error("expired entry should be removed from disk")
	}

	// zero ttl never expires
	if err := c.Set(ctx, "forever", []byte("y"), 0); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if _, hit, _ := c.Get(ctx, "forever"); !hit {
		t.Error("entry without ttl should be a hit")
	}
}

func TestFileCacheCorruptEntry(t *testing.T) {
	ctx := context.Background()
	c, err := NewFileCache(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileCache: %v", err)
	}
	path := c.path("bad")
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("not json"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, hit, err := c.Get(ctx, "bad"); hit || err != nil {
		t.Errorf("corrupt entry: hit %v, err %v; want miss", hit, err)
	}
}

func TestFileCacheClear(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	c, err := NewFileCache(dir)
	if err != nil {
		t.Fatalf("NewFileCache: %v", err)
	}
	for i := 0; i < 5; i++ {
		if err := c.Set(ctx, fmt.Sprintf("k%d", i), []byte("v"), 0); err != nil {
			t.Fatal(err)
		}
	}
	if err := c.Clear(ctx); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("cache dir should survive Clear: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("Clear left %d entries", len(entries))
	}
	if _, hit, _ := c.Get(ctx, "k0"); hit {
		t.Error("Get after Clear should miss")
	}
}

func TestRetryWithBackoff(t *testing.T) {
	old := retryDelay
	retryDelay = time.Millisecond
	defer func() { retryDelay = old }()

	ctx := context.Background()
	permanent := errors.New("bad request")

	tests := []struct {
		name      string
		failures  int
		err       error
		wantCalls int
		wantErr   bool
	}{
		{"succeeds", 0, nil, 1, false},
		{"retries then succeeds", 2, Retryable(ErrNetwork), 3, false},
		{"gives up", 5, Retryable(ErrNetwork), 3, true},
		{"permanent error", 5, permanent, 1, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := 0
			err := RetryWithBackoff(ctx, func() error {
				calls++
				if calls <= tt.failures {
					return tt.err
				}
				return nil
			})
			if calls != tt.wantCalls {
				t.Errorf("calls = %d, want %d", calls, tt.wantCalls)
			}
			if (err != nil) != tt.wantErr {
				t.Errorf("err = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestRetryableWrapping(t *testing.T) {
	if Retryable(nil) != nil {
		t.Error("Retryable(nil) should be nil")
	}
	err := Retryable(ErrNetwork)
	if !IsRetryable(err) {
		t.Error("IsRetryable should see the wrapper")
	}
	if !errors.Is(err, ErrNetwork) {
		t.Error("wrapper should unwrap to ErrNetwork")
	}
	if IsRetryable(ErrNetwork) {
		t.Error("plain error is not retryable")
	}
}

func TestRetryHonoursContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := RetryWithBackoff(ctx, func() error { return Retryable(ErrNetwork) })
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestRedisOptions(t *testing.T) {
	opts, err := redisOptions(RedisConfig{})
	if err != nil {
		t.Fatal(err)
	}
	if opts.Addr != "localhost:6379" {
		t.Errorf("default addr = %q", opts.Addr)
	}

	opts, err = redisOptions(RedisConfig{Addr: "redis://:secret@cache.local:6380/2"})
	if err != nil {
		t.Fatal(err)
	}
	if opts.Addr != "cache.local:6380" || opts.DB != 2 || opts.Password != "secret" {
		t.Errorf("parsed options = %s db %d", opts.Addr, opts.DB)
	}

	if _, err := redisOptions(RedisConfig{Addr: "redis://host/notanumber"}); err == nil {
		t.Error("invalid database should fail")
	}
}

func TestClassify(t *testing.T) {
	if IsRetryable(classify(errors.New("WRONGTYPE"))) {
		t.Error("server errors are not retryable")
	}
	if classify(nil) != nil {
		t.Error("classify(nil) should be nil")
	}
	netErr := &timeoutError{}
	if !IsRetryable(classify(netErr)) {
		t.Error("network errors should be retryable")
	}
}

type timeoutError struct{}

func (*timeoutError) Error() string   { return "i/o timeout" }
func (*timeoutError) Timeout() bool   { return true }
func (*timeoutError) Temporary() bool { return true }
