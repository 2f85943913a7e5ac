package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/vango-dev/loom/internal/errors"
)

func TestNew(t *testing.T) {
	cfg := New()

	if cfg.PreloaderDeferTimeout != DefaultPreloaderDeferTimeout {
		t.Errorf("PreloaderDeferTimeout = %v, want %v", cfg.PreloaderDeferTimeout, DefaultPreloaderDeferTimeout)
	}
	if cfg.PlaceholderDeferTimeout != DefaultPlaceholderDeferTimeout {
		t.Errorf("PlaceholderDeferTimeout = %v, want %v", cfg.PlaceholderDeferTimeout, DefaultPlaceholderDeferTimeout)
	}
	if cfg.LogLevel != DefaultLogLevel {
		t.Errorf("LogLevel = %q, want %q", cfg.LogLevel, DefaultLogLevel)
	}
	if cfg.NoDefering || cfg.NoPreloader {
		t.Error("immediate mode and preloader suppression should be off by default")
	}
}

func TestLoadMissingFile(t *testing.T) {
	cfg, err := Load(t.TempDir())
	if err != nil {
		t.Fatalf("Load() without loom.yaml: %v", err)
	}
	if cfg.Path() != "" {
		t.Errorf("Path() = %q, want empty", cfg.Path())
	}
	if cfg.Inspect.Addr != DefaultInspectAddr {
		t.Errorf("Inspect.Addr = %q", cfg.Inspect.Addr)
	}
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, FileName)
	content := `noDefering: true
deferTimeout: 25ms
lazyComponentDeferTimeout: 1s
logLevel: debug
inspect:
  addr: ":9000"
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if !cfg.NoDefering {
		t.Error("NoDefering should be true")
	}
	if cfg.DeferTimeout != 25*time.Millisecond {
		t.Errorf("DeferTimeout = %v, want 25ms", cfg.DeferTimeout)
	}
	if cfg.LazyComponentDeferTimeout != time.Second {
		t.Errorf("LazyComponentDeferTimeout = %v, want 1s", cfg.LazyComponentDeferTimeout)
	}
	if cfg.PlaceholderDeferTimeout != DefaultPlaceholderDeferTimeout {
		t.Errorf("unset fields should keep defaults, got %v", cfg.PlaceholderDeferTimeout)
	}
	if cfg.Inspect.Addr != ":9000" {
		t.Errorf("Inspect.Addr = %q, want :9000", cfg.Inspect.Addr)
	}
	if cfg.Path() != path {
		t.Errorf("Path() = %q, want %q", cfg.Path(), path)
	}
	if l, _ := cfg.Level(); l != slog.LevelDebug {
		t.Errorf("Level() = %v, want debug", l)
	}
}

func TestLoadInvalidYAML(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, FileName), []byte("deferTimeout: [1, 2"), 0644); err != nil {
		t.Fatal(err)
	}

	_, err := Load(dir)
	if errors.Code(err) != "L200" {
		t.Errorf("Load() error = %v, want L200", err)
	}
}

func TestEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, FileName), []byte("deferTimeout: 25ms\n"), 0644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("LOOM_DEFER_TIMEOUT", "40ms")
	t.Setenv("LOOM_NO_PRELOADER", "true")
	t.Setenv("LOOM_INSPECT_ADDR", "127.0.0.1:1234")

	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.DeferTimeout != 40*time.Millisecond {
		t.Errorf("DeferTimeout = %v, want 40ms", cfg.DeferTimeout)
	}
	if !cfg.NoPreloader {
		t.Error("NoPreloader should come from the environment")
	}
	if cfg.Inspect.Addr != "127.0.0.1:1234" {
		t.Errorf("Inspect.Addr = %q", cfg.Inspect.Addr)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(*Config)
		wantCode string
	}{
		{"defaults", func(*Config) {}, ""},
		{"negative timeout", func(c *Config) { c.DeferTimeout = -time.Second }, "L202"},
		{"bad level", func(c *Config) { c.LogLevel = "loud" }, "L200"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := New()
			tt.mutate(cfg)
			err := cfg.Validate()
			if got := errors.Code(err); got != tt.wantCode {
				t.Errorf("Validate() = %v, want code %q", err, tt.wantCode)
			}
		})
	}
}

func TestRuntime(t *testing.T) {
	cfg := New()
	cfg.NoDefering = true
	cfg.DeferTimeout = 5 * time.Millisecond

	rc := cfg.Runtime()
	if !rc.NoDefering || rc.DeferTimeout != 5*time.Millisecond {
		t.Errorf("Runtime() = %+v", rc)
	}
	if rc.PlaceholderDeferTimeout != DefaultPlaceholderDeferTimeout {
		t.Errorf("Runtime().PlaceholderDeferTimeout = %v", rc.PlaceholderDeferTimeout)
	}
}
