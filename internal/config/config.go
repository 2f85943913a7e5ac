package config

import (
	stderrors "errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/joeshaw/envdecode"
	"gopkg.in/yaml.v3"

	"github.com/vango-dev/loom/internal/errors"
	"github.com/vango-dev/loom/pkg/loom"
)

const (
	// FileName is the name of the configuration file.
	FileName = "loom.yaml"

	// DefaultPreloaderDeferTimeout is how long a lazy component may stay
	// unresolved before it is marked busy.
	DefaultPreloaderDeferTimeout = 300 * time.Millisecond

	// DefaultPlaceholderDeferTimeout delays attaching lazy placeholders.
	DefaultPlaceholderDeferTimeout = 100 * time.Millisecond

	// DefaultInspectAddr is the default devtools inspector address.
	DefaultInspectAddr = "localhost:7331"

	// DefaultLogLevel is the default slog level.
	DefaultLogLevel = "info"
)

// Config represents loom.yaml plus its LOOM_* environment overrides.
type Config struct {
	// NoDefering switches the runtime to immediate mode: insertions,
	// connect notifications and prop re-renders run synchronously.
	NoDefering bool `yaml:"noDefering" env:"LOOM_NO_DEFERING"`

	// NoPreloader disables the busy marker on unresolved lazy components.
	NoPreloader bool `yaml:"noPreloader" env:"LOOM_NO_PRELOADER"`

	// DeferTimeout delays deferred connect notifications.
	DeferTimeout time.Duration `yaml:"deferTimeout" env:"LOOM_DEFER_TIMEOUT"`

	// PreloaderDeferTimeout delays the lazy busy marker.
	PreloaderDeferTimeout time.Duration `yaml:"preloaderDeferTimeout" env:"LOOM_PRELOADER_DEFER_TIMEOUT"`

	// PlaceholderDeferTimeout delays attaching lazy placeholders.
	PlaceholderDeferTimeout time.Duration `yaml:"placeholderDeferTimeout" env:"LOOM_PLACEHOLDER_DEFER_TIMEOUT"`

	// LazyComponentDeferTimeout delays replacing a resolved lazy placeholder.
	LazyComponentDeferTimeout time.Duration `yaml:"lazyComponentDeferTimeout" env:"LOOM_LAZY_COMPONENT_DEFER_TIMEOUT"`

	// LogLevel is one of debug, info, warn or error.
	LogLevel string `yaml:"logLevel" env:"LOOM_LOG_LEVEL"`

	// Inspect contains devtools inspector settings.
	Inspect InspectConfig `yaml:"inspect"`

	// path stores where the config was loaded from.
	path string
}

// InspectConfig contains devtools inspector settings.
type InspectConfig struct {
	// Addr is the listen address of the inspector HTTP server.
	Addr string `yaml:"addr" env:"LOOM_INSPECT_ADDR"`
}

// New creates a new Config with default values.
func New() *Config {
	c := &Config{}
	c.applyDefaults()
	return c
}

// Load reads loom.yaml from dir when present and then applies environment
// overrides. A missing file is not an error.
func Load(dir string) (*Config, error) {
	path := filepath.Join(dir, FileName)
	cfg, err := LoadFile(path)
	if err != nil {
		if !stderrors.Is(err, os.ErrNotExist) {
			return nil, err
		}
		cfg = New()
	}
	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFile reads a configuration file without consulting the environment.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, err
		}
		return nil, errors.New("L200").Wrap(err)
	}

	cfg := New()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, errors.New("L200").
			WithDetail(path).
			WithSuggestion("Check the YAML syntax; durations use Go notation such as 150ms").
			Wrap(err)
	}
	cfg.path = path
	cfg.applyDefaults()
	return cfg, nil
}

// ApplyEnv overrides fields from LOOM_* environment variables. Unset
// variables leave the current values alone.
func (c *Config) ApplyEnv() error {
	err := envdecode.Decode(c)
	if err != nil && !stderrors.Is(err, envdecode.ErrNoTargetFieldsAreSet) {
		return errors.New("L201").Wrap(err)
	}
	return nil
}

// Path returns the path the config was loaded from, or "".
func (c *Config) Path() string {
	return c.path
}

func (c *Config) applyDefaults() {
	if c.PreloaderDeferTimeout == 0 {
		c.PreloaderDeferTimeout = DefaultPreloaderDeferTimeout
	}
	if c.PlaceholderDeferTimeout == 0 {
		c.PlaceholderDeferTimeout = DefaultPlaceholderDeferTimeout
	}
	if c.LogLevel == "" {
		c.LogLevel = DefaultLogLevel
	}
	if c.Inspect.Addr == "" {
		c.Inspect.Addr = DefaultInspectAddr
	}
}

// Validate checks the configuration for invalid values.
func (c *Config) Validate() error {
	timeouts := []struct {
		name string
		d    time.Duration
	}{
		{"deferTimeout", c.DeferTimeout},
		{"preloaderDeferTimeout", c.PreloaderDeferTimeout},
		{"placeholderDeferTimeout", c.PlaceholderDeferTimeout},
		{"lazyComponentDeferTimeout", c.LazyComponentDeferTimeout},
	}
	for _, t := range timeouts {
		if t.d < 0 {
			return errors.New("L202").WithDetail(fmt.Sprintf("%s=%s", t.name, t.d))
		}
	}
	if _, err := c.Level(); err != nil {
		return errors.New("L200").
			WithDetail("logLevel=" + c.LogLevel).
			WithSuggestion("Use one of debug, info, warn, error")
	}
	return nil
}

// Level parses LogLevel.
func (c *Config) Level() (slog.Level, error) {
	var l slog.Level
	err := l.UnmarshalText([]byte(c.LogLevel))
	return l, err
}

// Runtime converts the file configuration into the runtime record.
func (c *Config) Runtime() loom.Config {
	return loom.Config{
		NoDefering:                c.NoDefering,
		NoPreloader:               c.NoPreloader,
		DeferTimeout:              c.DeferTimeout,
		PreloaderDeferTimeout:     c.PreloaderDeferTimeout,
		PlaceholderDeferTimeout:   c.PlaceholderDeferTimeout,
		LazyComponentDeferTimeout: c.LazyComponentDeferTimeout,
	}
}
