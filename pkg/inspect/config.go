package inspect

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Config configures the inspector server.
type Config struct {
	// Addr is the listen address used by ListenAndServe.
	// Default: "localhost:7331".
	Addr string

	// ReadBufferSize and WriteBufferSize size the websocket buffers.
	// Default: 1024 each.
	ReadBufferSize  int
	WriteBufferSize int

	// CheckOrigin validates websocket origins. Default: allow all, the
	// inspector is a development tool bound to localhost.
	CheckOrigin func(r *http.Request) bool

	// SendBuffer is how many frames may queue per websocket client.
	// Default: 64.
	SendBuffer int

	// WriteTimeout bounds a single websocket write. Default: 5s.
	WriteTimeout time.Duration

	// ShutdownTimeout bounds graceful shutdown. Default: 5s.
	ShutdownTimeout time.Duration

	// Gatherer, when set, is exposed on /metrics.
	Gatherer prometheus.Gatherer

	// Logger receives server logs. Default: slog.Default().
	Logger *slog.Logger
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Addr:            "localhost:7331",
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		SendBuffer:      64,
		WriteTimeout:    5 * time.Second,
		ShutdownTimeout: 5 * time.Second,
	}
}

// withDefaults fills zero fields.
func (c *Config) withDefaults() *Config {
	out := *DefaultConfig()
	if c == nil {
		return &out
	}
	cfg := *c
	if cfg.Addr == "" {
		cfg.Addr = out.Addr
	}
	if cfg.ReadBufferSize <= 0 {
		cfg.ReadBufferSize = out.ReadBufferSize
	}
	if cfg.WriteBufferSize <= 0 {
		cfg.WriteBufferSize = out.WriteBufferSize
	}
	if cfg.SendBuffer <= 0 {
		cfg.SendBuffer = out.SendBuffer
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = out.WriteTimeout
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = out.ShutdownTimeout
	}
	return &cfg
}
