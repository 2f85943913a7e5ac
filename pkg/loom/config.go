package loom

import "time"

// Config is the process-wide scheduling record. It is read once when a
// Runtime is created.
type Config struct {
	// NoDefering is the immediate-mode switch. When true, host insertion,
	// connect notifications and prop-change re-renders run synchronously.
	// When false they are scheduled onto the runtime's scheduler.
	NoDefering bool

	// NoPreloader disables marking unresolved lazy components busy.
	NoPreloader bool

	// DeferTimeout delays connect notifications in deferred mode.
	DeferTimeout time.Duration

	// PreloaderDeferTimeout is how long a lazy component may stay
	// unresolved before it gets aria-busy="true".
	PreloaderDeferTimeout time.Duration

	// PlaceholderDeferTimeout delays attaching a lazy placeholder's host
	// node in deferred mode.
	PlaceholderDeferTimeout time.Duration

	// LazyComponentDeferTimeout delays replacing a resolved lazy
	// placeholder in deferred mode.
	LazyComponentDeferTimeout time.Duration
}

// DefaultConfig returns the deferred-mode defaults.
func DefaultConfig() Config {
	return Config{
		PreloaderDeferTimeout:   300 * time.Millisecond,
		PlaceholderDeferTimeout: 100 * time.Millisecond,
	}
}

// ImmediateConfig returns a configuration with every deferral disabled.
func ImmediateConfig() Config {
	c := DefaultConfig()
	c.NoDefering = true
	return c
}
