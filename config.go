package iammetrics

import (
	"fmt"
	"time"
)

// Config controls how a Registry is assembled and how events reach it.
//
// Config instances are intended to be configured during initialization and then treated as immutable.
type Config struct {
	Runtime  RuntimeConfig
	Listener ListenerConfig
	Refresh  RefreshConfig
}

/*
====================================
RUNTIME CONFIG
====================================
*/

// RuntimeConfig selects the process-level collectors registered next to the
// catalog. Collectors that are already present on the registerer are kept.
type RuntimeConfig struct {
	GoCollector      bool
	ProcessCollector bool
}

/*
====================================
LISTENER CONFIG
====================================
*/

// ListenerConfig controls event delivery from an EventListener to the Registry.
//
// With Async unset, events are recorded on the caller's goroutine. With Async
// set, events are queued on a buffer of BufferSize and recorded by a single
// worker; DropIfFull drops (and counts) events instead of blocking the caller.
type ListenerConfig struct {
	Async      bool
	BufferSize int
	DropIfFull bool
}

/*
====================================
REFRESH CONFIG
====================================
*/

// RefreshConfig bounds a session gauge refresh. A zero Timeout leaves
// cancellation entirely to the caller's context.
type RefreshConfig struct {
	Timeout time.Duration
}

/*
====================================
DEFAULT CONFIG
====================================
*/

func defaultConfig() Config {
	return Config{
		Runtime: RuntimeConfig{
			GoCollector:      true,
			ProcessCollector: true,
		},
		Listener: ListenerConfig{
			Async:      false,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Refresh: RefreshConfig{
			Timeout: 0,
		},
	}
}

// DefaultConfig returns the configuration used by Default.
func DefaultConfig() Config {
	return defaultConfig()
}

// Validate reports the first invalid field of c.
func (c *Config) Validate() error {
	if c.Listener.Async && c.Listener.BufferSize <= 0 {
		return fmt.Errorf("%w: Listener.BufferSize must be > 0 when Async is enabled", ErrInvalidConfig)
	}
	if c.Listener.BufferSize < 0 {
		return fmt.Errorf("%w: Listener.BufferSize must be >= 0", ErrInvalidConfig)
	}
	if c.Refresh.Timeout < 0 {
		return fmt.Errorf("%w: Refresh.Timeout must be >= 0", ErrInvalidConfig)
	}
	return nil
}
