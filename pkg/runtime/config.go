package runtime

import (
	"fmt"
	"time"
)

// Config holds the scheduling parameters of a Runtime.
type Config struct {
	// RenderDebounce is how long updates coalesce before a render.
	// Default: 30ms.
	RenderDebounce time.Duration

	// RenderRetryInterval is the delay before a deferred render is retried
	// while the frontend has not acknowledged the previous patch.
	// Default: 10ms.
	RenderRetryInterval time.Duration

	// MaxRenderRetries bounds how often a render is deferred. Once reached
	// the render happens regardless of pending acknowledgements.
	// Default: 5.
	MaxRenderRetries int

	// HeartbeatInterval is the period of Ping messages. Zero disables them.
	// Default: 30s.
	HeartbeatInterval time.Duration

	// ResultBuffer is the capacity of the channel carrying results of
	// spawned tasks and services.
	// Default: 64.
	ResultBuffer int
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		RenderDebounce:      30 * time.Millisecond,
		RenderRetryInterval: 10 * time.Millisecond,
		MaxRenderRetries:    5,
		HeartbeatInterval:   30 * time.Second,
		ResultBuffer:        64,
	}
}

// Clone returns a copy of the Config.
func (c *Config) Clone() *Config {
	if c == nil {
		return nil
	}
	clone := *c
	return &clone
}

// Validate reports the first invalid field.
func (c *Config) Validate() error {
	switch {
	case c.RenderDebounce <= 0:
		return fmt.Errorf("%w: RenderDebounce must be positive", ErrInvalidConfig)
	case c.RenderRetryInterval <= 0:
		return fmt.Errorf("%w: RenderRetryInterval must be positive", ErrInvalidConfig)
	case c.MaxRenderRetries < 0:
		return fmt.Errorf("%w: MaxRenderRetries must not be negative", ErrInvalidConfig)
	case c.HeartbeatInterval < 0:
		return fmt.Errorf("%w: HeartbeatInterval must not be negative", ErrInvalidConfig)
	case c.ResultBuffer < 0:
		return fmt.Errorf("%w: ResultBuffer must not be negative", ErrInvalidConfig)
	}
	return nil
}
