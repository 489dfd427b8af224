package buffer

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/san-kum/dynstream/internal/frame"
	"github.com/san-kum/dynstream/internal/transport"
)

// MinBufferLimit is the smallest usable pool. A boundary pair can straddle
// two buffers, and a single slot could never hold both.
const MinBufferLimit = 2

// Config describes one session from the consumer's side.
type Config struct {
	Session     uuid.UUID // zero value gets a fresh ID on Start
	Model       string
	State       []float64
	Params      map[string]float64
	Layout      frame.Layout
	BufferLimit int
	// AllowedBuffers is the producer's initial allowance; zero means
	// BufferLimit. Otherwise it must cover a boundary pair, so at least
	// MinBufferLimit.
	AllowedBuffers int
	MaxTicks       int
}

func (c Config) Validate() error {
	if err := c.Layout.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if c.BufferLimit < MinBufferLimit {
		return fmt.Errorf("%w: buffer limit must be at least %d, got %d", ErrInvalidConfig, MinBufferLimit, c.BufferLimit)
	}
	if c.AllowedBuffers < 0 || c.AllowedBuffers > c.BufferLimit {
		return fmt.Errorf("%w: allowance %d outside [0, %d]", ErrInvalidConfig, c.AllowedBuffers, c.BufferLimit)
	}
	if c.AllowedBuffers != 0 && c.AllowedBuffers < MinBufferLimit {
		return fmt.Errorf("%w: allowance must be 0 or at least %d, got %d", ErrInvalidConfig, MinBufferLimit, c.AllowedBuffers)
	}
	if c.MaxTicks < 0 {
		return fmt.Errorf("%w: negative tick limit %d", ErrInvalidConfig, c.MaxTicks)
	}
	return nil
}

func (c Config) message() transport.Config {
	return transport.Config{
		Session:        c.Session,
		Model:          c.Model,
		State:          append([]float64(nil), c.State...),
		Params:         c.Params,
		Layout:         c.Layout,
		AllowedBuffers: c.AllowedBuffers,
		MaxTicks:       c.MaxTicks,
	}
}
