package frame

import (
	"errors"
	"fmt"
	"math"
)

var ErrInvalidLayout = errors.New("frame: invalid layout")

// Layout fixes the tick duration and buffer geometry for one session.
type Layout struct {
	Quality    float64 // seconds per tick
	BufferSize int     // frames per buffer
	FrameSize  int     // bytes per frame
}

func (l Layout) Validate() error {
	if !(l.Quality > 0) || math.IsInf(l.Quality, 0) {
		return fmt.Errorf("%w: quality must be positive, got %v", ErrInvalidLayout, l.Quality)
	}
	if l.BufferSize <= 0 {
		return fmt.Errorf("%w: buffer size must be positive, got %d", ErrInvalidLayout, l.BufferSize)
	}
	if l.FrameSize <= 0 {
		return fmt.Errorf("%w: frame size must be positive, got %d", ErrInvalidLayout, l.FrameSize)
	}
	return nil
}

// Capacity is the byte length of every buffer payload.
func (l Layout) Capacity() int {
	return l.BufferSize * l.FrameSize
}

func (l Layout) TickFloor(time float64) int {
	return int(math.Floor(time / l.Quality))
}

func (l Layout) TickCeil(time float64) int {
	return int(math.Ceil(time / l.Quality))
}

func (l Layout) TimeOf(tick int) float64 {
	return float64(tick) * l.Quality
}

func (l Layout) BufferIndex(tick int) int {
	return tick / l.BufferSize
}

func (l Layout) Offset(tick int) int {
	return tick - l.BufferIndex(tick)*l.BufferSize
}

// Blend is the interpolation factor in [0, 1) between the floor and ceil
// ticks of time.
func (l Layout) Blend(time float64) float64 {
	return math.Mod(time, l.Quality) / l.Quality
}

// NewBuffer allocates an empty buffer sized for this layout.
func (l Layout) NewBuffer(index int) *Buffer {
	return &Buffer{Index: index, Bytes: make([]byte, l.Capacity())}
}
