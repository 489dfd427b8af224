package frame

import (
	"errors"
	"fmt"
)

var ErrMalformedBuffer = errors.New("frame: malformed buffer")

// Buffer is a numbered run of consecutive frames. Used counts populated
// bytes and is always a multiple of the frame size.
//
// A Buffer has exactly one owner. The producer drops its reference once the
// buffer is emitted.
type Buffer struct {
	Index int
	Used  int
	Bytes []byte
}

func (b *Buffer) Frames(frameSize int) int {
	return b.Used / frameSize
}

func (b *Buffer) Full() bool {
	return b.Used >= len(b.Bytes)
}

// Slot returns the next unpopulated frame of the buffer and marks it used.
func (b *Buffer) Slot(frameSize int) []byte {
	s := b.Bytes[b.Used : b.Used+frameSize]
	b.Used += frameSize
	return s
}

// Frame returns the frame at offset, or false when the offset lies beyond
// the populated bytes.
func (b *Buffer) Frame(offset, frameSize int) ([]byte, bool) {
	if offset < 0 {
		return nil, false
	}
	start := offset * frameSize
	end := start + frameSize
	if end > b.Used {
		return nil, false
	}
	return b.Bytes[start:end], true
}

// Last returns the final populated frame.
func (b *Buffer) Last(frameSize int) ([]byte, bool) {
	if b.Used < frameSize {
		return nil, false
	}
	return b.Bytes[b.Used-frameSize : b.Used], true
}

func (b *Buffer) Validate(l Layout) error {
	switch {
	case b.Index < 0:
		return fmt.Errorf("%w: negative index %d", ErrMalformedBuffer, b.Index)
	case len(b.Bytes) != l.Capacity():
		return fmt.Errorf("%w: payload is %d bytes, want %d", ErrMalformedBuffer, len(b.Bytes), l.Capacity())
	case b.Used < 0 || b.Used > len(b.Bytes):
		return fmt.Errorf("%w: used %d outside payload", ErrMalformedBuffer, b.Used)
	case b.Used%l.FrameSize != 0:
		return fmt.Errorf("%w: used %d not a multiple of frame size %d", ErrMalformedBuffer, b.Used, l.FrameSize)
	}
	return nil
}
