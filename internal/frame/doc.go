// Package frame defines the binary framing used by the stream transport.
//
// A frame is a fixed-width record holding one simulation snapshot as
// little-endian float64 values. Frames are grouped into numbered buffers of
// BufferSize consecutive frames; a global tick maps to a buffer index and an
// offset within that buffer:
//
//	tick   = floor(time / Quality)
//	index  = floor(tick / BufferSize)
//	offset = tick - index*BufferSize
package frame
