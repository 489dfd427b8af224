// Package buffer implements the consumer side of the stream: a bounded pool
// of numbered buffers answering frame queries by tick or playback time, and
// the flow control that keeps the producer within the pool's capacity.
//
// Every buffer the producer may emit is backed by an allowance unit. The
// Manager hands out one unit per evicted buffer, so the number of buffers
// computed but not yet consumed never exceeds the pool size.
//
// A Manager is driven from a single goroutine and is not safe for
// concurrent use. Queries never block: missing data is reported with a false
// result and the caller retries on its next frame.
package buffer
