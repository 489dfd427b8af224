// Package viz is the live terminal view of a streaming session, built on
// Bubble Tea.
//
// Each render tick pumps the session's buffer manager, advances playback and
// draws the interpolated frame on a braille [Canvas]. A side panel shows the
// buffer pool, grant counters and a history graph of the model's primary
// value.
//
// # Key Bindings
//
//	Space - Pause/Resume playback
//	R     - Restart the session
//	+/-   - Double/halve playback speed
//	T     - Cycle color themes
//	Q     - Quit
package viz
