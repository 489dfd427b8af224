// Package playback turns boundary frames from a buffer manager into a
// smoothly interpolated stream of samples.
package playback

import (
	"github.com/san-kum/dynstream/internal/buffer"
	"github.com/san-kum/dynstream/internal/frame"
)

// Source is the part of the buffer manager a player reads from.
type Source interface {
	Layout() frame.Layout
	GetBoundaryBuffers(time float64, autoClear, sleepProtection bool) (buffer.Boundary, bool)
	GetFrame(tick int) ([]byte, bool)
	LastTick() (int, bool)
	Finished() bool
}

type Sample struct {
	Time   float64
	Values []float64
	// Done is set once playback has reached the last tick of a finished
	// session.
	Done bool
}

// Player advances a playback clock over a Source. Time only moves forward
// when the frames for the new time are available.
type Player struct {
	src    Source
	codec  frame.Codec
	time   float64
	speed  float64
	stalls int
	last   Sample
}

func New(src Source, speed float64) *Player {
	if speed <= 0 {
		speed = 1
	}
	return &Player{
		src:   src,
		codec: frame.NewCodec(src.Layout().FrameSize / 8),
		speed: speed,
	}
}

func (p *Player) Time() float64  { return p.time }
func (p *Player) Speed() float64 { return p.speed }
func (p *Player) Stalls() int    { return p.stalls }

// Last is the most recent sample produced.
func (p *Player) Last() Sample { return p.last }

func (p *Player) SetSpeed(speed float64) {
	if speed > 0 {
		p.speed = speed
	}
}

// Advance moves the clock dt wall seconds forward, scaled by speed. When the
// frames around the new time have not arrived yet, the clock stays where it
// is and false is returned.
func (p *Player) Advance(dt float64) (Sample, bool) {
	if p.last.Done {
		return p.last, true
	}

	l := p.src.Layout()
	candidate := p.time + dt*p.speed
	if p.src.Finished() {
		if last, ok := p.src.LastTick(); ok && l.TickCeil(candidate) >= last {
			return p.finish(last)
		}
	}

	b, ok := p.src.GetBoundaryBuffers(candidate, true, true)
	if !ok {
		p.stalls++
		return Sample{Time: p.time}, false
	}

	p.time = candidate
	p.last = Sample{
		Time:   candidate,
		Values: Lerp(p.codec.Decode(b.Frame0), p.codec.Decode(b.Frame1), b.Blend),
	}
	return p.last, true
}

// finish clamps the clock to the final tick. When that frame was already
// evicted the last values shown are held instead.
func (p *Player) finish(last int) (Sample, bool) {
	p.time = p.src.Layout().TimeOf(last)
	values := p.last.Values
	if f, ok := p.src.GetFrame(last); ok {
		values = p.codec.Decode(f)
	}
	p.last = Sample{Time: p.time, Values: values, Done: true}
	return p.last, true
}

// Lerp interpolates a towards b by alpha, writing into a new slice.
func Lerp(a, b []float64, alpha float64) []float64 {
	n := min(len(a), len(b))
	out := make([]float64, n)
	for i := 0; i < n; i++ {
		out[i] = a[i] + (b[i]-a[i])*alpha
	}
	return out
}
