// Package producer implements the background side of the stream: it steps a
// physics body at a fixed tick, packs each tick into a frame and emits full
// buffers while it holds allowance.
package producer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/san-kum/dynstream/internal/dynamo"
	"github.com/san-kum/dynstream/internal/frame"
	"github.com/san-kum/dynstream/internal/transport"
)

var (
	ErrInvalidConfig     = errors.New("producer: invalid config")
	ErrUnexpectedMessage = errors.New("producer: unexpected message")
)

type Phase int

const (
	Idle Phase = iota
	Running
	Finished
)

func (p Phase) String() string {
	switch p {
	case Idle:
		return "idle"
	case Running:
		return "running"
	case Finished:
		return "finished"
	}
	return fmt.Sprintf("phase(%d)", int(p))
}

// Producer holds all state of one session. A new config always builds a new
// Producer; nothing survives a restart.
type Producer struct {
	log      *slog.Logger
	session  uuid.UUID
	body     Body
	integ    dynamo.Integrator
	layout   frame.Layout
	codec    frame.Codec
	x        dynamo.State
	vals     []float64
	tick     int // tick of the next frame to write
	maxTicks int

	allowance int
	next      int // index of cur
	cur       *frame.Buffer
	phase     Phase
}

// New validates cfg and returns a Running producer. Invalid layouts and
// allowances are rejected here, before any tick is computed.
func New(cfg transport.Config, b Builder, integ dynamo.Integrator, log *slog.Logger) (*Producer, error) {
	if log == nil {
		log = slog.Default()
	}
	if err := cfg.Layout.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if cfg.AllowedBuffers < 0 {
		return nil, fmt.Errorf("%w: negative allowance %d", ErrInvalidConfig, cfg.AllowedBuffers)
	}
	if cfg.MaxTicks < 0 {
		return nil, fmt.Errorf("%w: negative tick limit %d", ErrInvalidConfig, cfg.MaxTicks)
	}

	body, x0, err := b.Build(cfg.Model, cfg.State, cfg.Params)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if err := dynamo.CheckDim(body, x0); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	codec := frame.NewCodec(body.Values())
	if codec.FrameSize() != cfg.Layout.FrameSize {
		return nil, fmt.Errorf("%w: model %s writes %d-byte frames, layout expects %d",
			ErrInvalidConfig, cfg.Model, codec.FrameSize(), cfg.Layout.FrameSize)
	}

	return &Producer{
		log:       log.With("component", "producer", "session", cfg.Session, "model", cfg.Model),
		session:   cfg.Session,
		body:      body,
		integ:     integ,
		layout:    cfg.Layout,
		codec:     codec,
		x:         x0.Clone(),
		vals:      make([]float64, body.Values()),
		maxTicks:  cfg.MaxTicks,
		allowance: cfg.AllowedBuffers,
		cur:       cfg.Layout.NewBuffer(0),
		phase:     Running,
	}, nil
}

func (p *Producer) Phase() Phase         { return p.phase }
func (p *Producer) Allowance() int       { return p.allowance }
func (p *Producer) Session() uuid.UUID   { return p.session }
func (p *Producer) State() dynamo.State  { return p.x.Clone() }
func (p *Producer) Tick() int            { return p.tick }
func (p *Producer) BuffersEmitted() int  { return p.next }
func (p *Producer) Layout() frame.Layout { return p.layout }
func (p *Producer) time() float64        { return p.layout.TimeOf(p.tick) }

// Grant adds n buffers of allowance. Finished producers ignore grants.
func (p *Producer) Grant(n int) {
	if p.phase != Running || n <= 0 {
		return
	}
	p.allowance += n
}

// Run ticks until the allowance is exhausted, the body finishes, or ctx
// ends. It never blocks: running out of allowance returns control to the
// caller, which resumes the producer on the next grant.
func (p *Producer) Run(ctx context.Context, emit transport.Emit) {
	for p.phase == Running {
		if ctx.Err() != nil {
			return
		}
		if p.done() {
			// the final flush needs one buffer of allowance
			if p.allowance == 0 {
				return
			}
			p.finish(emit)
			return
		}
		if p.allowance == 0 {
			p.log.Debug("allowance exhausted, suspending", "tick", p.tick, "next_buffer", p.next)
			return
		}
		if err := p.step(emit); err != nil {
			p.log.Warn("simulation diverged", "tick", p.tick, "error", err)
			emit(transport.Fault{Session: p.session, Err: err})
			p.phase = Finished
			return
		}
	}
}

func (p *Producer) done() bool {
	if p.maxTicks > 0 && p.tick >= p.maxTicks {
		return true
	}
	return p.body.Done(p.x, p.time())
}

func (p *Producer) step(emit transport.Emit) error {
	p.write()

	t := p.time()
	x := p.integ.Step(p.body, p.x, t, p.layout.Quality)
	if c, ok := p.body.(Constrainer); ok {
		x = c.Constrain(x, t+p.layout.Quality)
	}
	if !x.IsValid() {
		return &dynamo.StepError{Step: p.tick, Time: t, State: p.x.Clone(), Wrapped: dynamo.ErrInvalidState}
	}
	p.x = x
	p.tick++

	if p.cur.Full() {
		p.emitBuffer(emit)
	}
	return nil
}

func (p *Producer) write() {
	p.body.Project(p.x, p.vals)
	p.codec.Encode(p.cur.Slot(p.layout.FrameSize), p.vals)
}

func (p *Producer) emitBuffer(emit transport.Emit) {
	emit(transport.Data{Session: p.session, Buffer: p.cur})
	p.next++
	p.allowance--
	p.cur = p.layout.NewBuffer(p.next)
}

// finish writes the terminal state, flushes the partial buffer and sends
// the summary.
func (p *Producer) finish(emit transport.Emit) {
	p.write()
	p.emitBuffer(emit)

	t := p.time()
	emit(transport.Result{
		Session: p.session,
		Ticks:   p.tick,
		Elapsed: t,
		Values:  p.body.Summary(p.x, t),
	})
	p.phase = Finished
	p.log.Info("session finished", "ticks", p.tick, "buffers", p.next, "elapsed", t)
}
