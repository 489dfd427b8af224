// Package session ties a producer link, a buffer manager and a player
// together and replaces all three wholesale on every restart.
package session

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"

	"github.com/san-kum/dynstream/internal/buffer"
	"github.com/san-kum/dynstream/internal/dynamo"
	"github.com/san-kum/dynstream/internal/playback"
	"github.com/san-kum/dynstream/internal/producer"
	"github.com/san-kum/dynstream/internal/transport"
)

var ErrNotStarted = errors.New("session: not started")

// Session is driven from a single goroutine. Only the producer runs
// concurrently, behind its link.
type Session struct {
	base    *slog.Logger // unscoped, handed to the link, worker and manager
	log     *slog.Logger
	builder producer.Builder
	integ   dynamo.Integrator
	speed   float64

	cfg      buffer.Config
	link     *transport.Link
	mgr      *buffer.Manager
	player   *playback.Player
	restarts int
}

// New creates an idle session. If log is nil, slog.Default() is used.
func New(b producer.Builder, integ dynamo.Integrator, log *slog.Logger) *Session {
	if log == nil {
		log = slog.Default()
	}
	return &Session{
		base:    log,
		log:     log.With("component", "session"),
		builder: b,
		integ:   integ,
		speed:   1,
	}
}

// Start terminates any running producer and begins a new session on a
// fresh link. The producer goroutine lives until Close, the next Start, or
// the end of ctx.
func (s *Session) Start(ctx context.Context, cfg buffer.Config) error {
	s.stop()

	cfg.Session = uuid.New()
	link := transport.Spawn(ctx, producer.NewWorker(s.builder, s.integ, s.base), s.base)
	mgr := buffer.NewManager(link, s.base)
	if err := mgr.Start(cfg); err != nil {
		link.Terminate()
		return err
	}

	s.cfg = cfg
	s.link = link
	s.mgr = mgr
	s.player = playback.New(mgr, s.speed)
	s.log.Debug("session running", "session", cfg.Session, "model", cfg.Model)
	return nil
}

// Restart starts over with the last config under a new session ID.
func (s *Session) Restart(ctx context.Context) error {
	if s.mgr == nil {
		return ErrNotStarted
	}
	s.restarts++
	return s.Start(ctx, s.cfg)
}

// Close terminates the producer and discards the manager.
func (s *Session) Close() {
	s.stop()
}

func (s *Session) stop() {
	if s.link == nil {
		return
	}
	s.mgr.Terminate()
	s.link, s.mgr, s.player = nil, nil, nil
}

func (s *Session) ID() uuid.UUID {
	if s.mgr == nil {
		return uuid.Nil
	}
	return s.mgr.Session()
}

func (s *Session) Config() buffer.Config    { return s.cfg }
func (s *Session) Manager() *buffer.Manager { return s.mgr }
func (s *Session) Player() *playback.Player { return s.player }
func (s *Session) Restarts() int            { return s.restarts }
func (s *Session) Running() bool            { return s.mgr != nil }

func (s *Session) SetSpeed(speed float64) {
	if speed <= 0 {
		return
	}
	s.speed = speed
	if s.player != nil {
		s.player.SetSpeed(speed)
	}
}

func (s *Session) Speed() float64 { return s.speed }

func (s *Session) Result() (transport.Result, bool) {
	if s.mgr == nil {
		return transport.Result{}, false
	}
	return s.mgr.Result()
}

func (s *Session) Stats() buffer.Stats {
	if s.mgr == nil {
		return buffer.Stats{Highest: -1}
	}
	return s.mgr.Stats()
}

// Pump drains producer messages without advancing playback.
func (s *Session) Pump() error {
	if s.mgr == nil {
		return ErrNotStarted
	}
	return s.mgr.Pump()
}

// Tick pumps the manager and advances playback by dt wall seconds. It
// reports false when playback is waiting for the producer.
func (s *Session) Tick(dt float64) (playback.Sample, bool, error) {
	if s.mgr == nil {
		return playback.Sample{}, false, ErrNotStarted
	}
	if err := s.Pump(); err != nil {
		return playback.Sample{}, false, err
	}
	sample, ok := s.player.Advance(dt)
	return sample, ok, nil
}

// Drive runs a headless render loop, advancing playback by step wall
// seconds per iteration and handing every sample to fn. While playback is
// stalled it waits for the producer instead of spinning. It returns nil
// once the final sample of a finished session was delivered.
func (s *Session) Drive(ctx context.Context, step float64, fn func(playback.Sample) error) error {
	if s.mgr == nil {
		return ErrNotStarted
	}
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		sample, ok, err := s.Tick(step)
		if err != nil {
			return err
		}
		if ok {
			if err := fn(sample); err != nil {
				return err
			}
			if sample.Done {
				return nil
			}
			continue
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.mgr.Ready():
		}
	}
}
