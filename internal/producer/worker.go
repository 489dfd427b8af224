package producer

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/san-kum/dynstream/internal/dynamo"
	"github.com/san-kum/dynstream/internal/transport"
)

// Worker is the link handler running on the producer goroutine. It starts
// Idle, builds a fresh Producer for every config and routes grants to it.
type Worker struct {
	base    *slog.Logger
	log     *slog.Logger
	builder Builder
	integ   dynamo.Integrator
	cur     *Producer
}

func NewWorker(b Builder, integ dynamo.Integrator, log *slog.Logger) *Worker {
	if log == nil {
		log = slog.Default()
	}
	return &Worker{
		base:    log,
		log:     log.With("component", "producer-worker"),
		builder: b,
		integ:   integ,
	}
}

// Phase reports Idle until a config has been accepted.
func (w *Worker) Phase() Phase {
	if w.cur == nil {
		return Idle
	}
	return w.cur.Phase()
}

func (w *Worker) Current() *Producer { return w.cur }

func (w *Worker) Handle(ctx context.Context, msg transport.Message, emit transport.Emit) {
	switch m := msg.(type) {
	case transport.Config:
		w.cur = nil
		p, err := New(m, w.builder, w.integ, w.base)
		if err != nil {
			w.log.Warn("rejecting session config", "session", m.Session, "error", err)
			emit(transport.Fault{Session: m.Session, Err: err})
			return
		}
		w.cur = p
		p.Run(ctx, emit)
	case transport.Grant:
		if w.cur == nil || w.cur.Session() != m.Session {
			w.log.Debug("dropping grant for inactive session", "session", m.Session)
			return
		}
		w.cur.Grant(m.AllowedBuffers)
		w.cur.Run(ctx, emit)
	case transport.Data, transport.Result, transport.Fault:
		emit(transport.Fault{
			Session: m.SessionID(),
			Err:     fmt.Errorf("%w: %s sent to producer", ErrUnexpectedMessage, m.Kind()),
		})
	default:
		emit(transport.Fault{
			Session: msg.SessionID(),
			Err:     fmt.Errorf("%w: %T", ErrUnexpectedMessage, msg),
		})
	}
}
