package transport

import (
	"context"
	"errors"
	"log/slog"
	"sync"
)

// Emit posts a message from the producer to the consumer.
type Emit func(Message)

// Handler runs on the producer goroutine once per incoming message. It may
// emit any number of messages before returning; returning hands control back
// to the link, which then waits for the next message.
type Handler interface {
	Handle(ctx context.Context, msg Message, emit Emit)
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, msg Message, emit Emit)

func (f HandlerFunc) Handle(ctx context.Context, msg Message, emit Emit) { f(ctx, msg, emit) }

// Endpoint is the consumer's view of a producer.
type Endpoint interface {
	Post(msg Message) bool
	Inbox() *Mailbox
	Terminate()
}

// Link is the producer's execution context: one goroutine fed by a mailbox,
// writing into a second mailbox read by the consumer.
type Link struct {
	log        *slog.Logger
	toProducer *Mailbox
	toConsumer *Mailbox
	cancel     context.CancelFunc
	done       chan struct{}
	once       sync.Once
}

// Spawn starts the producer goroutine. If log is nil, slog.Default() is used.
func Spawn(ctx context.Context, h Handler, log *slog.Logger) *Link {
	if log == nil {
		log = slog.Default()
	}
	ctx, cancel := context.WithCancel(ctx)
	l := &Link{
		log:        log.With("component", "producer-link"),
		toProducer: NewMailbox(),
		toConsumer: NewMailbox(),
		cancel:     cancel,
		done:       make(chan struct{}),
	}
	go l.loop(ctx, h)
	return l
}

func (l *Link) loop(ctx context.Context, h Handler) {
	defer close(l.done)

	emit := func(msg Message) {
		if ctx.Err() != nil {
			return
		}
		l.toConsumer.Post(msg)
	}

	for {
		msg, err := l.toProducer.Receive(ctx)
		if err != nil {
			if !errors.Is(err, context.Canceled) && !errors.Is(err, ErrClosed) {
				l.log.Warn("producer link stopped", "error", err)
			}
			return
		}
		h.Handle(ctx, msg, emit)
	}
}

// Post delivers msg to the producer. It reports false after Terminate.
func (l *Link) Post(msg Message) bool {
	return l.toProducer.Post(msg)
}

// Inbox is the producer → consumer mailbox.
func (l *Link) Inbox() *Mailbox {
	return l.toConsumer
}

// Terminate ends the producer immediately. Queued and in-flight messages in
// both directions are discarded. Safe to call more than once.
func (l *Link) Terminate() {
	l.once.Do(func() {
		l.cancel()
		l.toProducer.Close()
		l.toConsumer.Close()
		l.log.Debug("producer terminated")
	})
}

// Done is closed once the producer goroutine has exited.
func (l *Link) Done() <-chan struct{} {
	return l.done
}
