package transport

import (
	"context"
	"errors"
	"sync"
)

var ErrClosed = errors.New("transport: mailbox closed")

// Mailbox is an unbounded FIFO of messages. Post never blocks, so the
// consumer side has no suspension points; Receive blocks until a message
// arrives, the context ends, or the mailbox is closed.
type Mailbox struct {
	mu     sync.Mutex
	queue  []Message
	closed bool
	ready  chan struct{} // capacity 1, signalled on every Post
}

func NewMailbox() *Mailbox {
	return &Mailbox{ready: make(chan struct{}, 1)}
}

// Post appends msg. It reports false when the mailbox is closed and the
// message was dropped.
func (m *Mailbox) Post(msg Message) bool {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return false
	}
	m.queue = append(m.queue, msg)
	m.mu.Unlock()

	select {
	case m.ready <- struct{}{}:
	default:
	}
	return true
}

// TryReceive pops the oldest message without blocking.
func (m *Mailbox) TryReceive() (Message, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.queue) == 0 {
		return nil, false
	}
	msg := m.queue[0]
	m.queue[0] = nil
	m.queue = m.queue[1:]
	return msg, true
}

func (m *Mailbox) Receive(ctx context.Context) (Message, error) {
	for {
		if msg, ok := m.TryReceive(); ok {
			return msg, nil
		}
		if m.isClosed() {
			return nil, ErrClosed
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-m.ready:
		}
	}
}

// Ready is signalled after a Post. Readers must drain with TryReceive since
// several posts may share one signal.
func (m *Mailbox) Ready() <-chan struct{} {
	return m.ready
}

func (m *Mailbox) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.queue)
}

// Close drops queued messages and rejects further posts.
func (m *Mailbox) Close() {
	m.mu.Lock()
	m.closed = true
	m.queue = nil
	m.mu.Unlock()

	select {
	case m.ready <- struct{}{}:
	default:
	}
}

func (m *Mailbox) isClosed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}
