package buffer

import (
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/san-kum/dynstream/internal/frame"
	"github.com/san-kum/dynstream/internal/transport"
)

// Boundary is the pair of frames around a playback time.
type Boundary struct {
	Tick0, Tick1   int
	Frame0, Frame1 []byte
	// Blend is the interpolation factor from Frame0 towards Frame1.
	Blend float64
}

type Stats struct {
	Occupied int
	Limit    int
	Received int
	Evicted  int
	Granted  int
	Highest  int // -1 when the pool is empty
}

// Manager owns the pool of received buffers for one producer.
type Manager struct {
	log     *slog.Logger
	ep      transport.Endpoint
	cfg     Config
	started bool

	pool      *pool
	nextIndex int
	lastTick  int // newest tick received, -1 before any frame
	credits   int
	result    *transport.Result

	received int
	evicted  int
	granted  int
}

// NewManager creates a manager bound to a producer endpoint. If log is nil,
// slog.Default() is used.
func NewManager(ep transport.Endpoint, log *slog.Logger) *Manager {
	if log == nil {
		log = slog.Default()
	}
	return &Manager{
		log:      log.With("component", "buffer-manager"),
		ep:       ep,
		pool:     newPool(0),
		lastTick: -1,
	}
}

// Start resets the pool and sends the session config, with a fresh
// allowance, to the producer. No buffer of a previous session is reachable
// afterwards.
func (m *Manager) Start(cfg Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	if cfg.AllowedBuffers == 0 {
		cfg.AllowedBuffers = cfg.BufferLimit
	}
	if cfg.Session == uuid.Nil {
		cfg.Session = uuid.New()
	}

	m.cfg = cfg
	m.pool.reset(cfg.BufferLimit)
	m.nextIndex = 0
	m.lastTick = -1
	m.credits = 0
	m.result = nil
	m.received, m.evicted, m.granted = 0, 0, 0
	m.started = true

	if !m.ep.Post(cfg.message()) {
		m.started = false
		return ErrProducerGone
	}
	m.log.Info("session started",
		"session", cfg.Session,
		"model", cfg.Model,
		"quality", cfg.Layout.Quality,
		"buffer_size", cfg.Layout.BufferSize,
		"buffer_limit", cfg.BufferLimit,
	)
	return nil
}

func (m *Manager) Config() Config       { return m.cfg }
func (m *Manager) Layout() frame.Layout { return m.cfg.Layout }
func (m *Manager) Session() uuid.UUID   { return m.cfg.Session }

// AddBuffer stores b in an empty slot. Every error is a protocol violation.
func (m *Manager) AddBuffer(b *frame.Buffer) error {
	if !m.started {
		return ErrNotStarted
	}
	if err := b.Validate(m.cfg.Layout); err != nil {
		return &ProtocolError{Index: b.Index, Err: err}
	}
	if b.Index < m.nextIndex {
		return &ProtocolError{Index: b.Index, Err: fmt.Errorf("%w: expected index >= %d", ErrOutOfOrder, m.nextIndex)}
	}
	if err := m.pool.add(b); err != nil {
		m.log.Error("rejecting buffer", "index", b.Index, "occupied", m.pool.len(), "error", err)
		return &ProtocolError{Index: b.Index, Err: err}
	}
	m.nextIndex = b.Index + 1
	if n := b.Frames(m.cfg.Layout.FrameSize); n > 0 {
		m.lastTick = b.Index*m.cfg.Layout.BufferSize + n - 1
	}
	m.received++
	return nil
}

// GetFrame returns the frame of a global tick, or false when it has not
// arrived (or was already evicted).
func (m *Manager) GetFrame(tick int) ([]byte, bool) {
	if tick < 0 || !m.started {
		return nil, false
	}
	l := m.cfg.Layout
	b, _ := m.pool.find(l.BufferIndex(tick))
	if b == nil {
		return nil, false
	}
	return b.Frame(l.Offset(tick), l.FrameSize)
}

// GetFrameAt returns the frame at or before the playback time.
func (m *Manager) GetFrameAt(time float64) ([]byte, bool) {
	if time < 0 || !m.started {
		return nil, false
	}
	return m.GetFrame(m.cfg.Layout.TickFloor(time))
}

// GetFrames returns the frames for ticks [from, to), stopping at the first
// tick that is not available.
func (m *Manager) GetFrames(from, to int) [][]byte {
	var out [][]byte
	for tick := from; tick < to; tick++ {
		f, ok := m.GetFrame(tick)
		if !ok {
			break
		}
		out = append(out, f)
	}
	return out
}

// GetBoundaryBuffers returns the frames of floor(time/q) and ceil(time/q).
//
// With autoClear, buffers older than the lower boundary buffer are evicted
// and granted back; the buffer serving a boundary is always kept.
//
// With sleepProtection, a miss while the consumer holds nothing newer than
// the requested buffer evicts older buffers anyway. Without it a producer
// out of allowance and a consumer waiting for that producer would stall
// each other.
func (m *Manager) GetBoundaryBuffers(time float64, autoClear, sleepProtection bool) (Boundary, bool) {
	if time < 0 || !m.started {
		return Boundary{}, false
	}
	l := m.cfg.Layout
	t0, t1 := l.TickFloor(time), l.TickCeil(time)
	b0, b1 := l.BufferIndex(t0), l.BufferIndex(t1)

	buf0, _ := m.pool.find(b0)
	buf1, _ := m.pool.find(b1)
	var f0, f1 []byte
	ok := buf0 != nil && buf1 != nil
	if ok {
		var ok0, ok1 bool
		f0, ok0 = buf0.Frame(l.Offset(t0), l.FrameSize)
		f1, ok1 = buf1.Frame(l.Offset(t1), l.FrameSize)
		ok = ok0 && ok1
	}

	if !ok {
		if sleepProtection && m.caughtUp(b0) {
			if n := m.evictBefore(b0); n > 0 {
				m.log.Debug("sleep protection evicted buffers", "before", b0, "count", n)
			}
			m.flushGrant()
		}
		return Boundary{}, false
	}

	if autoClear {
		m.evictBefore(min(b0, b1))
		m.flushGrant()
	}

	return Boundary{
		Tick0:  t0,
		Tick1:  t1,
		Frame0: f0,
		Frame1: f1,
		Blend:  l.Blend(time),
	}, true
}

// caughtUp reports whether index is at or beyond the newest buffer held.
func (m *Manager) caughtUp(index int) bool {
	top := m.pool.highest()
	return top == nil || index >= top.Index
}

// GetLastFrame returns the newest frame held. Calling it before any data
// arrived is a sequencing error, not a transient miss.
func (m *Manager) GetLastFrame() ([]byte, error) {
	top := m.pool.highest()
	if top == nil {
		return nil, ErrNoData
	}
	f, ok := top.Last(m.cfg.Layout.FrameSize)
	if !ok {
		return nil, ErrNoData
	}
	return f, nil
}

// LastTick is the global tick of the newest frame received this session,
// whether or not its buffer has since been evicted.
func (m *Manager) LastTick() (int, bool) {
	if !m.started || m.lastTick < 0 {
		return 0, false
	}
	return m.lastTick, true
}

func (m *Manager) GetBuffer(index int) (*frame.Buffer, bool) {
	b, _ := m.pool.find(index)
	return b, b != nil
}

// ClearBuffer evicts a single buffer and grants one unit for it.
func (m *Manager) ClearBuffer(index int) bool {
	_, slot := m.pool.find(index)
	if slot < 0 {
		return false
	}
	m.pool.remove(slot)
	m.evicted++
	m.credits++
	m.flushGrant()
	return true
}

func (m *Manager) evictBefore(index int) int {
	n := m.pool.evictBefore(index)
	m.evicted += n
	m.credits += n
	return n
}

func (m *Manager) flushGrant() {
	if m.credits == 0 {
		return
	}
	n := m.credits
	m.credits = 0
	if !m.ep.Post(transport.Grant{Session: m.cfg.Session, AllowedBuffers: n}) {
		m.log.Debug("grant dropped, producer gone", "allowed", n)
		return
	}
	m.granted += n
}

// Pump drains every message the producer has delivered so far without
// blocking. Protocol violations and producer faults are returned and end
// the session; messages from other sessions are dropped.
func (m *Manager) Pump() error {
	if !m.started {
		return ErrNotStarted
	}
	for {
		msg, ok := m.ep.Inbox().TryReceive()
		if !ok {
			return nil
		}
		if msg.SessionID() != m.cfg.Session {
			m.log.Debug("dropping stale message", "kind", msg.Kind(), "session", msg.SessionID())
			continue
		}

		switch v := msg.(type) {
		case transport.Data:
			if err := m.AddBuffer(v.Buffer); err != nil {
				return err
			}
		case transport.Result:
			m.result = &v
			m.log.Info("producer finished", "ticks", v.Ticks, "elapsed", v.Elapsed)
		case transport.Fault:
			return &FaultError{Session: v.Session, Err: v.Err}
		case transport.Config, transport.Grant:
			return &ProtocolError{Index: -1, Err: fmt.Errorf("%w: %s", ErrUnexpectedMessage, v.Kind())}
		default:
			return &ProtocolError{Index: -1, Err: fmt.Errorf("%w: %T", ErrUnexpectedMessage, msg)}
		}
	}
}

// Ready is signalled when the producer posts a message.
func (m *Manager) Ready() <-chan struct{} {
	return m.ep.Inbox().Ready()
}

// Result returns the producer's summary once it has finished.
func (m *Manager) Result() (transport.Result, bool) {
	if m.result == nil {
		return transport.Result{}, false
	}
	return *m.result, true
}

func (m *Manager) Finished() bool { return m.result != nil }

// Terminate ends the producer immediately.
func (m *Manager) Terminate() {
	m.ep.Terminate()
	m.log.Debug("producer terminated", "session", m.cfg.Session)
}

func (m *Manager) Stats() Stats {
	s := Stats{
		Occupied: m.pool.len(),
		Limit:    m.pool.limit(),
		Received: m.received,
		Evicted:  m.evicted,
		Granted:  m.granted,
		Highest:  -1,
	}
	if top := m.pool.highest(); top != nil {
		s.Highest = top.Index
	}
	return s
}
