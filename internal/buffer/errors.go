package buffer

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

var (
	// ErrCapacityExceeded means a buffer arrived with every slot occupied:
	// grants and evictions are out of sync.
	ErrCapacityExceeded = errors.New("buffer: pool capacity exceeded")

	ErrDuplicateBuffer   = errors.New("buffer: duplicate buffer index")
	ErrOutOfOrder        = errors.New("buffer: buffer index out of order")
	ErrUnexpectedMessage = errors.New("buffer: unexpected message from producer")

	// ErrNoData is returned by GetLastFrame before any buffer arrived.
	ErrNoData = errors.New("buffer: no data received")

	ErrInvalidConfig = errors.New("buffer: invalid session config")
	ErrNotStarted    = errors.New("buffer: session not started")
	ErrProducerGone  = errors.New("buffer: producer terminated")
)

// ProtocolError reports a message that breaks the transport protocol. It is
// fatal to the session.
type ProtocolError struct {
	Index int
	Err   error
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("buffer: protocol violation at buffer %d: %v", e.Index, e.Err)
}

func (e *ProtocolError) Unwrap() error {
	return e.Err
}

// FaultError carries a failure reported by the producer.
type FaultError struct {
	Session uuid.UUID
	Err     error
}

func (e *FaultError) Error() string {
	return fmt.Sprintf("buffer: producer fault in session %s: %v", e.Session, e.Err)
}

func (e *FaultError) Unwrap() error {
	return e.Err
}
