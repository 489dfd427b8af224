// Package transport carries typed messages between a producer goroutine and
// the consumer that renders its output.
//
// The link is ordered and one-way per mailbox. Buffer payloads travel by
// reference; the sender gives up the buffer when it posts it, so only one
// side can mutate a payload at any time.
package transport

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/san-kum/dynstream/internal/frame"
)

// Kind discriminates the closed set of message variants.
type Kind uint8

const (
	KindConfig Kind = iota + 1
	KindData
	KindGrant
	KindResult
	KindFault
)

func (k Kind) String() string {
	switch k {
	case KindConfig:
		return "config"
	case KindData:
		return "data"
	case KindGrant:
		return "grant"
	case KindResult:
		return "result"
	case KindFault:
		return "fault"
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// Message is implemented by Config, Data, Grant, Result and Fault only.
type Message interface {
	Kind() Kind
	SessionID() uuid.UUID
}

// Config starts a producer session (consumer → producer).
type Config struct {
	Session        uuid.UUID
	Model          string
	State          []float64
	Params         map[string]float64
	Layout         frame.Layout
	AllowedBuffers int
	MaxTicks       int // 0 runs until the body reports completion
}

// Data carries one filled buffer (producer → consumer).
type Data struct {
	Session uuid.UUID
	Buffer  *frame.Buffer
}

// Grant adds to the producer's allowance (consumer → producer).
type Grant struct {
	Session        uuid.UUID
	AllowedBuffers int
}

// Result is the one-off summary sent when a producer finishes.
type Result struct {
	Session uuid.UUID
	Ticks   int
	Elapsed float64
	Values  map[string]float64
}

// Fault reports that the producer rejected a message.
type Fault struct {
	Session uuid.UUID
	Err     error
}

func (Config) Kind() Kind { return KindConfig }
func (Data) Kind() Kind   { return KindData }
func (Grant) Kind() Kind  { return KindGrant }
func (Result) Kind() Kind { return KindResult }
func (Fault) Kind() Kind  { return KindFault }

func (m Config) SessionID() uuid.UUID { return m.Session }
func (m Data) SessionID() uuid.UUID   { return m.Session }
func (m Grant) SessionID() uuid.UUID  { return m.Session }
func (m Result) SessionID() uuid.UUID { return m.Session }
func (m Fault) SessionID() uuid.UUID  { return m.Session }
