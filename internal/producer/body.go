package producer

import "github.com/san-kum/dynstream/internal/dynamo"

// Body is the physics side of a session: an ODE system that also knows how
// to serialize itself into frame values and when it is finished.
type Body interface {
	dynamo.System
	// Values is the number of float64 values written per frame.
	Values() int
	// Project writes the frame values for state x into dst.
	Project(x dynamo.State, dst []float64)
	// Done reports the model-specific termination condition.
	Done(x dynamo.State, t float64) bool
	// Summary is the scalar outcome sent once the session finishes.
	Summary(x dynamo.State, t float64) map[string]float64
}

// Constrainer is implemented by bodies that correct the state after each
// integration step, e.g. collisions with the ground.
type Constrainer interface {
	Constrain(x dynamo.State, t float64) dynamo.State
}

// Builder constructs a body and its initial state from a session config.
type Builder interface {
	Build(model string, state []float64, params map[string]float64) (Body, dynamo.State, error)
}
