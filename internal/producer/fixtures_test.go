package producer_test

import (
	"errors"
	"math"

	"github.com/san-kum/dynstream/internal/dynamo"
	"github.com/san-kum/dynstream/internal/producer"
)

// ramp moves at unit speed and finishes once its position reaches stop.
type ramp struct {
	stop float64
}

func (r *ramp) Derive(x dynamo.State, t float64) dynamo.State { return dynamo.State{1} }
func (r *ramp) StateDim() int                                 { return 1 }
func (r *ramp) Values() int                                   { return 1 }
func (r *ramp) Project(x dynamo.State, dst []float64)         { dst[0] = x[0] }
func (r *ramp) Summary(x dynamo.State, t float64) map[string]float64 {
	return map[string]float64{"position": x[0]}
}

func (r *ramp) Done(x dynamo.State, t float64) bool {
	return r.stop > 0 && x[0] >= r.stop
}

// blowup diverges to +Inf after its first step.
type blowup struct{ ramp }

func (b *blowup) Constrain(x dynamo.State, t float64) dynamo.State {
	return dynamo.State{math.Inf(1)}
}

type builder struct {
	stop float64
}

func (b builder) Build(model string, state []float64, params map[string]float64) (producer.Body, dynamo.State, error) {
	switch model {
	case "ramp":
		return &ramp{stop: b.stop}, dynamo.State(state), nil
	case "blowup":
		return &blowup{ramp{}}, dynamo.State{1}, nil
	}
	return nil, nil, errors.New("unknown model")
}
