package models

import (
	"fmt"
	"sort"

	"github.com/san-kum/dynstream/internal/dynamo"
	"github.com/san-kum/dynstream/internal/frame"
	"github.com/san-kum/dynstream/internal/producer"
)

// Resetter bodies derive bookkeeping from the initial state.
type Resetter interface {
	Reset(x0 dynamo.State)
}

// Registry builds bodies by name. It implements producer.Builder.
type Registry struct {
	models map[string]func(state []float64) producer.Body
}

func NewRegistry() *Registry {
	r := &Registry{
		models: make(map[string]func(state []float64) producer.Body),
	}

	r.models["projectile"] = func([]float64) producer.Body { return NewProjectile() }
	r.models["parachute"] = func([]float64) producer.Body { return NewParachute() }
	r.models["bounce"] = func([]float64) producer.Body { return NewBounce() }
	r.models["solar"] = func(state []float64) producer.Body { return NewSolar(len(state) / 4) }

	return r
}

func (r *Registry) Build(model string, state []float64, params map[string]float64) (producer.Body, dynamo.State, error) {
	fn, ok := r.models[model]
	if !ok {
		return nil, nil, fmt.Errorf("unknown model: %s", model)
	}
	body := fn(state)

	if len(params) > 0 {
		c, ok := body.(Configurable)
		if !ok {
			return nil, nil, fmt.Errorf("model %s takes no parameters", model)
		}
		for _, name := range sortedKeys(params) {
			if err := c.SetParam(name, params[name]); err != nil {
				return nil, nil, fmt.Errorf("%s: %w", model, err)
			}
		}
	}

	x0 := dynamo.State(state).Clone()
	if err := dynamo.CheckDim(body, x0); err != nil {
		return nil, nil, fmt.Errorf("%s: %w", model, err)
	}
	if rs, ok := body.(Resetter); ok {
		rs.Reset(x0)
	}
	return body, x0, nil
}

// FrameSize is the frame width in bytes the model writes for state.
func (r *Registry) FrameSize(model string, state []float64) (int, error) {
	fn, ok := r.models[model]
	if !ok {
		return 0, fmt.Errorf("unknown model: %s", model)
	}
	return frame.NewCodec(fn(state).Values()).FrameSize(), nil
}

// Params returns the default parameters of a model, or nil when it has
// none.
func (r *Registry) Params(model string) (map[string]float64, error) {
	fn, ok := r.models[model]
	if !ok {
		return nil, fmt.Errorf("unknown model: %s", model)
	}
	if c, ok := fn(nil).(Configurable); ok {
		return c.GetParams(), nil
	}
	return nil, nil
}

func (r *Registry) List() []string {
	names := make([]string, 0, len(r.models))
	for name := range r.models {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func sortedKeys(m map[string]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
