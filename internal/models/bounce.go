package models

import (
	"fmt"
	"math"

	"github.com/san-kum/dynstream/internal/dynamo"
)

// Bounce is a ball dropped onto the ground, losing speed on every impact.
// State: y, vy. Frames carry both.
type Bounce struct {
	Gravity     float64
	Restitution float64
	MaxBounces  int
	MinSpeed    float64 // rebounds slower than this end the run

	bounces int
	rebound float64
}

func NewBounce() *Bounce {
	return &Bounce{
		Gravity:     DefaultGravity,
		Restitution: 0.8,
		MaxBounces:  20,
		MinSpeed:    0.2,
	}
}

func (b *Bounce) StateDim() int { return 2 }
func (b *Bounce) Values() int   { return 2 }

func (b *Bounce) Derive(x dynamo.State, t float64) dynamo.State {
	return dynamo.State{x[1], -b.Gravity}
}

// Constrain reflects the ball off the ground.
func (b *Bounce) Constrain(x dynamo.State, t float64) dynamo.State {
	if x[0] >= 0 || x[1] >= 0 {
		return x
	}
	b.bounces++
	b.rebound = -x[1] * b.Restitution
	return dynamo.State{0, b.rebound}
}

func (b *Bounce) Bounces() int { return b.bounces }

func (b *Bounce) Done(x dynamo.State, t float64) bool {
	if b.MaxBounces > 0 && b.bounces >= b.MaxBounces {
		return true
	}
	return b.bounces > 0 && b.rebound < b.MinSpeed
}

func (b *Bounce) Project(x dynamo.State, dst []float64) {
	dst[0], dst[1] = x[0], x[1]
}

func (b *Bounce) Summary(x dynamo.State, t float64) map[string]float64 {
	return map[string]float64{
		"bounces":       float64(b.bounces),
		"time":          t,
		"rebound_speed": b.rebound,
	}
}

func (b *Bounce) Energy(x dynamo.State) float64 {
	return 0.5*x[1]*x[1] + b.Gravity*math.Max(x[0], 0)
}

func (b *Bounce) GetParams() map[string]float64 {
	return map[string]float64{
		"gravity":     b.Gravity,
		"restitution": b.Restitution,
		"max_bounces": float64(b.MaxBounces),
		"min_speed":   b.MinSpeed,
	}
}

func (b *Bounce) SetParam(name string, value float64) error {
	switch name {
	case "gravity":
		if err := positive(name, value); err != nil {
			return err
		}
		b.Gravity = value
	case "restitution":
		if value < 0 || value >= 1 {
			return fmt.Errorf("%w: restitution must be in [0, 1), got %g", dynamo.ErrParameterBounds, value)
		}
		b.Restitution = value
	case "max_bounces":
		if err := nonNegative(name, value); err != nil {
			return err
		}
		b.MaxBounces = int(value)
	case "min_speed":
		if err := nonNegative(name, value); err != nil {
			return err
		}
		b.MinSpeed = value
	default:
		return fmt.Errorf("unknown param: %s", name)
	}
	return nil
}
