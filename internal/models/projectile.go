package models

import (
	"fmt"
	"math"

	"github.com/san-kum/dynstream/internal/dynamo"
)

// Projectile is a point mass launched from the ground with linear air drag.
// State: x, y, vx, vy. Frames carry the position.
type Projectile struct {
	Mass    float64
	Gravity float64
	Drag    float64 // linear drag coefficient, N·s/m
}

func NewProjectile() *Projectile {
	return &Projectile{
		Mass:    DefaultMass,
		Gravity: DefaultGravity,
	}
}

func (p *Projectile) StateDim() int { return 4 }
func (p *Projectile) Values() int   { return 2 }

func (p *Projectile) Derive(x dynamo.State, t float64) dynamo.State {
	vx, vy := x[2], x[3]
	k := p.Drag / p.Mass
	return dynamo.State{vx, vy, -k * vx, -p.Gravity - k*vy}
}

func (p *Projectile) Project(x dynamo.State, dst []float64) {
	dst[0], dst[1] = x[0], x[1]
}

// Done once the body is back at ground level after launch.
func (p *Projectile) Done(x dynamo.State, t float64) bool {
	return t > 0 && x[1] <= 0
}

func (p *Projectile) Summary(x dynamo.State, t float64) map[string]float64 {
	return map[string]float64{
		"flight_time":  t,
		"distance":     x[0],
		"impact_speed": math.Hypot(x[2], x[3]),
	}
}

func (p *Projectile) Energy(x dynamo.State) float64 {
	v2 := x[2]*x[2] + x[3]*x[3]
	return 0.5*p.Mass*v2 + p.Mass*p.Gravity*x[1]
}

func (p *Projectile) GetParams() map[string]float64 {
	return map[string]float64{
		"mass":    p.Mass,
		"gravity": p.Gravity,
		"drag":    p.Drag,
	}
}

func (p *Projectile) SetParam(name string, value float64) error {
	switch name {
	case "mass":
		if err := positive(name, value); err != nil {
			return err
		}
		p.Mass = value
	case "gravity":
		if err := positive(name, value); err != nil {
			return err
		}
		p.Gravity = value
	case "drag":
		if err := nonNegative(name, value); err != nil {
			return err
		}
		p.Drag = value
	default:
		return fmt.Errorf("unknown param: %s", name)
	}
	return nil
}

// LaunchState builds the initial state for a launch at speed and angle
// (degrees above the horizon) from height.
func LaunchState(speed, angleDeg, height float64) dynamo.State {
	rad := angleDeg * math.Pi / 180
	return dynamo.State{0, height, speed * math.Cos(rad), speed * math.Sin(rad)}
}
