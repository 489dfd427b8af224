package models

import (
	"fmt"
	"math"

	"github.com/san-kum/dynstream/internal/dynamo"
)

// Parachute is a vertical descent with quadratic drag. The canopy opens
// below DeployAltitude and switches the drag area.
// State: y, vy. Frames carry both.
type Parachute struct {
	Mass           float64
	Gravity        float64
	AirDensity     float64
	DragArea       float64 // Cd·A in free fall, m²
	CanopyArea     float64 // Cd·A under canopy, m²
	DeployAltitude float64
}

func NewParachute() *Parachute {
	return &Parachute{
		Mass:           80,
		Gravity:        DefaultGravity,
		AirDensity:     DefaultAirDensity,
		DragArea:       0.5,
		CanopyArea:     30,
		DeployAltitude: 800,
	}
}

func (p *Parachute) StateDim() int { return 2 }
func (p *Parachute) Values() int   { return 2 }

func (p *Parachute) Deployed(x dynamo.State) bool {
	return x[0] <= p.DeployAltitude
}

func (p *Parachute) Derive(x dynamo.State, t float64) dynamo.State {
	vy := x[1]
	area := p.DragArea
	if p.Deployed(x) {
		area = p.CanopyArea
	}
	drag := 0.5 * p.AirDensity * area * vy * math.Abs(vy)
	return dynamo.State{vy, -p.Gravity - drag/p.Mass}
}

func (p *Parachute) Project(x dynamo.State, dst []float64) {
	dst[0], dst[1] = x[0], x[1]
}

func (p *Parachute) Done(x dynamo.State, t float64) bool {
	return t > 0 && x[0] <= 0
}

func (p *Parachute) Summary(x dynamo.State, t float64) map[string]float64 {
	return map[string]float64{
		"descent_time":  t,
		"landing_speed": math.Abs(x[1]),
	}
}

// TerminalVelocity is the steady descent speed for a drag area.
func (p *Parachute) TerminalVelocity(area float64) float64 {
	return math.Sqrt(2 * p.Mass * p.Gravity / (p.AirDensity * area))
}

func (p *Parachute) GetParams() map[string]float64 {
	return map[string]float64{
		"mass":            p.Mass,
		"gravity":         p.Gravity,
		"air_density":     p.AirDensity,
		"drag_area":       p.DragArea,
		"canopy_area":     p.CanopyArea,
		"deploy_altitude": p.DeployAltitude,
	}
}

func (p *Parachute) SetParam(name string, value float64) error {
	var field *float64
	switch name {
	case "mass":
		field = &p.Mass
	case "gravity":
		field = &p.Gravity
	case "air_density":
		field = &p.AirDensity
	case "drag_area":
		field = &p.DragArea
	case "canopy_area":
		field = &p.CanopyArea
	case "deploy_altitude":
		if err := nonNegative(name, value); err != nil {
			return err
		}
		p.DeployAltitude = value
		return nil
	default:
		return fmt.Errorf("unknown param: %s", name)
	}
	if err := positive(name, value); err != nil {
		return err
	}
	*field = value
	return nil
}
