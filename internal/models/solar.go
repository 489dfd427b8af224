package models

import (
	"fmt"
	"math"

	"github.com/san-kum/dynstream/internal/dynamo"
)

// GMSun is the solar gravitational parameter in AU³/yr².
const GMSun = 4 * math.Pi * math.Pi

// DefaultOrbits are the semi-major axes of the inner planets, in AU.
var DefaultOrbits = []float64{0.387, 0.723, 1.0, 1.524}

// Solar is a set of planets orbiting a fixed sun at the origin. Planets do
// not attract each other.
// State: x, y, vx, vy per planet. Frames carry every planet's position.
type Solar struct {
	GM      float64
	Planets int

	initialEnergy float64
}

func NewSolar(planets int) *Solar {
	return &Solar{GM: GMSun, Planets: planets}
}

func (s *Solar) StateDim() int { return 4 * s.Planets }
func (s *Solar) Values() int   { return 2 * s.Planets }

func (s *Solar) Derive(x dynamo.State, t float64) dynamo.State {
	dx := make(dynamo.State, len(x))
	for i := 0; i < s.Planets; i++ {
		o := 4 * i
		px, py := x[o], x[o+1]
		r2 := px*px + py*py
		r3 := r2 * math.Sqrt(r2)
		dx[o] = x[o+2]
		dx[o+1] = x[o+3]
		dx[o+2] = -s.GM * px / r3
		dx[o+3] = -s.GM * py / r3
	}
	return dx
}

func (s *Solar) Project(x dynamo.State, dst []float64) {
	for i := 0; i < s.Planets; i++ {
		dst[2*i] = x[4*i]
		dst[2*i+1] = x[4*i+1]
	}
}

// Done is always false: orbits run until the tick limit.
func (s *Solar) Done(x dynamo.State, t float64) bool { return false }

// Energy is the specific orbital energy summed over planets.
func (s *Solar) Energy(x dynamo.State) float64 {
	e := 0.0
	for i := 0; i < s.Planets; i++ {
		o := 4 * i
		r := math.Hypot(x[o], x[o+1])
		v2 := x[o+2]*x[o+2] + x[o+3]*x[o+3]
		e += 0.5*v2 - s.GM/r
	}
	return e
}

// Reset records the energy of the initial state for drift reporting.
func (s *Solar) Reset(x0 dynamo.State) {
	s.initialEnergy = s.Energy(x0)
}

func (s *Solar) Summary(x dynamo.State, t float64) map[string]float64 {
	out := map[string]float64{
		"elapsed": t,
		"energy":  s.Energy(x),
	}
	if s.initialEnergy != 0 {
		out["energy_drift"] = math.Abs(s.Energy(x)-s.initialEnergy) / math.Abs(s.initialEnergy)
	}
	return out
}

func (s *Solar) GetParams() map[string]float64 {
	return map[string]float64{"gm": s.GM}
}

func (s *Solar) SetParam(name string, value float64) error {
	switch name {
	case "gm":
		if err := positive(name, value); err != nil {
			return err
		}
		s.GM = value
	default:
		return fmt.Errorf("unknown param: %s", name)
	}
	return nil
}

// CircularOrbits places one planet per radius on a circular orbit, spread
// evenly in phase.
func CircularOrbits(gm float64, radii []float64) dynamo.State {
	x := make(dynamo.State, 0, 4*len(radii))
	for i, r := range radii {
		phase := 2 * math.Pi * float64(i) / float64(len(radii))
		v := math.Sqrt(gm / r)
		sin, cos := math.Sincos(phase)
		x = append(x, r*cos, r*sin, -v*sin, v*cos)
	}
	return x
}
