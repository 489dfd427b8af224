package integrators

import "github.com/san-kum/dynstream/internal/dynamo"

// RK4 is the classic fourth-order Runge-Kutta method. It keeps scratch
// space between steps, so one instance serves one producer.
type RK4 struct {
	k1, k2, k3, k4 dynamo.State
	scratch        dynamo.State
}

func NewRK4() *RK4 {
	return &RK4{}
}

func (r *RK4) ensureScratch(n int) {
	if len(r.k1) != n {
		r.k1 = make(dynamo.State, n)
		r.k2 = make(dynamo.State, n)
		r.k3 = make(dynamo.State, n)
		r.k4 = make(dynamo.State, n)
		r.scratch = make(dynamo.State, n)
	}
}

func (r *RK4) Step(dyn dynamo.System, x dynamo.State, t, dt float64) dynamo.State {
	n := len(x)
	r.ensureScratch(n)
	half := dt * 0.5

	copy(r.k1, dyn.Derive(x, t))
	r.stage(x, r.k1, half)
	copy(r.k2, dyn.Derive(r.scratch, t+half))
	r.stage(x, r.k2, half)
	copy(r.k3, dyn.Derive(r.scratch, t+half))
	r.stage(x, r.k3, dt)
	copy(r.k4, dyn.Derive(r.scratch, t+dt))

	result := make(dynamo.State, n)
	dt6 := dt / 6.0
	for i := 0; i < n; i++ {
		result[i] = x[i] + dt6*(r.k1[i]+2*r.k2[i]+2*r.k3[i]+r.k4[i])
	}
	return result
}

// stage fills scratch with x + h*k.
func (r *RK4) stage(x, k dynamo.State, h float64) {
	for i := range x {
		r.scratch[i] = x[i] + h*k[i]
	}
}
