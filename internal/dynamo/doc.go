// Package dynamo provides the numeric primitives shared by the physics
// bodies and the producer loop.
//
// The package defines:
//
//   - [State]: vector representing body state
//   - [System]: interface for ODE systems (dX/dt = f(X, t))
//   - [Integrator]: fixed-step numerical integrator interface
//   - [Hamiltonian]: optional energy observable used for drift summaries
//
// # Example
//
//	body := models.NewProjectile()
//	integ := integrators.NewEuler()
//	x = integ.Step(body, x, t, dt)
//
// # Thread Safety
//
// States are plain slices. A State handed to another goroutine must not be
// mutated afterwards; use [State.Clone].
package dynamo
