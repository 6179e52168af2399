// Package zode provides the primitives for integrating complex-valued
// ordinary differential equations dz/dt = f(z,t), z ∈ ℂⁿ.
//
//   - [State]: complex solution vector
//   - [System]: one ODE (dimension, initial values, right-hand side)
//   - [Implicit]: capability for implicit-form systems M(z,t)·dz/dt = g(z,t)
//     with mass and Jacobian products
//   - [Monitor], [FaultHandler], [StepLimiter]: optional hooks a system may
//     implement to steer the solver
//   - [Solver]: the stepping loop from t=0 to t=TEnd
//
// Integrators live in the integrators package; a system that implements
// [Implicit] must only be stepped by integrators that honor the mass matrix.
//
// # Thread Safety
//
// Solver instances drive exactly one system and are not safe for concurrent
// use. Independent systems may be solved concurrently, each with its own
// Solver and integrator.
package zode
