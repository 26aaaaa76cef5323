// Package dynamo provides the core types shared by the plant, controllers and
// simulator.
//
//   - [State]: flat vector form used by integrators
//   - [StateVector]: the (z, v_z, Ip, r, v_r) filament state
//   - [Status]: plant condition (RUNNING, VDE, CQ, NUMERICAL) and run outcome
//   - [System]: ODE right-hand side (dX/dt = f(X, u, t))
//   - [Integrator]: fixed-step numerical integrator
//   - [Controller]: state-feedback controller
//   - [Metric]: streaming run summary
//
// # Thread Safety
//
// None of the types here are safe for concurrent mutation. Parallel studies
// build one plant and one controller per run.
package dynamo
