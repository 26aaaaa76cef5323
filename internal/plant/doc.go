// Package plant holds the stateful plasma plant: a fixed-step RK4 integration
// of the filament model with seeded process noise and terminal event
// detection (VDE, current quench, numerical blow-up).
package plant
