// Package riccati solves the continuous-time algebraic Riccati equation
//
//	AᵀP + PA − PBR⁻¹BᵀP + Q = 0
//
// for the stabilizing solution P, using the matrix sign function of the
// associated Hamiltonian. The iteration is written out explicitly on top of
// gonum's dense primitives so each stage can be inspected and tested.
package riccati
