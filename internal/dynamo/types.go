package dynamo

import (
	"fmt"
	"math"
)

// State is the flat vector form integrators operate on.
type State []float64

func (s State) Clone() State {
	c := make(State, len(s))
	copy(c, s)
	return c
}

func (s State) IsValid() bool {
	for _, v := range s {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

type Control []float64

// Index positions of StateVector fields inside a State.
const (
	IdxZ = iota
	IdxVZ
	IdxIp
	IdxR
	IdxVR

	StateDim
)

// StateVector is the plasma filament state: vertical position and velocity,
// plasma current, radial position and velocity.
type StateVector struct {
	Z  float64 `json:"z" yaml:"z"`
	VZ float64 `json:"v_z" yaml:"v_z"`
	Ip float64 `json:"ip" yaml:"ip"`
	R  float64 `json:"r" yaml:"r"`
	VR float64 `json:"v_r" yaml:"v_r"`
}

// Array returns the fields in (z, v_z, Ip, r, v_r) order.
func (s StateVector) Array() [StateDim]float64 {
	return [StateDim]float64{s.Z, s.VZ, s.Ip, s.R, s.VR}
}

func (s StateVector) State() State {
	a := s.Array()
	return State(a[:])
}

// FromArray is the inverse of Array.
func FromArray(a [StateDim]float64) StateVector {
	return StateVector{Z: a[IdxZ], VZ: a[IdxVZ], Ip: a[IdxIp], R: a[IdxR], VR: a[IdxVR]}
}

// FromState converts a flat state back into a StateVector. Missing trailing
// entries are left at zero.
func FromState(x State) StateVector {
	var a [StateDim]float64
	copy(a[:], x)
	return FromArray(a)
}

func (s StateVector) IsFinite() bool {
	return s.State().IsValid()
}

// Status is the plant condition reported after every step, and the terminal
// outcome of a run.
type Status int

const (
	StatusRunning Status = iota
	StatusSuccess
	StatusVDE
	StatusCQ
	StatusNumerical
)

var statusNames = [...]string{
	StatusRunning:   "RUNNING",
	StatusSuccess:   "SUCCESS",
	StatusVDE:       "VDE",
	StatusCQ:        "CQ",
	StatusNumerical: "NUMERICAL",
}

func (s Status) String() string {
	if s < 0 || int(s) >= len(statusNames) {
		return fmt.Sprintf("Status(%d)", int(s))
	}
	return statusNames[s]
}

// Terminal reports whether the status ends a run.
func (s Status) Terminal() bool {
	return s == StatusVDE || s == StatusCQ || s == StatusNumerical
}

func ParseStatus(name string) (Status, error) {
	for i, n := range statusNames {
		if n == name {
			return Status(i), nil
		}
	}
	return 0, fmt.Errorf("dynamo: unknown status %q", name)
}

func (s Status) MarshalText() ([]byte, error) {
	if s < 0 || int(s) >= len(statusNames) {
		return nil, fmt.Errorf("dynamo: invalid status %d", int(s))
	}
	return []byte(s.String()), nil
}

func (s *Status) UnmarshalText(b []byte) error {
	v, err := ParseStatus(string(b))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

type System interface {
	Derive(x State, u Control, t float64) State
	StateDim() int
	ControlDim() int
}

type Integrator interface {
	Step(dyn System, x State, u Control, t float64, dt float64) State
}

// Controller maps the measured state to a vertical control command.
type Controller interface {
	Name() string
	Compute(s StateVector) float64
}

// Metric accumulates a summary value over a run. u is the normalized
// vertical command applied on the step that produced s.
type Metric interface {
	Name() string
	Observe(s StateVector, u float64, t float64)
	Value() float64
	Reset()
}
