package integrators

import (
	"math"
	"testing"

	"github.com/san-kum/vdesim/internal/dynamo"
)

// unstableLinear is z'' = g2*z, the decoupled vertical instability.
type unstableLinear struct{ g2 float64 }

func (s *unstableLinear) Derive(x dynamo.State, u dynamo.Control, t float64) dynamo.State {
	return dynamo.State{x[1], s.g2 * x[0]}
}

func (s *unstableLinear) StateDim() int   { return 2 }
func (s *unstableLinear) ControlDim() int { return 0 }

type oscillator struct{}

func (o *oscillator) Derive(x dynamo.State, u dynamo.Control, t float64) dynamo.State {
	return dynamo.State{x[1], -x[0]}
}

func (o *oscillator) StateDim() int   { return 2 }
func (o *oscillator) ControlDim() int { return 0 }

func integrate(dyn dynamo.System, x0 dynamo.State, dt float64, steps int) dynamo.State {
	integ := NewRK4()
	x := x0.Clone()
	for i := 0; i < steps; i++ {
		x = integ.Step(dyn, x, nil, float64(i)*dt, dt)
	}
	return x
}

func TestRK4Accuracy(t *testing.T) {
	dt := 0.01
	steps := 100
	x := integrate(&oscillator{}, dynamo.State{1.0, 0.0}, dt, steps)

	expectedX := math.Cos(float64(steps) * dt)
	expectedV := -math.Sin(float64(steps) * dt)

	if math.Abs(x[0]-expectedX) > 1e-8 {
		t.Errorf("position error too large: got %.10f, expected %.10f", x[0], expectedX)
	}
	if math.Abs(x[1]-expectedV) > 1e-8 {
		t.Errorf("velocity error too large: got %.10f, expected %.10f", x[1], expectedV)
	}
}

func TestRK4ConvergenceOrder(t *testing.T) {
	const (
		gamma = 25.0
		z0    = 0.02
		T     = 0.05
	)
	dyn := &unstableLinear{g2: gamma * gamma}
	exact := z0 * math.Cosh(gamma*T)

	errAt := func(dt float64) float64 {
		steps := int(math.Round(T / dt))
		x := integrate(dyn, dynamo.State{z0, 0}, dt, steps)
		return math.Abs(x[0] - exact)
	}

	e1 := errAt(0.001)
	e2 := errAt(0.0005)
	ratio := e1 / e2

	if ratio < 12 || ratio > 20 {
		t.Errorf("halving dt reduced error by %.2f (e1=%.3e e2=%.3e), want ~16", ratio, e1, e2)
	}
}

func TestRK4DoesNotMutateInput(t *testing.T) {
	integ := NewRK4()
	x := dynamo.State{1, 2}
	_ = integ.Step(&oscillator{}, x, nil, 0, 0.1)
	if x[0] != 1 || x[1] != 2 {
		t.Errorf("input state modified: %v", x)
	}
}

func BenchmarkRK4(b *testing.B) {
	integ := NewRK4()
	dyn := &oscillator{}
	x := dynamo.State{1.0, 0.0}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		x = integ.Step(dyn, x, nil, 0, 0.01)
	}
}
