package control

import "github.com/san-kum/vdesim/internal/dynamo"

// None never acts.
type None struct{}

func NewNone() *None {
	return &None{}
}

func (n *None) Name() string { return KindNone.String() }

func (n *None) Compute(s dynamo.StateVector) float64 {
	return 0
}
