package sim

import (
	"strings"
	"time"

	"github.com/san-kum/vdesim/internal/control"
	"github.com/san-kum/vdesim/internal/dynamo"
)

// Metrics summarizes one run. It is built once when the run ends.
type Metrics struct {
	Timestamp  time.Time     `json:"timestamp"`
	TraceID    string        `json:"trace_id"`
	Controller control.Kind  `json:"controller"`
	Status     dynamo.Status `json:"status"`
	Seed       int64         `json:"seed"`
	// Duration is simulated time in seconds.
	Duration float64 `json:"duration"`
	Steps    int     `json:"steps"`
	// ComputeMillis is wall-clock time spent in the run.
	ComputeMillis float64            `json:"compute_time_ms"`
	MaxZ          float64            `json:"max_z"`
	MeanU         float64            `json:"mean_u"`
	Violations    int                `json:"violations"`
	FinalState    dynamo.StateVector `json:"final_state"`

	SolverFailures int  `json:"solver_failures"`
	LQRFallback    bool `json:"lqr_fallback"`
}

// RunID names a stored run, e.g. "nmpc_1a2b3c4d".
func (m Metrics) RunID() string {
	return strings.ToLower(m.Controller.String()) + "_" + m.TraceID
}

// History holds one entry per step in three parallel sequences.
type History struct {
	Time []float64 `json:"time"`
	Z    []float64 `json:"z"`
	U    []float64 `json:"u_z"`
}

func newHistory(capacity int) History {
	return History{
		Time: make([]float64, 0, capacity),
		Z:    make([]float64, 0, capacity),
		U:    make([]float64, 0, capacity),
	}
}

func (h *History) append(t, z, u float64) {
	h.Time = append(h.Time, t)
	h.Z = append(h.Z, z)
	h.U = append(h.U, u)
}

func (h History) Len() int { return len(h.Time) }

type Result struct {
	Metrics Metrics `json:"metrics"`
	History History `json:"history"`
}

// Sample is what one Session step produced.
type Sample struct {
	Step   int
	Time   float64
	State  dynamo.StateVector
	U      float64
	Status dynamo.Status
	Done   bool
}
