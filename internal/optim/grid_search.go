package optim

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
)

// ErrNoFeasiblePoint is returned when every grid point failed to evaluate.
var ErrNoFeasiblePoint = errors.New("optim: no grid point could be evaluated")

// Evaluator scores one parameter assignment; lower is better.
type Evaluator func(ctx context.Context, params map[string]float64) (float64, error)

// GridSearch exhaustively evaluates the cartesian product of named value
// ranges.
type GridSearch struct {
	paramNames []string
	ranges     [][]float64
}

func NewGridSearch(params []string, ranges [][]float64) (*GridSearch, error) {
	if len(params) != len(ranges) {
		return nil, fmt.Errorf("optim: %d parameter names for %d ranges", len(params), len(ranges))
	}
	for i, r := range ranges {
		if len(r) == 0 {
			return nil, fmt.Errorf("optim: empty range for %q", params[i])
		}
	}
	return &GridSearch{paramNames: params, ranges: ranges}, nil
}

// Point is one evaluated grid assignment.
type Point struct {
	Params map[string]float64
	Value  float64
	Err    error
}

// Size is the number of grid points.
func (g *GridSearch) Size() int {
	n := 1
	for _, r := range g.ranges {
		n *= len(r)
	}
	return n
}

// Search evaluates every grid point in order and returns the best assignment
// and its value together with all evaluated points. Points whose evaluation
// fails or returns a non-finite value are skipped. Search stops early with
// ctx.Err() when ctx is done.
func (g *GridSearch) Search(ctx context.Context, eval Evaluator) (map[string]float64, float64, []Point, error) {
	best := math.Inf(1)
	var bestParams map[string]float64
	points := make([]Point, 0, g.Size())

	err := g.searchRecursive(ctx, 0, make(map[string]float64), eval, &best, &bestParams, &points)
	if err != nil {
		return bestParams, best, points, err
	}
	if bestParams == nil {
		return nil, best, points, ErrNoFeasiblePoint
	}
	return bestParams, best, points, nil
}

func (g *GridSearch) searchRecursive(
	ctx context.Context,
	depth int,
	current map[string]float64,
	eval Evaluator,
	best *float64,
	bestParams *map[string]float64,
	points *[]Point,
) error {
	if depth == len(g.paramNames) {
		if err := ctx.Err(); err != nil {
			return err
		}

		val, err := eval(ctx, current)
		*points = append(*points, Point{Params: current, Value: val, Err: err})
		if err != nil || math.IsNaN(val) || math.IsInf(val, 0) {
			return nil
		}

		if val < *best {
			*best = val
			*bestParams = make(map[string]float64)
			for k, v := range current {
				(*bestParams)[k] = v
			}
		}
		return nil
	}

	paramName := g.paramNames[depth]
	for _, val := range g.ranges[depth] {
		newParams := make(map[string]float64)
		for k, v := range current {
			newParams[k] = v
		}
		newParams[paramName] = val

		if err := g.searchRecursive(ctx, depth+1, newParams, eval, best, bestParams, points); err != nil {
			return err
		}
	}
	return nil
}

// Ranked returns the successfully evaluated points sorted by value.
func Ranked(points []Point) []Point {
	out := make([]Point, 0, len(points))
	for _, p := range points {
		if p.Err == nil && !math.IsNaN(p.Value) && !math.IsInf(p.Value, 0) {
			out = append(out, p)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Value < out[j].Value })
	return out
}
