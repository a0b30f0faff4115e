package solver

import (
	"github.com/DavidDB33/gdpcut/pkg/model"
	"github.com/sirupsen/logrus"
)

const (
	defaultFWTol     = 1e-8
	defaultFWMaxIter = 2000
)

// solveFrankWolfe minimizes a convex quadratic objective over the model's
// polytope. Each iteration asks the simplex backend for the vertex minimizing
// the linearized objective and moves towards it with an exact line search,
// which is closed-form for a quadratic. The duality gap g.(x-s) bounds the
// suboptimality, so it is the termination test.
func (s *Simplex) solveFrankWolfe(sf *standardForm, obj *model.Objective) (Result, error) {
	tol := s.opts.Tol
	if tol <= 0 {
		tol = defaultFWTol
	}
	maxIter := s.opts.MaxIter
	if maxIter <= 0 {
		maxIter = defaultFWMaxIter
	}
	sense := 1.0
	if obj.Sense == model.Maximize {
		sense = -1
	}

	grad := func(x []float64) []float64 {
		sf.setPoint(x)
		g := make([]float64, len(sf.vars))
		for i, v := range sf.vars {
			g[i] = sense * obj.Expr.Diff(v).Value()
		}
		return g
	}
	eval := func(x []float64) float64 {
		sf.setPoint(x)
		return sense * obj.Expr.Value()
	}
	oracle := func(g []float64) ([]float64, Status) {
		c := make([]float64, sf.nCols)
		for i, v := range sf.vars {
			for _, col := range sf.byVar[v] {
				c[col.idx] += g[i] * col.sign
			}
		}
		u, status := sf.solveLP(c)
		if status != StatusOptimal {
			return nil, status
		}
		sf.apply(u)
		return sf.point(), StatusOptimal
	}

	// The variable values on entry act as the target of the linearization
	// only; the first oracle call lands on a feasible vertex to start from.
	x, status := oracle(grad(sf.point()))
	if status != StatusOptimal {
		return Result{Status: status}, nil
	}

	for k := 0; k < maxIter; k++ {
		g := grad(x)
		vertex, status := oracle(g)
		if status != StatusOptimal {
			return Result{Status: status}, nil
		}
		gap := 0.0
		for i := range x {
			gap += g[i] * (x[i] - vertex[i])
		}
		if s.opts.Stream {
			logrus.Debugf("frank-wolfe iteration %d: gap %g", k, gap)
		}
		if gap <= tol {
			break
		}
		// exact step: the objective restricted to the segment is quadratic,
		// with slope -gap at the current point.
		fx := eval(x)
		fv := eval(vertex)
		curvature := fv - fx + gap
		step := 1.0
		if curvature > 0 {
			step = gap / (2 * curvature)
			if step > 1 {
				step = 1
			}
		}
		for i := range x {
			x[i] += step * (vertex[i] - x[i])
		}
	}

	sf.setPoint(x)
	return Result{Status: StatusOptimal, Objective: obj.Expr.Value()}, nil
}
