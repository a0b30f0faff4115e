package solver

import (
	"errors"
	"fmt"
	"math"

	"github.com/DavidDB33/gdpcut/pkg/model"
	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize/convex/lp"
)

// Simplex solves models with linear constraints. Linear objectives go
// straight to gonum's simplex method; quadratic objectives are minimized
// with Frank-Wolfe iterations using the simplex method as the
// linear-minimization oracle.
type Simplex struct {
	opts Options
}

func (s *Simplex) Solve(m *model.Model) (Result, error) {
	obj := m.ActiveObjective()
	if obj == nil {
		return Result{Status: StatusFailed}, fmt.Errorf("model %s has no active objective", m.Name)
	}
	sf, err := buildStandardForm(m)
	if err != nil {
		return Result{Status: StatusFailed}, err
	}
	switch {
	case obj.Expr.Degree() <= 1:
		return s.solveLinear(sf, obj)
	case obj.Expr.Degree() == 2:
		return s.solveFrankWolfe(sf, obj)
	default:
		return Result{Status: StatusFailed}, fmt.Errorf("objective %s: unsupported degree %d", obj.Name, obj.Expr.Degree())
	}
}

func (s *Simplex) solveLinear(sf *standardForm, obj *model.Objective) (Result, error) {
	body, ok := obj.Expr.(*model.LinExpr)
	if !ok {
		return Result{Status: StatusFailed}, fmt.Errorf("objective %s: linear objective expected", obj.Name)
	}
	c := make([]float64, sf.nCols)
	for _, t := range body.Terms {
		for _, col := range sf.columnsOf(t.Var) {
			c[col.idx] += t.Coef * col.sign
		}
	}
	if obj.Sense == model.Maximize {
		for i := range c {
			c[i] = -c[i]
		}
	}
	point, status := sf.solveLP(c)
	if status != StatusOptimal {
		return Result{Status: status}, nil
	}
	sf.apply(point)
	return Result{Status: StatusOptimal, Objective: obj.Expr.Value()}, nil
}

// standardForm is a model rewritten as min c.u  s.t.  A u = b, u >= 0.
// Every decision variable maps to one or two nonnegative columns through
// x = shift + sum(sign * u); slack columns absorb inequality rows.
type standardForm struct {
	vars  []*model.Var
	cols  []sfCol
	byVar map[*model.Var][]sfCol
	a     *mat.Dense
	b     []float64
	nCols int
}

type sfCol struct {
	idx   int
	v     *model.Var
	sign  float64
	shift float64
}

func buildStandardForm(m *model.Model) (*standardForm, error) {
	sf := &standardForm{byVar: map[*model.Var][]sfCol{}}
	for _, v := range m.Vars {
		if v.Fixed {
			continue
		}
		if v.Binary {
			return nil, fmt.Errorf("variable %s is discrete; relax integrality first", v.Name)
		}
		sf.vars = append(sf.vars, v)
		switch {
		case !math.IsInf(v.LB, -1):
			sf.addColumn(v, 1, v.LB)
		case !math.IsInf(v.UB, 1):
			sf.addColumn(v, -1, v.UB)
		default:
			sf.addColumn(v, 1, 0)
			sf.addColumn(v, -1, 0)
		}
	}

	type denseRow struct {
		coefs []float64
		rhs   float64
		eq    bool
	}
	var rows []denseRow
	addRow := func(coefs []float64, rhs float64, eq bool) {
		rows = append(rows, denseRow{coefs: coefs, rhs: rhs, eq: eq})
	}
	// upper bounds of variables substituted from their lower bound become
	// explicit rows; single-column substitutions already enforce the other
	// bound through u >= 0.
	for _, v := range sf.vars {
		cols := sf.byVar[v]
		if len(cols) == 1 && !math.IsInf(v.LB, -1) && !math.IsInf(v.UB, 1) {
			coefs := make([]float64, len(sf.cols))
			coefs[cols[0].idx] = 1
			addRow(coefs, v.UB-v.LB, false)
		}
	}
	for _, c := range m.ActiveConstraints() {
		body, ok := c.Body.(*model.LinExpr)
		if !ok || c.Body.Degree() > 1 {
			return nil, fmt.Errorf("constraint %s: simplex backend requires linear constraints", c.Name)
		}
		coefs := make([]float64, len(sf.cols))
		shift := body.Offset()
		for _, t := range body.Terms {
			if t.Var.Fixed {
				shift += t.Coef * t.Var.Value
				continue
			}
			for _, col := range sf.byVar[t.Var] {
				coefs[col.idx] += t.Coef * col.sign
				shift += t.Coef * col.shift / float64(len(sf.byVar[t.Var]))
			}
		}
		switch {
		case c.Equality():
			addRow(coefs, c.LB-shift, true)
		default:
			if c.HasUB() {
				addRow(coefs, c.UB-shift, false)
			}
			if c.HasLB() {
				neg := make([]float64, len(coefs))
				for i, f := range coefs {
					neg[i] = -f
				}
				addRow(neg, shift-c.LB, false)
			}
		}
	}

	// stack equalities and slack-extended inequalities into one system,
	// following the conversion used for branch-and-bound subproblems.
	nIneq := 0
	for _, r := range rows {
		if !r.eq {
			nIneq++
		}
	}
	sf.nCols = len(sf.cols) + nIneq
	sf.a = mat.NewDense(max(len(rows), 1), max(sf.nCols, 1), nil)
	sf.b = make([]float64, len(rows))
	slack := len(sf.cols)
	for i, r := range rows {
		for j, f := range r.coefs {
			sf.a.Set(i, j, f)
		}
		if !r.eq {
			sf.a.Set(i, slack, 1)
			slack++
		}
		sf.b[i] = r.rhs
	}
	if len(rows) == 0 {
		return nil, errors.New("model has no active constraints")
	}
	return sf, nil
}

func (sf *standardForm) addColumn(v *model.Var, sign, shift float64) {
	col := sfCol{idx: len(sf.cols), v: v, sign: sign, shift: shift}
	sf.cols = append(sf.cols, col)
	sf.byVar[v] = append(sf.byVar[v], col)
}

func (sf *standardForm) columnsOf(v *model.Var) []sfCol { return sf.byVar[v] }

// solveLP minimizes c.u over the standard form and returns the point.
func (sf *standardForm) solveLP(c []float64) ([]float64, Status) {
	_, u, err := lp.Simplex(c, sf.a, sf.b, 0, nil)
	if err != nil {
		switch {
		case errors.Is(err, lp.ErrInfeasible):
			return nil, StatusInfeasible
		case errors.Is(err, lp.ErrUnbounded):
			return nil, StatusUnbounded
		default:
			logrus.Warnf("simplex failed: %v", err)
			return nil, StatusFailed
		}
	}
	return u, StatusOptimal
}

// apply writes the standard-form point back into the model variables.
func (sf *standardForm) apply(u []float64) {
	for _, v := range sf.vars {
		val := 0.0
		for _, col := range sf.byVar[v] {
			val += col.shift/float64(len(sf.byVar[v])) + col.sign*u[col.idx]
		}
		v.Value = val
	}
}

// point snapshots the current variable values in sf.vars order.
func (sf *standardForm) point() []float64 {
	p := make([]float64, len(sf.vars))
	for i, v := range sf.vars {
		p[i] = v.Value
	}
	return p
}

func (sf *standardForm) setPoint(p []float64) {
	for i, v := range sf.vars {
		v.Value = p[i]
	}
}
