// Package fme implements Fourier-Motzkin elimination over systems of linear
// constraints. The input is a set of model constraints with affine bodies;
// the output is the projection of that system onto the variables that were
// not eliminated, again as model constraints of the form body >= lb.
package fme

import (
	"fmt"
	"math"

	"github.com/DavidDB33/gdpcut/pkg/model"
	"github.com/sirupsen/logrus"
)

// row is one inequality coefs . x >= rhs over the dense variable universe.
type row struct {
	coefs []float64
	rhs   float64
}

// Project eliminates the given variables from the constraint system and
// returns the projected constraints. Bounds of eliminated variables join the
// system as rows before elimination. Coefficients with magnitude at most
// zeroTol are treated as zero.
func Project(constraints []*model.Constraint, eliminate []*model.Var, zeroTol float64) ([]*model.Constraint, error) {
	universe, index, err := variableUniverse(constraints, eliminate)
	if err != nil {
		return nil, err
	}

	rows := make([]row, 0, 2*len(constraints))
	for _, c := range constraints {
		body := c.Body.(*model.LinExpr)
		offset := body.Offset()
		if c.HasLB() {
			rows = append(rows, newRow(body, index, 1, c.LB-offset))
		}
		if c.HasUB() {
			rows = append(rows, newRow(body, index, -1, c.UB-offset))
		}
	}
	for _, v := range eliminate {
		i := index[v]
		if !math.IsInf(v.LB, -1) {
			r := row{coefs: make([]float64, len(universe)), rhs: v.LB}
			r.coefs[i] = 1
			rows = append(rows, r)
		}
		if !math.IsInf(v.UB, 1) {
			r := row{coefs: make([]float64, len(universe)), rhs: -v.UB}
			r.coefs[i] = -1
			rows = append(rows, r)
		}
	}

	for _, v := range eliminate {
		rows = eliminateVar(rows, index[v], zeroTol)
	}

	var projected []*model.Constraint
	seen := map[string]bool{}
	for _, r := range rows {
		if trivial(r, zeroTol) {
			continue
		}
		key := normalKey(r, zeroTol)
		if seen[key] {
			continue
		}
		seen[key] = true
		body := model.NewLinExpr()
		for i, coef := range r.coefs {
			if math.Abs(coef) > zeroTol {
				body.AddTerm(coef, universe[i])
			}
		}
		projected = append(projected, &model.Constraint{
			Name:   fmt.Sprintf("fme_%d", len(projected)),
			Body:   body,
			LB:     r.rhs,
			UB:     math.Inf(1),
			Active: true,
		})
	}
	return projected, nil
}

func variableUniverse(constraints []*model.Constraint, eliminate []*model.Var) ([]*model.Var, map[*model.Var]int, error) {
	var universe []*model.Var
	index := map[*model.Var]int{}
	add := func(v *model.Var) {
		if _, ok := index[v]; !ok {
			index[v] = len(universe)
			universe = append(universe, v)
		}
	}
	for _, c := range constraints {
		body, ok := c.Body.(*model.LinExpr)
		if !ok || c.Body.Degree() > 1 {
			return nil, nil, fmt.Errorf("constraint %s: elimination requires linear constraints", c.Name)
		}
		for _, t := range body.Terms {
			add(t.Var)
		}
	}
	for _, v := range eliminate {
		add(v)
	}
	return universe, index, nil
}

func newRow(body *model.LinExpr, index map[*model.Var]int, sign float64, rhs float64) row {
	r := row{coefs: make([]float64, len(index)), rhs: sign * rhs}
	for _, t := range body.Terms {
		r.coefs[index[t.Var]] += sign * t.Coef
	}
	return r
}

// eliminateVar removes variable i from the system by pairing every row where
// it appears positively with every row where it appears negatively.
func eliminateVar(rows []row, i int, zeroTol float64) []row {
	var pos, neg, rest []row
	for _, r := range rows {
		switch {
		case r.coefs[i] > zeroTol:
			pos = append(pos, scale(r, 1/r.coefs[i]))
		case r.coefs[i] < -zeroTol:
			neg = append(neg, scale(r, -1/r.coefs[i]))
		default:
			r.coefs[i] = 0
			rest = append(rest, r)
		}
	}
	for _, p := range pos {
		for _, n := range neg {
			combined := row{coefs: make([]float64, len(p.coefs)), rhs: p.rhs + n.rhs}
			for j := range p.coefs {
				combined.coefs[j] = p.coefs[j] + n.coefs[j]
			}
			combined.coefs[i] = 0
			rest = append(rest, combined)
		}
	}
	return rest
}

func scale(r row, f float64) row {
	s := row{coefs: make([]float64, len(r.coefs)), rhs: r.rhs * f}
	for j, c := range r.coefs {
		s.coefs[j] = c * f
	}
	return s
}

// trivial reports rows with no remaining variables. A vacuous row is dropped
// silently; a numerically infeasible one is dropped with a log line, since a
// consistent input system can only produce it through rounding.
func trivial(r row, zeroTol float64) bool {
	for _, c := range r.coefs {
		if math.Abs(c) > zeroTol {
			return false
		}
	}
	if r.rhs > zeroTol {
		logrus.Debugf("dropping numerically infeasible projected row (0 >= %g)", r.rhs)
	}
	return true
}

// normalKey builds a scale-invariant fingerprint used to drop duplicate rows.
func normalKey(r row, zeroTol float64) string {
	norm := 0.0
	for _, c := range r.coefs {
		if math.Abs(c) > norm {
			norm = math.Abs(c)
		}
	}
	if norm == 0 {
		norm = 1
	}
	key := make([]byte, 0, 16*len(r.coefs))
	for _, c := range r.coefs {
		if math.Abs(c) <= zeroTol {
			c = 0
		}
		key = fmt.Appendf(key, "%.9f,", c/norm)
	}
	return string(fmt.Appendf(key, "|%.9f", r.rhs/norm))
}
