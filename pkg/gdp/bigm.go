// Package gdp provides the standard reformulations which turn a disjunctive
// program into solvable models: the big-M relaxation, the hull relaxation and
// integrality relaxation. Reformulations never mutate the source model; they
// clone it and return the clone together with the component mapping.
package gdp

import (
	"fmt"
	"math"

	"github.com/DavidDB33/gdpcut/pkg/model"
	"github.com/sirupsen/logrus"
)

// BigM reformulates every disjunction of src with the big-M encoding: one
// relaxable binary indicator per disjunct, disjunct constraints padded by
// M*(1-y), and a convexity row forcing exactly one indicator to one. When
// bigM <= 0 a value is inferred per constraint from the variable bounds.
func BigM(src *model.Model, bigM float64) (*model.Model, *model.CloneMap, error) {
	m, cm := src.Clone()
	m.Name = src.Name + "_bigm"

	for _, dj := range m.Disjunctions {
		convexity := model.NewLinExpr()
		for _, d := range dj.Disjuncts {
			y := m.AddBinaryVar(fmt.Sprintf("%s_%s_indicator", dj.Name, d.Name))
			convexity.AddTerm(1, y)

			for _, c := range d.Constraints {
				if err := linearOnly(c); err != nil {
					return nil, nil, err
				}
				body := c.Body.(*model.LinExpr)
				if c.HasUB() {
					mVal, err := padValue(bigM, body, c.UB, true)
					if err != nil {
						return nil, nil, fmt.Errorf("disjunct %s: %w", d.Name, err)
					}
					relaxed := body.Clone().AddTerm(mVal, y)
					m.AddConstraint(c.Name+"_ub", relaxed, math.Inf(-1), c.UB+mVal)
				}
				if c.HasLB() {
					mVal, err := padValue(bigM, body, c.LB, false)
					if err != nil {
						return nil, nil, fmt.Errorf("disjunct %s: %w", d.Name, err)
					}
					relaxed := body.Clone().AddTerm(-mVal, y)
					m.AddConstraint(c.Name+"_lb", relaxed, c.LB-mVal, math.Inf(1))
				}
				c.Active = false
			}
		}
		m.AddConstraint(dj.Name+"_xor", convexity, 1, 1)
	}
	logrus.Debugf("big-M relaxation of %s: %d vars, %d constraints", src.Name, len(m.Vars), len(m.Constraints))
	return m, cm, nil
}

func linearOnly(c *model.Constraint) error {
	body, ok := c.Body.(*model.LinExpr)
	if !ok || c.Body.Degree() > 1 {
		return fmt.Errorf("constraint %s: reformulation supports only linear disjunct constraints", c.Name)
	}
	if len(body.Params) > 0 {
		return fmt.Errorf("constraint %s: disjunct constraints must not reference parameters", c.Name)
	}
	return nil
}

// padValue returns the caller-supplied big-M, or infers the smallest valid
// one from the bound interval of the constraint body.
func padValue(bigM float64, body *model.LinExpr, bound float64, upper bool) (float64, error) {
	if bigM > 0 {
		return bigM, nil
	}
	lo, hi := body.Const, body.Const
	for _, t := range body.Terms {
		a, b := t.Coef*t.Var.LB, t.Coef*t.Var.UB
		lo += math.Min(a, b)
		hi += math.Max(a, b)
	}
	var m float64
	if upper {
		m = hi - bound
	} else {
		m = bound - lo
	}
	if math.IsInf(m, 0) || math.IsNaN(m) {
		return 0, fmt.Errorf("cannot infer big-M from unbounded variables; pass an explicit value")
	}
	return math.Max(m, 0), nil
}
