package gdp

import (
	"fmt"
	"math"

	"github.com/DavidDB33/gdpcut/pkg/model"
	"github.com/sirupsen/logrus"
)

// HullRelaxation is a hull-reformulated model plus the bookkeeping required
// to walk the disaggregation structure afterwards.
type HullRelaxation struct {
	Model *model.Model

	cloneMap      *model.CloneMap
	disaggregated []*model.Var
	sourceOf      map[*model.Var]*model.Var
	disjunctionOf map[*model.Var]*model.Disjunction
	disaggCons    map[*model.Disjunction]map[*model.Var]*model.Constraint
}

// CloneMap relates components of the source program to their hull images.
func (h *HullRelaxation) CloneMap() *model.CloneMap { return h.cloneMap }

// DisaggregatedVars returns every per-disjunct variable copy, in the order
// the disjunctions were declared.
func (h *HullRelaxation) DisaggregatedVars() []*model.Var { return h.disaggregated }

// SourceVar maps a disaggregated copy back to the hull image of the original
// variable. Returns nil for variables that are not disaggregated copies.
func (h *HullRelaxation) SourceVar(d *model.Var) *model.Var { return h.sourceOf[d] }

// Disjunction returns the disjunction a disaggregated copy belongs to.
func (h *HullRelaxation) Disjunction(d *model.Var) *model.Disjunction { return h.disjunctionOf[d] }

// DisaggregationConstraint recovers the equality linking a hull variable to
// the sum of its disaggregated copies under the given disjunction.
func (h *HullRelaxation) DisaggregationConstraint(hullVar *model.Var, dj *model.Disjunction) *model.Constraint {
	byVar := h.disaggCons[dj]
	if byVar == nil {
		return nil
	}
	return byVar[hullVar]
}

// Hull reformulates every disjunction of src with the convex hull encoding:
// per-disjunct disaggregated variable copies with indicator-scaled bounds,
// disjunct constraints rewritten over the copies, and a disaggregation
// equality per variable requiring the copies to sum to the original. All
// variables taking part in a disjunction must have finite bounds.
func Hull(src *model.Model) (*HullRelaxation, error) {
	m, cm := src.Clone()
	m.Name = src.Name + "_hull"
	h := &HullRelaxation{
		Model:         m,
		cloneMap:      cm,
		sourceOf:      map[*model.Var]*model.Var{},
		disjunctionOf: map[*model.Var]*model.Disjunction{},
		disaggCons:    map[*model.Disjunction]map[*model.Var]*model.Constraint{},
	}

	for _, dj := range m.Disjunctions {
		involved, err := disjunctionVars(m, dj)
		if err != nil {
			return nil, err
		}
		for _, x := range involved {
			if math.IsInf(x.LB, 0) || math.IsInf(x.UB, 0) {
				return nil, fmt.Errorf("hull relaxation requires finite bounds on %s", x.Name)
			}
		}

		convexity := model.NewLinExpr()
		copies := map[*model.Var][]*model.Var{}
		for _, d := range dj.Disjuncts {
			y := m.AddBinaryVar(fmt.Sprintf("%s_%s_indicator", dj.Name, d.Name))
			convexity.AddTerm(1, y)

			local := map[*model.Var]*model.Var{}
			for _, x := range involved {
				xd := m.AddVar(fmt.Sprintf("%s_%s", x.Name, d.Name), math.Min(x.LB, 0), math.Max(x.UB, 0))
				local[x] = xd
				copies[x] = append(copies[x], xd)
				h.disaggregated = append(h.disaggregated, xd)
				h.sourceOf[xd] = x
				h.disjunctionOf[xd] = dj

				lb := model.NewLinExpr().AddTerm(1, xd).AddTerm(-x.LB, y)
				m.AddConstraint(xd.Name+"_lb", lb, 0, math.Inf(1))
				ub := model.NewLinExpr().AddTerm(1, xd).AddTerm(-x.UB, y)
				m.AddConstraint(xd.Name+"_ub", ub, math.Inf(-1), 0)
			}

			for _, c := range d.Constraints {
				body := c.Body.(*model.LinExpr)
				if c.Equality() {
					m.AddConstraint(c.Name+"_hull", scaleToDisjunct(body, local, y, c.LB), 0, 0)
				} else {
					if c.HasUB() {
						m.AddConstraint(c.Name+"_hull_ub", scaleToDisjunct(body, local, y, c.UB), math.Inf(-1), 0)
					}
					if c.HasLB() {
						m.AddConstraint(c.Name+"_hull_lb", scaleToDisjunct(body, local, y, c.LB), 0, math.Inf(1))
					}
				}
				c.Active = false
			}
		}
		m.AddConstraint(dj.Name+"_xor", convexity, 1, 1)

		h.disaggCons[dj] = map[*model.Var]*model.Constraint{}
		for _, x := range involved {
			agg := model.NewLinExpr().AddTerm(1, x)
			for _, xd := range copies[x] {
				agg.AddTerm(-1, xd)
			}
			cons := m.AddConstraint(fmt.Sprintf("%s_disagg_%s", dj.Name, x.Name), agg, 0, 0)
			h.disaggCons[dj][x] = cons
		}
	}
	logrus.Debugf("hull relaxation of %s: %d vars (%d disaggregated), %d constraints",
		src.Name, len(m.Vars), len(h.disaggregated), len(m.Constraints))
	return h, nil
}

// scaleToDisjunct rewrites body<relation>bound as the hull form
// sum a_i*x_i_d + (const-bound)*y <relation> 0 over the disjunct copies.
func scaleToDisjunct(body *model.LinExpr, local map[*model.Var]*model.Var, y *model.Var, bound float64) *model.LinExpr {
	e := model.NewLinExpr()
	for _, t := range body.Terms {
		e.AddTerm(t.Coef, local[t.Var])
	}
	e.AddTerm(body.Const-bound, y)
	return e
}

// disjunctionVars collects the variables referenced by any disjunct of dj, in
// model declaration order.
func disjunctionVars(m *model.Model, dj *model.Disjunction) ([]*model.Var, error) {
	seen := map[*model.Var]bool{}
	for _, d := range dj.Disjuncts {
		for _, c := range d.Constraints {
			if err := linearOnly(c); err != nil {
				return nil, err
			}
			for _, t := range c.Body.(*model.LinExpr).Terms {
				seen[t.Var] = true
			}
		}
	}
	involved := make([]*model.Var, 0, len(seen))
	for _, v := range m.Vars {
		if seen[v] {
			involved = append(involved, v)
		}
	}
	return involved, nil
}
