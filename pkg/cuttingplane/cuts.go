package cuttingplane

import (
	"math"

	"github.com/DavidDB33/gdpcut/pkg/fme"
	"github.com/DavidDB33/gdpcut/pkg/model"
	"github.com/sirupsen/logrus"
)

// tightTol is the activity tolerance when deciding whether a constraint is
// binding at the separating point. It has to absorb the precision of the
// separation solve, not the cut filtering, so it is not configurable.
const tightTol = 1e-6

// createCutsNormalVector builds the supporting hyperplane of the hull region
// at the separating point xhat, expressed over big-M variables: in canonical
// body<=0 form, sum (xhat - x*) * (xhat - x) <= 0. The cut qualifies only
// when x* violates it by more than the filtering threshold.
func createCutsNormalVector(sub *subproblems, cfg *Config) []*model.LinExpr {
	body := model.NewLinExpr()
	for _, tr := range sub.varInfo {
		d := tr.RHull.Value - tr.Target.Value
		body.AddTerm(-d, tr.RBigM)
		body.AddConst(d * tr.RHull.Value)
	}
	// the body at x* equals |xhat - x*|^2, so this doubles as the validity
	// check of the separation direction.
	if body.Value() > cfg.CutFilteringThreshold {
		return []*model.LinExpr{body}
	}
	return nil
}

// createCutsFME is the composite-normal strategy: gather every hull
// constraint active at xhat, sum their signed gradients into one normal
// vector, pose the extended-space cut perpendicular to it, project the
// disaggregated variables out with Fourier-Motzkin elimination and keep the
// single projected cut most violated at x*.
func createCutsFME(sub *subproblems, cfg *Config) ([]*model.LinExpr, error) {
	rHullVars := sub.rHull.Vars
	normal := make(map[*model.Var]float64, len(rHullVars))
	var tight []*model.Constraint
	haveNormal := false

	for _, c := range sub.rHull.ActiveConstraints() {
		mult := tightMultiplier(c)
		if mult != 0 {
			haveNormal = true
			vec := make([]float64, len(rHullVars))
			for i, g := range model.Gradient(c.Body, rHullVars) {
				vec[i] = float64(mult) * g.Value()
				normal[rHullVars[i]] += vec[i]
			}
			if c.Body.Degree() == 1 {
				tight = append(tight, c)
			} else {
				// nonlinear: stand in its first-order approximation at xhat.
				tight = append(tight, linearApproximation(c.Name, vec, rHullVars))
			}
		} else if sub.isDisaggCons[c] {
			// disaggregation constraints join the working set even when
			// slack, or the projection cannot remove the disaggregated
			// copies correctly.
			tight = append(tight, c)
		}
	}

	// the separation may have ended in the interior, or only feasible
	// equalities are active: no normal direction, no cut.
	if !haveNormal {
		return nil, nil
	}

	ext := model.NewLinExpr()
	doFME := false
	for _, tr := range sub.varInfo {
		if n := normal[tr.RHull]; n != 0 {
			ext.AddTerm(n, tr.RHull)
			ext.AddConst(-n * tr.RHull.Value)
		}
	}
	for _, xd := range sub.disaggregated {
		if n := normal[xd]; n != 0 {
			ext.AddTerm(n, xd)
			ext.AddConst(-n * xd.Value)
			doFME = true
		}
	}
	extended := &model.Constraint{Name: "extended_cut", Body: ext, LB: math.Inf(-1), UB: 0, Active: true}

	projected := []*model.Constraint{extended}
	if doFME {
		system := append(append([]*model.Constraint{}, tight...), extended)
		var err error
		projected, err = fme.Project(system, sub.disaggregated, cfg.ZeroTolerance)
		if err != nil {
			return nil, err
		}
	}

	// translate to big-M variables, drop everything satisfied at x* or
	// already present, keep the single most violated survivor. Ties keep the
	// earliest projected constraint, which is deterministic because the
	// elimination emits them in a fixed order.
	best := cfg.CutFilteringThreshold
	var bestCut *model.LinExpr
	for _, pc := range projected {
		body := pc.Body.Substitute(sub.hullToBigM).(*model.LinExpr)
		if foreignVars(body, sub, cfg.ZeroTolerance) {
			logrus.Debugf("fme: skipping projected cut over untranslatable variables: %s", pc)
			continue
		}
		cut := canonicalize(body, pc)
		margin := cut.Value()
		if margin <= 0 {
			logrus.Debugf("fme: projected cut does not cut off x*: %s", pc)
			continue
		}
		if duplicatesLinearRow(cut, sub.rBigMLinear, cfg.ZeroTolerance) {
			logrus.Debugf("fme: projected cut duplicates an existing row: %s", pc)
			continue
		}
		if margin > best {
			logrus.Debugf("fme: new best cut, cuts off x* by %g", margin)
			best = margin
			bestCut = cut
		}
	}
	if bestCut == nil {
		return nil, nil
	}
	return []*model.LinExpr{bestCut}, nil
}

// tightMultiplier is the signed activity of a constraint at the current
// point: -1 at or below the lower bound, +1 at or above the upper bound,
// accumulated when both, 0 when strictly inside.
func tightMultiplier(c *model.Constraint) int {
	val := c.Body.Value()
	mult := 0
	if c.HasLB() && c.LB >= val-tightTol {
		mult--
	}
	if c.HasUB() && c.UB <= val+tightTol {
		mult++
	}
	return mult
}

// linearApproximation is the first-order stand-in for a nonlinear tight
// constraint: -normal . v >= -normal . vhat.
func linearApproximation(name string, vec []float64, vars []*model.Var) *model.Constraint {
	body := model.NewLinExpr()
	lb := 0.0
	for i, v := range vars {
		if vec[i] == 0 {
			continue
		}
		body.AddTerm(-vec[i], v)
		lb -= vec[i] * v.Value
	}
	return &model.Constraint{Name: name + "_linearized", Body: body, LB: lb, UB: math.Inf(1), Active: true}
}

// canonicalize folds the bound of a projected constraint into a body<=0 cut.
func canonicalize(body *model.LinExpr, pc *model.Constraint) *model.LinExpr {
	cut := model.NewLinExpr()
	if pc.HasLB() {
		// lb <= body  becomes  lb - body <= 0
		cut.AddConst(pc.LB - body.Const)
		for _, t := range body.Terms {
			cut.AddTerm(-t.Coef, t.Var)
		}
	} else {
		// body <= ub  becomes  body - ub <= 0
		cut.AddConst(body.Const - pc.UB)
		for _, t := range body.Terms {
			cut.AddTerm(t.Coef, t.Var)
		}
	}
	return cut
}

// foreignVars reports whether the translated cut still references hull-only
// variables (for example indicator variables with no big-M correspondence).
// Such a cut cannot be expressed in the returned relaxation.
func foreignVars(body *model.LinExpr, sub *subproblems, zeroTol float64) bool {
	for _, t := range body.Terms {
		if math.Abs(t.Coef) > zeroTol && !sub.bigMVars[t.Var] {
			return true
		}
	}
	return false
}

// duplicatesLinearRow compares the cut against the snapshot of linear rows
// taken from the big-M relaxation at setup time, up to positive scaling.
func duplicatesLinearRow(cut *model.LinExpr, rows []*model.Constraint, zeroTol float64) bool {
	for _, row := range rows {
		body, ok := row.Body.(*model.LinExpr)
		if !ok {
			continue
		}
		if row.HasUB() && sameHalfSpace(cut, body, row.UB, 1, zeroTol) {
			return true
		}
		if row.HasLB() && sameHalfSpace(cut, body, row.LB, -1, zeroTol) {
			return true
		}
	}
	return false
}

// sameHalfSpace checks cut <= 0 against sign*(body - bound) <= 0 for a
// positive proportionality factor.
func sameHalfSpace(cut, body *model.LinExpr, bound, sign, zeroTol float64) bool {
	scale := 0.0
	for _, t := range cut.Terms {
		if math.Abs(t.Coef) <= zeroTol {
			continue
		}
		other := sign * body.Coef(t.Var)
		if math.Abs(other) <= zeroTol {
			return false
		}
		s := t.Coef / other
		if s <= 0 {
			return false
		}
		if scale == 0 {
			scale = s
		} else if math.Abs(s-scale) > zeroTol*(1+math.Abs(scale)) {
			return false
		}
	}
	if scale == 0 {
		return false
	}
	for _, t := range body.Terms {
		if math.Abs(t.Coef) > zeroTol && math.Abs(cut.Coef(t.Var)) <= zeroTol {
			return false
		}
	}
	want := sign * (body.Const - bound) * scale
	return math.Abs(cut.Const-want) <= zeroTol*(1+math.Abs(want))
}
