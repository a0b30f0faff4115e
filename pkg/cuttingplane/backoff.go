package cuttingplane

import (
	"github.com/DavidDB33/gdpcut/pkg/model"
	"github.com/DavidDB33/gdpcut/pkg/solver"
	"github.com/sirupsen/logrus"
)

// postProcessCut pads the freshly added cut according to the configured
// back-off strategy. The pad is a one-time additive adjustment; cuts are
// never touched again afterwards.
func (t *Transformation) postProcessCut(sub *subproblems, cut *model.Constraint) {
	switch t.cfg.BackOff {
	case BackOffFixedTolerance:
		backOffByFixedTolerance(cut, t.cfg.BackOffTolerance)
	case BackOffCalculated:
		backOffWithCalculatedViolation(sub, t.slv, cut, t.cfg.BackOffTolerance)
	case BackOffNone:
	}
}

// backOffByFixedTolerance unconditionally relaxes the cut body by the
// tolerance, guarding against it being marginally too tight.
func backOffByFixedTolerance(cut *model.Constraint, tol float64) {
	cut.Body.(*model.LinExpr).AddConst(-tol)
}

// backOffWithCalculatedViolation maximizes the cut body over the hull
// relaxation. A positive maximum means hull-feasible points can violate the
// cut by that much, so the cut is padded by the maximum minus the tolerance.
// A failed auxiliary solve only skips the padding; the separation objective
// is restored no matter what.
func backOffWithCalculatedViolation(sub *subproblems, slv solver.Interface, cut *model.Constraint, tol float64) {
	logrus.Debugf("post-processing cut %s", cut)

	hullBody := cut.Body.Substitute(sub.bigMToHull)
	sub.separation.Active = false
	infeasibility := sub.rHull.AddObjective("infeasibility_objective", hullBody, model.Maximize)
	defer func() {
		objectives := sub.rHull.Objectives[:0]
		for _, o := range sub.rHull.Objectives {
			if o != infeasibility {
				objectives = append(objectives, o)
			}
		}
		sub.rHull.Objectives = objectives
		sub.separation.Active = true
	}()

	res, err := slv.Solve(sub.rHull)
	if err != nil || res.Status != solver.StatusOptimal {
		logrus.Warnf("back-off problem for cut %s did not solve normally (%s); leaving the cut as is, "+
			"which could lead to numerical trouble", cut.Name, solveFailure(res, err))
		return
	}

	if pad := res.Objective - tol; pad > 0 {
		logrus.Debugf("\tbacking off cut %s by %g", cut.Name, pad)
		cut.Body.(*model.LinExpr).AddConst(-pad)
	}
}
