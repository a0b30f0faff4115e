package cuttingplane

import (
	"math"
	"testing"

	. "github.com/onsi/gomega"

	"github.com/DavidDB33/gdpcut/pkg/model"
	"github.com/DavidDB33/gdpcut/pkg/solver"
)

func TestBackOffByFixedTolerance(t *testing.T) {
	g := NewGomegaWithT(t)
	x := &model.Var{Name: "x", LB: 0, UB: 10}
	// cut x <= 5 in canonical form
	cut := &model.Constraint{
		Name:   "cut_0",
		Body:   model.NewLinExpr().AddTerm(1, x).AddConst(-5),
		LB:     math.Inf(-1),
		UB:     0,
		Active: true,
	}

	backOffByFixedTolerance(cut, 0.001)

	// the cut relaxes to x <= 5.001
	body := cut.Body.(*model.LinExpr)
	g.Expect(body.Coef(x)).To(Equal(1.0))
	g.Expect(body.Const).To(Equal(-5.001))
}

// backOffFixture is a one-variable hull relaxation whose feasible region
// reaches up to hullCap, with a pending cut x <= 5 over the big-M variable.
func backOffFixture(hullCap float64) (*subproblems, *model.Constraint, *model.Var) {
	rhull := model.New("hull")
	xh := rhull.AddVar("x", 0, 10)
	rhull.AddConstraint("cap", model.NewLinExpr().AddTerm(1, xh), math.Inf(-1), hullCap)
	tx := rhull.AddParam("xstar_x", 0)
	separation := rhull.AddObjective("separation_objective",
		model.NewSquaredDistance([]model.DistPair{{V: xh, Target: tx}}), model.Minimize)

	rbigm := model.New("bigm")
	xb := rbigm.AddVar("x", 0, 10)

	sub := &subproblems{
		rBigM:      rbigm,
		rHull:      rhull,
		separation: separation,
		bigMToHull: &model.Substitution{Vars: map[*model.Var]*model.Var{xb: xh}},
	}
	cut := &model.Constraint{
		Name:   "cut_0",
		Body:   model.NewLinExpr().AddTerm(1, xb).AddConst(-5),
		LB:     math.Inf(-1),
		UB:     0,
		Active: true,
	}
	return sub, cut, xb
}

func TestBackOffWithCalculatedViolation(t *testing.T) {
	g := NewGomegaWithT(t)
	slv, err := solver.New("simplex", solver.Options{})
	g.Expect(err).NotTo(HaveOccurred())

	// hull-feasible points reach x = 5.2, so x <= 5 is 0.2 too tight
	sub, cut, xb := backOffFixture(5.2)
	backOffWithCalculatedViolation(sub, slv, cut, 1e-8)

	body := cut.Body.(*model.LinExpr)
	g.Expect(body.Coef(xb)).To(Equal(1.0))
	g.Expect(body.Const).To(BeNumerically("~", -5.2+1e-8, 1e-9))

	// the temporary objective is gone and the separation objective is back
	g.Expect(sub.rHull.Objectives).To(HaveLen(1))
	g.Expect(sub.rHull.Objectives[0]).To(BeIdenticalTo(sub.separation))
	g.Expect(sub.separation.Active).To(BeTrue())
}

func TestBackOffWithCalculatedViolation_KeepsValidCuts(t *testing.T) {
	g := NewGomegaWithT(t)
	slv, err := solver.New("simplex", solver.Options{})
	g.Expect(err).NotTo(HaveOccurred())

	// the hull region stays below the cut; no padding happens
	sub, cut, xb := backOffFixture(4)
	backOffWithCalculatedViolation(sub, slv, cut, 1e-8)

	body := cut.Body.(*model.LinExpr)
	g.Expect(body.Coef(xb)).To(Equal(1.0))
	g.Expect(body.Const).To(Equal(-5.0))
}

func TestBackOffWithCalculatedViolation_ToleratesFailedSolves(t *testing.T) {
	g := NewGomegaWithT(t)
	slv, err := solver.New("simplex", solver.Options{})
	g.Expect(err).NotTo(HaveOccurred())

	// an infeasible back-off problem leaves the cut untouched and still
	// restores the separation objective
	sub, cut, xb := backOffFixture(5.2)
	sub.rHull.AddConstraint("clash", model.NewLinExpr().AddTerm(1, sub.rHull.Vars[0]), 6, math.Inf(1))
	backOffWithCalculatedViolation(sub, slv, cut, 1e-8)

	body := cut.Body.(*model.LinExpr)
	g.Expect(body.Const).To(Equal(-5.0))
	g.Expect(body.Coef(xb)).To(Equal(1.0))
	g.Expect(sub.rHull.Objectives).To(HaveLen(1))
	g.Expect(sub.separation.Active).To(BeTrue())
}

func TestPostProcessCut_None(t *testing.T) {
	g := NewGomegaWithT(t)
	cfg := DefaultConfig()
	cfg.BackOff = BackOffNone
	tr, err := New(cfg)
	g.Expect(err).NotTo(HaveOccurred())

	sub, cut, _ := backOffFixture(5.2)
	tr.postProcessCut(sub, cut)
	g.Expect(cut.Body.(*model.LinExpr).Const).To(Equal(-5.0))
}
