package cuttingplane

import (
	"math"
	"testing"

	. "github.com/onsi/gomega"

	"github.com/DavidDB33/gdpcut/pkg/model"
)

func TestCreateCutsNormalVector(t *testing.T) {
	g := NewGomegaWithT(t)
	cfg := DefaultConfig()

	rbigm := model.New("bigm")
	xb := rbigm.AddVar("x", 0, 10)
	yb := rbigm.AddVar("y", 0, 10)
	xb.Value, yb.Value = 2, 2

	rhull := model.New("hull")
	xh := rhull.AddVar("x", 0, 10)
	yh := rhull.AddVar("y", 0, 10)
	xh.Value, yh.Value = 1, 1
	tx := rhull.AddParam("xstar_x", 2)
	ty := rhull.AddParam("xstar_y", 2)

	sub := &subproblems{
		rBigM: rbigm,
		rHull: rhull,
		varInfo: []VarTriple{
			{RBigM: xb, RHull: xh, Target: tx},
			{RBigM: yb, RHull: yh, Target: ty},
		},
	}

	cuts := createCutsNormalVector(sub, &cfg)
	g.Expect(cuts).To(HaveLen(1))

	// x* = (2,2), xhat = (1,1): the cut is x + y - 2 <= 0 and its value at x*
	// equals the squared separation distance
	body := cuts[0]
	g.Expect(body.Coef(xb)).To(Equal(1.0))
	g.Expect(body.Coef(yb)).To(Equal(1.0))
	g.Expect(body.Const).To(Equal(-2.0))
	g.Expect(body.Value()).To(Equal(2.0))
}

func TestCreateCutsNormalVector_FiltersWeakCuts(t *testing.T) {
	g := NewGomegaWithT(t)
	cfg := DefaultConfig()

	rbigm := model.New("bigm")
	xb := rbigm.AddVar("x", 0, 10)
	xb.Value = 2

	rhull := model.New("hull")
	xh := rhull.AddVar("x", 0, 10)
	xh.Value = 2 + 1e-3
	tx := rhull.AddParam("xstar_x", 2)

	sub := &subproblems{
		rBigM:   rbigm,
		rHull:   rhull,
		varInfo: []VarTriple{{RBigM: xb, RHull: xh, Target: tx}},
	}

	// the violation is the squared distance 1e-6, below the 0.001 threshold
	g.Expect(createCutsNormalVector(sub, &cfg)).To(BeEmpty())

	// a separating point identical to x* yields no direction at all
	xh.Value = 2
	g.Expect(createCutsNormalVector(sub, &cfg)).To(BeEmpty())
}

// fmeSubproblems builds a hand-sized separation state: hull constraints
// x + y <= 2 and xd - y <= 0 tight at the separating point (1,1), one
// disaggregated copy xd of x linked by xd's disaggregation equality, and a
// big-M candidate point at (2,2).
func fmeSubproblems() (*subproblems, *model.Var, *model.Var, *model.Var) {
	rhull := model.New("hull")
	xh := rhull.AddVar("x", 0, 2)
	yh := rhull.AddVar("y", 0, 2)
	xd := rhull.AddVar("x_d", 0, 2)
	xh.Value, yh.Value, xd.Value = 1, 1, 1

	rhull.AddConstraint("budget", model.NewLinExpr().AddTerm(1, xh).AddTerm(1, yh), math.Inf(-1), 2)
	rhull.AddConstraint("order", model.NewLinExpr().AddTerm(1, xd).AddTerm(-1, yh), math.Inf(-1), 0)
	disagg := rhull.AddConstraint("disagg_x", model.NewLinExpr().AddTerm(1, xh).AddTerm(-1, xd), 0, 0)

	rbigm := model.New("bigm")
	xb := rbigm.AddVar("x", 0, 10)
	yb := rbigm.AddVar("y", 0, 10)
	xb.Value, yb.Value = 2, 2

	sub := &subproblems{
		rBigM:         rbigm,
		rHull:         rhull,
		disaggregated: []*model.Var{xd},
		isDisaggCons:  map[*model.Constraint]bool{disagg: true},
		bigMVars:      map[*model.Var]bool{xb: true, yb: true},
		hullToBigM:    &model.Substitution{Vars: map[*model.Var]*model.Var{xh: xb, yh: yb}},
		varInfo: []VarTriple{
			{RBigM: xb, RHull: xh},
			{RBigM: yb, RHull: yh},
		},
	}
	return sub, xb, yb, xd
}

func TestCreateCutsFME(t *testing.T) {
	g := NewGomegaWithT(t)
	cfg := DefaultConfig()
	sub, xb, yb, xd := fmeSubproblems()

	cuts, err := createCutsFME(sub, &cfg)
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(cuts).To(HaveLen(1))

	// the disaggregated copy is projected out and the translated cut keeps
	// the 1:1 coefficient ratio of x + y <= 2
	cut := cuts[0]
	g.Expect(cut.Coef(xd)).To(Equal(0.0))
	g.Expect(cut.Coef(xb)).To(Equal(cut.Coef(yb)))
	g.Expect(cut.Coef(xb)).To(BeNumerically(">", 0))

	// the most violated projected survivor is x + y <= 2, cutting (2,2) off
	// by 2
	g.Expect(cut.Value() / cut.Coef(xb)).To(BeNumerically("~", 2, 1e-9))
	xb.Value, yb.Value = 1, 1
	g.Expect(cut.Value()).To(BeNumerically("~", 0, 1e-9))
}

func TestCreateCutsFME_SkipsDuplicateRows(t *testing.T) {
	g := NewGomegaWithT(t)
	cfg := DefaultConfig()
	sub, xb, yb, _ := fmeSubproblems()

	// with x + y <= 2 already present in the relaxation, the projection must
	// not offer it again; the next most violated survivor is x <= 1
	sub.rBigMLinear = []*model.Constraint{
		{
			Name:   "budget",
			Body:   model.NewLinExpr().AddTerm(1, xb).AddTerm(1, yb),
			LB:     math.Inf(-1),
			UB:     2,
			Active: true,
		},
	}
	cuts, err := createCutsFME(sub, &cfg)
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(cuts).To(HaveLen(1))
	g.Expect(cuts[0].Coef(xb)).To(Equal(2.0))
	g.Expect(cuts[0].Coef(yb)).To(Equal(0.0))
	g.Expect(cuts[0].Const).To(Equal(-2.0))
}

func TestCreateCutsFME_InteriorPoint(t *testing.T) {
	g := NewGomegaWithT(t)
	cfg := DefaultConfig()
	sub, _, _, xd := fmeSubproblems()

	// nothing is tight at (0.1, 0.2): no composite normal, no cut
	sub.rHull.Vars[0].Value = 0.1
	sub.rHull.Vars[1].Value = 0.2
	xd.Value = 0.1

	cuts, err := createCutsFME(sub, &cfg)
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(cuts).To(BeEmpty())
}

func TestTightMultiplier(t *testing.T) {
	x := &model.Var{Name: "x"}
	body := model.NewLinExpr().AddTerm(1, x)
	tests := []struct {
		name   string
		value  float64
		lb, ub float64
		want   int
	}{
		{name: "at the upper bound", value: 2, lb: math.Inf(-1), ub: 2, want: 1},
		{name: "above the upper bound", value: 2.5, lb: math.Inf(-1), ub: 2, want: 1},
		{name: "at the lower bound", value: 1, lb: 1, ub: math.Inf(1), want: -1},
		{name: "strictly inside", value: 1.5, lb: 1, ub: 2, want: 0},
		{name: "pinned by an equality", value: 1, lb: 1, ub: 1, want: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := NewGomegaWithT(t)
			x.Value = tt.value
			c := &model.Constraint{Name: "c", Body: body, LB: tt.lb, UB: tt.ub, Active: true}
			g.Expect(tightMultiplier(c)).To(Equal(tt.want))
		})
	}
}
