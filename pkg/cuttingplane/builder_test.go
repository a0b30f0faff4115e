package cuttingplane

import (
	"math"
	"testing"

	. "github.com/onsi/gomega"

	"github.com/DavidDB33/gdpcut/pkg/model"
)

func TestSetupSubproblems(t *testing.T) {
	g := NewGomegaWithT(t)
	src := conveyorProgram()

	sub, err := setupSubproblems(src, 100, nil)
	g.Expect(err).NotTo(HaveOccurred())

	// one correspondence triple per source variable, in declaration order
	g.Expect(sub.varInfo).To(HaveLen(2))
	g.Expect(sub.varInfo[0].RBigM.Name).To(Equal("x"))
	g.Expect(sub.varInfo[0].RHull.Name).To(Equal("x"))
	g.Expect(sub.varInfo[0].Target.Name).To(Equal("xstar_x"))
	g.Expect(math.IsNaN(sub.varInfo[0].Target.Value)).To(BeTrue())
	g.Expect(sub.varInfo[0].RBigM).NotTo(BeIdenticalTo(src.Vars[0]))
	g.Expect(sub.varInfo[0].RBigM).NotTo(BeIdenticalTo(sub.varInfo[0].RHull))
	g.Expect(sub.bigMVars).To(HaveKey(sub.varInfo[0].RBigM))

	// both relaxations carry relaxed indicator variables
	for _, m := range []*model.Model{sub.rBigM, sub.rHull} {
		for _, v := range m.Vars {
			g.Expect(v.Binary).To(BeFalse())
		}
	}
	g.Expect(sub.rBigM.VarByName("shape_tall_indicator").RelaxedBinary).To(BeTrue())

	// the variable correspondence maps run in both directions
	xh := sub.varInfo[0].RHull
	xb := sub.varInfo[0].RBigM
	g.Expect(sub.hullToBigM.Vars[xh]).To(BeIdenticalTo(xb))
	g.Expect(sub.bigMToHull.Vars[xb]).To(BeIdenticalTo(xh))

	// the hull relaxation carries only the least-squares separation objective
	g.Expect(sub.rHull.ActiveObjective()).To(BeIdenticalTo(sub.separation))
	g.Expect(sub.separation.Name).To(Equal("separation_objective"))
	g.Expect(sub.separation.Sense).To(Equal(model.Minimize))
	g.Expect(sub.separation.Expr.Degree()).To(Equal(2))

	// the disaggregation bookkeeping covers every copy
	g.Expect(sub.disaggregated).To(HaveLen(4))
	g.Expect(sub.isDisaggCons).To(HaveLen(2))

	// the linear-row snapshot covers the relaxation rows present before any
	// cut is added
	g.Expect(sub.rBigMLinear).To(HaveLen(len(sub.rBigM.ActiveConstraints())))
}

func TestSetupSubproblems_SkipsFixedVariables(t *testing.T) {
	g := NewGomegaWithT(t)
	src := conveyorProgram()
	f := src.AddVar("f", 0, 1)
	f.Value = 1
	f.Fixed = true

	sub, err := setupSubproblems(src, 100, nil)
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(sub.varInfo).To(HaveLen(2))
	for _, tr := range sub.varInfo {
		g.Expect(tr.RBigM.Name).NotTo(Equal("f"))
	}
}

func TestAddCut(t *testing.T) {
	g := NewGomegaWithT(t)
	src := conveyorProgram()
	sub, err := setupSubproblems(src, 100, nil)
	g.Expect(err).NotTo(HaveOccurred())

	before := len(sub.rBigM.Constraints)
	body := model.NewLinExpr().AddTerm(1, sub.varInfo[0].RBigM).AddConst(-2)
	cut := sub.addCut(body)

	g.Expect(cut.Name).To(Equal("cut_0"))
	g.Expect(cut.UB).To(Equal(0.0))
	g.Expect(cut.HasLB()).To(BeFalse())
	g.Expect(cut.Active).To(BeTrue())
	g.Expect(sub.cuts).To(Equal([]*model.Constraint{cut}))
	g.Expect(sub.rBigM.Constraints).To(HaveLen(before + 1))

	second := sub.addCut(model.NewLinExpr().AddConst(-1))
	g.Expect(second.Name).To(Equal("cut_1"))
}
