package model

import (
	"math"
	"testing"

	. "github.com/onsi/gomega"
)

func TestConstraint_Bounds(t *testing.T) {
	tests := []struct {
		name     string
		lb, ub   float64
		hasLB    bool
		hasUB    bool
		equality bool
	}{
		{name: "upper bound only", lb: math.Inf(-1), ub: 2, hasUB: true},
		{name: "lower bound only", lb: 2, ub: math.Inf(1), hasLB: true},
		{name: "range", lb: 1, ub: 2, hasLB: true, hasUB: true},
		{name: "equality", lb: 2, ub: 2, hasLB: true, hasUB: true, equality: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := NewGomegaWithT(t)
			c := &Constraint{Name: "c", Body: NewLinExpr(), LB: tt.lb, UB: tt.ub}
			g.Expect(c.HasLB()).To(Equal(tt.hasLB))
			g.Expect(c.HasUB()).To(Equal(tt.hasUB))
			g.Expect(c.Equality()).To(Equal(tt.equality))
		})
	}
}

func TestModel_ActiveComponents(t *testing.T) {
	g := NewGomegaWithT(t)
	m := New("p")
	x := m.AddVar("x", 0, 1)
	c1 := m.AddConstraint("c1", NewLinExpr().AddTerm(1, x), math.Inf(-1), 1)
	c2 := m.AddConstraint("c2", NewLinExpr().AddTerm(1, x), 0, math.Inf(1))
	o1 := m.AddObjective("o1", NewLinExpr().AddTerm(1, x), Minimize)
	o2 := m.AddObjective("o2", NewLinExpr().AddTerm(-1, x), Maximize)

	g.Expect(m.ActiveObjective()).To(BeIdenticalTo(o1))
	o1.Active = false
	g.Expect(m.ActiveObjective()).To(BeIdenticalTo(o2))
	o2.Active = false
	g.Expect(m.ActiveObjective()).To(BeNil())

	g.Expect(m.ActiveConstraints()).To(Equal([]*Constraint{c1, c2}))
	c1.Active = false
	g.Expect(m.ActiveConstraints()).To(Equal([]*Constraint{c2}))

	g.Expect(m.VarByName("x")).To(BeIdenticalTo(x))
	g.Expect(m.VarByName("nope")).To(BeNil())
}

func TestModel_Clone(t *testing.T) {
	g := NewGomegaWithT(t)
	m := New("p")
	x := m.AddVar("x", 0, 10)
	x.Value = 3
	y := m.AddBinaryVar("y")
	p := m.AddParam("p", 4)
	body := NewLinExpr().AddTerm(2, x).AddParamTerm(1, p)
	c := m.AddConstraint("c", body, math.Inf(-1), 8)
	m.AddObjective("obj", NewLinExpr().AddTerm(1, x), Minimize)
	d1 := &Disjunct{Name: "d1", Constraints: []*Constraint{
		{Name: "dc", Body: NewLinExpr().AddTerm(1, x), LB: math.Inf(-1), UB: 1, Active: true},
	}}
	d2 := &Disjunct{Name: "d2", Constraints: []*Constraint{
		{Name: "dc2", Body: NewLinExpr().AddTerm(1, x), LB: 5, UB: math.Inf(1), Active: true},
	}}
	dj := m.AddDisjunction("dj", d1, d2)

	clone, cm := m.Clone()

	g.Expect(clone.Vars).To(HaveLen(2))
	g.Expect(clone.Constraints).To(HaveLen(1))
	g.Expect(clone.Objectives).To(HaveLen(1))
	g.Expect(clone.Disjunctions).To(HaveLen(1))

	cx := cm.Vars[x]
	g.Expect(cx).NotTo(BeIdenticalTo(x))
	g.Expect(cx.Name).To(Equal("x"))
	g.Expect(cx.Value).To(Equal(3.0))
	g.Expect(cm.Vars[y].Binary).To(BeTrue())

	// cloned expressions are rewritten against the cloned components
	cc := cm.Constraints[c]
	ccBody := cc.Body.(*LinExpr)
	g.Expect(ccBody.Coef(cx)).To(Equal(2.0))
	g.Expect(ccBody.Coef(x)).To(Equal(0.0))
	cm.Params[p].Value = 6
	g.Expect(ccBody.Offset()).To(Equal(6.0))
	g.Expect(body.Offset()).To(Equal(4.0))

	// disjunct structure survives and maps back
	cdj := cm.Disjunctions[dj]
	g.Expect(cdj.Disjuncts).To(HaveLen(2))
	g.Expect(cm.Disjuncts[d1]).To(BeIdenticalTo(cdj.Disjuncts[0]))
	g.Expect(cdj.Disjuncts[0].Constraints[0].Body.(*LinExpr).Coef(cx)).To(Equal(1.0))

	// mutating the clone never reaches the source
	cx.Value = 99
	cc.Active = false
	g.Expect(x.Value).To(Equal(3.0))
	g.Expect(c.Active).To(BeTrue())
}
