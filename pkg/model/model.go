package model

import (
	"fmt"
	"math"
)

// Sense is the optimization direction of an objective.
type Sense int

const (
	Minimize Sense = iota
	Maximize
)

func (s Sense) String() string {
	if s == Maximize {
		return "maximize"
	}
	return "minimize"
}

// Var is a continuous decision variable. Binary marks variables which are
// conceptually 0/1 indicators; RelaxedBinary is set instead while their
// integrality is relaxed.
type Var struct {
	Name          string
	LB            float64
	UB            float64
	Value         float64
	Fixed         bool
	Binary        bool
	RelaxedBinary bool
}

// Param is a mutable scalar slot referenced by expressions. It is not a
// decision variable: solvers treat its current value as a constant.
type Param struct {
	Name  string
	Value float64
}

// Constraint restricts an expression to lie between LB and UB. A missing
// bound is represented by the corresponding infinity.
type Constraint struct {
	Name   string
	Body   Expr
	LB     float64
	UB     float64
	Active bool
}

func (c *Constraint) HasLB() bool { return !math.IsInf(c.LB, -1) }
func (c *Constraint) HasUB() bool { return !math.IsInf(c.UB, 1) }

// Equality reports whether the constraint pins its body to a single value.
func (c *Constraint) Equality() bool {
	return c.HasLB() && c.HasUB() && c.LB == c.UB
}

type Objective struct {
	Name   string
	Expr   Expr
	Sense  Sense
	Active bool
}

// Disjunct is one alternative of a disjunction: a sub-collection of
// constraints which hold when the disjunct is selected.
type Disjunct struct {
	Name        string
	Constraints []*Constraint
}

// Disjunction is a set of mutually exclusive disjuncts.
type Disjunction struct {
	Name      string
	Disjuncts []*Disjunct
}

// Model is an optimization model. Component slices preserve insertion order
// and all iteration over a model is expected to follow it, so that every
// downstream procedure is deterministic.
type Model struct {
	Name         string
	Vars         []*Var
	Params       []*Param
	Constraints  []*Constraint
	Objectives   []*Objective
	Disjunctions []*Disjunction
}

func New(name string) *Model {
	return &Model{Name: name}
}

func (m *Model) AddVar(name string, lb, ub float64) *Var {
	v := &Var{Name: name, LB: lb, UB: ub}
	m.Vars = append(m.Vars, v)
	return v
}

func (m *Model) AddBinaryVar(name string) *Var {
	v := m.AddVar(name, 0, 1)
	v.Binary = true
	return v
}

func (m *Model) AddParam(name string, value float64) *Param {
	p := &Param{Name: name, Value: value}
	m.Params = append(m.Params, p)
	return p
}

func (m *Model) AddConstraint(name string, body Expr, lb, ub float64) *Constraint {
	c := &Constraint{Name: name, Body: body, LB: lb, UB: ub, Active: true}
	m.Constraints = append(m.Constraints, c)
	return c
}

func (m *Model) AddObjective(name string, e Expr, sense Sense) *Objective {
	o := &Objective{Name: name, Expr: e, Sense: sense, Active: true}
	m.Objectives = append(m.Objectives, o)
	return o
}

func (m *Model) AddDisjunction(name string, disjuncts ...*Disjunct) *Disjunction {
	d := &Disjunction{Name: name, Disjuncts: disjuncts}
	m.Disjunctions = append(m.Disjunctions, d)
	return d
}

// ActiveObjective returns the first active objective, or nil.
func (m *Model) ActiveObjective() *Objective {
	for _, o := range m.Objectives {
		if o.Active {
			return o
		}
	}
	return nil
}

// ActiveConstraints returns all active constraints in insertion order.
func (m *Model) ActiveConstraints() []*Constraint {
	active := make([]*Constraint, 0, len(m.Constraints))
	for _, c := range m.Constraints {
		if c.Active {
			active = append(active, c)
		}
	}
	return active
}

// VarByName is a linear scan, intended for tests and diagnostics.
func (m *Model) VarByName(name string) *Var {
	for _, v := range m.Vars {
		if v.Name == name {
			return v
		}
	}
	return nil
}

// CloneMap relates source components to their images in a cloned model.
type CloneMap struct {
	Vars         map[*Var]*Var
	Params       map[*Param]*Param
	Constraints  map[*Constraint]*Constraint
	Disjuncts    map[*Disjunct]*Disjunct
	Disjunctions map[*Disjunction]*Disjunction
}

// Clone deep-copies the model and returns it together with the component
// mapping. Expressions are rewritten against the cloned variables and
// parameters, so the clone shares no mutable state with the source.
func (m *Model) Clone() (*Model, *CloneMap) {
	cm := &CloneMap{
		Vars:         map[*Var]*Var{},
		Params:       map[*Param]*Param{},
		Constraints:  map[*Constraint]*Constraint{},
		Disjuncts:    map[*Disjunct]*Disjunct{},
		Disjunctions: map[*Disjunction]*Disjunction{},
	}
	clone := New(m.Name)
	for _, v := range m.Vars {
		nv := &Var{}
		*nv = *v
		clone.Vars = append(clone.Vars, nv)
		cm.Vars[v] = nv
	}
	for _, p := range m.Params {
		np := &Param{}
		*np = *p
		clone.Params = append(clone.Params, np)
		cm.Params[p] = np
	}
	sub := &Substitution{Vars: cm.Vars, Params: cm.Params}
	cloneConstraint := func(c *Constraint) *Constraint {
		nc := &Constraint{Name: c.Name, Body: c.Body.Substitute(sub), LB: c.LB, UB: c.UB, Active: c.Active}
		cm.Constraints[c] = nc
		return nc
	}
	for _, c := range m.Constraints {
		clone.Constraints = append(clone.Constraints, cloneConstraint(c))
	}
	for _, o := range m.Objectives {
		clone.Objectives = append(clone.Objectives, &Objective{
			Name:   o.Name,
			Expr:   o.Expr.Substitute(sub),
			Sense:  o.Sense,
			Active: o.Active,
		})
	}
	for _, dj := range m.Disjunctions {
		ndj := &Disjunction{Name: dj.Name}
		for _, d := range dj.Disjuncts {
			nd := &Disjunct{Name: d.Name}
			for _, c := range d.Constraints {
				nd.Constraints = append(nd.Constraints, cloneConstraint(c))
			}
			cm.Disjuncts[d] = nd
			ndj.Disjuncts = append(ndj.Disjuncts, nd)
		}
		cm.Disjunctions[dj] = ndj
		clone.Disjunctions = append(clone.Disjunctions, ndj)
	}
	return clone, cm
}

func (v *Var) String() string {
	return fmt.Sprintf("%s[%g,%g]=%g", v.Name, v.LB, v.UB, v.Value)
}

func (c *Constraint) String() string {
	switch {
	case c.Equality():
		return fmt.Sprintf("%s: %s == %g", c.Name, c.Body, c.LB)
	case c.HasLB() && c.HasUB():
		return fmt.Sprintf("%s: %g <= %s <= %g", c.Name, c.LB, c.Body, c.UB)
	case c.HasLB():
		return fmt.Sprintf("%s: %s >= %g", c.Name, c.Body, c.LB)
	default:
		return fmt.Sprintf("%s: %s <= %g", c.Name, c.Body, c.UB)
	}
}
