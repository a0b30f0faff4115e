package model

import (
	"fmt"
	"strings"
)

// Expr is an algebraic expression over variables and parameters. Value
// evaluates it against the current variable and parameter values. Diff
// returns the symbolic first partial derivative with respect to v, which is
// again an expression (parameters stay symbolic, so the derivative tracks
// later parameter updates).
type Expr interface {
	Value() float64
	Degree() int
	Diff(v *Var) Expr
	Substitute(s *Substitution) Expr
	String() string
}

// Substitution maps expression components to replacements. Components
// without an entry are kept as-is.
type Substitution struct {
	Vars   map[*Var]*Var
	Params map[*Param]*Param
}

func (s *Substitution) replaceVar(v *Var) *Var {
	if s == nil || s.Vars == nil {
		return v
	}
	if nv, ok := s.Vars[v]; ok {
		return nv
	}
	return v
}

func (s *Substitution) replaceParam(p *Param) *Param {
	if s == nil || s.Params == nil {
		return p
	}
	if np, ok := s.Params[p]; ok {
		return np
	}
	return p
}

// Term is a coefficient times a variable.
type Term struct {
	Coef float64
	Var  *Var
}

// ParamTerm is a coefficient times a parameter.
type ParamTerm struct {
	Coef  float64
	Param *Param
}

// LinExpr is an affine expression: sum of variable terms, parameter terms
// and a constant. Terms keep insertion order; AddTerm folds repeated
// variables into the existing term.
type LinExpr struct {
	Terms  []Term
	Params []ParamTerm
	Const  float64
}

func NewLinExpr() *LinExpr { return &LinExpr{} }

func (e *LinExpr) AddTerm(coef float64, v *Var) *LinExpr {
	for i := range e.Terms {
		if e.Terms[i].Var == v {
			e.Terms[i].Coef += coef
			return e
		}
	}
	e.Terms = append(e.Terms, Term{Coef: coef, Var: v})
	return e
}

func (e *LinExpr) AddParamTerm(coef float64, p *Param) *LinExpr {
	for i := range e.Params {
		if e.Params[i].Param == p {
			e.Params[i].Coef += coef
			return e
		}
	}
	e.Params = append(e.Params, ParamTerm{Coef: coef, Param: p})
	return e
}

func (e *LinExpr) AddConst(c float64) *LinExpr {
	e.Const += c
	return e
}

// Coef returns the coefficient of v, 0 when v does not appear.
func (e *LinExpr) Coef(v *Var) float64 {
	for _, t := range e.Terms {
		if t.Var == v {
			return t.Coef
		}
	}
	return 0
}

// Offset evaluates the variable-free part of the expression.
func (e *LinExpr) Offset() float64 {
	c := e.Const
	for _, t := range e.Params {
		c += t.Coef * t.Param.Value
	}
	return c
}

func (e *LinExpr) Value() float64 {
	val := e.Offset()
	for _, t := range e.Terms {
		val += t.Coef * t.Var.Value
	}
	return val
}

func (e *LinExpr) Degree() int {
	for _, t := range e.Terms {
		if t.Coef != 0 {
			return 1
		}
	}
	return 0
}

func (e *LinExpr) Diff(v *Var) Expr {
	return &LinExpr{Const: e.Coef(v)}
}

func (e *LinExpr) Substitute(s *Substitution) Expr {
	ne := &LinExpr{Const: e.Const}
	for _, t := range e.Terms {
		ne.AddTerm(t.Coef, s.replaceVar(t.Var))
	}
	for _, t := range e.Params {
		ne.AddParamTerm(t.Coef, s.replaceParam(t.Param))
	}
	return ne
}

// Clone returns an independent copy sharing the same variables.
func (e *LinExpr) Clone() *LinExpr {
	return e.Substitute(nil).(*LinExpr)
}

func (e *LinExpr) String() string {
	b := new(strings.Builder)
	for _, t := range e.Terms {
		fmt.Fprintf(b, "%+g*%s ", t.Coef, t.Var.Name)
	}
	for _, t := range e.Params {
		fmt.Fprintf(b, "%+g*%s ", t.Coef, t.Param.Name)
	}
	fmt.Fprintf(b, "%+g", e.Const)
	return b.String()
}

// DistPair is one (variable, target) component of a squared distance.
type DistPair struct {
	V      *Var
	Target *Param
}

// SquaredDistance is the least-squares separation objective
// sum_i (v_i - target_i)^2.
type SquaredDistance struct {
	Pairs []DistPair
}

func NewSquaredDistance(pairs []DistPair) *SquaredDistance {
	return &SquaredDistance{Pairs: pairs}
}

func (e *SquaredDistance) Value() float64 {
	val := 0.0
	for _, p := range e.Pairs {
		d := p.V.Value - p.Target.Value
		val += d * d
	}
	return val
}

func (e *SquaredDistance) Degree() int { return 2 }

// Diff yields 2*(v - target): an affine expression with a parameter term, so
// it stays correct when the target slot is overwritten between rounds.
func (e *SquaredDistance) Diff(v *Var) Expr {
	for _, p := range e.Pairs {
		if p.V == v {
			le := NewLinExpr()
			le.AddTerm(2, v)
			le.AddParamTerm(-2, p.Target)
			return le
		}
	}
	return &LinExpr{}
}

func (e *SquaredDistance) Substitute(s *Substitution) Expr {
	ne := &SquaredDistance{Pairs: make([]DistPair, 0, len(e.Pairs))}
	for _, p := range e.Pairs {
		ne.Pairs = append(ne.Pairs, DistPair{V: s.replaceVar(p.V), Target: s.replaceParam(p.Target)})
	}
	return ne
}

func (e *SquaredDistance) String() string {
	parts := make([]string, 0, len(e.Pairs))
	for _, p := range e.Pairs {
		parts = append(parts, fmt.Sprintf("(%s-%s)^2", p.V.Name, p.Target.Name))
	}
	return strings.Join(parts, " + ")
}

// Gradient returns the symbolic first partial derivatives of e with respect
// to each variable in wrt, in order.
func Gradient(e Expr, wrt []*Var) []Expr {
	grads := make([]Expr, len(wrt))
	for i, v := range wrt {
		grads[i] = e.Diff(v)
	}
	return grads
}
