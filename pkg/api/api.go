// Package api defines the declarative YAML schema for disjunctive programs
// and compiles it into the symbolic model representation.
package api

import (
	"fmt"
	"math"
	"os"

	"github.com/DavidDB33/gdpcut/pkg/model"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
	"sigs.k8s.io/yaml"
)

type Problem struct {
	Name         string             `json:"name"`
	Variables    []Variable         `json:"variables"`
	Objective    Objective          `json:"objective"`
	Constraints  []LinearConstraint `json:"constraints,omitempty"`
	Disjunctions []Disjunction      `json:"disjunctions,omitempty"`
}

type Variable struct {
	Name string `json:"name"`
	// Lower and Upper default to the respective infinity when omitted.
	Lower *float64 `json:"lower,omitempty"`
	Upper *float64 `json:"upper,omitempty"`
	// Fix pins the variable to a value; fixed variables take no part in the
	// cutting plane correspondence.
	Fix *float64 `json:"fix,omitempty"`
}

type Objective struct {
	// Sense is "min" or "max".
	Sense        string             `json:"sense"`
	Coefficients map[string]float64 `json:"coefficients"`
	Constant     float64            `json:"constant,omitempty"`
}

type LinearConstraint struct {
	Name         string             `json:"name"`
	Coefficients map[string]float64 `json:"coefficients"`
	Lower        *float64           `json:"lower,omitempty"`
	Upper        *float64           `json:"upper,omitempty"`
}

type Disjunction struct {
	Name      string     `json:"name"`
	Disjuncts []Disjunct `json:"disjuncts"`
}

type Disjunct struct {
	Name        string             `json:"name"`
	Constraints []LinearConstraint `json:"constraints"`
}

// LoadProblemFile reads and unmarshals a problem description.
func LoadProblemFile(path string) (*Problem, error) {
	file, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("could not read problem file %s: %w", path, err)
	}
	problem := &Problem{}
	if err := yaml.Unmarshal(file, problem); err != nil {
		return nil, fmt.Errorf("could not parse problem file %s: %w", path, err)
	}
	return problem, nil
}

// Compile validates the problem and builds the symbolic model. Coefficient
// maps are walked in sorted name order so the compiled model is the same on
// every run.
func (p *Problem) Compile() (*model.Model, error) {
	if len(p.Variables) == 0 {
		return nil, fmt.Errorf("problem %s declares no variables", p.Name)
	}
	m := model.New(p.Name)
	vars := map[string]*model.Var{}
	for _, v := range p.Variables {
		if _, exists := vars[v.Name]; exists {
			return nil, fmt.Errorf("duplicate variable %s", v.Name)
		}
		nv := m.AddVar(v.Name, bound(v.Lower, math.Inf(-1)), bound(v.Upper, math.Inf(1)))
		if v.Fix != nil {
			nv.Value = *v.Fix
			nv.Fixed = true
		}
		vars[v.Name] = nv
	}

	obj, err := p.linExpr(p.Objective.Coefficients, vars, "objective")
	if err != nil {
		return nil, err
	}
	obj.AddConst(p.Objective.Constant)
	switch p.Objective.Sense {
	case "min", "minimize", "":
		m.AddObjective("objective", obj, model.Minimize)
	case "max", "maximize":
		m.AddObjective("objective", obj, model.Maximize)
	default:
		return nil, fmt.Errorf("objective sense must be min or max, got %q", p.Objective.Sense)
	}

	for _, c := range p.Constraints {
		if _, err := p.compileConstraint(m, c, vars); err != nil {
			return nil, err
		}
	}

	for _, dj := range p.Disjunctions {
		if len(dj.Disjuncts) < 2 {
			return nil, fmt.Errorf("disjunction %s needs at least two disjuncts", dj.Name)
		}
		disjuncts := make([]*model.Disjunct, 0, len(dj.Disjuncts))
		for _, d := range dj.Disjuncts {
			nd := &model.Disjunct{Name: d.Name}
			for _, c := range d.Constraints {
				cons, err := p.compileConstraint(nil, c, vars)
				if err != nil {
					return nil, fmt.Errorf("disjunct %s: %w", d.Name, err)
				}
				nd.Constraints = append(nd.Constraints, cons)
			}
			disjuncts = append(disjuncts, nd)
		}
		m.AddDisjunction(dj.Name, disjuncts...)
	}
	return m, nil
}

func (p *Problem) compileConstraint(m *model.Model, c LinearConstraint, vars map[string]*model.Var) (*model.Constraint, error) {
	if c.Lower == nil && c.Upper == nil {
		return nil, fmt.Errorf("constraint %s has neither a lower nor an upper bound", c.Name)
	}
	body, err := p.linExpr(c.Coefficients, vars, c.Name)
	if err != nil {
		return nil, err
	}
	lb, ub := bound(c.Lower, math.Inf(-1)), bound(c.Upper, math.Inf(1))
	if m != nil {
		return m.AddConstraint(c.Name, body, lb, ub), nil
	}
	return &model.Constraint{Name: c.Name, Body: body, LB: lb, UB: ub, Active: true}, nil
}

func (p *Problem) linExpr(coefficients map[string]float64, vars map[string]*model.Var, where string) (*model.LinExpr, error) {
	e := model.NewLinExpr()
	names := maps.Keys(coefficients)
	slices.Sort(names)
	for _, name := range names {
		v, exists := vars[name]
		if !exists {
			return nil, fmt.Errorf("%s references unknown variable %s", where, name)
		}
		e.AddTerm(coefficients[name], v)
	}
	return e, nil
}

func bound(b *float64, def float64) float64 {
	if b == nil {
		return def
	}
	return *b
}
