package cuttingplane

import (
	"fmt"
	"math"

	"github.com/DavidDB33/gdpcut/pkg/gdp"
	"github.com/DavidDB33/gdpcut/pkg/model"
)

// VarTriple links the images of one source variable across the two
// relaxations, plus the mutable slot holding the current candidate value.
// The three entries always refer to the same original decision variable.
type VarTriple struct {
	RBigM  *model.Var
	RHull  *model.Var
	Target *model.Param
}

// subproblems is the working state of one transformation run: the two
// relaxations, the positional variable correspondence, the disaggregation
// bookkeeping and the growing cut store.
type subproblems struct {
	rBigM *model.Model
	rHull *model.Model
	hull  *gdp.HullRelaxation

	varInfo       []VarTriple
	bigMVars      map[*model.Var]bool
	disaggregated []*model.Var
	isDisaggCons  map[*model.Constraint]bool
	rBigMLinear   []*model.Constraint

	separation *model.Objective
	hullToBigM *model.Substitution
	bigMToHull *model.Substitution

	cuts []*model.Constraint
}

// setupSubproblems builds the big-M relaxation (the artifact handed back to
// the caller, and the model that accumulates cuts) and the hull relaxation
// carrying the target parameters and the least-squares separation objective.
func setupSubproblems(src *model.Model, bigM float64, tighten func(*model.Model) *model.Model) (*subproblems, error) {
	if src.ActiveObjective() == nil {
		return nil, fmt.Errorf("cannot apply the cutting plane transformation without an active objective in the model")
	}

	tighter := src
	if tighten != nil {
		if t := tighten(src); t != nil {
			tighter = t
		}
	}
	if len(tighter.Vars) != len(src.Vars) {
		return nil, fmt.Errorf("tighten-relaxation callback must preserve the variable list (%d vars became %d)",
			len(src.Vars), len(tighter.Vars))
	}

	hull, err := gdp.Hull(tighter)
	if err != nil {
		return nil, fmt.Errorf("hull relaxation: %w", err)
	}
	gdp.RelaxIntegrality(hull.Model, false)

	rBigM, bigMMap, err := gdp.BigM(src, bigM)
	if err != nil {
		return nil, fmt.Errorf("big-M relaxation: %w", err)
	}
	gdp.RelaxIntegrality(rBigM, false)

	sub := &subproblems{
		rBigM:        rBigM,
		rHull:        hull.Model,
		hull:         hull,
		bigMVars:     map[*model.Var]bool{},
		isDisaggCons: map[*model.Constraint]bool{},
	}

	// snapshot of the purely linear rows already in the big-M relaxation,
	// used to avoid re-adding redundant projected cuts later.
	for _, c := range rBigM.ActiveConstraints() {
		if c.Body.Degree() <= 1 {
			sub.rBigMLinear = append(sub.rBigMLinear, c)
		}
	}

	hullMap := hull.CloneMap()
	hullToBigM := map[*model.Var]*model.Var{}
	bigMToHull := map[*model.Var]*model.Var{}
	var pairs []model.DistPair
	for i, v := range src.Vars {
		if v.Fixed {
			continue
		}
		bigMVar := bigMMap.Vars[v]
		hullVar := hullMap.Vars[tighter.Vars[i]]
		target := hull.Model.AddParam("xstar_"+v.Name, math.NaN())
		sub.varInfo = append(sub.varInfo, VarTriple{RBigM: bigMVar, RHull: hullVar, Target: target})
		sub.bigMVars[bigMVar] = true
		hullToBigM[hullVar] = bigMVar
		bigMToHull[bigMVar] = hullVar
		pairs = append(pairs, model.DistPair{V: hullVar, Target: target})
	}
	sub.hullToBigM = &model.Substitution{Vars: hullToBigM}
	sub.bigMToHull = &model.Substitution{Vars: bigMToHull}

	sub.disaggregated = hull.DisaggregatedVars()
	for _, xd := range sub.disaggregated {
		cons := hull.DisaggregationConstraint(hull.SourceVar(xd), hull.Disjunction(xd))
		if cons != nil {
			sub.isDisaggCons[cons] = true
		}
	}

	for _, o := range hull.Model.Objectives {
		o.Active = false
	}
	sub.separation = hull.Model.AddObjective("separation_objective",
		model.NewSquaredDistance(pairs), model.Minimize)

	return sub, nil
}

// addCut appends a canonical body<=0 cut to the store and to the big-M
// relaxation at the next free index, and returns the stored constraint.
func (sub *subproblems) addCut(body *model.LinExpr) *model.Constraint {
	cut := &model.Constraint{
		Name:   fmt.Sprintf("cut_%d", len(sub.cuts)),
		Body:   body,
		LB:     math.Inf(-1),
		UB:     0,
		Active: true,
	}
	sub.cuts = append(sub.cuts, cut)
	sub.rBigM.Constraints = append(sub.rBigM.Constraints, cut)
	return cut
}
