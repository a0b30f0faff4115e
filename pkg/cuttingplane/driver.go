package cuttingplane

import (
	"fmt"
	"math"

	"github.com/DavidDB33/gdpcut/pkg/gdp"
	"github.com/DavidDB33/gdpcut/pkg/model"
	"github.com/DavidDB33/gdpcut/pkg/solver"
	"github.com/sirupsen/logrus"
)

// State is the terminal state of the separation loop.
type State int

const (
	// StateIterating is the initial, non-terminal state.
	StateIterating State = iota
	// StateConverged means the candidate point was (nearly) hull feasible:
	// the separation distance fell below the improvement threshold.
	StateConverged
	// StateStalled means no qualifying cut was found or the objective
	// stopped improving. A normal way to finish, not an error.
	StateStalled
	// StateSolveFailed means a relaxation or separation solve terminated
	// abnormally; the relaxation as refined so far was returned.
	StateSolveFailed
)

func (s State) String() string {
	switch s {
	case StateIterating:
		return "iterating"
	case StateConverged:
		return "converged"
	case StateStalled:
		return "stalled"
	case StateSolveFailed:
		return "solve-failed"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Result is what a transformation run hands back: the big-M relaxation with
// every accumulated cut attached, the cut store itself, and how the loop
// ended.
type Result struct {
	// Relaxation is the big-M relaxation of the source program, with the
	// accumulated cuts appended and integrality restored on the indicator
	// variables.
	Relaxation *model.Model
	// Cuts indexes the accumulated cuts in the order they were added. The
	// same constraints are attached to Relaxation.
	Cuts []*model.Constraint
	// State reports how the loop terminated.
	State State
	// Rounds is the number of completed relaxation solves.
	Rounds int
	// Objective is the relaxation objective of the last successful solve.
	Objective float64
}

// Transformation is the configured cutting-plane procedure. The zero value
// is not usable; build it with New.
type Transformation struct {
	cfg Config
	slv solver.Interface
}

// New validates the configuration and builds the transformation.
func New(cfg Config) (*Transformation, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	slv := cfg.SolverImpl
	if slv == nil {
		var err error
		slv, err = solver.New(cfg.Solver, cfg.SolverOptions)
		if err != nil {
			return nil, err
		}
	}
	return &Transformation{cfg: cfg, slv: slv}, nil
}

// Apply runs the transformation against the disjunctive program and returns
// the strengthened big-M relaxation. The source program is never mutated;
// bigM <= 0 lets the reformulation infer constraint-wise values.
//
// The whole procedure is synchronous and single-threaded; a caller wanting a
// deadline has to impose it around this call.
func Apply(src *model.Model, bigM float64, cfg Config) (*Result, error) {
	t, err := New(cfg)
	if err != nil {
		return nil, err
	}
	return t.Apply(src, bigM)
}

func (t *Transformation) Apply(src *model.Model, bigM float64) (*Result, error) {
	if t.cfg.Verbose {
		logrus.SetLevel(logrus.DebugLevel)
	}
	sub, err := setupSubproblems(src, bigM, t.cfg.TightenRelaxation)
	if err != nil {
		return nil, err
	}

	res, err := t.generateCuttingPlanes(sub)
	if err != nil {
		return nil, err
	}

	// hand the relaxation back with the indicator integrality restored; the
	// caller decides whether to solve it as a MIP or relax again.
	gdp.RelaxIntegrality(sub.rBigM, true)
	return res, nil
}

func (t *Transformation) generateCuttingPlanes(sub *subproblems) (*Result, error) {
	eps := t.cfg.MinImprovementThreshold
	prevObj := math.Inf(1)
	state := StateIterating
	rounds := 0
	lastObj := math.NaN()

	for state == StateIterating {
		res, err := t.slv.Solve(sub.rBigM)
		if err != nil || res.Status != solver.StatusOptimal {
			logrus.Warnf("relaxed big-M subproblem did not solve normally (%s); stopping cutting plane generation",
				solveFailure(res, err))
			state = StateSolveFailed
			break
		}
		rounds++
		lastObj = res.Objective
		logrus.Infof("round %d: relaxed big-M objective = %g", rounds, lastObj)

		// the candidate point x* moves into the target slots and seeds the
		// hull variables as the separation starting point.
		for _, tr := range sub.varInfo {
			tr.Target.Value = tr.RBigM.Value
			tr.RHull.Value = tr.RBigM.Value
			logrus.Debugf("\tx* %s = %g", tr.RBigM.Name, tr.RBigM.Value)
		}

		// absolute difference close to zero, relative difference further
		// out; avoids false convergence near zero objectives.
		improvement := prevObj - lastObj
		improving := math.IsInf(improvement, 0) ||
			(math.Abs(lastObj) < 1 && math.Abs(improvement) > eps) ||
			(math.Abs(lastObj) >= 1 && math.Abs(improvement/prevObj) > eps)

		sep, err := t.slv.Solve(sub.rHull)
		if err != nil || sep.Status != solver.StatusOptimal {
			logrus.Warnf("hull separation subproblem did not solve normally (%s); stopping cutting plane generation",
				solveFailure(sep, err))
			state = StateSolveFailed
			break
		}
		for _, tr := range sub.varInfo {
			logrus.Debugf("\txhat %s = %g", tr.RHull.Name, tr.RHull.Value)
		}

		// a (near) zero separation distance means x* is already in the hull
		// region, or the separation vector is too small to trust.
		if math.Abs(sep.Objective) < eps {
			logrus.Infof("round %d: separation distance %g below threshold, converged", rounds, sep.Objective)
			state = StateConverged
			break
		}

		cuts, err := t.createCuts(sub)
		if err != nil {
			return nil, err
		}
		if len(cuts) == 0 || !improving {
			state = StateStalled
			break
		}

		for _, body := range cuts {
			cut := sub.addCut(body)
			logrus.Infof("adding cut %s to the big-M model", cut.Name)
			t.postProcessCut(sub, cut)
		}
		prevObj = lastObj
	}

	return &Result{
		Relaxation: sub.rBigM,
		Cuts:       sub.cuts,
		State:      state,
		Rounds:     rounds,
		Objective:  lastObj,
	}, nil
}

func (t *Transformation) createCuts(sub *subproblems) ([]*model.LinExpr, error) {
	switch t.cfg.CutStrategy {
	case CutStrategyFME:
		return createCutsFME(sub, &t.cfg)
	default:
		return createCutsNormalVector(sub, &t.cfg), nil
	}
}

func solveFailure(res solver.Result, err error) string {
	if err != nil {
		return err.Error()
	}
	return res.Status.String()
}
