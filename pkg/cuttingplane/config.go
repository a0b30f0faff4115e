// Package cuttingplane strengthens the big-M relaxation of a disjunctive
// program by iteratively adding cuts derived from its hull relaxation: each
// round solves the big-M relaxation, projects the resulting point onto the
// hull feasible region through a least-squares separation problem, and turns
// the separation into a linear inequality that removes the point without
// excluding any feasible solution.
package cuttingplane

import (
	"fmt"

	"github.com/DavidDB33/gdpcut/pkg/model"
	"github.com/DavidDB33/gdpcut/pkg/solver"
)

// CutStrategy selects the cut generator.
type CutStrategy int

const (
	// CutStrategyNormalVector builds the supporting hyperplane of the hull
	// region at the separating point. Cheapest, may be numerically looser.
	CutStrategyNormalVector CutStrategy = iota
	// CutStrategyFME sums the normals of all constraints active at the
	// separating point and projects the disaggregated variables out of the
	// resulting system with Fourier-Motzkin elimination. Exponential worst
	// case, tighter cuts.
	CutStrategyFME
)

func (s CutStrategy) String() string {
	switch s {
	case CutStrategyNormalVector:
		return "normal-vector"
	case CutStrategyFME:
		return "fme"
	default:
		return fmt.Sprintf("CutStrategy(%d)", int(s))
	}
}

// BackOffStrategy selects how a freshly generated cut is padded to
// compensate for numerical slack.
type BackOffStrategy int

const (
	// BackOffCalculated maximizes the cut body over the hull relaxation and
	// pads by the measured slack. One extra solve per cut.
	BackOffCalculated BackOffStrategy = iota
	// BackOffFixedTolerance pads every cut by the configured tolerance.
	BackOffFixedTolerance
	// BackOffNone leaves cuts untouched.
	BackOffNone
)

func (s BackOffStrategy) String() string {
	switch s {
	case BackOffCalculated:
		return "calculated"
	case BackOffFixedTolerance:
		return "fixed-tolerance"
	case BackOffNone:
		return "none"
	default:
		return fmt.Sprintf("BackOffStrategy(%d)", int(s))
	}
}

// Config is the full configuration surface of the transformation.
type Config struct {
	// Solver identifies the backend used for the relaxation, separation and
	// back-off solves. Empty selects the default simplex backend.
	Solver string
	// SolverOptions is passed through to the backend.
	SolverOptions solver.Options
	// SolverImpl, when set, is used directly and Solver is ignored. Intended
	// for tests and callers with custom backends.
	SolverImpl solver.Interface
	// Verbose raises the log detail of the iteration loop.
	Verbose bool
	// StreamSolver raises per-iteration solver progress to the log.
	StreamSolver bool
	// MinImprovementThreshold stops the loop once consecutive relaxation
	// objectives differ by less than this (absolute near zero, relative
	// otherwise). Must be positive.
	MinImprovementThreshold float64
	// TightenRelaxation may rewrite the program before the hull relaxation
	// is taken. It must preserve the variable list. Nil keeps the program.
	TightenRelaxation func(*model.Model) *model.Model
	// CutStrategy selects the cut generator.
	CutStrategy CutStrategy
	// BackOff selects the cut post-processing.
	BackOff BackOffStrategy
	// BackOffTolerance pads post-processed cuts. Non-negative.
	BackOffTolerance float64
	// CutFilteringThreshold is the minimum violation at the relaxed optimum
	// a candidate cut must reach to be added. Non-negative.
	CutFilteringThreshold float64
	// ZeroTolerance is the magnitude below which Fourier-Motzkin elimination
	// treats a coefficient as zero. Non-negative.
	ZeroTolerance float64
}

// DefaultConfig mirrors the documented defaults of the transformation.
func DefaultConfig() Config {
	return Config{
		Solver:                  "simplex",
		MinImprovementThreshold: 0.01,
		CutStrategy:             CutStrategyNormalVector,
		BackOff:                 BackOffCalculated,
		BackOffTolerance:        1e-8,
		CutFilteringThreshold:   0.001,
		ZeroTolerance:           1e-9,
	}
}

func (c *Config) validate() error {
	if c.MinImprovementThreshold <= 0 {
		return fmt.Errorf("minimum improvement threshold must be positive, got %g", c.MinImprovementThreshold)
	}
	if c.BackOffTolerance < 0 {
		return fmt.Errorf("back-off tolerance must be non-negative, got %g", c.BackOffTolerance)
	}
	if c.CutFilteringThreshold < 0 {
		return fmt.Errorf("cut filtering threshold must be non-negative, got %g", c.CutFilteringThreshold)
	}
	if c.ZeroTolerance < 0 {
		return fmt.Errorf("zero tolerance must be non-negative, got %g", c.ZeroTolerance)
	}
	switch c.CutStrategy {
	case CutStrategyNormalVector, CutStrategyFME:
	default:
		return fmt.Errorf("unknown cut strategy %d", int(c.CutStrategy))
	}
	switch c.BackOff {
	case BackOffCalculated, BackOffFixedTolerance, BackOffNone:
	default:
		return fmt.Errorf("unknown back-off strategy %d", int(c.BackOff))
	}
	return nil
}
