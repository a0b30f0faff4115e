// Package solver provides the numerical solver used to optimize relaxation
// instances. Solve populates the model's variable values and reports a
// termination status; the caller decides what non-optimal termination means.
package solver

import (
	"fmt"

	"github.com/DavidDB33/gdpcut/pkg/model"
)

type Status int

const (
	StatusUnknown Status = iota
	StatusOptimal
	StatusInfeasible
	StatusUnbounded
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusOptimal:
		return "optimal"
	case StatusInfeasible:
		return "infeasible"
	case StatusUnbounded:
		return "unbounded"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Result reports how a solve terminated. Objective is only meaningful for
// StatusOptimal.
type Result struct {
	Status    Status
	Objective float64
}

// Options is the solver-specific option map of the configuration surface.
type Options struct {
	// Tol is the termination tolerance of iterative methods. Zero keeps the
	// backend default.
	Tol float64
	// MaxIter caps iterative methods. Zero keeps the backend default.
	MaxIter int
	// Stream raises per-iteration progress to the log.
	Stream bool
}

// Interface is the contract every backend fulfills. Implementations must be
// safe against the model between calls but are not required to be safe for
// concurrent use on the same model.
type Interface interface {
	Solve(m *model.Model) (Result, error)
}

// New builds a solver backend by identifier. The empty identifier selects
// the default simplex backend.
func New(name string, opts Options) (Interface, error) {
	switch name {
	case "", "simplex":
		return &Simplex{opts: opts}, nil
	default:
		return nil, fmt.Errorf("unknown solver %q", name)
	}
}
