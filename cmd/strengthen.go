package main

import (
	"fmt"

	"github.com/DavidDB33/gdpcut/pkg/api"
	"github.com/DavidDB33/gdpcut/pkg/cuttingplane"
	"github.com/DavidDB33/gdpcut/pkg/gdp"
	"github.com/DavidDB33/gdpcut/pkg/solver"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

type strengthenOpts struct {
	problemfile  string
	solver       string
	strategy     string
	backoff      string
	bigM         float64
	improvement  float64
	cutThreshold float64
	backoffTol   float64
	zeroTol      float64
	streamSolver bool
	solveAfter   bool
}

var strengthenopts = strengthenOpts{}

func NewStrengthenCmd() *cobra.Command {

	strengthenCmd := &cobra.Command{
		Use:   "strengthen",
		Short: "strengthen the big-M relaxation of a disjunctive program with cutting planes",
		Long: `strengthen reads a disjunctive program from a YAML problem file, builds its big-M
and hull relaxations and iteratively adds separating cuts to the former until no useful cut remains`,
		RunE: func(cmd *cobra.Command, args []string) error {
			problem, err := api.LoadProblemFile(strengthenopts.problemfile)
			if err != nil {
				return err
			}
			m, err := problem.Compile()
			if err != nil {
				return err
			}
			logrus.Infof("Loaded problem %s: %d variables, %d constraints, %d disjunctions.",
				m.Name, len(m.Vars), len(m.Constraints), len(m.Disjunctions))

			cfg := cuttingplane.DefaultConfig()
			cfg.Solver = strengthenopts.solver
			cfg.Verbose = rootVerbose
			cfg.StreamSolver = strengthenopts.streamSolver
			cfg.SolverOptions.Stream = strengthenopts.streamSolver
			cfg.MinImprovementThreshold = strengthenopts.improvement
			cfg.CutFilteringThreshold = strengthenopts.cutThreshold
			cfg.BackOffTolerance = strengthenopts.backoffTol
			cfg.ZeroTolerance = strengthenopts.zeroTol
			switch strengthenopts.strategy {
			case "normal-vector":
				cfg.CutStrategy = cuttingplane.CutStrategyNormalVector
			case "fme":
				cfg.CutStrategy = cuttingplane.CutStrategyFME
			default:
				return fmt.Errorf("unknown cut strategy %q (want normal-vector or fme)", strengthenopts.strategy)
			}
			switch strengthenopts.backoff {
			case "calculated":
				cfg.BackOff = cuttingplane.BackOffCalculated
			case "fixed":
				cfg.BackOff = cuttingplane.BackOffFixedTolerance
			case "none":
				cfg.BackOff = cuttingplane.BackOffNone
			default:
				return fmt.Errorf("unknown back-off strategy %q (want calculated, fixed or none)", strengthenopts.backoff)
			}

			logrus.Info("Generating cutting planes.")
			result, err := cuttingplane.Apply(m, strengthenopts.bigM, cfg)
			if err != nil {
				return err
			}
			logrus.Infof("Finished in state %s after %d rounds.", result.State, result.Rounds)
			for _, cut := range result.Cuts {
				fmt.Println(cut)
			}
			fmt.Printf("cuts: %d\n", len(result.Cuts))
			fmt.Printf("relaxation bound: %g\n", result.Objective)

			if strengthenopts.solveAfter {
				slv, err := solver.New(strengthenopts.solver, solver.Options{Stream: strengthenopts.streamSolver})
				if err != nil {
					return err
				}
				gdp.RelaxIntegrality(result.Relaxation, false)
				final, err := slv.Solve(result.Relaxation)
				gdp.RelaxIntegrality(result.Relaxation, true)
				if err != nil {
					return err
				}
				fmt.Printf("strengthened relaxation: %s, objective %g\n", final.Status, final.Objective)
			}
			logrus.Info("Done.")
			return nil
		},
	}

	strengthenCmd.Flags().StringVarP(&strengthenopts.problemfile, "problem", "p", "problem.yaml", "YAML problem description to strengthen")
	strengthenCmd.Flags().StringVarP(&strengthenopts.solver, "solver", "s", "simplex", "solver backend for the relaxation and separation problems")
	strengthenCmd.Flags().StringVar(&strengthenopts.strategy, "strategy", "normal-vector", "cut generation strategy (normal-vector or fme)")
	strengthenCmd.Flags().StringVar(&strengthenopts.backoff, "back-off", "calculated", "cut post-processing (calculated, fixed or none)")
	strengthenCmd.Flags().Float64VarP(&strengthenopts.bigM, "big-m", "M", 0, "big-M value; 0 infers a value from the variable bounds")
	strengthenCmd.Flags().Float64Var(&strengthenopts.improvement, "improvement-threshold", 0.01, "minimum relaxation objective improvement between rounds")
	strengthenCmd.Flags().Float64Var(&strengthenopts.cutThreshold, "cut-threshold", 0.001, "minimum violation at the relaxed optimum for a cut to qualify")
	strengthenCmd.Flags().Float64Var(&strengthenopts.backoffTol, "back-off-tolerance", 1e-8, "tolerance used while post-processing cuts")
	strengthenCmd.Flags().Float64Var(&strengthenopts.zeroTol, "zero-tolerance", 1e-9, "coefficient magnitude treated as zero during elimination")
	strengthenCmd.Flags().BoolVar(&strengthenopts.streamSolver, "stream-solver", false, "log solver progress for every solve")
	strengthenCmd.Flags().BoolVar(&strengthenopts.solveAfter, "solve", false, "solve the strengthened relaxation once more and report the bound")
	return strengthenCmd
}
