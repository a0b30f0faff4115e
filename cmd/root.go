package main

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var rootVerbose bool

var rootCmd = &cobra.Command{
	Use:   "gdpcut",
	Short: "gdpcut strengthens relaxations of disjunctive optimization problems with cutting planes",
	Long: `The tool reads a declarative disjunctive program, builds its big-M relaxation and
iteratively tightens it with cuts separated from the convex hull relaxation`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if rootVerbose {
			logrus.SetLevel(logrus.DebugLevel)
		}
	},
	Run: func(cmd *cobra.Command, args []string) {
	},
}

func Execute() {
	rootCmd.PersistentFlags().BoolVarP(&rootVerbose, "verbose", "v", false, "enable verbose output")
	rootCmd.AddCommand(NewStrengthenCmd())
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func main() {
	Execute()
}
