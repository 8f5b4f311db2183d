package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/hgana/hgana/sim"
	"github.com/hgana/hgana/sim/boxopt"
)

var (
	optTarget   float64
	optGuess    int
	optMinEdge  int
	optMaxEvals int
	optCounts   []int
	optHost     string
	optGuest    string
)

// optimizeCmd searches the cubic box edge whose simulated p_b/(1-p_b)
// matches a reference bound/unbound ratio.
var optimizeCmd = &cobra.Command{
	Use:          "optimize",
	Short:        "Optimize the box size to reproduce a bound/unbound ratio",
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runOptimize(cmd, os.Stdout)
	},
}

// runOptimize runs the box-size search and prints the result JSON to w.
func runOptimize(cmd *cobra.Command, w io.Writer) error {
	if configPath == "" {
		return errors.New("--config is required")
	}
	spec, err := sim.LoadSystemSpec(configPath)
	if err != nil {
		return err
	}
	applyRunOverrides(cmd, spec)

	opts := boxopt.Options{Guess: optGuess, MinEdge: optMinEdge, MaxEvaluations: optMaxEvals}
	if len(optCounts) > 0 {
		opts.Counts = optCounts
	}
	if optHost != "" || optGuest != "" {
		opts.Pair = sim.BindingSpec{Host: optHost, Guest: optGuest}
	}
	o, err := boxopt.New(spec, optTarget, opts)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	res, err := o.Run(ctx)
	if err != nil {
		return fmt.Errorf("box optimization failed: %w", err)
	}
	data, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding result: %w", err)
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

func init() {
	optimizeCmd.Flags().StringVar(&configPath, "config", "", "Path to the system YAML file")
	optimizeCmd.Flags().Float64Var(&optTarget, "target", 0, "Reference N_b/N_u ratio")
	optimizeCmd.Flags().IntVar(&optGuess, "guess", 0, "Initial edge in cells (default: x edge of the configured grid)")
	optimizeCmd.Flags().IntVar(&optMinEdge, "min-edge", 0, "Smallest edge in cells (default: smallest that fits every instance)")
	optimizeCmd.Flags().IntVar(&optMaxEvals, "max-evals", 30, "Maximum number of distinct box sizes to simulate")
	optimizeCmd.Flags().IntSliceVar(&optCounts, "counts", nil, "Instance count per molecule type (default: first composition)")
	optimizeCmd.Flags().StringVar(&optHost, "host", "", "Host molecule (default: first binding pair)")
	optimizeCmd.Flags().StringVar(&optGuest, "guest", "", "Guest molecule (default: first binding pair)")

	// Run parameters shared with 'hgana run'.
	optimizeCmd.Flags().Int64Var(&seed, "seed", 42, "Master seed")
	optimizeCmd.Flags().Float64Var(&temperature, "temperature", 298.15, "Temperature in kelvin")
	optimizeCmd.Flags().Int64Var(&equilibrationSteps, "equilibration-steps", 0, "MC steps before statistics are collected")
	optimizeCmd.Flags().Int64Var(&productionSteps, "production-steps", 0, "MC steps with statistics")
	optimizeCmd.Flags().IntVar(&replicas, "replicas", 0, "Replicas averaged per box size")
	optimizeCmd.Flags().BoolVar(&parallel, "parallel", false, "Run replicas in parallel")

	rootCmd.AddCommand(optimizeCmd)
}
