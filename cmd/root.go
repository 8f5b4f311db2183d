package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/hgana/hgana/sim"
	"github.com/hgana/hgana/sim/ensemble"
	"github.com/hgana/hgana/sim/progress"
	"github.com/hgana/hgana/sim/results"
)

var (
	// CLI flags for the run command; each overrides the YAML value only when set
	configPath         string  // System YAML file
	logLevel           string  // Log verbosity level
	seed               int64   // Master seed for placement and move streams
	temperature        float64 // Temperature (K unless --boltzmann changes units)
	boltzmann          float64 // Boltzmann constant in energy units per kelvin
	equilibrationSteps int64   // MC steps before statistics are collected
	productionSteps    int64   // MC steps with statistics
	printEvery         int64   // Progress line interval in production steps
	parallel           bool    // Run replicas in parallel
	replicas           int     // Independent replicas per composition
	workers            int     // Worker goroutines
	outputPath         string  // Result JSON path
	traceSteps         bool    // Record step decisions
	traceEvery         int64   // Trace stride in steps
	progressAddr       string  // Listen address of the websocket progress feed
	quiet              bool    // Suppress progress lines on stdout
)

// rootCmd is the base command for the CLI
var rootCmd = &cobra.Command{
	Use:           "hgana",
	Short:         "Grid-based Monte Carlo host-guest adsorption simulator",
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level, err := logrus.ParseLevel(logLevel)
		if err != nil {
			logrus.Fatalf("Invalid log level: %s", logLevel)
		}
		logrus.SetLevel(level)
	},
}

// runCmd executes the simulation described by --config
var runCmd = &cobra.Command{
	Use:          "run",
	Short:        "Run the adsorption simulation",
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSimulation(cmd, os.Stdout)
	},
}

// runSimulation loads the system, runs it and prints the summary to w.
// Errors are returned so the progress feed and signal handler shut down.
func runSimulation(cmd *cobra.Command, w io.Writer) error {
	if configPath == "" {
		return errors.New("--config is required")
	}
	spec, err := sim.LoadSystemSpec(configPath)
	if err != nil {
		return err
	}
	applyRunOverrides(cmd, spec)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	var sinks progress.MultiSink
	if !quiet {
		sinks = append(sinks, progress.NewTextReporter(w, spec.Run.Parallel || spec.Run.Replicas > 1))
	}
	if progressAddr != "" {
		hub := progress.NewHub()
		srv := serveProgress(progressAddr, hub)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			srv.Shutdown(shutdownCtx)
			hub.Close()
		}()
		sinks = append(sinks, hub)
	}

	e, err := ensemble.New(spec, sinks)
	if err != nil {
		return err
	}
	res, err := e.Run(ctx)
	if err != nil {
		return fmt.Errorf("simulation failed: %w", err)
	}
	if err := printSummary(w, res); err != nil {
		return fmt.Errorf("writing summary: %w", err)
	}
	logrus.Info("Simulation complete.")
	return nil
}

// applyRunOverrides copies explicitly set flags into the run section of spec.
func applyRunOverrides(cmd *cobra.Command, spec *sim.SystemSpec) {
	f := cmd.Flags()
	r := &spec.Run
	if f.Changed("seed") {
		r.Seed = seed
	}
	if f.Changed("temperature") {
		r.Temperature = temperature
	}
	if f.Changed("boltzmann") {
		r.Boltzmann = boltzmann
	}
	if f.Changed("equilibration-steps") {
		r.EquilibrationSteps = equilibrationSteps
	}
	if f.Changed("production-steps") {
		r.ProductionSteps = productionSteps
	}
	if f.Changed("print-every") {
		r.PrintEvery = printEvery
	}
	if f.Changed("parallel") {
		r.Parallel = parallel
	}
	if f.Changed("replicas") {
		r.Replicas = replicas
	}
	if f.Changed("workers") {
		r.Workers = workers
	}
	if f.Changed("output") {
		r.Output = outputPath
	}
	if f.Changed("trace") {
		r.Trace = traceSteps
	}
	if f.Changed("trace-every") {
		r.TraceEvery = traceEvery
	}
}

func serveProgress(addr string, hub *progress.Hub) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/progress", hub)
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logrus.Errorf("progress feed on %s: %v", addr, err)
		}
	}()
	logrus.Infof("Progress feed listening on ws://%s/progress", addr)
	return srv
}

// systemSummary is the per-composition block printed after a run.
type systemSummary struct {
	Counts     map[string]int        `json:"counts"`
	Acceptance float64               `json:"acceptance_fraction"`
	Pairs      []results.PairSummary `json:"pairs"`
}

// printSummary writes the aggregated binding statistics as JSON.
func printSummary(w io.Writer, r *results.Result) error {
	out := struct {
		RunID   string          `json:"run_id"`
		Systems []systemSummary `json:"systems"`
	}{RunID: r.RunID}
	for _, s := range r.Systems {
		out.Systems = append(out.Systems, systemSummary{Counts: s.Counts, Acceptance: s.Acceptance.Mean, Pairs: s.Pairs})
	}
	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(w, "=== Binding Results ===")
	_, err = fmt.Fprintln(w, string(data))
	return err
}

// Execute runs the CLI root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		logrus.Error(err)
		os.Exit(1)
	}
}

// init sets up CLI flags and subcommands
func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log", "warn", "Log level (trace, debug, info, warn, error, fatal, panic)")

	runCmd.Flags().StringVar(&configPath, "config", "", "Path to the system YAML file")
	runCmd.Flags().Int64Var(&seed, "seed", 42, "Master seed for placement and move streams")
	runCmd.Flags().Float64Var(&temperature, "temperature", 298.15, "Temperature in kelvin")
	runCmd.Flags().Float64Var(&boltzmann, "boltzmann", sim.BoltzmannKJPerMolK, "Boltzmann constant (energy units per kelvin); 1 makes temperature an energy")
	runCmd.Flags().Int64Var(&equilibrationSteps, "equilibration-steps", 0, "MC steps before statistics are collected")
	runCmd.Flags().Int64Var(&productionSteps, "production-steps", 0, "MC steps with statistics")
	runCmd.Flags().Int64Var(&printEvery, "print-every", 0, "Progress line interval in production steps (0 = phase announcements only)")
	runCmd.Flags().BoolVar(&parallel, "parallel", false, "Run independent replicas in parallel")
	runCmd.Flags().IntVar(&replicas, "replicas", 0, "Replicas per composition (default 1, or CPU count with --parallel)")
	runCmd.Flags().IntVar(&workers, "workers", 0, "Worker goroutines (default CPU count with --parallel)")
	runCmd.Flags().StringVar(&outputPath, "output", "", "Write the result JSON to this path")
	runCmd.Flags().BoolVar(&traceSteps, "trace", false, "Record step decisions; written to <output>.trace.json when --output is set")
	runCmd.Flags().Int64Var(&traceEvery, "trace-every", 0, "Keep every n-th step in the trace (default 1)")
	runCmd.Flags().StringVar(&progressAddr, "progress-addr", "", "Serve a websocket progress feed at ws://<addr>/progress")
	runCmd.Flags().BoolVar(&quiet, "quiet", false, "Suppress progress lines on stdout")

	rootCmd.AddCommand(runCmd)
}
