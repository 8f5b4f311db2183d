package cmd

import (
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/hgana/hgana/sim/plot"
	"github.com/hgana/hgana/sim/results"
)

var (
	plotResultsPath string
	plotOutPath     string
	plotHost        string
	plotGuest       string
	plotTitle       string
	plotErrorBands  bool
	isoX            string
	isoGroupBy      string
	isoQuantity     string
	curveSystem     int
)

var plotCmd = &cobra.Command{
	Use:   "plot",
	Short: "Render PNG charts from a result file",
}

// --- hgana plot isotherm ---

var plotIsothermCmd = &cobra.Command{
	Use:          "isotherm",
	Short:        "Plot p_b (or bound/unbound host counts) against a molecule count",
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		if !results.IsValidQuantity(isoQuantity) {
			return fmt.Errorf("unknown quantity %q; valid: pb, bound, unbound", isoQuantity)
		}
		r, err := loadResults()
		if err != nil {
			return err
		}
		series, err := results.Isotherm(r, results.IsothermQuery{
			Host: plotHost, Guest: plotGuest, X: isoX, GroupBy: isoGroupBy,
			Quantity: results.Quantity(isoQuantity),
		})
		if err != nil {
			return fmt.Errorf("building isotherm: %w", err)
		}
		opts := plot.Options{Title: plotTitle, XLabel: "N(" + isoX + ")", YLabel: isoQuantity, ErrorBands: plotErrorBands}
		if err := plot.SaveFile(plotOutPath, series, opts); err != nil {
			return fmt.Errorf("rendering isotherm: %w", err)
		}
		logrus.Infof("Isotherm written to %s", plotOutPath)
		return nil
	},
}

// --- hgana plot binding ---

var plotBindingCmd = &cobra.Command{
	Use:          "binding",
	Short:        "Plot the windowed binding probability of one system over production steps",
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		r, err := loadResults()
		if err != nil {
			return err
		}
		s, err := results.BindingCurve(r, curveSystem, plotHost, plotGuest)
		if err != nil {
			return fmt.Errorf("building binding curve: %w", err)
		}
		opts := plot.Options{Title: plotTitle, XLabel: "production step", YLabel: "p_b"}
		if err := plot.SaveFile(plotOutPath, []results.Series{s}, opts); err != nil {
			return fmt.Errorf("rendering binding curve: %w", err)
		}
		logrus.Infof("Binding curve written to %s", plotOutPath)
		return nil
	},
}

func loadResults() (*results.Result, error) {
	if plotResultsPath == "" {
		return nil, errors.New("--results is required")
	}
	return results.Load(plotResultsPath)
}

func init() {
	plotCmd.PersistentFlags().StringVar(&plotResultsPath, "results", "", "Result JSON written by 'hgana run --output'")
	plotCmd.PersistentFlags().StringVar(&plotOutPath, "out", "plot.png", "PNG output path")
	plotCmd.PersistentFlags().StringVar(&plotHost, "host", "", "Host molecule name")
	plotCmd.PersistentFlags().StringVar(&plotGuest, "guest", "", "Guest molecule name")
	plotCmd.PersistentFlags().StringVar(&plotTitle, "title", "", "Chart title")

	plotIsothermCmd.Flags().StringVar(&isoX, "x", "", "Molecule whose count is the x axis")
	plotIsothermCmd.Flags().StringVar(&isoGroupBy, "group-by", "", "Molecule whose count splits the series")
	plotIsothermCmd.Flags().StringVar(&isoQuantity, "quantity", "pb", "Plotted quantity: pb, bound or unbound")
	plotIsothermCmd.Flags().BoolVar(&plotErrorBands, "error-bands", true, "Draw mean +- std across replicas")

	plotBindingCmd.Flags().IntVar(&curveSystem, "system", 0, "Index of the composition to plot")

	plotCmd.AddCommand(plotIsothermCmd)
	plotCmd.AddCommand(plotBindingCmd)
	rootCmd.AddCommand(plotCmd)
}
