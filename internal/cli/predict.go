package cli

import (
	"encoding/json"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/lucasvrm/previso/internal/core/domain"
)

var (
	predictPatient  string
	predictFeatures string
	predictTypes    []string
	predictWindow   int
)

var predictCmd = &cobra.Command{
	Use:   "predict",
	Short: "Request today's predicted state for a patient",
	RunE:  runPredict,
}

var predictionsCmd = &cobra.Command{
	Use:   "predictions",
	Short: "List recent predictions for a patient",
	RunE:  runPredictions,
}

func init() {
	predictCmd.Flags().StringVar(&predictPatient, "patient", "", "patient id")
	predictCmd.Flags().StringVar(&predictFeatures, "features", "", "features of the latest check-in as a JSON object, or @file")

	predictionsCmd.Flags().StringVar(&predictPatient, "patient", "", "patient id")
	predictionsCmd.Flags().StringSliceVar(&predictTypes, "types", nil, "prediction types to include")
	predictionsCmd.Flags().IntVar(&predictWindow, "window", 3, "window in days")

	rootCmd.AddCommand(predictCmd, predictionsCmd)
}

func runPredict(cmd *cobra.Command, args []string) error {
	var features map[string]any
	if predictFeatures != "" {
		raw, err := readData(predictFeatures, cmd.InOrStdin())
		if err != nil {
			return err
		}
		if err := json.Unmarshal(raw, &features); err != nil {
			return fmt.Errorf("features must be a JSON object: %w", err)
		}
	}

	app, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer app.Close()

	res, err := app.Predictions.Daily(commandContext(cmd), predictPatient, features)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if res.State == domain.PredictionStateNoData {
		fmt.Fprintln(out, "No prediction available.")
		return nil
	}
	body, err := json.Marshal(res.Prediction)
	if err != nil {
		return err
	}
	return writeJSON(out, body)
}

func runPredictions(cmd *cobra.Command, args []string) error {
	app, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer app.Close()

	res, err := app.Predictions.List(commandContext(cmd), predictPatient, predictTypes, predictWindow)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if res.State == domain.PredictionStateNoData {
		fmt.Fprintln(out, "No predictions available.")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "TYPE\tLABEL\tPROBABILITY")
	for _, p := range res.Predictions {
		prob := "-"
		if p.Probability != nil {
			prob = fmt.Sprintf("%.2f", *p.Probability)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\n", orDash(p.Type), orDash(p.Label), prob)
	}
	return w.Flush()
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}
