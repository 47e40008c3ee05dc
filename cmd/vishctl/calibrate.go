package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"vishing-sim/backend/internal/grounding"
	"vishing-sim/backend/internal/scoring"
)

var (
	calibrateLimit       int
	calibrateConcurrency int
)

var calibrateCmd = &cobra.Command{
	Use:   "calibrate",
	Short: "Score every corpus row with the oracle and report the error against human ratings",
	Args:  cobra.NoArgs,
	RunE:  runCalibrate,
}

func init() {
	calibrateCmd.Flags().IntVar(&calibrateLimit, "limit", grounding.DefaultLimit, "grounding examples per judgment")
	calibrateCmd.Flags().IntVar(&calibrateConcurrency, "concurrency", 4, "parallel oracle calls")
}

func runCalibrate(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	db, err := openDB()
	if err != nil {
		return err
	}
	defer db.Close()

	corpus, err := db.AllGroundingExamples(ctx)
	if err != nil {
		return err
	}
	if len(corpus) == 0 {
		return fmt.Errorf("corpus in %s is empty: run vishctl corpus import first", dbPath)
	}

	oracle, err := openOracle(ctx)
	if err != nil {
		return err
	}
	results, err := scoring.Calibrate(ctx, scoring.NewRequestRoleScorer(oracle, nil), corpus, calibrateLimit, calibrateConcurrency)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "DOMAIN\tSAMPLES\tFAILED\tMAE\tMAX")
	for _, r := range results {
		fmt.Fprintf(w, "%s\t%d\t%d\t%.2f\t%.2f\n", r.Domain, r.Samples, r.Failed, r.MAE, r.MaxError)
	}
	return w.Flush()
}
