package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"vishing-sim/backend/internal/agent"
	"vishing-sim/backend/internal/grounding"
	"vishing-sim/backend/internal/persona"
)

var (
	processDomain   string
	processJSON     bool
	processPersonas string
)

var processCmd = &cobra.Command{
	Use:   "process [utterance]",
	Short: "Run one caller utterance through the integrity pipeline",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runProcess,
}

func init() {
	processCmd.Flags().StringVarP(&processDomain, "domain", "d", string(persona.Banking), "banking, telecom, law or government")
	processCmd.Flags().BoolVar(&processJSON, "json", false, "print the full turn result as JSON")
	processCmd.Flags().StringVar(&processPersonas, "personas", "", "persona YAML overriding the built-in table")
}

func runProcess(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	personas, err := persona.Load(processPersonas)
	if err != nil {
		return err
	}
	oracle, err := openOracle(ctx)
	if err != nil {
		return err
	}

	var source grounding.Source
	db, err := openDB()
	if err != nil {
		return err
	}
	defer db.Close()
	if n, err := db.CountGroundingExamples(); err == nil && n > 0 {
		source = db
	} else if source, err = grounding.Seed(); err != nil {
		return err
	}

	pipeline := agent.New(personas, oracle, source, agent.Options{})
	result, err := pipeline.Process(ctx, strings.Join(args, " "), processDomain, nil)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if processJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}
	for _, line := range result.RationaleLog {
		fmt.Fprintln(out, line)
	}
	fmt.Fprintln(out, result.Integrity.Rationale)
	return nil
}
