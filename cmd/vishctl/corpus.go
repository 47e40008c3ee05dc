package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"vishing-sim/backend/internal/grounding"
	"vishing-sim/backend/internal/persona"
)

var corpusCmd = &cobra.Command{
	Use:   "corpus",
	Short: "Manage the human-rated grounding corpus",
}

var corpusImportCmd = &cobra.Command{
	Use:   "import [file.csv]",
	Short: "Replace the stored corpus with a CSV file, or the built-in seed when no file is given",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runCorpusImport,
}

var corpusStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show stored example counts per domain",
	Args:  cobra.NoArgs,
	RunE:  runCorpusStats,
}

func init() {
	corpusCmd.AddCommand(corpusImportCmd, corpusStatsCmd)
}

func runCorpusImport(cmd *cobra.Command, args []string) error {
	var examples []grounding.Example
	if len(args) == 1 {
		loaded, err := grounding.LoadCSV(args[0])
		if err != nil {
			return err
		}
		examples = loaded
	} else {
		seed, err := grounding.SeedExamples()
		if err != nil {
			return err
		}
		examples = seed
	}

	db, err := openDB()
	if err != nil {
		return err
	}
	defer db.Close()
	if err := db.ReplaceGroundingExamples(examples); err != nil {
		return fmt.Errorf("store corpus: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "imported %d examples into %s\n", len(examples), dbPath)
	return nil
}

func runCorpusStats(cmd *cobra.Command, args []string) error {
	db, err := openDB()
	if err != nil {
		return err
	}
	defer db.Close()
	all, err := db.AllGroundingExamples(cmd.Context())
	if err != nil {
		return err
	}
	counts := make(map[string]int)
	for _, ex := range all {
		d, err := persona.ParseDomain(ex.Domain)
		if err != nil {
			counts["other"]++
			continue
		}
		counts[string(d)]++
	}
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "DOMAIN\tEXAMPLES")
	for _, d := range persona.Domains {
		fmt.Fprintf(w, "%s\t%d\n", d, counts[string(d)])
	}
	if counts["other"] > 0 {
		fmt.Fprintf(w, "other\t%d\n", counts["other"])
	}
	return w.Flush()
}
