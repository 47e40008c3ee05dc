package main

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"vishing-sim/backend/internal/ai"
	"vishing-sim/backend/internal/store"
)

var (
	dbPath   string
	logLevel string
)

var rootCmd = &cobra.Command{
	Use:           "vishctl",
	Short:         "Operate the vishing training simulator",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		level, err := logrus.ParseLevel(logLevel)
		if err != nil {
			return err
		}
		logrus.SetLevel(level)
		return nil
	},
}

func init() {
	defaultDB := strings.TrimSpace(os.Getenv("VISHING_DB_PATH"))
	if defaultDB == "" {
		defaultDB = filepath.Join("data", "vishing.db")
	}
	defaultLevel := strings.TrimSpace(os.Getenv("LOG_LEVEL"))
	if defaultLevel == "" {
		defaultLevel = "warn"
	}
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", defaultDB, "sqlite database path")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", defaultLevel, "logrus level")

	rootCmd.AddCommand(corpusCmd, calibrateCmd, processCmd)
}

func openDB() (*store.Database, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	return store.Open(dbPath, true)
}

func openOracle(ctx context.Context) (ai.Oracle, error) {
	oracle, err := ai.New(ctx, ai.ConfigFromEnv(), nil)
	if errors.Is(err, ai.ErrDisabled) {
		return nil, errors.New("no oracle configured: set OPENAI_API_KEY or GEMINI_API_KEY")
	}
	return oracle, err
}
