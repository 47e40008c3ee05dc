package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) string {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs(args)
	require.NoError(t, rootCmd.Execute())
	return out.String()
}

func TestCorpusImportCSV(t *testing.T) {
	dir := t.TempDir()
	db := filepath.Join(dir, "vishing.db")
	csvPath := filepath.Join(dir, "ratings.csv")
	require.NoError(t, os.WriteFile(csvPath, []byte(
		"domain,role,request,rating\n"+
			"banking,Bank Manager,otp,9\n"+
			"banking,English Teacher,otp,1\n"+
			"law,Paralegal,case number,8\n"), 0o600))

	out := execute(t, "--db", db, "corpus", "import", csvPath)
	assert.Contains(t, out, "imported 3 examples")

	out = execute(t, "--db", db, "corpus", "stats")
	assert.Regexp(t, `banking\s+2`, out)
	assert.Regexp(t, `law\s+1`, out)
	assert.Regexp(t, `telecom\s+0`, out)
}

func TestCorpusImportSeed(t *testing.T) {
	db := filepath.Join(t.TempDir(), "vishing.db")
	out := execute(t, "--db", db, "corpus", "import")
	assert.Contains(t, out, "imported")
	assert.NotContains(t, out, "imported 0 ")
}

func TestCalibrateRequiresCorpus(t *testing.T) {
	db := filepath.Join(t.TempDir(), "vishing.db")
	rootCmd.SetArgs([]string{"--db", db, "calibrate"})
	err := rootCmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty")
}
