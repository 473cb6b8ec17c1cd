package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"
)

// adderProgram has a passing test (main) and a failing one (wrong).
const adderProgram = `package adder

circuit: add: {
	inputs: ["a", "b", "c_in"]
	outputs: ["o", "c_out"]
	body: [
		{assign: "o", expr: ["xor", "a", "b", "c_in"]},
		{assign: "c_out", expr: ["or", ["and", "a", "b"], ["and", ["xor", "a", "b"], "c_in"]]},
	]
}

test: main: body: [
	{assign: ["o", "c_out"], expr: ["add", "a", "b", "c_in"]},
	{at: "0ns"},
	{assign: "a", expr: 1},
	{assign: "b", expr: 1},
	{assign: "c_in", expr: 0},
	{assert: "o", equals: 0},
	{assert: "c_out", equals: 1},
	{after: 5},
	{assign: "a", expr: 0},
	{assign: "b", expr: 0},
	{assert: "o", equals: 0},
	{assert: "c_out", equals: 0},
]

test: wrong: body: [
	{assign: ["o", "c_out"], expr: ["add", "a", "b", "c_in"]},
	{at: 0},
	{assign: "a", expr: 1},
	{assign: "b", expr: 1},
	{assign: "c_in", expr: 0},
	{assert: "o", equals: 1},
]
`

// passingProgram keeps only the main test of adderProgram.
const passingProgram = `package adder

circuit: add: {
	inputs: ["a", "b"]
	outputs: ["o"]
	body: [{assign: "o", expr: ["xor", "a", "b"]}]
}

test: main: body: [
	{assign: "o", expr: ["add", "a", "b"]},
	{at: 0},
	{assign: "a", expr: 1},
	{assign: "b", expr: 0},
	{assert: "o", equals: 1},
	{after: 5},
	{assign: "b", expr: 1},
	{assert: "o", equals: 0},
]
`

// writeProgram writes files into a fresh directory and returns it.
func writeProgram(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		path := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	}
	return dir
}

// execute runs cmd with args and returns stdout; stderr is discarded.
func execute(cmd *cobra.Command, args ...string) (string, error) {
	buf := &bytes.Buffer{}
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

// decodeData unmarshals the data field of a JSON CLI response into v.
func decodeData(t *testing.T, out string, v any) CLIResponse {
	t.Helper()
	var raw struct {
		Status string          `json:"status"`
		Data   json.RawMessage `json:"data"`
		Error  *CLIError       `json:"error"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &raw), "output: %s", out)
	if v != nil && len(raw.Data) > 0 {
		require.NoError(t, json.Unmarshal(raw.Data, v))
	}
	return CLIResponse{Status: raw.Status, Error: raw.Error}
}

// recordRuns runs the program with --db and returns the run results.
func recordRuns(t *testing.T, programDir, dbPath string) RunResult {
	t.Helper()
	out, _ := execute(NewRunCommand(&RootOptions{Format: "json"}), "--db", dbPath, programDir)
	var result RunResult
	decodeData(t, out, &result)
	require.NotEmpty(t, result.Tests)
	return result
}
