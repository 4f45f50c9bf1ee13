package cli

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runJSON(t *testing.T, args ...string) RunSummary {
	t.Helper()
	buf := &bytes.Buffer{}
	cmd := NewRunCommand(&RootOptions{Format: "json"})
	cmd.SetOut(buf)
	cmd.SetArgs(args)
	require.NoError(t, cmd.Execute())

	var resp struct {
		Status string     `json:"status"`
		Data   RunSummary `json:"data"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	require.Equal(t, "ok", resp.Status)
	return resp.Data
}

func TestRunInMemory(t *testing.T) {
	summary := runJSON(t, writeDoc(t, "deploy.yaml", validYAML))

	assert.Equal(t, 2, summary.Entities, "both shapes should seed")
	assert.Equal(t, 1, summary.Properties)
	assert.Equal(t, 1, summary.Relations, "the owns morph should ground")
	assert.Equal(t, 3, summary.Tasks, "one signature task per unsigned record")
	assert.Equal(t, 2, summary.Iterations, "deterministic stages converge on the second pass")
	assert.NotEmpty(t, summary.GraphHash)
}

func TestRunTextOutput(t *testing.T) {
	buf := &bytes.Buffer{}
	cmd := NewRunCommand(&RootOptions{Format: "text"})
	cmd.SetOut(buf)
	cmd.SetArgs([]string{writeDoc(t, "deploy.yaml", validYAML)})

	require.NoError(t, cmd.Execute())
	out := buf.String()
	assert.Contains(t, out, "Cycle complete in 2 iteration(s)")
	assert.Contains(t, out, "Graph hash: ")
}

func TestRunWithDatabaseIsIdempotent(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "state.db")
	src := writeDoc(t, "deploy.yaml", validYAML)

	first := runJSON(t, src, "--db", dbPath)
	second := runJSON(t, src, "--db", dbPath)

	assert.Equal(t, first.Entities, second.Entities)
	assert.Equal(t, first.Relations, second.Relations)
	assert.Equal(t, first.GraphHash, second.GraphHash,
		"re-running the same principles should not change the graph")
}

func TestRunIterationCapFlag(t *testing.T) {
	summary := runJSON(t, writeDoc(t, "deploy.yaml", validYAML), "--iters", "1")
	assert.Equal(t, 1, summary.Iterations, "the cap should bound the fixpoint loop")
}

func TestRunInvalidDocument(t *testing.T) {
	buf := &bytes.Buffer{}
	cmd := NewRunCommand(&RootOptions{Format: "text"})
	cmd.SetOut(buf)
	cmd.SetArgs([]string{writeDoc(t, "bad.yaml", invalidYAML)})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
}
