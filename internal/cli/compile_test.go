package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompileText(t *testing.T) {
	buf := &bytes.Buffer{}
	cmd := NewCompileCommand(&RootOptions{Format: "text"})
	cmd.SetOut(buf)
	cmd.SetArgs([]string{writeDoc(t, "deploy.yaml", validYAML)})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, buf.String(), "Compiled 2 shape(s), 1 context(s), 1 propert(ies), 1 morph(s)")
}

func TestCompileJSON(t *testing.T) {
	buf := &bytes.Buffer{}
	cmd := NewCompileCommand(&RootOptions{Format: "json"})
	cmd.SetOut(buf)
	cmd.SetArgs([]string{writeDoc(t, "deploy.cue", validCUE)})

	require.NoError(t, cmd.Execute())

	var resp struct {
		Status string        `json:"status"`
		Data   CompileResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, 2, resp.Data.Stats.Shapes)
	assert.Equal(t, 1, resp.Data.Stats.Morphs)
	require.NotNil(t, resp.Data.Principles)
	assert.Equal(t, "entity:web", resp.Data.Principles.Shapes[0].ID)
}

func TestCompileOutputFile(t *testing.T) {
	outPath := filepath.Join(t.TempDir(), "compiled.json")

	buf := &bytes.Buffer{}
	cmd := NewCompileCommand(&RootOptions{Format: "text"})
	cmd.SetOut(buf)
	cmd.SetArgs([]string{writeDoc(t, "deploy.yaml", validYAML), "--output", outPath})

	require.NoError(t, cmd.Execute())

	data, err := os.ReadFile(outPath)
	require.NoError(t, err, "output file should exist")

	var doc map[string]any
	require.NoError(t, json.Unmarshal(data, &doc), "output should be valid JSON")
	assert.Contains(t, doc, "shapes")
	assert.Contains(t, doc, "morphs")
}

func TestCompileOutputFileIsByteStable(t *testing.T) {
	dir := t.TempDir()
	src := writeDoc(t, "deploy.yaml", validYAML)

	var outputs [][]byte
	for _, name := range []string{"a.json", "b.json"} {
		outPath := filepath.Join(dir, name)
		cmd := NewCompileCommand(&RootOptions{Format: "text"})
		cmd.SetOut(&bytes.Buffer{})
		cmd.SetArgs([]string{src, "--output", outPath})
		require.NoError(t, cmd.Execute())

		data, err := os.ReadFile(outPath)
		require.NoError(t, err)
		outputs = append(outputs, data)
	}
	assert.Equal(t, outputs[0], outputs[1], "compiled output should not vary between runs")
}

func TestCompileInvalidDocument(t *testing.T) {
	buf := &bytes.Buffer{}
	cmd := NewCompileCommand(&RootOptions{Format: "text"})
	cmd.SetOut(buf)
	cmd.SetArgs([]string{writeDoc(t, "bad.yaml", invalidYAML)})

	err := cmd.Execute()
	require.Error(t, err, "invalid document should fail compilation")
	assert.Equal(t, ExitFailure, GetExitCode(err))
}
