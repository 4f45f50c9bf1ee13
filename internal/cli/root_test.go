package cli

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	assert.Equal(t, "formgraph", cmd.Use)
	assert.NotEmpty(t, cmd.Short)
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand()

	names := make(map[string]bool)
	for _, sub := range cmd.Commands() {
		names[sub.Name()] = true
	}
	for _, want := range []string{"compile", "validate", "run", "describe", "query"} {
		assert.True(t, names[want], "command %s should be registered", want)
	}
}

func TestGlobalFlags(t *testing.T) {
	cmd := NewRootCommand()

	assert.NotNil(t, cmd.PersistentFlags().Lookup("verbose"))
	format := cmd.PersistentFlags().Lookup("format")
	require.NotNil(t, format)
	assert.Equal(t, "text", format.DefValue)
}

func TestFormatValidation(t *testing.T) {
	assert.True(t, isValidFormat("text"))
	assert.True(t, isValidFormat("json"))
	assert.False(t, isValidFormat("yaml"))
	assert.False(t, isValidFormat(""))
}

func TestFormatValidationIntegration(t *testing.T) {
	cmd := NewRootCommand()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"validate", "x.yaml", "--format", "xml"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid format")
}

func TestRunCommandFlags(t *testing.T) {
	cmd := NewRunCommand(&RootOptions{})

	for _, name := range []string{"db", "iters", "threshold", "budget"} {
		assert.NotNil(t, cmd.Flags().Lookup(name), "run should define --%s", name)
	}
}

func TestQueryCommandFlags(t *testing.T) {
	cmd := NewQueryCommand(&RootOptions{})

	for _, name := range []string{"db", "field", "where", "sql"} {
		assert.NotNil(t, cmd.Flags().Lookup(name), "query should define --%s", name)
	}
}
