package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loadTestScenario(t *testing.T, name string) *Scenario {
	t.Helper()
	s, err := LoadScenario(filepath.Join("testdata", "scenarios", name+".yaml"))
	require.NoError(t, err)
	return s
}

func TestDeployPipelineScenario(t *testing.T) {
	s := loadTestScenario(t, "deploy-pipeline")

	result, err := RunWithGolden(t, s)
	require.NoError(t, err)
	assert.True(t, result.Pass, "assertion failures: %v", result.Errors)
	assert.Empty(t, result.Errors)
}

func TestMinimalShapeScenario(t *testing.T) {
	s := loadTestScenario(t, "minimal-shape")

	result, err := RunWithGolden(t, s)
	require.NoError(t, err)
	assert.True(t, result.Pass, "assertion failures: %v", result.Errors)
}

func TestRunIsDeterministic(t *testing.T) {
	s := loadTestScenario(t, "deploy-pipeline")

	first, err := Run(s)
	require.NoError(t, err)
	second, err := Run(s)
	require.NoError(t, err)

	assert.Equal(t, len(first.Events), len(second.Events), "event streams have the same length")
	for i := range first.Events {
		assert.Equal(t, first.Events[i].Kind, second.Events[i].Kind)
		assert.Equal(t, first.Events[i].Meta.TraceID, second.Events[i].Meta.TraceID,
			"trace tokens repeat across runs")
	}

	h1, err := first.Cycle.Graph.CanonicalHash()
	require.NoError(t, err)
	h2, err := second.Cycle.Graph.CanonicalHash()
	require.NoError(t, err)
	assert.Equal(t, h1, h2)
}

func TestFailingAssertionReported(t *testing.T) {
	s := loadTestScenario(t, "minimal-shape")
	s.Assertions = []Assertion{
		{Type: AssertGraphCount, Kind: "entity", Count: 99},
		{Type: AssertRelationExists, ID: "rel:ghost"},
	}

	result, err := Run(s)
	require.NoError(t, err, "assertion failures are reported, not returned")
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 2)
	assert.Contains(t, result.Errors[0], "graph_count entity")
	assert.Contains(t, result.Errors[1], "rel:ghost")
}

func TestScenarioEventsCaptured(t *testing.T) {
	s := loadTestScenario(t, "deploy-pipeline")

	result, err := Run(s)
	require.NoError(t, err)

	created := 0
	for _, ev := range result.Events {
		if ev.Kind == "entity.created" {
			created++
		}
	}
	assert.Equal(t, 2, created)
}

func TestLoadScenarioRejectsUnknownFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	writeFile(t, path, `
name: bad
description: typo in assertions key
principles:
  shapes:
    - id: entity:a
      type: system.Entity
assertion:
  - type: graph_count
`)
	_, err := LoadScenario(path)
	require.Error(t, err, "unknown top-level keys fail the load")
}

func TestLoadScenarioRequiresAssertions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.yaml")
	writeFile(t, path, `
name: empty
description: no assertions
principles:
  shapes:
    - id: entity:a
      type: system.Entity
`)
	_, err := LoadScenario(path)
	assert.ErrorContains(t, err, "assertions")
}

func TestLoadScenarioRejectsBadAssertionType(t *testing.T) {
	path := filepath.Join(t.TempDir(), "badtype.yaml")
	writeFile(t, path, `
name: badtype
description: unknown assertion type
principles:
  shapes:
    - id: entity:a
      type: system.Entity
assertions:
  - type: trace_contains
`)
	_, err := LoadScenario(path)
	assert.ErrorContains(t, err, "unknown assertion type")
}

func TestValidateAssertionGraphCountKind(t *testing.T) {
	err := validateAssertion(0, Assertion{Type: AssertGraphCount, Kind: "widget"})
	assert.ErrorContains(t, err, "graph_count kind")
}

func TestSnapshotShape(t *testing.T) {
	s := loadTestScenario(t, "minimal-shape")
	result, err := Run(s)
	require.NoError(t, err)

	snap := snapshot(s.Name, result)
	assert.Contains(t, snap, "entities")
	assert.Contains(t, snap, "tasks")
	assert.Contains(t, snap, "iterations")
}

func TestScenarioOptionsApplied(t *testing.T) {
	s := loadTestScenario(t, "deploy-pipeline")
	s.Options.FixpointMaxIters = 1
	s.Assertions = []Assertion{{Type: AssertIterations, Count: 1}}

	result, err := Run(s)
	require.NoError(t, err)
	assert.True(t, result.Pass, "capping the loop to one pass holds: %v", result.Errors)
	require.Len(t, result.Cycle.Graph.Relations, 1,
		"a single pass still derives the satisfied morph")
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}
