package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validYAML = `shapes:
  - id: entity:web
    type: system.Service
    name: Web
  - id: entity:db
    type: system.Store
    name: DB
contexts:
  - id: ctx:deploy
    type: system.Context
    name: Deploy
    properties:
      - key: owns
        entity: entity:web
        value: db
        value_type: string
morphs:
  - id: m1
    kind: owns
    source: entity:web
    target: entity:db
    requires_property: owns
`

const validCUE = `principles: {
	shape: web: {
		type: "system.Service"
		name: "Web"
	}
	shape: db: {
		type: "system.Store"
		name: "DB"
	}
	context: deploy: {
		property: owns: {
			entity:     "entity:web"
			value:      "db"
			value_type: "string"
		}
	}
	morph: m1: {
		kind:              "owns"
		source:            "entity:web"
		target:            "entity:db"
		requires_property: "owns"
	}
}
`

const invalidYAML = `shapes:
  - id: entity:web
    name: Web
`

const cyclicYAML = `shapes:
  - id: entity:web
    type: system.Service
morphs:
  - id: m1
    kind: self
    source: entity:web
    target: entity:web
`

func writeDoc(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644), "writing fixture should succeed")
	return path
}

func TestLoadPrinciplesYAML(t *testing.T) {
	p, warnings, err := LoadPrinciples(writeDoc(t, "deploy.yaml", validYAML))
	require.NoError(t, err)

	assert.Len(t, p.Shapes, 2, "both shapes should load")
	assert.Len(t, p.Contexts, 1, "context should load")
	require.Len(t, p.Contexts[0].Properties, 1)
	assert.Equal(t, "entity:web", p.Contexts[0].Properties[0].Entity)
	assert.Len(t, p.Morphs, 1, "morph should load")
	assert.Empty(t, warnings, "acyclic document should carry no warnings")
}

func TestLoadPrinciplesCUE(t *testing.T) {
	p, warnings, err := LoadPrinciples(writeDoc(t, "deploy.cue", validCUE))
	require.NoError(t, err)

	require.Len(t, p.Shapes, 2)
	assert.Equal(t, "entity:web", p.Shapes[0].ID, "shape label should derive the id")
	assert.Equal(t, "ctx:deploy", p.Contexts[0].ID, "context label should derive the id")
	assert.Empty(t, warnings)
}

func TestLoadPrinciplesInvalidFailsValidation(t *testing.T) {
	_, _, err := LoadPrinciples(writeDoc(t, "bad.yaml", invalidYAML))
	require.Error(t, err, "shape without a type should fail validation")
	assert.Equal(t, ExitFailure, GetExitCode(err))
}

func TestLoadPrinciplesCycleWarning(t *testing.T) {
	_, warnings, err := LoadPrinciples(writeDoc(t, "cyclic.yaml", cyclicYAML))
	require.NoError(t, err, "cycles warn but do not fail loading")
	require.Len(t, warnings, 1)
	assert.Contains(t, warnings[0].Message, "self-referencing morph")
}

func TestLoadPrinciplesUnsupportedExtension(t *testing.T) {
	_, _, err := LoadPrinciples(writeDoc(t, "doc.toml", "x = 1"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "unsupported principles format")
}

func TestLoadPrinciplesMissingFile(t *testing.T) {
	_, _, err := LoadPrinciples(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestParsePrinciplesSkipsValidation(t *testing.T) {
	p, err := ParsePrinciples(writeDoc(t, "bad.yaml", invalidYAML))
	require.NoError(t, err, "parse alone should accept semantically broken documents")
	require.Len(t, p.Shapes, 1)
	assert.Empty(t, p.Shapes[0].Type)
}
