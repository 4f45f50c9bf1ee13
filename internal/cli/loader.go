package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"gopkg.in/yaml.v3"

	"github.com/roach88/formgraph/internal/compiler"
	"github.com/roach88/formgraph/internal/cycle"
)

// LoadPrinciples reads a principles document from a .cue or .yaml file.
// CUE documents compile through the principles compiler; YAML documents
// decode directly into the typed form. Both paths run semantic
// validation, so a loaded document is always structurally sound.
func LoadPrinciples(path string) (*cycle.Principles, []compiler.CycleWarning, error) {
	p, err := ParsePrinciples(path)
	if err != nil {
		return nil, nil, err
	}

	if errs := compiler.Validate(p); len(errs) > 0 {
		msgs := make([]string, len(errs))
		for i, e := range errs {
			msgs[i] = e.Error()
		}
		return nil, nil, WrapExitError(ExitFailure, "invalid principles",
			fmt.Errorf("%d problem(s): %v", len(errs), msgs))
	}

	return p, compiler.AnalyzeCycles(p), nil
}

// ParsePrinciples parses a document without running semantic validation.
// The validate command uses this to report all problems instead of
// stopping at the first.
func ParsePrinciples(path string) (*cycle.Principles, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "reading principles file", err)
	}

	switch ext := filepath.Ext(path); ext {
	case ".cue":
		return loadCUE(path, data)
	case ".yaml", ".yml":
		return loadYAML(data)
	default:
		return nil, NewExitError(ExitCommandError,
			fmt.Sprintf("unsupported principles format %q: want .cue, .yaml, or .yml", ext))
	}
}

func loadCUE(path string, data []byte) (*cycle.Principles, error) {
	ctx := cuecontext.New()
	v := ctx.CompileBytes(data, cue.Filename(path))
	if err := v.Err(); err != nil {
		return nil, WrapExitError(ExitFailure, "parsing CUE", err)
	}

	root := v.LookupPath(cue.ParsePath("principles"))
	if !root.Exists() {
		return nil, NewExitError(ExitFailure, "document has no principles struct")
	}

	p, err := compiler.CompilePrinciples(root)
	if err != nil {
		return nil, WrapExitError(ExitFailure, "compiling principles", err)
	}
	return p, nil
}

func loadYAML(data []byte) (*cycle.Principles, error) {
	var p cycle.Principles
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, WrapExitError(ExitFailure, "parsing YAML", err)
	}
	return &p, nil
}
