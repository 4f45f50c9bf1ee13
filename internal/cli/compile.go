package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/formgraph/internal/compiler"
	"github.com/roach88/formgraph/internal/cycle"
	"github.com/roach88/formgraph/internal/ir"
)

// CompileOptions holds flags for the compile command.
type CompileOptions struct {
	*RootOptions
	Output string
}

// CompileResult is the compile command's payload.
type CompileResult struct {
	Principles *cycle.Principles       `json:"principles"`
	Warnings   []compiler.CycleWarning `json:"warnings,omitempty"`
	Stats      CompileStats            `json:"stats"`
}

// CompileStats summarizes a compiled document.
type CompileStats struct {
	Shapes     int `json:"shapes"`
	Contexts   int `json:"contexts"`
	Properties int `json:"properties"`
	Morphs     int `json:"morphs"`
}

// NewCompileCommand creates the compile command.
func NewCompileCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CompileOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "compile <principles-file>",
		Short: "Compile a principles document to canonical JSON",
		Long: `Compile a CUE or YAML principles document, validate it, and emit the
typed form as canonical JSON.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompile(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "output file path")

	return cmd
}

func runCompile(opts *CompileOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	p, warnings, err := LoadPrinciples(path)
	if err != nil {
		formatter.Error(errCodeFor(err), err.Error(), nil)
		return err
	}
	formatter.VerboseLog("compiled %s: %d shape(s), %d context(s), %d morph(s)",
		path, len(p.Shapes), len(p.Contexts), len(p.Morphs))
	for _, w := range warnings {
		formatter.VerboseLog("warning: %s", w.Message)
	}

	result := &CompileResult{
		Principles: p,
		Warnings:   warnings,
		Stats: CompileStats{
			Shapes:   len(p.Shapes),
			Contexts: len(p.Contexts),
			Morphs:   len(p.Morphs),
		},
	}
	for _, def := range p.Contexts {
		result.Stats.Properties += len(def.Properties)
	}

	if opts.Output != "" {
		data, err := canonicalPrinciples(p)
		if err != nil {
			formatter.Error(ErrCodeValidation, err.Error(), nil)
			return WrapExitError(ExitFailure, "encoding principles", err)
		}
		if err := os.WriteFile(opts.Output, data, 0o644); err != nil {
			formatter.Error(ErrCodeStore, err.Error(), nil)
			return WrapExitError(ExitCommandError, "writing output file", err)
		}
		formatter.VerboseLog("wrote %s", opts.Output)
	}

	return formatter.Successf(result,
		"Compiled %d shape(s), %d context(s), %d propert(ies), %d morph(s), %d warning(s)",
		result.Stats.Shapes, result.Stats.Contexts, result.Stats.Properties,
		result.Stats.Morphs, len(warnings))
}

// canonicalPrinciples serializes the document with the canonical encoder
// so compiled output is byte-stable.
func canonicalPrinciples(p *cycle.Principles) ([]byte, error) {
	shapes := make(ir.Array, 0, len(p.Shapes))
	for _, s := range p.Shapes {
		obj := ir.Object{
			"id":   ir.String(s.ID),
			"type": ir.String(s.Type),
		}
		if s.Name != "" {
			obj["name"] = ir.String(s.Name)
		}
		if len(s.Essence) > 0 {
			essence, err := ir.FromGo(s.Essence)
			if err != nil {
				return nil, fmt.Errorf("shape %s essence: %w", s.ID, err)
			}
			obj["essence"] = essence
		}
		shapes = append(shapes, obj)
	}

	contexts := make(ir.Array, 0, len(p.Contexts))
	for _, def := range p.Contexts {
		props := make(ir.Array, 0, len(def.Properties))
		for _, pd := range def.Properties {
			pobj := ir.Object{"key": ir.String(pd.Key)}
			if pd.ID != "" {
				pobj["id"] = ir.String(pd.ID)
			}
			if pd.Entity != "" {
				pobj["entity"] = ir.String(pd.Entity)
			}
			if pd.Value != nil {
				value, err := ir.FromGo(pd.Value)
				if err != nil {
					return nil, fmt.Errorf("property %s value: %w", pd.Key, err)
				}
				pobj["value"] = value
			}
			if pd.ValueType != "" {
				pobj["value_type"] = ir.String(pd.ValueType)
			}
			props = append(props, pobj)
		}
		obj := ir.Object{"id": ir.String(def.ID), "type": ir.String(def.Type)}
		if def.Name != "" {
			obj["name"] = ir.String(def.Name)
		}
		if len(props) > 0 {
			obj["properties"] = props
		}
		contexts = append(contexts, obj)
	}

	morphs := make(ir.Array, 0, len(p.Morphs))
	for _, m := range p.Morphs {
		obj := ir.Object{
			"id":     ir.String(m.ID),
			"kind":   ir.String(m.Kind),
			"source": ir.String(m.Source),
			"target": ir.String(m.Target),
		}
		if m.Direction != "" {
			obj["direction"] = ir.String(m.Direction)
		}
		if m.Strength != nil {
			obj["strength"] = ir.Float(*m.Strength)
		}
		if m.RequiresProperty != "" {
			obj["requires_property"] = ir.String(m.RequiresProperty)
		}
		morphs = append(morphs, obj)
	}

	return ir.MarshalCanonical(ir.Object{
		"shapes":   shapes,
		"contexts": contexts,
		"morphs":   morphs,
	})
}

// errCodeFor maps a load error to a structured output code.
func errCodeFor(err error) string {
	switch GetExitCode(err) {
	case ExitCommandError:
		return ErrCodeNotFound
	default:
		return ErrCodeValidation
	}
}
