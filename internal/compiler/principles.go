package compiler

import (
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"

	"github.com/roach88/formgraph/internal/cycle"
)

// CompilePrinciples parses a CUE value into Principles.
//
// The value should be the principles struct itself, e.g.:
//
//	ctx := cuecontext.New()
//	v := ctx.CompileString(src)
//	p, err := CompilePrinciples(v.LookupPath(cue.ParsePath("principles")))
//
// Labels provide default identifiers: a shape labelled "web" becomes
// entity:web unless it declares an explicit id, a context labelled
// "deploy" becomes ctx:deploy, and a morph's label is its id.
func CompilePrinciples(v cue.Value) (*cycle.Principles, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	p := &cycle.Principles{}

	shapes, err := parseShapes(v)
	if err != nil {
		return nil, err
	}
	p.Shapes = shapes

	contexts, err := parseContexts(v)
	if err != nil {
		return nil, err
	}
	p.Contexts = contexts

	morphs, err := parseMorphs(v)
	if err != nil {
		return nil, err
	}
	p.Morphs = morphs

	if len(p.Shapes) == 0 {
		return nil, &CompileError{
			Field:   "shape",
			Message: "at least one shape is required",
			Pos:     v.Pos(),
		}
	}

	return p, nil
}

func parseShapes(v cue.Value) ([]cycle.Shape, error) {
	shapeVal := v.LookupPath(cue.ParsePath("shape"))
	if !shapeVal.Exists() {
		return nil, nil
	}

	iter, err := shapeVal.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}

	var shapes []cycle.Shape
	for iter.Next() {
		label := iter.Label()
		sv := iter.Value()

		shape := cycle.Shape{ID: "entity:" + label}
		if err := optString(sv, "id", &shape.ID); err != nil {
			return nil, err
		}
		if err := reqString(sv, "type", &shape.Type); err != nil {
			return nil, err
		}
		if err := optString(sv, "name", &shape.Name); err != nil {
			return nil, err
		}

		essenceVal := sv.LookupPath(cue.ParsePath("essence"))
		if essenceVal.Exists() {
			essence, err := decodeStruct(essenceVal)
			if err != nil {
				return nil, err
			}
			shape.Essence = essence
		}

		shapes = append(shapes, shape)
	}
	return shapes, nil
}

func parseContexts(v cue.Value) ([]cycle.ContextDef, error) {
	ctxVal := v.LookupPath(cue.ParsePath("context"))
	if !ctxVal.Exists() {
		return nil, nil
	}

	iter, err := ctxVal.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}

	var contexts []cycle.ContextDef
	for iter.Next() {
		label := iter.Label()
		cv := iter.Value()

		def := cycle.ContextDef{ID: "ctx:" + label, Type: "system.Context"}
		if err := optString(cv, "id", &def.ID); err != nil {
			return nil, err
		}
		if err := optString(cv, "type", &def.Type); err != nil {
			return nil, err
		}
		if err := optString(cv, "name", &def.Name); err != nil {
			return nil, err
		}

		props, err := parseProperties(cv, def.ID)
		if err != nil {
			return nil, err
		}
		def.Properties = props

		contexts = append(contexts, def)
	}
	return contexts, nil
}

func parseProperties(cv cue.Value, contextID string) ([]cycle.PropertyDef, error) {
	propVal := cv.LookupPath(cue.ParsePath("property"))
	if !propVal.Exists() {
		return nil, nil
	}

	iter, err := propVal.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}

	var props []cycle.PropertyDef
	for iter.Next() {
		key := iter.Label()
		pv := iter.Value()

		def := cycle.PropertyDef{
			ID:  fmt.Sprintf("%s:%s", contextID, key),
			Key: key,
		}
		if err := optString(pv, "id", &def.ID); err != nil {
			return nil, err
		}
		if err := optString(pv, "entity", &def.Entity); err != nil {
			return nil, err
		}
		if err := optString(pv, "value_type", &def.ValueType); err != nil {
			return nil, err
		}

		valueVal := pv.LookupPath(cue.ParsePath("value"))
		if valueVal.Exists() {
			var value any
			if err := valueVal.Decode(&value); err != nil {
				return nil, formatCUEError(err)
			}
			def.Value = value
		}

		props = append(props, def)
	}
	return props, nil
}

func parseMorphs(v cue.Value) ([]cycle.Morph, error) {
	morphVal := v.LookupPath(cue.ParsePath("morph"))
	if !morphVal.Exists() {
		return nil, nil
	}

	iter, err := morphVal.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}

	var morphs []cycle.Morph
	for iter.Next() {
		mv := iter.Value()

		m := cycle.Morph{ID: iter.Label()}
		if err := reqString(mv, "kind", &m.Kind); err != nil {
			return nil, err
		}
		if err := reqString(mv, "source", &m.Source); err != nil {
			return nil, err
		}
		if err := reqString(mv, "target", &m.Target); err != nil {
			return nil, err
		}
		if err := optString(mv, "direction", &m.Direction); err != nil {
			return nil, err
		}
		if err := optString(mv, "requires_property", &m.RequiresProperty); err != nil {
			return nil, err
		}

		strengthVal := mv.LookupPath(cue.ParsePath("strength"))
		if strengthVal.Exists() {
			s, err := strengthVal.Float64()
			if err != nil {
				return nil, formatCUEError(err)
			}
			m.Strength = &s
		}

		morphs = append(morphs, m)
	}
	return morphs, nil
}

// decodeStruct flattens a CUE struct into a Go map.
func decodeStruct(v cue.Value) (map[string]any, error) {
	iter, err := v.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}

	out := make(map[string]any)
	for iter.Next() {
		var field any
		if err := iter.Value().Decode(&field); err != nil {
			return nil, formatCUEError(err)
		}
		out[iter.Label()] = field
	}
	return out, nil
}

func reqString(v cue.Value, name string, dst *string) error {
	fv := v.LookupPath(cue.ParsePath(name))
	if !fv.Exists() {
		return &CompileError{
			Field:   name,
			Message: name + " is required",
			Pos:     v.Pos(),
		}
	}
	s, err := fv.String()
	if err != nil {
		return formatCUEError(err)
	}
	*dst = s
	return nil
}

func optString(v cue.Value, name string, dst *string) error {
	fv := v.LookupPath(cue.ParsePath(name))
	if !fv.Exists() {
		return nil
	}
	s, err := fv.String()
	if err != nil {
		return formatCUEError(err)
	}
	*dst = s
	return nil
}

// CompileError is a compilation error with source position.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// formatCUEError extracts position info from CUE's multi-error values.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	first := errs[0]
	positions := errors.Positions(first)
	if len(positions) > 0 {
		return &CompileError{
			Field:   "cue",
			Message: first.Error(),
			Pos:     positions[0],
		}
	}
	return err
}
