package compiler

import (
	"fmt"
	"strings"

	"github.com/roach88/formgraph/internal/cycle"
	"github.com/roach88/formgraph/internal/ir"
)

// Validation error codes (E200-E299).
const (
	ErrShapeIDEmpty       = "E200" // shape id must not be empty
	ErrShapeTypeEmpty     = "E201" // shape type must not be empty
	ErrDuplicateShape     = "E202" // duplicate shape id
	ErrDuplicateContext   = "E203" // duplicate context id
	ErrPropertyKeyEmpty   = "E204" // property key must not be empty
	ErrDuplicateProperty  = "E205" // duplicate property id
	ErrUnknownEntityRef   = "E206" // property references unknown shape
	ErrInvalidValueType   = "E207" // value_type outside the allowed set
	ErrDuplicateMorph     = "E208" // duplicate morph id
	ErrMorphEndpoint      = "E209" // morph endpoint references unknown shape
	ErrInvalidDirection   = "E210" // direction outside the allowed set
	ErrStrengthOutOfRange = "E211" // strength outside [0, 1]
)

// ValidationError is one semantic problem in a principles document.
// Field addresses the offending element by path.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

// Validate checks a compiled principles document for semantic problems:
// duplicate identifiers, dangling references, and out-of-range values.
// All problems are returned, not just the first.
func Validate(p *cycle.Principles) []ValidationError {
	var errs []ValidationError

	shapeIDs := make(map[string]bool, len(p.Shapes))
	for i, shape := range p.Shapes {
		field := fmt.Sprintf("shape[%d]", i)
		if strings.TrimSpace(shape.ID) == "" {
			errs = append(errs, ValidationError{
				Field:   field + ".id",
				Message: "id must not be empty",
				Code:    ErrShapeIDEmpty,
			})
			continue
		}
		if strings.TrimSpace(shape.Type) == "" {
			errs = append(errs, ValidationError{
				Field:   field + ".type",
				Message: fmt.Sprintf("shape %q needs a type", shape.ID),
				Code:    ErrShapeTypeEmpty,
			})
		}
		if shapeIDs[shape.ID] {
			errs = append(errs, ValidationError{
				Field:   field + ".id",
				Message: fmt.Sprintf("duplicate shape id %q", shape.ID),
				Code:    ErrDuplicateShape,
			})
		}
		shapeIDs[shape.ID] = true
	}

	contextIDs := make(map[string]bool, len(p.Contexts))
	propertyIDs := make(map[string]bool)
	for i, def := range p.Contexts {
		field := fmt.Sprintf("context[%d]", i)
		if contextIDs[def.ID] {
			errs = append(errs, ValidationError{
				Field:   field + ".id",
				Message: fmt.Sprintf("duplicate context id %q", def.ID),
				Code:    ErrDuplicateContext,
			})
		}
		contextIDs[def.ID] = true

		for j, pd := range def.Properties {
			pfield := fmt.Sprintf("%s.property[%d]", field, j)
			if strings.TrimSpace(pd.Key) == "" {
				errs = append(errs, ValidationError{
					Field:   pfield + ".key",
					Message: "key must not be empty",
					Code:    ErrPropertyKeyEmpty,
				})
			}
			if pd.ID != "" {
				if propertyIDs[pd.ID] {
					errs = append(errs, ValidationError{
						Field:   pfield + ".id",
						Message: fmt.Sprintf("duplicate property id %q", pd.ID),
						Code:    ErrDuplicateProperty,
					})
				}
				propertyIDs[pd.ID] = true
			}
			if pd.Entity != "" && !shapeIDs[pd.Entity] {
				errs = append(errs, ValidationError{
					Field:   pfield + ".entity",
					Message: fmt.Sprintf("unknown shape %q", pd.Entity),
					Code:    ErrUnknownEntityRef,
				})
			}
			if pd.ValueType != "" && !ir.ValidValueTypes[ir.ValueType(pd.ValueType)] {
				errs = append(errs, ValidationError{
					Field:   pfield + ".value_type",
					Message: fmt.Sprintf("invalid value type %q", pd.ValueType),
					Code:    ErrInvalidValueType,
				})
			}
		}
	}

	morphIDs := make(map[string]bool, len(p.Morphs))
	for i, m := range p.Morphs {
		field := fmt.Sprintf("morph[%d]", i)
		if morphIDs[m.ID] {
			errs = append(errs, ValidationError{
				Field:   field + ".id",
				Message: fmt.Sprintf("duplicate morph id %q", m.ID),
				Code:    ErrDuplicateMorph,
			})
		}
		morphIDs[m.ID] = true

		if !shapeIDs[m.Source] {
			errs = append(errs, ValidationError{
				Field:   field + ".source",
				Message: fmt.Sprintf("unknown shape %q", m.Source),
				Code:    ErrMorphEndpoint,
			})
		}
		if !shapeIDs[m.Target] {
			errs = append(errs, ValidationError{
				Field:   field + ".target",
				Message: fmt.Sprintf("unknown shape %q", m.Target),
				Code:    ErrMorphEndpoint,
			})
		}
		if m.Direction != "" &&
			ir.Direction(m.Direction) != ir.Directed &&
			ir.Direction(m.Direction) != ir.Bidirectional {
			errs = append(errs, ValidationError{
				Field:   field + ".direction",
				Message: fmt.Sprintf("invalid direction %q", m.Direction),
				Code:    ErrInvalidDirection,
			})
		}
		if m.Strength != nil && (*m.Strength < 0 || *m.Strength > 1) {
			errs = append(errs, ValidationError{
				Field:   field + ".strength",
				Message: fmt.Sprintf("strength %v outside [0, 1]", *m.Strength),
				Code:    ErrStrengthOutOfRange,
			})
		}
	}

	return errs
}
