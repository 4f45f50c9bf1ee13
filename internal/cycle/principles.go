package cycle

import (
	"sort"

	"github.com/roach88/formgraph/internal/ir"
)

// Shape declares one entity to seed. A shape without an explicit id gets
// a derived one from its seed signature, so re-seeding the same shape is
// idempotent.
type Shape struct {
	ID      string         `json:"id,omitempty" yaml:"id,omitempty"`
	Type    string         `json:"type" yaml:"type"`
	Name    string         `json:"name,omitempty" yaml:"name,omitempty"`
	Essence map[string]any `json:"essence,omitempty" yaml:"essence,omitempty"`
}

// Signature returns the shape's stable identity: the explicit id when
// present, otherwise a content hash of type, name, and essence keys.
func (s Shape) Signature() (string, error) {
	keys := make([]string, 0, len(s.Essence))
	for k := range s.Essence {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return ir.SeedSignature(s.ID, s.Type, s.Name, keys)
}

// PropertyDef declares one property to create during Contextualize.
// Entity optionally names the seeded entity the property binds to.
type PropertyDef struct {
	ID        string `json:"id,omitempty" yaml:"id,omitempty"`
	Key       string `json:"key" yaml:"key"`
	Entity    string `json:"entity,omitempty" yaml:"entity,omitempty"`
	Value     any    `json:"value,omitempty" yaml:"value,omitempty"`
	ValueType string `json:"value_type,omitempty" yaml:"value_type,omitempty"`
}

// ContextDef declares one context and the properties it owns.
type ContextDef struct {
	ID         string        `json:"id" yaml:"id"`
	Type       string        `json:"type" yaml:"type"`
	Name       string        `json:"name,omitempty" yaml:"name,omitempty"`
	Properties []PropertyDef `json:"properties,omitempty" yaml:"properties,omitempty"`
}

// Morph declares one relation derivation rule: connect Source to Target
// with the given kind. When RequiresProperty is set the rule only fires
// once the source entity carries a bound property with that key.
type Morph struct {
	ID               string   `json:"id" yaml:"id"`
	Kind             string   `json:"kind" yaml:"kind"`
	Source           string   `json:"source" yaml:"source"`
	Target           string   `json:"target" yaml:"target"`
	Direction        string   `json:"direction,omitempty" yaml:"direction,omitempty"`
	Strength         *float64 `json:"strength,omitempty" yaml:"strength,omitempty"`
	RequiresProperty string   `json:"requires_property,omitempty" yaml:"requires_property,omitempty"`
}

// Principles is the declarative input of one cycle.
type Principles struct {
	Shapes   []Shape      `json:"shapes,omitempty" yaml:"shapes,omitempty"`
	Contexts []ContextDef `json:"contexts,omitempty" yaml:"contexts,omitempty"`
	Morphs   []Morph      `json:"morphs,omitempty" yaml:"morphs,omitempty"`
}
