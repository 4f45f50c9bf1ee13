package facet

import (
	"sort"

	"github.com/roach88/formgraph/internal/ir"
)

// Thing is the lightweight input shape of the reflection stage: an
// identity plus an optional essence map.
type Thing struct {
	ID      string    `json:"id"`
	Type    string    `json:"type"`
	Essence ir.Object `json:"essence,omitempty"`
}

// PropertyRecord is the property-side input shape.
type PropertyRecord struct {
	ID    string       `json:"id"`
	Owner ir.EntityRef `json:"owner"`
	Key   string       `json:"key"`
	Value ir.Value     `json:"-"`
}

// Facet is one computed reflection facet. Positing captures what the
// record asserts of itself, External what other records contribute, and
// Determining the combined judgment. Signature is the content-addressed
// hash of the record's reflective identity.
type Facet struct {
	Positing    ir.Object `json:"positing"`
	External    ir.Object `json:"external"`
	Determining ir.Object `json:"determining"`
	Signature   string    `json:"signature"`
}

// ThingFacet pairs a thing id with its facet.
type ThingFacet struct {
	ID string `json:"id"`
	Facet
}

// PropertyFacet pairs a property id with its facet.
type PropertyFacet struct {
	ID string `json:"id"`
	Facet
}

// Result is the output of one reflection pass, ordered by id for
// deterministic downstream consumption.
type Result struct {
	Things     []ThingFacet    `json:"things"`
	Properties []PropertyFacet `json:"properties"`
}

// Reflect computes facets and signatures for every thing and property.
// Read-only: inputs are never mutated.
func Reflect(things []Thing, properties []PropertyRecord) (*Result, error) {
	owned := make(map[string][]PropertyRecord, len(things))
	for _, p := range properties {
		owned[p.Owner.ID] = append(owned[p.Owner.ID], p)
	}

	result := &Result{}

	for _, thing := range things {
		props := owned[thing.ID]
		propKeys := make([]string, 0, len(props))
		for _, p := range props {
			propKeys = append(propKeys, p.Key)
		}
		sort.Strings(propKeys)
		essenceKeys := thing.Essence.SortedKeys()

		score := int64(len(props))
		if len(thing.Essence) > 0 {
			score++
		}

		sig, err := ir.ThingSignature(thing.ID, thing.Type, propKeys, essenceKeys)
		if err != nil {
			return nil, err
		}

		result.Things = append(result.Things, ThingFacet{
			ID: thing.ID,
			Facet: Facet{
				Positing: ir.Object{
					"id":                ir.String(thing.ID),
					"type":              ir.String(thing.Type),
					"essence_key_count": ir.Int(int64(len(thing.Essence))),
				},
				External: ir.Object{
					"property_count": ir.Int(int64(len(props))),
				},
				Determining: ir.Object{
					"score": ir.Int(score),
				},
				Signature: sig,
			},
		})
	}

	for _, p := range properties {
		sig, err := ir.PropertySignature(p.ID, p.Owner.ID, p.Key, p.Value)
		if err != nil {
			return nil, err
		}

		result.Properties = append(result.Properties, PropertyFacet{
			ID: p.ID,
			Facet: Facet{
				Positing: ir.Object{
					"key": ir.String(p.Key),
					"owner": ir.Object{
						"id":   ir.String(p.Owner.ID),
						"type": ir.String(p.Owner.Type),
					},
				},
				External: ir.Object{
					"value_type": ir.String(valueTypeName(p.Value)),
				},
				Determining: ir.Object{
					"expressive": ir.Bool(defined(p.Value)),
				},
				Signature: sig,
			},
		})
	}

	sort.Slice(result.Things, func(i, j int) bool { return result.Things[i].ID < result.Things[j].ID })
	sort.Slice(result.Properties, func(i, j int) bool { return result.Properties[i].ID < result.Properties[j].ID })
	return result, nil
}

func defined(v ir.Value) bool {
	if v == nil {
		return false
	}
	_, isNull := v.(ir.Null)
	return !isNull
}

func valueTypeName(v ir.Value) string {
	switch v.(type) {
	case nil, ir.Null:
		return "null"
	case ir.String:
		return "string"
	case ir.Int, ir.Float:
		return "number"
	case ir.Bool:
		return "boolean"
	case ir.Array:
		return "array"
	case ir.Object:
		return "object"
	default:
		return "unknown"
	}
}
