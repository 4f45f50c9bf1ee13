package query

import (
	"sort"

	"github.com/roach88/formgraph/internal/ir"
)

// field describes one logical field: where it lives in the records table
// and how to read it from a loaded record.
type field struct {
	// column is a real table column, or empty when the field lives in
	// the JSON body.
	column string
	// path is the json_extract path inside the body column.
	path string
	// get reads the field from a loaded record.
	get func(ir.Record) ir.Value
}

func envelopeField(column, path string, get func(*ir.Document) ir.Value) field {
	return field{column: column, path: path, get: func(r ir.Record) ir.Value {
		return get(r.Envelope())
	}}
}

// envelopeFields are valid for every record kind.
var envelopeFields = map[string]field{
	"id": envelopeField("id", "", func(d *ir.Document) ir.Value {
		return ir.String(d.Core.ID)
	}),
	"revision": envelopeField("revision", "", func(d *ir.Document) ir.Value {
		return ir.Int(d.Revision)
	}),
	"type": envelopeField("", "$.core.type", func(d *ir.Document) ir.Value {
		return ir.String(d.Core.Type)
	}),
	"name": envelopeField("", "$.core.name", func(d *ir.Document) ir.Value {
		return ir.String(d.Core.Name)
	}),
	"description": envelopeField("", "$.core.description", func(d *ir.Document) ir.Value {
		return ir.String(d.Core.Description)
	}),
	"status": envelopeField("", "$.state.status", func(d *ir.Document) ir.Value {
		return ir.String(string(d.State.Status))
	}),
	"version": envelopeField("", "$.version", func(d *ir.Document) ir.Value {
		return ir.String(d.Version)
	}),
}

// kindFields are the extra fields each record kind carries.
var kindFields = map[string]map[string]field{
	ir.KindEntity: {},
	ir.KindProperty: {
		"context_id": {path: "$.context_id", get: func(r ir.Record) ir.Value {
			return ir.String(r.(*ir.Property).ContextID)
		}},
		"key": {path: "$.key", get: func(r ir.Record) ir.Value {
			return ir.String(r.(*ir.Property).Key)
		}},
		"value_type": {path: "$.value_type", get: func(r ir.Record) ir.Value {
			return ir.String(string(r.(*ir.Property).ValueType))
		}},
		"entity_id": {path: "$.entity.id", get: func(r ir.Record) ir.Value {
			p := r.(*ir.Property)
			if p.Entity == nil {
				return ir.Null{}
			}
			return ir.String(p.Entity.ID)
		}},
		"relation_id": {path: "$.relation_id", get: func(r ir.Record) ir.Value {
			return ir.String(r.(*ir.Property).RelationID)
		}},
	},
	ir.KindContext: {},
	ir.KindRelation: {
		"relation_kind": {path: "$.kind", get: func(r ir.Record) ir.Value {
			return ir.String(r.(*ir.Relation).Kind)
		}},
		"source_id": {path: "$.source.id", get: func(r ir.Record) ir.Value {
			return ir.String(r.(*ir.Relation).Source.ID)
		}},
		"target_id": {path: "$.target.id", get: func(r ir.Record) ir.Value {
			return ir.String(r.(*ir.Relation).Target.ID)
		}},
		"direction": {path: "$.direction", get: func(r ir.Record) ir.Value {
			return ir.String(string(r.(*ir.Relation).Direction))
		}},
	},
}

// lookupField resolves a logical field for a kind.
func lookupField(kind, name string) (field, error) {
	extra, ok := kindFields[kind]
	if !ok {
		return field{}, &ir.ValidationError{Field: "kind", Message: "unknown record kind " + kind}
	}
	if f, ok := envelopeFields[name]; ok {
		return f, nil
	}
	if f, ok := extra[name]; ok {
		return f, nil
	}
	return field{}, &ir.ValidationError{Field: name, Message: "unknown field for kind " + kind}
}

// Fields lists the valid logical field names for a kind, or nil for an
// unknown kind.
func Fields(kind string) []string {
	extra, ok := kindFields[kind]
	if !ok {
		return nil
	}
	out := make([]string, 0, len(envelopeFields)+len(extra))
	for name := range envelopeFields {
		out = append(out, name)
	}
	for name := range extra {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
