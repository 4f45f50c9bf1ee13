package facet

import (
	"github.com/roach88/formgraph/internal/ir"
)

// FieldMap names the fields of an upstream row shape explicitly. One
// FieldMap per upstream schema version replaces guessing across field
// aliases: a missing mapped field is an error, not a silent fallback.
type FieldMap struct {
	ID      string
	Type    string
	Essence string
}

// Things extracts reflection inputs from loosely-shaped rows using the
// declared field names.
func (m FieldMap) Things(rows []ir.Object) ([]Thing, error) {
	out := make([]Thing, 0, len(rows))
	for _, row := range rows {
		id, ok := row[m.ID].(ir.String)
		if !ok || id == "" {
			return nil, &ir.ValidationError{Field: m.ID, Message: "missing or non-string id field"}
		}
		typ, ok := row[m.Type].(ir.String)
		if !ok {
			return nil, &ir.ValidationError{Field: m.Type, Message: "missing or non-string type field"}
		}

		thing := Thing{ID: string(id), Type: string(typ)}
		if m.Essence != "" {
			if essence, ok := row[m.Essence].(ir.Object); ok {
				thing.Essence = essence
			}
		}
		out = append(out, thing)
	}
	return out, nil
}

// PropertyFieldMap is the property-side counterpart of FieldMap.
type PropertyFieldMap struct {
	ID        string
	OwnerID   string
	OwnerType string
	Key       string
	Value     string
}

// Properties extracts reflection inputs from loosely-shaped rows.
func (m PropertyFieldMap) Properties(rows []ir.Object) ([]PropertyRecord, error) {
	out := make([]PropertyRecord, 0, len(rows))
	for _, row := range rows {
		id, ok := row[m.ID].(ir.String)
		if !ok || id == "" {
			return nil, &ir.ValidationError{Field: m.ID, Message: "missing or non-string id field"}
		}
		ownerID, ok := row[m.OwnerID].(ir.String)
		if !ok {
			return nil, &ir.ValidationError{Field: m.OwnerID, Message: "missing or non-string owner field"}
		}
		key, ok := row[m.Key].(ir.String)
		if !ok {
			return nil, &ir.ValidationError{Field: m.Key, Message: "missing or non-string key field"}
		}

		rec := PropertyRecord{
			ID:    string(id),
			Owner: ir.EntityRef{ID: string(ownerID)},
			Key:   string(key),
		}
		if m.OwnerType != "" {
			if ot, ok := row[m.OwnerType].(ir.String); ok {
				rec.Owner.Type = string(ot)
			}
		}
		if m.Value != "" {
			rec.Value = row[m.Value]
		}
		out = append(out, rec)
	}
	return out, nil
}

// FromEntities adapts stored entities into reflection inputs. The ext
// map serves as the essence.
func FromEntities(entities []*ir.Entity) []Thing {
	out := make([]Thing, 0, len(entities))
	for _, e := range entities {
		out = append(out, Thing{
			ID:      e.Core.ID,
			Type:    e.Core.Type,
			Essence: e.Ext,
		})
	}
	return out
}

// FromProperties adapts stored properties into reflection inputs.
// Properties not bound to an entity carry no owner and therefore
// contribute to no thing's external facet.
func FromProperties(props []*ir.Property) []PropertyRecord {
	out := make([]PropertyRecord, 0, len(props))
	for _, p := range props {
		rec := PropertyRecord{
			ID:    p.Core.ID,
			Key:   p.Key,
			Value: p.Value,
		}
		if p.Entity != nil {
			rec.Owner = *p.Entity
		}
		out = append(out, rec)
	}
	return out
}
