package engine

import (
	"github.com/roach88/formgraph/internal/ir"
)

// CommandMeta carries the optional cross-cutting fields of a command.
// Correlation is echoed into every emitted event's trace metadata.
// ExpectedRevision, when set, turns the command's repository write into a
// guarded write that fails with ConcurrencyConflictError on mismatch.
//
// Embed CommandMeta to make a struct a Command.
type CommandMeta struct {
	Correlation      string
	ExpectedRevision *int64
}

func (CommandMeta) isCommand()                 {}
func (m CommandMeta) commandMeta() CommandMeta { return m }

// Command is the sealed input type of every engine. One struct per verb,
// each with a typed payload; engines dispatch by exhaustive type switch
// and reject anything else with UnsupportedCommandError.
type Command interface {
	isCommand()
	commandMeta() CommandMeta
}

// Envelope verbs, shared by all four record kinds.

// Delete removes a record. Deleting an absent id is not an error: the
// emitted event carries ok=false.
type Delete struct {
	CommandMeta
	ID string
}

// Describe emits a redacted read-only summary of a record: core, state,
// and the key lists of the signature and facet maps, never their values.
// Describing an absent id fails with NotFoundError.
type Describe struct {
	CommandMeta
	ID string
}

// SetCore updates core descriptive fields. Nil fields are left untouched;
// the id itself is immutable.
type SetCore struct {
	CommandMeta
	ID          string
	Type        *string
	Name        *string
	Description *string
}

// SetState replaces the full lifecycle state.
type SetState struct {
	CommandMeta
	ID    string
	State ir.State
}

// PatchState shallow-merges into the lifecycle state. Nil fields are
// left untouched; Meta is merged key-wise, not replaced.
type PatchState struct {
	CommandMeta
	ID     string
	Status *ir.Status
	Tags   []string
	Meta   ir.Object
}

// SetFacets replaces the derived facet map.
type SetFacets struct {
	CommandMeta
	ID     string
	Facets ir.Object
}

// MergeFacets shallow-merges into the derived facet map.
type MergeFacets struct {
	CommandMeta
	ID    string
	Patch ir.Object
}

// SetSignature replaces the signature map. A nil signature clears it.
type SetSignature struct {
	CommandMeta
	ID        string
	Signature ir.Object
}

// MergeSignature shallow-merges into the signature map.
type MergeSignature struct {
	CommandMeta
	ID    string
	Patch ir.Object
}

// Entity verbs.

// CreateEntity creates a fresh entity at revision 0.
type CreateEntity struct {
	CommandMeta
	ID          string
	Type        string
	Name        string
	Description string
	Ext         ir.Object
}

// Property verbs.

// CreateProperty creates a fresh property owned by a context.
type CreateProperty struct {
	CommandMeta
	ID        string
	Type      string
	ContextID string
	Key       string
}

// BindEntity binds a property to an entity, clearing any relation
// binding.
type BindEntity struct {
	CommandMeta
	ID  string
	Ref ir.EntityRef
}

// BindRelation binds a property to a relation, clearing any entity
// binding.
type BindRelation struct {
	CommandMeta
	ID         string
	RelationID string
}

// ClearBinding removes both bindings from a property.
type ClearBinding struct {
	CommandMeta
	ID string
}

// SetValue sets a property's value and declared value type.
type SetValue struct {
	CommandMeta
	ID        string
	Value     ir.Value
	ValueType ir.ValueType
}

// ClearValue removes a property's value.
type ClearValue struct {
	CommandMeta
	ID string
}

// Context verbs. Membership operations are idempotent: adding a present
// member or removing an absent one emits the event but skips the
// repository write, so the revision does not move.

// CreateContext creates a fresh context at revision 0.
type CreateContext struct {
	CommandMeta
	ID   string
	Type string
	Name string
}

// AddEntity adds one entity reference to a context's membership.
type AddEntity struct {
	CommandMeta
	ID  string
	Ref ir.EntityRef
}

// AddEntities adds several entity references in one write.
type AddEntities struct {
	CommandMeta
	ID   string
	Refs []ir.EntityRef
}

// RemoveEntity removes one entity reference from membership.
type RemoveEntity struct {
	CommandMeta
	ID  string
	Ref ir.EntityRef
}

// ClearEntities empties the entity membership list.
type ClearEntities struct {
	CommandMeta
	ID string
}

// AddRelation adds one relation id to a context's membership.
type AddRelation struct {
	CommandMeta
	ID         string
	RelationID string
}

// AddRelations adds several relation ids in one write.
type AddRelations struct {
	CommandMeta
	ID          string
	RelationIDs []string
}

// RemoveRelation removes one relation id from membership.
type RemoveRelation struct {
	CommandMeta
	ID         string
	RelationID string
}

// ClearRelations empties the relation membership list.
type ClearRelations struct {
	CommandMeta
	ID string
}

// Relation verbs.

// CreateRelation creates a fresh relation at revision 0. Direction
// defaults to directed when empty.
type CreateRelation struct {
	CommandMeta
	ID        string
	Type      string
	Source    ir.EntityRef
	Target    ir.EntityRef
	Kind      string
	Strength  *float64
	Direction ir.Direction
}

// InvertRelation swaps source and target of a directed relation.
// Inverting a bidirectional relation emits the event with ok=false and
// performs no write.
type InvertRelation struct {
	CommandMeta
	ID string
}

// commandName returns the dotted wire name of a command for error
// messages and logging.
func commandName(cmd Command) string {
	switch cmd.(type) {
	case *Delete:
		return "delete"
	case *Describe:
		return "describe"
	case *SetCore:
		return "setCore"
	case *SetState:
		return "setState"
	case *PatchState:
		return "patchState"
	case *SetFacets:
		return "setFacets"
	case *MergeFacets:
		return "mergeFacets"
	case *SetSignature:
		return "setSignature"
	case *MergeSignature:
		return "mergeSignature"
	case *CreateEntity:
		return "entity.create"
	case *CreateProperty:
		return "property.create"
	case *BindEntity:
		return "property.bindEntity"
	case *BindRelation:
		return "property.bindRelation"
	case *ClearBinding:
		return "property.clearBinding"
	case *SetValue:
		return "property.setValue"
	case *ClearValue:
		return "property.clearValue"
	case *CreateContext:
		return "context.create"
	case *AddEntity:
		return "context.addEntity"
	case *AddEntities:
		return "context.addEntities"
	case *RemoveEntity:
		return "context.removeEntity"
	case *ClearEntities:
		return "context.clearEntities"
	case *AddRelation:
		return "context.addRelation"
	case *AddRelations:
		return "context.addRelations"
	case *RemoveRelation:
		return "context.removeRelation"
	case *ClearRelations:
		return "context.clearRelations"
	case *CreateRelation:
		return "relation.create"
	case *InvertRelation:
		return "relation.invert"
	default:
		return "unknown"
	}
}
