package ir

import (
	"encoding/json"
	"fmt"
	"time"
)

// Status is the lifecycle state of a record.
type Status string

const (
	StatusActive   Status = "active"
	StatusArchived Status = "archived"
	StatusDeleted  Status = "deleted"
)

// ValidStatuses defines the allowed status values.
var ValidStatuses = map[Status]bool{
	StatusActive:   true,
	StatusArchived: true,
	StatusDeleted:  true,
}

// Record kind names. Used for repository namespacing, event scopes,
// and EntityRef dedup keys.
const (
	KindEntity   = "entity"
	KindProperty = "property"
	KindContext  = "context"
	KindRelation = "relation"
)

// Core holds the immutable identity and descriptive fields of a record.
// ID is immutable after creation and globally unique per record kind.
type Core struct {
	ID          string    `json:"id"`
	Type        string    `json:"type"`
	Name        string    `json:"name,omitempty"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// State holds the mutable lifecycle state of a record.
// Tags behave as a set for membership but preserve stored order.
type State struct {
	Status Status   `json:"status"`
	Tags   []string `json:"tags,omitempty"`
	Meta   Object   `json:"meta,omitempty"`
}

// Clone returns a deep copy of the state.
func (s State) Clone() State {
	out := State{Status: s.Status, Meta: s.Meta.Clone()}
	if s.Tags != nil {
		out.Tags = make([]string, len(s.Tags))
		copy(out.Tags, s.Tags)
	}
	return out
}

// Document is the versioned envelope shared by all four record kinds.
//
// Revision is the sole concurrency token: starts at 0, bumped by exactly 1
// on every accepted mutation, never decremented, never reused. Version is
// an independent caller-supplied label. Ext carries forward-compatible
// extension data and is merged, not replaced, on update. Facets and
// Signature carry derived data persisted by the setFacets/setSignature
// family of commands; they are snapshots, never the source of truth.
type Document struct {
	Core      Core   `json:"core"`
	State     State  `json:"state"`
	Revision  int64  `json:"revision"`
	Version   string `json:"version,omitempty"`
	Ext       Object `json:"ext,omitempty"`
	Facets    Object `json:"facets,omitempty"`
	Signature Object `json:"signature,omitempty"`
}

// Clone returns a deep copy of the envelope.
func (d Document) Clone() Document {
	out := d
	out.State = d.State.Clone()
	out.Ext = d.Ext.Clone()
	out.Facets = d.Facets.Clone()
	out.Signature = d.Signature.Clone()
	return out
}

// newDocument builds a fresh envelope at revision 0.
func newDocument(id, typ string, now time.Time) (Document, error) {
	if id == "" {
		return Document{}, &ValidationError{Field: "core.id", Message: "must not be empty"}
	}
	if typ == "" {
		return Document{}, &ValidationError{Field: "core.type", Message: "must not be empty"}
	}
	return Document{
		Core:  Core{ID: id, Type: typ, CreatedAt: now, UpdatedAt: now},
		State: State{Status: StatusActive},
	}, nil
}

// Record is the interface implemented by all four document kinds.
// Envelope exposes the shared versioned envelope for mutation by the
// repository; Clone produces the deep copy handed to callers so that the
// repository's copy is never aliased.
type Record interface {
	Envelope() *Document
	RecordKind() string
	CloneRecord() Record
}

// EntityRef is a non-owning reference to an Entity.
// It never implies lifecycle ownership of the referenced record.
type EntityRef struct {
	ID   string `json:"id"`
	Type string `json:"type"`
}

// Key returns the type:id pair used for membership dedup.
func (r EntityRef) Key() string {
	return r.Type + ":" + r.ID
}

// Validate checks that both fields are present.
func (r EntityRef) Validate() error {
	if r.ID == "" {
		return &ValidationError{Field: "ref.id", Message: "must not be empty"}
	}
	if r.Type == "" {
		return &ValidationError{Field: "ref.type", Message: "must not be empty"}
	}
	return nil
}

// Entity is a bare identity-bearing record: envelope only, no extra
// structural fields.
type Entity struct {
	Document
}

// NewEntity creates an Entity at revision 0.
func NewEntity(id, typ string, now time.Time) (*Entity, error) {
	doc, err := newDocument(id, typ, now)
	if err != nil {
		return nil, err
	}
	return &Entity{Document: doc}, nil
}

func (e *Entity) Envelope() *Document  { return &e.Document }
func (e *Entity) RecordKind() string   { return KindEntity }
func (e *Entity) CloneRecord() Record  { c := *e; c.Document = e.Document.Clone(); return &c }
func (e *Entity) Clone() *Entity       { return e.CloneRecord().(*Entity) }

// Ref returns a non-owning reference to this entity.
func (e *Entity) Ref() EntityRef {
	return EntityRef{ID: e.Core.ID, Type: e.Core.Type}
}

// ValueType classifies a Property value.
type ValueType string

const (
	ValueString  ValueType = "string"
	ValueNumber  ValueType = "number"
	ValueBoolean ValueType = "boolean"
	ValueDate    ValueType = "date"
	ValueObject  ValueType = "object"
	ValueArray   ValueType = "array"
)

// ValidValueTypes defines the allowed value type names.
var ValidValueTypes = map[ValueType]bool{
	ValueString:  true,
	ValueNumber:  true,
	ValueBoolean: true,
	ValueDate:    true,
	ValueObject:  true,
	ValueArray:   true,
}

// Property is a keyed value owned by a Context and optionally bound to
// either an Entity or a Relation - never both. Setting one binding clears
// the other.
type Property struct {
	Document
	ContextID  string     `json:"context_id"`
	Entity     *EntityRef `json:"entity,omitempty"`
	RelationID string     `json:"relation_id,omitempty"`
	Key        string     `json:"key,omitempty"`
	Value      Value      `json:"-"`
	ValueType  ValueType  `json:"value_type,omitempty"`
}

// NewProperty creates a Property at revision 0. contextID is required.
func NewProperty(id, typ, contextID string, now time.Time) (*Property, error) {
	doc, err := newDocument(id, typ, now)
	if err != nil {
		return nil, err
	}
	if contextID == "" {
		return nil, &ValidationError{Field: "context_id", Message: "must not be empty"}
	}
	return &Property{Document: doc, ContextID: contextID}, nil
}

func (p *Property) Envelope() *Document { return &p.Document }
func (p *Property) RecordKind() string  { return KindProperty }

func (p *Property) CloneRecord() Record {
	c := *p
	c.Document = p.Document.Clone()
	if p.Entity != nil {
		ref := *p.Entity
		c.Entity = &ref
	}
	c.Value = cloneValue(p.Value)
	return &c
}

func (p *Property) Clone() *Property { return p.CloneRecord().(*Property) }

// propertyJSON mirrors Property with the value carried as raw JSON so the
// sealed Value interface survives a round trip through storage.
type propertyJSON struct {
	Document
	ContextID  string          `json:"context_id"`
	Entity     *EntityRef      `json:"entity,omitempty"`
	RelationID string          `json:"relation_id,omitempty"`
	Key        string          `json:"key,omitempty"`
	Value      json.RawMessage `json:"value,omitempty"`
	ValueType  ValueType       `json:"value_type,omitempty"`
}

func (p *Property) MarshalJSON() ([]byte, error) {
	out := propertyJSON{
		Document:   p.Document,
		ContextID:  p.ContextID,
		Entity:     p.Entity,
		RelationID: p.RelationID,
		Key:        p.Key,
		ValueType:  p.ValueType,
	}
	if p.Value != nil {
		raw, err := MarshalValue(p.Value)
		if err != nil {
			return nil, err
		}
		out.Value = raw
	}
	return json.Marshal(out)
}

func (p *Property) UnmarshalJSON(data []byte) error {
	var in propertyJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return &SerializationError{Reason: err.Error()}
	}
	p.Document = in.Document
	p.ContextID = in.ContextID
	p.Entity = in.Entity
	p.RelationID = in.RelationID
	p.Key = in.Key
	p.ValueType = in.ValueType
	p.Value = nil
	if len(in.Value) > 0 {
		v, err := unmarshalValue(in.Value)
		if err != nil {
			return err
		}
		p.Value = v
	}
	return nil
}

// BindEntity binds the property to an entity, clearing any relation
// binding. The two binding fields are mutually exclusive.
func (p *Property) BindEntity(ref EntityRef) error {
	if err := ref.Validate(); err != nil {
		return err
	}
	r := ref
	p.Entity = &r
	p.RelationID = ""
	return nil
}

// BindRelation binds the property to a relation, clearing any entity
// binding.
func (p *Property) BindRelation(relationID string) error {
	if relationID == "" {
		return &ValidationError{Field: "relation_id", Message: "must not be empty"}
	}
	p.RelationID = relationID
	p.Entity = nil
	return nil
}

// ClearBinding removes both bindings.
func (p *Property) ClearBinding() {
	p.Entity = nil
	p.RelationID = ""
}

// SetValue sets the value and its declared type.
func (p *Property) SetValue(v Value, vt ValueType) error {
	if vt != "" && !ValidValueTypes[vt] {
		return &ValidationError{Field: "value_type", Message: fmt.Sprintf("unknown value type %q", vt)}
	}
	p.Value = cloneValue(v)
	p.ValueType = vt
	return nil
}

// ClearValue removes the value and its declared type.
func (p *Property) ClearValue() {
	p.Value = nil
	p.ValueType = ""
}

// Context is a membership record: an ordered, deduplicated list of entity
// references plus an ordered, deduplicated list of relation ids.
type Context struct {
	Document
	Entities  []EntityRef `json:"entities,omitempty"`
	Relations []string    `json:"relations,omitempty"`
}

// NewContext creates a Context at revision 0.
func NewContext(id, typ string, now time.Time) (*Context, error) {
	doc, err := newDocument(id, typ, now)
	if err != nil {
		return nil, err
	}
	return &Context{Document: doc}, nil
}

func (c *Context) Envelope() *Document { return &c.Document }
func (c *Context) RecordKind() string  { return KindContext }

func (c *Context) CloneRecord() Record {
	out := *c
	out.Document = c.Document.Clone()
	if c.Entities != nil {
		out.Entities = make([]EntityRef, len(c.Entities))
		copy(out.Entities, c.Entities)
	}
	if c.Relations != nil {
		out.Relations = make([]string, len(c.Relations))
		copy(out.Relations, c.Relations)
	}
	return &out
}

func (c *Context) Clone() *Context { return c.CloneRecord().(*Context) }

// HasEntity reports whether a reference with the same type:id pair is
// already a member.
func (c *Context) HasEntity(ref EntityRef) bool {
	for _, e := range c.Entities {
		if e.Key() == ref.Key() {
			return true
		}
	}
	return false
}

// AddEntity appends a reference if not already present (dedup by type:id).
// Returns true when membership changed.
func (c *Context) AddEntity(ref EntityRef) bool {
	if c.HasEntity(ref) {
		return false
	}
	c.Entities = append(c.Entities, ref)
	return true
}

// RemoveEntity removes a reference by type:id. Returns true when
// membership changed; removing an absent member is a no-op.
func (c *Context) RemoveEntity(ref EntityRef) bool {
	for i, e := range c.Entities {
		if e.Key() == ref.Key() {
			c.Entities = append(c.Entities[:i], c.Entities[i+1:]...)
			return true
		}
	}
	return false
}

// HasRelation reports whether the relation id is already a member.
func (c *Context) HasRelation(relationID string) bool {
	for _, r := range c.Relations {
		if r == relationID {
			return true
		}
	}
	return false
}

// AddRelation appends a relation id if not already present.
// Returns true when membership changed.
func (c *Context) AddRelation(relationID string) bool {
	if c.HasRelation(relationID) {
		return false
	}
	c.Relations = append(c.Relations, relationID)
	return true
}

// RemoveRelation removes a relation id. Returns true when membership
// changed.
func (c *Context) RemoveRelation(relationID string) bool {
	for i, r := range c.Relations {
		if r == relationID {
			c.Relations = append(c.Relations[:i], c.Relations[i+1:]...)
			return true
		}
	}
	return false
}

// Direction describes relation directionality.
type Direction string

const (
	Directed      Direction = "directed"
	Bidirectional Direction = "bidirectional"
)

// Relation is a directed or bidirectional edge between two entity
// references, carried in the same versioned envelope.
type Relation struct {
	Document
	Source    EntityRef `json:"source"`
	Target    EntityRef `json:"target"`
	Kind      string    `json:"kind"`
	Strength  *float64  `json:"strength,omitempty"`
	Direction Direction `json:"direction"`
}

// NewRelation creates a Relation at revision 0. Direction defaults to
// directed when empty.
func NewRelation(id, typ string, source, target EntityRef, kind string, now time.Time) (*Relation, error) {
	doc, err := newDocument(id, typ, now)
	if err != nil {
		return nil, err
	}
	if err := source.Validate(); err != nil {
		return nil, &ValidationError{Field: "source", Message: err.Error()}
	}
	if err := target.Validate(); err != nil {
		return nil, &ValidationError{Field: "target", Message: err.Error()}
	}
	if kind == "" {
		return nil, &ValidationError{Field: "kind", Message: "must not be empty"}
	}
	return &Relation{
		Document:  doc,
		Source:    source,
		Target:    target,
		Kind:      kind,
		Direction: Directed,
	}, nil
}

func (r *Relation) Envelope() *Document { return &r.Document }
func (r *Relation) RecordKind() string  { return KindRelation }

func (r *Relation) CloneRecord() Record {
	c := *r
	c.Document = r.Document.Clone()
	if r.Strength != nil {
		s := *r.Strength
		c.Strength = &s
	}
	return &c
}

func (r *Relation) Clone() *Relation { return r.CloneRecord().(*Relation) }

// Invert swaps source and target for a directed relation.
// Inverting a bidirectional relation is a no-op.
// Returns true when the endpoints changed.
func (r *Relation) Invert() bool {
	if r.Direction == Bidirectional {
		return false
	}
	r.Source, r.Target = r.Target, r.Source
	return true
}
