package cycle

import (
	"context"
	"sort"

	"github.com/roach88/formgraph/internal/facet"
	"github.com/roach88/formgraph/internal/ir"
)

// Graph is the assembled output of the Seed, Contextualize, and Ground
// stages.
type Graph struct {
	Entities   []*ir.Entity   `json:"entities"`
	Properties []*ir.Property `json:"properties"`
	Relations  []*ir.Relation `json:"relations"`
}

// CanonicalHash computes a content hash of the graph's structural state.
// The fixpoint loop uses it to detect convergence, so it must be
// independent of slice order and of envelope bookkeeping like timestamps.
func (g *Graph) CanonicalHash() (string, error) {
	entities := make([]ir.Value, 0, len(g.Entities))
	for _, e := range sortedByID(g.Entities) {
		entities = append(entities, ir.Object{
			"id":   ir.String(e.Core.ID),
			"type": ir.String(e.Core.Type),
		})
	}

	properties := make([]ir.Value, 0, len(g.Properties))
	for _, p := range sortedByID(g.Properties) {
		obj := ir.Object{
			"id":      ir.String(p.Core.ID),
			"key":     ir.String(p.Key),
			"context": ir.String(p.ContextID),
		}
		if p.Entity != nil {
			obj["entity"] = ir.String(p.Entity.Key())
		}
		if p.RelationID != "" {
			obj["relation"] = ir.String(p.RelationID)
		}
		if p.Value != nil {
			obj["value"] = p.Value
		}
		properties = append(properties, obj)
	}

	relations := make([]ir.Value, 0, len(g.Relations))
	for _, r := range sortedByID(g.Relations) {
		relations = append(relations, ir.Object{
			"id":     ir.String(r.Core.ID),
			"kind":   ir.String(r.Kind),
			"source": ir.String(r.Source.Key()),
			"target": ir.String(r.Target.Key()),
		})
	}

	return ir.Hash(ir.DomainGraph, ir.Object{
		"entities":   ir.Array(entities),
		"properties": ir.Array(properties),
		"relations":  ir.Array(relations),
	})
}

func sortedByID[T ir.Record](records []T) []T {
	out := make([]T, len(records))
	copy(out, records)
	sort.Slice(out, func(i, j int) bool {
		return out[i].Envelope().Core.ID < out[j].Envelope().Core.ID
	})
	return out
}

// Projections are the free-form indexes the Model stage derives from the
// graph.
type Projections struct {
	EntitiesByType     map[string][]string `json:"entities_by_type,omitempty"`
	RelationsByKind    map[string][]string `json:"relations_by_kind,omitempty"`
	PropertiesByEntity map[string][]string `json:"properties_by_entity,omitempty"`
}

// Control is one action descriptor emitted by the Control stage.
type Control struct {
	Kind string    `json:"kind"`
	Args ir.Object `json:"args,omitempty"`
}

// Task is one planned unit of work.
type Task struct {
	ID   string    `json:"id"`
	Kind string    `json:"kind"`
	Args ir.Object `json:"args,omitempty"`
}

// WorkflowNode and WorkflowEdge form the plan's execution DAG.
type WorkflowNode struct {
	ID   string `json:"id"`
	Kind string `json:"kind"`
}

type WorkflowEdge struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// Workflow is the DAG over planned tasks.
type Workflow struct {
	Nodes []WorkflowNode `json:"nodes,omitempty"`
	Edges []WorkflowEdge `json:"edges,omitempty"`
}

// Work is the Plan stage's output.
type Work struct {
	Tasks    []Task   `json:"tasks,omitempty"`
	Workflow Workflow `json:"workflow"`
}

// Effect is one reciprocal action computed by the optional Action stage.
type Effect struct {
	Kind   string    `json:"kind"`
	Target string    `json:"target"`
	Args   ir.Object `json:"args,omitempty"`
}

// ActionResult is the optional Action stage's output.
type ActionResult struct {
	Effects []Effect `json:"effects,omitempty"`
}

// Stage function signatures. Required stages abort the cycle on error;
// the optional Reflect and Action funcs may be nil.
type (
	SeedFunc          func(ctx context.Context, p *Principles) ([]*ir.Entity, error)
	ContextualizeFunc func(ctx context.Context, p *Principles, entities []*ir.Entity) ([]*ir.Property, error)
	ReflectFunc       func(ctx context.Context, entities []*ir.Entity, properties []*ir.Property) (*facet.Result, error)
	GroundFunc        func(ctx context.Context, p *Principles, g *Graph) ([]*ir.Relation, error)
	ModelFunc         func(ctx context.Context, g *Graph) (*Projections, error)
	ControlFunc       func(ctx context.Context, g *Graph, proj *Projections) ([]Control, error)
	PlanFunc          func(ctx context.Context, controls []Control) (*Work, error)
	ActionFunc        func(ctx context.Context, g *Graph, reflect *facet.Result, opts ActionOptions) (*ActionResult, error)
)

// ActionOptions configures the optional Action stage.
type ActionOptions struct {
	Threshold float64
	ContextID string
}

// Stages bundles the stage functions of one cycle. This bundle is the
// pluggability seam: swap any func to change behavior without touching
// the orchestrator.
type Stages struct {
	Seed          SeedFunc
	Contextualize ContextualizeFunc
	Reflect       ReflectFunc
	Ground        GroundFunc
	Model         ModelFunc
	Control       ControlFunc
	Plan          PlanFunc
	Action        ActionFunc
}

// Result is the output of one completed cycle. Reflect and Action are
// nil when their stages were absent or failed open.
type Result struct {
	Graph       Graph         `json:"graph"`
	Projections *Projections  `json:"projections"`
	Controls    []Control     `json:"controls,omitempty"`
	Work        *Work         `json:"work"`
	Reflect     *facet.Result `json:"reflect,omitempty"`
	Action      *ActionResult `json:"action,omitempty"`
	Iterations  int           `json:"iterations"`
}
