package cycle

import (
	"context"
	"fmt"
	"sort"

	"github.com/roach88/formgraph/internal/engine"
	"github.com/roach88/formgraph/internal/facet"
	"github.com/roach88/formgraph/internal/ir"
	"github.com/roach88/formgraph/internal/repo"
)

// Engines bundles the four command engines and their repositories into
// the builtin stage set. All four engines share one event bus.
type Engines struct {
	Entities   *engine.EntityEngine
	Properties *engine.PropertyEngine
	Contexts   *engine.ContextEngine
	Relations  *engine.RelationEngine

	EntityRepo   repo.Repository[*ir.Entity]
	PropertyRepo repo.Repository[*ir.Property]
	ContextRepo  repo.Repository[*ir.Context]
	RelationRepo repo.Repository[*ir.Relation]
}

// NewEngines wires four engines over the given repositories. The
// engine options (bus, tokens, logger) apply to all four.
func NewEngines(
	entities repo.Repository[*ir.Entity],
	properties repo.Repository[*ir.Property],
	contexts repo.Repository[*ir.Context],
	relations repo.Repository[*ir.Relation],
	opts ...engine.Option,
) *Engines {
	return &Engines{
		Entities:     engine.NewEntityEngine(entities, opts...),
		Properties:   engine.NewPropertyEngine(properties, opts...),
		Contexts:     engine.NewContextEngine(contexts, opts...),
		Relations:    engine.NewRelationEngine(relations, opts...),
		EntityRepo:   entities,
		PropertyRepo: properties,
		ContextRepo:  contexts,
		RelationRepo: relations,
	}
}

// Stages returns the builtin stage set: principles drive the engines,
// and each stage's output is read back from the repositories so repeated
// cycles over the same principles are idempotent.
func (e *Engines) Stages() Stages {
	return Stages{
		Seed:          e.SeedStage,
		Contextualize: e.ContextualizeStage,
		Reflect:       ReflectStage,
		Ground:        e.GroundStage,
		Model:         ModelStage,
		Control:       ControlStage,
		Plan:          PlanStage,
		Action:        ActionStage,
	}
}

// SeedStage creates one entity per shape, upserting so re-seeding is
// idempotent, and returns the seeded entities.
func (e *Engines) SeedStage(ctx context.Context, p *Principles) ([]*ir.Entity, error) {
	out := make([]*ir.Entity, 0, len(p.Shapes))

	for _, shape := range p.Shapes {
		id := shape.ID
		if id == "" {
			sig, err := shape.Signature()
			if err != nil {
				return nil, err
			}
			id = "entity:" + sig[:16]
		}

		ext, err := extObject(shape.Essence)
		if err != nil {
			return nil, err
		}

		exists, err := e.EntityRepo.Exists(ctx, id)
		if err != nil {
			return nil, err
		}
		if exists {
			name := shape.Name
			typ := shape.Type
			if _, err := e.Entities.Handle(ctx, &engine.SetCore{ID: id, Type: &typ, Name: &name}); err != nil {
				return nil, err
			}
		} else {
			if _, err := e.Entities.Handle(ctx, &engine.CreateEntity{
				ID:   id,
				Type: shape.Type,
				Name: shape.Name,
				Ext:  ext,
			}); err != nil {
				return nil, err
			}
		}

		ent, err := e.EntityRepo.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		out = append(out, ent)
	}

	return out, nil
}

// ContextualizeStage creates each declared context, its properties, and
// the context's entity membership, then returns the created properties.
func (e *Engines) ContextualizeStage(ctx context.Context, p *Principles, entities []*ir.Entity) ([]*ir.Property, error) {
	byID := make(map[string]*ir.Entity, len(entities))
	for _, ent := range entities {
		byID[ent.Core.ID] = ent
	}

	var out []*ir.Property

	for _, def := range p.Contexts {
		exists, err := e.ContextRepo.Exists(ctx, def.ID)
		if err != nil {
			return nil, err
		}
		if !exists {
			if _, err := e.Contexts.Handle(ctx, &engine.CreateContext{
				ID:   def.ID,
				Type: def.Type,
				Name: def.Name,
			}); err != nil {
				return nil, err
			}
		}

		for _, pd := range def.Properties {
			propID := pd.ID
			if propID == "" {
				propID = fmt.Sprintf("%s:%s", def.ID, pd.Key)
			}

			propExists, err := e.PropertyRepo.Exists(ctx, propID)
			if err != nil {
				return nil, err
			}
			if !propExists {
				if _, err := e.Properties.Handle(ctx, &engine.CreateProperty{
					ID:        propID,
					Type:      "system.Property",
					ContextID: def.ID,
					Key:       pd.Key,
				}); err != nil {
					return nil, err
				}
			}

			if pd.Entity != "" {
				ent, ok := byID[pd.Entity]
				if !ok {
					return nil, &repo.NotFoundError{Kind: ir.KindEntity, ID: pd.Entity}
				}
				if _, err := e.Properties.Handle(ctx, &engine.BindEntity{ID: propID, Ref: ent.Ref()}); err != nil {
					return nil, err
				}
				if _, err := e.Contexts.Handle(ctx, &engine.AddEntity{ID: def.ID, Ref: ent.Ref()}); err != nil {
					return nil, err
				}
			}

			if pd.Value != nil {
				val, err := ir.FromGo(pd.Value)
				if err != nil {
					return nil, err
				}
				if _, err := e.Properties.Handle(ctx, &engine.SetValue{
					ID:        propID,
					Value:     val,
					ValueType: ir.ValueType(pd.ValueType),
				}); err != nil {
					return nil, err
				}
			}

			prop, err := e.PropertyRepo.Get(ctx, propID)
			if err != nil {
				return nil, err
			}
			out = append(out, prop)
		}
	}

	return out, nil
}

// GroundStage applies morph rules: one relation per morph whose
// requirement is satisfied, created once and registered with the
// owning context's membership.
func (e *Engines) GroundStage(ctx context.Context, p *Principles, g *Graph) ([]*ir.Relation, error) {
	byID := make(map[string]*ir.Entity, len(g.Entities))
	for _, ent := range g.Entities {
		byID[ent.Core.ID] = ent
	}

	var out []*ir.Relation

	for _, m := range p.Morphs {
		source, ok := byID[m.Source]
		if !ok {
			continue
		}
		target, ok := byID[m.Target]
		if !ok {
			continue
		}
		if m.RequiresProperty != "" && !hasBoundProperty(g.Properties, m.Source, m.RequiresProperty) {
			continue
		}

		relID := "rel:" + m.ID
		exists, err := e.RelationRepo.Exists(ctx, relID)
		if err != nil {
			return nil, err
		}
		if !exists {
			direction := ir.Direction(m.Direction)
			if _, err := e.Relations.Handle(ctx, &engine.CreateRelation{
				ID:        relID,
				Type:      "system.Relation",
				Source:    source.Ref(),
				Target:    target.Ref(),
				Kind:      m.Kind,
				Strength:  m.Strength,
				Direction: direction,
			}); err != nil {
				return nil, err
			}
			// Register the relation only with contexts that contain one
			// of its endpoints.
			for _, def := range p.Contexts {
				c, err := e.ContextRepo.Get(ctx, def.ID)
				if err != nil {
					return nil, err
				}
				if !c.HasEntity(source.Ref()) && !c.HasEntity(target.Ref()) {
					continue
				}
				if _, err := e.Contexts.Handle(ctx, &engine.AddRelation{ID: def.ID, RelationID: relID}); err != nil {
					return nil, err
				}
			}
		}

		rel, err := e.RelationRepo.Get(ctx, relID)
		if err != nil {
			return nil, err
		}
		out = append(out, rel)
	}

	return out, nil
}

func extObject(essence map[string]any) (ir.Object, error) {
	if len(essence) == 0 {
		return nil, nil
	}
	out := make(ir.Object, len(essence))
	for k, v := range essence {
		val, err := ir.FromGo(v)
		if err != nil {
			return nil, err
		}
		out[k] = val
	}
	return out, nil
}

func hasBoundProperty(properties []*ir.Property, entityID, key string) bool {
	for _, p := range properties {
		if p.Key == key && p.Entity != nil && p.Entity.ID == entityID {
			return true
		}
	}
	return false
}

// ReflectStage adapts stored records into the reflection inputs and runs
// the read-only facet computation.
func ReflectStage(ctx context.Context, entities []*ir.Entity, properties []*ir.Property) (*facet.Result, error) {
	return facet.Reflect(facet.FromEntities(entities), facet.FromProperties(properties))
}

// ModelStage indexes the graph by type and kind.
func ModelStage(ctx context.Context, g *Graph) (*Projections, error) {
	proj := &Projections{
		EntitiesByType:     make(map[string][]string),
		RelationsByKind:    make(map[string][]string),
		PropertiesByEntity: make(map[string][]string),
	}

	for _, e := range g.Entities {
		proj.EntitiesByType[e.Core.Type] = append(proj.EntitiesByType[e.Core.Type], e.Core.ID)
	}
	for _, r := range g.Relations {
		proj.RelationsByKind[r.Kind] = append(proj.RelationsByKind[r.Kind], r.Core.ID)
	}
	for _, p := range g.Properties {
		if p.Entity != nil {
			proj.PropertiesByEntity[p.Entity.ID] = append(proj.PropertiesByEntity[p.Entity.ID], p.Core.ID)
		}
	}

	for _, index := range []map[string][]string{proj.EntitiesByType, proj.RelationsByKind, proj.PropertiesByEntity} {
		for _, ids := range index {
			sort.Strings(ids)
		}
	}
	return proj, nil
}

// ControlStage emits one signature-persist descriptor per unsigned
// record, in deterministic id order.
func ControlStage(ctx context.Context, g *Graph, proj *Projections) ([]Control, error) {
	var controls []Control
	for _, e := range sortedByID(g.Entities) {
		if len(e.Signature) == 0 {
			controls = append(controls, Control{
				Kind: "entity.setSignature",
				Args: ir.Object{"id": ir.String(e.Core.ID)},
			})
		}
	}
	for _, p := range sortedByID(g.Properties) {
		if len(p.Signature) == 0 {
			controls = append(controls, Control{
				Kind: "property.setSignature",
				Args: ir.Object{"id": ir.String(p.Core.ID)},
			})
		}
	}
	return controls, nil
}

// PlanStage turns controls into sequential tasks with a chain workflow.
func PlanStage(ctx context.Context, controls []Control) (*Work, error) {
	work := &Work{}
	for i, c := range controls {
		id := fmt.Sprintf("t%d", i+1)
		work.Tasks = append(work.Tasks, Task{ID: id, Kind: c.Kind, Args: c.Args})
		work.Workflow.Nodes = append(work.Workflow.Nodes, WorkflowNode{ID: id, Kind: c.Kind})
		if i > 0 {
			work.Workflow.Edges = append(work.Workflow.Edges, WorkflowEdge{
				From: fmt.Sprintf("t%d", i),
				To:   id,
			})
		}
	}
	return work, nil
}

// ActionStage computes reciprocal effects from reflect scores: things at
// or above the threshold get their determining score merged back as a
// facet.
func ActionStage(ctx context.Context, g *Graph, reflect *facet.Result, opts ActionOptions) (*ActionResult, error) {
	if reflect == nil {
		return &ActionResult{}, nil
	}

	result := &ActionResult{}
	for _, tf := range reflect.Things {
		score, ok := tf.Determining["score"].(ir.Int)
		if !ok || float64(score) < opts.Threshold {
			continue
		}
		result.Effects = append(result.Effects, Effect{
			Kind:   "entity.mergeFacets",
			Target: tf.ID,
			Args: ir.Object{
				"determining": ir.Object{"score": score},
				"signature":   ir.String(tf.Signature),
			},
		})
	}
	return result, nil
}
