package cycle

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/formgraph/internal/ir"
	"github.com/roach88/formgraph/internal/repo"
)

func newTestEngines() *Engines {
	return NewEngines(
		repo.NewMemory[*ir.Entity](ir.KindEntity),
		repo.NewMemory[*ir.Property](ir.KindProperty),
		repo.NewMemory[*ir.Context](ir.KindContext),
		repo.NewMemory[*ir.Relation](ir.KindRelation),
	)
}

func testPrinciples() *Principles {
	return &Principles{
		Shapes: []Shape{
			{ID: "entity:web", Type: "system.Service", Name: "Web", Essence: map[string]any{"lang": "go"}},
			{ID: "entity:db", Type: "system.Store", Name: "DB"},
		},
		Contexts: []ContextDef{
			{
				ID:   "ctx:deploy",
				Type: "system.Context",
				Name: "Deploy",
				Properties: []PropertyDef{
					{Key: "owns", Entity: "entity:web", Value: "db", ValueType: "string"},
					{Key: "depends", Entity: "entity:db"},
				},
			},
		},
		Morphs: []Morph{
			{ID: "m1", Kind: "owns", Source: "entity:web", Target: "entity:db", RequiresProperty: "owns"},
			{ID: "m2", Kind: "mirrors", Source: "entity:db", Target: "entity:web", RequiresProperty: "missing"},
		},
	}
}

func TestBuiltinGroundScopesRelationMembership(t *testing.T) {
	e := newTestEngines()
	ctx := context.Background()

	p := testPrinciples()
	// A second context with no stake in either endpoint of m1.
	p.Contexts = append(p.Contexts, ContextDef{
		ID:   "ctx:billing",
		Type: "system.Context",
		Name: "Billing",
	})

	_, err := Run(ctx, p, e.Stages())
	require.NoError(t, err)

	deploy, err := e.ContextRepo.Get(ctx, "ctx:deploy")
	require.NoError(t, err)
	assert.True(t, deploy.HasRelation("rel:m1"), "the context holding the endpoints gets the relation")

	billing, err := e.ContextRepo.Get(ctx, "ctx:billing")
	require.NoError(t, err)
	assert.False(t, billing.HasRelation("rel:m1"), "unrelated contexts must not collect the relation")
	assert.Empty(t, billing.Relations)
}

func TestBuiltinCycleEndToEnd(t *testing.T) {
	e := newTestEngines()
	ctx := context.Background()

	res, err := Run(ctx, testPrinciples(), e.Stages(), WithActionOptions(ActionOptions{Threshold: 2}))
	require.NoError(t, err, "builtin cycle should succeed")

	assert.Len(t, res.Graph.Entities, 2, "one entity per shape")
	assert.Len(t, res.Graph.Properties, 2, "one property per declaration")
	require.Len(t, res.Graph.Relations, 1, "only the satisfied morph fires")
	rel := res.Graph.Relations[0]
	assert.Equal(t, "rel:m1", rel.Core.ID)
	assert.Equal(t, "owns", rel.Kind)
	assert.Equal(t, "entity:web", rel.Source.ID)
	assert.Equal(t, "entity:db", rel.Target.ID)

	assert.Equal(t, 2, res.Iterations, "deterministic morphs converge on the second pass")
}

func TestBuiltinCyclePersistsRecords(t *testing.T) {
	e := newTestEngines()
	ctx := context.Background()

	_, err := Run(ctx, testPrinciples(), e.Stages())
	require.NoError(t, err)

	web, err := e.EntityRepo.Get(ctx, "entity:web")
	require.NoError(t, err)
	assert.Equal(t, "Web", web.Core.Name)
	assert.Equal(t, ir.Object{"lang": ir.String("go")}, web.Ext, "essence lands on the entity envelope")

	prop, err := e.PropertyRepo.Get(ctx, "ctx:deploy:owns")
	require.NoError(t, err)
	assert.Equal(t, "ctx:deploy", prop.ContextID)
	require.NotNil(t, prop.Entity)
	assert.Equal(t, "entity:web", prop.Entity.ID)
	assert.Equal(t, ir.String("db"), prop.Value)

	deploy, err := e.ContextRepo.Get(ctx, "ctx:deploy")
	require.NoError(t, err)
	assert.True(t, deploy.HasEntity(ir.EntityRef{ID: "entity:web", Type: "system.Service"}))
	assert.True(t, deploy.HasEntity(ir.EntityRef{ID: "entity:db", Type: "system.Store"}))
	assert.True(t, deploy.HasRelation("rel:m1"), "derived relation joins the context")
}

func TestBuiltinCycleRerunIsIdempotent(t *testing.T) {
	e := newTestEngines()
	ctx := context.Background()
	p := testPrinciples()

	first, err := Run(ctx, p, e.Stages())
	require.NoError(t, err)
	second, err := Run(ctx, p, e.Stages())
	require.NoError(t, err)

	assert.Len(t, second.Graph.Entities, 2, "re-seeding does not duplicate entities")
	assert.Len(t, second.Graph.Properties, 2)
	assert.Len(t, second.Graph.Relations, 1)

	h1, err := first.Graph.CanonicalHash()
	require.NoError(t, err)
	h2, err := second.Graph.CanonicalHash()
	require.NoError(t, err)
	assert.Equal(t, h1, h2, "structural state is stable across runs")
}

func TestBuiltinProjections(t *testing.T) {
	e := newTestEngines()
	res, err := Run(context.Background(), testPrinciples(), e.Stages())
	require.NoError(t, err)

	require.NotNil(t, res.Projections)
	assert.Equal(t, []string{"entity:web"}, res.Projections.EntitiesByType["system.Service"])
	assert.Equal(t, []string{"entity:db"}, res.Projections.EntitiesByType["system.Store"])
	assert.Equal(t, []string{"rel:m1"}, res.Projections.RelationsByKind["owns"])
	assert.Equal(t, []string{"ctx:deploy:owns"}, res.Projections.PropertiesByEntity["entity:web"])
}

func TestBuiltinControlsAndPlan(t *testing.T) {
	e := newTestEngines()
	res, err := Run(context.Background(), testPrinciples(), e.Stages())
	require.NoError(t, err)

	// All four records are unsigned, so each gets a persist task.
	require.Len(t, res.Controls, 4)
	assert.Equal(t, "entity.setSignature", res.Controls[0].Kind)
	require.Len(t, res.Work.Tasks, 4)
	assert.Equal(t, "t1", res.Work.Tasks[0].ID)
	assert.Equal(t, "t4", res.Work.Tasks[3].ID)
	require.Len(t, res.Work.Workflow.Edges, 3)
	assert.Equal(t, WorkflowEdge{From: "t1", To: "t2"}, res.Work.Workflow.Edges[0])
}

func TestBuiltinReflectAndAction(t *testing.T) {
	e := newTestEngines()
	res, err := Run(context.Background(), testPrinciples(), e.Stages(),
		WithActionOptions(ActionOptions{Threshold: 2}))
	require.NoError(t, err)

	require.NotNil(t, res.Reflect)
	require.Len(t, res.Reflect.Things, 2)

	scores := map[string]ir.Int{}
	for _, tf := range res.Reflect.Things {
		scores[tf.ID] = tf.Determining["score"].(ir.Int)
	}
	assert.Equal(t, ir.Int(2), scores["entity:web"], "one property plus essence")
	assert.Equal(t, ir.Int(1), scores["entity:db"], "one property, no essence")

	require.NotNil(t, res.Action)
	require.Len(t, res.Action.Effects, 1, "only entity:web clears the threshold")
	effect := res.Action.Effects[0]
	assert.Equal(t, "entity.mergeFacets", effect.Kind)
	assert.Equal(t, "entity:web", effect.Target)
}

func TestBuiltinSeedDerivesIDFromSignature(t *testing.T) {
	e := newTestEngines()
	p := &Principles{
		Shapes: []Shape{{Type: "system.Entity", Name: "anon", Essence: map[string]any{"k": "v"}}},
	}

	res, err := Run(context.Background(), p, e.Stages())
	require.NoError(t, err)
	require.Len(t, res.Graph.Entities, 1)

	id := res.Graph.Entities[0].Core.ID
	assert.Regexp(t, `^entity:[0-9a-f]{16}$`, id, "missing id falls back to the shape signature")
}

func TestBuiltinContextualizeUnknownEntity(t *testing.T) {
	e := newTestEngines()
	p := testPrinciples()
	p.Contexts[0].Properties = append(p.Contexts[0].Properties, PropertyDef{
		Key: "ghost", Entity: "entity:missing",
	})

	_, err := Run(context.Background(), p, e.Stages())
	assert.True(t, repo.IsNotFound(err), "unresolvable property binding fails the cycle")
}
