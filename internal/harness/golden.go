package harness

import (
	"sort"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/formgraph/internal/ir"
)

// snapshot reduces a run to its structural outcome: sorted record ids,
// planned task ids, and the iteration count. Timestamps, revisions, and
// trace tokens are deliberately absent so the snapshot is stable across
// harness changes that do not alter semantics.
func snapshot(name string, r *Result) ir.Object {
	graph := &r.Cycle.Graph

	entities := make(ir.Array, 0, len(graph.Entities))
	for _, e := range sortedIDs(graph.Entities) {
		entities = append(entities, ir.String(e))
	}
	properties := make(ir.Array, 0, len(graph.Properties))
	for _, p := range sortedIDs(graph.Properties) {
		properties = append(properties, ir.String(p))
	}
	relations := make(ir.Array, 0, len(graph.Relations))
	for _, rel := range sortedIDs(graph.Relations) {
		relations = append(relations, ir.String(rel))
	}

	tasks := ir.Array{}
	if r.Cycle.Work != nil {
		for _, task := range r.Cycle.Work.Tasks {
			tasks = append(tasks, ir.Object{
				"id":   ir.String(task.ID),
				"kind": ir.String(task.Kind),
			})
		}
	}

	return ir.Object{
		"scenario":   ir.String(name),
		"entities":   entities,
		"properties": properties,
		"relations":  relations,
		"tasks":      tasks,
		"iterations": ir.Int(int64(r.Cycle.Iterations)),
	}
}

func sortedIDs[T ir.Record](records []T) []string {
	ids := make([]string, 0, len(records))
	for _, rec := range records {
		ids = append(ids, rec.Envelope().Core.ID)
	}
	sort.Strings(ids)
	return ids
}

// RunWithGolden executes a scenario and compares its structural snapshot
// against testdata/golden/<name>.golden.
func RunWithGolden(t *testing.T, s *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(s)
	if err != nil {
		return nil, err
	}

	data, err := ir.MarshalCanonical(snapshot(s.Name, result))
	if err != nil {
		return nil, err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, s.Name, data)

	return result, nil
}
