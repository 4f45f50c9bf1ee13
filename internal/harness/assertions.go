package harness

import "fmt"

func applyAssertion(r *Result, a Assertion) {
	switch a.Type {
	case AssertGraphCount:
		assertGraphCount(r, a)
	case AssertRelationExists:
		assertRelationExists(r, a)
	case AssertTaskIDs:
		assertTaskIDs(r, a)
	case AssertIterations:
		if r.Cycle.Iterations != a.Count {
			r.AddError(fmt.Sprintf("iterations: want %d, got %d", a.Count, r.Cycle.Iterations))
		}
	case AssertEventCount:
		assertEventCount(r, a)
	}
}

func assertGraphCount(r *Result, a Assertion) {
	var got int
	switch a.Kind {
	case "entity":
		got = len(r.Cycle.Graph.Entities)
	case "property":
		got = len(r.Cycle.Graph.Properties)
	case "relation":
		got = len(r.Cycle.Graph.Relations)
	}
	if got != a.Count {
		r.AddError(fmt.Sprintf("graph_count %s: want %d, got %d", a.Kind, a.Count, got))
	}
}

func assertRelationExists(r *Result, a Assertion) {
	for _, rel := range r.Cycle.Graph.Relations {
		if rel.Core.ID == a.ID {
			return
		}
	}
	r.AddError(fmt.Sprintf("relation_exists: %s not in graph", a.ID))
}

func assertTaskIDs(r *Result, a Assertion) {
	var got []string
	if r.Cycle.Work != nil {
		for _, task := range r.Cycle.Work.Tasks {
			got = append(got, task.ID)
		}
	}
	if len(got) != len(a.IDs) {
		r.AddError(fmt.Sprintf("task_ids: want %v, got %v", a.IDs, got))
		return
	}
	for i, id := range a.IDs {
		if got[i] != id {
			r.AddError(fmt.Sprintf("task_ids: want %v, got %v", a.IDs, got))
			return
		}
	}
}

func assertEventCount(r *Result, a Assertion) {
	got := 0
	for _, ev := range r.Events {
		if ev.Kind == a.Kind {
			got++
		}
	}
	if got != a.Count {
		r.AddError(fmt.Sprintf("event_count %s: want %d, got %d", a.Kind, a.Count, got))
	}
}
