package compiler

import (
	"fmt"
	"sort"
	"strings"

	"github.com/roach88/formgraph/internal/cycle"
)

// CycleWarning reports a derivation loop among morphs.
//
// Loops are warnings, not errors: the runner's fixpoint loop is bounded,
// so a loop converges or stops at the iteration cap. The warning exists
// so authors notice unintended feedback between shapes.
type CycleWarning struct {
	Path    []string `json:"path"`
	Message string   `json:"message"`
}

// AnalyzeCycles finds loops in the morph derivation graph.
//
// The graph has one node per shape and one edge per morph from source to
// target. Strongly connected components of size greater than one, and
// self-loops, are reported. An acyclic document returns no warnings.
func AnalyzeCycles(p *cycle.Principles) []CycleWarning {
	if len(p.Morphs) == 0 {
		return nil
	}

	graph := make(map[string][]string)
	for _, m := range p.Morphs {
		graph[m.Source] = append(graph[m.Source], m.Target)
		if _, ok := graph[m.Target]; !ok {
			graph[m.Target] = nil
		}
	}
	for _, targets := range graph {
		sort.Strings(targets)
	}

	var warnings []CycleWarning
	for _, scc := range tarjanSCC(graph) {
		switch {
		case len(scc) > 1:
			sort.Strings(scc)
			path := append(scc, scc[0])
			warnings = append(warnings, CycleWarning{
				Path:    path,
				Message: fmt.Sprintf("derivation loop: %s", strings.Join(path, " -> ")),
			})
		case hasSelfLoop(scc[0], graph):
			warnings = append(warnings, CycleWarning{
				Path:    []string{scc[0], scc[0]},
				Message: fmt.Sprintf("self-referencing morph on %s", scc[0]),
			})
		}
	}

	sort.Slice(warnings, func(i, j int) bool {
		return warnings[i].Message < warnings[j].Message
	})
	return warnings
}

func hasSelfLoop(node string, graph map[string][]string) bool {
	for _, t := range graph[node] {
		if t == node {
			return true
		}
	}
	return false
}

// tarjanSCC finds strongly connected components. Nodes are visited in
// sorted order so output is deterministic.
func tarjanSCC(graph map[string][]string) [][]string {
	var (
		index   int
		stack   []string
		indices = make(map[string]int)
		lowlink = make(map[string]int)
		onStack = make(map[string]bool)
		sccs    [][]string
	)

	var connect func(string)
	connect = func(v string) {
		indices[v] = index
		lowlink[v] = index
		index++
		stack = append(stack, v)
		onStack[v] = true

		for _, w := range graph[v] {
			if _, seen := indices[w]; !seen {
				connect(w)
				lowlink[v] = min(lowlink[v], lowlink[w])
			} else if onStack[w] {
				lowlink[v] = min(lowlink[v], indices[w])
			}
		}

		if lowlink[v] == indices[v] {
			var scc []string
			for {
				w := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				onStack[w] = false
				scc = append(scc, w)
				if w == v {
					break
				}
			}
			sccs = append(sccs, scc)
		}
	}

	nodes := make([]string, 0, len(graph))
	for node := range graph {
		nodes = append(nodes, node)
	}
	sort.Strings(nodes)
	for _, node := range nodes {
		if _, seen := indices[node]; !seen {
			connect(node)
		}
	}

	return sccs
}
