package schema

import (
	"fmt"
	"sort"
	"strings"
)

// RelationshipGraph represents the many2one dependency graph between models.
// A model depends on every model one of its many2one fields points to.
type RelationshipGraph struct {
	nodes []string
	edges map[string][]string // model -> dependencies
}

// NewRelationshipGraph creates a new relationship graph from a processed schema.
// Self references are not dependencies.
func NewRelationshipGraph(s *Schema) *RelationshipGraph {
	graph := &RelationshipGraph{
		nodes: s.Models(),
		edges: make(map[string][]string),
	}

	for _, model := range graph.nodes {
		seen := make(map[string]bool)
		for _, f := range s.Fields(model) {
			if f.Type != FieldMany2One || f.Relation == model || seen[f.Relation] || !s.Exists(f.Relation) {
				continue
			}
			seen[f.Relation] = true
			graph.edges[model] = append(graph.edges[model], f.Relation)
		}
		sort.Strings(graph.edges[model])
	}

	return graph
}

// DetectCycles detects circular dependencies in the relationship graph
func (g *RelationshipGraph) DetectCycles() [][]string {
	var cycles [][]string
	visited := make(map[string]bool)
	onStack := make(map[string]bool)

	var dfs func(node string, path []string)
	dfs = func(node string, path []string) {
		visited[node] = true
		onStack[node] = true
		path = append(path, node)

		for _, neighbor := range g.edges[node] {
			if !visited[neighbor] {
				dfs(neighbor, path)
			} else if onStack[neighbor] {
				for i, n := range path {
					if n == neighbor {
						cycle := make([]string, len(path)-i)
						copy(cycle, path[i:])
						cycles = append(cycles, cycle)
						break
					}
				}
			}
		}

		onStack[node] = false
	}

	for _, node := range g.nodes {
		if !visited[node] {
			dfs(node, nil)
		}
	}

	return cycles
}

// TopologicalSort returns models in dependency order (dependencies first)
func (g *RelationshipGraph) TopologicalSort() ([]string, error) {
	outDegree := make(map[string]int, len(g.nodes))
	for _, node := range g.nodes {
		outDegree[node] = len(g.edges[node])
	}

	reverseEdges := make(map[string][]string)
	for _, source := range g.nodes {
		for _, target := range g.edges[source] {
			reverseEdges[target] = append(reverseEdges[target], source)
		}
	}

	var queue []string
	for _, node := range g.nodes {
		if outDegree[node] == 0 {
			queue = append(queue, node)
		}
	}

	result := make([]string, 0, len(g.nodes))
	for len(queue) > 0 {
		node := queue[0]
		queue = queue[1:]
		result = append(result, node)

		for _, dependent := range reverseEdges[node] {
			outDegree[dependent]--
			if outDegree[dependent] == 0 {
				queue = append(queue, dependent)
			}
		}
	}

	if len(result) != len(g.nodes) {
		return nil, fmt.Errorf("circular dependency detected:\n%s", formatCycles(g.DetectCycles()))
	}

	return result, nil
}

// GetDependencies returns all direct dependencies of a model
func (g *RelationshipGraph) GetDependencies(model string) []string {
	deps := g.edges[model]
	out := make([]string, len(deps))
	copy(out, deps)
	return out
}

// GetDependents returns all models that depend on the given model
func (g *RelationshipGraph) GetDependents(model string) []string {
	var dependents []string
	for _, node := range g.nodes {
		for _, dep := range g.edges[node] {
			if dep == model {
				dependents = append(dependents, node)
				break
			}
		}
	}
	return dependents
}

// formatCycles formats cycle information for error messages
func formatCycles(cycles [][]string) string {
	var b strings.Builder
	for i, cycle := range cycles {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "  Cycle %d: %s -> %s", i+1, strings.Join(cycle, " -> "), cycle[0])
	}
	return b.String()
}

// FormatCycles renders cycles the way TopologicalSort reports them
func FormatCycles(cycles [][]string) string {
	return formatCycles(cycles)
}
