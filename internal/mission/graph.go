package mission

import (
	"fmt"
	"sort"
	"strings"

	"github.com/jimmyjdejesus-cmyk/Jarvis-AI-sub003/internal/types"
)

// ValidateGraph checks that every dependency refers to a known node and that
// the edge list forms a DAG. A detected cycle is reported with its full path.
func ValidateGraph(g *Graph) error {
	if g == nil || len(g.Nodes) == 0 {
		return types.NewError(types.MISSION_INVALID, "graph must contain at least one node")
	}

	for stepID, node := range g.Nodes {
		for _, dep := range node.Deps {
			if _, ok := g.Nodes[dep]; !ok {
				return types.NewError(types.MISSION_INVALID,
					fmt.Sprintf("node %s depends on unknown step %s", stepID, dep))
			}
			if dep == stepID {
				return types.NewError(types.GRAPH_CYCLE,
					fmt.Sprintf("node %s depends on itself", stepID))
			}
		}
	}

	if cycle := detectCycle(g); len(cycle) > 0 {
		return types.NewError(types.GRAPH_CYCLE,
			fmt.Sprintf("cycle detected: %s", strings.Join(cycle, " -> ")))
	}
	return nil
}

// detectCycle runs DFS with color marking over the dependency edges.
// Colors: 0 = unvisited, 1 = in-progress, 2 = done. Returns the cycle path
// when a back edge is found, otherwise nil.
func detectCycle(g *Graph) []string {
	color := make(map[string]int, len(g.Nodes))
	parent := make(map[string]string, len(g.Nodes))
	adj := adjacency(g)

	var dfs func(id string) []string
	dfs = func(id string) []string {
		color[id] = 1
		for _, next := range adj[id] {
			switch color[next] {
			case 0:
				parent[next] = id
				if cycle := dfs(next); cycle != nil {
					return cycle
				}
			case 1:
				cycle := []string{next}
				for cur := id; cur != next; cur = parent[cur] {
					cycle = append([]string{cur}, cycle...)
				}
				return append([]string{next}, cycle...)
			}
		}
		color[id] = 2
		return nil
	}

	// Iterate in sorted order so cycle reports are deterministic.
	for _, id := range sortedStepIDs(g) {
		if color[id] == 0 {
			if cycle := dfs(id); cycle != nil {
				return cycle
			}
		}
	}
	return nil
}

// TopologicalOrder returns step IDs in dependency order using Kahn's
// algorithm. Returns an error if the graph contains a cycle.
func TopologicalOrder(g *Graph) ([]string, error) {
	adj := adjacency(g)
	inDegree := make(map[string]int, len(g.Nodes))
	for id := range g.Nodes {
		inDegree[id] = len(g.Nodes[id].Deps)
	}

	var queue []string
	for _, id := range sortedStepIDs(g) {
		if inDegree[id] == 0 {
			queue = append(queue, id)
		}
	}

	order := make([]string, 0, len(g.Nodes))
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		order = append(order, id)
		for _, next := range adj[id] {
			inDegree[next]--
			if inDegree[next] == 0 {
				queue = append(queue, next)
			}
		}
	}

	if len(order) != len(g.Nodes) {
		return nil, types.NewError(types.GRAPH_CYCLE, "graph contains a cycle")
	}
	return order, nil
}

// Dependents returns the reverse-dependency index: step ID to the steps that
// depend on it. The scheduler uses this to recompute readiness of only the
// affected nodes when a task completes.
func Dependents(g *Graph) map[string][]string {
	deps := make(map[string][]string, len(g.Nodes))
	for id, node := range g.Nodes {
		for _, dep := range node.Deps {
			deps[dep] = append(deps[dep], id)
		}
	}
	return deps
}

// adjacency maps each step to the steps that depend on it, following the
// direction of execution.
func adjacency(g *Graph) map[string][]string {
	adj := make(map[string][]string, len(g.Nodes))
	for id, node := range g.Nodes {
		for _, dep := range node.Deps {
			adj[dep] = append(adj[dep], id)
		}
	}
	for id := range adj {
		sort.Strings(adj[id])
	}
	return adj
}

func sortedStepIDs(g *Graph) []string {
	ids := make([]string, 0, len(g.Nodes))
	for id := range g.Nodes {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
