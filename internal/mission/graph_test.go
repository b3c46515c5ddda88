package mission

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jimmyjdejesus-cmyk/Jarvis-AI-sub003/internal/types"
)

func graphOf(t *testing.T, nodes ...*Node) *Graph {
	t.Helper()
	g := &Graph{Nodes: make(map[string]*Node, len(nodes))}
	for _, n := range nodes {
		g.Nodes[n.StepID] = n
		for _, dep := range n.Deps {
			g.Edges = append(g.Edges, Edge{From: dep, To: n.StepID})
		}
	}
	return g
}

func TestValidateGraph(t *testing.T) {
	t.Run("valid diamond", func(t *testing.T) {
		g := graphOf(t,
			&Node{StepID: "a", Capability: "x"},
			&Node{StepID: "b", Capability: "x", Deps: []string{"a"}},
			&Node{StepID: "c", Capability: "x", Deps: []string{"a"}},
			&Node{StepID: "d", Capability: "x", Deps: []string{"b", "c"}},
		)
		assert.NoError(t, ValidateGraph(g))
	})

	t.Run("empty graph", func(t *testing.T) {
		err := ValidateGraph(&Graph{})
		require.Error(t, err)
		assert.Equal(t, types.MISSION_INVALID, types.CodeOf(err))
	})

	t.Run("unknown dependency", func(t *testing.T) {
		g := graphOf(t, &Node{StepID: "a", Capability: "x", Deps: []string{"ghost"}})
		err := ValidateGraph(g)
		require.Error(t, err)
		assert.Equal(t, types.MISSION_INVALID, types.CodeOf(err))
		assert.Contains(t, err.Error(), "ghost")
	})

	t.Run("self dependency", func(t *testing.T) {
		g := graphOf(t, &Node{StepID: "a", Capability: "x", Deps: []string{"a"}})
		err := ValidateGraph(g)
		require.Error(t, err)
		assert.Equal(t, types.GRAPH_CYCLE, types.CodeOf(err))
	})

	t.Run("cycle reports path", func(t *testing.T) {
		g := graphOf(t,
			&Node{StepID: "a", Capability: "x", Deps: []string{"c"}},
			&Node{StepID: "b", Capability: "x", Deps: []string{"a"}},
			&Node{StepID: "c", Capability: "x", Deps: []string{"b"}},
		)
		err := ValidateGraph(g)
		require.Error(t, err)
		assert.Equal(t, types.GRAPH_CYCLE, types.CodeOf(err))
		assert.Contains(t, err.Error(), " -> ")
	})
}

func TestTopologicalOrder(t *testing.T) {
	g := graphOf(t,
		&Node{StepID: "a", Capability: "x"},
		&Node{StepID: "b", Capability: "x", Deps: []string{"a"}},
		&Node{StepID: "c", Capability: "x", Deps: []string{"a"}},
		&Node{StepID: "d", Capability: "x", Deps: []string{"b", "c"}},
	)

	order, err := TopologicalOrder(g)
	require.NoError(t, err)
	require.Len(t, order, 4)

	position := make(map[string]int, len(order))
	for i, id := range order {
		position[id] = i
	}
	assert.Less(t, position["a"], position["b"])
	assert.Less(t, position["a"], position["c"])
	assert.Less(t, position["b"], position["d"])
	assert.Less(t, position["c"], position["d"])
}

func TestDependents(t *testing.T) {
	g := graphOf(t,
		&Node{StepID: "a", Capability: "x"},
		&Node{StepID: "b", Capability: "x", Deps: []string{"a"}},
		&Node{StepID: "c", Capability: "x", Deps: []string{"a", "b"}},
	)

	deps := Dependents(g)
	assert.ElementsMatch(t, []string{"b", "c"}, deps["a"])
	assert.ElementsMatch(t, []string{"c"}, deps["b"])
	assert.Empty(t, deps["c"])
}

func TestNewMissionValidation(t *testing.T) {
	t.Run("rejects duplicate step ids", func(t *testing.T) {
		_, err := NewMission("m", "goal", RiskLevelLow, []*Node{
			{StepID: "a", Capability: "x"},
			{StepID: "a", Capability: "y"},
		})
		require.Error(t, err)
		assert.Equal(t, types.MISSION_INVALID, types.CodeOf(err))
	})

	t.Run("rejects cyclic definitions at construction", func(t *testing.T) {
		_, err := NewMission("m", "goal", RiskLevelLow, []*Node{
			{StepID: "a", Capability: "x", Deps: []string{"b"}},
			{StepID: "b", Capability: "x", Deps: []string{"a"}},
		})
		require.Error(t, err)
		assert.Equal(t, types.GRAPH_CYCLE, types.CodeOf(err))
	})

	t.Run("derives edges from deps", func(t *testing.T) {
		m, err := NewMission("m", "goal", RiskLevelMedium, []*Node{
			{StepID: "a", Capability: "x"},
			{StepID: "b", Capability: "x", Deps: []string{"a"}},
		})
		require.NoError(t, err)
		require.Len(t, m.Graph.Edges, 1)
		assert.Equal(t, Edge{From: "a", To: "b"}, m.Graph.Edges[0])
		assert.False(t, m.ID.IsZero())
	})
}
