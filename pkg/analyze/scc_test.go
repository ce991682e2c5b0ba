package analyze

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func componentSets(components [][]string) []string {
	sets := make([]string, 0, len(components))
	for _, c := range components {
		sorted := append([]string(nil), c...)
		sort.Strings(sorted)
		key := ""
		for _, m := range sorted {
			key += m + ","
		}
		sets = append(sets, key)
	}
	sort.Strings(sets)
	return sets
}

func TestTarjanAcyclicGraph(t *testing.T) {
	nodes := []string{"a", "b", "c"}
	adj := map[string][]string{
		"a": {"b"},
		"b": {"c"},
	}

	components := tarjan(nodes, adj)

	require.Len(t, components, 3)
	for _, c := range components {
		assert.Len(t, c, 1)
	}
}

func TestTarjanTwoNodeCycle(t *testing.T) {
	nodes := []string{"a", "b", "c"}
	adj := map[string][]string{
		"a": {"b"},
		"b": {"a", "c"},
	}

	components := tarjan(nodes, adj)

	assert.Equal(t, []string{"a,b,", "c,"}, componentSets(components))
}

func TestTarjanThreeNodeCycleWithTail(t *testing.T) {
	nodes := []string{"a", "b", "c", "d"}
	adj := map[string][]string{
		"a": {"b"},
		"b": {"c"},
		"c": {"a", "d"},
	}

	components := tarjan(nodes, adj)

	assert.Equal(t, []string{"a,b,c,", "d,"}, componentSets(components))
}

// Components come back in reverse topological order of the condensation:
// every successor component appears before the component pointing at it.
func TestTarjanReverseTopologicalOrder(t *testing.T) {
	nodes := []string{"x", "y", "z"}
	adj := map[string][]string{
		"x": {"y"},
		"y": {"z"},
	}

	components := tarjan(nodes, adj)

	require.Len(t, components, 3)
	pos := make(map[string]int)
	for i, c := range components {
		pos[c[0]] = i
	}
	assert.Less(t, pos["z"], pos["y"])
	assert.Less(t, pos["y"], pos["x"])
}

func TestTarjanSelfLoop(t *testing.T) {
	nodes := []string{"a"}
	adj := map[string][]string{"a": {"a"}}

	components := tarjan(nodes, adj)

	require.Len(t, components, 1)
	assert.Equal(t, []string{"a"}, components[0])
}

func TestTarjanDisconnectedNodes(t *testing.T) {
	nodes := []string{"a", "b"}

	components := tarjan(nodes, map[string][]string{})

	assert.Len(t, components, 2)
}
