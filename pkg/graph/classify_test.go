package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"depaudit/pkg/event"
)

func buildClassified(t *testing.T, events []event.Event, refs map[string]bool) *Graph {
	t.Helper()
	g := newTestBuilder(nil).Build(events)
	Classify(g, refs)
	return g
}

func TestClassifyKinds(t *testing.T) {
	events := []event.Event{
		{ScriptPath: "/project/a.R", Op: event.Read, RawPath: "raw.csv", Line: 1},
		{ScriptPath: "/project/a.R", Op: event.Write, RawPath: "mid.rds", Line: 2},
		{ScriptPath: "/project/b.R", Op: event.Read, RawPath: "mid.rds", Line: 1},
		{ScriptPath: "/project/b.R", Op: event.Write, RawPath: "fig.pdf", Line: 2},
		{ScriptPath: "/project/b.R", Op: event.Write, RawPath: "scratch.log", Line: 3},
		{ScriptPath: "/project/b.R", Op: event.Read, RawPath: "sprintf(f)", Line: 4, Dynamic: true},
	}
	refs := map[string]bool{"/project/fig.pdf": true}

	g := buildClassified(t, events, refs)

	assert.Equal(t, KindSource, g.Files["/project/raw.csv"].Kind)
	assert.Equal(t, KindIntermediate, g.Files["/project/mid.rds"].Kind)

	fig := g.Files["/project/fig.pdf"]
	assert.Equal(t, KindOutput, fig.Kind)
	assert.True(t, fig.ReferencedByManuscript)
	assert.False(t, fig.Orphan)

	scratch := g.Files["/project/scratch.log"]
	assert.Equal(t, KindOutput, scratch.Kind)
	assert.False(t, scratch.ReferencedByManuscript)
	assert.True(t, scratch.Orphan)
}

// A scanned LaTeX manuscript reads the figures it embeds, so a deliverable
// can classify INTERMEDIATE. The manuscript flag is an attribute and must
// survive that.
func TestClassifyManuscriptFlagOnIntermediates(t *testing.T) {
	events := []event.Event{
		{ScriptPath: "/project/plot.R", Op: event.Write, RawPath: "fig.pdf", Line: 1},
		{ScriptPath: "/project/main.tex", Op: event.Read, RawPath: "fig.pdf", Line: 1},
	}
	refs := map[string]bool{"/project/fig.pdf": true}

	g := buildClassified(t, events, refs)

	fig := g.Files["/project/fig.pdf"]
	assert.Equal(t, KindIntermediate, fig.Kind)
	assert.True(t, fig.ReferencedByManuscript)
	assert.False(t, fig.Orphan)
}

// Every file node must leave classification with a definite kind.
func TestClassifyIsComplete(t *testing.T) {
	events := []event.Event{
		{ScriptPath: "/project/a.R", Op: event.Read, RawPath: "in.csv", Line: 1},
		{ScriptPath: "/project/a.R", Op: event.Write, RawPath: "out.csv", Line: 2},
		{ScriptPath: "/project/a.R", Op: event.Write, RawPath: "glue(x)", Line: 3, Dynamic: true},
		{ScriptPath: "/project/b.R", Op: event.Read, RawPath: "out.csv", Line: 1},
	}

	g := buildClassified(t, events, nil)

	for p, n := range g.Files {
		assert.NotEqual(t, KindUnknown, n.Kind, p)
	}
}

func TestClassifyUnresolvedKeepsKind(t *testing.T) {
	events := []event.Event{
		{ScriptPath: "/project/a.R", Op: event.Write, RawPath: "paste0(x)", Line: 1, Dynamic: true},
	}

	g := buildClassified(t, events, nil)

	require.Len(t, g.Files, 1)
	for _, n := range g.Files {
		assert.Equal(t, KindUnresolved, n.Kind)
		// Unresolved nodes never pick up orphan or manuscript flags.
		assert.False(t, n.Orphan)
	}
}

func TestClassifyOrphanScript(t *testing.T) {
	events := []event.Event{
		{ScriptPath: "/project/explore.R", Op: event.Read, RawPath: "raw.csv", Line: 1},
		{ScriptPath: "/project/build.R", Op: event.Read, RawPath: "raw.csv", Line: 1},
		{ScriptPath: "/project/build.R", Op: event.Write, RawPath: "out.csv", Line: 2},
	}

	g := buildClassified(t, events, nil)

	assert.True(t, g.Scripts["/project/explore.R"].Orphan)
	assert.False(t, g.Scripts["/project/build.R"].Orphan)
}

// A script that writes nothing itself but includes one that does is not an
// orphan; the write is transitive.
func TestClassifyOrphanScriptTransitiveIncludes(t *testing.T) {
	events := []event.Event{
		{ScriptPath: "/project/main.do", Op: event.Include, RawPath: "clean.do", Line: 1},
		{ScriptPath: "/project/clean.do", Op: event.Write, RawPath: "clean.dta", Line: 1},
		{ScriptPath: "/project/lonely.do", Op: event.Include, RawPath: "noop.do", Line: 1},
		{ScriptPath: "/project/noop.do", Op: event.Read, RawPath: "clean.dta", Line: 1},
	}

	g := buildClassified(t, events, nil)

	assert.False(t, g.Scripts["/project/main.do"].Orphan)
	assert.True(t, g.Scripts["/project/lonely.do"].Orphan)
	assert.True(t, g.Scripts["/project/noop.do"].Orphan)
}

func TestClassifyOrphanScriptIncludeCycleTerminates(t *testing.T) {
	events := []event.Event{
		{ScriptPath: "/project/a.do", Op: event.Include, RawPath: "b.do", Line: 1},
		{ScriptPath: "/project/b.do", Op: event.Include, RawPath: "a.do", Line: 1},
	}

	g := buildClassified(t, events, nil)

	assert.True(t, g.Scripts["/project/a.do"].Orphan)
	assert.True(t, g.Scripts["/project/b.do"].Orphan)
}
