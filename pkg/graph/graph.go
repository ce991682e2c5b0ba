// Package graph builds and classifies the data-flow graph implied by the
// read/write/include events extracted from a research codebase.
package graph

import (
	"sort"
	"time"

	"depaudit/pkg/event"
)

// FileKind classifies a file node by its edge topology.
type FileKind string

const (
	// KindSource is read by at least one script and written by none.
	KindSource FileKind = "SOURCE"
	// KindIntermediate is both written and read by scripts.
	KindIntermediate FileKind = "INTERMEDIATE"
	// KindOutput is written but read by nothing further.
	KindOutput FileKind = "OUTPUT"
	// KindUnresolved is a dynamic path expression that could not be
	// resolved to a concrete file.
	KindUnresolved FileKind = "UNRESOLVED"
	// KindUnknown is the pre-classification placeholder.
	KindUnknown FileKind = ""
)

// FileNode represents one filesystem path participating in the flow.
type FileNode struct {
	// Path is the canonical absolute path, or the synthetic key for an
	// unresolved expression.
	Path string
	// Kind is assigned by Classify and frozen afterwards.
	Kind FileKind
	// Exists and MTime are set at finalization by a filesystem check.
	Exists  bool
	MTime   time.Time
	HasTime bool
	// Producers and Consumers hold script paths writing/reading this file.
	Producers map[string]struct{}
	Consumers map[string]struct{}
	// Unresolved marks a node standing in for a dynamic expression.
	Unresolved bool
	// RawExpr is the original source expression for unresolved nodes.
	RawExpr string
	// UnresolvedReason explains why the node is unresolved.
	UnresolvedReason string
	// ReferencedByManuscript is set for outputs appearing in the
	// manuscript reference set.
	ReferencedByManuscript bool
	// Orphan is set for outputs nothing downstream consumes.
	Orphan bool
}

// ScriptNode represents one source file that performs I/O or includes other
// scripts.
type ScriptNode struct {
	Path     string
	Language event.Language
	// Reads, Writes and Includes preserve event order. Order matters for
	// working-directory resolution, not for ranking.
	Reads    []string
	Writes   []string
	Includes []string
	Exists   bool
	MTime    time.Time
	HasTime  bool
	// Orphan marks a script whose work feeds nothing downstream.
	Orphan bool
}

// Graph is the finalized set of file nodes, script nodes and edges for one
// audit run. Node identity (path → node) is owned exclusively by the Builder;
// nothing here persists across runs.
type Graph struct {
	Root    string
	Files   map[string]*FileNode
	Scripts map[string]*ScriptNode
}

// FilePaths returns all file node keys in lexicographic order.
func (g *Graph) FilePaths() []string {
	paths := make([]string, 0, len(g.Files))
	for p := range g.Files {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// ScriptPaths returns all script node paths in lexicographic order.
func (g *Graph) ScriptPaths() []string {
	paths := make([]string, 0, len(g.Scripts))
	for p := range g.Scripts {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// producerCount reports how many scripts write the node.
func (n *FileNode) producerCount() int { return len(n.Producers) }

// consumerCount reports how many scripts read the node.
func (n *FileNode) consumerCount() int { return len(n.Consumers) }
