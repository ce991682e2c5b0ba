package analyze

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"depaudit/pkg/graph"
)

// Analyze walks the finalized, classified graph and returns every finding:
// stale edges, missing dependencies, orphaned outputs, cycles, and unresolved
// nodes. The result order is deterministic for a given graph.
//
// Staleness uses dependency direction: a file is upstream of the scripts that
// read it, a script is upstream of the files it writes, and an included
// script is upstream of its includer. Effective modification times propagate
// in topological order, so re-touching a root flags every downstream
// artifact, not only the immediate child. Equal timestamps are in sync; bulk
// checkouts must not produce false positives.
func Analyze(g *graph.Graph) []Finding {
	var findings []Finding

	findings = append(findings, unresolvedFindings(g)...)
	findings = append(findings, missingFindings(g)...)
	findings = append(findings, orphanFindings(g)...)

	nodes, adj := dependencyGraph(g)
	components := tarjan(nodes, adj)

	findings = append(findings, cycleFindings(components)...)
	findings = append(findings, staleFindings(g, nodes, adj, components)...)

	return findings
}

// dependencyGraph restricts the graph to nodes with a known mtime and builds
// the dependency-direction adjacency over them.
func dependencyGraph(g *graph.Graph) ([]string, map[string][]string) {
	timed := make(map[string]bool)
	for _, p := range g.FilePaths() {
		n := g.Files[p]
		if !n.Unresolved && n.Exists && n.HasTime {
			timed[p] = true
		}
	}
	for _, p := range g.ScriptPaths() {
		if s := g.Scripts[p]; s.Exists && s.HasTime {
			timed[p] = true
		}
	}

	adj := make(map[string][]string)
	addEdge := func(from, to string) {
		if timed[from] && timed[to] {
			adj[from] = append(adj[from], to)
		}
	}

	for _, p := range g.FilePaths() {
		n := g.Files[p]
		if n.Unresolved {
			continue
		}
		for _, consumer := range sortedKeys(n.Consumers) {
			addEdge(n.Path, consumer)
		}
		for _, producer := range sortedKeys(n.Producers) {
			addEdge(producer, n.Path)
		}
	}
	for _, p := range g.ScriptPaths() {
		s := g.Scripts[p]
		for _, inc := range s.Includes {
			// Included code affects the includer's results.
			addEdge(inc, s.Path)
		}
	}

	nodes := make([]string, 0, len(timed))
	for n := range timed {
		nodes = append(nodes, n)
	}
	sort.Strings(nodes)
	return nodes, adj
}

// staleFindings collapses SCCs, orders the condensation, propagates effective
// mtimes, and flags every cross-component edge into a file node whose
// effective upstream time strictly exceeds the file's mtime. Script nodes
// propagate but are never flagged: a consumer script is routinely older than
// the data it reads, and scripts are not rebuilt artifacts.
func staleFindings(g *graph.Graph, nodes []string, adj map[string][]string, components [][]string) []Finding {
	comp := make(map[string]int)
	for i, members := range components {
		for _, m := range members {
			comp[m] = i
		}
	}

	// Condensation adjacency and in-degrees for Kahn's algorithm.
	condAdj := make(map[int]map[int]bool)
	inDegree := make(map[int]int, len(components))
	for i := range components {
		inDegree[i] = 0
	}
	for _, from := range nodes {
		for _, to := range adj[from] {
			cf, ct := comp[from], comp[to]
			if cf == ct {
				continue
			}
			if condAdj[cf] == nil {
				condAdj[cf] = make(map[int]bool)
			}
			if !condAdj[cf][ct] {
				condAdj[cf][ct] = true
				inDegree[ct]++
			}
		}
	}

	mtime := func(id string) time.Time {
		if n, ok := g.Files[id]; ok {
			return n.MTime
		}
		return g.Scripts[id].MTime
	}

	// Effective time per component: newest member mtime, then max over
	// everything upstream, folded in topological order.
	eff := make([]time.Time, len(components))
	for i, members := range components {
		for _, m := range members {
			if t := mtime(m); t.After(eff[i]) {
				eff[i] = t
			}
		}
	}

	var queue []int
	for i := range components {
		if inDegree[i] == 0 {
			queue = append(queue, i)
		}
	}
	sort.Ints(queue)
	for len(queue) > 0 {
		c := queue[0]
		queue = queue[1:]
		next := make([]int, 0, len(condAdj[c]))
		for succ := range condAdj[c] {
			next = append(next, succ)
		}
		sort.Ints(next)
		for _, succ := range next {
			if eff[c].After(eff[succ]) {
				eff[succ] = eff[c]
			}
			inDegree[succ]--
			if inDegree[succ] == 0 {
				queue = append(queue, succ)
			}
		}
	}

	var findings []Finding
	for _, from := range nodes {
		targets := append([]string(nil), adj[from]...)
		sort.Strings(targets)
		for _, to := range targets {
			if comp[from] == comp[to] {
				continue
			}
			if _, isFile := g.Files[to]; !isFile {
				continue
			}
			up := eff[comp[from]]
			down := mtime(to)
			if up.After(down) {
				findings = append(findings, Finding{
					Kind:           Stale,
					Severity:       SeverityWarning,
					Upstream:       from,
					Downstream:     to,
					UpstreamTime:   timePtr(mtime(from)),
					DownstreamTime: timePtr(down),
				})
			}
		}
	}
	return findings
}

// cycleFindings reports every node inside a multi-node SCC. Ordering inside a
// cycle is undefined, so staleness is not computed there.
func cycleFindings(components [][]string) []Finding {
	var findings []Finding
	for _, members := range components {
		if len(members) < 2 {
			continue
		}
		sorted := append([]string(nil), members...)
		sort.Strings(sorted)
		detail := "cycle members: " + strings.Join(sorted, " -> ")
		for _, m := range sorted {
			findings = append(findings, Finding{
				Kind:       Cycle,
				Severity:   SeverityWarning,
				Downstream: m,
				Detail:     detail,
			})
		}
	}
	sort.Slice(findings, func(i, j int) bool { return findings[i].Downstream < findings[j].Downstream })
	return findings
}

// missingFindings flags every edge touching a node absent from disk. A
// missing file that something still consumes is a broken required input
// (ERROR); a missing output nobody reads is a WARNING. An include target
// absent from disk is always an ERROR: the includer cannot run without it.
func missingFindings(g *graph.Graph) []Finding {
	var findings []Finding
	for _, p := range g.ScriptPaths() {
		s := g.Scripts[p]
		incs := append([]string(nil), s.Includes...)
		sort.Strings(incs)
		for _, inc := range incs {
			target, ok := g.Scripts[inc]
			if !ok || target.Exists {
				continue
			}
			findings = append(findings, Finding{
				Kind:           Missing,
				Severity:       SeverityError,
				Upstream:       inc,
				Downstream:     s.Path,
				DownstreamTime: scriptTime(s),
				Detail:         "included script absent from disk",
			})
		}
	}
	for _, p := range g.FilePaths() {
		n := g.Files[p]
		if n.Unresolved || n.Exists {
			continue
		}
		severity := SeverityWarning
		if len(n.Consumers) > 0 {
			severity = SeverityError
		}
		for _, producer := range sortedKeys(n.Producers) {
			findings = append(findings, Finding{
				Kind:         Missing,
				Severity:     severity,
				Upstream:     producer,
				Downstream:   n.Path,
				UpstreamTime: scriptTime(g.Scripts[producer]),
				Detail:       "written by script but absent from disk",
			})
		}
		for _, consumer := range sortedKeys(n.Consumers) {
			findings = append(findings, Finding{
				Kind:           Missing,
				Severity:       severity,
				Upstream:       n.Path,
				Downstream:     consumer,
				DownstreamTime: scriptTime(g.Scripts[consumer]),
				Detail:         "read by script but absent from disk",
			})
		}
	}
	return findings
}

// orphanFindings reports outputs no script and no manuscript consumes.
func orphanFindings(g *graph.Graph) []Finding {
	var findings []Finding
	for _, p := range g.FilePaths() {
		n := g.Files[p]
		if !n.Orphan {
			continue
		}
		for _, producer := range sortedKeys(n.Producers) {
			findings = append(findings, Finding{
				Kind:           Orphan,
				Severity:       SeverityWarning,
				Upstream:       producer,
				Downstream:     n.Path,
				UpstreamTime:   scriptTime(g.Scripts[producer]),
				DownstreamTime: fileTime(n),
				Detail:         "output is consumed by nothing and not referenced by any manuscript",
			})
		}
	}
	return findings
}

// unresolvedFindings reports dynamic paths needing manual verification.
func unresolvedFindings(g *graph.Graph) []Finding {
	var findings []Finding
	for _, p := range g.FilePaths() {
		n := g.Files[p]
		if !n.Unresolved {
			continue
		}
		endpoints := append(sortedKeys(n.Producers), sortedKeys(n.Consumers)...)
		script := ""
		if len(endpoints) > 0 {
			script = endpoints[0]
		}
		findings = append(findings, Finding{
			Kind:       Unresolved,
			Severity:   SeverityInfo,
			Upstream:   script,
			Downstream: n.Path,
			Detail:     fmt.Sprintf("dynamic path expression %q needs manual verification", n.RawExpr),
		})
	}
	return findings
}

func sortedKeys(set map[string]struct{}) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
