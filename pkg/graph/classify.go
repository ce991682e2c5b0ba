package graph

// Classify labels every file node and flags orphan scripts. It is a pure
// function over the finalized graph: no I/O, and the manuscript reference set
// is supplied by the caller as a set of canonical paths.
//
// Precedence per file node:
//  1. no producers, some consumers            -> SOURCE
//  2. producers, no consumers, referenced     -> OUTPUT (referencedByManuscript)
//  3. producers, no consumers, not referenced -> OUTPUT (orphan)
//  4. producers and consumers                 -> INTERMEDIATE
//  5. unresolved nodes keep UNRESOLVED and skip staleness analysis
func Classify(g *Graph, manuscriptRefs map[string]bool) {
	for _, n := range g.Files {
		if n.Unresolved {
			n.Kind = KindUnresolved
			continue
		}

		// The manuscript flag is an attribute, not a kind: a figure a
		// scanned .tex manuscript reads classifies INTERMEDIATE but is
		// still a deliverable.
		n.ReferencedByManuscript = manuscriptRefs[n.Path]

		switch {
		case n.producerCount() == 0 && n.consumerCount() > 0:
			n.Kind = KindSource
		case n.producerCount() > 0 && n.consumerCount() == 0:
			n.Kind = KindOutput
			n.Orphan = !n.ReferencedByManuscript
		default:
			n.Kind = KindIntermediate
		}
	}

	for _, s := range g.Scripts {
		s.Orphan = isOrphanScript(g, s)
	}
}

// isOrphanScript reports whether a script's work feeds nothing downstream:
// it writes no files itself and nothing it includes (transitively) writes
// any either.
func isOrphanScript(g *Graph, s *ScriptNode) bool {
	seen := make(map[string]bool)
	return !producesAnything(g, s, seen)
}

func producesAnything(g *Graph, s *ScriptNode, seen map[string]bool) bool {
	if seen[s.Path] {
		return false
	}
	seen[s.Path] = true

	if len(s.Writes) > 0 {
		return true
	}
	for _, inc := range s.Includes {
		if included, ok := g.Scripts[inc]; ok && producesAnything(g, included, seen) {
			return true
		}
	}
	return false
}
