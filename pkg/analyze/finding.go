// Package analyze runs the pure in-memory graph algorithms over a finalized
// data-flow graph: cycle detection, topological staleness propagation, and
// missing-dependency checks. No filesystem access happens here.
package analyze

import (
	"time"

	"depaudit/pkg/graph"
)

// Kind is the machine-resolvable category of a finding.
type Kind string

const (
	// Stale marks a downstream artifact older than something upstream.
	Stale Kind = "STALE"
	// Missing marks an edge referencing a file absent from disk.
	Missing Kind = "MISSING"
	// Orphan marks an output nothing downstream consumes.
	Orphan Kind = "ORPHAN"
	// Cycle marks a node participating in a dependency cycle.
	Cycle Kind = "CYCLE"
	// Unresolved marks a dynamic path or a failed extraction that needs
	// manual verification.
	Unresolved Kind = "UNRESOLVED"
)

// Severity buckets findings for the report.
type Severity string

const (
	SeverityError   Severity = "ERROR"
	SeverityWarning Severity = "WARNING"
	SeverityInfo    Severity = "INFO"
)

// Finding is one reportable condition, carrying the two endpoint paths and
// their timestamps where known.
type Finding struct {
	Kind     Kind     `json:"kind"`
	Severity Severity `json:"severity"`
	// Upstream and Downstream are the edge endpoints. Single-node findings
	// set only Downstream.
	Upstream       string     `json:"upstream,omitempty"`
	Downstream     string     `json:"downstream"`
	UpstreamTime   *time.Time `json:"upstream_time,omitempty"`
	DownstreamTime *time.Time `json:"downstream_time,omitempty"`
	Detail         string     `json:"detail,omitempty"`
}

// NewExtractionFailure builds the finding for a script whose extractor
// errored. The run continues; the script surfaces as needing manual
// verification rather than aborting the audit.
func NewExtractionFailure(scriptPath string, err error) Finding {
	return Finding{
		Kind:       Unresolved,
		Severity:   SeverityInfo,
		Downstream: scriptPath,
		Detail:     "extraction failed: " + err.Error(),
	}
}

func timePtr(t time.Time) *time.Time { return &t }

func fileTime(n *graph.FileNode) *time.Time {
	if n.HasTime {
		return timePtr(n.MTime)
	}
	return nil
}

func scriptTime(s *graph.ScriptNode) *time.Time {
	if s.HasTime {
		return timePtr(s.MTime)
	}
	return nil
}
