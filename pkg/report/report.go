// Package report renders the classified graph and analysis findings into a
// structured document with a stable ordering: two runs over an unchanged tree
// produce byte-identical output.
package report

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"depaudit/pkg/analyze"
	"depaudit/pkg/graph"
)

// FileEntry is one file node in a report section.
type FileEntry struct {
	Path                   string   `json:"path"`
	Kind                   string   `json:"kind"`
	Exists                 bool     `json:"exists"`
	MTime                  string   `json:"mtime,omitempty"`
	Producers              []string `json:"producers,omitempty"`
	Consumers              []string `json:"consumers,omitempty"`
	ReferencedByManuscript bool     `json:"referenced_by_manuscript,omitempty"`
	Orphan                 bool     `json:"orphan,omitempty"`
	RawExpr                string   `json:"raw_expr,omitempty"`
}

// ScriptEntry is one script node in a report.
type ScriptEntry struct {
	Path     string   `json:"path"`
	Language string   `json:"language,omitempty"`
	Reads    []string `json:"reads,omitempty"`
	Writes   []string `json:"writes,omitempty"`
	Includes []string `json:"includes,omitempty"`
	Orphan   bool     `json:"orphan,omitempty"`
}

// Report is the structured output contract a CLI or UI layer renders to
// humans. All slices are sorted lexicographically by path.
type Report struct {
	Root          string            `json:"root"`
	Sources       []FileEntry       `json:"sources"`
	Intermediates []FileEntry       `json:"intermediates"`
	Outputs       []FileEntry       `json:"outputs"`
	Unresolved    []FileEntry       `json:"unresolved"`
	Scripts       []ScriptEntry     `json:"scripts"`
	Errors        []analyze.Finding `json:"errors"`
	Warnings      []analyze.Finding `json:"warnings"`
	Info          []analyze.Finding `json:"info"`
}

// HasErrors reports whether any ERROR-severity finding is present. The CLI
// maps this to a non-zero exit code.
func (r *Report) HasErrors() bool { return len(r.Errors) > 0 }

// Build assembles the report from a classified graph and its findings.
// Pure formatting: nothing here touches the filesystem.
func Build(g *graph.Graph, findings []analyze.Finding) *Report {
	r := &Report{Root: g.Root}

	for _, p := range g.FilePaths() {
		n := g.Files[p]
		entry := FileEntry{
			Path:                   n.Path,
			Kind:                   string(n.Kind),
			Exists:                 n.Exists,
			Producers:              sortedKeys(n.Producers),
			Consumers:              sortedKeys(n.Consumers),
			ReferencedByManuscript: n.ReferencedByManuscript,
			Orphan:                 n.Orphan,
			RawExpr:                n.RawExpr,
		}
		if n.HasTime {
			entry.MTime = formatTime(n.MTime)
		}
		switch n.Kind {
		case graph.KindSource:
			r.Sources = append(r.Sources, entry)
		case graph.KindIntermediate:
			r.Intermediates = append(r.Intermediates, entry)
		case graph.KindOutput:
			r.Outputs = append(r.Outputs, entry)
		case graph.KindUnresolved:
			r.Unresolved = append(r.Unresolved, entry)
		}
	}

	for _, p := range g.ScriptPaths() {
		s := g.Scripts[p]
		r.Scripts = append(r.Scripts, ScriptEntry{
			Path:     s.Path,
			Language: string(s.Language),
			Reads:    sortedCopy(s.Reads),
			Writes:   sortedCopy(s.Writes),
			Includes: sortedCopy(s.Includes),
			Orphan:   s.Orphan,
		})
	}

	for _, f := range sortFindings(findings) {
		switch f.Severity {
		case analyze.SeverityError:
			r.Errors = append(r.Errors, f)
		case analyze.SeverityWarning:
			r.Warnings = append(r.Warnings, f)
		default:
			r.Info = append(r.Info, f)
		}
	}

	return r
}

// RenderJSON renders the report as indented JSON.
func (r *Report) RenderJSON() (string, error) {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshaling report: %w", err)
	}
	return string(data) + "\n", nil
}

// RenderText renders the report as a plain-text document.
func (r *Report) RenderText() string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "=== Dependency Audit: %s ===\n", r.Root)

	renderFileSection(&sb, "SOURCE nodes", r.Sources)
	renderFileSection(&sb, "INTERMEDIATE nodes", r.Intermediates)
	renderFileSection(&sb, "OUTPUT nodes", r.Outputs)
	renderFileSection(&sb, "UNRESOLVED nodes", r.Unresolved)

	sb.WriteString("\nScripts:\n")
	for _, s := range r.Scripts {
		flags := ""
		if s.Orphan {
			flags = " [orphan]"
		}
		fmt.Fprintf(&sb, "  %s (%s) reads=%d writes=%d includes=%d%s\n",
			s.Path, s.Language, len(s.Reads), len(s.Writes), len(s.Includes), flags)
	}

	renderFindingSection(&sb, "ERRORS", r.Errors)
	renderFindingSection(&sb, "WARNINGS", r.Warnings)
	renderFindingSection(&sb, "INFO", r.Info)

	fmt.Fprintf(&sb, "\n%d error(s), %d warning(s), %d info finding(s)\n",
		len(r.Errors), len(r.Warnings), len(r.Info))

	return sb.String()
}

func renderFileSection(sb *strings.Builder, title string, entries []FileEntry) {
	fmt.Fprintf(sb, "\n%s (%d):\n", title, len(entries))
	for _, e := range entries {
		var flags []string
		if e.ReferencedByManuscript {
			flags = append(flags, "manuscript")
		}
		if e.Orphan {
			flags = append(flags, "orphan")
		}
		if !e.Exists && e.Kind != string(graph.KindUnresolved) {
			flags = append(flags, "missing")
		}
		suffix := ""
		if len(flags) > 0 {
			suffix = " [" + strings.Join(flags, ",") + "]"
		}
		if e.MTime != "" {
			fmt.Fprintf(sb, "  %s (mtime %s)%s\n", e.Path, e.MTime, suffix)
		} else {
			fmt.Fprintf(sb, "  %s%s\n", e.Path, suffix)
		}
	}
}

func renderFindingSection(sb *strings.Builder, title string, findings []analyze.Finding) {
	fmt.Fprintf(sb, "\n%s (%d):\n", title, len(findings))
	for _, f := range findings {
		if f.Upstream != "" {
			fmt.Fprintf(sb, "  [%s] %s -> %s", f.Kind, f.Upstream, f.Downstream)
		} else {
			fmt.Fprintf(sb, "  [%s] %s", f.Kind, f.Downstream)
		}
		if f.UpstreamTime != nil && f.DownstreamTime != nil {
			fmt.Fprintf(sb, " (%s vs %s)", formatTime(*f.UpstreamTime), formatTime(*f.DownstreamTime))
		}
		if f.Detail != "" {
			fmt.Fprintf(sb, ": %s", f.Detail)
		}
		sb.WriteString("\n")
	}
}

// sortFindings orders findings by kind, then endpoints, so rendering is
// stable regardless of analysis order.
func sortFindings(findings []analyze.Finding) []analyze.Finding {
	sorted := append([]analyze.Finding(nil), findings...)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if a.Kind != b.Kind {
			return a.Kind < b.Kind
		}
		if a.Upstream != b.Upstream {
			return a.Upstream < b.Upstream
		}
		return a.Downstream < b.Downstream
	})
	return sorted
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func sortedKeys(set map[string]struct{}) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func sortedCopy(list []string) []string {
	c := append([]string(nil), list...)
	sort.Strings(c)
	return c
}
