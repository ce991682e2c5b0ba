package commands

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"depaudit/internal/log"
	"depaudit/pkg/audit"
	"depaudit/pkg/graph"
)

// graphCmd represents the graph command
var graphCmd = &cobra.Command{
	Use:   "graph [path]",
	Short: "Dump the reconstructed data-flow graph",
	Long: `Builds the same graph as audit and prints it without running the
staleness analysis. The default output is one adjacency block per script;
--dot emits Graphviz and --json emits a machine-readable dump.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		root := "."
		if len(args) == 1 {
			root = args[0]
		}
		return runGraph(cmd, root)
	},
}

func runGraph(cmd *cobra.Command, root string) error {
	cfg, err := loadConfig(cmd, root)
	if err != nil {
		return err
	}

	logger := log.Default()
	if cfg.Verbose {
		logger.SetLevel(log.DebugLevel)
	}

	result, err := audit.NewRunner(cfg, logger).Run(root)
	if err != nil {
		return err
	}

	asJSON, _ := cmd.Flags().GetBool("json")
	asDot, _ := cmd.Flags().GetBool("dot")

	var rendered string
	switch {
	case asJSON:
		rendered, err = renderGraphJSON(result.Graph)
		if err != nil {
			return err
		}
	case asDot:
		rendered = renderDot(result.Graph)
	default:
		rendered = renderAdjacency(result.Graph)
	}

	if cfg.Output != "" {
		if err := os.WriteFile(cfg.Output, []byte(rendered), 0644); err != nil {
			return fmt.Errorf("writing graph to %s: %w", cfg.Output, err)
		}
		logger.Info("graph written", "path", cfg.Output)
	} else {
		fmt.Print(rendered)
	}
	return nil
}

// graphDump is the JSON shape of a graph dump.
type graphDump struct {
	Root    string       `json:"root"`
	Scripts []scriptDump `json:"scripts"`
	Files   []fileDump   `json:"files"`
}

type scriptDump struct {
	Path     string   `json:"path"`
	Language string   `json:"language"`
	Reads    []string `json:"reads,omitempty"`
	Writes   []string `json:"writes,omitempty"`
	Includes []string `json:"includes,omitempty"`
}

type fileDump struct {
	Path       string   `json:"path"`
	Kind       string   `json:"kind"`
	Exists     bool     `json:"exists"`
	Unresolved bool     `json:"unresolved,omitempty"`
	RawExpr    string   `json:"raw_expr,omitempty"`
	Producers  []string `json:"producers,omitempty"`
	Consumers  []string `json:"consumers,omitempty"`
}

func renderGraphJSON(g *graph.Graph) (string, error) {
	dump := graphDump{Root: g.Root}
	for _, p := range g.ScriptPaths() {
		s := g.Scripts[p]
		dump.Scripts = append(dump.Scripts, scriptDump{
			Path:     s.Path,
			Language: string(s.Language),
			Reads:    s.Reads,
			Writes:   s.Writes,
			Includes: s.Includes,
		})
	}
	for _, p := range g.FilePaths() {
		f := g.Files[p]
		dump.Files = append(dump.Files, fileDump{
			Path:       f.Path,
			Kind:       string(f.Kind),
			Exists:     f.Exists,
			Unresolved: f.Unresolved,
			RawExpr:    f.RawExpr,
			Producers:  sortedSet(f.Producers),
			Consumers:  sortedSet(f.Consumers),
		})
	}

	data, err := json.MarshalIndent(dump, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encoding graph: %w", err)
	}
	return string(data) + "\n", nil
}

// renderAdjacency prints one block per script: its reads, writes and
// includes, in extraction order.
func renderAdjacency(g *graph.Graph) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Data-flow graph for %s\n", g.Root)
	fmt.Fprintf(&b, "%d script(s), %d file node(s)\n\n", len(g.Scripts), len(g.Files))

	for _, p := range g.ScriptPaths() {
		s := g.Scripts[p]
		fmt.Fprintf(&b, "%s (%s)\n", s.Path, s.Language)
		for _, inc := range s.Includes {
			fmt.Fprintf(&b, "  includes %s\n", inc)
		}
		for _, rd := range s.Reads {
			fmt.Fprintf(&b, "  reads    %s\n", rd)
		}
		for _, wr := range s.Writes {
			fmt.Fprintf(&b, "  writes   %s\n", wr)
		}
		b.WriteString("\n")
	}
	return b.String()
}

// renderDot emits a Graphviz digraph. Scripts render as boxes, files as
// ellipses, unresolved expressions dashed.
func renderDot(g *graph.Graph) string {
	var b strings.Builder
	b.WriteString("digraph depaudit {\n")
	b.WriteString("  rankdir=LR;\n")

	for _, p := range g.ScriptPaths() {
		fmt.Fprintf(&b, "  %q [shape=box];\n", p)
	}
	for _, p := range g.FilePaths() {
		f := g.Files[p]
		label := p
		if f.Unresolved {
			label = f.RawExpr
		}
		attrs := fmt.Sprintf("label=%q", label)
		if f.Unresolved {
			attrs += ", style=dashed"
		}
		fmt.Fprintf(&b, "  %q [%s];\n", p, attrs)
	}

	for _, p := range g.ScriptPaths() {
		s := g.Scripts[p]
		for _, rd := range s.Reads {
			fmt.Fprintf(&b, "  %q -> %q;\n", rd, p)
		}
		for _, wr := range s.Writes {
			fmt.Fprintf(&b, "  %q -> %q;\n", p, wr)
		}
		for _, inc := range s.Includes {
			fmt.Fprintf(&b, "  %q -> %q [style=dotted];\n", p, inc)
		}
	}

	b.WriteString("}\n")
	return b.String()
}

func sortedSet(set map[string]struct{}) []string {
	if len(set) == 0 {
		return nil
	}
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func init() {
	graphCmd.Flags().BoolP("json", "j", false, "Output graph as JSON")
	graphCmd.Flags().Bool("dot", false, "Output graph in Graphviz DOT format")
	graphCmd.Flags().Bool("no-cache", false, "Disable the extraction cache")
	graphCmd.Flags().BoolP("verbose", "v", false, "Enable debug logging")
	graphCmd.Flags().String("config", "", "Path to a config file")
	graphCmd.Flags().StringSlice("manuscript", nil, "Manuscript glob(s) overriding configuration")
	graphCmd.Flags().StringP("output", "o", "", "Write the graph dump to a file instead of stdout")
}
