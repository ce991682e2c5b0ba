package audit

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"depaudit/internal/config"
	"depaudit/pkg/analyze"
	"depaudit/pkg/graph"
)

var fixtureBase = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

// writeProject materializes a fixture tree and pins every file's mtime,
// offset in minutes from fixtureBase.
func writeProject(t *testing.T, files map[string]string, mtimes map[string]int) string {
	t.Helper()
	root := t.TempDir()
	for path, content := range files {
		full := filepath.Join(root, path)
		require.NoError(t, os.MkdirAll(filepath.Dir(full), 0755))
		require.NoError(t, os.WriteFile(full, []byte(content), 0644))
	}
	for path, offset := range mtimes {
		ts := fixtureBase.Add(time.Duration(offset) * time.Minute)
		require.NoError(t, os.Chtimes(filepath.Join(root, path), ts, ts))
	}
	return root
}

func testConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.ManuscriptGlobs = []string{"paper/*.tex"}
	cfg.Cache = false
	return cfg
}

// freshProject is a healthy two-stage pipeline feeding a manuscript.
func freshProject(t *testing.T) string {
	return writeProject(t,
		map[string]string{
			"data/raw.csv": "id,x\n1,2\n",
			"code/clean.R": `df <- read.csv("../data/raw.csv")
write.csv(df, "../data/clean.csv")
`,
			"code/plot.R": `df <- read.csv("../data/clean.csv")
pdf("../figures/fig1.pdf")
plot(df$x)
dev.off()
`,
			"data/clean.csv":   "id,x\n1,2\n",
			"figures/fig1.pdf": "%PDF-fake",
			"paper/main.tex": `\documentclass{article}
\begin{document}
\includegraphics{../figures/fig1.pdf}
\end{document}
`,
		},
		map[string]int{
			"data/raw.csv":     0,
			"code/clean.R":     1,
			"code/plot.R":      1,
			"data/clean.csv":   2,
			"figures/fig1.pdf": 3,
			"paper/main.tex":   4,
		})
}

func TestRunFreshPipelineIsClean(t *testing.T) {
	root := freshProject(t)

	result, err := NewRunner(testConfig(), nil).Run(root)
	require.NoError(t, err)

	assert.False(t, result.Report.HasErrors())
	assert.Empty(t, result.Report.Warnings)

	// The graph sees both R scripts and the manuscript.
	assert.Contains(t, result.Graph.Scripts, filepath.Join(root, "code/clean.R"))
	assert.Contains(t, result.Graph.Scripts, filepath.Join(root, "code/plot.R"))
	assert.Contains(t, result.Graph.Scripts, filepath.Join(root, "paper/main.tex"))

	raw := result.Graph.Files[filepath.Join(root, "data/raw.csv")]
	require.NotNil(t, raw)
	assert.Equal(t, graph.KindSource, raw.Kind)

	clean := result.Graph.Files[filepath.Join(root, "data/clean.csv")]
	require.NotNil(t, clean)
	assert.Equal(t, graph.KindIntermediate, clean.Kind)
}

func TestRunFlagsStaleDownstream(t *testing.T) {
	root := freshProject(t)
	// Re-touch the raw input after everything downstream was built.
	touched := fixtureBase.Add(60 * time.Minute)
	require.NoError(t, os.Chtimes(filepath.Join(root, "data/raw.csv"), touched, touched))

	result, err := NewRunner(testConfig(), nil).Run(root)
	require.NoError(t, err)

	staleDownstreams := make(map[string]bool)
	for _, f := range result.Report.Warnings {
		if f.Kind == analyze.Stale {
			staleDownstreams[f.Downstream] = true
		}
	}
	assert.True(t, staleDownstreams[filepath.Join(root, "data/clean.csv")])
	// Transitive: the figure is stale too, not just the direct child.
	assert.True(t, staleDownstreams[filepath.Join(root, "figures/fig1.pdf")])
}

func TestRunMissingInputIsError(t *testing.T) {
	root := writeProject(t,
		map[string]string{
			"code/analyze.R": `df <- read.csv("../data/vanished.csv")
write.csv(df, "../out/result.csv")
`,
			"out/result.csv": "x\n",
		},
		map[string]int{
			"code/analyze.R": 0,
			"out/result.csv": 1,
		})

	result, err := NewRunner(testConfig(), nil).Run(root)
	require.NoError(t, err)

	require.True(t, result.Report.HasErrors())
	assert.Equal(t, analyze.Missing, result.Report.Errors[0].Kind)
	assert.Equal(t, filepath.Join(root, "data/vanished.csv"), result.Report.Errors[0].Upstream)
}

func TestRunDynamicPathsSurfaceAsInfo(t *testing.T) {
	root := writeProject(t,
		map[string]string{
			"code/batch.R": `for (i in 1:3) {
  df <- read.csv(paste0("data/chunk_", i, ".csv"))
}
`,
		},
		map[string]int{"code/batch.R": 0})

	result, err := NewRunner(testConfig(), nil).Run(root)
	require.NoError(t, err)

	require.NotEmpty(t, result.Report.Info)
	found := false
	for _, f := range result.Report.Info {
		if f.Kind == analyze.Unresolved {
			found = true
		}
	}
	assert.True(t, found)
	assert.False(t, result.Report.HasErrors())
}

func TestRunOrphanOutputIsWarning(t *testing.T) {
	root := writeProject(t,
		map[string]string{
			"data/raw.csv": "x\n",
			"code/side.R": `df <- read.csv("../data/raw.csv")
write.csv(df, "../out/unused.csv")
`,
			"out/unused.csv": "x\n",
		},
		map[string]int{
			"data/raw.csv":   0,
			"code/side.R":    1,
			"out/unused.csv": 2,
		})

	result, err := NewRunner(testConfig(), nil).Run(root)
	require.NoError(t, err)

	found := false
	for _, f := range result.Report.Warnings {
		if f.Kind == analyze.Orphan && f.Downstream == filepath.Join(root, "out/unused.csv") {
			found = true
		}
	}
	assert.True(t, found)
}

// Two audits over an unchanged tree must render byte-identical reports, with
// the second run served from the extraction cache.
func TestRunIsDeterministicAndCacheable(t *testing.T) {
	root := freshProject(t)
	cfg := testConfig()
	cfg.Cache = true

	first, err := NewRunner(cfg, nil).Run(root)
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(root, ".depaudit/cache/events.msgpack"))

	second, err := NewRunner(cfg, nil).Run(root)
	require.NoError(t, err)

	assert.Equal(t, first.Report.RenderText(), second.Report.RenderText())

	j1, err := first.Report.RenderJSON()
	require.NoError(t, err)
	j2, err := second.Report.RenderJSON()
	require.NoError(t, err)
	assert.Equal(t, j1, j2)
}

func TestRunSkipsUnsupportedFiles(t *testing.T) {
	root := writeProject(t,
		map[string]string{
			"data/raw.csv": "x\n",
			"notes.txt":    "remember to rerun",
			"code/a.R":     `df <- read.csv("../data/raw.csv")` + "\n",
		},
		map[string]int{"code/a.R": 0})

	result, err := NewRunner(testConfig(), nil).Run(root)
	require.NoError(t, err)

	assert.Len(t, result.Graph.Scripts, 1)
}

func TestRunMissingRoot(t *testing.T) {
	_, err := NewRunner(testConfig(), nil).Run(filepath.Join(t.TempDir(), "nope"))
	assert.Error(t, err)
}
