package manuscript

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestCollectLaTeXReferences(t *testing.T) {
	dir := t.TempDir()
	paper := writeFile(t, dir, "paper.tex", `\documentclass{article}
\begin{document}
\includegraphics{figures/fig1.pdf}
\input{sections/intro}
\bibliography{refs}
\end{document}
`)

	refs, err := Collect([]string{paper})
	require.NoError(t, err)

	assert.True(t, refs[filepath.Join(dir, "figures/fig1.pdf")])
	assert.True(t, refs[filepath.Join(dir, "sections/intro.tex")])
	assert.True(t, refs[filepath.Join(dir, "refs.bib")])
}

func TestCollectCompletesGraphicsExtension(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "figures/trend.png", "fake png")
	paper := writeFile(t, dir, "paper.tex", `\includegraphics{figures/trend}`+"\n")

	refs, err := Collect([]string{paper})
	require.NoError(t, err)

	// The completion that exists on disk wins.
	assert.True(t, refs[filepath.Join(dir, "figures/trend.png")])
}

func TestCollectExtensionlessFallsBackToBarePath(t *testing.T) {
	dir := t.TempDir()
	paper := writeFile(t, dir, "paper.tex", `\includegraphics{figures/nowhere}`+"\n")

	refs, err := Collect([]string{paper})
	require.NoError(t, err)

	assert.True(t, refs[filepath.Join(dir, "figures/nowhere")])
}

func TestCollectSkipsDynamicReferences(t *testing.T) {
	dir := t.TempDir()
	paper := writeFile(t, dir, "paper.tex", `\includegraphics{\figdir/fig1.pdf}`+"\n")

	refs, err := Collect([]string{paper})
	require.NoError(t, err)

	assert.Empty(t, refs)
}

func TestCollectMarkdownImages(t *testing.T) {
	dir := t.TempDir()
	doc := writeFile(t, dir, "report.qmd", `# Results

![Trend](figures/trend.png)

![Remote](https://example.com/img.png)
`)

	refs, err := Collect([]string{doc})
	require.NoError(t, err)

	assert.True(t, refs[filepath.Join(dir, "figures/trend.png")])
	// URLs are not project artifacts.
	assert.Len(t, refs, 1)
}

func TestCollectMultipleManuscripts(t *testing.T) {
	dir := t.TempDir()
	a := writeFile(t, dir, "a.tex", `\includegraphics{fig_a.pdf}`+"\n")
	b := writeFile(t, dir, "sub/b.tex", `\includegraphics{fig_b.pdf}`+"\n")

	refs, err := Collect([]string{a, b})
	require.NoError(t, err)

	// References resolve against each manuscript's own directory.
	assert.True(t, refs[filepath.Join(dir, "fig_a.pdf")])
	assert.True(t, refs[filepath.Join(dir, "sub/fig_b.pdf")])
}

func TestCollectEmptyInput(t *testing.T) {
	refs, err := Collect(nil)
	require.NoError(t, err)
	assert.Empty(t, refs)
}
