// Package manuscript builds the set of canonical paths referenced by
// terminal documents (LaTeX and Quarto sources). Outputs referenced here are
// deliverables; outputs referenced nowhere are orphan candidates.
package manuscript

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"depaudit/pkg/event"
	"depaudit/pkg/extract"
)

// graphicsExtensions are tried, in order, for \includegraphics arguments
// written without an extension.
var graphicsExtensions = []string{".pdf", ".png", ".jpg", ".jpeg", ".eps"}

// markdownImageRe matches Quarto/Markdown image references.
var markdownImageRe = regexp.MustCompile(`!\[[^\]]*\]\(([^)]+)\)`)

// Set is the manuscript reference set: canonical absolute paths considered
// referenced by a terminal document.
type Set map[string]bool

// statFn is swappable for tests.
var statFn = os.Stat

// Collect scans the given manuscript sources and returns every artifact path
// they reference. Dynamic references (macro-built paths) are skipped here;
// they surface through the normal event pipeline as unresolved nodes.
func Collect(manuscripts []string) (Set, error) {
	refs := make(Set)
	latex := extract.NewLaTeXExtractor()

	for _, m := range manuscripts {
		abs, err := filepath.Abs(m)
		if err != nil {
			return nil, fmt.Errorf("resolving manuscript path %s: %w", m, err)
		}
		dir := filepath.Dir(abs)

		switch strings.ToLower(filepath.Ext(abs)) {
		case ".tex":
			events, err := latex.Extract(abs)
			if err != nil {
				return nil, err
			}
			for _, ev := range events {
				if ev.Dynamic || ev.Op == event.Chdir {
					continue
				}
				addRef(refs, dir, ev.RawPath)
			}
		case ".qmd", ".rmd", ".md":
			if err := collectMarkdown(refs, abs, dir); err != nil {
				return nil, err
			}
		}
	}

	return refs, nil
}

// collectMarkdown pulls image references out of a Quarto/Markdown source.
func collectMarkdown(refs Set, path, dir string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		for _, m := range markdownImageRe.FindAllStringSubmatch(sc.Text(), -1) {
			target := strings.TrimSpace(m[1])
			if target == "" || strings.Contains(target, "://") {
				continue
			}
			addRef(refs, dir, target)
		}
	}
	return sc.Err()
}

// addRef canonicalizes one reference and records it. Extensionless graphics
// references record whichever completion exists on disk, falling back to the
// bare path when none does.
func addRef(refs Set, dir, raw string) {
	p := raw
	if !filepath.IsAbs(p) {
		p = filepath.Join(dir, p)
	}
	p = filepath.Clean(p)

	if filepath.Ext(p) != "" {
		refs[p] = true
		return
	}
	for _, ext := range graphicsExtensions {
		candidate := p + ext
		if _, err := statFn(candidate); err == nil {
			refs[candidate] = true
			return
		}
	}
	refs[p] = true
}
