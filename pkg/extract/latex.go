package extract

import (
	"bufio"
	"fmt"
	"os"
	"regexp"
	"strings"

	"depaudit/pkg/event"
)

// LaTeX reference patterns. A brace argument containing a macro (backslash)
// or ranged glob is dynamic.
var (
	latexInputRe    = regexp.MustCompile(`\\(?:input|include|subfile)\{([^}]*)\}`)
	latexGraphicsRe = regexp.MustCompile(`\\includegraphics(?:\[[^\]]*\])?\{([^}]*)\}`)
	latexBibRe      = regexp.MustCompile(`\\(?:addbibresource|bibliography)\{([^}]*)\}`)
	latexTableRe    = regexp.MustCompile(`\\(?:csvautotabular|csvreader(?:\[[^\]]*\])?)\{([^}]*)\}`)
	latexCommentRe  = regexp.MustCompile(`^\s*%`)
)

// LaTeXExtractor detects includes and referenced artifacts in LaTeX sources.
// The same events feed both the data-flow graph (the manuscript reads its
// figures and tables) and the manuscript reference set.
type LaTeXExtractor struct{}

// NewLaTeXExtractor creates the LaTeX extractor.
func NewLaTeXExtractor() *LaTeXExtractor { return &LaTeXExtractor{} }

func (e *LaTeXExtractor) Language() event.Language { return event.LangLaTeX }

func (e *LaTeXExtractor) Extensions() []string { return []string{".tex", ".sty", ".bbl"} }

// Extract scans the document line by line.
func (e *LaTeXExtractor) Extract(path string) ([]event.Event, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	var events []event.Event
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := sc.Text()
		if latexCommentRe.MatchString(line) {
			continue
		}

		emit := func(re *regexp.Regexp, op event.Op, defaultExt string) {
			for _, m := range re.FindAllStringSubmatch(line, -1) {
				for _, part := range strings.Split(m[1], ",") {
					raw := strings.TrimSpace(part)
					if raw == "" {
						continue
					}
					dynamic := strings.ContainsAny(raw, "\\#")
					if !dynamic && defaultExt != "" && !strings.Contains(raw, ".") {
						raw += defaultExt
					}
					events = append(events, event.Event{
						ScriptPath: path,
						Language:   event.LangLaTeX,
						Op:         op,
						RawPath:    raw,
						Line:       lineNo,
						Dynamic:    dynamic,
						Confidence: 0.9,
					})
				}
			}
		}

		emit(latexInputRe, event.Include, ".tex")
		emit(latexGraphicsRe, event.Read, "")
		emit(latexBibRe, event.Read, ".bib")
		emit(latexTableRe, event.Read, "")
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("scanning %s: %w", path, err)
	}

	return events, nil
}
