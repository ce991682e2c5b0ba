package extract

import (
	"bufio"
	"fmt"
	"os"
	"regexp"
	"strings"

	"depaudit/pkg/event"
)

// Stata command patterns. Stata paths are frequently unquoted, and macro
// interpolation (`local' and $global) makes a path dynamic.
var (
	stataUseRe     = regexp.MustCompile(`^\s*(?:qui(?:etly)?\s+)?use\s+(.+?)(?:,.*)?$`)
	stataUsingRe   = regexp.MustCompile(`^\s*(?:qui(?:etly)?\s+)?(merge\s+\S+\s+\S+|append|insheet|infile|outsheet|esttab[^,]*|estout[^,]*|log)\s+using\s+(\S+|"[^"]*")`)
	stataSaveRe    = regexp.MustCompile(`^\s*(?:qui(?:etly)?\s+)?(save(?:old)?)\s+(.+?)(?:,.*)?$`)
	stataImportRe  = regexp.MustCompile(`^\s*(?:qui(?:etly)?\s+)?import\s+(?:delimited|excel|sas|spss)\s+(?:using\s+)?(.+?)(?:,.*)?$`)
	stataExportRe  = regexp.MustCompile(`^\s*(?:qui(?:etly)?\s+)?export\s+(?:delimited|excel)\s+(?:using\s+)?(.+?)(?:,.*)?$`)
	stataGraphRe   = regexp.MustCompile(`^\s*(?:qui(?:etly)?\s+)?graph\s+export\s+(.+?)(?:,.*)?$`)
	stataDoRe      = regexp.MustCompile(`^\s*(?:qui(?:etly)?\s+)?(?:do|run)\s+(\S+|"[^"]*")`)
	stataCdRe      = regexp.MustCompile(`^\s*cd\s+(.+?)\s*$`)
	stataCommentRe = regexp.MustCompile(`^\s*(\*|//)`)
)

// StataExtractor detects file I/O in Stata do-files with a regex catalog.
type StataExtractor struct{}

// NewStataExtractor creates the Stata extractor.
func NewStataExtractor() *StataExtractor { return &StataExtractor{} }

func (e *StataExtractor) Language() event.Language { return event.LangStata }

func (e *StataExtractor) Extensions() []string { return []string{".do", ".ado"} }

// Extract scans the do-file line by line.
func (e *StataExtractor) Extract(path string) ([]event.Event, error) {
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
		if stataCommentRe.MatchString(line) {
			continue
		}
		line = stripStataComment(line)

		events = append(events, e.scanLine(path, line, lineNo)...)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("scanning %s: %w", path, err)
	}

	return events, nil
}

func (e *StataExtractor) scanLine(path, line string, lineNo int) []event.Event {
	emit := func(op event.Op, rawArg, defaultExt string) []event.Event {
		raw, dynamic := stataPathExpr(rawArg)
		if raw == "" {
			return nil
		}
		if !dynamic && defaultExt != "" && !strings.Contains(raw, ".") {
			// Stata implies .dta for datasets and .do for do-files
			// when the extension is omitted.
			raw += defaultExt
		}
		return []event.Event{{
			ScriptPath: path,
			Language:   event.LangStata,
			Op:         op,
			RawPath:    raw,
			Line:       lineNo,
			Dynamic:    dynamic,
			Confidence: 0.8,
		}}
	}

	if m := stataCdRe.FindStringSubmatch(line); m != nil {
		return emit(event.Chdir, m[1], "")
	}
	if m := stataDoRe.FindStringSubmatch(line); m != nil {
		return emit(event.Include, m[1], ".do")
	}
	if m := stataUsingRe.FindStringSubmatch(line); m != nil {
		verb := strings.Fields(m[1])[0]
		op := event.Read
		ext := ".dta"
		switch verb {
		case "outsheet", "esttab", "estout":
			op = event.Write
			ext = ""
		case "insheet", "infile":
			ext = ""
		case "log":
			return nil
		}
		return emit(op, m[2], ext)
	}
	if m := stataImportRe.FindStringSubmatch(line); m != nil {
		return emit(event.Read, m[1], "")
	}
	if m := stataExportRe.FindStringSubmatch(line); m != nil {
		return emit(event.Write, m[1], "")
	}
	if m := stataGraphRe.FindStringSubmatch(line); m != nil {
		return emit(event.Write, m[1], "")
	}
	if m := stataSaveRe.FindStringSubmatch(line); m != nil {
		return emit(event.Write, m[2], ".dta")
	}
	if m := stataUseRe.FindStringSubmatch(line); m != nil {
		arg := m[1]
		// "use varlist using file" carries the path after the using
		// keyword; that form was already handled above.
		if strings.Contains(arg, " using ") {
			return nil
		}
		return emit(event.Read, arg, ".dta")
	}

	return nil
}

// stataPathExpr unquotes a path token and detects macro interpolation.
func stataPathExpr(arg string) (string, bool) {
	arg = strings.TrimSpace(arg)
	if arg == "" {
		return "", false
	}
	if strings.Contains(arg, "$") || strings.Contains(arg, "`") {
		return arg, true
	}
	if lit, ok := stringLiteral(arg); ok {
		return lit, false
	}
	// An unquoted single token is still a concrete path in Stata.
	if !strings.ContainsAny(arg, " \t") {
		return arg, false
	}
	return arg, true
}

// stripStataComment removes a trailing // comment that is not inside quotes.
func stripStataComment(line string) string {
	var quote bool
	for i := 0; i < len(line)-1; i++ {
		if line[i] == '"' {
			quote = !quote
		}
		if !quote && line[i] == '/' && line[i+1] == '/' {
			return line[:i]
		}
	}
	return line
}
