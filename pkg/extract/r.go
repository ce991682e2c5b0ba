package extract

import (
	"bufio"
	"fmt"
	"os"
	"regexp"
	"strings"

	"depaudit/pkg/event"
)

// rReadFuncs are R functions whose first path argument is a data input.
// Covers base R, readr, data.table, haven, readxl and sf.
var rReadFuncs = []string{
	"read.csv", "read.csv2", "read.table", "read.delim", "read.delim2",
	"read_csv", "read_csv2", "read_tsv", "read_delim", "read_excel",
	"read_dta", "read_sav", "read_rds", "read_feather", "read_parquet",
	"readRDS", "readLines", "fread", "load", "st_read", "fromJSON",
	"read_xlsx", "read_sheet", "import",
}

// rWriteFuncs are R functions whose path argument is a data output.
var rWriteFuncs = []string{
	"write.csv", "write.csv2", "write.table", "write_csv", "write_tsv",
	"write_delim", "write_dta", "write_sav", "write_rds", "write_feather",
	"write_parquet", "saveRDS", "save", "save.image", "fwrite", "ggsave",
	"st_write", "toJSON", "write_xlsx", "pdf", "png", "jpeg", "tiff",
	"svg", "cairo_pdf", "export",
}

var (
	rReadRe    = funcCallRegexp(rReadFuncs)
	rWriteRe   = funcCallRegexp(rWriteFuncs)
	rSourceRe  = funcCallRegexp([]string{"source", "sys.source"})
	rSetwdRe   = funcCallRegexp([]string{"setwd"})
	rCommentRe = regexp.MustCompile(`^\s*#`)
)

// rDynamicMarkers flag path expressions built at runtime. A path containing
// any of these is never guessed at.
var rDynamicMarkers = []string{
	"paste0(", "paste(", "sprintf(", "glue(", "str_c(", "file.path(",
	"here(", "Sys.getenv(", "format(",
}

// funcCallRegexp compiles a regex matching any of the function names followed
// by an opening parenthesis, optionally namespace-qualified (readr::read_csv).
func funcCallRegexp(names []string) *regexp.Regexp {
	escaped := make([]string, len(names))
	for i, n := range names {
		escaped[i] = regexp.QuoteMeta(n)
	}
	return regexp.MustCompile(`(?:\b|::)(` + strings.Join(escaped, "|") + `)\s*\(`)
}

// RExtractor detects file I/O in R scripts and R-flavored notebooks with a
// regex catalog. Code chunks in .Rmd and .qmd files match the same patterns,
// so those route here as well.
type RExtractor struct{}

// NewRExtractor creates the R extractor.
func NewRExtractor() *RExtractor { return &RExtractor{} }

func (e *RExtractor) Language() event.Language { return event.LangR }

func (e *RExtractor) Extensions() []string {
	return []string{".r", ".rmd", ".qmd"}
}

// Extract scans the script line by line. Multi-line calls are handled on a
// best-effort basis: a path argument cut off by a line break comes back as a
// dynamic expression instead of a wrong literal.
func (e *RExtractor) Extract(path string) ([]event.Event, error) {
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
		if rCommentRe.MatchString(line) {
			continue
		}

		events = append(events, e.scanLine(path, line, lineNo)...)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("scanning %s: %w", path, err)
	}

	return events, nil
}

func (e *RExtractor) scanLine(path, line string, lineNo int) []event.Event {
	var events []event.Event

	emit := func(re *regexp.Regexp, op event.Op) {
		for _, loc := range re.FindAllStringSubmatchIndex(line, -1) {
			// loc[1] is the end of the whole match; the paren is the
			// last matched character.
			argStart := loc[1] - 1
			args := splitTopLevel(balancedArgs(line[argStart:]))
			expr := pickPathArg(args)
			if expr == "" {
				continue
			}
			raw, dynamic := rPathExpr(expr)
			events = append(events, event.Event{
				ScriptPath: path,
				Language:   event.LangR,
				Op:         op,
				RawPath:    raw,
				Line:       lineNo,
				Dynamic:    dynamic,
				Confidence: 0.8,
			})
		}
	}

	emit(rSetwdRe, event.Chdir)
	emit(rSourceRe, event.Include)
	emit(rReadRe, event.Read)
	emit(rWriteRe, event.Write)

	return events
}

// rPathExpr classifies a path argument: a plain string literal resolves, and
// everything else (interpolation helpers, variables, truncated arguments) is
// dynamic with the source text preserved.
func rPathExpr(expr string) (string, bool) {
	for _, marker := range rDynamicMarkers {
		if strings.Contains(expr, marker) {
			return expr, true
		}
	}
	if lit, ok := stringLiteral(expr); ok {
		return lit, false
	}
	return expr, true
}
