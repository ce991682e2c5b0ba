package extract

import (
	"regexp"
	"strings"
)

// balancedArgs returns the argument list of a call, given the source text
// starting at the opening parenthesis. Parentheses inside string literals do
// not count. If the call spans past the available text (multi-line call), the
// remainder of the text is returned; the caller treats incomplete arguments
// conservatively.
func balancedArgs(text string) string {
	depth := 0
	var quote byte
	for i := 0; i < len(text); i++ {
		c := text[i]
		if quote != 0 {
			if c == quote && (i == 0 || text[i-1] != '\\') {
				quote = 0
			}
			continue
		}
		switch c {
		case '"', '\'':
			quote = c
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				return text[1:i]
			}
		}
	}
	if len(text) > 0 {
		return text[1:]
	}
	return ""
}

// splitTopLevel splits an argument list on commas at parenthesis depth zero,
// respecting string literals.
func splitTopLevel(args string) []string {
	var parts []string
	depth := 0
	var quote byte
	start := 0
	for i := 0; i < len(args); i++ {
		c := args[i]
		if quote != 0 {
			if c == quote && args[i-1] != '\\' {
				quote = 0
			}
			continue
		}
		switch c {
		case '"', '\'':
			quote = c
		case '(', '[', '{':
			depth++
		case ')', ']', '}':
			depth--
		case ',':
			if depth == 0 {
				parts = append(parts, strings.TrimSpace(args[start:i]))
				start = i + 1
			}
		}
	}
	if tail := strings.TrimSpace(args[start:]); tail != "" {
		parts = append(parts, tail)
	}
	return parts
}

var namedPathArg = regexp.MustCompile(`^(?:file|path|filename|con|dsn)\s*=\s*(.+)$`)
var anyNamedArg = regexp.MustCompile(`^[A-Za-z._][A-Za-z0-9._]*\s*=`)

// pickPathArg selects the path expression from a call's arguments. A named
// file/path argument wins. Among positionals, the first string literal wins
// (write.csv and friends take the data first and the path second), then the
// first call expression (paste0, glue), then the first positional.
func pickPathArg(args []string) string {
	for _, a := range args {
		if m := namedPathArg.FindStringSubmatch(a); m != nil {
			return strings.TrimSpace(m[1])
		}
	}

	var positional []string
	for _, a := range args {
		if !anyNamedArg.MatchString(a) {
			positional = append(positional, a)
		}
	}
	for _, a := range positional {
		if _, ok := stringLiteral(a); ok {
			return a
		}
	}
	for _, a := range positional {
		if strings.Contains(a, "(") {
			return a
		}
	}
	if len(positional) > 0 {
		return positional[0]
	}
	return ""
}

// stringLiteral unquotes a complete single- or double-quoted literal.
// Returns ("", false) for anything else: concatenation, interpolation,
// variables, or an argument cut off by a line break.
func stringLiteral(expr string) (string, bool) {
	expr = strings.TrimSpace(expr)
	if len(expr) < 2 {
		return "", false
	}
	q := expr[0]
	if q != '"' && q != '\'' {
		return "", false
	}
	if expr[len(expr)-1] != q {
		return "", false
	}
	inner := expr[1 : len(expr)-1]
	if strings.ContainsRune(inner, rune(q)) {
		return "", false
	}
	return inner, true
}
