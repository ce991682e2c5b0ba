package extract

import (
	"fmt"
	"os"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/python"

	"depaudit/pkg/event"
)

// pyReadCalls are call names (last attribute segment) whose first path
// argument is a data input. Covers pandas, numpy, pickle/json on paths,
// geopandas and xarray.
var pyReadCalls = map[string]bool{
	"read_csv": true, "read_parquet": true, "read_excel": true,
	"read_json": true, "read_table": true, "read_feather": true,
	"read_stata": true, "read_pickle": true, "read_hdf": true,
	"read_fwf": true, "load": true, "loadtxt": true, "genfromtxt": true,
	"read_file": true, "open_dataset": true, "imread": true,
}

// pyWriteCalls are call names whose path argument is a data output.
var pyWriteCalls = map[string]bool{
	"to_csv": true, "to_parquet": true, "to_excel": true, "to_json": true,
	"to_pickle": true, "to_feather": true, "to_stata": true, "to_hdf": true,
	"savefig": true, "save": true, "savetxt": true, "imwrite": true,
	"to_netcdf": true, "write_image": true,
}

// PythonExtractor detects file I/O in Python scripts by walking the
// tree-sitter AST for call expressions matching the I/O catalog. String
// literal arguments resolve; f-strings, concatenation and variables are
// dynamic.
type PythonExtractor struct{}

// NewPythonExtractor creates the Python extractor.
func NewPythonExtractor() *PythonExtractor { return &PythonExtractor{} }

func (e *PythonExtractor) Language() event.Language { return event.LangPython }

func (e *PythonExtractor) Extensions() []string { return []string{".py", ".pyw"} }

// Extract parses a Python file and returns its I/O events.
func (e *PythonExtractor) Extract(path string) ([]event.Event, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return e.ExtractBytes(path, content)
}

// ExtractBytes parses Python source already in memory. The notebook
// extractor routes concatenated code cells through here.
func (e *PythonExtractor) ExtractBytes(path string, content []byte) ([]event.Event, error) {
	// A fresh parser per call keeps extraction goroutine-safe.
	parser := sitter.NewParser()
	parser.SetLanguage(python.GetLanguage())

	tree := parser.Parse(nil, content)
	if tree == nil {
		return nil, fmt.Errorf("parsing %s failed", path)
	}
	defer tree.Close()

	var events []event.Event
	e.walk(tree.RootNode(), content, path, &events)
	return events, nil
}

func (e *PythonExtractor) walk(node *sitter.Node, content []byte, path string, events *[]event.Event) {
	if node == nil {
		return
	}

	if node.Type() == "call" {
		if ev, ok := e.callEvent(node, content, path); ok {
			*events = append(*events, ev)
		}
	}

	for i := 0; i < int(node.ChildCount()); i++ {
		e.walk(node.Child(i), content, path, events)
	}
}

// callEvent inspects one call expression and emits an event when the callee
// matches the I/O catalog.
func (e *PythonExtractor) callEvent(node *sitter.Node, content []byte, path string) (event.Event, bool) {
	fn := node.ChildByFieldName("function")
	if fn == nil {
		return event.Event{}, false
	}

	name, receiver := calleeName(fn, content)
	if name == "" {
		return event.Event{}, false
	}

	args := positionalArgs(node.ChildByFieldName("arguments"))
	line := int(node.StartPoint().Row) + 1

	mk := func(op event.Op, pathNode *sitter.Node) (event.Event, bool) {
		if pathNode == nil {
			return event.Event{}, false
		}
		raw, dynamic := pyPathExpr(pathNode, content)
		if raw == "" {
			return event.Event{}, false
		}
		return event.Event{
			ScriptPath: path,
			Language:   event.LangPython,
			Op:         op,
			RawPath:    raw,
			Line:       line,
			Dynamic:    dynamic,
			Confidence: 0.95,
		}, true
	}

	switch {
	case name == "chdir" && (receiver == "os" || receiver == ""):
		return mk(event.Chdir, firstArg(args))
	case name == "open" && receiver == "":
		op := event.Read
		if isWriteMode(node, args, content) {
			op = event.Write
		}
		return mk(op, firstArg(args))
	case pyReadCalls[name]:
		return mk(event.Read, firstArg(args))
	case pyWriteCalls[name]:
		return mk(event.Write, firstArg(args))
	}

	return event.Event{}, false
}

// calleeName returns the final attribute segment of the callee and its
// immediate receiver text ("os" for os.chdir, "" for bare identifiers).
func calleeName(fn *sitter.Node, content []byte) (name, receiver string) {
	switch fn.Type() {
	case "identifier":
		return fn.Content(content), ""
	case "attribute":
		attr := fn.ChildByFieldName("attribute")
		obj := fn.ChildByFieldName("object")
		if attr == nil {
			return "", ""
		}
		recv := ""
		if obj != nil && obj.Type() == "identifier" {
			recv = obj.Content(content)
		}
		return attr.Content(content), recv
	}
	return "", ""
}

// positionalArgs collects the positional argument nodes of a call.
func positionalArgs(argList *sitter.Node) []*sitter.Node {
	if argList == nil {
		return nil
	}
	var args []*sitter.Node
	for i := 0; i < int(argList.NamedChildCount()); i++ {
		child := argList.NamedChild(i)
		if child.Type() == "keyword_argument" {
			continue
		}
		args = append(args, child)
	}
	return args
}

func firstArg(args []*sitter.Node) *sitter.Node {
	if len(args) == 0 {
		return nil
	}
	return args[0]
}

// isWriteMode checks open()'s mode for w/a/x or the + update flag, either as
// the second positional argument or a mode= keyword.
func isWriteMode(call *sitter.Node, args []*sitter.Node, content []byte) bool {
	var modeNode *sitter.Node
	if len(args) >= 2 {
		modeNode = args[1]
	}
	argList := call.ChildByFieldName("arguments")
	if argList != nil {
		for i := 0; i < int(argList.NamedChildCount()); i++ {
			child := argList.NamedChild(i)
			if child.Type() != "keyword_argument" {
				continue
			}
			if nameNode := child.ChildByFieldName("name"); nameNode != nil && nameNode.Content(content) == "mode" {
				modeNode = child.ChildByFieldName("value")
			}
		}
	}
	if modeNode == nil || modeNode.Type() != "string" {
		return false
	}
	mode := strings.Trim(modeNode.Content(content), `"'`)
	return strings.ContainsAny(mode, "wax+")
}

// pyPathExpr classifies a path argument node. Plain string literals resolve;
// f-strings, concatenation, calls (os.path.join, Path(...)) and variables
// are dynamic with the source text preserved.
func pyPathExpr(node *sitter.Node, content []byte) (string, bool) {
	if node.Type() == "string" {
		if hasInterpolation(node) {
			return node.Content(content), true
		}
		return unquotePyString(node.Content(content)), false
	}
	return node.Content(content), true
}

// hasInterpolation reports whether a string node contains f-string
// interpolation.
func hasInterpolation(node *sitter.Node) bool {
	for i := 0; i < int(node.ChildCount()); i++ {
		if node.Child(i).Type() == "interpolation" {
			return true
		}
	}
	return false
}

// unquotePyString strips prefixes (r, b, u) and quoting from a string
// literal's source text.
func unquotePyString(s string) string {
	s = strings.TrimLeft(s, "rRbBuU")
	for _, q := range []string{`"""`, `'''`, `"`, `'`} {
		if strings.HasPrefix(s, q) && strings.HasSuffix(s, q) && len(s) >= 2*len(q) {
			return s[len(q) : len(s)-len(q)]
		}
	}
	return s
}
