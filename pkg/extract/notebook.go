package extract

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"depaudit/pkg/event"
)

// notebookDoc is the subset of the Jupyter notebook format we need.
type notebookDoc struct {
	Cells []notebookCell `json:"cells"`
}

type notebookCell struct {
	CellType string          `json:"cell_type"`
	Source   json.RawMessage `json:"source"`
}

// NotebookExtractor handles Jupyter notebooks by concatenating code cells and
// feeding the combined source through the Python extractor. Line numbers are
// relative to the concatenated code, which keeps them stable per notebook
// even though they do not match the on-disk JSON.
type NotebookExtractor struct {
	python *PythonExtractor
}

// NewNotebookExtractor creates the notebook extractor.
func NewNotebookExtractor() *NotebookExtractor {
	return &NotebookExtractor{python: NewPythonExtractor()}
}

func (e *NotebookExtractor) Language() event.Language { return event.LangNotebook }

func (e *NotebookExtractor) Extensions() []string { return []string{".ipynb"} }

// Extract decodes the notebook JSON and scans its code cells.
func (e *NotebookExtractor) Extract(path string) ([]event.Event, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	var doc notebookDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decoding notebook %s: %w", path, err)
	}

	var sb strings.Builder
	for _, cell := range doc.Cells {
		if cell.CellType != "code" {
			continue
		}
		src, err := cellSource(cell.Source)
		if err != nil {
			return nil, fmt.Errorf("decoding cell source in %s: %w", path, err)
		}
		sb.WriteString(src)
		if !strings.HasSuffix(src, "\n") {
			sb.WriteString("\n")
		}
	}

	events, err := e.python.ExtractBytes(path, []byte(sb.String()))
	if err != nil {
		return nil, err
	}
	for i := range events {
		events[i].Language = event.LangNotebook
	}
	return events, nil
}

// cellSource handles both source encodings the format allows: a single
// string or a list of line strings.
func cellSource(raw json.RawMessage) (string, error) {
	var lines []string
	if err := json.Unmarshal(raw, &lines); err == nil {
		return strings.Join(lines, ""), nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", err
	}
	return s, nil
}
