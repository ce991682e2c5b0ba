// Package extract provides per-language I/O event extraction. Each language
// implementation satisfies the Extractor interface; the rest of the pipeline
// never branches on language, it consumes a uniform event stream.
package extract

import (
	"fmt"
	"path/filepath"
	"strings"

	"depaudit/pkg/event"
)

// Extractor is the pluggable contract one source language implements. An
// extractor must emit Dynamic=true rather than guessing when a path
// expression is not a static literal.
type Extractor interface {
	// Language returns the language identifier.
	Language() event.Language
	// Extensions returns the file extensions handled, lowercase with dot.
	Extensions() []string
	// Extract scans a source file and returns its I/O events in line
	// order. It must not execute anything.
	Extract(path string) ([]event.Event, error)
}

// Registry maps file extensions to their extractors.
type Registry struct {
	extractors map[event.Language]Extractor
	extensions map[string]event.Language
}

// NewRegistry creates a registry with all built-in language extractors.
func NewRegistry() *Registry {
	r := &Registry{
		extractors: make(map[event.Language]Extractor),
		extensions: make(map[string]event.Language),
	}

	r.Register(NewRExtractor())
	r.Register(NewStataExtractor())
	r.Register(NewPythonExtractor())
	r.Register(NewNotebookExtractor())
	r.Register(NewLaTeXExtractor())

	return r
}

// Register adds an extractor, claiming its extensions.
func (r *Registry) Register(ex Extractor) {
	r.extractors[ex.Language()] = ex
	for _, ext := range ex.Extensions() {
		r.extensions[ext] = ex.Language()
	}
}

// For returns the extractor responsible for a file path.
func (r *Registry) For(path string) (Extractor, error) {
	ext := strings.ToLower(filepath.Ext(path))
	lang, ok := r.extensions[ext]
	if !ok {
		return nil, fmt.Errorf("unsupported file extension: %s", ext)
	}
	return r.extractors[lang], nil
}

// IsSupported checks whether any extractor claims the file.
func (r *Registry) IsSupported(path string) bool {
	_, err := r.For(path)
	return err == nil
}

// Languages returns the registered language identifiers.
func (r *Registry) Languages() []event.Language {
	langs := make([]event.Language, 0, len(r.extractors))
	for l := range r.extractors {
		langs = append(langs, l)
	}
	return langs
}
