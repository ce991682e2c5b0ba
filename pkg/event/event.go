// Package event defines the common data shape every language extractor emits.
// The rest of the pipeline never branches on source language; it consumes a
// uniform stream of these events.
package event

// Op is the kind of I/O operation detected in a source file.
type Op string

const (
	// Read is a file read (data input).
	Read Op = "READ"
	// Write is a file write (data output).
	Write Op = "WRITE"
	// Include is a script sourcing/executing another script.
	Include Op = "INCLUDE"
	// Chdir mutates the emitting script's working directory from that
	// line forward (setwd, cd, os.chdir).
	Chdir Op = "CHDIR"
)

// Language identifies the source language of a script.
type Language string

const (
	LangR        Language = "r"
	LangStata    Language = "stata"
	LangPython   Language = "python"
	LangLaTeX    Language = "latex"
	LangNotebook Language = "notebook"
)

// Event is one detected read/write/include/chdir operation extracted from a
// source file. Events are created by an extractor, consumed exactly once
// during graph construction, and discarded after the corresponding edge is
// added.
type Event struct {
	// ScriptPath is the absolute path of the script the event came from.
	ScriptPath string `json:"script_path" msgpack:"s"`
	// Language of the emitting script.
	Language Language `json:"language" msgpack:"l"`
	// Op is the detected operation.
	Op Op `json:"op" msgpack:"o"`
	// RawPath is the literal path expression as written in the source.
	// For dynamic expressions this is the unevaluated source text.
	RawPath string `json:"raw_path" msgpack:"p"`
	// Line is the 1-based source line the operation appears on.
	Line int `json:"line" msgpack:"n"`
	// Dynamic marks a path expression that is not a static literal
	// (interpolation, concatenation, glob). Dynamic paths are never
	// guessed at; they surface as unresolved nodes.
	Dynamic bool `json:"dynamic,omitempty" msgpack:"d"`
	// Confidence in the detection, 0..1. Regex catalogs emit lower
	// confidence than AST-based extractors.
	Confidence float64 `json:"confidence,omitempty" msgpack:"c"`
}
