// Package resolve turns raw literal paths plus a script's working-directory
// state into canonical absolute paths. Dynamic expressions are never guessed
// at; they resolve to an explicit unresolved marker that the graph keeps as a
// first-class node.
package resolve

import (
	"path/filepath"
	"strings"

	"depaudit/pkg/event"
)

// ReasonDynamic marks a resolution refused because the path expression is not
// a static literal.
const ReasonDynamic = "dynamic"

// ReasonEmpty marks a resolution refused because the extractor produced an
// empty path expression.
const ReasonEmpty = "empty"

// Resolution is the outcome of resolving one raw path expression.
type Resolution struct {
	// Path is the canonical absolute path. Empty when Unresolved.
	Path string
	// WorkDir is the working directory the resolution used. Exposed so
	// misresolved paths can be debugged and tested.
	WorkDir string
	// Unresolved is true when the expression could not be resolved.
	Unresolved bool
	// Reason explains why the expression is unresolved.
	Reason string
	// RawExpr preserves the original expression for unresolved results.
	RawExpr string
}

// Resolve resolves rawPath against workingDir. Dynamic expressions return an
// unresolved result. Resolve never fails with an error; every input produces
// either a canonical path or an explicit unresolved marker.
func Resolve(rawPath, workingDir string, dynamic bool) Resolution {
	if dynamic {
		return Resolution{
			WorkDir:    workingDir,
			Unresolved: true,
			Reason:     ReasonDynamic,
			RawExpr:    rawPath,
		}
	}

	cleaned := strings.TrimSpace(rawPath)
	if cleaned == "" {
		return Resolution{
			WorkDir:    workingDir,
			Unresolved: true,
			Reason:     ReasonEmpty,
			RawExpr:    rawPath,
		}
	}

	// Normalize Windows-style separators that show up in Stata sources.
	cleaned = strings.ReplaceAll(cleaned, "\\", "/")

	var abs string
	if filepath.IsAbs(cleaned) {
		abs = filepath.Clean(cleaned)
	} else {
		abs = filepath.Join(workingDir, cleaned)
	}

	return Resolution{
		Path:    abs,
		WorkDir: workingDir,
	}
}

// WorkdirState tracks the working directory of a single script as its events
// are replayed in line order. A CHDIR event mutates the state from that line
// forward; everything else resolves against the current directory.
type WorkdirState struct {
	scriptDir string
	current   string
}

// NewWorkdirState creates the state for a script, starting at the script's
// own directory.
func NewWorkdirState(scriptPath string) *WorkdirState {
	dir := filepath.Dir(scriptPath)
	return &WorkdirState{scriptDir: dir, current: dir}
}

// Current returns the working directory in effect.
func (w *WorkdirState) Current() string {
	return w.current
}

// Apply processes one event. CHDIR events with a static target mutate the
// working directory; a dynamic CHDIR leaves it untouched (the conservative
// choice — subsequent relative paths may then be misresolved, which is why
// resolutions carry the directory they used). All other events are ignored.
func (w *WorkdirState) Apply(ev event.Event) {
	if ev.Op != event.Chdir || ev.Dynamic {
		return
	}
	res := Resolve(ev.RawPath, w.current, false)
	if !res.Unresolved {
		w.current = res.Path
	}
}

// Reset restores the state to the script's own directory.
func (w *WorkdirState) Reset() {
	w.current = w.scriptDir
}
