package resolve

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"depaudit/pkg/event"
)

func TestResolve(t *testing.T) {
	tests := []struct {
		name       string
		rawPath    string
		workingDir string
		dynamic    bool
		wantPath   string
		wantUnres  bool
		wantReason string
	}{
		{
			name:       "relative path joins working directory",
			rawPath:    "data/input.csv",
			workingDir: "/project/code",
			wantPath:   "/project/code/data/input.csv",
		},
		{
			name:       "absolute path is cleaned as-is",
			rawPath:    "/project/data/../data/input.csv",
			workingDir: "/elsewhere",
			wantPath:   "/project/data/input.csv",
		},
		{
			name:       "dot segments collapse",
			rawPath:    "./out/./fig.pdf",
			workingDir: "/project",
			wantPath:   "/project/out/fig.pdf",
		},
		{
			name:       "parent traversal",
			rawPath:    "../shared/raw.dta",
			workingDir: "/project/code",
			wantPath:   "/project/shared/raw.dta",
		},
		{
			name:       "backslash separators normalize",
			rawPath:    `data\raw\input.dta`,
			workingDir: "/project",
			wantPath:   "/project/data/raw/input.dta",
		},
		{
			name:       "dynamic expression stays unresolved",
			rawPath:    `paste0(dir, "/file.csv")`,
			workingDir: "/project",
			dynamic:    true,
			wantUnres:  true,
			wantReason: ReasonDynamic,
		},
		{
			name:       "empty expression stays unresolved",
			rawPath:    "   ",
			workingDir: "/project",
			wantUnres:  true,
			wantReason: ReasonEmpty,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := Resolve(tt.rawPath, tt.workingDir, tt.dynamic)
			assert.Equal(t, tt.wantUnres, res.Unresolved)
			assert.Equal(t, tt.wantPath, res.Path)
			assert.Equal(t, tt.wantReason, res.Reason)
			assert.Equal(t, tt.workingDir, res.WorkDir)
			if tt.wantUnres {
				assert.Equal(t, tt.rawPath, res.RawExpr)
			}
		})
	}
}

func TestResolveSameInputSameOutput(t *testing.T) {
	a := Resolve("data/x.csv", "/project", false)
	b := Resolve("data/x.csv", "/project", false)
	assert.Equal(t, a, b)
}

func TestWorkdirStateStartsAtScriptDir(t *testing.T) {
	wd := NewWorkdirState("/project/code/clean.R")
	assert.Equal(t, "/project/code", wd.Current())
}

func TestWorkdirStateAppliesStaticChdir(t *testing.T) {
	wd := NewWorkdirState("/project/code/clean.R")

	wd.Apply(event.Event{Op: event.Chdir, RawPath: "../data"})
	assert.Equal(t, "/project/data", wd.Current())

	// Relative chdir chains off the new directory, not the script dir.
	wd.Apply(event.Event{Op: event.Chdir, RawPath: "raw"})
	assert.Equal(t, "/project/data/raw", wd.Current())
}

func TestWorkdirStateIgnoresDynamicChdir(t *testing.T) {
	wd := NewWorkdirState("/project/code/clean.R")
	wd.Apply(event.Event{Op: event.Chdir, RawPath: "Sys.getenv(\"DIR\")", Dynamic: true})
	assert.Equal(t, "/project/code", wd.Current())
}

func TestWorkdirStateIgnoresOtherOps(t *testing.T) {
	wd := NewWorkdirState("/project/code/clean.R")
	wd.Apply(event.Event{Op: event.Read, RawPath: "somewhere"})
	wd.Apply(event.Event{Op: event.Write, RawPath: "elsewhere"})
	assert.Equal(t, "/project/code", wd.Current())
}

func TestWorkdirStateReset(t *testing.T) {
	wd := NewWorkdirState("/project/code/clean.R")
	wd.Apply(event.Event{Op: event.Chdir, RawPath: "/tmp"})
	wd.Reset()
	assert.Equal(t, "/project/code", wd.Current())
}
