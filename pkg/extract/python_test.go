package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"depaudit/pkg/event"
)

func extractPython(t *testing.T, src string) []event.Event {
	t.Helper()
	events, err := NewPythonExtractor().ExtractBytes("test.py", []byte(src))
	require.NoError(t, err)
	return events
}

func TestPythonPandasReadWrite(t *testing.T) {
	events := extractPython(t, `import pandas as pd

df = pd.read_csv("data/raw.csv")
df = df.dropna()
df.to_parquet("data/clean.parquet")
`)
	require.Len(t, events, 2)

	assert.Equal(t, event.Read, events[0].Op)
	assert.Equal(t, "data/raw.csv", events[0].RawPath)
	assert.Equal(t, 3, events[0].Line)
	assert.False(t, events[0].Dynamic)

	assert.Equal(t, event.Write, events[1].Op)
	assert.Equal(t, "data/clean.parquet", events[1].RawPath)
	assert.Equal(t, 5, events[1].Line)
}

func TestPythonOpenModes(t *testing.T) {
	tests := []struct {
		name   string
		src    string
		wantOp event.Op
	}{
		{"default read", `f = open("notes.txt")`, event.Read},
		{"explicit read", `f = open("notes.txt", "r")`, event.Read},
		{"write", `f = open("out.txt", "w")`, event.Write},
		{"append", `f = open("log.txt", "a")`, event.Write},
		{"exclusive", `f = open("new.txt", "x")`, event.Write},
		{"read update", `f = open("state.txt", "r+")`, event.Write},
		{"binary update", `f = open("state.bin", "rb+")`, event.Write},
		{"binary write", `f = open("blob.bin", "wb")`, event.Write},
		{"mode keyword", `f = open("out.txt", mode="w")`, event.Write},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			events := extractPython(t, tt.src+"\n")
			require.Len(t, events, 1)
			assert.Equal(t, tt.wantOp, events[0].Op)
		})
	}
}

func TestPythonChdir(t *testing.T) {
	events := extractPython(t, `import os
os.chdir("../data")
df = pd.read_csv("raw.csv")
`)
	require.Len(t, events, 2)
	assert.Equal(t, event.Chdir, events[0].Op)
	assert.Equal(t, "../data", events[0].RawPath)
	assert.Equal(t, event.Read, events[1].Op)
}

func TestPythonDynamicPaths(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{"f-string", `df = pd.read_csv(f"{data_dir}/raw.csv")`},
		{"os.path.join", `df = pd.read_csv(os.path.join(root, "raw.csv"))`},
		{"pathlib", `df = pd.read_csv(Path("data") / "raw.csv")`},
		{"concatenation", `df = pd.read_csv(prefix + ".csv")`},
		{"variable", `df = pd.read_csv(input_path)`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			events := extractPython(t, tt.src+"\n")
			require.Len(t, events, 1)
			assert.True(t, events[0].Dynamic, "expected dynamic: %s", tt.src)
			assert.NotEmpty(t, events[0].RawPath)
		})
	}
}

func TestPythonStringPrefixes(t *testing.T) {
	events := extractPython(t, `df = pd.read_csv(r"data\raw.csv")`+"\n")
	require.Len(t, events, 1)
	assert.False(t, events[0].Dynamic)
	assert.Equal(t, `data\raw.csv`, events[0].RawPath)
}

func TestPythonMatplotlibSavefig(t *testing.T) {
	events := extractPython(t, `import matplotlib.pyplot as plt
plt.plot(x, y)
plt.savefig("figures/trend.png", dpi=300)
`)
	require.Len(t, events, 1)
	assert.Equal(t, event.Write, events[0].Op)
	assert.Equal(t, "figures/trend.png", events[0].RawPath)
}

func TestPythonKeywordOnlyCallHasNoPath(t *testing.T) {
	// A catalog call with no positional path argument emits nothing rather
	// than a wrong guess.
	events := extractPython(t, `df.to_csv(index=False)`+"\n")
	assert.Empty(t, events)
}

func TestPythonNestedCalls(t *testing.T) {
	events := extractPython(t, `pd.read_csv("in.csv").to_csv("out.csv")`+"\n")
	require.Len(t, events, 2)

	ops := map[event.Op]string{}
	for _, ev := range events {
		ops[ev.Op] = ev.RawPath
	}
	assert.Equal(t, "in.csv", ops[event.Read])
	assert.Equal(t, "out.csv", ops[event.Write])
}

func TestPythonExtractFromFile(t *testing.T) {
	path := writeScript(t, "script.py", `import pandas as pd
df = pd.read_stata("raw.dta")
`)
	events, err := NewPythonExtractor().Extract(path)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "raw.dta", events[0].RawPath)
	assert.Equal(t, event.LangPython, events[0].Language)
}

func TestPythonIgnoresUnrelatedCalls(t *testing.T) {
	events := extractPython(t, `print("hello")
x = len(data)
result = model.fit(X, y)
`)
	assert.Empty(t, events)
}
