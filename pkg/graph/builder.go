package graph

import (
	"fmt"
	"os"
	"sort"

	"depaudit/pkg/event"
	"depaudit/pkg/resolve"
)

// Builder consumes resolved events and owns node identity for the duration of
// a single audit run. All mutation is sequential; parallel extractors hand
// their event lists to a single Builder.
type Builder struct {
	root    string
	files   map[string]*FileNode
	scripts map[string]*ScriptNode

	// statFn is swappable for tests that need deterministic timestamps.
	statFn func(string) (os.FileInfo, error)
}

// NewBuilder creates a Builder rooted at the project directory.
func NewBuilder(root string) *Builder {
	return &Builder{
		root:    root,
		files:   make(map[string]*FileNode),
		scripts: make(map[string]*ScriptNode),
		statFn:  os.Stat,
	}
}

// SetStatFunc overrides the filesystem stat used at finalization.
func (b *Builder) SetStatFunc(fn func(string) (os.FileInfo, error)) {
	b.statFn = fn
}

// unresolvedKey builds the synthetic node key for a dynamic expression.
// Distinct expressions get distinct keys so dynamic patterns are never merged
// with one another or with statically-resolved nodes.
func unresolvedKey(scriptPath, rawExpr string) string {
	return fmt.Sprintf("unresolved://%s?%s", scriptPath, rawExpr)
}

// Build constructs the graph from a flat event sequence. Events are grouped
// by script and replayed in line order so working-directory mutations apply
// to the lines that follow them. Building the same sequence twice yields
// set-identical node and edge sets.
func (b *Builder) Build(events []event.Event) *Graph {
	byScript := make(map[string][]event.Event)
	for _, ev := range events {
		byScript[ev.ScriptPath] = append(byScript[ev.ScriptPath], ev)
	}

	// Deterministic iteration: sort scripts lexicographically, events by
	// line within each script. The merge across extractors is a fold over
	// path-keyed maps, so ordering only affects internal slice order.
	scriptPaths := make([]string, 0, len(byScript))
	for p := range byScript {
		scriptPaths = append(scriptPaths, p)
	}
	sort.Strings(scriptPaths)

	for _, scriptPath := range scriptPaths {
		evs := byScript[scriptPath]
		sort.SliceStable(evs, func(i, j int) bool { return evs[i].Line < evs[j].Line })

		wd := resolve.NewWorkdirState(scriptPath)
		for _, ev := range evs {
			b.apply(ev, wd)
		}
	}

	b.finalize()

	return &Graph{Root: b.root, Files: b.files, Scripts: b.scripts}
}

// apply adds one event to the graph under the script's current working
// directory, then lets the event mutate that directory for later lines.
func (b *Builder) apply(ev event.Event, wd *resolve.WorkdirState) {
	script := b.getScript(ev.ScriptPath, ev.Language)

	switch ev.Op {
	case event.Chdir:
		wd.Apply(ev)
		return
	case event.Include:
		res := resolve.Resolve(ev.RawPath, wd.Current(), ev.Dynamic)
		if res.Unresolved {
			// An include we cannot resolve still matters: surface it
			// as an unresolved file node read by the script.
			node := b.getUnresolved(ev.ScriptPath, ev.RawPath, res.Reason)
			b.addRead(script, node)
			return
		}
		included := b.getScript(res.Path, "")
		if !containsString(script.Includes, included.Path) {
			script.Includes = append(script.Includes, included.Path)
		}
		return
	}

	res := resolve.Resolve(ev.RawPath, wd.Current(), ev.Dynamic)
	var node *FileNode
	if res.Unresolved {
		node = b.getUnresolved(ev.ScriptPath, ev.RawPath, res.Reason)
	} else {
		node = b.getFile(res.Path)
	}

	switch ev.Op {
	case event.Read:
		b.addRead(script, node)
	case event.Write:
		b.addWrite(script, node)
	}
}

func (b *Builder) addRead(script *ScriptNode, node *FileNode) {
	if _, ok := node.Consumers[script.Path]; !ok {
		node.Consumers[script.Path] = struct{}{}
		script.Reads = append(script.Reads, node.Path)
	}
}

func (b *Builder) addWrite(script *ScriptNode, node *FileNode) {
	if _, ok := node.Producers[script.Path]; !ok {
		node.Producers[script.Path] = struct{}{}
		script.Writes = append(script.Writes, node.Path)
	}
}

// getFile returns the node for a canonical path, creating it on first use.
func (b *Builder) getFile(path string) *FileNode {
	if n, ok := b.files[path]; ok {
		return n
	}
	n := &FileNode{
		Path:      path,
		Producers: make(map[string]struct{}),
		Consumers: make(map[string]struct{}),
	}
	b.files[path] = n
	return n
}

// getUnresolved returns the node for a dynamic expression, keyed per distinct
// (script, expression) pair.
func (b *Builder) getUnresolved(scriptPath, rawExpr, reason string) *FileNode {
	key := unresolvedKey(scriptPath, rawExpr)
	if n, ok := b.files[key]; ok {
		return n
	}
	n := &FileNode{
		Path:             key,
		Kind:             KindUnresolved,
		Unresolved:       true,
		RawExpr:          rawExpr,
		UnresolvedReason: reason,
		Producers:        make(map[string]struct{}),
		Consumers:        make(map[string]struct{}),
	}
	b.files[key] = n
	return n
}

func (b *Builder) getScript(path string, lang event.Language) *ScriptNode {
	if s, ok := b.scripts[path]; ok {
		if s.Language == "" {
			s.Language = lang
		}
		return s
	}
	s := &ScriptNode{Path: path, Language: lang}
	b.scripts[path] = s
	return s
}

// finalize checks filesystem existence and mtimes for every node, then prunes
// file nodes participating in no flow at all. Pruning is part of the build
// contract, not the classifier's.
func (b *Builder) finalize() {
	for _, n := range b.files {
		if n.Unresolved {
			continue
		}
		if info, err := b.statFn(n.Path); err == nil {
			n.Exists = true
			n.MTime = info.ModTime()
			n.HasTime = true
		}
	}
	for _, s := range b.scripts {
		if info, err := b.statFn(s.Path); err == nil {
			s.Exists = true
			s.MTime = info.ModTime()
			s.HasTime = true
		}
	}

	for path, n := range b.files {
		if n.producerCount() == 0 && n.consumerCount() == 0 {
			delete(b.files, path)
		}
	}
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
