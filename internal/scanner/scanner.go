// Package scanner walks a project tree collecting auditable source files.
// It honors .depauditignore (gitignore-style patterns) and a set of default
// exclusions, and detects the source language from the file extension.
package scanner

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	ignore "github.com/sabhiram/go-gitignore"
)

// FileInfo describes one discovered file.
type FileInfo struct {
	Path     string // relative path from root, slash-separated
	FullPath string // absolute path
	Language string // detected language, empty if not auditable
	Size     int64
}

// Options configures the scanner.
type Options struct {
	SkipHidden      bool
	DefaultExcludes []string
	IgnoreFileName  string
	// ExtraExcludes adds gitignore-style patterns from configuration.
	ExtraExcludes []string
}

// DefaultOptions returns options suited to research project trees.
func DefaultOptions() Options {
	return Options{
		SkipHidden:     true,
		IgnoreFileName: ".depauditignore",
		DefaultExcludes: []string{
			".git",
			".Rproj.user",
			"renv",
			"packrat",
			"__pycache__",
			".venv",
			"venv",
			".ipynb_checkpoints",
			"node_modules",
			".quarto",
			"_freeze",
			".snakemake",
		},
	}
}

// Scanner walks project trees.
type Scanner struct {
	opts Options
}

// New creates a Scanner.
func New(opts Options) *Scanner {
	return &Scanner{opts: opts}
}

// Scan recursively scans root and returns every file, with Language set for
// files an extractor can handle. The only fatal condition is an unreadable
// root; unreadable children are skipped.
func (s *Scanner) Scan(root string) ([]FileInfo, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("getting absolute path: %w", err)
	}
	if _, err := os.ReadDir(absRoot); err != nil {
		return nil, fmt.Errorf("reading project root: %w", err)
	}

	matcher := s.loadIgnoreMatcher(absRoot)

	var files []FileInfo
	err = filepath.Walk(absRoot, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil
		}

		relPath, err := filepath.Rel(absRoot, path)
		if err != nil || relPath == "." {
			return nil
		}
		relSlash := filepath.ToSlash(relPath)

		if s.opts.SkipHidden && strings.HasPrefix(info.Name(), ".") {
			if info.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		if info.IsDir() {
			if s.isDefaultExcluded(info.Name()) {
				return filepath.SkipDir
			}
			if matcher != nil && matcher.MatchesPath(relSlash+"/") {
				return filepath.SkipDir
			}
			return nil
		}

		if matcher != nil && matcher.MatchesPath(relSlash) {
			return nil
		}
		if info.Mode()&os.ModeSymlink != 0 {
			return nil
		}

		files = append(files, FileInfo{
			Path:     relSlash,
			FullPath: path,
			Language: DetectLanguage(filepath.Ext(path)),
			Size:     info.Size(),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking directory: %w", err)
	}

	return files, nil
}

// loadIgnoreMatcher combines the project ignore file with configured extra
// patterns. Missing ignore files are fine.
func (s *Scanner) loadIgnoreMatcher(root string) *ignore.GitIgnore {
	var lines []string

	ignorePath := filepath.Join(root, s.opts.IgnoreFileName)
	if data, err := os.ReadFile(ignorePath); err == nil {
		lines = append(lines, strings.Split(string(data), "\n")...)
	}
	lines = append(lines, s.opts.ExtraExcludes...)

	if len(lines) == 0 {
		return nil
	}
	return ignore.CompileIgnoreLines(lines...)
}

func (s *Scanner) isDefaultExcluded(name string) bool {
	for _, exclude := range s.opts.DefaultExcludes {
		if strings.EqualFold(name, exclude) {
			return true
		}
	}
	return false
}

// Scan is a convenience wrapper using default options.
func Scan(root string) ([]FileInfo, error) {
	return New(DefaultOptions()).Scan(root)
}
