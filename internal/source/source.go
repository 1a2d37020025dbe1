// Package source loads LESS stylesheets and flattens their @import directives
// with import-once semantics.
//
// Resolving a root file loads every non-CSS file reachable through import
// directives, depth first, and splices each one into the text of the file
// that first imports it. Later imports of the same path are removed. Plain
// CSS imports are left untouched. The resulting Source exposes both the raw
// and the flattened text, the direct imports of every file, and the latest
// modification time across the whole import closure.
package source

import (
	"time"

	"github.com/spf13/afero"
)

// Source is one loaded stylesheet. It is immutable once resolution returns.
type Source struct {
	path       string
	content    string
	normalized string
	imports    *Imports
	fs         afero.Fs
}

func newSource(path string, fsys afero.Fs) *Source {
	return &Source{path: path, fs: fsys, imports: newImports()}
}

// Path returns the absolute path of the file.
func (s *Source) Path() string {
	return s.path
}

// Content returns the file text exactly as read.
func (s *Source) Content() string {
	return s.content
}

// NormalizedContent returns the text with every import directive resolved:
// inlined at its first occurrence in the session, removed at later ones, or
// left in place for plain CSS.
func (s *Source) NormalizedContent() string {
	return s.normalized
}

// Imports returns the direct imports found in the file, including those that
// were removed because an earlier file had already inlined them.
func (s *Source) Imports() *Imports {
	return s.imports
}

// LastModified returns the current modification time of the file on disk.
func (s *Source) LastModified() (time.Time, error) {
	info, err := statFile(s.fs, s.path)
	if err != nil {
		return time.Time{}, err
	}
	return info.ModTime(), nil
}

// LastModifiedIncludingImports returns the latest modification time of the
// file and everything it transitively imports. It stats every file on each
// call and fails if any of them is no longer readable.
func (s *Source) LastModifiedIncludingImports() (time.Time, error) {
	var latest time.Time
	err := s.Walk(func(n *Source) error {
		t, err := n.LastModified()
		if err != nil {
			return err
		}
		if t.After(latest) {
			latest = t
		}
		return nil
	})
	if err != nil {
		return time.Time{}, err
	}
	return latest, nil
}

// Walk calls fn for s and every node reachable through imports, in pre-order.
// A node imported from several files is visited once. Walk stops at the first
// error returned by fn.
func (s *Source) Walk(fn func(*Source) error) error {
	visited := make(map[*Source]bool)
	var walk func(n *Source) error
	walk = func(n *Source) error {
		if visited[n] {
			return nil
		}
		visited[n] = true
		if err := fn(n); err != nil {
			return err
		}
		for _, child := range n.imports.All() {
			if err := walk(child); err != nil {
				return err
			}
		}
		return nil
	}
	return walk(s)
}

// Dependencies returns the absolute paths of every file s transitively
// imports, in pre-order, excluding s itself.
func (s *Source) Dependencies() []string {
	var deps []string
	seen := map[string]bool{s.path: true}
	_ = s.Walk(func(n *Source) error {
		if !seen[n.path] {
			seen[n.path] = true
			deps = append(deps, n.path)
		}
		return nil
	})
	return deps
}
