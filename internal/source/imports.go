package source

import (
	"iter"
	"slices"
)

// Imports is an insertion-ordered map from normalized import path to the
// imported node. Order is the order in which directives were first met.
type Imports struct {
	keys  []string
	nodes map[string]*Source
}

func newImports() *Imports {
	return &Imports{nodes: make(map[string]*Source)}
}

// Len returns the number of direct imports.
func (m *Imports) Len() int {
	return len(m.keys)
}

// Get returns the node imported under path.
func (m *Imports) Get(path string) (*Source, bool) {
	s, ok := m.nodes[path]
	return s, ok
}

// Keys returns the import paths in first-encounter order.
func (m *Imports) Keys() []string {
	return slices.Clone(m.keys)
}

// All iterates over the imports in first-encounter order.
func (m *Imports) All() iter.Seq2[string, *Source] {
	return func(yield func(string, *Source) bool) {
		for _, k := range m.keys {
			if !yield(k, m.nodes[k]) {
				return
			}
		}
	}
}

// add records an import unless path is already present.
func (m *Imports) add(path string, s *Source) {
	if _, ok := m.nodes[path]; ok {
		return
	}
	m.keys = append(m.keys, path)
	m.nodes[path] = s
}
