package source

import (
	"slices"
	"sync"

	"github.com/google/uuid"
)

// EventKind classifies what the resolver did with one import directive.
type EventKind int

const (
	// EventInlined means the import was loaded and its content spliced in.
	EventInlined EventKind = iota
	// EventSkipped means the import was already inlined elsewhere and the directive was removed.
	EventSkipped
	// EventCSS means a plain CSS import was left in place.
	EventCSS
)

func (k EventKind) String() string {
	switch k {
	case EventInlined:
		return "inlined"
	case EventSkipped:
		return "skipped"
	case EventCSS:
		return "css"
	default:
		return "unknown"
	}
}

// Event records the handling of a single import directive during resolution.
type Event struct {
	Kind EventKind
	// Importer is the absolute path of the file containing the directive.
	Importer string
	// Path is the normalized import path as written.
	Path string
	// Resolved is the absolute path the import resolved to; empty for CSS imports.
	Resolved string
}

// Ledger is the record of import paths already resolved in a session, keyed by
// normalized import path. Every recursive step of a resolution reads and
// writes the same ledger; that is what makes an import inline at most once.
//
// A Ledger is safe for concurrent use. Claiming a path is atomic, so at most
// one resolution of a given path is in flight per ledger. Nodes obtained from
// a ledger shared with a resolution still in progress may be incomplete.
type Ledger struct {
	id string

	mu      sync.RWMutex
	paths   []string
	entries map[string]*Source
	events  []Event
}

// NewLedger returns an empty ledger with a fresh session ID.
func NewLedger() *Ledger {
	return &Ledger{
		id:      uuid.NewString(),
		entries: make(map[string]*Source),
	}
}

// ID returns the session identifier used in log output.
func (l *Ledger) ID() string {
	return l.id
}

// Len returns the number of registered import paths.
func (l *Ledger) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.paths)
}

// Get returns the node registered under the normalized import path.
func (l *Ledger) Get(path string) (*Source, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	s, ok := l.entries[path]
	return s, ok
}

// Paths returns the registered import paths in registration order.
func (l *Ledger) Paths() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return slices.Clone(l.paths)
}

// Events returns the directive events of every successful resolution that
// used this ledger, in scan order.
func (l *Ledger) Events() []Event {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return slices.Clone(l.events)
}

// claim registers s under path unless the path is already present. It returns
// the registered node and true when s was registered, or the existing node and
// false otherwise.
func (l *Ledger) claim(path string, s *Source) (*Source, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if existing, ok := l.entries[path]; ok {
		return existing, false
	}
	l.entries[path] = s
	l.paths = append(l.paths, path)
	return s, true
}

// release removes the given claims, used when a resolution fails.
func (l *Ledger) release(paths []string) {
	if len(paths) == 0 {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, p := range paths {
		delete(l.entries, p)
	}
	l.paths = slices.DeleteFunc(l.paths, func(p string) bool {
		return slices.Contains(paths, p)
	})
}

// record appends the events of a completed resolution.
func (l *Ledger) record(events []Event) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, events...)
}
