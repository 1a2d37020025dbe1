package source

import (
	"context"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/cockroachdb/errors"
	"github.com/spf13/afero"
	"golang.org/x/text/encoding"
)

// Resolver loads stylesheets and resolves their imports. A Resolver holds no
// per-resolution state and may be used from several goroutines.
type Resolver struct {
	fs       afero.Fs
	encoding encoding.Encoding
	logger   *log.Logger
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithFs sets the filesystem files are read from. Defaults to the OS filesystem.
func WithFs(fsys afero.Fs) Option {
	return func(r *Resolver) {
		if fsys != nil {
			r.fs = fsys
		}
	}
}

// WithEncoding sets the text encoding files are decoded with. A nil encoding
// reads files as UTF-8 verbatim, which is the default.
func WithEncoding(enc encoding.Encoding) Option {
	return func(r *Resolver) {
		r.encoding = enc
	}
}

// WithLogger sets the logger resolution steps are reported to at debug level.
func WithLogger(logger *log.Logger) Option {
	return func(r *Resolver) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// NewResolver returns a Resolver configured by opts.
func NewResolver(opts ...Option) *Resolver {
	r := &Resolver{
		fs:     afero.NewOsFs(),
		logger: log.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Load resolves path with a Resolver configured by opts and a fresh ledger.
func Load(ctx context.Context, path string, opts ...Option) (*Source, error) {
	return NewResolver(opts...).Resolve(ctx, path)
}

// Resolve loads the file at path and resolves its import closure using a
// fresh ledger.
func (r *Resolver) Resolve(ctx context.Context, path string) (*Source, error) {
	return r.ResolveWithLedger(ctx, path, NewLedger())
}

// ResolveWithLedger loads the file at path and resolves its import closure
// against ledger, so imports already registered there are not inlined again.
// On failure no Source is returned and the claims this call made are
// withdrawn from the ledger.
func (r *Resolver) ResolveWithLedger(ctx context.Context, path string, ledger *Ledger) (*Source, error) {
	if path == "" {
		return nil, errors.Wrap(ErrInvalidArgument, "path must not be empty")
	}
	if ledger == nil {
		return nil, errors.Wrap(ErrInvalidArgument, "ledger must not be nil")
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, withKind(ErrInvalidArgument, err, "resolving %s", path)
	}

	sess := &session{
		ledger: ledger,
		logger: r.logger.With("session", ledger.ID()),
	}
	root := newSource(abs, r.fs)
	if err := r.load(ctx, sess, root); err != nil {
		ledger.release(sess.claimed)
		return nil, err
	}
	ledger.record(sess.events)
	return root, nil
}

// session is the state of one ResolveWithLedger call.
type session struct {
	ledger  *Ledger
	logger  *log.Logger
	claimed []string
	events  []Event
	// stack holds the nodes currently being loaded, outermost first.
	stack []*Source
}

// ancestor returns the node on the load stack whose file is path.
func (s *session) ancestor(path string) (*Source, bool) {
	for _, n := range s.stack {
		if n.path == path {
			return n, true
		}
	}
	return nil, false
}

// load reads the file of s and resolves its imports.
func (r *Resolver) load(ctx context.Context, sess *session, s *Source) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	content, err := r.read(s.path)
	if err != nil {
		return err
	}
	s.content = content

	sess.stack = append(sess.stack, s)
	normalized, err := r.resolveImports(ctx, sess, s)
	sess.stack = sess.stack[:len(sess.stack)-1]
	if err != nil {
		return err
	}
	s.normalized = normalized
	return nil
}

// read returns the decoded text of the file at path.
func (r *Resolver) read(path string) (string, error) {
	if _, err := statFile(r.fs, path); err != nil {
		return "", err
	}
	raw, err := afero.ReadFile(r.fs, path)
	if err != nil {
		return "", withKind(ErrRead, err, "reading %s", path)
	}
	return decode(raw, r.encoding, path)
}

// resolveImports expands the directives in the content of s. The buffer is
// rescanned after every edit because splicing shifts the text that follows.
func (r *Resolver) resolveImports(ctx context.Context, sess *session, s *Source) (string, error) {
	text := s.content
	cursor := 0
	// Text before inlined ends is a child's normalized content, whose CSS
	// directives the child already reported.
	inlined := 0
	for {
		d, ok := nextDirective(text, cursor)
		if !ok {
			return text, nil
		}

		if d.css {
			cursor = d.end
			if d.start < inlined {
				continue
			}
			sess.logger.Debug("css import left in place", "path", d.path, "importer", s.path)
			sess.events = append(sess.events, Event{Kind: EventCSS, Importer: s.path, Path: d.path})
			continue
		}

		resolved := filepath.Join(filepath.Dir(s.path), filepath.FromSlash(d.path))
		node, dup := sess.ledger.Get(d.path)
		if !dup {
			node, dup = sess.ancestor(resolved)
		}
		if !dup {
			child := newSource(resolved, r.fs)
			registered, claimed := sess.ledger.claim(d.path, child)
			if claimed {
				sess.claimed = append(sess.claimed, d.path)
				sess.logger.Debug("imported", "path", d.path, "importer", s.path)
				sess.events = append(sess.events, Event{Kind: EventInlined, Importer: s.path, Path: d.path, Resolved: resolved})
				if err := r.load(ctx, sess, child); err != nil {
					return "", err
				}
				s.imports.add(d.path, child)
				text = text[:d.start] + child.normalized + text[d.end:]
				cursor = d.start
				inlined = d.start + len(child.normalized)
				continue
			}
			node = registered
		}

		sess.logger.Debug("already imported, ignoring", "path", d.path, "importer", s.path)
		sess.events = append(sess.events, Event{Kind: EventSkipped, Importer: s.path, Path: d.path, Resolved: node.path})
		s.imports.add(d.path, node)
		text = text[:d.start] + text[d.end:]
		cursor = d.start
	}
}
