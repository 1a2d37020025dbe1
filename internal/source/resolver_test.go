package source_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eykd/lessimport/internal/source"
)

// newFs returns an in-memory filesystem populated with files.
func newFs(t *testing.T, files map[string]string) afero.Fs {
	t.Helper()
	fsys := afero.NewMemMapFs()
	for name, content := range files {
		require.NoError(t, afero.WriteFile(fsys, name, []byte(content), 0o644))
	}
	return fsys
}

func resolve(t *testing.T, fsys afero.Fs, path string) *source.Source {
	t.Helper()
	src, err := source.Load(context.Background(), path, source.WithFs(fsys))
	require.NoError(t, err)
	require.NotNil(t, src)
	return src
}

func TestResolve_NoDirectives(t *testing.T) {
	fsys := newFs(t, map[string]string{
		"/styles/plain.less": ".a { color: red; }\n",
	})

	src := resolve(t, fsys, "/styles/plain.less")

	assert.Equal(t, "/styles/plain.less", src.Path())
	assert.Equal(t, src.Content(), src.NormalizedContent())
	assert.Equal(t, 0, src.Imports().Len())
}

func TestResolve_SplicesImportInPlace(t *testing.T) {
	fsys := newFs(t, map[string]string{
		"/styles/main.less": "@import \"a\";\nbody{color:red}",
		"/styles/a.less":    ".x{color:blue}",
	})

	src := resolve(t, fsys, "/styles/main.less")

	assert.Equal(t, ".x{color:blue}\nbody{color:red}", src.NormalizedContent())
	assert.Equal(t, "@import \"a\";\nbody{color:red}", src.Content())
	assert.Equal(t, []string{"a.less"}, src.Imports().Keys())

	child, ok := src.Imports().Get("a.less")
	require.True(t, ok)
	assert.Equal(t, "/styles/a.less", child.Path())
	assert.Equal(t, ".x{color:blue}", child.NormalizedContent())
}

func TestResolve_Diamond(t *testing.T) {
	fsys := newFs(t, map[string]string{
		"/s/a.less": "@import \"b\";\n@import \"c\";\n.a{}",
		"/s/b.less": "@import \"d\";\n.b{}",
		"/s/c.less": "@import \"d\";\n.c{}",
		"/s/d.less": ".d{}",
	})
	ledger := source.NewLedger()

	src, err := source.NewResolver(source.WithFs(fsys)).ResolveWithLedger(context.Background(), "/s/a.less", ledger)
	require.NoError(t, err)

	assert.Equal(t, ".d{}\n.b{}\n\n.c{}\n.a{}", src.NormalizedContent())
	assert.Equal(t, 1, strings.Count(src.NormalizedContent(), ".d{}"))
	assert.Equal(t, []string{"b.less", "d.less", "c.less"}, ledger.Paths())

	b, _ := src.Imports().Get("b.less")
	c, _ := src.Imports().Get("c.less")
	dFromB, ok := b.Imports().Get("d.less")
	require.True(t, ok)
	dFromC, ok := c.Imports().Get("d.less")
	require.True(t, ok)
	assert.Same(t, dFromB, dFromC)

	ledgerD, ok := ledger.Get("d.less")
	require.True(t, ok)
	assert.Same(t, dFromB, ledgerD)

	kinds := make([]source.EventKind, 0)
	for _, e := range ledger.Events() {
		kinds = append(kinds, e.Kind)
	}
	assert.Equal(t, []source.EventKind{
		source.EventInlined, source.EventInlined, source.EventInlined, source.EventSkipped,
	}, kinds)
}

func TestResolve_CSSImportsNeverDeduplicated(t *testing.T) {
	content := "@import \"reset.css\";\n@import \"reset.css\";\n@import url('theme.css');\n.x{}"
	fsys := newFs(t, map[string]string{"/s/main.less": content})
	ledger := source.NewLedger()

	src, err := source.NewResolver(source.WithFs(fsys)).ResolveWithLedger(context.Background(), "/s/main.less", ledger)
	require.NoError(t, err)

	assert.Equal(t, content, src.NormalizedContent())
	assert.Equal(t, 0, src.Imports().Len())
	assert.Equal(t, 0, ledger.Len())
	require.Len(t, ledger.Events(), 3)
	for _, e := range ledger.Events() {
		assert.Equal(t, source.EventCSS, e.Kind)
		assert.Empty(t, e.Resolved)
	}
}

func TestResolve_CSSInsideInlinedFileKept(t *testing.T) {
	fsys := newFs(t, map[string]string{
		"/s/main.less": "@import \"a\";\n@import \"b\";\n",
		"/s/a.less":    "@import \"base.css\";\n.a{}",
		"/s/b.less":    ".b{}",
	})

	ledger := source.NewLedger()

	src, err := source.NewResolver(source.WithFs(fsys)).ResolveWithLedger(context.Background(), "/s/main.less", ledger)
	require.NoError(t, err)

	assert.Equal(t, "@import \"base.css\";\n.a{}\n.b{}\n", src.NormalizedContent())
	var css []source.Event
	for _, e := range ledger.Events() {
		if e.Kind == source.EventCSS {
			css = append(css, e)
		}
	}
	require.Len(t, css, 1)
	assert.Equal(t, "/s/a.less", css[0].Importer)
}

func TestResolve_DuplicateInSameFile(t *testing.T) {
	fsys := newFs(t, map[string]string{
		"/s/main.less": "@import \"a\";\n.m{}\n@import 'a.less';\n",
		"/s/a.less":    ".a{}",
	})

	src := resolve(t, fsys, "/s/main.less")

	assert.Equal(t, ".a{}\n.m{}\n\n", src.NormalizedContent())
	assert.Equal(t, []string{"a.less"}, src.Imports().Keys())
}

func TestResolve_TrailingTextRemovedWithDirective(t *testing.T) {
	fsys := newFs(t, map[string]string{
		"/s/main.less": "@import \"a\"; /* first */\n@import \"a\"; /* second */\n.m{}",
		"/s/a.less":    ".a{}",
	})

	src := resolve(t, fsys, "/s/main.less")

	assert.Equal(t, ".a{}\n\n.m{}", src.NormalizedContent())
}

func TestResolve_CommentedDirectiveIgnored(t *testing.T) {
	content := "// @import \"missing\";\n.x{}"
	fsys := newFs(t, map[string]string{"/s/main.less": content})

	src := resolve(t, fsys, "/s/main.less")

	assert.Equal(t, content, src.NormalizedContent())
}

func TestResolve_IndentedAndAlternateForms(t *testing.T) {
	fsys := newFs(t, map[string]string{
		"/s/main.less": "  @import-once \"a\";\n\t@import url(\"b\");\n@import 'c.lss';\n",
		"/s/a.less":    ".a{}",
		"/s/b.less":    ".b{}",
		"/s/c.lss":     ".c{}",
	})

	src := resolve(t, fsys, "/s/main.less")

	assert.Equal(t, ".a{}\n.b{}\n.c{}\n", src.NormalizedContent())
	assert.Equal(t, []string{"a.less", "b.less", "c.lss"}, src.Imports().Keys())
}

func TestResolve_RelativeToImportingFile(t *testing.T) {
	fsys := newFs(t, map[string]string{
		"/s/main.less":     "@import \"sub/x\";\n",
		"/s/sub/x.less":    "@import \"y\";\n.x{}",
		"/s/sub/y.less":    ".sub-y{}",
		"/s/y.less":        ".root-y{}",
		"/s/sub/deep.less": ".unused{}",
	})

	src := resolve(t, fsys, "/s/main.less")

	assert.Equal(t, ".sub-y{}\n.x{}\n", src.NormalizedContent())
	x, _ := src.Imports().Get("sub/x.less")
	y, ok := x.Imports().Get("y.less")
	require.True(t, ok)
	assert.Equal(t, "/s/sub/y.less", y.Path())
}

func TestResolve_LedgerKeyedByLiteralPath(t *testing.T) {
	fsys := newFs(t, map[string]string{
		"/s/main.less":  "@import \"sub/a\";\n@import \"a\";\n",
		"/s/sub/a.less": ".sub-a{}",
		"/s/a.less":     ".a{}",
	})

	src := resolve(t, fsys, "/s/main.less")

	assert.Equal(t, ".sub-a{}\n.a{}\n", src.NormalizedContent())
}

func TestResolve_CycleTerminates(t *testing.T) {
	fsys := newFs(t, map[string]string{
		"/s/a.less": "@import \"b\";\n.a{}",
		"/s/b.less": "@import \"a\";\n.b{}",
	})

	src := resolve(t, fsys, "/s/a.less")

	assert.Equal(t, "\n.b{}\n.a{}", src.NormalizedContent())
	b, _ := src.Imports().Get("b.less")
	back, ok := b.Imports().Get("a.less")
	require.True(t, ok)
	assert.Same(t, src, back)
	assert.Equal(t, []string{"/s/b.less"}, src.Dependencies())
}

func TestResolve_SelfImport(t *testing.T) {
	fsys := newFs(t, map[string]string{
		"/s/a.less": "@import \"a\";\n.a{}",
	})

	src := resolve(t, fsys, "/s/a.less")

	assert.Equal(t, "\n.a{}", src.NormalizedContent())
}

func TestResolve_Errors(t *testing.T) {
	fsys := newFs(t, map[string]string{
		"/s/main.less":   "@import \"missing\";\n",
		"/s/nested.less": "@import \"main\";\n",
	})
	resolver := source.NewResolver(source.WithFs(fsys))

	tests := []struct {
		name    string
		path    string
		wantErr error
	}{
		{"empty path", "", source.ErrInvalidArgument},
		{"missing root", "/s/absent.less", source.ErrNotFound},
		{"missing import", "/s/main.less", source.ErrNotFound},
		{"missing nested import", "/s/nested.less", source.ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src, err := resolver.Resolve(context.Background(), tt.path)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Nil(t, src)
		})
	}
}

func TestResolve_MissingImportMessageNamesFile(t *testing.T) {
	fsys := newFs(t, map[string]string{"/s/main.less": "@import \"gone\";\n"})

	_, err := source.Load(context.Background(), "/s/main.less", source.WithFs(fsys))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "/s/gone.less")
}

func TestResolve_NilLedger(t *testing.T) {
	fsys := newFs(t, map[string]string{"/s/main.less": ".x{}"})

	_, err := source.NewResolver(source.WithFs(fsys)).ResolveWithLedger(context.Background(), "/s/main.less", nil)

	assert.ErrorIs(t, err, source.ErrInvalidArgument)
}

func TestResolve_SharedLedgerAcrossRoots(t *testing.T) {
	fsys := newFs(t, map[string]string{
		"/s/one.less":    "@import \"common\";\n.one{}",
		"/s/two.less":    "@import \"common\";\n.two{}",
		"/s/common.less": ".common{}",
	})
	resolver := source.NewResolver(source.WithFs(fsys))
	ledger := source.NewLedger()

	one, err := resolver.ResolveWithLedger(context.Background(), "/s/one.less", ledger)
	require.NoError(t, err)
	two, err := resolver.ResolveWithLedger(context.Background(), "/s/two.less", ledger)
	require.NoError(t, err)

	assert.Equal(t, ".common{}\n.one{}", one.NormalizedContent())
	assert.Equal(t, "\n.two{}", two.NormalizedContent())
	assert.Equal(t, 1, ledger.Len())
}

func TestResolve_FreshLedgerPerResolve(t *testing.T) {
	fsys := newFs(t, map[string]string{
		"/s/one.less":    "@import \"common\";\n",
		"/s/common.less": ".common{}",
	})
	resolver := source.NewResolver(source.WithFs(fsys))

	first, err := resolver.Resolve(context.Background(), "/s/one.less")
	require.NoError(t, err)
	second, err := resolver.Resolve(context.Background(), "/s/one.less")
	require.NoError(t, err)

	assert.Equal(t, first.NormalizedContent(), second.NormalizedContent())
	assert.NotSame(t, first, second)
}

func TestResolve_FailureReleasesClaims(t *testing.T) {
	fsys := newFs(t, map[string]string{
		"/s/main.less": "@import \"a\";\n@import \"missing\";\n",
		"/s/a.less":    ".a{}",
		"/s/ok.less":   "@import \"a\";\n",
	})
	resolver := source.NewResolver(source.WithFs(fsys))
	ledger := source.NewLedger()

	_, err := resolver.ResolveWithLedger(context.Background(), "/s/main.less", ledger)
	require.ErrorIs(t, err, source.ErrNotFound)
	assert.Equal(t, 0, ledger.Len())
	assert.Empty(t, ledger.Events())

	ok, err := resolver.ResolveWithLedger(context.Background(), "/s/ok.less", ledger)
	require.NoError(t, err)
	assert.Equal(t, ".a{}\n", ok.NormalizedContent())
}

func TestResolve_ContextCancelled(t *testing.T) {
	fsys := newFs(t, map[string]string{"/s/main.less": ".x{}"})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	src, err := source.Load(ctx, "/s/main.less", source.WithFs(fsys))

	assert.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, src)
}

func TestResolve_Encoding(t *testing.T) {
	fsys := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fsys, "/s/main.less", []byte("@import \"a\";\n.caf\xe9{}"), 0o644))
	require.NoError(t, afero.WriteFile(fsys, "/s/a.less", []byte(".na\xefve{}"), 0o644))

	enc, err := source.LookupEncoding("iso-8859-1")
	require.NoError(t, err)

	src, err := source.Load(context.Background(), "/s/main.less", source.WithFs(fsys), source.WithEncoding(enc))
	require.NoError(t, err)

	assert.Equal(t, ".naïve{}\n.café{}", src.NormalizedContent())
}

func TestLookupEncoding(t *testing.T) {
	enc, err := source.LookupEncoding("")
	require.NoError(t, err)
	assert.Nil(t, enc)

	enc, err = source.LookupEncoding("UTF-8")
	require.NoError(t, err)
	assert.NotNil(t, enc)

	_, err = source.LookupEncoding("klingon")
	assert.ErrorIs(t, err, source.ErrInvalidArgument)
	assert.True(t, errors.Is(err, source.ErrInvalidArgument))
	assert.Contains(t, err.Error(), "klingon")
}

func TestLastModifiedIncludingImports(t *testing.T) {
	fsys := newFs(t, map[string]string{
		"/s/main.less": "@import \"a\";\n",
		"/s/a.less":    ".a{}",
	})
	base := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, fsys.Chtimes("/s/main.less", base, base.Add(time.Hour)))
	require.NoError(t, fsys.Chtimes("/s/a.less", base, base))

	src := resolve(t, fsys, "/s/main.less")

	own, err := src.LastModified()
	require.NoError(t, err)
	assert.True(t, own.Equal(base.Add(time.Hour)))

	all, err := src.LastModifiedIncludingImports()
	require.NoError(t, err)
	assert.True(t, all.Equal(base.Add(time.Hour)))

	touched := base.Add(2 * time.Hour)
	require.NoError(t, fsys.Chtimes("/s/a.less", touched, touched))

	all, err = src.LastModifiedIncludingImports()
	require.NoError(t, err)
	assert.True(t, all.Equal(touched))

	own, err = src.LastModified()
	require.NoError(t, err)
	assert.True(t, own.Equal(base.Add(time.Hour)))
}

func TestLastModifiedIncludingImports_SkippedImportCounts(t *testing.T) {
	fsys := newFs(t, map[string]string{
		"/s/main.less": "@import \"b\";\n@import \"c\";\n",
		"/s/b.less":    "@import \"d\";\n",
		"/s/c.less":    "@import \"d\";\n",
		"/s/d.less":    ".d{}",
	})
	base := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	for _, p := range []string{"/s/main.less", "/s/b.less", "/s/c.less", "/s/d.less"} {
		require.NoError(t, fsys.Chtimes(p, base, base))
	}
	later := base.Add(time.Minute)
	require.NoError(t, fsys.Chtimes("/s/d.less", later, later))

	src := resolve(t, fsys, "/s/main.less")
	c, _ := src.Imports().Get("c.less")

	got, err := c.LastModifiedIncludingImports()
	require.NoError(t, err)
	assert.True(t, got.Equal(later))
}

func TestLastModifiedIncludingImports_DeletedImport(t *testing.T) {
	fsys := newFs(t, map[string]string{
		"/s/main.less": "@import \"a\";\n",
		"/s/a.less":    ".a{}",
	})
	src := resolve(t, fsys, "/s/main.less")
	require.NoError(t, fsys.Remove("/s/a.less"))

	_, err := src.LastModifiedIncludingImports()

	assert.ErrorIs(t, err, source.ErrNotFound)
}

func TestDependenciesAndWalk(t *testing.T) {
	fsys := newFs(t, map[string]string{
		"/s/a.less": "@import \"b\";\n@import \"c\";\n",
		"/s/b.less": "@import \"d\";\n",
		"/s/c.less": "@import \"d\";\n",
		"/s/d.less": "",
	})

	src := resolve(t, fsys, "/s/a.less")

	assert.Equal(t, []string{"/s/b.less", "/s/d.less", "/s/c.less"}, src.Dependencies())

	var visited []string
	require.NoError(t, src.Walk(func(n *source.Source) error {
		visited = append(visited, n.Path())
		return nil
	}))
	assert.Equal(t, []string{"/s/a.less", "/s/b.less", "/s/d.less", "/s/c.less"}, visited)
}

func TestResolve_OSFilesystem(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "main.less"), []byte("@import \"part\";\n.m{}"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "part.less"), []byte(".p{}"), 0o644))
	stamp := time.Date(2030, 6, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, os.Chtimes(filepath.Join(dir, "part.less"), stamp, stamp))

	src, err := source.Load(context.Background(), filepath.Join(dir, "main.less"))
	require.NoError(t, err)

	assert.Equal(t, ".p{}\n.m{}", src.NormalizedContent())
	latest, err := src.LastModifiedIncludingImports()
	require.NoError(t, err)
	assert.True(t, latest.Equal(stamp))
}

func TestResolve_OSReadFailure(t *testing.T) {
	tests := []struct {
		name  string
		main  string
		dir   string
		entry string
	}{
		{"import names a directory", "@import \"sub\";\n", "sub.less", "main.less"},
		{"root names a directory", "", "root.less", "root.less"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			if tt.main != "" {
				require.NoError(t, os.WriteFile(filepath.Join(dir, "main.less"), []byte(tt.main), 0o644))
			}
			require.NoError(t, os.Mkdir(filepath.Join(dir, tt.dir), 0o755))

			src, err := source.Load(context.Background(), filepath.Join(dir, tt.entry))

			require.Error(t, err)
			assert.Nil(t, src)
			assert.ErrorIs(t, err, source.ErrRead)
			assert.True(t, errors.Is(err, source.ErrRead))
			assert.False(t, errors.Is(err, source.ErrNotFound))
			assert.Contains(t, err.Error(), tt.dir)
		})
	}
}

func TestResolve_CRLFLineEndings(t *testing.T) {
	fsys := newFs(t, map[string]string{
		"/s/main.less": "@import \"a\";\r\n@import \"a\";\r\nbody{}\r\n",
		"/s/a.less":    ".a{}",
	})

	src := resolve(t, fsys, "/s/main.less")

	assert.Equal(t, ".a{}\r\n\r\nbody{}\r\n", src.NormalizedContent())
}
