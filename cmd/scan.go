package cmd

import (
	"fmt"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/spf13/afero"
)

// Workspace is the filesystem view commands read stylesheets from and write
// output to.
type Workspace interface {
	// Fs returns the filesystem stylesheets are resolved against.
	Fs() afero.Fs
	// Glob returns the files matching a doublestar pattern such as "src/**/*.less".
	Glob(pattern string) ([]string, error)
}

// osWorkspace implements Workspace on the OS filesystem.
// *Impl methods wrap OS calls and are excluded from coverage requirements.
type osWorkspace struct {
	fs afero.Fs
}

func newDefaultWorkspace() *osWorkspace {
	return &osWorkspace{fs: afero.NewOsFs()}
}

// Fs returns the OS filesystem.
func (w *osWorkspace) Fs() afero.Fs {
	return w.fs
}

// Glob expands pattern against the OS filesystem.
func (w *osWorkspace) Glob(pattern string) ([]string, error) {
	return w.GlobImpl(pattern)
}

// GlobImpl expands pattern with doublestar, matching regular files only.
func (w *osWorkspace) GlobImpl(pattern string) ([]string, error) {
	return doublestar.FilepathGlob(pattern, doublestar.WithFilesOnly())
}

// isPattern reports whether arg contains glob metacharacters.
func isPattern(arg string) bool {
	for i := 0; i < len(arg); i++ {
		switch arg[i] {
		case '*', '?', '[', '{':
			return true
		}
	}
	return false
}

// expandRoots turns root arguments into file paths. Plain paths are kept as
// given so a missing root surfaces as a resolution error; patterns must match
// at least one file. Duplicates are dropped, first occurrence wins.
func expandRoots(ws Workspace, args []string) ([]string, error) {
	var roots []string
	seen := make(map[string]bool)
	add := func(p string) {
		if !seen[p] {
			seen[p] = true
			roots = append(roots, p)
		}
	}
	for _, arg := range args {
		if !isPattern(arg) {
			add(arg)
			continue
		}
		if !doublestar.ValidatePattern(arg) {
			return nil, fmt.Errorf("invalid pattern %q", sanitizePath(arg))
		}
		matches, err := ws.Glob(arg)
		if err != nil {
			return nil, fmt.Errorf("expanding %s: %w", sanitizePath(arg), err)
		}
		if len(matches) == 0 {
			return nil, fmt.Errorf("no stylesheets match %s", sanitizePath(arg))
		}
		for _, m := range matches {
			add(m)
		}
	}
	return roots, nil
}
