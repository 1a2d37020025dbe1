package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"slices"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/list"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/eykd/lessimport/internal/config"
	"github.com/eykd/lessimport/internal/source"
)

// depsNode is the YAML and JSON schema of the deps command: one file and its
// direct imports. A file already listed earlier is marked Repeat and its
// imports are not listed again.
type depsNode struct {
	Import       string      `json:"import,omitempty" yaml:"import,omitempty"`
	Path         string      `json:"path" yaml:"path"`
	LastModified time.Time   `json:"lastModified" yaml:"lastModified"`
	Repeat       bool        `json:"repeat,omitempty" yaml:"repeat,omitempty"`
	Imports      []*depsNode `json:"imports,omitempty" yaml:"imports,omitempty"`
}

func newDepsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:          "deps <root>",
		Short:        "Print the import graph of a root stylesheet",
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			format, _ := cmd.Flags().GetString("format")
			if format == "" {
				format = a.cfg.Deps.Format
			}
			if !slices.Contains(config.DepsFormats, format) {
				return fmt.Errorf("unknown format %q", format)
			}

			src, err := a.resolver().Resolve(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("resolving %s: %w", sanitizePath(args[0]), err)
			}
			tree, err := buildDepsTree(src)
			if err != nil {
				return fmt.Errorf("reading modification times: %w", err)
			}

			w := cmd.OutOrStdout()
			switch format {
			case config.FormatTable:
				return renderDepsTable(w, tree, a.now())
			case config.FormatYAML:
				enc := yaml.NewEncoder(w)
				enc.SetIndent(2)
				if err := enc.Encode(tree); err != nil {
					return fmt.Errorf("encoding output: %w", err)
				}
				return enc.Close()
			case config.FormatJSON:
				if err := json.NewEncoder(w).Encode(tree); err != nil {
					return fmt.Errorf("encoding output: %w", err)
				}
				return nil
			default:
				return renderDepsList(w, tree)
			}
		},
	}

	cmd.Flags().String("format", "", "output format: tree, table, yaml, json (default from config)")

	return cmd
}

// buildDepsTree mirrors the import graph of src, listing each file's imports
// only at its first appearance.
func buildDepsTree(src *source.Source) (*depsNode, error) {
	seen := make(map[*source.Source]bool)
	var build func(key string, s *source.Source) (*depsNode, error)
	build = func(key string, s *source.Source) (*depsNode, error) {
		mtime, err := s.LastModified()
		if err != nil {
			return nil, err
		}
		n := &depsNode{Import: key, Path: s.Path(), LastModified: mtime.UTC()}
		if seen[s] {
			n.Repeat = true
			return n, nil
		}
		seen[s] = true
		for k, child := range s.Imports().All() {
			c, err := build(k, child)
			if err != nil {
				return nil, err
			}
			n.Imports = append(n.Imports, c)
		}
		return n, nil
	}
	return build("", src)
}

func renderDepsList(w io.Writer, tree *depsNode) error {
	l := list.NewWriter()
	l.SetStyle(list.StyleConnectedLight)
	var add func(n *depsNode)
	add = func(n *depsNode) {
		label := sanitizePath(n.Path)
		if n.Import != "" {
			label = sanitizePath(n.Import)
		}
		if n.Repeat {
			label += " (already listed)"
		}
		l.AppendItem(label)
		if len(n.Imports) == 0 {
			return
		}
		l.Indent()
		for _, c := range n.Imports {
			add(c)
		}
		l.UnIndent()
	}
	add(tree)
	_, err := fmt.Fprintln(w, l.Render())
	return err
}

// renderDepsTable lists every file of the closure once, in pre-order, with
// its modification time relative to now.
func renderDepsTable(w io.Writer, tree *depsNode, now time.Time) error {
	tbl := table.NewWriter()
	tbl.SetStyle(table.StyleLight)
	tbl.AppendHeader(table.Row{"#", "Import", "File", "Modified"})

	latest := tree.LastModified
	count := 0
	var add func(n *depsNode)
	add = func(n *depsNode) {
		if n.Repeat {
			return
		}
		count++
		imp := n.Import
		if imp == "" {
			imp = "(root)"
		}
		tbl.AppendRow(table.Row{count, sanitizePath(imp), sanitizePath(n.Path), humanize.RelTime(n.LastModified, now, "ago", "from now")})
		if n.LastModified.After(latest) {
			latest = n.LastModified
		}
		for _, c := range n.Imports {
			add(c)
		}
	}
	add(tree)

	tbl.AppendFooter(table.Row{"", fmt.Sprintf("Total: %d files", count), "latest", humanize.RelTime(latest, now, "ago", "from now")})
	_, err := fmt.Fprintln(w, tbl.Render())
	return err
}
