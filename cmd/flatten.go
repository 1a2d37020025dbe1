package cmd

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/eykd/lessimport/internal/source"
)

// flattenOutput is the JSON output schema for one root of the flatten command.
type flattenOutput struct {
	Path         string    `json:"path"`
	Normalized   string    `json:"normalized"`
	Imports      []string  `json:"imports"`
	Dependencies []string  `json:"dependencies"`
	LastModified time.Time `json:"lastModified"`
	Output       string    `json:"output,omitempty"`
}

func newFlattenCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "flatten <root|glob>...",
		Short: "Inline the imports of each root stylesheet",
		Long: "Resolves every @import of each root, inlining each LESS file once at its\n" +
			"first occurrence and leaving plain CSS imports in place. Output goes to\n" +
			"stdout unless --output or --out-dir is given.",
		Args:         cobra.MinimumNArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			outFile, _ := cmd.Flags().GetString("output")
			outDir, _ := cmd.Flags().GetString("out-dir")
			jsonMode, _ := cmd.Flags().GetBool("json")
			shared, _ := cmd.Flags().GetBool("shared")

			roots, err := expandRoots(a.ws, args)
			if err != nil {
				return err
			}
			if outFile != "" && len(roots) != 1 {
				return fmt.Errorf("--output needs exactly one root, got %d", len(roots))
			}

			resolver := a.resolver()
			ledger := source.NewLedger()
			targets := make(map[string]string)
			results := []flattenOutput{}
			for _, root := range roots {
				if !shared {
					ledger = source.NewLedger()
				}
				src, err := resolver.ResolveWithLedger(cmd.Context(), root, ledger)
				if err != nil {
					return fmt.Errorf("flattening %s: %w", sanitizePath(root), err)
				}

				target := outFile
				if outDir != "" {
					target = filepath.Join(outDir, filepath.Base(src.Path()))
				}
				if target != "" {
					if prev, dup := targets[target]; dup {
						return fmt.Errorf("%s and %s both write %s", sanitizePath(prev), sanitizePath(root), sanitizePath(target))
					}
					targets[target] = root
					if err := writeFlattened(a.ws.Fs(), src, target); err != nil {
						return err
					}
					a.logger.Info("flattened", "root", src.Path(), "output", target)
				}

				switch {
				case jsonMode:
					mtime, err := src.LastModifiedIncludingImports()
					if err != nil {
						return fmt.Errorf("reading modification times: %w", err)
					}
					results = append(results, flattenOutput{
						Path:         src.Path(),
						Normalized:   src.NormalizedContent(),
						Imports:      nonNil(src.Imports().Keys()),
						Dependencies: nonNil(src.Dependencies()),
						LastModified: mtime.UTC(),
						Output:       target,
					})
				case target == "":
					if _, err := fmt.Fprint(cmd.OutOrStdout(), src.NormalizedContent()); err != nil {
						return fmt.Errorf("writing output: %w", err)
					}
				}
			}

			if jsonMode {
				if err := json.NewEncoder(cmd.OutOrStdout()).Encode(results); err != nil {
					return fmt.Errorf("encoding output: %w", err)
				}
			}
			return nil
		},
	}

	cmd.Flags().StringP("output", "o", "", "write the flattened stylesheet to this file (single root only)")
	cmd.Flags().String("out-dir", "", "write each flattened root into this directory under its base name")
	cmd.Flags().Bool("json", false, "output results as JSON")
	cmd.Flags().Bool("shared", false, "share one import ledger across all roots so each file is inlined once overall")
	cmd.MarkFlagsMutuallyExclusive("output", "out-dir")

	return cmd
}

// writeFlattened writes the normalized text of src to target, refusing to
// overwrite any file of its import closure.
func writeFlattened(fsys afero.Fs, src *source.Source, target string) error {
	abs, err := filepath.Abs(target)
	if err != nil {
		return fmt.Errorf("resolving output path: %w", err)
	}
	if abs == src.Path() {
		return fmt.Errorf("refusing to overwrite input %s", sanitizePath(target))
	}
	for _, dep := range src.Dependencies() {
		if abs == dep {
			return fmt.Errorf("refusing to overwrite input %s", sanitizePath(target))
		}
	}
	if err := fsys.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}
	if err := afero.WriteFile(fsys, abs, []byte(src.NormalizedContent()), 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", sanitizePath(target), err)
	}
	return nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
