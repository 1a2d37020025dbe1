package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/eykd/lessimport/internal/source"
)

func newCheckCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check <root|glob>...",
		Short: "Audit root stylesheets for missing and duplicate imports",
		Long: "Resolves each root and reports imports that could not be loaded (errors),\n" +
			"imports removed because they were already inlined, and plain CSS imports\n" +
			"left in place (warnings). Exits non-zero when any error is found.",
		Args:         cobra.MinimumNArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonMode, _ := cmd.Flags().GetBool("json")
			shared, _ := cmd.Flags().GetBool("shared")

			roots, err := expandRoots(a.ws, args)
			if err != nil {
				return err
			}

			resolver := a.resolver()
			ledger := source.NewLedger()
			diags := []Diagnostic{}
			for _, root := range roots {
				if !shared {
					ledger = source.NewLedger()
				}
				before := len(ledger.Events())
				if _, err := resolver.ResolveWithLedger(cmd.Context(), root, ledger); err != nil {
					d, ok := errorDiagnostic(root, err)
					if !ok {
						return err
					}
					diags = append(diags, d)
					continue
				}
				diags = append(diags, eventDiagnostics(root, ledger.Events()[before:])...)
			}

			if jsonMode {
				if err := json.NewEncoder(cmd.OutOrStdout()).Encode(diags); err != nil {
					return fmt.Errorf("encoding output: %w", err)
				}
			} else {
				for _, d := range diags {
					fmt.Fprintf(cmd.OutOrStdout(), "%s %s %s: %s\n",
						d.Code,
						d.Severity,
						sanitizePath(d.Path),
						sanitizePath(d.Message),
					)
				}
			}

			if hasDiagnosticError(diags) {
				return fmt.Errorf("stylesheets have import errors")
			}
			return nil
		},
	}

	cmd.Flags().Bool("json", false, "output diagnostics as JSON array")
	cmd.Flags().Bool("shared", false, "share one import ledger across all roots")

	return cmd
}
