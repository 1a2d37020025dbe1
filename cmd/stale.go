package cmd

import (
	"fmt"
	"io/fs"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/eykd/lessimport/internal/source"
)

// errStale is returned when the compiled output is older than its sources so
// the process exits non-zero.
var errStale = errors.New("compiled output is stale")

func newStaleCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stale <root> <compiled>",
		Short: "Report whether compiled output is older than its sources",
		Long: "Compares the latest modification time across the root stylesheet and\n" +
			"everything it imports with that of the compiled file. Exits non-zero\n" +
			"when the compiled file is missing or older, unless --exit-zero is set.",
		Args:         cobra.ExactArgs(2),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			exitZero, _ := cmd.Flags().GetBool("exit-zero")
			root, compiled := args[0], args[1]

			src, err := a.resolver().Resolve(cmd.Context(), root)
			if err != nil {
				return fmt.Errorf("resolving %s: %w", sanitizePath(root), err)
			}
			latest, err := src.LastModifiedIncludingImports()
			if err != nil {
				return fmt.Errorf("reading modification times: %w", err)
			}

			staleColor := color.New(color.FgYellow, color.Bold)
			freshColor := color.New(color.FgGreen)
			if !a.cfg.Output.Color {
				staleColor.DisableColor()
				freshColor.DisableColor()
			}
			w := cmd.OutOrStdout()
			now := a.now()

			info, err := a.ws.Fs().Stat(compiled)
			switch {
			case errors.Is(err, fs.ErrNotExist):
				staleColor.Fprintf(w, "stale: %s does not exist\n", sanitizePath(compiled))
			case err != nil:
				return fmt.Errorf("stat %s: %w", sanitizePath(compiled), err)
			case latest.After(info.ModTime()):
				staleColor.Fprintf(w, "stale: %s (built %s, sources changed %s)\n",
					sanitizePath(compiled),
					humanize.RelTime(info.ModTime(), now, "ago", "from now"),
					humanize.RelTime(latest, now, "ago", "from now"))
				newer, err := newerThan(src, info.ModTime())
				if err != nil {
					return fmt.Errorf("reading modification times: %w", err)
				}
				for _, p := range newer {
					fmt.Fprintf(w, "  changed: %s\n", sanitizePath(p))
				}
			default:
				freshColor.Fprintf(w, "up to date: %s\n", sanitizePath(compiled))
				return nil
			}

			if exitZero {
				return nil
			}
			return errStale
		},
	}

	cmd.Flags().Bool("exit-zero", false, "exit with status 0 even when stale")

	return cmd
}

// newerThan returns the files of the closure of src modified after t, in pre-order.
func newerThan(src *source.Source, t time.Time) ([]string, error) {
	var paths []string
	err := src.Walk(func(n *source.Source) error {
		mtime, err := n.LastModified()
		if err != nil {
			return err
		}
		if mtime.After(t) {
			paths = append(paths, n.Path())
		}
		return nil
	})
	return paths, err
}
