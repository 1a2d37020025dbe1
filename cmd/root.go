// Package cmd implements the lessimport CLI commands.
package cmd

import (
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"golang.org/x/text/encoding"

	"github.com/eykd/lessimport/internal/config"
	"github.com/eykd/lessimport/internal/logging"
	"github.com/eykd/lessimport/internal/source"
)

// app holds what every subcommand needs once configuration is loaded.
type app struct {
	ws     Workspace
	now    func() time.Time
	cfg    *config.Config
	logger *log.Logger
	enc    encoding.Encoding
}

// resolver returns a Resolver reading from the workspace with the configured
// encoding and logger.
func (a *app) resolver() *source.Resolver {
	return source.NewResolver(
		source.WithFs(a.ws.Fs()),
		source.WithEncoding(a.enc),
		source.WithLogger(a.logger),
	)
}

// NewRootCmd creates the root lessimport command with all subcommands registered.
func NewRootCmd() *cobra.Command {
	return newRootCmdWithWorkspace(newDefaultWorkspace())
}

func newRootCmdWithWorkspace(ws Workspace) *cobra.Command {
	a := &app{ws: ws, now: time.Now}
	root := &cobra.Command{
		Use:           "lessimport",
		Short:         "lessimport - flatten LESS @import trees with import-once semantics",
		Args:          cobra.NoArgs,
		SilenceErrors: true,
		RunE:          rootRunE,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd)
		},
	}
	root.PersistentFlags().String("config", "", "config file (default: .lessimport.yaml in CWD or $HOME)")
	root.PersistentFlags().String("log-level", "", "log level: debug, info, warn, error")
	root.PersistentFlags().String("encoding", "", "charset of stylesheet files (default utf-8)")

	root.AddCommand(newFlattenCmd(a))
	root.AddCommand(newDepsCmd(a))
	root.AddCommand(newStaleCmd(a))
	root.AddCommand(newCheckCmd(a))
	return root
}

func rootRunE(cmd *cobra.Command, _ []string) error {
	return cmd.Help()
}

// setup loads configuration, applies flag overrides and builds the logger.
func (a *app) setup(cmd *cobra.Command) error {
	configPath, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if lvl, _ := cmd.Flags().GetString("log-level"); lvl != "" {
		cfg.Log.Level = lvl
	}
	if enc, _ := cmd.Flags().GetString("encoding"); enc != "" {
		cfg.Encoding = enc
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid flags: %w", err)
	}

	logger, err := logging.New(cmd.ErrOrStderr(), cfg.Log.Level)
	if err != nil {
		return err
	}
	enc, err := source.LookupEncoding(cfg.Encoding)
	if err != nil {
		return err
	}

	a.cfg = cfg
	a.logger = logger
	a.enc = enc
	return nil
}
