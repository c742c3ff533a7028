package cli

import (
	"fmt"
	"slices"

	"github.com/spf13/cobra"
)

// DefaultDatabase is used when neither --db nor the config names a store.
const DefaultDatabase = "hotclick.db"

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose  bool
	Format   string // "json" | "text"
	Database string
	Config   string
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the hotclick CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "hotclick",
		Short: "Hotkey-triggered click and keystroke automation",
		Long: `hotclick sends mouse clicks and keystrokes when trigger keys are pressed.

A master trigger starts a continuous stream of actions at a fixed rate.
Macros send a bounded burst of actions each time their trigger is pressed.
All actions share one counter that can cap the total.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return NewExitError(ExitCommandError,
					fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats))
			}
			return nil
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.Database, "db", "", "path to the macro database (default from config, else "+DefaultDatabase+")")
	cmd.PersistentFlags().StringVarP(&opts.Config, "config", "c", "", "path to a YAML or TOML config file")

	cmd.AddCommand(NewRunCommand(opts))
	cmd.AddCommand(NewMacroCommand(opts))
	cmd.AddCommand(NewValidateCommand(opts))
	cmd.AddCommand(NewImportCommand(opts))
	cmd.AddCommand(NewExportCommand(opts))
	cmd.AddCommand(NewTestCommand(opts))

	return cmd
}

func isValidFormat(format string) bool {
	return slices.Contains(ValidFormats, format)
}
