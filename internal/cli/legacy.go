package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/hotclick/internal/engine"
	"github.com/roach88/hotclick/internal/store"
)

// ImportResult reports the outcome of an import.
type ImportResult struct {
	Imported int             `json:"imported"`
	Skipped  []ImportSkipped `json:"skipped,omitempty"`
}

// ImportSkipped is a macro the store rejected.
type ImportSkipped struct {
	Index  int    `json:"index"`
	Macro  string `json:"macro"`
	Reason string `json:"reason"`
}

// NewImportCommand creates the import command.
func NewImportCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "import <macros.json>",
		Short: "Append macros from a legacy macros.json file",
		Long: `Read a macros.json file in the legacy format and append its macros to
the database. A macro whose trigger is already taken is skipped and
reported; the rest are still imported.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(rootOpts, args[0], cmd)
		},
	}
}

// NewExportCommand creates the export command.
func NewExportCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "export <macros.json>",
		Short: "Write stored macros to a legacy macros.json file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExport(rootOpts, args[0], cmd)
		},
	}
}

func runImport(opts *RootOptions, path string, cmd *cobra.Command) error {
	f := newFormatter(cmd, opts)

	macros, err := store.ReadLegacyJSON(path)
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodeMacroInvalid, "cannot read legacy macro file", err)
	}
	f.VerboseLog("Read %d macro(s) from %s", len(macros), path)

	return withMacroEngine(opts, cmd, func(f *OutputFormatter, eng *engine.Engine) error {
		result := ImportResult{}
		for i, m := range macros {
			if _, err := eng.AddMacro(cmd.Context(), m); err != nil {
				if engine.IsPersistenceError(err) {
					return f.Fail(ExitFailure, errorCode(err), "import aborted", err)
				}
				result.Skipped = append(result.Skipped, ImportSkipped{
					Index:  i,
					Macro:  m.DisplayName(),
					Reason: err.Error(),
				})
				continue
			}
			result.Imported++
		}

		if opts.Format == "json" {
			return f.Success(result, "")
		}
		fmt.Fprintf(f.Writer, "Imported %d macro(s) from %s\n", result.Imported, path)
		for _, s := range result.Skipped {
			fmt.Fprintf(f.Writer, "  skipped %s: %s\n", s.Macro, s.Reason)
		}
		return nil
	})
}

func runExport(opts *RootOptions, path string, cmd *cobra.Command) error {
	return withMacroEngine(opts, cmd, func(f *OutputFormatter, eng *engine.Engine) error {
		macros := eng.Macros()
		if err := store.WriteLegacyJSON(path, macros); err != nil {
			return f.Fail(ExitCommandError, ErrCodeGeneric, "cannot write legacy macro file", err)
		}
		return f.Success(map[string]any{"exported": len(macros), "path": path},
			fmt.Sprintf("Exported %d macro(s) to %s", len(macros), path))
	})
}
