package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/hotclick/internal/config"
	"github.com/roach88/hotclick/internal/model"
)

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid    bool             `json:"valid"`
	Path     string           `json:"path"`
	Errors   []ValidationItem `json:"errors,omitempty"`
	Warnings []ValidationItem `json:"warnings,omitempty"`
	Master   *MasterView      `json:"master,omitempty"`
}

// ValidationItem is one problem found in a config file.
type ValidationItem struct {
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
	Line    int    `json:"line,omitempty"`
}

// MasterView is the effective master configuration after coercion.
type MasterView struct {
	Rate      float64 `json:"rate"`
	Trigger   string  `json:"trigger"`
	Mode      string  `json:"mode"`
	Action    string  `json:"action"`
	StopAfter int64   `json:"stop_after"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "validate <config>",
		Short: "Check a config file without running",
		Long: `Validate a YAML or TOML config file against the config schema.

Schema errors (unknown fields, wrong types) fail validation. Values the
engine would coerce, such as a non-positive rate or an unknown mode, are
reported as warnings together with the value that would be used.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}
}

func runValidate(opts *RootOptions, path string, cmd *cobra.Command) error {
	f := newFormatter(cmd, opts)
	f.VerboseLog("Validating %s", path)

	cfg, err := config.Load(path)
	if err != nil {
		var cfgErr *config.Error
		if !errors.As(err, &cfgErr) {
			return f.Fail(ExitCommandError, ErrCodeConfig, "cannot read config", err)
		}
		item := ValidationItem{Message: cfgErr.Message}
		if cfgErr.Pos.IsValid() {
			item.Line = cfgErr.Pos.Line()
		}
		result := ValidationResult{Valid: false, Path: path, Errors: []ValidationItem{item}}
		if opts.Format == "json" {
			if err := f.encode(CLIResponse{
				Status: "error",
				Data:   result,
				Error:  &CLIError{Code: ErrCodeConfig, Message: "config is invalid"},
			}); err != nil {
				return err
			}
		} else {
			fmt.Fprintf(f.Writer, "✗ %s\n", path)
			fmt.Fprintf(f.Writer, "  %s\n", cfgErr.Error())
		}
		return WrapExitError(ExitFailure, "config is invalid", err)
	}

	settings, warnings := model.ApplySettings(model.DefaultMasterSettings(), cfg.Master.SettingsInput())
	result := ValidationResult{
		Valid: true,
		Path:  path,
		Master: &MasterView{
			Rate:      settings.Rate,
			Trigger:   settings.Trigger.String(),
			Mode:      string(settings.Mode),
			Action:    settings.Action.String(),
			StopAfter: settings.StopAfter,
		},
	}
	for _, w := range warnings {
		item := ValidationItem{Message: w.Error()}
		var verr *model.ValidationError
		if errors.As(w, &verr) {
			item.Field = verr.Field
		}
		result.Warnings = append(result.Warnings, item)
	}

	if opts.Format == "json" {
		return f.Success(result, "")
	}

	fmt.Fprintf(f.Writer, "✓ %s\n", path)
	for _, w := range result.Warnings {
		fmt.Fprintf(f.Writer, "  warning: %s\n", w.Message)
	}
	m := result.Master
	fmt.Fprintf(f.Writer, "  master: %s at %g/s on %s (%s)", m.Action, m.Rate, m.Trigger, m.Mode)
	if m.StopAfter > 0 {
		fmt.Fprintf(f.Writer, ", stop after %d", m.StopAfter)
	}
	fmt.Fprintln(f.Writer)
	return nil
}
