package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/hotclick/internal/engine"
	"github.com/roach88/hotclick/internal/keys"
	"github.com/roach88/hotclick/internal/model"
	"github.com/roach88/hotclick/internal/store"
)

// MacroFlags holds the definition flags shared by macro add and edit.
type MacroFlags struct {
	Name       string
	Trigger    string
	Action     string
	Key        string
	X          int
	Y          int
	Repeat     int
	Interval   time.Duration
	StartDelay time.Duration
}

// MacroView is the JSON form of a macro.
type MacroView struct {
	Index      int    `json:"index"`
	Name       string `json:"name"`
	Trigger    string `json:"trigger"`
	Action     string `json:"action"`
	Key        string `json:"key,omitempty"`
	X          *int   `json:"x,omitempty"`
	Y          *int   `json:"y,omitempty"`
	Repeat     int    `json:"repeat"`
	Interval   string `json:"interval"`
	StartDelay string `json:"start_delay"`
	Display    string `json:"display"`
}

func macroView(i int, m model.Macro) MacroView {
	v := MacroView{
		Index:      i,
		Name:       m.Name,
		Trigger:    m.Trigger.String(),
		Action:     string(m.Action.Kind),
		Key:        m.Action.Key,
		Repeat:     m.Repeat,
		Interval:   m.Interval.String(),
		StartDelay: m.StartDelay.String(),
		Display:    m.DisplayName(),
	}
	if m.Action.At != nil {
		x, y := m.Action.At.X, m.Action.At.Y
		v.X, v.Y = &x, &y
	}
	return v
}

// NewMacroCommand creates the macro command group.
func NewMacroCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "macro",
		Short: "Manage stored macros",
		Long: `List, add, edit and remove the macros stored in the database.

Trigger keys must be unique among macros; add and edit reject a trigger
another macro already uses.

A running "hotclick run" keeps the list it loaded at startup. Changes made
here reach it on its next start and are not overwritten when it exits.`,
	}

	cmd.AddCommand(newMacroListCommand(rootOpts))
	cmd.AddCommand(newMacroAddCommand(rootOpts))
	cmd.AddCommand(newMacroEditCommand(rootOpts))
	cmd.AddCommand(newMacroRemoveCommand(rootOpts))

	return cmd
}

func newMacroListCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List macros",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withMacroEngine(opts, cmd, func(f *OutputFormatter, eng *engine.Engine) error {
				macros := eng.Macros()
				views := make([]MacroView, len(macros))
				for i, m := range macros {
					views[i] = macroView(i, m)
				}
				if opts.Format == "json" {
					return f.Success(views, "")
				}
				writeMacroTable(f.Writer, views)
				return nil
			})
		},
	}
}

func newMacroAddCommand(opts *RootOptions) *cobra.Command {
	flags := &MacroFlags{}
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a macro",
		Example: `  hotclick macro add --name burst --trigger f6 --repeat 10 --interval 50ms
  hotclick macro add --trigger q --action key --key x --start-delay 2s`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withMacroEngine(opts, cmd, func(f *OutputFormatter, eng *engine.Engine) error {
				m, err := flags.build(cmd, model.Macro{}, true)
				if err != nil {
					return f.Fail(ExitCommandError, ErrCodeMacroInvalid, "invalid macro", err)
				}
				i, err := eng.AddMacro(cmd.Context(), m)
				if err != nil {
					return f.Fail(ExitFailure, macroErrorCode(err), "macro not added", err)
				}
				return f.Success(macroView(i, eng.Macros()[i]),
					fmt.Sprintf("Added macro %d: %s", i, eng.Macros()[i].DisplayName()))
			})
		},
	}
	flags.register(cmd)
	_ = cmd.MarkFlagRequired("trigger")
	return cmd
}

func newMacroEditCommand(opts *RootOptions) *cobra.Command {
	flags := &MacroFlags{}
	cmd := &cobra.Command{
		Use:   "edit <index>",
		Short: "Edit a macro; unset flags keep their current value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			i, err := parseIndex(args[0])
			if err != nil {
				return NewExitError(ExitCommandError, err.Error())
			}
			return withMacroEngine(opts, cmd, func(f *OutputFormatter, eng *engine.Engine) error {
				macros := eng.Macros()
				if i >= len(macros) {
					err := engine.NewMacroNotFoundError(i, len(macros))
					return f.Fail(ExitFailure, string(err.Code), "macro not edited", err)
				}
				m, err := flags.build(cmd, macros[i], false)
				if err != nil {
					return f.Fail(ExitCommandError, ErrCodeMacroInvalid, "invalid macro", err)
				}
				if err := eng.EditMacro(cmd.Context(), i, m); err != nil {
					return f.Fail(ExitFailure, macroErrorCode(err), "macro not edited", err)
				}
				updated := eng.Macros()[i]
				return f.Success(macroView(i, updated),
					fmt.Sprintf("Updated macro %d: %s", i, updated.DisplayName()))
			})
		},
	}
	flags.register(cmd)
	return cmd
}

func newMacroRemoveCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:     "remove <index>",
		Aliases: []string{"rm"},
		Short:   "Remove a macro",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			i, err := parseIndex(args[0])
			if err != nil {
				return NewExitError(ExitCommandError, err.Error())
			}
			return withMacroEngine(opts, cmd, func(f *OutputFormatter, eng *engine.Engine) error {
				macros := eng.Macros()
				if err := eng.RemoveMacro(cmd.Context(), i); err != nil {
					return f.Fail(ExitFailure, macroErrorCode(err), "macro not removed", err)
				}
				return f.Success(macroView(i, macros[i]),
					fmt.Sprintf("Removed macro %d: %s", i, macros[i].DisplayName()))
			})
		},
	}
}

func (mf *MacroFlags) register(cmd *cobra.Command) {
	fl := cmd.Flags()
	fl.StringVar(&mf.Name, "name", "", "display name")
	fl.StringVar(&mf.Trigger, "trigger", "", "trigger key (e.g. f6, q, space)")
	fl.StringVar(&mf.Action, "action", "left", "left, middle, right or key")
	fl.StringVar(&mf.Key, "key", "", "keystroke to send when --action=key")
	fl.IntVar(&mf.X, "x", 0, "screen x to click at (needs --y)")
	fl.IntVar(&mf.Y, "y", 0, "screen y to click at (needs --x)")
	fl.IntVar(&mf.Repeat, "repeat", 1, "actions per firing")
	fl.DurationVar(&mf.Interval, "interval", 100*time.Millisecond, "delay between actions")
	fl.DurationVar(&mf.StartDelay, "start-delay", 0, "delay before the first action")
	fl.Bool("no-point", false, "clear a pinned point (edit)")
}

// build applies flags on top of base. For a new macro every flag applies,
// defaults included; for an edit only the flags the user set do.
func (mf *MacroFlags) build(cmd *cobra.Command, base model.Macro, fresh bool) (model.Macro, error) {
	m := base
	set := func(name string) bool { return fresh || cmd.Flags().Changed(name) }

	if set("name") {
		m.Name = mf.Name
	}
	if set("trigger") {
		k, err := keys.Parse(mf.Trigger)
		if err != nil {
			return model.Macro{}, err
		}
		m.Trigger = k
	}
	if set("action") {
		kind, err := model.ParseActionKind(mf.Action)
		if err != nil {
			return model.Macro{}, err
		}
		m.Action.Kind = kind
		if kind != model.ActionKey {
			m.Action.Key = ""
		}
	}
	if set("key") && mf.Key != "" {
		m.Action.Key = mf.Key
	}

	xSet, ySet := cmd.Flags().Changed("x"), cmd.Flags().Changed("y")
	if xSet != ySet {
		return model.Macro{}, fmt.Errorf("--x and --y must be given together")
	}
	if xSet {
		m.Action = m.Action.WithPoint(mf.X, mf.Y)
	}
	if clear, _ := cmd.Flags().GetBool("no-point"); clear {
		m.Action.At = nil
	}

	if set("repeat") {
		m.Repeat = mf.Repeat
	}
	if set("interval") {
		m.Interval = mf.Interval
	}
	if set("start-delay") {
		m.StartDelay = mf.StartDelay
	}
	return m, nil
}

// withMacroEngine opens the store, loads an engine without input and runs fn.
// The engine persists every edit itself.
func withMacroEngine(opts *RootOptions, cmd *cobra.Command, fn func(*OutputFormatter, *engine.Engine) error) error {
	f := newFormatter(cmd, opts)

	cfg, err := loadConfig(opts)
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodeConfig, "failed to load config", err)
	}
	dbPath := databasePath(opts, cfg)
	f.VerboseLog("Using database %s", dbPath)

	st, err := store.Open(dbPath)
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodeStore, "failed to open database", err)
	}
	defer st.Close()

	log := newLogger(f.GetErrWriter(), opts, nil)
	if !opts.Verbose {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
		cmd.SetContext(ctx)
	}

	eng := engine.New(nil, nil, st, engine.WithLogger(log))
	if err := eng.Load(ctx); err != nil {
		return f.Fail(ExitFailure, errorCode(err), "stored macros could not be loaded", err)
	}

	runErr := fn(f, eng)
	if err := eng.Shutdown(ctx); err != nil && runErr == nil {
		return f.Fail(ExitFailure, errorCode(err), "failed to save macros", err)
	}
	return runErr
}

func macroErrorCode(err error) string {
	switch {
	case engine.IsDuplicateTrigger(err), engine.IsMacroNotFound(err), engine.IsPersistenceError(err):
		return errorCode(err)
	default:
		return ErrCodeMacroInvalid
	}
}

func parseIndex(s string) (int, error) {
	i, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || i < 0 {
		return 0, fmt.Errorf("invalid macro index %q", s)
	}
	return i, nil
}

func writeMacroTable(w io.Writer, views []MacroView) {
	if len(views) == 0 {
		fmt.Fprintln(w, "No macros.")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tMACRO\tACTION\tREPEAT\tINTERVAL\tDELAY")
	for _, v := range views {
		action := v.Action
		if v.Key != "" {
			action += " " + v.Key
		}
		if v.X != nil {
			action += fmt.Sprintf(" @%d,%d", *v.X, *v.Y)
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%d\t%s\t%s\n", v.Index, v.Display, action, v.Repeat, v.Interval, v.StartDelay)
	}
	tw.Flush()
}
