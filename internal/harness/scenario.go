package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/roach88/hotclick/internal/keys"
	"github.com/roach88/hotclick/internal/model"
)

// Scenario drives an engine through a sequence of key events and checks the
// outcome.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Master configures the master loop. Unset fields keep their defaults.
	Master MasterSpec `yaml:"master,omitempty"`

	// Macros are loaded into the engine's store before the first step.
	Macros []MacroSpec `yaml:"macros,omitempty"`

	// Steps run in order.
	Steps []Step `yaml:"steps"`

	// Expect is checked after the last step.
	Expect Expect `yaml:"expect"`

	// Golden compares the status and action trace against
	// testdata/golden/{name}.golden. Only timing-independent scenarios
	// should set it.
	Golden bool `yaml:"golden,omitempty"`
}

// MasterSpec mirrors the master section of the config file.
type MasterSpec struct {
	Rate      float64 `yaml:"rate"`
	Trigger   string  `yaml:"trigger"`
	Mode      string  `yaml:"mode"`
	Action    string  `yaml:"action"`
	Key       string  `yaml:"key"`
	X         *int    `yaml:"x"`
	Y         *int    `yaml:"y"`
	StopAfter int64   `yaml:"stop_after"`
}

// MacroSpec is a macro definition as written in a scenario.
type MacroSpec struct {
	Name       string   `yaml:"name"`
	Trigger    string   `yaml:"trigger"`
	Action     string   `yaml:"action"`
	Key        string   `yaml:"key"`
	X          *int     `yaml:"x"`
	Y          *int     `yaml:"y"`
	Repeat     int      `yaml:"repeat"`
	Interval   Duration `yaml:"interval"`
	StartDelay Duration `yaml:"start_delay"`
}

// Step is one scenario action. Exactly one field must be set.
type Step struct {
	// Press sends a key-down for the named key.
	Press string `yaml:"press,omitempty"`

	// Release sends a key-up for the named key.
	Release string `yaml:"release,omitempty"`

	// Wait sleeps for the given duration.
	Wait Duration `yaml:"wait,omitempty"`

	// Stop calls StopImmediately.
	Stop bool `yaml:"stop,omitempty"`

	// Settle waits until the master loop and every macro run have ended.
	Settle bool `yaml:"settle,omitempty"`
}

// Kind names the populated field.
func (s Step) Kind() string {
	switch {
	case s.Press != "":
		return StepPress
	case s.Release != "":
		return StepRelease
	case s.Wait > 0:
		return StepWait
	case s.Stop:
		return StepStop
	case s.Settle:
		return StepSettle
	}
	return ""
}

// Step kinds.
const (
	StepPress   = "press"
	StepRelease = "release"
	StepWait    = "wait"
	StepStop    = "stop"
	StepSettle  = "settle"
)

// Expect holds the end-state checks. Nil fields are not checked.
type Expect struct {
	Sent        *int64   `yaml:"sent,omitempty"`
	MinSent     *int64   `yaml:"min_sent,omitempty"`
	FinalStatus *string  `yaml:"final_status,omitempty"`
	Running     *bool    `yaml:"running,omitempty"`
	Actions     *int     `yaml:"actions,omitempty"`
	Statuses    []string `yaml:"statuses,omitempty"`
	LoadFailure *bool    `yaml:"load_failure,omitempty"`
}

// Duration is a time.Duration written as a Go duration string ("150ms").
type Duration time.Duration

// UnmarshalYAML parses a duration string.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("line %d: %w", node.Line, err)
	}
	*d = Duration(v)
	return nil
}

// MarshalYAML writes the duration string.
func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// Std returns the standard library duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// SettingsInput converts the master section.
func (m MasterSpec) SettingsInput() model.SettingsInput {
	return model.SettingsInput{
		Rate:      m.Rate,
		Trigger:   m.Trigger,
		Mode:      m.Mode,
		Action:    m.Action,
		Key:       m.Key,
		X:         m.X,
		Y:         m.Y,
		StopAfter: m.StopAfter,
	}
}

// Settings resolves the master section against the defaults. Any field the
// engine would coerce is an error here.
func (m MasterSpec) Settings() (model.MasterSettings, error) {
	in := m.SettingsInput()
	if in.Rate == 0 {
		in.Rate = model.DefaultMasterSettings().Rate
	}
	s, warnings := model.ApplySettings(model.DefaultMasterSettings(), in)
	if len(warnings) > 0 {
		return s, warnings[0]
	}
	return s, nil
}

// Macro builds and validates the definition.
func (m MacroSpec) Macro() (model.Macro, error) {
	trigger, err := keys.Parse(m.Trigger)
	if err != nil {
		return model.Macro{}, err
	}
	kindName := m.Action
	if kindName == "" {
		kindName = string(model.ActionLeft)
	}
	kind, err := model.ParseActionKind(kindName)
	if err != nil {
		return model.Macro{}, err
	}

	action := model.Action{Kind: kind, Key: m.Key}
	if m.X != nil && m.Y != nil {
		action = action.WithPoint(*m.X, *m.Y)
	}

	repeat := m.Repeat
	if repeat == 0 {
		repeat = 1
	}
	macro := model.Macro{
		Name:       m.Name,
		Trigger:    trigger,
		Action:     action,
		Repeat:     repeat,
		Interval:   m.Interval.Std(),
		StartDelay: m.StartDelay.Std(),
	}
	if err := macro.Validate(); err != nil {
		return model.Macro{}, err
	}
	return macro, nil
}

// LoadScenario reads and parses a scenario YAML file.
// Unknown fields are rejected.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses and validates scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// LoadScenarios loads every *.yaml file in dir, sorted by file name.
func LoadScenarios(dir string) ([]*Scenario, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*.yaml"))
	if err != nil {
		return nil, err
	}
	sort.Strings(paths)

	scenarios := make([]*Scenario, 0, len(paths))
	for _, p := range paths {
		s, err := LoadScenario(p)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", filepath.Base(p), err)
		}
		scenarios = append(scenarios, s)
	}
	return scenarios, nil
}

func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}

	if _, err := s.Master.Settings(); err != nil {
		return fmt.Errorf("master: %w", err)
	}

	// Duplicate triggers are allowed here so that load failures can be
	// exercised.
	for i, m := range s.Macros {
		if _, err := m.Macro(); err != nil {
			return fmt.Errorf("macros[%d]: %w", i, err)
		}
	}

	for i, step := range s.Steps {
		if err := validateStep(i, step); err != nil {
			return err
		}
	}

	if s.Expect.Sent != nil && s.Expect.MinSent != nil {
		return fmt.Errorf("expect: sent and min_sent are mutually exclusive")
	}
	return nil
}

func validateStep(i int, step Step) error {
	set := 0
	if step.Press != "" {
		set++
		if !keys.Valid(step.Press) {
			return fmt.Errorf("steps[%d]: invalid key %q", i, step.Press)
		}
	}
	if step.Release != "" {
		set++
		if !keys.Valid(step.Release) {
			return fmt.Errorf("steps[%d]: invalid key %q", i, step.Release)
		}
	}
	if step.Wait < 0 {
		return fmt.Errorf("steps[%d]: wait must be non-negative", i)
	}
	if step.Wait > 0 {
		set++
	}
	if step.Stop {
		set++
	}
	if step.Settle {
		set++
	}

	switch set {
	case 0:
		return fmt.Errorf("steps[%d]: one of press, release, wait, stop, settle is required", i)
	case 1:
		return nil
	default:
		return fmt.Errorf("steps[%d]: only one of press, release, wait, stop, settle may be set", i)
	}
}
