package model

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/roach88/hotclick/internal/keys"
)

// MinRate is the floor applied to non-positive or non-finite master rates.
const MinRate = 0.01

// Mode selects how the master trigger drives the master loop.
type Mode string

const (
	// ModePress runs the master loop only while the trigger is held.
	ModePress Mode = "press"
	// ModeToggle flips the master loop on each trigger press.
	ModeToggle Mode = "toggle"
)

// ParseMode parses a mode name.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(s))); m {
	case ModePress, ModeToggle:
		return m, nil
	}
	return "", fmt.Errorf("unknown mode %q (want press or toggle)", s)
}

// MasterSettings configures the continuous master stream.
type MasterSettings struct {
	Rate      float64 // actions per second
	Trigger   keys.Key
	Mode      Mode
	Action    Action
	StopAfter int64 // total action cap shared with macros; 0 = unbounded
}

// DefaultMasterSettings returns the settings used before any update: one
// left click per second on F3, press mode, no cap.
func DefaultMasterSettings() MasterSettings {
	return MasterSettings{
		Rate:    1,
		Trigger: keys.MustParse("f3"),
		Mode:    ModePress,
		Action:  Click(ActionLeft),
	}
}

// Interval returns the delay between two master actions.
func (s MasterSettings) Interval() time.Duration {
	rate := s.Rate
	if !validRate(rate) || rate < MinRate {
		rate = MinRate
	}
	return time.Duration(float64(time.Second) / rate)
}

// SettingsInput carries raw settings from a config file, flags or an API
// call. Every field is applied independently by ApplySettings.
type SettingsInput struct {
	Rate      float64
	Trigger   string
	Mode      string
	Action    string
	Key       string
	X         *int
	Y         *int
	StopAfter int64
}

// ApplySettings derives new settings from prev and in. It never fails as a
// whole: invalid fields fall back to a safe value and are reported in the
// returned slice.
//
//   - Rate <= 0, NaN or infinite becomes MinRate.
//   - An unparseable Trigger keeps prev.Trigger.
//   - An unknown Mode keeps prev.Mode.
//   - An unknown Action becomes left.
//   - StopAfter < 0 becomes 0.
//   - A fixed point is used only when both X and Y are set.
func ApplySettings(prev MasterSettings, in SettingsInput) (MasterSettings, []error) {
	var warnings []error
	next := prev

	next.Rate = in.Rate
	if !validRate(next.Rate) {
		warnings = append(warnings, invalidNumber("rate", "must be a positive finite number, got %g; using %g", in.Rate, MinRate))
		next.Rate = MinRate
	}

	if strings.TrimSpace(in.Trigger) != "" {
		k, err := keys.Parse(in.Trigger)
		if err != nil {
			warnings = append(warnings, invalidTrigger("trigger", err))
		} else {
			next.Trigger = k
		}
	}

	if strings.TrimSpace(in.Mode) != "" {
		m, err := ParseMode(in.Mode)
		if err != nil {
			warnings = append(warnings, err)
		} else {
			next.Mode = m
		}
	}

	kind, err := ParseActionKind(in.Action)
	if err != nil {
		if strings.TrimSpace(in.Action) != "" {
			warnings = append(warnings, err)
		}
		kind = ActionLeft
	}
	next.Action = Action{Kind: kind}
	if kind == ActionKey {
		next.Action.Key = strings.ToLower(strings.TrimSpace(in.Key))
	}
	if in.X != nil && in.Y != nil {
		next.Action.At = &Point{X: *in.X, Y: *in.Y}
	}

	next.StopAfter = in.StopAfter
	if next.StopAfter < 0 {
		warnings = append(warnings, invalidNumber("stop_after", "must be non-negative, got %d; using 0", in.StopAfter))
		next.StopAfter = 0
	}

	return next, warnings
}

func validRate(r float64) bool {
	return r > 0 && !math.IsNaN(r) && !math.IsInf(r, 0)
}
