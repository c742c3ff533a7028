package store

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"strings"
	"time"

	"github.com/roach88/hotclick/internal/keys"
	"github.com/roach88/hotclick/internal/model"
)

// legacyMacro is one record of a legacy macros.json file. Durations are
// float seconds; x/y are null when unset.
type legacyMacro struct {
	Name       string   `json:"name"`
	TriggerKey string   `json:"trigger_key"`
	Button     string   `json:"button"`
	KeyToSend  string   `json:"key_to_send"`
	NClicks    *float64 `json:"n_clicks"`
	Interval   *float64 `json:"interval"`
	XCoord     *int     `json:"x_coord"`
	YCoord     *int     `json:"y_coord"`
	StartDelay float64  `json:"start_delay"`
}

// Defaults applied to missing legacy fields.
const (
	legacyDefaultInterval = 0.1
	legacyDefaultClicks   = 1
)

// ReadLegacyJSON reads a macros.json file.
//
// Missing fields take the legacy defaults (left button, one click, 0.1s
// interval). Out-of-range counts and durations are clamped the way the
// legacy loader did. A record with a missing or unparseable trigger fails
// the whole read.
func ReadLegacyJSON(path string) ([]model.Macro, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read legacy macros: %w", err)
	}
	return DecodeLegacyJSON(data)
}

// DecodeLegacyJSON is ReadLegacyJSON on an in-memory document.
func DecodeLegacyJSON(data []byte) ([]model.Macro, error) {
	var records []legacyMacro
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("decode legacy macros: %w", err)
	}

	macros := make([]model.Macro, 0, len(records))
	for i, r := range records {
		m, err := r.toMacro()
		if err != nil {
			return nil, fmt.Errorf("legacy macro %d (%q): %w", i, r.Name, err)
		}
		macros = append(macros, m)
	}
	return macros, nil
}

func (r legacyMacro) toMacro() (model.Macro, error) {
	k, err := keys.Parse(r.TriggerKey)
	if err != nil {
		return model.Macro{}, fmt.Errorf("trigger_key: %w", err)
	}

	name := r.Name
	if strings.TrimSpace(name) == "" {
		name = model.DefaultMacroName
	}

	clicks := legacyDefaultClicks
	if r.NClicks != nil {
		clicks = int(*r.NClicks)
	}
	if clicks < 1 {
		clicks = 1
	}

	interval := legacyDefaultInterval
	if r.Interval != nil {
		interval = *r.Interval
	}

	action := model.Action{Kind: model.ActionLeft}
	switch b := strings.ToLower(strings.TrimSpace(r.Button)); b {
	case "", "left":
	case "middle", "right":
		action.Kind = model.ActionKind(b)
	default:
		action = model.Keystroke(strings.ToLower(strings.TrimSpace(r.KeyToSend)))
	}
	if r.XCoord != nil && r.YCoord != nil {
		action.At = &model.Point{X: *r.XCoord, Y: *r.YCoord}
	}

	return model.Macro{
		Name:       name,
		Trigger:    k,
		Action:     action,
		Repeat:     clicks,
		Interval:   seconds(interval),
		StartDelay: seconds(r.StartDelay),
	}, nil
}

// WriteLegacyJSON writes macros in the macros.json format, indented by two
// spaces like the legacy writer.
func WriteLegacyJSON(path string, macros []model.Macro) error {
	data, err := EncodeLegacyJSON(macros)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write legacy macros: %w", err)
	}
	return nil
}

// EncodeLegacyJSON renders macros in the macros.json format.
func EncodeLegacyJSON(macros []model.Macro) ([]byte, error) {
	records := make([]legacyMacro, 0, len(macros))
	for _, m := range macros {
		clicks := float64(m.Repeat)
		interval := m.Interval.Seconds()
		r := legacyMacro{
			Name:       m.Name,
			TriggerKey: m.Trigger.String(),
			Button:     string(m.Action.Kind),
			KeyToSend:  m.Action.Key,
			NClicks:    &clicks,
			Interval:   &interval,
			StartDelay: m.StartDelay.Seconds(),
		}
		if m.Action.At != nil {
			x, y := m.Action.At.X, m.Action.At.Y
			r.XCoord, r.YCoord = &x, &y
		}
		records = append(records, r)
	}

	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode legacy macros: %w", err)
	}
	return data, nil
}

// seconds converts float seconds to a duration, clamping negatives and NaN
// to zero.
func seconds(s float64) time.Duration {
	if s <= 0 || math.IsNaN(s) {
		return 0
	}
	return time.Duration(math.Round(s * float64(time.Second)))
}
