package harness

import (
	"encoding/json"
	"testing"

	"github.com/sebdah/goldie/v2"
)

// TraceSnapshot is the timing-independent part of a run, compared against
// golden files.
type TraceSnapshot struct {
	Scenario string   `json:"scenario"`
	Statuses []string `json:"statuses"`
	Actions  []string `json:"actions"`
	Sent     int64    `json:"sent"`
	Running  bool     `json:"running"`
}

// Snapshot extracts the golden view of result.
func Snapshot(name string, result *Result) TraceSnapshot {
	return TraceSnapshot{
		Scenario: name,
		Statuses: nonNil(result.Statuses),
		Actions:  nonNil(result.Actions),
		Sent:     result.Sent,
		Running:  result.Running,
	}
}

// MarshalSnapshot renders s as indented JSON with a trailing newline.
func MarshalSnapshot(s TraceSnapshot) ([]byte, error) {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

// RunWithGolden executes a scenario and compares its trace against
// testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
func RunWithGolden(t *testing.T, scenario *Scenario, opts ...Option) (*Result, error) {
	t.Helper()

	result, err := Run(scenario, opts...)
	if err != nil {
		return nil, err
	}
	if err := AssertGolden(t, scenario.Name, result); err != nil {
		return nil, err
	}
	return result, nil
}

// AssertGolden compares an existing result against its golden file.
func AssertGolden(t *testing.T, scenarioName string, result *Result) error {
	t.Helper()

	data, err := MarshalSnapshot(Snapshot(scenarioName, result))
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, data)
	return nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
