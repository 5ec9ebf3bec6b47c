package harness

import (
	"encoding/json"
	"testing"

	"github.com/sebdah/goldie/v2"
)

// Snapshot is the golden form of a scenario run. Errors and pass status
// are left out so a golden file only records behaviour.
type Snapshot struct {
	Scenario       string                  `json:"scenario"`
	Trace          []TraceEvent            `json:"trace"`
	State          string                  `json:"state"`
	Protected      bool                    `json:"protected"`
	DecodeFailures int                     `json:"decode_failures"`
	Cells          map[string]CellSnapshot `json:"cells"`
	Upserted       []string                `json:"upserted"`
	Deleted        []string                `json:"deleted"`
}

// NewSnapshot builds the golden snapshot for a result.
func NewSnapshot(name string, r *Result) Snapshot {
	return Snapshot{
		Scenario:       name,
		Trace:          r.Trace,
		State:          r.State,
		Protected:      r.Protected,
		DecodeFailures: r.DecodeFailures,
		Cells:          r.Cells,
		Upserted:       r.Upserted,
		Deleted:        r.Deleted,
	}
}

// MarshalSnapshot renders a snapshot as indented JSON. Map keys are
// sorted, so output is stable.
func MarshalSnapshot(s Snapshot) ([]byte, error) {
	return json.MarshalIndent(s, "", "  ")
}

// RunGolden runs a scenario and compares its snapshot against
// testdata/golden/<scenario>.golden. Use -update to regenerate.
func RunGolden(t *testing.T, scenario *Scenario) error {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return err
	}
	return AssertGolden(t, scenario.Name, result)
}

// AssertGolden compares an existing result against a golden file.
func AssertGolden(t *testing.T, name string, result *Result) error {
	t.Helper()

	data, err := MarshalSnapshot(NewSnapshot(name, result))
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, data)

	return nil
}
