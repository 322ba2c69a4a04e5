package harness

import (
	"bytes"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/sebdah/goldie/v2"
)

// MarshalTrace renders the result's trace as one canonical JSON document.
// Actions use the same canonical encoding as journal payloads, so a golden
// trace and a journaled session agree byte for byte.
func (r *Result) MarshalTrace(scenarioName string) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(`{"scenario_name":`)
	name, err := json.Marshal(scenarioName)
	if err != nil {
		return nil, err
	}
	buf.Write(name)
	buf.WriteString(`,"trace":[`)
	for i, a := range r.Trace {
		if i > 0 {
			buf.WriteByte(',')
		}
		b, err := a.MarshalCanonical()
		if err != nil {
			return nil, fmt.Errorf("trace[%d]: %w", i, err)
		}
		buf.Write(b)
	}
	buf.WriteString("]}")
	return buf.Bytes(), nil
}

// RunWithGolden executes a scenario and compares its trace against
// testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
func RunWithGolden(t *testing.T, s *Scenario) error {
	t.Helper()

	result, err := Run(s)
	if err != nil {
		return err
	}

	traceJSON, err := result.MarshalTrace(s.Name)
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, s.Name, traceJSON)
	return nil
}
