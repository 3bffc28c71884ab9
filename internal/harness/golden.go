package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/catalog/internal/value"
)

// Snapshot renders the deterministic part of a result as canonical JSON:
// the trace and a summary of every bound entity. Output ends in a newline.
func Snapshot(scenarioName string, result *Result) []byte {
	trace := make(value.Array, len(result.Trace))
	for i, e := range result.Trace {
		trace[i] = traceValue(e)
	}

	entities := make(value.Object, len(result.Entities))
	for key, v := range result.Entities {
		entities[key] = summarize(v)
	}

	snap := value.Object{
		"scenario": value.String(scenarioName),
		"trace":    trace,
		"entities": entities,
	}
	return append(value.Canonical(snap), '\n')
}

func traceValue(e TraceEvent) value.Object {
	obj := value.Object{
		"step": value.Int(e.Step),
		"op":   value.String(e.Op),
	}
	if e.Revision != 0 {
		obj["revision"] = value.Int(e.Revision)
	}
	if len(e.Keys) > 0 {
		keys := make(value.Object, len(e.Keys))
		for k, bbid := range e.Keys {
			keys[k] = value.String(bbid)
		}
		obj["keys"] = keys
	}
	if len(e.Touched) > 0 {
		touched := make(value.Array, len(e.Touched))
		for i, bbid := range e.Touched {
			touched[i] = value.String(bbid)
		}
		obj["touched"] = touched
	}
	if e.Error != "" {
		obj["error"] = value.String(e.Error)
	}
	return obj
}

// RunWithGolden executes a scenario and compares its snapshot against a
// golden file stored in testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns error if scenario execution fails.
// Test failure (via goldie) occurs if the snapshot doesn't match.
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}
	AssertGolden(t, scenario.Name, result)
	return result, nil
}

// AssertGolden compares the given result's snapshot against a golden file
// without re-running the scenario.
func AssertGolden(t *testing.T, scenarioName string, result *Result) {
	t.Helper()

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, Snapshot(scenarioName, result))
}
