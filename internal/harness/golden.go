package harness

import (
	"sort"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/cloudrec/internal/ir"
)

// Snapshot captures the converted records of a scenario execution.
// It serializes to canonical JSON for deterministic comparison.
type Snapshot struct {
	ScenarioName string
	Records      []RecordResult
	Defects      map[string]string // target -> defect code
	Export       *ExportSnapshot
}

// ExportSnapshot is the stable part of an export summary. The schema hash
// is left out so golden files survive unrelated spec edits.
type ExportSnapshot struct {
	BatchID   string
	Converted int
	Changed   int
	Unchanged int
	PerType   map[string]int
}

// NewSnapshot builds the snapshot of a result.
func NewSnapshot(name string, result *Result) *Snapshot {
	s := &Snapshot{
		ScenarioName: name,
		Records:      result.Records,
		Defects:      make(map[string]string, len(result.Defects)),
	}
	for target, d := range result.Defects {
		s.Defects[target] = string(d.Code)
	}
	if result.Export != nil {
		s.Export = &ExportSnapshot{
			BatchID:   result.Export.BatchID,
			Converted: result.Export.Converted,
			Changed:   result.Export.Changed,
			Unchanged: result.Export.Unchanged,
			PerType:   result.Export.PerType,
		}
	}
	return s
}

// MarshalCanonical renders the snapshot as canonical JSON.
func (s *Snapshot) MarshalCanonical() ([]byte, error) {
	records := make(ir.IRArray, len(s.Records))
	for i, rr := range s.Records {
		encoded, err := ir.EncodeRecord(rr.Record)
		if err != nil {
			return nil, err
		}
		records[i] = ir.IRObject{
			"target": ir.IRString(rr.Target),
			"record": encoded,
		}
	}

	targets := make([]string, 0, len(s.Defects))
	for target := range s.Defects {
		targets = append(targets, target)
	}
	sort.Strings(targets)
	defects := make(ir.IRObject, len(targets))
	for _, target := range targets {
		defects[target] = ir.IRString(s.Defects[target])
	}

	out := ir.IRObject{
		"scenario_name": ir.IRString(s.ScenarioName),
		"records":       records,
		"defects":       defects,
	}
	if s.Export != nil {
		perType := make(ir.IRObject, len(s.Export.PerType))
		for t, n := range s.Export.PerType {
			perType[t] = ir.IRInt(n)
		}
		out["export"] = ir.IRObject{
			"batch_id":  ir.IRString(s.Export.BatchID),
			"converted": ir.IRInt(s.Export.Converted),
			"changed":   ir.IRInt(s.Export.Changed),
			"unchanged": ir.IRInt(s.Export.Unchanged),
			"per_type":  perType,
		}
	}
	return ir.MarshalCanonical(out)
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

	if err := AssertGolden(t, scenario.Name, result); err != nil {
		return nil, err
	}
	return result, nil
}

// AssertGolden compares an existing result against a golden file without
// re-running the scenario.
func AssertGolden(t *testing.T, scenarioName string, result *Result) error {
	t.Helper()

	data, err := NewSnapshot(scenarioName, result).MarshalCanonical()
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
