package harness

import (
	"context"
	"errors"
	"fmt"

	"github.com/roach88/cloudrec/internal/catalog"
	"github.com/roach88/cloudrec/internal/config"
	"github.com/roach88/cloudrec/internal/export"
	"github.com/roach88/cloudrec/internal/mapper"
	"github.com/roach88/cloudrec/internal/store"
)

// Run executes a scenario and returns the result.
//
// Execution flow:
//  1. Load and compile the object schemas from scenario.Specs
//  2. Build the declared object graph
//  3. Convert each target object, collecting records and defects
//  4. If the scenario exports, run one batch through a fresh in-memory store
//  5. Evaluate assertions
//
// Errors are returned for broken scenarios (bad specs, bad values, unknown
// targets); assertion failures are reported in the Result.
func Run(scenario *Scenario) (*Result, error) {
	ctx := context.Background()

	loaded, errs := catalog.LoadFiles(scenario.Specs, catalog.LoadModeCollectAll)
	if len(errs) > 0 {
		return nil, fmt.Errorf("failed to load specs: %w", errors.Join(errs...))
	}
	cat := loaded.Catalog

	g, err := buildGraph(cat, scenario.Objects, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build objects: %w", err)
	}

	cfg := config.Config{
		MemberPolicy:  scenario.MemberPolicy,
		ReferenceZone: scenario.ReferenceZone,
	}
	opts, err := cfg.MapperOptions()
	if err != nil {
		return nil, fmt.Errorf("invalid scenario options: %w", err)
	}
	m := mapper.New(cat, scenario.Owner, opts...)

	targets := scenario.Convert
	if len(targets) == 0 {
		targets = g.order
	}

	result := NewResult()
	for _, target := range targets {
		obj, ok := g.objects[target]
		if !ok {
			return nil, fmt.Errorf("convert: undeclared object %q", target)
		}
		rec, err := m.Record(obj)
		if d, ok := mapper.AsDefect(err); ok {
			result.AddDefect(target, d)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("convert %s: %w", target, err)
		}
		result.AddRecord(target, rec)
	}

	if scenario.Export {
		sum, err := runExport(ctx, scenario, m, g)
		if err != nil {
			return nil, fmt.Errorf("failed to export: %w", err)
		}
		result.Export = sum
	}

	for _, msg := range EvaluateAssertions(result, scenario.Assertions) {
		result.AddError(msg)
	}

	return result, nil
}

const defaultBatchID = "test-batch-default"

// runExport writes every object with a record id to a fresh in-memory
// store and exports it in one batch.
func runExport(ctx context.Context, scenario *Scenario, m *mapper.Mapper, g *graph) (*export.Summary, error) {
	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	for _, id := range g.order {
		obj := g.objects[id]
		if _, err := m.RecordID(obj); err != nil {
			continue // defects are reported by conversion
		}
		if err := st.PutObject(ctx, m.Catalog(), obj); err != nil {
			return nil, fmt.Errorf("store %s: %w", id, err)
		}
	}

	batchID := scenario.BatchID
	if batchID == "" {
		batchID = defaultBatchID
	}
	exp := export.New(st, m,
		export.WithGenerator(export.NewFixedGenerator(batchID)),
		export.WithClock(export.NewClock()),
	)
	return exp.Run(ctx)
}
