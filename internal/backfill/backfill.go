// Package backfill completes a partially loaded store by fetching the records
// its batches reference but do not contain.
package backfill

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/conduit-lang/relstore/internal/orm/store"
	"github.com/conduit-lang/relstore/internal/source"
)

// DefaultMaxRounds bounds the fetch rounds of a Backfiller with no MaxRounds
const DefaultMaxRounds = 10

// ErrNoSource is returned by Run when the Backfiller has no source
var ErrNoSource = errors.New("backfill requires a source")

// Backfiller loads a batch into Store and then fetches missing records from
// Source until every reference resolves, a round makes no progress, or
// MaxRounds rounds have run.
type Backfiller struct {
	Store     *store.Store
	Source    source.Source
	MaxRounds int
	Logger    *zap.Logger
}

// Report describes a back-fill run
type Report struct {
	// Rounds counts the fetch rounds after the initial load
	Rounds int
	// Loaded counts the records loaded per model, initial batch included
	Loaded map[string]int
	// Unresolved holds the ids still missing when the run stopped
	Unresolved map[string][]any
}

// UnresolvedCount returns the number of unresolved ids over all models
func (r *Report) UnresolvedCount() int {
	n := 0
	for _, ids := range r.Unresolved {
		n += len(ids)
	}
	return n
}

// Run loads initial, restricted to allowlist when given, then back-fills.
// Fetched records are loaded whatever their model.
func (b *Backfiller) Run(ctx context.Context, initial store.RawData, allowlist ...string) (*Report, error) {
	if b.Source == nil {
		return nil, ErrNoSource
	}
	logger := b.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	maxRounds := b.MaxRounds
	if maxRounds <= 0 {
		maxRounds = DefaultMaxRounds
	}

	report := &Report{
		Loaded:     make(map[string]int),
		Unresolved: make(map[string][]any),
	}

	result, err := b.Store.LoadData(initial, allowlist...)
	if err != nil {
		return report, fmt.Errorf("initial load: %w", err)
	}
	count(report, result)
	missing := result.Missing

	// ids asked for once are never asked for again
	requested := make(map[string]map[any]bool)

	for len(missing) > 0 && report.Rounds < maxRounds {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		fetched := make(store.RawData)
		for _, model := range sortedModels(missing) {
			ids := b.fresh(requested, model, missing[model])
			if len(ids) == 0 {
				continue
			}
			records, err := b.Source.Fetch(ctx, model, ids)
			if err != nil {
				return report, fmt.Errorf("fetching %s: %w", model, err)
			}
			if len(records) > 0 {
				fetched[model] = records
			}
		}
		if len(fetched) == 0 {
			break
		}

		report.Rounds++
		result, err := b.Store.LoadData(fetched)
		if err != nil {
			return report, fmt.Errorf("round %d: %w", report.Rounds, err)
		}
		count(report, result)
		logger.Info("backfill round",
			zap.Int("round", report.Rounds),
			zap.Int("fetched_models", len(fetched)),
			zap.Int("missing", result.MissingCount()),
		)
		missing = merge(b.Store, missing, result.Missing)
	}

	for _, model := range sortedModels(missing) {
		for _, id := range missing[model] {
			if b.Store.Read(model, id) == nil {
				report.Unresolved[model] = append(report.Unresolved[model], id)
			}
		}
	}
	if n := report.UnresolvedCount(); n > 0 {
		logger.Warn("backfill left unresolved references",
			zap.Int("rounds", report.Rounds),
			zap.Int("unresolved", n),
		)
	}
	return report, nil
}

// fresh filters ids down to the ones not requested yet and marks them
func (b *Backfiller) fresh(requested map[string]map[any]bool, model string, ids []any) []any {
	seen := requested[model]
	if seen == nil {
		seen = make(map[any]bool)
		requested[model] = seen
	}
	var out []any
	for _, id := range ids {
		if seen[id] || b.Store.Read(model, id) != nil {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}

// merge keeps the previous ids that are still not loaded and appends the new
// ones
func merge(s *store.Store, previous, next map[string][]any) map[string][]any {
	out := make(map[string][]any)
	seen := make(map[string]map[any]bool)
	add := func(model string, id any) {
		if s.Read(model, id) != nil {
			return
		}
		if seen[model] == nil {
			seen[model] = make(map[any]bool)
		}
		if seen[model][id] {
			return
		}
		seen[model][id] = true
		out[model] = append(out[model], id)
	}
	for model, ids := range previous {
		for _, id := range ids {
			add(model, id)
		}
	}
	for model, ids := range next {
		for _, id := range ids {
			add(model, id)
		}
	}
	return out
}

func count(report *Report, result *store.LoadResult) {
	for model, records := range result.Results {
		report.Loaded[model] += len(records)
	}
}

func sortedModels(m map[string][]any) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
