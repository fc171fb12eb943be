package store

import (
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/conduit-lang/relstore/internal/orm/schema"
)

// LoadResult is the outcome of LoadData
type LoadResult struct {
	// Results holds the records touched by the batch, grouped by model
	Results map[string][]*Record
	// Missing holds the ids referenced by the batch that are not loaded yet,
	// grouped by model, in discovery order
	Missing map[string][]any
}

// MissingCount returns the number of missing ids over all models
func (r *LoadResult) MissingCount() int {
	n := 0
	for _, ids := range r.Missing {
		n += len(ids)
	}
	return n
}

// batch accumulates per-model bookkeeping of one LoadData call
type batch struct {
	created map[string][]*Record
	updated map[string][]*Record
	seen    map[recordKey]bool
	missing map[recordKey]bool
	result  *LoadResult

	// refreshed holds the records that existed before their raw entry was read
	refreshed map[*Record]bool
}

func (b *batch) addMissing(model string, id any) {
	key := recordKey{model: model, id: id}
	if b.missing[key] {
		return
	}
	b.missing[key] = true
	b.result.Missing[model] = append(b.result.Missing[model], id)
}

// LoadData ingests raw records in two phases. The first creates or refreshes
// every record with its scalar fields only. The second links relational
// fields across the whole batch; links to records not loaded yet are kept
// pending and resolved when a later batch loads their target, and the target
// ids are reported in LoadResult.Missing unless their model is exempt.
//
// When allowlist is not empty only the models it names are loaded. Each model
// gets one create event and one update event once both phases are done.
func (s *Store) LoadData(raw RawData, allowlist ...string) (*LoadResult, error) {
	b := &batch{
		created:   make(map[string][]*Record),
		updated:   make(map[string][]*Record),
		seen:      make(map[recordKey]bool),
		missing:   make(map[recordKey]bool),
		refreshed: make(map[*Record]bool),
		result: &LoadResult{
			Results: make(map[string][]*Record),
			Missing: make(map[string][]any),
		},
	}

	models := s.targetModels(raw, allowlist)

	for _, name := range models {
		if err := s.populateBatch(b, s.models[name], raw[name]); err != nil {
			return b.result, err
		}
	}
	for _, name := range models {
		s.linkBatch(b, s.models[name], raw[name])
	}

	for _, name := range models {
		m := s.models[name]
		m.trigger(EventCreate, b.created[name], nil)
		m.trigger(EventUpdate, b.updated[name], nil)
	}

	s.logger.Info("loaded batch",
		zap.Int("models", len(models)),
		zap.Int("missing", b.result.MissingCount()),
		zap.Int("pending_links", s.PendingLinks()),
	)
	return b.result, nil
}

// targetModels returns the models of raw to load, in lexical order
func (s *Store) targetModels(raw RawData, allowlist []string) []string {
	allowed := make(map[string]bool, len(allowlist))
	for _, name := range allowlist {
		allowed[name] = true
	}

	var models []string
	for name := range raw {
		if len(allowed) > 0 && !allowed[name] {
			continue
		}
		if _, ok := s.models[name]; !ok {
			s.logger.Warn("skipping raw data of unknown model", zap.String("model", name))
			continue
		}
		models = append(models, name)
	}
	sort.Strings(models)
	return models
}

func rawID(m *Model, values Values) (any, error) {
	id, ok := NormalizeID(values["id"])
	if !ok {
		return nil, fmt.Errorf("%w: raw %s record has id %v", ErrInvalidID, m.name, values["id"])
	}
	return id, nil
}

// populateBatch is the first phase of LoadData for one model
func (s *Store) populateBatch(b *batch, m *Model, records []Values) error {
	for _, values := range records {
		id, err := rawID(m, values)
		if err != nil {
			return err
		}
		snapshot := cloneValues(values)
		s.raw[m.name][id] = snapshot

		r, exists := m.records[id]
		if exists {
			if err := m.refresh(r, snapshot); err != nil {
				return err
			}
			b.refreshed[r] = true
		} else {
			r, err = m.create(values, createOptions{ignoreRelations: true})
			if err != nil {
				return err
			}
		}

		key := recordKey{model: m.name, id: id}
		if b.seen[key] {
			continue
		}
		b.seen[key] = true
		b.result.Results[m.name] = append(b.result.Results[m.name], r)
		if exists {
			b.updated[m.name] = append(b.updated[m.name], r)
		} else {
			b.created[m.name] = append(b.created[m.name], r)
		}
	}
	return nil
}

// refresh re-applies a raw snapshot to an existing record: scalar fields are
// reassigned, indexes rebuilt and hooks run again. Relations are left to the
// link phase.
func (m *Model) refresh(r *Record, snapshot Values) error {
	r.raw = snapshot
	for _, f := range m.fields {
		if f.Name == "id" || f.Type.IsRelational() {
			continue
		}
		if v, ok := snapshot[f.Name]; ok {
			m.setScalar(r, f.Name, v)
		}
	}
	m.unregisterScalars(r)
	m.register(r, snapshot)
	return m.store.hooks.Run(m.name, r)
}

// linkBatch is the second phase of LoadData for one model
func (s *Store) linkBatch(b *batch, m *Model, records []Values) {
	for _, values := range records {
		id, err := rawID(m, values)
		if err != nil {
			continue
		}
		r := m.records[id]
		if r == nil {
			continue
		}

		s.resolvePending(r)

		for _, f := range m.fields {
			if !f.Type.IsRelational() {
				continue
			}
			value, ok := values[f.Name]
			if !ok {
				continue
			}
			comodel, ok := s.models[f.Relation]
			if !ok {
				continue
			}

			if f.Type.IsX2Many() {
				for _, targetID := range linkedIDs(value) {
					s.linkOrDefer(b, f, r, comodel, targetID)
				}
				continue
			}

			// a link deferred by an earlier load of r is superseded
			if b.refreshed[r] {
				s.dropPendingWhere(func(link pendingLink) bool {
					return link.owner == r && link.field == f
				})
			}
			targetID, ok := many2oneID(value)
			if !ok || isEmptyRef(value) {
				if current := r.refs[f.Name]; current != nil {
					_ = s.disconnect(f, r, current)
				}
				continue
			}
			if current := r.refs[f.Name]; current != nil && current.id != targetID {
				_ = s.disconnect(f, r, current)
			}
			s.linkOrDefer(b, f, r, comodel, targetID)
		}
	}
}

func (s *Store) linkOrDefer(b *batch, f *schema.Field, owner *Record, comodel *Model, targetID any) {
	if target, ok := comodel.records[targetID]; ok {
		s.connect(f, owner, target)
		return
	}
	if s.exempt[comodel.name] {
		return
	}

	b.addMissing(comodel.name, targetID)
	key := recordKey{model: comodel.name, id: targetID}
	for _, link := range s.pending[key] {
		if link.owner == owner && link.field == f {
			return
		}
	}
	s.pending[key] = append(s.pending[key], pendingLink{owner: owner, field: f})
	s.logger.Debug("deferred link",
		zap.String("owner", owner.String()),
		zap.String("field", f.Name),
		zap.String("target_model", comodel.name),
		zap.Any("target_id", targetID),
	)
}

// resolvePending connects the links that were waiting for r
func (s *Store) resolvePending(r *Record) {
	key := recordKey{model: r.model.name, id: r.id}
	links, ok := s.pending[key]
	if !ok {
		return
	}
	delete(s.pending, key)
	for _, link := range links {
		if !link.owner.live {
			continue
		}
		s.connect(link.field, link.owner, r)
	}
	s.logger.Debug("resolved deferred links",
		zap.String("record", r.String()),
		zap.Int("links", len(links)),
	)
}

// dropPending forgets the links owned by a deleted record
func (s *Store) dropPending(r *Record) {
	s.dropPendingWhere(func(link pendingLink) bool {
		return link.owner == r
	})
}

func (s *Store) dropPendingWhere(match func(pendingLink) bool) {
	for key, links := range s.pending {
		kept := links[:0]
		for _, link := range links {
			if !match(link) {
				kept = append(kept, link)
			}
		}
		if len(kept) == 0 {
			delete(s.pending, key)
		} else {
			s.pending[key] = kept
		}
	}
}
