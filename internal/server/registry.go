package server

import (
	"context"
	"fmt"
	"sync"

	"github.com/serenqa/serentrace/internal/domain"
	"github.com/serenqa/serentrace/internal/storage"
	"github.com/serenqa/serentrace/internal/trace"
)

// Registry owns the live traces behind the HTTP surface. Traces themselves
// are single-producer values; the registry provides the mutual exclusion the
// engine leaves to its embedder. When a store is configured, trace identity
// and every appended event are written through so traces survive restarts.
type Registry struct {
	mu     sync.Mutex
	traces map[string]*trace.Trace

	// highestStage tracks the furthest stage per trace for the optional
	// strict-ordering policy.
	highestStage map[string]domain.Stage

	store             storage.Store
	enforceStageOrder bool
}

// NewRegistry creates a trace registry. store may be nil for memory-only
// operation.
func NewRegistry(store storage.Store, enforceStageOrder bool) *Registry {
	return &Registry{
		traces:            make(map[string]*trace.Trace),
		highestStage:      make(map[string]domain.Stage),
		store:             store,
		enforceStageOrder: enforceStageOrder,
	}
}

// LoadFromStore rehydrates all persisted traces into the registry.
func (r *Registry) LoadFromStore(ctx context.Context) error {
	if r.store == nil {
		return nil
	}
	records, err := r.store.ListTraces(ctx)
	if err != nil {
		return fmt.Errorf("failed to load traces: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for _, rec := range records {
		t := trace.Restore(rec.ID, rec.ContributorID, rec.Backend, rec.DiscoveryName, rec.CreatedAt, rec.Events)
		r.traces[t.ID] = t
		for _, e := range rec.Events {
			if e.Stage > r.highestStage[t.ID] {
				r.highestStage[t.ID] = e.Stage
			}
		}
	}
	return nil
}

// Create starts a new trace and persists its identity.
func (r *Registry) Create(ctx context.Context, contributorID, backend, discoveryName string) (*trace.Trace, error) {
	t := trace.New(contributorID, backend, discoveryName)

	if r.store != nil {
		rec := &storage.TraceRecord{
			ID:            t.ID,
			ContributorID: t.ContributorID,
			Backend:       t.Backend,
			DiscoveryName: t.DiscoveryName,
			CreatedAt:     t.CreatedAt,
		}
		if err := r.store.CreateTrace(ctx, rec); err != nil {
			return nil, err
		}
	}

	r.mu.Lock()
	r.traces[t.ID] = t
	r.mu.Unlock()
	return t, nil
}

// Get returns a point-in-time snapshot of the trace. The copy is taken
// under the registry lock, so readers never observe a trace mid-append and
// derived values (depth, uniqueness, provenance hash, folds) are computed
// on an immutable event sequence.
func (r *Registry) Get(id string) (*trace.Trace, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.traces[id]
	if !ok {
		return nil, domain.ErrNotFound("trace %s not found", id)
	}
	return trace.Restore(t.ID, t.ContributorID, t.Backend, t.DiscoveryName, t.CreatedAt, t.Events()), nil
}

// Append logs an event on a trace, enforcing the stage-order policy when
// enabled, and writes the event through to the store.
func (r *Registry) Append(ctx context.Context, traceID string, stage domain.Stage, agent domain.Agent, input, output, language string, serendipity, confidence float64, opts ...domain.EventOption) (domain.Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.traces[traceID]
	if !ok {
		return domain.Event{}, domain.ErrNotFound("trace %s not found", traceID)
	}

	if r.enforceStageOrder && t.Depth() > 0 && stage < r.highestStage[traceID] {
		return domain.Event{}, domain.ErrStageOrder(
			"stage %s precedes already-logged stage %s", stage, r.highestStage[traceID])
	}

	event, err := t.Prepare(stage, agent, input, output, language, serendipity, confidence, opts...)
	if err != nil {
		return domain.Event{}, err
	}

	// Persist before committing: a store failure must not leave an event in
	// memory that the store never saw.
	if r.store != nil {
		if err := r.store.AppendEvent(ctx, traceID, event); err != nil {
			return domain.Event{}, err
		}
	}

	t.Commit(event)
	if stage > r.highestStage[traceID] {
		r.highestStage[traceID] = stage
	}
	return event, nil
}
