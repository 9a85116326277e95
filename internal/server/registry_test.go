package server

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/serenqa/serentrace/internal/domain"
	"github.com/serenqa/serentrace/internal/leaderboard"
	"github.com/serenqa/serentrace/internal/memory"
	"github.com/serenqa/serentrace/internal/storage"
)

func TestRegistryGet_Snapshot(t *testing.T) {
	ctx := context.Background()
	reg := NewRegistry(nil, false)

	tr, err := reg.Create(ctx, "researcher1", "backend", "Discovery")
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if _, err := reg.Append(ctx, tr.ID, domain.StageExploration, domain.AgentExplorer,
		"in", "out", "en", 0.5, 0.5); err != nil {
		t.Fatalf("Append() error = %v", err)
	}

	snapshot, err := reg.Get(tr.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	hashBefore := snapshot.ProvenanceHash()

	if _, err := reg.Append(ctx, tr.ID, domain.StageValidation, domain.AgentValidator,
		"in", "out", "en", 0.5, 0.5); err != nil {
		t.Fatalf("Append() error = %v", err)
	}

	// The snapshot is detached: later appends do not show through.
	if snapshot.Depth() != 1 {
		t.Errorf("snapshot Depth() after later append = %d, want 1", snapshot.Depth())
	}
	if snapshot.ProvenanceHash() != hashBefore {
		t.Error("snapshot ProvenanceHash() changed after a later append")
	}

	fresh, err := reg.Get(tr.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if fresh.Depth() != 2 {
		t.Errorf("fresh Depth() = %d, want 2", fresh.Depth())
	}
}

func TestRegistryConcurrentReadsAndAppends(t *testing.T) {
	ctx := context.Background()
	reg := NewRegistry(nil, false)

	tr, err := reg.Create(ctx, "researcher1", "backend", "Discovery")
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	const appends = 200
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < appends; i++ {
			lang := "en"
			if i%2 == 1 {
				lang = "id"
			}
			if _, err := reg.Append(ctx, tr.ID, domain.StageExploration, domain.AgentExplorer,
				"in", "out", lang, 0.5, 0.5); err != nil {
				t.Errorf("Append() error = %v", err)
				return
			}
		}
	}()

	var wg sync.WaitGroup
	for w := 0; w < 4; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				got, err := reg.Get(tr.ID)
				if err != nil {
					t.Errorf("Get() error = %v", err)
					return
				}
				_ = got.Depth()
				_ = got.UniquenessScore()
				_ = got.ProvenanceHash()
				select {
				case <-done:
					return
				default:
				}
			}
		}()
	}
	wg.Wait()

	final, err := reg.Get(tr.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if final.Depth() != appends {
		t.Errorf("final Depth() = %d, want %d", final.Depth(), appends)
	}
}

// failingStore accepts trace creation but rejects event appends.
type failingStore struct{}

func (failingStore) CreateTrace(context.Context, *storage.TraceRecord) error { return nil }

func (failingStore) AppendEvent(context.Context, string, domain.Event) error {
	return errors.New("disk full")
}

func (failingStore) GetTrace(context.Context, string) (*storage.TraceRecord, error) {
	return nil, domain.ErrNotFound("no trace")
}

func (failingStore) ListTraces(context.Context) ([]*storage.TraceRecord, error) { return nil, nil }

func (failingStore) SaveFold(context.Context, memory.Fold) error { return nil }

func (failingStore) GetFold(context.Context, string) (*memory.Fold, error) {
	return nil, domain.ErrNotFound("no fold")
}

func (failingStore) SaveContributor(context.Context, *leaderboard.Stats) error { return nil }

func (failingStore) ListContributors(context.Context) ([]*leaderboard.Stats, error) {
	return nil, nil
}

func (failingStore) Close() error { return nil }

func TestRegistryAppend_StoreFailureLeavesTraceUnchanged(t *testing.T) {
	ctx := context.Background()
	reg := NewRegistry(failingStore{}, false)

	tr, err := reg.Create(ctx, "researcher1", "backend", "Discovery")
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if _, err := reg.Append(ctx, tr.ID, domain.StageExploration, domain.AgentExplorer,
		"in", "out", "en", 0.5, 0.5); err == nil {
		t.Fatal("Append() error = nil, want store failure")
	}

	// The failed write must not leave the event visible in memory.
	got, err := reg.Get(tr.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.Depth() != 0 {
		t.Errorf("Depth() after failed store write = %d, want 0", got.Depth())
	}
}
