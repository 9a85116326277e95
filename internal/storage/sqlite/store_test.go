package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/serenqa/serentrace/internal/domain"
	"github.com/serenqa/serentrace/internal/leaderboard"
	"github.com/serenqa/serentrace/internal/memory"
	"github.com/serenqa/serentrace/internal/storage"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func testEvent(seq int, language string, alignScore *float64) domain.Event {
	return domain.Event{
		Sequence:    seq,
		Timestamp:   time.Date(2026, 3, 1, 10, 0, seq, 0, time.UTC),
		Stage:       domain.StageExploration,
		Agent:       domain.AgentExplorer,
		Input:       "input text",
		Output:      "output text",
		Language:    language,
		Serendipity: 0.65,
		Confidence:  0.88,

		AlignmentScore: alignScore,
	}
}

func TestTraceRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	rec := &storage.TraceRecord{
		ID:            "seren_researcher1_abc",
		ContributorID: "researcher1",
		Backend:       "quantum_backend",
		DiscoveryName: "Journavx",
		CreatedAt:     time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
	}
	if err := store.CreateTrace(ctx, rec); err != nil {
		t.Fatalf("CreateTrace() error = %v", err)
	}

	score := 0.9
	if err := store.AppendEvent(ctx, rec.ID, testEvent(0, "en", nil)); err != nil {
		t.Fatalf("AppendEvent() error = %v", err)
	}
	if err := store.AppendEvent(ctx, rec.ID, testEvent(1, "id", &score)); err != nil {
		t.Fatalf("AppendEvent() error = %v", err)
	}

	got, err := store.GetTrace(ctx, rec.ID)
	if err != nil {
		t.Fatalf("GetTrace() error = %v", err)
	}
	if got.ContributorID != rec.ContributorID {
		t.Errorf("ContributorID = %q, want %q", got.ContributorID, rec.ContributorID)
	}
	if got.DiscoveryName != rec.DiscoveryName {
		t.Errorf("DiscoveryName = %q, want %q", got.DiscoveryName, rec.DiscoveryName)
	}
	if len(got.Events) != 2 {
		t.Fatalf("len(Events) = %d, want 2", len(got.Events))
	}
	if got.Events[0].Sequence != 0 || got.Events[1].Sequence != 1 {
		t.Errorf("event sequences = %d,%d, want 0,1", got.Events[0].Sequence, got.Events[1].Sequence)
	}
	if got.Events[1].Language != "id" {
		t.Errorf("Events[1].Language = %q, want id", got.Events[1].Language)
	}
	if got.Events[0].Stage != domain.StageExploration {
		t.Errorf("Events[0].Stage = %v, want %v", got.Events[0].Stage, domain.StageExploration)
	}

	// The nullable score columns must round-trip absence, not zero.
	if got.Events[0].AlignmentScore != nil {
		t.Errorf("Events[0].AlignmentScore = %v, want nil", *got.Events[0].AlignmentScore)
	}
	if got.Events[1].AlignmentScore == nil || *got.Events[1].AlignmentScore != score {
		t.Errorf("Events[1].AlignmentScore = %v, want %v", got.Events[1].AlignmentScore, score)
	}
}

func TestGetTrace_NotFound(t *testing.T) {
	store := newTestStore(t)

	_, err := store.GetTrace(context.Background(), "seren_ghost_000")
	var engineErr *domain.Error
	if !errors.As(err, &engineErr) {
		t.Fatalf("GetTrace() error = %v, want *domain.Error", err)
	}
	if engineErr.Type != domain.ErrorTypeNotFound {
		t.Errorf("error type = %v, want %v", engineErr.Type, domain.ErrorTypeNotFound)
	}
}

func TestListTraces(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for i, id := range []string{"seren_a_1", "seren_b_2"} {
		rec := &storage.TraceRecord{
			ID:            id,
			ContributorID: "researcher1",
			Backend:       "backend",
			DiscoveryName: "Discovery",
			CreatedAt:     time.Date(2026, 3, 1, 9, i, 0, 0, time.UTC),
		}
		if err := store.CreateTrace(ctx, rec); err != nil {
			t.Fatalf("CreateTrace(%s) error = %v", id, err)
		}
		if err := store.AppendEvent(ctx, id, testEvent(0, "en", nil)); err != nil {
			t.Fatalf("AppendEvent(%s) error = %v", id, err)
		}
	}

	records, err := store.ListTraces(ctx)
	if err != nil {
		t.Fatalf("ListTraces() error = %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("len(records) = %d, want 2", len(records))
	}
	// Ordered by creation time.
	if records[0].ID != "seren_a_1" || records[1].ID != "seren_b_2" {
		t.Errorf("order = %s,%s, want seren_a_1,seren_b_2", records[0].ID, records[1].ID)
	}
	for _, rec := range records {
		if len(rec.Events) != 1 {
			t.Errorf("%s: len(Events) = %d, want 1", rec.ID, len(rec.Events))
		}
	}
}

func TestFoldRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	fold := memory.Fold{
		TraceID:              "seren_researcher1_abc",
		TotalEvents:          3,
		LanguageDistribution: map[string]int{"en": 2, "id": 1},
		CompressionRatio:     2.0 / 3.0,
		Patterns: []memory.Pattern{{
			Kind:       memory.PatternLanguageSwitch,
			Languages:  []string{"en", "id"},
			Confidence: 0.86,
		}},
	}
	if err := store.SaveFold(ctx, fold); err != nil {
		t.Fatalf("SaveFold() error = %v", err)
	}

	got, err := store.GetFold(ctx, fold.TraceID)
	if err != nil {
		t.Fatalf("GetFold() error = %v", err)
	}
	if got.TotalEvents != fold.TotalEvents {
		t.Errorf("TotalEvents = %d, want %d", got.TotalEvents, fold.TotalEvents)
	}
	if !got.HasPattern(memory.PatternLanguageSwitch) {
		t.Error("HasPattern(language_switch) = false after round trip")
	}

	// Saving again replaces the stored fold.
	fold.TotalEvents = 5
	if err := store.SaveFold(ctx, fold); err != nil {
		t.Fatalf("SaveFold() second error = %v", err)
	}
	got, err = store.GetFold(ctx, fold.TraceID)
	if err != nil {
		t.Fatalf("GetFold() second error = %v", err)
	}
	if got.TotalEvents != 5 {
		t.Errorf("TotalEvents after resave = %d, want 5", got.TotalEvents)
	}
}

func TestGetFold_NotFound(t *testing.T) {
	store := newTestStore(t)

	_, err := store.GetFold(context.Background(), "seren_ghost_000")
	var engineErr *domain.Error
	if !errors.As(err, &engineErr) {
		t.Fatalf("GetFold() error = %v, want *domain.Error", err)
	}
	if engineErr.Type != domain.ErrorTypeNotFound {
		t.Errorf("error type = %v, want %v", engineErr.Type, domain.ErrorTypeNotFound)
	}
}

func TestContributorRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	stats := leaderboard.NewStats("researcher1")
	if err := stats.AddTrace(10, 0.6, 0.8, []string{"en", "id"}, 0.9, 0.85); err != nil {
		t.Fatalf("AddTrace() error = %v", err)
	}
	stats.AddDiscovery("Journavx")

	if err := store.SaveContributor(ctx, stats); err != nil {
		t.Fatalf("SaveContributor() error = %v", err)
	}

	all, err := store.ListContributors(ctx)
	if err != nil {
		t.Fatalf("ListContributors() error = %v", err)
	}
	if len(all) != 1 {
		t.Fatalf("len(contributors) = %d, want 1", len(all))
	}
	got := all[0]
	if got.ContributorID != "researcher1" {
		t.Errorf("ContributorID = %q, want researcher1", got.ContributorID)
	}
	if got.TotalTraces != 1 {
		t.Errorf("TotalTraces = %d, want 1", got.TotalTraces)
	}
	if got.LanguageProficiency["en"] != 1 {
		t.Errorf("LanguageProficiency[en] = %d, want 1", got.LanguageProficiency["en"])
	}
	if len(got.Discoveries) != 1 || got.Discoveries[0] != "Journavx" {
		t.Errorf("Discoveries = %v, want [Journavx]", got.Discoveries)
	}

	// Updated stats replace the stored row.
	if err := stats.AddTrace(20, 0.7, 0.7, []string{"en"}, 0.8, 0.8); err != nil {
		t.Fatalf("AddTrace() second error = %v", err)
	}
	if err := store.SaveContributor(ctx, stats); err != nil {
		t.Fatalf("SaveContributor() second error = %v", err)
	}
	all, err = store.ListContributors(ctx)
	if err != nil {
		t.Fatalf("ListContributors() second error = %v", err)
	}
	if len(all) != 1 || all[0].TotalTraces != 2 {
		t.Errorf("contributors = %d rows, TotalTraces = %d, want 1 row with 2 traces",
			len(all), all[0].TotalTraces)
	}
}
