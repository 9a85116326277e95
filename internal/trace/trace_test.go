package trace

import (
	"errors"
	"testing"

	"github.com/serenqa/serentrace/internal/domain"
)

func mustAppend(t *testing.T, tr *Trace, stage domain.Stage, agent domain.Agent, input, output, language string, serendipity, confidence float64) {
	t.Helper()
	if _, err := tr.Append(stage, agent, input, output, language, serendipity, confidence); err != nil {
		t.Fatalf("Append() error = %v", err)
	}
}

// appendDiscoverySequence logs the three-event bilingual opening used by
// several tests: exploration in English, an unexpected connection in
// Indonesian, then hypothesis formation back in English.
func appendDiscoverySequence(t *testing.T, tr *Trace) {
	t.Helper()
	mustAppend(t, tr, domain.StageExploration, domain.AgentExplorer,
		"search for patterns", "found connection", "en", 0.65, 0.88)
	mustAppend(t, tr, domain.StageUnexpectedConnection, domain.AgentPatternRecognizer,
		"analisis pola", "kesamaan tak terduga", "id", 0.92, 0.85)
	mustAppend(t, tr, domain.StageHypothesisFormation, domain.AgentHypothesisGenerator,
		"formulate hypothesis", "novel synthesis", "en", 0.95, 0.92)
}

func TestNew(t *testing.T) {
	tr := New("researcher1", "quantum_backend", "Journavx")
	if tr.ContributorID != "researcher1" {
		t.Errorf("ContributorID = %v, want researcher1", tr.ContributorID)
	}
	if tr.DiscoveryName != "Journavx" {
		t.Errorf("DiscoveryName = %v, want Journavx", tr.DiscoveryName)
	}
	if tr.Depth() != 0 {
		t.Errorf("Depth() = %d, want 0", tr.Depth())
	}
}

func TestAppend(t *testing.T) {
	tr := New("researcher1", "backend", "Discovery")
	appendDiscoverySequence(t, tr)

	if tr.Depth() != 3 {
		t.Errorf("Depth() = %d, want 3", tr.Depth())
	}

	langs := tr.Languages()
	if len(langs) != 2 || langs[0] != "en" || langs[1] != "id" {
		t.Errorf("Languages() = %v, want [en id]", langs)
	}

	events := tr.Events()
	for i, e := range events {
		if e.Sequence != i {
			t.Errorf("events[%d].Sequence = %d, want %d", i, e.Sequence, i)
		}
	}
}

func TestAppend_InvalidScore(t *testing.T) {
	tests := []struct {
		name        string
		serendipity float64
		confidence  float64
		wantParam   string
	}{
		{"confidence above one", 0.5, 1.4, "confidence"},
		{"confidence negative", 0.5, -0.1, "confidence"},
		{"serendipity above one", 1.01, 0.5, "serendipity"},
		{"serendipity negative", -0.5, 0.5, "serendipity"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := New("researcher1", "backend", "Discovery")
			mustAppend(t, tr, domain.StageExploration, domain.AgentExplorer, "in", "out", "en", 0.5, 0.5)

			_, err := tr.Append(domain.StageValidation, domain.AgentValidator,
				"in", "out", "en", tt.serendipity, tt.confidence)

			var engineErr *domain.Error
			if !errors.As(err, &engineErr) {
				t.Fatalf("Append() error = %v, want *domain.Error", err)
			}
			if engineErr.Type != domain.ErrorTypeInvalidScore {
				t.Errorf("error type = %v, want %v", engineErr.Type, domain.ErrorTypeInvalidScore)
			}
			if engineErr.Param != tt.wantParam {
				t.Errorf("error param = %v, want %v", engineErr.Param, tt.wantParam)
			}
			// The failed append must have no effect.
			if tr.Depth() != 1 {
				t.Errorf("Depth() after failed append = %d, want 1", tr.Depth())
			}
		})
	}
}

func TestPrepareCommit(t *testing.T) {
	tr := New("researcher1", "backend", "Discovery")

	event, err := tr.Prepare(domain.StageExploration, domain.AgentExplorer,
		"in", "out", "en", 0.5, 0.5)
	if err != nil {
		t.Fatalf("Prepare() error = %v", err)
	}
	if event.Sequence != 0 {
		t.Errorf("Sequence = %d, want 0", event.Sequence)
	}
	// Prepare never mutates; the event only lands on Commit.
	if tr.Depth() != 0 {
		t.Errorf("Depth() after Prepare = %d, want 0", tr.Depth())
	}

	tr.Commit(event)
	if tr.Depth() != 1 {
		t.Errorf("Depth() after Commit = %d, want 1", tr.Depth())
	}
	langs := tr.Languages()
	if len(langs) != 1 || langs[0] != "en" {
		t.Errorf("Languages() = %v, want [en]", langs)
	}
}

func TestUniquenessScore(t *testing.T) {
	t.Run("empty trace", func(t *testing.T) {
		tr := New("researcher1", "backend", "Discovery")
		if got := tr.UniquenessScore(); got != 0 {
			t.Errorf("UniquenessScore() = %v, want 0", got)
		}
	})

	t.Run("in range", func(t *testing.T) {
		tr := New("researcher1", "backend", "Discovery")
		appendDiscoverySequence(t, tr)
		got := tr.UniquenessScore()
		if got < 0 || got > 1 {
			t.Errorf("UniquenessScore() = %v, want in [0,1]", got)
		}
	})

	t.Run("diversity increases the score", func(t *testing.T) {
		narrow := New("researcher1", "backend", "Discovery")
		mustAppend(t, narrow, domain.StageExploration, domain.AgentExplorer, "a", "b", "en", 0.5, 0.5)
		mustAppend(t, narrow, domain.StageExploration, domain.AgentExplorer, "c", "d", "en", 0.5, 0.5)

		diverse := New("researcher2", "backend", "Discovery")
		appendDiscoverySequence(t, diverse)

		if narrow.UniquenessScore() >= diverse.UniquenessScore() {
			t.Errorf("narrow %v >= diverse %v, want less",
				narrow.UniquenessScore(), diverse.UniquenessScore())
		}
	})

	t.Run("exact weighting", func(t *testing.T) {
		tr := New("researcher1", "backend", "Discovery")
		mustAppend(t, tr, domain.StageExploration, domain.AgentExplorer, "a", "b", "en", 0.5, 0.5)

		// 1 of 7 agents, 1 of 5 languages, 1 of 6 stages.
		want := 0.4*(1.0/7.0) + 0.3*(1.0/5.0) + 0.3*(1.0/6.0)
		if got := tr.UniquenessScore(); !closeTo(got, want) {
			t.Errorf("UniquenessScore() = %v, want %v", got, want)
		}
	})
}

func TestOverallSerendipity(t *testing.T) {
	tr := New("researcher1", "backend", "Discovery")
	if got := tr.OverallSerendipity(); got != 0 {
		t.Errorf("OverallSerendipity() on empty trace = %v, want 0", got)
	}

	appendDiscoverySequence(t, tr)
	want := (0.65 + 0.92 + 0.95) / 3
	if got := tr.OverallSerendipity(); !closeTo(got, want) {
		t.Errorf("OverallSerendipity() = %v, want %v", got, want)
	}
}

func TestTransitions(t *testing.T) {
	tr := New("researcher1", "backend", "Discovery")
	appendDiscoverySequence(t, tr)

	transitions := tr.Transitions()
	if len(transitions) != 2 {
		t.Fatalf("len(Transitions()) = %d, want 2", len(transitions))
	}

	// en -> id
	if !transitions[0].LanguageShift() {
		t.Error("transitions[0].LanguageShift() = false, want true")
	}
	if transitions[0].FromLanguage != "en" || transitions[0].ToLanguage != "id" {
		t.Errorf("transitions[0] languages = %s -> %s, want en -> id",
			transitions[0].FromLanguage, transitions[0].ToLanguage)
	}
	if want := (0.88 + 0.85) / 2; !closeTo(transitions[0].Score, want) {
		t.Errorf("transitions[0].Score = %v, want %v", transitions[0].Score, want)
	}
}

func TestRestore(t *testing.T) {
	orig := New("researcher1", "backend", "Discovery")
	appendDiscoverySequence(t, orig)

	restored := Restore(orig.ID, orig.ContributorID, orig.Backend, orig.DiscoveryName, orig.CreatedAt, orig.Events())

	if restored.Depth() != orig.Depth() {
		t.Errorf("Depth() = %d, want %d", restored.Depth(), orig.Depth())
	}
	if got, want := restored.ProvenanceHash(), orig.ProvenanceHash(); got != want {
		t.Errorf("ProvenanceHash() = %s, want %s", got, want)
	}
	if got, want := len(restored.Languages()), len(orig.Languages()); got != want {
		t.Errorf("len(Languages()) = %d, want %d", got, want)
	}
}

func closeTo(a, b float64) bool {
	d := a - b
	if d < 0 {
		d = -d
	}
	return d < 1e-9
}
