// Package trace records ordered sequences of discovery events and derives
// their provenance hash, diversity metrics, and transition structure.
package trace

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/serenqa/serentrace/internal/domain"
)

// Trace is the ordered record of one discovery process. Insertion order is
// causal order: events are only ever appended, never edited or removed.
// Every derived value (depth, uniqueness, provenance hash) is recomputed
// from the current event sequence on each call.
//
// A Trace is not safe for concurrent mutation; each trace must be owned by
// one producer at a time.
type Trace struct {
	ID            string
	ContributorID string
	Backend       string
	DiscoveryName string
	CreatedAt     time.Time

	events    []domain.Event
	languages map[string]struct{}
	langOrder []string
}

// New creates an empty trace for a contributor.
func New(contributorID, backend, discoveryName string) *Trace {
	return &Trace{
		ID:            fmt.Sprintf("seren_%s_%s", contributorID, uuid.New().String()),
		ContributorID: contributorID,
		Backend:       backend,
		DiscoveryName: discoveryName,
		CreatedAt:     time.Now().UTC(),
		languages:     make(map[string]struct{}),
	}
}

// Restore rebuilds a trace from persisted identity and events. The events
// must already be in sequence order; no validation is re-run, since every
// persisted event passed Append's validation when it was first logged.
func Restore(id, contributorID, backend, discoveryName string, createdAt time.Time, events []domain.Event) *Trace {
	t := &Trace{
		ID:            id,
		ContributorID: contributorID,
		Backend:       backend,
		DiscoveryName: discoveryName,
		CreatedAt:     createdAt,
		languages:     make(map[string]struct{}),
	}
	t.events = append(t.events, events...)
	for _, e := range events {
		if _, seen := t.languages[e.Language]; !seen {
			t.languages[e.Language] = struct{}{}
			t.langOrder = append(t.langOrder, e.Language)
		}
	}
	return t
}

// Append validates the score fields, constructs the next event, and appends
// it. On error the trace is unchanged: validation happens before any
// mutation. The event's sequence index and timestamp are assigned here.
func (t *Trace) Append(stage domain.Stage, agent domain.Agent, input, output, language string, serendipity, confidence float64, opts ...domain.EventOption) (domain.Event, error) {
	event, err := t.Prepare(stage, agent, input, output, language, serendipity, confidence, opts...)
	if err != nil {
		return domain.Event{}, err
	}
	t.Commit(event)
	return event, nil
}

// Prepare validates the score fields and constructs the next event without
// logging it. The event's sequence index and timestamp are assigned here;
// the trace is not mutated. An embedder that persists events can write the
// prepared event to durable storage before calling Commit, so a storage
// failure never leaves the in-memory trace ahead of the store.
func (t *Trace) Prepare(stage domain.Stage, agent domain.Agent, input, output, language string, serendipity, confidence float64, opts ...domain.EventOption) (domain.Event, error) {
	if serendipity < 0 || serendipity > 1 {
		return domain.Event{}, domain.ErrInvalidScore("serendipity", serendipity)
	}
	if confidence < 0 || confidence > 1 {
		return domain.Event{}, domain.ErrInvalidScore("confidence", confidence)
	}

	event := domain.Event{
		Sequence:    len(t.events),
		Timestamp:   time.Now().UTC(),
		Stage:       stage,
		Agent:       agent,
		Input:       input,
		Output:      output,
		Language:    language,
		Serendipity: serendipity,
		Confidence:  confidence,
	}
	for _, opt := range opts {
		opt(&event)
	}
	return event, nil
}

// Commit logs an event returned by Prepare. No events may be prepared or
// committed in between, so the sequence index still matches.
func (t *Trace) Commit(event domain.Event) {
	t.events = append(t.events, event)
	if _, seen := t.languages[event.Language]; !seen {
		t.languages[event.Language] = struct{}{}
		t.langOrder = append(t.langOrder, event.Language)
	}
}

// Depth returns the number of events logged so far.
func (t *Trace) Depth() int {
	return len(t.events)
}

// Events returns a copy of the event sequence in causal order.
func (t *Trace) Events() []domain.Event {
	out := make([]domain.Event, len(t.events))
	copy(out, t.events)
	return out
}

// Languages returns the distinct languages seen, in first-use order.
func (t *Trace) Languages() []string {
	out := make([]string, len(t.langOrder))
	copy(out, t.langOrder)
	return out
}

// HasLanguage reports whether the trace has logged an event in the language.
func (t *Trace) HasLanguage(language string) bool {
	_, ok := t.languages[language]
	return ok
}

// languageDiversityCap caps the language contribution to uniqueness; using
// more than this many languages in one trace earns no extra credit.
const languageDiversityCap = 5

// UniquenessScore is a weighted diversity measure over the current events:
// 0.4 agent diversity + 0.3 language diversity + 0.3 stage diversity, each
// fraction normalized by its enumeration's cardinality (languages by
// languageDiversityCap). Always in [0,1].
func (t *Trace) UniquenessScore() float64 {
	if len(t.events) == 0 {
		return 0
	}

	agents := make(map[domain.Agent]struct{})
	stages := make(map[domain.Stage]struct{})
	for _, e := range t.events {
		agents[e.Agent] = struct{}{}
		stages[e.Stage] = struct{}{}
	}

	agentDiversity := float64(len(agents)) / float64(domain.NumAgents)
	stageDiversity := float64(len(stages)) / float64(domain.NumStages)
	langCount := len(t.languages)
	if langCount > languageDiversityCap {
		langCount = languageDiversityCap
	}
	languageDiversity := float64(langCount) / float64(languageDiversityCap)

	return 0.4*agentDiversity + 0.3*languageDiversity + 0.3*stageDiversity
}

// OverallSerendipity is the mean serendipity score across all events, or 0
// for an empty trace.
func (t *Trace) OverallSerendipity() float64 {
	if len(t.events) == 0 {
		return 0
	}
	var sum float64
	for _, e := range t.events {
		sum += e.Serendipity
	}
	return sum / float64(len(t.events))
}

// Transition is a derived edge between two adjacent events.
type Transition struct {
	FromSequence int          `json:"from_sequence"`
	ToSequence   int          `json:"to_sequence"`
	FromAgent    domain.Agent `json:"from_agent"`
	ToAgent      domain.Agent `json:"to_agent"`

	// Score is the mean confidence of the two endpoints.
	Score float64 `json:"score"`

	// FromLanguage/ToLanguage are set only when the languages differ.
	FromLanguage string `json:"from_language,omitempty"`
	ToLanguage   string `json:"to_language,omitempty"`
}

// LanguageShift reports whether this transition crosses languages.
func (tr Transition) LanguageShift() bool {
	return tr.FromLanguage != ""
}

// Transitions derives the adjacent-event transition list. It is recomputed
// from the event sequence on each call and never stored.
func (t *Trace) Transitions() []Transition {
	if len(t.events) < 2 {
		return nil
	}
	out := make([]Transition, 0, len(t.events)-1)
	for i := 1; i < len(t.events); i++ {
		prev, cur := t.events[i-1], t.events[i]
		tr := Transition{
			FromSequence: prev.Sequence,
			ToSequence:   cur.Sequence,
			FromAgent:    prev.Agent,
			ToAgent:      cur.Agent,
			Score:        (prev.Confidence + cur.Confidence) / 2,
		}
		if prev.Language != cur.Language {
			tr.FromLanguage = prev.Language
			tr.ToLanguage = cur.Language
		}
		out = append(out, tr)
	}
	return out
}
