// Package memory compresses a trace's event sequence into a Fold: a derived,
// read-only summary carrying the high-signal events, language structure, and
// cross-language patterns.
package memory

import (
	"fmt"
	"sort"

	"github.com/serenqa/serentrace/internal/alignment"
	"github.com/serenqa/serentrace/internal/domain"
)

// PatternKind identifies a cross-language pattern detected in a trace.
type PatternKind string

const (
	// PatternLanguageSwitch marks adjacent events in different languages.
	PatternLanguageSwitch PatternKind = "language_switch"

	// PatternMultilingualReasoning marks a window of consecutive events
	// spanning two or more languages.
	PatternMultilingualReasoning PatternKind = "multilingual_reasoning"
)

// Pattern is one detected cross-language pattern.
type Pattern struct {
	Kind        PatternKind `json:"kind"`
	Languages   []string    `json:"languages"`
	Description string      `json:"description"`
	Confidence  float64     `json:"confidence"`
}

// TranslationSummary aggregates translation quality across the language
// switches in a trace. A zero TotalTranslations means no translation was
// measured; AverageQuality is meaningless in that case, not zero-quality.
type TranslationSummary struct {
	TotalTranslations int      `json:"total_translations"`
	AverageQuality    float64  `json:"average_quality"`
	LanguagePairs     []string `json:"language_pairs"`

	// Problematic counts switches whose alignment fell below 0.7.
	Problematic int `json:"problematic"`
}

// Fold is the compressed snapshot of a trace's events. It is a pure function
// of the event sequence at fold time and is never mutated after creation.
type Fold struct {
	TraceID              string             `json:"trace_id"`
	TotalEvents          int                `json:"total_events"`
	KeyInsights          []domain.Event     `json:"key_insights"`
	LanguageDistribution map[string]int     `json:"language_distribution"`
	Patterns             []Pattern          `json:"patterns"`
	TranslationSummary   TranslationSummary `json:"translation_summary"`

	// CompressionRatio is |key insights| / |events|: 0 for an empty trace,
	// and also 0 when no event qualifies as a key insight.
	CompressionRatio float64 `json:"compression_ratio"`

	// OverallAlignment is the mean of per-event alignment scores across the
	// AlignmentSamples events that carried one.
	OverallAlignment float64 `json:"overall_alignment"`
	AlignmentSamples int     `json:"alignment_samples"`
}

// HasPattern reports whether any detected pattern has the given kind.
func (f *Fold) HasPattern(kind PatternKind) bool {
	for _, p := range f.Patterns {
		if p.Kind == kind {
			return true
		}
	}
	return false
}

// Default fold parameters. An event is a key insight when its confidence
// exceeds the threshold or it departs from the trace's dominant language;
// multilingual reasoning is scanned over windows of windowSize events.
const (
	defaultConfidenceThreshold = 0.8
	defaultWindowSize          = 3
)

// problematicAlignmentThreshold marks a language switch as problematic.
const problematicAlignmentThreshold = 0.7

// Folder derives Folds from event sequences. The aligner scores the text
// handed across each language switch for the translation summary; when nil,
// the summary falls back to per-event translation quality fields.
type Folder struct {
	aligner             *alignment.Engine
	confidenceThreshold float64
	windowSize          int
}

// Option configures a Folder.
type Option func(*Folder)

// WithConfidenceThreshold overrides the key-insight confidence threshold.
func WithConfidenceThreshold(threshold float64) Option {
	return func(f *Folder) { f.confidenceThreshold = threshold }
}

// WithWindowSize overrides the multilingual-reasoning window size.
func WithWindowSize(size int) Option {
	return func(f *Folder) {
		if size >= 2 {
			f.windowSize = size
		}
	}
}

// NewFolder creates a memory folder. aligner may be nil.
func NewFolder(aligner *alignment.Engine, opts ...Option) *Folder {
	f := &Folder{
		aligner:             aligner,
		confidenceThreshold: defaultConfidenceThreshold,
		windowSize:          defaultWindowSize,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Fold compresses the event sequence into a Fold. It never mutates the
// events and is idempotent: folding the same sequence twice yields an
// identical Fold.
func (f *Folder) Fold(traceID string, events []domain.Event) Fold {
	fold := Fold{
		TraceID:              traceID,
		TotalEvents:          len(events),
		LanguageDistribution: languageDistribution(events),
	}
	if len(events) == 0 {
		return fold
	}

	dominant := dominantLanguage(events)
	fold.KeyInsights = f.keyInsights(events, dominant)
	fold.Patterns = f.detectPatterns(events)
	fold.TranslationSummary = f.translationSummary(events)
	fold.CompressionRatio = float64(len(fold.KeyInsights)) / float64(len(events))
	fold.OverallAlignment, fold.AlignmentSamples = overallAlignment(events)
	return fold
}

// keyInsights retains events with confidence above the threshold or logged
// outside the dominant language. Both conditions are inclusive.
func (f *Folder) keyInsights(events []domain.Event, dominant string) []domain.Event {
	var insights []domain.Event
	for _, e := range events {
		if e.Confidence > f.confidenceThreshold || e.Language != dominant {
			insights = append(insights, e)
		}
	}
	return insights
}

func languageDistribution(events []domain.Event) map[string]int {
	dist := make(map[string]int, 4)
	for _, e := range events {
		dist[e.Language]++
	}
	return dist
}

// dominantLanguage is the most frequent event language; ties resolve to the
// language seen first, so the result is deterministic.
func dominantLanguage(events []domain.Event) string {
	counts := make(map[string]int, 4)
	var order []string
	for _, e := range events {
		if counts[e.Language] == 0 {
			order = append(order, e.Language)
		}
		counts[e.Language]++
	}
	best := order[0]
	for _, lang := range order {
		if counts[lang] > counts[best] {
			best = lang
		}
	}
	return best
}

func (f *Folder) detectPatterns(events []domain.Event) []Pattern {
	var patterns []Pattern

	for i := 1; i < len(events); i++ {
		prev, cur := events[i-1], events[i]
		if prev.Language == cur.Language {
			continue
		}
		patterns = append(patterns, Pattern{
			Kind:        PatternLanguageSwitch,
			Languages:   []string{prev.Language, cur.Language},
			Description: fmt.Sprintf("switch from %s to %s", prev.Language, cur.Language),
			Confidence:  (prev.Confidence + cur.Confidence) / 2,
		})
	}

	if p, ok := f.multilingualReasoning(events); ok {
		patterns = append(patterns, p)
	}
	return patterns
}

// multilingualReasoning flags the trace once if any windowSize-sized run of
// consecutive events spans two or more languages.
func (f *Folder) multilingualReasoning(events []domain.Event) (Pattern, bool) {
	if len(events) < f.windowSize {
		return Pattern{}, false
	}

	windows := 0
	langs := make(map[string]struct{})
	var confidenceSum float64
	var confidenceCount int

	for i := 0; i+f.windowSize <= len(events); i++ {
		window := events[i : i+f.windowSize]
		seen := make(map[string]struct{}, f.windowSize)
		for _, e := range window {
			seen[e.Language] = struct{}{}
		}
		if len(seen) < 2 {
			continue
		}
		windows++
		for _, e := range window {
			langs[e.Language] = struct{}{}
			confidenceSum += e.Confidence
			confidenceCount++
		}
	}
	if windows == 0 {
		return Pattern{}, false
	}

	languages := make([]string, 0, len(langs))
	for lang := range langs {
		languages = append(languages, lang)
	}
	sort.Strings(languages)

	return Pattern{
		Kind:        PatternMultilingualReasoning,
		Languages:   languages,
		Description: fmt.Sprintf("%d multilingual reasoning windows detected", windows),
		Confidence:  confidenceSum / float64(confidenceCount),
	}, true
}

// translationSummary scores each language switch: the previous event's
// output against the next event's input via the aligner, or the next
// event's translation quality field when no aligner is configured.
func (f *Folder) translationSummary(events []domain.Event) TranslationSummary {
	summary := TranslationSummary{}
	var qualitySum float64
	seenPairs := make(map[string]struct{})

	for i := 1; i < len(events); i++ {
		prev, cur := events[i-1], events[i]
		if prev.Language == cur.Language {
			continue
		}

		var quality float64
		var measured bool
		switch {
		case f.aligner != nil:
			result := f.aligner.Align(prev.Output, cur.Input, prev.Language, cur.Language)
			quality = result.OverallScore
			measured = true
		case cur.TranslationQuality != nil:
			quality = *cur.TranslationQuality
			measured = true
		}
		if !measured {
			continue
		}

		summary.TotalTranslations++
		qualitySum += quality
		if quality < problematicAlignmentThreshold {
			summary.Problematic++
		}

		pair := prev.Language + "-" + cur.Language
		if _, ok := seenPairs[pair]; !ok {
			seenPairs[pair] = struct{}{}
			summary.LanguagePairs = append(summary.LanguagePairs, pair)
		}
	}

	if summary.TotalTranslations > 0 {
		summary.AverageQuality = qualitySum / float64(summary.TotalTranslations)
	}
	return summary
}

// overallAlignment averages the per-event alignment scores over the events
// that carry one. Events without a measurement are excluded, not counted as
// zero.
func overallAlignment(events []domain.Event) (float64, int) {
	var sum float64
	var count int
	for _, e := range events {
		if e.AlignmentScore != nil {
			sum += *e.AlignmentScore
			count++
		}
	}
	if count == 0 {
		return 0, 0
	}
	return sum / float64(count), count
}
