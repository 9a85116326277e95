// Package alignment computes deterministic cross-language consistency scores
// between text pairs. The sub-scores are formula-based proxies, not learned
// outputs: they only promise reproducibility, not statistical validity.
package alignment

import (
	"fmt"
	"sync"
	"unicode"
	"unicode/utf8"

	"github.com/tiktoken-go/tokenizer"

	"github.com/serenqa/serentrace/internal/domain"
)

// AlignmentResult holds the sub-scores and the weighted overall score for
// one source/target text pair. All scores lie in [0,1].
type AlignmentResult struct {
	SourceLang      string  `json:"source_lang"`
	TargetLang      string  `json:"target_lang"`
	SemanticScore   float64 `json:"semantic_score"`
	StructuralScore float64 `json:"structural_score"`
	CulturalScore   float64 `json:"cultural_score"`
	OverallScore    float64 `json:"overall_score"`
}

// PairStatistics summarizes recorded history for one ordered language pair.
type PairStatistics struct {
	Count       int     `json:"count"`
	MeanOverall float64 `json:"mean_overall"`
}

// Statistics aggregates recorded history across all language pairs.
type Statistics struct {
	TotalAlignments int                       `json:"total_alignments"`
	MeanOverall     float64                   `json:"mean_overall"`
	Pairs           map[string]PairStatistics `json:"pairs"`
}

// Overall score weights. Semantic similarity dominates; cultural metadata is
// the weakest signal since it only looks at the language pair, not the texts.
const (
	semanticWeight   = 0.5
	structuralWeight = 0.3
	culturalWeight   = 0.2
)

// Engine computes alignment scores and keeps an append-only history keyed by
// ordered language pair: (en,id) and (id,en) are tracked separately.
//
// Score computation is a pure function of the four inputs; the history is a
// side channel and never influences the returned scores. The engine is
// shared across HTTP handlers, so history access is mutex-guarded.
type Engine struct {
	codec tokenizer.Codec

	mu      sync.Mutex
	history map[string][]AlignmentResult
}

// NewEngine creates an alignment engine. The tokenizer vocabulary is
// embedded in the binary, so this only fails on an unknown encoding.
func NewEngine() (*Engine, error) {
	codec, err := tokenizer.Get(tokenizer.Cl100kBase)
	if err != nil {
		return nil, fmt.Errorf("failed to load tokenizer encoding: %w", err)
	}
	return &Engine{
		codec:   codec,
		history: make(map[string][]AlignmentResult),
	}, nil
}

// Align scores the consistency between a source and target text and records
// the result in the pair's history.
func (e *Engine) Align(sourceText, targetText, sourceLang, targetLang string) AlignmentResult {
	result := AlignmentResult{
		SourceLang:      sourceLang,
		TargetLang:      targetLang,
		SemanticScore:   e.semanticScore(sourceText, targetText),
		StructuralScore: structuralScore(sourceText, targetText),
		CulturalScore:   culturalScore(sourceLang, targetLang),
	}
	result.OverallScore = semanticWeight*result.SemanticScore +
		structuralWeight*result.StructuralScore +
		culturalWeight*result.CulturalScore

	e.mu.Lock()
	key := pairKey(sourceLang, targetLang)
	e.history[key] = append(e.history[key], result)
	e.mu.Unlock()

	return result
}

// AverageAlignment returns the mean overall score recorded for the ordered
// language pair. An unseen pair returns a no_data error rather than zero, so
// "never measured" is not conflated with "measured as zero".
func (e *Engine) AverageAlignment(sourceLang, targetLang string) (float64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	results := e.history[pairKey(sourceLang, targetLang)]
	if len(results) == 0 {
		return 0, domain.ErrNoData("no alignments recorded for %s -> %s", sourceLang, targetLang)
	}
	var sum float64
	for _, r := range results {
		sum += r.OverallScore
	}
	return sum / float64(len(results)), nil
}

// GetStatistics returns aggregate counts and mean scores across all pairs.
func (e *Engine) GetStatistics() Statistics {
	e.mu.Lock()
	defer e.mu.Unlock()

	stats := Statistics{Pairs: make(map[string]PairStatistics, len(e.history))}
	var total float64
	for key, results := range e.history {
		var sum float64
		for _, r := range results {
			sum += r.OverallScore
		}
		stats.Pairs[key] = PairStatistics{
			Count:       len(results),
			MeanOverall: sum / float64(len(results)),
		}
		stats.TotalAlignments += len(results)
		total += sum
	}
	if stats.TotalAlignments > 0 {
		stats.MeanOverall = total / float64(stats.TotalAlignments)
	}
	return stats
}

func pairKey(sourceLang, targetLang string) string {
	return sourceLang + "->" + targetLang
}

// semanticScore is a token-overlap proxy for semantic similarity: the
// Jaccard overlap of BPE token sets blended with the length ratio. It is an
// approximation; translated text in different scripts will score low on
// overlap, which the cultural score partially compensates for.
func (e *Engine) semanticScore(source, target string) float64 {
	if source == "" && target == "" {
		return 1
	}
	if source == "" || target == "" {
		return 0
	}

	srcIDs, _, _ := e.codec.Encode(source)
	dstIDs, _, _ := e.codec.Encode(target)

	srcSet := make(map[uint]struct{}, len(srcIDs))
	for _, id := range srcIDs {
		srcSet[id] = struct{}{}
	}
	dstSet := make(map[uint]struct{}, len(dstIDs))
	for _, id := range dstIDs {
		dstSet[id] = struct{}{}
	}

	shared := 0
	for id := range srcSet {
		if _, ok := dstSet[id]; ok {
			shared++
		}
	}
	union := len(srcSet) + len(dstSet) - shared
	overlap := 0.0
	if union > 0 {
		overlap = float64(shared) / float64(union)
	}

	return 0.7*overlap + 0.3*ratio(len(srcIDs), len(dstIDs))
}

// structuralScore compares text length and punctuation profile.
func structuralScore(source, target string) float64 {
	srcLen := utf8.RuneCountInString(source)
	dstLen := utf8.RuneCountInString(target)
	lengthSim := ratio(srcLen, dstLen)

	srcPunct := countPunct(source)
	dstPunct := countPunct(target)
	punctSim := ratio(srcPunct, dstPunct)

	return 0.6*lengthSim + 0.4*punctSim
}

func countPunct(s string) int {
	n := 0
	for _, r := range s {
		if unicode.IsPunct(r) || unicode.IsSymbol(r) {
			n++
		}
	}
	return n
}

// ratio returns min/max of two non-negative counts, treating 0/0 as a
// perfect match.
func ratio(a, b int) float64 {
	if a == b {
		return 1
	}
	if a > b {
		a, b = b, a
	}
	if b == 0 {
		return 1
	}
	return float64(a) / float64(b)
}
