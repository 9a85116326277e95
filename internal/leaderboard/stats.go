// Package leaderboard tracks per-contributor aggregates over trace history
// and ranks contributors against peers by a selected criterion.
package leaderboard

import (
	"github.com/serenqa/serentrace/internal/domain"
)

// Normalization references for OverallScore: a mean trace depth of
// maxReferenceDepth and a discovery count of maxReferenceDiscoveries earn
// the full component score.
const (
	maxReferenceDepth       = 50.0
	maxReferenceDiscoveries = 10.0
	maxReferenceLanguages   = 10.0
)

// Stats is the running aggregate of one contributor's trace history. It is
// a summary, mutated only through AddTrace, AddDiscovery, and
// AddExpertiseDomain; it is never recomputed from raw events.
type Stats struct {
	ContributorID string `json:"contributor_id"`
	TotalTraces   int    `json:"total_traces"`

	AvgTraceDepth         float64 `json:"avg_trace_depth"`
	AvgUniqueness         float64 `json:"avg_uniqueness"`
	AvgSerendipity        float64 `json:"avg_serendipity"`
	AvgAlignment          float64 `json:"avg_alignment"`
	AvgTranslationQuality float64 `json:"avg_translation_quality"`

	// LanguagesUsed preserves first-use order; LanguageProficiency counts
	// traces submitted per language.
	LanguagesUsed       []string       `json:"languages_used"`
	LanguageProficiency map[string]int `json:"language_proficiency"`

	MultilingualTraces int `json:"multilingual_traces"`

	Discoveries      []string `json:"discoveries"`
	ExpertiseDomains []string `json:"expertise_domains"`
}

// NewStats creates empty stats for a contributor.
func NewStats(contributorID string) *Stats {
	return &Stats{
		ContributorID:       contributorID,
		LanguageProficiency: make(map[string]int),
	}
}

// AddTrace folds one trace's summary metrics into the running aggregates.
// All four score arguments must lie in [0,1]; on error the stats are
// unchanged, since validation happens before any mutation.
func (s *Stats) AddTrace(depth int, uniqueness, serendipity float64, languages []string, alignmentScore, translationQuality float64) error {
	if uniqueness < 0 || uniqueness > 1 {
		return domain.ErrInvalidScore("uniqueness", uniqueness)
	}
	if serendipity < 0 || serendipity > 1 {
		return domain.ErrInvalidScore("serendipity", serendipity)
	}
	if alignmentScore < 0 || alignmentScore > 1 {
		return domain.ErrInvalidScore("alignment_score", alignmentScore)
	}
	if translationQuality < 0 || translationQuality > 1 {
		return domain.ErrInvalidScore("translation_quality", translationQuality)
	}

	s.TotalTraces++
	n := float64(s.TotalTraces)
	s.AvgTraceDepth = (s.AvgTraceDepth*(n-1) + float64(depth)) / n
	s.AvgUniqueness = (s.AvgUniqueness*(n-1) + uniqueness) / n
	s.AvgSerendipity = (s.AvgSerendipity*(n-1) + serendipity) / n
	s.AvgAlignment = (s.AvgAlignment*(n-1) + alignmentScore) / n
	s.AvgTranslationQuality = (s.AvgTranslationQuality*(n-1) + translationQuality) / n

	if len(languages) > 1 {
		s.MultilingualTraces++
	}
	for _, lang := range languages {
		if s.LanguageProficiency[lang] == 0 {
			s.LanguagesUsed = append(s.LanguagesUsed, lang)
		}
		s.LanguageProficiency[lang]++
	}
	return nil
}

// AddDiscovery records a named discovery. Re-adding the same name is a
// no-op.
func (s *Stats) AddDiscovery(name string) {
	s.Discoveries = appendUnique(s.Discoveries, name)
}

// AddExpertiseDomain records an expertise domain. Idempotent.
func (s *Stats) AddExpertiseDomain(domain string) {
	s.ExpertiseDomains = appendUnique(s.ExpertiseDomains, domain)
}

func appendUnique(list []string, value string) []string {
	for _, v := range list {
		if v == value {
			return list
		}
	}
	return append(list, value)
}

// CrossLanguageExpertise combines language-count diversity with the fraction
// of the contributor's traces that were multilingual, capped at 1.
func (s *Stats) CrossLanguageExpertise() float64 {
	if s.TotalTraces == 0 {
		return 0
	}
	langCount := float64(len(s.LanguagesUsed))
	if langCount > maxReferenceLanguages {
		langCount = maxReferenceLanguages
	}
	score := (langCount / maxReferenceLanguages) *
		(float64(s.MultilingualTraces) / float64(s.TotalTraces))
	if score > 1 {
		score = 1
	}
	return score
}

// OverallScore is the fixed weighted sum over normalized running averages:
// depth 20%, uniqueness 25%, serendipity 20%, language diversity 15%,
// quality 10%, discoveries 10%. Always in [0,1].
func (s *Stats) OverallScore() float64 {
	depthScore := s.AvgTraceDepth / maxReferenceDepth
	if depthScore > 1 {
		depthScore = 1
	}
	discoveryScore := float64(len(s.Discoveries)) / maxReferenceDiscoveries
	if discoveryScore > 1 {
		discoveryScore = 1
	}
	qualityScore := (s.AvgAlignment + s.AvgTranslationQuality) / 2

	return 0.20*depthScore +
		0.25*s.AvgUniqueness +
		0.20*s.AvgSerendipity +
		0.15*s.CrossLanguageExpertise() +
		0.10*qualityScore +
		0.10*discoveryScore
}
