package leaderboard

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/serenqa/serentrace/internal/domain"
)

// Criterion selects the score projection used to rank contributors.
type Criterion string

const (
	CriterionOverall                Criterion = "overall"
	CriterionSerendipity            Criterion = "serendipity"
	CriterionCrossLanguageExpertise Criterion = "cross_language_expertise"
	CriterionDiscoveries            Criterion = "discoveries"
	CriterionTranslationQuality     Criterion = "translation_quality"
	CriterionLanguageDiversity      Criterion = "language_diversity"
)

// ParseCriterion resolves a criterion name, defaulting to overall for the
// empty string.
func ParseCriterion(name string) (Criterion, error) {
	switch Criterion(name) {
	case "":
		return CriterionOverall, nil
	case CriterionOverall, CriterionSerendipity, CriterionCrossLanguageExpertise,
		CriterionDiscoveries, CriterionTranslationQuality, CriterionLanguageDiversity:
		return Criterion(name), nil
	default:
		return "", domain.ErrInvalidRequest("unknown ranking criterion %q", name)
	}
}

// Score projects the criterion's value out of a contributor's stats. Each
// projection is pure; Discoveries and LanguageDiversity rank by raw counts.
func (c Criterion) Score(s *Stats) float64 {
	switch c {
	case CriterionSerendipity:
		return s.AvgSerendipity
	case CriterionCrossLanguageExpertise:
		return s.CrossLanguageExpertise()
	case CriterionDiscoveries:
		return float64(len(s.Discoveries))
	case CriterionTranslationQuality:
		return s.AvgTranslationQuality
	case CriterionLanguageDiversity:
		return float64(len(s.LanguagesUsed))
	default:
		return s.OverallScore()
	}
}

// Leaderboard holds one Stats per contributor and produces ranked orderings
// on demand. It is shared across HTTP handlers, so access is mutex-guarded.
type Leaderboard struct {
	mu           sync.Mutex
	contributors map[string]*Stats
}

// New creates an empty leaderboard.
func New() *Leaderboard {
	return &Leaderboard{contributors: make(map[string]*Stats)}
}

// AddContributor inserts or replaces the stats keyed by contributor ID.
// Last write wins.
func (l *Leaderboard) AddContributor(stats *Stats) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.contributors[stats.ContributorID] = stats
}

// Contributor returns the stats for a contributor ID.
func (l *Leaderboard) Contributor(id string) (*Stats, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	s, ok := l.contributors[id]
	return s, ok
}

// Len returns the number of registered contributors.
func (l *Leaderboard) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.contributors)
}

// TopN returns at most n contributors sorted descending by the criterion's
// score, ties broken by contributor ID ascending so the ordering is
// deterministic. n below zero is treated as zero.
func (l *Leaderboard) TopN(n int, criterion Criterion) []*Stats {
	if n < 0 {
		n = 0
	}
	l.mu.Lock()
	ranked := make([]*Stats, 0, len(l.contributors))
	for _, s := range l.contributors {
		ranked = append(ranked, s)
	}
	l.mu.Unlock()

	sort.SliceStable(ranked, func(i, j int) bool {
		si, sj := criterion.Score(ranked[i]), criterion.Score(ranked[j])
		if si != sj {
			return si > sj
		}
		return ranked[i].ContributorID < ranked[j].ContributorID
	})

	if n < len(ranked) {
		ranked = ranked[:n]
	}
	return ranked
}

// Render formats the top ten contributors under the criterion. The ordering
// is exactly TopN's; the text is presentation only.
func (l *Leaderboard) Render(criterion Criterion) string {
	top := l.TopN(10, criterion)

	var b strings.Builder
	fmt.Fprintf(&b, "Serendipity Discovery Leaderboard (by %s)\n", criterion)
	for i, s := range top {
		fmt.Fprintf(&b, "#%d %s\n", i+1, s.ContributorID)
		fmt.Fprintf(&b, "   score: %.3f | traces: %d | languages: %s\n",
			criterion.Score(s), s.TotalTraces, strings.Join(s.LanguagesUsed, ", "))
		fmt.Fprintf(&b, "   serendipity: %.3f | cross-lang: %.3f | discoveries: %d\n",
			s.AvgSerendipity, s.CrossLanguageExpertise(), len(s.Discoveries))
	}
	return b.String()
}
