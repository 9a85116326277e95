package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/serenqa/serentrace/internal/domain"
	"github.com/serenqa/serentrace/internal/leaderboard"
)

// writeError maps a domain error onto the response; unknown errors become a
// 500 with a generic body.
func writeError(w http.ResponseWriter, err error) {
	var engineErr *domain.Error
	if !errors.As(err, &engineErr) {
		engineErr = &domain.Error{Type: "internal", Message: err.Error()}
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(engineErr.HTTPStatusCode())
	json.NewEncoder(w).Encode(map[string]any{"error": engineErr})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

type createTraceRequest struct {
	ContributorID string `json:"contributor_id"`
	Backend       string `json:"backend"`
	DiscoveryName string `json:"discovery_name"`
}

func (s *Server) handleCreateTrace(w http.ResponseWriter, r *http.Request) {
	var req createTraceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, domain.ErrInvalidRequest("invalid request body: %v", err))
		return
	}
	if req.ContributorID == "" {
		writeError(w, domain.ErrInvalidRequest("contributor_id is required"))
		return
	}

	t, err := s.registry.Create(r.Context(), req.ContributorID, req.Backend, req.DiscoveryName)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"trace_id":       t.ID,
		"contributor_id": t.ContributorID,
		"created_at":     t.CreatedAt,
	})
}

type appendEventRequest struct {
	Stage              string   `json:"stage"`
	Agent              string   `json:"agent"`
	Input              string   `json:"input"`
	Output             string   `json:"output"`
	Language           string   `json:"language"`
	Serendipity        float64  `json:"serendipity"`
	Confidence         float64  `json:"confidence"`
	AlignmentScore     *float64 `json:"alignment_score,omitempty"`
	TranslationQuality *float64 `json:"translation_quality,omitempty"`
}

func (s *Server) handleAppendEvent(w http.ResponseWriter, r *http.Request) {
	traceID := chi.URLParam(r, "id")

	var req appendEventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, domain.ErrInvalidRequest("invalid request body: %v", err))
		return
	}
	stage, err := domain.ParseStage(req.Stage)
	if err != nil {
		writeError(w, err)
		return
	}
	agent, err := domain.ParseAgent(req.Agent)
	if err != nil {
		writeError(w, err)
		return
	}

	var opts []domain.EventOption
	if req.AlignmentScore != nil {
		opts = append(opts, domain.WithAlignmentScore(*req.AlignmentScore))
	}
	if req.TranslationQuality != nil {
		opts = append(opts, domain.WithTranslationQuality(*req.TranslationQuality))
	}

	event, err := s.registry.Append(r.Context(), traceID, stage, agent,
		req.Input, req.Output, req.Language, req.Serendipity, req.Confidence, opts...)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, event)
}

func (s *Server) handleGetTrace(w http.ResponseWriter, r *http.Request) {
	t, err := s.registry.Get(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"trace_id":            t.ID,
		"contributor_id":      t.ContributorID,
		"backend":             t.Backend,
		"discovery_name":      t.DiscoveryName,
		"created_at":          t.CreatedAt,
		"depth":               t.Depth(),
		"languages":           t.Languages(),
		"uniqueness_score":    t.UniquenessScore(),
		"overall_serendipity": t.OverallSerendipity(),
	})
}

func (s *Server) handleProvenance(w http.ResponseWriter, r *http.Request) {
	t, err := s.registry.Get(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"trace_id":        t.ID,
		"depth":           t.Depth(),
		"provenance_hash": t.ProvenanceHash(),
	})
}

func (s *Server) handleFold(w http.ResponseWriter, r *http.Request) {
	t, err := s.registry.Get(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}

	fold := t.FoldMemory(s.folder)
	if s.store != nil {
		if err := s.store.SaveFold(r.Context(), fold); err != nil {
			writeError(w, err)
			return
		}
	}
	writeJSON(w, http.StatusOK, fold)
}

type alignRequest struct {
	SourceText string `json:"source_text"`
	TargetText string `json:"target_text"`
	SourceLang string `json:"source_lang"`
	TargetLang string `json:"target_lang"`
}

func (s *Server) handleAlign(w http.ResponseWriter, r *http.Request) {
	var req alignRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, domain.ErrInvalidRequest("invalid request body: %v", err))
		return
	}
	result := s.aligner.Align(req.SourceText, req.TargetText, req.SourceLang, req.TargetLang)
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleAlignmentAverage(w http.ResponseWriter, r *http.Request) {
	sourceLang := r.URL.Query().Get("source_lang")
	targetLang := r.URL.Query().Get("target_lang")

	avg, err := s.aligner.AverageAlignment(sourceLang, targetLang)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"source_lang":       sourceLang,
		"target_lang":       targetLang,
		"average_alignment": avg,
	})
}

func (s *Server) handleAlignmentStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.aligner.GetStatistics())
}

type submitContributionRequest struct {
	ContributorID      string   `json:"contributor_id"`
	Depth              int      `json:"depth"`
	Uniqueness         float64  `json:"uniqueness"`
	Serendipity        float64  `json:"serendipity"`
	Languages          []string `json:"languages"`
	AlignmentScore     float64  `json:"alignment_score"`
	TranslationQuality float64  `json:"translation_quality"`
	Discovery          string   `json:"discovery,omitempty"`
	ExpertiseDomains   []string `json:"expertise_domains,omitempty"`
}

// handleSubmitContribution folds one trace summary into a contributor's
// stats. New contributors are registered on first submission.
func (s *Server) handleSubmitContribution(w http.ResponseWriter, r *http.Request) {
	var req submitContributionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, domain.ErrInvalidRequest("invalid request body: %v", err))
		return
	}
	if req.ContributorID == "" {
		writeError(w, domain.ErrInvalidRequest("contributor_id is required"))
		return
	}

	stats, ok := s.board.Contributor(req.ContributorID)
	if !ok {
		stats = leaderboard.NewStats(req.ContributorID)
	}
	if err := stats.AddTrace(req.Depth, req.Uniqueness, req.Serendipity,
		req.Languages, req.AlignmentScore, req.TranslationQuality); err != nil {
		writeError(w, err)
		return
	}
	if req.Discovery != "" {
		stats.AddDiscovery(req.Discovery)
	}
	for _, d := range req.ExpertiseDomains {
		stats.AddExpertiseDomain(d)
	}
	s.board.AddContributor(stats)

	if s.store != nil {
		if err := s.store.SaveContributor(r.Context(), stats); err != nil {
			writeError(w, err)
			return
		}
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	criterion, err := leaderboard.ParseCriterion(r.URL.Query().Get("criterion"))
	if err != nil {
		writeError(w, err)
		return
	}

	n := 10
	if raw := r.URL.Query().Get("n"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			writeError(w, domain.ErrInvalidRequest("n must be a positive integer"))
			return
		}
		n = parsed
	}

	type entry struct {
		Rank  int                `json:"rank"`
		Score float64            `json:"score"`
		Stats *leaderboard.Stats `json:"stats"`
	}
	top := s.board.TopN(n, criterion)
	entries := make([]entry, len(top))
	for i, stats := range top {
		entries[i] = entry{Rank: i + 1, Score: criterion.Score(stats), Stats: stats}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"criterion": criterion,
		"entries":   entries,
	})
}

func (s *Server) handleLeaderboardRender(w http.ResponseWriter, r *http.Request) {
	criterion, err := leaderboard.ParseCriterion(r.URL.Query().Get("criterion"))
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(s.board.Render(criterion)))
}
