package server

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"sort"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/meetplot/meetplot/internal/analytics"
	"github.com/meetplot/meetplot/internal/report"
	"github.com/meetplot/meetplot/internal/store"
	"github.com/meetplot/meetplot/internal/transcript"
)

// createResponse is the body of a successful POST /v1/analyses.
type createResponse struct {
	// ID is the stored analysis ID, empty when persistence is unavailable.
	ID     string         `json:"id,omitempty"`
	Report *report.Report `json:"report"`
}

// analysisResponse is the body of GET /v1/analyses/{id}.
type analysisResponse struct {
	ID        string                      `json:"id"`
	Title     string                      `json:"title"`
	CreatedAt time.Time                   `json:"created_at"`
	Timeline  *transcript.Timeline        `json:"timeline"`
	Stats     []analytics.SpeakerStats    `json:"stats"`
	Graph     *analytics.InteractionGraph `json:"graph"`
	Warnings  []string                    `json:"warnings,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// handleCreateAnalysis parses the uploaded transcript, composes the report,
// and persists the analysis when a store is configured.
//
// Parsing never fails, so a syntactically hopeless upload still yields an
// empty timeline plus warnings rather than an error status. Persistence and
// embedding failures degrade to warnings; the caller always gets a report.
func (s *Server) handleCreateAnalysis(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	s.metrics.ActiveAnalyses.Add(ctx, 1)
	defer s.metrics.ActiveAnalyses.Add(ctx, -1)

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.maxBody))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "transcript exceeds upload limit")
			return
		}
		writeError(w, http.StatusBadRequest, "read body: "+err.Error())
		return
	}
	if len(body) == 0 {
		writeError(w, http.StatusBadRequest, "empty transcript body")
		return
	}

	composer, parseOpts := s.pipeline()

	parseStart := time.Now()
	tl, warnings := transcript.Parse(string(body), parseOpts...)
	s.metrics.RecordParse(ctx, time.Since(parseStart).Seconds(), len(tl.Segments), len(warnings))

	rep := composer.Compose(ctx, tl, warnings)

	resp := createResponse{Report: rep}
	if s.analyses != nil {
		id := uuid.NewString()
		a := store.Analysis{
			ID:       id,
			Title:    r.URL.Query().Get("title"),
			Timeline: tl,
			Stats:    statsMap(rep.Stats),
			Graph:    rep.Graph,
			Warnings: rep.Warnings,
		}
		if err := s.analyses.SaveAnalysis(ctx, a); err != nil {
			s.logger.Error("save analysis failed", "error", err)
			rep.Warnings = append(rep.Warnings, "persistence unavailable: analysis not stored")
		} else {
			resp.ID = id
			s.indexSegments(r, id, tl)
		}
	}

	writeJSON(w, http.StatusCreated, resp)
}

// indexSegments embeds every segment and upserts the vectors into the
// semantic index. Failures are logged only: the analysis is already saved
// and searchable by keyword.
func (s *Server) indexSegments(r *http.Request, id string, tl *transcript.Timeline) {
	if s.embedder == nil || s.semantic == nil || len(tl.Segments) == 0 {
		return
	}
	ctx := r.Context()

	texts := make([]string, len(tl.Segments))
	for i, seg := range tl.Segments {
		texts[i] = seg.Text
	}
	vectors, err := s.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		s.metrics.RecordProviderError(ctx, s.embedder.ModelID(), "embeddings")
		s.logger.Error("embed segments failed", "analysis_id", id, "error", err)
		return
	}
	s.metrics.RecordProviderRequest(ctx, s.embedder.ModelID(), "embeddings", "ok")

	for i, vec := range vectors {
		if i >= len(tl.Segments) {
			break
		}
		emb := store.SegmentEmbedding{
			AnalysisID: id,
			Index:      tl.Segments[i].Index,
			Embedding:  vec,
		}
		if err := s.semantic.IndexSegment(ctx, emb); err != nil {
			s.logger.Error("index segment failed", "analysis_id", id, "index", emb.Index, "error", err)
			return
		}
	}
}

func (s *Server) handleGetAnalysis(w http.ResponseWriter, r *http.Request) {
	if s.analyses == nil {
		writeError(w, http.StatusServiceUnavailable, "no analysis store configured")
		return
	}

	id := r.PathValue("id")
	a, err := s.analyses.GetAnalysis(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "no analysis with id "+id)
		return
	}
	if err != nil {
		s.logger.Error("get analysis failed", "analysis_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "load analysis failed")
		return
	}

	writeJSON(w, http.StatusOK, analysisResponse{
		ID:        a.ID,
		Title:     a.Title,
		CreatedAt: a.CreatedAt,
		Timeline:  a.Timeline,
		Stats:     sortedStats(a.Stats),
		Graph:     a.Graph,
		Warnings:  a.Warnings,
	})
}

func (s *Server) handleListAnalyses(w http.ResponseWriter, r *http.Request) {
	if s.analyses == nil {
		writeError(w, http.StatusServiceUnavailable, "no analysis store configured")
		return
	}

	limit, ok := intParam(w, r, "limit", 0)
	if !ok {
		return
	}
	summaries, err := s.analyses.ListAnalyses(r.Context(), limit)
	if err != nil {
		s.logger.Error("list analyses failed", "error", err)
		writeError(w, http.StatusInternalServerError, "list analyses failed")
		return
	}
	writeJSON(w, http.StatusOK, summaries)
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	if s.analyses == nil {
		writeError(w, http.StatusServiceUnavailable, "no analysis store configured")
		return
	}

	query := r.URL.Query().Get("q")
	if query == "" {
		writeError(w, http.StatusBadRequest, "missing query parameter q")
		return
	}
	limit, ok := intParam(w, r, "limit", 50)
	if !ok {
		return
	}
	opts := store.SearchOpts{
		AnalysisID:    r.URL.Query().Get("analysis_id"),
		Speaker:       r.URL.Query().Get("speaker"),
		QuestionsOnly: r.URL.Query().Get("questions_only") == "true",
		Limit:         limit,
	}

	hits, err := s.analyses.SearchSegments(r.Context(), query, opts)
	if err != nil {
		s.logger.Error("segment search failed", "error", err)
		writeError(w, http.StatusInternalServerError, "search failed")
		return
	}
	writeJSON(w, http.StatusOK, hits)
}

func (s *Server) handleSemanticSearch(w http.ResponseWriter, r *http.Request) {
	if s.semantic == nil || s.embedder == nil {
		writeError(w, http.StatusServiceUnavailable, "semantic search not configured")
		return
	}

	query := r.URL.Query().Get("q")
	if query == "" {
		writeError(w, http.StatusBadRequest, "missing query parameter q")
		return
	}
	topK, ok := intParam(w, r, "top_k", 10)
	if !ok {
		return
	}

	ctx := r.Context()
	vec, err := s.embedder.Embed(ctx, query)
	if err != nil {
		s.metrics.RecordProviderError(ctx, s.embedder.ModelID(), "embeddings")
		s.logger.Error("embed query failed", "error", err)
		writeError(w, http.StatusBadGateway, "embedding provider unavailable")
		return
	}
	s.metrics.RecordProviderRequest(ctx, s.embedder.ModelID(), "embeddings", "ok")

	filter := store.SemanticFilter{
		AnalysisID: r.URL.Query().Get("analysis_id"),
		Speaker:    r.URL.Query().Get("speaker"),
	}
	hits, err := s.semantic.Search(ctx, vec, topK, filter)
	if err != nil {
		s.logger.Error("semantic search failed", "error", err)
		writeError(w, http.StatusInternalServerError, "search failed")
		return
	}
	writeJSON(w, http.StatusOK, hits)
}

// statsMap rebuilds the speaker-keyed map from the report's sorted slice.
func statsMap(stats []analytics.SpeakerStats) map[string]analytics.SpeakerStats {
	m := make(map[string]analytics.SpeakerStats, len(stats))
	for _, st := range stats {
		m[st.Speaker] = st
	}
	return m
}

// sortedStats flattens a stats map into a slice sorted by speaker label.
func sortedStats(stats map[string]analytics.SpeakerStats) []analytics.SpeakerStats {
	out := make([]analytics.SpeakerStats, 0, len(stats))
	for _, st := range stats {
		out = append(out, st)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Speaker < out[j].Speaker })
	return out
}

// intParam parses an optional integer query parameter. On a malformed value
// it writes a 400 response and reports !ok.
func intParam(w http.ResponseWriter, r *http.Request, name string, def int) (int, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		writeError(w, http.StatusBadRequest, "invalid "+name+" parameter")
		return 0, false
	}
	return n, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}
