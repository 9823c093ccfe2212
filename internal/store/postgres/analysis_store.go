package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/meetplot/meetplot/internal/analytics"
	"github.com/meetplot/meetplot/internal/store"
	"github.com/meetplot/meetplot/internal/transcript"
)

// SaveAnalysis implements [store.AnalysisStore]. The analysis row, its
// segments, and its speaker statistics are written in a single transaction;
// either all of them land or none do.
func (s *Store) SaveAnalysis(ctx context.Context, a store.Analysis) error {
	if a.ID == "" {
		return errors.New("postgres store: save analysis: empty id")
	}
	if a.Timeline == nil {
		return errors.New("postgres store: save analysis: nil timeline")
	}

	warnings, err := json.Marshal(a.Warnings)
	if err != nil {
		return fmt.Errorf("postgres store: save analysis: marshal warnings: %w", err)
	}
	graph := a.Graph
	if graph == nil {
		graph = &analytics.InteractionGraph{}
	}
	graphJSON, err := json.Marshal(graph)
	if err != nil {
		return fmt.Errorf("postgres store: save analysis: marshal graph: %w", err)
	}

	createdAt := a.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	err = pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		const insertAnalysis = `
			INSERT INTO analyses
			    (id, title, duration_ns, segment_count, warnings, graph, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)`

		if _, err := tx.Exec(ctx, insertAnalysis,
			a.ID,
			a.Title,
			a.Timeline.Duration.Nanoseconds(),
			len(a.Timeline.Segments),
			warnings,
			graphJSON,
			createdAt,
		); err != nil {
			return fmt.Errorf("insert analysis: %w", err)
		}

		const insertSegment = `
			INSERT INTO segments
			    (analysis_id, idx, speaker, start_ns, end_ns, text, word_count, is_question)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

		for _, seg := range a.Timeline.Segments {
			if _, err := tx.Exec(ctx, insertSegment,
				a.ID,
				seg.Index,
				seg.Speaker,
				seg.Start.Nanoseconds(),
				seg.End.Nanoseconds(),
				seg.Text,
				seg.WordCount,
				seg.IsQuestion,
			); err != nil {
				return fmt.Errorf("insert segment %d: %w", seg.Index, err)
			}
		}

		const insertStats = `
			INSERT INTO speaker_stats
			    (analysis_id, speaker, talk_time_ns, turn_count, word_count, question_count)
			VALUES ($1, $2, $3, $4, $5, $6)`

		for _, st := range a.Stats {
			if _, err := tx.Exec(ctx, insertStats,
				a.ID,
				st.Speaker,
				st.TotalTalkTime.Nanoseconds(),
				st.TurnCount,
				st.WordCount,
				st.QuestionCount,
			); err != nil {
				return fmt.Errorf("insert stats for %q: %w", st.Speaker, err)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("postgres store: save analysis: %w", err)
	}
	return nil
}

// GetAnalysis implements [store.AnalysisStore].
func (s *Store) GetAnalysis(ctx context.Context, id string) (store.Analysis, error) {
	const selectAnalysis = `
		SELECT title, duration_ns, warnings, graph, created_at
		FROM   analyses
		WHERE  id = $1`

	var (
		a          = store.Analysis{ID: id}
		durationNS int64
		warnings   []byte
		graphJSON  []byte
	)
	err := s.pool.QueryRow(ctx, selectAnalysis, id).Scan(
		&a.Title,
		&durationNS,
		&warnings,
		&graphJSON,
		&a.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return store.Analysis{}, store.ErrNotFound
	}
	if err != nil {
		return store.Analysis{}, fmt.Errorf("postgres store: get analysis: %w", err)
	}

	if err := json.Unmarshal(warnings, &a.Warnings); err != nil {
		return store.Analysis{}, fmt.Errorf("postgres store: get analysis: unmarshal warnings: %w", err)
	}
	var graph analytics.InteractionGraph
	if err := json.Unmarshal(graphJSON, &graph); err != nil {
		return store.Analysis{}, fmt.Errorf("postgres store: get analysis: unmarshal graph: %w", err)
	}
	a.Graph = &graph

	segments, err := s.loadSegments(ctx, id)
	if err != nil {
		return store.Analysis{}, err
	}
	a.Timeline = &transcript.Timeline{
		Segments: segments,
		Duration: time.Duration(durationNS),
	}

	stats, err := s.loadStats(ctx, id)
	if err != nil {
		return store.Analysis{}, err
	}
	a.Stats = stats

	return a, nil
}

func (s *Store) loadSegments(ctx context.Context, id string) ([]transcript.Segment, error) {
	const q = `
		SELECT idx, speaker, start_ns, end_ns, text, word_count, is_question
		FROM   segments
		WHERE  analysis_id = $1
		ORDER  BY idx`

	rows, err := s.pool.Query(ctx, q, id)
	if err != nil {
		return nil, fmt.Errorf("postgres store: load segments: %w", err)
	}
	segments, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (transcript.Segment, error) {
		var (
			seg            transcript.Segment
			startNS, endNS int64
		)
		if err := row.Scan(
			&seg.Index,
			&seg.Speaker,
			&startNS,
			&endNS,
			&seg.Text,
			&seg.WordCount,
			&seg.IsQuestion,
		); err != nil {
			return transcript.Segment{}, err
		}
		seg.Start = time.Duration(startNS)
		seg.End = time.Duration(endNS)
		return seg, nil
	})
	if err != nil {
		return nil, fmt.Errorf("postgres store: scan segments: %w", err)
	}
	return segments, nil
}

func (s *Store) loadStats(ctx context.Context, id string) (map[string]analytics.SpeakerStats, error) {
	const q = `
		SELECT speaker, talk_time_ns, turn_count, word_count, question_count
		FROM   speaker_stats
		WHERE  analysis_id = $1`

	rows, err := s.pool.Query(ctx, q, id)
	if err != nil {
		return nil, fmt.Errorf("postgres store: load stats: %w", err)
	}
	defer rows.Close()

	stats := make(map[string]analytics.SpeakerStats)
	for rows.Next() {
		var (
			st         analytics.SpeakerStats
			talkTimeNS int64
		)
		if err := rows.Scan(
			&st.Speaker,
			&talkTimeNS,
			&st.TurnCount,
			&st.WordCount,
			&st.QuestionCount,
		); err != nil {
			return nil, fmt.Errorf("postgres store: scan stats: %w", err)
		}
		st.TotalTalkTime = time.Duration(talkTimeNS)
		stats[st.Speaker] = st
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres store: scan stats: %w", err)
	}
	return stats, nil
}

// ListAnalyses implements [store.AnalysisStore].
func (s *Store) ListAnalyses(ctx context.Context, limit int) ([]store.AnalysisSummary, error) {
	q := `
		SELECT id, title, duration_ns, segment_count, created_at
		FROM   analyses
		ORDER  BY created_at DESC`

	args := []any{}
	if limit > 0 {
		args = append(args, limit)
		q += fmt.Sprintf("\nLIMIT $%d", len(args))
	}

	rows, err := s.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres store: list analyses: %w", err)
	}
	summaries, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (store.AnalysisSummary, error) {
		var (
			sum        store.AnalysisSummary
			durationNS int64
		)
		if err := row.Scan(
			&sum.ID,
			&sum.Title,
			&durationNS,
			&sum.SegmentCount,
			&sum.CreatedAt,
		); err != nil {
			return store.AnalysisSummary{}, err
		}
		sum.Duration = time.Duration(durationNS)
		return sum, nil
	})
	if err != nil {
		return nil, fmt.Errorf("postgres store: scan summaries: %w", err)
	}
	if summaries == nil {
		summaries = []store.AnalysisSummary{}
	}
	return summaries, nil
}

// SearchSegments implements [store.AnalysisStore]. It performs a PostgreSQL
// full-text search over the text column and applies optional filters from
// opts.
//
// The query is passed to plainto_tsquery so no special operator syntax is
// required.
func (s *Store) SearchSegments(ctx context.Context, query string, opts store.SearchOpts) ([]store.SegmentHit, error) {
	args := []any{query} // $1 = FTS query string
	next := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	conditions := []string{
		"to_tsvector('english', text) @@ plainto_tsquery('english', $1)",
	}
	if opts.AnalysisID != "" {
		conditions = append(conditions, "analysis_id = "+next(opts.AnalysisID))
	}
	if opts.Speaker != "" {
		conditions = append(conditions, "speaker = "+next(opts.Speaker))
	}
	if opts.QuestionsOnly {
		conditions = append(conditions, "is_question")
	}

	q := "SELECT analysis_id, idx, speaker, start_ns, end_ns, text, word_count, is_question\n" +
		"FROM   segments\n" +
		"WHERE  " + strings.Join(conditions, "\n  AND  ") + "\n" +
		"ORDER  BY analysis_id, idx"

	if opts.Limit > 0 {
		args = append(args, opts.Limit)
		q += fmt.Sprintf("\nLIMIT $%d", len(args))
	}

	rows, err := s.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres store: search segments: %w", err)
	}
	hits, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (store.SegmentHit, error) {
		var (
			hit            store.SegmentHit
			startNS, endNS int64
		)
		if err := row.Scan(
			&hit.AnalysisID,
			&hit.Segment.Index,
			&hit.Segment.Speaker,
			&startNS,
			&endNS,
			&hit.Segment.Text,
			&hit.Segment.WordCount,
			&hit.Segment.IsQuestion,
		); err != nil {
			return store.SegmentHit{}, err
		}
		hit.Segment.Start = time.Duration(startNS)
		hit.Segment.End = time.Duration(endNS)
		return hit, nil
	})
	if err != nil {
		return nil, fmt.Errorf("postgres store: scan hits: %w", err)
	}
	if hits == nil {
		hits = []store.SegmentHit{}
	}
	return hits, nil
}
