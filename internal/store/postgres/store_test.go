package postgres_test

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	pgxvec "github.com/pgvector/pgvector-go/pgx"

	"github.com/meetplot/meetplot/internal/analytics"
	"github.com/meetplot/meetplot/internal/store"
	"github.com/meetplot/meetplot/internal/store/postgres"
	"github.com/meetplot/meetplot/internal/transcript"
)

const testEmbeddingDim = 4

// testDSN returns the test database DSN from the environment, or skips the
// test if MEETPLOT_TEST_POSTGRES_DSN is not set.
func testDSN(t *testing.T) string {
	t.Helper()
	dsn := os.Getenv("MEETPLOT_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("MEETPLOT_TEST_POSTGRES_DSN not set — skipping PostgreSQL integration tests")
	}
	return dsn
}

// newTestStore creates a fresh [postgres.Store] with a clean schema.
// It calls t.Cleanup to close the store when the test finishes.
func newTestStore(t *testing.T) *postgres.Store {
	t.Helper()
	dsn := testDSN(t)
	ctx := context.Background()

	// Use a bare pool to drop and recreate the schema.
	cleanPool := mustPool(t, ctx, dsn)
	t.Cleanup(cleanPool.Close)
	dropSchema(t, ctx, cleanPool)

	st, err := postgres.NewStore(ctx, dsn, testEmbeddingDim)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	t.Cleanup(st.Close)
	return st
}

// mustPool opens a pgxpool with pgvector types registered (needed for the
// HNSW index to not refuse our connection during dropSchema).
func mustPool(t *testing.T, ctx context.Context, dsn string) *pgxpool.Pool {
	t.Helper()
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	cfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		// best-effort: pgvector may not be installed yet on a fresh DB
		_ = pgxvec.RegisterTypes(ctx, conn)
		return nil
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		t.Fatalf("pool: %v", err)
	}
	return pool
}

// dropSchema removes all tables created by Migrate in reverse dependency
// order.
func dropSchema(t *testing.T, ctx context.Context, pool *pgxpool.Pool) {
	t.Helper()
	for _, stmt := range []string{
		"DROP TABLE IF EXISTS segment_embeddings CASCADE",
		"DROP TABLE IF EXISTS speaker_stats CASCADE",
		"DROP TABLE IF EXISTS segments CASCADE",
		"DROP TABLE IF EXISTS analyses CASCADE",
	} {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			t.Fatalf("dropSchema %q: %v", stmt, err)
		}
	}
}

// sampleAnalysis builds a small but complete analysis for round-trip tests.
func sampleAnalysis(id string) store.Analysis {
	tl := &transcript.Timeline{
		Segments: []transcript.Segment{
			{Index: 0, Speaker: "Alice", Start: 0, End: 2 * time.Second, Text: "Shall we review the budget today?", WordCount: 6, IsQuestion: true},
			{Index: 1, Speaker: "Bob", Start: 3 * time.Second, End: 6 * time.Second, Text: "The budget numbers look solid to me.", WordCount: 7},
			{Index: 2, Speaker: "Alice", Start: 7 * time.Second, End: 9 * time.Second, Text: "Great, then the rollout can proceed.", WordCount: 6},
		},
		Duration: 9 * time.Second,
	}
	return store.Analysis{
		ID:       id,
		Title:    "Weekly sync",
		Timeline: tl,
		Stats:    analytics.SpeakerStatistics(tl),
		Graph:    analytics.BuildInteractionGraph(tl),
		Warnings: []string{"reordered 1 cue with out-of-order timestamp"},
	}
}

func TestSaveAndGetAnalysis(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	want := sampleAnalysis("analysis-1")
	if err := st.SaveAnalysis(ctx, want); err != nil {
		t.Fatalf("SaveAnalysis: %v", err)
	}

	got, err := st.GetAnalysis(ctx, "analysis-1")
	if err != nil {
		t.Fatalf("GetAnalysis: %v", err)
	}
	if got.Title != want.Title {
		t.Errorf("Title: want %q, got %q", want.Title, got.Title)
	}
	if got.Timeline.Duration != want.Timeline.Duration {
		t.Errorf("Duration: want %v, got %v", want.Timeline.Duration, got.Timeline.Duration)
	}
	if len(got.Timeline.Segments) != len(want.Timeline.Segments) {
		t.Fatalf("segments: want %d, got %d", len(want.Timeline.Segments), len(got.Timeline.Segments))
	}
	for i, seg := range got.Timeline.Segments {
		if seg != want.Timeline.Segments[i] {
			t.Errorf("segment %d: want %+v, got %+v", i, want.Timeline.Segments[i], seg)
		}
	}
	if len(got.Stats) != 2 {
		t.Fatalf("stats: want 2 speakers, got %d", len(got.Stats))
	}
	alice := got.Stats["Alice"]
	if alice.TurnCount != 2 || alice.QuestionCount != 1 || alice.TotalTalkTime != 4*time.Second {
		t.Errorf("Alice stats: got %+v", alice)
	}
	if got.Graph == nil {
		t.Fatal("Graph: want non-nil")
	}
	if len(got.Graph.Nodes) != 2 {
		t.Errorf("Graph.Nodes: want 2, got %d", len(got.Graph.Nodes))
	}
	if w := got.Graph.Weight("Alice", "Bob"); w != 1 {
		t.Errorf("Weight(Alice, Bob): want 1, got %d", w)
	}
	if len(got.Warnings) != 1 || !strings.Contains(got.Warnings[0], "reordered") {
		t.Errorf("Warnings: got %v", got.Warnings)
	}
	if got.CreatedAt.IsZero() {
		t.Error("CreatedAt: want non-zero")
	}
}

func TestGetAnalysis_NotFound(t *testing.T) {
	st := newTestStore(t)

	_, err := st.GetAnalysis(context.Background(), "no-such-analysis")
	if !errors.Is(err, store.ErrNotFound) {
		t.Errorf("want store.ErrNotFound, got %v", err)
	}
}

func TestSaveAnalysis_DuplicateIDFails(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	a := sampleAnalysis("dup-1")
	if err := st.SaveAnalysis(ctx, a); err != nil {
		t.Fatalf("first SaveAnalysis: %v", err)
	}
	if err := st.SaveAnalysis(ctx, a); err == nil {
		t.Error("second SaveAnalysis with same ID: want error, got nil")
	}
}

func TestListAnalyses(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	now := time.Now()
	for i, id := range []string{"list-1", "list-2", "list-3"} {
		a := sampleAnalysis(id)
		a.CreatedAt = now.Add(time.Duration(i) * time.Minute)
		if err := st.SaveAnalysis(ctx, a); err != nil {
			t.Fatalf("SaveAnalysis %s: %v", id, err)
		}
	}

	all, err := st.ListAnalyses(ctx, 0)
	if err != nil {
		t.Fatalf("ListAnalyses: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("want 3 summaries, got %d", len(all))
	}
	// Newest first.
	if all[0].ID != "list-3" || all[2].ID != "list-1" {
		t.Errorf("order: got %s, %s, %s", all[0].ID, all[1].ID, all[2].ID)
	}
	if all[0].SegmentCount != 3 || all[0].Duration != 9*time.Second {
		t.Errorf("summary: got %+v", all[0])
	}

	limited, err := st.ListAnalyses(ctx, 2)
	if err != nil {
		t.Fatalf("ListAnalyses(2): %v", err)
	}
	if len(limited) != 2 {
		t.Errorf("limit 2: want 2, got %d", len(limited))
	}
}

func TestSearchSegments(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	if err := st.SaveAnalysis(ctx, sampleAnalysis("search-1")); err != nil {
		t.Fatalf("SaveAnalysis: %v", err)
	}

	tests := []struct {
		name      string
		query     string
		opts      store.SearchOpts
		wantCount int
		wantText  string
	}{
		{
			name:      "budget matches two segments",
			query:     "budget",
			opts:      store.SearchOpts{AnalysisID: "search-1"},
			wantCount: 2,
			wantText:  "budget",
		},
		{
			name:      "speaker filter",
			query:     "budget",
			opts:      store.SearchOpts{AnalysisID: "search-1", Speaker: "Bob"},
			wantCount: 1,
			wantText:  "numbers look solid",
		},
		{
			name:      "questions only",
			query:     "budget",
			opts:      store.SearchOpts{AnalysisID: "search-1", QuestionsOnly: true},
			wantCount: 1,
			wantText:  "Shall we review",
		},
		{
			name:      "no match",
			query:     "kubernetes",
			opts:      store.SearchOpts{AnalysisID: "search-1"},
			wantCount: 0,
		},
		{
			name:      "limit",
			query:     "budget",
			opts:      store.SearchOpts{AnalysisID: "search-1", Limit: 1},
			wantCount: 1,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			hits, err := st.SearchSegments(ctx, tc.query, tc.opts)
			if err != nil {
				t.Fatalf("SearchSegments: %v", err)
			}
			if len(hits) != tc.wantCount {
				t.Fatalf("want %d hits, got %d", tc.wantCount, len(hits))
			}
			if tc.wantText != "" && !strings.Contains(hits[0].Segment.Text, tc.wantText) {
				t.Errorf("want text containing %q, got %q", tc.wantText, hits[0].Segment.Text)
			}
		})
	}
}

func TestSemanticIndex_SearchOrdersByDistance(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	if err := st.SaveAnalysis(ctx, sampleAnalysis("sem-1")); err != nil {
		t.Fatalf("SaveAnalysis: %v", err)
	}

	sem := st.Semantic()
	embeddings := []store.SegmentEmbedding{
		{AnalysisID: "sem-1", Index: 0, Embedding: []float32{1, 0, 0, 0}},
		{AnalysisID: "sem-1", Index: 1, Embedding: []float32{0, 1, 0, 0}},
		{AnalysisID: "sem-1", Index: 2, Embedding: []float32{0.9, 0.1, 0, 0}},
	}
	for _, emb := range embeddings {
		if err := sem.IndexSegment(ctx, emb); err != nil {
			t.Fatalf("IndexSegment %d: %v", emb.Index, err)
		}
	}

	hits, err := sem.Search(ctx, []float32{1, 0, 0, 0}, 2, store.SemanticFilter{AnalysisID: "sem-1"})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(hits) != 2 {
		t.Fatalf("want 2 hits, got %d", len(hits))
	}
	// Exact match first, then the near-parallel vector.
	if hits[0].Index != 0 || hits[1].Index != 2 {
		t.Errorf("order: got indexes %d, %d", hits[0].Index, hits[1].Index)
	}
	if hits[0].Distance > hits[1].Distance {
		t.Errorf("distances not ascending: %v, %v", hits[0].Distance, hits[1].Distance)
	}
	if hits[0].Speaker != "Alice" || !strings.Contains(hits[0].Text, "budget") {
		t.Errorf("joined segment data: got %+v", hits[0])
	}
}

func TestSemanticIndex_UpsertReplaces(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	if err := st.SaveAnalysis(ctx, sampleAnalysis("upsert-1")); err != nil {
		t.Fatalf("SaveAnalysis: %v", err)
	}

	sem := st.Semantic()
	if err := sem.IndexSegment(ctx, store.SegmentEmbedding{AnalysisID: "upsert-1", Index: 0, Embedding: []float32{1, 0, 0, 0}}); err != nil {
		t.Fatalf("IndexSegment: %v", err)
	}
	if err := sem.IndexSegment(ctx, store.SegmentEmbedding{AnalysisID: "upsert-1", Index: 0, Embedding: []float32{0, 0, 0, 1}}); err != nil {
		t.Fatalf("IndexSegment upsert: %v", err)
	}

	hits, err := sem.Search(ctx, []float32{0, 0, 0, 1}, 1, store.SemanticFilter{AnalysisID: "upsert-1"})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(hits) != 1 || hits[0].Index != 0 {
		t.Fatalf("want segment 0, got %+v", hits)
	}
	if hits[0].Distance > 0.001 {
		t.Errorf("want near-zero distance after upsert, got %v", hits[0].Distance)
	}
}

func TestSaveAnalysis_Validation(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	if err := st.SaveAnalysis(ctx, store.Analysis{Timeline: &transcript.Timeline{}}); err == nil {
		t.Error("empty ID: want error, got nil")
	}
	if err := st.SaveAnalysis(ctx, store.Analysis{ID: "x"}); err == nil {
		t.Error("nil timeline: want error, got nil")
	}
}
