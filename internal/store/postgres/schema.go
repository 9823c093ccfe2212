// Package postgres provides the PostgreSQL-backed implementation of the
// meetplot persistence interfaces ([store.AnalysisStore] and
// [store.SemanticIndex]).
//
// Both layers share a single [pgxpool.Pool] connection pool. The pgvector
// extension must be available in the target database; [Migrate] installs it
// automatically via CREATE EXTENSION IF NOT EXISTS.
//
// Usage:
//
//	st, err := postgres.NewStore(ctx, dsn, 1536)
//	if err != nil { … }
//
//	_ = st.SaveAnalysis(ctx, analysis)
//	_ = st.Semantic().IndexSegment(ctx, emb)
package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

const ddlAnalyses = `
CREATE TABLE IF NOT EXISTS analyses (
    id            TEXT         PRIMARY KEY,
    title         TEXT         NOT NULL DEFAULT '',
    duration_ns   BIGINT       NOT NULL DEFAULT 0,
    segment_count INTEGER      NOT NULL DEFAULT 0,
    warnings      JSONB        NOT NULL DEFAULT '[]',
    graph         JSONB        NOT NULL DEFAULT '{}',
    created_at    TIMESTAMPTZ  NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_analyses_created_at
    ON analyses (created_at);

CREATE TABLE IF NOT EXISTS segments (
    analysis_id TEXT     NOT NULL REFERENCES analyses (id) ON DELETE CASCADE,
    idx         INTEGER  NOT NULL,
    speaker     TEXT     NOT NULL,
    start_ns    BIGINT   NOT NULL,
    end_ns      BIGINT   NOT NULL,
    text        TEXT     NOT NULL,
    word_count  INTEGER  NOT NULL,
    is_question BOOLEAN  NOT NULL,
    PRIMARY KEY (analysis_id, idx)
);

CREATE INDEX IF NOT EXISTS idx_segments_speaker
    ON segments (speaker);

CREATE INDEX IF NOT EXISTS idx_segments_fts
    ON segments USING GIN (to_tsvector('english', text));

CREATE TABLE IF NOT EXISTS speaker_stats (
    analysis_id    TEXT     NOT NULL REFERENCES analyses (id) ON DELETE CASCADE,
    speaker        TEXT     NOT NULL,
    talk_time_ns   BIGINT   NOT NULL,
    turn_count     INTEGER  NOT NULL,
    word_count     INTEGER  NOT NULL,
    question_count INTEGER  NOT NULL,
    PRIMARY KEY (analysis_id, speaker)
);
`

// ddlEmbeddings returns the embeddings DDL with the vector dimension
// substituted. The dimension is baked into the column type at schema
// creation time.
func ddlEmbeddings(embeddingDimensions int) string {
	return fmt.Sprintf(`
CREATE EXTENSION IF NOT EXISTS vector;

CREATE TABLE IF NOT EXISTS segment_embeddings (
    analysis_id TEXT     NOT NULL,
    idx         INTEGER  NOT NULL,
    embedding   vector(%d),
    PRIMARY KEY (analysis_id, idx),
    FOREIGN KEY (analysis_id, idx)
        REFERENCES segments (analysis_id, idx) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_segment_embeddings_hnsw
    ON segment_embeddings USING hnsw (embedding vector_cosine_ops);
`, embeddingDimensions)
}

// Migrate creates or ensures all required database tables and extensions
// exist. It is idempotent (CREATE TABLE IF NOT EXISTS / CREATE INDEX IF NOT
// EXISTS) and safe to call on every application start.
//
// embeddingDimensions must match the output dimension of the configured
// embedding model (e.g., 1536 for OpenAI text-embedding-3-small). Changing
// this value after the first migration requires a manual schema update.
func Migrate(ctx context.Context, pool *pgxpool.Pool, embeddingDimensions int) error {
	statements := []string{
		ddlAnalyses,
		ddlEmbeddings(embeddingDimensions),
	}

	for _, stmt := range statements {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("postgres migrate: %w", err)
		}
	}
	return nil
}
