package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	pgvector "github.com/pgvector/pgvector-go"

	"github.com/meetplot/meetplot/internal/store"
)

// SemanticIndexImpl stores segment embeddings in the segment_embeddings
// table; an HNSW index over the vector column keeps nearest-neighbour
// queries fast as meetings accumulate.
//
// Obtain one via [Store.Semantic] rather than constructing directly.
// All methods are safe for concurrent use.
type SemanticIndexImpl struct {
	pool *pgxpool.Pool
}

// IndexSegment implements [store.SemanticIndex]. It upserts the embedding
// for one stored segment. If an embedding for the same segment already
// exists it is replaced.
func (s *SemanticIndexImpl) IndexSegment(ctx context.Context, emb store.SegmentEmbedding) error {
	const q = `
		INSERT INTO segment_embeddings (analysis_id, idx, embedding)
		VALUES ($1, $2, $3)
		ON CONFLICT (analysis_id, idx) DO UPDATE SET
		    embedding = EXCLUDED.embedding`

	vec := pgvector.NewVector(emb.Embedding)
	_, err := s.pool.Exec(ctx, q, emb.AnalysisID, emb.Index, vec)
	if err != nil {
		return fmt.Errorf("semantic index: index segment: %w", err)
	}
	return nil
}

// Search implements [store.SemanticIndex]. It finds the topK segments whose
// embeddings are closest (cosine distance) to the supplied query embedding,
// optionally scoped by filter. Segment speaker and text come from a join
// against the segments table.
//
// Results are ordered by ascending cosine distance (most similar first).
func (s *SemanticIndexImpl) Search(ctx context.Context, embedding []float32, topK int, filter store.SemanticFilter) ([]store.SemanticHit, error) {
	queryVec := pgvector.NewVector(embedding)

	args := []any{queryVec} // $1 = query vector
	next := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	var conditions []string
	if filter.AnalysisID != "" {
		conditions = append(conditions, "e.analysis_id = "+next(filter.AnalysisID))
	}
	if filter.Speaker != "" {
		conditions = append(conditions, "s.speaker = "+next(filter.Speaker))
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = "WHERE " + strings.Join(conditions, "\n  AND ")
	}

	args = append(args, topK)
	limitArg := fmt.Sprintf("$%d", len(args))

	q := fmt.Sprintf(`
		SELECT e.analysis_id, e.idx, s.speaker, s.text,
		       e.embedding <=> $1 AS distance
		FROM   segment_embeddings e
		JOIN   segments s
		  ON   s.analysis_id = e.analysis_id AND s.idx = e.idx
		%s
		ORDER  BY distance
		LIMIT  %s`, whereClause, limitArg)

	rows, err := s.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("semantic index: search: %w", err)
	}

	hits, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (store.SemanticHit, error) {
		var hit store.SemanticHit
		if err := row.Scan(
			&hit.AnalysisID,
			&hit.Index,
			&hit.Speaker,
			&hit.Text,
			&hit.Distance,
		); err != nil {
			return store.SemanticHit{}, err
		}
		return hit, nil
	})
	if err != nil {
		return nil, fmt.Errorf("semantic index: scan rows: %w", err)
	}
	if hits == nil {
		hits = []store.SemanticHit{}
	}
	return hits, nil
}
