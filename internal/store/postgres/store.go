package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	pgxvec "github.com/pgvector/pgvector-go/pgx"

	"github.com/meetplot/meetplot/internal/store"
)

// Compile-time interface checks.
//
// The relational layer is implemented directly on *Store. The semantic index
// lives on a sub-type exposed via [Store.Semantic] so that its Search method
// does not collide with a future relational Search variant.
var (
	_ store.AnalysisStore = (*Store)(nil)
	_ store.SemanticIndex = (*SemanticIndexImpl)(nil)
)

// Store is the central PostgreSQL-backed persistence layer for meetplot. It
// holds a single [pgxpool.Pool] and implements [store.AnalysisStore];
// [Store.Semantic] returns the [store.SemanticIndex] implementation sharing
// the same pool.
//
// All operations are safe for concurrent use.
type Store struct {
	pool     *pgxpool.Pool
	semantic *SemanticIndexImpl
}

// NewStore connects a pool to the PostgreSQL database at dsn, verifies it is
// reachable, and runs [Migrate] so the schema and the pgvector extension
// exist before the first write.
//
// embeddingDimensions fixes the width of the vector column and must match
// the configured embeddings model. Switching models with a different width
// later requires a manual schema change.
func NewStore(ctx context.Context, dsn string, embeddingDimensions int) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres store: parse dsn: %w", err)
	}

	// pgvector types must be registered per connection before any vector
	// column can be scanned or bound.
	cfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		return pgxvec.RegisterTypes(ctx, conn)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("postgres store: create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres store: ping: %w", err)
	}

	if err := Migrate(ctx, pool, embeddingDimensions); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres store: migrate: %w", err)
	}

	return &Store{
		pool:     pool,
		semantic: &SemanticIndexImpl{pool: pool},
	}, nil
}

// Semantic returns the semantic index implementation which satisfies
// [store.SemanticIndex].
func (s *Store) Semantic() *SemanticIndexImpl { return s.semantic }

// Ping reports whether the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.pool.Ping(ctx); err != nil {
		return fmt.Errorf("postgres store: ping: %w", err)
	}
	return nil
}

// Close releases the connection pool. Call it once the Store is no longer
// needed, typically via defer at startup.
func (s *Store) Close() {
	s.pool.Close()
}
