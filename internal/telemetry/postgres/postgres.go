// Package postgres persists navigation decision records to PostgreSQL with
// the pgvector extension, for offline analysis of a presentation session.
package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
	pgxvec "github.com/pgvector/pgvector-go/pgx"

	"github.com/mdonmez/autoso/internal/telemetry"
)

const ddlDecisionLog = `
CREATE EXTENSION IF NOT EXISTS vector;

CREATE TABLE IF NOT EXISTS decision_log (
    id             BIGSERIAL    PRIMARY KEY,
    session_id     TEXT         NOT NULL,
    query          TEXT         NOT NULL,
    chunk_id       TEXT         NOT NULL DEFAULT '',
    chunk_index    INTEGER      NOT NULL DEFAULT 0,
    decision_case  TEXT         NOT NULL,
    fused_score    DOUBLE PRECISION NOT NULL DEFAULT 0,
    semantic_score DOUBLE PRECISION NOT NULL DEFAULT 0,
    phonetic_score DOUBLE PRECISION NOT NULL DEFAULT 0,
    query_embedding %s,
    decided_at     TIMESTAMPTZ  NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_decision_log_session_id
    ON decision_log (session_id);

CREATE INDEX IF NOT EXISTS idx_decision_log_decided_at
    ON decision_log (decided_at);
`

// Migrate creates the decision_log table and the pgvector extension if they
// do not already exist. It is idempotent and safe to call on every start.
//
// embeddingDimensions must match the dimension of the query embeddings
// passed to [Sink.Record]; 0 stores query_embedding as an unconstrained
// vector column.
func Migrate(ctx context.Context, pool *pgxpool.Pool, embeddingDimensions int) error {
	column := "vector"
	if embeddingDimensions > 0 {
		column = fmt.Sprintf("vector(%d)", embeddingDimensions)
	}
	if _, err := pool.Exec(ctx, fmt.Sprintf(ddlDecisionLog, column)); err != nil {
		return fmt.Errorf("telemetry/postgres: migrate: %w", err)
	}
	return nil
}

// Sink is a PostgreSQL-backed [telemetry.Sink]. Obtain one via [NewSink];
// callers that want a non-blocking navigation path should wrap it in a
// [telemetry.AsyncSink] rather than calling Record directly.
type Sink struct {
	pool *pgxpool.Pool
}

var _ telemetry.Sink = (*Sink)(nil)

// NewSink opens a connection pool to dsn, registers pgvector types on every
// connection, and runs [Migrate].
func NewSink(ctx context.Context, dsn string, embeddingDimensions int) (*Sink, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("telemetry/postgres: parse dsn: %w", err)
	}
	cfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		return pgxvec.RegisterTypes(ctx, conn)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("telemetry/postgres: create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("telemetry/postgres: ping: %w", err)
	}
	if err := Migrate(ctx, pool, embeddingDimensions); err != nil {
		pool.Close()
		return nil, err
	}
	return &Sink{pool: pool}, nil
}

// Record implements [telemetry.Sink].
func (s *Sink) Record(ctx context.Context, rec telemetry.DecisionRecord) error {
	const q = `
		INSERT INTO decision_log
		    (session_id, query, chunk_id, chunk_index, decision_case,
		     fused_score, semantic_score, phonetic_score, query_embedding, decided_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	decidedAt := rec.DecidedAt
	if decidedAt.IsZero() {
		decidedAt = time.Now()
	}

	var embedding *pgvector.Vector
	if len(rec.QueryEmbedding) > 0 {
		v := pgvector.NewVector(rec.QueryEmbedding)
		embedding = &v
	}

	_, err := s.pool.Exec(ctx, q,
		rec.SessionID,
		rec.Query,
		rec.ChunkID,
		rec.ChunkIndex,
		rec.Case,
		rec.FusedScore,
		rec.SemanticScore,
		rec.PhoneticScore,
		embedding,
		decidedAt,
	)
	if err != nil {
		return fmt.Errorf("telemetry/postgres: insert decision: %w", err)
	}
	return nil
}

// Close implements [telemetry.Sink].
func (s *Sink) Close() error {
	s.pool.Close()
	return nil
}
