package archive

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore persists completed interviews in PostgreSQL.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	if err := initSchema(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}

	return &PostgresStore{pool: pool}, nil
}

func initSchema(ctx context.Context, pool *pgxpool.Pool) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS interview_reports (
			id TEXT PRIMARY KEY,
			job_title TEXT NOT NULL,
			job_description TEXT NOT NULL,
			overall_score DOUBLE PRECISION NOT NULL,
			dimension_scores JSONB NOT NULL,
			turn_count INTEGER NOT NULL,
			hired BOOLEAN NOT NULL,
			transcript JSONB NOT NULL,
			completed_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);`,
		`CREATE INDEX IF NOT EXISTS idx_interview_reports_completed ON interview_reports (completed_at);`,
	}

	for _, stmt := range stmts {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("init schema failed on %q: %w", stmt, err)
		}
	}
	return nil
}

func (s *PostgresStore) SaveInterview(ctx context.Context, rec Record) error {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.CompletedAt.IsZero() {
		rec.CompletedAt = time.Now().UTC()
	}

	dims, err := json.Marshal(rec.DimensionScores)
	if err != nil {
		return fmt.Errorf("marshal dimension scores: %w", err)
	}
	transcript, err := json.Marshal(rec.Transcript)
	if err != nil {
		return fmt.Errorf("marshal transcript: %w", err)
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO interview_reports (id, job_title, job_description, overall_score, dimension_scores, turn_count, hired, transcript, completed_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		rec.ID,
		rec.JobTitle,
		rec.JobDescription,
		rec.OverallScore,
		dims,
		rec.TurnCount,
		rec.Hired,
		transcript,
		rec.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("save interview: %w", err)
	}
	return nil
}

func (s *PostgresStore) RecentInterviews(ctx context.Context, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = 10
	}

	rows, err := s.pool.Query(ctx,
		`SELECT id, job_title, job_description, overall_score, dimension_scores, turn_count, hired, transcript, completed_at
		 FROM interview_reports ORDER BY completed_at DESC LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query recent interviews: %w", err)
	}
	defer rows.Close()

	records := make([]Record, 0, limit)
	for rows.Next() {
		var (
			rec        Record
			dims       []byte
			transcript []byte
		)
		if err := rows.Scan(&rec.ID, &rec.JobTitle, &rec.JobDescription, &rec.OverallScore, &dims, &rec.TurnCount, &rec.Hired, &transcript, &rec.CompletedAt); err != nil {
			return nil, fmt.Errorf("scan interview row: %w", err)
		}
		if err := json.Unmarshal(dims, &rec.DimensionScores); err != nil {
			return nil, fmt.Errorf("unmarshal dimension scores: %w", err)
		}
		if err := json.Unmarshal(transcript, &rec.Transcript); err != nil {
			return nil, fmt.Errorf("unmarshal transcript: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate interview rows: %w", err)
	}
	return records, nil
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}
