// Package postgres keeps recommendation history in PostgreSQL.
package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/couchcryptid/agromind-service/internal/domain"
)

const schema = `
CREATE TABLE IF NOT EXISTS recommendations (
	id               UUID PRIMARY KEY,
	created_at       TIMESTAMPTZ NOT NULL,
	latitude         DOUBLE PRECISION NOT NULL,
	longitude        DOUBLE PRECISION NOT NULL,
	location         TEXT NOT NULL,
	target_month     SMALLINT NOT NULL,
	soil_type        TEXT NOT NULL,
	recommended_crop TEXT NOT NULL,
	confidence       DOUBLE PRECISION NOT NULL,
	payload          JSONB NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_recommendations_created_at ON recommendations (created_at DESC);
`

var _ domain.RecommendationStore = (*Store)(nil)

// Store implements domain.RecommendationStore on PostgreSQL.
type Store struct {
	pool *pgxpool.Pool
}

// Open connects to the database at dsn and creates the schema if needed.
func Open(ctx context.Context, dsn string) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres: ping: %w", err)
	}
	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres: create schema: %w", err)
	}
	return &Store{pool: pool}, nil
}

// Close releases every pooled connection.
func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

// Record inserts one recommendation.
func (s *Store) Record(ctx context.Context, rec domain.Recommendation) error {
	payload, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("postgres: encode recommendation: %w", err)
	}

	query := `
		INSERT INTO recommendations (
			id, created_at, latitude, longitude, location, target_month,
			soil_type, recommended_crop, confidence, payload
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err = s.pool.Exec(ctx, query,
		rec.ID, rec.CreatedAt, rec.Latitude, rec.Longitude, rec.Location, rec.TargetMonth,
		rec.SoilType, rec.RecommendedCrop, rec.Confidence, payload,
	)
	if err != nil {
		return fmt.Errorf("postgres: failed to save recommendation %s: %w", rec.ID, err)
	}
	return nil
}

// Recent returns up to limit recommendations, newest first. Rows with the same
// timestamp come back in descending id order.
func (s *Store) Recent(ctx context.Context, limit int) ([]domain.Recommendation, error) {
	query := `
		SELECT payload
		FROM recommendations
		ORDER BY created_at DESC, id DESC
		LIMIT $1
	`
	rows, err := s.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to query recommendations: %w", err)
	}
	defer rows.Close()

	results := []domain.Recommendation{}
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("postgres: failed to scan recommendation row: %w", err)
		}
		var rec domain.Recommendation
		if err := json.Unmarshal(payload, &rec); err != nil {
			return nil, fmt.Errorf("postgres: decode recommendation: %w", err)
		}
		results = append(results, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: iterate recommendations: %w", err)
	}
	return results, nil
}

// CheckReadiness pings the database.
func (s *Store) CheckReadiness(ctx context.Context) error {
	return s.pool.Ping(ctx)
}
