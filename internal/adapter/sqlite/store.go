// Package sqlite keeps recommendation history in a local SQLite file.
package sqlite

import (
	"context"
	"embed"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"

	"github.com/couchcryptid/agromind-service/internal/domain"
)

//go:embed migrations/*.sql
var embedMigrations embed.FS

// timeLayout sorts lexicographically in chronological order.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

var _ domain.RecommendationStore = (*Store)(nil)

// Store implements domain.RecommendationStore on SQLite.
type Store struct {
	db *sqlx.DB
}

// Open connects to the SQLite file at path and applies pending migrations.
func Open(path string) (*Store, error) {
	db, err := sqlx.Connect("sqlite", fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", path))
	if err != nil {
		return nil, fmt.Errorf("connecting to sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)

	goose.SetBaseFS(embedMigrations)
	goose.SetLogger(goose.NopLogger())
	if err := goose.SetDialect(string(goose.DialectSQLite3)); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting migration dialect: %w", err)
	}
	if err := goose.Up(db.DB, "migrations"); err != nil {
		db.Close()
		return nil, fmt.Errorf("applying migrations: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("closing sqlite: %w", err)
	}
	return nil
}

// dbRecommendation is a recommendation as stored in the database.
type dbRecommendation struct {
	ID              string  `db:"id"`
	CreatedAt       string  `db:"created_at"`
	Latitude        float64 `db:"latitude"`
	Longitude       float64 `db:"longitude"`
	Location        string  `db:"location"`
	TargetMonth     int     `db:"target_month"`
	SoilType        string  `db:"soil_type"`
	RecommendedCrop string  `db:"recommended_crop"`
	Confidence      float64 `db:"confidence"`
	Payload         string  `db:"payload"`
}

func fromDomain(rec domain.Recommendation) (dbRecommendation, error) {
	payload, err := json.Marshal(rec)
	if err != nil {
		return dbRecommendation{}, fmt.Errorf("encoding recommendation: %w", err)
	}
	return dbRecommendation{
		ID:              rec.ID,
		CreatedAt:       rec.CreatedAt.UTC().Format(timeLayout),
		Latitude:        rec.Latitude,
		Longitude:       rec.Longitude,
		Location:        rec.Location,
		TargetMonth:     rec.TargetMonth,
		SoilType:        rec.SoilType,
		RecommendedCrop: rec.RecommendedCrop,
		Confidence:      rec.Confidence,
		Payload:         string(payload),
	}, nil
}

// Record inserts one recommendation.
func (s *Store) Record(ctx context.Context, rec domain.Recommendation) error {
	row, err := fromDomain(rec)
	if err != nil {
		return err
	}
	const query = `
		INSERT INTO recommendations (
			id, created_at, latitude, longitude, location, target_month,
			soil_type, recommended_crop, confidence, payload
		) VALUES (
			:id, :created_at, :latitude, :longitude, :location, :target_month,
			:soil_type, :recommended_crop, :confidence, :payload
		)`
	if _, err := s.db.NamedExecContext(ctx, query, row); err != nil {
		return fmt.Errorf("inserting recommendation %s: %w", rec.ID, err)
	}
	return nil
}

// Recent returns up to limit recommendations, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]domain.Recommendation, error) {
	var payloads []string
	const query = `SELECT payload FROM recommendations ORDER BY created_at DESC, rowid DESC LIMIT ?`
	if err := s.db.SelectContext(ctx, &payloads, query, limit); err != nil {
		return nil, fmt.Errorf("selecting recommendations: %w", err)
	}

	recs := make([]domain.Recommendation, 0, len(payloads))
	for _, p := range payloads {
		var rec domain.Recommendation
		if err := json.Unmarshal([]byte(p), &rec); err != nil {
			return nil, fmt.Errorf("decoding recommendation: %w", err)
		}
		recs = append(recs, rec)
	}
	return recs, nil
}

// CheckReadiness pings the database.
func (s *Store) CheckReadiness(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	return s.db.PingContext(ctx)
}
