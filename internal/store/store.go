package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/andresmejia3/facecrop/internal/types"
	"github.com/andresmejia3/facecrop/internal/utils"
)

// PhotoTable holds one row per stored face crop.
const PhotoTable = "photo_table"

// Store manages the PostgreSQL pool and crop record operations.
type Store struct {
	pool  *pgxpool.Pool
	table string // schema-qualified, already sanitized
}

// New opens a pool, pins the schema that holds the photo table and ensures
// the schema is initialized.
func New(ctx context.Context, connString, schema string) (*Store, error) {
	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to reach database: %w", err)
	}

	if schema == "" {
		schema = "public"
	}
	s := &Store{
		pool:  pool,
		table: pgx.Identifier{schema, PhotoTable}.Sanitize(),
	}

	// Initialize schema (Auto-Migration)
	if err := s.initSchema(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to initialize database schema: %w", err)
	}

	return s, nil
}

func (s *Store) initSchema(ctx context.Context, schema string) error {
	query := fmt.Sprintf(`
		CREATE SCHEMA IF NOT EXISTS %[1]s;
		CREATE TABLE IF NOT EXISTS %[2]s (
			id BIGINT PRIMARY KEY,
			original_id TEXT NOT NULL,
			face_id TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS photo_table_original_id_idx ON %[2]s (original_id);
	`, pgx.Identifier{schema}.Sanitize(), s.table)
	_, err := s.pool.Exec(ctx, query)
	return err
}

// Close releases every pooled connection.
func (s *Store) Close() {
	s.pool.Close()
}

// InsertCrop records that faceID was cut from originalID. The id is a fresh
// random 64-bit value; collisions are not retried.
func (s *Store) InsertCrop(ctx context.Context, originalID, faceID string) (types.CropRecord, error) {
	rec := types.CropRecord{
		ID:         utils.RandomID(),
		OriginalID: originalID,
		FaceID:     faceID,
	}
	err := s.pool.QueryRow(ctx,
		`INSERT INTO `+s.table+` (id, original_id, face_id) VALUES ($1, $2, $3) RETURNING created_at`,
		rec.ID, rec.OriginalID, rec.FaceID,
	).Scan(&rec.CreatedAt)
	if err != nil {
		return types.CropRecord{}, fmt.Errorf("insert crop %s: %w", faceID, err)
	}
	return rec, nil
}

// ListCrops returns the crops cut from originalID, oldest first.
// An empty originalID lists every crop.
func (s *Store) ListCrops(ctx context.Context, originalID string) ([]types.CropRecord, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, original_id, face_id, created_at FROM `+s.table+`
		 WHERE $1 = '' OR original_id = $1
		 ORDER BY created_at, id`,
		originalID,
	)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (types.CropRecord, error) {
		var r types.CropRecord
		err := row.Scan(&r.ID, &r.OriginalID, &r.FaceID, &r.CreatedAt)
		return r, err
	})
}

// Reset drops the photo table.
// This is useful for development to force a schema refresh without migrations.
func (s *Store) Reset(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `DROP TABLE IF EXISTS `+s.table)
	return err
}
