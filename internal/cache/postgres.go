package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"time"

	_ "github.com/lib/pq"
	"github.com/pgvector/pgvector-go"

	"github.com/facegallery/facegallery/internal/config"
)

// PostgresStore keeps the snapshot in PostgreSQL with face embeddings in a
// pgvector column, which makes the face data queryable outside the gallery
// (ad-hoc similarity SQL, backups). The Store contract is identical to the
// file store: one whole snapshot at a time, fingerprint-validated.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore opens a connection pool and runs migrations.
func NewPostgresStore(cfg *config.CacheConfig) (*PostgresStore, error) {
	if cfg.DatabaseURL == "" {
		return nil, errors.New("database URL is required")
	}

	db, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(time.Hour)
	db.SetConnMaxIdleTime(10 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	store := &PostgresStore{db: db}
	if err := store.migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

// Close closes the connection pool.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}

// Clear drops the stored snapshot. Photo and face rows cascade.
func (s *PostgresStore) Clear() error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if _, err := s.db.ExecContext(ctx, `DELETE FROM snapshots`); err != nil {
		return fmt.Errorf("clearing snapshot: %w", err)
	}
	return nil
}

func (s *PostgresStore) migrate(ctx context.Context) error {
	statements := []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,
		`CREATE TABLE IF NOT EXISTS snapshots (
			id SERIAL PRIMARY KEY,
			version INTEGER NOT NULL,
			fingerprint TEXT NOT NULL,
			created_at BIGINT NOT NULL,
			detector TEXT NOT NULL DEFAULT '',
			jitter INTEGER NOT NULL DEFAULT 1,
			tolerance DOUBLE PRECISION NOT NULL DEFAULT 0,
			min_cluster_size INTEGER NOT NULL DEFAULT 1
		)`,
		`CREATE TABLE IF NOT EXISTS snapshot_photos (
			id SERIAL PRIMARY KEY,
			snapshot_id INTEGER NOT NULL REFERENCES snapshots(id) ON DELETE CASCADE,
			photo_id TEXT NOT NULL,
			size BIGINT NOT NULL DEFAULT 0
		)`,
		`CREATE TABLE IF NOT EXISTS snapshot_faces (
			id SERIAL PRIMARY KEY,
			photo_ref INTEGER NOT NULL REFERENCES snapshot_photos(id) ON DELETE CASCADE,
			face_index INTEGER NOT NULL,
			top_px INTEGER NOT NULL,
			right_px INTEGER NOT NULL,
			bottom_px INTEGER NOT NULL,
			left_px INTEGER NOT NULL,
			embedding vector,
			score DOUBLE PRECISION NOT NULL,
			cluster INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_snapshot_photos_snapshot ON snapshot_photos(snapshot_id)`,
		`CREATE INDEX IF NOT EXISTS idx_snapshot_faces_photo ON snapshot_faces(photo_ref)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}
	return nil
}

// Load reads the most recent snapshot. Missing or version-mismatched rows
// surface as ErrNotFound, the same as the file store.
func (s *PostgresStore) Load(ctx context.Context) (*Record, error) {
	rec := &Record{}
	var snapshotID int64
	err := s.db.QueryRowContext(ctx, `
		SELECT id, version, fingerprint, created_at, detector, jitter, tolerance, min_cluster_size
		FROM snapshots ORDER BY id DESC LIMIT 1
	`).Scan(&snapshotID, &rec.Version, &rec.Fingerprint, &rec.CreatedAt,
		&rec.Detector, &rec.Jitter, &rec.Tolerance, &rec.MinClusterSize)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("loading snapshot: %w", err)
	}
	if rec.Version != RecordVersion {
		log.Printf("cache: stored snapshot has version %d, want %d, forcing recompute", rec.Version, RecordVersion)
		return nil, ErrNotFound
	}

	photoIdx := map[int64]int{}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, photo_id, size FROM snapshot_photos
		WHERE snapshot_id = $1 ORDER BY photo_id
	`, snapshotID)
	if err != nil {
		return nil, fmt.Errorf("loading snapshot photos: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id int64
		var photo PhotoRecord
		if err := rows.Scan(&id, &photo.ID, &photo.Size); err != nil {
			return nil, fmt.Errorf("scanning snapshot photo: %w", err)
		}
		photoIdx[id] = len(rec.Photos)
		rec.Photos = append(rec.Photos, photo)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating snapshot photos: %w", err)
	}

	faceRows, err := s.db.QueryContext(ctx, `
		SELECT f.photo_ref, f.top_px, f.right_px, f.bottom_px, f.left_px, f.embedding, f.score, f.cluster
		FROM snapshot_faces f
		JOIN snapshot_photos p ON p.id = f.photo_ref
		WHERE p.snapshot_id = $1
		ORDER BY p.photo_id, f.face_index
	`, snapshotID)
	if err != nil {
		return nil, fmt.Errorf("loading snapshot faces: %w", err)
	}
	defer faceRows.Close()

	for faceRows.Next() {
		var photoRef int64
		var face FaceRecord
		var emb pgvector.Vector
		if err := faceRows.Scan(&photoRef, &face.Box.Top, &face.Box.Right, &face.Box.Bottom,
			&face.Box.Left, &emb, &face.Score, &face.Cluster); err != nil {
			return nil, fmt.Errorf("scanning snapshot face: %w", err)
		}
		face.Embedding = emb.Slice()
		idx, ok := photoIdx[photoRef]
		if !ok {
			continue
		}
		rec.Photos[idx].Faces = append(rec.Photos[idx].Faces, face)
	}
	if err := faceRows.Err(); err != nil {
		return nil, fmt.Errorf("iterating snapshot faces: %w", err)
	}

	return rec, nil
}

// Save replaces the stored snapshot in a single transaction, so readers see
// either the old snapshot or the new one.
func (s *PostgresStore) Save(ctx context.Context, rec *Record) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning snapshot transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM snapshots`); err != nil {
		return fmt.Errorf("clearing previous snapshot: %w", err)
	}

	var snapshotID int64
	err = tx.QueryRowContext(ctx, `
		INSERT INTO snapshots (version, fingerprint, created_at, detector, jitter, tolerance, min_cluster_size)
		VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id
	`, rec.Version, rec.Fingerprint, rec.CreatedAt, rec.Detector, rec.Jitter,
		rec.Tolerance, rec.MinClusterSize).Scan(&snapshotID)
	if err != nil {
		return fmt.Errorf("inserting snapshot: %w", err)
	}

	for _, photo := range rec.Photos {
		var photoRef int64
		err = tx.QueryRowContext(ctx, `
			INSERT INTO snapshot_photos (snapshot_id, photo_id, size)
			VALUES ($1, $2, $3) RETURNING id
		`, snapshotID, photo.ID, photo.Size).Scan(&photoRef)
		if err != nil {
			return fmt.Errorf("inserting photo %s: %w", photo.ID, err)
		}

		for i, face := range photo.Faces {
			if err := insertFace(ctx, tx, photoRef, i, face); err != nil {
				return fmt.Errorf("inserting face %d of %s: %w", i, photo.ID, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing snapshot: %w", err)
	}
	return nil
}

func insertFace(ctx context.Context, tx *sql.Tx, photoRef int64, index int, face FaceRecord) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO snapshot_faces (photo_ref, face_index, top_px, right_px, bottom_px, left_px, embedding, score, cluster)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, photoRef, index, face.Box.Top, face.Box.Right, face.Box.Bottom, face.Box.Left,
		pgvector.NewVector(face.Embedding), face.Score, face.Cluster)
	return err
}
