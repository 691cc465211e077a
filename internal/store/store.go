// Package store persists parse results in PostgreSQL. Each file gets a
// pattern-profile vector (pgvector) so files with a similar mix of matched
// patterns can be found again.
package store

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"math"
	"slices"

	"lineparse/internal/parsers"
	"lineparse/internal/textutil"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	pgvector "github.com/pgvector/pgvector-go"
	"github.com/rs/zerolog/log"
)

// Store handles parse result storage and profile similarity search.
type Store struct {
	pool *pgxpool.Pool
	dims int
}

// New creates a store whose profile vectors have dims dimensions.
func New(pool *pgxpool.Pool, dims int) *Store {
	return &Store{pool: pool, dims: dims}
}

// Dimensions returns the profile width.
func (s *Store) Dimensions() int { return s.dims }

// SimilarFile is a stored file ranked by profile similarity.
type SimilarFile struct {
	Path       string
	Kind       string
	Records    int
	Similarity float64
}

// EnsureSchema creates the vector extension and tables.
func (s *Store) EnsureSchema(ctx context.Context) error {
	stmts := []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS parsed_files (
			id         BIGSERIAL PRIMARY KEY,
			path       TEXT NOT NULL UNIQUE,
			kind       TEXT NOT NULL,
			hash       TEXT NOT NULL,
			records    INTEGER NOT NULL,
			profile    vector(%d) NOT NULL,
			parsed_at  TIMESTAMPTZ NOT NULL DEFAULT now()
		)`, s.dims),
		`CREATE TABLE IF NOT EXISTS parsed_records (
			file_id  BIGINT NOT NULL REFERENCES parsed_files(id) ON DELETE CASCADE,
			line     INTEGER NOT NULL,
			pattern  TEXT NOT NULL,
			vals     JSONB,
			fields   JSONB
		)`,
		`CREATE INDEX IF NOT EXISTS parsed_records_pattern_idx ON parsed_records (pattern)`,
	}
	for _, stmt := range stmts {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	log.Info().Int("dimensions", s.dims).Msg("Store schema ensured")
	return nil
}

// Save replaces the stored records of res.FilePath in one transaction and
// returns the file id.
func (s *Store) Save(ctx context.Context, res *parsers.Result, contentHash string) (int64, error) {
	profile := Profile(res.Hits(), s.dims)

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	var id int64
	err = tx.QueryRow(ctx, `
		INSERT INTO parsed_files (path, kind, hash, records, profile)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (path) DO UPDATE
		SET kind = EXCLUDED.kind, hash = EXCLUDED.hash, records = EXCLUDED.records,
		    profile = EXCLUDED.profile, parsed_at = now()
		RETURNING id
	`, res.FilePath, res.Kind, contentHash, len(res.Records), pgvector.NewVector(profile)).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("upsert file %s: %w", res.FilePath, err)
	}

	if _, err := tx.Exec(ctx, `DELETE FROM parsed_records WHERE file_id = $1`, id); err != nil {
		return 0, fmt.Errorf("clear records: %w", err)
	}

	batch := &pgx.Batch{}
	for _, rec := range res.Records {
		batch.Queue(`INSERT INTO parsed_records (file_id, line, pattern, vals, fields) VALUES ($1, $2, $3, $4, $5)`,
			id, rec.Line, rec.Pattern, rec.Values, rec.Fields)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return 0, fmt.Errorf("insert records: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}

	log.Debug().Str("file", res.FilePath).Int("records", len(res.Records)).Msg("Stored parse result")
	return id, nil
}

// Similar finds the topK stored files whose profile is closest (cosine) to
// hits, excluding exclude.
func (s *Store) Similar(ctx context.Context, hits map[string]int, exclude string, topK int) ([]SimilarFile, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT path, kind, records, 1 - (profile <=> $1) AS similarity
		FROM parsed_files
		WHERE path <> $2
		ORDER BY profile <=> $1
		LIMIT $3
	`, pgvector.NewVector(Profile(hits, s.dims)), exclude, topK)
	if err != nil {
		return nil, fmt.Errorf("similarity search: %w", err)
	}
	defer rows.Close()

	var results []SimilarFile
	for rows.Next() {
		var f SimilarFile
		if err := rows.Scan(&f.Path, &f.Kind, &f.Records, &f.Similarity); err != nil {
			return nil, fmt.Errorf("scan similar file: %w", err)
		}
		results = append(results, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("similarity search: %w", err)
	}
	return results, nil
}

// FileHash returns the content hash path was last stored with.
func (s *Store) FileHash(ctx context.Context, path string) (string, bool, error) {
	var hash string
	err := s.pool.QueryRow(ctx, `SELECT hash FROM parsed_files WHERE path = $1`, path).Scan(&hash)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("lookup hash of %s: %w", path, err)
	}
	return hash, true, nil
}

// FileHashes returns the stored content hash of every file.
func (s *Store) FileHashes(ctx context.Context) (map[string]string, error) {
	rows, err := s.pool.Query(ctx, `SELECT path, hash FROM parsed_files`)
	if err != nil {
		return nil, fmt.Errorf("list file hashes: %w", err)
	}
	defer rows.Close()

	hashes := make(map[string]string)
	for rows.Next() {
		var path, hash string
		if err := rows.Scan(&path, &hash); err != nil {
			return nil, fmt.Errorf("scan file hash: %w", err)
		}
		hashes[path] = hash
	}
	return hashes, rows.Err()
}

// Profile hashes pattern hit counts into a unit vector of dims dimensions.
// Files with no hits get the zero vector.
func Profile(hits map[string]int, dims int) []float32 {
	vec := make([]float64, max(dims, 1))
	for _, name := range slices.Sorted(maps.Keys(hits)) {
		vec[textutil.Bucket(name, len(vec))] += float64(hits[name])
	}

	var norm float64
	for _, v := range vec {
		norm += v * v
	}
	norm = math.Sqrt(norm)

	out := make([]float32, len(vec))
	if norm == 0 {
		return out
	}
	for i, v := range vec {
		out[i] = float32(v / norm)
	}
	return out
}
