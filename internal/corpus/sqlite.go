package corpus

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/dshills/malrag-mcp/pkg/types"
)

// SQLiteStore implements the Store interface using SQLite
type SQLiteStore struct {
	db *sql.DB
}

// openDatabase opens a SQLite database with appropriate settings
func openDatabase(dbPath string) (*sql.DB, error) {
	db, err := sql.Open(DriverName, dbPath)
	if err != nil {
		return nil, err
	}

	// Enable WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	// SQLite benefits from a single writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	return db, nil
}

// NewSQLiteStore creates a new SQLite-backed corpus store
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := openDatabase(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := ApplyMigrations(context.Background(), db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to apply migrations: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// PutSample inserts a sample into the corpus
func (s *SQLiteStore) PutSample(ctx context.Context, sample *types.Sample) error {
	if err := sample.Validate(); err != nil {
		return err
	}

	hash := sample.ContentHash()

	var vectorBlob []byte
	var dimension sql.NullInt64
	if len(sample.Vector) > 0 {
		vectorBlob = serializeVector(sample.Vector)
		dimension = sql.NullInt64{Int64: int64(len(sample.Vector)), Valid: true}
	}

	ingestedAt := sample.IngestedAt
	if ingestedAt.IsZero() {
		ingestedAt = time.Now()
	}

	query := `
		INSERT INTO samples (id, text, tokens, vector, dimension, family, source_path, content_hash, ingested_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := s.db.ExecContext(ctx, query,
		sample.ID, sample.Text, strings.Join(sample.Tokens, " "),
		vectorBlob, dimension, sample.Family, sample.SourcePath,
		hash[:], ingestedAt,
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint") {
			return fmt.Errorf("sample %s: %w", sample.ID, ErrAlreadyExists)
		}
		return fmt.Errorf("failed to insert sample: %w", err)
	}

	return nil
}

// GetSample retrieves a sample by ID
func (s *SQLiteStore) GetSample(ctx context.Context, id string) (*types.Sample, error) {
	query := `
		SELECT id, text, tokens, vector, family, source_path, ingested_at
		FROM samples WHERE id = ?
	`
	sample, err := scanSample(s.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get sample: %w", err)
	}
	return sample, nil
}

// GetSamples retrieves a batch of samples by ID
func (s *SQLiteStore) GetSamples(ctx context.Context, ids []string) (map[string]*types.Sample, error) {
	result := make(map[string]*types.Sample, len(ids))
	if len(ids) == 0 {
		return result, nil
	}

	placeholders := strings.Repeat("?,", len(ids))
	placeholders = placeholders[:len(placeholders)-1]
	query := fmt.Sprintf(`
		SELECT id, text, tokens, vector, family, source_path, ingested_at
		FROM samples WHERE id IN (%s)
	`, placeholders)

	args := make([]interface{}, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query samples: %w", err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		sample, err := scanSample(rows)
		if err != nil {
			return nil, err
		}
		result[sample.ID] = sample
	}

	return result, rows.Err()
}

// ListSamples returns samples in ingestion order
func (s *SQLiteStore) ListSamples(ctx context.Context, limit, offset int) ([]*types.Sample, error) {
	if limit <= 0 {
		limit = 100
	}

	query := `
		SELECT id, text, tokens, vector, family, source_path, ingested_at
		FROM samples ORDER BY ingested_at, id LIMIT ? OFFSET ?
	`
	rows, err := s.db.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list samples: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var samples []*types.Sample
	for rows.Next() {
		sample, err := scanSample(rows)
		if err != nil {
			return nil, err
		}
		samples = append(samples, sample)
	}

	return samples, rows.Err()
}

// DeleteSample removes a sample by ID
func (s *SQLiteStore) DeleteSample(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, "DELETE FROM samples WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete sample: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}

	return nil
}

// SearchVector finds the k nearest samples by cosine similarity. Vectors
// are deserialized and scored in Go; samples without a stored vector or
// with a mismatched dimension are skipped.
func (s *SQLiteStore) SearchVector(ctx context.Context, vector []float32, k int) ([]types.ScoredMatch, error) {
	if k <= 0 {
		return []types.ScoredMatch{}, nil
	}

	rows, err := s.db.QueryContext(ctx, "SELECT id, vector FROM samples WHERE vector IS NOT NULL")
	if err != nil {
		return nil, fmt.Errorf("failed to query vectors: %w", err)
	}
	defer func() { _ = rows.Close() }()

	candidates := make([]candidate, 0, 1024)
	for rows.Next() {
		var id string
		var blob []byte
		if err := rows.Scan(&id, &blob); err != nil {
			return nil, err
		}

		stored := deserializeVector(blob)
		if len(stored) != len(vector) {
			continue // Dimension mismatch, skip
		}

		candidates = append(candidates, candidate{sampleID: id, score: cosineSimilarity(vector, stored)})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	sortCandidates(candidates)

	if k > len(candidates) {
		k = len(candidates)
	}
	matches := make([]types.ScoredMatch, k)
	for i := 0; i < k; i++ {
		matches[i] = types.ScoredMatch{
			SampleID: candidates[i].sampleID,
			Score:    candidates[i].score,
			Kind:     types.IndexDense,
		}
	}

	return matches, nil
}

// Count returns the number of ingested samples
func (s *SQLiteStore) Count(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM samples").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count samples: %w", err)
	}
	return count, nil
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows
type rowScanner interface {
	Scan(dest ...interface{}) error
}

// scanSample reads one sample row
func scanSample(row rowScanner) (*types.Sample, error) {
	var sample types.Sample
	var tokens string
	var vectorBlob []byte
	var family, sourcePath sql.NullString
	var ingestedAt time.Time

	if err := row.Scan(&sample.ID, &sample.Text, &tokens, &vectorBlob, &family, &sourcePath, &ingestedAt); err != nil {
		return nil, err
	}

	if tokens != "" {
		sample.Tokens = strings.Fields(tokens)
	}
	if len(vectorBlob) > 0 {
		sample.Vector = deserializeVector(vectorBlob)
	}
	sample.Family = family.String
	sample.SourcePath = sourcePath.String
	sample.IngestedAt = ingestedAt

	return &sample, nil
}
