package vectorstore

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"

	"github.com/jackc/pgx/v5"
	"github.com/pgvector/pgvector-go"

	"github.com/indrajit-intglobal/novaintel-latest-sub000/common/db"
	"github.com/indrajit-intglobal/novaintel-latest-sub000/common/logger"
)

var identPattern = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

// PGStore keeps vectors in a Postgres table with the pgvector extension,
// one table per collection. Filters map to JSONB containment so the GIN
// index serves them.
type PGStore struct {
	db    *db.DB
	table string
	log   *logger.Logger
}

// NewPGStore validates the collection name and wraps the shared pool.
func NewPGStore(database *db.DB, collection string, log *logger.Logger) (*PGStore, error) {
	if !identPattern.MatchString(collection) {
		return nil, fmt.Errorf("invalid collection name: %q", collection)
	}
	return &PGStore{db: database, table: collection, log: log}, nil
}

// EnsureCollection creates the extension, table and indexes if missing.
func (s *PGStore) EnsureCollection(ctx context.Context, dim int) error {
	if dim <= 0 {
		return fmt.Errorf("invalid vector dimension: %d", dim)
	}

	stmts := []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			id TEXT PRIMARY KEY,
			embedding vector(%d) NOT NULL,
			content TEXT NOT NULL DEFAULT '',
			metadata JSONB NOT NULL DEFAULT '{}'
		)`, s.table, dim),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s_embedding_idx ON %s USING hnsw (embedding vector_cosine_ops)`, s.table, s.table),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s_metadata_idx ON %s USING gin (metadata jsonb_path_ops)`, s.table, s.table),
	}

	for _, stmt := range stmts {
		if _, err := s.db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to ensure collection %s: %w", s.table, err)
		}
	}
	return nil
}

// Upsert writes points in one batch, replacing rows that share an id.
func (s *PGStore) Upsert(ctx context.Context, points []Point) error {
	if len(points) == 0 {
		return nil
	}

	stmt := fmt.Sprintf(`
		INSERT INTO %s (id, embedding, content, metadata)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE SET
			embedding = EXCLUDED.embedding,
			content = EXCLUDED.content,
			metadata = EXCLUDED.metadata`, s.table)

	batch := &pgx.Batch{}
	for _, p := range points {
		meta, err := json.Marshal(p.Metadata)
		if err != nil {
			return fmt.Errorf("failed to encode metadata for point %s: %w", p.ID, err)
		}
		batch.Queue(stmt, p.ID, pgvector.NewVector(p.Vector), p.Text, meta)
	}

	results := s.db.SendBatch(ctx, batch)
	for range points {
		if _, err := results.Exec(); err != nil {
			_ = results.Close()
			return fmt.Errorf("failed to upsert points: %w", err)
		}
	}
	return results.Close()
}

// Query returns the topK nearest points by cosine distance.
func (s *PGStore) Query(ctx context.Context, vector []float32, topK int, filter Filter) ([]Match, error) {
	stmt := fmt.Sprintf(`
		SELECT id, content, metadata, 1 - (embedding <=> $1) AS score
		FROM %s
		WHERE ($2::jsonb IS NULL OR metadata @> $2)
		ORDER BY embedding <=> $1
		LIMIT $3`, s.table)

	filterArg, err := encodeFilter(filter)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.Query(ctx, stmt, pgvector.NewVector(vector), filterArg, topK)
	if err != nil {
		return nil, fmt.Errorf("vector query failed: %w", err)
	}
	defer rows.Close()

	var matches []Match
	for rows.Next() {
		var m Match
		var meta []byte
		if err := rows.Scan(&m.ID, &m.Text, &meta, &m.Score); err != nil {
			return nil, fmt.Errorf("failed to scan match: %w", err)
		}
		if len(meta) > 0 {
			if err := json.Unmarshal(meta, &m.Metadata); err != nil {
				return nil, fmt.Errorf("failed to decode metadata: %w", err)
			}
		}
		matches = append(matches, m)
	}
	return matches, rows.Err()
}

// DeleteByFilter removes every point whose metadata contains the filter.
// The filter must be non-empty; deleting a whole collection is Recreate's job.
func (s *PGStore) DeleteByFilter(ctx context.Context, filter Filter) error {
	if len(filter) == 0 {
		return fmt.Errorf("refusing to delete without a filter")
	}

	filterArg, err := encodeFilter(filter)
	if err != nil {
		return err
	}

	stmt := fmt.Sprintf(`DELETE FROM %s WHERE metadata @> $1`, s.table)
	tag, err := s.db.Exec(ctx, stmt, filterArg)
	if err != nil {
		return fmt.Errorf("failed to delete points: %w", err)
	}
	s.log.Debug("deleted points by filter", "collection", s.table, "count", tag.RowsAffected())
	return nil
}

// Dimension reads the declared width of the embedding column. pgvector
// stores the dimension as the column's type modifier.
func (s *PGStore) Dimension(ctx context.Context) (int, error) {
	stmt := `
		SELECT COALESCE((
			SELECT a.atttypmod
			FROM pg_attribute a
			WHERE a.attrelid = to_regclass($1) AND a.attname = 'embedding'
		), 0)`

	var dim int
	if err := s.db.QueryRow(ctx, stmt, s.table).Scan(&dim); err != nil {
		return 0, fmt.Errorf("failed to read collection dimension: %w", err)
	}
	if dim < 0 {
		dim = 0
	}
	return dim, nil
}

// Recreate drops and rebuilds the collection at the given dimension.
func (s *PGStore) Recreate(ctx context.Context, dim int) error {
	if _, err := s.db.Exec(ctx, fmt.Sprintf(`DROP TABLE IF EXISTS %s`, s.table)); err != nil {
		return fmt.Errorf("failed to drop collection %s: %w", s.table, err)
	}
	s.log.Info("recreating vector collection", "collection", s.table, "dimension", dim)
	return s.EnsureCollection(ctx, dim)
}

func encodeFilter(filter Filter) ([]byte, error) {
	if len(filter) == 0 {
		return nil, nil
	}
	raw, err := json.Marshal(filter)
	if err != nil {
		return nil, fmt.Errorf("failed to encode filter: %w", err)
	}
	return raw, nil
}
