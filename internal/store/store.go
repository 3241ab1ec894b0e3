// Package store persists chunk/vector pairs in SQLite. One row holds a
// chunk and its embedding together, so the positional alignment between
// chunks and vectors is structural rather than maintained across tables.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"smartdocs/internal/chunker"
)

// ErrLengthMismatch means AppendAll was called with differing chunk and
// vector counts. This is a contract violation, never coerced.
var ErrLengthMismatch = errors.New("chunks and vectors length mismatch")

// Record is a persisted chunk with its assigned sequence number.
type Record struct {
	Seq int64
	chunker.Chunk
}

// Store is an append-only collection of chunk/vector pairs backed by a
// SQLite database file.
type Store struct {
	db *sql.DB

	// Serializes appends so two concurrent AppendAll calls never
	// interleave their row inserts.
	mu sync.Mutex
}

// Open opens (creating if needed) the store at the given path and runs
// migrations. The path ":memory:" yields a throwaway in-memory store.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if _, err := db.Exec("PRAGMA busy_timeout = 5000;"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	if err := migrate(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return &Store{db: db}, nil
}

// migrate creates the schema. Idempotent.
func migrate(db *sql.DB) error {
	schema := []string{
		`CREATE TABLE IF NOT EXISTS chunks (
			seq INTEGER PRIMARY KEY AUTOINCREMENT,
			source TEXT NOT NULL,
			page INTEGER NOT NULL,
			text TEXT NOT NULL,
			fingerprint TEXT NOT NULL,
			embedding TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_chunks_fingerprint ON chunks(fingerprint);`,
	}
	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// AppendAll persists the chunk/vector pairs in one transaction. Sequence
// numbers are assigned by the database, monotonically increasing and
// never reused. On any error nothing is written.
func (s *Store) AppendAll(ctx context.Context, chunks []chunker.Chunk, vectors [][]float32) error {
	if len(chunks) != len(vectors) {
		return fmt.Errorf("%w: %d chunks, %d vectors", ErrLengthMismatch, len(chunks), len(vectors))
	}
	if len(chunks) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin append: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	stmt, err := tx.PrepareContext(ctx,
		"INSERT INTO chunks (source, page, text, fingerprint, embedding) VALUES (?, ?, ?, ?, ?)")
	if err != nil {
		return fmt.Errorf("prepare append: %w", err)
	}
	defer stmt.Close()

	for i, c := range chunks {
		emb, err := encodeVector(vectors[i])
		if err != nil {
			return fmt.Errorf("encode vector %d: %w", i, err)
		}
		if _, err := stmt.ExecContext(ctx, c.Source, c.Page, c.Text, chunker.Fingerprint(c), emb); err != nil {
			return fmt.Errorf("insert chunk %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit append: %w", err)
	}
	return nil
}

// ReadAll returns every chunk and its vector in ascending sequence
// order, positionally aligned.
func (s *Store) ReadAll(ctx context.Context) ([]Record, [][]float32, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT seq, source, page, text, embedding FROM chunks ORDER BY seq")
	if err != nil {
		return nil, nil, fmt.Errorf("query chunks: %w", err)
	}
	defer rows.Close()

	var records []Record
	var vectors [][]float32
	for rows.Next() {
		var r Record
		var emb string
		if err := rows.Scan(&r.Seq, &r.Source, &r.Page, &r.Text, &emb); err != nil {
			return nil, nil, fmt.Errorf("scan chunk: %w", err)
		}
		vec, err := decodeVector(emb)
		if err != nil {
			return nil, nil, fmt.Errorf("decode vector for seq %d: %w", r.Seq, err)
		}
		records = append(records, r)
		vectors = append(vectors, vec)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("iterate chunks: %w", err)
	}
	return records, vectors, nil
}

// Count returns the number of persisted chunks.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM chunks").Scan(&n); err != nil {
		return 0, fmt.Errorf("count chunks: %w", err)
	}
	return n, nil
}

// Fingerprints returns every persisted chunk fingerprint, used to seed
// deduplication so re-uploads across process restarts add nothing.
func (s *Store) Fingerprints(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT fingerprint FROM chunks")
	if err != nil {
		return nil, fmt.Errorf("query fingerprints: %w", err)
	}
	defer rows.Close()

	var fps []string
	for rows.Next() {
		var fp string
		if err := rows.Scan(&fp); err != nil {
			return nil, fmt.Errorf("scan fingerprint: %w", err)
		}
		fps = append(fps, fp)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate fingerprints: %w", err)
	}
	return fps, nil
}

// Reset drops all chunk/vector pairs. Sequence numbers are not reused
// afterwards (AUTOINCREMENT keeps counting).
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.db.ExecContext(ctx, "DELETE FROM chunks"); err != nil {
		return fmt.Errorf("reset store: %w", err)
	}
	return nil
}

// Vectors are stored as JSON float32 arrays for portability; the store
// is read in full at query time, so decode cost dominates either way.

func encodeVector(v []float32) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func decodeVector(s string) ([]float32, error) {
	var v []float32
	if err := json.Unmarshal([]byte(s), &v); err != nil {
		return nil, err
	}
	return v, nil
}
