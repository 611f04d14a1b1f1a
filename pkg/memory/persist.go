package memory

import (
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	sqlite_vec "github.com/asg017/sqlite-vec-go-bindings/cgo"
	"github.com/gofrs/flock"
	"github.com/harun/legomem/internal/observability"
	_ "github.com/mattn/go-sqlite3"
)

func init() {
	// Auto-register sqlite-vec extension
	sqlite_vec.Auto()
}

// IndexPath returns the similarity-index artifact for a bank base path.
func IndexPath(base string) string { return base + ".index" }

// RecordsPath returns the record-sequence artifact for a bank base path.
func RecordsPath(base string) string { return base + ".json" }

// Exists reports whether any artifact of the bank at base is present.
func Exists(base string) bool {
	return fileExists(IndexPath(base)) || fileExists(RecordsPath(base))
}

// Save writes the index and the records next to each other. Both are written
// to temporary files first and renamed into place; a failed rename leaves the
// previous bank on disk.
func (s *Store) Save(base string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	start := time.Now()
	defer func() { observability.RecordMemoryOp(s.name, "save", time.Since(start)) }()

	if err := os.MkdirAll(filepath.Dir(base), 0755); err != nil {
		return fmt.Errorf("failed to create memory bank directory: %w", err)
	}

	lock := flock.New(base + ".lock")
	if err := lock.Lock(); err != nil {
		return fmt.Errorf("failed to lock memory bank: %w", err)
	}
	defer lock.Unlock()

	indexTmp := IndexPath(base) + ".tmp"
	recordsTmp := RecordsPath(base) + ".tmp"
	defer os.Remove(indexTmp)
	defer os.Remove(recordsTmp)

	if err := writeIndex(indexTmp, s.entries, s.dimension); err != nil {
		return err
	}

	records := make([]MemoryRecord, len(s.entries))
	for i, e := range s.entries {
		records[i] = e.record
	}
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal records: %w", err)
	}
	if err := os.WriteFile(recordsTmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write records: %w", err)
	}

	if err := commit(base, indexTmp, recordsTmp); err != nil {
		return err
	}

	s.logger.Info().
		Str("path", base).
		Int("records", len(s.entries)).
		Int("dimension", s.dimension).
		Msg("Memory bank saved")

	return nil
}

// Load replaces the store contents with the bank at base. A bank with no
// artifacts on disk is not an error and leaves the store untouched. A bank
// whose index and records disagree fails with ErrMisaligned, also leaving
// the store untouched.
func (s *Store) Load(base string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	start := time.Now()
	defer func() { observability.RecordMemoryOp(s.name, "load", time.Since(start)) }()

	hasIndex, hasRecords := fileExists(IndexPath(base)), fileExists(RecordsPath(base))
	if !hasIndex && !hasRecords {
		s.logger.Debug().Str("path", base).Msg("No memory bank on disk, starting empty")
		return nil
	}
	if hasIndex != hasRecords {
		return fmt.Errorf("%w: index present=%t, records present=%t", ErrMisaligned, hasIndex, hasRecords)
	}

	lock := flock.New(base + ".lock")
	if err := lock.RLock(); err != nil {
		return fmt.Errorf("failed to lock memory bank: %w", err)
	}
	defer lock.Unlock()

	dimension, vectors, err := readIndex(IndexPath(base))
	if err != nil {
		return err
	}

	data, err := os.ReadFile(RecordsPath(base))
	if err != nil {
		return fmt.Errorf("failed to read records: %w", err)
	}
	var records []MemoryRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return fmt.Errorf("failed to parse records: %w", err)
	}

	if len(records) != len(vectors) {
		return fmt.Errorf("%w: %d vectors, %d records", ErrMisaligned, len(vectors), len(records))
	}
	if want := s.embedder.Dimension(); want > 0 && dimension > 0 && want != dimension {
		return fmt.Errorf("%w: bank has %d, embedder produces %d", ErrDimensionMismatch, dimension, want)
	}

	entries := make([]entry, len(records))
	for i := range records {
		entries[i] = entry{embedding: vectors[i], record: records[i]}
	}
	s.entries = entries
	s.dimension = dimension
	observability.SetMemoryRecords(s.name, len(entries))

	s.logger.Info().
		Str("path", base).
		Int("records", len(entries)).
		Int("dimension", dimension).
		Msg("Memory bank loaded")

	return nil
}

// renameFile is swapped in tests to fail individual renames.
var renameFile = os.Rename

// commit moves both artifacts into place. The previous index is parked
// beside the bank until the records land, and put back if they do not, so
// readers never see a new index next to old records.
func commit(base, indexTmp, recordsTmp string) error {
	index, backup := IndexPath(base), IndexPath(base)+".prev"

	hadIndex := fileExists(index)
	if hadIndex {
		if err := renameFile(index, backup); err != nil {
			return fmt.Errorf("failed to park previous index: %w", err)
		}
	}
	restore := func() {
		if hadIndex {
			_ = renameFile(backup, index)
		} else {
			_ = os.Remove(index)
		}
	}

	if err := renameFile(indexTmp, index); err != nil {
		restore()
		return fmt.Errorf("failed to move index into place: %w", err)
	}
	if err := renameFile(recordsTmp, RecordsPath(base)); err != nil {
		restore()
		return fmt.Errorf("failed to move records into place: %w", err)
	}

	if hadIndex {
		_ = os.Remove(backup)
	}
	return nil
}

func writeIndex(path string, entries []entry, dimension int) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to clear stale index: %w", err)
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return fmt.Errorf("failed to open index: %w", err)
	}
	defer db.Close()

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin index transaction: %w", err)
	}
	defer tx.Rollback()

	schema := []string{
		`CREATE TABLE meta (key TEXT PRIMARY KEY, value INTEGER NOT NULL)`,
		`CREATE TABLE vectors (position INTEGER PRIMARY KEY, embedding BLOB NOT NULL)`,
	}
	for _, stmt := range schema {
		if _, err := tx.Exec(stmt); err != nil {
			return fmt.Errorf("failed to create index schema: %w", err)
		}
	}

	if _, err := tx.Exec(`INSERT INTO meta (key, value) VALUES ('dimension', ?), ('count', ?)`, dimension, len(entries)); err != nil {
		return fmt.Errorf("failed to write index metadata: %w", err)
	}

	stmt, err := tx.Prepare(`INSERT INTO vectors (position, embedding) VALUES (?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare vector insert: %w", err)
	}
	defer stmt.Close()

	for i, e := range entries {
		blob, err := sqlite_vec.SerializeFloat32(e.embedding)
		if err != nil {
			return fmt.Errorf("failed to serialize vector %d: %w", i, err)
		}
		if _, err := stmt.Exec(i, blob); err != nil {
			return fmt.Errorf("failed to write vector %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit index: %w", err)
	}
	return db.Close()
}

func readIndex(path string) (int, [][]float32, error) {
	db, err := sql.Open("sqlite3", "file:"+path+"?mode=ro")
	if err != nil {
		return 0, nil, fmt.Errorf("failed to open index: %w", err)
	}
	defer db.Close()

	var dimension, count int
	if err := db.QueryRow(`SELECT value FROM meta WHERE key = 'dimension'`).Scan(&dimension); err != nil {
		return 0, nil, fmt.Errorf("failed to read index dimension: %w", err)
	}
	if err := db.QueryRow(`SELECT value FROM meta WHERE key = 'count'`).Scan(&count); err != nil {
		return 0, nil, fmt.Errorf("failed to read index count: %w", err)
	}

	rows, err := db.Query(`SELECT position, embedding, vec_length(embedding) FROM vectors ORDER BY position`)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to read vectors: %w", err)
	}
	defer rows.Close()

	vectors := make([][]float32, 0, count)
	for rows.Next() {
		var (
			position int
			blob     []byte
			length   int
		)
		if err := rows.Scan(&position, &blob, &length); err != nil {
			return 0, nil, fmt.Errorf("failed to scan vector: %w", err)
		}
		if position != len(vectors) {
			return 0, nil, fmt.Errorf("%w: expected position %d, found %d", ErrMisaligned, len(vectors), position)
		}
		if length != dimension {
			return 0, nil, fmt.Errorf("%w: vector %d has dimension %d, index declares %d", ErrMisaligned, position, length, dimension)
		}
		vectors = append(vectors, decodeFloat32(blob))
	}
	if err := rows.Err(); err != nil {
		return 0, nil, fmt.Errorf("failed to iterate vectors: %w", err)
	}

	if len(vectors) != count {
		return 0, nil, fmt.Errorf("%w: index declares %d vectors, found %d", ErrMisaligned, count, len(vectors))
	}
	return dimension, vectors, nil
}

// decodeFloat32 reverses sqlite_vec.SerializeFloat32 (little endian).
func decodeFloat32(blob []byte) []float32 {
	out := make([]float32, len(blob)/4)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(blob[i*4:]))
	}
	return out
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return !errors.Is(err, os.ErrNotExist)
}
