package memory

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/harun/legomem/internal/observability"
	"github.com/harun/legomem/internal/tracing"
	"github.com/harun/legomem/pkg/llm"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var (
	// ErrDimensionMismatch is returned when a vector does not match the
	// dimension already established by the store.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")
	// ErrMisaligned is returned when persisted index and records disagree.
	ErrMisaligned = errors.New("memory bank index and records are misaligned")
)

// Match is a search hit with its distance to the query.
type Match struct {
	Record   MemoryRecord
	Distance float64
	Position int
}

// StoreConfig configures a Store.
type StoreConfig struct {
	Name     string // bank label for logs and metrics
	Embedder llm.Embedder
	Logger   zerolog.Logger
}

type entry struct {
	embedding []float32
	record    MemoryRecord
}

// Store is an append-only exact nearest-neighbour index over memory records.
type Store struct {
	name     string
	embedder llm.Embedder
	logger   zerolog.Logger

	mu        sync.RWMutex
	entries   []entry
	dimension int
}

// NewStore creates an empty store.
func NewStore(cfg StoreConfig) (*Store, error) {
	observability.EnsureRegistered()

	if cfg.Embedder == nil {
		return nil, errors.New("embedder is required")
	}
	name := cfg.Name
	if name == "" {
		name = "default"
	}

	return &Store{
		name:     name,
		embedder: cfg.Embedder,
		logger:   cfg.Logger.With().Str("bank", name).Logger(),
	}, nil
}

// Name returns the bank label.
func (s *Store) Name() string {
	return s.name
}

// Len returns the number of stored records.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Dimension returns the established vector dimension, or 0 while empty.
func (s *Store) Dimension() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.dimension
}

// Records returns copies of all records in insertion order.
func (s *Store) Records() []MemoryRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]MemoryRecord, len(s.entries))
	for i, e := range s.entries {
		out[i] = e.record.Clone()
	}
	return out
}

// Add embeds embeddingText and appends the record. Either both the vector
// and the record are stored or neither is.
func (s *Store) Add(ctx context.Context, record MemoryRecord, embeddingText string) error {
	ctx, span := tracing.StartSpan(ctx, "legomem.memory", "memory.add",
		attribute.String("bank", s.name),
	)
	defer span.End()

	start := time.Now()
	defer func() { observability.RecordMemoryOp(s.name, "add", time.Since(start)) }()

	if strings.TrimSpace(embeddingText) == "" {
		return errors.New("embedding text is required")
	}

	// The provider call is slow; keep it outside the write lock.
	vector, err := s.embedder.Embed(ctx, embeddingText)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "embedding failed")
		return llm.EmbeddingError(err)
	}
	if len(vector) == 0 {
		return llm.EmbeddingError(errors.New("provider returned an empty vector"))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.dimension != 0 && len(vector) != s.dimension {
		err := fmt.Errorf("%w: got %d, want %d", ErrDimensionMismatch, len(vector), s.dimension)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return llm.EmbeddingError(err)
	}

	s.entries = append(s.entries, entry{embedding: vector, record: record.Clone()})
	s.dimension = len(vector)
	observability.SetMemoryRecords(s.name, len(s.entries))

	s.logger.Debug().
		Int("position", len(s.entries)-1).
		Str("task", truncate(record.TaskDescription, 80)).
		Msg("Memory record added")

	return nil
}

// Search returns up to k records nearest to query, nearest first.
func (s *Store) Search(ctx context.Context, query string, k int) ([]MemoryRecord, error) {
	matches, err := s.SearchWithScores(ctx, query, k)
	if err != nil {
		return nil, err
	}
	out := make([]MemoryRecord, len(matches))
	for i, m := range matches {
		out[i] = m.Record
	}
	return out, nil
}

// SearchWithScores is Search with distances and positions. An empty store
// or a non-positive k yields an empty result without calling the embedder.
func (s *Store) SearchWithScores(ctx context.Context, query string, k int) ([]Match, error) {
	ctx, span := tracing.StartSpan(ctx, "legomem.memory", "memory.search",
		attribute.String("bank", s.name),
		attribute.Int("k", k),
	)
	defer span.End()

	logger := tracing.LoggerFromContext(ctx, s.logger)
	start := time.Now()
	defer func() { observability.RecordMemoryOp(s.name, "search", time.Since(start)) }()

	if k <= 0 || s.Len() == 0 {
		return []Match{}, nil
	}

	vector, err := s.embedder.Embed(ctx, query)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "embedding failed")
		return nil, llm.EmbeddingError(err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.entries) == 0 {
		return []Match{}, nil
	}
	if len(vector) != s.dimension {
		err := fmt.Errorf("%w: query has %d, bank has %d", ErrDimensionMismatch, len(vector), s.dimension)
		span.RecordError(err)
		return nil, llm.EmbeddingError(err)
	}

	matches := nearest(s.entries, vector, k)

	logger.Debug().
		Int("k", k).
		Int("results", len(matches)).
		Int("size", len(s.entries)).
		Msg("Memory search completed")

	return matches, nil
}

type candidate struct {
	position int
	distance float64
}

// nearest scans every entry. Candidates are built in position order and
// sorted stably, so equal distances keep insertion order.
func nearest(entries []entry, query []float32, k int) []Match {
	candidates := make([]candidate, len(entries))
	for i, e := range entries {
		candidates[i] = candidate{position: i, distance: squaredL2(e.embedding, query)}
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].distance < candidates[j].distance
	})

	if k > len(candidates) {
		k = len(candidates)
	}
	out := make([]Match, k)
	for i := 0; i < k; i++ {
		c := candidates[i]
		out[i] = Match{
			Record:   entries[c.position].record.Clone(),
			Distance: math.Sqrt(c.distance),
			Position: c.position,
		}
	}
	return out
}

func squaredL2(a, b []float32) float64 {
	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return sum
}

// truncate keeps the first n runes of s.
func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := 0
	for i := range s {
		if runes == n {
			return s[:i] + "..."
		}
		runes++
	}
	return s
}
