// Package llmtest provides deterministic Completer and Embedder doubles for
// tests.
package llmtest

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"math"
	"strings"
	"sync"
	"unicode"
)

// ErrScriptExhausted is returned when a ScriptedCompleter runs out of
// responses.
var ErrScriptExhausted = errors.New("scripted completer: no responses left")

// ScriptedCompleter returns queued responses in order and records every
// prompt it receives. When Fn is set it is used instead of the queue.
type ScriptedCompleter struct {
	Fn func(prompt string) (string, error)

	mu        sync.Mutex
	responses []string
	failures  map[int]error
	prompts   []string
}

// NewScriptedCompleter queues responses.
func NewScriptedCompleter(responses ...string) *ScriptedCompleter {
	return &ScriptedCompleter{responses: responses, failures: make(map[int]error)}
}

// FailOn makes the n-th call (1-based) return err.
func (s *ScriptedCompleter) FailOn(n int, err error) *ScriptedCompleter {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failures == nil {
		s.failures = make(map[int]error)
	}
	s.failures[n] = err
	return s
}

// Complete implements llm.Completer.
func (s *ScriptedCompleter) Complete(ctx context.Context, prompt string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	s.mu.Lock()
	s.prompts = append(s.prompts, prompt)
	call := len(s.prompts)
	if err, ok := s.failures[call]; ok {
		s.mu.Unlock()
		return "", err
	}
	fn := s.Fn
	if fn == nil {
		if len(s.responses) == 0 {
			s.mu.Unlock()
			return "", ErrScriptExhausted
		}
		response := s.responses[0]
		s.responses = s.responses[1:]
		s.mu.Unlock()
		return response, nil
	}
	s.mu.Unlock()
	return fn(prompt)
}

// Prompts returns a copy of the prompts seen so far.
func (s *ScriptedCompleter) Prompts() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.prompts))
	copy(out, s.prompts)
	return out
}

// Calls returns the number of Complete calls.
func (s *ScriptedCompleter) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.prompts)
}

// KeywordEmbedder hashes lower-cased words into buckets and L2-normalizes
// the result, so texts sharing words end up close to each other.
type KeywordEmbedder struct {
	dim int

	mu    sync.Mutex
	calls int
}

// NewKeywordEmbedder creates a KeywordEmbedder with dim buckets.
func NewKeywordEmbedder(dim int) *KeywordEmbedder {
	return &KeywordEmbedder{dim: dim}
}

// Dimension implements llm.Embedder.
func (e *KeywordEmbedder) Dimension() int { return e.dim }

// Calls returns the number of Embed calls.
func (e *KeywordEmbedder) Calls() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.calls
}

// Embed implements llm.Embedder.
func (e *KeywordEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	e.mu.Lock()
	e.calls++
	e.mu.Unlock()

	vector := make([]float32, e.dim)
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	for _, word := range words {
		h := fnv.New32a()
		h.Write([]byte(word))
		vector[h.Sum32()%uint32(e.dim)]++
	}
	normalize(vector)
	return vector, nil
}

// HashEmbedder derives a pseudo-random unit vector from the whole text.
// Identical texts map to identical vectors.
type HashEmbedder struct {
	dim int
}

// NewHashEmbedder creates a HashEmbedder.
func NewHashEmbedder(dim int) *HashEmbedder {
	return &HashEmbedder{dim: dim}
}

// Dimension implements llm.Embedder.
func (e *HashEmbedder) Dimension() int { return e.dim }

// Embed implements llm.Embedder.
func (e *HashEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	h := fnv.New64a()
	h.Write([]byte(text))
	seed := h.Sum64()

	vector := make([]float32, e.dim)
	for i := range vector {
		seed = seed*6364136223846793005 + 1442695040888963407
		vector[i] = float32(seed>>33)/float32(1<<31) - 0.5
	}
	normalize(vector)
	return vector, nil
}

// StaticEmbedder returns fixed vectors per text and fails for unknown text.
type StaticEmbedder struct {
	Vectors map[string][]float32
	Dim     int
}

// Dimension implements llm.Embedder.
func (e *StaticEmbedder) Dimension() int { return e.Dim }

// Embed implements llm.Embedder.
func (e *StaticEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	v, ok := e.Vectors[text]
	if !ok {
		return nil, fmt.Errorf("no vector for %q", text)
	}
	out := make([]float32, len(v))
	copy(out, v)
	return out, nil
}

// FailingEmbedder always returns Err.
type FailingEmbedder struct {
	Err error
	Dim int
}

// Dimension implements llm.Embedder.
func (e *FailingEmbedder) Dimension() int { return e.Dim }

// Embed implements llm.Embedder.
func (e *FailingEmbedder) Embed(context.Context, string) ([]float32, error) {
	return nil, e.Err
}

func normalize(v []float32) {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		return
	}
	norm := float32(math.Sqrt(sum))
	for i := range v {
		v[i] /= norm
	}
}
