package llm

import (
	"context"
	"errors"
	"fmt"
)

// Completer maps a single-turn prompt to a text response.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// CompleterFunc adapts a function to the Completer interface.
type CompleterFunc func(ctx context.Context, prompt string) (string, error)

// Complete calls f.
func (f CompleterFunc) Complete(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}

// Embedder maps text to a fixed-dimension vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Dimension() int
}

var (
	// ErrCompletion marks failures of the text-completion capability.
	ErrCompletion = errors.New("completion failed")
	// ErrEmbedding marks failures of the embedding capability.
	ErrEmbedding = errors.New("embedding failed")
	// ErrParse marks structured-output extraction failures.
	ErrParse = errors.New("parse failed")
)

// ParseError describes a response that could not be turned into structured
// output. Raw keeps the full response for diagnostics.
type ParseError struct {
	Stage  string
	Reason string
	Raw    string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s: failed to parse response: %s", e.Stage, e.Reason)
}

// Is reports whether target is ErrParse.
func (e *ParseError) Is(target error) bool {
	return target == ErrParse
}

// CompletionError wraps err so that errors.Is(err, ErrCompletion) holds.
func CompletionError(stage string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrCompletion) {
		return err
	}
	return fmt.Errorf("%s: %w: %w", stage, ErrCompletion, err)
}

// EmbeddingError wraps err so that errors.Is(err, ErrEmbedding) holds.
func EmbeddingError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrEmbedding) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrEmbedding, err)
}
