package llm

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/openai/openai-go"
	"github.com/rs/zerolog"
)

// RetryPolicy controls exponential backoff for RetryingCompleter.
type RetryPolicy struct {
	MaxAttempts    int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

// DefaultRetryPolicy retries three times with 1s, 2s backoff.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:    3,
		InitialBackoff: time.Second,
		MaxBackoff:     8 * time.Second,
	}
}

func (p RetryPolicy) backoff(attempt int) time.Duration {
	delay := p.InitialBackoff << attempt
	if p.MaxBackoff > 0 && delay > p.MaxBackoff {
		delay = p.MaxBackoff
	}
	return delay
}

// RetryingCompleter retries transient provider failures with exponential
// backoff. Permanent errors are returned immediately.
type RetryingCompleter struct {
	next   Completer
	policy RetryPolicy
	logger zerolog.Logger
}

// WithRetry wraps next with policy.
func WithRetry(next Completer, policy RetryPolicy, logger zerolog.Logger) *RetryingCompleter {
	if policy.MaxAttempts <= 0 {
		policy.MaxAttempts = 1
	}
	return &RetryingCompleter{next: next, policy: policy, logger: logger}
}

// Complete calls the wrapped completer until it succeeds, fails permanently
// or the attempts are exhausted.
func (r *RetryingCompleter) Complete(ctx context.Context, prompt string) (string, error) {
	var lastErr error

	for attempt := 0; attempt < r.policy.MaxAttempts; attempt++ {
		response, err := r.next.Complete(ctx, prompt)
		if err == nil {
			return response, nil
		}
		lastErr = err

		if !IsRetryable(err) {
			return "", err
		}
		if attempt == r.policy.MaxAttempts-1 {
			break
		}

		delay := r.policy.backoff(attempt)
		r.logger.Info().
			Int("attempt", attempt+1).
			Dur("delay", delay).
			Err(err).
			Msg("Retrying completion after error")

		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(delay):
		}
	}

	return "", fmt.Errorf("max retries (%d) exceeded: %w", r.policy.MaxAttempts, lastErr)
}

// IsRetryable reports whether err looks transient: rate limits, server
// errors, timeouts and dropped connections.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var openaiErr *openai.Error
	if errors.As(err, &openaiErr) {
		return retryableStatus(openaiErr.StatusCode)
	}
	var anthropicErr *anthropic.Error
	if errors.As(err, &anthropicErr) {
		return retryableStatus(anthropicErr.StatusCode)
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	msg := err.Error()
	for _, marker := range []string{"ECONNRESET", "ETIMEDOUT", "connection reset", "rate limit", "429", "500", "502", "503", "504"} {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}

func retryableStatus(code int) bool {
	return code == 429 || code >= 500
}
