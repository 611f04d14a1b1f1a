package logger

import (
	"io"
	"regexp"

	"github.com/rs/zerolog"
)

// Redactor redacts sensitive information from logs
type Redactor struct {
	patterns []*regexp.Regexp
}

// NewRedactor creates a new redactor with default patterns
func NewRedactor() *Redactor {
	return &Redactor{
		patterns: []*regexp.Regexp{
			// Provider API keys; sk- also covers sk-ant- and sk-proj-
			regexp.MustCompile(`sk-[a-zA-Z0-9_-]{20,}`),

			// Anthropic header
			regexp.MustCompile(`x-api-key["\s:=]+[^\s"]+`),

			// Bearer tokens
			regexp.MustCompile(`Bearer\s+[a-zA-Z0-9._-]+`),

			// Passwords
			regexp.MustCompile(`password["\s:=]+[^\s"]+`),
			regexp.MustCompile(`pwd["\s:=]+[^\s"]+`),

			// Auth tokens
			regexp.MustCompile(`token["\s:=]+[a-zA-Z0-9._-]{20,}`),

			// AWS keys
			regexp.MustCompile(`AKIA[0-9A-Z]{16}`),

			// Generic secrets
			regexp.MustCompile(`secret["\s:=]+[^\s"]+`),
		},
	}
}

// AddPattern adds a custom redaction pattern
func (r *Redactor) AddPattern(pattern string) error {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return err
	}
	r.patterns = append(r.patterns, re)
	return nil
}

// Redact redacts sensitive information from a string
func (r *Redactor) Redact(s string) string {
	result := s
	for _, pattern := range r.patterns {
		result = pattern.ReplaceAllString(result, "[REDACTED]")
	}
	return result
}

// Wrap wraps an io.Writer to redact sensitive information
func (r *Redactor) Wrap(w io.Writer) io.Writer {
	return &redactingWriter{
		writer:   w,
		redactor: r,
	}
}

// redactingWriter is an io.Writer that redacts sensitive information
type redactingWriter struct {
	writer   io.Writer
	redactor *Redactor
}

// Write reports len(p) on success since the redacted line may be shorter
// than the input and zerolog treats a short write as an error.
func (w *redactingWriter) Write(p []byte) (n int, err error) {
	redacted := w.redactor.Redact(string(p))
	if _, err := w.writer.Write([]byte(redacted)); err != nil {
		return 0, err
	}
	return len(p), nil
}

// WriteLevel keeps level routing intact when wrapped writers sit inside a
// zerolog.MultiLevelWriter.
func (w *redactingWriter) WriteLevel(l zerolog.Level, p []byte) (n int, err error) {
	lw, ok := w.writer.(zerolog.LevelWriter)
	if !ok {
		return w.Write(p)
	}
	redacted := w.redactor.Redact(string(p))
	if _, err := lw.WriteLevel(l, []byte(redacted)); err != nil {
		return 0, err
	}
	return len(p), nil
}
