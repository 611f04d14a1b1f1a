package tracing

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

func TestLogProcessor(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf).Level(zerolog.DebugLevel)

	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(NewLogProcessor(logger)))
	defer tp.Shutdown(context.Background())

	_, span := tp.Tracer("legomem.test").Start(context.Background(), "memory.search")
	span.SetAttributes(attribute.String("bank", "task"))
	span.End()

	output := buf.String()
	for _, want := range []string{`"span":"memory.search"`, `"bank":"task"`, "span finished"} {
		if !strings.Contains(output, want) {
			t.Errorf("Expected %s in log output, got %s", want, output)
		}
	}
}
