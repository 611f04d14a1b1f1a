package tracing

import (
	"context"

	"github.com/rs/zerolog"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// LogProcessor writes every finished span to a zerolog logger at debug
// level. It stands in for an exporter when no collector is configured.
type LogProcessor struct {
	logger zerolog.Logger
}

var _ sdktrace.SpanProcessor = (*LogProcessor)(nil)

func NewLogProcessor(logger zerolog.Logger) *LogProcessor {
	return &LogProcessor{logger: logger}
}

func (p *LogProcessor) OnStart(context.Context, sdktrace.ReadWriteSpan) {}

func (p *LogProcessor) OnEnd(s sdktrace.ReadOnlySpan) {
	event := p.logger.Debug().
		Str("span", s.Name()).
		Str("trace_id", s.SpanContext().TraceID().String()).
		Dur("duration", s.EndTime().Sub(s.StartTime())).
		Str("status", s.Status().Code.String())
	for _, attr := range s.Attributes() {
		event = event.Str(string(attr.Key), attr.Value.Emit())
	}
	event.Msg("span finished")
}

func (p *LogProcessor) Shutdown(context.Context) error   { return nil }
func (p *LogProcessor) ForceFlush(context.Context) error { return nil }
