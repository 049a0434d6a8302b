// Package telemetry records run traces and counters through OpenTelemetry.
// It uses the global providers; without an SDK configured it is a no-op.
package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/tianyehedashu/ai-agent-sub002/internal/domain"
)

const instrumentationName = "github.com/tianyehedashu/ai-agent-sub002/internal/service"

// Recorder emits one span per run and counts events and run outcomes.
type Recorder struct {
	tracer trace.Tracer
	events metric.Int64Counter
	runs   metric.Int64Counter
}

// New creates a recorder bound to the global tracer and meter providers.
func New() *Recorder {
	meter := otel.Meter(instrumentationName)
	// Instrument creation only fails on invalid names; nil counters are skipped.
	events, _ := meter.Int64Counter("agentchat.events",
		metric.WithDescription("Stream events received, by type"))
	runs, _ := meter.Int64Counter("agentchat.runs",
		metric.WithDescription("Runs ended, by final status"))
	return &Recorder{
		tracer: otel.Tracer(instrumentationName),
		events: events,
		runs:   runs,
	}
}

// RunSpan is the trace span of one run.
type RunSpan struct {
	span trace.Span
	rec  *Recorder
}

// StartRun opens the span of a run.
func (r *Recorder) StartRun(runID, sessionID string) *RunSpan {
	if r == nil {
		return nil
	}
	_, span := r.tracer.Start(context.Background(), "agentchat.run",
		trace.WithAttributes(
			attribute.String("run.id", runID),
			attribute.String("session.id", sessionID),
		))
	return &RunSpan{span: span, rec: r}
}

// Event records a received event on the run span.
func (s *RunSpan) Event(t domain.EventType) {
	if s == nil {
		return
	}
	s.span.AddEvent(string(t))
	if s.rec.events != nil {
		s.rec.events.Add(context.Background(), 1, metric.WithAttributes(attribute.String("type", string(t))))
	}
}

// End closes the span with the run's final status.
func (s *RunSpan) End(status domain.RunStatus, err error) {
	if s == nil {
		return
	}
	if err != nil {
		s.span.RecordError(err)
		s.span.SetStatus(codes.Error, err.Error())
	}
	s.span.SetAttributes(attribute.String("run.status", string(status)))
	s.span.End()
	if s.rec.runs != nil {
		s.rec.runs.Add(context.Background(), 1, metric.WithAttributes(attribute.String("status", string(status))))
	}
}
