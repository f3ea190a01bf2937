// Package observe holds the OpenTelemetry metric instruments of the dialogue
// engine and the Prometheus bridge that exposes them on /metrics.
//
// Tests should build a [Metrics] with [NewMetrics] over their own
// [metric.MeterProvider] to avoid sharing instruments across tests.
package observe

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "github.com/jwebster45206/dialogue-engine"

// Metrics holds all metric instruments. All fields are safe for concurrent
// use.
type Metrics struct {
	// Parses counts parse calls. Attribute: format (authored|artifact).
	Parses metric.Int64Counter

	// ParseFailures counts fatal parse errors. Attribute: format.
	ParseFailures metric.Int64Counter

	// Diagnostics counts recoverable per-line issues. Attribute: kind.
	Diagnostics metric.Int64Counter

	// Builds counts generated artifacts.
	Builds metric.Int64Counter

	// PlaybackSessions tracks running playback sessions.
	PlaybackSessions metric.Int64UpDownCounter

	// PlaybackSteps counts commands shown by playback sessions.
	PlaybackSteps metric.Int64Counter

	// HTTPRequestDuration tracks request latency. Attributes: method, path, status.
	HTTPRequestDuration metric.Float64Histogram
}

// NewMetrics creates every instrument from mp.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	if met.Parses, err = m.Int64Counter("dialogue.parses",
		metric.WithDescription("Total parse calls by input format."),
	); err != nil {
		return nil, err
	}
	if met.ParseFailures, err = m.Int64Counter("dialogue.parse.failures",
		metric.WithDescription("Total fatal parse errors by input format."),
	); err != nil {
		return nil, err
	}
	if met.Diagnostics, err = m.Int64Counter("dialogue.diagnostics",
		metric.WithDescription("Total recoverable line diagnostics by kind."),
	); err != nil {
		return nil, err
	}
	if met.Builds, err = m.Int64Counter("dialogue.builds",
		metric.WithDescription("Total generated artifacts."),
	); err != nil {
		return nil, err
	}
	if met.PlaybackSessions, err = m.Int64UpDownCounter("dialogue.playback.sessions",
		metric.WithDescription("Number of running playback sessions."),
	); err != nil {
		return nil, err
	}
	if met.PlaybackSteps, err = m.Int64Counter("dialogue.playback.steps",
		metric.WithDescription("Total commands shown by playback sessions."),
	); err != nil {
		return nil, err
	}
	if met.HTTPRequestDuration, err = m.Float64Histogram("dialogue.http.request.duration",
		metric.WithDescription("HTTP request latency by method, path and status."),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}

	return met, nil
}

// RecordParse records one parse of format with its diagnostics, or a
// failure when err is non-nil.
func (m *Metrics) RecordParse(ctx context.Context, format string, diagnostics []string, err error) {
	attrs := metric.WithAttributes(attribute.String("format", format))
	m.Parses.Add(ctx, 1, attrs)
	if err != nil {
		m.ParseFailures.Add(ctx, 1, attrs)
		return
	}
	for _, kind := range diagnostics {
		m.Diagnostics.Add(ctx, 1, metric.WithAttributes(attribute.String("kind", kind)))
	}
}
