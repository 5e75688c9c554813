package telemetry

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/ashureev/focusbooster/internal/domain"
)

const (
	serviceName    = "focusbooster"
	serviceVersion = "1.0.0"
)

// Config holds OTEL exporter configuration.
type Config struct {
	Endpoint string
	Enabled  bool
	Insecure bool
}

// Exporter is a Recorder backed by an OTEL meter provider.
type Exporter struct {
	provider      *sdkmetric.MeterProvider
	sessionsTotal metric.Int64Counter
	focusMinutes  metric.Int64Counter
	coachRequests metric.Int64Counter
}

// NewExporter creates an exporter pushing to an OTLP gRPC endpoint.
func NewExporter(ctx context.Context, cfg Config) (*Exporter, error) {
	if !cfg.Enabled || cfg.Endpoint == "" {
		return nil, fmt.Errorf("OTEL exporter is disabled or endpoint not configured")
	}

	opts := []otlpmetricgrpc.Option{
		otlpmetricgrpc.WithEndpoint(cfg.Endpoint),
	}
	if cfg.Insecure {
		opts = append(opts,
			otlpmetricgrpc.WithDialOption(grpc.WithTransportCredentials(insecure.NewCredentials())),
			otlpmetricgrpc.WithInsecure(),
		)
	}

	exp, err := otlpmetricgrpc.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating OTLP exporter: %w", err)
	}

	return newExporter(ctx, sdkmetric.NewPeriodicReader(exp))
}

func newExporter(ctx context.Context, reader sdkmetric.Reader) (*Exporter, error) {
	res, err := resource.New(ctx,
		resource.WithAttributes(
			attribute.String("service.name", serviceName),
			attribute.String("service.version", serviceVersion),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("creating resource: %w", err)
	}

	provider := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(reader),
		sdkmetric.WithResource(res),
	)
	otel.SetMeterProvider(provider)

	meter := provider.Meter(serviceName)

	sessionsTotal, err := meter.Int64Counter(
		"focusbooster_focus_sessions_total",
		metric.WithDescription("Completed focus sessions"),
		metric.WithUnit("{session}"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating sessions counter: %w", err)
	}

	focusMinutes, err := meter.Int64Counter(
		"focusbooster_focus_minutes_total",
		metric.WithDescription("Minutes spent in completed focus sessions"),
		metric.WithUnit("min"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating minutes counter: %w", err)
	}

	coachRequests, err := meter.Int64Counter(
		"focusbooster_coach_requests_total",
		metric.WithDescription("Coach relay requests by type and outcome"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating coach requests counter: %w", err)
	}

	return &Exporter{
		provider:      provider,
		sessionsTotal: sessionsTotal,
		focusMinutes:  focusMinutes,
		coachRequests: coachRequests,
	}, nil
}

// FocusCompleted records one finished focus phase.
func (e *Exporter) FocusCompleted(ctx context.Context, minutes int) {
	e.sessionsTotal.Add(ctx, 1)
	e.focusMinutes.Add(ctx, int64(minutes))
}

// CoachRequest records the outcome of a relay call.
func (e *Exporter) CoachRequest(ctx context.Context, kind domain.RequestKind, outcome string) {
	e.coachRequests.Add(ctx, 1, metric.WithAttributes(
		attribute.String("type", string(kind)),
		attribute.String("outcome", outcome),
	))
}

// Close shuts down the exporter and flushes any pending metrics.
func (e *Exporter) Close(ctx context.Context) error {
	return e.provider.Shutdown(ctx)
}
