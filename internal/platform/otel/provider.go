package otel

import (
	"context"
	"os"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

// NewRelicEndpoint is the New Relic OTLP ingest endpoint used when only a
// license key is configured.
const NewRelicEndpoint = "https://otlp.nr-data.net"

// Settings selects the trace exporter. The zero value disables tracing.
type Settings struct {
	Enabled    bool
	Endpoint   string
	LicenseKey string
}

// SettingsFromEnv reads the APM add-on wiring.
//
// Tracing is opt-in: it turns on when OTEL_EXPORTER_OTLP_ENDPOINT or
// NEW_RELIC_LICENSE_KEY is set, unless OTEL_ENABLED is "false". A license key
// without an endpoint exports to New Relic.
func SettingsFromEnv() Settings {
	if strings.EqualFold(os.Getenv("OTEL_ENABLED"), "false") {
		return Settings{}
	}
	endpoint := strings.TrimSpace(os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"))
	key := strings.TrimSpace(os.Getenv("NEW_RELIC_LICENSE_KEY"))
	if endpoint == "" && key != "" {
		endpoint = NewRelicEndpoint
	}
	if endpoint == "" {
		return Settings{}
	}
	return Settings{Enabled: true, Endpoint: endpoint, LicenseKey: key}
}

// Setup initialises OpenTelemetry tracing for the given service from the
// environment.
//
// The returned shutdown function flushes pending spans and should be deferred
// by the caller.
func Setup(ctx context.Context, serviceName, environment string) (shutdown func(context.Context) error, err error) {
	return SetupWithSettings(ctx, serviceName, environment, SettingsFromEnv())
}

// SetupWithSettings is Setup with explicit exporter settings.
func SetupWithSettings(ctx context.Context, serviceName, environment string, settings Settings) (shutdown func(context.Context) error, err error) {
	noop := func(context.Context) error { return nil }
	if !settings.Enabled || strings.TrimSpace(settings.Endpoint) == "" {
		return noop, nil
	}

	opts := []otlptracehttp.Option{otlptracehttp.WithEndpointURL(settings.Endpoint)}
	if settings.LicenseKey != "" {
		opts = append(opts, otlptracehttp.WithHeaders(map[string]string{"api-key": settings.LicenseKey}))
	}
	exporter, err := otlptracehttp.New(ctx, opts...)
	if err != nil {
		return noop, err
	}

	attrs := resource.WithAttributes(
		semconv.ServiceName(serviceName),
		semconv.DeploymentEnvironment(environment),
	)
	res, err := resource.New(ctx, attrs)
	if err != nil {
		return noop, err
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	)

	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	return tp.Shutdown, nil
}
