package telemetry

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	prometheusexporter "go.opentelemetry.io/otel/exporters/prometheus"
	otelmetric "go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/sdk/metric"
)

const meterName = "github.com/pilab-dev/homefin-auth"

var (
	instrumentsOnce sync.Once
	loginDuration   otelmetric.Float64Histogram
)

// InitMeterProvider installs a global MeterProvider whose instruments are
// exported through reg alongside the plain Prometheus collectors.
func InitMeterProvider(reg prometheus.Registerer) (*metric.MeterProvider, error) {
	exporter, err := prometheusexporter.New(prometheusexporter.WithRegisterer(reg))
	if err != nil {
		return nil, fmt.Errorf("failed to create prometheus exporter: %w", err)
	}

	mp := metric.NewMeterProvider(metric.WithReader(exporter))
	otel.SetMeterProvider(mp)
	log.Info().Msg("OpenTelemetry MeterProvider initialized with Prometheus exporter")
	return mp, nil
}

// Shutdown flushes and stops mp.
func Shutdown(ctx context.Context, mp *metric.MeterProvider) {
	if mp == nil {
		return
	}
	if err := mp.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Error shutting down OpenTelemetry MeterProvider")
	}
}

func instruments() {
	var err error
	loginDuration, err = otel.Meter(meterName).Float64Histogram(
		"homefin_auth.login.duration",
		otelmetric.WithUnit("s"),
		otelmetric.WithDescription("Time spent verifying one sign-in, by outcome."),
	)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to create login duration histogram")
	}
}

// RecordLoginDuration records how long one login took. outcome is "success"
// or the error code returned to the caller.
func RecordLoginDuration(ctx context.Context, d time.Duration, outcome string) {
	instrumentsOnce.Do(instruments)
	if loginDuration == nil {
		return
	}
	loginDuration.Record(ctx, d.Seconds(), otelmetric.WithAttributes(attribute.String("outcome", outcome)))
}
