// Package tracing installs the global OpenTelemetry tracer provider.
package tracing

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"gfx.cafe/util/go/gotel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"

	"gfx.cafe/gfx/imgconv/lib/config"
)

const DefaultServiceNamespace = "gfx.cafe/gfx"

type ShutdownFunc = gotel.ShutdownFunc

// Init starts exporting spans. The returned func flushes and stops the
// provider.
func Init(ctx context.Context, conf config.Tracing, batchTimeout time.Duration, logger *zap.Logger) (ShutdownFunc, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	serviceName := conf.ServiceName
	if serviceName == "" {
		serviceName = "imgconv"
	}

	providerOptions := []gotel.Option{
		gotel.WithServiceName(serviceName),
		gotel.WithServiceNamespace(DefaultServiceNamespace),
	}

	if batchTimeout > 0 {
		providerOptions = append(providerOptions, gotel.WithBatchTimeout(batchTimeout))
	}

	if conf.Endpoint != "" {
		providerOptions = append(providerOptions, gotel.WithEndpoint(conf.Endpoint))
	}

	if conf.Sampler != "" {
		sampler, err := ParseSampler(conf.Sampler)
		if err != nil {
			return nil, err
		}
		providerOptions = append(providerOptions, gotel.WithSampler(sampler))
	}

	shutdown, err := gotel.InitTracing(ctx, providerOptions...)
	if err != nil {
		return nil, err
	}

	logger.Debug(
		"tracing initialized",
		zap.String("service", serviceName),
		zap.String("endpoint", conf.Endpoint),
		zap.String("sampler", conf.Sampler),
	)
	return shutdown, nil
}

// ParseSampler accepts never/always or a ratio, either 0-1 or a percentage.
func ParseSampler(samplerType string) (sampler sdktrace.Sampler, err error) {
	switch strings.ToLower(strings.TrimSpace(samplerType)) {
	case "never", "none", "off":
		sampler = sdktrace.NeverSample()
	case "always", "all", "on":
		sampler = sdktrace.AlwaysSample()
	default:
		var val float64
		if val, err = strconv.ParseFloat(samplerType, 64); err != nil {
			return nil, fmt.Errorf("unknown sampler type/ratio value: %q: %w", samplerType, err)
		}
		if val > 1 {
			val = val / 100
		}
		if val < 0 || val > 1 {
			return nil, fmt.Errorf("sampler ratio must be >= 0.0 and <= 1.0: %q", samplerType)
		}
		sampler = sdktrace.TraceIDRatioBased(val)
	}

	return
}
