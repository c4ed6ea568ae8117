// Package otel gates the engine's OpenTelemetry metric surface behind a
// config flag. With metrics disabled every instrument is a no-op.
package otel

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

// Config holds OTel configuration
type Config struct {
	Enabled     bool
	ServiceName string
}

// Provider hands out meters for instrumented components
type Provider struct {
	config Config
}

// New creates a new OTel provider with the given configuration.
// If OTel is disabled, every meter it returns is a no-op.
func New(cfg Config) *Provider {
	return &Provider{config: cfg}
}

// Meter returns a meter with the given name for creating metrics.
func (p *Provider) Meter(name string) metric.Meter {
	if !p.config.Enabled {
		return noop.Meter{}
	}
	return otel.Meter(name)
}

// Enabled returns whether OTel is enabled
func (p *Provider) Enabled() bool {
	return p.config.Enabled
}
