// Package telemetry configures OpenTelemetry tracing for the process.
package telemetry

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

const serviceName = "plutodesk"

// Config drives how tracing is initialized.
type Config struct {
	Enabled bool
	// Output is "stderr", "stdout" or "file://<absolute path>".
	Output         string
	ServiceVersion string
}

// Provider owns the installed tracer provider, if any.
type Provider struct {
	tp     *sdktrace.TracerProvider
	closer io.Closer
}

// Setup installs a global tracer provider exporting spans as JSON lines to
// the configured output. When tracing is disabled the global no-op provider
// stays in place and the returned Provider does nothing.
func Setup(cfg Config) (*Provider, error) {
	if !cfg.Enabled {
		return &Provider{}, nil
	}

	w, closer, err := openOutput(cfg.Output)
	if err != nil {
		return nil, err
	}
	exp, err := stdouttrace.New(stdouttrace.WithWriter(w))
	if err != nil {
		if closer != nil {
			_ = closer.Close()
		}
		return nil, fmt.Errorf("create trace exporter: %w", err)
	}

	p, err := NewProvider(sdktrace.NewBatchSpanProcessor(exp), cfg.ServiceVersion)
	if err != nil {
		if closer != nil {
			_ = closer.Close()
		}
		return nil, err
	}
	p.closer = closer
	p.Install()
	return p, nil
}

// NewProvider builds a provider around the given span processor.
func NewProvider(sp sdktrace.SpanProcessor, version string) (*Provider, error) {
	res, err := buildResource(version)
	if err != nil {
		return nil, err
	}
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithSpanProcessor(sp),
		sdktrace.WithResource(res),
	)
	return &Provider{tp: tp}, nil
}

// Install makes p the global tracer provider.
func (p *Provider) Install() {
	if p.tp != nil {
		otel.SetTracerProvider(p.tp)
	}
}

// Shutdown flushes pending spans and releases the output.
func (p *Provider) Shutdown(ctx context.Context) error {
	if p == nil || p.tp == nil {
		return nil
	}
	err := p.tp.Shutdown(ctx)
	if p.closer != nil {
		err = errors.Join(err, p.closer.Close())
	}
	return err
}

func buildResource(version string) (*resource.Resource, error) {
	attrs := []attribute.KeyValue{attribute.String("service.name", serviceName)}
	if v := strings.TrimSpace(version); v != "" {
		attrs = append(attrs, attribute.String("service.version", v))
	}
	res, err := resource.Merge(resource.Default(), resource.NewSchemaless(attrs...))
	if err != nil {
		return nil, fmt.Errorf("build trace resource: %w", err)
	}
	return res, nil
}

// openOutput returns the writer for an output spec and, for files, its closer.
func openOutput(output string) (io.Writer, io.Closer, error) {
	switch {
	case output == "" || output == "stderr":
		return os.Stderr, nil, nil
	case output == "stdout":
		return os.Stdout, nil, nil
	case strings.HasPrefix(output, "file://"):
		path := strings.TrimPrefix(output, "file://")
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
		if err != nil {
			return nil, nil, fmt.Errorf("open trace output: %w", err)
		}
		return f, f, nil
	default:
		return nil, nil, fmt.Errorf("unsupported trace output %q", output)
	}
}
