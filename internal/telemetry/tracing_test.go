package telemetry

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestSetup_Disabled(t *testing.T) {
	p, err := Setup(Config{Enabled: false})
	if err != nil {
		t.Fatalf("Setup() error = %v", err)
	}
	if err := p.Shutdown(context.Background()); err != nil {
		t.Errorf("Shutdown() error = %v", err)
	}
}

func TestSetup_UnsupportedOutput(t *testing.T) {
	if _, err := Setup(Config{Enabled: true, Output: "syslog://"}); err == nil {
		t.Error("Setup() accepted an unsupported output")
	}
}

func TestSetup_FileOutput(t *testing.T) {
	prev := otel.GetTracerProvider()
	defer otel.SetTracerProvider(prev)

	path := filepath.Join(t.TempDir(), "traces.jsonl")
	p, err := Setup(Config{Enabled: true, Output: "file://" + path, ServiceVersion: "test"})
	if err != nil {
		t.Fatalf("Setup() error = %v", err)
	}

	_, span := otel.Tracer("test").Start(context.Background(), "SessionService.Start")
	span.End()

	if err := p.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown() error = %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "SessionService.Start") {
		t.Errorf("trace output missing span name:\n%s", data)
	}
	if !strings.Contains(string(data), "plutodesk") {
		t.Errorf("trace output missing service name:\n%s", data)
	}
}

func TestProvider_RecordsSpans(t *testing.T) {
	prev := otel.GetTracerProvider()
	defer otel.SetTracerProvider(prev)

	exporter := tracetest.NewInMemoryExporter()
	p, err := NewProvider(sdktrace.NewSimpleSpanProcessor(exporter), "")
	if err != nil {
		t.Fatalf("NewProvider() error = %v", err)
	}
	p.Install()
	defer func() { _ = p.Shutdown(context.Background()) }()

	_, span := otel.Tracer("test").Start(context.Background(), "SessionService.End")
	span.End()

	spans := exporter.GetSpans()
	if len(spans) != 1 || spans[0].Name != "SessionService.End" {
		t.Fatalf("spans = %+v", spans)
	}
}
