package otel

import (
	"context"
	"testing"

	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

func TestNewProvidersNoEndpoint(t *testing.T) {
	for _, endpoint := range []string{"", "   "} {
		p, err := NewProviders(context.Background(), endpoint, "auth-starter", false)
		if err != nil {
			t.Fatalf("NewProviders(%q): %v", endpoint, err)
		}
		if p.TracerProvider == nil || p.MeterProvider == nil || p.LoggerProvider == nil {
			t.Fatalf("NewProviders(%q): expected no-op providers, got %+v", endpoint, p)
		}
		// The no-op shutdown must be safe to call more than once.
		if err := p.Shutdown(context.Background()); err != nil {
			t.Fatalf("first shutdown: %v", err)
		}
		if err := p.Shutdown(context.Background()); err != nil {
			t.Fatalf("second shutdown: %v", err)
		}
	}
}

func TestNewProvidersRejectsBadEndpoint(t *testing.T) {
	cases := []struct {
		name     string
		endpoint string
	}{
		{"bare scheme separator", "://collector"},
		{"unclosed bracket host", "http://[collector"},
		{"scheme without host", "http://"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := NewProviders(context.Background(), tc.endpoint, "auth-starter", false); err == nil {
				t.Fatalf("NewProviders(%q): expected error", tc.endpoint)
			}
		})
	}
}

func TestSetGlobalInstallsProviders(t *testing.T) {
	p, err := NewProviders(context.Background(), "", "auth-starter", false)
	if err != nil {
		t.Fatal(err)
	}
	prevTracer := otel.GetTracerProvider()
	prevMeter := otel.GetMeterProvider()
	defer func() {
		otel.SetTracerProvider(prevTracer)
		otel.SetMeterProvider(prevMeter)
	}()

	p.SetGlobal()

	if otel.GetTracerProvider() == prevTracer {
		t.Error("tracer provider was not installed")
	}
	if otel.GetMeterProvider() == prevMeter {
		t.Error("meter provider was not installed")
	}
}

func TestSetGlobalSkipsNilProviders(t *testing.T) {
	tp := sdktrace.NewTracerProvider()
	defer func() { _ = tp.Shutdown(context.Background()) }()

	prevTracer := otel.GetTracerProvider()
	prevMeter := otel.GetMeterProvider()
	defer func() {
		otel.SetTracerProvider(prevTracer)
		otel.SetMeterProvider(prevMeter)
	}()

	// Only the tracer is present; the nil meter must leave the global alone.
	p := &Providers{TracerProvider: tp}
	p.SetGlobal()

	if otel.GetTracerProvider() == prevTracer {
		t.Error("tracer provider was not installed")
	}
	if otel.GetMeterProvider() != prevMeter {
		t.Error("meter provider changed despite being nil")
	}

	// A fully empty value is a no-op, not a panic.
	(&Providers{}).SetGlobal()
}
