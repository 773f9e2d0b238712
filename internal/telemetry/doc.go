// Package telemetry provides OpenTelemetry SDK bootstrap for otelgenai.
//
// # Overview
//
// This package wires up the TracerProvider, MeterProvider, and
// LoggerProvider that back the otelgenai instrumentation, exporting over
// OTLP (gRPC by default, http/protobuf for traces and metrics). The
// LoggerProvider carries the gen_ai message and choice events.
//
// # Usage
//
//	cfg := telemetry.NewDefaultConfig()
//	cfg.Enabled = true
//	tel, err := telemetry.New(ctx, cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer tel.Shutdown(ctx)
//
//	instr := otelgenai.New(
//	    otelgenai.WithTracerProvider(tel.TracerProvider()),
//	    otelgenai.WithLoggerProvider(tel.LoggerProvider()),
//	    otelgenai.WithMeterProvider(tel.MeterProvider()),
//	)
//
// # Error Handling
//
// Telemetry failures do not crash the application. A provider that cannot
// be initialized is skipped and the instance degrades to the otel global
// no-ops for that signal.
//
// # Testing
//
// Use TestTelemetry for tests:
//
//	tt := telemetry.NewTestTelemetry()
//	tracer := tt.Tracer("test")
//	_, span := tracer.Start(ctx, "test-span")
//	span.End()
//	tt.AssertSpanExists(t, "test-span")
package telemetry
