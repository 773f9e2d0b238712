package otelgenai

import (
	"errors"
	"os"
	"strconv"
	"sync/atomic"

	"go.opentelemetry.io/otel"
	otellog "go.opentelemetry.io/otel/log"
	"go.opentelemetry.io/otel/log/global"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// ScopeName is the instrumentation scope reported on all emitted telemetry.
const ScopeName = "github.com/fyrsmithlabs/otelgenai"

// Version is the instrumentation version reported on all emitted telemetry.
const Version = "0.1.0"

// EnvCaptureMessageContent gates whether prompt and completion content is
// included in emitted events. Unset or anything that doesn't parse as a
// boolean true means content is omitted.
const EnvCaptureMessageContent = "OTEL_INSTRUMENTATION_GENAI_CAPTURE_MESSAGE_CONTENT"

var (
	// ErrAlreadyInstrumented indicates Instrument was called while active.
	ErrAlreadyInstrumented = errors.New("already instrumented")

	// ErrNotInstrumented indicates Uninstrument was called while inactive.
	ErrNotInstrumented = errors.New("not instrumented")
)

// Instrumentor toggles chat completion telemetry on and off.
//
// Clients obtained from Client consult the instrumentor's state on every
// call: while inactive they forward to the wrapped client untouched, while
// active each call produces one CLIENT span, gen_ai message events, and
// token/duration metrics.
//
// The zero state after New is inactive. All fields except the active flag
// are immutable after construction, so a single Instrumentor is safe to
// share across goroutines.
type Instrumentor struct {
	tracer  trace.Tracer
	events  otellog.Logger
	metrics *clientMetrics
	logger  *zap.Logger
	capture bool
	active  atomic.Bool
}

// Option configures an Instrumentor.
type Option func(*options)

type options struct {
	tracerProvider trace.TracerProvider
	loggerProvider otellog.LoggerProvider
	meterProvider  metric.MeterProvider
	logger         *zap.Logger
	capture        *bool
}

// WithTracerProvider overrides the global TracerProvider.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(o *options) {
		if tp != nil {
			o.tracerProvider = tp
		}
	}
}

// WithLoggerProvider overrides the global log.LoggerProvider used for
// gen_ai events.
func WithLoggerProvider(lp otellog.LoggerProvider) Option {
	return func(o *options) {
		if lp != nil {
			o.loggerProvider = lp
		}
	}
}

// WithMeterProvider overrides the global MeterProvider.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(o *options) {
		if mp != nil {
			o.meterProvider = mp
		}
	}
}

// WithLogger sets the zap logger used for instrumentation diagnostics.
// Defaults to a no-op logger.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithCaptureMessageContent overrides the capture decision normally read
// from OTEL_INSTRUMENTATION_GENAI_CAPTURE_MESSAGE_CONTENT.
func WithCaptureMessageContent(capture bool) Option {
	return func(o *options) {
		o.capture = &capture
	}
}

// New creates an inactive Instrumentor.
//
// Without options the instrumentor uses the otel globals, which are no-ops
// until an SDK is installed. A missing telemetry pipeline therefore degrades
// to pass-through behavior instead of failing.
func New(opts ...Option) *Instrumentor {
	o := &options{
		tracerProvider: otel.GetTracerProvider(),
		loggerProvider: global.GetLoggerProvider(),
		meterProvider:  otel.GetMeterProvider(),
		logger:         zap.NewNop(),
	}
	for _, opt := range opts {
		opt(o)
	}

	capture := captureFromEnv()
	if o.capture != nil {
		capture = *o.capture
	}

	return &Instrumentor{
		tracer: o.tracerProvider.Tracer(ScopeName,
			trace.WithInstrumentationVersion(Version)),
		events: o.loggerProvider.Logger(ScopeName,
			otellog.WithInstrumentationVersion(Version)),
		metrics: newClientMetrics(o.meterProvider.Meter(ScopeName,
			metric.WithInstrumentationVersion(Version)), o.logger),
		logger:  o.logger,
		capture: capture,
	}
}

// Instrument activates telemetry on all clients obtained from this
// instrumentor. Calling it while already active logs a warning and returns
// ErrAlreadyInstrumented; the existing wrapping is left intact, so double
// activation never nests.
func (i *Instrumentor) Instrument() error {
	if !i.active.CompareAndSwap(false, true) {
		i.logger.Warn("chat completion instrumentation already active")
		return ErrAlreadyInstrumented
	}
	i.logger.Debug("chat completion instrumentation activated",
		zap.Bool("capture_message_content", i.capture))
	return nil
}

// Uninstrument deactivates telemetry. Clients obtained from this
// instrumentor revert to transparent pass-through. Calling it while
// inactive logs a warning and returns ErrNotInstrumented.
func (i *Instrumentor) Uninstrument() error {
	if !i.active.CompareAndSwap(true, false) {
		i.logger.Warn("chat completion instrumentation not active")
		return ErrNotInstrumented
	}
	i.logger.Debug("chat completion instrumentation deactivated")
	return nil
}

// Active reports whether instrumentation is currently active.
func (i *Instrumentor) Active() bool {
	return i.active.Load()
}

// CaptureMessageContent reports whether message content is included in
// emitted events. Fixed at construction time.
func (i *Instrumentor) CaptureMessageContent() bool {
	return i.capture
}

func captureFromEnv() bool {
	v, err := strconv.ParseBool(os.Getenv(EnvCaptureMessageContent))
	return err == nil && v
}
