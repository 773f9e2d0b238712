package otelgenai

import (
	"context"
	"time"

	"github.com/sashabaranov/go-openai"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// clientMetrics holds the gen_ai client metric instruments. Instruments
// that fail to build stay nil and recording skips them; metric trouble must
// never surface to the caller.
type clientMetrics struct {
	tokenUsage metric.Int64Histogram
	duration   metric.Float64Histogram
}

func newClientMetrics(meter metric.Meter, logger *zap.Logger) *clientMetrics {
	m := &clientMetrics{}

	tokenUsage, err := meter.Int64Histogram("gen_ai.client.token.usage",
		metric.WithDescription("Number of input and output tokens used per chat completion call"),
		metric.WithUnit("{token}"),
	)
	if err != nil {
		logger.Warn("token usage histogram unavailable", zap.Error(err))
	} else {
		m.tokenUsage = tokenUsage
	}

	duration, err := meter.Float64Histogram("gen_ai.client.operation.duration",
		metric.WithDescription("Duration of chat completion calls"),
		metric.WithUnit("s"),
	)
	if err != nil {
		logger.Warn("operation duration histogram unavailable", zap.Error(err))
	} else {
		m.duration = duration
	}

	return m
}

func (m *clientMetrics) record(ctx context.Context, model string, usage *openai.Usage, elapsed time.Duration) {
	if m.tokenUsage != nil && usage != nil {
		m.tokenUsage.Record(ctx, int64(usage.PromptTokens),
			metric.WithAttributes(append(baseAttrs(model), AttrTokenType.String("input"))...))
		m.tokenUsage.Record(ctx, int64(usage.CompletionTokens),
			metric.WithAttributes(append(baseAttrs(model), AttrTokenType.String("output"))...))
	}
	if m.duration != nil {
		m.duration.Record(ctx, elapsed.Seconds(),
			metric.WithAttributes(baseAttrs(model)...))
	}
}

func (m *clientMetrics) recordError(ctx context.Context, model string, elapsed time.Duration, err error) {
	if m.duration == nil {
		return
	}
	m.duration.Record(ctx, elapsed.Seconds(),
		metric.WithAttributes(append(baseAttrs(model), AttrErrorType.String(errorType(err)))...))
}

func baseAttrs(model string) []attribute.KeyValue {
	return []attribute.KeyValue{
		AttrSystem.String(systemOpenAI),
		AttrOperationName.String(operationChat),
		AttrRequestModel.String(model),
	}
}
