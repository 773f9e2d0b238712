package otelgenai

import (
	"context"
	"fmt"
	"time"

	"github.com/sashabaranov/go-openai"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// ChatCompleter is the subset of the go-openai client surface this package
// instruments. *openai.Client satisfies it.
type ChatCompleter interface {
	CreateChatCompletion(ctx context.Context, request openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
	CreateChatCompletionStream(ctx context.Context, request openai.ChatCompletionRequest) (*openai.ChatCompletionStream, error)
}

// Client decorates a ChatCompleter with telemetry.
//
// The wrapped reference is captured once at construction and never mutated,
// so a Client is safe for concurrent use to the same extent the underlying
// client is. Whether a call emits telemetry depends solely on the owning
// instrumentor's state at call time.
type Client struct {
	base  ChatCompleter
	instr *Instrumentor
}

// Client wraps base with this instrumentor's telemetry. The returned value
// intentionally does not satisfy ChatCompleter (its stream method returns
// the wrapping stream type), so wrappers cannot be nested.
func (i *Instrumentor) Client(base ChatCompleter) *Client {
	return &Client{base: base, instr: i}
}

// Unwrap returns the wrapped client.
func (c *Client) Unwrap() ChatCompleter {
	return c.base
}

// CreateChatCompletion forwards to the wrapped client. While the
// instrumentor is active it records one span per call, emits message and
// choice events, and records token usage and duration metrics. Errors from
// the wrapped client are recorded on the span and returned unchanged.
func (c *Client) CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	if !c.instr.active.Load() {
		return c.base.CreateChatCompletion(ctx, req)
	}

	start := time.Now()
	ctx, span := c.instr.tracer.Start(ctx, spanName(req),
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(requestAttributes(req)...),
	)
	defer span.End()

	c.instr.emitRequestEvents(ctx, req)

	resp, err := c.base.CreateChatCompletion(ctx, req)
	if err != nil {
		recordCallError(span, err)
		c.instr.metrics.recordError(ctx, req.Model, time.Since(start), err)
		return resp, err
	}

	setResponseAttributes(span, resp.Model, resp.ID, &resp.Usage)

	finishReasons := make([]string, 0, len(resp.Choices))
	for _, choice := range resp.Choices {
		finishReasons = append(finishReasons, orError(string(choice.FinishReason)))
		c.instr.emitChoiceEvent(ctx, choice.Index, string(choice.FinishReason),
			choiceMessageBody(choice.Message, c.instr.capture))
	}
	span.SetAttributes(AttrResponseFinishReasons.StringSlice(finishReasons))

	c.instr.metrics.record(ctx, req.Model, &resp.Usage, time.Since(start))
	return resp, nil
}

// CreateChatCompletionStream forwards to the wrapped client and returns a
// stream that carries the call's span until it is drained or closed. While
// the instrumentor is inactive the returned stream is a plain passthrough.
func (c *Client) CreateChatCompletionStream(ctx context.Context, req openai.ChatCompletionRequest) (*ChatCompletionStream, error) {
	if !c.instr.active.Load() {
		s, err := c.base.CreateChatCompletionStream(ctx, req)
		if err != nil {
			return nil, err
		}
		return &ChatCompletionStream{stream: s}, nil
	}

	start := time.Now()
	// The span outlives this call: it is ended by the stream when the last
	// chunk is consumed, matching the lifetime of the logical operation.
	ctx, span := c.instr.tracer.Start(ctx, spanName(req),
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(requestAttributes(req)...),
	)

	c.instr.emitRequestEvents(ctx, req)

	s, err := c.base.CreateChatCompletionStream(ctx, req)
	if err != nil {
		recordCallError(span, err)
		c.instr.metrics.recordError(ctx, req.Model, time.Since(start), err)
		span.End()
		return nil, err
	}

	return newInstrumentedStream(ctx, s, req, c.instr, span, start), nil
}

func spanName(req openai.ChatCompletionRequest) string {
	if req.Model == "" {
		return operationChat
	}
	return operationChat + " " + req.Model
}

// requestAttributes builds the request-side span attributes. go-openai
// leaves sampling parameters at their zero value when the caller did not
// set them, so zero means "not sent" here.
func requestAttributes(req openai.ChatCompletionRequest) []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		AttrSystem.String(systemOpenAI),
		AttrOperationName.String(operationChat),
		AttrRequestModel.String(req.Model),
	}
	if req.Temperature != 0 {
		attrs = append(attrs, AttrRequestTemperature.Float64(float64(req.Temperature)))
	}
	if req.TopP != 0 {
		attrs = append(attrs, AttrRequestTopP.Float64(float64(req.TopP)))
	}
	maxTokens := req.MaxCompletionTokens
	if maxTokens == 0 {
		maxTokens = req.MaxTokens
	}
	if maxTokens != 0 {
		attrs = append(attrs, AttrRequestMaxTokens.Int(maxTokens))
	}
	if req.PresencePenalty != 0 {
		attrs = append(attrs, AttrRequestPresencePenalty.Float64(float64(req.PresencePenalty)))
	}
	if req.FrequencyPenalty != 0 {
		attrs = append(attrs, AttrRequestFrequencyPenalty.Float64(float64(req.FrequencyPenalty)))
	}
	return attrs
}

func setResponseAttributes(span trace.Span, model, id string, usage *openai.Usage) {
	if model != "" {
		span.SetAttributes(AttrResponseModel.String(model))
	}
	if id != "" {
		span.SetAttributes(AttrResponseID.String(id))
	}
	if usage != nil {
		span.SetAttributes(
			AttrUsageInputTokens.Int(usage.PromptTokens),
			AttrUsageOutputTokens.Int(usage.CompletionTokens),
		)
	}
}

func recordCallError(span trace.Span, err error) {
	span.SetAttributes(AttrErrorType.String(errorType(err)))
	span.SetStatus(codes.Error, err.Error())
	span.RecordError(err)
}

func errorType(err error) string {
	return fmt.Sprintf("%T", err)
}

// orError substitutes the semconv "error" placeholder for choices that
// never reported a finish reason.
func orError(reason string) string {
	if reason == "" {
		return "error"
	}
	return reason
}
