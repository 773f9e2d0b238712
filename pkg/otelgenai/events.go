package otelgenai

import (
	"context"
	"time"

	"github.com/sashabaranov/go-openai"
	otellog "go.opentelemetry.io/otel/log"
)

// emitRequestEvents emits one event per request message. Unknown roles are
// skipped rather than guessed at.
func (i *Instrumentor) emitRequestEvents(ctx context.Context, req openai.ChatCompletionRequest) {
	for _, msg := range req.Messages {
		name, body := messageEvent(msg, i.capture)
		if name == "" {
			continue
		}
		i.emit(ctx, name, body)
	}
}

// emitChoiceEvent emits a gen_ai.choice event for one response choice.
// message carries content only when capture is enabled.
func (i *Instrumentor) emitChoiceEvent(ctx context.Context, index int, finishReason string, message otellog.Value) {
	i.emit(ctx, EventChoice, otellog.MapValue(
		otellog.Int("index", index),
		otellog.String("finish_reason", orError(finishReason)),
		otellog.KeyValue{Key: "message", Value: message},
	))
}

func (i *Instrumentor) emit(ctx context.Context, name string, body otellog.Value) {
	var rec otellog.Record
	rec.SetTimestamp(time.Now())
	rec.SetEventName(name)
	rec.SetBody(body)
	rec.AddAttributes(otellog.String(string(AttrSystem), systemOpenAI))
	i.events.Emit(ctx, rec)
}

func messageEvent(msg openai.ChatCompletionMessage, capture bool) (string, otellog.Value) {
	switch msg.Role {
	case openai.ChatMessageRoleUser:
		return EventUserMessage, contentBody(msg.Content, capture)

	case openai.ChatMessageRoleSystem, openai.ChatMessageRoleDeveloper:
		return EventSystemMessage, contentBody(msg.Content, capture)

	case openai.ChatMessageRoleAssistant:
		var kvs []otellog.KeyValue
		if capture && msg.Content != "" {
			kvs = append(kvs, otellog.String("content", msg.Content))
		}
		if len(msg.ToolCalls) > 0 {
			kvs = append(kvs, otellog.Slice("tool_calls", toolCallValues(msg.ToolCalls, capture)...))
		}
		return EventAssistantMessage, otellog.MapValue(kvs...)

	case openai.ChatMessageRoleTool:
		kvs := []otellog.KeyValue{otellog.String("id", msg.ToolCallID)}
		if capture {
			kvs = append(kvs, otellog.String("content", msg.Content))
		}
		return EventToolMessage, otellog.MapValue(kvs...)
	}
	return "", otellog.Value{}
}

func contentBody(content string, capture bool) otellog.Value {
	if !capture {
		return otellog.MapValue()
	}
	return otellog.MapValue(otellog.String("content", content))
}

// choiceMessageBody builds the message value of a gen_ai.choice event from a
// complete (non-streamed) choice. Tool call identity is always included;
// function arguments only under capture.
func choiceMessageBody(msg openai.ChatCompletionMessage, capture bool) otellog.Value {
	var kvs []otellog.KeyValue
	if capture && msg.Content != "" {
		kvs = append(kvs, otellog.String("content", msg.Content))
	}
	if len(msg.ToolCalls) > 0 {
		kvs = append(kvs, otellog.Slice("tool_calls", toolCallValues(msg.ToolCalls, capture)...))
	}
	return otellog.MapValue(kvs...)
}

func toolCallValues(calls []openai.ToolCall, capture bool) []otellog.Value {
	vals := make([]otellog.Value, 0, len(calls))
	for _, tc := range calls {
		fn := []otellog.KeyValue{otellog.String("name", tc.Function.Name)}
		if capture {
			fn = append(fn, otellog.String("arguments", tc.Function.Arguments))
		}
		vals = append(vals, otellog.MapValue(
			otellog.String("id", tc.ID),
			otellog.String("type", string(tc.Type)),
			otellog.Map("function", fn...),
		))
	}
	return vals
}
