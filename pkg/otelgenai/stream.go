package otelgenai

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/sashabaranov/go-openai"
	otellog "go.opentelemetry.io/otel/log"
	"go.opentelemetry.io/otel/trace"
)

// ChatCompletionStream wraps a go-openai stream. While instrumented it
// accumulates per-choice deltas and holds the call's span open until the
// stream is drained (io.EOF), fails, or is closed, whichever comes first.
//
// Like the underlying go-openai stream it expects a single consumer.
type ChatCompletionStream struct {
	stream *openai.ChatCompletionStream

	// Telemetry state; instr is nil for passthrough streams.
	instr *Instrumentor
	span  trace.Span
	ctx   context.Context
	start time.Time
	model string

	choices       []*choiceBuffer
	responseID    string
	responseModel string
	usage         *openai.Usage

	finishOnce sync.Once
}

// choiceBuffer accumulates the streamed deltas of one choice.
// TODO: accumulate tool call deltas once the probe exercises tools.
type choiceBuffer struct {
	index        int
	finishReason string
	content      strings.Builder
}

func newInstrumentedStream(ctx context.Context, s *openai.ChatCompletionStream, req openai.ChatCompletionRequest, instr *Instrumentor, span trace.Span, start time.Time) *ChatCompletionStream {
	n := req.N
	if n < 1 {
		n = 1
	}
	choices := make([]*choiceBuffer, n)
	for idx := range choices {
		choices[idx] = &choiceBuffer{index: idx}
	}
	return &ChatCompletionStream{
		stream:  s,
		instr:   instr,
		span:    span,
		ctx:     ctx,
		start:   start,
		model:   req.Model,
		choices: choices,
	}
}

// Recv returns the next chunk from the wrapped stream. io.EOF and transport
// errors pass through unchanged; either one finalizes the telemetry.
func (s *ChatCompletionStream) Recv() (openai.ChatCompletionStreamResponse, error) {
	resp, err := s.stream.Recv()
	if s.instr == nil {
		return resp, err
	}
	if err != nil {
		if errors.Is(err, io.EOF) {
			s.finish(nil)
		} else {
			s.finish(err)
		}
		return resp, err
	}
	s.processChunk(resp)
	return resp, nil
}

// Close closes the wrapped stream. Closing before io.EOF finalizes the
// telemetry with whatever has been accumulated so far.
func (s *ChatCompletionStream) Close() error {
	err := s.stream.Close()
	if s.instr != nil {
		s.finish(nil)
	}
	return err
}

func (s *ChatCompletionStream) processChunk(chunk openai.ChatCompletionStreamResponse) {
	if s.responseID == "" {
		s.responseID = chunk.ID
	}
	if s.responseModel == "" {
		s.responseModel = chunk.Model
	}
	if chunk.Usage != nil {
		s.usage = chunk.Usage
	}
	for _, choice := range chunk.Choices {
		buf := s.buffer(choice.Index)
		if choice.FinishReason != "" {
			buf.finishReason = string(choice.FinishReason)
		}
		buf.content.WriteString(choice.Delta.Content)
	}
}

// buffer returns the accumulator for a choice index, growing the slice when
// the provider sends more choices than the request asked for.
func (s *ChatCompletionStream) buffer(index int) *choiceBuffer {
	for index >= len(s.choices) {
		s.choices = append(s.choices, &choiceBuffer{index: len(s.choices)})
	}
	return s.choices[index]
}

func (s *ChatCompletionStream) finish(err error) {
	s.finishOnce.Do(func() {
		setResponseAttributes(s.span, s.responseModel, s.responseID, s.usage)

		finishReasons := make([]string, 0, len(s.choices))
		for _, buf := range s.choices {
			finishReasons = append(finishReasons, orError(buf.finishReason))
			s.instr.emitChoiceEvent(s.ctx, buf.index, buf.finishReason,
				streamedMessageBody(buf, s.instr.capture))
		}
		s.span.SetAttributes(AttrResponseFinishReasons.StringSlice(finishReasons))

		if err != nil {
			recordCallError(s.span, err)
			s.instr.metrics.recordError(s.ctx, s.model, time.Since(s.start), err)
		} else {
			s.instr.metrics.record(s.ctx, s.model, s.usage, time.Since(s.start))
		}
		s.span.End()
	})
}

func streamedMessageBody(buf *choiceBuffer, capture bool) otellog.Value {
	if !capture {
		return otellog.MapValue()
	}
	return otellog.MapValue(otellog.String("content", buf.content.String()))
}
