package otelgenai

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
)

// sseServer returns an OpenAI-compatible server that answers every chat
// completion request with the given SSE payload lines.
func sseServer(t *testing.T, lines []string) *openai.Client {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		for _, line := range lines {
			fmt.Fprintf(w, "data: %s\n\n", line)
		}
	}))
	t.Cleanup(srv.Close)

	cfg := openai.DefaultConfig("test-token")
	cfg.BaseURL = srv.URL + "/v1"
	return openai.NewClientWithConfig(cfg)
}

func storyChunks() []string {
	return []string{
		`{"id":"chatcmpl-s1","object":"chat.completion.chunk","created":1,"model":"gpt-4o-mini-2024-07-18","choices":[{"index":0,"delta":{"role":"assistant","content":"Once"}}]}`,
		`{"id":"chatcmpl-s1","object":"chat.completion.chunk","created":1,"model":"gpt-4o-mini-2024-07-18","choices":[{"index":0,"delta":{"content":" upon"}}]}`,
		`{"id":"chatcmpl-s1","object":"chat.completion.chunk","created":1,"model":"gpt-4o-mini-2024-07-18","choices":[{"index":0,"delta":{"content":" a time"},"finish_reason":"stop"}]}`,
		`{"id":"chatcmpl-s1","object":"chat.completion.chunk","created":1,"model":"gpt-4o-mini-2024-07-18","choices":[],"usage":{"prompt_tokens":8,"completion_tokens":4,"total_tokens":12}}`,
		`[DONE]`,
	}
}

func drain(t *testing.T, stream *ChatCompletionStream) string {
	t.Helper()
	var out string
	for {
		chunk, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			return out
		}
		require.NoError(t, err)
		for _, choice := range chunk.Choices {
			out += choice.Delta.Content
		}
	}
}

func TestStream_OneSpanEndedAtEOF(t *testing.T) {
	instr, tt := newTestInstrumentor(t, WithCaptureMessageContent(true))
	require.NoError(t, instr.Instrument())

	client := instr.Client(sseServer(t, storyChunks()))

	req := minimalRequest()
	req.Stream = true
	stream, err := client.CreateChatCompletionStream(t.Context(), req)
	require.NoError(t, err)
	defer stream.Close()

	// Span stays open until the stream is drained.
	assert.Empty(t, tt.Spans())

	got := drain(t, stream)
	assert.Equal(t, "Once upon a time", got)

	spans := tt.Spans()
	require.Len(t, spans, 1)
	assert.Equal(t, "chat gpt-4o-mini", spans[0].Name())

	tt.AssertSpanAttribute(t, "chat gpt-4o-mini", "gen_ai.response.id", "chatcmpl-s1")
	tt.AssertSpanAttribute(t, "chat gpt-4o-mini", "gen_ai.response.model", "gpt-4o-mini-2024-07-18")
	tt.AssertSpanAttribute(t, "chat gpt-4o-mini", "gen_ai.usage.input_tokens", int64(8))
	tt.AssertSpanAttribute(t, "chat gpt-4o-mini", "gen_ai.usage.output_tokens", int64(4))

	choice := tt.EventsByName(EventChoice)
	require.Len(t, choice, 1)
	assert.Equal(t, "stop", bodyString(choice[0], "finish_reason"))
	assert.Equal(t, "Once upon a time", bodyString(choice[0], "content"))
}

func TestStream_CaptureDisabledOmitsAccumulatedContent(t *testing.T) {
	instr, tt := newTestInstrumentor(t, WithCaptureMessageContent(false))
	require.NoError(t, instr.Instrument())

	client := instr.Client(sseServer(t, storyChunks()))

	req := minimalRequest()
	req.Stream = true
	stream, err := client.CreateChatCompletionStream(t.Context(), req)
	require.NoError(t, err)
	defer stream.Close()

	got := drain(t, stream)
	assert.Equal(t, "Once upon a time", got)

	choice := tt.EventsByName(EventChoice)
	require.Len(t, choice, 1)
	assert.False(t, bodyHasKey(choice[0], "content"))
}

func TestStream_Passthrough(t *testing.T) {
	instr, tt := newTestInstrumentor(t)

	client := instr.Client(sseServer(t, storyChunks()))

	req := minimalRequest()
	req.Stream = true
	stream, err := client.CreateChatCompletionStream(t.Context(), req)
	require.NoError(t, err)
	defer stream.Close()

	got := drain(t, stream)
	assert.Equal(t, "Once upon a time", got)
	assert.Empty(t, tt.Spans())
	assert.Empty(t, tt.Events())
}

func TestStream_CloseBeforeEOFEndsSpanOnce(t *testing.T) {
	instr, tt := newTestInstrumentor(t)
	require.NoError(t, instr.Instrument())

	client := instr.Client(sseServer(t, storyChunks()))

	req := minimalRequest()
	req.Stream = true
	stream, err := client.CreateChatCompletionStream(t.Context(), req)
	require.NoError(t, err)

	// Read one chunk, then abandon the stream.
	_, err = stream.Recv()
	require.NoError(t, err)
	require.NoError(t, stream.Close())
	require.NoError(t, stream.Close())

	spans := tt.Spans()
	require.Len(t, spans, 1)
	tt.AssertSpanAttribute(t, "chat gpt-4o-mini", "gen_ai.response.id", "chatcmpl-s1")

	// A choice that never finished reports the "error" placeholder.
	span := tt.SpanByName("chat gpt-4o-mini")
	var found bool
	for _, attr := range span.Attributes() {
		if attr.Key == AttrResponseFinishReasons {
			found = true
			assert.Equal(t, []string{"error"}, attr.Value.AsStringSlice())
		}
	}
	assert.True(t, found, "finish reasons attribute missing")
}

func TestStream_RequestFailureEndsSpan(t *testing.T) {
	instr, tt := newTestInstrumentor(t)
	require.NoError(t, instr.Instrument())

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"message":"nope","type":"invalid_request_error"}}`, http.StatusBadRequest)
	}))
	t.Cleanup(srv.Close)

	cfg := openai.DefaultConfig("test-token")
	cfg.BaseURL = srv.URL + "/v1"
	client := instr.Client(openai.NewClientWithConfig(cfg))

	req := minimalRequest()
	req.Stream = true
	_, err := client.CreateChatCompletionStream(t.Context(), req)
	require.Error(t, err)

	spans := tt.Spans()
	require.Len(t, spans, 1)
	assert.Equal(t, codes.Error, spans[0].Status().Code)
}

func TestStream_GrowsBeyondRequestedChoices(t *testing.T) {
	chunks := []string{
		`{"id":"chatcmpl-s2","model":"gpt-4o-mini","choices":[{"index":0,"delta":{"content":"a"},"finish_reason":"stop"}]}`,
		`{"id":"chatcmpl-s2","model":"gpt-4o-mini","choices":[{"index":1,"delta":{"content":"b"},"finish_reason":"stop"}]}`,
		`[DONE]`,
	}

	instr, tt := newTestInstrumentor(t, WithCaptureMessageContent(true))
	require.NoError(t, instr.Instrument())

	client := instr.Client(sseServer(t, chunks))

	req := minimalRequest()
	req.Stream = true
	stream, err := client.CreateChatCompletionStream(t.Context(), req)
	require.NoError(t, err)
	defer stream.Close()

	drain(t, stream)

	assert.Len(t, tt.EventsByName(EventChoice), 2)
}
