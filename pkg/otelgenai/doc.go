// Package otelgenai instruments go-openai chat completion calls with
// OpenTelemetry traces, events, and metrics following the gen_ai semantic
// conventions.
//
// # Overview
//
// Instead of patching the client library, the package wraps it: an
// Instrumentor hands out decorating clients that forward every call to the
// wrapped go-openai client. While the instrumentor is active each call
// produces one CLIENT span ("chat <model>"), one log-backed event per
// request message and response choice, and token usage / duration metrics.
// While it is inactive the decorator is a transparent passthrough.
//
// # Usage
//
//	instr := otelgenai.New(
//	    otelgenai.WithTracerProvider(tp),
//	    otelgenai.WithLoggerProvider(lp),
//	)
//	if err := instr.Instrument(); err != nil {
//	    // already active
//	}
//	defer instr.Uninstrument()
//
//	client := instr.Client(openai.NewClient(apiKey))
//	resp, err := client.CreateChatCompletion(ctx, req)
//
// Streaming calls keep their span open until the stream is drained or
// closed:
//
//	stream, err := client.CreateChatCompletionStream(ctx, req)
//	if err != nil { ... }
//	defer stream.Close()
//	for {
//	    chunk, err := stream.Recv()
//	    if errors.Is(err, io.EOF) {
//	        break
//	    }
//	    ...
//	}
//
// # Content capture
//
// Prompt and completion content is excluded from events by default. Set
// OTEL_INSTRUMENTATION_GENAI_CAPTURE_MESSAGE_CONTENT=true (or use
// WithCaptureMessageContent) to include it. With capture off the events are
// still emitted, carrying only structural fields such as role, index, and
// finish reason.
//
// # Error Handling
//
// Errors from the wrapped client are recorded on the span (error.type,
// status) and returned to the caller unchanged. Instrumentation without a
// configured SDK falls back to the otel global no-op providers.
package otelgenai
