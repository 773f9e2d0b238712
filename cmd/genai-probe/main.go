// Package main implements genai-probe, a CLI that sends an instrumented
// chat completion and exports the resulting telemetry over OTLP.
package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/sashabaranov/go-openai"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/otelgenai/internal/config"
	"github.com/fyrsmithlabs/otelgenai/internal/logging"
	"github.com/fyrsmithlabs/otelgenai/internal/telemetry"
	"github.com/fyrsmithlabs/otelgenai/pkg/otelgenai"
)

var (
	configPath string
	streamFlag bool
	promptFlag string

	version = "dev"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "genai-probe",
	Short: "Send an instrumented chat completion and export its telemetry",
	Long: `genai-probe sends a single chat completion through the otelgenai
instrumentation and exports the resulting span, events, and metrics
over OTLP.

Examples:
  # One-shot completion against the configured endpoint
  genai-probe --prompt "Say hello"

  # Stream the completion and print tokens as they arrive
  genai-probe --stream --prompt "Tell me a story"

  # Include prompt/completion content in the exported events
  OTEL_INSTRUMENTATION_GENAI_CAPTURE_MESSAGE_CONTENT=true genai-probe --prompt "Say hello"`,
	Version: version,
	RunE:    runProbe,
}

func init() {
	rootCmd.Flags().StringVar(&configPath, "config", "", "config file path (default ~/.config/genai-probe/config.yaml)")
	rootCmd.Flags().BoolVar(&streamFlag, "stream", false, "stream the completion")
	rootCmd.Flags().StringVar(&promptFlag, "prompt", "", "prompt to send (reads stdin when omitted)")
}

func runProbe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.LoadWithFile(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	tel, err := telemetry.New(ctx, telemetryConfig(cfg))
	if err != nil {
		return fmt.Errorf("initializing telemetry: %w", err)
	}
	defer func() {
		if err := tel.Shutdown(context.Background()); err != nil {
			fmt.Fprintf(os.Stderr, "telemetry shutdown: %v\n", err)
		}
	}()

	logger, err := logging.New(loggingConfig(cfg), tel.LoggerProvider())
	if err != nil {
		return fmt.Errorf("initializing logging: %w", err)
	}
	defer logging.Sync(logger) //nolint:errcheck

	instr := otelgenai.New(
		otelgenai.WithTracerProvider(tel.TracerProvider()),
		otelgenai.WithLoggerProvider(tel.LoggerProvider()),
		otelgenai.WithMeterProvider(tel.MeterProvider()),
		otelgenai.WithLogger(logger),
	)
	if err := instr.Instrument(); err != nil {
		return fmt.Errorf("activating instrumentation: %w", err)
	}
	defer instr.Uninstrument() //nolint:errcheck

	client := instr.Client(newOpenAIClient(cfg))

	prompt := promptFlag
	if prompt == "" {
		prompt, err = readPrompt(cmd.InOrStdin())
		if err != nil {
			return err
		}
	}

	// One conversation id for the probe run, so repeated probes are easy
	// to tell apart in the trace backend.
	conversationID := uuid.NewString()
	ctx, span := tel.Tracer("genai-probe").Start(ctx, "probe",
		trace.WithAttributes(attribute.String("gen_ai.conversation.id", conversationID)))
	defer span.End()

	logger.Info("sending chat completion",
		zap.String("model", cfg.OpenAI.Model),
		zap.String("conversation_id", conversationID),
		zap.Bool("stream", streamFlag),
	)

	req := openai.ChatCompletionRequest{
		Model: cfg.OpenAI.Model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	}

	start := time.Now()
	if streamFlag {
		err = runStream(ctx, client, req, cmd.OutOrStdout())
	} else {
		err = runCompletion(ctx, client, req, cmd.OutOrStdout())
	}
	if err != nil {
		logger.Error("chat completion failed", zap.Error(err))
		return err
	}

	logger.Info("chat completion done", zap.Duration("elapsed", time.Since(start)))

	if err := tel.ForceFlush(ctx); err != nil {
		logger.Warn("telemetry flush failed", zap.Error(err))
	}
	return nil
}

func runCompletion(ctx context.Context, client *otelgenai.Client, req openai.ChatCompletionRequest, out io.Writer) error {
	resp, err := client.CreateChatCompletion(ctx, req)
	if err != nil {
		return fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return fmt.Errorf("chat completion returned no choices")
	}
	fmt.Fprintln(out, resp.Choices[0].Message.Content)
	return nil
}

func runStream(ctx context.Context, client *otelgenai.Client, req openai.ChatCompletionRequest, out io.Writer) error {
	stream, err := client.CreateChatCompletionStream(ctx, req)
	if err != nil {
		return fmt.Errorf("chat completion stream: %w", err)
	}
	defer stream.Close() //nolint:errcheck

	for {
		chunk, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			fmt.Fprintln(out)
			return nil
		}
		if err != nil {
			return fmt.Errorf("receiving chunk: %w", err)
		}
		for _, choice := range chunk.Choices {
			fmt.Fprint(out, choice.Delta.Content)
		}
	}
}

func readPrompt(in io.Reader) (string, error) {
	fmt.Fprintln(os.Stderr, "reading prompt from stdin...")
	scanner := bufio.NewScanner(in)
	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return "", fmt.Errorf("reading prompt: %w", err)
		}
		return "", fmt.Errorf("empty prompt")
	}
	return scanner.Text(), nil
}

func newOpenAIClient(cfg *config.Config) *openai.Client {
	clientCfg := openai.DefaultConfig(cfg.OpenAI.APIKey.Value())
	clientCfg.BaseURL = cfg.OpenAI.BaseURL
	return openai.NewClientWithConfig(clientCfg)
}

// telemetryConfig maps the probe config onto the telemetry package config.
func telemetryConfig(cfg *config.Config) *telemetry.Config {
	tc := telemetry.NewDefaultConfig()
	tc.Enabled = cfg.Telemetry.Enabled
	tc.Endpoint = cfg.Telemetry.Endpoint
	tc.Protocol = cfg.Telemetry.Protocol
	tc.Insecure = cfg.Telemetry.Insecure
	tc.ServiceName = "genai-probe"
	tc.ServiceVersion = version
	tc.Shutdown.Timeout = cfg.Telemetry.Timeout
	return tc
}

// loggingConfig maps the probe config onto the logging package config.
func loggingConfig(cfg *config.Config) *logging.Config {
	lc := logging.NewDefaultConfig()
	lc.Format = cfg.Logging.Format
	if err := lc.Level.Set(cfg.Logging.Level); err != nil {
		lc.Level = zap.InfoLevel
	}
	return lc
}
