package otelgenai

import "go.opentelemetry.io/otel/attribute"

// Attribute keys from the gen_ai semantic conventions.
// https://github.com/open-telemetry/semantic-conventions/blob/main/docs/gen-ai/gen-ai-spans.md
var (
	// AttrSystem identifies the GenAI product as observed by the client.
	AttrSystem = attribute.Key("gen_ai.system")

	// AttrOperationName names the operation being performed (e.g. "chat").
	AttrOperationName = attribute.Key("gen_ai.operation.name")

	// AttrRequestModel is the model name the caller requested.
	AttrRequestModel = attribute.Key("gen_ai.request.model")

	AttrRequestTemperature      = attribute.Key("gen_ai.request.temperature")
	AttrRequestTopP             = attribute.Key("gen_ai.request.top_p")
	AttrRequestMaxTokens        = attribute.Key("gen_ai.request.max_tokens")
	AttrRequestPresencePenalty  = attribute.Key("gen_ai.request.presence_penalty")
	AttrRequestFrequencyPenalty = attribute.Key("gen_ai.request.frequency_penalty")

	// AttrResponseModel is the model name reported back by the provider,
	// which may differ from the requested one (version pinning).
	AttrResponseModel = attribute.Key("gen_ai.response.model")

	AttrResponseID            = attribute.Key("gen_ai.response.id")
	AttrResponseFinishReasons = attribute.Key("gen_ai.response.finish_reasons")

	AttrUsageInputTokens  = attribute.Key("gen_ai.usage.input_tokens")
	AttrUsageOutputTokens = attribute.Key("gen_ai.usage.output_tokens")

	// AttrTokenType distinguishes input from output tokens on the
	// token usage histogram.
	AttrTokenType = attribute.Key("gen_ai.token.type")

	// AttrErrorType records the low-cardinality class of a failed call.
	// https://github.com/open-telemetry/semantic-conventions/blob/main/docs/general/recording-errors.md
	AttrErrorType = attribute.Key("error.type")
)

// Event names for captured message content, one per message role plus
// one per response choice.
const (
	EventUserMessage      = "gen_ai.user.message"
	EventSystemMessage    = "gen_ai.system.message"
	EventAssistantMessage = "gen_ai.assistant.message"
	EventToolMessage      = "gen_ai.tool.message"
	EventChoice           = "gen_ai.choice"
)

const (
	systemOpenAI  = "openai"
	operationChat = "chat"
)
