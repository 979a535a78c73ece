package agent

import (
	"context"
	"fmt"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/shared"

	"github.com/kibadist/agentui/internal/metrics"
)

// DefaultOpenAIModel is used when no model override is configured.
const DefaultOpenAIModel = "gpt-4o"

// OpenAIRunner drives a multi-round chat-completions tool loop against the
// OpenAI API.
type OpenAIRunner struct {
	client openai.Client
	model  string
	opts   Options
}

// NewOpenAIRunner builds a runner for the given API key and model.
func NewOpenAIRunner(apiKey, model string, opts Options) *OpenAIRunner {
	if model == "" {
		model = DefaultOpenAIModel
	}
	return &OpenAIRunner{
		client: openai.NewClient(option.WithAPIKey(apiKey)),
		model:  model,
		opts:   opts.withDefaults(),
	}
}

// Run implements Runner. Each round sends the conversation so far; tool
// calls are executed locally (hydrate, validate, emit) and their results
// appended until the model stops calling tools or the round cap is hit.
func (r *OpenAIRunner) Run(ctx context.Context, sessionID, userMessage string, emit Emitter) (string, error) {
	params := openai.ChatCompletionNewParams{
		Model: shared.ChatModel(r.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(r.opts.SystemPrompt),
			openai.UserMessage(userMessage),
		},
		Tools: []openai.ChatCompletionToolUnionParam{
			openai.ChatCompletionFunctionTool(shared.FunctionDefinitionParam{
				Name:        EmitUIToolName,
				Description: openai.String(EmitUIToolDescription),
				Parameters:  shared.FunctionParameters(emitUIToolSchema(r.opts.AllowedTypes)),
			}),
		},
	}

	for round := 0; round < r.opts.MaxRounds; round++ {
		resp, err := r.client.Chat.Completions.New(ctx, params)
		if err != nil {
			return "", fmt.Errorf("chat completion: %w", err)
		}
		metrics.AgentRounds.Inc()
		if len(resp.Choices) == 0 {
			return "", fmt.Errorf("chat completion returned no choices")
		}

		choice := resp.Choices[0]
		params.Messages = append(params.Messages, choice.Message.ToParam())

		if len(choice.Message.ToolCalls) == 0 {
			return choice.Message.Content, nil
		}

		for _, tc := range choice.Message.ToolCalls {
			var result string
			if tc.Function.Name == EmitUIToolName {
				result = handleEmitCall(sessionID, tc.Function.Arguments, emit)
			} else {
				result = toolResult{OK: false, Error: "unknown tool: " + tc.Function.Name}.json()
			}
			params.Messages = append(params.Messages, openai.ToolMessage(result, tc.ID))
		}

		if choice.FinishReason == "stop" {
			return choice.Message.Content, nil
		}
	}

	return "", nil
}
