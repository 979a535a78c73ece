package agent

import (
	"context"
	"encoding/json"
	"fmt"

	"google.golang.org/genai"

	"github.com/kibadist/agentui/internal/metrics"
)

// DefaultGeminiModel is used when no model override is configured.
const DefaultGeminiModel = "gemini-2.0-flash"

// GeminiRunner drives a function-calling loop against the Gemini API.
type GeminiRunner struct {
	client *genai.Client
	model  string
	opts   Options
}

// NewGeminiRunner builds a runner for the given API key and model.
func NewGeminiRunner(ctx context.Context, apiKey, model string, opts Options) (*GeminiRunner, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("gemini client: %w", err)
	}
	if model == "" {
		model = DefaultGeminiModel
	}
	return &GeminiRunner{client: client, model: model, opts: opts.withDefaults()}, nil
}

// Run implements Runner.
func (r *GeminiRunner) Run(ctx context.Context, sessionID, userMessage string, emit Emitter) (string, error) {
	config := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(r.opts.SystemPrompt, genai.RoleUser),
		Tools: []*genai.Tool{
			{FunctionDeclarations: []*genai.FunctionDeclaration{r.toolDeclaration()}},
		},
	}
	contents := []*genai.Content{genai.NewContentFromText(userMessage, genai.RoleUser)}

	for round := 0; round < r.opts.MaxRounds; round++ {
		resp, err := r.client.Models.GenerateContent(ctx, r.model, contents, config)
		if err != nil {
			return "", fmt.Errorf("generate content: %w", err)
		}
		metrics.AgentRounds.Inc()
		if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
			return "", fmt.Errorf("generate content returned no candidates")
		}

		contents = append(contents, resp.Candidates[0].Content)

		calls := resp.FunctionCalls()
		if len(calls) == 0 {
			return resp.Text(), nil
		}

		parts := make([]*genai.Part, 0, len(calls))
		for _, call := range calls {
			var result toolResult
			if call.Name == EmitUIToolName {
				argsJSON, _ := json.Marshal(call.Args)
				_ = json.Unmarshal([]byte(handleEmitCall(sessionID, string(argsJSON), emit)), &result)
			} else {
				result = toolResult{OK: false, Error: "unknown tool: " + call.Name}
			}
			parts = append(parts, genai.NewPartFromFunctionResponse(call.Name, map[string]any{
				"ok":      result.OK,
				"eventId": result.EventID,
				"error":   result.Error,
			}))
		}
		contents = append(contents, genai.NewContentFromParts(parts, genai.RoleUser))
	}

	return "", nil
}

// toolDeclaration describes emit_ui_event to Gemini. Gemini's schema
// dialect has no discriminated unions, so the declaration is a flattened
// superset; per-op validation still happens in hydrateUIEvent.
func (r *GeminiRunner) toolDeclaration() *genai.FunctionDeclaration {
	typeEnum := append([]string(nil), r.opts.AllowedTypes...)

	return &genai.FunctionDeclaration{
		Name:        EmitUIToolName,
		Description: EmitUIToolDescription,
		Parameters: &genai.Schema{
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"op": {
					Type: genai.TypeString,
					Enum: []string{"ui.append", "ui.replace", "ui.remove", "ui.toast", "ui.navigate"},
				},
				"node": {
					Type: genai.TypeObject,
					Properties: map[string]*genai.Schema{
						"key":   {Type: genai.TypeString},
						"type":  {Type: genai.TypeString, Enum: typeEnum},
						"props": {Type: genai.TypeObject},
						"slot":  {Type: genai.TypeString},
					},
				},
				"index":   {Type: genai.TypeInteger},
				"key":     {Type: genai.TypeString},
				"props":   {Type: genai.TypeObject},
				"replace": {Type: genai.TypeBoolean},
				"level": {
					Type: genai.TypeString,
					Enum: []string{"info", "success", "warning", "error"},
				},
				"message": {Type: genai.TypeString},
				"href":    {Type: genai.TypeString},
			},
			Required: []string{"op"},
		},
	}
}
