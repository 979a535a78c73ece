// Package agent runs the LLM producer side of a session: it exposes an
// emit_ui_event tool to the model, hydrates tool calls into validated
// protocol events, and pushes them onto the session bus. A scripted
// producer stands in when no model API key is configured.
package agent

import (
	"context"

	"github.com/kibadist/agentui/pkg/protocol"
)

// Emitter delivers one validated UI event to the session's subscribers.
type Emitter func(protocol.UIEvent) error

// Runner turns one user message into a stream of UI events. Run returns
// the model's final plain-text answer, if any.
type Runner interface {
	Run(ctx context.Context, sessionID, userMessage string, emit Emitter) (string, error)
}

// DefaultMaxRounds caps tool-call rounds per Run.
const DefaultMaxRounds = 10

// DefaultAllowedTypes are the component types the bundled system prompt
// describes. A deployment with its own component registry overrides both.
var DefaultAllowedTypes = []string{
	"text-block",
	"info-card",
	"action-card",
	"data-table",
	"status-badge",
}

// DefaultSystemPrompt instructs the model to answer through UI components.
const DefaultSystemPrompt = `You are a helpful assistant that renders UI components for the user.

You MUST use the emit_ui_event tool to show information on screen.
Each component you emit needs a unique "key" string.

Available component types and their props:

1. "text-block": title (optional heading), body (markdown or plain text)
2. "info-card": title, description, icon (optional emoji)
3. "action-card": title, description, actions (array of {name, label} buttons)
4. "data-table": title (optional), columns (array of string), rows (array of array of string)
5. "status-badge": label, variant ("info" | "success" | "warning" | "error")

You can also use:
- op "ui.toast" to show ephemeral notifications
- op "ui.replace" to update an existing component by key
- op "ui.remove" to remove a component by key

Always respond with UI components. Be concise.`

// Options configures a model-backed runner.
type Options struct {
	SystemPrompt string
	AllowedTypes []string
	MaxRounds    int
}

func (o Options) withDefaults() Options {
	if o.SystemPrompt == "" {
		o.SystemPrompt = DefaultSystemPrompt
	}
	if len(o.AllowedTypes) == 0 {
		o.AllowedTypes = DefaultAllowedTypes
	}
	if o.MaxRounds <= 0 {
		o.MaxRounds = DefaultMaxRounds
	}
	return o
}

// UserMessage extracts the user-facing text of an action: the "message"
// payload entry when present, otherwise a description of the action name.
func UserMessage(action protocol.ActionEvent) string {
	act := action.Action()
	if msg, ok := act.Payload["message"].(string); ok && msg != "" {
		return msg
	}
	return "User performed action: " + act.Name
}
