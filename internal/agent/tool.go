package agent

import (
	"encoding/json"

	"github.com/kibadist/agentui/pkg/protocol"
)

// EmitUIToolName is the function name the model calls to emit one UI patch
// operation.
const EmitUIToolName = "emit_ui_event"

// EmitUIToolDescription is shown to the model alongside the schema.
const EmitUIToolDescription = "Emit a UI event to render, update, or remove a component on the user's screen. " +
	"Each call produces exactly one patch operation."

// emitUIToolSchema builds the JSON schema for the tool's arguments: a
// union discriminated on `op`, with the node type restricted to the
// allowed component registry entries.
func emitUIToolSchema(allowedTypes []string) map[string]any {
	typeEnum := make([]any, len(allowedTypes))
	for i, t := range allowedTypes {
		typeEnum[i] = t
	}

	nodeSchema := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"key":   map[string]any{"type": "string", "minLength": 1},
			"type":  map[string]any{"type": "string", "enum": typeEnum},
			"props": map[string]any{"type": "object"},
			"slot":  map[string]any{"type": "string"},
		},
		"required": []any{"key", "type", "props"},
	}

	return map[string]any{
		"type": "object",
		"oneOf": []any{
			map[string]any{
				"type": "object",
				"properties": map[string]any{
					"op":    map[string]any{"const": "ui.append"},
					"node":  nodeSchema,
					"index": map[string]any{"type": "integer", "minimum": 0},
				},
				"required": []any{"op", "node"},
			},
			map[string]any{
				"type": "object",
				"properties": map[string]any{
					"op":      map[string]any{"const": "ui.replace"},
					"key":     map[string]any{"type": "string", "minLength": 1},
					"props":   map[string]any{"type": "object"},
					"replace": map[string]any{"type": "boolean"},
				},
				"required": []any{"op", "key", "props"},
			},
			map[string]any{
				"type": "object",
				"properties": map[string]any{
					"op":  map[string]any{"const": "ui.remove"},
					"key": map[string]any{"type": "string", "minLength": 1},
				},
				"required": []any{"op", "key"},
			},
			map[string]any{
				"type": "object",
				"properties": map[string]any{
					"op":      map[string]any{"const": "ui.toast"},
					"level":   map[string]any{"type": "string", "enum": []any{"info", "success", "warning", "error"}},
					"message": map[string]any{"type": "string", "minLength": 1},
				},
				"required": []any{"op", "level", "message"},
			},
			map[string]any{
				"type": "object",
				"properties": map[string]any{
					"op":      map[string]any{"const": "ui.navigate"},
					"href":    map[string]any{"type": "string", "minLength": 1},
					"replace": map[string]any{"type": "boolean"},
				},
				"required": []any{"op", "href"},
			},
		},
	}
}

// hydrateUIEvent completes the model's tool arguments into a full wire
// event (stamping v, id, ts, sessionId) and runs it through protocol
// validation, exactly like any other untrusted input.
func hydrateUIEvent(sessionID string, args map[string]any) (protocol.UIEvent, error) {
	base := protocol.NewBase(sessionID)

	full := make(map[string]any, len(args)+4)
	for k, v := range args {
		full[k] = v
	}
	full["v"] = base.V
	full["id"] = base.ID
	full["ts"] = base.TS
	full["sessionId"] = base.SessionID

	raw, err := json.Marshal(full)
	if err != nil {
		return nil, err
	}
	return protocol.ParseUIEvent(raw)
}

// toolResult is fed back to the model after each emit_ui_event call.
type toolResult struct {
	OK      bool   `json:"ok"`
	EventID string `json:"eventId,omitempty"`
	Error   string `json:"error,omitempty"`
}

func (r toolResult) json() string {
	b, _ := json.Marshal(r)
	return string(b)
}

// handleEmitCall hydrates, validates, and emits one tool call, returning
// the JSON result string for the model.
func handleEmitCall(sessionID string, argsJSON string, emit Emitter) string {
	var args map[string]any
	if err := json.Unmarshal([]byte(argsJSON), &args); err != nil {
		return toolResult{OK: false, Error: "malformed tool arguments: " + err.Error()}.json()
	}

	ev, err := hydrateUIEvent(sessionID, args)
	if err != nil {
		return toolResult{OK: false, Error: err.Error()}.json()
	}
	if err := emit(ev); err != nil {
		return toolResult{OK: false, Error: err.Error()}.json()
	}
	return toolResult{OK: true, EventID: ev.Base().ID}.json()
}
