package agent

import (
	"context"
	"fmt"
	"time"

	"github.com/kibadist/agentui/pkg/protocol"
)

// Scripted is the no-API-key fallback producer: it demonstrates the
// protocol by echoing the user's message back as components.
type Scripted struct{}

// NewScripted returns the scripted fallback runner.
func NewScripted() *Scripted {
	return &Scripted{}
}

// Run implements Runner. It emits an echo text-block and a sample data
// table for every user message.
func (s *Scripted) Run(_ context.Context, sessionID, userMessage string, emit Emitter) (string, error) {
	now := time.Now().UnixNano()

	err := emit(protocol.NewAppend(sessionID, protocol.UINode{
		Key:  fmt.Sprintf("resp-%d", now),
		Type: "text-block",
		Props: map[string]any{
			"title": "Echo Response",
			"body":  fmt.Sprintf("You said: %q\n\n_(No model API key set, this is a scripted response.)_", userMessage),
		},
	}, nil))
	if err != nil {
		return "", err
	}

	err = emit(protocol.NewAppend(sessionID, protocol.UINode{
		Key:  fmt.Sprintf("sample-table-%d", now),
		Type: "data-table",
		Props: map[string]any{
			"title":   "Sample Data",
			"columns": []any{"Name", "Status", "Score"},
			"rows": []any{
				[]any{"Alice", "Active", "95"},
				[]any{"Bob", "Pending", "82"},
				[]any{"Carol", "Active", "91"},
			},
		},
	}, nil))
	if err != nil {
		return "", err
	}
	return "", nil
}
