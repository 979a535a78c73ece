package agent

import (
	"context"
	"log/slog"

	"github.com/kibadist/agentui/internal/bus"
	"github.com/kibadist/agentui/pkg/protocol"
)

// Loop is the per-session agent consumer: it subscribes to the session's
// action stream and runs the configured Runner for each inbound action,
// pushing the resulting UI events back through the bus.
type Loop struct {
	bus    *bus.Bus
	runner Runner
	log    *slog.Logger
}

// NewLoop wires a Runner to a Bus.
func NewLoop(b *bus.Bus, runner Runner, log *slog.Logger) *Loop {
	if log == nil {
		log = slog.Default()
	}
	return &Loop{bus: b, runner: runner, log: log.With("component", "agent")}
}

// Start subscribes to the session's actions and processes them until the
// session closes or ctx is cancelled. It must be called after the session
// is created and before the first action is emitted.
func (l *Loop) Start(ctx context.Context, sessionID string) error {
	sub, err := l.bus.SubscribeAction(sessionID)
	if err != nil {
		return err
	}

	go func() {
		defer sub.Cancel()
		for {
			select {
			case <-ctx.Done():
				return
			case action, ok := <-sub.C:
				if !ok {
					return
				}
				l.handle(ctx, sessionID, action)
			}
		}
	}()
	return nil
}

func (l *Loop) handle(ctx context.Context, sessionID string, action protocol.ActionEvent) {
	emit := func(ev protocol.UIEvent) error {
		return l.bus.EmitUI(sessionID, ev)
	}

	if _, err := l.runner.Run(ctx, sessionID, UserMessage(action), emit); err != nil {
		l.log.Error("agent run failed",
			"session_id", sessionID, "action", action.Action().Name, "error", err)
		_ = emit(protocol.NewToast(sessionID, protocol.ToastError, "Agent error: "+err.Error()))
	}
}
