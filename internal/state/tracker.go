package state

import (
	"log/slog"
	"sync"

	"github.com/kibadist/agentui/internal/bus"
	"github.com/kibadist/agentui/pkg/protocol"
)

// Tracker follows each watched session's UI stream and keeps the folded
// State, so late-joining clients can fetch a snapshot instead of replaying
// the whole event history.
type Tracker struct {
	bus *bus.Bus
	log *slog.Logger

	mu     sync.RWMutex
	states map[string]State
}

// NewTracker creates a Tracker over the given bus.
func NewTracker(b *bus.Bus, log *slog.Logger) *Tracker {
	if log == nil {
		log = slog.Default()
	}
	return &Tracker{
		bus:    b,
		log:    log.With("component", "tracker"),
		states: make(map[string]State),
	}
}

// Watch subscribes to the session's UI stream and starts folding events.
// Call it right after the session is created, before any events are
// emitted, since past events are not replayed. Watching a session twice is
// a no-op.
func (t *Tracker) Watch(id string) error {
	sub, err := t.bus.SubscribeUI(id)
	if err != nil {
		return err
	}

	t.mu.Lock()
	if _, ok := t.states[id]; ok {
		t.mu.Unlock()
		sub.Cancel()
		return nil
	}
	t.states[id] = New()
	t.mu.Unlock()

	go t.follow(id, sub)
	return nil
}

func (t *Tracker) follow(id string, sub *bus.Subscription[protocol.UIEvent]) {
	for ev := range sub.C {
		t.mu.Lock()
		t.states[id] = Apply(t.states[id], ev)
		t.mu.Unlock()
	}

	// Stream ended: session destroyed, or this subscriber was dropped for
	// falling behind. Either way the snapshot is no longer authoritative.
	if _, err := t.bus.Get(id); err == nil {
		t.log.Warn("state tracker fell behind, snapshot discarded", "session_id", id)
	}

	t.mu.Lock()
	delete(t.states, id)
	t.mu.Unlock()
}

// Snapshot returns the current folded state of a watched session.
func (t *Tracker) Snapshot(id string) (State, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	s, ok := t.states[id]
	return s, ok
}
