// Package bus owns per-session event delivery: UI patch events fan out to
// any number of subscribers, user action events flow back to the agent
// loop. Sessions are purely in-memory and time-bounded; the periodic sweep
// reclaims any session older than its TTL.
package bus

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/kibadist/agentui/internal/metrics"
	"github.com/kibadist/agentui/pkg/protocol"
)

// ErrSessionNotFound is returned for operations against an absent or
// expired session. Callers may react by re-creating the session.
var ErrSessionNotFound = errors.New("session not found")

const (
	DefaultTTL              = 30 * time.Minute
	DefaultCleanupInterval  = time.Minute
	DefaultSubscriberBuffer = 64
)

// Config controls session lifetime and subscriber buffering.
type Config struct {
	// TTL is the maximum age of a session before the sweep destroys it.
	TTL time.Duration
	// CleanupInterval is how often the sweep runs.
	CleanupInterval time.Duration
	// SubscriberBuffer is the per-subscriber channel capacity. A
	// subscriber that falls this far behind is disconnected.
	SubscriberBuffer int
}

// DefaultConfig returns the stock policy: 30 minute TTL, 60 second sweep,
// 64-event subscriber buffers.
func DefaultConfig() Config {
	return Config{
		TTL:              DefaultTTL,
		CleanupInterval:  DefaultCleanupInterval,
		SubscriberBuffer: DefaultSubscriberBuffer,
	}
}

// SessionEntry holds the delivery channels of one active session. Owned
// exclusively by the Bus.
type SessionEntry struct {
	ID        string
	UI        *Stream[protocol.UIEvent]
	Actions   *Stream[protocol.ActionEvent]
	CreatedAt time.Time
}

// Bus is the session table plus the sweep loop. All table access goes
// through one RWMutex so destroy never races emit on the same id.
type Bus struct {
	mu       sync.RWMutex
	sessions map[string]*SessionEntry

	cfg Config
	log *slog.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a Bus. Zero config fields fall back to defaults.
func New(cfg Config, log *slog.Logger) *Bus {
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultTTL
	}
	if cfg.CleanupInterval <= 0 {
		cfg.CleanupInterval = DefaultCleanupInterval
	}
	if cfg.SubscriberBuffer <= 0 {
		cfg.SubscriberBuffer = DefaultSubscriberBuffer
	}
	if log == nil {
		log = slog.Default()
	}
	return &Bus{
		sessions: make(map[string]*SessionEntry),
		cfg:      cfg,
		log:      log.With("component", "bus"),
	}
}

// Create establishes the session's channels. Calling Create on an existing
// id returns the existing entry; a fresh Create after Destroy starts a
// brand-new empty session.
func (b *Bus) Create(id string) *SessionEntry {
	b.mu.Lock()
	defer b.mu.Unlock()

	if entry, ok := b.sessions[id]; ok {
		return entry
	}
	entry := &SessionEntry{
		ID:        id,
		UI:        NewStream[protocol.UIEvent](),
		Actions:   NewStream[protocol.ActionEvent](),
		CreatedAt: time.Now(),
	}
	b.sessions[id] = entry
	metrics.SessionsActive.Set(float64(len(b.sessions)))
	b.log.Debug("session created", "session_id", id)
	return entry
}

// Get looks up an active session.
func (b *Bus) Get(id string) (*SessionEntry, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	entry, ok := b.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return entry, nil
}

// EmitUI publishes a validated UI patch event to every current subscriber
// of the session's UI stream, in strict emission order.
func (b *Bus) EmitUI(id string, ev protocol.UIEvent) error {
	entry, err := b.Get(id)
	if err != nil {
		return err
	}
	_, dropped := entry.UI.Publish(ev)
	metrics.EventsEmitted.WithLabelValues("ui").Inc()
	if dropped > 0 {
		metrics.SubscriberOverflow.WithLabelValues("ui").Add(float64(dropped))
		b.log.Warn("slow UI subscribers disconnected",
			"session_id", id, "dropped", dropped)
	}
	return nil
}

// EmitAction publishes a validated user action event to the session's
// action stream.
func (b *Bus) EmitAction(id string, ev protocol.ActionEvent) error {
	entry, err := b.Get(id)
	if err != nil {
		return err
	}
	_, dropped := entry.Actions.Publish(ev)
	metrics.EventsEmitted.WithLabelValues("action").Inc()
	if dropped > 0 {
		metrics.SubscriberOverflow.WithLabelValues("action").Add(float64(dropped))
		b.log.Warn("slow action subscribers disconnected",
			"session_id", id, "dropped", dropped)
	}
	return nil
}

// SubscribeUI attaches a new subscriber to the session's UI stream. Events
// emitted before the subscription are not replayed; the subscription
// terminates when the session closes.
func (b *Bus) SubscribeUI(id string) (*Subscription[protocol.UIEvent], error) {
	entry, err := b.Get(id)
	if err != nil {
		return nil, err
	}
	return entry.UI.Subscribe(b.cfg.SubscriberBuffer), nil
}

// SubscribeAction attaches a subscriber to the session's action stream.
// One logical consumer (the agent loop) is expected, but more are allowed.
func (b *Bus) SubscribeAction(id string) (*Subscription[protocol.ActionEvent], error) {
	entry, err := b.Get(id)
	if err != nil {
		return nil, err
	}
	return entry.Actions.Subscribe(b.cfg.SubscriberBuffer), nil
}

// Destroy closes both of the session's streams and releases the entry.
// Subscribers observe a graceful end of stream. Idempotent.
func (b *Bus) Destroy(id string) {
	b.mu.Lock()
	entry, ok := b.sessions[id]
	if ok {
		delete(b.sessions, id)
		metrics.SessionsActive.Set(float64(len(b.sessions)))
	}
	b.mu.Unlock()

	if ok {
		entry.UI.Close()
		entry.Actions.Close()
		b.log.Debug("session destroyed", "session_id", id)
	}
}

// Len reports the number of active sessions.
func (b *Bus) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.sessions)
}

// Start runs the periodic TTL sweep until ctx is cancelled or Shutdown is
// called.
func (b *Bus) Start(ctx context.Context) {
	ctx, b.cancel = context.WithCancel(ctx)
	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		ticker := time.NewTicker(b.cfg.CleanupInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				b.sweep(time.Now())
			}
		}
	}()
	b.log.Info("session sweep started",
		"ttl", b.cfg.TTL, "interval", b.cfg.CleanupInterval)
}

// sweep destroys every session older than the TTL.
func (b *Bus) sweep(now time.Time) {
	b.mu.RLock()
	var expired []string
	for id, entry := range b.sessions {
		if now.Sub(entry.CreatedAt) > b.cfg.TTL {
			expired = append(expired, id)
		}
	}
	b.mu.RUnlock()

	for _, id := range expired {
		if b.destroyExpired(id, now) {
			metrics.SessionsExpired.Inc()
			b.log.Info("session expired", "session_id", id)
		}
	}
}

// destroyExpired removes the session only if it is still past its TTL at
// the time of the check. A session destroyed and re-created under the same
// id since the sweep's scan keeps its fresh entry.
func (b *Bus) destroyExpired(id string, now time.Time) bool {
	b.mu.Lock()
	entry, ok := b.sessions[id]
	if !ok || now.Sub(entry.CreatedAt) <= b.cfg.TTL {
		b.mu.Unlock()
		return false
	}
	delete(b.sessions, id)
	metrics.SessionsActive.Set(float64(len(b.sessions)))
	b.mu.Unlock()

	entry.UI.Close()
	entry.Actions.Close()
	return true
}

// Shutdown stops the sweep and destroys all remaining sessions.
func (b *Bus) Shutdown() {
	if b.cancel != nil {
		b.cancel()
		b.wg.Wait()
	}

	b.mu.Lock()
	remaining := make([]*SessionEntry, 0, len(b.sessions))
	for _, entry := range b.sessions {
		remaining = append(remaining, entry)
	}
	b.sessions = make(map[string]*SessionEntry)
	metrics.SessionsActive.Set(0)
	b.mu.Unlock()

	for _, entry := range remaining {
		entry.UI.Close()
		entry.Actions.Close()
	}
}
