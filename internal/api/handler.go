// Package api exposes the session bus over HTTP: REST endpoints for
// session lifecycle and actions, SSE and WebSocket push streams for UI
// events.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/kibadist/agentui/internal/agent"
	"github.com/kibadist/agentui/internal/bus"
	"github.com/kibadist/agentui/internal/metrics"
	"github.com/kibadist/agentui/internal/state"
	"github.com/kibadist/agentui/pkg/protocol"
)

// maxActionBody bounds inbound action payload size.
const maxActionBody = 1 << 20

type sessionResponse struct {
	SessionID string `json:"sessionId"`
}

type okResponse struct {
	OK bool `json:"ok"`
}

type errorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// Handler routes agent UI requests to the session bus.
type Handler struct {
	bus     *bus.Bus
	tracker *state.Tracker
	loop    *agent.Loop
	limiter *rateLimiter
	log     *slog.Logger
}

// NewHandler builds a Handler. actionRPS limits inbound actions per
// session; zero disables the limit.
func NewHandler(b *bus.Bus, tracker *state.Tracker, loop *agent.Loop, actionRPS float64, log *slog.Logger) *Handler {
	if log == nil {
		log = slog.Default()
	}
	return &Handler{
		bus:     b,
		tracker: tracker,
		loop:    loop,
		limiter: newRateLimiter(actionRPS),
		log:     log.With("component", "api"),
	}
}

// Mount registers all routes on the provided router.
func (h *Handler) Mount(r chi.Router) {
	r.Post("/agent/session", h.createSession)
	r.Get("/agent/{sessionID}/stream", h.streamUI)
	r.Get("/agent/{sessionID}/ws", h.websocketStream)
	r.Post("/agent/{sessionID}/action", h.postAction)
	r.Get("/agent/{sessionID}/state", h.getState)
	r.Delete("/agent/{sessionID}", h.destroySession)
	r.Get("/healthz", h.healthz)
}

// createSession establishes a new session: bus entry, state tracker, agent
// loop, and a welcome toast.
func (h *Handler) createSession(w http.ResponseWriter, r *http.Request) {
	id := uuid.NewString()
	h.bus.Create(id)

	// Tracker and agent loop subscribe before anything is emitted, so
	// neither misses an event.
	if err := h.tracker.Watch(id); err != nil {
		h.bus.Destroy(id)
		writeError(w, http.StatusInternalServerError, "failed to start state tracker", err.Error())
		return
	}
	if err := h.loop.Start(context.Background(), id); err != nil {
		h.bus.Destroy(id)
		writeError(w, http.StatusInternalServerError, "failed to start agent loop", err.Error())
		return
	}

	_ = h.bus.EmitUI(id, protocol.NewToast(id, protocol.ToastInfo,
		"Session started. Send a message to begin."))

	h.log.Info("session created", "session_id", id)
	writeJSON(w, http.StatusCreated, sessionResponse{SessionID: id})
}

// postAction validates an inbound user action and publishes it to the
// session's action stream.
func (h *Handler) postAction(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxActionBody))
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read request body", err.Error())
		return
	}

	action, err := protocol.ParseActionEvent(body)
	if err != nil {
		metrics.EventsRejected.WithLabelValues("validation").Inc()
		writeError(w, http.StatusBadRequest, "invalid action event", err.Error())
		return
	}
	if action.Base().SessionID != sessionID {
		metrics.EventsRejected.WithLabelValues("session_mismatch").Inc()
		writeError(w, http.StatusBadRequest, "action sessionId does not match URL", "")
		return
	}
	if !h.limiter.allow(sessionID) {
		metrics.EventsRejected.WithLabelValues("rate_limit").Inc()
		writeError(w, http.StatusTooManyRequests, "too many actions", "")
		return
	}

	if err := h.bus.EmitAction(sessionID, action); err != nil {
		if errors.Is(err, bus.ErrSessionNotFound) {
			writeError(w, http.StatusNotFound, "session not found", "")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to publish action", err.Error())
		return
	}

	writeJSON(w, http.StatusAccepted, okResponse{OK: true})
}

// getState serves the current folded UI state for late-joining clients.
func (h *Handler) getState(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	snapshot, ok := h.tracker.Snapshot(sessionID)
	if !ok {
		writeError(w, http.StatusNotFound, "session not found", "")
		return
	}
	writeJSON(w, http.StatusOK, snapshot)
}

// destroySession tears the session down. Idempotent, like bus.Destroy.
func (h *Handler) destroySession(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	h.bus.Destroy(sessionID)
	h.limiter.forget(sessionID)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, okResponse{OK: true})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, message, details string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	resp := errorResponse{Error: message}
	if details != "" {
		resp.Details = details
	}
	_ = json.NewEncoder(w).Encode(resp)
}
