package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/kibadist/agentui/pkg/protocol"
)

// streamUI streams a session's UI patch events as Server-Sent Events.
// The subscription is registered before headers are flushed so no event
// is lost between the client seeing the 200 and the first emission.
func (h *Handler) streamUI(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming not supported", "")
		return
	}

	sub, err := h.bus.SubscribeUI(sessionID)
	if err != nil {
		writeError(w, http.StatusNotFound, "session not found", "")
		return
	}
	defer sub.Cancel()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-sub.C:
			if !ok {
				// Session closed: end the stream gracefully.
				return
			}
			if err := writeSSEEvent(w, ev); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

// writeSSEEvent frames one event, using the event's wire id as the SSE id
// so clients get stable per-event identity.
func writeSSEEvent(w http.ResponseWriter, ev protocol.UIEvent) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "id: %s\ndata: %s\n\n", ev.Base().ID, data)
	return err
}
