package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/kibadist/agentui/pkg/protocol"
)

// dialWS opens a WebSocket connection to the session's stream endpoint.
func dialWS(t *testing.T, baseURL, sessionID string) *websocket.Conn {
	t.Helper()
	wsURL := "ws" + strings.TrimPrefix(baseURL, "http") + "/agent/" + sessionID + "/ws"
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial %s: %v", wsURL, err)
	}
	if resp != nil {
		resp.Body.Close()
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

// readEnvelope reads one server frame with a deadline.
func readEnvelope(t *testing.T, conn *websocket.Conn) wsEnvelope {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var env wsEnvelope
	if err := conn.ReadJSON(&env); err != nil {
		t.Fatalf("read envelope: %v", err)
	}
	return env
}

func envelopeOp(t *testing.T, env wsEnvelope) string {
	t.Helper()
	raw, err := json.Marshal(env.Event)
	if err != nil {
		t.Fatalf("marshal envelope event: %v", err)
	}
	var probe struct {
		Op string `json:"op"`
	}
	if err := json.Unmarshal(raw, &probe); err != nil {
		t.Fatalf("unmarshal envelope event: %v", err)
	}
	return probe.Op
}

func TestWS_NotFound(t *testing.T) {
	env := newTestEnv(t)
	srv := httptest.NewServer(env.router())
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/agent/nonexistent/ws"
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err == nil {
		conn.Close()
		t.Fatal("expected dial to fail for unknown session")
	}
	if resp == nil || resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected handshake 404, got %v", resp)
	}
	resp.Body.Close()
}

func TestWS_ReceivesUIEvents(t *testing.T) {
	env := newTestEnv(t)
	srv := httptest.NewServer(env.router())
	defer srv.Close()

	sessionID := createSessionViaHTTP(t, srv.URL)
	conn := dialWS(t, srv.URL, sessionID)

	if err := env.bus.EmitUI(sessionID, protocol.NewToast(sessionID, protocol.ToastInfo, "over the wire")); err != nil {
		t.Fatalf("emit: %v", err)
	}

	frame := readEnvelope(t, conn)
	if frame.Type != "ui" {
		t.Fatalf("envelope type = %q, want ui", frame.Type)
	}
	if op := envelopeOp(t, frame); op != "ui.toast" {
		t.Errorf("event op = %q, want ui.toast", op)
	}
}

func TestWS_ActionRoundTrip(t *testing.T) {
	env := newTestEnv(t)
	srv := httptest.NewServer(env.router())
	defer srv.Close()

	sessionID := createSessionViaHTTP(t, srv.URL)
	conn := dialWS(t, srv.URL, sessionID)

	if err := conn.WriteMessage(websocket.TextMessage, submitActionJSON(sessionID, "via ws")); err != nil {
		t.Fatalf("write action: %v", err)
	}

	// The scripted agent answers with two ui.append events, pushed back
	// down the same connection.
	for i := 0; i < 2; i++ {
		frame := readEnvelope(t, conn)
		if frame.Type != "ui" {
			t.Fatalf("envelope[%d].type = %q, want ui", i, frame.Type)
		}
		if op := envelopeOp(t, frame); op != "ui.append" {
			t.Errorf("envelope[%d] op = %q, want ui.append", i, op)
		}
	}
}

func TestWS_InvalidAction(t *testing.T) {
	env := newTestEnv(t)
	srv := httptest.NewServer(env.router())
	defer srv.Close()

	sessionID := createSessionViaHTTP(t, srv.URL)
	conn := dialWS(t, srv.URL, sessionID)

	if err := conn.WriteMessage(websocket.TextMessage, []byte(`{"bogus":true}`)); err != nil {
		t.Fatalf("write: %v", err)
	}

	frame := readEnvelope(t, conn)
	if frame.Type != "error" {
		t.Fatalf("envelope type = %q, want error", frame.Type)
	}
	if frame.Message == "" {
		t.Error("expected error message")
	}
}

func TestWS_SessionMismatch(t *testing.T) {
	env := newTestEnv(t)
	srv := httptest.NewServer(env.router())
	defer srv.Close()

	sessionID := createSessionViaHTTP(t, srv.URL)
	conn := dialWS(t, srv.URL, sessionID)

	if err := conn.WriteMessage(websocket.TextMessage, submitActionJSON("someone-else", "sneaky")); err != nil {
		t.Fatalf("write: %v", err)
	}

	frame := readEnvelope(t, conn)
	if frame.Type != "error" {
		t.Fatalf("envelope type = %q, want error", frame.Type)
	}
}

func TestWS_ActionsDuringSessionDestroy(t *testing.T) {
	env := newTestEnv(t)
	srv := httptest.NewServer(env.router())
	defer srv.Close()

	sessionID := createSessionViaHTTP(t, srv.URL)
	conn := dialWS(t, srv.URL, sessionID)

	// Keep actions in flight while the session is torn down: the read
	// loop's error envelopes must not race the client teardown.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 50; i++ {
			if err := conn.WriteMessage(websocket.TextMessage, submitActionJSON(sessionID, "racing")); err != nil {
				return
			}
		}
	}()

	env.bus.Destroy(sessionID)
	<-done

	// The server must end the connection cleanly instead of panicking.
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func TestWSClient_QueueAfterClose(t *testing.T) {
	env := newTestEnv(t)
	srv := httptest.NewServer(env.router())
	defer srv.Close()

	sessionID := createSessionViaHTTP(t, srv.URL)
	client := newWSClient(dialWS(t, srv.URL, sessionID))

	client.Close()
	if client.Queue(wsEnvelope{Type: "ui"}) {
		t.Fatal("Queue after Close must report failure, not send")
	}
	// Close is idempotent.
	client.Close()
}

func TestWS_SessionDestroyClosesConnection(t *testing.T) {
	env := newTestEnv(t)
	srv := httptest.NewServer(env.router())
	defer srv.Close()

	sessionID := createSessionViaHTTP(t, srv.URL)
	conn := dialWS(t, srv.URL, sessionID)

	env.bus.Destroy(sessionID)

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure) &&
				!strings.Contains(err.Error(), "close") {
				t.Fatalf("expected close error, got %v", err)
			}
			return
		}
	}
}
