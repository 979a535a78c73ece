package protocol

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func base(extra string) string {
	s := `{"v":1,"id":"evt-1","ts":"2026-01-02T03:04:05Z","sessionId":"sess-1"`
	if extra != "" {
		s += "," + extra
	}
	return s + "}"
}

func TestParseUIEventAppend(t *testing.T) {
	raw := base(`"op":"ui.append","node":{"key":"a","type":"text-block","props":{"body":"hi"}},"index":0`)

	ev, err := ParseUIEvent([]byte(raw))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	app, ok := ev.(UIAppendEvent)
	if !ok {
		t.Fatalf("expected UIAppendEvent, got %T", ev)
	}
	if app.Node.Key != "a" || app.Node.Type != "text-block" {
		t.Errorf("unexpected node %+v", app.Node)
	}
	if app.Index == nil || *app.Index != 0 {
		t.Errorf("expected index 0, got %v", app.Index)
	}
	if app.SessionID != "sess-1" {
		t.Errorf("expected sessionId sess-1, got %q", app.SessionID)
	}
}

func TestParseUIEventVariants(t *testing.T) {
	cases := []struct {
		name string
		raw  string
		op   UIPatchOp
	}{
		{"replace", base(`"op":"ui.replace","key":"a","props":{"body":"new"}`), OpReplace},
		{"remove", base(`"op":"ui.remove","key":"a"`), OpRemove},
		{"toast", base(`"op":"ui.toast","level":"info","message":"hello"`), OpToast},
		{"navigate", base(`"op":"ui.navigate","href":"/done","replace":true`), OpNavigate},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ev, err := ParseUIEvent([]byte(tc.raw))
			if err != nil {
				t.Fatalf("parse: %v", err)
			}
			if ev.PatchOp() != tc.op {
				t.Errorf("expected op %q, got %q", tc.op, ev.PatchOp())
			}
		})
	}
}

func TestParseUIEventRejects(t *testing.T) {
	cases := []struct {
		name  string
		raw   string
		field string
	}{
		{"unknown op", base(`"op":"ui.explode"`), "op"},
		{"missing op", base(``), "op"},
		{"wrong version", `{"v":2,"id":"e","ts":"t","sessionId":"s","op":"ui.remove","key":"a"}`, "v"},
		{"blank id", `{"v":1,"id":"  ","ts":"t","sessionId":"s","op":"ui.remove","key":"a"}`, "id"},
		{"missing sessionId", `{"v":1,"id":"e","ts":"t","op":"ui.remove","key":"a"}`, "sessionId"},
		{"blank key", base(`"op":"ui.remove","key":" "`), "key"},
		{"missing node props", base(`"op":"ui.append","node":{"key":"a","type":"text-block"}`), "node.props"},
		{"negative index", base(`"op":"ui.append","node":{"key":"a","type":"t","props":{}},"index":-1`), "index"},
		{"bad toast level", base(`"op":"ui.toast","level":"fatal","message":"x"`), "level"},
		{"empty toast message", base(`"op":"ui.toast","level":"info","message":""`), "message"},
		{"empty href", base(`"op":"ui.navigate","href":""`), "href"},
		{"missing replace props", base(`"op":"ui.replace","key":"a"`), "props"},
		{"bad child node", base(`"op":"ui.append","node":{"key":"a","type":"t","props":{},"children":[{"key":"","type":"t","props":{}}]}`), "node.children[0].key"},
		{"zero ttl", base(`"op":"ui.append","node":{"key":"a","type":"t","props":{},"meta":{"ttlMs":0}}`), "node.meta.ttlMs"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseUIEvent([]byte(tc.raw))
			if err == nil {
				t.Fatal("expected error")
			}
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("expected ValidationError, got %T", err)
			}
			if verr.Field != tc.field {
				t.Errorf("expected field %q, got %q (%v)", tc.field, verr.Field, err)
			}
		})
	}
}

func TestParseUIEventUnknownFieldsPermitted(t *testing.T) {
	raw := base(`"op":"ui.remove","key":"a","futureField":42`)
	if _, err := ParseUIEvent([]byte(raw)); err != nil {
		t.Fatalf("unknown fields should be permitted: %v", err)
	}
}

func TestParseUIEventMetaIsStrict(t *testing.T) {
	raw := base(`"op":"ui.append","node":{"key":"a","type":"t","props":{},"meta":{"ttlMs":10,"extra":true}}`)
	if _, err := ParseUIEvent([]byte(raw)); err == nil {
		t.Fatal("unknown meta fields should be rejected")
	}

	ok := base(`"op":"ui.append","node":{"key":"a","type":"t","props":{},"meta":{"ttlMs":10,"requires":["camera"]}}`)
	if _, err := ParseUIEvent([]byte(ok)); err != nil {
		t.Fatalf("known meta fields should parse: %v", err)
	}
}

func TestParseUIEventMalformedJSON(t *testing.T) {
	if _, err := ParseUIEvent([]byte(`{not json`)); err == nil {
		t.Fatal("expected error")
	}
}

func TestParseUIEventNestedChildren(t *testing.T) {
	raw := base(`"op":"ui.append","node":{"key":"root","type":"card","props":{},"children":[{"key":"c1","type":"text","props":{"body":"x"},"children":[{"key":"c2","type":"text","props":{}}]}]}`)
	ev, err := ParseUIEvent([]byte(raw))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	node := ev.(UIAppendEvent).Node
	if len(node.Children) != 1 || len(node.Children[0].Children) != 1 {
		t.Fatalf("unexpected children shape: %+v", node)
	}
}

func TestParseActionEvent(t *testing.T) {
	t.Run("submit", func(t *testing.T) {
		raw := base(`"kind":"action","type":"action.submit","name":"chat.send","payload":{"message":"hi"},"uiKey":"chat-input"`)
		ev, err := ParseActionEvent([]byte(raw))
		if err != nil {
			t.Fatalf("parse: %v", err)
		}
		if ev.ActionType() != ActionSubmit {
			t.Errorf("expected action.submit, got %q", ev.ActionType())
		}
		act := ev.Action()
		if act.Name != "chat.send" || act.UIKey != "chat-input" {
			t.Errorf("unexpected action fields %+v", act)
		}
		if act.Payload["message"] != "hi" {
			t.Errorf("unexpected payload %+v", act.Payload)
		}
	})

	t.Run("approve requires approved", func(t *testing.T) {
		raw := base(`"kind":"action","type":"action.approve","name":"purchase.confirm"`)
		_, err := ParseActionEvent([]byte(raw))
		var verr *ValidationError
		if !errors.As(err, &verr) || verr.Field != "approved" {
			t.Fatalf("expected approved validation error, got %v", err)
		}

		raw = base(`"kind":"action","type":"action.approve","name":"purchase.confirm","approved":false`)
		ev, err := ParseActionEvent([]byte(raw))
		if err != nil {
			t.Fatalf("parse: %v", err)
		}
		if ev.(ActionApproveEvent).Approved {
			t.Error("expected approved=false to round-trip")
		}
	})

	t.Run("generic", func(t *testing.T) {
		raw := base(`"kind":"action","type":"action","name":"ping"`)
		ev, err := ParseActionEvent([]byte(raw))
		if err != nil {
			t.Fatalf("parse: %v", err)
		}
		if ev.ActionType() != ActionGeneric {
			t.Errorf("expected generic action, got %q", ev.ActionType())
		}
	})

	t.Run("rejects", func(t *testing.T) {
		cases := []struct {
			name  string
			raw   string
			field string
		}{
			{"unknown type", base(`"kind":"action","type":"action.dance","name":"x"`), "type"},
			{"missing type", base(`"kind":"action","name":"x"`), "type"},
			{"wrong kind", base(`"kind":"event","type":"action.submit","name":"x"`), "kind"},
			{"missing name", base(`"kind":"action","type":"action.select"`), "name"},
		}
		for _, tc := range cases {
			t.Run(tc.name, func(t *testing.T) {
				_, err := ParseActionEvent([]byte(tc.raw))
				var verr *ValidationError
				if !errors.As(err, &verr) {
					t.Fatalf("expected ValidationError, got %v", err)
				}
				if verr.Field != tc.field {
					t.Errorf("expected field %q, got %q", tc.field, verr.Field)
				}
			})
		}
	})
}

func TestConstructorsProduceValidEvents(t *testing.T) {
	idx := 2
	events := []UIEvent{
		NewAppend("s", UINode{Key: "k", Type: "text-block", Props: map[string]any{}}, &idx),
		NewReplace("s", "k", map[string]any{"a": 1}, false),
		NewRemove("s", "k"),
		NewToast("s", ToastError, "boom"),
		NewNavigate("s", "/next", true),
	}
	for _, ev := range events {
		raw, err := json.Marshal(ev)
		if err != nil {
			t.Fatalf("marshal %T: %v", ev, err)
		}
		parsed, err := ParseUIEvent(raw)
		if err != nil {
			t.Fatalf("constructed %T did not validate: %v\n%s", ev, err, raw)
		}
		if parsed.PatchOp() != ev.PatchOp() {
			t.Errorf("op mismatch: %q != %q", parsed.PatchOp(), ev.PatchOp())
		}
		if parsed.Base().ID == "" || !strings.Contains(parsed.Base().TS, "T") {
			t.Errorf("constructor did not stamp envelope: %+v", parsed.Base())
		}
	}

	act := NewAction("s", "ping", map[string]any{"n": 1})
	raw, _ := json.Marshal(act)
	if _, err := ParseActionEvent(raw); err != nil {
		t.Fatalf("constructed action did not validate: %v\n%s", err, raw)
	}
}

func TestParseDoesNotMutateRaw(t *testing.T) {
	raw := []byte(base(`"op":"ui.toast","level":"info","message":"x"`))
	copied := make([]byte, len(raw))
	copy(copied, raw)
	_, _ = ParseUIEvent(raw)
	if string(raw) != string(copied) {
		t.Fatal("ParseUIEvent mutated its input")
	}
}
