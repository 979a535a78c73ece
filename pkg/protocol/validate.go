package protocol

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ValidationError reports the first constraint an incoming event violates.
// It is always recoverable: callers drop or log the offending input.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "invalid event: " + e.Message
	}
	return fmt.Sprintf("invalid event: %s: %s", e.Field, e.Message)
}

func invalid(field, format string, args ...any) *ValidationError {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// ParseUIEvent decodes and validates a raw UI patch event. The input is
// never mutated. Unknown top-level fields are permitted for forward
// compatibility; an unknown `op` is not.
func ParseUIEvent(raw []byte) (UIEvent, error) {
	var probe struct {
		Op UIPatchOp `json:"op"`
	}
	if err := json.Unmarshal(raw, &probe); err != nil {
		return nil, invalid("", "malformed JSON: %v", err)
	}

	switch probe.Op {
	case OpAppend:
		var e UIAppendEvent
		if err := json.Unmarshal(raw, &e); err != nil {
			return nil, invalid("", "malformed ui.append event: %v", err)
		}
		if err := validateBase(e.BaseEvent); err != nil {
			return nil, err
		}
		if err := validateNode("node", e.Node); err != nil {
			return nil, err
		}
		if e.Index != nil && *e.Index < 0 {
			return nil, invalid("index", "must be non-negative")
		}
		return e, nil

	case OpReplace:
		var e UIReplaceEvent
		if err := json.Unmarshal(raw, &e); err != nil {
			return nil, invalid("", "malformed ui.replace event: %v", err)
		}
		if err := validateBase(e.BaseEvent); err != nil {
			return nil, err
		}
		if err := requireString("key", e.Key); err != nil {
			return nil, err
		}
		if e.Props == nil {
			return nil, invalid("props", "required")
		}
		return e, nil

	case OpRemove:
		var e UIRemoveEvent
		if err := json.Unmarshal(raw, &e); err != nil {
			return nil, invalid("", "malformed ui.remove event: %v", err)
		}
		if err := validateBase(e.BaseEvent); err != nil {
			return nil, err
		}
		if err := requireString("key", e.Key); err != nil {
			return nil, err
		}
		return e, nil

	case OpToast:
		var e UIToastEvent
		if err := json.Unmarshal(raw, &e); err != nil {
			return nil, invalid("", "malformed ui.toast event: %v", err)
		}
		if err := validateBase(e.BaseEvent); err != nil {
			return nil, err
		}
		switch e.Level {
		case ToastInfo, ToastSuccess, ToastWarning, ToastError:
		default:
			return nil, invalid("level", "must be one of info, success, warning, error")
		}
		if err := requireString("message", e.Message); err != nil {
			return nil, err
		}
		return e, nil

	case OpNavigate:
		var e UINavigateEvent
		if err := json.Unmarshal(raw, &e); err != nil {
			return nil, invalid("", "malformed ui.navigate event: %v", err)
		}
		if err := validateBase(e.BaseEvent); err != nil {
			return nil, err
		}
		if err := requireString("href", e.Href); err != nil {
			return nil, err
		}
		return e, nil

	case "":
		return nil, invalid("op", "required")

	default:
		return nil, invalid("op", "unknown op %q", string(probe.Op))
	}
}

// ParseActionEvent decodes and validates a raw user action event,
// discriminated on `type`.
func ParseActionEvent(raw []byte) (ActionEvent, error) {
	var probe struct {
		Type     ActionEventType `json:"type"`
		Approved *bool           `json:"approved"`
	}
	if err := json.Unmarshal(raw, &probe); err != nil {
		return nil, invalid("", "malformed JSON: %v", err)
	}

	switch probe.Type {
	case ActionSubmit:
		var e ActionSubmitEvent
		if err := json.Unmarshal(raw, &e); err != nil {
			return nil, invalid("", "malformed action event: %v", err)
		}
		if err := validateActionBase(e.ActionBase); err != nil {
			return nil, err
		}
		return e, nil

	case ActionSelect:
		var e ActionSelectEvent
		if err := json.Unmarshal(raw, &e); err != nil {
			return nil, invalid("", "malformed action event: %v", err)
		}
		if err := validateActionBase(e.ActionBase); err != nil {
			return nil, err
		}
		return e, nil

	case ActionApprove:
		var e ActionApproveEvent
		if err := json.Unmarshal(raw, &e); err != nil {
			return nil, invalid("", "malformed action event: %v", err)
		}
		if err := validateActionBase(e.ActionBase); err != nil {
			return nil, err
		}
		if probe.Approved == nil {
			return nil, invalid("approved", "required for action.approve")
		}
		return e, nil

	case ActionGeneric:
		var e ActionGenericEvent
		if err := json.Unmarshal(raw, &e); err != nil {
			return nil, invalid("", "malformed action event: %v", err)
		}
		if err := validateActionBase(e.ActionBase); err != nil {
			return nil, err
		}
		return e, nil

	case "":
		return nil, invalid("type", "required")

	default:
		return nil, invalid("type", "unknown action type %q", string(probe.Type))
	}
}

func validateBase(b BaseEvent) error {
	if b.V != Version {
		return invalid("v", "unsupported protocol version %d (want %d)", b.V, Version)
	}
	if err := requireString("id", b.ID); err != nil {
		return err
	}
	if err := requireString("ts", b.TS); err != nil {
		return err
	}
	return requireString("sessionId", b.SessionID)
}

func validateActionBase(a ActionBase) error {
	if err := validateBase(a.BaseEvent); err != nil {
		return err
	}
	if a.Kind != ActionKind {
		return invalid("kind", "must be %q", ActionKind)
	}
	return requireString("name", a.Name)
}

// validateNode checks a UINode and all of its children. path identifies the
// failing node in error messages, e.g. "node.children[1]".
func validateNode(path string, n UINode) error {
	if err := requireString(path+".key", n.Key); err != nil {
		return err
	}
	if err := requireString(path+".type", n.Type); err != nil {
		return err
	}
	if n.Props == nil {
		return invalid(path+".props", "required")
	}
	if n.Meta != nil && n.Meta.TTLMs != nil && *n.Meta.TTLMs <= 0 {
		return invalid(path+".meta.ttlMs", "must be positive")
	}
	for i, child := range n.Children {
		if err := validateNode(fmt.Sprintf("%s.children[%d]", path, i), child); err != nil {
			return err
		}
	}
	return nil
}

func requireString(field, value string) error {
	if strings.TrimSpace(value) == "" {
		return invalid(field, "must be a non-empty string")
	}
	return nil
}
