package protocol

import (
	"time"

	"github.com/google/uuid"
)

// NewBase stamps a fresh event envelope for the given session.
func NewBase(sessionID string) BaseEvent {
	return BaseEvent{
		V:         Version,
		ID:        uuid.NewString(),
		TS:        time.Now().UTC().Format(time.RFC3339Nano),
		SessionID: sessionID,
	}
}

// NewAppend builds a ui.append event. index may be nil to append at the end.
func NewAppend(sessionID string, node UINode, index *int) UIAppendEvent {
	return UIAppendEvent{
		BaseEvent: NewBase(sessionID),
		Op:        OpAppend,
		Node:      node,
		Index:     index,
	}
}

// NewReplace builds a ui.replace event. When replace is false the props are
// shallow-merged over the node's existing props.
func NewReplace(sessionID, key string, props map[string]any, replace bool) UIReplaceEvent {
	return UIReplaceEvent{
		BaseEvent: NewBase(sessionID),
		Op:        OpReplace,
		Key:       key,
		Props:     props,
		Replace:   replace,
	}
}

// NewRemove builds a ui.remove event.
func NewRemove(sessionID, key string) UIRemoveEvent {
	return UIRemoveEvent{
		BaseEvent: NewBase(sessionID),
		Op:        OpRemove,
		Key:       key,
	}
}

// NewToast builds a ui.toast event.
func NewToast(sessionID string, level ToastLevel, message string) UIToastEvent {
	return UIToastEvent{
		BaseEvent: NewBase(sessionID),
		Op:        OpToast,
		Level:     level,
		Message:   message,
	}
}

// NewNavigate builds a ui.navigate event.
func NewNavigate(sessionID, href string, replace bool) UINavigateEvent {
	return UINavigateEvent{
		BaseEvent: NewBase(sessionID),
		Op:        OpNavigate,
		Href:      href,
		Replace:   replace,
	}
}

// NewAction builds a generic user action event.
func NewAction(sessionID, name string, payload map[string]any) ActionGenericEvent {
	return ActionGenericEvent{
		ActionBase: ActionBase{
			BaseEvent: NewBase(sessionID),
			Kind:      ActionKind,
			Name:      name,
			Payload:   payload,
		},
		Type: ActionGeneric,
	}
}
