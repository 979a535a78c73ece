// Package protocol defines the agent UI wire protocol: the UI patch events
// an agent emits to mutate the rendered interface, and the action events a
// user sends back. Field names are the on-wire JSON contract shared with
// non-Go peers; do not rename tags.
package protocol

import (
	"bytes"
	"encoding/json"
)

// Version is the current protocol version. Events carrying any other value
// in `v` are rejected.
const Version = 1

// BaseEvent is the common envelope shared by every event on the wire.
type BaseEvent struct {
	V         int    `json:"v"`
	ID        string `json:"id"`
	TS        string `json:"ts"`
	TraceID   string `json:"traceId,omitempty"`
	SessionID string `json:"sessionId"`
}

// NodeMeta carries optional component-level metadata.
type NodeMeta struct {
	// TTLMs asks the renderer to auto-remove the node after N milliseconds.
	// Must be positive when present.
	TTLMs *int `json:"ttlMs,omitempty"`
	// Requires lists capability names the renderer must have.
	Requires []string `json:"requires,omitempty"`
}

// UnmarshalJSON rejects unknown fields inside meta. The rest of the
// protocol tolerates unknown fields for forward compatibility; meta is the
// one strict object on the wire.
func (m *NodeMeta) UnmarshalJSON(data []byte) error {
	type plain NodeMeta
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	var p plain
	if err := dec.Decode(&p); err != nil {
		return err
	}
	*m = NodeMeta(p)
	return nil
}

// UINode is one renderable unit. Key is the stable identity used by later
// ui.replace / ui.remove patches; Type names a component in the renderer's
// registry and is opaque here.
type UINode struct {
	Key      string         `json:"key"`
	Type     string         `json:"type"`
	Props    map[string]any `json:"props"`
	Slot     string         `json:"slot,omitempty"`
	Children []UINode       `json:"children,omitempty"`
	Meta     *NodeMeta      `json:"meta,omitempty"`
}

// UIPatchOp discriminates UI patch event variants.
type UIPatchOp string

const (
	OpAppend   UIPatchOp = "ui.append"
	OpReplace  UIPatchOp = "ui.replace"
	OpRemove   UIPatchOp = "ui.remove"
	OpToast    UIPatchOp = "ui.toast"
	OpNavigate UIPatchOp = "ui.navigate"
)

// ToastLevel is the severity of a ui.toast event.
type ToastLevel string

const (
	ToastInfo    ToastLevel = "info"
	ToastSuccess ToastLevel = "success"
	ToastWarning ToastLevel = "warning"
	ToastError   ToastLevel = "error"
)

// UIEvent is the closed union of UI patch events. Consumers discriminate
// with a type switch on the concrete variants.
type UIEvent interface {
	Base() BaseEvent
	PatchOp() UIPatchOp
}

// UIAppendEvent inserts a node, at Index when present and in range,
// otherwise at the end.
type UIAppendEvent struct {
	BaseEvent
	Op    UIPatchOp `json:"op"`
	Node  UINode    `json:"node"`
	Index *int      `json:"index,omitempty"`
}

// UIReplaceEvent patches the props of the node identified by Key. When
// Replace is true props are overwritten wholesale; otherwise the new props
// are shallow-merged over the existing ones.
type UIReplaceEvent struct {
	BaseEvent
	Op      UIPatchOp      `json:"op"`
	Key     string         `json:"key"`
	Props   map[string]any `json:"props"`
	Replace bool           `json:"replace,omitempty"`
}

// UIRemoveEvent deletes the node identified by Key.
type UIRemoveEvent struct {
	BaseEvent
	Op  UIPatchOp `json:"op"`
	Key string    `json:"key"`
}

// UIToastEvent shows an ephemeral notification; it never touches the node
// list.
type UIToastEvent struct {
	BaseEvent
	Op      UIPatchOp  `json:"op"`
	Level   ToastLevel `json:"level"`
	Message string     `json:"message"`
}

// UINavigateEvent signals a navigation intent. Replace asks the renderer to
// replace the current history entry instead of pushing.
type UINavigateEvent struct {
	BaseEvent
	Op      UIPatchOp `json:"op"`
	Href    string    `json:"href"`
	Replace bool      `json:"replace,omitempty"`
}

func (e UIAppendEvent) Base() BaseEvent   { return e.BaseEvent }
func (e UIReplaceEvent) Base() BaseEvent  { return e.BaseEvent }
func (e UIRemoveEvent) Base() BaseEvent   { return e.BaseEvent }
func (e UIToastEvent) Base() BaseEvent    { return e.BaseEvent }
func (e UINavigateEvent) Base() BaseEvent { return e.BaseEvent }

func (e UIAppendEvent) PatchOp() UIPatchOp   { return OpAppend }
func (e UIReplaceEvent) PatchOp() UIPatchOp  { return OpReplace }
func (e UIRemoveEvent) PatchOp() UIPatchOp   { return OpRemove }
func (e UIToastEvent) PatchOp() UIPatchOp    { return OpToast }
func (e UINavigateEvent) PatchOp() UIPatchOp { return OpNavigate }

// ActionKind is the fixed `kind` value carried by every action event.
const ActionKind = "action"

// ActionEventType discriminates action event variants.
type ActionEventType string

const (
	ActionSubmit  ActionEventType = "action.submit"
	ActionSelect  ActionEventType = "action.select"
	ActionApprove ActionEventType = "action.approve"
	ActionGeneric ActionEventType = "action"
)

// ActionBase carries the fields shared by every action event variant.
type ActionBase struct {
	BaseEvent
	Kind    string         `json:"kind"`
	Name    string         `json:"name"`
	Payload map[string]any `json:"payload,omitempty"`
	UIKey   string         `json:"uiKey,omitempty"`
}

// Action returns the shared action fields.
func (a ActionBase) Action() ActionBase { return a }

// Base returns the common event envelope.
func (a ActionBase) Base() BaseEvent { return a.BaseEvent }

// ActionEvent is the closed union of user action events.
type ActionEvent interface {
	Base() BaseEvent
	Action() ActionBase
	ActionType() ActionEventType
}

// ActionSubmitEvent reports a form/message submission.
type ActionSubmitEvent struct {
	ActionBase
	Type ActionEventType `json:"type"`
}

// ActionSelectEvent reports a selection made in a component.
type ActionSelectEvent struct {
	ActionBase
	Type ActionEventType `json:"type"`
}

// ActionApproveEvent reports an approval decision. Approved is required on
// the wire.
type ActionApproveEvent struct {
	ActionBase
	Type     ActionEventType `json:"type"`
	Approved bool            `json:"approved"`
}

// ActionGenericEvent is the catch-all action variant.
type ActionGenericEvent struct {
	ActionBase
	Type ActionEventType `json:"type"`
}

func (e ActionSubmitEvent) ActionType() ActionEventType  { return ActionSubmit }
func (e ActionSelectEvent) ActionType() ActionEventType  { return ActionSelect }
func (e ActionApproveEvent) ActionType() ActionEventType { return ActionApprove }
func (e ActionGenericEvent) ActionType() ActionEventType { return ActionGeneric }
