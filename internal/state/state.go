// Package state folds validated UI patch events into the current interface
// state for a session. Apply is a pure function: it never mutates its input
// and never fails, so replaying the same event sequence always reproduces
// the same state.
package state

import (
	"github.com/kibadist/agentui/pkg/protocol"
)

// Toast is one emitted notification. Toasts accumulate in emission order;
// expiry is a presentation concern.
type Toast struct {
	ID      string              `json:"id"`
	Level   protocol.ToastLevel `json:"level"`
	Message string              `json:"message"`
	TS      string              `json:"ts"`
}

// Navigate is a pending navigation intent. Only the most recent one is
// kept.
type Navigate struct {
	Href    string `json:"href"`
	Replace bool   `json:"replace,omitempty"`
}

// State is the folded UI state of one session. Nodes are in rendering
// order. byKey is a derived cache over Nodes, rebuilt on every node
// mutation; it is never independent truth.
type State struct {
	Nodes    []protocol.UINode `json:"nodes"`
	Toasts   []Toast           `json:"toasts"`
	Navigate *Navigate         `json:"navigate,omitempty"`

	byKey map[string]int
}

// New returns an empty state.
func New() State {
	return State{
		Nodes:  []protocol.UINode{},
		Toasts: []Toast{},
		byKey:  map[string]int{},
	}
}

// IndexOf reports the position of the node with the given key.
func (s State) IndexOf(key string) (int, bool) {
	i, ok := s.byKey[key]
	return i, ok
}

// Apply folds one event into the state and returns the result. The input
// state is left untouched.
func Apply(s State, ev protocol.UIEvent) State {
	switch e := ev.(type) {
	case protocol.UIAppendEvent:
		return applyAppend(s, e)
	case protocol.UIReplaceEvent:
		return applyReplace(s, e)
	case protocol.UIRemoveEvent:
		return applyRemove(s, e)
	case protocol.UIToastEvent:
		return applyToast(s, e)
	case protocol.UINavigateEvent:
		next := s
		next.Navigate = &Navigate{Href: e.Href, Replace: e.Replace}
		return next
	default:
		return s
	}
}

func applyAppend(s State, e protocol.UIAppendEvent) State {
	nodes := make([]protocol.UINode, 0, len(s.Nodes)+1)
	if e.Index != nil && *e.Index >= 0 && *e.Index <= len(s.Nodes) {
		i := *e.Index
		nodes = append(nodes, s.Nodes[:i]...)
		nodes = append(nodes, e.Node)
		nodes = append(nodes, s.Nodes[i:]...)
	} else {
		// Out-of-range index falls back to appending at the end.
		nodes = append(nodes, s.Nodes...)
		nodes = append(nodes, e.Node)
	}
	next := s
	next.Nodes = nodes
	next.byKey = rebuildIndex(nodes)
	return next
}

func applyReplace(s State, e protocol.UIReplaceEvent) State {
	i, ok := s.byKey[e.Key]
	if !ok {
		return s
	}
	nodes := make([]protocol.UINode, len(s.Nodes))
	copy(nodes, s.Nodes)

	// Node identity (key, type) never changes across a replace; only props.
	node := nodes[i]
	if e.Replace {
		node.Props = copyProps(e.Props)
	} else {
		merged := copyProps(node.Props)
		for k, v := range e.Props {
			merged[k] = v
		}
		node.Props = merged
	}
	nodes[i] = node

	next := s
	next.Nodes = nodes
	next.byKey = rebuildIndex(nodes)
	return next
}

func applyRemove(s State, e protocol.UIRemoveEvent) State {
	i, ok := s.byKey[e.Key]
	if !ok {
		return s
	}
	nodes := make([]protocol.UINode, 0, len(s.Nodes)-1)
	nodes = append(nodes, s.Nodes[:i]...)
	nodes = append(nodes, s.Nodes[i+1:]...)

	next := s
	next.Nodes = nodes
	next.byKey = rebuildIndex(nodes)
	return next
}

func applyToast(s State, e protocol.UIToastEvent) State {
	toasts := make([]Toast, 0, len(s.Toasts)+1)
	toasts = append(toasts, s.Toasts...)
	toasts = append(toasts, Toast{
		ID:      e.ID,
		Level:   e.Level,
		Message: e.Message,
		TS:      e.TS,
	})

	next := s
	next.Toasts = toasts
	return next
}

func rebuildIndex(nodes []protocol.UINode) map[string]int {
	m := make(map[string]int, len(nodes))
	for i, n := range nodes {
		m[n.Key] = i
	}
	return m
}

func copyProps(props map[string]any) map[string]any {
	out := make(map[string]any, len(props))
	for k, v := range props {
		out[k] = v
	}
	return out
}
