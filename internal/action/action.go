// Package action defines the state-mutation actions emitted by the watch
// core, and the Dispatcher boundary through which they reach the consuming
// state container.
//
// Actions are the sole output of the sync core. The core never interprets
// them beyond their shape; reducers on the consumer side own their meaning.
package action

import "time"

// Type discriminates action variants.
type Type string

const (
	// TypeStart marks a watch as in-flight before any remote call resolves.
	TypeStart Type = "start"
	// TypeSet commits a value (or its removal) at a store path.
	TypeSet Type = "set"
	// TypeNoValue reports that a first-child probe found nothing.
	TypeNoValue Type = "no_value"
	// TypeError reports a failed one-shot fetch or first-child probe.
	TypeError Type = "error"
	// TypeUnauthorized reports a continuous-listener failure. The core maps
	// every listener error to this variant without inspecting it.
	TypeUnauthorized Type = "unauthorized_error"
)

// SetSource tags where a Set action originated. The same Set shape is reused
// for three distinct commits; the tag lets reducers (and the journal) tell
// them apart without duck-typing on optional fields.
type SetSource string

const (
	// SourceListener is a direct commit from a listener or one-shot fetch.
	SourceListener SetSource = "listener"
	// SourcePopulateChild is a resolved reference committed ahead of its root.
	SourcePopulateChild SetSource = "populate_child"
	// SourcePopulateRoot is the root commit, dispatched after every child.
	SourcePopulateRoot SetSource = "populate_root"
)

// Action is a tagged variant with a shared base shape. Which fields are
// meaningful depends on Type; Source further discriminates Set actions.
type Action struct {
	Type Type   `json:"type"`
	Path string `json:"path"`

	// Data is the committed value for Set actions. Absent reports a removal
	// event: the value is gone, as opposed to present-but-empty or null.
	Data   any  `json:"data,omitempty"`
	Absent bool `json:"absent,omitempty"`

	// Ordered lists child keys in the remote store's native order.
	Ordered []string  `json:"ordered,omitempty"`
	Source  SetSource `json:"source,omitempty"`

	Requesting bool `json:"requesting"`
	Requested  bool `json:"requested"`

	// Timestamp is set on terminal actions, in Unix milliseconds.
	Timestamp int64 `json:"timestamp,omitempty"`

	// Error carries the failure message for error variants.
	Error string `json:"error,omitempty"`
}

// Start builds the in-flight marker dispatched synchronously at watch time.
func Start(path string) Action {
	return Action{
		Type:       TypeStart,
		Path:       path,
		Requesting: true,
		Requested:  false,
	}
}

// Set builds a value commit at path. absent marks a removal event.
func Set(source SetSource, path string, data any, absent bool, ordered []string, at time.Time) Action {
	return Action{
		Type:       TypeSet,
		Path:       path,
		Data:       data,
		Absent:     absent,
		Ordered:    ordered,
		Source:     source,
		Requesting: false,
		Requested:  true,
		Timestamp:  at.UnixMilli(),
	}
}

// NoValue builds the empty-result action for a first-child probe.
func NoValue(path string, at time.Time) Action {
	return Action{
		Type:       TypeNoValue,
		Path:       path,
		Requesting: false,
		Requested:  true,
		Timestamp:  at.UnixMilli(),
	}
}

// Error builds the failure action for one-shot fetch paths.
func Error(path string, err error, at time.Time) Action {
	return Action{
		Type:      TypeError,
		Path:      path,
		Error:     err.Error(),
		Timestamp: at.UnixMilli(),
	}
}

// Unauthorized builds the failure action for continuous-listener errors.
func Unauthorized(path string, err error, at time.Time) Action {
	return Action{
		Type:      TypeUnauthorized,
		Path:      path,
		Error:     err.Error(),
		Timestamp: at.UnixMilli(),
	}
}

// Terminal reports whether the action closes out a request cycle.
func (a Action) Terminal() bool {
	switch a.Type {
	case TypeSet, TypeNoValue, TypeError, TypeUnauthorized:
		return true
	}
	return false
}
