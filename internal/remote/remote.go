// Package remote defines the contracts the sync core consumes from a remote
// hierarchical real-time store: query construction, one-shot fetches, and
// continuous subscriptions delivering snapshots.
//
// The core never depends on a concrete client; wsremote provides the
// production implementation and the harness provides a scripted fake.
package remote

import "context"

// EventKind selects what a watch listens for.
type EventKind string

const (
	// Value delivers the full value at a path on every change.
	Value EventKind = "value"
	// ChildAdded, ChildChanged, ChildRemoved and ChildMoved deliver
	// child-level snapshots keyed by the child's own key.
	ChildAdded   EventKind = "child_added"
	ChildChanged EventKind = "child_changed"
	ChildRemoved EventKind = "child_removed"
	ChildMoved   EventKind = "child_moved"
	// Once is a one-shot value fetch routed through the watch pipeline.
	Once EventKind = "once"
	// FirstChild probes whether a path has any children at all: a single
	// ordered-by-key, limit-one lookup.
	FirstChild EventKind = "first_child"
)

// Continuous reports whether the kind attaches a persistent listener.
func (k EventKind) Continuous() bool {
	switch k {
	case Value, ChildAdded, ChildChanged, ChildRemoved, ChildMoved:
		return true
	}
	return false
}

// Valid reports whether k is a known event kind.
func (k EventKind) Valid() bool {
	switch k {
	case Value, ChildAdded, ChildChanged, ChildRemoved, ChildMoved, Once, FirstChild:
		return true
	}
	return false
}

// Param is one query modifier op, applied in order.
// Op names follow the remote store's query vocabulary, e.g.
// {Op: "orderByChild", Value: "age"} or {Op: "limitToFirst", Value: 5}.
type Param struct {
	Op    string `json:"op" yaml:"op"`
	Value any    `json:"value,omitempty" yaml:"value,omitempty"`
}

// Snapshot is an opaque response representing the value and child ordering
// at a path at the moment of an event.
type Snapshot interface {
	// Key is the last path segment this snapshot was read at.
	Key() string
	// Exists reports whether any value is present.
	Exists() bool
	// Value returns the raw value, nil when absent.
	Value() any
	// ForEach visits children in the store's native order. Returning true
	// from fn stops the traversal.
	ForEach(fn func(child Snapshot) bool)
}

// Subscription is the teardown handle for a continuous listener.
// Unsubscribe is idempotent; callbacks already in flight may still fire once.
type Subscription interface {
	Unsubscribe()
}

// DataFunc receives each snapshot fired by a continuous listener.
type DataFunc func(Snapshot)

// ErrorFunc receives listener failures.
type ErrorFunc func(error)

// Query is a handle over a path plus any applied params.
type Query interface {
	// Path returns the base path the query was built from.
	Path() string
	// Apply returns a derived handle with params applied in order.
	Apply(params []Param) Query
	// FetchOnce resolves the current value a single time.
	FetchOnce(ctx context.Context) (Snapshot, error)
	// Subscribe attaches a persistent listener for kind.
	Subscribe(kind EventKind, onData DataFunc, onErr ErrorFunc) Subscription
}

// Client is the remote store connection the registry consumes.
type Client interface {
	// Query builds a handle for path.
	Query(path string) Query
	// FetchFirst performs the ordered-by-key, limit-one probe for FirstChild.
	FetchFirst(ctx context.Context, path string) (Snapshot, error)
}
