package wsremote

import (
	"github.com/rtmirror/rtmirror/internal/remote"
)

// Frame ops. Requests carry an id (one-shot) or a sub (listener); responses
// echo whichever the request carried.
const (
	opFetch       = "fetch"
	opFetchFirst  = "fetch_first"
	opSubscribe   = "subscribe"
	opUnsubscribe = "unsubscribe"
	opResult      = "result"
	opEvent       = "event"
	opError       = "error"
)

// frame is one JSON message on the wire, request or response.
type frame struct {
	ID   int64  `json:"id,omitempty"`
	Sub  int64  `json:"sub,omitempty"`
	Op   string `json:"op"`
	Kind string `json:"kind,omitempty"`
	Path string `json:"path,omitempty"`

	Params []remote.Param `json:"params,omitempty"`

	Snapshot *snapshotFrame `json:"snapshot,omitempty"`
	Error    string         `json:"error,omitempty"`
}

// snapshotFrame carries a snapshot with the store's native child ordering.
// Children are a list, not a map: JSON objects would lose the order.
type snapshotFrame struct {
	Key      string       `json:"key"`
	Exists   bool         `json:"exists"`
	Value    any          `json:"value,omitempty"`
	Children []childFrame `json:"children,omitempty"`
}

type childFrame struct {
	Key      string       `json:"key"`
	Value    any          `json:"value,omitempty"`
	Children []childFrame `json:"children,omitempty"`
}

// decodeSnapshot converts a wire snapshot into the in-memory form the sync
// core consumes. A nil or non-existent frame decodes to an absent snapshot.
func decodeSnapshot(f *snapshotFrame) remote.Snapshot {
	if f == nil {
		return remote.NewValueSnapshot("", nil)
	}
	if len(f.Children) > 0 {
		return remote.NewTreeSnapshot(f.Key, decodeChildren(f.Children))
	}
	if !f.Exists {
		return remote.NewValueSnapshot(f.Key, nil)
	}
	return remote.NewValueSnapshot(f.Key, f.Value)
}

func decodeChildren(children []childFrame) []remote.Entry {
	entries := make([]remote.Entry, 0, len(children))
	for _, c := range children {
		if len(c.Children) > 0 {
			entries = append(entries, remote.Entry{Key: c.Key, Value: decodeChildren(c.Children)})
			continue
		}
		entries = append(entries, remote.Entry{Key: c.Key, Value: c.Value})
	}
	return entries
}
