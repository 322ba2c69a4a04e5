package remote

// Entry is one child of a branch snapshot, in native store order.
type Entry struct {
	Key   string
	Value any
}

// MemSnapshot is the concrete Snapshot used by the websocket client and the
// test harness. Children are held as an ordered slice: Go maps would lose the
// store's native ordering, which normalized events must preserve.
type MemSnapshot struct {
	key      string
	value    any
	children []Entry
	branch   bool
}

// NewValueSnapshot builds a leaf snapshot. A nil value means absent.
func NewValueSnapshot(key string, value any) *MemSnapshot {
	return &MemSnapshot{key: key, value: value}
}

// NewTreeSnapshot builds a branch snapshot from ordered children.
func NewTreeSnapshot(key string, children []Entry) *MemSnapshot {
	return &MemSnapshot{key: key, children: children, branch: true}
}

// Key returns the last path segment the snapshot was read at.
func (s *MemSnapshot) Key() string { return s.key }

// Exists reports whether any value is present.
func (s *MemSnapshot) Exists() bool {
	if s.branch {
		return len(s.children) > 0
	}
	return s.value != nil
}

// Value returns the raw value. Branch snapshots materialize a map of child
// values; ordering is carried separately by ForEach.
func (s *MemSnapshot) Value() any {
	if !s.branch {
		return s.value
	}
	if len(s.children) == 0 {
		return nil
	}
	m := make(map[string]any, len(s.children))
	for _, c := range s.children {
		m[c.Key] = c.Value
	}
	return m
}

// ForEach visits children in insertion order.
func (s *MemSnapshot) ForEach(fn func(child Snapshot) bool) {
	for _, c := range s.children {
		child := childSnapshot(c)
		if fn(child) {
			return
		}
	}
}

// childSnapshot wraps an entry as a snapshot, descending into ordered child
// slices when the value itself is a branch.
func childSnapshot(e Entry) Snapshot {
	if nested, ok := e.Value.([]Entry); ok {
		return NewTreeSnapshot(e.Key, nested)
	}
	return NewValueSnapshot(e.Key, e.Value)
}
