package testutil

// FixedSessionID returns the same session identifier every time.
//
// Journal session ids are normally time-sortable UUIDv7 values; fixing them
// keeps golden traces and journal fixtures byte-identical across runs.
//
// Thread-safety: FixedSessionID is stateless and safe for concurrent use.
type FixedSessionID struct {
	id string
}

// NewFixedSessionID creates a fixed session id source. An empty id defaults
// to "test-session-default".
func NewFixedSessionID(id string) *FixedSessionID {
	if id == "" {
		id = "test-session-default"
	}
	return &FixedSessionID{id: id}
}

// Generate returns the fixed session id.
func (g *FixedSessionID) Generate() string {
	return g.id
}
