package remote

// Normalized is the value-plus-ordering representation extracted from a raw
// snapshot before it becomes an action payload.
type Normalized struct {
	// Data is the raw value. Nil with Absent set means a removal event; nil
	// without Absent means the snapshot simply held nothing.
	Data any
	// Absent distinguishes "value now gone" from "value now empty".
	Absent bool
	// Ordered lists child keys in snapshot traversal order. Never re-sorted:
	// consumers rendering ordered lists rely on the store's native order.
	Ordered []string
}

// Normalize converts a snapshot plus its event kind into a Normalized event.
// ChildRemoved yields an absent value regardless of the snapshot contents.
func Normalize(snap Snapshot, kind EventKind) Normalized {
	n := Normalized{Ordered: OrderedKeys(snap)}
	if kind == ChildRemoved {
		n.Absent = true
		return n
	}
	n.Data = snap.Value()
	return n
}

// OrderedKeys collects child keys in traversal order.
func OrderedKeys(snap Snapshot) []string {
	var keys []string
	snap.ForEach(func(child Snapshot) bool {
		keys = append(keys, child.Key())
		return false
	})
	return keys
}
