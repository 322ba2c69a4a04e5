package watch

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/rtmirror/rtmirror/internal/remote"
)

// Key identifies one distinct subscription: event kind, effective storage
// path, and query identifier. Two watches on the same remote path that store
// results differently get distinct keys via the @storeAs suffix.
type Key struct {
	Kind    remote.EventKind
	Path    string
	QueryID string
}

// String renders the key the way the counter table is inspected in logs.
func (k Key) String() string {
	if k.QueryID == "" {
		return fmt.Sprintf("%s:%s", k.Kind, k.Path)
	}
	return fmt.Sprintf("%s:%s:%s", k.Kind, k.Path, k.QueryID)
}

// WatchPath computes the effective storage path: path alone, or path@storeAs
// when the caller requested a custom storage location.
func WatchPath(path, storeAs string) string {
	if storeAs == "" {
		return path
	}
	return path + "@" + storeAs
}

// DeriveQueryID returns a deterministic identifier for a parameterized watch
// that supplied no explicit query id. Identical (kind, path, params) always
// derive the same id, so re-submitting a query with changed params replaces
// the prior subscription instead of stacking a second listener.
//
// Unparameterized watches have no derivable identity and return "": duplicates
// of those are suppressed rather than replaced.
func DeriveQueryID(kind remote.EventKind, path string, params []remote.Param) string {
	if len(params) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString(string(kind))
	b.WriteByte('|')
	b.WriteString(path)
	for _, p := range params {
		fmt.Fprintf(&b, "|%s=%v", p.Op, p.Value)
	}
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(b.String())).String()
}
