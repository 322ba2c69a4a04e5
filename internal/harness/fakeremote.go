package harness

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"

	"github.com/rtmirror/rtmirror/internal/remote"
)

// FakeRemote is a scripted in-memory remote store. Nothing fires on its own:
// scenario steps mutate the tree and deliver events explicitly.
type FakeRemote struct {
	mu        sync.Mutex
	root      map[string]any
	fetchErrs map[string]string
	listeners []*fakeListener
}

// NewFakeRemote seeds the store with an initial tree. The seed is used as-is;
// callers must not mutate it afterwards.
func NewFakeRemote(seed map[string]any) *FakeRemote {
	if seed == nil {
		seed = map[string]any{}
	}
	return &FakeRemote{
		root:      seed,
		fetchErrs: map[string]string{},
	}
}

// Query builds a handle for path. Params are accepted but have no effect:
// the fake serves whatever the scenario scripted, filtered by nothing.
func (f *FakeRemote) Query(path string) remote.Query {
	return &fakeQuery{f: f, path: path}
}

// FetchFirst returns the lexicographically first child at path.
func (f *FakeRemote) FetchFirst(_ context.Context, path string) (remote.Snapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if msg, ok := f.fetchErrs[path]; ok {
		return nil, errors.New(msg)
	}

	v, ok := f.lookup(path)
	if branch, isMap := v.(map[string]any); ok && isMap && len(branch) > 0 {
		keys := sortedKeys(branch)
		first := keys[0]
		return entrySnapshot(first, branch[first]), nil
	}
	return remote.NewValueSnapshot(lastSegment(path), nil), nil
}

// Put writes value at path, creating intermediate branches.
func (f *FakeRemote) Put(path string, value any) {
	f.mu.Lock()
	defer f.mu.Unlock()

	segs := strings.Split(path, "/")
	node := f.root
	for _, seg := range segs[:len(segs)-1] {
		child, ok := node[seg].(map[string]any)
		if !ok {
			child = map[string]any{}
			node[seg] = child
		}
		node = child
	}
	node[segs[len(segs)-1]] = value
}

// Delete removes the value at path.
func (f *FakeRemote) Delete(path string) {
	f.mu.Lock()
	defer f.mu.Unlock()

	segs := strings.Split(path, "/")
	node := f.root
	for _, seg := range segs[:len(segs)-1] {
		child, ok := node[seg].(map[string]any)
		if !ok {
			return
		}
		node = child
	}
	delete(node, segs[len(segs)-1])
}

// FailFetch scripts every subsequent fetch of path to fail with message.
func (f *FakeRemote) FailFetch(path, message string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetchErrs[path] = message
}

// FireValue delivers the current value at path to its value listeners.
func (f *FakeRemote) FireValue(path string) {
	f.mu.Lock()
	snap := f.snapshotAt(path)
	targets := f.matching(path, remote.Value)
	f.mu.Unlock()

	for _, l := range targets {
		l.onData(snap)
	}
}

// FireChild delivers the child at path/key to listeners of kind at path.
// For child_removed the snapshot carries no value.
func (f *FakeRemote) FireChild(kind remote.EventKind, path, key string) {
	f.mu.Lock()
	var snap remote.Snapshot
	if v, ok := f.lookup(path + "/" + key); ok && kind != remote.ChildRemoved {
		snap = entrySnapshot(key, v)
	} else {
		snap = remote.NewValueSnapshot(key, nil)
	}
	targets := f.matching(path, kind)
	f.mu.Unlock()

	for _, l := range targets {
		l.onData(snap)
	}
}

// FireError delivers a failure to every listener at path, any kind.
func (f *FakeRemote) FireError(path, message string) {
	f.mu.Lock()
	var targets []*fakeListener
	for _, l := range f.listeners {
		if !l.cancelled && l.path == path {
			targets = append(targets, l)
		}
	}
	f.mu.Unlock()

	for _, l := range targets {
		l.onErr(errors.New(message))
	}
}

// ActiveListeners counts listeners that have not been unsubscribed.
func (f *FakeRemote) ActiveListeners() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, l := range f.listeners {
		if !l.cancelled {
			n++
		}
	}
	return n
}

func (f *FakeRemote) matching(path string, kind remote.EventKind) []*fakeListener {
	var targets []*fakeListener
	for _, l := range f.listeners {
		if !l.cancelled && l.path == path && l.kind == kind {
			targets = append(targets, l)
		}
	}
	return targets
}

// lookup walks the tree. Callers hold f.mu.
func (f *FakeRemote) lookup(path string) (any, bool) {
	var node any = f.root
	for _, seg := range strings.Split(path, "/") {
		branch, ok := node.(map[string]any)
		if !ok {
			return nil, false
		}
		node, ok = branch[seg]
		if !ok {
			return nil, false
		}
	}
	return node, true
}

func (f *FakeRemote) snapshotAt(path string) remote.Snapshot {
	v, ok := f.lookup(path)
	if !ok {
		return remote.NewValueSnapshot(lastSegment(path), nil)
	}
	return entrySnapshot(lastSegment(path), v)
}

// entrySnapshot wraps a tree node. Branch children follow the fake's native
// order: lexicographic by key.
func entrySnapshot(key string, v any) remote.Snapshot {
	if branch, ok := v.(map[string]any); ok {
		entries := make([]remote.Entry, 0, len(branch))
		for _, k := range sortedKeys(branch) {
			entries = append(entries, remote.Entry{Key: k, Value: branch[k]})
		}
		return remote.NewTreeSnapshot(key, entries)
	}
	return remote.NewValueSnapshot(key, v)
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func lastSegment(path string) string {
	segs := strings.Split(path, "/")
	return segs[len(segs)-1]
}

type fakeQuery struct {
	f    *FakeRemote
	path string
}

func (q *fakeQuery) Path() string { return q.path }

func (q *fakeQuery) Apply([]remote.Param) remote.Query { return q }

func (q *fakeQuery) FetchOnce(context.Context) (remote.Snapshot, error) {
	q.f.mu.Lock()
	defer q.f.mu.Unlock()
	if msg, ok := q.f.fetchErrs[q.path]; ok {
		return nil, errors.New(msg)
	}
	return q.f.snapshotAt(q.path), nil
}

func (q *fakeQuery) Subscribe(kind remote.EventKind, onData remote.DataFunc, onErr remote.ErrorFunc) remote.Subscription {
	l := &fakeListener{f: q.f, path: q.path, kind: kind, onData: onData, onErr: onErr}
	q.f.mu.Lock()
	q.f.listeners = append(q.f.listeners, l)
	q.f.mu.Unlock()
	return l
}

type fakeListener struct {
	f         *FakeRemote
	path      string
	kind      remote.EventKind
	onData    remote.DataFunc
	onErr     remote.ErrorFunc
	cancelled bool
}

func (l *fakeListener) Unsubscribe() {
	l.f.mu.Lock()
	l.cancelled = true
	l.f.mu.Unlock()
}
