package watch

import (
	"context"
	"sync"
	"time"

	"github.com/rtmirror/rtmirror/internal/action"
	"github.com/rtmirror/rtmirror/internal/remote"
)

// fakeClient is a scriptable remote store for registry tests: fixed fetch
// results per path, manual event firing, and bookkeeping of live listeners.
type fakeClient struct {
	mu sync.Mutex

	fetchSnaps map[string]remote.Snapshot
	fetchErrs  map[string]error
	firstSnaps map[string]remote.Snapshot
	firstErrs  map[string]error

	subs []*fakeSub
}

func newFakeClient() *fakeClient {
	return &fakeClient{
		fetchSnaps: make(map[string]remote.Snapshot),
		fetchErrs:  make(map[string]error),
		firstSnaps: make(map[string]remote.Snapshot),
		firstErrs:  make(map[string]error),
	}
}

func (c *fakeClient) Query(path string) remote.Query {
	return &fakeQuery{c: c, path: path}
}

func (c *fakeClient) FetchFirst(ctx context.Context, path string) (remote.Snapshot, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err, ok := c.firstErrs[path]; ok {
		return nil, err
	}
	if snap, ok := c.firstSnaps[path]; ok {
		return snap, nil
	}
	return remote.NewValueSnapshot(path, nil), nil
}

// active returns live listener count for (path, kind).
func (c *fakeClient) active(path string, kind remote.EventKind) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, s := range c.subs {
		if s.path == path && s.kind == kind && !s.cancelled {
			n++
		}
	}
	return n
}

// fire delivers a snapshot to every live listener for (path, kind).
func (c *fakeClient) fire(path string, kind remote.EventKind, snap remote.Snapshot) {
	for _, s := range c.snapshotSubs(path, kind) {
		s.onData(snap)
	}
}

// fireErr delivers a failure to every live listener for (path, kind).
func (c *fakeClient) fireErr(path string, kind remote.EventKind, err error) {
	for _, s := range c.snapshotSubs(path, kind) {
		s.onErr(err)
	}
}

func (c *fakeClient) snapshotSubs(path string, kind remote.EventKind) []*fakeSub {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []*fakeSub
	for _, s := range c.subs {
		if s.path == path && s.kind == kind && !s.cancelled {
			out = append(out, s)
		}
	}
	return out
}

type fakeQuery struct {
	c      *fakeClient
	path   string
	params []remote.Param
}

func (q *fakeQuery) Path() string { return q.path }

func (q *fakeQuery) Apply(params []remote.Param) remote.Query {
	return &fakeQuery{c: q.c, path: q.path, params: params}
}

func (q *fakeQuery) FetchOnce(ctx context.Context) (remote.Snapshot, error) {
	q.c.mu.Lock()
	defer q.c.mu.Unlock()
	if err, ok := q.c.fetchErrs[q.path]; ok {
		return nil, err
	}
	if snap, ok := q.c.fetchSnaps[q.path]; ok {
		return snap, nil
	}
	return remote.NewValueSnapshot(q.path, nil), nil
}

func (q *fakeQuery) Subscribe(kind remote.EventKind, onData remote.DataFunc, onErr remote.ErrorFunc) remote.Subscription {
	s := &fakeSub{c: q.c, path: q.path, kind: kind, onData: onData, onErr: onErr}
	q.c.mu.Lock()
	q.c.subs = append(q.c.subs, s)
	q.c.mu.Unlock()
	return s
}

type fakeSub struct {
	c         *fakeClient
	path      string
	kind      remote.EventKind
	onData    remote.DataFunc
	onErr     remote.ErrorFunc
	cancelled bool
}

func (s *fakeSub) Unsubscribe() {
	s.c.mu.Lock()
	defer s.c.mu.Unlock()
	s.cancelled = true
}

// recorder captures dispatched actions in order.
type recorder struct {
	mu      sync.Mutex
	actions []action.Action
}

func (r *recorder) Dispatch(a action.Action) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.actions = append(r.actions, a)
}

func (r *recorder) all() []action.Action {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]action.Action(nil), r.actions...)
}

func (r *recorder) types() []action.Type {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]action.Type, len(r.actions))
	for i, a := range r.actions {
		out[i] = a.Type
	}
	return out
}

// fixedClock returns a deterministic timestamp source.
func fixedClock() func() time.Time {
	base := time.UnixMilli(1700000000000)
	return func() time.Time { return base }
}
