package watch

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rtmirror/rtmirror/internal/remote"
)

func newTestRegistry(t *testing.T) (*Registry, *fakeClient, *recorder) {
	t.Helper()
	client := newFakeClient()
	rec := &recorder{}
	reg := New(client, rec, Options{
		Now:    fixedClock(),
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	return reg, client, rec
}

func TestWatch_DuplicateSuppressed(t *testing.T) {
	reg, client, rec := newTestRegistry(t)
	req := Request{Kind: remote.Value, Path: "todos"}

	require.NoError(t, reg.Watch(context.Background(), req))
	require.NoError(t, reg.Watch(context.Background(), req))

	// Second call produces no new remote subscription and no dispatch.
	assert.Equal(t, 1, client.active("todos", remote.Value))
	assert.Len(t, rec.all(), 1, "only the first Start")
	assert.Equal(t, int64(1), reg.Suppressed())
	assert.Equal(t, 1, reg.ActiveListeners())
}

func TestWatch_ExplicitQueryIDReplaces(t *testing.T) {
	reg, client, rec := newTestRegistry(t)
	req := Request{Kind: remote.Value, Path: "todos", QueryID: "q1", IsQuery: true,
		Params: []remote.Param{{Op: "limitToFirst", Value: 5}}}

	require.NoError(t, reg.Watch(context.Background(), req))
	require.NoError(t, reg.Watch(context.Background(), req))

	// Prior subscription torn down before the new one attaches: at most one
	// active remote listener per key at any time.
	assert.Equal(t, 1, client.active("todos", remote.Value))
	assert.Equal(t, 1, reg.ActiveListeners())
	assert.Equal(t, 1, reg.counts.Count(Key{Kind: remote.Value, Path: "todos", QueryID: "q1"}))

	types := rec.types()
	assert.Len(t, types, 2, "each registration dispatches its own Start")
}

func TestWatch_StoreAsDistinguishesKeys(t *testing.T) {
	reg, client, _ := newTestRegistry(t)

	require.NoError(t, reg.Watch(context.Background(), Request{Kind: remote.Value, Path: "todos"}))
	require.NoError(t, reg.Watch(context.Background(), Request{Kind: remote.Value, Path: "todos", StoreAs: "mine"}))

	// Same remote path, different storage location: two live subscriptions.
	assert.Equal(t, 2, client.active("todos", remote.Value))
	assert.Zero(t, reg.Suppressed())
}

func TestWatch_UnknownKind(t *testing.T) {
	reg, _, rec := newTestRegistry(t)

	err := reg.Watch(context.Background(), Request{Kind: "bogus", Path: "todos"})
	assert.Error(t, err)
	assert.Empty(t, rec.all())
}

func TestUnwatch_DetachesAtZero(t *testing.T) {
	reg, client, _ := newTestRegistry(t)
	req := Request{Kind: remote.Value, Path: "todos"}

	require.NoError(t, reg.Watch(context.Background(), req))
	assert.Equal(t, 1, client.active("todos", remote.Value))

	reg.Unwatch(req)
	assert.Zero(t, client.active("todos", remote.Value))
	assert.Zero(t, reg.ActiveListeners())
}

func TestUnwatch_RefCountedTeardown(t *testing.T) {
	reg, client, _ := newTestRegistry(t)
	// Derived-id query watches share one key and stack the reference count.
	req := Request{Kind: remote.Value, Path: "users", IsQuery: true,
		Params: []remote.Param{{Op: "orderByChild", Value: "age"}}}

	require.NoError(t, reg.Watch(context.Background(), req))
	require.NoError(t, reg.Watch(context.Background(), req))

	key := Key{Kind: remote.Value, Path: "users",
		QueryID: DeriveQueryID(remote.Value, "users", req.Params)}
	assert.Equal(t, 2, reg.counts.Count(key))
	assert.Equal(t, 1, client.active("users", remote.Value), "stacked refs share one listener")

	reg.Unwatch(req)
	assert.Equal(t, 1, client.active("users", remote.Value), "still referenced")

	reg.Unwatch(req)
	assert.Zero(t, client.active("users", remote.Value))
	assert.Zero(t, reg.counts.Count(key))
}

func TestUnwatch_AtZeroIsNoOp(t *testing.T) {
	reg, client, _ := newTestRegistry(t)
	req := Request{Kind: remote.Value, Path: "todos"}

	// Never watched: no underflow, no remote unsubscribe attempted.
	reg.Unwatch(req)
	reg.Unwatch(req)

	assert.Zero(t, reg.counts.Count(Key{Kind: remote.Value, Path: "todos"}))
	assert.Empty(t, client.subs)
}

func TestWatchAll_StopsOnFirstFailure(t *testing.T) {
	reg, client, _ := newTestRegistry(t)
	client.fetchErrs["broken"] = errors.New("boom")

	err := reg.WatchAll(context.Background(), []Request{
		{Kind: remote.Once, Path: "broken"},
		{Kind: remote.Value, Path: "never"},
	})

	assert.Error(t, err)
	assert.Zero(t, client.active("never", remote.Value))
}

func TestUnwatchAll(t *testing.T) {
	reg, _, _ := newTestRegistry(t)
	reqs := []Request{
		{Kind: remote.Value, Path: "a"},
		{Kind: remote.Value, Path: "b"},
	}
	require.NoError(t, reg.WatchAll(context.Background(), reqs))

	reg.UnwatchAll(reqs)

	assert.Zero(t, reg.ActiveListeners())
}
