package watch

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rtmirror/rtmirror/internal/action"
	"github.com/rtmirror/rtmirror/internal/remote"
)

func TestFirstChild_Empty(t *testing.T) {
	reg, _, rec := newTestRegistry(t)

	err := reg.Watch(context.Background(), Request{Kind: remote.FirstChild, Path: "todos"})
	require.NoError(t, err)

	actions := rec.all()
	require.Len(t, actions, 1, "exactly one NoValue, never a Start")
	assert.Equal(t, action.TypeNoValue, actions[0].Type)
	assert.Equal(t, "todos", actions[0].Path)
	assert.False(t, actions[0].Requesting)
	assert.True(t, actions[0].Requested)
	assert.NotZero(t, actions[0].Timestamp)
}

func TestFirstChild_HasValue(t *testing.T) {
	reg, client, rec := newTestRegistry(t)
	client.firstSnaps["todos"] = remote.NewValueSnapshot("t1", map[string]any{"text": "x"})

	err := reg.Watch(context.Background(), Request{Kind: remote.FirstChild, Path: "todos"})
	require.NoError(t, err)

	assert.Empty(t, rec.all(), "a present first child needs no action")
}

func TestFirstChild_LookupFailure(t *testing.T) {
	reg, client, rec := newTestRegistry(t)
	boom := errors.New("lookup failed")
	client.firstErrs["todos"] = boom

	err := reg.Watch(context.Background(), Request{Kind: remote.FirstChild, Path: "todos"})
	assert.ErrorIs(t, err, boom, "failure propagates to the caller")

	actions := rec.all()
	require.Len(t, actions, 1)
	assert.Equal(t, action.TypeError, actions[0].Type)
	assert.Equal(t, "lookup failed", actions[0].Error)
}

func TestOnce_Success(t *testing.T) {
	reg, client, rec := newTestRegistry(t)
	client.fetchSnaps["todos"] = remote.NewTreeSnapshot("todos", []remote.Entry{
		{Key: "b", Value: float64(2)},
		{Key: "a", Value: float64(1)},
	})

	err := reg.Watch(context.Background(), Request{Kind: remote.Once, Path: "todos"})
	require.NoError(t, err)

	actions := rec.all()
	require.Len(t, actions, 2)

	assert.Equal(t, action.TypeStart, actions[0].Type)
	assert.True(t, actions[0].Requesting)
	assert.False(t, actions[0].Requested)

	assert.Equal(t, action.TypeSet, actions[1].Type)
	assert.Equal(t, action.SourceListener, actions[1].Source)
	assert.Equal(t, []string{"b", "a"}, actions[1].Ordered, "snapshot order preserved")
}

func TestOnce_FetchFailure(t *testing.T) {
	reg, client, rec := newTestRegistry(t)
	boom := errors.New("offline")
	client.fetchErrs["todos"] = boom

	err := reg.Watch(context.Background(), Request{Kind: remote.Once, Path: "todos"})
	assert.ErrorIs(t, err, boom)

	types := rec.types()
	assert.Equal(t, []action.Type{action.TypeStart, action.TypeError}, types)
}

func TestListen_ValueEvent(t *testing.T) {
	reg, client, rec := newTestRegistry(t)

	require.NoError(t, reg.Watch(context.Background(), Request{Kind: remote.Value, Path: "todos"}))
	client.fire("todos", remote.Value, remote.NewTreeSnapshot("todos", []remote.Entry{
		{Key: "t1", Value: map[string]any{"text": "x"}},
	}))

	actions := rec.all()
	require.Len(t, actions, 2)
	assert.Equal(t, action.TypeStart, actions[0].Type)

	set := actions[1]
	assert.Equal(t, action.TypeSet, set.Type)
	assert.Equal(t, "todos", set.Path, "value events land at the watched path")
	assert.False(t, set.Requesting)
	assert.True(t, set.Requested)
}

func TestListen_ChildEventAppendsKey(t *testing.T) {
	reg, client, rec := newTestRegistry(t)

	require.NoError(t, reg.Watch(context.Background(), Request{Kind: remote.ChildAdded, Path: "todos"}))
	client.fire("todos", remote.ChildAdded, remote.NewValueSnapshot("t7", map[string]any{"text": "x"}))

	set := rec.all()[1]
	assert.Equal(t, "todos/t7", set.Path, "siblings map to independent store locations")
}

func TestListen_ChildRemovedHasAbsentData(t *testing.T) {
	reg, client, rec := newTestRegistry(t)

	require.NoError(t, reg.Watch(context.Background(), Request{Kind: remote.ChildRemoved, Path: "todos"}))
	client.fire("todos", remote.ChildRemoved, remote.NewValueSnapshot("t7", map[string]any{"text": "stale"}))

	set := rec.all()[1]
	assert.Equal(t, action.TypeSet, set.Type)
	assert.Nil(t, set.Data)
	assert.True(t, set.Absent, "value now absent, not value now empty")
}

func TestListen_StoreAsRedirects(t *testing.T) {
	reg, client, rec := newTestRegistry(t)

	require.NoError(t, reg.Watch(context.Background(),
		Request{Kind: remote.ChildAdded, Path: "todos", StoreAs: "inbox"}))
	client.fire("todos", remote.ChildAdded, remote.NewValueSnapshot("t7", "x"))

	assert.Equal(t, "inbox", rec.all()[0].Path, "Start lands at the custom location")
	assert.Equal(t, "inbox", rec.all()[1].Path)
}

func TestListen_ErrorMapsToUnauthorized(t *testing.T) {
	reg, client, rec := newTestRegistry(t)

	require.NoError(t, reg.Watch(context.Background(), Request{Kind: remote.Value, Path: "secrets"}))
	client.fireErr("secrets", remote.Value, errors.New("connection reset"))

	actions := rec.all()
	require.Len(t, actions, 2)
	assert.Equal(t, action.TypeUnauthorized, actions[1].Type,
		"listener failures are never classified further")
	assert.Equal(t, "connection reset", actions[1].Error)
}

func TestListen_MultipleFirings(t *testing.T) {
	reg, client, rec := newTestRegistry(t)

	require.NoError(t, reg.Watch(context.Background(), Request{Kind: remote.Value, Path: "todos"}))
	client.fire("todos", remote.Value, remote.NewValueSnapshot("todos", "v1"))
	client.fire("todos", remote.Value, remote.NewValueSnapshot("todos", "v2"))

	actions := rec.all()
	require.Len(t, actions, 3)
	assert.Equal(t, "v1", actions[1].Data)
	assert.Equal(t, "v2", actions[2].Data)
}

func TestListen_NoFiringAfterUnwatch(t *testing.T) {
	reg, client, rec := newTestRegistry(t)
	req := Request{Kind: remote.Value, Path: "todos"}

	require.NoError(t, reg.Watch(context.Background(), req))
	reg.Unwatch(req)
	client.fire("todos", remote.Value, remote.NewValueSnapshot("todos", "late"))

	assert.Len(t, rec.all(), 1, "only the Start from registration")
}
