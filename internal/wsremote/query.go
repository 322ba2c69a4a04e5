package wsremote

import (
	"context"
	"errors"
	"sync"

	"github.com/rtmirror/rtmirror/internal/remote"
)

// query is an immutable (path, params) handle; Apply derives new handles.
type query struct {
	c      *Client
	path   string
	params []remote.Param
}

func (q *query) Path() string { return q.path }

func (q *query) Apply(params []remote.Param) remote.Query {
	combined := make([]remote.Param, 0, len(q.params)+len(params))
	combined = append(combined, q.params...)
	combined = append(combined, params...)
	return &query{c: q.c, path: q.path, params: combined}
}

func (q *query) FetchOnce(ctx context.Context) (remote.Snapshot, error) {
	resp, err := q.c.call(ctx, frame{Op: opFetch, Path: q.path, Params: q.params})
	if err != nil {
		return nil, err
	}
	if resp.Op == opError {
		return nil, errors.New(resp.Error)
	}
	return decodeSnapshot(resp.Snapshot), nil
}

func (q *query) Subscribe(kind remote.EventKind, onData remote.DataFunc, onErr remote.ErrorFunc) remote.Subscription {
	sub := &subscription{c: q.c, onData: onData, onErr: onErr}
	id := q.c.addSub(sub)
	if id == 0 {
		onErr(ErrClosed)
		return sub
	}
	sub.id = id

	err := q.c.writeFrame(frame{
		Op:     opSubscribe,
		Sub:    id,
		Kind:   string(kind),
		Path:   q.path,
		Params: q.params,
	})
	if err != nil {
		q.c.removeSub(id)
		onErr(err)
	}
	return sub
}

// subscription is the teardown handle for one listener. Unsubscribe is
// idempotent; the server stops sending events for the id after the
// unsubscribe frame is processed.
type subscription struct {
	c      *Client
	id     int64
	onData remote.DataFunc
	onErr  remote.ErrorFunc
	once   sync.Once
}

func (s *subscription) Unsubscribe() {
	s.once.Do(func() {
		if s.id == 0 || !s.c.removeSub(s.id) {
			return
		}
		if err := s.c.writeFrame(frame{Op: opUnsubscribe, Sub: s.id}); err != nil {
			s.c.log.Debug("unsubscribe write failed", "sub", s.id, "error", err)
		}
	})
}
