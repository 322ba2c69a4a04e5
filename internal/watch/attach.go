package watch

import (
	"context"

	"github.com/rtmirror/rtmirror/internal/action"
	"github.com/rtmirror/rtmirror/internal/remote"
)

// attach wires req to the remote store in the mode its kind demands.
func (r *Registry) attach(ctx context.Context, req Request, key Key) error {
	switch req.Kind {
	case remote.FirstChild:
		return r.probeFirstChild(ctx, req)
	case remote.Once:
		return r.fetchOnce(ctx, req)
	default:
		r.listen(ctx, req, key)
		return nil
	}
}

// resultPath is where results land: the custom storage location when one was
// requested, else the watched path.
func resultPath(req Request) string {
	if req.StoreAs != "" {
		return req.StoreAs
	}
	return req.Path
}

// probeFirstChild performs the single ordered-by-key, limit-one lookup.
// It never dispatches Start: the probe answers "is there anything here",
// and only an empty or failed answer is worth an action.
func (r *Registry) probeFirstChild(ctx context.Context, req Request) error {
	path := resultPath(req)

	snap, err := r.client.FetchFirst(ctx, req.Path)
	if err != nil {
		r.dispatch.Dispatch(action.Error(path, err, r.now()))
		return err
	}
	if !snap.Exists() {
		r.dispatch.Dispatch(action.NoValue(path, r.now()))
	}
	return nil
}

// fetchOnce resolves a one-shot value fetch. Start is dispatched before the
// remote call so the caller observes the in-flight state synchronously.
func (r *Registry) fetchOnce(ctx context.Context, req Request) error {
	path := resultPath(req)
	r.dispatch.Dispatch(action.Start(path))

	q := r.buildQuery(req)
	snap, err := q.FetchOnce(ctx)
	if err != nil {
		r.dispatch.Dispatch(action.Error(path, err, r.now()))
		return err
	}

	n := remote.Normalize(snap, req.Kind)
	r.dispatch.Dispatch(action.Set(action.SourceListener, path, n.Data, n.Absent, n.Ordered, r.now()))
	return nil
}

// listen attaches a persistent listener. Each firing is an independent
// callback from the client's read loop; it may race an Unwatch and is allowed
// to produce one extra dispatch after teardown.
func (r *Registry) listen(ctx context.Context, req Request, key Key) {
	r.dispatch.Dispatch(action.Start(resultPath(req)))

	onData := func(snap remote.Snapshot) {
		n := remote.Normalize(snap, req.Kind)

		// Child-level events land at path/childKey so siblings map to
		// independent store locations; value events land at the path itself.
		p := resultPath(req)
		if req.StoreAs == "" && req.Kind != remote.Value {
			p = req.Path + "/" + snap.Key()
		}

		if len(req.Populates) == 0 {
			r.dispatch.Dispatch(action.Set(action.SourceListener, p, n.Data, n.Absent, n.Ordered, r.now()))
			return
		}
		r.resolveAndDispatch(ctx, req, p, n)
	}

	onErr := func(err error) {
		// Every listener failure maps to the unauthorized variant; the
		// underlying error is carried verbatim and never classified further.
		r.dispatch.Dispatch(action.Unauthorized(resultPath(req), err, r.now()))
	}

	sub := r.buildQuery(req).Subscribe(req.Kind, onData, onErr)
	r.track(key, sub)
}

func (r *Registry) buildQuery(req Request) remote.Query {
	q := r.client.Query(req.Path)
	if req.IsQuery || len(req.Params) > 0 {
		q = q.Apply(req.Params)
	}
	return q
}
