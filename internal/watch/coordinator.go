package watch

import (
	"context"

	"github.com/rtmirror/rtmirror/internal/action"
	"github.com/rtmirror/rtmirror/internal/populate"
	"github.com/rtmirror/rtmirror/internal/remote"
)

// resolveAndDispatch sequences dependent-data resolution for one listener
// firing. Every resolved child is committed before the root: the root's
// "fully loaded" semantics in the consuming store must only become true once
// each dependency it points to is already present. The resolver settles
// results in arbitrary order, so the whole stream is buffered first.
func (r *Registry) resolveAndDispatch(ctx context.Context, req Request, rootPath string, n remote.Normalized) {
	if r.resolver == nil {
		r.log.Warn("watch declares populates but registry has no resolver",
			"path", req.Path)
		r.dispatch.Dispatch(action.Set(action.SourceListener, rootPath, n.Data, n.Absent, n.Ordered, r.now()))
		return
	}

	results, err := r.resolver.Resolve(ctx, req.Path, n.Data, req.Populates)
	if err != nil {
		r.dispatch.Dispatch(action.Unauthorized(rootPath, err, r.now()))
		return
	}

	var children []populate.Result
	for res := range results {
		if res.Err != nil {
			// A missing dependency poisons the whole commit: dispatching the
			// root anyway would let it claim loaded status while a referenced
			// child is absent. Drain the stream, report once, commit nothing.
			for range results {
			}
			r.log.Warn("populate resolution failed",
				"path", req.Path, "child", res.Path, "error", res.Err)
			r.dispatch.Dispatch(action.Unauthorized(rootPath, res.Err, r.now()))
			return
		}
		children = append(children, res)
	}

	for _, child := range children {
		r.dispatch.Dispatch(action.Set(action.SourcePopulateChild, child.Path, child.Value, false, nil, r.now()))
	}
	r.dispatch.Dispatch(action.Set(action.SourcePopulateRoot, rootPath, n.Data, n.Absent, n.Ordered, r.now()))
}
