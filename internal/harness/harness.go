package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/rtmirror/rtmirror/internal/action"
	"github.com/rtmirror/rtmirror/internal/manifest"
	"github.com/rtmirror/rtmirror/internal/populate"
	"github.com/rtmirror/rtmirror/internal/remote"
	"github.com/rtmirror/rtmirror/internal/testutil"
	"github.com/rtmirror/rtmirror/internal/watch"
)

// Scenario clocks start here and tick one millisecond per terminal action.
const epochMillis = 1700000000000

// Result captures everything a scenario run produced.
type Result struct {
	Trace           []action.Action
	Suppressed      int64
	ActiveListeners int
}

// Run executes a scenario from scratch and returns its trace.
func Run(s *Scenario) (*Result, error) {
	ctx := context.Background()
	clock := testutil.NewWallClock(time.UnixMilli(epochMillis), time.Millisecond)
	fake := NewFakeRemote(s.Seed)
	rec := newRecorder()

	reg := watch.New(fake, rec, watch.Options{
		Now:      clock.Now,
		Resolver: populate.NewRemoteResolver(fake),
		Logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	})

	if err := reg.WatchAll(ctx, toRequests(s.Watches)); err != nil {
		return nil, fmt.Errorf("attach watches: %w", err)
	}

	for i, step := range s.Steps {
		if err := applyStep(ctx, reg, fake, step); err != nil {
			return nil, fmt.Errorf("steps[%d]: %w", i, err)
		}
	}

	return &Result{
		Trace:           rec.all(),
		Suppressed:      reg.Suppressed(),
		ActiveListeners: reg.ActiveListeners(),
	}, nil
}

func applyStep(ctx context.Context, reg *watch.Registry, fake *FakeRemote, step Step) error {
	switch {
	case step.Put != nil:
		fake.Put(step.Put.Path, step.Put.Value)
	case step.Delete != nil:
		fake.Delete(step.Delete.Path)
	case step.FireValue != nil:
		fake.FireValue(step.FireValue.Path)
	case step.FireChild != nil:
		fake.FireChild(remote.EventKind(step.FireChild.Kind), step.FireChild.Path, step.FireChild.Key)
	case step.FireError != nil:
		fake.FireError(step.FireError.Path, step.FireError.Message)
	case step.FailFetch != nil:
		fake.FailFetch(step.FailFetch.Path, step.FailFetch.Message)
	case step.Watch != nil:
		err := reg.Watch(ctx, toRequest(step.Watch.Watch))
		if step.Watch.ExpectError {
			if err == nil {
				return fmt.Errorf("watch %s: expected an error", step.Watch.Path)
			}
			return nil
		}
		return err
	case step.Unwatch != nil:
		reg.Unwatch(toRequest(step.Unwatch.Watch))
	}
	return nil
}

func toRequests(watches []manifest.Watch) []watch.Request {
	m := manifest.Manifest{Watches: watches}
	return m.Requests()
}

func toRequest(w manifest.Watch) watch.Request {
	return toRequests([]manifest.Watch{w})[0]
}

// recorder collects every dispatched action in order.
type recorder struct {
	mu      sync.Mutex
	actions []action.Action
}

func newRecorder() *recorder { return &recorder{} }

func (r *recorder) Dispatch(a action.Action) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.actions = append(r.actions, a)
}

func (r *recorder) all() []action.Action {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]action.Action, len(r.actions))
	copy(out, r.actions)
	return out
}
