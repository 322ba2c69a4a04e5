// Package watch is the core of the mirror: it decides whether a watch request
// registers, replaces, or is suppressed, attaches the right subscription mode
// to the remote store, and turns every remote firing into ordered
// state-mutation actions.
package watch

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rtmirror/rtmirror/internal/action"
	"github.com/rtmirror/rtmirror/internal/populate"
	"github.com/rtmirror/rtmirror/internal/remote"
)

// Request describes one watch. Immutable once submitted.
type Request struct {
	// Kind selects one-shot, probe, or continuous subscription mode.
	Kind remote.EventKind
	// Path is the remote location to watch.
	Path string
	// Params are query modifier ops, applied in order when IsQuery is set.
	Params []remote.Param
	// IsQuery marks the request as parameterized.
	IsQuery bool
	// StoreAs redirects results to a custom storage location.
	StoreAs string
	// QueryID names the subscription explicitly. A named watcher is refreshed
	// (torn down and re-attached) on re-submission rather than stacked.
	QueryID string
	// Populates lists denormalized references to resolve before the root
	// value is committed.
	Populates []populate.Spec
}

// Options configures a Registry. Zero values get sensible defaults.
type Options struct {
	// Counters substitutes the reference-count table. Defaults to a fresh
	// in-memory table owned by the registry.
	Counters CounterStore
	// Resolver resolves populate references. Required only when requests
	// declare Populates.
	Resolver populate.Resolver
	// Now overrides the timestamp source. Defaults to time.Now.
	Now func() time.Time
	// Logger overrides the default slog logger.
	Logger *slog.Logger
}

// Registry owns the watcher lifecycle: reference counting, duplicate
// suppression, replacement of named query watchers, and teardown.
type Registry struct {
	client   remote.Client
	dispatch action.Dispatcher
	counts   CounterStore
	resolver populate.Resolver
	now      func() time.Time
	log      *slog.Logger

	mu   sync.Mutex
	subs map[Key]remote.Subscription

	// suppressed counts silently dropped duplicate watches. The drop itself
	// is deliberate policy; the counter is the only caller-visible signal.
	suppressed atomic.Int64
}

// New creates a Registry dispatching into d for remote data served by client.
func New(client remote.Client, d action.Dispatcher, opts Options) *Registry {
	if opts.Counters == nil {
		opts.Counters = NewMemCounters()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Registry{
		client:   client,
		dispatch: d,
		counts:   opts.Counters,
		resolver: opts.Resolver,
		now:      opts.Now,
		log:      opts.Logger,
		subs:     make(map[Key]remote.Subscription),
	}
}

// Watch registers a subscription for req and attaches it to the remote store.
//
// Duplicate policy: the counter is read under the key as submitted, before
// any query id is derived. A live entry with a resolvable query id is
// replaced (torn down first); a live entry with no query id means the request
// is a true duplicate and is dropped silently: no error, no extra remote
// listener.
//
// The returned error reflects one-shot fetch failures only; continuous
// listeners report failures through dispatched actions.
func (r *Registry) Watch(ctx context.Context, req Request) error {
	if !req.Kind.Valid() {
		return fmt.Errorf("watch %s: unknown event kind %q", req.Path, req.Kind)
	}

	watchPath := WatchPath(req.Path, req.StoreAs)
	counter := r.counts.Count(Key{Kind: req.Kind, Path: watchPath, QueryID: req.QueryID})

	queryID := req.QueryID
	if queryID == "" {
		queryID = DeriveQueryID(req.Kind, req.Path, req.Params)
	}

	if counter > 0 {
		if queryID == "" {
			r.suppressed.Add(1)
			r.log.Debug("duplicate watch suppressed",
				"kind", req.Kind, "path", watchPath)
			return nil
		}
		// A named query watcher is refreshed, not stacked: unregister the
		// prior key before re-registering.
		r.release(Key{Kind: req.Kind, Path: watchPath, QueryID: queryID})
	}

	key := Key{Kind: req.Kind, Path: watchPath, QueryID: queryID}
	r.counts.Increment(key)
	r.log.Debug("watch registered", "key", key.String(), "count", r.counts.Count(key))

	return r.attach(ctx, req, key)
}

// Unwatch decrements the reference count for req's key and detaches the
// remote listener only when the count reaches zero. Calling it on a key with
// no live count is a no-op: the count never underflows and no remote
// unsubscribe is attempted.
func (r *Registry) Unwatch(req Request) {
	watchPath := WatchPath(req.Path, req.StoreAs)
	queryID := req.QueryID
	if queryID == "" {
		queryID = DeriveQueryID(req.Kind, req.Path, req.Params)
	}
	r.release(Key{Kind: req.Kind, Path: watchPath, QueryID: queryID})
}

// WatchAll registers every request in order. The first one-shot failure stops
// iteration and is returned.
func (r *Registry) WatchAll(ctx context.Context, reqs []Request) error {
	for _, req := range reqs {
		if err := r.Watch(ctx, req); err != nil {
			return err
		}
	}
	return nil
}

// UnwatchAll unregisters every request in order.
func (r *Registry) UnwatchAll(reqs []Request) {
	for _, req := range reqs {
		r.Unwatch(req)
	}
}

// Suppressed returns how many duplicate watches have been silently dropped.
func (r *Registry) Suppressed() int64 {
	return r.suppressed.Load()
}

// ActiveListeners returns the number of live remote subscriptions.
func (r *Registry) ActiveListeners() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.subs)
}

// release drops one reference. At zero the entry is removed and the remote
// listener detached. Teardown is best-effort: a listener that fired just
// before detachment completes may still produce one extra dispatch.
func (r *Registry) release(key Key) {
	r.mu.Lock()
	defer r.mu.Unlock()

	switch count := r.counts.Count(key); {
	case count == 0:
		// Already gone; nothing to decrement and nothing to detach.
	case count == 1:
		r.counts.Remove(key)
		if sub, ok := r.subs[key]; ok {
			delete(r.subs, key)
			sub.Unsubscribe()
		}
		r.log.Debug("watch released", "key", key.String())
	default:
		r.counts.Decrement(key)
	}
}

// track stores the live subscription for key. Any prior subscription under
// the same key is detached first, keeping at most one active remote listener
// per key.
func (r *Registry) track(key Key, sub remote.Subscription) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if old, ok := r.subs[key]; ok {
		old.Unsubscribe()
	}
	r.subs[key] = sub
}
