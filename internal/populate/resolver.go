package populate

import (
	"context"
	"fmt"
	"sync"

	"github.com/rtmirror/rtmirror/internal/remote"
)

// RemoteResolver resolves references by fetching each referenced child from
// the remote store at Root/<id>. Fetches fan out concurrently and fan in on
// the result channel, so settle order is whatever the remote returns first.
type RemoteResolver struct {
	client remote.Client
}

// NewRemoteResolver builds a resolver over client.
func NewRemoteResolver(client remote.Client) *RemoteResolver {
	return &RemoteResolver{client: client}
}

// Resolve collects the reference ids declared by specs from data and fetches
// each one. Data may be a single record or a collection of records; both
// shapes are walked. Unknown or empty reference fields are skipped, matching
// the tolerance of the consuming store for partially-denormalized records.
func (r *RemoteResolver) Resolve(ctx context.Context, rootKey string, data any, specs []Spec) (<-chan Result, error) {
	refs := collectRefs(data, specs)

	out := make(chan Result, len(refs))
	if len(refs) == 0 {
		close(out)
		return out, nil
	}

	var wg sync.WaitGroup
	for _, ref := range refs {
		wg.Add(1)
		go func(path string) {
			defer wg.Done()
			snap, err := r.client.Query(path).FetchOnce(ctx)
			if err != nil {
				out <- Result{Path: path, Err: fmt.Errorf("populate %s: %w", path, err)}
				return
			}
			out <- Result{Path: path, Value: snap.Value()}
		}(ref)
	}

	go func() {
		wg.Wait()
		close(out)
	}()

	return out, nil
}

// collectRefs walks data and returns the deduplicated child paths to fetch.
func collectRefs(data any, specs []Spec) []string {
	seen := make(map[string]bool)
	var paths []string

	add := func(root string, id string) {
		if id == "" {
			return
		}
		p := root + "/" + id
		if !seen[p] {
			seen[p] = true
			paths = append(paths, p)
		}
	}

	record, ok := data.(map[string]any)
	if !ok {
		return nil
	}

	for _, spec := range specs {
		if v, present := record[spec.Child]; present {
			addRefValue(add, spec.Root, v)
			continue
		}
		// Collection shape: every top-level child is a record.
		for _, child := range record {
			if childRecord, ok := child.(map[string]any); ok {
				if v, present := childRecord[spec.Child]; present {
					addRefValue(add, spec.Root, v)
				}
			}
		}
	}

	return paths
}

// addRefValue handles single-id, map-of-ids, and list-of-ids reference fields.
func addRefValue(add func(root, id string), root string, v any) {
	switch ref := v.(type) {
	case string:
		add(root, ref)
	case map[string]any:
		for id := range ref {
			add(root, id)
		}
	case []any:
		for _, elem := range ref {
			if id, ok := elem.(string); ok {
				add(root, id)
			}
		}
	}
}
