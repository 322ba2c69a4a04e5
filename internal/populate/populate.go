// Package populate resolves denormalized references: values that are really
// ids pointing into another collection, which must be fetched before the
// referencing parent can be considered loaded.
package populate

import "context"

// Spec names one reference to resolve.
type Spec struct {
	// Child is the field on the watched data holding the reference id,
	// or a map of ids when the reference is many-valued.
	Child string `json:"child" yaml:"child"`
	// Root is the collection path the ids point into.
	Root string `json:"root" yaml:"root"`
}

// Result is one resolved reference: the store path the value belongs at and
// the fetched value. Err marks a failed resolution; Path identifies which.
type Result struct {
	Path  string
	Value any
	Err   error
}

// Resolver fetches referenced children for a root payload. Results are
// streamed on the returned channel in whatever order they settle; the channel
// closes once every reference has either resolved or failed. The coordinator
// on the consuming side owns ordering: it buffers the stream and commits
// children before the root.
type Resolver interface {
	Resolve(ctx context.Context, rootKey string, data any, specs []Spec) (<-chan Result, error)
}
