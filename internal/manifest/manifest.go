// Package manifest loads and validates the YAML watch manifest a sync
// session runs with. A manifest is validated twice: structurally against the
// embedded CUE schema, then semantically by coded Go rules.
package manifest

import (
	_ "embed"
	"fmt"
	"os"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"gopkg.in/yaml.v3"

	"github.com/rtmirror/rtmirror/internal/populate"
	"github.com/rtmirror/rtmirror/internal/remote"
	"github.com/rtmirror/rtmirror/internal/watch"
)

//go:embed schema.cue
var schemaCUE string

// Manifest is the parsed watch manifest.
type Manifest struct {
	Version int     `yaml:"version" json:"version"`
	Remote  Remote  `yaml:"remote,omitempty" json:"remote,omitempty"`
	Watches []Watch `yaml:"watches" json:"watches"`
}

// Remote names the endpoint to mirror from. The CLI flag overrides it.
type Remote struct {
	URL string `yaml:"url,omitempty" json:"url,omitempty"`
}

// Watch is one declared watch.
type Watch struct {
	Kind      string         `yaml:"kind" json:"kind"`
	Path      string         `yaml:"path" json:"path"`
	StoreAs   string         `yaml:"store_as,omitempty" json:"store_as,omitempty"`
	QueryID   string         `yaml:"query_id,omitempty" json:"query_id,omitempty"`
	Params    []remote.Param `yaml:"params,omitempty" json:"params,omitempty"`
	Populates []Populate     `yaml:"populates,omitempty" json:"populates,omitempty"`
}

// Populate declares one denormalized reference to resolve.
type Populate struct {
	Child string `yaml:"child" json:"child"`
	Root  string `yaml:"root" json:"root"`
}

// Load reads and validates the manifest at path.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	m, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("manifest %s: %w", path, err)
	}
	return m, nil
}

// Parse decodes and validates manifest YAML.
func Parse(data []byte) (*Manifest, error) {
	if err := validateSchema(data); err != nil {
		return nil, err
	}

	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("decode yaml: %w", err)
	}

	if errs := Validate(&m); len(errs) > 0 {
		return nil, ValidationErrors(errs)
	}
	return &m, nil
}

// Requests converts the manifest's watches into registry requests, in
// declaration order.
func (m *Manifest) Requests() []watch.Request {
	reqs := make([]watch.Request, 0, len(m.Watches))
	for _, w := range m.Watches {
		req := watch.Request{
			Kind:    remote.EventKind(w.Kind),
			Path:    w.Path,
			Params:  w.Params,
			IsQuery: len(w.Params) > 0,
			StoreAs: w.StoreAs,
			QueryID: w.QueryID,
		}
		for _, p := range w.Populates {
			req.Populates = append(req.Populates, populate.Spec{
				Child: p.Child,
				Root:  p.Root,
			})
		}
		reqs = append(reqs, req)
	}
	return reqs
}

// validateSchema checks the raw YAML against the embedded CUE schema.
func validateSchema(data []byte) error {
	var raw any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("decode yaml: %w", err)
	}

	ctx := cuecontext.New()
	schema := ctx.CompileString(schemaCUE).LookupPath(cue.ParsePath("#Manifest"))
	if err := schema.Err(); err != nil {
		return fmt.Errorf("compile schema: %w", err)
	}

	doc := ctx.Encode(raw)
	if err := doc.Err(); err != nil {
		return fmt.Errorf("encode manifest: %w", err)
	}

	unified := schema.Unify(doc)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return fmt.Errorf("schema: %s", cueerrors.Details(err, nil))
	}
	return nil
}
