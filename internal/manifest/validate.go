package manifest

import (
	"fmt"
	"strings"

	"github.com/rtmirror/rtmirror/internal/remote"
)

// Validation error codes (E200-E299)
const (
	ErrNoWatches        = "E200" // manifest declares no watches
	ErrInvalidKind      = "E201" // unknown event kind
	ErrEmptyPath        = "E202" // watch path is empty
	ErrDuplicateQueryID = "E203" // explicit query id reused across watches
	ErrInvalidParamOp   = "E204" // unknown query param op
	ErrPopulateFields   = "E205" // populate missing child or root
	ErrProbeParams      = "E206" // first_child probes define their own ordering
)

// ValidationError is one semantic manifest error.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

// ValidationErrors aggregates every error found in one pass.
type ValidationErrors []ValidationError

func (es ValidationErrors) Error() string {
	msgs := make([]string, len(es))
	for i, e := range es {
		msgs[i] = e.Error()
	}
	return strings.Join(msgs, "; ")
}

// paramOps is the remote store's query modifier vocabulary.
var paramOps = map[string]bool{
	"orderByChild":    true,
	"orderByKey":      true,
	"orderByValue":    true,
	"orderByPriority": true,
	"limitToFirst":    true,
	"limitToLast":     true,
	"startAt":         true,
	"endAt":           true,
	"equalTo":         true,
}

// Validate applies semantic rules to a structurally valid manifest.
// Returns all errors found (does not fail-fast).
func Validate(m *Manifest) []ValidationError {
	var errs []ValidationError

	// E200: an empty manifest mirrors nothing
	if len(m.Watches) == 0 {
		errs = append(errs, ValidationError{
			Field:   "watches",
			Message: "at least one watch is required",
			Code:    ErrNoWatches,
		})
	}

	queryIDs := make(map[string]int)

	for i, w := range m.Watches {
		// E201: unknown kind
		if !remote.EventKind(w.Kind).Valid() {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("watches[%d].kind", i),
				Message: fmt.Sprintf("unknown event kind %q", w.Kind),
				Code:    ErrInvalidKind,
			})
		}

		// E202: empty path
		if strings.TrimSpace(w.Path) == "" {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("watches[%d].path", i),
				Message: "path is required and must be non-empty",
				Code:    ErrEmptyPath,
			})
		}

		// E203: an explicit query id names exactly one watcher
		if w.QueryID != "" {
			if prev, ok := queryIDs[w.QueryID]; ok {
				errs = append(errs, ValidationError{
					Field:   fmt.Sprintf("watches[%d].query_id", i),
					Message: fmt.Sprintf("query id %q already used by watches[%d]", w.QueryID, prev),
					Code:    ErrDuplicateQueryID,
				})
			} else {
				queryIDs[w.QueryID] = i
			}
		}

		// E204: unknown param op
		for j, p := range w.Params {
			if !paramOps[p.Op] {
				errs = append(errs, ValidationError{
					Field:   fmt.Sprintf("watches[%d].params[%d].op", i, j),
					Message: fmt.Sprintf("unknown query param op %q", p.Op),
					Code:    ErrInvalidParamOp,
				})
			}
		}

		// E206: the probe is always ordered-by-key, limit-one
		if remote.EventKind(w.Kind) == remote.FirstChild && len(w.Params) > 0 {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("watches[%d].params", i),
				Message: "first_child probes do not accept query params",
				Code:    ErrProbeParams,
			})
		}

		// E205: populate needs both sides of the reference
		for j, p := range w.Populates {
			if strings.TrimSpace(p.Child) == "" || strings.TrimSpace(p.Root) == "" {
				errs = append(errs, ValidationError{
					Field:   fmt.Sprintf("watches[%d].populates[%d]", i, j),
					Message: "populate requires non-empty child and root",
					Code:    ErrPopulateFields,
				})
			}
		}
	}

	return errs
}
