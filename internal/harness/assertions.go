package harness

import (
	"fmt"
	"strings"

	"github.com/rtmirror/rtmirror/internal/action"
)

// Assertion type constants.
const (
	AssertDispatched      = "dispatched"
	AssertNotDispatched   = "not_dispatched"
	AssertActionOrder     = "action_order"
	AssertActionCount     = "action_count"
	AssertSuppressed      = "suppressed"
	AssertActiveListeners = "active_listeners"
)

// Assertion validates one property of a scenario result.
type Assertion struct {
	// Type selects the check:
	// - "dispatched": an action matching the given fields appears in the trace
	// - "not_dispatched": no action matches
	// - "action_order": the listed action types appear in order (subsequence)
	// - "action_count": exactly Count matching actions appear
	// - "suppressed": Count duplicate watches were silently dropped
	// - "active_listeners": Count remote listeners remain attached
	Type string `yaml:"type"`

	// Action is the action type to match (dispatched, not_dispatched,
	// action_count).
	Action string `yaml:"action,omitempty"`

	// Path narrows the match to one store path. Empty matches any.
	Path string `yaml:"path,omitempty"`

	// Source narrows Set matches to one origin tag.
	Source string `yaml:"source,omitempty"`

	// Absent requires the matched action's removal flag to equal this value.
	Absent *bool `yaml:"absent,omitempty"`

	// Error requires the matched action's error to contain this substring.
	Error string `yaml:"error,omitempty"`

	// Count is the expected number (action_count, suppressed,
	// active_listeners).
	Count int `yaml:"count"`

	// Actions is the expected type order (action_order).
	Actions []string `yaml:"actions,omitempty"`
}

func validateAssertion(a *Assertion) error {
	switch a.Type {
	case AssertDispatched, AssertNotDispatched:
		if a.Action == "" {
			return fmt.Errorf("action is required for %s", a.Type)
		}
	case AssertActionOrder:
		if len(a.Actions) == 0 {
			return fmt.Errorf("actions list is required for action_order")
		}
	case AssertActionCount:
		if a.Action == "" {
			return fmt.Errorf("action is required for action_count")
		}
		if a.Count < 0 {
			return fmt.Errorf("count must be non-negative")
		}
	case AssertSuppressed, AssertActiveListeners:
		if a.Count < 0 {
			return fmt.Errorf("count must be non-negative")
		}
	case "":
		return fmt.Errorf("type is required")
	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
	return nil
}

// Verify runs every assertion against the result and returns the failures.
func Verify(s *Scenario, r *Result) []string {
	var failures []string
	for i, a := range s.Assertions {
		if msg := check(&a, r); msg != "" {
			failures = append(failures, fmt.Sprintf("assertions[%d] (%s): %s", i, a.Type, msg))
		}
	}
	return failures
}

func check(a *Assertion, r *Result) string {
	switch a.Type {
	case AssertDispatched:
		if countMatches(a, r.Trace) == 0 {
			return fmt.Sprintf("no %s action matched %s", a.Action, describeMatch(a))
		}
	case AssertNotDispatched:
		if n := countMatches(a, r.Trace); n > 0 {
			return fmt.Sprintf("%d %s action(s) matched %s", n, a.Action, describeMatch(a))
		}
	case AssertActionOrder:
		if !typesInOrder(a.Actions, r.Trace) {
			return fmt.Sprintf("trace %v does not contain %v in order", traceTypes(r.Trace), a.Actions)
		}
	case AssertActionCount:
		if n := countMatches(a, r.Trace); n != a.Count {
			return fmt.Sprintf("expected %d %s action(s) matching %s, got %d", a.Count, a.Action, describeMatch(a), n)
		}
	case AssertSuppressed:
		if int(r.Suppressed) != a.Count {
			return fmt.Sprintf("expected %d suppressed duplicate(s), got %d", a.Count, r.Suppressed)
		}
	case AssertActiveListeners:
		if r.ActiveListeners != a.Count {
			return fmt.Sprintf("expected %d active listener(s), got %d", a.Count, r.ActiveListeners)
		}
	}
	return ""
}

func countMatches(a *Assertion, trace []action.Action) int {
	n := 0
	for _, act := range trace {
		if matches(a, act) {
			n++
		}
	}
	return n
}

func matches(a *Assertion, act action.Action) bool {
	if a.Action != "" && string(act.Type) != a.Action {
		return false
	}
	if a.Path != "" && act.Path != a.Path {
		return false
	}
	if a.Source != "" && string(act.Source) != a.Source {
		return false
	}
	if a.Absent != nil && act.Absent != *a.Absent {
		return false
	}
	if a.Error != "" && !strings.Contains(act.Error, a.Error) {
		return false
	}
	return true
}

// typesInOrder reports whether want is a subsequence of the trace's types.
func typesInOrder(want []string, trace []action.Action) bool {
	i := 0
	for _, act := range trace {
		if i < len(want) && string(act.Type) == want[i] {
			i++
		}
	}
	return i == len(want)
}

func traceTypes(trace []action.Action) []string {
	types := make([]string, len(trace))
	for i, act := range trace {
		types[i] = string(act.Type)
	}
	return types
}

func describeMatch(a *Assertion) string {
	var parts []string
	if a.Path != "" {
		parts = append(parts, "path="+a.Path)
	}
	if a.Source != "" {
		parts = append(parts, "source="+a.Source)
	}
	if a.Absent != nil {
		parts = append(parts, fmt.Sprintf("absent=%v", *a.Absent))
	}
	if a.Error != "" {
		parts = append(parts, "error~"+a.Error)
	}
	if len(parts) == 0 {
		return "any"
	}
	return strings.Join(parts, ",")
}
