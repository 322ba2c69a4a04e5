package journal

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rtmirror/rtmirror/internal/action"
)

// Replay re-dispatches a recorded session into d in the original sequence
// order and returns how many actions were delivered. Replaying into a fresh
// state container reproduces the mirrored state the session ended with.
func (j *Journal) Replay(ctx context.Context, session string, d action.Dispatcher) (int, error) {
	entries, err := j.ReadSession(ctx, session)
	if err != nil {
		return 0, fmt.Errorf("replay %s: %w", session, err)
	}

	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		d.Dispatch(e.Action)
	}
	return len(entries), nil
}

// Verify re-marshals every journaled action and byte-compares it against the
// stored payload, proving the recording round-trips deterministically.
// Returns the first mismatching sequence number, or 0 when all match.
func (j *Journal) Verify(ctx context.Context, session string) (int64, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT seq, payload FROM actions WHERE session_id = ? ORDER BY seq ASC
	`, session)
	if err != nil {
		return 0, fmt.Errorf("verify %s: %w", session, err)
	}
	defer rows.Close()

	for rows.Next() {
		var seq int64
		var payload string
		if err := rows.Scan(&seq, &payload); err != nil {
			return 0, fmt.Errorf("verify %s: %w", session, err)
		}

		var a action.Action
		if err := unmarshalAction(payload, &a); err != nil {
			return seq, nil
		}
		again, err := a.MarshalCanonical()
		if err != nil || string(again) != payload {
			return seq, nil
		}
	}
	if err := rows.Err(); err != nil {
		return 0, fmt.Errorf("verify %s: %w", session, err)
	}

	return 0, nil
}

func unmarshalAction(payload string, a *action.Action) error {
	return json.Unmarshal([]byte(payload), a)
}
