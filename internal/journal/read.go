package journal

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rtmirror/rtmirror/internal/action"
)

// Entry is one journaled action with its recording metadata.
type Entry struct {
	Session    string        `json:"session"`
	Seq        int64         `json:"seq"`
	Action     action.Action `json:"action"`
	RecordedAt int64         `json:"recorded_at"`
}

// Session is one recorded sync session.
type Session struct {
	ID        string `json:"id"`
	StartedAt int64  `json:"started_at"`
	RemoteURL string `json:"remote_url,omitempty"`
	Manifest  string `json:"manifest,omitempty"`
	Actions   int64  `json:"actions"`
}

// ReadSession returns every action of a session in sequence order.
// Returns an empty slice, not nil, when the session has no actions.
func (j *Journal) ReadSession(ctx context.Context, session string) ([]Entry, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT session_id, seq, payload, recorded_at
		FROM actions
		WHERE session_id = ?
		ORDER BY seq ASC
	`, session)
	if err != nil {
		return nil, fmt.Errorf("query actions: %w", err)
	}
	defer rows.Close()

	entries := []Entry{}
	for rows.Next() {
		var e Entry
		var payload string
		if err := rows.Scan(&e.Session, &e.Seq, &payload, &e.RecordedAt); err != nil {
			return nil, fmt.Errorf("scan action: %w", err)
		}
		if err := json.Unmarshal([]byte(payload), &e.Action); err != nil {
			return nil, fmt.Errorf("unmarshal action seq %d: %w", e.Seq, err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate actions: %w", err)
	}

	return entries, nil
}

// Sessions lists recorded sessions, most recent first.
func (j *Journal) Sessions(ctx context.Context) ([]Session, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT s.id, s.started_at, s.remote_url, s.manifest,
		       (SELECT COUNT(*) FROM actions a WHERE a.session_id = s.id)
		FROM sessions s
		ORDER BY s.started_at DESC, s.id DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer rows.Close()

	sessions := []Session{}
	for rows.Next() {
		var s Session
		if err := rows.Scan(&s.ID, &s.StartedAt, &s.RemoteURL, &s.Manifest, &s.Actions); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		sessions = append(sessions, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sessions: %w", err)
	}

	return sessions, nil
}
