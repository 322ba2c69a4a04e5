package journal

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/rtmirror/rtmirror/internal/action"
)

// BeginSession registers a session row. Idempotent: re-registering an
// existing id is silently ignored.
func (j *Journal) BeginSession(ctx context.Context, id, remoteURL, manifest string, startedAt time.Time) error {
	_, err := j.db.ExecContext(ctx, `
		INSERT INTO sessions (id, started_at, remote_url, manifest)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`, id, startedAt.UnixMilli(), remoteURL, manifest)
	return err
}

// Recorder journals every dispatched action under one session, assigning
// sequence numbers in dispatch order. Implements action.Dispatcher, so it
// slots into a Tee next to the state container.
//
// A write failure must not take down the sync pipeline: it is logged and the
// action is delivered onward regardless.
type Recorder struct {
	j       *Journal
	session string
	now     func() time.Time
	log     *slog.Logger

	mu  sync.Mutex
	seq int64
}

// Recorder creates a recorder for session. now defaults to time.Now and
// logger to slog.Default.
func (j *Journal) Recorder(session string, now func() time.Time, logger *slog.Logger) *Recorder {
	if now == nil {
		now = time.Now
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Recorder{j: j, session: session, now: now, log: logger}
}

// Dispatch journals a. Sequence numbers start at 1 and follow dispatch order.
func (r *Recorder) Dispatch(a action.Action) {
	r.mu.Lock()
	r.seq++
	seq := r.seq
	r.mu.Unlock()

	payload, err := a.MarshalCanonical()
	if err != nil {
		r.log.Error("journal: marshal action failed", "seq", seq, "type", a.Type, "error", err)
		return
	}

	_, err = r.j.db.Exec(`
		INSERT INTO actions (session_id, seq, type, path, source, payload, recorded_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(session_id, seq) DO NOTHING
	`, r.session, seq, string(a.Type), a.Path, string(a.Source), string(payload), r.now().UnixMilli())
	if err != nil {
		r.log.Error("journal: write action failed", "seq", seq, "type", a.Type, "error", err)
	}
}

// Seq returns the last assigned sequence number.
func (r *Recorder) Seq() int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.seq
}
