package cli

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rtmirror/rtmirror/internal/journal"
)

var upgrader = websocket.Upgrader{}

// newScriptedRemote answers every subscribe frame with a single value event.
func newScriptedRemote(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for {
			var f map[string]any
			if err := conn.ReadJSON(&f); err != nil {
				return
			}
			if f["op"] == "subscribe" {
				_ = conn.WriteJSON(map[string]any{
					"sub": f["sub"],
					"op":  "event",
					"snapshot": map[string]any{
						"key":    "todos",
						"exists": true,
						"value":  map[string]any{"done": false},
					},
				})
			}
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestRunStreamsActionsAndJournals(t *testing.T) {
	srv := newScriptedRemote(t)
	manifestPath := writeManifest(t, `
version: 1
remote:
  url: `+srv.URL+`
watches:
  - kind: value
    path: todos
`)
	journalPath := filepath.Join(t.TempDir(), "mirror.db")

	ctx, cancel := context.WithTimeout(context.Background(), 800*time.Millisecond)
	defer cancel()

	cmd := NewRootCommand()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs([]string{"run", manifestPath, "--journal", journalPath})
	require.NoError(t, cmd.ExecuteContext(ctx))

	stdout := out.String()
	assert.Contains(t, stdout, "start")
	assert.Contains(t, stdout, "set")
	assert.Contains(t, stdout, "todos")

	// The same actions were journaled under a fresh session.
	j, err := journal.Open(journalPath)
	require.NoError(t, err)
	defer j.Close()

	sessions, err := j.Sessions(context.Background())
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.Equal(t, int64(2), sessions[0].Actions)
	assert.Equal(t, manifestPath, sessions[0].Manifest)
}

func TestRunRejectsInvalidManifest(t *testing.T) {
	path := writeManifest(t, `
version: 1
watches: []
`)

	_, _, err := execute(t, "run", path)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
}

func TestRunRequiresRemoteURL(t *testing.T) {
	path := writeManifest(t, `
version: 1
watches:
  - kind: value
    path: todos
`)

	_, _, err := execute(t, "run", path)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "no remote URL")
}

func TestRunUnreachableRemote(t *testing.T) {
	path := writeManifest(t, `
version: 1
remote:
  url: ws://127.0.0.1:1/sync
watches:
  - kind: value
    path: todos
`)

	_, _, err := execute(t, "run", path)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}
