package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeManifest(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "watches.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestValidateAcceptsGoodManifest(t *testing.T) {
	path := writeManifest(t, `
version: 1
watches:
  - kind: value
    path: todos
  - kind: once
    path: profile
`)

	stdout, _, err := execute(t, "validate", path)
	require.NoError(t, err)
	assert.Contains(t, stdout, "2 watch(es)")
}

func TestValidateRejectsSemanticErrors(t *testing.T) {
	path := writeManifest(t, `
version: 1
watches: []
`)

	stdout, _, err := execute(t, "validate", path)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, stdout, "E200")
}

func TestValidateRejectsSchemaErrors(t *testing.T) {
	path := writeManifest(t, `
version: 1
watches:
  - kind: sideways
    path: todos
`)

	_, _, err := execute(t, "validate", path)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
}

func TestValidateMissingFileIsCommandError(t *testing.T) {
	_, _, err := execute(t, "validate", filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestValidateJSONOutput(t *testing.T) {
	path := writeManifest(t, `
version: 1
watches:
  - kind: value
    path: todos
`)

	stdout, _, err := execute(t, "--format", "json", "validate", path)
	require.NoError(t, err)
	assert.Contains(t, stdout, `"status":"ok"`)
	assert.Contains(t, stdout, `"watches":1`)
}
