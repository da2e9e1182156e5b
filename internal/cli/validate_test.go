package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfigDir(t *testing.T, src string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "app.cue"), []byte(src), 0o644))
	return dir
}

func executeCommand(t *testing.T, args ...string) (stdout, stderr string, err error) {
	t.Helper()
	cmd := NewRootCommand()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err = cmd.Execute()
	return out.String(), errOut.String(), err
}

const validConfig = `
collections: posts: {
	fields: [
		{name: "title", type: "text", required: true},
	]
}
globals: "site-settings": {
	fields: [{name: "siteName", type: "text"}]
}
`

func TestValidateCommandText(t *testing.T) {
	dir := writeConfigDir(t, validConfig)

	stdout, _, err := executeCommand(t, "validate", dir)
	require.NoError(t, err)
	assert.Contains(t, stdout, "Valid: 1 collection(s), 1 global(s)")
}

func TestValidateCommandJSON(t *testing.T) {
	dir := writeConfigDir(t, validConfig)

	stdout, _, err := executeCommand(t, "--format", "json", "validate", dir)
	require.NoError(t, err)

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(stdout), &resp))
	assert.Equal(t, "ok", resp.Status)

	data, ok := resp.Data.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, true, data["valid"])
	assert.Equal(t, []any{"posts"}, data["collections"])
	assert.Equal(t, []any{"site-settings"}, data["globals"])
}

func TestValidateCommandVerbose(t *testing.T) {
	dir := writeConfigDir(t, validConfig)

	_, stderr, err := executeCommand(t, "--verbose", "validate", dir)
	require.NoError(t, err)
	assert.Contains(t, stderr, "Validated collection: posts")
}

func TestValidateCommandBadConfig(t *testing.T) {
	dir := writeConfigDir(t, `
collections: posts: {
	fields: [{name: "status", type: "select"}]
}
`)

	stdout, _, err := executeCommand(t, "validate", dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, stdout, "Error [")
}

func TestValidateCommandBadConfigJSON(t *testing.T) {
	dir := writeConfigDir(t, `
collections: posts: {
	fields: [{name: "status", type: "select"}]
}
`)

	stdout, _, err := executeCommand(t, "--format", "json", "validate", dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(stdout), &resp))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeValidation, resp.Error.Code)
	assert.Contains(t, resp.Error.Message, "collections.posts")
	assert.Nil(t, resp.Data)
}

func TestValidateCommandMissingDir(t *testing.T) {
	_, _, err := executeCommand(t, "validate", filepath.Join(t.TempDir(), "nope"))
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
}
