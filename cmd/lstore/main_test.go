package main

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// execute runs the root command with args against a fresh store dir and
// returns stdout.
func execute(t *testing.T, dir string, args ...string) (string, error) {
	t.Helper()

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(append(args, "--dir", dir, "--config", filepath.Join(dir, "no-config.yaml")))
	defer func() { folderFlag = "" }()

	err := rootCmd.Execute()
	return out.String(), err
}

func TestSetGetRemoveLifecycle(t *testing.T) {
	dir := t.TempDir()

	_, err := execute(t, dir, "set", "item1", `{"just": "a test"}`)
	require.NoError(t, err)

	out, err := execute(t, dir, "get", "item1")
	require.NoError(t, err)
	assert.JSONEq(t, `{"just": "a test"}`, out)

	_, err = execute(t, dir, "remove", "item1")
	require.NoError(t, err)

	_, err = execute(t, dir, "get", "item1")
	assert.Error(t, err, "get on a removed key exits non-zero")
}

func TestSetRejectsInvalidJSON(t *testing.T) {
	_, err := execute(t, t.TempDir(), "set", "k", "{not json")
	assert.Error(t, err)
}

func TestKeysScopedByFolder(t *testing.T) {
	dir := t.TempDir()

	_, err := execute(t, dir, "set", "root-key", `1`)
	require.NoError(t, err)
	_, err = execute(t, dir, "set", "s", `{"t":1}`, "--folder", "sessions")
	require.NoError(t, err)

	out, err := execute(t, dir, "keys", "--folder", "sessions")
	require.NoError(t, err)
	assert.Equal(t, "s\n", out)

	out, err = execute(t, dir, "keys")
	require.NoError(t, err)
	assert.Equal(t, "root-key\ns\n", out)
}

func TestClearFolder(t *testing.T) {
	dir := t.TempDir()

	_, err := execute(t, dir, "set", "keep", `1`)
	require.NoError(t, err)
	_, err = execute(t, dir, "set", "drop", `2`, "--folder", "tmp")
	require.NoError(t, err)

	_, err = execute(t, dir, "clear", "--folder", "tmp")
	require.NoError(t, err)

	out, err := execute(t, dir, "keys")
	require.NoError(t, err)
	assert.Equal(t, "keep\n", out)
}

func TestRescanReportsCount(t *testing.T) {
	dir := t.TempDir()

	_, err := execute(t, dir, "set", "a", `1`)
	require.NoError(t, err)
	_, err = execute(t, dir, "set", "b", `2`)
	require.NoError(t, err)

	out, err := execute(t, dir, "rescan")
	require.NoError(t, err)
	assert.Equal(t, "2 keys\n", out)
}

func TestCopyCommand(t *testing.T) {
	dir := t.TempDir()
	dest := t.TempDir()

	_, err := execute(t, dir, "set", "a", `1`)
	require.NoError(t, err)

	_, err = execute(t, dir, "copy", dest)
	require.NoError(t, err)

	out, err := execute(t, dest, "keys")
	require.NoError(t, err)
	assert.Equal(t, "a\n", out)
}
