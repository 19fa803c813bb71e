package lintconfig

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const expectedContent = "{\n  \"extends\": \"bpmnlint:recommended\"\n}"

func TestNewWriter_Defaults(t *testing.T) {
	w, err := NewWriter()
	require.NoError(t, err)

	assert.Equal(t, DefaultFileName, w.Path())
	assert.Equal(t, expectedContent, string(w.Content()))
}

func TestNewWriter_InvalidFileName(t *testing.T) {
	_, err := NewWriter(FileName("../.bpmnlintrc"))
	assert.EqualError(t, err, `invalid config file name: "../.bpmnlintrc"`)

	_, err = NewWriter(FileName(""))
	assert.Error(t, err)
}

func TestNewWriter_MissingExtends(t *testing.T) {
	_, err := NewWriter(Extends(""))
	assert.EqualError(t, err, "extends is required")
}

func TestWrite(t *testing.T) {
	dir := t.TempDir()
	w, err := NewWriter(Dir(dir), Extends("bpmnlint:all"))
	require.NoError(t, err)

	require.NoError(t, w.Write())
	assert.True(t, w.Present())

	content, err := os.ReadFile(filepath.Join(dir, DefaultFileName))
	require.NoError(t, err)
	assert.Equal(t, "{\n  \"extends\": \"bpmnlint:all\"\n}", string(content))

	// no temp files are left behind
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestWrite_MissingDirectory(t *testing.T) {
	w, err := NewWriter(Dir(filepath.Join(t.TempDir(), "missing")))
	require.NoError(t, err)

	assert.ErrorContains(t, w.Write(), "creating temp file")
	assert.False(t, w.Present())
}

func TestEnsure_RestoresModifiedFile(t *testing.T) {
	dir := t.TempDir()
	w, err := NewWriter(Dir(dir))
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(w.Path(), []byte(`{"extends": "plugin:custom"}`), 0644))
	require.NoError(t, w.Ensure())

	content, err := os.ReadFile(w.Path())
	require.NoError(t, err)
	assert.Equal(t, expectedContent, string(content))
}

func TestEnsure_KeepsUpToDateFile(t *testing.T) {
	dir := t.TempDir()
	w, err := NewWriter(Dir(dir))
	require.NoError(t, err)
	require.NoError(t, w.Write())

	before, err := os.Stat(w.Path())
	require.NoError(t, err)

	require.NoError(t, w.Ensure())

	after, err := os.Stat(w.Path())
	require.NoError(t, err)
	assert.True(t, os.SameFile(before, after))
}

func TestEnsure_Concurrent(t *testing.T) {
	dir := t.TempDir()
	w, err := NewWriter(Dir(dir))
	require.NoError(t, err)

	wg := sync.WaitGroup{}
	for range 20 {
		wg.Go(func() {
			assert.NoError(t, w.Write())
			content, err := os.ReadFile(w.Path())
			assert.NoError(t, err)
			assert.Equal(t, expectedContent, string(content))
		})
	}
	wg.Wait()

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestReplaceFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, DefaultFileName)

	require.NoError(t, replaceFile(path, []byte("first"), 0644))
	require.NoError(t, replaceFile(path, []byte("second"), 0644))

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "second", string(content))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0644), info.Mode().Perm())

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestReplaceFile_RenameFailsCleansUp(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, DefaultFileName)
	require.NoError(t, os.Mkdir(path, 0700))
	require.NoError(t, os.WriteFile(filepath.Join(path, "keep"), []byte("x"), 0600))

	err := replaceFile(path, []byte("content"), 0644)
	assert.ErrorContains(t, err, "failed to move temporary file into place")

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}
