package watcher

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWatcher_RejectsNilCallback(t *testing.T) {
	w, err := NewWatcher(100*time.Millisecond, nil, nil, nil)
	require.ErrorIs(t, err, os.ErrInvalid)
	assert.Nil(t, w)
}

func TestWatcher_Matches(t *testing.T) {
	w, err := NewWatcher(time.Second, []string{"*.json", "*.{yaml,yml}"}, nil, func([]string) {})
	require.NoError(t, err)
	defer w.Close()

	assert.True(t, w.Matches("/docs/article.json"))
	assert.True(t, w.Matches("/docs/Article.YML"))
	assert.False(t, w.Matches("/docs/notes.txt"))
}

func TestWatcher(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(dir, "skipped"), 0o755))

	changed := make(chan []string, 4)
	w, err := NewWatcher(100*time.Millisecond, []string{"*.json"}, []string{"skipped"}, func(paths []string) {
		changed <- paths
	})
	require.NoError(t, err)
	defer w.Close()

	require.NoError(t, w.Watch([]string{dir}))

	require.NoError(t, os.WriteFile(filepath.Join(dir, "skipped", "hidden.json"), []byte("{}"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644))
	doc := filepath.Join(dir, "doc.json")
	require.NoError(t, os.WriteFile(doc, []byte("{}"), 0o644))

	select {
	case paths := <-changed:
		assert.Equal(t, []string{doc}, paths)
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for file change event")
	}
}

func TestWatcher_SkipsUnchangedContent(t *testing.T) {
	dir := t.TempDir()
	existing := filepath.Join(dir, "a.json")
	require.NoError(t, os.WriteFile(existing, []byte("{}"), 0o644))

	changed := make(chan []string, 4)
	w, err := NewWatcher(time.Second, []string{"*.json"}, nil, func(paths []string) {
		changed <- paths
	})
	require.NoError(t, err)
	defer w.Close()
	w.SetDebounce(50 * time.Millisecond)
	require.NoError(t, w.Watch([]string{dir}))

	fresh := filepath.Join(dir, "b.json")
	require.NoError(t, os.WriteFile(existing, []byte("{}"), 0o644))
	require.NoError(t, os.WriteFile(fresh, []byte("{}"), 0o644))

	select {
	case paths := <-changed:
		assert.Equal(t, []string{fresh}, paths)
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for new document")
	}

	require.NoError(t, os.WriteFile(existing, []byte(`{"type":"Article"}`), 0o644))
	select {
	case paths := <-changed:
		assert.Equal(t, []string{existing}, paths)
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for edited document")
	}
}
