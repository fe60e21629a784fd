package watcher

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startWatcher(t *testing.T, root string) *Watcher {
	t.Helper()

	w, err := New(nil, Options{SettleDelay: 50 * time.Millisecond})
	require.NoError(t, err)
	require.NoError(t, w.Watch(root))

	ctx, cancel := context.WithCancel(context.Background())
	go w.Start(ctx) //nolint:errcheck // Test goroutine
	t.Cleanup(func() {
		cancel()
		_ = w.Stop()
	})
	return w
}

func waitEvent(t *testing.T, w *Watcher) Event {
	t.Helper()
	select {
	case event := <-w.Events():
		return event
	case err := <-w.Errors():
		t.Fatalf("unexpected error: %v", err)
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for event")
	}
	return Event{}
}

func TestNew(t *testing.T) {
	w, err := New(nil, Options{})
	require.NoError(t, err)
	require.NotNil(t, w)

	assert.NoError(t, w.Stop())
	assert.NoError(t, w.Stop(), "Stop is idempotent")
}

func TestWatcher_WatchRejectsFiles(t *testing.T) {
	w, err := New(nil, Options{})
	require.NoError(t, err)
	defer w.Stop() //nolint:errcheck // Test cleanup

	file := filepath.Join(t.TempDir(), "plain")
	require.NoError(t, os.WriteFile(file, nil, 0o644))

	assert.Error(t, w.Watch(file))
	assert.Error(t, w.Watch(filepath.Join(t.TempDir(), "missing")))
}

func TestWatcher_MarkerCreation(t *testing.T) {
	root := t.TempDir()
	w := startWatcher(t, root)

	// Data and unrelated files do not produce events.
	require.NoError(t, os.Mkdir(filepath.Join(root, "run1"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "notes.txt"), []byte("x"), 0o644))

	marker := filepath.Join(root, ".MARKER_is_finished_run1")
	require.NoError(t, os.WriteFile(marker, nil, 0o644))

	event := waitEvent(t, w)
	assert.Equal(t, EventAdded, event.Type)
	assert.Equal(t, marker, event.Path)
	assert.Equal(t, "run1", event.Name)
	assert.Equal(t, int64(0), event.Size)
}

func TestWatcher_MarkerDeletion(t *testing.T) {
	root := t.TempDir()
	marker := filepath.Join(root, ".MARKER_is_finished_run1")
	require.NoError(t, os.WriteFile(marker, nil, 0o644))

	w := startWatcher(t, root)
	require.NoError(t, os.Remove(marker))

	event := waitEvent(t, w)
	assert.Equal(t, EventRemoved, event.Type)
	assert.Equal(t, marker, event.Path)
}

func TestWatcher_Existing(t *testing.T) {
	root := t.TempDir()
	for _, name := range []string{".MARKER_is_finished_b", ".MARKER_is_finished_a", "a", ".hidden"} {
		require.NoError(t, os.WriteFile(filepath.Join(root, name), nil, 0o644))
	}
	require.NoError(t, os.Mkdir(filepath.Join(root, ".MARKER_is_finished_dir"), 0o755))

	w, err := New(nil, Options{})
	require.NoError(t, err)
	defer w.Stop() //nolint:errcheck // Test cleanup
	require.NoError(t, w.Watch(root))

	events, err := w.Existing()
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "a", events[0].Name)
	assert.Equal(t, "b", events[1].Name)
	assert.Equal(t, filepath.Join(root, ".MARKER_is_finished_a"), events[0].Path)
}
