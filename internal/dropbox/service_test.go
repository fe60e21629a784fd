package dropbox

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ynoir/obit-microscopy-core-technology/internal/errors"
	"github.com/ynoir/obit-microscopy-core-technology/internal/watcher"
)

// fakeRunner records the folders it is asked to register.
type fakeRunner struct {
	mu     sync.Mutex
	runs   []string
	failOn string
}

func (f *fakeRunner) Run(_ context.Context, incoming string) (*Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.runs = append(f.runs, incoming)
	if filepath.Base(incoming) == f.failOn {
		return nil, errors.Resourcef("broken folder %s", incoming)
	}
	return &Result{RunID: "run", Incoming: incoming}, nil
}

func waitOutcome(t *testing.T, ch <-chan RunOutcome) RunOutcome {
	t.Helper()
	select {
	case outcome := <-ch:
		return outcome
	case <-time.After(3 * time.Second):
		t.Fatal("timeout waiting for run")
	}
	return RunOutcome{}
}

func TestService_ProcessesMarkers(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(root, "early"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, ".MARKER_is_finished_early"), nil, 0o644))

	runner := &fakeRunner{failOn: "broken"}
	outcomes := make(chan RunOutcome, 4)
	svc := NewService(runner, root, watcher.Options{SettleDelay: 20 * time.Millisecond}, nil)
	svc.NotifyRuns(outcomes)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Run(ctx) }()

	// Markers present at startup are processed first.
	outcome := waitOutcome(t, outcomes)
	assert.Equal(t, "early", outcome.Folder)
	require.NoError(t, outcome.Err)
	assert.Equal(t, filepath.Join(root, "early"), outcome.Result.Incoming)
	assert.NoFileExists(t, filepath.Join(root, ".MARKER_is_finished_early"))

	require.NoError(t, os.WriteFile(filepath.Join(root, ".MARKER_is_finished_broken"), nil, 0o644))
	outcome = waitOutcome(t, outcomes)
	assert.Equal(t, "broken", outcome.Folder)
	assert.ErrorIs(t, outcome.Err, errors.ErrResource)

	// Failed runs also consume their marker.
	assert.Eventually(t, func() bool {
		_, err := os.Stat(filepath.Join(root, ".MARKER_is_finished_broken"))
		return os.IsNotExist(err)
	}, time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("service did not stop")
	}

	runner.mu.Lock()
	defer runner.mu.Unlock()
	assert.Equal(t, []string{filepath.Join(root, "early"), filepath.Join(root, "broken")}, runner.runs)
}

func TestService_InvalidRoot(t *testing.T) {
	svc := NewService(&fakeRunner{}, filepath.Join(t.TempDir(), "missing"), watcher.Options{}, nil)
	assert.Error(t, svc.Run(context.Background()))
}
