package dropbox

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/ynoir/obit-microscopy-core-technology/internal/watcher"
)

// Runner registers one incoming folder.
type Runner interface {
	Run(ctx context.Context, incoming string) (*Result, error)
}

// Service watches a dropbox root and runs a registration whenever a marker
// .MARKER_is_finished_<folder> appears. Runs are serialized. The marker is
// deleted after the run whether it succeeded or not; a failed folder stays
// in place with its files restored.
type Service struct {
	runner  Runner
	root    string
	opts    watcher.Options
	logger  *slog.Logger
	mu      sync.Mutex
	results chan<- RunOutcome
}

// RunOutcome is the result of one marker-triggered run.
type RunOutcome struct {
	Folder string
	Result *Result
	Err    error
}

// NewService creates a service for the dropbox root.
func NewService(runner Runner, root string, opts watcher.Options, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		runner: runner,
		root:   filepath.Clean(root),
		opts:   opts,
		logger: logger,
	}
}

// NotifyRuns makes the service report every finished run on ch. Sends
// block, so the receiver must keep up.
func (s *Service) NotifyRuns(ch chan<- RunOutcome) {
	s.results = ch
}

// Run watches the root until ctx is canceled. Markers present at startup
// are processed first, in name order.
func (s *Service) Run(ctx context.Context) error {
	w, err := watcher.New(s.logger, s.opts)
	if err != nil {
		return err
	}
	defer w.Stop() //nolint:errcheck

	if err := w.Watch(s.root); err != nil {
		return err
	}

	go func() {
		if err := w.Start(ctx); err != nil {
			s.logger.Error("dropbox watcher error", "error", err)
		}
	}()

	existing, err := w.Existing()
	if err != nil {
		return err
	}
	s.logger.Info("dropbox watcher started", "root", s.root, "pending_markers", len(existing))
	for _, event := range existing {
		s.handle(ctx, event)
	}

	for {
		select {
		case event, ok := <-w.Events():
			if !ok {
				return nil
			}
			if event.Type != watcher.EventAdded {
				s.logger.Debug("ignoring marker event", "type", event.Type.String(), "path", event.Path)
				continue
			}
			s.handle(ctx, event)
		case err, ok := <-w.Errors():
			if ok {
				s.logger.Warn("dropbox watcher error", "error", err)
			}
		case <-ctx.Done():
			return nil
		}
	}
}

// handle runs the registration announced by a marker.
func (s *Service) handle(ctx context.Context, event watcher.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if ctx.Err() != nil {
		return
	}
	// The same marker can be reported at startup and by the watcher.
	if _, err := os.Stat(event.Path); err != nil {
		s.logger.Debug("marker already handled", "path", event.Path)
		return
	}

	incoming := filepath.Join(s.root, event.Name)
	result, err := s.runner.Run(ctx, incoming)
	if err != nil {
		s.logger.Error("dropbox run failed", "incoming", incoming, "error", err)
	}

	if rmErr := os.Remove(event.Path); rmErr != nil && !os.IsNotExist(rmErr) {
		s.logger.Warn("failed to delete marker", "path", event.Path, "error", rmErr)
	}

	if s.results != nil {
		s.results <- RunOutcome{Folder: event.Name, Result: result, Err: err}
	}
}
