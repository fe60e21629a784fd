// Package dropbox runs registrations for incoming folders. A run checks the
// incoming folder layout, reads the manifest enumeration, registers every
// listed manifest inside one repository transaction and commits it.
package dropbox

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/ynoir/obit-microscopy-core-technology/internal/errors"
	"github.com/ynoir/obit-microscopy-core-technology/internal/manifest"
	"github.com/ynoir/obit-microscopy-core-technology/internal/metareader"
	"github.com/ynoir/obit-microscopy-core-technology/internal/pipeline"
	"github.com/ynoir/obit-microscopy-core-technology/internal/registry"
	"github.com/ynoir/obit-microscopy-core-technology/internal/store"
)

// Session is the repository transaction of one run.
type Session interface {
	registry.Transaction
	Commit() error
	Rollback() error
}

// Result summarizes a successful run.
type Result struct {
	RunID     string        `json:"run_id"`
	Incoming  string        `json:"incoming"`
	Manifests []string      `json:"manifests"`
	DryRun    bool          `json:"dry_run"`
	Elapsed   time.Duration `json:"elapsed"`
}

// Processor registers incoming folders.
type Processor struct {
	begin   func() Session
	readers metareader.Opener
	types   pipeline.Types
	dryRun  bool
	logger  *slog.Logger
}

// NewProcessor creates a processor that registers into s.
func NewProcessor(s *store.Store, readers metareader.Opener, types pipeline.Types, logger *slog.Logger) *Processor {
	return newProcessor(func() Session { return s.Begin() }, readers, types, false, logger)
}

// NewDryRunProcessor creates a processor that runs every registration
// against an in-memory transaction. Nothing is persisted and no file is moved.
func NewDryRunProcessor(readers metareader.Opener, types pipeline.Types, logger *slog.Logger) *Processor {
	return newProcessor(func() Session { return &dryRunSession{registry.NewMemoryTransaction()} }, readers, types, true, logger)
}

func newProcessor(begin func() Session, readers metareader.Opener, types pipeline.Types, dryRun bool, logger *slog.Logger) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Processor{
		begin:   begin,
		readers: readers,
		types:   types,
		dryRun:  dryRun,
		logger:  logger,
	}
}

// Run registers the incoming folder. The folder must contain exactly one
// user subfolder holding the manifest enumeration file. Any failure rolls
// back the whole run.
func (p *Processor) Run(ctx context.Context, incoming string) (*Result, error) {
	start := time.Now()
	runID := uuid.NewString()
	logger := p.logger.With("run_id", runID)

	manifests, err := p.manifests(incoming)
	if err != nil {
		logger.Error("invalid incoming folder", "incoming", incoming, "error", err)
		return nil, err
	}
	logger.Info("registration started", "incoming", incoming, "manifests", len(manifests), "dry_run", p.dryRun)

	session := p.begin()
	reg := registry.NewRegistrar(session, logger)
	pl := pipeline.New(p.readers, p.types, logger)

	for _, path := range manifests {
		logger.Info("processing manifest", "manifest", path)

		if err := p.register(ctx, pl, reg, incoming, path); err != nil {
			logger.Error("registration failed", "manifest", path, "error", err)
			if rbErr := session.Rollback(); rbErr != nil {
				logger.Error("rollback failed", "error", rbErr)
				return nil, errors.Join(err, rbErr)
			}
			return nil, err
		}
	}

	if err := session.Commit(); err != nil {
		logger.Error("commit failed", "error", err)
		return nil, err
	}

	result := &Result{
		RunID:     runID,
		Incoming:  incoming,
		Manifests: manifests,
		DryRun:    p.dryRun,
		Elapsed:   time.Since(start),
	}
	logger.Info("registration completed", "manifests", len(manifests), "elapsed", result.Elapsed)
	return result, nil
}

func (p *Processor) register(ctx context.Context, pl *pipeline.Pipeline, reg *registry.Registrar, incoming, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	doc, err := manifest.ParseFile(path)
	if err != nil {
		return err
	}
	return pl.Register(ctx, reg, incoming, doc)
}

// manifests validates the incoming layout and returns the manifest paths.
func (p *Processor) manifests(incoming string) ([]string, error) {
	info, err := os.Stat(incoming)
	if err != nil || !info.IsDir() {
		return nil, errors.Resourcef("incoming %s must be a folder", incoming)
	}

	entries, err := os.ReadDir(incoming)
	if err != nil {
		return nil, errors.Wrapf(err, errors.CodeResource, "list incoming folder %s", incoming)
	}
	var folders []string
	for _, e := range entries {
		if e.IsDir() {
			folders = append(folders, e.Name())
		}
	}
	if len(folders) != 1 {
		return nil, errors.Resourcef("expected exactly one user subfolder in %s, found %d", incoming, len(folders))
	}

	userFolder := filepath.Join(incoming, folders[0])
	return manifest.ReadEnumeration(filepath.Join(userFolder, manifest.EnumerationFile), incoming)
}

// dryRunSession commits nothing.
type dryRunSession struct {
	*registry.MemoryTransaction
}

func (dryRunSession) Commit() error   { return nil }
func (dryRunSession) Rollback() error { return nil }
