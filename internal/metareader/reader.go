// Package metareader extracts per-series metadata (channel names, colors and
// geometry) from microscopy files.
package metareader

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/ynoir/obit-microscopy-core-technology/internal/domain"
	"github.com/ynoir/obit-microscopy-core-technology/internal/errors"
)

// Reader extracts series metadata from one file. A Reader is used for a
// single file: Parse, then Metadata/NumSeries, then Close.
type Reader interface {

	// Parse opens the file and extracts the metadata of all its series.
	Parse(ctx context.Context, path string) error

	// Metadata returns the metadata of every series, in series order.
	Metadata() []domain.SeriesMetadata

	// NumSeries returns the number of series found by Parse.
	NumSeries() int

	// Close releases the file. It is safe to call more than once.
	Close() error
}

// Opener creates a Reader for a file.
type Opener interface {
	Open(path string) (Reader, error)
}

// Factory builds a fresh reader.
type Factory func(logger *slog.Logger) Reader

// Registry picks a reader by file extension. A sidecar metadata file next to
// the data file always takes precedence.
type Registry struct {
	logger    *slog.Logger
	factories map[string]Factory
}

// NewRegistry creates a registry with the built-in readers registered.
func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Registry{
		logger:    logger,
		factories: make(map[string]Factory),
	}
	tiffReader := func(l *slog.Logger) Reader { return NewTIFFReader(l) }
	// LSM and STK files are TIFF containers.
	for _, ext := range []string{".tif", ".tiff", ".lsm", ".stk"} {
		r.Register(ext, tiffReader)
	}
	return r
}

// Register adds or replaces the factory for an extension (".lsm").
func (r *Registry) Register(ext string, f Factory) {
	r.factories[strings.ToLower(ext)] = f
}

// Extensions returns the registered extensions.
func (r *Registry) Extensions() []string {
	out := make([]string, 0, len(r.factories))
	for ext := range r.factories {
		out = append(out, ext)
	}
	return out
}

// Open returns the reader responsible for path.
func (r *Registry) Open(path string) (Reader, error) {
	if _, err := os.Stat(SidecarPath(path)); err == nil {
		r.logger.Debug("using sidecar metadata", "path", path)
		return NewSidecarReader(r.logger), nil
	}

	ext := strings.ToLower(filepath.Ext(path))
	f, ok := r.factories[ext]
	if !ok {
		return nil, errors.Extractionf("no metadata reader for %q files (%s)", ext, path)
	}
	return f(r.logger), nil
}
