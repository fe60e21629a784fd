package metareader

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"

	"github.com/ynoir/obit-microscopy-core-technology/internal/domain"
	"github.com/ynoir/obit-microscopy-core-technology/internal/errors"
)

// SidecarSuffix is appended to a data file name to locate its sidecar.
const SidecarSuffix = ".series.json"

// SidecarPath returns the sidecar metadata path for a data file.
func SidecarPath(path string) string {
	return path + SidecarSuffix
}

// SidecarReader reads series metadata exported next to the data file as a
// JSON array of series, for formats without a native reader.
type SidecarReader struct {
	logger *slog.Logger
	series []domain.SeriesMetadata
}

// NewSidecarReader creates a sidecar reader.
func NewSidecarReader(logger *slog.Logger) *SidecarReader {
	if logger == nil {
		logger = slog.Default()
	}
	return &SidecarReader{logger: logger}
}

// Parse implements Reader.
func (r *SidecarReader) Parse(ctx context.Context, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := os.ReadFile(SidecarPath(path))
	if err != nil {
		return errors.Wrapf(err, errors.CodeExtraction, "read sidecar of %s", path)
	}

	var series []domain.SeriesMetadata
	if err := json.Unmarshal(data, &series); err != nil {
		return errors.Wrapf(err, errors.CodeExtraction, "decode sidecar of %s", path)
	}
	for i, s := range series {
		if len(s.ChannelNames) != len(s.ChannelColors) {
			return errors.Extractionf("sidecar of %s: series %d has %d channel names and %d colors",
				path, i, len(s.ChannelNames), len(s.ChannelColors))
		}
	}

	r.series = series
	r.logger.Debug("read sidecar metadata", "path", path, "series", len(series))
	return nil
}

// Metadata implements Reader.
func (r *SidecarReader) Metadata() []domain.SeriesMetadata { return r.series }

// NumSeries implements Reader.
func (r *SidecarReader) NumSeries() int { return len(r.series) }

// Close implements Reader.
func (r *SidecarReader) Close() error { return nil }
