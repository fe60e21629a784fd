package imaging

import (
	"iter"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/ynoir/obit-microscopy-core-technology/internal/channel"
	"github.com/ynoir/obit-microscopy-core-technology/internal/domain"
	"github.com/ynoir/obit-microscopy-core-technology/internal/errors"
)

// DatasetConfig drives how the repository builds an image dataset: which
// planes it contains and how its channels are named and colored.
type DatasetConfig interface {
	// DatasetType returns the repository dataset type code.
	DatasetType() string

	// Selection returns the series this configuration registers.
	Selection() Selection

	// Settings returns the storage and thumbnail settings of the dataset.
	Settings() Settings

	// ImageIdentifiers enumerates the planes found at path (a file or a folder).
	ImageIdentifiers(path string) ([]domain.ImageIdentifier, error)

	// ExtractImagesMetadata classifies identifiers into per-plane metadata.
	ExtractImagesMetadata(path string, ids []domain.ImageIdentifier) iter.Seq[domain.ImageMetadata]

	// CreateChannel resolves a channel from its code. The second result is
	// false when the channel belongs to a series outside the selection.
	CreateChannel(code string) (domain.Channel, bool, error)
}

// Settings mirrors the image dataset options of the repository.
type Settings struct {
	RecognizedExtensions []string `json:"recognized_extensions"`
	ImageLibrary         string   `json:"image_library"`
	StorageFormat        string   `json:"storage_format"`
	MicroscopyData       bool     `json:"microscopy_data"`
	GenerateThumbnails   bool     `json:"generate_thumbnails"`
	UseImageMagick       bool     `json:"use_image_magick"`
}

// StorageFormatUnchanged keeps the raw data in its original form.
const StorageFormatUnchanged = "UNCHANGED"

// DefaultSettings returns the settings used for microscopy image datasets.
func DefaultSettings() Settings {
	return Settings{
		RecognizedExtensions: []string{"lsm", "stk", "lif", "nd2", "tif", "tiff"},
		ImageLibrary:         "BioFormats",
		StorageFormat:        StorageFormatUnchanged,
		MicroscopyData:       true,
		GenerateThumbnails:   true,
		UseImageMagick:       false,
	}
}

// SingleSeriesConfig registers one series (or all) of a single microscopy
// file whose metadata has already been extracted.
type SingleSeriesConfig struct {
	logger   *slog.Logger
	metadata []domain.SeriesMetadata
	sel      Selection
}

// NewSingleSeriesConfig creates the configuration for the selected series.
func NewSingleSeriesConfig(metadata []domain.SeriesMetadata, sel Selection, logger *slog.Logger) *SingleSeriesConfig {
	return &SingleSeriesConfig{
		logger:   logger,
		metadata: metadata,
		sel:      sel,
	}
}

// DatasetType implements DatasetConfig.
func (c *SingleSeriesConfig) DatasetType() string { return domain.DatasetTypeMicroscopyImg }

// Selection implements DatasetConfig.
func (c *SingleSeriesConfig) Selection() Selection { return c.sel }

// Settings implements DatasetConfig.
func (c *SingleSeriesConfig) Settings() Settings { return DefaultSettings() }

// ImageIdentifiers enumerates every plane of every series from the series
// geometry: channel count, sizeZ and sizeT (both default to 1).
func (c *SingleSeriesConfig) ImageIdentifiers(_ string) ([]domain.ImageIdentifier, error) {
	var ids []domain.ImageIdentifier
	for s, series := range c.metadata {
		sizeZ := max(series.IntAttribute(domain.SeriesAttrSizeZ, 1), 1)
		sizeT := max(series.IntAttribute(domain.SeriesAttrSizeT, 1), 1)
		for t := range sizeT {
			for z := range sizeZ {
				for ch := range series.NumChannels() {
					ids = append(ids, domain.ImageIdentifier{
						ColorChannelIndex: ch,
						FocalPlaneIndex:   z,
						SeriesIndex:       s,
						TimeSeriesIndex:   t,
					})
				}
			}
		}
	}
	return ids, nil
}

// ExtractImagesMetadata implements DatasetConfig.
func (c *SingleSeriesConfig) ExtractImagesMetadata(path string, ids []domain.ImageIdentifier) iter.Seq[domain.ImageMetadata] {
	return logged(c.logger, path, Classify(slices.Values(ids), c.sel))
}

// CreateChannel implements DatasetConfig.
func (c *SingleSeriesConfig) CreateChannel(code string) (domain.Channel, bool, error) {
	parsed, err := channel.Decode(code)
	if err != nil {
		return domain.Channel{}, false, err
	}
	return ResolveChannel(c.metadata, parsed, c.sel, c.logger)
}

// CompositeSeriesConfig registers one series of a composite acquisition
// (a folder of per-plane TIFF files, as written by Leica TIFF export).
// No series metadata is available for composites, so channels get the
// default name and a white color.
type CompositeSeriesConfig struct {
	logger *slog.Logger
	series int
}

// NewCompositeSeriesConfig creates the configuration for one composite series.
func NewCompositeSeriesConfig(series int, logger *slog.Logger) *CompositeSeriesConfig {
	return &CompositeSeriesConfig{
		logger: logger,
		series: series,
	}
}

// DatasetType implements DatasetConfig.
func (c *CompositeSeriesConfig) DatasetType() string { return domain.DatasetTypeMicroscopyImg }

// Selection implements DatasetConfig.
func (c *CompositeSeriesConfig) Selection() Selection { return OnlySeries(c.series) }

// Settings implements DatasetConfig.
func (c *CompositeSeriesConfig) Settings() Settings { return DefaultSettings() }

var (
	compositeSeriesToken  = regexp.MustCompile(`(?i)(?:_s|series)(\d+)`)
	compositeZToken       = regexp.MustCompile(`(?i)_z(\d+)`)
	compositeTToken       = regexp.MustCompile(`(?i)_t(\d+)`)
	compositeChannelToken = regexp.MustCompile(`(?i)_ch(\d+)`)
)

// ImageIdentifiers lists the TIFF files of the composite folder and reads the
// series, plane, timepoint and channel indices from their names. Missing
// tokens count as 0. The result is sorted by file name.
func (c *CompositeSeriesConfig) ImageIdentifiers(folder string) ([]domain.ImageIdentifier, error) {
	entries, err := os.ReadDir(folder)
	if err != nil {
		return nil, errors.Wrapf(err, errors.CodeExtraction, "list composite folder %s", folder)
	}

	var ids []domain.ImageIdentifier
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(e.Name()))
		if ext != ".tif" && ext != ".tiff" {
			continue
		}
		base := strings.TrimSuffix(e.Name(), filepath.Ext(e.Name()))
		ids = append(ids, domain.ImageIdentifier{
			ColorChannelIndex: tokenIndex(compositeChannelToken, base),
			FocalPlaneIndex:   tokenIndex(compositeZToken, base),
			SeriesIndex:       tokenIndex(compositeSeriesToken, base),
			TimeSeriesIndex:   tokenIndex(compositeTToken, base),
		})
	}
	return ids, nil
}

// ExtractImagesMetadata implements DatasetConfig.
func (c *CompositeSeriesConfig) ExtractImagesMetadata(path string, ids []domain.ImageIdentifier) iter.Seq[domain.ImageMetadata] {
	return logged(c.logger, path, Classify(slices.Values(ids), c.Selection()))
}

// CreateChannel implements DatasetConfig.
func (c *CompositeSeriesConfig) CreateChannel(code string) (domain.Channel, bool, error) {
	parsed, err := channel.Decode(code)
	if err != nil {
		return domain.Channel{}, false, err
	}
	if parsed.Series != c.series {
		return domain.Channel{}, false, nil
	}
	return domain.Channel{
		Code:  parsed.String(),
		Name:  DefaultChannelName,
		Color: domain.RGB{R: 255, G: 255, B: 255},
	}, true, nil
}

// tokenIndex returns the last numeric value captured by re in s, or 0.
func tokenIndex(re *regexp.Regexp, s string) int {
	matches := re.FindAllStringSubmatch(s, -1)
	if len(matches) == 0 {
		return 0
	}
	n, err := strconv.Atoi(matches[len(matches)-1][1])
	if err != nil {
		return 0
	}
	return n
}

// logged logs every record of seq as it is produced.
func logged(logger *slog.Logger, path string, seq iter.Seq[domain.ImageMetadata]) iter.Seq[domain.ImageMetadata] {
	if logger == nil {
		return seq
	}
	return func(yield func(domain.ImageMetadata) bool) {
		for md := range seq {
			logger.Debug("current image",
				"path", path,
				"series", md.SeriesNumber,
				"channel", md.Identifier.ColorChannelIndex,
				"plane", md.Depth,
				"timepoint", md.Timepoint,
				"channel_code", md.ChannelCode,
			)
			if !yield(md) {
				return
			}
		}
	}
}
