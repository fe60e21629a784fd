package metareader

import (
	"context"
	"image/color"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"

	"golang.org/x/image/tiff"

	"github.com/ynoir/obit-microscopy-core-technology/internal/domain"
	"github.com/ynoir/obit-microscopy-core-technology/internal/errors"
)

// TIFFReader reads the geometry of a single-image TIFF file. A TIFF yields
// one series: grayscale and paletted images have one channel, color images
// have Red, Green and Blue channels.
type TIFFReader struct {
	logger *slog.Logger
	file   *os.File
	series []domain.SeriesMetadata
}

// NewTIFFReader creates a TIFF reader.
func NewTIFFReader(logger *slog.Logger) *TIFFReader {
	if logger == nil {
		logger = slog.Default()
	}
	return &TIFFReader{logger: logger}
}

// Parse implements Reader.
func (r *TIFFReader) Parse(ctx context.Context, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	f, err := os.Open(path)
	if err != nil {
		return errors.Wrapf(err, errors.CodeExtraction, "open %s", path)
	}
	r.file = f

	cfg, err := tiff.DecodeConfig(f)
	if err != nil {
		return errors.Wrapf(err, errors.CodeExtraction, "decode tiff header of %s", path)
	}

	md := domain.SeriesMetadata{
		Name: filepath.Base(path),
		Attributes: map[string]string{
			"sizeX":                strconv.Itoa(cfg.Width),
			"sizeY":                strconv.Itoa(cfg.Height),
			domain.SeriesAttrSizeZ: "1",
			domain.SeriesAttrSizeT: "1",
		},
	}

	switch cfg.ColorModel {
	case color.GrayModel, color.Gray16Model:
		md.ChannelNames = []string{""}
		md.ChannelColors = [][]int{{255, 255, 255}}
		md.Attributes["pixelType"] = pixelType(cfg.ColorModel)
	case color.RGBAModel, color.NRGBAModel, color.RGBA64Model, color.NRGBA64Model:
		md.ChannelNames = []string{"Red", "Green", "Blue"}
		md.ChannelColors = [][]int{{255, 0, 0}, {0, 255, 0}, {0, 0, 255}}
		md.Attributes["pixelType"] = pixelType(cfg.ColorModel)
	default:
		// Paletted images carry indices into a color table.
		md.ChannelNames = []string{""}
		md.ChannelColors = [][]int{{255, 255, 255}}
		md.Attributes["pixelType"] = "indexed"
	}

	r.series = []domain.SeriesMetadata{md}
	r.logger.Debug("read tiff metadata",
		"path", path,
		"width", cfg.Width,
		"height", cfg.Height,
		"channels", md.NumChannels(),
	)
	return nil
}

func pixelType(m color.Model) string {
	switch m {
	case color.Gray16Model, color.RGBA64Model, color.NRGBA64Model:
		return "uint16"
	default:
		return "uint8"
	}
}

// Metadata implements Reader.
func (r *TIFFReader) Metadata() []domain.SeriesMetadata { return r.series }

// NumSeries implements Reader.
func (r *TIFFReader) NumSeries() int { return len(r.series) }

// Close implements Reader.
func (r *TIFFReader) Close() error {
	if r.file == nil {
		return nil
	}
	err := r.file.Close()
	r.file = nil
	return err
}
