package metareader

import (
	"context"
	"encoding/json"
	"image"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/tiff"

	"github.com/ynoir/obit-microscopy-core-technology/internal/domain"
	"github.com/ynoir/obit-microscopy-core-technology/internal/errors"
)

func writeTIFF(t *testing.T, path string, img image.Image) {
	t.Helper()
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, tiff.Encode(f, img, nil))
}

func TestTIFFReader_Gray(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plane.tif")
	writeTIFF(t, path, image.NewGray(image.Rect(0, 0, 8, 4)))

	r := NewTIFFReader(nil)
	require.NoError(t, r.Parse(context.Background(), path))
	defer r.Close()

	require.Equal(t, 1, r.NumSeries())
	md := r.Metadata()[0]
	assert.Equal(t, "plane.tif", md.Name)
	assert.Equal(t, []string{""}, md.ChannelNames)
	assert.Equal(t, [][]int{{255, 255, 255}}, md.ChannelColors)
	assert.Equal(t, "8", md.Attributes["sizeX"])
	assert.Equal(t, "4", md.Attributes["sizeY"])
	assert.Equal(t, "uint8", md.Attributes["pixelType"])
}

func TestTIFFReader_RGB(t *testing.T) {
	path := filepath.Join(t.TempDir(), "color.lsm")
	writeTIFF(t, path, image.NewRGBA(image.Rect(0, 0, 2, 2)))

	r := NewTIFFReader(nil)
	require.NoError(t, r.Parse(context.Background(), path))

	md := r.Metadata()[0]
	assert.Equal(t, []string{"Red", "Green", "Blue"}, md.ChannelNames)
	assert.Equal(t, [][]int{{255, 0, 0}, {0, 255, 0}, {0, 0, 255}}, md.ChannelColors)

	require.NoError(t, r.Close())
	require.NoError(t, r.Close())
}

func TestTIFFReader_Errors(t *testing.T) {
	dir := t.TempDir()
	r := NewTIFFReader(nil)

	err := r.Parse(context.Background(), filepath.Join(dir, "missing.tif"))
	assert.ErrorIs(t, err, errors.ErrExtraction)

	junk := filepath.Join(dir, "junk.tif")
	require.NoError(t, os.WriteFile(junk, []byte("not a tiff"), 0o644))
	err = r.Parse(context.Background(), junk)
	assert.ErrorIs(t, err, errors.ErrExtraction)
	require.NoError(t, r.Close())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, r.Parse(ctx, junk), context.Canceled)
}

func TestSidecarReader(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.nd2")
	series := []domain.SeriesMetadata{
		{Name: "s0", ChannelNames: []string{"GFP"}, ChannelColors: [][]int{{0, 255, 0}}},
		{Name: "s1", ChannelNames: []string{"DAPI", ""}, ChannelColors: [][]int{{0, 0, 255}, {255, 0, 0}}},
	}
	data, err := json.Marshal(series)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(SidecarPath(path), data, 0o644))

	r := NewSidecarReader(nil)
	require.NoError(t, r.Parse(context.Background(), path))
	assert.Equal(t, 2, r.NumSeries())
	assert.Equal(t, "DAPI", r.Metadata()[1].ChannelNames[0])
	assert.NoError(t, r.Close())
}

func TestSidecarReader_Mismatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a.lif")
	require.NoError(t, os.WriteFile(SidecarPath(path),
		[]byte(`[{"name":"s","channel_names":["a","b"],"channel_colors":[[1,2,3]]}]`), 0o644))

	err := NewSidecarReader(nil).Parse(context.Background(), path)
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrExtraction)
	assert.Contains(t, err.Error(), "series 0")
}

func TestRegistry_Open(t *testing.T) {
	dir := t.TempDir()
	reg := NewRegistry(nil)

	rd, err := reg.Open(filepath.Join(dir, "x.LSM"))
	require.NoError(t, err)
	assert.IsType(t, &TIFFReader{}, rd)

	_, err = reg.Open(filepath.Join(dir, "x.nd2"))
	assert.ErrorIs(t, err, errors.ErrExtraction)

	nd2 := filepath.Join(dir, "y.nd2")
	require.NoError(t, os.WriteFile(SidecarPath(nd2), []byte("[]"), 0o644))
	rd, err = reg.Open(nd2)
	require.NoError(t, err)
	assert.IsType(t, &SidecarReader{}, rd)

	assert.ElementsMatch(t, []string{".tif", ".tiff", ".lsm", ".stk"}, reg.Extensions())
}
