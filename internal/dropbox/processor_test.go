package dropbox

import (
	"context"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/tiff"

	"github.com/ynoir/obit-microscopy-core-technology/internal/domain"
	"github.com/ynoir/obit-microscopy-core-technology/internal/errors"
	"github.com/ynoir/obit-microscopy-core-technology/internal/imaging"
	"github.com/ynoir/obit-microscopy-core-technology/internal/metareader"
	"github.com/ynoir/obit-microscopy-core-technology/internal/pipeline"
	"github.com/ynoir/obit-microscopy-core-technology/internal/store"
)

const preExtractedManifest = `<obitXML>
	<Experiment openBISIdentifier="/LAB/EXP1" name="Exp">
		<MicroscopyFile relativeFileName="user/a.lsm">
			<MicroscopyFileSeries name="s0" channelName0="GFP" channelColor0="0, 255, 0"/>
		</MicroscopyFile>
	</Experiment>
</obitXML>`

// writeIncoming lays out incoming/user with the given files and an
// enumeration listing the manifests.
func writeIncoming(t *testing.T, files map[string]string, manifests ...string) string {
	t.Helper()
	incoming := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(incoming, "user"), 0o755))
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(incoming, name), []byte(content), 0o644))
	}
	enumeration := strings.Join(manifests, "\n") + "\n"
	require.NoError(t, os.WriteFile(filepath.Join(incoming, "user", "data_structure.ois"), []byte(enumeration), 0o644))
	return incoming
}

func newStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.New(t.TempDir(), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestRun_CommitsIntoStore(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	incoming := writeIncoming(t, map[string]string{
		"user/exp.xml": preExtractedManifest,
		"user/a.lsm":   "pixels",
	}, "user/exp.xml")

	p := NewProcessor(s, metareader.NewRegistry(nil), pipeline.DefaultTypes(), nil)
	result, err := p.Run(ctx, incoming)
	require.NoError(t, err)

	assert.NotEmpty(t, result.RunID)
	assert.False(t, result.DryRun)
	assert.Equal(t, []string{filepath.Join(incoming, "user/exp.xml")}, result.Manifests)

	exp, err := s.GetExperimentByIdentifier(ctx, "/LAB/EXP1")
	require.NoError(t, err)
	samples, err := s.ListSamplesByExperiment(ctx, exp.ID)
	require.NoError(t, err)
	require.Len(t, samples, 1)
	datasets, err := s.ListDatasetsBySample(ctx, samples[0].ID)
	require.NoError(t, err)
	require.Len(t, datasets, 1)
	assert.Equal(t, "GFP", datasets[0].Channels[0].Name)

	assert.NoFileExists(t, filepath.Join(incoming, "user/a.lsm"))
	assert.FileExists(t, datasets[0].StoragePath)
}

func TestRun_ExtractsTIFFMetadata(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	incoming := writeIncoming(t, map[string]string{
		"user/exp.xml": `<obitXML>
			<Experiment openBISIdentifier="/LAB/EXP1">
				<MicroscopyFile relativeFileName="user/gray.tif"/>
			</Experiment>
		</obitXML>`,
	}, "user/exp.xml")

	f, err := os.Create(filepath.Join(incoming, "user", "gray.tif"))
	require.NoError(t, err)
	require.NoError(t, tiff.Encode(f, image.NewGray(image.Rect(0, 0, 4, 3)), nil))
	require.NoError(t, f.Close())

	p := NewProcessor(s, metareader.NewRegistry(nil), pipeline.DefaultTypes(), nil)
	_, err = p.Run(ctx, incoming)
	require.NoError(t, err)

	exp, err := s.GetExperimentByIdentifier(ctx, "/LAB/EXP1")
	require.NoError(t, err)
	samples, err := s.ListSamplesByExperiment(ctx, exp.ID)
	require.NoError(t, err)
	require.Len(t, samples, 1)
	assert.Equal(t, "gray.tif", samples[0].Properties.Value(domain.PropSampleName))

	datasets, err := s.ListDatasetsBySample(ctx, samples[0].ID)
	require.NoError(t, err)
	require.Len(t, datasets, 1)
	require.Len(t, datasets[0].Channels, 1)
	assert.Equal(t, imaging.DefaultChannelName, datasets[0].Channels[0].Name)
	assert.Contains(t, datasets[0].Properties.Value(domain.PropContainerMetadata), `sizeX="4"`)
}

func TestRun_FailureRollsBack(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	incoming := writeIncoming(t, map[string]string{
		"user/exp.xml": preExtractedManifest,
		"user/bad.xml": `<obitXML>
			<Experiment openBISIdentifier="/LAB/EXP2">
				<MicroscopyFile description="no file name"/>
			</Experiment>
		</obitXML>`,
		"user/a.lsm": "pixels",
	}, "user/exp.xml", "user/bad.xml")

	p := NewProcessor(s, metareader.NewRegistry(nil), pipeline.DefaultTypes(), nil)
	result, err := p.Run(ctx, incoming)
	require.Error(t, err)
	assert.Nil(t, result)
	assert.ErrorIs(t, err, errors.ErrStructural)

	// The first manifest was registered and moved before the failure.
	assert.FileExists(t, filepath.Join(incoming, "user/a.lsm"))
	_, err = s.GetExperimentByIdentifier(ctx, "/LAB/EXP1")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestRun_DryRun(t *testing.T) {
	incoming := writeIncoming(t, map[string]string{
		"user/exp.xml": preExtractedManifest,
		"user/a.lsm":   "pixels",
	}, "user/exp.xml")

	p := NewDryRunProcessor(metareader.NewRegistry(nil), pipeline.DefaultTypes(), nil)
	result, err := p.Run(context.Background(), incoming)
	require.NoError(t, err)

	assert.True(t, result.DryRun)
	assert.FileExists(t, filepath.Join(incoming, "user/a.lsm"))
}

func TestRun_InvalidIncoming(t *testing.T) {
	p := NewDryRunProcessor(metareader.NewRegistry(nil), pipeline.DefaultTypes(), nil)

	tests := []struct {
		name  string
		setup func(t *testing.T) string
	}{
		{
			name: "incoming is a file",
			setup: func(t *testing.T) string {
				path := filepath.Join(t.TempDir(), "incoming")
				require.NoError(t, os.WriteFile(path, nil, 0o644))
				return path
			},
		},
		{
			name: "incoming does not exist",
			setup: func(t *testing.T) string {
				return filepath.Join(t.TempDir(), "missing")
			},
		},
		{
			name: "no user subfolder",
			setup: func(t *testing.T) string {
				return t.TempDir()
			},
		},
		{
			name: "two user subfolders",
			setup: func(t *testing.T) string {
				incoming := writeIncoming(t, nil, "user/exp.xml")
				require.NoError(t, os.Mkdir(filepath.Join(incoming, "other"), 0o755))
				return incoming
			},
		},
		{
			name: "missing enumeration",
			setup: func(t *testing.T) string {
				incoming := t.TempDir()
				require.NoError(t, os.Mkdir(filepath.Join(incoming, "user"), 0o755))
				return incoming
			},
		},
		{
			name: "listed manifest missing",
			setup: func(t *testing.T) string {
				return writeIncoming(t, nil, "user/missing.xml")
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := p.Run(context.Background(), tt.setup(t))
			require.Error(t, err)
			assert.ErrorIs(t, err, errors.ErrResource)
		})
	}
}

// timelapseManifest describes one file with n pre-extracted series of
// sizeZ planes, sizeT timepoints and three channels each.
func timelapseManifest(n, sizeZ, sizeT int) string {
	var b strings.Builder
	b.WriteString(`<obitXML><Experiment openBISIdentifier="/LAB/EXP1" name="Exp">`)
	b.WriteString(`<MicroscopyFile relativeFileName="user/a.lif">`)
	for i := range n {
		fmt.Fprintf(&b, `<MicroscopyFileSeries name="position %d" sizeZ="%d" sizeT="%d"`+
			` channelName0="DAPI" channelColor0="0, 0, 255"`+
			` channelName1="GFP" channelColor1="0, 255, 0"`+
			` channelName2="mCherry" channelColor2="255, 0, 0"/>`, i, sizeZ, sizeT)
	}
	b.WriteString(`</MicroscopyFile></Experiment></obitXML>`)
	return b.String()
}

func TestRun_LargeMultiSeriesFile(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	incoming := writeIncoming(t, map[string]string{
		"user/exp.xml": timelapseManifest(6, 30, 50),
		"user/a.lif":   "pixels",
	}, "user/exp.xml")

	p := NewProcessor(s, metareader.NewRegistry(nil), pipeline.DefaultTypes(), nil)
	_, err := p.Run(ctx, incoming)
	require.NoError(t, err)

	exp, err := s.GetExperimentByIdentifier(ctx, "/LAB/EXP1")
	require.NoError(t, err)
	samples, err := s.ListSamplesByExperiment(ctx, exp.ID)
	require.NoError(t, err)
	require.Len(t, samples, 1)

	datasets, err := s.ListDatasetsBySample(ctx, samples[0].ID)
	require.NoError(t, err)
	require.Len(t, datasets, 6)

	var roots []*domain.Dataset
	for _, ds := range datasets {
		if ds.IsRoot() {
			roots = append(roots, ds)
		}
		assert.Equal(t, 4500, ds.Geometry.Planes)
		assert.Len(t, ds.Channels, 3)
	}
	require.Len(t, roots, 1)

	linked, err := s.ListLinkedDatasets(ctx, roots[0].ID)
	require.NoError(t, err)
	assert.Len(t, linked, 5)
	assert.NoFileExists(t, filepath.Join(incoming, "user/a.lif"))
	assert.FileExists(t, roots[0].StoragePath)
}
