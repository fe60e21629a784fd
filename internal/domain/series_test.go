package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSeriesMetadata_FlattenAndRebuild(t *testing.T) {
	series := SeriesMetadata{
		Name:          "Position 1",
		ChannelNames:  []string{"DAPI", ""},
		ChannelColors: [][]int{{0, 0, 255}, {0, 255, 0}},
		Attributes: map[string]string{
			"sizeX": "512",
			"sizeZ": "7",
		},
	}

	flat := series.Flatten()
	assert.Equal(t, "Position 1", flat["name"])
	assert.Equal(t, "DAPI", flat["channelName0"])
	assert.Equal(t, "", flat["channelName1"])
	assert.Equal(t, "0, 0, 255", flat["channelColor0"])
	assert.Equal(t, "512", flat["sizeX"])

	rebuilt, err := SeriesFromAttributes(flat)
	require.NoError(t, err)
	assert.Equal(t, series, rebuilt)
}

func TestSeriesFromAttributes_NoChannels(t *testing.T) {
	m, err := SeriesFromAttributes(map[string]string{"name": "s0", "sizeT": "3"})
	require.NoError(t, err)

	assert.Equal(t, "s0", m.Name)
	assert.Equal(t, 0, m.NumChannels())
	assert.Empty(t, m.ChannelColors)
	assert.Equal(t, 3, m.IntAttribute(SeriesAttrSizeT, 1))
}

func TestSeriesFromAttributes_KeepsUnrelatedChannelPrefixedKeys(t *testing.T) {
	m, err := SeriesFromAttributes(map[string]string{
		"channelName0":  "GFP",
		"channelColor0": "0,255,0",
		"channelNameX":  "kept",
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"GFP"}, m.ChannelNames)
	assert.Equal(t, [][]int{{0, 255, 0}}, m.ChannelColors)
	assert.Equal(t, "kept", m.Attributes["channelNameX"])
}

func TestSeriesFromAttributes_MismatchedChannel(t *testing.T) {
	_, err := SeriesFromAttributes(map[string]string{
		"channelName0":  "GFP",
		"channelColor0": "0, 255, 0",
		"channelName1":  "RFP",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "channel 1")
}

func TestSeriesFromAttributes_BadColor(t *testing.T) {
	_, err := SeriesFromAttributes(map[string]string{
		"channelName0":  "GFP",
		"channelColor0": "0, green, 0",
	})
	require.Error(t, err)
}

func TestSeriesMetadata_IntAttributeFallback(t *testing.T) {
	m := SeriesMetadata{Attributes: map[string]string{"sizeZ": "abc"}}

	assert.Equal(t, 1, m.IntAttribute(SeriesAttrSizeZ, 1))
	assert.Equal(t, 4, m.IntAttribute("missing", 4))
}

func TestParseColor(t *testing.T) {
	c, err := ParseColor(" 255 ,128, 0 ")
	require.NoError(t, err)
	assert.Equal(t, []int{255, 128, 0}, c)

	c, err = ParseColor("")
	require.NoError(t, err)
	assert.Empty(t, c)

	assert.Equal(t, "1, 2, 3, 4", FormatColor([]int{1, 2, 3, 4}))
}

func TestSpaceCode(t *testing.T) {
	tests := []struct {
		identifier string
		want       string
		ok         bool
	}{
		{"/SPACE/EXP1", "SPACE", true},
		{"/LAB/PROJECT/EXP", "LAB", true},
		{"SPACE/EXP", "", false},
		{"/SPACE", "", false},
		{"//EXP", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.identifier, func(t *testing.T) {
			got, ok := SpaceCode(tt.identifier)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNewExperiment(t *testing.T) {
	exp := NewExperiment("/SPACE/PROJ/EXP1", ExperimentTypeMicroscopy)

	assert.Equal(t, "EXP1", exp.Code)
	assert.Equal(t, "SPACE", exp.Space)
	assert.NotNil(t, exp.Properties)

	exp.SetProperty(PropExperimentName, "Exp 1")
	v, ok := exp.Properties.Get(PropExperimentName)
	assert.True(t, ok)
	assert.Equal(t, "Exp 1", v)
	assert.Equal(t, "", exp.Properties.Value(PropExperimentDescription))
}

func TestDataset_SetSample(t *testing.T) {
	sample := &Sample{Registered: Registered{ID: "smp-1"}}
	sample.SetExperiment(&Experiment{Registered: Registered{ID: "exp-1"}})

	ds := &Dataset{}
	ds.SetSample(sample)

	assert.True(t, ds.IsRoot())
	assert.Equal(t, "smp-1", ds.SampleID)
	assert.Equal(t, "exp-1", ds.ExperimentID)
}
