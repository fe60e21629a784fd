package domain

// Dataset is the image dataset registered for one series.
//
// The first series of a file creates a root dataset that owns the physical
// file; later series create linked datasets whose RootID points at the root
// and which share its file reference.
type Dataset struct {
	Registered
	Properties   Properties `json:"properties"`
	Code         string     `json:"code"`
	Type         string     `json:"type"`
	FilePath     string     `json:"file_path"`
	StoragePath  string     `json:"storage_path,omitempty"`
	RootID       string     `json:"root_id,omitempty"`
	SampleID     string     `json:"sample_id,omitempty"`
	ExperimentID string     `json:"experiment_id,omitempty"`
	Channels     []Channel  `json:"channels"`
	Geometry     Geometry   `json:"geometry"`
}

// IsRoot reports whether the dataset owns its file.
func (d *Dataset) IsRoot() bool {
	return d.RootID == ""
}

// SetProperty stores a property value and touches the dataset.
func (d *Dataset) SetProperty(code, value string) {
	if d.Properties == nil {
		d.Properties = Properties{}
	}
	d.Properties[code] = value
	d.Touch()
}

// SetSample attaches the dataset to a sample (and to the sample's experiment).
func (d *Dataset) SetSample(s *Sample) {
	d.SampleID = s.ID
	d.ExperimentID = s.ExperimentID
	d.Touch()
}

// Channel is a resolved imaging channel of a dataset.
type Channel struct {
	Code  string `json:"code"`
	Name  string `json:"name"`
	Color RGB    `json:"color"`
}

// RGB is a channel display color with 0-255 components.
type RGB struct {
	R int `json:"r"`
	G int `json:"g"`
	B int `json:"b"`
}

// Geometry summarises the image planes of a dataset. Planes is the number of
// plane records; the other fields are the extent of each plane axis.
type Geometry struct {
	Planes      int `json:"planes"`
	Channels    int `json:"channels"`
	FocalPlanes int `json:"focal_planes"`
	Timepoints  int `json:"timepoints"`
}

// Add extends the geometry by one plane.
func (g *Geometry) Add(md ImageMetadata) {
	g.Planes++
	g.Channels = max(g.Channels, md.Identifier.ColorChannelIndex+1)
	g.FocalPlanes = max(g.FocalPlanes, md.Depth+1)
	g.Timepoints = max(g.Timepoints, md.Timepoint+1)
}

// ImageIdentifier addresses one image plane in a (multi-series) file.
type ImageIdentifier struct {
	ColorChannelIndex int `json:"color_channel_index"`
	FocalPlaneIndex   int `json:"focal_plane_index"`
	SeriesIndex       int `json:"series_index"`
	TimeSeriesIndex   int `json:"time_series_index"`
}

// ImageMetadata describes one image plane of a dataset.
type ImageMetadata struct {
	Identifier   ImageIdentifier `json:"identifier"`
	ChannelCode  string          `json:"channel_code"`
	Well         string          `json:"well"`
	SeriesNumber int             `json:"series_number"`
	Timepoint    int             `json:"timepoint"`
	Depth        int             `json:"depth"`
	TileNumber   int             `json:"tile_number"`
}
