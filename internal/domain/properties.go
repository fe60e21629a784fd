package domain

// Entity type codes known to the microscopy repository.
const (
	ExperimentTypeMicroscopy = "MICROSCOPY_EXPERIMENT"
	SampleTypeMicroscopy     = "MICROSCOPY_SAMPLE_TYPE"
	DatasetTypeMicroscopyImg = "MICROSCOPY_IMG"
)

// Property codes written by the registration pipeline.
const (
	PropExperimentName        = "MICROSCOPY_EXPERIMENT_NAME"
	PropExperimentDescription = "MICROSCOPY_EXPERIMENT_DESCRIPTION"
	PropSampleName            = "MICROSCOPY_SAMPLE_NAME"
	PropSampleDescription     = "MICROSCOPY_SAMPLE_DESCRIPTION"
	PropContainerMetadata     = "MICROSCOPY_IMG_CONTAINER_METADATA"
	PropContainerName         = "MICROSCOPY_IMG_CONTAINER_NAME"
)

// Properties holds the property values of a repository entity, keyed by property code.
type Properties map[string]string

// Get returns the value of a property and whether it is set at all.
func (p Properties) Get(code string) (string, bool) {
	v, ok := p[code]
	return v, ok
}

// Value returns the value of a property, or "" when it is not set.
func (p Properties) Value(code string) string {
	return p[code]
}
