package domain

// Sample groups the datasets registered from one manifest file node.
// Samples are never looked up; each file node creates a fresh one.
type Sample struct {
	Registered
	Properties   Properties `json:"properties"`
	Code         string     `json:"code"`
	Identifier   string     `json:"identifier"`
	Space        string     `json:"space"`
	Type         string     `json:"type"`
	ExperimentID string     `json:"experiment_id,omitempty"`
}

// SetProperty stores a property value and touches the sample.
func (s *Sample) SetProperty(code, value string) {
	if s.Properties == nil {
		s.Properties = Properties{}
	}
	s.Properties[code] = value
	s.Touch()
}

// SetExperiment attaches the sample to an experiment.
func (s *Sample) SetExperiment(exp *Experiment) {
	s.ExperimentID = exp.ID
	s.Touch()
}
