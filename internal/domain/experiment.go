package domain

import "strings"

// Experiment is a repository experiment that samples are attached to.
// It is identified by an identifier of the form /SPACE[/PROJECT]/CODE.
type Experiment struct {
	Registered
	Properties Properties `json:"properties"`
	Identifier string     `json:"identifier"`
	Code       string     `json:"code"`
	Space      string     `json:"space"`
	Type       string     `json:"type"`
}

// NewExperiment builds an experiment for the given identifier and type code.
// Space and Code are derived from the identifier.
func NewExperiment(identifier, typeCode string) *Experiment {
	exp := &Experiment{
		Properties: Properties{},
		Identifier: identifier,
		Code:       identifier[strings.LastIndex(identifier, "/")+1:],
		Type:       typeCode,
	}
	exp.Space, _ = SpaceCode(identifier)
	return exp
}

// SetProperty stores a property value and touches the experiment.
func (e *Experiment) SetProperty(code, value string) {
	if e.Properties == nil {
		e.Properties = Properties{}
	}
	e.Properties[code] = value
	e.Touch()
}

// SpaceCode returns the path segment between the first two '/' of an identifier.
// "/SPACE/PROJECT/EXP" yields "SPACE". The second result is false when the
// identifier has no such segment.
func SpaceCode(identifier string) (string, bool) {
	if !strings.HasPrefix(identifier, "/") {
		return "", false
	}
	rest := identifier[1:]
	end := strings.Index(rest, "/")
	if end <= 0 {
		return "", false
	}
	return rest[:end], true
}
