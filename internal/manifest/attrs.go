package manifest

import (
	"github.com/ynoir/obit-microscopy-core-technology/internal/domain"
	"github.com/ynoir/obit-microscopy-core-technology/internal/errors"
	"github.com/ynoir/obit-microscopy-core-technology/internal/validation"
)

// CompositeTypeLeicaTIFF is the only supported composite file type.
const CompositeTypeLeicaTIFF = "Leica TIFF Series"

// ExperimentAttrs are the attributes of an Experiment node.
type ExperimentAttrs struct {
	Identifier  string `attr:"openBISIdentifier" validate:"required,startswith=/"`
	Name        string `attr:"name"`
	Description string `attr:"description"`
}

// FileAttrs are the attributes of a MicroscopyFile node.
type FileAttrs struct {
	RelativeFileName string `attr:"relativeFileName" validate:"required"`
	Description      string `attr:"description"`
}

// CompositeAttrs are the attributes of a MicroscopyCompositeFile node.
type CompositeAttrs struct {
	CompositeFileType string `attr:"compositeFileType" validate:"required"`
	Name              string `attr:"name"`
	Description       string `attr:"description"`
	SeriesIndices     string `attr:"seriesIndices" validate:"required,intlist"`
	RelativeFolder    string `attr:"relativeFolder" validate:"required"`
}

// Series returns the parsed series index list.
func (a CompositeAttrs) Series() ([]int, error) {
	indices, err := validation.ParseIntList(a.SeriesIndices)
	if err != nil {
		return nil, errors.Wrapf(err, errors.CodeStructural, "composite file series indices %q", a.SeriesIndices)
	}
	return indices, nil
}

// Attrs reads and validates node attributes. Missing required attributes
// are structural errors naming the node tag.
type Attrs struct {
	v *validation.Validator
}

// NewAttrs creates an attribute reader.
func NewAttrs() *Attrs {
	return &Attrs{v: validation.New()}
}

// Experiment reads an Experiment node.
func (a *Attrs) Experiment(n *Node) (ExperimentAttrs, error) {
	if n.Tag != TagExperiment {
		return ExperimentAttrs{}, errors.Structuralf("expected node %s, found %s", TagExperiment, n.Tag)
	}
	out := ExperimentAttrs{
		Identifier:  n.AttrValue("openBISIdentifier"),
		Name:        n.AttrValue("name"),
		Description: n.AttrValue("description"),
	}
	return out, a.check(n, out)
}

// File reads a MicroscopyFile node.
func (a *Attrs) File(n *Node) (FileAttrs, error) {
	if n.Tag != TagMicroscopyFile {
		return FileAttrs{}, errors.Structuralf("expected node %s, found %s", TagMicroscopyFile, n.Tag)
	}
	out := FileAttrs{
		RelativeFileName: n.AttrValue("relativeFileName"),
		Description:      n.AttrValue("description"),
	}
	return out, a.check(n, out)
}

// Composite reads a MicroscopyCompositeFile node. The series index list is
// checked here and parsed by CompositeAttrs.Series; the composite type is
// left to the caller.
func (a *Attrs) Composite(n *Node) (CompositeAttrs, error) {
	if n.Tag != TagMicroscopyCompositeFile {
		return CompositeAttrs{}, errors.Structuralf("expected node %s, found %s", TagMicroscopyCompositeFile, n.Tag)
	}
	out := CompositeAttrs{
		CompositeFileType: n.AttrValue("compositeFileType"),
		Name:              n.AttrValue("name"),
		Description:       n.AttrValue("description"),
		SeriesIndices:     n.AttrValue("seriesIndices"),
		RelativeFolder:    n.AttrValue("relativeFolder"),
	}
	return out, a.check(n, out)
}

func (a *Attrs) check(n *Node, s any) error {
	if err := a.v.Validate(s); err != nil {
		var verr *errors.Error
		if errors.As(err, &verr) {
			return errors.Wrapf(err, errors.CodeStructural, "invalid %s node", n.Tag).WithDetails(verr.Details)
		}
		return errors.Wrapf(err, errors.CodeStructural, "invalid %s node", n.Tag)
	}
	return nil
}

// PreExtractedSeries rebuilds series metadata from the children of a
// MicroscopyFile node, one child per series (normally MicroscopyFileSeries).
// ok is false when the node has no series children and the metadata has to
// be extracted from the file.
func PreExtractedSeries(n *Node) (series []domain.SeriesMetadata, ok bool, err error) {
	for i, child := range n.Children {
		md, err := domain.SeriesFromAttributes(child.AttrMap())
		if err != nil {
			return nil, false, errors.Wrapf(err, errors.CodeStructural, "series %d of %s", i, n.AttrValue("relativeFileName"))
		}
		series = append(series, md)
	}
	return series, len(series) > 0, nil
}
