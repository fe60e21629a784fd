// Package pipeline walks a parsed manifest and registers its experiments,
// files and series through a registry.Registrar.
package pipeline

import (
	"context"
	"log/slog"
	"path"
	"path/filepath"
	"strconv"

	"github.com/ynoir/obit-microscopy-core-technology/internal/domain"
	"github.com/ynoir/obit-microscopy-core-technology/internal/errors"
	"github.com/ynoir/obit-microscopy-core-technology/internal/imaging"
	"github.com/ynoir/obit-microscopy-core-technology/internal/manifest"
	"github.com/ynoir/obit-microscopy-core-technology/internal/metareader"
	"github.com/ynoir/obit-microscopy-core-technology/internal/registry"
)

// Types holds the repository type codes used for created entities.
type Types struct {
	Experiment string
	Sample     string
}

// DefaultTypes returns the microscopy type codes.
func DefaultTypes() Types {
	return Types{
		Experiment: domain.ExperimentTypeMicroscopy,
		Sample:     domain.SampleTypeMicroscopy,
	}
}

// Pipeline registers manifests. It holds no per-run state: every call to
// Register gets the registrar of the run it belongs to.
//
// Registration is strictly sequential and fail-fast. The first error aborts
// the traversal and is returned; the caller rolls the run back.
type Pipeline struct {
	readers metareader.Opener
	attrs   *manifest.Attrs
	types   Types
	logger  *slog.Logger
}

// New creates a pipeline that extracts file metadata with readers.
func New(readers metareader.Opener, types Types, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		readers: readers,
		attrs:   manifest.NewAttrs(),
		types:   types,
		logger:  logger,
	}
}

// Register registers every Experiment node of doc. File paths in the manifest
// are relative to incoming.
func (p *Pipeline) Register(ctx context.Context, reg *registry.Registrar, incoming string, doc *manifest.Document) error {
	p.logger.Info("registering manifest", "manifest", doc.Path)

	for _, node := range doc.Root.Children {
		if node.Tag != manifest.TagExperiment {
			return errors.Structuralf("expected %s node, found %s", manifest.TagExperiment, node.Tag)
		}
	}

	for _, node := range doc.Root.Children {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := p.experiment(ctx, reg, incoming, node); err != nil {
			return err
		}
	}

	p.logger.Info("registration completed", "manifest", doc.Path)
	return nil
}

func (p *Pipeline) experiment(ctx context.Context, reg *registry.Registrar, incoming string, node *manifest.Node) error {
	attrs, err := p.attrs.Experiment(node)
	if err != nil {
		return err
	}

	exp, err := reg.GetOrCreateExperiment(ctx, registry.ExperimentRequest{
		Identifier:  attrs.Identifier,
		Name:        attrs.Name,
		Description: attrs.Description,
		Type:        p.types.Experiment,
	})
	if err != nil {
		return err
	}

	for _, child := range node.Children {
		if err := ctx.Err(); err != nil {
			return err
		}

		switch child.Tag {
		case manifest.TagMicroscopyFile:
			err = p.file(ctx, reg, incoming, exp, child)
		case manifest.TagMicroscopyCompositeFile:
			err = p.composite(ctx, reg, incoming, exp, child)
			if err == nil {
				p.logger.Info("processed composite file", "experiment", exp.Identifier)
			}
		default:
			err = errors.Structuralf("expected either %s or %s node, found %s",
				manifest.TagMicroscopyFile, manifest.TagMicroscopyCompositeFile, child.Tag)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// file registers a MicroscopyFile node: one sample, one root dataset owning
// the file for series 0 and one linked dataset for every further series.
func (p *Pipeline) file(ctx context.Context, reg *registry.Registrar, incoming string, exp *domain.Experiment, node *manifest.Node) error {
	attrs, err := p.attrs.File(node)
	if err != nil {
		return err
	}
	fileName := filepath.Join(incoming, attrs.RelativeFileName)

	series, err := p.seriesOf(ctx, fileName, node)
	if err != nil {
		return err
	}
	p.logger.Info("file series", "file", attrs.RelativeFileName, "num_series", len(series))

	sample, err := reg.CreateSample(ctx, registry.SampleRequest{
		Experiment:  exp,
		Name:        path.Base(filepath.ToSlash(attrs.RelativeFileName)),
		Description: attrs.Description,
		Type:        p.types.Sample,
	})
	if err != nil {
		return err
	}

	var root *domain.Dataset
	for i, md := range series {
		cfg := imaging.NewSingleSeriesConfig(series, imaging.OnlySeries(i), p.logger)
		props := registry.DatasetProperties{
			Name:     seriesName(md, i),
			Metadata: manifest.SeriesXML(md),
		}

		var ds *domain.Dataset
		if root == nil {
			ds, err = reg.CreateRootDataset(ctx, cfg, fileName, props)
			if err != nil {
				return err
			}
			if err := reg.MoveFile(ctx, fileName, ds); err != nil {
				return err
			}
			root = ds
		} else {
			ds, err = reg.CreateLinkedDataset(ctx, cfg, root, props)
			if err != nil {
				return err
			}
		}

		if err := reg.AttachSample(ctx, ds, sample); err != nil {
			return err
		}
	}
	return nil
}

// seriesOf returns the series metadata embedded in node, or extracts it from
// the file. The reader is closed before returning.
func (p *Pipeline) seriesOf(ctx context.Context, fileName string, node *manifest.Node) ([]domain.SeriesMetadata, error) {
	series, ok, err := manifest.PreExtractedSeries(node)
	if err != nil {
		return nil, err
	}
	if ok {
		p.logger.Debug("using pre-extracted series metadata", "file", fileName)
		return series, nil
	}

	reader, err := p.readers.Open(fileName)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := reader.Close(); err != nil {
			p.logger.Warn("failed to close metadata reader", "file", fileName, "error", err)
		}
	}()

	if err := reader.Parse(ctx, fileName); err != nil {
		return nil, errors.Wrapf(err, errors.CodeExtraction, "extract metadata from %s", fileName)
	}

	series = reader.Metadata()
	if n := reader.NumSeries(); n != len(series) {
		return nil, errors.Extractionf("%s reports %d series but metadata for %d", fileName, n, len(series))
	}
	return series, nil
}

// composite registers a MicroscopyCompositeFile node: one root dataset per
// listed series, all bound to the composite folder, which is moved once.
// The sample is attached to the last dataset only.
func (p *Pipeline) composite(ctx context.Context, reg *registry.Registrar, incoming string, exp *domain.Experiment, node *manifest.Node) error {
	attrs, err := p.attrs.Composite(node)
	if err != nil {
		return err
	}
	if attrs.CompositeFileType != manifest.CompositeTypeLeicaTIFF {
		return errors.Structuralf("invalid composite file type %q", attrs.CompositeFileType)
	}
	p.logger.Info("processing composite file", "type", attrs.CompositeFileType, "folder", attrs.RelativeFolder)

	indices, err := attrs.Series()
	if err != nil {
		return err
	}

	sample, err := reg.CreateSample(ctx, registry.SampleRequest{
		Experiment:  exp,
		Name:        attrs.Name,
		Description: attrs.Description,
		Type:        p.types.Sample,
	})
	if err != nil {
		return err
	}

	folder := filepath.Join(incoming, attrs.RelativeFolder)

	var last *domain.Dataset
	for _, i := range indices {
		p.logger.Info("processing series", "series", i)

		cfg := imaging.NewCompositeSeriesConfig(i, p.logger)
		ds, err := reg.CreateRootDataset(ctx, cfg, folder, registry.DatasetProperties{
			Name:     "Series_" + strconv.Itoa(i),
			Metadata: "",
		})
		if err != nil {
			return err
		}
		last = ds
	}

	if err := reg.MoveFile(ctx, folder, last); err != nil {
		return err
	}
	return reg.AttachSample(ctx, last, sample)
}

// seriesName is the series name, or Series_<i> when the series has none.
func seriesName(md domain.SeriesMetadata, i int) string {
	if md.Name != "" {
		return md.Name
	}
	return "Series_" + strconv.Itoa(i)
}
