package registry

import (
	"github.com/ynoir/obit-microscopy-core-technology/internal/domain"
	"github.com/ynoir/obit-microscopy-core-technology/internal/imaging"
)

// BuildDataset assembles an unsaved image dataset for path from cfg: the
// geometry of the planes of the selected series and one channel per distinct
// channel code. Plane records are not kept on the dataset. Transactions use
// it to implement CreateNewImageDataSet.
func BuildDataset(cfg imaging.DatasetConfig, path string) (*domain.Dataset, error) {
	ids, err := cfg.ImageIdentifiers(path)
	if err != nil {
		return nil, err
	}

	ds := &domain.Dataset{
		Properties: domain.Properties{},
		Type:       cfg.DatasetType(),
		FilePath:   path,
		Channels:   []domain.Channel{},
	}

	seen := make(map[string]bool)
	for md := range cfg.ExtractImagesMetadata(path, ids) {
		ds.Geometry.Add(md)
		if seen[md.ChannelCode] {
			continue
		}
		seen[md.ChannelCode] = true

		ch, ok, err := cfg.CreateChannel(md.ChannelCode)
		if err != nil {
			return nil, err
		}
		if ok {
			ds.Channels = append(ds.Channels, ch)
		}
	}

	return ds, nil
}
