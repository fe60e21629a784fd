package imaging

import (
	"iter"

	"github.com/ynoir/obit-microscopy-core-technology/internal/channel"
	"github.com/ynoir/obit-microscopy-core-technology/internal/domain"
)

const (
	// singleTile is the tile number of every plane; files are not tiled.
	singleTile = 1
	// ignoredWell fills the well field, which has no meaning outside plates.
	ignoredWell = "IGNORED"
)

// Classify projects image identifiers into per-plane metadata tagged with the
// canonical channel code. Identifiers outside the selection are dropped; every
// other identifier yields exactly one record, in input order.
//
// The returned sequence is lazy and pulls from ids once per iteration.
func Classify(ids iter.Seq[domain.ImageIdentifier], sel Selection) iter.Seq[domain.ImageMetadata] {
	return func(yield func(domain.ImageMetadata) bool) {
		for id := range ids {
			if !sel.Matches(id.SeriesIndex) {
				continue
			}
			md := domain.ImageMetadata{
				Identifier:   id,
				ChannelCode:  channel.Encode(id.SeriesIndex, id.ColorChannelIndex),
				SeriesNumber: id.SeriesIndex,
				Timepoint:    id.TimeSeriesIndex,
				Depth:        id.FocalPlaneIndex,
				TileNumber:   singleTile,
				Well:         ignoredWell,
			}
			if !yield(md) {
				return
			}
		}
	}
}
