package imaging

import (
	"log/slog"

	"github.com/ynoir/obit-microscopy-core-technology/internal/channel"
	"github.com/ynoir/obit-microscopy-core-technology/internal/domain"
	"github.com/ynoir/obit-microscopy-core-technology/internal/errors"
)

// DefaultChannelName replaces an empty channel name.
const DefaultChannelName = "No name"

// ResolveChannel looks up the display name and color of one channel.
//
// When the selection excludes the code's series the channel is skipped and
// the second result is false. Index errors and colors that do not have
// exactly three components are CHANNEL_RESOLUTION errors.
func ResolveChannel(all []domain.SeriesMetadata, code channel.Code, sel Selection, logger *slog.Logger) (domain.Channel, bool, error) {
	if !sel.Matches(code.Series) {
		return domain.Channel{}, false, nil
	}

	if code.Series < 0 || code.Series >= len(all) {
		return domain.Channel{}, false, errors.ChannelResolutionf(
			"could not find metadata for series %d (channel %d): %d series available",
			code.Series, code.Channel, len(all))
	}
	series := all[code.Series]

	if code.Channel < 0 || code.Channel >= len(series.ChannelNames) {
		return domain.Channel{}, false, errors.ChannelResolutionf(
			"could not extract name for series %d channel %d: series has %d channel names",
			code.Series, code.Channel, len(series.ChannelNames))
	}
	name := series.ChannelNames[code.Channel]
	if name == "" {
		name = DefaultChannelName
	}

	if code.Channel >= len(series.ChannelColors) {
		return domain.Channel{}, false, errors.ChannelResolutionf(
			"could not extract color for series %d channel %d: series has %d channel colors",
			code.Series, code.Channel, len(series.ChannelColors))
	}
	rgb := series.ChannelColors[code.Channel]
	if len(rgb) != 3 {
		return domain.Channel{}, false, errors.ChannelResolutionf(
			"malformed color for series %d channel %d: expected 3 components, got %d",
			code.Series, code.Channel, len(rgb))
	}

	ch := domain.Channel{
		Code:  code.String(),
		Name:  name,
		Color: domain.RGB{R: rgb[0], G: rgb[1], B: rgb[2]},
	}

	if logger != nil {
		logger.Info("resolved channel",
			"channel_code", ch.Code,
			"name", ch.Name,
			"color", domain.FormatColor(rgb),
		)
	}

	return ch, true, nil
}
