package domain

import (
	"fmt"
	"strconv"
	"strings"
)

// Attribute keys used when series metadata is flattened into scalar attributes,
// either in a manifest series node or in the container metadata property.
const (
	SeriesAttrName         = "name"
	SeriesAttrChannelName  = "channelName"  // followed by the channel index
	SeriesAttrChannelColor = "channelColor" // followed by the channel index, value "r, g, b"
	SeriesAttrSizeZ        = "sizeZ"
	SeriesAttrSizeT        = "sizeT"
)

// SeriesMetadata is the metadata of one series of a microscopy file.
// ChannelNames and ChannelColors are index-aligned; a name may be empty.
type SeriesMetadata struct {
	Attributes    map[string]string `json:"attributes,omitempty"`
	Name          string            `json:"name"`
	ChannelNames  []string          `json:"channel_names"`
	ChannelColors [][]int           `json:"channel_colors"`
}

// NumChannels returns the number of channels of the series.
func (m SeriesMetadata) NumChannels() int {
	return len(m.ChannelNames)
}

// IntAttribute returns an integer acquisition attribute, or def when the
// attribute is missing or not an integer.
func (m SeriesMetadata) IntAttribute(key string, def int) int {
	v, ok := m.Attributes[key]
	if !ok {
		return def
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return def
	}
	return n
}

// Flatten returns the series as a flat attribute bag: the open attributes plus
// name, channelName<i> and channelColor<i>.
func (m SeriesMetadata) Flatten() map[string]string {
	out := make(map[string]string, len(m.Attributes)+1+2*len(m.ChannelNames))
	for k, v := range m.Attributes {
		out[k] = v
	}
	if m.Name != "" {
		out[SeriesAttrName] = m.Name
	}
	for i, name := range m.ChannelNames {
		out[SeriesAttrChannelName+strconv.Itoa(i)] = name
	}
	for i, color := range m.ChannelColors {
		out[SeriesAttrChannelColor+strconv.Itoa(i)] = FormatColor(color)
	}
	return out
}

// SeriesFromAttributes rebuilds series metadata from a flat attribute bag as
// produced by Flatten. Channels are read from index 0 upwards until neither a
// name nor a color exists for the index; a channel with only one of the two
// is an error.
func SeriesFromAttributes(attrs map[string]string) (SeriesMetadata, error) {
	m := SeriesMetadata{
		Attributes:    map[string]string{},
		ChannelNames:  []string{},
		ChannelColors: [][]int{},
	}

	for i := 0; ; i++ {
		nameKey := SeriesAttrChannelName + strconv.Itoa(i)
		colorKey := SeriesAttrChannelColor + strconv.Itoa(i)
		name, hasName := attrs[nameKey]
		color, hasColor := attrs[colorKey]
		if !hasName && !hasColor {
			break
		}
		if hasName != hasColor {
			return SeriesMetadata{}, fmt.Errorf("channel %d has a name or a color but not both", i)
		}
		rgb, err := ParseColor(color)
		if err != nil {
			return SeriesMetadata{}, fmt.Errorf("channel %d: %w", i, err)
		}
		m.ChannelNames = append(m.ChannelNames, name)
		m.ChannelColors = append(m.ChannelColors, rgb)
	}

	for k, v := range attrs {
		if k == SeriesAttrName {
			m.Name = v
			continue
		}
		if isChannelKey(k) {
			continue
		}
		m.Attributes[k] = v
	}

	return m, nil
}

// isChannelKey reports whether k is a channelName<i> or channelColor<i> key.
func isChannelKey(k string) bool {
	for _, prefix := range []string{SeriesAttrChannelName, SeriesAttrChannelColor} {
		if rest, ok := strings.CutPrefix(k, prefix); ok && rest != "" {
			if _, err := strconv.Atoi(rest); err == nil {
				return true
			}
		}
	}
	return false
}

// FormatColor renders color components as "r, g, b".
func FormatColor(c []int) string {
	parts := make([]string, len(c))
	for i, v := range c {
		parts[i] = strconv.Itoa(v)
	}
	return strings.Join(parts, ", ")
}

// ParseColor parses comma-separated color components. The number of
// components is not checked here.
func ParseColor(s string) ([]int, error) {
	if strings.TrimSpace(s) == "" {
		return []int{}, nil
	}
	fields := strings.Split(s, ",")
	out := make([]int, 0, len(fields))
	for _, f := range fields {
		v, err := strconv.Atoi(strings.TrimSpace(f))
		if err != nil {
			return nil, fmt.Errorf("invalid color component %q", f)
		}
		out = append(out, v)
	}
	return out, nil
}
