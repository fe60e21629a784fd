package manifest

import (
	"encoding/xml"
	"maps"
	"slices"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/ynoir/obit-microscopy-core-technology/internal/domain"
)

// SeriesXML serializes the metadata of one series as a single
// MicroscopyFileSeries element with one attribute per metadata key.
// Keys are sorted; values are NFC-normalized valid UTF-8.
func SeriesXML(md domain.SeriesMetadata) string {
	return AttributesXML(TagMicroscopyFileSeries, md.Flatten())
}

// AttributesXML renders attrs as a self-closing element named tag.
func AttributesXML(tag string, attrs map[string]string) string {
	var b strings.Builder
	b.WriteByte('<')
	b.WriteString(tag)
	for _, k := range slices.Sorted(maps.Keys(attrs)) {
		b.WriteByte(' ')
		b.WriteString(clean(k))
		b.WriteString(`="`)
		// EscapeText only fails when the writer does.
		_ = xml.EscapeText(&b, []byte(clean(attrs[k])))
		b.WriteByte('"')
	}
	b.WriteString(" />")
	return b.String()
}

func clean(s string) string {
	return norm.NFC.String(strings.ToValidUTF8(s, "�"))
}
