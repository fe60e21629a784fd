// Package channel encodes and decodes the canonical channel code that
// identifies one channel of one series, in the form SERIES-<n>_CHANNEL-<m>.
package channel

import (
	"regexp"
	"strconv"

	"github.com/ynoir/obit-microscopy-core-technology/internal/errors"
)

// codePattern matches a whole channel code and nothing else.
var codePattern = regexp.MustCompile(`^SERIES-(\d+)_CHANNEL-(\d+)$`)

// Code addresses a channel within a series.
type Code struct {
	Series  int
	Channel int
}

// String returns the canonical encoding of the code.
func (c Code) String() string {
	return Encode(c.Series, c.Channel)
}

// Encode builds SERIES-<series>_CHANNEL-<channel> with decimal, non-padded integers.
func Encode(series, channel int) string {
	return "SERIES-" + strconv.Itoa(series) + "_CHANNEL-" + strconv.Itoa(channel)
}

// Decode parses a channel code. Anything that is not exactly
// SERIES-<digits>_CHANNEL-<digits> is rejected with a MALFORMED_CHANNEL_CODE error.
func Decode(code string) (Code, error) {
	m := codePattern.FindStringSubmatch(code)
	if m == nil {
		return Code{}, errors.MalformedChannelCodef("could not extract series and channel number from %q", code)
	}

	series, err := strconv.Atoi(m[1])
	if err != nil {
		return Code{}, errors.Wrapf(err, errors.CodeMalformedChannelCode, "series index in %q", code)
	}
	ch, err := strconv.Atoi(m[2])
	if err != nil {
		return Code{}, errors.Wrapf(err, errors.CodeMalformedChannelCode, "channel index in %q", code)
	}

	return Code{Series: series, Channel: ch}, nil
}
