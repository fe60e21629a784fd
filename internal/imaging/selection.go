// Package imaging resolves channel names and colors from series metadata,
// classifies image identifiers into per-plane metadata and provides the
// dataset configurations handed to the repository when image datasets are
// created.
package imaging

import "strconv"

// Selection restricts processing to one series or lets all series through.
// The zero value selects all series.
type Selection struct {
	series int
	only   bool
}

// AllSeries selects every series.
func AllSeries() Selection {
	return Selection{}
}

// OnlySeries selects a single series.
func OnlySeries(series int) Selection {
	return Selection{series: series, only: true}
}

// Matches reports whether the series passes the selection.
func (s Selection) Matches(series int) bool {
	return !s.only || s.series == series
}

// Series returns the selected series and false when all series are selected.
func (s Selection) Series() (int, bool) {
	if !s.only {
		return 0, false
	}
	return s.series, true
}

// String implements fmt.Stringer.
func (s Selection) String() string {
	if !s.only {
		return "all"
	}
	return strconv.Itoa(s.series)
}
