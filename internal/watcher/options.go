package watcher

import (
	"path/filepath"
	"strings"
	"time"
)

// DefaultMarkerPrefix is the file name prefix of the marker that announces
// a complete incoming folder: .MARKER_is_finished_<folder>.
const DefaultMarkerPrefix = ".MARKER_is_finished_"

// Options configures the marker watcher behavior.
type Options struct {
	MarkerPrefix string
	SettleDelay  time.Duration
}

// setDefaults applies default values to unset options.
func (o *Options) setDefaults() {
	if o.MarkerPrefix == "" {
		o.MarkerPrefix = DefaultMarkerPrefix
	}
	if o.SettleDelay == 0 {
		o.SettleDelay = 100 * time.Millisecond
	}
}

// folderName returns the incoming folder announced by the marker at path.
// ok is false when path is not a marker.
func (o *Options) folderName(path string) (string, bool) {
	base := filepath.Base(path)
	name, ok := strings.CutPrefix(base, o.MarkerPrefix)
	if !ok || name == "" || name == "." || name == ".." {
		return "", false
	}
	return name, true
}

// MarkerName returns the marker file name for an incoming folder.
func (o Options) MarkerName(folder string) string {
	o.setDefaults()
	return o.MarkerPrefix + folder
}
