package manifest

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"

	"github.com/ynoir/obit-microscopy-core-technology/internal/errors"
)

// EnumerationFile is the file in the user folder that lists the manifests
// of a delivery, one path per line relative to the incoming folder.
const EnumerationFile = "data_structure.ois"

// ReadEnumeration reads the enumeration file at path and returns the absolute
// manifest paths it lists, resolved against incoming. Blank lines are skipped.
func ReadEnumeration(path, incoming string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Resourcef("file %s not found in %s", filepath.Base(path), filepath.Dir(path))
		}
		return nil, errors.Wrapf(err, errors.CodeResource, "open %s", path)
	}
	defer f.Close()

	var manifests []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.Trim(scanner.Text(), "\r\n")
		if strings.TrimSpace(line) == "" {
			continue
		}
		manifests = append(manifests, filepath.Join(incoming, line))
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrapf(err, errors.CodeResource, "read %s", path)
	}

	if len(manifests) == 0 {
		return nil, errors.Resourcef("%s lists no manifests", path)
	}
	return manifests, nil
}
