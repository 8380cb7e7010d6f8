package demucs

import (
	"io/fs"
	"os"
	"path/filepath"

	"github.com/apex/log"
	"github.com/cockroachdb/errors"
)

// ErrOutputNotFound marks locate failures: the tool exited cleanly but no
// output directory for the input could be found under the output root.
var ErrOutputNotFound = errors.New("separation output directory not found")

// LocateOutput finds the directory the tool wrote stems into for one input.
// The expected location is <outRoot>/<model>/<baseName>; the tool's layout
// is not guaranteed across versions, so when the expected path is missing
// the whole root is walked and the first directory strictly below it named
// baseName wins. Best effort: an unrelated same-named directory can match.
func LocateOutput(outRoot, model, baseName string) (string, error) {
	expected := filepath.Join(outRoot, model, baseName)
	if info, err := os.Stat(expected); err == nil && info.IsDir() {
		return expected, nil
	}

	log.WithFields(log.Fields{
		"expected": expected,
	}).Info("Expected output directory missing, scanning output root")

	var found string
	walkErr := filepath.WalkDir(outRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil // skip unreadable subtrees
		}
		if path == outRoot || !d.IsDir() {
			return nil
		}
		if d.Name() == baseName {
			found = path
			return fs.SkipAll
		}
		return nil
	})
	if walkErr != nil {
		return "", errors.Wrap(walkErr, "scanning output root")
	}
	if found == "" {
		return "", errors.Mark(
			errors.Newf("no directory named %q under %s", baseName, outRoot),
			ErrOutputNotFound,
		)
	}

	log.WithFields(log.Fields{
		"dir": found,
	}).Info("Located separation output directory")
	return found, nil
}
