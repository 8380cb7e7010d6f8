package demucs

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/apex/log"
	"github.com/cockroachdb/errors"
)

// Marks for classification failures. Missing vocals is detected on its
// own, regardless of whether an instrumental candidate was found.
var (
	ErrNoVocals       = errors.New("no vocals file in separation output")
	ErrNoInstrumental = errors.New("no instrumental file in separation output")
)

// StemFiles holds the two classified artifacts of a run as absolute paths
// into the tool's own output directory. Both are set on success.
type StemFiles struct {
	Vocals       string
	Instrumental string
}

// ClassifyStems scans the file names in dir and picks the vocals and the
// instrumental stem by substring heuristics, case-insensitively:
//
//   - vocals: contains "vocals" and is not prefixed "no_"
//   - instrumental: contains "no_vocals", "accompaniment" or "other"
//
// The heuristic is weak on purpose: the tool's file naming is not a stable
// contract. When several names satisfy one category the last in directory
// order wins. Subdirectories are ignored.
func ClassifyStems(dir string) (StemFiles, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return StemFiles{}, errors.Wrap(err, "reading separation output directory")
	}

	var stems StemFiles
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		low := strings.ToLower(entry.Name())
		full := filepath.Join(dir, entry.Name())
		if strings.Contains(low, "vocals") && !strings.HasPrefix(low, "no_") {
			stems.Vocals = full
		}
		if strings.Contains(low, "no_vocals") || strings.Contains(low, "accompaniment") || strings.Contains(low, "other") {
			stems.Instrumental = full
		}
	}

	if stems.Vocals == "" {
		return StemFiles{}, errors.Mark(
			errors.Newf("no vocals candidate among %d entries in %s", len(entries), dir),
			ErrNoVocals,
		)
	}
	if stems.Instrumental == "" {
		return StemFiles{}, errors.Mark(
			errors.Newf("no instrumental candidate among %d entries in %s", len(entries), dir),
			ErrNoInstrumental,
		)
	}

	log.WithFields(log.Fields{
		"vocals":       stems.Vocals,
		"instrumental": stems.Instrumental,
	}).Info("Classified separation stems")
	return stems, nil
}
