package job

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"stemsep/demucs"

	"github.com/cockroachdb/errors"
	"github.com/lithammer/shortuuid/v4"
)

// Job is one end-to-end separation of one input file. The ID namespaces
// the job's slice of the results tree so concurrent jobs cannot collide.
type Job struct {
	ID           string    `json:"id"`
	InputPath    string    `json:"-"`
	BaseName     string    `json:"baseName"`
	Dir          string    `json:"-"` // <resultsDir>/<id>, published stems at its root
	RawDir       string    `json:"-"` // Dir/raw, the tool's own output tree
	Vocals       string    `json:"vocals,omitempty"`
	Instrumental string    `json:"instrumental,omitempty"`
	Output       string    `json:"-"` // captured tool output, kept for diagnostics
	CreatedAt    time.Time `json:"createdAt"`
}

func NewJob(resultsDir, inputPath string) *Job {
	id := fmt.Sprintf("%s_%d", shortuuid.New(), time.Now().Unix())
	base := filepath.Base(inputPath)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	dir := filepath.Join(resultsDir, id)

	return &Job{
		ID:        id,
		InputPath: inputPath,
		BaseName:  base,
		Dir:       dir,
		RawDir:    filepath.Join(dir, "raw"),
		CreatedAt: time.Now(),
	}
}

// Publish copies the classified stems to the top of the job directory under
// their stable names, <base>_vocals<ext> and <base>_instrumental<ext>.
// Destinations are truncated on create, so publishing the same job twice
// overwrites rather than duplicates.
func (j *Job) Publish(stems demucs.StemFiles) error {
	vocalsOut := filepath.Join(j.Dir, j.BaseName+"_vocals"+filepath.Ext(stems.Vocals))
	if err := copyFile(stems.Vocals, vocalsOut); err != nil {
		return errors.Wrap(err, "publishing vocals stem")
	}

	instOut := filepath.Join(j.Dir, j.BaseName+"_instrumental"+filepath.Ext(stems.Instrumental))
	if err := copyFile(stems.Instrumental, instOut); err != nil {
		return errors.Wrap(err, "publishing instrumental stem")
	}

	j.Vocals = vocalsOut
	j.Instrumental = instOut
	return nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
