package demucs

import (
	"stemsep/config"
)

// Command holds the fixed parts of a separation invocation. It is built
// once from config so every job sees the same binary, model and extra
// arguments regardless of when it starts.
type Command struct {
	Bin       string
	Model     string
	ExtraArgs []string
}

func NewCommand(cfg *config.Config) Command {
	return Command{
		Bin:       cfg.SepBin,
		Model:     cfg.SepModel,
		ExtraArgs: cfg.ExtraArgs,
	}
}

// Args builds the argument vector for one run: two-stem vocals mode, the
// configured model, zero random shifts, fixed overlap, a single worker and
// mp3 output, followed by any operator-supplied extra arguments, the output
// root, and the input path as the final positional argument.
func (c Command) Args(outRoot, inputPath string) []string {
	args := []string{
		"--two-stems=vocals",
		"-n", c.Model,
		"--shifts", "0",
		"--overlap", "0.05",
		"--jobs", "1",
		"--mp3",
	}
	args = append(args, c.ExtraArgs...)
	return append(args, "--out", outRoot, inputPath)
}
