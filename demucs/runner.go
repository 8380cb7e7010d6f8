package demucs

import (
	"bufio"
	"bytes"
	"context"
	"io"
	"os/exec"
	"time"

	"stemsep/config"

	"github.com/apex/log"
	"github.com/cockroachdb/errors"
)

// A killed child can leave grandchildren (the tool forks its own workers)
// holding the output stream open. WaitDelay bounds how long Wait may block
// on them after cancellation before the pipes are closed.
const waitDelay = 3 * time.Second

// Runner executes the external separation tool.
type Runner struct {
	bin string
}

// NewRunner verifies the binary is reachable so a misconfigured install
// fails up front rather than on the first job.
func NewRunner(cfg *config.Config) (*Runner, error) {
	if _, err := exec.LookPath(cfg.SepBin); err != nil {
		return nil, errors.Wrapf(err, "separation binary not found or not in PATH: %s", cfg.SepBin)
	}
	return &Runner{bin: cfg.SepBin}, nil
}

// Run executes one separation and blocks until the child exits. Stderr is
// merged into stdout so the returned text is the single ordered stream the
// tool produced; the caller keeps it whether or not the run failed.
func (r *Runner) Run(ctx context.Context, args []string) (string, error) {
	logger := log.WithFields(log.Fields{
		"bin":  r.bin,
		"args": args,
	})
	logger.Info("Running separation command")

	cmd := exec.CommandContext(ctx, r.bin, args...)
	cmd.WaitDelay = waitDelay
	var output bytes.Buffer
	cmd.Stdout = &output
	cmd.Stderr = &output

	err := cmd.Run()
	text := output.String()
	if err != nil {
		return text, errors.Wrapf(err, "separation failed (exit code %d)", ExitCode(err))
	}

	logger.Debug(text)
	logger.Info("Finished separation command")
	return text, nil
}

// Stream executes one separation and delivers the merged output line by
// line to onLine as it arrives. Both std streams share one descriptor, so
// lines keep the order the tool wrote them.
func (r *Runner) Stream(ctx context.Context, args []string, onLine func(string)) error {
	logger := log.WithFields(log.Fields{
		"bin":  r.bin,
		"args": args,
	})
	logger.Info("Streaming separation command")

	cmd := exec.CommandContext(ctx, r.bin, args...)
	cmd.WaitDelay = waitDelay
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return errors.Wrap(err, "could not open output pipe")
	}
	cmd.Stderr = cmd.Stdout

	if err := cmd.Start(); err != nil {
		return errors.Wrapf(err, "could not start %s", r.bin)
	}

	sc := bufio.NewScanner(stdout)
	// Progress output can run long between newlines.
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		onLine(sc.Text())
	}
	scanErr := sc.Err()
	if scanErr != nil {
		// Keep draining so the child is not blocked on a full pipe.
		io.Copy(io.Discard, stdout)
	}

	if err := cmd.Wait(); err != nil {
		return errors.Wrapf(err, "separation failed (exit code %d)", ExitCode(err))
	}
	if scanErr != nil {
		// A clean exit with an aborted scan still means lines were lost.
		return errors.Wrap(scanErr, "reading separation output")
	}

	logger.Info("Finished separation command")
	return nil
}

// ExitCode extracts the child's exit status from a Run or Stream error.
// It returns -1 when the process never started or was killed by a signal.
func ExitCode(err error) int {
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode()
	}
	return -1
}
