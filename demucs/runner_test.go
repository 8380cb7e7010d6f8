package demucs

import (
	"bufio"
	"context"
	"os/exec"
	"testing"
	"time"

	"stemsep/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func shRunner(t *testing.T) *Runner {
	t.Helper()
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
	r, err := NewRunner(&config.Config{SepBin: "sh"})
	require.NoError(t, err)
	return r
}

func TestNewRunner(t *testing.T) {
	t.Run("rejects a binary that is not on PATH", func(t *testing.T) {
		_, err := NewRunner(&config.Config{SepBin: "definitely-not-a-real-separator"})
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "not found or not in PATH")
	})
}

func TestRunnerRun(t *testing.T) {
	t.Run("returns merged output in write order", func(t *testing.T) {
		r := shRunner(t)

		out, err := r.Run(context.Background(), []string{"-c", "echo one; echo two 1>&2; echo three"})
		assert.NoError(t, err)
		assert.Equal(t, "one\ntwo\nthree\n", out)
	})

	t.Run("nonzero exit keeps the captured output", func(t *testing.T) {
		r := shRunner(t)

		out, err := r.Run(context.Background(), []string{"-c", "echo boom 1>&2; exit 3"})
		assert.Error(t, err)
		assert.Contains(t, out, "boom")
		assert.Contains(t, err.Error(), "exit code 3")
		assert.Equal(t, 3, ExitCode(err))
	})

	t.Run("context cancellation kills the child", func(t *testing.T) {
		r := shRunner(t)

		ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
		defer cancel()

		start := time.Now()
		_, err := r.Run(ctx, []string{"-c", "sleep 30"})
		assert.Error(t, err)
		assert.Less(t, time.Since(start), 10*time.Second)
	})

	t.Run("cancellation is bounded when the child forked workers", func(t *testing.T) {
		r := shRunner(t)

		ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
		defer cancel()

		// The forked sleep inherits the output pipe and outlives its
		// parent, so only the wait bound gets the call back.
		start := time.Now()
		_, err := r.Run(ctx, []string{"-c", "sleep 30 & wait"})
		assert.Error(t, err)
		assert.Less(t, time.Since(start), 10*time.Second)
	})
}

func TestRunnerStream(t *testing.T) {
	t.Run("delivers lines in write order", func(t *testing.T) {
		r := shRunner(t)

		var lines []string
		err := r.Stream(context.Background(), []string{"-c", "echo one; echo two 1>&2; echo three"}, func(line string) {
			lines = append(lines, line)
		})
		assert.NoError(t, err)
		assert.Equal(t, []string{"one", "two", "three"}, lines)
	})

	t.Run("reports the exit error after the final line", func(t *testing.T) {
		r := shRunner(t)

		var lines []string
		err := r.Stream(context.Background(), []string{"-c", "echo progress; exit 7"}, func(line string) {
			lines = append(lines, line)
		})
		assert.Error(t, err)
		assert.Equal(t, []string{"progress"}, lines)
		assert.Contains(t, err.Error(), "exit code 7")
		assert.Equal(t, 7, ExitCode(err))
	})

	t.Run("cancellation is bounded when the child forked workers", func(t *testing.T) {
		r := shRunner(t)

		ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
		defer cancel()

		start := time.Now()
		err := r.Stream(ctx, []string{"-c", "sleep 30 & wait"}, func(string) {})
		assert.Error(t, err)
		assert.Less(t, time.Since(start), 10*time.Second)
	})

	t.Run("an overlong line is an error even on a clean exit", func(t *testing.T) {
		r := shRunner(t)

		var lines []string
		err := r.Stream(context.Background(), []string{"-c", "echo first; head -c 2097152 /dev/zero"}, func(line string) {
			lines = append(lines, line)
		})
		assert.Error(t, err)
		assert.ErrorIs(t, err, bufio.ErrTooLong)
		assert.Equal(t, []string{"first"}, lines)
	})
}

func TestExitCode(t *testing.T) {
	assert.Equal(t, -1, ExitCode(nil))
	assert.Equal(t, -1, ExitCode(context.Canceled))
}
