package job

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	"stemsep/config"
	"stemsep/demucs"

	"github.com/apex/log"
	"github.com/cockroachdb/errors"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/mem"
)

// Marks for result lookups and admission failures.
var (
	ErrInvalidPath    = errors.New("invalid result path")
	ErrResultNotFound = errors.New("result file not found")
	ErrThrottled      = errors.New("not enough system resources")
)

// Runner runs one separation to completion, returning the merged output.
type Runner interface {
	Run(ctx context.Context, args []string) (string, error)
}

// Processor owns the synchronous separation pipeline for the web surface:
// concurrency gate, resource check, run, locate, classify, publish.
type Processor struct {
	cfg    *config.Config
	cmd    demucs.Command
	runner Runner
	sem    chan struct{}
}

func NewProcessor(cfg *config.Config, runner Runner) *Processor {
	var sem chan struct{}
	if cfg.MaxConcurrency > 0 {
		sem = make(chan struct{}, cfg.MaxConcurrency)
	}
	return &Processor{
		cfg:    cfg,
		cmd:    demucs.NewCommand(cfg),
		runner: runner,
		sem:    sem,
	}
}

// Separate runs one job end to end and blocks the caller for the whole run.
// Once the tool has been started the returned Job is non-nil even on
// failure, carrying the captured output for diagnostics. Nothing is
// published unless classification succeeded for both stems.
func (p *Processor) Separate(ctx context.Context, inputPath string) (*Job, error) {
	if p.sem != nil {
		select {
		case p.sem <- struct{}{}:
			defer func() { <-p.sem }()
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	if err := p.checkResources(); err != nil {
		return nil, errors.Mark(errors.Wrap(err, "insufficient system resources"), ErrThrottled)
	}

	j := NewJob(p.cfg.ResultsDir, inputPath)
	if err := os.MkdirAll(j.RawDir, 0o755); err != nil {
		return nil, errors.Wrap(err, "could not create job directory")
	}

	logger := log.WithFields(log.Fields{
		"job":   j.ID,
		"input": inputPath,
	})
	logger.Info("Starting separation job")

	runCtx := ctx
	if p.cfg.SepTimeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, p.cfg.SepTimeout)
		defer cancel()
	}

	output, err := p.runner.Run(runCtx, p.cmd.Args(j.RawDir, inputPath))
	j.Output = output
	if err != nil {
		logger.WithField("output", output).WithError(err).Error("Separation run failed")
		return j, err
	}

	outDir, err := demucs.LocateOutput(j.RawDir, p.cmd.Model, j.BaseName)
	if err != nil {
		logger.WithError(err).Error("Could not locate separation output")
		return j, err
	}

	stems, err := demucs.ClassifyStems(outDir)
	if err != nil {
		logger.WithError(err).Error("Could not classify separation output")
		return j, err
	}

	if err := j.Publish(stems); err != nil {
		logger.WithError(err).Error("Could not publish stems")
		return j, err
	}

	logger.WithFields(log.Fields{
		"vocals":       j.Vocals,
		"instrumental": j.Instrumental,
	}).Info("Separation job completed")
	return j, nil
}

// ResolveResult maps a request-supplied relative path to a file under the
// results tree, refusing anything that escapes it.
func (p *Processor) ResolveResult(relPath string) (string, error) {
	full := filepath.Join(p.cfg.ResultsDir, relPath)
	rel, err := filepath.Rel(p.cfg.ResultsDir, full)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", errors.Mark(errors.Newf("path escapes results root: %s", relPath), ErrInvalidPath)
	}

	info, err := os.Stat(full)
	if err != nil || info.IsDir() {
		return "", errors.Mark(errors.Newf("no result at %s", relPath), ErrResultNotFound)
	}
	return full, nil
}

// StartJanitor begins periodic removal of expired job directories. It is a
// no-op unless RESULTS_LIFETIME is set; the default keeps results forever.
func (p *Processor) StartJanitor(ctx context.Context) {
	if p.cfg.ResultsLifetime <= 0 {
		return
	}
	log.WithFields(log.Fields{
		"lifetime": p.cfg.ResultsLifetime.String(),
	}).Info("Results janitor started")
	go p.cleanupLoop(ctx)
}

func (p *Processor) cleanupLoop(ctx context.Context) {
	ticker := time.NewTicker(p.cfg.ResultsLifetime / 4) // Check 4 times per lifetime
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info("Results janitor shutting down")
			return
		case <-ticker.C:
			p.cleanupExpired()
		}
	}
}

func (p *Processor) cleanupExpired() {
	entries, err := os.ReadDir(p.cfg.ResultsDir)
	if err != nil {
		log.WithError(err).Warn("Could not read results directory")
		return
	}

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if time.Since(info.ModTime()) > p.cfg.ResultsLifetime {
			dir := filepath.Join(p.cfg.ResultsDir, entry.Name())
			log.WithFields(log.Fields{
				"dir": dir,
			}).Info("Removing expired job directory")
			if err := os.RemoveAll(dir); err != nil {
				log.WithError(err).Warn("Could not remove expired job directory")
			}
		}
	}
}

// checkResources verifies the host has enough headroom to start another
// run. A zero threshold disables its check; failures to read a metric are
// logged and skipped rather than blocking the job.
func (p *Processor) checkResources() error {
	if p.cfg.ThrottleCPU > 0 {
		pct, err := cpu.Percent(time.Second, false)
		if err != nil {
			log.WithError(err).Warn("Could not read CPU usage")
		} else if len(pct) > 0 && pct[0] > (100.0-p.cfg.ThrottleCPU) {
			return errors.Newf("not enough idle CPU: current usage %.2f%%, idle threshold %.2f%%", pct[0], p.cfg.ThrottleCPU)
		}
	}

	if p.cfg.ThrottleFreeMem > 0 {
		vm, err := mem.VirtualMemory()
		if err != nil {
			log.WithError(err).Warn("Could not read memory usage")
		} else if vm.Available < uint64(p.cfg.ThrottleFreeMem) {
			return errors.Newf("not enough free memory: available %d, required %d", vm.Available, p.cfg.ThrottleFreeMem)
		}
	}

	if p.cfg.ThrottleFreeDisk > 0 {
		d, err := disk.Usage(p.cfg.ResultsDir)
		if err != nil {
			log.WithError(err).Warn("Could not read disk usage for results directory")
		} else if d.Free < uint64(p.cfg.ThrottleFreeDisk) {
			return errors.Newf("not enough free disk space: available %d, required %d", d.Free, p.cfg.ThrottleFreeDisk)
		}
	}
	return nil
}
