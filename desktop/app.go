package desktop

import (
	"context"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	goruntime "runtime"
	"strings"
	"sync"
	"time"

	"stemsep/config"
	"stemsep/demucs"

	"github.com/apex/log"
	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/errors/markers"
	"github.com/lithammer/shortuuid/v4"
	"github.com/wailsapp/wails/v2"
	"github.com/wailsapp/wails/v2/pkg/options"
	"github.com/wailsapp/wails/v2/pkg/options/assetserver"
	wailsruntime "github.com/wailsapp/wails/v2/pkg/runtime"
)

const (
	separatorBin   = "demucs"
	separatorModel = "htdemucs_ft"
)

var audioDialogFilters = []wailsruntime.FileFilter{
	{
		DisplayName: "Audio files",
		Pattern:     "*.mp3;*.wav;*.m4a;*.flac",
	},
	{
		DisplayName: "All files",
		Pattern:     "*",
	},
}

// toolRunner isolates the separation tool behind an interface.
type toolRunner interface {
	Stream(ctx context.Context, args []string, onLine func(string)) error
}

// App wires settings, the job manager, and the separation tool behind the
// bindings the frontend calls.
type App struct {
	store     *SettingsStore
	jobs      *Manager
	events    *EventBus
	cmd       demucs.Command
	assets    fs.FS
	newRunner func() (toolRunner, error)

	mu         sync.Mutex
	runtimeCtx context.Context
}

// New builds the application with the default settings location.
func New() (*App, error) {
	return NewWithAssets(nil)
}

// NewWithAssets builds the application and optionally configures embedded
// frontend assets.
func NewWithAssets(assets fs.FS) (*App, error) {
	path, err := SettingsPath()
	if err != nil {
		return nil, err
	}

	return &App{
		store:     NewSettingsStore(path),
		jobs:      NewManager(),
		events:    NewEventBus(1000),
		cmd:       demucs.Command{Bin: separatorBin, Model: separatorModel},
		assets:    assets,
		newRunner: newToolRunner,
	}, nil
}

// newToolRunner builds the runner lazily so a missing tool install is a
// job-start failure with a clear message, not a launch crash.
func newToolRunner() (toolRunner, error) {
	return demucs.NewRunner(&config.Config{SepBin: separatorBin})
}

// Run starts the desktop application and binds the backend methods.
func (a *App) Run() error {
	assetOptions := &assetserver.Options{}
	if a.assets != nil {
		assetOptions.Assets = a.assets
	} else {
		assetOptions.Handler = http.FileServer(http.Dir("./frontend"))
	}

	return wails.Run(&options.App{
		Title:       "Vocal Separator (Demucs)",
		Width:       720,
		Height:      480,
		AssetServer: assetOptions,
		OnStartup:   a.Startup,
		OnShutdown: func(ctx context.Context) {
			a.mu.Lock()
			defer a.mu.Unlock()
			a.runtimeCtx = nil
		},
		Bind: []interface{}{a},
	})
}

// Startup stores the runtime context used for dialogs and push events.
func (a *App) Startup(ctx context.Context) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.runtimeCtx = ctx
}

// Diagnostics reports whether the separation tool is reachable.
func (a *App) Diagnostics() DiagnosticReport {
	return checkSeparator(a.cmd.Bin)
}

// GetSettings loads the persisted settings.
func (a *App) GetSettings() (Settings, error) {
	return a.store.Load()
}

// SaveSettings trims and persists settings. An empty output root is kept as
// is; the default is applied when a job starts.
func (a *App) SaveSettings(settings Settings) (Settings, error) {
	settings.OutputRoot = strings.TrimSpace(settings.OutputRoot)
	if err := a.store.Save(settings); err != nil {
		return Settings{}, err
	}
	return settings, nil
}

// PickInputFile opens a native file dialog for audio selection.
func (a *App) PickInputFile() (string, error) {
	ctx, err := a.runtimeContext()
	if err != nil {
		return "", err
	}

	path, err := wailsruntime.OpenFileDialog(ctx, wailsruntime.OpenDialogOptions{
		Title:   "Pick audio file",
		Filters: audioDialogFilters,
	})
	if err != nil {
		return "", err
	}

	return strings.TrimSpace(path), nil
}

// PickOutputRoot opens a native directory picker for the output root.
func (a *App) PickOutputRoot() (string, error) {
	ctx, err := a.runtimeContext()
	if err != nil {
		return "", err
	}

	path, err := wailsruntime.OpenDirectoryDialog(ctx, wailsruntime.OpenDialogOptions{
		Title: "Choose output folder",
	})
	if err != nil {
		return "", err
	}

	return strings.TrimSpace(path), nil
}

// StartSeparation validates the input, claims the single job slot, and runs
// the separation on a background goroutine. The returned snapshot is the
// freshly started job.
func (a *App) StartSeparation(inputPath string) (JobState, error) {
	inputPath = strings.TrimSpace(inputPath)
	if inputPath == "" {
		return JobState{}, errors.New("choose an audio file first")
	}
	if _, err := os.Stat(inputPath); err != nil {
		return JobState{}, errors.Wrapf(err, "audio file is not readable: %s", inputPath)
	}

	settings, err := a.store.Load()
	if err != nil {
		return JobState{}, err
	}
	outRoot := strings.TrimSpace(settings.OutputRoot)
	if outRoot == "" {
		outRoot = defaultOutputRoot()
	}
	if err := os.MkdirAll(outRoot, 0o755); err != nil {
		return JobState{}, errors.Wrapf(err, "could not create output folder %s", outRoot)
	}

	runner, err := a.newRunner()
	if err != nil {
		return JobState{}, err
	}

	id := fmt.Sprintf("%s_%d", shortuuid.New(), time.Now().Unix())
	if err := a.jobs.Start(id, inputPath); err != nil {
		return JobState{}, err
	}

	args := a.cmd.Args(outRoot, inputPath)
	a.publishStatus(id, JobStatusRunning, "Separation started")
	a.publishLog(id, "$ "+strings.Join(append([]string{a.cmd.Bin}, args...), " "))

	go a.runSeparationJob(id, inputPath, outRoot, args, runner)
	return a.jobs.Current(), nil
}

// CurrentJob returns a snapshot of the active or last finished job.
func (a *App) CurrentJob() JobState {
	return a.jobs.Current()
}

// JobEvents returns all events with sequence greater than sinceSeq.
func (a *App) JobEvents(sinceSeq int64) []Event {
	return a.events.Since(sinceSeq)
}

// OpenResultsFolder opens the last finished job's output folder in the host
// file manager.
func (a *App) OpenResultsFolder() error {
	target := a.jobs.Current().OutputDir
	if target == "" {
		return errors.New("no output yet, run a separation first")
	}
	if _, err := os.Stat(target); err != nil {
		return errors.Wrapf(err, "output folder is not accessible: %s", target)
	}
	return openInFileManager(target)
}

// runSeparationJob executes the tool and reports the outcome on the event
// log. Stems are left where the tool wrote them; only their paths are
// published.
func (a *App) runSeparationJob(jobID, inputPath, outRoot string, args []string, runner toolRunner) {
	logger := log.WithFields(log.Fields{
		"job":   jobID,
		"input": inputPath,
	})

	err := runner.Stream(context.Background(), args, func(line string) {
		a.publishLog(jobID, line)
	})
	if err != nil {
		logger.WithError(err).Error("Separation run failed")
		a.failJob(jobID, describeJobFailure(err))
		return
	}

	outDir, err := demucs.LocateOutput(outRoot, a.cmd.Model, baseName(inputPath))
	if err != nil {
		logger.WithError(err).Error("Could not locate separation output")
		a.failJob(jobID, describeJobFailure(err))
		return
	}

	stems, err := demucs.ClassifyStems(outDir)
	if err != nil {
		logger.WithError(err).Error("Could not classify separation stems")
		a.failJob(jobID, describeJobFailure(err))
		return
	}

	a.publishLog(jobID, "=== Done ===")
	a.publishLog(jobID, "Vocals:       "+stems.Vocals)
	a.publishLog(jobID, "Instrumental: "+stems.Instrumental)
	a.publishLog(jobID, "Folder:       "+outDir)
	a.publishEvent(Event{
		JobID:        jobID,
		Type:         EventTypeResult,
		Status:       JobStatusDone,
		Message:      "Separation finished",
		Vocals:       stems.Vocals,
		Instrumental: stems.Instrumental,
		OutputDir:    outDir,
	})
	// Release the job slot only after every event is on the log.
	a.jobs.Complete(stems.Vocals, stems.Instrumental, outDir)
	logger.Info("Separation job completed")
}

// failJob pushes both a log line and an error event, then marks the job
// failed; the frontend shows error events in a message box.
func (a *App) failJob(jobID, message string) {
	a.publishLog(jobID, "[ERROR] "+message)
	a.publishEvent(Event{
		JobID:   jobID,
		Type:    EventTypeError,
		Status:  JobStatusFailed,
		Message: message,
	})
	a.jobs.Fail()
}

// describeJobFailure maps a pipeline error to the message shown in the
// frontend. Each failure class gets its own message so a locate failure is
// distinguishable from a classification one.
func describeJobFailure(err error) string {
	switch {
	case markers.Is(err, demucs.ErrOutputNotFound):
		return "Could not find output folder."
	case markers.Is(err, demucs.ErrNoVocals):
		return "Could not find a vocals file in the output folder."
	case markers.Is(err, demucs.ErrNoInstrumental):
		return "Could not find an instrumental file in the output folder."
	default:
		return err.Error()
	}
}

// publishStatus sends a normalized status event.
func (a *App) publishStatus(jobID string, status JobStatus, message string) {
	a.publishEvent(Event{
		JobID:   jobID,
		Type:    EventTypeStatus,
		Status:  status,
		Message: message,
	})
}

// publishLog forwards one line of output to the event log.
func (a *App) publishLog(jobID, line string) {
	a.publishEvent(Event{
		JobID:   jobID,
		Type:    EventTypeLog,
		Message: line,
	})
}

// publishEvent stores the event and pushes it to the frontend when the
// runtime is up.
func (a *App) publishEvent(event Event) {
	published := a.events.Publish(event)

	a.mu.Lock()
	ctx := a.runtimeCtx
	a.mu.Unlock()
	if ctx != nil {
		wailsruntime.EventsEmit(ctx, "job:event", published)
	}
}

// runtimeContext returns the runtime context required by the dialog APIs.
func (a *App) runtimeContext() (context.Context, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.runtimeCtx == nil {
		return nil, errors.New("runtime context is not initialized")
	}
	return a.runtimeCtx, nil
}

// baseName strips the directory and extension from an input path.
func baseName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// openInFileManager launches the platform file manager for the given path.
func openInFileManager(path string) error {
	var cmd *exec.Cmd
	switch goruntime.GOOS {
	case "darwin":
		cmd = exec.Command("open", path)
	case "windows":
		cmd = exec.Command("explorer", filepath.Clean(path))
	default:
		cmd = exec.Command("xdg-open", path)
	}

	if err := cmd.Start(); err != nil {
		return errors.Wrap(err, "could not open file manager")
	}
	return nil
}
