package desktop

import (
	"sync"

	"github.com/cockroachdb/errors"
)

// ErrJobAlreadyRunning is returned when a separation is started while
// another one is still in flight.
var ErrJobAlreadyRunning = errors.New("a separation job is already running")

// JobStatus tracks the lifecycle of a separation job.
type JobStatus string

const (
	JobStatusIdle    JobStatus = "idle"
	JobStatusRunning JobStatus = "running"
	JobStatusDone    JobStatus = "done"
	JobStatusFailed  JobStatus = "failed"
)

// JobState is the UI-facing snapshot of the current job. Result paths are
// filled in once the job completes.
type JobState struct {
	ID           string    `json:"id"`
	InputPath    string    `json:"inputPath"`
	Status       JobStatus `json:"status"`
	Vocals       string    `json:"vocals,omitempty"`
	Instrumental string    `json:"instrumental,omitempty"`
	OutputDir    string    `json:"outputDir,omitempty"`
}

// Manager tracks the single allowed active job. The frontend disables the
// start control while a job runs; the manager is the guarantee behind it.
type Manager struct {
	mu      sync.RWMutex
	current JobState
}

// NewManager creates a manager in idle state.
func NewManager() *Manager {
	return &Manager{current: JobState{Status: JobStatusIdle}}
}

// Start claims the job slot. A finished job is replaced; a running one is
// not.
func (m *Manager) Start(id, inputPath string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.current.Status == JobStatusRunning {
		return ErrJobAlreadyRunning
	}

	m.current = JobState{
		ID:        id,
		InputPath: inputPath,
		Status:    JobStatusRunning,
	}
	return nil
}

// Complete records the located stem paths and releases the job slot.
func (m *Manager) Complete(vocals, instrumental, outputDir string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.current.Status = JobStatusDone
	m.current.Vocals = vocals
	m.current.Instrumental = instrumental
	m.current.OutputDir = outputDir
}

// Fail marks the current job failed and releases the job slot.
func (m *Manager) Fail() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.current.Status = JobStatusFailed
}

// Current returns a snapshot of the active or last finished job.
func (m *Manager) Current() JobState {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

// IsRunning reports whether a job is in flight.
func (m *Manager) IsRunning() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current.Status == JobStatusRunning
}
