package jobs

import (
	"errors"
	"sync"

	"github.com/MKPie/Fatality/internal/domain"
)

// ErrJobAlreadyRunning is returned when starting a second active job.
var ErrJobAlreadyRunning = errors.New("job already running")

// ErrNoRunningJob is returned when stop is requested for idle state.
var ErrNoRunningJob = errors.New("no running job")

// Manager tracks the single allowed foreground job and its phase
// transitions. Progress and completion updates are folded only while
// the job is processing, so events arriving after a stop or terminal
// transition fall through without effect.
type Manager struct {
	mu      sync.RWMutex
	current domain.JobSnapshot
}

// NewManager creates a manager in idle state.
func NewManager() *Manager {
	return &Manager{
		current: domain.JobSnapshot{
			Phase: domain.JobPhaseIdle,
		},
	}
}

// Begin moves the manager into processing for the given job kind with
// a fresh snapshot. Returns ErrJobAlreadyRunning while a job is
// processing.
func (m *Manager) Begin(kind domain.JobKind) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !isValidTransition(m.current.Phase, domain.JobPhaseProcessing) {
		return ErrJobAlreadyRunning
	}

	m.current = domain.JobSnapshot{
		Phase: domain.JobPhaseProcessing,
		Kind:  kind,
	}
	return nil
}

// AttachSession records the server-assigned session identifier for
// the processing job. Ignored in any other phase.
func (m *Manager) AttachSession(session string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.current.Phase == domain.JobPhaseProcessing {
		m.current.Session = session
	}
}

// SetProgress folds a progress update into the processing job,
// last-write-wins. Reports whether the update was applied.
func (m *Manager) SetProgress(progress int, currentTask string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.current.Phase != domain.JobPhaseProcessing {
		return false
	}

	if progress < 0 {
		progress = 0
	}
	if progress > 100 {
		progress = 100
	}
	m.current.Progress = progress
	if currentTask != "" {
		m.current.CurrentTask = currentTask
	}
	return true
}

// Complete moves the processing job to its terminal phase. Success
// forces progress to 100. Reports whether a transition happened.
func (m *Manager) Complete(success bool) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	to := domain.JobPhaseError
	if success {
		to = domain.JobPhaseCompleted
	}
	if !isValidTransition(m.current.Phase, to) {
		return false
	}

	m.current.Phase = to
	if success {
		m.current.Progress = 100
	}
	return true
}

// Stop moves the processing job straight back to idle, dropping its
// progress. Returns ErrNoRunningJob in any other phase.
func (m *Manager) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.current.Phase != domain.JobPhaseProcessing {
		return ErrNoRunningJob
	}

	m.current = domain.JobSnapshot{Phase: domain.JobPhaseIdle}
	return nil
}

// Reset clears job metadata and returns the manager to idle.
func (m *Manager) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.current = domain.JobSnapshot{Phase: domain.JobPhaseIdle}
}

// Snapshot returns the current job view.
func (m *Manager) Snapshot() domain.JobSnapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

// IsProcessing reports whether a job is currently in flight.
func (m *Manager) IsProcessing() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current.Phase == domain.JobPhaseProcessing
}

// isValidTransition enforces the allowed job state machine edges.
func isValidTransition(from, to domain.JobPhase) bool {
	switch from {
	case domain.JobPhaseIdle, domain.JobPhaseCompleted, domain.JobPhaseError:
		return to == domain.JobPhaseProcessing || to == domain.JobPhaseIdle
	case domain.JobPhaseProcessing:
		return to == domain.JobPhaseCompleted || to == domain.JobPhaseError || to == domain.JobPhaseIdle
	default:
		return false
	}
}
