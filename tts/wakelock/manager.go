// Package wakelock keeps the machine awake while an article is being read.
package wakelock

import (
	"errors"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/dgnsrekt/readaloud/tts"
)

// KindIdle prevents idle sleep but allows the display to turn off.
const KindIdle = "idle"

// Manager holds at most one wake lock on behalf of the playback scheduler.
//
// Acquisition and release failures are logged and otherwise ignored:
// playback never depends on the lock being held.
type Manager struct {
	mu      sync.Mutex
	lock    tts.WakeLock
	kind    string
	enabled bool
	handle  tts.WakeHandle
	logger  *log.Logger
}

// NewManager creates a manager over lock. A nil lock disables the manager.
func NewManager(lock tts.WakeLock, enabled bool, logger *log.Logger) *Manager {
	if logger == nil {
		logger = log.Default().WithPrefix("wakelock")
	}
	return &Manager{
		lock:    lock,
		kind:    KindIdle,
		enabled: enabled && lock != nil,
		logger:  logger,
	}
}

// Acquire takes the lock if the feature is enabled and the lock is not
// already held.
func (m *Manager) Acquire() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.enabled || m.handle != nil {
		return
	}

	handle, err := m.lock.Acquire(m.kind)
	if err != nil {
		if errors.Is(err, tts.ErrWakeLockUnsupported) {
			m.logger.Debug("Wake lock unavailable", "error", err)
		} else {
			m.logger.Warn("Failed to acquire wake lock", "error", err)
		}
		return
	}

	m.handle = handle
	m.logger.Debug("Wake lock acquired", "kind", m.kind)
}

// Release drops the lock if it is held.
func (m *Manager) Release() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.release()
}

func (m *Manager) release() {
	if m.handle == nil {
		return
	}
	if err := m.handle.Release(); err != nil {
		m.logger.Warn("Failed to release wake lock", "error", err)
	}
	m.handle = nil
	m.logger.Debug("Wake lock released")
}

// SetEnabled turns the feature on or off. Disabling releases a held lock;
// enabling does not acquire one, the caller does that if playback is active.
func (m *Manager) SetEnabled(enabled bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.enabled = enabled && m.lock != nil
	if !m.enabled {
		m.release()
	}
}

// Enabled reports whether the feature is on.
func (m *Manager) Enabled() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.enabled
}

// Held reports whether a lock is currently held.
func (m *Manager) Held() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.handle != nil
}
