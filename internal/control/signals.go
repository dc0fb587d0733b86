// Package control handles operator signaling for a running Beacon server via
// the runtime directory. Dropping a file into <dir>/signals changes server
// behavior without a redeploy: "drain" stops accepting new calls, "stop"
// requests shutdown once live calls finish.
package control

import (
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Manager watches the signals directory and caches observed signals.
type Manager struct {
	runtimeDir string

	mu         sync.RWMutex
	stopSignal bool
	drain      bool

	watcher *fsnotify.Watcher
	done    chan struct{}
}

// NewManager creates a signal manager rooted at runtimeDir. The directory is
// created if missing. A failed watcher is not fatal; ShouldStop and
// ShouldDrain fall back to polling the filesystem.
func NewManager(runtimeDir string) (*Manager, error) {
	signalsDir := filepath.Join(runtimeDir, "signals")
	if err := os.MkdirAll(signalsDir, 0755); err != nil {
		return nil, err
	}

	m := &Manager{
		runtimeDir: runtimeDir,
		done:       make(chan struct{}),
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return m, nil
	}
	if err := watcher.Add(signalsDir); err != nil {
		watcher.Close()
		return m, nil
	}
	m.watcher = watcher
	go m.watchSignals()

	return m, nil
}

// watchSignals monitors the signals directory for stop/drain files.
func (m *Manager) watchSignals() {
	for {
		select {
		case <-m.done:
			return
		case event, ok := <-m.watcher.Events:
			if !ok {
				return
			}
			if event.Op&fsnotify.Create == 0 && event.Op&fsnotify.Write == 0 {
				continue
			}
			m.mu.Lock()
			switch filepath.Base(event.Name) {
			case "stop":
				m.stopSignal = true
			case "drain":
				m.drain = true
			}
			m.mu.Unlock()
		case <-m.watcher.Errors:
			// Ignore errors, keep watching
		}
	}
}

func (m *Manager) signalPath(name string) string {
	return filepath.Join(m.runtimeDir, "signals", name)
}

// ShouldStop returns true once a stop signal has been received.
func (m *Manager) ShouldStop() bool {
	// Also check the file directly in case the watcher missed it.
	if _, err := os.Stat(m.signalPath("stop")); err == nil {
		m.mu.Lock()
		m.stopSignal = true
		m.mu.Unlock()
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.stopSignal
}

// ShouldDrain returns true once a drain signal has been received.
func (m *Manager) ShouldDrain() bool {
	if _, err := os.Stat(m.signalPath("drain")); err == nil {
		m.mu.Lock()
		m.drain = true
		m.mu.Unlock()
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.drain
}

// SendStop creates a stop signal file.
func (m *Manager) SendStop() error {
	return os.WriteFile(m.signalPath("stop"), []byte(time.Now().Format(time.RFC3339)), 0644)
}

// SendDrain creates a drain signal file.
func (m *Manager) SendDrain() error {
	return os.WriteFile(m.signalPath("drain"), []byte(time.Now().Format(time.RFC3339)), 0644)
}

// ClearSignals removes all signal files and resets cached state.
func (m *Manager) ClearSignals() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stopSignal = false
	m.drain = false
	os.Remove(m.signalPath("stop"))
	os.Remove(m.signalPath("drain"))
}

// Close shuts down the watcher.
func (m *Manager) Close() {
	close(m.done)
	if m.watcher != nil {
		m.watcher.Close()
	}
}
