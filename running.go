package daemonctl

import "github.com/relaywatch/daemonctl/internal/pidfile"

// Pid returns the PID recorded in the PID file, if any. It takes only a
// shared lock and returns quickly.
func (h *Handle) Pid() (int, bool) {
	var pid int
	var ok bool
	_ = h.lock.WithShared(func() error {
		pid, ok, _ = h.pidFile.Read()
		return nil
	})
	return pid, ok
}

// Running reports whether the daemon is currently alive. If the PID
// file names a PID that is no longer alive, the stale PID file is
// deleted and Running reports false.
func (h *Handle) Running() bool {
	running, _ := h.running()
	return running
}

// running is the internal, error-surfacing variant used by the
// Supervisor's own state machine. It takes its own shared lock; callers
// that already hold h.lock's exclusive section (startLocked, stopLocked,
// abortStart, Connect's exclusive branch) must call runningLocked
// instead, since sync.RWMutex is not reentrant.
func (h *Handle) running() (bool, error) {
	var running bool
	var readErr error
	err := h.lock.WithShared(func() error {
		running, readErr = h.runningLocked()
		return readErr
	})
	if err != nil {
		return false, err
	}
	return running, readErr
}

// runningLocked implements the same liveness/staleness check as
// running, without acquiring h.lock. The caller must already hold
// either the shared or exclusive lock on h.lock.
func (h *Handle) runningLocked() (bool, error) {
	pid, ok, err := h.pidFile.Read()
	if err != nil {
		return false, err
	}
	if !ok {
		return false, nil
	}
	alive, err := pidfile.Alive(pid)
	if err != nil {
		return false, err
	}
	if alive {
		return true, nil
	}
	return false, h.pidFile.Delete()
}
