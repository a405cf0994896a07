package daemonctl

import (
	"os"
	"syscall"
	"time"
)

// abortStart runs the escalating SIGTERM -> wait -> SIGKILL protocol of
// spec.md §4.F.6 against a half-started daemon. When isDirectChild is
// true, pid is the Launcher's direct child and waitDone is the
// launcher's own in-flight waitpid, already reaping pid in the
// background (see launcher.Result.WaitDone) — abortStart must consume
// that single waiter rather than starting a second Wait on the same
// PID, which races at the kernel level. When isDirectChild is false,
// pid comes from the PID file and liveness is polled via runningLocked().
func (h *Handle) abortStart(pid int, isDirectChild bool, waitDone <-chan struct{}) {
	h.emit(Aborting, "")
	if pid > 0 {
		signalPid(pid, syscall.SIGTERM)
	}

	deadline := h.now().Add(h.StartAbortTimeout)
	if h.waitForAbort(pid, isDirectChild, waitDone, deadline) {
		h.reconcilePidFileAfterAbort(pid, isDirectChild)
		return
	}

	if pid > 0 {
		signalPid(pid, syscall.SIGKILL)
	}
	// No timeout on the second wait: spec.md assumes the kernel reaps
	// promptly after SIGKILL.
	h.waitForAbort(pid, isDirectChild, waitDone, time.Time{})
	h.reconcilePidFileAfterAbort(pid, isDirectChild)
}

// waitForAbort blocks until the target is no longer running, or until
// deadline passes (a zero deadline means wait indefinitely). It returns
// true if the target exited before the deadline.
func (h *Handle) waitForAbort(pid int, isDirectChild bool, waitDone <-chan struct{}, deadline time.Time) bool {
	if isDirectChild && waitDone != nil {
		if deadline.IsZero() {
			<-waitDone
			return true
		}
		select {
		case <-waitDone:
			return true
		case <-time.After(time.Until(deadline)):
			return false
		}
	}

	poll := func() bool {
		running, _ := h.runningLocked()
		return !running
	}
	for {
		if poll() {
			return true
		}
		if !deadline.IsZero() && h.now().After(deadline) {
			return false
		}
		time.Sleep(h.PingInterval)
	}
}

// reconcilePidFileAfterAbort implements the direct-child branch of
// spec.md §4.F.6 step 2: if the daemon forked just before termination,
// its PID file no longer names the direct child's PID and must be left
// alone; otherwise it is deleted since we know the direct child (and
// thus the not-yet-forked daemon) is gone.
func (h *Handle) reconcilePidFileAfterAbort(pid int, isDirectChild bool) {
	if !isDirectChild {
		return
	}
	filePid, ok, err := h.pidFile.Read()
	if err != nil || !ok {
		return
	}
	if filePid == pid {
		_ = h.pidFile.Delete()
	}
}

func signalPid(pid int, sig syscall.Signal) {
	proc, err := os.FindProcess(pid)
	if err != nil {
		return
	}
	_ = proc.Signal(sig)
}

