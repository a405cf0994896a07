package daemonctl

import (
	"context"
	"time"

	"github.com/relaywatch/daemonctl/internal/launcher"
	"github.com/relaywatch/daemonctl/internal/ping"
)

// Start begins the daemon per spec.md §4.F.1. It runs under an exclusive
// lock, so a concurrent Stop, Restart, or another Start on any handle
// sharing this lock file blocks until this one returns.
func (h *Handle) Start(ctx context.Context) error {
	var result error
	if err := h.lock.WithExclusive(func() error {
		result = h.startLocked(ctx)
		return nil
	}); err != nil {
		return err
	}
	return result
}

func (h *Handle) startLocked(ctx context.Context) (err error) {
	defer func() {
		if err != nil && err != ErrAlreadyStarted {
			h.emit(StartFailed, err.Error())
		}
	}()

	running, err := h.runningLocked()
	if err != nil {
		return err
	}
	if running {
		return ErrAlreadyStarted
	}

	h.emit(Starting, "")
	h.logWatch.Snapshot()
	_ = h.pidFile.Delete()

	if h.BeforeStart != nil {
		if berr := h.BeforeStart(ctx); berr != nil {
			return &StartError{Identifier: h.identifier, Message: berr.Error()}
		}
	}

	deadline := h.now().Add(h.StartTimeout)

	command, err := h.StartCommand.Command(ctx)
	if err != nil {
		return &StartError{Identifier: h.identifier, Message: err.Error()}
	}

	spawnCtx, cancel := context.WithDeadline(ctx, deadline)
	defer cancel()
	res, err := h.launcher.Spawn(spawnCtx, command)
	if err != nil {
		return &StartError{Identifier: h.identifier, Message: err.Error()}
	}

	switch res.Outcome {
	case launcher.Failed:
		logs, hasLogs := h.logWatch.Diff()
		msg := composeMessage(res.CapturedOutput, logs, hasLogs, exitSuffix(res.ExitStatus))
		return &StartError{Identifier: h.identifier, Message: msg}
	case launcher.SpawnTimedOut:
		h.abortStart(res.Pid, true, res.WaitDone)
		logs, hasLogs := h.logWatch.Diff()
		msg := composeMessage(res.CapturedOutput, logs, hasLogs, "timed out")
		return &StartTimeoutError{Identifier: h.identifier, Message: msg}
	}

	// Reset the inactivity baseline: the spawn itself may have taken a
	// while, and step 8 measures inactivity from here.
	h.logWatch.ResetActivity()

	if err := h.waitForPidFile(deadline, res.CapturedOutput); err != nil {
		return err
	}
	if err := h.waitForPing(ctx, deadline, res.CapturedOutput); err != nil {
		return err
	}

	result, err := h.PingSpec.Ping(ctx)
	if err != nil {
		return &StartError{Identifier: h.identifier, Message: err.Error()}
	}
	if result != ping.Up {
		logs, hasLogs := h.logWatch.Diff()
		return &StartError{Identifier: h.identifier, Message: composeMessage(nil, logs, hasLogs, "")}
	}

	h.emit(Started, "")
	return nil
}

// waitForPidFile implements spec.md §4.F.1 step 8: loop until the PID
// file appears, aborting the half-started daemon on log inactivity or
// deadline expiry.
func (h *Handle) waitForPidFile(deadline time.Time, output []byte) error {
	return h.waitUntil(deadline, output, func() (bool, error) {
		return h.pidFile.Available(), nil
	})
}

// waitForPing implements spec.md §4.F.1 step 9: loop until the pinger
// reports Up, failing early if the daemon died after writing its PID
// file, and otherwise applying the same inactivity/deadline abort as
// waitForPidFile.
func (h *Handle) waitForPing(ctx context.Context, deadline time.Time, output []byte) error {
	return h.waitUntil(deadline, output, func() (bool, error) {
		result, err := h.PingSpec.Ping(ctx)
		if err != nil {
			return false, &StartError{Identifier: h.identifier, Message: err.Error()}
		}
		if result == ping.Up {
			return true, nil
		}
		if alive, _ := h.runningLocked(); !alive {
			logs, hasLogs := h.logWatch.Diff()
			return false, &StartError{Identifier: h.identifier, Message: composeMessage(output, logs, hasLogs, "")}
		}
		return false, nil
	})
}

// waitUntil polls done at h.PingInterval until it reports true or
// returns an error, aborting the start attempt on log inactivity or
// deadline expiry per spec.md §4.F.1 steps 8-9.
func (h *Handle) waitUntil(deadline time.Time, output []byte, done func() (bool, error)) error {
	for {
		ok, err := done()
		if err != nil {
			return err
		}
		if ok {
			return nil
		}
		if !h.logWatch.Changed() {
			if h.now().Sub(h.logWatch.LastActivity()) >= h.LogFileActivityTimeout {
				return h.timeoutFailure(output)
			}
		}
		if !h.now().Before(deadline) {
			return h.timeoutFailure(output)
		}
		time.Sleep(h.PingInterval)
	}
}

func (h *Handle) timeoutFailure(output []byte) error {
	h.abortForTimeout()
	logs, hasLogs := h.logWatch.Diff()
	msg := composeMessage(output, logs, hasLogs, "timed out")
	return &StartTimeoutError{Identifier: h.identifier, Message: msg}
}

// abortForTimeout runs abort_start against whatever PID the daemon has
// since written to its PID file. If none has appeared yet there is
// nothing to signal; the caller's timeout still fails the attempt.
func (h *Handle) abortForTimeout() {
	pid, ok, _ := h.pidFile.Read()
	if !ok {
		return
	}
	h.abortStart(pid, false, nil)
}
