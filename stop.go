package daemonctl

import (
	"context"
	"os"
	"strings"
	"syscall"
	"time"

	"github.com/relaywatch/daemonctl/internal/launcher"
)

const stopPollInterval = 100 * time.Millisecond

// Stop terminates the daemon per spec.md §4.F.2, under an exclusive
// lock and bounded by StopTimeout. A graceful attempt (stop command or
// signal) is given the full deadline; if the daemon is still running at
// the deadline it is force-killed and StopTimeoutError is returned.
func (h *Handle) Stop(ctx context.Context) error {
	var result error
	if err := h.lock.WithExclusive(func() error {
		result = h.stopLocked(ctx)
		return nil
	}); err != nil {
		return err
	}
	return result
}

func (h *Handle) stopLocked(ctx context.Context) (err error) {
	defer func() {
		if err != nil {
			h.emit(StopFailed, err.Error())
		}
	}()

	h.emit(Stopping, "")
	deadline := h.now().Add(h.StopTimeout)

	if h.StopCommand != nil {
		if h.DontStopIfPidFileInvalid {
			if _, ok, _ := h.pidFile.Read(); !ok {
				return nil
			}
		}
		if serr := h.runStopCommand(ctx, deadline); serr != nil {
			return serr
		}
	} else if pid, ok, rerr := h.pidFile.Read(); rerr != nil {
		return &StopError{Identifier: h.identifier, Message: rerr.Error()}
	} else if ok {
		signalStop(pid, h.gracefulSignal())
	}

	if h.waitNotRunning(deadline) {
		h.emit(Stopped, "")
		return nil
	}

	if pid, ok, _ := h.pidFile.Read(); ok {
		signalStop(pid, syscall.SIGKILL)
	}
	h.waitNotRunning(time.Time{})
	_ = h.pidFile.Delete()
	return &StopTimeoutError{Identifier: h.identifier, Message: "graceful stop exceeded stop_timeout"}
}

func (h *Handle) runStopCommand(ctx context.Context, deadline time.Time) error {
	command, err := h.StopCommand.Command(ctx)
	if err != nil {
		return &StopError{Identifier: h.identifier, Message: err.Error()}
	}
	stopCtx, cancel := context.WithDeadline(ctx, deadline)
	defer cancel()
	res, err := h.launcher.Spawn(stopCtx, command)
	if err != nil {
		return &StopError{Identifier: h.identifier, Message: err.Error()}
	}
	switch res.Outcome {
	case launcher.Failed:
		msg := composeMessage(res.CapturedOutput, nil, false, exitSuffix(res.ExitStatus))
		return &StopError{Identifier: h.identifier, Message: msg}
	case launcher.SpawnTimedOut:
		msg := composeMessage(res.CapturedOutput, nil, false, "timed out")
		return &StopError{Identifier: h.identifier, Message: msg}
	}
	return nil
}

// waitNotRunning polls runningLocked at 100ms until it reports false, or
// until deadline passes (a zero deadline waits indefinitely). It returns
// true if the daemon stopped before the deadline. Called from within
// stopLocked's held exclusive section, so it must not re-acquire h.lock.
func (h *Handle) waitNotRunning(deadline time.Time) bool {
	for {
		running, _ := h.runningLocked()
		if !running {
			return true
		}
		if !deadline.IsZero() && !h.now().Before(deadline) {
			return false
		}
		time.Sleep(stopPollInterval)
	}
}

func signalStop(pid int, sig syscall.Signal) {
	proc, err := os.FindProcess(pid)
	if err != nil {
		return
	}
	_ = proc.Signal(sig)
}

func (h *Handle) gracefulSignal() syscall.Signal {
	return signalByName(h.StopGracefulSignal)
}

func signalByName(name string) syscall.Signal {
	switch strings.ToUpper(strings.TrimPrefix(name, "SIG")) {
	case "HUP":
		return syscall.SIGHUP
	case "INT":
		return syscall.SIGINT
	case "QUIT":
		return syscall.SIGQUIT
	case "KILL":
		return syscall.SIGKILL
	case "USR1":
		return syscall.SIGUSR1
	case "USR2":
		return syscall.SIGUSR2
	default:
		return syscall.SIGTERM
	}
}
