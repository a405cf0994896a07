package daemonctl

import (
	"context"

	"github.com/relaywatch/daemonctl/internal/launcher"
)

// Restart implements spec.md §4.F.7: if restart_command is configured,
// it runs once under the exclusive lock and any failure maps to
// StartError; otherwise Restart sequences Stop then Start.
func (h *Handle) Restart(ctx context.Context) error {
	if h.RestartCommand == nil {
		if err := h.Stop(ctx); err != nil {
			return err
		}
		return h.Start(ctx)
	}

	command, err := h.RestartCommand.Command(ctx)
	if err != nil {
		return &StartError{Identifier: h.identifier, Message: err.Error()}
	}

	var result error
	if err := h.lock.WithExclusive(func() error {
		res, serr := h.launcher.Spawn(ctx, command)
		if serr != nil {
			result = &StartError{Identifier: h.identifier, Message: serr.Error()}
			return nil
		}
		if res.Outcome != launcher.Ok {
			msg := composeMessage(res.CapturedOutput, nil, false, exitSuffix(res.ExitStatus))
			result = &StartError{Identifier: h.identifier, Message: msg}
		}
		return nil
	}); err != nil {
		return err
	}
	return result
}
