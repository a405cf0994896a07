package daemonctl

import "context"

// Connect implements spec.md §4.F.3: probe is tried once under a shared
// lock (letting many concurrent Connect calls probe a running daemon in
// parallel); if that yields nothing, the lock is upgraded to exclusive,
// the daemon is started if not already running, and probe is retried
// once more before failing with ConnectError.
func (h *Handle) Connect(ctx context.Context, probe Probe) (any, error) {
	value, probeErr, err := h.tryProbeShared(ctx, probe)
	if err != nil {
		return nil, err
	}
	if value != nil {
		return value, nil
	}

	h.emit(Connecting, "")

	var result any
	var resultErr error
	if err := h.lock.WithExclusive(func() error {
		running, rerr := h.runningLocked()
		if rerr != nil {
			resultErr = rerr
			return nil
		}
		if !running {
			if serr := h.startLocked(ctx); serr != nil {
				resultErr = serr
				return nil
			}
		}

		v, perr := probe(ctx)
		if v != nil {
			result = v
			return nil
		}
		probeErr = perr
		msg := "probe did not connect"
		if probeErr != nil {
			msg = probeErr.Error()
		}
		resultErr = &ConnectError{Identifier: h.identifier, Message: msg}
		return nil
	}); err != nil {
		return nil, err
	}
	if resultErr != nil {
		return nil, resultErr
	}
	h.emit(Connected, "")
	return result, nil
}

func (h *Handle) tryProbeShared(ctx context.Context, probe Probe) (value any, probeErr error, err error) {
	err = h.lock.WithShared(func() error {
		v, perr := probe(ctx)
		if v != nil {
			value = v
			return nil
		}
		probeErr = perr
		return nil
	})
	return value, probeErr, err
}
