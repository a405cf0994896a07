// Package daemonctl supervises a single external local daemon: it starts
// the daemon on demand, stops it, queries liveness, and serializes these
// operations across concurrent goroutines and processes that share the
// same daemon identity via a lock file.
//
// A Handle is built with NewHandle (or loaded from a YAML manifest via
// internal/manifest) and exposes Start, Stop, Restart, Connect, Pid, and
// Running. The interesting engineering lives in bounding start time while
// distinguishing "not yet ready" from "daemonized then died silently",
// killing a daemon that has half-started, and providing connect-or-start
// as an atomic action under multi-process contention.
//
// daemonctl does not restart a crashed daemon on its own, does not
// rotate logs, and does not orchestrate more than one daemon per Handle;
// those are left to the caller or to a separate process supervisor.
package daemonctl
