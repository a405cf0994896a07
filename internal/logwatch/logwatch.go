// Package logwatch snapshots a daemon's log file at the start of a start
// attempt and detects subsequent activity, both to compute a "log diff"
// for error messages and to drive the Supervisor's inactivity watchdog.
//
// Detection is poll-driven (stat the file on every Changed() call), which
// is correct on any filesystem. An optional fsnotify watch, adapted from
// the teacher's binary-reload watcher, is layered on top purely to shave
// latency off the activity timer on filesystems that support inotify; its
// absence or failure never affects correctness.
package logwatch

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Snapshot is the size+mtime recorded at the start of a start attempt.
type Snapshot struct {
	valid bool
	size  int64
	mtime time.Time
}

// Watcher tracks one log file across a single start attempt.
type Watcher struct {
	path   string
	logger func(format string, args ...any)

	mu       sync.Mutex
	base     Snapshot // taken by Snapshot(); Diff reads from here
	snap     Snapshot // last observation; advanced by Changed()
	notifyMu sync.Mutex
	notify   *fsnotify.Watcher
	lastSeen time.Time
}

// New returns a Watcher for path.
func New(path string) *Watcher {
	return &Watcher{path: path, logger: func(string, ...any) {}}
}

// SetLogger installs a printf-style logging hook, matching the teacher's
// convention of accepting a bare formatting function rather than a
// *log.Logger in leaf packages.
func (w *Watcher) SetLogger(fn func(format string, args ...any)) {
	if fn != nil {
		w.logger = fn
	}
}

// Snapshot records the file's current size and mtime. It records an
// invalid (zero-value) snapshot if the path does not exist or is not a
// regular file — captured output and diffs are only meaningful for
// regular files, never for /dev/stderr, a FIFO, or a character device.
func (w *Watcher) Snapshot() {
	w.mu.Lock()
	defer w.mu.Unlock()

	// lastSeen is reset unconditionally: it anchors the inactivity
	// watchdog to "since this start attempt began", not to "since the
	// log file last existed" — a daemon with no log output at all must
	// not be timed out purely for lacking one.
	w.lastSeen = time.Now()

	info, err := os.Stat(w.path)
	if err != nil || !info.Mode().IsRegular() {
		w.snap = Snapshot{}
		w.base = w.snap
		w.stopWatch()
		return
	}
	w.snap = Snapshot{valid: true, size: info.Size(), mtime: info.ModTime()}
	w.base = w.snap
	w.startWatch()
}

// ResetActivity re-anchors the inactivity clock to now without touching
// the recorded size/mtime snapshot. Used by the Supervisor right after a
// successful spawn (spec.md §4.F.1 step 7).
func (w *Watcher) ResetActivity() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.lastSeen = time.Now()
}

// Changed reports whether the file's size or mtime differs from the last
// observed value, or whether the file has since vanished. It updates the
// observation on every call, so repeated polling advances the baseline.
func (w *Watcher) Changed() bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	info, err := os.Stat(w.path)
	if err != nil {
		vanished := w.snap.valid
		w.snap.valid = false
		return vanished
	}
	if !w.snap.valid {
		w.snap = Snapshot{valid: true, size: info.Size(), mtime: info.ModTime()}
		w.lastSeen = time.Now()
		return true
	}
	changed := info.Size() != w.snap.size || !info.ModTime().Equal(w.snap.mtime)
	w.snap.size = info.Size()
	w.snap.mtime = info.ModTime()
	if changed {
		w.lastSeen = time.Now()
	}
	return changed
}

// LastActivity returns the last time Changed() observed a change, or the
// time of the last Snapshot() if none has been observed since.
func (w *Watcher) LastActivity() time.Time {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.lastSeen
}

// Diff returns the bytes written to the file after the initial snapshot,
// trimmed of surrounding whitespace. It returns (nil, false) if the
// snapshot was invalid (non-regular file, or file absent at snapshot
// time) or if the file can no longer be read.
func (w *Watcher) Diff() ([]byte, bool) {
	w.mu.Lock()
	snap := w.base
	w.mu.Unlock()

	if !snap.valid {
		return nil, false
	}

	f, err := os.Open(w.path)
	if err != nil {
		return nil, false
	}
	defer f.Close()

	if _, err := f.Seek(snap.size, io.SeekStart); err != nil {
		return nil, false
	}
	rest, err := io.ReadAll(f)
	if err != nil {
		return nil, false
	}
	return trimSpace(rest), true
}

// Close releases the optional fsnotify watch, if one is active.
func (w *Watcher) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.stopWatch()
}

// startWatch lazily opens an fsnotify watch on the log file's parent
// directory. Failures are logged and otherwise ignored: the poll loop in
// Changed() is always correct on its own.
func (w *Watcher) startWatch() {
	w.notifyMu.Lock()
	defer w.notifyMu.Unlock()
	if w.notify != nil {
		return
	}

	nw, err := fsnotify.NewWatcher()
	if err != nil {
		w.logger("logwatch: fsnotify unavailable for %s: %v", w.path, err)
		return
	}
	if err := nw.Add(filepath.Dir(w.path)); err != nil {
		w.logger("logwatch: watch %s: %v", filepath.Dir(w.path), err)
		nw.Close()
		return
	}
	w.notify = nw
	base := filepath.Base(w.path)

	go func() {
		for {
			select {
			case ev, ok := <-nw.Events:
				if !ok {
					return
				}
				if filepath.Base(ev.Name) != base {
					continue
				}
				if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
					continue
				}
				w.mu.Lock()
				w.lastSeen = time.Now()
				w.mu.Unlock()
			case _, ok := <-nw.Errors:
				if !ok {
					return
				}
			}
		}
	}()
}

func (w *Watcher) stopWatch() error {
	w.notifyMu.Lock()
	defer w.notifyMu.Unlock()
	if w.notify == nil {
		return nil
	}
	err := w.notify.Close()
	w.notify = nil
	return err
}

func trimSpace(b []byte) []byte {
	start, end := 0, len(b)
	isSpace := func(c byte) bool {
		return c == ' ' || c == '\t' || c == '\n' || c == '\r'
	}
	for start < end && isSpace(b[start]) {
		start++
	}
	for end > start && isSpace(b[end-1]) {
		end--
	}
	return b[start:end]
}

// IsStandardChannelDevice reports whether path exists and denotes a
// character device or a named pipe — the case spec.md carves out ("a
// character device whose real path is a standard channel") where
// captured output and log diffs are not meaningful.
func IsStandardChannelDevice(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.Mode()&(os.ModeCharDevice|os.ModeNamedPipe) != 0
}

// String is used only in tests and log lines for debugging snapshots.
func (s Snapshot) String() string {
	if !s.valid {
		return "<invalid>"
	}
	return fmt.Sprintf("{size=%d mtime=%s}", s.size, s.mtime)
}
