// Package pidfile reads, validates, and probes the PID file a supervised
// daemon writes on startup.
package pidfile

import (
	"errors"
	"os"
	"regexp"
	"strconv"
	"strings"
	"syscall"
)

var numeric = regexp.MustCompile(`^\d+$`)

// File is a PID file at a fixed path.
type File struct {
	path string
}

// New returns a File for path.
func New(path string) *File {
	return &File{path: path}
}

// Path returns the file's absolute path.
func (f *File) Path() string { return f.path }

// Read returns the PID recorded in the file. It returns (0, false) if the
// file is missing, empty, or does not contain exactly one decimal integer
// — all three are "invalid" in the sense of spec.md §3, not errors. Other
// I/O errors are returned.
func (f *File) Read() (int, bool, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, false, nil
		}
		return 0, false, err
	}

	trimmed := strings.TrimSpace(string(data))
	if trimmed == "" || !numeric.MatchString(trimmed) {
		return 0, false, nil
	}

	pid, err := strconv.Atoi(trimmed)
	if err != nil {
		// numeric already guarantees this parses, but overflow is possible.
		return 0, false, nil
	}
	return pid, true, nil
}

// Alive reports whether pid currently exists, via a signal-0 probe.
// ESRCH means no such process (false). EPERM means the process exists
// but is owned by someone else (true). Other errors propagate.
func Alive(pid int) (bool, error) {
	process, err := os.FindProcess(pid)
	if err != nil {
		return false, nil
	}
	err = process.Signal(syscall.Signal(0))
	if err == nil {
		return true, nil
	}
	// os.Process.Signal reports ESRCH as os.ErrProcessDone.
	if errors.Is(err, os.ErrProcessDone) || errors.Is(err, syscall.ESRCH) {
		return false, nil
	}
	if errors.Is(err, syscall.EPERM) {
		return true, nil
	}
	return false, err
}

// Delete removes the PID file, tolerating ENOENT and permission errors.
// Any other I/O error is returned so environmental misconfiguration is
// still surfaced to the caller.
func (f *File) Delete() error {
	err := os.Remove(f.path)
	if err == nil || os.IsNotExist(err) || os.IsPermission(err) {
		return nil
	}
	return err
}

// Available reports whether the file exists and has non-zero size.
func (f *File) Available() bool {
	info, err := os.Stat(f.path)
	if err != nil {
		return false
	}
	return info.Size() > 0
}
