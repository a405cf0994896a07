package daemonctl

import (
	"path/filepath"
	"testing"
	"time"
)

func TestNewHandleAppliesDefaults(t *testing.T) {
	dir := t.TempDir()
	h, err := NewHandle("demo", Command("true"), ShellPing("true"),
		filepath.Join(dir, "demo.pid"), filepath.Join(dir, "demo.log"))
	if err != nil {
		t.Fatalf("NewHandle: %v", err)
	}
	if h.StartTimeout != defaultStartTimeout {
		t.Errorf("StartTimeout = %v, want %v", h.StartTimeout, defaultStartTimeout)
	}
	if h.StopGracefulSignal != defaultStopGracefulSignal {
		t.Errorf("StopGracefulSignal = %q, want %q", h.StopGracefulSignal, defaultStopGracefulSignal)
	}
	wantLock := filepath.Join(dir, "demo.pid") + ".lock"
	if h.LockFilePath != wantLock {
		t.Errorf("LockFilePath = %q, want %q", h.LockFilePath, wantLock)
	}
}

func TestNewHandleRejectsRelativePaths(t *testing.T) {
	_, err := NewHandle("demo", Command("true"), ShellPing("true"), "relative.pid", "/tmp/demo.log")
	if err == nil {
		t.Fatal("expected error for relative pid_file_path")
	}
	var cfgErr *ConfigError
	if !isConfigError(err, &cfgErr) {
		t.Fatalf("expected *ConfigError, got %T: %v", err, err)
	}
}

func TestNewHandleRequiresStartCommand(t *testing.T) {
	_, err := NewHandle("demo", nil, ShellPing("true"), "/tmp/demo.pid", "/tmp/demo.log")
	if err == nil {
		t.Fatal("expected error for nil start command")
	}
}

func TestNewHandleRequiresIdentifier(t *testing.T) {
	_, err := NewHandle("", Command("true"), ShellPing("true"), "/tmp/demo.pid", "/tmp/demo.log")
	if err == nil {
		t.Fatal("expected error for empty identifier")
	}
}

func TestOptionsOverrideDefaults(t *testing.T) {
	dir := t.TempDir()
	h, err := NewHandle("demo", Command("true"), ShellPing("true"),
		filepath.Join(dir, "demo.pid"), filepath.Join(dir, "demo.log"),
		WithStartTimeout(5*time.Second),
		WithPingInterval(10*time.Millisecond),
		WithStopGracefulSignal("INT"),
	)
	if err != nil {
		t.Fatalf("NewHandle: %v", err)
	}
	if h.StartTimeout != 5*time.Second {
		t.Errorf("StartTimeout = %v, want 5s", h.StartTimeout)
	}
	if h.PingInterval != 10*time.Millisecond {
		t.Errorf("PingInterval = %v, want 10ms", h.PingInterval)
	}
	if h.StopGracefulSignal != "INT" {
		t.Errorf("StopGracefulSignal = %q, want INT", h.StopGracefulSignal)
	}
}

func TestPidAndRunningOnFreshHandle(t *testing.T) {
	dir := t.TempDir()
	h, err := NewHandle("demo", Command("true"), ShellPing("true"),
		filepath.Join(dir, "demo.pid"), filepath.Join(dir, "demo.log"))
	if err != nil {
		t.Fatalf("NewHandle: %v", err)
	}
	if _, ok := h.Pid(); ok {
		t.Error("Pid() reported a PID before anything was written")
	}
	if h.Running() {
		t.Error("Running() true on a handle with no PID file")
	}
}

func TestEventSinkReceivesLifecycleEvents(t *testing.T) {
	dir := t.TempDir()
	var kinds []EventKind
	sink := EventSinkFunc(func(e Event) { kinds = append(kinds, e.Kind) })

	h, err := NewHandle("demo", Command("true"), ShellPing("true"),
		filepath.Join(dir, "demo.pid"), filepath.Join(dir, "demo.log"),
		WithEventSink(sink),
	)
	if err != nil {
		t.Fatalf("NewHandle: %v", err)
	}
	h.emit(Starting, "")
	h.emit(Started, "")
	if len(kinds) != 2 || kinds[0] != Starting || kinds[1] != Started {
		t.Errorf("kinds = %v, want [Starting Started]", kinds)
	}
}

func isConfigError(err error, target **ConfigError) bool {
	ce, ok := err.(*ConfigError)
	if ok {
		*target = ce
	}
	return ok
}
