package launcher

import (
	"context"
	"os"
	"strings"
	"syscall"
	"testing"
	"time"
)

func isAlive(pid int) (bool, error) {
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false, nil
	}
	err = proc.Signal(syscall.Signal(0))
	return err == nil, nil
}

func kill(pid int) error {
	proc, err := os.FindProcess(pid)
	if err != nil {
		return err
	}
	return proc.Signal(syscall.SIGKILL)
}

func TestSpawnOkOnZeroExit(t *testing.T) {
	l := &Launcher{}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	res, err := l.Spawn(ctx, "echo hello")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Outcome != Ok {
		t.Fatalf("expected Ok, got %v", res.Outcome)
	}
	if !strings.Contains(string(res.CapturedOutput), "hello") {
		t.Fatalf("expected captured output to contain hello, got %q", res.CapturedOutput)
	}
}

func TestSpawnFailedCarriesExitStatus(t *testing.T) {
	l := &Launcher{}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	res, err := l.Spawn(ctx, "echo hello; exit 1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Outcome != Failed {
		t.Fatalf("expected Failed, got %v", res.Outcome)
	}
	if res.ExitStatus == nil || res.ExitStatus.Code != 1 {
		t.Fatalf("expected exit status 1, got %+v", res.ExitStatus)
	}
	if !strings.Contains(string(res.CapturedOutput), "hello") {
		t.Fatalf("expected captured output to contain hello, got %q", res.CapturedOutput)
	}
}

func TestSpawnTimesOutLeavesChildRunning(t *testing.T) {
	l := &Launcher{}
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	res, err := l.Spawn(ctx, "sleep 5")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Outcome != SpawnTimedOut {
		t.Fatalf("expected SpawnTimedOut, got %v", res.Outcome)
	}
	if res.Pid == 0 {
		t.Fatal("expected a pid to be reported")
	}

	alive, err := isAlive(res.Pid)
	if err != nil {
		t.Fatal(err)
	}
	if !alive {
		t.Fatal("expected the sleep child to still be running after a spawn timeout")
	}
	_ = kill(res.Pid)
}

func TestSpawnMergesEnv(t *testing.T) {
	l := &Launcher{Env: map[string]string{"DAEMONCTL_TEST_VAR": "present"}}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	res, err := l.Spawn(ctx, "echo $DAEMONCTL_TEST_VAR")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.TrimSpace(string(res.CapturedOutput)) != "present" {
		t.Fatalf("expected env var to be visible to the child, got %q", res.CapturedOutput)
	}
}

func TestSpawnFailedCarriesSignalName(t *testing.T) {
	l := &Launcher{}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	res, err := l.Spawn(ctx, "kill -TERM $$; sleep 5")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Outcome != Failed {
		t.Fatalf("expected Failed, got %v", res.Outcome)
	}
	if res.ExitStatus == nil || res.ExitStatus.Signal != "SIGTERM" {
		t.Fatalf("expected signal SIGTERM, got %+v", res.ExitStatus)
	}
	if got, want := res.ExitStatus.String(), "terminated with signal SIGTERM"; got != want {
		t.Fatalf("String() = %q, want %q", got, want)
	}
}

func TestSpawnCaptureDisabledSkipsFile(t *testing.T) {
	l := &Launcher{CaptureDisabled: true}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	res, err := l.Spawn(ctx, "true")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.CapturedOutput != nil {
		t.Fatalf("expected no captured output when capture is disabled, got %q", res.CapturedOutput)
	}
}
