// Package testdaemon provides small fixture "daemons" used by the root
// package's end-to-end tests. Each fixture is a Main function dispatched
// from a TestHelperProcess-style re-exec of the test binary itself
// (the classic pattern from Go's own os/exec tests), so the tests never
// depend on a separately compiled binary.
package testdaemon

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"time"
)

// HelperProcessEnv is set by the test driving a fixture so the re-exec'd
// process knows it is running as a helper rather than as the real test
// binary.
const HelperProcessEnv = "DAEMONCTL_TESTDAEMON_HELPER"

// Dispatch runs the fixture named by args[0] and never returns; it calls
// os.Exit with the fixture's outcome. Call this from TestMain or a
// TestHelperProcess test, guarded by HelperProcessEnv.
func Dispatch(args []string) {
	if len(args) == 0 {
		fmt.Fprintln(os.Stderr, "testdaemon: no fixture named")
		os.Exit(2)
	}
	switch args[0] {
	case "echo-server":
		EchoServerMain(args[1:])
	case "writes-pid-never-binds":
		WritesPidNeverBindsMain(args[1:])
	case "crash-after-fork":
		CrashAfterForkMain(args[1:])
	default:
		fmt.Fprintf(os.Stderr, "testdaemon: unknown fixture %q\n", args[0])
		os.Exit(2)
	}
}

// EchoServerMain implements the scenario 1 fixture: write a PID file,
// bind TCP on the given host:port, and echo every connection back until
// killed.
func EchoServerMain(args []string) {
	if len(args) != 2 {
		fmt.Fprintln(os.Stderr, "usage: echo-server <pidfile> <addr>")
		os.Exit(2)
	}
	pidFile, addr := args[0], args[1]

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "echo-server: listen %s: %v\n", addr, err)
		os.Exit(1)
	}
	defer ln.Close()

	if err := writePidFile(pidFile); err != nil {
		fmt.Fprintf(os.Stderr, "echo-server: write pidfile: %v\n", err)
		os.Exit(1)
	}

	for {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		go func(c net.Conn) {
			defer c.Close()
			buf := make([]byte, 4096)
			for {
				n, err := c.Read(buf)
				if n > 0 {
					c.Write(buf[:n])
				}
				if err != nil {
					return
				}
			}
		}(conn)
	}
}

// WritesPidNeverBindsMain implements the scenario 4 fixture: write a PID
// file immediately, then sleep forever without ever becoming
// connectable.
func WritesPidNeverBindsMain(args []string) {
	if len(args) != 1 {
		fmt.Fprintln(os.Stderr, "usage: writes-pid-never-binds <pidfile>")
		os.Exit(2)
	}
	if err := writePidFile(args[0]); err != nil {
		fmt.Fprintf(os.Stderr, "writes-pid-never-binds: write pidfile: %v\n", err)
		os.Exit(1)
	}
	select {}
}

// CrashAfterForkMain implements the scenario 5 fixture: write a PID
// file, log "crashing, as instructed" to the given log file, then exit
// with status 2 before ever binding.
func CrashAfterForkMain(args []string) {
	if len(args) != 2 {
		fmt.Fprintln(os.Stderr, "usage: crash-after-fork <pidfile> <logfile>")
		os.Exit(2)
	}
	pidFile, logFile := args[0], args[1]

	if err := writePidFile(pidFile); err != nil {
		fmt.Fprintf(os.Stderr, "crash-after-fork: write pidfile: %v\n", err)
		os.Exit(1)
	}

	f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		fmt.Fprintf(os.Stderr, "crash-after-fork: open logfile: %v\n", err)
		os.Exit(1)
	}
	fmt.Fprintln(f, "crashing, as instructed")
	f.Close()

	time.Sleep(50 * time.Millisecond)
	os.Exit(2)
}

func writePidFile(path string) error {
	return os.WriteFile(path, []byte(strconv.Itoa(os.Getpid())+"\n"), 0o644)
}
