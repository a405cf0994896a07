package ping

import (
	"context"
	"errors"
	"net"
	"strconv"
	"testing"
)

func TestShellUpOnZeroExit(t *testing.T) {
	res, err := Shell("true").Ping(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res != Up {
		t.Fatalf("expected Up, got %v", res)
	}
}

func TestShellDownOnNonZeroExit(t *testing.T) {
	res, err := Shell("false").Ping(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res != Down {
		t.Fatalf("expected Down, got %v", res)
	}
}

func TestTCPUpAgainstListener(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer ln.Close()
	go func() {
		for {
			c, err := ln.Accept()
			if err != nil {
				return
			}
			c.Close()
		}
	}()

	addr := ln.Addr().(*net.TCPAddr)
	res, err := TCP("127.0.0.1", addr.Port).Ping(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res != Up {
		t.Fatalf("expected Up, got %v", res)
	}
}

func TestTCPDownWhenRefused(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	port := ln.Addr().(*net.TCPAddr).Port
	ln.Close() // nothing listens here now

	res, err := TCP("127.0.0.1", port).Ping(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res != Down {
		t.Fatalf("expected Down, got %v", res)
	}
}

func TestUnixDownWhenSocketMissing(t *testing.T) {
	res, err := Unix("/nonexistent/path/to.sock").Ping(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res != Down {
		t.Fatalf("expected Down, got %v", res)
	}
}

func TestFuncTruthyIsUp(t *testing.T) {
	res, err := Func(func(ctx context.Context) (any, error) {
		return true, nil
	}).Ping(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res != Up {
		t.Fatalf("expected Up, got %v", res)
	}
}

func TestFuncFalseyIsDown(t *testing.T) {
	res, err := Func(func(ctx context.Context) (any, error) {
		return nil, nil
	}).Ping(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res != Down {
		t.Fatalf("expected Down, got %v", res)
	}
}

func TestFuncSyscallErrnoIsDown(t *testing.T) {
	// Round-trip through a real network dial to obtain a wrapped errno.
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	port := ln.Addr().(*net.TCPAddr).Port
	ln.Close()

	res, perr := Func(func(ctx context.Context) (any, error) {
		var d net.Dialer
		_, err := d.DialContext(ctx, "tcp", net.JoinHostPort("127.0.0.1", strconv.Itoa(port)))
		return nil, err
	}).Ping(context.Background())
	if perr != nil {
		t.Fatalf("unexpected ProbeError: %v", perr)
	}
	if res != Down {
		t.Fatalf("expected Down for connection-refused, got %v", res)
	}
}

func TestFuncOtherErrorIsProbeError(t *testing.T) {
	boom := errors.New("boom")
	res, err := Func(func(ctx context.Context) (any, error) {
		return nil, boom
	}).Ping(context.Background())
	if res != ProbeError {
		t.Fatalf("expected ProbeError, got %v", res)
	}
	if !errors.Is(err, boom) {
		t.Fatalf("expected wrapped boom error, got %v", err)
	}
}

func TestFuncClosesCloser(t *testing.T) {
	c := &fakeCloser{}
	_, _ = Func(func(ctx context.Context) (any, error) {
		return c, nil
	}).Ping(context.Background())
	if !c.closed {
		t.Fatal("expected the returned Closer to be closed")
	}
}

type fakeCloser struct{ closed bool }

func (f *fakeCloser) Close() error { f.closed = true; return nil }
