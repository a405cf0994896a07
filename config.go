package daemonctl

import (
	"context"
	"os"
	"time"

	"github.com/relaywatch/daemonctl/internal/ping"
)

// CommandSource yields a command string at invocation time — either a
// fixed literal (see Command) or a callable that computes one (see
// CommandFunc).
type CommandSource interface {
	Command(ctx context.Context) (string, error)
}

// Command wraps a literal command string as a CommandSource.
type Command string

// Command returns c unchanged.
func (c Command) Command(context.Context) (string, error) { return string(c), nil }

// CommandFunc adapts a function to CommandSource.
type CommandFunc func(ctx context.Context) (string, error)

// Command calls fn.
func (fn CommandFunc) Command(ctx context.Context) (string, error) { return fn(ctx) }

// PingSpec is a liveness probe: shell command, TCP address, Unix socket
// address, or an arbitrary callable. Construct one with ShellPing,
// TCPPing, UnixPing, or FuncPing.
type PingSpec = ping.Prober

// ShellPing probes by running cmd; exit code 0 is up.
func ShellPing(cmd string) PingSpec { return ping.Shell(cmd) }

// TCPPing probes by attempting a bounded TCP connect to host:port.
func TCPPing(host string, port int) PingSpec { return ping.TCP(host, port) }

// UnixPing probes by attempting a bounded connect to a Unix domain
// socket at path.
func UnixPing(path string) PingSpec { return ping.Unix(path) }

// FuncPing probes with an arbitrary callable. See Probe for the
// callable's contract.
func FuncPing(fn func(ctx context.Context) (any, error)) PingSpec { return ping.Func(fn) }

// Probe is the callable contract shared by FuncPing and Connect: it
// returns a truthy value on success, a falsey value or a
// "connect-pending" error (connection refused, timed out, reset, ...) on
// "not yet", and any other error as an escalation.
type Probe func(ctx context.Context) (any, error)

// HandleConfig is the fully-resolved, validated configuration for a
// Handle. Build one with NewHandle rather than constructing it directly.
type HandleConfig struct {
	Identifier      string
	StartCommand    CommandSource
	StopCommand     CommandSource
	RestartCommand  CommandSource
	BeforeStart     func(ctx context.Context) error
	PingSpec        PingSpec
	PidFilePath     string
	LogFilePath     string
	LockFilePath    string
	Env             map[string]string
	KeepFDs         []*os.File

	StartTimeout           time.Duration
	StopTimeout            time.Duration
	StartAbortTimeout      time.Duration
	LogFileActivityTimeout time.Duration
	PingInterval           time.Duration

	StopGracefulSignal       string
	DontStopIfPidFileInvalid bool
	DaemonizeForMe           bool

	sink   EventSink
	logger func(format string, args ...any)
}

// Option configures a Handle at construction time.
type Option func(*HandleConfig)

// WithStopCommand sets the command used to stop the daemon gracefully.
// Without one, Stop signals the PID directly.
func WithStopCommand(cmd CommandSource) Option {
	return func(c *HandleConfig) { c.StopCommand = cmd }
}

// WithRestartCommand sets the command used for Restart. Without one,
// Restart sequences Stop then Start.
func WithRestartCommand(cmd CommandSource) Option {
	return func(c *HandleConfig) { c.RestartCommand = cmd }
}

// WithBeforeStart sets a callable run before StartCommand and not
// counted against StartTimeout.
func WithBeforeStart(fn func(ctx context.Context) error) Option {
	return func(c *HandleConfig) { c.BeforeStart = fn }
}

// WithLockFilePath overrides the default lock path (PidFilePath + ".lock").
func WithLockFilePath(path string) Option {
	return func(c *HandleConfig) { c.LockFilePath = path }
}

// WithEnv sets additional environment variables merged over the ambient
// environment when spawning commands.
func WithEnv(env map[string]string) Option {
	return func(c *HandleConfig) { c.Env = env }
}

// WithKeepFDs lists file descriptors the spawned command inherits beyond
// stdin/stdout/stderr.
func WithKeepFDs(fds ...*os.File) Option {
	return func(c *HandleConfig) { c.KeepFDs = fds }
}

// WithStartTimeout overrides the default 30s start deadline.
func WithStartTimeout(d time.Duration) Option {
	return func(c *HandleConfig) { c.StartTimeout = d }
}

// WithStopTimeout overrides the default 30s stop deadline.
func WithStopTimeout(d time.Duration) Option {
	return func(c *HandleConfig) { c.StopTimeout = d }
}

// WithStartAbortTimeout overrides the default 10s abort escalation
// window.
func WithStartAbortTimeout(d time.Duration) Option {
	return func(c *HandleConfig) { c.StartAbortTimeout = d }
}

// WithLogFileActivityTimeout overrides the default 10s log inactivity
// watchdog.
func WithLogFileActivityTimeout(d time.Duration) Option {
	return func(c *HandleConfig) { c.LogFileActivityTimeout = d }
}

// WithPingInterval overrides the default 100ms poll interval.
func WithPingInterval(d time.Duration) Option {
	return func(c *HandleConfig) { c.PingInterval = d }
}

// WithStopGracefulSignal overrides the default TERM signal sent to stop
// the daemon when no StopCommand is configured.
func WithStopGracefulSignal(sig string) Option {
	return func(c *HandleConfig) { c.StopGracefulSignal = sig }
}

// WithDontStopIfPidFileInvalid makes Stop a no-op when a StopCommand is
// configured but the PID file is missing or invalid.
func WithDontStopIfPidFileInvalid() Option {
	return func(c *HandleConfig) { c.DontStopIfPidFileInvalid = true }
}

// WithDaemonizeForMe requests a double-fork/setsid protocol for a start
// command that does not daemonize itself.
func WithDaemonizeForMe() Option {
	return func(c *HandleConfig) { c.DaemonizeForMe = true }
}

// WithEventSink registers an observer notified of every lifecycle
// transition. See EventSink.
func WithEventSink(sink EventSink) Option {
	return func(c *HandleConfig) { c.sink = sink }
}

// WithLogger installs a printf-style logging hook, matching the
// convention used throughout this module's internal packages. The
// default logs through log.Default() with a "[daemonctl <identifier>] "
// prefix.
func WithLogger(fn func(format string, args ...any)) Option {
	return func(c *HandleConfig) { c.logger = fn }
}
