package daemonctl

import (
	"fmt"
	"log"
	"path/filepath"
	"sync"
	"time"

	"github.com/relaywatch/daemonctl/internal/launcher"
	"github.com/relaywatch/daemonctl/internal/lock"
	"github.com/relaywatch/daemonctl/internal/logwatch"
	"github.com/relaywatch/daemonctl/internal/pidfile"
)

const (
	defaultStartTimeout           = 30 * time.Second
	defaultStopTimeout            = 30 * time.Second
	defaultStartAbortTimeout      = 10 * time.Second
	defaultLogFileActivityTimeout = 10 * time.Second
	defaultPingInterval           = 100 * time.Millisecond
	defaultStopGracefulSignal     = "TERM"
)

// Handle is the supervisor's configuration and identity for one daemon.
// It is safe for concurrent use; Start/Stop/Restart/Connect serialize
// through the lock file, while Pid/Running only ever take a shared lock.
type Handle struct {
	HandleConfig

	identifier string
	lock       *lock.FileLock
	pidFile    *pidfile.File
	logWatch   *logwatch.Watcher
	launcher   *launcher.Launcher

	sink   EventSink
	logger func(format string, args ...any)

	mu  sync.Mutex // guards fields the launcher tunes per spawn
	now func() time.Time
}

// NewHandle builds a Handle for identifier, validating the configuration
// per spec.md §3's invariants. pidFilePath and logFilePath must be
// absolute.
func NewHandle(identifier string, startCommand CommandSource, pingSpec PingSpec, pidFilePath, logFilePath string, opts ...Option) (*Handle, error) {
	cfg := HandleConfig{
		Identifier:             identifier,
		StartCommand:           startCommand,
		PingSpec:               pingSpec,
		PidFilePath:            pidFilePath,
		LogFilePath:            logFilePath,
		StartTimeout:           defaultStartTimeout,
		StopTimeout:            defaultStopTimeout,
		StartAbortTimeout:      defaultStartAbortTimeout,
		LogFileActivityTimeout: defaultLogFileActivityTimeout,
		PingInterval:           defaultPingInterval,
		StopGracefulSignal:     defaultStopGracefulSignal,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.LockFilePath == "" {
		cfg.LockFilePath = cfg.PidFilePath + ".lock"
	}

	if err := validate(&cfg); err != nil {
		return nil, err
	}

	logger := cfg.logger
	if logger == nil {
		l := log.New(log.Writer(), fmt.Sprintf("[daemonctl %s] ", identifier), log.Flags())
		logger = func(format string, args ...any) { l.Printf(format, args...) }
	}

	lw := logwatch.New(cfg.LogFilePath)
	lw.SetLogger(logger)

	h := &Handle{
		HandleConfig: cfg,
		identifier:   identifier,
		lock:         lock.New(cfg.LockFilePath),
		pidFile:      pidfile.New(cfg.PidFilePath),
		logWatch:     lw,
		launcher: &launcher.Launcher{
			Env:       cfg.Env,
			KeepFDs:   cfg.KeepFDs,
			Daemonize: cfg.DaemonizeForMe,
			Logger:    logger,
		},
		sink:   cfg.sink,
		logger: logger,
		now:    time.Now,
	}
	return h, nil
}

func validate(c *HandleConfig) error {
	if c.Identifier == "" {
		return &ConfigError{Identifier: "(unnamed)", Message: "identifier is required"}
	}
	if c.StartCommand == nil {
		return &ConfigError{Identifier: c.Identifier, Message: "start command is required"}
	}
	if c.PingSpec == nil {
		return &ConfigError{Identifier: c.Identifier, Message: "ping spec is required"}
	}
	if c.PidFilePath == "" || !filepath.IsAbs(c.PidFilePath) {
		return &ConfigError{Identifier: c.Identifier, Message: "pid_file_path must be an absolute path"}
	}
	if c.LogFilePath == "" || !filepath.IsAbs(c.LogFilePath) {
		return &ConfigError{Identifier: c.Identifier, Message: "log_file_path must be an absolute path"}
	}
	if c.LockFilePath != "" && !filepath.IsAbs(c.LockFilePath) {
		return &ConfigError{Identifier: c.Identifier, Message: "lock_file_path must be an absolute path"}
	}
	return nil
}
