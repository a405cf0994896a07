// Package manifest loads YAML files describing one or more supervised
// daemons into HandleSpec values ready to pass to daemonctl.NewHandle.
package manifest

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/relaywatch/daemonctl"
)

// Duration decodes a Go duration string ("30s", "1m30s") from YAML.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// pingSpec is the tagged-union YAML shape for a ping_spec. At least one
// of Shell, TCP, or Unix must be set; if several are, Shell wins over
// TCP and TCP over Unix. The callable and redis probe variants are
// Go-only and cannot be expressed in a manifest.
type pingSpec struct {
	Shell string `yaml:"shell,omitempty"`
	TCP   *struct {
		Host string `yaml:"host"`
		Port int    `yaml:"port"`
	} `yaml:"tcp,omitempty"`
	Unix string `yaml:"unix,omitempty"`
}

func (p pingSpec) build() (daemonctl.PingSpec, error) {
	switch {
	case p.Shell != "":
		return daemonctl.ShellPing(p.Shell), nil
	case p.TCP != nil:
		return daemonctl.TCPPing(p.TCP.Host, p.TCP.Port), nil
	case p.Unix != "":
		return daemonctl.UnixPing(p.Unix), nil
	default:
		return nil, fmt.Errorf("ping must set exactly one of shell, tcp, or unix")
	}
}

// entry is the YAML shape of one HandleManifest document.
type entry struct {
	Identifier               string            `yaml:"identifier"`
	StartCommand             string            `yaml:"start_command"`
	StopCommand              string            `yaml:"stop_command,omitempty"`
	RestartCommand           string            `yaml:"restart_command,omitempty"`
	Ping                     pingSpec          `yaml:"ping"`
	PidFile                  string            `yaml:"pid_file"`
	LogFile                  string            `yaml:"log_file"`
	LockFile                 string            `yaml:"lock_file,omitempty"`
	Env                      map[string]string `yaml:"env,omitempty"`
	StartTimeout             *Duration         `yaml:"start_timeout,omitempty"`
	StopTimeout              *Duration         `yaml:"stop_timeout,omitempty"`
	StartAbortTimeout        *Duration         `yaml:"start_abort_timeout,omitempty"`
	LogFileActivityTimeout   *Duration         `yaml:"log_file_activity_timeout,omitempty"`
	PingInterval             *Duration         `yaml:"ping_interval,omitempty"`
	StopGracefulSignal       string            `yaml:"stop_graceful_signal,omitempty"`
	DontStopIfPidFileInvalid bool              `yaml:"dont_stop_if_pid_file_invalid,omitempty"`
	DaemonizeForMe           bool              `yaml:"daemonize_for_me,omitempty"`
}

// Load reads path (one entry, or a top-level list of entries) and
// returns a HandleSpec for each: the positional NewHandle arguments plus
// the entry's chosen options. Every returned spec still goes
// through NewHandle's own validation; Load only resolves the YAML shape.
func Load(path string) ([]HandleSpec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("manifest: read %s: %w", path, err)
	}

	var entries []entry
	if err := yaml.Unmarshal(data, &entries); err != nil {
		var single entry
		if err2 := yaml.Unmarshal(data, &single); err2 != nil {
			return nil, fmt.Errorf("manifest: parse %s: %w", path, err)
		}
		entries = []entry{single}
	}

	specs := make([]HandleSpec, 0, len(entries))
	for _, e := range entries {
		spec, err := e.toSpec(path)
		if err != nil {
			return nil, err
		}
		specs = append(specs, spec)
	}
	return specs, nil
}

// HandleSpec is one manifest entry resolved into daemonctl inputs: the
// positional NewHandle arguments plus the Options that carry everything
// else. daemonctl.NewHandle does not accept a HandleConfig, so Load hands
// back the pieces NewHandle expects.
type HandleSpec struct {
	Identifier   string
	StartCommand daemonctl.CommandSource
	PingSpec     daemonctl.PingSpec
	PidFilePath  string
	LogFilePath  string
	Options      []daemonctl.Option
}

func (e entry) toSpec(manifestPath string) (HandleSpec, error) {
	if e.Identifier == "" {
		return HandleSpec{}, fmt.Errorf("manifest %s: entry missing identifier", manifestPath)
	}
	ping, err := e.Ping.build()
	if err != nil {
		return HandleSpec{}, fmt.Errorf("manifest %s: daemon %s: %w", manifestPath, e.Identifier, err)
	}
	if e.PidFile == "" || e.LogFile == "" {
		return HandleSpec{}, fmt.Errorf("manifest %s: daemon %s: pid_file and log_file are required", manifestPath, e.Identifier)
	}

	var opts []daemonctl.Option
	if e.StopCommand != "" {
		opts = append(opts, daemonctl.WithStopCommand(daemonctl.Command(e.StopCommand)))
	}
	if e.RestartCommand != "" {
		opts = append(opts, daemonctl.WithRestartCommand(daemonctl.Command(e.RestartCommand)))
	}
	if e.LockFile != "" {
		opts = append(opts, daemonctl.WithLockFilePath(e.LockFile))
	}
	if len(e.Env) > 0 {
		opts = append(opts, daemonctl.WithEnv(e.Env))
	}
	if e.StartTimeout != nil {
		opts = append(opts, daemonctl.WithStartTimeout(time.Duration(*e.StartTimeout)))
	}
	if e.StopTimeout != nil {
		opts = append(opts, daemonctl.WithStopTimeout(time.Duration(*e.StopTimeout)))
	}
	if e.StartAbortTimeout != nil {
		opts = append(opts, daemonctl.WithStartAbortTimeout(time.Duration(*e.StartAbortTimeout)))
	}
	if e.LogFileActivityTimeout != nil {
		opts = append(opts, daemonctl.WithLogFileActivityTimeout(time.Duration(*e.LogFileActivityTimeout)))
	}
	if e.PingInterval != nil {
		opts = append(opts, daemonctl.WithPingInterval(time.Duration(*e.PingInterval)))
	}
	if e.StopGracefulSignal != "" {
		opts = append(opts, daemonctl.WithStopGracefulSignal(e.StopGracefulSignal))
	}
	if e.DontStopIfPidFileInvalid {
		opts = append(opts, daemonctl.WithDontStopIfPidFileInvalid())
	}
	if e.DaemonizeForMe {
		opts = append(opts, daemonctl.WithDaemonizeForMe())
	}

	return HandleSpec{
		Identifier:   e.Identifier,
		StartCommand: daemonctl.Command(e.StartCommand),
		PingSpec:     ping,
		PidFilePath:  e.PidFile,
		LogFilePath:  e.LogFile,
		Options:      opts,
	}, nil
}

// NewHandle builds a daemonctl.Handle directly from a HandleSpec.
func NewHandle(spec HandleSpec) (*daemonctl.Handle, error) {
	return daemonctl.NewHandle(spec.Identifier, spec.StartCommand, spec.PingSpec, spec.PidFilePath, spec.LogFilePath, spec.Options...)
}
