package daemonctl

import (
	"strings"

	"github.com/relaywatch/daemonctl/internal/launcher"
)

// composeMessage builds spec.md §4.F.5's human-readable failure message
// from the launcher's captured output, the log watcher's diff, and a
// semicolon-separated suffix (exit/signal info, "timed out", or both).
func composeMessage(output []byte, logs []byte, hasLogs bool, suffix string) string {
	if output == nil && !hasLogs {
		return wrapSuffix("logs not available", suffix)
	}
	if len(output) == 0 && (!hasLogs || len(logs) == 0) {
		return wrapSuffix("logs empty", suffix)
	}

	var parts []string
	if len(output) > 0 {
		parts = append(parts, strings.TrimSpace(string(output)))
	}
	if hasLogs && len(logs) > 0 {
		parts = append(parts, strings.TrimSpace(string(logs)))
	}
	body := strings.TrimSpace(strings.Join(parts, "\n"))
	if suffix == "" {
		return body
	}
	return body + "\n(" + suffix + ")"
}

func wrapSuffix(label, suffix string) string {
	if suffix == "" {
		return "(" + label + ")"
	}
	return "(" + label + "; " + suffix + ")"
}

func joinSuffix(parts ...string) string {
	var nonEmpty []string
	for _, p := range parts {
		if p != "" {
			nonEmpty = append(nonEmpty, p)
		}
	}
	return strings.Join(nonEmpty, "; ")
}

func exitSuffix(status *launcher.ExitStatus) string {
	if status == nil {
		return ""
	}
	return status.String()
}
