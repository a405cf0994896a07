package daemonctl

import (
	"os"
	"strings"
	"testing"

	"github.com/relaywatch/daemonctl/internal/testdaemon"
)

// TestMain intercepts re-exec'd helper-process invocations before
// running the real test suite, following the same pattern os/exec's own
// tests use to fabricate a real external process without a separately
// built binary.
func TestMain(m *testing.M) {
	if os.Getenv(testdaemon.HelperProcessEnv) == "1" {
		args := os.Args
		for len(args) > 0 {
			if args[0] == "--" {
				args = args[1:]
				break
			}
			args = args[1:]
		}
		testdaemon.Dispatch(args)
		return
	}
	os.Exit(m.Run())
}

// helperCommand builds a shell command line that re-execs this test
// binary as the named testdaemon fixture.
func helperCommand(fixture string, args ...string) string {
	parts := append([]string{"env", testdaemon.HelperProcessEnv + "=1", os.Args[0], "--", fixture}, args...)
	quoted := make([]string, len(parts))
	for i, p := range parts {
		quoted[i] = shellQuote(p)
	}
	return strings.Join(quoted, " ")
}

func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
