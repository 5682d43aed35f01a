package supervisor

import (
	"os/exec"
	"strings"
	"time"
)

// Timing defaults for the stop escalation and start settle window.
const (
	DefaultSettle     = 2 * time.Second
	DefaultStopPoll   = time.Second
	DefaultStopPolls  = 10
	DefaultRestartGap = time.Second
	DefaultTailLines  = 10
)

// Spec describes the single worker under supervision: how to launch it and
// where its PID record and log stream live.
type Spec struct {
	// Command launches the worker. Commands with shell metacharacters run
	// under /bin/sh -c, everything else is executed directly.
	Command string
	// PIDFile is the PID record path. The record is a weak reference: the
	// named PID may have been reused after a crash or reboot.
	PIDFile string
	// LogFile receives the worker's combined stdout and stderr, appended
	// across runs.
	LogFile string
	// Env holds extra KEY=VALUE entries layered over the inherited
	// environment. ${VAR} references expand against the inherited set.
	Env []string

	// Settle is how long a start waits before re-probing the spawned
	// worker. Zero means DefaultSettle.
	Settle time.Duration
	// StopPoll is the interval between liveness polls after a termination
	// request. Zero means DefaultStopPoll.
	StopPoll time.Duration
	// StopPolls is how many polls run before escalating to a forced kill.
	// Zero means DefaultStopPolls.
	StopPolls int
	// RestartGap is the pause between the stop and start halves of a
	// restart. Zero means DefaultRestartGap.
	RestartGap time.Duration
	// TailLines is how many log lines a failed start reports back. Zero
	// means DefaultTailLines.
	TailLines int
}

func (s Spec) settle() time.Duration {
	if s.Settle > 0 {
		return s.Settle
	}
	return DefaultSettle
}

func (s Spec) stopPoll() time.Duration {
	if s.StopPoll > 0 {
		return s.StopPoll
	}
	return DefaultStopPoll
}

func (s Spec) stopPolls() int {
	if s.StopPolls > 0 {
		return s.StopPolls
	}
	return DefaultStopPolls
}

func (s Spec) restartGap() time.Duration {
	if s.RestartGap > 0 {
		return s.RestartGap
	}
	return DefaultRestartGap
}

func (s Spec) tailLines() int {
	if s.TailLines > 0 {
		return s.TailLines
	}
	return DefaultTailLines
}

// BuildCommand constructs the exec.Cmd for the worker. mode, when set, is
// appended as a single trailing argument (the worker's one-shot modes).
func (s Spec) BuildCommand(mode string) *exec.Cmd {
	cmdStr := strings.TrimSpace(s.Command)
	if cmdStr == "" {
		return exec.Command("/bin/true") // #nosec G204
	}
	if mode != "" {
		cmdStr += " " + mode
	}
	if inner, ok := parseExplicitShell(cmdStr); ok {
		return exec.Command("/bin/sh", "-c", inner) // #nosec G204
	}
	if strings.ContainsAny(cmdStr, "|&;<>*?`$\"'(){}[]~") {
		return exec.Command("/bin/sh", "-c", cmdStr) // #nosec G204
	}
	fields := strings.Fields(cmdStr)
	return exec.Command(fields[0], fields[1:]...) // #nosec G204
}

// Runtime returns the program BuildCommand will execute for this spec:
// the shell for metacharacter commands, argv[0] otherwise.
func (s Spec) Runtime() string {
	cmdStr := strings.TrimSpace(s.Command)
	if cmdStr == "" {
		return "/bin/true"
	}
	if _, ok := parseExplicitShell(cmdStr); ok {
		return "/bin/sh"
	}
	if strings.ContainsAny(cmdStr, "|&;<>*?`$\"'(){}[]~") {
		return "/bin/sh"
	}
	return strings.Fields(cmdStr)[0]
}

// parseExplicitShell recognizes commands already phrased as an invocation of
// sh -c and unwraps the payload so it is not double-wrapped.
func parseExplicitShell(cmdStr string) (string, bool) {
	for _, prefix := range []string{"sh -c ", "/bin/sh -c ", "/usr/bin/sh -c "} {
		if strings.HasPrefix(cmdStr, prefix) {
			inner := strings.TrimSpace(strings.TrimPrefix(cmdStr, prefix))
			if len(inner) >= 2 {
				if (inner[0] == '"' && inner[len(inner)-1] == '"') ||
					(inner[0] == '\'' && inner[len(inner)-1] == '\'') {
					inner = inner[1 : len(inner)-1]
				}
			}
			return inner, true
		}
	}
	return "", false
}
