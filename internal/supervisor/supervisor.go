// Package supervisor implements single-instance lifecycle control for the
// power management worker: PID-record bookkeeping, detached spawn with log
// redirection, and the staged stop escalation.
//
// The PID record is a weak reference. There is no file locking and no
// start-time token, so two operators racing the same operation, or a PID
// reused after a reboot, can be misjudged. The operational envelope is a
// single operator per host.
package supervisor

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/YoYoZ/powerswitch-Klipper/internal/detector"
	"github.com/YoYoZ/powerswitch-Klipper/internal/journal"
	"github.com/YoYoZ/powerswitch-Klipper/internal/logtail"
	"github.com/YoYoZ/powerswitch-Klipper/internal/pidfile"
	"github.com/YoYoZ/powerswitch-Klipper/internal/procinfo"
)

// ErrAlreadyRunning reports a start refused because the recorded worker is
// still alive.
var ErrAlreadyRunning = errors.New("worker already running")

// StartFailedError reports a worker that spawned but was dead again when the
// settle window ended. The stale PID record is left in place: status and stop
// reclaim it, and the next start overwrites it.
type StartFailedError struct {
	PID     int
	LogTail []string
}

func (e *StartFailedError) Error() string {
	return fmt.Sprintf("worker (pid %d) exited during the settle window", e.PID)
}

// State classifies what the PID record and a liveness probe say about the
// worker.
type State string

const (
	StateNotRunning State = "not running"
	StateRunning    State = "running"
	StateStale      State = "stale"
)

// Status is the result of a status inspection. StateStale means a record
// named a dead process and has been reclaimed.
type Status struct {
	State State
	PID   int
	Info  *procinfo.Info // resource usage of a running worker, nil when unavailable
}

// StopOutcome tells how a stop concluded.
type StopOutcome int

const (
	StopNotRunning StopOutcome = iota
	StopReclaimedStale
	StopGraceful
	StopForced
)

// StopResult reports the stop path taken and how long the worker was given.
type StopResult struct {
	Outcome StopOutcome
	PID     int
	Waited  time.Duration
}

// Supervisor drives one worker through its lifecycle. All operations are
// synchronous: callers get the final state, never a promise.
type Supervisor struct {
	spec    Spec
	journal *journal.Recorder
}

func New(spec Spec) *Supervisor {
	return &Supervisor{spec: spec}
}

// SetJournal attaches a lifecycle event recorder. Recording is best effort
// and never fails an operation.
func (s *Supervisor) SetJournal(rec *journal.Recorder) { s.journal = rec }

func (s *Supervisor) Spec() Spec { return s.spec }

// Status reads the PID record, probes the named process, and reclaims the
// record if the process is gone.
func (s *Supervisor) Status(ctx context.Context) (Status, error) {
	pid, err := pidfile.Read(s.spec.PIDFile)
	if err != nil {
		if os.IsNotExist(err) {
			return Status{State: StateNotRunning}, nil
		}
		// Unreadable record: reclaim it like any other stale leftover.
		if rmErr := pidfile.Remove(s.spec.PIDFile); rmErr != nil {
			return Status{}, rmErr
		}
		s.record(ctx, journal.EventStaleReclaimed, 0, "unreadable pid record")
		return Status{State: StateStale}, nil
	}
	if s.alive(pid) {
		st := Status{State: StateRunning, PID: pid}
		if info, err := procinfo.Snapshot(pid); err == nil {
			st.Info = info
		}
		return st, nil
	}
	if err := pidfile.Remove(s.spec.PIDFile); err != nil {
		return Status{}, err
	}
	s.record(ctx, journal.EventStaleReclaimed, pid, "")
	return Status{State: StateStale, PID: pid}, nil
}

// Start spawns the worker detached, persists its PID, then waits out the
// settle window and re-probes. A worker that is dead by then yields a
// StartFailedError carrying the log tail.
func (s *Supervisor) Start(ctx context.Context) (int, error) {
	if pid, err := pidfile.Read(s.spec.PIDFile); err == nil && s.alive(pid) {
		return pid, fmt.Errorf("%w (pid %d)", ErrAlreadyRunning, pid)
	}

	logF, err := os.OpenFile(s.spec.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return 0, fmt.Errorf("open log stream: %w", err)
	}
	cmd := s.spec.BuildCommand("")
	cmd.Stdout = logF
	cmd.Stderr = logF
	cmd.SysProcAttr = detachAttrs()
	if env := mergeEnv(s.spec.Env); env != nil {
		cmd.Env = env
	}
	if err := cmd.Start(); err != nil {
		_ = logF.Close()
		s.record(ctx, journal.EventStartFailed, 0, err.Error())
		return 0, fmt.Errorf("spawn worker: %w", err)
	}
	_ = logF.Close() // the worker holds its own descriptor now

	pid := cmd.Process.Pid
	if err := pidfile.Write(s.spec.PIDFile, pid); err != nil {
		return pid, fmt.Errorf("write pid record: %w", err)
	}

	select {
	case <-time.After(s.spec.settle()):
	case <-ctx.Done():
		return pid, ctx.Err()
	}

	if !s.alive(pid) {
		tail, _ := logtail.Tail(s.spec.LogFile, s.spec.tailLines())
		s.record(ctx, journal.EventStartFailed, pid, "worker exited during settle window")
		return pid, &StartFailedError{PID: pid, LogTail: tail}
	}
	s.record(ctx, journal.EventStarted, pid, "")
	return pid, nil
}

// Stop ends the recorded worker: termination request first, then bounded
// polling, then a forced kill. A missing or stale record is not a failure.
func (s *Supervisor) Stop(ctx context.Context) (StopResult, error) {
	pid, err := pidfile.Read(s.spec.PIDFile)
	if err != nil {
		if os.IsNotExist(err) {
			return StopResult{Outcome: StopNotRunning}, nil
		}
		if rmErr := pidfile.Remove(s.spec.PIDFile); rmErr != nil {
			return StopResult{}, rmErr
		}
		s.record(ctx, journal.EventStaleReclaimed, 0, "unreadable pid record")
		return StopResult{Outcome: StopReclaimedStale}, nil
	}
	if !s.alive(pid) {
		if err := pidfile.Remove(s.spec.PIDFile); err != nil {
			return StopResult{}, err
		}
		s.record(ctx, journal.EventStaleReclaimed, pid, "")
		return StopResult{Outcome: StopReclaimedStale, PID: pid}, nil
	}

	if err := terminate(pid); err != nil {
		return StopResult{}, fmt.Errorf("terminate pid %d: %w", pid, err)
	}
	began := time.Now()
	for i := 0; i < s.spec.stopPolls(); i++ {
		if !s.alive(pid) {
			if err := pidfile.Remove(s.spec.PIDFile); err != nil {
				return StopResult{}, err
			}
			s.record(ctx, journal.EventStopped, pid, "")
			return StopResult{Outcome: StopGraceful, PID: pid, Waited: time.Since(began)}, nil
		}
		select {
		case <-time.After(s.spec.stopPoll()):
		case <-ctx.Done():
			return StopResult{}, ctx.Err()
		}
	}
	if err := kill(pid); err != nil {
		return StopResult{}, fmt.Errorf("force kill pid %d: %w", pid, err)
	}
	if err := pidfile.Remove(s.spec.PIDFile); err != nil {
		return StopResult{}, err
	}
	s.record(ctx, journal.EventKilled, pid, "did not exit within the stop budget")
	return StopResult{Outcome: StopForced, PID: pid, Waited: time.Since(began)}, nil
}

// Restart stops whatever the record names, pauses for the restart gap, and
// starts fresh. The stop half never blocks the start half.
func (s *Supervisor) Restart(ctx context.Context) (int, error) {
	if _, err := s.Stop(ctx); err != nil {
		return 0, fmt.Errorf("stop before restart: %w", err)
	}
	select {
	case <-time.After(s.spec.restartGap()):
	case <-ctx.Done():
		return 0, ctx.Err()
	}
	return s.Start(ctx)
}

// Diagnose runs the worker in the foreground with a one-shot mode argument,
// wired to the operator's terminal. A non-zero worker exit comes back as an
// *exec.ExitError so callers can propagate the code.
func (s *Supervisor) Diagnose(mode string) error {
	cmd := s.spec.BuildCommand(mode)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if env := mergeEnv(s.spec.Env); env != nil {
		cmd.Env = env
	}
	return cmd.Run()
}

// alive probes pid, first reaping it in case it exited while still a child
// of this process.
func (s *Supervisor) alive(pid int) bool {
	reapIfExited(pid)
	return detector.Alive(pid)
}

func (s *Supervisor) record(ctx context.Context, t journal.EventType, pid int, detail string) {
	s.journal.Record(ctx, t, pid, detail)
}
