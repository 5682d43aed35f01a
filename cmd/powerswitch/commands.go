package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/YoYoZ/powerswitch-Klipper/internal/logtail"
	"github.com/YoYoZ/powerswitch-Klipper/internal/preflight"
	"github.com/YoYoZ/powerswitch-Klipper/internal/supervisor"
)

// command binds the CLI handlers to one supervisor and its file layout.
type command struct {
	sup   *supervisor.Supervisor
	paths workerPaths
	out   io.Writer
}

// preflight verifies the environment before any mutating operation: the
// runtime that will execute the worker command, and the worker itself.
func (c *command) preflight() error {
	if err := preflight.CheckRuntime(c.sup.Spec().Runtime()); err != nil {
		return fmt.Errorf("environment check failed: %w", err)
	}
	if err := preflight.CheckWorker(c.paths.Worker); err != nil {
		return fmt.Errorf("environment check failed: %w", err)
	}
	return nil
}

// Status reports the worker state and the recent log tail.
func (c *command) Status(ctx context.Context) error {
	st, err := c.sup.Status(ctx)
	if err != nil {
		return err
	}
	switch st.State {
	case supervisor.StateRunning:
		fmt.Fprintf(c.out, "powermand running (pid %d)\n", st.PID)
		if st.Info != nil {
			fmt.Fprintf(c.out, "  uptime %s, cpu %.1f%%, rss %.1f MB\n",
				st.Info.Uptime, st.Info.CPUPercent, st.Info.RSSMB())
		}
	case supervisor.StateStale:
		fmt.Fprintf(c.out, "powermand not running (removed stale pid record for %d)\n", st.PID)
	default:
		fmt.Fprintln(c.out, "powermand not running")
	}
	c.printLogTail()
	return nil
}

func (c *command) printLogTail() {
	lines, err := logtail.Tail(c.paths.LogFile, supervisor.DefaultTailLines)
	if err != nil {
		if os.IsNotExist(err) {
			fmt.Fprintln(c.out, "logs not created yet")
		} else {
			fmt.Fprintf(c.out, "cannot read log: %v\n", err)
		}
		return
	}
	fmt.Fprintf(c.out, "last %d log lines:\n", supervisor.DefaultTailLines)
	for _, line := range lines {
		fmt.Fprintf(c.out, "  %s\n", line)
	}
}

// Start launches the worker daemon after the preflight checks.
func (c *command) Start(ctx context.Context) error {
	if err := c.preflight(); err != nil {
		return err
	}
	pid, err := c.sup.Start(ctx)
	if err != nil {
		var sf *supervisor.StartFailedError
		if errors.As(err, &sf) && len(sf.LogTail) > 0 {
			fmt.Fprintln(c.out, "log tail:")
			for _, line := range sf.LogTail {
				fmt.Fprintf(c.out, "  %s\n", line)
			}
		}
		return err
	}
	fmt.Fprintf(c.out, "powermand started (pid %d)\n", pid)
	return nil
}

// Stop terminates the worker, escalating to a kill after the grace budget.
func (c *command) Stop(ctx context.Context) error {
	if err := c.preflight(); err != nil {
		return err
	}
	res, err := c.sup.Stop(ctx)
	if err != nil {
		return err
	}
	switch res.Outcome {
	case supervisor.StopNotRunning:
		fmt.Fprintln(c.out, "powermand not running")
	case supervisor.StopReclaimedStale:
		if res.PID > 0 {
			fmt.Fprintf(c.out, "powermand not running (removed stale pid record for %d)\n", res.PID)
		} else {
			fmt.Fprintln(c.out, "powermand not running (removed unreadable pid record)")
		}
	case supervisor.StopGraceful:
		fmt.Fprintf(c.out, "powermand stopped (pid %d, waited %s)\n", res.PID, res.Waited.Truncate(supervisor.DefaultStopPoll))
	case supervisor.StopForced:
		fmt.Fprintf(c.out, "powermand did not stop in time, killed (pid %d)\n", res.PID)
	}
	return nil
}

// Restart stops the worker if running, waits a moment, and starts it again.
func (c *command) Restart(ctx context.Context) error {
	if err := c.preflight(); err != nil {
		return err
	}
	pid, err := c.sup.Restart(ctx)
	if err != nil {
		var sf *supervisor.StartFailedError
		if errors.As(err, &sf) && len(sf.LogTail) > 0 {
			fmt.Fprintln(c.out, "log tail:")
			for _, line := range sf.LogTail {
				fmt.Fprintf(c.out, "  %s\n", line)
			}
		}
		return err
	}
	fmt.Fprintf(c.out, "powermand restarted (pid %d)\n", pid)
	return nil
}

// Logs follows the worker log until ctx is cancelled.
func (c *command) Logs(ctx context.Context) error {
	if _, err := os.Stat(c.paths.LogFile); os.IsNotExist(err) {
		fmt.Fprintln(c.out, "logs not created yet")
		return nil
	}
	c.printLogTail()
	fmt.Fprintln(c.out, "following powermand log (interrupt to stop)")
	return logtail.Follow(ctx, c.paths.LogFile, c.out)
}

// Diagnose runs the worker in the foreground with a one-shot mode argument.
func (c *command) Diagnose(mode string) error {
	if err := c.preflight(); err != nil {
		return err
	}
	return c.sup.Diagnose(mode)
}

func createRootCommand(c *command) *cobra.Command {
	root := &cobra.Command{
		Use:   "powerswitch [command]",
		Short: "Supervisor for the powermand printer power manager",
		Long: `Powerswitch supervises a single powermand worker: it starts the daemon
detached with its output captured to a log, stops it with a graceful
signal before escalating to a kill, and inspects its state through a pid
record kept beside the binary.

Run without arguments for the interactive menu.

Examples:
  powerswitch status
  powerswitch start
  powerswitch logs
  powerswitch test_pause`,
		Args:          cobra.ArbitraryArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) > 0 {
				fmt.Fprintf(c.out, "unknown command %q\n\n", args[0])
				return cmd.Help()
			}
			return c.menu(os.Stdin)
		},
	}
	return root
}

func createStatusCommand(c *command) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Report worker state and recent log lines",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.Status(cmd.Context())
		},
	}
}

func createStartCommand(c *command) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the worker daemon in the background",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.Start(cmd.Context())
		},
	}
}

func createStopCommand(c *command) *cobra.Command {
	return &cobra.Command{
		Use:   "stop",
		Short: "Stop the worker daemon",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.Stop(cmd.Context())
		},
	}
}

func createRestartCommand(c *command) *cobra.Command {
	return &cobra.Command{
		Use:   "restart",
		Short: "Restart the worker daemon",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.Restart(cmd.Context())
		},
	}
}

func createLogsCommand(c *command) *cobra.Command {
	return &cobra.Command{
		Use:   "logs",
		Short: "Follow the worker log until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return c.Logs(ctx)
		},
	}
}

func createTestCommand(c *command) *cobra.Command {
	return &cobra.Command{
		Use:   "test",
		Short: "Run the worker's one-shot schedule check in the foreground",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.Diagnose("once")
		},
	}
}

func createTestPauseCommand(c *command) *cobra.Command {
	return &cobra.Command{
		Use:   "test_pause",
		Short: "Run the worker's pause/resume exercise in the foreground",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.Diagnose("test_pause")
		},
	}
}
