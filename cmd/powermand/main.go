package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"
)

func main() {
	os.Exit(run())
}

func run() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := buildRoot()
	if err := root.ExecuteContext(ctx); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}

// globalFlags holds the persistent flags shared by every command.
type globalFlags struct {
	ConfigPath string
}

func buildRoot() *cobra.Command {
	flags := &globalFlags{}

	root := &cobra.Command{
		Use:   "powermand",
		Short: "Pauses Klipper prints around planned power outages",
		Long: `powermand watches a planned-outage feed and pauses the print via
Moonraker shortly before the power is scheduled to go out, parking the
heaters at a standby temperature. Once the outage has passed it restores
the working temperatures and resumes the print.

Without a subcommand it runs as a daemon. Examples:
  powermand                     run the daemon
  powermand once                run a single schedule check and exit
  powermand test_pause          exercise the pause/resume cycle once
  powermand config init --material=petg`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runDaemon(cmd.Context(), flags.ConfigPath)
		},
	}
	root.PersistentFlags().StringVar(&flags.ConfigPath, "config", defaultConfigPath(), "path to powermand.toml")

	root.AddCommand(
		createOnceCommand(flags),
		createTestPauseCommand(flags),
		createConfigCommand(flags),
	)
	return root
}

func createOnceCommand(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "once",
		Short: "Run one schedule check and exit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runOnce(cmd.Context(), flags.ConfigPath, cmd.OutOrStdout())
		},
	}
}

func createTestPauseCommand(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "test_pause",
		Short: "Exercise the full pause/park/resume cycle against the printer",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runTestPause(cmd.Context(), flags.ConfigPath, cmd.OutOrStdout())
		},
	}
}

// defaultConfigPath looks for powermand.toml beside the binary, matching
// how the supervisor deploys the pair.
func defaultConfigPath() string {
	exe, err := os.Executable()
	if err != nil {
		return "powermand.toml"
	}
	return filepath.Join(filepath.Dir(exe), "powermand.toml")
}
