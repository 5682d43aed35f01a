package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"

	"github.com/spf13/cobra"

	"github.com/YoYoZ/powerswitch-Klipper/internal/journal"
	"github.com/YoYoZ/powerswitch-Klipper/internal/journal/factory"
	"github.com/YoYoZ/powerswitch-Klipper/internal/logger"
	"github.com/YoYoZ/powerswitch-Klipper/internal/supervisor"
)

func main() {
	os.Exit(run())
}

func run() int {
	logger.Setup(logger.Config{})

	root, cleanup, err := buildRoot()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	defer cleanup()

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		// Diagnostic modes propagate the worker's own exit status.
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return exitErr.ExitCode()
		}
		return 1
	}
	return 0
}

func buildRoot() (*cobra.Command, func(), error) {
	paths, err := resolvePaths()
	if err != nil {
		return nil, nil, err
	}

	sup := supervisor.New(supervisor.Spec{
		Command: paths.Worker,
		PIDFile: paths.PIDFile,
		LogFile: paths.LogFile,
	})

	cleanup := func() {}
	if sink, err := journalSink(paths); err != nil {
		slog.Warn("supervision journal disabled", "error", err)
	} else {
		rec := journal.NewRecorder(sink)
		sup.SetJournal(rec)
		cleanup = func() { _ = rec.Close() }
	}

	c := &command{sup: sup, paths: paths, out: os.Stdout}
	root := createRootCommand(c)
	root.AddCommand(
		createStatusCommand(c),
		createStartCommand(c),
		createStopCommand(c),
		createRestartCommand(c),
		createLogsCommand(c),
		createTestCommand(c),
		createTestPauseCommand(c),
	)
	return root, cleanup, nil
}

// journalSink opens the lifecycle journal. The default is a SQLite file
// beside the binary; POWERSWITCH_JOURNAL overrides it with any supported
// DSN (sqlite, postgres, clickhouse, opensearch).
func journalSink(paths workerPaths) (journal.Sink, error) {
	dsn := os.Getenv("POWERSWITCH_JOURNAL")
	if dsn == "" {
		dsn = "sqlite://" + paths.Journal
	}
	return factory.NewSinkFromDSN(dsn)
}
