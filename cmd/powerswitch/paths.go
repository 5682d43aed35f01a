package main

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
)

// workerPaths is the fixed file layout beside the supervisor binary. The
// worker, its pid record, its log, and the supervision journal all live in
// the same directory; there is no option to relocate them.
type workerPaths struct {
	Worker  string
	PIDFile string
	LogFile string
	Journal string
}

func resolvePaths() (workerPaths, error) {
	exe, err := os.Executable()
	if err != nil {
		return workerPaths{}, fmt.Errorf("locate supervisor binary: %w", err)
	}
	return pathsIn(filepath.Dir(exe)), nil
}

func pathsIn(dir string) workerPaths {
	worker := "powermand"
	if runtime.GOOS == "windows" {
		worker += ".exe"
	}
	return workerPaths{
		Worker:  filepath.Join(dir, worker),
		PIDFile: filepath.Join(dir, "powermand.pid"),
		LogFile: filepath.Join(dir, "powermand.log"),
		Journal: filepath.Join(dir, "powerswitch.db"),
	}
}
