// Package preflight validates the environment before lifecycle operations
// dispatch, so failures surface as one clear message instead of a confusing
// spawn error.
package preflight

import (
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"strings"
)

// CheckRuntime verifies that program resolves to something executable.
// Bare names go through PATH, anything with a path separator is checked
// directly.
func CheckRuntime(program string) error {
	if program == "" {
		return fmt.Errorf("no runtime configured")
	}
	if strings.ContainsRune(program, os.PathSeparator) {
		return checkExecutable(program)
	}
	if _, err := exec.LookPath(program); err != nil {
		return fmt.Errorf("runtime %q not found in PATH: %w", program, err)
	}
	return nil
}

// CheckWorker verifies the worker executable is present beside the
// supervisor and runnable.
func CheckWorker(path string) error {
	if err := checkExecutable(path); err != nil {
		return fmt.Errorf("worker executable: %w", err)
	}
	return nil
}

func checkExecutable(path string) error {
	st, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%s does not exist", path)
		}
		return err
	}
	if st.IsDir() {
		return fmt.Errorf("%s is a directory", path)
	}
	if !st.Mode().IsRegular() {
		return fmt.Errorf("%s is not a regular file", path)
	}
	if runtime.GOOS != "windows" && st.Mode().Perm()&0o111 == 0 {
		return fmt.Errorf("%s is not executable", path)
	}
	return nil
}
