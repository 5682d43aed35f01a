package pidfile

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/google/renameio/v2"
)

// The record holds a single decimal PID and nothing else. A present file
// proves only that a start was attempted; the PID may belong to a process
// that is long gone, or (after OS-level PID reuse) to an unrelated one.
// Callers must verify liveness before trusting the value.

// Write persists pid atomically (write + rename) so a concurrent reader
// never observes a partially written number.
func Write(path string, pid int) error {
	if pid <= 0 {
		return fmt.Errorf("refusing to record invalid pid %d", pid)
	}
	return renameio.WriteFile(path, []byte(strconv.Itoa(pid)+"\n"), 0o644)
}

// Read returns the recorded PID. A missing file is returned as-is so callers
// can distinguish "no record" with os.IsNotExist.
func Read(path string) (int, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	line, _, _ := strings.Cut(string(b), "\n")
	pid, err := strconv.Atoi(strings.TrimSpace(line))
	if err != nil {
		return 0, fmt.Errorf("invalid pid in %s: %w", path, err)
	}
	if pid <= 0 {
		return 0, fmt.Errorf("invalid pid %d in %s", pid, path)
	}
	return pid, nil
}

// Remove deletes the record. A missing file is not an error; every caller
// treats "already gone" as done.
func Remove(path string) error {
	err := os.Remove(path)
	if err != nil && os.IsNotExist(err) {
		return nil
	}
	return err
}

// Exists reports whether a record is present without reading it.
func Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
