//go:build windows

package supervisor

import (
	"errors"
	"os"
	"syscall"
)

func detachAttrs() *syscall.SysProcAttr {
	return &syscall.SysProcAttr{CreationFlags: syscall.CREATE_NEW_PROCESS_GROUP}
}

// terminate has no graceful analogue here, both stop phases end the process.
func terminate(pid int) error { return endProcess(pid) }

func kill(pid int) error { return endProcess(pid) }

func endProcess(pid int) error {
	p, err := os.FindProcess(pid)
	if err != nil {
		return nil
	}
	err = p.Kill()
	if err == nil || errors.Is(err, os.ErrProcessDone) {
		return nil
	}
	return err
}

func reapIfExited(pid int) {}
