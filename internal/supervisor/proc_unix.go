//go:build !windows

package supervisor

import (
	"errors"
	"syscall"
)

// detachAttrs puts the worker in its own session so it survives the
// supervisor process exiting and never shares our controlling terminal.
func detachAttrs() *syscall.SysProcAttr {
	return &syscall.SysProcAttr{Setsid: true}
}

// terminate asks pid to exit. A process that is already gone counts as done.
func terminate(pid int) error {
	err := syscall.Kill(pid, syscall.SIGTERM)
	if err == nil || errors.Is(err, syscall.ESRCH) {
		return nil
	}
	return err
}

// kill ends pid without appeal.
func kill(pid int) error {
	err := syscall.Kill(pid, syscall.SIGKILL)
	if err == nil || errors.Is(err, syscall.ESRCH) {
		return nil
	}
	return err
}

// reapIfExited collects the exit status of a child that already died, so a
// worker we spawned does not linger as a zombie during the settle or stop
// polls. Harmless for processes that are not our children.
func reapIfExited(pid int) {
	var ws syscall.WaitStatus
	_, _ = syscall.Wait4(pid, &ws, syscall.WNOHANG, nil)
}
