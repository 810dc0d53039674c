// Package process has small helpers for inspecting OS processes.
package process

import (
	"os"
	"syscall"
)

// IsProcessAlive reports whether a process with the given PID exists. Signal
// 0 checks existence without delivering anything; EPERM still means the
// process is there, just owned by someone else.
func IsProcessAlive(pid int) bool {
	if pid <= 0 {
		return false
	}

	// os.FindProcess never fails on Unix.
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}

	err = proc.Signal(syscall.Signal(0))
	return err == nil || os.IsPermission(err)
}
