// SPDX-License-Identifier: Apache-2.0

// Package process provides single-instance enforcement for the demo host
// via a PID file in the user's home directory.
package process

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"syscall"
)

const pidFileName = "mwa-demo-host.pid"

func pidFilePath(suffix string) (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	dir := filepath.Join(homeDir, ".mwa-demo")
	if err := os.MkdirAll(dir, 0700); err != nil {
		return "", fmt.Errorf("failed to create PID directory: %w", err)
	}
	name := pidFileName
	if suffix != "" {
		name = fmt.Sprintf("mwa-demo-host-%s.pid", suffix)
	}
	return filepath.Join(dir, name), nil
}

// readPID returns the process id recorded in the file at path, or 0 if the
// file is missing, unreadable, or holds garbage. Unreadable and garbage
// files are removed so a later lock attempt starts clean.
func readPID(path string) int {
	raw, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			_ = os.Remove(path)
		}
		return 0
	}
	pid, err := strconv.Atoi(string(raw))
	if err != nil {
		_ = os.Remove(path)
		return 0
	}
	return pid
}

// isRunning reports whether a process with the given pid exists. Signal 0
// performs the existence check without delivering anything.
func isRunning(pid int) bool {
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	return proc.Signal(syscall.Signal(0)) == nil
}

// LockPIDFile records this process in the default PID file. It returns
// false without error when another live instance already holds the lock.
func LockPIDFile() (bool, error) {
	return LockPIDFileWithSuffix("")
}

// LockPIDFileWithSuffix is LockPIDFile with a distinct file per suffix, so
// intentionally parallel instances (tests, sandboxes) do not contend.
func LockPIDFileWithSuffix(suffix string) (bool, error) {
	path, err := pidFilePath(suffix)
	if err != nil {
		return false, err
	}

	if pid := readPID(path); pid != 0 {
		if isRunning(pid) {
			return false, nil
		}
		// Stale lock from a dead process.
		_ = os.Remove(path)
	}

	if err := os.WriteFile(path, []byte(strconv.Itoa(os.Getpid())), 0644); err != nil {
		return false, fmt.Errorf("failed to write PID file: %w", err)
	}
	return true, nil
}

// UnlockPIDFile removes the default PID file.
func UnlockPIDFile() error {
	path, err := pidFilePath("")
	if err != nil {
		return err
	}
	return os.Remove(path)
}

// KillExistingProcess sends SIGTERM to whatever process the default PID
// file records, then removes the file. A missing file, a dead process, or
// a failed signal all count as success: the goal is "no other instance",
// not "we killed one".
func KillExistingProcess() error {
	path, err := pidFilePath("")
	if err != nil {
		return err
	}

	pid := readPID(path)
	if pid == 0 {
		return nil
	}

	if proc, err := os.FindProcess(pid); err == nil {
		_ = proc.Signal(syscall.SIGTERM)
	}

	_ = os.Remove(path)
	return nil
}
