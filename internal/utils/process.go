package utils

import (
	"fmt"
	"os"
	"strings"
)

/**
 * Find process by name and PID
 * @param {string} processName - Expected process name, guards against PID reuse
 * @param {int} pid - Process ID
 * @returns {*os.Process} Process object on match
 * @returns {error} Error when the process is gone or the name differs
 * @description
 * - Looks up the process by PID
 * - Compares the actual process name against the expected one (case-insensitive)
 * - A name mismatch means the PID was recycled by another program
 */
func FindProcess(processName string, pid int) (*os.Process, error) {
	proc, err := os.FindProcess(pid)
	if err != nil {
		return nil, err
	}

	name, err := GetProcessName(pid)
	if err != nil {
		return nil, fmt.Errorf("failed to get process name for PID %d: %w", pid, err)
	}

	if strings.EqualFold(name, processName) {
		return proc, nil
	}
	return nil, fmt.Errorf("process name mismatch: expected '%s', got '%s'", processName, name)
}

// KillProcess kills the process identified by name+pid.
func KillProcess(processName string, pid int) error {
	proc, err := FindProcess(processName, pid)
	if err != nil {
		return err
	}
	if err = proc.Kill(); err != nil {
		return err
	}
	return nil
}

// IsProcessAlive reports whether name+pid still identifies a live process.
func IsProcessAlive(processName string, pid int) bool {
	if pid <= 0 {
		return false
	}
	running, err := IsProcessRunning(pid)
	if err != nil || !running {
		return false
	}
	if processName == "" {
		return true
	}
	name, err := GetProcessName(pid)
	if err != nil {
		return false
	}
	return strings.EqualFold(name, processName)
}

// Path2ProcessName strips the directory part of a command path.
func Path2ProcessName(commandPath string) string {
	fields := strings.FieldsFunc(commandPath, func(r rune) bool {
		return r == '/' || r == '\\'
	})
	if len(fields) == 0 {
		return commandPath
	}
	return fields[len(fields)-1]
}
