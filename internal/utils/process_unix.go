//go:build unix || linux || darwin

package utils

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"syscall"
)

// SetNewPG 设置进程属性，使子进程在父进程退出后继续运行
func SetNewPG(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{
		Setpgid: true,
	}
}

// IsProcessRunning 检查进程是否正在运行
func IsProcessRunning(pid int) (bool, error) {
	process, err := os.FindProcess(pid)
	if err != nil {
		return false, fmt.Errorf("failed to find process with PID %d: %v", pid, err)
	}

	// Signal 0 probes existence without delivering anything
	err = process.Signal(syscall.Signal(0))
	if err != nil {
		return false, nil
	}
	return true, nil
}

// GetProcessName 根据PID获取进程名
func GetProcessName(pid int) (string, error) {
	// Linux: /proc/<pid>/cmdline
	cmdlinePath := fmt.Sprintf("/proc/%d/cmdline", pid)
	if cmdline, err := os.ReadFile(cmdlinePath); err == nil && len(cmdline) > 0 {
		args := strings.Split(string(cmdline), "\x00")
		if len(args) > 0 && args[0] != "" {
			return filepath.Base(args[0]), nil
		}
	}

	// Darwin has no /proc, fall back to ps
	out, err := exec.Command("ps", "-o", "comm=", "-p", fmt.Sprintf("%d", pid)).Output()
	if err != nil {
		return "", fmt.Errorf("failed to get process name for PID %d: %v", pid, err)
	}
	name := strings.TrimSpace(string(out))
	if name == "" {
		return "", fmt.Errorf("no process found with PID %d", pid)
	}
	return filepath.Base(name), nil
}
