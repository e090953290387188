package env

import (
	"os"
	"path/filepath"
)

var Daemon bool = false
var ListenPort int = 0
var Version string = "0.9.0"

// (default: %USERPROFILE%/.stackguard on Windows, $HOME/.stackguard on Linux)
var StackguardDir string = GetStackguardDir()

/**
 * Get stackguard directory path
 * @returns {string} Returns stackguard directory path
 */
func GetStackguardDir() string {
	homeDir, _ := os.UserHomeDir()
	return filepath.Join(homeDir, ".stackguard")
}

// LogsDir returns the directory holding per-component append-only logs.
func LogsDir() string {
	return filepath.Join(StackguardDir, "logs")
}

// BackupsDir returns the root of the snapshot store.
func BackupsDir() string {
	return filepath.Join(StackguardDir, "backups")
}

// HandlesDir returns the directory of recorded remediation process handles.
func HandlesDir() string {
	return filepath.Join(StackguardDir, "cache", "handles")
}

// HealthFile returns the path of the health report JSON projection.
func HealthFile() string {
	return filepath.Join(StackguardDir, "cache", "health.json")
}

// RunDir returns the directory holding the daemon socket.
func RunDir() string {
	return filepath.Join(StackguardDir, "run")
}
