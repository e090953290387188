package models

import "time"

type RunStatus string

const (
	// 表示正在运行
	StatusRunning RunStatus = "running"
	// 表示未运行或程序主动退出
	StatusExited RunStatus = "exited"
	// 表示出错停止
	StatusError RunStatus = "error"
	// 表示被用户手动停止
	StatusStopped RunStatus = "stopped"
)

// ServiceState is the supervisor's per-service state machine position.
type ServiceState string

const (
	StateHealthy     ServiceState = "healthy"
	StateRemediating ServiceState = "remediating"
	StateDegraded    ServiceState = "degraded"
)

// HandleRecord is the durable projection of a remediation process handle.
// It lets the supervisor detect a still-running remediation across its own
// restarts instead of pattern-matching process names.
type HandleRecord struct {
	Service     string    `json:"service"`
	Pid         int       `json:"pid"`
	ProcessName string    `json:"processName"`
	Command     string    `json:"command"`
	Args        []string  `json:"args,omitempty"`
	StartTime   time.Time `json:"startTime"`
	Status      RunStatus `json:"status"`
}
