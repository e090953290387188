package models

import "time"

// ServiceHealth 单个服务的健康状态
// @Description Health record for one monitored service
type ServiceHealth struct {
	Status          ServiceState `json:"status" example:"healthy" description:"healthy/remediating/degraded"`
	LastCheck       time.Time    `json:"lastCheck" description:"最近一次探测时间"`
	LastProbeStatus int          `json:"lastProbeStatus,omitempty" example:"200" description:"最近观测到的状态码,0表示网络错误"`
	LatencyMs       int64        `json:"latencyMs" example:"12" description:"探测耗时毫秒"`
	LastRemediation time.Time    `json:"lastRemediation,omitempty" description:"最近一次修复动作时间"`
	Detail          string       `json:"detail,omitempty" description:"失败原因"`
}

// HealthReport 系统健康报告
// @Description Point-in-time health report, the latest instance supersedes all
// previous ones. Projected to cache/health.json every supervisor cycle.
type HealthReport struct {
	Timestamp time.Time                `json:"timestamp"`
	Overall   string                   `json:"overall" example:"healthy" description:"healthy iff all services pass"`
	Services  map[string]ServiceHealth `json:"services"`
}

const (
	OverallHealthy  = "healthy"
	OverallDegraded = "degraded"
)

// HealthResponse 健康检查响应结构
// @Description Readiness probe response of the daemon itself
type HealthResponse struct {
	Version   string  `json:"version" example:"0.9.0"`
	StartTime string  `json:"startTime" example:"2024-01-01T10:00:00Z"`
	Status    string  `json:"status" example:"UP"`
	Uptime    string  `json:"uptime" example:"1h30m45s"`
	Metrics   Metrics `json:"metrics"`
}

// Metrics 关键指标结构
type Metrics struct {
	TotalRequests    int64 `json:"totalRequests"`
	ErrorRequests    int64 `json:"errorRequests"`
	HealthyServices  int   `json:"healthyServices"`
	DegradedServices int   `json:"degradedServices"`
	DriftRepairs     int64 `json:"driftRepairs"`
	SnapshotsTaken   int64 `json:"snapshotsTaken"`
}
