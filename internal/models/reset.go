package models

import "time"

// ServiceActionResult records one best-effort stop/start during a reset.
type ServiceActionResult struct {
	Service string `json:"service"`
	Action  string `json:"action" example:"stop"`
	OK      bool   `json:"ok"`
	Detail  string `json:"detail,omitempty"`
}

// ResetReport 紧急重置综合报告
// @Description Combined report of the emergency reset sequence:
// stop all -> restore latest -> start all -> validate -> one supervisor cycle.
type ResetReport struct {
	StartedAt  time.Time             `json:"startedAt"`
	FinishedAt time.Time             `json:"finishedAt"`
	Stops      []ServiceActionResult `json:"stops"`
	Restore    *RestoreResult        `json:"restore,omitempty"`
	Starts     []ServiceActionResult `json:"starts"`
	Validation []DriftResult         `json:"validation"`
	Health     *HealthReport         `json:"health,omitempty"`
	Aborted    bool                  `json:"aborted,omitempty"`
	Detail     string                `json:"detail,omitempty"`
}
