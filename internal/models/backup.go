package models

import "time"

// Snapshot trigger reasons.
const (
	ReasonScheduled = "scheduled"
	ReasonManual    = "manual"
	ReasonPreFix    = "pre-fix"
)

// BackupFile 快照中一个受管文件的记录
// @Description One captured file inside a snapshot. Missing files are recorded
// explicitly instead of aborting the snapshot; absence is diagnostic too.
type BackupFile struct {
	Path    string `json:"path"`
	Mode    uint32 `json:"mode"`
	Missing bool   `json:"missing,omitempty"`
	Size    int64  `json:"size"`
}

// BackupMetadata 快照元信息
// @Description Snapshot metadata record stored as metadata.json beside the files
type BackupMetadata struct {
	ID        string       `json:"id" example:"1714290000-0"`
	CreatedAt time.Time    `json:"createdAt"`
	Reason    string       `json:"reason" example:"scheduled"`
	Files     []BackupFile `json:"files"`
}
