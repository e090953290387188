package models

// FileRestoreResult 单个文件的恢复结果
type FileRestoreResult struct {
	Path   string `json:"path"`
	OK     bool   `json:"ok"`
	Detail string `json:"detail,omitempty"`
}

// RestoreResult 恢复操作汇总
// @Description Per-file restore outcome; a partial restore is always visible,
// never collapsed into a single boolean.
type RestoreResult struct {
	BackupID  string              `json:"backupId"`
	Files     []FileRestoreResult `json:"files"`
	Succeeded int                 `json:"succeeded"`
	Failed    int                 `json:"failed"`
}
