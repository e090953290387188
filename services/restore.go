package services

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"stackguard/internal/logger"
	"stackguard/internal/models"
)

// RemediationPauser cooperatively suspends remediation for a set of services
// while their governed files are being rewritten. This is a pause, not a kill:
// in-flight actions finish, new ones are simply not launched.
type RemediationPauser interface {
	PauseRemediation(services []string)
	ResumeRemediation()
}

/**
 * RestoreManager 快照回写
 * @description
 * - Reverses one snapshot onto the live filesystem
 * - Pauses supervisor remediation first so a restart never races a file write
 * - Failures are reported per file; a partial restore is always visible
 */
type RestoreManager struct {
	backups     *BackupManager
	locks       *PathLocks
	lockTimeout time.Duration
	pauser      RemediationPauser
	services    []string
	log         *logger.Logger
}

func NewRestoreManager(backups *BackupManager, locks *PathLocks, lockTimeout time.Duration, services []string) *RestoreManager {
	return &RestoreManager{
		backups:     backups,
		locks:       locks,
		lockTimeout: lockTimeout,
		services:    services,
		log:         logger.ForComponent("restore"),
	}
}

// SetPauser wires the supervisor in once it exists; nil means no pause
// coordination (one-shot CLI use with no daemon running).
func (r *RestoreManager) SetPauser(p RemediationPauser) {
	r.pauser = p
}

/**
 * Restore a snapshot onto the live filesystem
 * @param {string} id - Backup id, or "latest" for the newest snapshot
 * @returns {*models.RestoreResult} Per-file outcome with success/failure counts
 * @returns {error} Only resolution-level failures (unknown id, empty store)
 * @description
 * - Writes every captured (path, content, mode) back verbatim
 * - Paths recorded as missing at snapshot time are removed, reversing the
 *   snapshot exactly
 * - Per-file write failures never abort the remaining files
 */
func (r *RestoreManager) Restore(id string) (*models.RestoreResult, error) {
	meta, err := r.resolve(id)
	if err != nil {
		return nil, err
	}

	if r.pauser != nil {
		r.pauser.PauseRemediation(r.services)
		defer r.pauser.ResumeRemediation()
	}

	result := &models.RestoreResult{BackupID: meta.ID}
	for _, file := range meta.Files {
		fr := r.restoreFile(meta.ID, file)
		result.Files = append(result.Files, fr)
		if fr.OK {
			result.Succeeded++
		} else {
			result.Failed++
		}
	}

	r.log.Infof("Restore [%s]: %d succeeded, %d failed", meta.ID, result.Succeeded, result.Failed)
	return result, nil
}

func (r *RestoreManager) resolve(id string) (*models.BackupMetadata, error) {
	if id == "latest" {
		return r.backups.Latest()
	}
	meta, err := r.backups.Get(id)
	if err != nil {
		return nil, fmt.Errorf("backup '%s' not found: %w", id, err)
	}
	return meta, nil
}

func (r *RestoreManager) restoreFile(id string, file models.BackupFile) models.FileRestoreResult {
	fr := models.FileRestoreResult{Path: file.Path}

	release, err := r.locks.Acquire(file.Path, r.lockTimeout)
	if err != nil {
		fr.Detail = "lock contention, file not restored"
		r.log.Errorf("Restore [%s]: %s: %s", id, file.Path, fr.Detail)
		return fr
	}
	defer release()

	if file.Missing {
		// The snapshot says the file did not exist; reverse that exactly
		if err := os.Remove(file.Path); err != nil && !os.IsNotExist(err) {
			fr.Detail = fmt.Sprintf("remove failed: %v", err)
			return fr
		}
		fr.OK = true
		fr.Detail = "absent at snapshot time, removed"
		return fr
	}

	content, err := r.backups.FileContent(id, file.Path)
	if err != nil {
		fr.Detail = fmt.Sprintf("captured content unreadable: %v", err)
		r.log.Errorf("Restore [%s]: %s: %s", id, file.Path, fr.Detail)
		return fr
	}

	if err := os.MkdirAll(filepath.Dir(file.Path), 0755); err != nil {
		fr.Detail = fmt.Sprintf("create parent dir failed: %v", err)
		return fr
	}
	mode := fs.FileMode(file.Mode)
	if mode == 0 {
		mode = 0644
	}
	if err := os.WriteFile(file.Path, content, mode); err != nil {
		fr.Detail = fmt.Sprintf("write failed: %v", err)
		r.log.Errorf("Restore [%s]: %s: %s", id, file.Path, fr.Detail)
		return fr
	}
	// WriteFile applies mode only on create; make it verbatim either way
	if err := os.Chmod(file.Path, mode); err != nil {
		fr.Detail = fmt.Sprintf("chmod failed: %v", err)
		return fr
	}

	fr.OK = true
	return fr
}
