package services

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"stackguard/internal/logger"
	"stackguard/internal/models"
)

/**
 * BackupManager 受管文件快照存储
 * @description
 * - Captures content+mode of every governed path into backups/<id>/
 * - Ids are timestamp-derived and monotonically increasing: <unix>-<seq>
 * - Retention is bounded by count; the oldest snapshots are evicted
 * - Snapshots are immutable after creation; only retention deletes them
 * - Reads are lock-free: stale-but-consistent content is acceptable here
 */
type BackupManager struct {
	root     string
	maxCount int
	paths    []string
	log      *logger.Logger

	mu       sync.Mutex
	lastUnix int64
	lastSeq  int
}

func NewBackupManager(root string, maxCount int, paths []string) *BackupManager {
	b := &BackupManager{
		root:     root,
		maxCount: maxCount,
		paths:    paths,
		log:      logger.ForComponent("backup"),
	}
	// Seed the id generator past the newest existing snapshot so ids stay
	// monotonic across supervisor restarts.
	if metas, err := b.List(); err == nil && len(metas) > 0 {
		newest := metas[len(metas)-1].ID
		if unix, seq, err := parseBackupID(newest); err == nil {
			b.lastUnix = unix
			b.lastSeq = seq
		}
	}
	return b
}

func parseBackupID(id string) (int64, int, error) {
	parts := strings.SplitN(id, "-", 2)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("malformed backup id '%s'", id)
	}
	unix, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("malformed backup id '%s'", id)
	}
	seq, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, 0, fmt.Errorf("malformed backup id '%s'", id)
	}
	return unix, seq, nil
}

func (b *BackupManager) nextID() string {
	b.mu.Lock()
	defer b.mu.Unlock()

	unix := time.Now().Unix()
	if unix <= b.lastUnix {
		// Same second (or clock step back): bump the sequence instead
		unix = b.lastUnix
		b.lastSeq++
	} else {
		b.lastSeq = 0
	}
	b.lastUnix = unix
	return fmt.Sprintf("%d-%d", unix, b.lastSeq)
}

// storedPath mirrors the governed file's absolute path under files/.
func (b *BackupManager) storedPath(id, path string) string {
	rel := strings.TrimPrefix(filepath.ToSlash(path), "/")
	rel = strings.ReplaceAll(rel, ":", "")
	return filepath.Join(b.root, id, "files", filepath.FromSlash(rel))
}

/**
 * Take one snapshot of all governed paths
 * @param {string} reason - Trigger reason: scheduled | manual | pre-fix
 * @returns {*models.BackupMetadata} Metadata of the new snapshot
 * @returns {error} Store-level failures only
 * @description
 * - Unreadable paths are recorded with an explicit missing marker instead of
 *   aborting the snapshot; a missing file is itself diagnostic information
 * - Retention is enforced after the snapshot is durable
 */
func (b *BackupManager) Snapshot(reason string) (*models.BackupMetadata, error) {
	id := b.nextID()
	dir := filepath.Join(b.root, id)
	if err := os.MkdirAll(filepath.Join(dir, "files"), 0700); err != nil {
		return nil, fmt.Errorf("create backup dir failed: %w", err)
	}

	meta := models.BackupMetadata{
		ID:        id,
		CreatedAt: time.Now(),
		Reason:    reason,
	}

	for _, path := range b.paths {
		entry := models.BackupFile{Path: path}

		info, err := os.Stat(path)
		if err != nil {
			entry.Missing = true
			b.log.Warnf("Snapshot [%s]: %s is unreadable, recorded as missing: %v", id, path, err)
			meta.Files = append(meta.Files, entry)
			continue
		}
		content, err := os.ReadFile(path)
		if err != nil {
			entry.Missing = true
			b.log.Warnf("Snapshot [%s]: %s is unreadable, recorded as missing: %v", id, path, err)
			meta.Files = append(meta.Files, entry)
			continue
		}

		stored := b.storedPath(id, path)
		if err := os.MkdirAll(filepath.Dir(stored), 0700); err != nil {
			return nil, fmt.Errorf("create backup subdir failed: %w", err)
		}
		if err := os.WriteFile(stored, content, 0600); err != nil {
			return nil, fmt.Errorf("write captured file failed: %w", err)
		}

		entry.Mode = uint32(info.Mode().Perm())
		entry.Size = int64(len(content))
		meta.Files = append(meta.Files, entry)
	}

	jsonData, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return nil, err
	}
	if err := os.WriteFile(filepath.Join(dir, "metadata.json"), jsonData, 0600); err != nil {
		return nil, fmt.Errorf("write metadata failed: %w", err)
	}

	recordSnapshot(reason)
	b.log.Infof("Snapshot [%s] taken (reason: %s, files: %d)", id, reason, len(meta.Files))

	b.enforceRetention()
	return &meta, nil
}

/**
 * List snapshots, oldest first
 * @returns {[]models.BackupMetadata} Metadata of every retained snapshot
 */
func (b *BackupManager) List() ([]models.BackupMetadata, error) {
	entries, err := os.ReadDir(b.root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var metas []models.BackupMetadata
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		meta, err := b.Get(e.Name())
		if err != nil {
			b.log.Warnf("Skipping unreadable backup dir %s: %v", e.Name(), err)
			continue
		}
		metas = append(metas, *meta)
	}

	sort.Slice(metas, func(i, j int) bool {
		iu, is, _ := parseBackupID(metas[i].ID)
		ju, js, _ := parseBackupID(metas[j].ID)
		if iu != ju {
			return iu < ju
		}
		return is < js
	})
	return metas, nil
}

// Get loads one snapshot's metadata by id.
func (b *BackupManager) Get(id string) (*models.BackupMetadata, error) {
	if _, _, err := parseBackupID(id); err != nil {
		return nil, err
	}
	jsonData, err := os.ReadFile(filepath.Join(b.root, id, "metadata.json"))
	if err != nil {
		return nil, err
	}
	var meta models.BackupMetadata
	if err := json.Unmarshal(jsonData, &meta); err != nil {
		return nil, err
	}
	return &meta, nil
}

// Latest returns the newest snapshot, or an error when none exist.
func (b *BackupManager) Latest() (*models.BackupMetadata, error) {
	metas, err := b.List()
	if err != nil {
		return nil, err
	}
	if len(metas) == 0 {
		return nil, fmt.Errorf("no backups available")
	}
	return &metas[len(metas)-1], nil
}

// FileContent reads the captured content of one path inside a snapshot.
func (b *BackupManager) FileContent(id, path string) ([]byte, error) {
	return os.ReadFile(b.storedPath(id, path))
}

func (b *BackupManager) enforceRetention() {
	metas, err := b.List()
	if err != nil {
		b.log.Errorf("Retention check failed: %v", err)
		return
	}
	for len(metas) > b.maxCount {
		victim := metas[0]
		if err := os.RemoveAll(filepath.Join(b.root, victim.ID)); err != nil {
			b.log.Errorf("Failed to evict backup [%s]: %v", victim.ID, err)
			return
		}
		b.log.Infof("Evicted backup [%s] (retention max %d)", victim.ID, b.maxCount)
		metas = metas[1:]
	}
}
