package services

import (
	"os"
	"path/filepath"
	"testing"

	"stackguard/internal/models"
)

func writeTestFile(t *testing.T, path, content string, mode os.FileMode) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), mode); err != nil {
		t.Fatal(err)
	}
}

func TestBackupIDMonotonic(t *testing.T) {
	b := NewBackupManager(t.TempDir(), 20, nil)

	prev := b.nextID()
	for i := 0; i < 100; i++ {
		id := b.nextID()
		pu, ps, err := parseBackupID(prev)
		if err != nil {
			t.Fatal(err)
		}
		cu, cs, err := parseBackupID(id)
		if err != nil {
			t.Fatal(err)
		}
		if cu < pu || (cu == pu && cs <= ps) {
			t.Fatalf("id %s not greater than %s", id, prev)
		}
		prev = id
	}
}

func TestBackupIDMonotonicAcrossRestart(t *testing.T) {
	root := t.TempDir()
	target := filepath.Join(t.TempDir(), "cfg.json")
	writeTestFile(t, target, "{}", 0644)

	b1 := NewBackupManager(root, 20, []string{target})
	meta1, err := b1.Snapshot(models.ReasonManual)
	if err != nil {
		t.Fatal(err)
	}

	// A new manager over the same store seeds past the newest existing id
	b2 := NewBackupManager(root, 20, []string{target})
	meta2, err := b2.Snapshot(models.ReasonManual)
	if err != nil {
		t.Fatal(err)
	}

	u1, s1, _ := parseBackupID(meta1.ID)
	u2, s2, _ := parseBackupID(meta2.ID)
	if u2 < u1 || (u2 == u1 && s2 <= s1) {
		t.Fatalf("restarted manager produced non-increasing id: %s then %s", meta1.ID, meta2.ID)
	}
}

func TestSnapshotCapturesContentAndMode(t *testing.T) {
	target := filepath.Join(t.TempDir(), "cfg.json")
	writeTestFile(t, target, `{"key":"value"}`, 0640)

	b := NewBackupManager(t.TempDir(), 20, []string{target})
	meta, err := b.Snapshot(models.ReasonManual)
	if err != nil {
		t.Fatal(err)
	}

	if len(meta.Files) != 1 {
		t.Fatalf("expected 1 file, got %d", len(meta.Files))
	}
	file := meta.Files[0]
	if file.Missing {
		t.Fatal("file wrongly recorded as missing")
	}
	if file.Mode != 0640 {
		t.Fatalf("expected mode 0640, got %o", file.Mode)
	}

	content, err := b.FileContent(meta.ID, target)
	if err != nil {
		t.Fatal(err)
	}
	if string(content) != `{"key":"value"}` {
		t.Fatalf("captured content mismatch: %q", content)
	}
}

func TestSnapshotRecordsMissingFiles(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "nope.json")

	b := NewBackupManager(t.TempDir(), 20, []string{missing})
	meta, err := b.Snapshot(models.ReasonScheduled)
	if err != nil {
		t.Fatalf("missing file must not abort the snapshot: %v", err)
	}
	if len(meta.Files) != 1 || !meta.Files[0].Missing {
		t.Fatalf("expected explicit missing marker, got %+v", meta.Files)
	}
}

func TestRetentionEvictsOldest(t *testing.T) {
	target := filepath.Join(t.TempDir(), "cfg.json")
	writeTestFile(t, target, "x", 0644)

	b := NewBackupManager(t.TempDir(), 3, []string{target})
	var ids []string
	for i := 0; i < 4; i++ {
		meta, err := b.Snapshot(models.ReasonScheduled)
		if err != nil {
			t.Fatal(err)
		}
		ids = append(ids, meta.ID)
	}

	metas, err := b.List()
	if err != nil {
		t.Fatal(err)
	}
	if len(metas) != 3 {
		t.Fatalf("expected 3 retained snapshots, got %d", len(metas))
	}
	for _, meta := range metas {
		if meta.ID == ids[0] {
			t.Fatalf("oldest snapshot %s was not evicted", ids[0])
		}
	}
}

func TestLatestReturnsNewest(t *testing.T) {
	target := filepath.Join(t.TempDir(), "cfg.json")
	writeTestFile(t, target, "x", 0644)

	b := NewBackupManager(t.TempDir(), 20, []string{target})
	if _, err := b.Latest(); err == nil {
		t.Fatal("expected error on empty store")
	}

	var last string
	for i := 0; i < 3; i++ {
		meta, err := b.Snapshot(models.ReasonManual)
		if err != nil {
			t.Fatal(err)
		}
		last = meta.ID
	}

	latest, err := b.Latest()
	if err != nil {
		t.Fatal(err)
	}
	if latest.ID != last {
		t.Fatalf("expected latest %s, got %s", last, latest.ID)
	}
}

func TestGetRejectsMalformedID(t *testing.T) {
	b := NewBackupManager(t.TempDir(), 20, nil)
	if _, err := b.Get("../escape"); err == nil {
		t.Fatal("malformed id must be rejected")
	}
	if _, err := b.Get("not-a-number"); err == nil {
		t.Fatal("malformed id must be rejected")
	}
}
