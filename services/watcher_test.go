package services

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"stackguard/internal/config"
)

func TestWatcherRepairsExternalChange(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cfg.txt")
	writeTestFile(t, path, "good", 0644)

	v, _ := newTestValidator(t, []config.ConfigRule{exactRule(path, "good", "good")})
	w := NewChangeWatcher(v, []string{path}, time.Minute)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	w.Start(ctx)

	// Give the watcher a moment to arm before mutating the file
	time.Sleep(200 * time.Millisecond)
	if err := os.WriteFile(path, []byte("tampered"), 0644); err != nil {
		t.Fatal(err)
	}

	// Debounce is ~1s; the repair should land well within the deadline
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		content, err := os.ReadFile(path)
		if err == nil && string(content) == "good" {
			return
		}
		time.Sleep(100 * time.Millisecond)
	}
	t.Fatal("external change was not repaired")
}

func TestWatcherDebouncesBursts(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cfg.txt")
	writeTestFile(t, path, "good", 0644)

	v, backups := newTestValidator(t, []config.ConfigRule{exactRule(path, "good", "good")})
	w := NewChangeWatcher(v, []string{path}, time.Minute)
	w.debounce = 300 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	w.Start(ctx)
	time.Sleep(200 * time.Millisecond)

	// An editor-style burst of writes inside the debounce window
	for i := 0; i < 5; i++ {
		if err := os.WriteFile(path, []byte("tampered"), 0644); err != nil {
			t.Fatal(err)
		}
		time.Sleep(20 * time.Millisecond)
	}

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		content, err := os.ReadFile(path)
		if err == nil && string(content) == "good" {
			break
		}
		time.Sleep(100 * time.Millisecond)
	}

	// One burst, one repair, one pre-fix snapshot
	metas, err := backups.List()
	if err != nil {
		t.Fatal(err)
	}
	if len(metas) != 1 {
		t.Fatalf("expected 1 pre-fix snapshot for the burst, got %d", len(metas))
	}
}

func TestWatcherCancelHaltsPendingRepair(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cfg.txt")
	writeTestFile(t, path, "good", 0644)

	v, backups := newTestValidator(t, []config.ConfigRule{exactRule(path, "good", "good")})
	w := NewChangeWatcher(v, []string{path}, time.Minute)
	w.debounce = 500 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	w.Start(ctx)
	time.Sleep(200 * time.Millisecond)

	// Arm the debounce timer, then cancel inside the window
	if err := os.WriteFile(path, []byte("tampered"), 0644); err != nil {
		t.Fatal(err)
	}
	time.Sleep(100 * time.Millisecond)
	cancel()
	w.Wait()

	// Past the original debounce deadline: the pending flush must not run
	time.Sleep(time.Second)
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(content) != "tampered" {
		t.Fatal("pending repair ran after the watcher stopped")
	}
	metas, err := backups.List()
	if err != nil {
		t.Fatal(err)
	}
	if len(metas) != 0 {
		t.Fatalf("validation fired after cancellation: %+v", metas)
	}
}

func TestWatcherDebouncesConsecutiveBursts(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cfg.txt")
	writeTestFile(t, path, "good", 0644)

	v, backups := newTestValidator(t, []config.ConfigRule{exactRule(path, "good", "good")})
	w := NewChangeWatcher(v, []string{path}, time.Minute)
	w.debounce = 300 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	w.Start(ctx)
	time.Sleep(200 * time.Millisecond)

	// Each burst must collapse to exactly one repair, including the burst
	// arriving right after an earlier flush rearmed the timer
	for burst := 0; burst < 2; burst++ {
		for i := 0; i < 3; i++ {
			if err := os.WriteFile(path, []byte("tampered"), 0644); err != nil {
				t.Fatal(err)
			}
			time.Sleep(20 * time.Millisecond)
		}
		deadline := time.Now().Add(5 * time.Second)
		for time.Now().Before(deadline) {
			content, err := os.ReadFile(path)
			if err == nil && string(content) == "good" {
				break
			}
			time.Sleep(100 * time.Millisecond)
		}
	}

	metas, err := backups.List()
	if err != nil {
		t.Fatal(err)
	}
	if len(metas) != 2 {
		t.Fatalf("expected one pre-fix snapshot per burst, got %d", len(metas))
	}
}

func TestWatcherIgnoresUngovernedFiles(t *testing.T) {
	dir := t.TempDir()
	governed := filepath.Join(dir, "cfg.txt")
	bystander := filepath.Join(dir, "notes.txt")
	writeTestFile(t, governed, "good", 0644)
	writeTestFile(t, bystander, "whatever", 0644)

	v, backups := newTestValidator(t, []config.ConfigRule{exactRule(governed, "good", "good")})
	w := NewChangeWatcher(v, []string{governed}, time.Minute)
	w.debounce = 200 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	w.Start(ctx)
	time.Sleep(200 * time.Millisecond)

	if err := os.WriteFile(bystander, []byte("changed"), 0644); err != nil {
		t.Fatal(err)
	}
	time.Sleep(time.Second)

	metas, err := backups.List()
	if err != nil {
		t.Fatal(err)
	}
	if len(metas) != 0 {
		t.Fatalf("ungoverned change triggered validation: %+v", metas)
	}
}
