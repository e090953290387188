package services

import (
	"testing"
	"time"
)

func TestPathLocksAcquireRelease(t *testing.T) {
	locks := NewPathLocks()

	release, err := locks.Acquire("/tmp/a.json", time.Second)
	if err != nil {
		t.Fatalf("first acquire failed: %v", err)
	}
	release()

	release, err = locks.Acquire("/tmp/a.json", time.Second)
	if err != nil {
		t.Fatalf("re-acquire after release failed: %v", err)
	}
	release()
}

func TestPathLocksTimeout(t *testing.T) {
	locks := NewPathLocks()

	release, err := locks.Acquire("/tmp/a.json", time.Second)
	if err != nil {
		t.Fatalf("first acquire failed: %v", err)
	}
	defer release()

	if _, err := locks.Acquire("/tmp/a.json", 50*time.Millisecond); err != ErrLockTimeout {
		t.Fatalf("expected ErrLockTimeout, got %v", err)
	}
}

func TestPathLocksIndependentPaths(t *testing.T) {
	locks := NewPathLocks()

	releaseA, err := locks.Acquire("/tmp/a.json", time.Second)
	if err != nil {
		t.Fatalf("acquire a failed: %v", err)
	}
	defer releaseA()

	// A held lock on one path must not block another path
	releaseB, err := locks.Acquire("/tmp/b.json", 50*time.Millisecond)
	if err != nil {
		t.Fatalf("acquire b blocked by unrelated lock: %v", err)
	}
	releaseB()
}
