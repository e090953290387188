package services

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"stackguard/internal/env"
)

func TestTailComponentLog(t *testing.T) {
	useTempStackguardDir(t)

	var lines []string
	for i := 0; i < 10; i++ {
		lines = append(lines, "INFO: line "+strings.Repeat("x", i))
	}
	logPath := filepath.Join(env.LogsDir(), "supervisor.log")
	if err := os.MkdirAll(env.LogsDir(), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(logPath, []byte(strings.Join(lines, "\n")+"\n"), 0644); err != nil {
		t.Fatal(err)
	}

	got, err := TailComponentLog("supervisor", 3)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 lines, got %d", len(got))
	}
	if got[2] != lines[9] {
		t.Fatalf("wrong tail order: %q", got[2])
	}

	// n<=0 returns the whole file
	got, err = TailComponentLog("supervisor", 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 10 {
		t.Fatalf("expected all 10 lines, got %d", len(got))
	}
}

func TestTailComponentLogMissing(t *testing.T) {
	useTempStackguardDir(t)

	if _, err := TailComponentLog("nonexistent", 10); err == nil {
		t.Fatal("expected error for a component with no log")
	}
}
