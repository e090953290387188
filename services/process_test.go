package services

import (
	"context"
	"testing"

	"stackguard/internal/config"
	"stackguard/internal/env"
	"stackguard/internal/models"
)

func useTempStackguardDir(t *testing.T) {
	t.Helper()
	old := env.StackguardDir
	env.StackguardDir = t.TempDir()
	t.Cleanup(func() { env.StackguardDir = old })
}

func TestActionHandleTemplateExpansion(t *testing.T) {
	useTempStackguardDir(t)

	action := config.ActionSpec{
		Command: "systemctl",
		Args:    []string{"restart", "{{.Name}}.service"},
	}
	h, err := NewActionHandle("ollama", action)
	if err != nil {
		t.Fatal(err)
	}
	if h.Command != "systemctl" {
		t.Fatalf("command mangled: %s", h.Command)
	}
	if len(h.Args) != 2 || h.Args[1] != "ollama.service" {
		t.Fatalf("template not expanded: %v", h.Args)
	}
}

func TestActionHandlePersistence(t *testing.T) {
	useTempStackguardDir(t)

	h, err := NewActionHandle("svc", config.ActionSpec{Command: "sleep", Args: []string{"30"}})
	if err != nil {
		t.Fatal(err)
	}
	if err := h.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { h.Kill() })

	if !h.Alive() {
		t.Fatal("freshly started action not alive")
	}

	// A restarted supervisor reattaches through the persisted record
	loaded := LoadActionHandle("svc")
	if loaded == nil {
		t.Fatal("no persisted handle record")
	}
	if loaded.Pid != h.Pid {
		t.Fatalf("pid mismatch: %d vs %d", loaded.Pid, h.Pid)
	}
	if loaded.Status != models.StatusRunning || !loaded.Alive() {
		t.Fatalf("reattached handle not running: %+v", loaded.Status)
	}

	if err := h.Kill(); err != nil {
		t.Fatal(err)
	}
	if h.Alive() {
		t.Fatal("killed action still alive")
	}

	// The record now reflects the kill; liveness is re-verified on load
	loaded = LoadActionHandle("svc")
	if loaded == nil {
		t.Fatal("record vanished after kill")
	}
	if loaded.Status == models.StatusRunning {
		t.Fatal("dead process loaded as running")
	}
}

func TestLoadActionHandleMissing(t *testing.T) {
	useTempStackguardDir(t)

	if h := LoadActionHandle("never-started"); h != nil {
		t.Fatalf("expected nil for unknown service, got %+v", h)
	}
}
