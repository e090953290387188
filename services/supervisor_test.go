package services

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"stackguard/internal/config"
	"stackguard/internal/env"
	"stackguard/internal/models"
)

func testSupervisorConfig() *config.AppConfig {
	return &config.AppConfig{
		Interval: config.IntervalConfig{Check: 60, Validate: 900, Backup: 21600, WatcherPoll: 300},
		Probe:    config.ProbeConfig{Timeout: 1, Grace: 1, LockTimeout: 5},
		Backup:   config.BackupConfig{MaxCount: 20},
	}
}

func newTestSupervisor(t *testing.T, spec *config.SystemSpecification) *Supervisor {
	t.Helper()
	// Keep handle records and the health projection inside the test sandbox
	useTempStackguardDir(t)

	backups := NewBackupManager(env.BackupsDir(), 20, nil)
	validator := NewValidator(nil, backups, NewPathLocks(), time.Second)
	return NewSupervisor(testSupervisorConfig(), spec, validator, backups, nil)
}

func TestCycleHealthyService(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(200)
	}))
	defer srv.Close()

	spec := &config.SystemSpecification{
		Services: []config.ServiceDescriptor{{
			Name:        "api",
			Probe:       config.ProbeSpec{URL: srv.URL},
			Remediation: config.ActionSpec{Command: "true"},
		}},
	}
	s := newTestSupervisor(t, spec)

	report := s.RunCycle(context.Background())
	if report.Overall != models.OverallHealthy {
		t.Fatalf("expected healthy overall, got %s", report.Overall)
	}
	svc := report.Services["api"]
	if svc.Status != models.StateHealthy {
		t.Fatalf("expected healthy, got %+v", svc)
	}
	if !svc.LastRemediation.IsZero() {
		t.Fatal("healthy service must not be remediated")
	}

	// The report is projected to disk for daemonless status reads
	data, err := os.ReadFile(env.HealthFile())
	if err != nil {
		t.Fatalf("health projection missing: %v", err)
	}
	var onDisk models.HealthReport
	if err := json.Unmarshal(data, &onDisk); err != nil {
		t.Fatal(err)
	}
	if onDisk.Overall != models.OverallHealthy {
		t.Fatalf("projected report disagrees: %s", onDisk.Overall)
	}
}

func TestCycleRemediatesThenDegrades(t *testing.T) {
	spec := &config.SystemSpecification{
		Services: []config.ServiceDescriptor{{
			Name:        "dead",
			Probe:       config.ProbeSpec{URL: "http://127.0.0.1:1/healthz"},
			Remediation: config.ActionSpec{Command: "true"},
		}},
	}
	s := newTestSupervisor(t, spec)

	report := s.RunCycle(context.Background())
	svc := report.Services["dead"]
	// The remediation exits immediately and the endpoint stays down, so
	// after the grace re-probe the service lands in degraded
	if svc.Status != models.StateDegraded {
		t.Fatalf("expected degraded, got %+v", svc)
	}
	if svc.LastRemediation.IsZero() {
		t.Fatal("remediation was not recorded")
	}
	if report.Overall != models.OverallDegraded {
		t.Fatalf("one failing service must degrade the overall state, got %s", report.Overall)
	}
}

func TestCycleRemediationRecovers(t *testing.T) {
	// The endpoint fails until the remediation action has run, then passes:
	// the service must come back healthy within the same cycle
	marker := filepath.Join(t.TempDir(), "up")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, err := os.Stat(marker); err == nil {
			w.WriteHeader(200)
			return
		}
		w.WriteHeader(503)
	}))
	defer srv.Close()

	spec := &config.SystemSpecification{
		Services: []config.ServiceDescriptor{{
			Name:        "flappy",
			Probe:       config.ProbeSpec{URL: srv.URL},
			Remediation: config.ActionSpec{Command: "touch", Args: []string{marker}},
		}},
	}
	s := newTestSupervisor(t, spec)

	report := s.RunCycle(context.Background())
	svc := report.Services["flappy"]
	if svc.Status != models.StateHealthy {
		t.Fatalf("expected healthy after recovery, got %+v", svc)
	}
	if svc.LastRemediation.IsZero() {
		t.Fatal("recovery must still record the remediation")
	}
	if report.Overall != models.OverallHealthy {
		t.Fatalf("recovered service must not degrade the overall state, got %s", report.Overall)
	}
}

func TestCycleSingleFlightRemediation(t *testing.T) {
	spec := &config.SystemSpecification{
		Services: []config.ServiceDescriptor{{
			Name:        "slow",
			Probe:       config.ProbeSpec{URL: "http://127.0.0.1:1/healthz"},
			Remediation: config.ActionSpec{Command: "sleep", Args: []string{"30"}},
		}},
	}
	s := newTestSupervisor(t, spec)
	t.Cleanup(func() {
		if h := s.HandleFor("slow"); h != nil {
			h.Kill()
		}
	})

	s.RunCycle(context.Background())
	first := s.HandleFor("slow")
	if first == nil || !first.Alive() {
		t.Fatal("first cycle did not leave a live remediation")
	}

	// A second cycle must not stack another remediation behind the live one
	report := s.RunCycle(context.Background())
	second := s.HandleFor("slow")
	if second.Pid != first.Pid {
		t.Fatalf("duplicate remediation launched: pid %d then %d", first.Pid, second.Pid)
	}
	if report.Services["slow"].Status != models.StateRemediating {
		t.Fatalf("expected remediating, got %+v", report.Services["slow"])
	}
}

func TestPausedRemediationSkipsLaunch(t *testing.T) {
	spec := &config.SystemSpecification{
		Services: []config.ServiceDescriptor{{
			Name:        "dead",
			Probe:       config.ProbeSpec{URL: "http://127.0.0.1:1/healthz"},
			Remediation: config.ActionSpec{Command: "true"},
		}},
	}
	s := newTestSupervisor(t, spec)

	s.PauseRemediation([]string{"dead"})
	report := s.RunCycle(context.Background())
	if !report.Services["dead"].LastRemediation.IsZero() {
		t.Fatal("paused service was remediated")
	}
	// The pause must not hide the failure from the report
	if report.Services["dead"].Status != models.StateDegraded {
		t.Fatalf("paused failing service must be reported degraded, got %+v", report.Services["dead"])
	}

	s.ResumeRemediation()
	report = s.RunCycle(context.Background())
	if report.Services["dead"].LastRemediation.IsZero() {
		t.Fatal("resume did not re-enable remediation")
	}
}

func TestServiceActionsConcurrentWithCycle(t *testing.T) {
	spec := &config.SystemSpecification{
		Services: []config.ServiceDescriptor{{
			Name:        "dead",
			Probe:       config.ProbeSpec{URL: "http://127.0.0.1:1/healthz"},
			Remediation: config.ActionSpec{Command: "true"},
		}},
	}
	s := newTestSupervisor(t, spec)

	// API-driven lifecycle actions racing the check cycle must not corrupt
	// the recorded handle (run with -race)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 25; i++ {
			s.StopService(context.Background(), "dead")
			s.HandleFor("dead")
			time.Sleep(20 * time.Millisecond)
		}
	}()

	s.RunCycle(context.Background())
	s.RunCycle(context.Background())
	<-done
}

func TestStopHaltsChangeTriggeredValidation(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cfg.txt")
	writeTestFile(t, path, "good", 0644)
	useTempStackguardDir(t)

	backups := NewBackupManager(env.BackupsDir(), 20, []string{path})
	validator := NewValidator([]config.ConfigRule{exactRule(path, "good", "good")}, backups, NewPathLocks(), time.Second)
	w := NewChangeWatcher(validator, []string{path}, time.Minute)
	w.debounce = 300 * time.Millisecond
	s := NewSupervisor(testSupervisorConfig(), &config.SystemSpecification{}, validator, backups, w)

	s.Start(context.Background())
	time.Sleep(200 * time.Millisecond)
	s.Stop()

	// A change landing after Stop returned must never be repaired
	if err := os.WriteFile(path, []byte("tampered"), 0644); err != nil {
		t.Fatal(err)
	}
	time.Sleep(time.Second)

	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(content) != "tampered" {
		t.Fatal("validation fired after Stop returned")
	}
}

func TestStartStopServiceUnknownName(t *testing.T) {
	s := newTestSupervisor(t, &config.SystemSpecification{})

	if err := s.StartService(context.Background(), "ghost"); err != config.ErrServiceNotFound {
		t.Fatalf("expected ErrServiceNotFound, got %v", err)
	}
	if err := s.StopService(context.Background(), "ghost"); err != config.ErrServiceNotFound {
		t.Fatalf("expected ErrServiceNotFound, got %v", err)
	}
}
