package services

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"stackguard/internal/config"
	"stackguard/internal/env"
	"stackguard/internal/logger"
	"stackguard/internal/models"
)

// serviceState is the supervisor's per-service slot: descriptor, state machine
// position and the recorded remediation handle. Only the supervisor writes it.
type serviceState struct {
	desc            config.ServiceDescriptor
	state           models.ServiceState
	handle          *ProcessHandle
	lastCheck       time.Time
	lastProbeStatus int
	latency         time.Duration
	lastRemediation time.Time
	detail          string

	// Serializes check/remediate per service; TryLock keeps an overlapping
	// cycle from stacking a second remediation behind a grace wait.
	busy sync.Mutex
}

/**
 * Supervisor 自愈监控主循环
 * @description
 * - Root orchestrator: owns the service-check cycle, the scheduled validator
 *   pass, the scheduled backup cadence and the change watcher lifecycle
 * - Per service state machine: healthy -> remediating -> healthy|degraded;
 *   degraded is a reporting state, the next passing probe clears it
 * - One failing service never blocks the cycle for others: every service is
 *   checked in its own goroutine with bounded probe and grace waits
 * - The latest HealthReport is swapped in atomically and projected to
 *   cache/health.json; previous reports are superseded, not archived
 */
type Supervisor struct {
	cfg       *config.AppConfig
	validator *Validator
	backups   *BackupManager
	watcher   *ChangeWatcher
	log       *logger.Logger

	mu       sync.Mutex
	states   map[string]*serviceState
	order    []string
	paused   map[string]bool
	report   *models.HealthReport
	cancel   context.CancelFunc
	running  bool
	startTim time.Time
	loops    sync.WaitGroup
}

func NewSupervisor(cfg *config.AppConfig, spec *config.SystemSpecification, validator *Validator, backups *BackupManager, watcher *ChangeWatcher) *Supervisor {
	s := &Supervisor{
		cfg:       cfg,
		validator: validator,
		backups:   backups,
		watcher:   watcher,
		log:       logger.ForComponent("supervisor"),
		states:    make(map[string]*serviceState),
		paused:    make(map[string]bool),
		startTim:  time.Now(),
	}
	for _, desc := range spec.Services {
		st := &serviceState{
			desc:  desc,
			state: models.StateHealthy,
		}
		// Reattach a persisted handle so a remediation launched before a
		// supervisor restart is not duplicated
		if h := LoadActionHandle(desc.Name); h != nil {
			st.handle = h
			if h.Alive() {
				st.state = models.StateRemediating
				s.log.Infof("Service [%s] has a remediation still in flight (PID: %d)", desc.Name, h.Pid)
			}
		}
		s.states[desc.Name] = st
		s.order = append(s.order, desc.Name)
	}
	return s
}

/**
 * Start all periodic tasks
 * @param {context.Context} ctx - Parent context
 * @description
 * - Launches the check cycle, validator pass and backup cadence tickers plus
 *   the change watcher, all cancellable through one derived context
 * - Runs one immediate check cycle so status is meaningful right away
 */
func (s *Supervisor) Start(ctx context.Context) {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return
	}
	ctx, s.cancel = context.WithCancel(ctx)
	s.running = true
	s.mu.Unlock()

	s.log.Infof("Supervisor starting: %d services, check every %ds, validate every %ds",
		len(s.order), s.cfg.Interval.Check, s.cfg.Interval.Validate)

	if s.watcher != nil {
		s.watcher.Start(ctx)
	}

	s.loops.Add(3)
	go func() { defer s.loops.Done(); s.checkLoop(ctx) }()
	go func() { defer s.loops.Done(); s.validateLoop(ctx) }()
	go func() { defer s.loops.Done(); s.backupLoop(ctx) }()
}

/**
 * Stop all periodic tasks
 * @description
 * - Cancels the loop context and waits for in-flight loop work, so no
 *   remediation or validation fires after Stop returns
 */
func (s *Supervisor) Stop() {
	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.running = false
	s.mu.Unlock()

	s.loops.Wait()
	if s.watcher != nil {
		s.watcher.Wait()
	}
	s.log.Info("Supervisor stopped")
}

func (s *Supervisor) checkLoop(ctx context.Context) {
	s.RunCycle(ctx)

	ticker := time.NewTicker(time.Duration(s.cfg.Interval.Check) * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.RunCycle(ctx)
		}
	}
}

func (s *Supervisor) validateLoop(ctx context.Context) {
	ticker := time.NewTicker(time.Duration(s.cfg.Interval.Validate) * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.validator.Validate(true)
		}
	}
}

func (s *Supervisor) backupLoop(ctx context.Context) {
	ticker := time.NewTicker(time.Duration(s.cfg.Interval.Backup) * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.backups.Snapshot(models.ReasonScheduled); err != nil {
				s.log.Errorf("Scheduled snapshot failed: %v", err)
			}
		}
	}
}

/**
 * Run one full service-check cycle
 * @param {context.Context} ctx - Bounding context
 * @returns {*models.HealthReport} The freshly published report
 * @description
 * - Probes every service concurrently, remediating failures
 * - Aggregates into a new HealthReport and publishes it atomically
 */
func (s *Supervisor) RunCycle(ctx context.Context) *models.HealthReport {
	var wg sync.WaitGroup
	for _, name := range s.order {
		st := s.states[name]
		wg.Add(1)
		go func(st *serviceState) {
			defer wg.Done()
			s.checkService(ctx, st)
		}(st)
	}
	wg.Wait()

	return s.publishReport()
}

/**
 * Check one service and remediate on failure
 * @description
 * - Probe pass: service is healthy, done
 * - Probe fail with a live recorded remediation: skip, no duplicate restarts
 * - Otherwise: kill any stale handle, launch remediation, wait out the grace
 *   period, re-probe once; still failing -> degraded (reported, not retried
 *   within this cycle)
 */
func (s *Supervisor) checkService(ctx context.Context, st *serviceState) {
	if !st.busy.TryLock() {
		// Previous cycle still inside this service's grace window
		return
	}
	defer st.busy.Unlock()

	timeout := time.Duration(s.cfg.Probe.Timeout) * time.Second
	verdict := Probe(&st.desc, timeout)

	s.mu.Lock()
	st.lastCheck = time.Now()
	st.lastProbeStatus = verdict.ObservedStatus
	st.latency = verdict.Latency
	st.detail = verdict.Detail
	paused := s.paused[st.desc.Name]
	s.mu.Unlock()

	if verdict.OK {
		s.setState(st, models.StateHealthy, "")
		return
	}

	recordProbeFailure(st.desc.Name)
	s.log.Warnf("Service [%s] failed probe: %s", st.desc.Name, verdict.Detail)

	if paused {
		// Keep the report honest: the service is failing and nobody is
		// fixing it while the pause holds
		s.setState(st, models.StateDegraded, "probe failed, remediation paused: "+verdict.Detail)
		s.log.Infof("Service [%s] remediation is paused, skipping", st.desc.Name)
		return
	}

	s.mu.Lock()
	handle := st.handle
	s.mu.Unlock()

	// Single-flight: a live recorded handle means remediation is in progress
	if handle != nil && handle.Alive() {
		s.setState(st, models.StateRemediating, "remediation in flight")
		s.log.Infof("Service [%s] remediation already in flight (PID: %d), skipping", st.desc.Name, handle.Pid)
		return
	}
	if handle != nil {
		if err := handle.Kill(); err != nil {
			s.log.Warnf("Service [%s]: could not clear stale handle: %v", st.desc.Name, err)
		}
	}

	// A Stop between probe and launch must win: never start a remediation
	// on a cancelled cycle
	if ctx.Err() != nil {
		return
	}

	s.setState(st, models.StateRemediating, verdict.Detail)

	handle, err := NewActionHandle(st.desc.Name, st.desc.Remediation)
	if err != nil {
		s.setState(st, models.StateDegraded, "remediation command invalid: "+err.Error())
		s.log.Errorf("Service [%s] remediation command invalid: %v", st.desc.Name, err)
		return
	}
	if err := handle.Start(ctx); err != nil {
		s.setState(st, models.StateDegraded, "remediation failed to start: "+err.Error())
		s.log.Errorf("Service [%s] remediation failed to start: %v", st.desc.Name, err)
		return
	}

	s.mu.Lock()
	st.handle = handle
	st.lastRemediation = time.Now()
	s.mu.Unlock()
	recordRemediation(st.desc.Name)

	// Grace period before deciding success or failure
	grace := time.Duration(s.cfg.Probe.Grace) * time.Second
	select {
	case <-ctx.Done():
		return
	case <-time.After(grace):
	}

	verdict = Probe(&st.desc, timeout)
	s.mu.Lock()
	st.lastCheck = time.Now()
	st.lastProbeStatus = verdict.ObservedStatus
	st.latency = verdict.Latency
	s.mu.Unlock()

	if verdict.OK {
		s.setState(st, models.StateHealthy, "")
		s.log.Infof("Service [%s] recovered after remediation", st.desc.Name)
	} else {
		s.setState(st, models.StateDegraded, verdict.Detail)
		s.log.Errorf("Service [%s] still failing after remediation and %s grace, marked degraded: %s",
			st.desc.Name, grace, verdict.Detail)
	}
}

func (s *Supervisor) setState(st *serviceState, state models.ServiceState, detail string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st.state = state
	if detail != "" {
		st.detail = detail
	} else if state == models.StateHealthy {
		st.detail = ""
	}
}

// publishReport swaps in a fresh HealthReport and projects it to disk.
// The swap is atomic: readers see either the previous or the new report.
func (s *Supervisor) publishReport() *models.HealthReport {
	report := &models.HealthReport{
		Timestamp: time.Now(),
		Overall:   models.OverallHealthy,
		Services:  make(map[string]models.ServiceHealth),
	}

	s.mu.Lock()
	for _, name := range s.order {
		st := s.states[name]
		health := models.ServiceHealth{
			Status:          st.state,
			LastCheck:       st.lastCheck,
			LastProbeStatus: st.lastProbeStatus,
			LatencyMs:       st.latency.Milliseconds(),
			LastRemediation: st.lastRemediation,
			Detail:          st.detail,
		}
		if st.state != models.StateHealthy {
			report.Overall = models.OverallDegraded
		}
		report.Services[name] = health
	}
	s.report = report
	s.mu.Unlock()

	setOverallHealthy(report.Overall == models.OverallHealthy)
	s.saveReport(report)
	return report
}

// Report returns the most recent health report (nil before the first cycle).
func (s *Supervisor) Report() *models.HealthReport {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.report
}

func (s *Supervisor) saveReport(report *models.HealthReport) {
	if err := os.MkdirAll(filepath.Dir(env.HealthFile()), 0755); err != nil {
		s.log.Errorf("Health report save failed: %v", err)
		return
	}
	jsonData, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		s.log.Errorf("Health report save failed: %v", err)
		return
	}
	if err := os.WriteFile(env.HealthFile(), jsonData, 0644); err != nil {
		s.log.Errorf("Health report save failed: %v", err)
	}
}

/**
 * Cooperatively pause remediation for a set of services
 * @param {[]string} services - Names to pause; nil pauses every service
 * @description
 * - Used by the restore path so a restart never races a file write
 * - In-flight remediations are not killed, new ones are not launched
 */
func (s *Supervisor) PauseRemediation(services []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if services == nil {
		services = s.order
	}
	for _, name := range services {
		s.paused[name] = true
	}
	s.log.Infof("Remediation paused for %d services", len(services))
}

func (s *Supervisor) ResumeRemediation() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.paused = make(map[string]bool)
	s.log.Info("Remediation resumed")
}

// Descriptors returns the registry order the supervisor runs with.
func (s *Supervisor) Descriptors() []config.ServiceDescriptor {
	var descs []config.ServiceDescriptor
	for _, name := range s.order {
		descs = append(descs, s.states[name].desc)
	}
	return descs
}

// HandleFor exposes the recorded remediation handle for one service.
func (s *Supervisor) HandleFor(name string) *ProcessHandle {
	s.mu.Lock()
	defer s.mu.Unlock()
	if st, ok := s.states[name]; ok {
		return st.handle
	}
	return nil
}

// StartTime reports when this supervisor instance was constructed.
func (s *Supervisor) StartTime() time.Time {
	return s.startTim
}

func (s *Supervisor) stateFor(name string) (*serviceState, bool) {
	st, ok := s.states[name]
	return st, ok
}

/**
 * Start one service by launching its remediation action
 * @param {context.Context} ctx - Bounding context
 * @param {string} name - Service name
 * @returns {error} config.ErrServiceNotFound or launch errors
 */
func (s *Supervisor) StartService(ctx context.Context, name string) error {
	st, ok := s.stateFor(name)
	if !ok {
		return config.ErrServiceNotFound
	}

	// Serialize against an in-flight check/remediation of the same service
	st.busy.Lock()
	defer st.busy.Unlock()

	s.mu.Lock()
	current := st.handle
	s.mu.Unlock()
	if current != nil && current.Alive() {
		return fmt.Errorf("service [%s] already has a running action (PID: %d)", name, current.Pid)
	}

	handle, err := NewActionHandle(name, st.desc.Remediation)
	if err != nil {
		return err
	}
	if err := handle.Start(ctx); err != nil {
		return err
	}

	s.mu.Lock()
	st.handle = handle
	s.mu.Unlock()
	return nil
}

/**
 * Stop one service
 * @param {context.Context} ctx - Bounding context
 * @param {string} name - Service name
 * @returns {error} config.ErrServiceNotFound or stop errors
 * @description
 * - Runs the configured stop action when one exists, otherwise kills the
 *   recorded remediation process
 */
func (s *Supervisor) StopService(ctx context.Context, name string) error {
	st, ok := s.stateFor(name)
	if !ok {
		return config.ErrServiceNotFound
	}

	st.busy.Lock()
	defer st.busy.Unlock()

	if st.desc.Stop != nil {
		handle, err := NewActionHandle(name, *st.desc.Stop)
		if err != nil {
			return err
		}
		return handle.Start(ctx)
	}

	s.mu.Lock()
	handle := st.handle
	s.mu.Unlock()
	if handle != nil {
		return handle.Kill()
	}
	return nil
}

// RestartService stops then starts one service.
func (s *Supervisor) RestartService(ctx context.Context, name string) error {
	if err := s.StopService(ctx, name); err != nil {
		return err
	}
	return s.StartService(ctx, name)
}
