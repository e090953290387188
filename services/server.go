package services

import (
	"context"
	"fmt"
	"time"

	"stackguard/internal/config"
	"stackguard/internal/env"
	"stackguard/internal/models"
)

/**
 * Server 守护进程服务容器
 * @description
 * - Wires the managers together once and owns their lifecycle
 * - The supervisor is the restore pauser; one-shot CLI paths construct the
 *   same managers without a supervisor and skip the pause coordination
 */
type Server struct {
	cfg        *config.AppConfig
	spec       *config.SystemSpecification
	locks      *PathLocks
	backups    *BackupManager
	validator  *Validator
	restorer   *RestoreManager
	watcher    *ChangeWatcher
	supervisor *Supervisor
	reset      *EmergencyReset
	startTime  time.Time
}

var server *Server

// GetServer returns the daemon's service container singleton.
func GetServer() *Server {
	if server == nil {
		server = NewServer(&config.Config, config.Spec())
	}
	return server
}

func NewServer(cfg *config.AppConfig, spec *config.SystemSpecification) *Server {
	lockTimeout := time.Duration(cfg.Probe.LockTimeout) * time.Second

	locks := NewPathLocks()
	backups := NewBackupManager(env.BackupsDir(), cfg.Backup.MaxCount, spec.GovernedPaths())
	validator := NewValidator(spec.Rules, backups, locks, lockTimeout)
	watcher := NewChangeWatcher(validator, spec.GovernedPaths(),
		time.Duration(cfg.Interval.WatcherPoll)*time.Second)
	supervisor := NewSupervisor(cfg, spec, validator, backups, watcher)

	var serviceNames []string
	for _, desc := range spec.Services {
		serviceNames = append(serviceNames, desc.Name)
	}
	restorer := NewRestoreManager(backups, locks, lockTimeout, serviceNames)
	restorer.SetPauser(supervisor)

	return &Server{
		cfg:        cfg,
		spec:       spec,
		locks:      locks,
		backups:    backups,
		validator:  validator,
		restorer:   restorer,
		watcher:    watcher,
		supervisor: supervisor,
		reset:      NewEmergencyReset(supervisor, restorer, validator),
		startTime:  time.Now(),
	}
}

// StartServices launches the supervisor and its periodic tasks.
func (s *Server) StartServices(ctx context.Context) {
	s.supervisor.Start(ctx)
}

// StopServices stops all periodic tasks.
func (s *Server) StopServices() {
	s.supervisor.Stop()
}

func (s *Server) Supervisor() *Supervisor       { return s.supervisor }
func (s *Server) Validator() *Validator         { return s.validator }
func (s *Server) Backups() *BackupManager       { return s.backups }
func (s *Server) Restorer() *RestoreManager     { return s.restorer }
func (s *Server) Resetter() *EmergencyReset     { return s.reset }
func (s *Server) Spec() *config.SystemSpecification { return s.spec }

/**
 * Build the daemon readiness response
 * @returns {models.HealthResponse} Version, uptime and key metric counters
 */
func (s *Server) GetHealthz() models.HealthResponse {
	healthy, degraded := 0, 0
	if report := s.supervisor.Report(); report != nil {
		for _, svc := range report.Services {
			if svc.Status == models.StateHealthy {
				healthy++
			} else {
				degraded++
			}
		}
	}

	return models.HealthResponse{
		Version:   env.Version,
		StartTime: s.startTime.Format(time.RFC3339),
		Status:    "UP",
		Uptime:    fmt.Sprintf("%v", time.Since(s.startTime).Round(time.Second)),
		Metrics: models.Metrics{
			TotalRequests:    GetTotalRequestCount(),
			ErrorRequests:    GetTotalErrorCount(),
			HealthyServices:  healthy,
			DegradedServices: degraded,
			DriftRepairs:     GetTotalRepairCount(),
			SnapshotsTaken:   GetTotalSnapshotCount(),
		},
	}
}
