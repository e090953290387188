package services

import (
	"context"
	"fmt"
	"time"

	"stackguard/internal/config"
	"stackguard/internal/logger"
	"stackguard/internal/models"
)

// ErrNotConfirmed is returned when a reset is requested without confirmation.
var ErrNotConfirmed = fmt.Errorf("emergency reset requires explicit confirmation")

/**
 * EmergencyReset 全量复位
 * @description
 * - Last-resort sequence: stop all -> restore latest snapshot -> start all ->
 *   validate with repair -> one supervisor cycle
 * - Every step is best-effort and recorded in the report; a failed stop never
 *   blocks the restore, a failed start never blocks validation
 * - Refuses to run without confirmation: this restarts healthy services too
 */
type EmergencyReset struct {
	supervisor *Supervisor
	restore    *RestoreManager
	validator  *Validator
	log        *logger.Logger
}

func NewEmergencyReset(supervisor *Supervisor, restore *RestoreManager, validator *Validator) *EmergencyReset {
	return &EmergencyReset{
		supervisor: supervisor,
		restore:    restore,
		validator:  validator,
		log:        logger.ForComponent("reset"),
	}
}

/**
 * Run the full reset sequence
 * @param {context.Context} ctx - Bounding context
 * @param {bool} confirmed - Must be true; otherwise the reset aborts untouched
 * @returns {*models.ResetReport} Per-step outcome, even on abort
 * @returns {error} ErrNotConfirmed when unconfirmed
 */
func (e *EmergencyReset) Run(ctx context.Context, confirmed bool) (*models.ResetReport, error) {
	report := &models.ResetReport{StartedAt: time.Now()}
	if !confirmed {
		report.Aborted = true
		report.Detail = ErrNotConfirmed.Error()
		report.FinishedAt = time.Now()
		return report, ErrNotConfirmed
	}

	e.log.Warn("EMERGENCY RESET initiated")
	e.supervisor.PauseRemediation(nil)
	defer e.supervisor.ResumeRemediation()

	descs := e.supervisor.Descriptors()

	for _, desc := range descs {
		report.Stops = append(report.Stops, e.stopService(ctx, desc))
	}

	restored, err := e.restore.Restore("latest")
	if err != nil {
		// No snapshot to restore is survivable; record it and continue
		report.Detail = fmt.Sprintf("restore skipped: %v", err)
		e.log.Warnf("Reset: restore skipped: %v", err)
	} else {
		report.Restore = restored
	}

	for _, desc := range descs {
		report.Starts = append(report.Starts, e.startService(ctx, desc))
	}

	report.Validation = e.validator.Validate(true)
	report.Health = e.supervisor.RunCycle(ctx)
	report.FinishedAt = time.Now()

	e.log.Warnf("EMERGENCY RESET finished in %s", report.FinishedAt.Sub(report.StartedAt))
	return report, nil
}

// stopService stops one service best-effort: the configured stop action when
// present, otherwise killing the recorded remediation handle.
func (e *EmergencyReset) stopService(ctx context.Context, desc config.ServiceDescriptor) models.ServiceActionResult {
	result := models.ServiceActionResult{Service: desc.Name, Action: "stop"}
	if err := e.supervisor.StopService(ctx, desc.Name); err != nil {
		result.Detail = err.Error()
		e.log.Errorf("Reset: stop [%s] failed: %v", desc.Name, err)
		return result
	}
	result.OK = true
	return result
}

func (e *EmergencyReset) startService(ctx context.Context, desc config.ServiceDescriptor) models.ServiceActionResult {
	result := models.ServiceActionResult{Service: desc.Name, Action: "start"}
	if err := e.supervisor.StartService(ctx, desc.Name); err != nil {
		result.Detail = err.Error()
		e.log.Errorf("Reset: start [%s] failed: %v", desc.Name, err)
		return result
	}
	result.OK = true
	return result
}
