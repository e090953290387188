package services

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"time"

	"stackguard/internal/config"
	"stackguard/internal/env"
	"stackguard/internal/logger"
	"stackguard/internal/models"
	"stackguard/internal/utils"
)

/**
 * ProcessHandle 一次修复动作的进程句柄
 * @property {string} Service - 被修复的服务名
 * @property {string} ProcessName - 进程名，processName+pid确定进程身份，防误杀
 * @property {string} Command - 执行命令
 * @property {[]string} Args - 命令参数
 * @property {int} Pid - 进程ID
 * @property {models.RunStatus} Status - running/exited/stopped/error
 * @description
 * - The supervisor records one handle per service instead of pattern-matching
 *   process names the way the original shell scripts did
 * - Records persist to cache/handles/<service>.json so a restarted supervisor
 *   can still tell whether a previous remediation is in flight
 */
type ProcessHandle struct {
	Service     string           `json:"service"`
	ProcessName string           `json:"processName"`
	Command     string           `json:"command"`
	Args        []string         `json:"args,omitempty"`
	Pid         int              `json:"pid"`
	StartTime   time.Time        `json:"startTime"`
	Status      models.RunStatus `json:"status"`

	process *os.Process
	mutex   sync.Mutex
}

type actionTemplateData struct {
	Name string
}

/**
 * Build a process handle for a service action
 * @param {string} service - Service name, supplies {{.Name}} in templates
 * @param {config.ActionSpec} action - Command and args, possibly templated
 * @returns {*ProcessHandle} Handle ready to Start
 * @returns {error} Template expansion errors
 */
func NewActionHandle(service string, action config.ActionSpec) (*ProcessHandle, error) {
	command, args, err := utils.GetCommandLine(action.Command, action.Args, actionTemplateData{Name: service})
	if err != nil {
		return nil, err
	}
	return &ProcessHandle{
		Service:     service,
		ProcessName: utils.Path2ProcessName(command),
		Command:     command,
		Args:        args,
		Status:      models.StatusExited,
	}, nil
}

/**
 * Start the action process
 * @param {context.Context} ctx - Context bounding the launch
 * @returns {error} Launch errors
 * @description
 * - Starts detached (own process group) so the action outlives the supervisor
 * - Records the new pid and persists the handle record
 * - Reaps the child in a goroutine to update the record on exit
 */
func (h *ProcessHandle) Start(ctx context.Context) error {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	cmd := exec.CommandContext(ctx, h.Command, h.Args...)
	utils.SetNewPG(cmd)

	if err := cmd.Start(); err != nil {
		h.Status = models.StatusError
		return fmt.Errorf("start '%s' failed: %w", h.Command, err)
	}

	h.process = cmd.Process
	h.Pid = cmd.Process.Pid
	h.StartTime = time.Now()
	h.Status = models.StatusRunning
	h.save()

	logger.Infof("Action for [%s] started (PID: %d, CMD: %s)", h.Service, h.Pid, h.Command)

	go func() {
		err := cmd.Wait()

		h.mutex.Lock()
		defer h.mutex.Unlock()
		if h.Status == models.StatusStopped {
			return
		}
		if err != nil {
			h.Status = models.StatusError
		} else {
			h.Status = models.StatusExited
		}
		h.save()
	}()
	return nil
}

// Alive reports whether the recorded process still runs under the expected name.
func (h *ProcessHandle) Alive() bool {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	if h.Pid <= 0 {
		return false
	}
	return utils.IsProcessAlive(h.ProcessName, h.Pid)
}

/**
 * Kill the recorded process if it still runs
 * @returns {error} Kill errors; a vanished process is not an error
 */
func (h *ProcessHandle) Kill() error {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	if h.Pid <= 0 {
		return nil
	}
	if !utils.IsProcessAlive(h.ProcessName, h.Pid) {
		h.Status = models.StatusExited
		h.save()
		return nil
	}
	if err := utils.KillProcess(h.ProcessName, h.Pid); err != nil {
		return err
	}
	h.Status = models.StatusStopped
	h.save()
	logger.Infof("Killed stale action for [%s] (PID: %d)", h.Service, h.Pid)
	return nil
}

// Record returns the durable projection of the handle.
func (h *ProcessHandle) Record() models.HandleRecord {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	return models.HandleRecord{
		Service:     h.Service,
		Pid:         h.Pid,
		ProcessName: h.ProcessName,
		Command:     h.Command,
		Args:        h.Args,
		StartTime:   h.StartTime,
		Status:      h.Status,
	}
}

func handleFile(service string) string {
	return filepath.Join(env.HandlesDir(), service+".json")
}

// save persists the handle record; callers hold h.mutex.
func (h *ProcessHandle) save() {
	if err := os.MkdirAll(env.HandlesDir(), 0755); err != nil {
		logger.Errorf("Handle [%s] save failed: %v", h.Service, err)
		return
	}
	record := models.HandleRecord{
		Service:     h.Service,
		Pid:         h.Pid,
		ProcessName: h.ProcessName,
		Command:     h.Command,
		Args:        h.Args,
		StartTime:   h.StartTime,
		Status:      h.Status,
	}
	jsonData, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		logger.Errorf("Handle [%s] save failed: %v", h.Service, err)
		return
	}
	if err := os.WriteFile(handleFile(h.Service), jsonData, 0644); err != nil {
		logger.Errorf("Handle [%s] save failed: %v", h.Service, err)
	}
}

/**
 * Load a persisted process handle for a service
 * @param {string} service - Service name
 * @returns {*ProcessHandle} Reattached handle, nil when no record exists
 * @description
 * - Used at supervisor start to detect remediations still in flight
 * - A record whose pid no longer matches a live process of the same name
 *   comes back with Status exited
 */
func LoadActionHandle(service string) *ProcessHandle {
	jsonData, err := os.ReadFile(handleFile(service))
	if err != nil {
		return nil
	}
	var record models.HandleRecord
	if err := json.Unmarshal(jsonData, &record); err != nil {
		logger.Warnf("Handle record for [%s] is corrupt, ignoring: %v", service, err)
		return nil
	}
	if record.Service != service {
		return nil
	}

	h := &ProcessHandle{
		Service:     record.Service,
		ProcessName: record.ProcessName,
		Command:     record.Command,
		Args:        record.Args,
		Pid:         record.Pid,
		StartTime:   record.StartTime,
		Status:      record.Status,
	}
	if h.Pid > 0 && utils.IsProcessAlive(h.ProcessName, h.Pid) {
		h.Status = models.StatusRunning
	} else if h.Status == models.StatusRunning {
		h.Status = models.StatusExited
	}
	return h
}
