package controllers

import (
	"context"
	"errors"
	"fmt"

	"stackguard/internal/config"
	"stackguard/internal/models"
	"stackguard/services"

	"github.com/gin-gonic/gin"
)

type SupervisorController struct {
	server *services.Server
}

/**
 * Create new Supervisor controller instance
 * @param {*services.Server} server - Daemon service container
 * @returns {*SupervisorController} New Supervisor controller instance
 * @description
 * - Handles the supervision API: health report, service lifecycle,
 *   validation, snapshots, restore and the emergency reset
 */
func NewSupervisorController(server *services.Server) *SupervisorController {
	return &SupervisorController{
		server: server,
	}
}

/**
 * Register all supervision API routes to Gin engine
 * @param {*gin.Engine} r - Gin router instance
 */
func (s *SupervisorController) RegisterRoutes(r *gin.Engine) {
	api := r.Group("/stackguard/api/v1")
	api.GET("/report", s.GetReport)
	api.POST("/services/:name/start", s.StartService)
	api.POST("/services/:name/stop", s.StopService)
	api.POST("/services/:name/restart", s.RestartService)
	api.POST("/validate", s.Validate)
	api.GET("/backups", s.ListBackups)
	api.POST("/backups", s.CreateBackup)
	api.POST("/restore/:id", s.Restore)
	api.POST("/reset", s.Reset)
	api.POST("/supervisor/start", s.StartSupervisor)
	api.POST("/supervisor/stop", s.StopSupervisor)
	api.POST("/supervisor/pause", s.Pause)
	api.POST("/supervisor/resume", s.Resume)
}

// @Summary 系统健康报告
// @Description 返回最近一个巡检周期产生的健康报告
// @Tags Supervisor
// @Produce json
// @Success 200 {object} models.HealthReport
// @Failure 503 {object} models.ErrorResponse "首个巡检周期尚未完成"
// @Router /stackguard/api/v1/report [get]
func (s *SupervisorController) GetReport(c *gin.Context) {
	report := s.server.Supervisor().Report()
	if report == nil {
		c.JSON(503, &models.ErrorResponse{
			Code:  "supervisor.no_report",
			Error: "no check cycle has completed yet",
		})
		return
	}
	c.JSON(200, report)
}

// @Summary 启动服务
// @Description 执行指定服务的修复动作以启动服务
// @Tags Services
// @Produce json
// @Param name path string true "Service name"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} models.ErrorResponse
// @Failure 500 {object} models.ErrorResponse
// @Router /stackguard/api/v1/services/{name}/start [post]
func (s *SupervisorController) StartService(c *gin.Context) {
	s.serviceAction(c, "start", s.server.Supervisor().StartService)
}

// @Summary 停止服务
// @Description 执行指定服务的停止动作，无停止动作时杀掉记录的修复进程
// @Tags Services
// @Produce json
// @Param name path string true "Service name"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} models.ErrorResponse
// @Failure 500 {object} models.ErrorResponse
// @Router /stackguard/api/v1/services/{name}/stop [post]
func (s *SupervisorController) StopService(c *gin.Context) {
	s.serviceAction(c, "stop", s.server.Supervisor().StopService)
}

// @Summary 重启服务
// @Description 先停止再启动指定服务
// @Tags Services
// @Produce json
// @Param name path string true "Service name"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} models.ErrorResponse
// @Failure 500 {object} models.ErrorResponse
// @Router /stackguard/api/v1/services/{name}/restart [post]
func (s *SupervisorController) RestartService(c *gin.Context) {
	s.serviceAction(c, "restart", s.server.Supervisor().RestartService)
}

func (s *SupervisorController) serviceAction(c *gin.Context, action string, fn func(ctx context.Context, name string) error) {
	name := c.Param("name")

	if err := fn(c.Request.Context(), name); err != nil {
		if errors.Is(err, config.ErrServiceNotFound) {
			c.JSON(404, &models.ErrorResponse{
				Code:  "service.notexist",
				Error: fmt.Sprintf("service [%s] isn't exist", name),
			})
			return
		}
		c.JSON(500, &models.ErrorResponse{
			Error: err.Error(),
		})
		return
	}
	c.JSON(200, gin.H{"service": name, "action": action, "status": "ok"})
}

// @Summary 配置校验
// @Description 对所有受管配置文件执行一轮校验，repair=true时自动修复
// @Tags Config
// @Produce json
// @Param repair query bool false "Apply fixers to drifted files (default true)"
// @Success 200 {object} models.ValidateResponse
// @Router /stackguard/api/v1/validate [post]
func (s *SupervisorController) Validate(c *gin.Context) {
	repair := c.DefaultQuery("repair", "true") != "false"
	results := s.server.Validator().Validate(repair)

	response := models.ValidateResponse{Repaired: repair, Results: results}
	for _, r := range results {
		if r.WasDrifted {
			response.Drifted++
		}
		if r.Fixed {
			response.Fixed++
		}
		if r.Unfixable {
			response.Unfixable++
		}
	}
	c.JSON(200, response)
}

// @Summary 列出快照
// @Description 按时间顺序列出保留的所有配置快照
// @Tags Backup
// @Produce json
// @Success 200 {array} models.BackupMetadata
// @Failure 500 {object} models.ErrorResponse
// @Router /stackguard/api/v1/backups [get]
func (s *SupervisorController) ListBackups(c *gin.Context) {
	metas, err := s.server.Backups().List()
	if err != nil {
		c.JSON(500, &models.ErrorResponse{
			Code:  "backup.list_failed",
			Error: err.Error(),
		})
		return
	}
	if metas == nil {
		metas = []models.BackupMetadata{}
	}
	c.JSON(200, metas)
}

// @Summary 手动创建快照
// @Description 立即对所有受管配置文件做一次快照
// @Tags Backup
// @Produce json
// @Success 200 {object} models.BackupMetadata
// @Failure 500 {object} models.ErrorResponse
// @Router /stackguard/api/v1/backups [post]
func (s *SupervisorController) CreateBackup(c *gin.Context) {
	meta, err := s.server.Backups().Snapshot(models.ReasonManual)
	if err != nil {
		c.JSON(500, &models.ErrorResponse{
			Code:  "backup.snapshot_failed",
			Error: err.Error(),
		})
		return
	}
	c.JSON(200, meta)
}

// @Summary 恢复快照
// @Description 将指定快照（或latest）回写到实际文件系统
// @Tags Backup
// @Produce json
// @Param id path string true "Backup id, or 'latest'"
// @Success 200 {object} models.RestoreResult
// @Failure 404 {object} models.ErrorResponse
// @Router /stackguard/api/v1/restore/{id} [post]
func (s *SupervisorController) Restore(c *gin.Context) {
	id := c.Param("id")

	result, err := s.server.Restorer().Restore(id)
	if err != nil {
		c.JSON(404, &models.ErrorResponse{
			Code:  "backup.notexist",
			Error: err.Error(),
		})
		return
	}
	c.JSON(200, result)
}

// @Summary 紧急重置
// @Description 停止全部服务、恢复最新快照、重启全部服务、校验配置并执行一轮巡检
// @Tags Supervisor
// @Accept json
// @Produce json
// @Param confirm query bool true "Must be true, the reset restarts healthy services too"
// @Success 200 {object} models.ResetReport
// @Failure 400 {object} models.ErrorResponse "未确认"
// @Router /stackguard/api/v1/reset [post]
func (s *SupervisorController) Reset(c *gin.Context) {
	confirmed := c.Query("confirm") == "true"

	report, err := s.server.Resetter().Run(c.Request.Context(), confirmed)
	if err != nil {
		if errors.Is(err, services.ErrNotConfirmed) {
			c.JSON(400, &models.ErrorResponse{
				Code:  "reset.not_confirmed",
				Error: err.Error(),
			})
			return
		}
		c.JSON(500, &models.ErrorResponse{
			Error: err.Error(),
		})
		return
	}
	c.JSON(200, report)
}

// @Summary 启动监督循环
// @Description 重新启动巡检、校验、快照等周期任务（守护进程本身保持运行）
// @Tags Supervisor
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /stackguard/api/v1/supervisor/start [post]
func (s *SupervisorController) StartSupervisor(c *gin.Context) {
	s.server.StartServices(context.Background())
	c.JSON(200, gin.H{"status": "running"})
}

// @Summary 停止监督循环
// @Description 停止所有周期任务；返回后不再有修复或校验动作被触发
// @Tags Supervisor
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /stackguard/api/v1/supervisor/stop [post]
func (s *SupervisorController) StopSupervisor(c *gin.Context) {
	s.server.StopServices()
	c.JSON(200, gin.H{"status": "stopped"})
}

// @Summary 暂停自动修复
// @Description 暂停所有服务的自动修复，探测照常进行
// @Tags Supervisor
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /stackguard/api/v1/supervisor/pause [post]
func (s *SupervisorController) Pause(c *gin.Context) {
	s.server.Supervisor().PauseRemediation(nil)
	c.JSON(200, gin.H{"status": "paused"})
}

// @Summary 恢复自动修复
// @Description 恢复所有服务的自动修复
// @Tags Supervisor
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /stackguard/api/v1/supervisor/resume [post]
func (s *SupervisorController) Resume(c *gin.Context) {
	s.server.Supervisor().ResumeRemediation()
	c.JSON(200, gin.H{"status": "resumed"})
}
