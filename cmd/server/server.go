package server

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"

	"stackguard/cmd/root"
	"stackguard/controllers"
	"stackguard/internal/config"
	"stackguard/internal/env"
	"stackguard/internal/logger"
	"stackguard/internal/middleware"
	"stackguard/services"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
)

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "启动守护进程",
	Long:  "启动HTTP服务并开始周期巡检、配置校验、定时快照和文件变更监听",
	Run: func(cmd *cobra.Command, args []string) {
		env.Daemon = true
		if err := startServer(cmd.Context()); err != nil {
			logger.Fatal(err)
		}
	},
}

func startServer(ctx context.Context) error {
	if err := config.LoadSpec(); err != nil {
		logger.Warnf("System specification unavailable, supervising nothing: %v", err)
	}

	if config.Config.Server.Mode != "" {
		gin.SetMode(config.Config.Server.Mode)
	}
	router := gin.Default()
	router.Use(middleware.MetricsMiddleware())

	server := services.GetServer()

	apiController := controllers.NewAPIController(server)
	apiController.RegisterRoutes(router)
	supController := controllers.NewSupervisorController(server)
	supController.RegisterRoutes(router)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	server.StartServices(ctx)

	addrs := []ListenAddr{
		{Network: "tcp", Address: config.Config.Server.Address},
	}
	if err := os.MkdirAll(env.RunDir(), 0755); err == nil {
		addrs = append(addrs, ListenAddr{
			Network: "unix",
			Address: filepath.Join(env.RunDir(), "stackguard.sock"),
		})
	}

	listeners, err := CreateListeners(addrs)
	if err != nil {
		return fmt.Errorf("no listener could be created: %w", err)
	}

	logger.Infof("stackguard %s listening on %d address(es)", env.Version, len(listeners))

	errCh := make(chan error, len(listeners))
	for _, l := range listeners {
		listener := l
		go func() {
			errCh <- http.Serve(listener, router)
		}()
	}

	select {
	case <-ctx.Done():
		return nil
	case err := <-errCh:
		return err
	}
}

func init() {
	root.RootCmd.AddCommand(serverCmd)
}
