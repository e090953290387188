package supervise

import (
	"context"
	"fmt"

	"stackguard/internal/config"
	"stackguard/internal/rpc"
	"stackguard/services"
)

/**
 * Run one service lifecycle action, preferring the daemon
 * @param {string} name - Service name
 * @param {string} action - start | stop | restart
 * @returns {error} Action errors from either path
 * @description
 * - The daemon owns the process handles, so it performs the action when
 *   reachable
 * - Without a daemon the action runs locally against the same handle records
 */
func serviceAction(ctx context.Context, name, action string) error {
	client := rpc.NewHTTPClient(nil)
	defer client.Close()

	path := fmt.Sprintf("/stackguard/api/v1/services/%s/%s", name, action)
	if resp, err := client.Post(path, nil); err == nil {
		if resp.StatusCode == 200 {
			fmt.Printf("服务 '%s' %s 完成\n", name, action)
			return nil
		}
		return fmt.Errorf("服务 '%s' %s 失败: %s", name, action, resp.Error)
	}

	// Daemon unreachable, act locally with the same handle records
	if err := config.LoadSpec(); err != nil {
		return fmt.Errorf("加载系统配置失败: %v", err)
	}
	supervisor := services.GetServer().Supervisor()

	var err error
	switch action {
	case "start":
		err = supervisor.StartService(ctx, name)
	case "stop":
		err = supervisor.StopService(ctx, name)
	case "restart":
		err = supervisor.RestartService(ctx, name)
	default:
		err = fmt.Errorf("unknown action '%s'", action)
	}
	if err != nil {
		return fmt.Errorf("服务 '%s' %s 失败: %v", name, action, err)
	}
	fmt.Printf("服务 '%s' %s 完成（本地执行）\n", name, action)
	return nil
}
