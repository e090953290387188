package supervise

import (
	"fmt"
	"os"
	"os/exec"

	"stackguard/cmd/root"
	"stackguard/internal/rpc"
	"stackguard/internal/utils"

	"github.com/spf13/cobra"
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "启动监督",
	Long:  "守护进程已在运行时重新启动其监督循环；否则以后台方式拉起守护进程",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		if err := startSupervisor(); err != nil {
			fmt.Println(err)
		}
	},
}

/**
 * Start supervision
 * @returns {error} Start errors from either path
 * @description
 * - A reachable daemon just has its periodic tasks (re)started
 * - Otherwise the daemon is spawned detached, running 'stackguard server'
 */
func startSupervisor() error {
	client := rpc.NewHTTPClient(nil)
	defer client.Close()

	if resp, err := client.Post("/stackguard/api/v1/supervisor/start", nil); err == nil {
		if resp.StatusCode == 200 {
			fmt.Println("监督循环已启动")
			return nil
		}
		return fmt.Errorf("启动失败: %s", resp.Error)
	}

	return spawnDaemon()
}

func spawnDaemon() error {
	exe, err := os.Executable()
	if err != nil {
		return fmt.Errorf("无法定位可执行文件: %v", err)
	}

	cmd := exec.Command(exe, "server")
	utils.SetNewPG(cmd)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("拉起守护进程失败: %v", err)
	}
	// Detached on purpose: the daemon outlives this CLI invocation
	fmt.Printf("守护进程已拉起 (PID: %d)\n", cmd.Process.Pid)
	return nil
}

func init() {
	root.RootCmd.AddCommand(startCmd)
}
