package supervise

import (
	"fmt"

	"stackguard/cmd/root"
	"stackguard/internal/rpc"

	"github.com/spf13/cobra"
)

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "停止监督",
	Long:  "停止守护进程的所有周期任务；命令返回后不再有修复或校验动作被触发",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		if err := stopSupervisor(); err != nil {
			fmt.Println(err)
		}
	},
}

func stopSupervisor() error {
	client := rpc.NewHTTPClient(nil)
	defer client.Close()

	resp, err := client.Post("/stackguard/api/v1/supervisor/stop", nil)
	if err != nil {
		return fmt.Errorf("守护进程不可达，监督本就未在运行: %v", err)
	}
	if resp.StatusCode != 200 {
		return fmt.Errorf("停止失败: %s", resp.Error)
	}
	fmt.Println("监督循环已停止")
	return nil
}

func init() {
	root.RootCmd.AddCommand(stopCmd)
}
