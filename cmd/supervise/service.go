package supervise

import (
	"fmt"

	"stackguard/cmd/root"

	"github.com/spf13/cobra"
)

var serviceCmd = &cobra.Command{
	Use:   "service",
	Short: "单个服务的生命周期管理",
	Long:  "启动、停止、重启注册表中的某个受管服务",
}

var serviceStartCmd = &cobra.Command{
	Use:   "start <服务名称>",
	Short: "启动指定服务",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		if err := serviceAction(cmd.Context(), args[0], "start"); err != nil {
			fmt.Println(err)
		}
	},
}

var serviceStopCmd = &cobra.Command{
	Use:   "stop <服务名称>",
	Short: "停止指定服务",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		if err := serviceAction(cmd.Context(), args[0], "stop"); err != nil {
			fmt.Println(err)
		}
	},
}

var serviceRestartCmd = &cobra.Command{
	Use:   "restart <服务名称>",
	Short: "重启指定服务",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		if err := serviceAction(cmd.Context(), args[0], "restart"); err != nil {
			fmt.Println(err)
		}
	},
}

func init() {
	serviceCmd.AddCommand(serviceStartCmd)
	serviceCmd.AddCommand(serviceStopCmd)
	serviceCmd.AddCommand(serviceRestartCmd)
	root.RootCmd.AddCommand(serviceCmd)
}
