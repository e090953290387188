package supervise

import (
	"fmt"

	"stackguard/cmd/root"

	"github.com/spf13/cobra"
)

var restartCmd = &cobra.Command{
	Use:   "restart",
	Short: "重启监督",
	Long:  "先停止再启动守护进程的监督循环",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		if err := stopSupervisor(); err != nil {
			fmt.Println(err)
		}
		if err := startSupervisor(); err != nil {
			fmt.Println(err)
		}
	},
}

func init() {
	root.RootCmd.AddCommand(restartCmd)
}
