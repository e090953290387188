package root

import (
	"github.com/spf13/cobra"
)

var RootCmd = &cobra.Command{
	Use:   "stackguard",
	Short: "本地AI技术栈自愈守护进程",
	Long:  `stackguard监控本地AI服务栈的健康状态，自动重启故障服务、校验并修复关键配置文件、维护配置快照`,
}
