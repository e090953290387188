package reset

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"stackguard/cmd/root"
	"stackguard/internal/config"
	"stackguard/internal/models"
	"stackguard/internal/rpc"
	"stackguard/services"

	"github.com/spf13/cobra"
)

var assumeYes bool

var resetCmd = &cobra.Command{
	Use:   "emergency-reset",
	Short: "紧急重置",
	Long: `最后手段：停止全部服务、恢复最新快照、重启全部服务、校验配置并执行一轮巡检。
健康的服务也会被重启，必须显式确认。`,
	Run: func(cmd *cobra.Command, args []string) {
		if err := runReset(cmd); err != nil {
			fmt.Println(err)
		}
	},
}

func confirm() bool {
	if assumeYes {
		return true
	}
	fmt.Print("紧急重置会重启所有服务（包括健康的服务）并覆盖受管配置文件，确认执行? [y/N]: ")
	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil {
		return false
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes"
}

func runReset(cmd *cobra.Command) error {
	if !confirm() {
		fmt.Println("已取消")
		return nil
	}

	report, err := resetViaDaemon()
	if err != nil {
		// Daemon unreachable, run the sequence locally
		if err := config.LoadSpec(); err != nil {
			return fmt.Errorf("加载系统配置失败: %v", err)
		}
		report, err = services.GetServer().Resetter().Run(cmd.Context(), true)
		if err != nil {
			return fmt.Errorf("紧急重置失败: %v", err)
		}
	}

	printReport(report)
	return nil
}

func resetViaDaemon() (*models.ResetReport, error) {
	client := rpc.NewHTTPClient(nil)
	defer client.Close()

	resp, err := client.Post("/stackguard/api/v1/reset?confirm=true", nil)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != 200 {
		return nil, fmt.Errorf("紧急重置失败: %s", resp.Error)
	}
	var report models.ResetReport
	if err := json.Unmarshal(resp.Body, &report); err != nil {
		return nil, err
	}
	return &report, nil
}

func printReport(report *models.ResetReport) {
	fmt.Printf("=== 紧急重置完成 (%s) ===\n", report.FinishedAt.Sub(report.StartedAt).Round(1e6))

	fmt.Println("停止:")
	for _, s := range report.Stops {
		printAction(s)
	}
	if report.Restore != nil {
		fmt.Printf("恢复: 快照 [%s], %d 成功, %d 失败\n",
			report.Restore.BackupID, report.Restore.Succeeded, report.Restore.Failed)
	} else if report.Detail != "" {
		fmt.Printf("恢复: %s\n", report.Detail)
	}
	fmt.Println("启动:")
	for _, s := range report.Starts {
		printAction(s)
	}

	drifted, fixed := 0, 0
	for _, r := range report.Validation {
		if r.WasDrifted {
			drifted++
		}
		if r.Fixed {
			fixed++
		}
	}
	fmt.Printf("校验: %d 条规则, %d 偏离, %d 已修复\n", len(report.Validation), drifted, fixed)
	if report.Health != nil {
		fmt.Printf("巡检: 系统状态 %s\n", report.Health.Overall)
	}
}

func printAction(a models.ServiceActionResult) {
	mark := "OK"
	if !a.OK {
		mark = "FAIL"
	}
	detail := a.Detail
	if detail != "" {
		detail = " (" + detail + ")"
	}
	fmt.Printf("  [%s] %s%s\n", mark, a.Service, detail)
}

func init() {
	root.RootCmd.AddCommand(resetCmd)
	resetCmd.Flags().BoolVarP(&assumeYes, "yes", "y", false, "Skip the confirmation prompt")
}
