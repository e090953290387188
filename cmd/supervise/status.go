package supervise

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"stackguard/cmd/root"
	"stackguard/internal/env"
	"stackguard/internal/models"
	"stackguard/internal/rpc"

	"github.com/spf13/cobra"
)

var statusJSON bool

var statusCmd = &cobra.Command{
	Use:   "status [服务名称]",
	Short: "查看服务健康状态",
	Long:  "查看最近一个巡检周期的健康报告。守护进程不可达时回退读取本地缓存的报告。",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		if err := showStatus(args); err != nil {
			fmt.Println(err)
		}
	},
}

/**
 * Fetch the latest health report
 * @returns {*models.HealthReport} Report from the daemon, or the cached copy
 * @description
 * - Asks the daemon first so the report is current
 * - Falls back to cache/health.json when the daemon is unreachable; the
 *   timestamp tells the reader how stale it is
 */
func fetchReport() (*models.HealthReport, error) {
	client := rpc.NewHTTPClient(nil)
	defer client.Close()

	if resp, err := client.Get("/stackguard/api/v1/report", nil); err == nil && resp.StatusCode == 200 {
		var report models.HealthReport
		if err := json.Unmarshal(resp.Body, &report); err == nil {
			return &report, nil
		}
	}

	data, err := os.ReadFile(env.HealthFile())
	if err != nil {
		return nil, fmt.Errorf("守护进程不可达且无本地缓存报告: %v", err)
	}
	var report models.HealthReport
	if err := json.Unmarshal(data, &report); err != nil {
		return nil, fmt.Errorf("本地缓存报告损坏: %v", err)
	}
	return &report, nil
}

func showStatus(args []string) error {
	report, err := fetchReport()
	if err != nil {
		return err
	}

	if len(args) == 1 {
		svc, ok := report.Services[args[0]]
		if !ok {
			return fmt.Errorf("未找到名为 '%s' 的服务", args[0])
		}
		return printService(args[0], svc)
	}

	if statusJSON {
		out, err := json.MarshalIndent(report, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(out))
		return nil
	}

	fmt.Printf("=== 系统状态: %s (检查于 %s) ===\n", report.Overall, report.Timestamp.Format("2006-01-02 15:04:05"))
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "名称\t状态\t状态码\t延迟\t最近修复\t说明")
	for name, svc := range report.Services {
		remediation := "-"
		if !svc.LastRemediation.IsZero() {
			remediation = svc.LastRemediation.Format("15:04:05")
		}
		fmt.Fprintf(w, "%s\t%s\t%d\t%dms\t%s\t%s\n",
			name, svc.Status, svc.LastProbeStatus, svc.LatencyMs, remediation, svc.Detail)
	}
	w.Flush()
	return nil
}

func printService(name string, svc models.ServiceHealth) error {
	if statusJSON {
		out, err := json.MarshalIndent(svc, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(out))
		return nil
	}
	fmt.Printf("=== 服务 '%s' ===\n", name)
	fmt.Printf("状态: %s\n", svc.Status)
	fmt.Printf("最近检查: %s\n", svc.LastCheck.Format("2006-01-02 15:04:05"))
	fmt.Printf("状态码: %d\n", svc.LastProbeStatus)
	fmt.Printf("延迟: %dms\n", svc.LatencyMs)
	if !svc.LastRemediation.IsZero() {
		fmt.Printf("最近修复: %s\n", svc.LastRemediation.Format("2006-01-02 15:04:05"))
	}
	if svc.Detail != "" {
		fmt.Printf("说明: %s\n", svc.Detail)
	}
	return nil
}

func init() {
	root.RootCmd.AddCommand(statusCmd)
	statusCmd.Flags().BoolVar(&statusJSON, "json", false, "Output raw JSON")
}
