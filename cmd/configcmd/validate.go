package configcmd

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"stackguard/cmd/root"
	"stackguard/internal/config"
	"stackguard/internal/models"
	"stackguard/internal/rpc"
	"stackguard/services"

	"github.com/spf13/cobra"
)

var repair bool

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "校验受管配置文件",
	Long:  "对所有受管配置文件执行一轮校验。默认自动修复偏离的文件，使用 --repair=false 仅报告。",
	Run: func(cmd *cobra.Command, args []string) {
		if err := runValidate(); err != nil {
			fmt.Println(err)
		}
	},
}

func runValidate() error {
	response, err := validateViaDaemon()
	if err != nil {
		// Daemon unreachable, run the same validation locally
		if err := config.LoadSpec(); err != nil {
			return fmt.Errorf("加载系统配置失败: %v", err)
		}
		results := services.GetServer().Validator().Validate(repair)
		response = &models.ValidateResponse{Repaired: repair, Results: results}
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
	}

	printResults(response)
	if response.Unfixable > 0 {
		return fmt.Errorf("%d 条规则无法自动修复，需要人工介入", response.Unfixable)
	}
	return nil
}

func validateViaDaemon() (*models.ValidateResponse, error) {
	client := rpc.NewHTTPClient(nil)
	defer client.Close()

	path := fmt.Sprintf("/stackguard/api/v1/validate?repair=%t", repair)
	resp, err := client.Post(path, nil)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != 200 {
		return nil, fmt.Errorf("校验失败: %s", resp.Error)
	}
	var response models.ValidateResponse
	if err := json.Unmarshal(resp.Body, &response); err != nil {
		return nil, err
	}
	return &response, nil
}

func printResults(response *models.ValidateResponse) {
	fmt.Printf("=== 配置校验: %d 条规则, %d 偏离, %d 已修复, %d 无法修复 ===\n",
		len(response.Results), response.Drifted, response.Fixed, response.Unfixable)

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "规则\t文件\t偏离\t已修复\t说明")
	for _, r := range response.Results {
		fmt.Fprintf(w, "%s\t%s\t%t\t%t\t%s\n", r.Rule, r.Path, r.WasDrifted, r.Fixed, r.Detail)
	}
	w.Flush()
}

func init() {
	root.RootCmd.AddCommand(validateCmd)
	validateCmd.Flags().BoolVar(&repair, "repair", true, "Apply fixers to drifted files")
}
