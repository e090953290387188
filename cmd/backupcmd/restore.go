package backupcmd

import (
	"encoding/json"
	"fmt"
	"time"

	"stackguard/cmd/root"
	"stackguard/internal/config"
	"stackguard/internal/env"
	"stackguard/internal/models"
	"stackguard/internal/rpc"
	"stackguard/services"

	"github.com/spf13/cobra"
)

var restoreCmd = &cobra.Command{
	Use:   "restore <快照ID|latest>",
	Short: "恢复配置快照",
	Long:  "将指定快照（或latest表示最新快照）回写到实际文件系统。恢复期间自动修复会被暂停。",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		if err := runRestore(args[0]); err != nil {
			fmt.Println(err)
		}
	},
}

func runRestore(id string) error {
	result, err := restoreViaDaemon(id)
	if err != nil {
		// No daemon means no remediation can race the writes anyway
		if err := config.LoadSpec(); err != nil {
			return fmt.Errorf("加载系统配置失败: %v", err)
		}
		spec := config.Spec()
		backups := services.NewBackupManager(env.BackupsDir(),
			config.Config.Backup.MaxCount, spec.GovernedPaths())
		restorer := services.NewRestoreManager(backups, services.NewPathLocks(),
			time.Duration(config.Config.Probe.LockTimeout)*time.Second, nil)
		result, err = restorer.Restore(id)
		if err != nil {
			return fmt.Errorf("恢复失败: %v", err)
		}
	}

	fmt.Printf("快照 [%s] 恢复完成: %d 成功, %d 失败\n", result.BackupID, result.Succeeded, result.Failed)
	for _, f := range result.Files {
		mark := "OK"
		if !f.OK {
			mark = "FAIL"
		}
		detail := f.Detail
		if detail != "" {
			detail = " (" + detail + ")"
		}
		fmt.Printf("  [%s] %s%s\n", mark, f.Path, detail)
	}
	if result.Failed > 0 {
		return fmt.Errorf("%d 个文件恢复失败", result.Failed)
	}
	return nil
}

func restoreViaDaemon(id string) (*models.RestoreResult, error) {
	client := rpc.NewHTTPClient(nil)
	defer client.Close()

	resp, err := client.Post("/stackguard/api/v1/restore/"+id, nil)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != 200 {
		return nil, fmt.Errorf("恢复失败: %s", resp.Error)
	}
	var result models.RestoreResult
	if err := json.Unmarshal(resp.Body, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func init() {
	root.RootCmd.AddCommand(restoreCmd)
}
