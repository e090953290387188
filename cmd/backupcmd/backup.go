package backupcmd

import (
	"encoding/json"
	"fmt"

	"stackguard/cmd/root"
	"stackguard/internal/config"
	"stackguard/internal/models"
	"stackguard/internal/rpc"
	"stackguard/services"

	"github.com/spf13/cobra"
)

var backupCmd = &cobra.Command{
	Use:   "backup",
	Short: "立即创建配置快照",
	Long:  "对所有受管配置文件立即做一次快照，超过保留上限时淘汰最旧的快照",
	Run: func(cmd *cobra.Command, args []string) {
		if err := runBackup(); err != nil {
			fmt.Println(err)
		}
	},
}

func runBackup() error {
	meta, err := backupViaDaemon()
	if err != nil {
		if err := config.LoadSpec(); err != nil {
			return fmt.Errorf("加载系统配置失败: %v", err)
		}
		meta, err = services.GetServer().Backups().Snapshot(models.ReasonManual)
		if err != nil {
			return fmt.Errorf("快照失败: %v", err)
		}
	}

	fmt.Printf("快照 [%s] 创建成功，包含 %d 个文件\n", meta.ID, len(meta.Files))
	return nil
}

func backupViaDaemon() (*models.BackupMetadata, error) {
	client := rpc.NewHTTPClient(nil)
	defer client.Close()

	resp, err := client.Post("/stackguard/api/v1/backups", nil)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != 200 {
		return nil, fmt.Errorf("快照失败: %s", resp.Error)
	}
	var meta models.BackupMetadata
	if err := json.Unmarshal(resp.Body, &meta); err != nil {
		return nil, err
	}
	return &meta, nil
}

func init() {
	root.RootCmd.AddCommand(backupCmd)
}
