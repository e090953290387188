package backupcmd

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"stackguard/internal/config"
	"stackguard/internal/env"
	"stackguard/internal/models"
	"stackguard/internal/rpc"
	"stackguard/services"

	"github.com/spf13/cobra"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "列出保留的快照",
	Run: func(cmd *cobra.Command, args []string) {
		if err := runList(); err != nil {
			fmt.Println(err)
		}
	},
}

func runList() error {
	metas, err := listViaDaemon()
	if err != nil {
		// The snapshot store is plain files, list it directly
		metas, err = services.NewBackupManager(env.BackupsDir(),
			config.Config.Backup.MaxCount, nil).List()
		if err != nil {
			return fmt.Errorf("列出快照失败: %v", err)
		}
	}

	if len(metas) == 0 {
		fmt.Println("没有可用的快照")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\t创建时间\t触发原因\t文件数")
	for _, meta := range metas {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\n",
			meta.ID, meta.CreatedAt.Format("2006-01-02 15:04:05"), meta.Reason, len(meta.Files))
	}
	w.Flush()
	return nil
}

func listViaDaemon() ([]models.BackupMetadata, error) {
	client := rpc.NewHTTPClient(nil)
	defer client.Close()

	resp, err := client.Get("/stackguard/api/v1/backups", nil)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != 200 {
		return nil, fmt.Errorf("列出快照失败: %s", resp.Error)
	}
	var metas []models.BackupMetadata
	if err := json.Unmarshal(resp.Body, &metas); err != nil {
		return nil, err
	}
	return metas, nil
}

func init() {
	backupCmd.AddCommand(listCmd)
}
