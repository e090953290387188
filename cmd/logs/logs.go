package logs

import (
	"fmt"
	"os"
	"strings"

	"stackguard/cmd/root"
	"stackguard/services"

	"github.com/spf13/cobra"
)

var (
	lineCount int
	follow    bool
)

var Cmd = &cobra.Command{
	Use:   "logs <组件名>",
	Short: "查看组件日志",
	Long: fmt.Sprintf("查看某个组件的追加日志。可用组件: %s",
		strings.Join(services.KnownComponents, ", ")),
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		component := args[0]

		lines, err := services.TailComponentLog(component, lineCount)
		if err != nil {
			fmt.Println(err)
			return
		}
		for _, line := range lines {
			fmt.Println(line)
		}

		if follow {
			if err := services.FollowComponentLog(cmd.Context(), component, os.Stdout); err != nil {
				fmt.Println(err)
			}
		}
	},
}

func init() {
	root.RootCmd.AddCommand(Cmd)
	Cmd.Flags().SortFlags = false
	Cmd.Flags().IntVarP(&lineCount, "lines", "n", 100, "Number of trailing lines to show")
	Cmd.Flags().BoolVarP(&follow, "follow", "f", false, "Keep printing appended lines")
}
