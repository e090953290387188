package cmd

import (
	_ "stackguard/cmd/backupcmd"
	_ "stackguard/cmd/configcmd"
	_ "stackguard/cmd/logs"
	_ "stackguard/cmd/reset"
	_ "stackguard/cmd/root"
	_ "stackguard/cmd/server"
	_ "stackguard/cmd/supervise"
)
