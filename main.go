package main

import (
	_ "stackguard/cmd"
	"stackguard/cmd/root"
	"stackguard/internal/config"
	"stackguard/internal/logger"
	"os"
)

func main() {
	// Server mode mirrors log output to the console as well
	isServerMode := len(os.Args) > 1 && os.Args[1] == "server"

	logger.InitLoggerWithMode(&config.Config.Log, isServerMode)

	if err := root.RootCmd.Execute(); err != nil {
		logger.Fatal(err)
	}
	os.Exit(0)
}
