package main

import (
	"os"

	"group-scheduler/core/logger"
	"group-scheduler/core/server"
)

func main() {
	if err := server.Run(); err != nil {
		logger.Error("run server error", err)
		os.Exit(1)
	}
}
