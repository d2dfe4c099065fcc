package main

import (
	"log/slog"

	"github.com/aman162000/sendBIT.ch/internal/cli"
	"github.com/aman162000/sendBIT.ch/internal/logging"
)

func main() {
	logging.Init(slog.LevelWarn)
	cli.Execute()
}
