package main

import (
	"os"

	"github.com/GoSim-25-26J-441/ui2code-backend/config"
	"github.com/GoSim-25-26J-441/ui2code-backend/internal/logging"
)

func main() {
	log := logging.New("info", "production")
	if len(os.Args) < 2 {
		log.Fatal().Msg("usage: worker sweep | worker export <projectID> [outFile]")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}
	log = logging.New(cfg.App.LogLevel, cfg.App.Environment)

	var runErr error
	switch os.Args[1] {
	case "sweep":
		runErr = RunSweep(cfg, log)
	case "export":
		runErr = RunExport(cfg, log, os.Args[2:])
	default:
		log.Fatal().Str("command", os.Args[1]).Msg("unknown command")
	}
	if runErr != nil {
		log.Fatal().Err(runErr).Str("command", os.Args[1]).Msg("command failed")
	}
}
