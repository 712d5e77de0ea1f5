package main

import (
	"os"

	"github.com/yigit/univote/internal/pkg/logger"
)

// @title UniVote API
// @version 1.0
// @description Association election platform: candidates, ballots and live results
// @BasePath /api/v1
// @schemes http https

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	if err := newRootCommand().Execute(); err != nil {
		logger.Error().Err(err).Msg("Command failed")
		os.Exit(1)
	}
}
