package di

import (
	"github.com/rs/zerolog"

	"github.com/leosinemaxx/jatour-engine/internal/clock"
	"github.com/leosinemaxx/jatour-engine/internal/config"
)

// Wire builds the full container: databases, repositories, then services.
// Jobs are registered separately via InitializeJobs.
func Wire(cfg *config.Config, clk clock.Clock, log zerolog.Logger) (*Container, error) {
	container, err := InitializeDatabases(cfg, log)
	if err != nil {
		return nil, err
	}

	InitializeRepositories(container, clk, log)
	InitializeServices(container, cfg, clk, log)

	return container, nil
}
