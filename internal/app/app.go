package app

import (
	"log/slog"

	"github.com/trebuchet-org/treb-bootstrap/internal/domain/config"
	"github.com/trebuchet-org/treb-bootstrap/internal/usecase"
)

// App is the main application container that holds all use cases
type App struct {
	// Configuration
	Config *config.RuntimeConfig
	Log    *slog.Logger

	// Use cases
	BootstrapRegistry *usecase.BootstrapRegistry
	PlanBootstrap     *usecase.PlanBootstrap
	LookupComponent   *usecase.LookupComponent
}

// NewApp creates a new application instance with all use cases
func NewApp(
	cfg *config.RuntimeConfig,
	log *slog.Logger,
	bootstrapRegistry *usecase.BootstrapRegistry,
	planBootstrap *usecase.PlanBootstrap,
	lookupComponent *usecase.LookupComponent,
) (*App, error) {
	return &App{
		Config:            cfg,
		Log:               log,
		BootstrapRegistry: bootstrapRegistry,
		PlanBootstrap:     planBootstrap,
		LookupComponent:   lookupComponent,
	}, nil
}
