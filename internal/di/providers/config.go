// Package providers contains dependency injection providers for savekeeper.
package providers

import (
	"github.com/samber/do/v2"

	"github.com/savekeeperapp/savekeeper/internal/config"
	"github.com/savekeeperapp/savekeeper/internal/logger"
	"github.com/savekeeperapp/savekeeper/internal/validation"
)

// ProvideConfig provides the application configuration.
func ProvideConfig(i do.Injector) (*config.Config, error) {
	return config.LoadConfig()
}

// ProvideLogger provides the structured logger.
func ProvideLogger(i do.Injector) (*logger.Logger, error) {
	cfg := do.MustInvoke[*config.Config](i)

	log := logger.New(logger.Config{
		Level:       logger.ParseLevel(cfg.Logger.Level),
		AddSource:   cfg.App.Environment == "development",
		Environment: cfg.App.Environment,
	})

	log.Info("Starting savekeeper",
		"environment", cfg.App.Environment,
		"log_level", cfg.Logger.Level,
		"watch_dir", cfg.Watch.Dir,
		"save_pattern", cfg.SavePattern(),
	)

	return log, nil
}

// ProvideValidator provides the request validator.
func ProvideValidator(i do.Injector) (*validation.Validator, error) {
	return validation.New(), nil
}
