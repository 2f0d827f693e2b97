// Package di provides dependency injection configuration for savekeeper.
package di

import (
	"github.com/samber/do/v2"

	"github.com/savekeeperapp/savekeeper/internal/backup"
	"github.com/savekeeperapp/savekeeper/internal/config"
	"github.com/savekeeperapp/savekeeper/internal/di/providers"
	"github.com/savekeeperapp/savekeeper/internal/logger"
	"github.com/savekeeperapp/savekeeper/internal/validation"
)

// NewContainer creates and configures the DI container with all providers.
func NewContainer() *do.RootScope {
	injector := do.New()

	// Core infrastructure
	do.Provide(injector, providers.ProvideConfig)
	do.Provide(injector, providers.ProvideLogger)
	do.Provide(injector, providers.ProvideValidator)

	// Backup and watch layer
	do.Provide(injector, providers.ProvideBackupStore)
	do.Provide(injector, providers.ProvideSession)

	// Server
	do.Provide(injector, providers.ProvideHTTPServer)

	return injector
}

// Bootstrap initializes all services and returns handles for lifecycle management.
// This triggers lazy initialization of all core services.
func Bootstrap(injector *do.RootScope) error {
	cfg, err := do.Invoke[*config.Config](injector)
	if err != nil {
		return err
	}

	if _, err := do.Invoke[*logger.Logger](injector); err != nil {
		return err
	}
	if _, err := do.Invoke[*validation.Validator](injector); err != nil {
		return err
	}
	if _, err := do.Invoke[*backup.Store](injector); err != nil {
		return err
	}
	if _, err := do.Invoke[*providers.SessionHandle](injector); err != nil {
		return err
	}

	// The control API is opt-in; without a port only the session runs.
	if cfg.APIEnabled() {
		if _, err := do.Invoke[*providers.HTTPServerHandle](injector); err != nil {
			return err
		}
	}

	return nil
}
