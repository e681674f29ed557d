// Package di provides dependency injection configuration for the TuneVault client.
package di

import (
	"github.com/samber/do/v2"

	"github.com/tunevaultapp/tunevault-client/internal/config"
	"github.com/tunevaultapp/tunevault-client/internal/di/providers"
	"github.com/tunevaultapp/tunevault-client/internal/logger"
	"github.com/tunevaultapp/tunevault-client/internal/player"
	"github.com/tunevaultapp/tunevault-client/internal/remote"
	"github.com/tunevaultapp/tunevault-client/internal/service"
	"github.com/tunevaultapp/tunevault-client/internal/vaultcrypto"
)

// NewContainer creates and configures the DI container with all providers.
func NewContainer() *do.RootScope {
	injector := do.New()

	// Core infrastructure
	do.Provide(injector, providers.ProvideConfig)
	do.Provide(injector, providers.ProvideLogger)

	// Remote vault access
	do.Provide(injector, providers.ProvideCipher)
	do.Provide(injector, providers.ProvideProvider)

	// Storage layer
	do.Provide(injector, providers.ProvideCache)
	do.Provide(injector, providers.ProvideSearchIndex)

	// Playback layer
	do.Provide(injector, providers.ProvideSink)
	do.Provide(injector, providers.ProvideEngine)
	do.Provide(injector, providers.ProvideAggregator)

	// Business services
	do.Provide(injector, providers.ProvideLibraryService)

	return injector
}

// Bootstrap initializes all services and returns handles for lifecycle management.
// This triggers lazy initialization of all core services.
func Bootstrap(injector *do.RootScope) error {
	// Invoke core services to trigger initialization
	_ = do.MustInvoke[*config.Config](injector)
	_ = do.MustInvoke[*logger.Logger](injector)
	_ = do.MustInvoke[*vaultcrypto.Cipher](injector)
	_ = do.MustInvoke[remote.Provider](injector)
	_ = do.MustInvoke[*providers.CacheHandle](injector)
	_ = do.MustInvoke[*providers.SearchIndexHandle](injector)
	_ = do.MustInvoke[player.Sink](injector)
	_ = do.MustInvoke[*providers.EngineHandle](injector)
	_ = do.MustInvoke[*providers.AggregatorHandle](injector)
	_ = do.MustInvoke[*service.LibraryService](injector)

	return nil
}
