// Package main provides the entry point for the TuneVault client application.
package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/samber/do/v2"

	"github.com/tunevaultapp/tunevault-client/internal/di"
	"github.com/tunevaultapp/tunevault-client/internal/di/providers"
	"github.com/tunevaultapp/tunevault-client/internal/logger"
)

func main() {
	// Create DI container
	injector := di.NewContainer()

	// Bootstrap all services
	if err := di.Bootstrap(injector); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to bootstrap client: %v\n", err)
		os.Exit(1)
	}

	// Get logger for shutdown messages
	log := do.MustInvoke[*logger.Logger](injector)

	// Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down client gracefully...")

	// Shutdown all services in reverse order
	// The DI container handles shutdown order automatically
	if err := injector.Shutdown(); err != nil {
		log.Error("Shutdown error", "error", err)
	}

	// The search index and cache use wrapper types, so close them explicitly
	// in that order: the index writes nothing once the cache stops feeding it.
	if searchHandle, err := do.Invoke[*providers.SearchIndexHandle](injector); err == nil {
		log.Info("Closing search index...")
		if err := searchHandle.Shutdown(); err != nil {
			log.Error("Failed to close search index", "error", err)
		}
	}

	if cacheHandle, err := do.Invoke[*providers.CacheHandle](injector); err == nil {
		log.Info("Closing local cache...")
		if err := cacheHandle.Shutdown(); err != nil {
			log.Error("Failed to close local cache", "error", err)
		} else {
			log.Info("Local cache closed successfully")
		}
	}

	log.Info("Fading out...")
}
