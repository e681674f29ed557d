package providers

import (
	"github.com/samber/do/v2"

	"github.com/tunevaultapp/tunevault-client/internal/logger"
	"github.com/tunevaultapp/tunevault-client/internal/remote"
	"github.com/tunevaultapp/tunevault-client/internal/service"
)

// ProvideLibraryService provides the cache-through library service.
func ProvideLibraryService(i do.Injector) (*service.LibraryService, error) {
	log := do.MustInvoke[*logger.Logger](i)
	cacheHandle := do.MustInvoke[*CacheHandle](i)
	provider := do.MustInvoke[remote.Provider](i)

	return service.NewLibraryService(cacheHandle.Cache, provider, log.Logger), nil
}
