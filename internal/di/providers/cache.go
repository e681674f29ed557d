package providers

import (
	"path/filepath"

	"github.com/samber/do/v2"

	"github.com/tunevaultapp/tunevault-client/internal/cache"
	"github.com/tunevaultapp/tunevault-client/internal/config"
	"github.com/tunevaultapp/tunevault-client/internal/domain"
	"github.com/tunevaultapp/tunevault-client/internal/logger"
)

// CacheHandle wraps the local cache with shutdown capability.
type CacheHandle struct {
	*cache.Cache
}

// Shutdown implements do.Shutdownable.
func (h *CacheHandle) Shutdown() error {
	return h.Close()
}

// ProvideCache provides the persistent local cache.
func ProvideCache(i do.Injector) (*CacheHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	c, err := cache.Open(filepath.Join(cfg.Data.BasePath, "cache"), domain.DefaultCacheSettings(), log.Logger)
	if err != nil {
		return nil, err
	}
	c.SetLibraryID(cfg.Vault.LibraryID)

	log.Info("Local cache opened",
		"size_bytes", c.CurrentSizeBytes(),
		"tracks", len(c.TrackIDs()),
	)

	return &CacheHandle{Cache: c}, nil
}
