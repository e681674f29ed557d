package providers

import (
	"path/filepath"

	"github.com/samber/do/v2"

	"github.com/tunevaultapp/tunevault-client/internal/config"
	"github.com/tunevaultapp/tunevault-client/internal/logger"
	"github.com/tunevaultapp/tunevault-client/internal/search"
)

// SearchIndexHandle wraps the search index with shutdown capability.
type SearchIndexHandle struct {
	*search.Index
}

// Shutdown implements do.Shutdownable.
func (h *SearchIndexHandle) Shutdown() error {
	return h.Close()
}

// ProvideSearchIndex provides the Bleve search index, wired to the cache so
// cached tracks are indexed and evicted tracks drop out of results.
func ProvideSearchIndex(i do.Injector) (*SearchIndexHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	cacheHandle := do.MustInvoke[*CacheHandle](i)

	index, err := search.Open(filepath.Join(cfg.Data.BasePath, "search"), log.Logger)
	if err != nil {
		return nil, err
	}
	cacheHandle.SetIndexer(index)

	docCount, _ := index.Count()
	log.Info("Search index initialized", "documents", docCount)

	return &SearchIndexHandle{Index: index}, nil
}
