package providers

import (
	"github.com/samber/do/v2"

	"github.com/tunevaultapp/tunevault-client/internal/config"
	"github.com/tunevaultapp/tunevault-client/internal/logger"
	"github.com/tunevaultapp/tunevault-client/internal/playcount"
	"github.com/tunevaultapp/tunevault-client/internal/remote"
)

// AggregatorHandle wraps the play-count aggregator with shutdown capability.
type AggregatorHandle struct {
	*playcount.Aggregator
}

// Shutdown implements do.Shutdownable.
func (h *AggregatorHandle) Shutdown() error {
	return h.Close()
}

// ProvideAggregator provides the play-count aggregator, subscribed to the
// playback engine's event stream.
func ProvideAggregator(i do.Injector) (*AggregatorHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	provider := do.MustInvoke[remote.Provider](i)
	engineHandle := do.MustInvoke[*EngineHandle](i)

	agg := playcount.NewAggregator(provider, cfg.Vault.UserID, engineHandle.Events(), log.Logger)

	return &AggregatorHandle{Aggregator: agg}, nil
}
