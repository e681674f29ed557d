package providers

import (
	"github.com/samber/do/v2"

	"github.com/tunevaultapp/tunevault-client/internal/logger"
	"github.com/tunevaultapp/tunevault-client/internal/player"
	"github.com/tunevaultapp/tunevault-client/internal/remote"
)

// ProvideSink provides the playback audio sink. The wall-clock sink stands in
// where no platform audio backend is compiled in.
func ProvideSink(i do.Injector) (player.Sink, error) {
	return player.NewClockSink(), nil
}

// EngineHandle wraps the playback engine with shutdown capability.
type EngineHandle struct {
	*player.Engine
}

// Shutdown implements do.Shutdownable.
func (h *EngineHandle) Shutdown() error {
	return h.Close()
}

// ProvideEngine provides the playback engine.
func ProvideEngine(i do.Injector) (*EngineHandle, error) {
	log := do.MustInvoke[*logger.Logger](i)
	cacheHandle := do.MustInvoke[*CacheHandle](i)
	provider := do.MustInvoke[remote.Provider](i)
	sink := do.MustInvoke[player.Sink](i)

	engine := player.NewEngine(cacheHandle.Cache, provider, sink, log.Logger)

	return &EngineHandle{Engine: engine}, nil
}
