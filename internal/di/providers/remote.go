package providers

import (
	"github.com/samber/do/v2"

	"github.com/tunevaultapp/tunevault-client/internal/config"
	"github.com/tunevaultapp/tunevault-client/internal/logger"
	"github.com/tunevaultapp/tunevault-client/internal/remote"
	"github.com/tunevaultapp/tunevault-client/internal/vaultcrypto"
)

// ProvideCipher provides the vault content cipher.
func ProvideCipher(i do.Injector) (*vaultcrypto.Cipher, error) {
	return vaultcrypto.New(), nil
}

// ProvideProvider provides the rate-limited content provider client.
func ProvideProvider(i do.Injector) (remote.Provider, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	cipher := do.MustInvoke[*vaultcrypto.Cipher](i)

	client := remote.NewClient(cfg.Provider.BaseURL, cipher, log.Logger, remote.Options{
		Timeout: cfg.Provider.Timeout,
		RPS:     cfg.Provider.RPS,
		Burst:   cfg.Provider.Burst,
	})

	return client, nil
}
