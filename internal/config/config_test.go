package config

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig(t *testing.T) *Config {
	t.Helper()
	return &Config{
		App:      AppConfig{Environment: "development"},
		Logger:   LoggerConfig{Level: "info"},
		Data:     DataConfig{BasePath: t.TempDir()},
		Vault:    VaultConfig{UserID: "usr-1", LibraryID: "default"},
		Provider: ProviderConfig{BaseURL: "https://vault.example.com"},
	}
}

func TestValidateAcceptsValidConfig(t *testing.T) {
	require.NoError(t, validConfig(t).Validate())
}

func TestValidateRejectsBadEnvironment(t *testing.T) {
	cfg := validConfig(t)
	cfg.App.Environment = "sandbox"
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid environment")
}

func TestValidateRejectsBadLogLevel(t *testing.T) {
	cfg := validConfig(t)
	cfg.Logger.Level = "verbose"
	assert.Error(t, cfg.Validate())
}

func TestValidateRequiresProviderURL(t *testing.T) {
	cfg := validConfig(t)
	cfg.Provider.BaseURL = ""
	assert.Error(t, cfg.Validate())
}

func TestValidateRequiresUserID(t *testing.T) {
	cfg := validConfig(t)
	cfg.Vault.UserID = ""
	assert.Error(t, cfg.Validate())
}

func TestExpandPath(t *testing.T) {
	abs, err := expandPath("relative/dir", "")
	require.NoError(t, err)
	assert.True(t, filepath.IsAbs(abs))

	def, err := expandPath("", "/srv/tunevault")
	require.NoError(t, err)
	assert.Equal(t, "/srv/tunevault", def)
}

func TestExpandDataPathDefault(t *testing.T) {
	cfg := &Config{}
	require.NoError(t, cfg.expandDataPath())
	assert.Contains(t, cfg.Data.BasePath, filepath.Join("TuneVault", "data"))
}
