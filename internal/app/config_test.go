package app

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Cleanup(RefreshTestMode)
	t.Setenv("CSRF_SECRET", "csrf-secret")
	t.Setenv(TestModeEnv, "")
	RefreshTestMode()
}

func TestLoadConfigDefaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.AppAddr)
	assert.Equal(t, 12, cfg.TokenHashCost)
	assert.Equal(t, []string{"en", "es"}, cfg.SupportedLocales)
	assert.Equal(t, "en", cfg.DefaultLocale)
	assert.False(t, cfg.IsProduction())
}

func TestLoadConfigRequiresCSRFSecret(t *testing.T) {
	t.Setenv("CSRF_SECRET", "")
	_, err := LoadConfig()
	assert.Error(t, err)
}

func TestValidateTokenHashCost(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("TOKEN_HASH_COST", "4")

	_, err := LoadConfig()
	assert.ErrorContains(t, err, "token hash cost")

	t.Cleanup(RefreshTestMode)
	t.Setenv(TestModeEnv, "1")
	RefreshTestMode()
	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, 4, cfg.TokenHashCost)
}

func TestValidateLocales(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("SUPPORTED_LOCALES", " EN , fr ")
	t.Setenv("DEFAULT_LOCALE", "de")

	_, err := LoadConfig()
	assert.ErrorContains(t, err, "default locale")

	t.Setenv("DEFAULT_LOCALE", "fr")
	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, []string{"en", "fr"}, cfg.SupportedLocales)
}
