// internal/config/config_test.go
package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/joho/godotenv"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	// Optional developer overrides, same mechanism the deployment uses.
	_ = godotenv.Load(".env.test")
	os.Exit(m.Run())
}

func loadWithEnv(t *testing.T, env map[string]string) Config {
	t.Helper()

	// LoadConfig reads ./.env, so run each test from a directory we control.
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), nil, 0o600))
	cwd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(cwd) })

	for key, value := range env {
		t.Setenv(key, value)
	}
	require.NoError(t, LoadConfig())
	return AppConfig
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg := loadWithEnv(t, nil)

	require.Equal(t, 1, cfg.WhmcsDiscordFieldID)
	require.Equal(t, 10*time.Second, cfg.HTTPTimeout)
	require.Equal(t, 240*time.Second, cfg.PanelWindow)
	require.Equal(t, "8080", cfg.HealthPort)
	require.Equal(t, "info", cfg.LogLevel)
}

func TestLoadConfigFromEnvironment(t *testing.T) {
	cfg := loadWithEnv(t, map[string]string{
		"KRONOS_ENDPOINT":      "https://kronos.example.com",
		"HTTP_TIMEOUT_SECONDS": "5",
		"LOG_LEVEL":            "debug",
	})

	require.Equal(t, "https://kronos.example.com", cfg.KronosEndpoint)
	require.Equal(t, 5*time.Second, cfg.HTTPTimeout)
	require.Equal(t, "debug", cfg.LogLevel)
}

func TestUseAdminAPIPrecedence(t *testing.T) {
	cfg := Config{KronosAdminUsername: "admin@example.com", KronosAdminPassword: "hunter2", KronosToken: "token"}
	require.True(t, cfg.UseAdminAPI(), "admin credentials win over a public token")

	cfg = Config{KronosToken: "token"}
	require.False(t, cfg.UseAdminAPI())
}

func TestValidateRequiresCredentials(t *testing.T) {
	valid := Config{
		DiscordToken:    "discord",
		KronosEndpoint:  "https://kronos.example.com",
		KronosToken:     "token",
		WhmcsDBHost:     "db:3306",
		WhmcsDBName:     "whmcs",
		WhmcsDBUsername: "bot",
	}
	require.NoError(t, valid.Validate())

	missingDiscord := valid
	missingDiscord.DiscordToken = ""
	require.Error(t, missingDiscord.Validate())

	missingBackend := valid
	missingBackend.KronosToken = ""
	require.Error(t, missingBackend.Validate(), "a backend credential is required")

	adminOnly := missingBackend
	adminOnly.KronosAdminUsername = "admin@example.com"
	adminOnly.KronosAdminPassword = "hunter2"
	require.NoError(t, adminOnly.Validate(), "admin credentials stand in for the public token")

	missingDB := valid
	missingDB.WhmcsDBHost = ""
	require.Error(t, missingDB.Validate())
}
