package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "syncd.conf")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func validConfig(t *testing.T) string {
	return writeConfigFile(t, `
format_version = "0.1.0"

[server]
url = "https://catalog.example.com"
sync_url = "wss://catalog.example.com/sync"

[sync]
heartbeat_interval = "20s"
dial_timeout = "5s"
snapshot_path = "`+filepath.Join(t.TempDir(), "snapshot.db")+`"
`)
}

func TestLoadConfig(t *testing.T) {
	require.NoError(t, LoadConfig(validConfig(t)))

	cfg := Config()
	assert.Equal(t, "https://catalog.example.com", cfg.GetServerURL())
	assert.Equal(t, "wss://catalog.example.com/sync", cfg.Server.SyncURL)
	assert.Equal(t, 20*time.Second, cfg.Sync.GetHeartbeatInterval())
	assert.Equal(t, 5*time.Second, cfg.Sync.GetDialTimeout())
}

func TestLoadConfigRequiresFilename(t *testing.T) {
	assert.Error(t, LoadConfig(""))
}

func TestLoadConfigRejectsUnsupportedFormatVersion(t *testing.T) {
	path := writeConfigFile(t, `
format_version = "9.9.9"

[server]
url = "https://catalog.example.com"
sync_url = "wss://catalog.example.com/sync"
`)
	err := LoadConfig(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "format version")
}

func TestLoadConfigRequiresServerURL(t *testing.T) {
	path := writeConfigFile(t, `
format_version = "0.1.0"

[server]
sync_url = "wss://catalog.example.com/sync"
`)
	assert.Error(t, LoadConfig(path))
}

func TestLoadConfigRejectsBadDuration(t *testing.T) {
	path := writeConfigFile(t, `
format_version = "0.1.0"

[server]
url = "https://catalog.example.com"
sync_url = "wss://catalog.example.com/sync"

[sync]
heartbeat_interval = "soon"
`)
	err := LoadConfig(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "heartbeat_interval")
}

func TestEnvOverridesWinOverFile(t *testing.T) {
	t.Setenv(EnvServerURL, "https://override.example.com")
	t.Setenv(EnvToken, "env-token")

	require.NoError(t, LoadConfig(validConfig(t)))

	cfg := Config()
	assert.Equal(t, "https://override.example.com", cfg.GetServerURL())
	assert.Equal(t, "env-token", cfg.GetToken())
}

func TestGetSubscriberBuffer(t *testing.T) {
	var sc SyncConfig
	assert.Equal(t, defaultSubscriberBuffer, sc.GetSubscriberBuffer())

	sc.SubscriberBuffer = 4
	assert.Equal(t, 4, sc.GetSubscriberBuffer())
}

func TestGetTokenExpiryFromJWT(t *testing.T) {
	exp := time.Now().Add(time.Hour).Truncate(time.Second)
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "syncd",
		"exp": exp.Unix(),
	}).SignedString([]byte("test-key"))
	require.NoError(t, err)

	auth := AuthConfig{Token: token}
	assert.Equal(t, exp.Unix(), auth.GetTokenExpiry().Unix())
}

func TestGetTokenExpiryOpaqueToken(t *testing.T) {
	auth := AuthConfig{Token: "not-a-jwt"}
	assert.True(t, auth.GetTokenExpiry().IsZero())
}

func TestGetTokenExpiryEmptyToken(t *testing.T) {
	auth := AuthConfig{}
	assert.True(t, auth.GetTokenExpiry().IsZero())
}
