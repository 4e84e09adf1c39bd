package app

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(nil)
	require.NoError(t, err)
	require.Equal(t, "wss://hive-auth.arcange.eu", cfg.RelayURL)
	require.Equal(t, "hive-auth.arcange.eu", cfg.RelayHost())
	require.Equal(t, "pksalink", cfg.App.Name)
	require.Equal(t, "INFO", cfg.Logging.Level)
	require.Empty(t, cfg.SharedSecret)

	rc := cfg.RelayConfig()
	require.Equal(t, 60*time.Second, rc.RequestTimeout)
	require.Equal(t, 10*time.Second, rc.HandshakeTimeout)
	require.Equal(t, 250*time.Millisecond, rc.PollInterval)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pksalink.toml")
	body := `
RelayURL = "wss://relay.example.org/ws"
RequestTimeout = 30
PollInterval = 100
SharedSecret = "s3cret"
Debug = true

[App]
Name = "my dapp"
Description = "does things"

[Logging]
Level = "warning"
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

	cfg, err := LoadFile(path)
	require.NoError(t, err)
	require.Equal(t, "relay.example.org", cfg.RelayHost())
	require.Equal(t, 30*time.Second, cfg.RelayConfig().RequestTimeout)
	require.Equal(t, 100*time.Millisecond, cfg.RelayConfig().PollInterval)
	require.Equal(t, "s3cret", cfg.SharedSecret)
	require.Equal(t, "my dapp", cfg.App.Name)
	require.Equal(t, "DEBUG", cfg.Logging.Level, "Debug overrides the level")
}

func TestLoad_RejectsInsecureRelay(t *testing.T) {
	_, err := Load([]byte(`RelayURL = "ws://relay.example.org"`))
	require.Error(t, err)

	_, err = Load([]byte(`RelayURL = "https://relay.example.org"`))
	require.Error(t, err)

	cfg, err := Load([]byte(`RelayURL = "ws://127.0.0.1:8080/"`))
	require.NoError(t, err, "plain ws is allowed on loopback")
	require.Equal(t, "127.0.0.1:8080", cfg.RelayHost())
}

func TestLoad_RejectsUnknownKeysAndLevels(t *testing.T) {
	_, err := Load([]byte(`Relay = "wss://x"`))
	require.Error(t, err)

	_, err = Load([]byte("[Logging]\nLevel = \"chatty\""))
	require.Error(t, err)

	_, err = Load([]byte(`PollInterval = -1`))
	require.Error(t, err)
}

func TestNewWire_CreatesHome(t *testing.T) {
	cfg := Default()
	cfg.Home = filepath.Join(t.TempDir(), "nested", "home")

	w, err := NewWire(cfg)
	require.NoError(t, err)
	defer w.Close()

	info, err := os.Stat(cfg.Home)
	require.NoError(t, err)
	require.True(t, info.IsDir())
	require.Equal(t, filepath.Join(cfg.Home, "sessions.json.enc"), w.Store.Path())
	require.False(t, w.Relay.Connected())
}
