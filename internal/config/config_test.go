package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("CONFIG_ENV", "missing")
	cfg, err := Load([]string{"--room", "myroom"})
	require.NoError(t, err)

	assert.Equal(t, "myroom", cfg.Room)
	assert.Equal(t, "wss://wss.vdo.ninja:443", cfg.Server)
	assert.Equal(t, "someEncryptionKey123", cfg.Password)
	assert.Equal(t, "standalone", cfg.AudioMode)
	assert.Equal(t, "earliest", cfg.AmbiguousOffer)
	assert.Equal(t, 30*time.Second, cfg.IdleTimeout)
	assert.Equal(t, 5*time.Second, cfg.DisconnectGrace)
	assert.Equal(t, 5*time.Second, cfg.SweepInterval)
	assert.Equal(t, 8080, cfg.Port)
	assert.Empty(t, cfg.Streams)
}

func TestLoadPrecedence(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "recorder.yaml")
	require.NoError(t, os.WriteFile(file, []byte(`
room: fromfile
output_dir: /srv/rec
idle_timeout: 45s
streams: [a, b]
`), 0o644))
	t.Setenv("ROOMREC_OUTPUT_DIR", "/env/rec")

	cfg, err := Load([]string{"--config", file, "--idle-timeout", "10s"})
	require.NoError(t, err)

	assert.Equal(t, "fromfile", cfg.Room)
	assert.Equal(t, "/env/rec", cfg.OutputDir, "env beats file")
	assert.Equal(t, 10*time.Second, cfg.IdleTimeout, "flag beats file")
	assert.Equal(t, []string{"a", "b"}, cfg.Streams)
}

func TestLoadStreamsFlag(t *testing.T) {
	t.Setenv("CONFIG_ENV", "missing")
	cfg, err := Load([]string{"--room", "r", "--streams", "cam1,cam2"})
	require.NoError(t, err)
	assert.Equal(t, []string{"cam1", "cam2"}, cfg.Streams)
}

func TestLoadMissingExplicitFile(t *testing.T) {
	_, err := Load([]string{"--config", filepath.Join(t.TempDir(), "nope.yaml")})
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		return Config{
			Room:                 "r",
			Server:               "wss://example.com",
			AudioMode:            "standalone",
			AmbiguousOffer:       "earliest",
			IdleTimeout:          time.Second,
			DisconnectGrace:      time.Second,
			SweepInterval:        time.Second,
			PingPeriod:           time.Second,
			ReconnectMaxInterval: time.Second,
		}
	}

	tests := []struct {
		name   string
		mutate func(*Config)
		errMsg string
	}{
		{"valid", func(*Config) {}, ""},
		{"no room", func(c *Config) { c.Room = "" }, "room is required"},
		{"audio mode", func(c *Config) { c.AudioMode = "mixed" }, "unknown audio_mode"},
		{"policy", func(c *Config) { c.AmbiguousOffer = "random" }, "unknown ambiguous_offer"},
		{"zero grace", func(c *Config) { c.DisconnectGrace = 0 }, "disconnect_grace must be positive"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.errMsg == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.errMsg)
		})
	}
}
