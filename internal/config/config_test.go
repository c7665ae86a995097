package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

func TestMustLoad(t *testing.T) {
	t.Run("Defaults fill what the file omits", func(t *testing.T) {
		// Given: a config file with only the log level
		path := writeConfig(t, "log-level: debug\n")

		// When: the config is loaded
		conf := MustLoad(path)

		// Then: the game rules fall back to their defaults
		assert.Equal(t, "debug", conf.LogLevel)
		assert.Equal(t, 10*time.Second, conf.Game.ArbitrationTimeout)
		assert.Equal(t, 2, conf.Game.MinPlayers)
		assert.True(t, conf.Game.EliminateNegative)
		assert.Equal(t, 64, conf.Publisher.BufferSize)
		assert.Equal(t, "localhost:6379", conf.Redis.GetRedisAddr())
	})

	t.Run("Environment overrides the file", func(t *testing.T) {
		path := writeConfig(t, "game:\n  arbitration-timeout: 5s\n  min-players: 3\n")
		t.Setenv("GAME_ARBITRATION_TIMEOUT", "250ms")
		t.Setenv("REDIS_PORT", "6380")

		conf := MustLoad(path)

		assert.Equal(t, 250*time.Millisecond, conf.Game.ArbitrationTimeout)
		assert.Equal(t, 3, conf.Game.MinPlayers)
		assert.Equal(t, "localhost:6380", conf.Redis.GetRedisAddr())
	})

	t.Run("Missing file panics", func(t *testing.T) {
		assert.Panics(t, func() {
			MustLoad(filepath.Join(t.TempDir(), "missing.yml"))
		})
	})
}

func TestConfig_PackLibrary(t *testing.T) {
	t.Run("Pack directory defaults to the directory of the default pack", func(t *testing.T) {
		conf := &Config{PackPath: filepath.Join("packs", "friday.yml")}

		dir, name := conf.PackLibrary()

		assert.Equal(t, "packs", dir)
		assert.Equal(t, "friday.yml", name)
	})

	t.Run("Default pack is named relative to packs-dir", func(t *testing.T) {
		conf := &Config{PacksDir: "packs", PackPath: filepath.Join("packs", "season1", "friday.yml")}

		dir, name := conf.PackLibrary()

		assert.Equal(t, "packs", dir)
		assert.Equal(t, filepath.Join("season1", "friday.yml"), name)
	})

	t.Run("Default pack outside packs-dir is looked up by its base name", func(t *testing.T) {
		conf := &Config{PacksDir: "packs", PackPath: "pack.yml"}

		dir, name := conf.PackLibrary()

		assert.Equal(t, "packs", dir)
		assert.Equal(t, "pack.yml", name)
	})
}
