package config_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/sessionkit/core/config"
)

type serverConfig struct {
	Host string `env:"TEST_CONFIG_HOST" envDefault:"localhost"`
	Port int    `env:"TEST_CONFIG_PORT" envDefault:"8080"`
}

type requiredConfig struct {
	Secret string `env:"TEST_CONFIG_MISSING_SECRET,required"`
}

func TestLoad(t *testing.T) {
	t.Run("applies defaults", func(t *testing.T) {
		var cfg serverConfig
		require.NoError(t, config.Load(&cfg))
		assert.Equal(t, "localhost", cfg.Host)
		assert.Equal(t, 8080, cfg.Port)
	})

	t.Run("reads environment values", func(t *testing.T) {
		t.Setenv("TEST_CONFIG_ENV_NAME", "staging")

		var cfg struct {
			Name string `env:"TEST_CONFIG_ENV_NAME"`
		}
		require.NoError(t, config.Load(&cfg))
		assert.Equal(t, "staging", cfg.Name)
	})

	t.Run("returns cached value on second load", func(t *testing.T) {
		var first serverConfig
		require.NoError(t, config.Load(&first))

		// Changing the environment after the first load has no effect.
		t.Setenv("TEST_CONFIG_PORT", "9090")

		var second serverConfig
		require.NoError(t, config.Load(&second))
		assert.Equal(t, first, second)
	})

	t.Run("fails on missing required variable", func(t *testing.T) {
		var cfg requiredConfig
		err := config.Load(&cfg)
		require.Error(t, err)
	})

	t.Run("rejects non-pointer values", func(t *testing.T) {
		err := config.Load(serverConfig{})
		require.Error(t, err)
	})

	t.Run("rejects nil pointers", func(t *testing.T) {
		var cfg *serverConfig
		err := config.Load(cfg)
		require.Error(t, err)
	})
}

func TestMustLoad(t *testing.T) {
	t.Run("panics on failure", func(t *testing.T) {
		assert.Panics(t, func() {
			config.MustLoad(42)
		})
	})

	t.Run("succeeds for valid config", func(t *testing.T) {
		var cfg serverConfig
		assert.NotPanics(t, func() {
			config.MustLoad(&cfg)
		})
	})
}
