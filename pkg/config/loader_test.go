package config_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stackform/bizkit/pkg/config"
)

func TestLoad(t *testing.T) {
	t.Run("parses env tags", func(t *testing.T) {
		type serverConfig struct {
			Addr    string `env:"TEST_LOAD_ADDR" envDefault:":8080"`
			Workers int    `env:"TEST_LOAD_WORKERS" envDefault:"4"`
		}
		t.Setenv("TEST_LOAD_ADDR", ":9090")

		var cfg serverConfig
		require.NoError(t, config.Load(&cfg))
		assert.Equal(t, ":9090", cfg.Addr)
		assert.Equal(t, 4, cfg.Workers)
	})

	t.Run("returns cached value on second load", func(t *testing.T) {
		type cachedConfig struct {
			Value string `env:"TEST_CACHED_VALUE" envDefault:"first"`
		}
		var first cachedConfig
		require.NoError(t, config.Load(&first))

		t.Setenv("TEST_CACHED_VALUE", "second")
		var again cachedConfig
		require.NoError(t, config.Load(&again))
		assert.Equal(t, first.Value, again.Value)
	})

	t.Run("missing required variable fails", func(t *testing.T) {
		type strictConfig struct {
			Secret string `env:"TEST_LOAD_MISSING_SECRET,required"`
		}
		var cfg strictConfig
		assert.ErrorIs(t, config.Load(&cfg), config.ErrParsingConfig)
	})

	t.Run("nil pointer is rejected", func(t *testing.T) {
		assert.ErrorIs(t, config.Load[struct{}](nil), config.ErrNilPointer)
	})
}

func TestMustLoad(t *testing.T) {
	type brokenConfig struct {
		Token string `env:"TEST_MUSTLOAD_TOKEN,required"`
	}
	assert.Panics(t, func() {
		var cfg brokenConfig
		config.MustLoad(&cfg)
	})
}
