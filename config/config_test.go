// stemsep/config/config_test.go
package config_test // Use an external test package

import (
	"testing"
	"time"

	"stemsep/config"

	"github.com/stretchr/testify/assert"
)

func TestLoadConfig(t *testing.T) {
	t.Run("loads default values correctly", func(t *testing.T) {
		// Ensure no env vars are lingering from other tests
		t.Setenv("STEMSEP_PORT", "")
		t.Setenv("STEMSEP_SEP_BIN", "")
		t.Setenv("STEMSEP_SEP_MODEL", "")
		t.Setenv("STEMSEP_MAX_CONCURRENCY", "")
		t.Setenv("STEMSEP_MAX_UPLOAD_SIZE", "")
		t.Setenv("STEMSEP_SEP_TIMEOUT", "")
		t.Setenv("STEMSEP_SEP_EXTRA_ARGS", "")

		cfg, err := config.Load()
		assert.NoError(t, err)
		assert.NotNil(t, cfg)

		assert.Equal(t, "7860", cfg.Port)
		assert.Equal(t, "demucs", cfg.SepBin)
		assert.Equal(t, "htdemucs_ft", cfg.SepModel)
		assert.Equal(t, 1, cfg.MaxConcurrency)
		assert.Equal(t, false, cfg.AuthEnable)
		assert.Equal(t, time.Duration(0), cfg.SepTimeout)
		assert.Equal(t, time.Duration(0), cfg.ResultsLifetime)
		assert.Equal(t, int64(200*1024*1024), cfg.MaxUploadSize)
		assert.Empty(t, cfg.ExtraArgs)
	})

	t.Run("overrides defaults with environment variables", func(t *testing.T) {
		t.Setenv("STEMSEP_PORT", "9999")
		t.Setenv("STEMSEP_SEP_BIN", "/opt/demucs/bin/demucs")
		t.Setenv("STEMSEP_SEP_MODEL", "mdx_extra")
		t.Setenv("STEMSEP_MAX_CONCURRENCY", "4")
		t.Setenv("STEMSEP_AUTH_ENABLE", "true")
		t.Setenv("STEMSEP_AUTH_KEY", "newsecret")
		t.Setenv("STEMSEP_MAX_UPLOAD_SIZE", "50MB")
		t.Setenv("STEMSEP_SEP_TIMEOUT", "45m")

		cfg, err := config.Load()
		assert.NoError(t, err)
		assert.NotNil(t, cfg)

		assert.Equal(t, "9999", cfg.Port)
		assert.Equal(t, "/opt/demucs/bin/demucs", cfg.SepBin)
		assert.Equal(t, "mdx_extra", cfg.SepModel)
		assert.Equal(t, 4, cfg.MaxConcurrency)
		assert.Equal(t, true, cfg.AuthEnable)
		assert.Equal(t, "newsecret", cfg.AuthKey)
		assert.Equal(t, int64(50*1024*1024), cfg.MaxUploadSize)
		assert.Equal(t, 45*time.Minute, cfg.SepTimeout)
	})

	t.Run("splits extra args without a shell", func(t *testing.T) {
		t.Setenv("STEMSEP_SEP_EXTRA_ARGS", `--segment 10 --name "two words"`)

		cfg, err := config.Load()
		assert.NoError(t, err)
		assert.Equal(t, []string{"--segment", "10", "--name", "two words"}, cfg.ExtraArgs)
	})

	t.Run("rejects unbalanced quoting in extra args", func(t *testing.T) {
		t.Setenv("STEMSEP_SEP_EXTRA_ARGS", `--name "unterminated`)

		_, err := config.Load()
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "SEP_EXTRA_ARGS")
	})
}
