package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("AI_SYNTHESIS_DELAY_DAYS", "")
	t.Setenv("MIN_INTERACTION_THRESHOLD", "")
	t.Setenv("LLM_PROVIDER", "")

	cfg := Load()
	assert.Equal(t, DefaultLifecycle(), cfg.Lifecycle)
	assert.Equal(t, "openai", cfg.LLM.Provider)
	assert.Equal(t, "@hourly", cfg.TransitionSchedule)
	require.NoError(t, cfg.Validate())
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("AI_SYNTHESIS_DELAY_DAYS", "7")
	t.Setenv("MIN_INTERACTION_THRESHOLD", "12.5")
	t.Setenv("SYNTHESIS_TIMEOUT", "5s")
	t.Setenv("DISPLAY_MAX_DEPTH", "not-a-number")

	cfg := Load()
	assert.Equal(t, 7, cfg.Lifecycle.MinDays)
	assert.Equal(t, 12.5, cfg.Lifecycle.MinInteractionThreshold)
	assert.Equal(t, 5*time.Second, cfg.Lifecycle.SynthesisTimeout)
	assert.Equal(t, 5, cfg.Lifecycle.DisplayMaxDepth)
}

func TestValidate(t *testing.T) {
	cfg := Load()
	cfg.LLM.Provider = "carrier-pigeon"
	assert.Error(t, cfg.Validate())

	cfg = Load()
	cfg.Lifecycle.MinDays = 0
	assert.Error(t, cfg.Validate())

	cfg = Load()
	cfg.Lifecycle.SweepConcurrency = -1
	assert.Error(t, cfg.Validate())
}
