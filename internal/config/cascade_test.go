package config

import (
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"
)

func TestCascadeAndAgentRegistryDefaults(t *testing.T) {
	v := viper.New()
	setDefaults(v)

	var cfg Config
	require.NoError(t, v.Unmarshal(&cfg))

	require.Equal(t, 10, cfg.Cascade.SlotCount)
	require.Equal(t, 1000.0, cfg.Cascade.ValorBase)
	require.False(t, cfg.Cascade.DowngradeEnabled)
	require.Equal(t, 0.001, cfg.Cascade.SafetyBufferPct)

	require.Equal(t, 2, cfg.Agents.MinAgentsVoting)
	require.Equal(t, 0.65, cfg.Agents.ConsensusThreshold)
	require.Len(t, cfg.Agents.Agents, 5)
	require.Equal(t, "scalping", cfg.Agents.Agents[0].ID)
}

func TestTradingStepIntervalDefault(t *testing.T) {
	v := viper.New()
	setDefaults(v)

	var cfg Config
	require.NoError(t, v.Unmarshal(&cfg))

	require.Equal(t, 60000, cfg.Trading.StepIntervalMS)
	require.Equal(t, 60000, int(cfg.Trading.GetStepInterval().Milliseconds()))
}
