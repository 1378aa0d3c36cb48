package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// validConfig returns a config that passes validation, for tests to break.
func validConfig() *Config {
	cfg := DefaultConfig()
	cfg.JumpHost = "bastion"
	cfg.Hosts = []HostConfig{
		{Alias: "bastion", Hostname: "bastion.example.net"},
		{Alias: "gpu-01", RelayAlias: "bastion", CheckGPU: true},
		{Alias: "gpu-02", RelayAlias: "bastion"},
		{Alias: "standalone"},
	}
	return cfg
}

func TestValidate_OK(t *testing.T) {
	assert.NoError(t, Validate(validConfig()))
}

func TestValidate_Errors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"no hosts", func(c *Config) { c.Hosts = nil }},
		{"empty alias", func(c *Config) { c.Hosts[1].Alias = "  " }},
		{"alias with user prefix", func(c *Config) { c.Hosts[1].Alias = "user@gpu-01" }},
		{"duplicate alias", func(c *Config) { c.Hosts[2].Alias = "gpu-01" }},
		{"unknown jump host", func(c *Config) { c.JumpHost = "missing" }},
		{"relayed jump host", func(c *Config) { c.Hosts[0].RelayAlias = "standalone" }},
		{"self relay", func(c *Config) { c.Hosts[1].RelayAlias = "gpu-01" }},
		{"unknown relay", func(c *Config) { c.Hosts[1].RelayAlias = "missing" }},
		{"relay through relayed host", func(c *Config) { c.Hosts[3].RelayAlias = "gpu-01" }},
		{"active interval below floor", func(c *Config) { c.ActiveIntervalSec = 30 }},
		{"idle interval below floor", func(c *Config) { c.IdleIntervalSec = 300 }},
		{"idle shorter than active", func(c *Config) {
			c.ActiveIntervalSec = 900
			c.IdleIntervalSec = 600
		}},
		{"zero parallel probes", func(c *Config) { c.MaxParallelProbes = 0 }},
		{"zero connect timeout", func(c *Config) { c.ConnectTimeout = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			assert.Error(t, Validate(cfg))
		})
	}
}

func TestMonitored(t *testing.T) {
	cfg := validConfig()
	monitored := cfg.Monitored()

	require.Len(t, monitored, 3)
	assert.Equal(t, "gpu-01", monitored[0].Alias)
	assert.Equal(t, "gpu-02", monitored[1].Alias)
	assert.Equal(t, "standalone", monitored[2].Alias)
}

func TestMonitored_NoJumpHost(t *testing.T) {
	cfg := validConfig()
	cfg.JumpHost = ""
	cfg.Hosts[1].RelayAlias = ""
	cfg.Hosts[2].RelayAlias = ""

	assert.Len(t, cfg.Monitored(), 4)
}

func TestByAlias(t *testing.T) {
	cfg := validConfig()

	hc, ok := cfg.ByAlias("gpu-01")
	require.True(t, ok)
	assert.Equal(t, "bastion", hc.RelayAlias)

	_, ok = cfg.ByAlias("nope")
	assert.False(t, ok)
}

func TestIntervalAccessors(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, float64(DefaultActiveIntervalSec), cfg.ActiveInterval().Seconds())
	assert.Equal(t, float64(DefaultIdleIntervalSec), cfg.IdleInterval().Seconds())
}
