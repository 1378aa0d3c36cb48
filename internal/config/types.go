package config

import "time"

// Default polling intervals and probe bounds.
const (
	// DefaultIdleIntervalSec is the poll interval with no observers (15 min).
	DefaultIdleIntervalSec = 1800
	// DefaultActiveIntervalSec is the poll interval with observers (5 min).
	DefaultActiveIntervalSec = 300
	// MinIdleIntervalSec bounds how often idle polling may hit the fleet.
	MinIdleIntervalSec = 600
	// MinActiveIntervalSec bounds how often active polling may hit the fleet.
	MinActiveIntervalSec = 60
)

// Config is the resolved hostwatch configuration.
type Config struct {
	// JumpHost is the alias of the bastion host, or empty for none.
	// When set, it must reference an entry in Hosts, and monitored hosts
	// are only probed while the jump host is up.
	JumpHost string `yaml:"jump_host" mapstructure:"jump_host"`

	// Hosts lists every known host in display order. The jump host entry,
	// if any, is part of this list; all other entries are monitored.
	Hosts []HostConfig `yaml:"hosts" mapstructure:"hosts"`

	// IdleIntervalSec is the seconds between poll cycles with no observers.
	IdleIntervalSec int `yaml:"idle_interval_sec" mapstructure:"idle_interval_sec"`

	// ActiveIntervalSec is the seconds between poll cycles with observers.
	ActiveIntervalSec int `yaml:"active_interval_sec" mapstructure:"active_interval_sec"`

	// ConnectTimeout bounds a single SSH connection attempt.
	ConnectTimeout time.Duration `yaml:"connect_timeout" mapstructure:"connect_timeout"`

	// CommandTimeout bounds a single remote command execution.
	CommandTimeout time.Duration `yaml:"command_timeout" mapstructure:"command_timeout"`

	// MaxParallelProbes caps concurrent monitored-host probes so the jump
	// host's forwarding capacity is not overwhelmed.
	MaxParallelProbes int `yaml:"max_parallel_probes" mapstructure:"max_parallel_probes"`

	// KnownHostsFile enables host key verification against the given file.
	// Empty disables verification, matching ad hoc lab fleets.
	KnownHostsFile string `yaml:"known_hosts_file" mapstructure:"known_hosts_file"`

	// Listen is the HTTP listen address for the feed transport.
	Listen string `yaml:"listen" mapstructure:"listen"`
}

// HostConfig describes one machine and how to reach it.
type HostConfig struct {
	// Alias is the unique key for this host, used in relay references,
	// pooling, and as the hostname shown in statuses.
	Alias string `yaml:"alias" mapstructure:"alias"`

	// Hostname is the address to connect to. When empty, the alias is
	// resolved through ~/.ssh/config.
	Hostname string `yaml:"hostname" mapstructure:"hostname"`

	// User is the SSH login. When empty, ~/.ssh/config or the current
	// user is used.
	User string `yaml:"user" mapstructure:"user"`

	// Port is the SSH port. Zero means 22 (or the ~/.ssh/config value).
	Port int `yaml:"port" mapstructure:"port"`

	// RelayAlias routes the connection through another configured host.
	// The referenced host must itself connect directly.
	RelayAlias string `yaml:"relay_alias" mapstructure:"relay_alias"`

	// CheckGPU enables the nvidia-smi probe battery for this host.
	CheckGPU bool `yaml:"check_gpu" mapstructure:"check_gpu"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		IdleIntervalSec:   DefaultIdleIntervalSec,
		ActiveIntervalSec: DefaultActiveIntervalSec,
		ConnectTimeout:    10 * time.Second,
		CommandTimeout:    30 * time.Second,
		MaxParallelProbes: 4,
		Listen:            "127.0.0.1:8080",
	}
}

// ByAlias returns the host entry for the given alias.
func (c *Config) ByAlias(alias string) (HostConfig, bool) {
	for _, h := range c.Hosts {
		if h.Alias == alias {
			return h, true
		}
	}
	return HostConfig{}, false
}

// Monitored returns the hosts to probe each cycle, in configuration order.
// The jump host entry is excluded: its health is reported separately.
func (c *Config) Monitored() []HostConfig {
	monitored := make([]HostConfig, 0, len(c.Hosts))
	for _, h := range c.Hosts {
		if h.Alias == c.JumpHost {
			continue
		}
		monitored = append(monitored, h)
	}
	return monitored
}

// IdleInterval returns the idle poll interval as a duration.
func (c *Config) IdleInterval() time.Duration {
	return time.Duration(c.IdleIntervalSec) * time.Second
}

// ActiveInterval returns the active poll interval as a duration.
func (c *Config) ActiveInterval() time.Duration {
	return time.Duration(c.ActiveIntervalSec) * time.Second
}
