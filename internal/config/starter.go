package config

import (
	"os"

	"gopkg.in/yaml.v3"

	"hostwatch/internal/errors"
)

// starterHeader is written above the generated YAML so the file is
// self-documenting.
const starterHeader = `# hostwatch configuration.
#
# The jump host is probed first each cycle; while it's down, monitored
# hosts are reported as skipped without opening any connections.
# Supply the SSH private key via the HOSTWATCH_SSH_KEY environment
# variable (a .env file next to this config works too).
`

// starterFile mirrors Config with string durations, so the generated
// YAML reads "10s" instead of raw nanoseconds.
type starterFile struct {
	JumpHost          string       `yaml:"jump_host"`
	Hosts             []HostConfig `yaml:"hosts"`
	IdleIntervalSec   int          `yaml:"idle_interval_sec"`
	ActiveIntervalSec int          `yaml:"active_interval_sec"`
	ConnectTimeout    string       `yaml:"connect_timeout"`
	CommandTimeout    string       `yaml:"command_timeout"`
	MaxParallelProbes int          `yaml:"max_parallel_probes"`
	Listen            string       `yaml:"listen"`
}

// WriteStarter writes a commented starter config to path.
// It refuses to overwrite an existing file unless force is set.
func WriteStarter(path string, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return errors.New(errors.ErrConfig,
				path+" already exists",
				"Use --force to overwrite it")
		}
	}

	defaults := DefaultConfig()
	starter := starterFile{
		JumpHost: "bastion",
		Hosts: []HostConfig{
			{Alias: "bastion", Hostname: "bastion.example.net", User: "monitor"},
			{Alias: "gpu-01", Hostname: "10.0.0.11", User: "monitor", RelayAlias: "bastion", CheckGPU: true},
			{Alias: "gpu-02", Hostname: "10.0.0.12", User: "monitor", RelayAlias: "bastion", CheckGPU: true},
		},
		IdleIntervalSec:   defaults.IdleIntervalSec,
		ActiveIntervalSec: defaults.ActiveIntervalSec,
		ConnectTimeout:    defaults.ConnectTimeout.String(),
		CommandTimeout:    defaults.CommandTimeout.String(),
		MaxParallelProbes: defaults.MaxParallelProbes,
		Listen:            defaults.Listen,
	}

	body, err := yaml.Marshal(starter)
	if err != nil {
		return errors.Wrap(err, errors.ErrConfig, "Failed to render starter config")
	}

	if err := os.WriteFile(path, append([]byte(starterHeader), body...), 0o644); err != nil {
		return errors.WrapWithSuggestion(err, errors.ErrConfig,
			"Failed to write "+path,
			"Check directory permissions")
	}

	return nil
}
