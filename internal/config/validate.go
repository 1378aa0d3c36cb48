package config

import (
	"fmt"
	"strings"

	"hostwatch/internal/errors"
)

// Validate checks the configuration for errors before the engine is built.
// Everything it catches would otherwise surface mid-run as a confusing
// probe failure, so this is the one fatal path.
func Validate(cfg *Config) error {
	if len(cfg.Hosts) == 0 {
		return errors.New(errors.ErrConfig,
			"No hosts configured",
			"Add at least one entry under 'hosts' in "+ConfigFileName)
	}

	if err := validateAliases(cfg); err != nil {
		return err
	}

	if err := validateJumpHost(cfg); err != nil {
		return err
	}

	if err := validateRelays(cfg); err != nil {
		return err
	}

	return validateIntervals(cfg)
}

// validateAliases checks that every host has a unique, plain alias.
func validateAliases(cfg *Config) error {
	seen := make(map[string]bool, len(cfg.Hosts))
	for i, h := range cfg.Hosts {
		if strings.TrimSpace(h.Alias) == "" {
			return errors.New(errors.ErrConfig,
				fmt.Sprintf("Host entry %d has no alias", i+1),
				"Every host needs a unique 'alias'")
		}
		if strings.ContainsAny(h.Alias, "@/ ") {
			return errors.New(errors.ErrConfig,
				fmt.Sprintf("Alias '%s' contains special characters", h.Alias),
				"Use a plain name here; put connection details in 'hostname' and 'user'")
		}
		if seen[h.Alias] {
			return errors.New(errors.ErrConfig,
				fmt.Sprintf("Alias '%s' is used more than once", h.Alias),
				"Aliases are lookup keys and have to be unique")
		}
		seen[h.Alias] = true
	}
	return nil
}

// validateJumpHost checks the jump host alias resolves and connects directly.
func validateJumpHost(cfg *Config) error {
	if cfg.JumpHost == "" {
		return nil
	}

	jump, ok := cfg.ByAlias(cfg.JumpHost)
	if !ok {
		return errors.New(errors.ErrConfig,
			fmt.Sprintf("Jump host '%s' doesn't exist", cfg.JumpHost),
			fmt.Sprintf("Available hosts: %s", strings.Join(aliases(cfg.Hosts), ", ")))
	}

	if jump.RelayAlias != "" {
		return errors.New(errors.ErrConfig,
			fmt.Sprintf("Jump host '%s' has a relay_alias", cfg.JumpHost),
			"The jump host is the relay; it must connect directly")
	}

	return nil
}

// validateRelays checks that every relay reference resolves to a host that
// itself connects directly. This keeps the relay relation single-level and
// therefore acyclic: no host can be reached through a relayed host.
func validateRelays(cfg *Config) error {
	for _, h := range cfg.Hosts {
		if h.RelayAlias == "" {
			continue
		}

		if h.RelayAlias == h.Alias {
			return errors.New(errors.ErrConfig,
				fmt.Sprintf("Host '%s' relays through itself", h.Alias),
				"Remove the relay_alias or point it at another host")
		}

		relay, ok := cfg.ByAlias(h.RelayAlias)
		if !ok {
			return errors.New(errors.ErrConfig,
				fmt.Sprintf("Host '%s' relays through unknown host '%s'", h.Alias, h.RelayAlias),
				fmt.Sprintf("Available hosts: %s", strings.Join(aliases(cfg.Hosts), ", ")))
		}

		if relay.RelayAlias != "" {
			return errors.New(errors.ErrConfig,
				fmt.Sprintf("Host '%s' relays through '%s', which is itself relayed", h.Alias, h.RelayAlias),
				"Relay chains are single-level: the relay host must connect directly")
		}
	}
	return nil
}

// validateIntervals enforces the polling cadence floors.
func validateIntervals(cfg *Config) error {
	if cfg.ActiveIntervalSec < MinActiveIntervalSec {
		return errors.New(errors.ErrConfig,
			fmt.Sprintf("active_interval_sec is %d but the minimum is %d", cfg.ActiveIntervalSec, MinActiveIntervalSec),
			"Polling more often than once a minute hammers the fleet through the jump host")
	}
	if cfg.IdleIntervalSec < MinIdleIntervalSec {
		return errors.New(errors.ErrConfig,
			fmt.Sprintf("idle_interval_sec is %d but the minimum is %d", cfg.IdleIntervalSec, MinIdleIntervalSec),
			"With nobody watching there's no reason to poll that often")
	}
	if cfg.IdleIntervalSec < cfg.ActiveIntervalSec {
		return errors.New(errors.ErrConfig,
			fmt.Sprintf("idle_interval_sec (%d) is shorter than active_interval_sec (%d)", cfg.IdleIntervalSec, cfg.ActiveIntervalSec),
			"Idle polling should be the slower of the two")
	}
	if cfg.MaxParallelProbes < 1 {
		return errors.New(errors.ErrConfig,
			fmt.Sprintf("max_parallel_probes is %d", cfg.MaxParallelProbes),
			"At least one probe has to be allowed to run")
	}
	if cfg.ConnectTimeout <= 0 || cfg.CommandTimeout <= 0 {
		return errors.New(errors.ErrConfig,
			"connect_timeout and command_timeout must be positive",
			"Use durations like '10s' or '1m'")
	}
	return nil
}

// aliases returns the alias of every host, in order.
func aliases(hosts []HostConfig) []string {
	names := make([]string, 0, len(hosts))
	for _, h := range hosts {
		names = append(names, h.Alias)
	}
	return names
}
