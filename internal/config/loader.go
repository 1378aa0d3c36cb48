package config

import (
	"os"

	"github.com/spf13/viper"

	"hostwatch/internal/errors"
)

// ConfigFileName is the default config file name, searched for in the
// working directory when no explicit path is given.
const ConfigFileName = "hostwatch.yaml"

// Load reads and validates config from the specified path.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)

	if err := v.ReadInConfig(); err != nil {
		if os.IsNotExist(err) {
			return nil, errors.WrapWithSuggestion(err, errors.ErrConfig,
				"Config file not found: "+path,
				"Run 'hostwatch init' to create one, or point --config at it")
		}
		return nil, errors.WrapWithSuggestion(err, errors.ErrConfig,
			"Failed to read config file",
			"Check the file exists and is valid YAML")
	}

	cfg := DefaultConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, errors.WrapWithSuggestion(err, errors.ErrConfig,
			"Invalid config format",
			"Check the YAML structure in "+path)
	}

	if err := Validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Find returns the config path to use: the explicit path if given,
// otherwise hostwatch.yaml in the working directory.
func Find(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", errors.WrapWithSuggestion(err, errors.ErrConfig,
				"Specified config file not found: "+explicit,
				"Check the path is correct")
		}
		return explicit, nil
	}
	return ConfigFileName, nil
}
