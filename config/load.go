package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/EricRahm/bz-triage/errors"
)

// EnvPrefix namespaces environment overrides: BZTRIAGE_FETCH_WORKERS=4
const EnvPrefix = "BZTRIAGE"

// ProjectConfigName is searched for from the working directory upwards
const ProjectConfigName = "bztriage.toml"

var (
	globalConfig       *Config
	viperInstance      *viper.Viper
	explicitConfigPath string
	filesUsed          []string
)

// Load reads the bz-triage configuration using Viper
func Load() (*Config, error) {
	if globalConfig != nil {
		return globalConfig, nil
	}

	v, err := initViper()
	if err != nil {
		return nil, err
	}

	config, err := LoadWithViper(v)
	if err != nil {
		return nil, err
	}

	globalConfig = config
	return globalConfig, nil
}

// SetConfigFile registers an explicit config file (the --config flag). It is
// merged above the user and project files and below environment variables.
// Clears any cached configuration.
func SetConfigFile(path string) {
	explicitConfigPath = path
	globalConfig = nil
	viperInstance = nil
}

// GetViper returns the Viper instance for advanced configuration access,
// e.g. binding CLI flags before calling LoadWithViper.
func GetViper() (*viper.Viper, error) {
	return initViper()
}

// LoadWithViper loads configuration using a provided Viper instance
func LoadWithViper(v *viper.Viper) (*Config, error) {
	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal config")
	}
	return &config, nil
}

// LoadFromFile loads configuration from a specific file path on top of the
// defaults, ignoring user, project and environment sources
func LoadFromFile(configPath string) (*Config, error) {
	v := viper.New()
	SetDefaults(v)

	if err := mergeFile(v, configPath); err != nil {
		return nil, err
	}

	config, err := LoadWithViper(v)
	if err != nil {
		return nil, errors.Wrapf(err, "config file %s", configPath)
	}
	return config, nil
}

// FilesUsed returns the config files merged by the last load, lowest precedence first
func FilesUsed() []string {
	return append([]string(nil), filesUsed...)
}

// Reset clears the cached configuration (useful for testing)
func Reset() {
	globalConfig = nil
	viperInstance = nil
	explicitConfigPath = ""
	filesUsed = nil
}

// initViper initializes Viper with configuration sources and defaults
func initViper() (*viper.Viper, error) {
	if viperInstance != nil {
		return viperInstance, nil
	}

	v := viper.New()

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	SetDefaults(v)

	files, err := mergeConfigFiles(v)
	if err != nil {
		return nil, err
	}

	filesUsed = files
	viperInstance = v
	return v, nil
}

// findProjectConfig searches for bztriage.toml by walking up from dir.
// Returns the path to the first file found, or empty string if none found.
func findProjectConfig(dir string) string {
	for {
		candidate := filepath.Join(dir, ProjectConfigName)
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

// configPaths lists candidate files, lowest precedence first:
// user < project < explicit.
func configPaths() []string {
	var paths []string

	if homeDir, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(homeDir, ".bztriage", "config.toml"))
	}

	if wd, err := os.Getwd(); err == nil {
		if projectConfig := findProjectConfig(wd); projectConfig != "" {
			paths = append(paths, projectConfig)
		}
	}

	return paths
}

// mergeConfigFiles merges the config layers into v. Files are merged as
// config (not overrides) so environment variables and bound flags still win.
// Missing implicit files are skipped; a missing explicit file is an error.
func mergeConfigFiles(v *viper.Viper) ([]string, error) {
	var used []string

	for _, path := range configPaths() {
		if _, err := os.Stat(path); err != nil {
			continue
		}
		if err := mergeFile(v, path); err != nil {
			return nil, err
		}
		used = append(used, path)
	}

	if explicitConfigPath != "" {
		if err := mergeFile(v, explicitConfigPath); err != nil {
			return nil, err
		}
		used = append(used, explicitConfigPath)
	}

	return used, nil
}

// mergeFile reads one file (format from its extension, TOML when there is
// none) and merges it into v.
func mergeFile(v *viper.Viper, path string) error {
	fileViper := viper.New()
	fileViper.SetConfigFile(path)
	if filepath.Ext(path) == "" {
		fileViper.SetConfigType("toml")
	}

	if err := fileViper.ReadInConfig(); err != nil {
		return errors.WithHint(
			errors.Wrapf(err, "failed to read config file %s", path),
			"config files are TOML by default; .yaml and .json extensions are also accepted",
		)
	}

	if err := v.MergeConfigMap(fileViper.AllSettings()); err != nil {
		return errors.Wrapf(err, "failed to merge config file %s", path)
	}
	return nil
}
