package commands

import (
	"fmt"

	"github.com/pelletier/go-toml/v2"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/EricRahm/bz-triage/config"
	"github.com/EricRahm/bz-triage/display"
	"github.com/EricRahm/bz-triage/errors"
)

// ConfigCmd inspects the effective configuration
var ConfigCmd = NewConfigCmd()

// NewConfigCmd builds the config command and its subcommands
func NewConfigCmd() *cobra.Command {
	var configFile string

	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect bztriage configuration",
		Long: `Display and check the bztriage configuration.

Configuration sources (in order of precedence):
1. Command line flags
2. Environment variables (BZTRIAGE_* prefix, e.g. BZTRIAGE_FETCH_WORKERS)
3. --config file
4. Project config (bztriage.toml in the working directory or a parent)
5. User config (~/.bztriage/config.toml)
6. Default values

Examples:
  bztriage config show                 # Show configuration as TOML
  bztriage config show --format json   # Show configuration as JSON
  bztriage config get fetch.workers    # Get one value
  bztriage config validate             # Check the configuration`,
	}
	cmd.PersistentFlags().StringVar(&configFile, "config", "", "Config file merged above user and project config")

	var format string
	show := &cobra.Command{
		Use:   "show",
		Short: "Show the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigShow(cmd, configFile, format)
		},
	}
	show.Flags().StringVar(&format, "format", "toml", "Output format: toml, json, yaml")

	get := &cobra.Command{
		Use:   "get <key>",
		Short: "Get a configuration value",
		Long:  "Get a configuration value using dot notation (e.g. fetch.workers, output.path)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigGet(cmd, configFile, args[0])
		},
	}

	validate := &cobra.Command{
		Use:   "validate",
		Short: "Validate the configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigValidate(cmd, configFile)
		},
	}

	cmd.AddCommand(show, get, validate)
	return cmd
}

func runConfigShow(cmd *cobra.Command, configFile, format string) error {
	_, v, err := loadConfig(configFile, cmd.Flags(), nil)
	if err != nil {
		return err
	}

	// AllSettings keeps the snake_case keys users write in their files
	settings := v.AllSettings()
	out := cmd.OutOrStdout()

	switch format {
	case "json":
		if err := display.OutputJSON(out, settings); err != nil {
			return errors.Wrap(err, "failed to marshal config to JSON")
		}

	case "yaml":
		data, err := yaml.Marshal(settings)
		if err != nil {
			return errors.Wrap(err, "failed to marshal config to YAML")
		}
		fmt.Fprintf(out, "# bztriage configuration\n%s", data)

	case "toml":
		data, err := toml.Marshal(settings)
		if err != nil {
			return errors.Wrap(err, "failed to marshal config to TOML")
		}
		fmt.Fprintf(out, "# bztriage configuration\n%s", data)

	default:
		return errors.Newf("unsupported format: %s (supported: toml, json, yaml)", format)
	}

	return nil
}

func runConfigGet(cmd *cobra.Command, configFile, key string) error {
	_, v, err := loadConfig(configFile, cmd.Flags(), nil)
	if err != nil {
		return err
	}

	if !v.IsSet(key) {
		return errors.WithHint(
			errors.Newf("configuration key %q not found", key),
			"run 'bztriage config show' to list keys",
		)
	}
	fmt.Fprintln(cmd.OutOrStdout(), v.Get(key))
	return nil
}

func runConfigValidate(cmd *cobra.Command, configFile string) error {
	cfg, _, err := loadConfig(configFile, cmd.Flags(), nil)
	if err != nil {
		return err
	}

	if err := cfg.Validate(); err != nil {
		return errors.Wrap(err, "configuration validation failed")
	}
	if _, err := cfg.Roster(); err != nil {
		return errors.Wrap(err, "configuration validation failed")
	}

	out := cmd.OutOrStdout()
	pterm.Success.WithWriter(out).Println("Configuration is valid")
	for _, path := range config.FilesUsed() {
		fmt.Fprintf(out, "  %s %s\n", pterm.Gray("loaded"), path)
	}
	return nil
}
