// Package commands implements the bztriage subcommands
package commands

import (
	"fmt"
	"io"

	"github.com/pterm/pterm"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/EricRahm/bz-triage/config"
	"github.com/EricRahm/bz-triage/errors"
)

// loadConfig loads the configuration cascade with an optional explicit file
// on top and binds the given flags (config key -> flag name) above the
// environment. Only flags the user actually set override lower layers.
func loadConfig(configFile string, flags *pflag.FlagSet, bindings map[string]string) (*config.Config, *viper.Viper, error) {
	config.Reset()
	if configFile != "" {
		config.SetConfigFile(configFile)
	}

	v, err := config.GetViper()
	if err != nil {
		return nil, nil, errors.Wrap(err, "load config")
	}

	for key, name := range bindings {
		flag := flags.Lookup(name)
		if flag == nil {
			return nil, nil, errors.Newf("unknown flag %q bound to %s", name, key)
		}
		if err := v.BindPFlag(key, flag); err != nil {
			return nil, nil, errors.Wrapf(err, "bind --%s", name)
		}
	}

	cfg, err := config.LoadWithViper(v)
	if err != nil {
		return nil, nil, err
	}
	return cfg, v, nil
}

// PrintError writes err with any hints and details attached to it
func PrintError(w io.Writer, err error) {
	pterm.Error.WithWriter(w).Println(err.Error())

	if details := errors.FlattenDetails(err); details != "" {
		fmt.Fprintf(w, "  %s %s\n", pterm.Gray("detail:"), details)
	}
	if hints := errors.FlattenHints(err); hints != "" {
		fmt.Fprintf(w, "  %s %s\n", pterm.Yellow("hint:"), hints)
	}
	if kind := errors.Kind(err); kind != "" && kind != "unknown" {
		fmt.Fprintf(w, "  %s %s\n", pterm.Gray("kind:"), kind)
	}
}
