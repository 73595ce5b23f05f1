package commands

import (
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/EricRahm/bz-triage/errors"
)

// RosterCmd prints the effective roster
var RosterCmd = NewRosterCmd()

// NewRosterCmd builds the roster command
func NewRosterCmd() *cobra.Command {
	var configFile string

	cmd := &cobra.Command{
		Use:   "roster",
		Short: "Show the team roster used for mentions",
		Long: `Print the roster: the Bugzilla identifiers that trigger a mention and
the display name each one is addressed by. Identifiers match bare
commentor names (the part before '@') and assignee/reporter fields
exactly.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := loadConfig(configFile, cmd.Flags(), map[string]string{
				"report.roster_file": "roster-file",
			})
			if err != nil {
				return err
			}

			roster, err := cfg.Roster()
			if err != nil {
				return err
			}
			if err := roster.Validate(); err != nil {
				return errors.Wrap(err, "invalid roster")
			}

			data := pterm.TableData{{"Identifier", "Display name"}}
			for _, id := range roster.Keys() {
				data = append(data, []string{id, roster[id]})
			}
			return pterm.DefaultTable.
				WithHasHeader().
				WithData(data).
				WithWriter(cmd.OutOrStdout()).
				Render()
		},
	}

	cmd.Flags().StringVar(&configFile, "config", "", "Config file merged above user and project config")
	cmd.Flags().String("roster-file", "", "TOML or YAML roster: identifier = display name")
	return cmd
}
