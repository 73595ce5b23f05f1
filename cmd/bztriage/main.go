package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/EricRahm/bz-triage/cmd/bztriage/commands"
	"github.com/EricRahm/bz-triage/errors"
	"github.com/EricRahm/bz-triage/logger"
)

var (
	verbosity int
	logJSON   bool
)

var rootCmd = &cobra.Command{
	Use:   "bztriage",
	Short: "Bugzilla triage report generator",
	Long: `bztriage builds the agenda for a team's bug triage meeting.

It downloads a Bugzilla saved search as CSV, looks up who commented on each
bug, and writes a markdown (or HTML) report that asks roster members for
their opinion on the bugs they are involved in.

Available commands:
  generate - Generate the triage report
  config   - Inspect configuration
  roster   - Show the team roster
  version  - Show version information

Examples:
  bztriage generate                       # Write triage.html
  bztriage generate --stdout              # Print the markdown report
  bztriage -v generate --best-effort      # Log progress, tolerate failed bugs
  bztriage config show --format yaml      # Show effective configuration`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := logger.Initialize(logJSON, verbosity); err != nil {
			return errors.Wrap(err, "failed to initialize logger")
		}
		logger.Debugf("Log level: %s", logger.LevelName(verbosity))
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().CountVarP(&verbosity, "verbose", "v", "Increase log verbosity (-v info, -vv debug)")
	rootCmd.PersistentFlags().BoolVar(&logJSON, "log-json", false, "Write logs to stderr as JSON")

	rootCmd.AddCommand(commands.GenerateCmd)
	rootCmd.AddCommand(commands.ConfigCmd)
	rootCmd.AddCommand(commands.RosterCmd)
	rootCmd.AddCommand(commands.VersionCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	logger.Cleanup()

	if err != nil {
		commands.PrintError(os.Stderr, err)
		os.Exit(1)
	}
}
