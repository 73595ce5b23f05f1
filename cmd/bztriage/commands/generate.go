package commands

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/EricRahm/bz-triage/bugzilla"
	"github.com/EricRahm/bz-triage/config"
	"github.com/EricRahm/bz-triage/display"
	"github.com/EricRahm/bz-triage/errors"
	"github.com/EricRahm/bz-triage/logger"
	"github.com/EricRahm/bz-triage/markdown"
	"github.com/EricRahm/bz-triage/triage"
	"github.com/EricRahm/bz-triage/version"
)

// GenerateCmd runs a triage report
var GenerateCmd = NewGenerateCmd(nil)

type generateOptions struct {
	configFile string
	date       string
	stdout     bool

	// tracker overrides the Bugzilla client; tests inject a fake
	tracker triage.Tracker
}

// generateFlags maps config keys to the generate flags that override them
var generateFlags = map[string]string{
	"output.path":        "output",
	"output.format":      "format",
	"fetch.workers":      "workers",
	"fetch.best_effort":  "best-effort",
	"report.roster_file": "roster-file",
	"report.team":        "team",
}

// runSummary is printed by generate --json
type runSummary struct {
	RunID      string `json:"run_id"`
	Date       string `json:"date"`
	Bugs       int    `json:"bugs"`
	Mentions   int    `json:"mentions"`
	Failed     []int  `json:"failed"`
	DurationMS int64  `json:"duration_ms"`
	Format     string `json:"format,omitempty"`
	Output     string `json:"output,omitempty"`
}

// NewGenerateCmd builds the generate command. A non-nil tracker replaces the
// Bugzilla client.
func NewGenerateCmd(tracker triage.Tracker) *cobra.Command {
	opts := &generateOptions{tracker: tracker}

	cmd := &cobra.Command{
		Use:     "generate",
		Aliases: []string{"gen"},
		Short:   "Generate the triage report",
		Long: `Download the Bugzilla export, fetch every bug's commentors and write
the triage report.

The report lists bugs by ID. A bug whose commentors, assignee or reporter
include a roster member gets a "what do you think?" line addressed to them.
Nothing is written unless every bug was fetched (see --best-effort).

Examples:
  bztriage generate                          # write triage.html
  bztriage generate -o triage.md --format markdown
  bztriage generate --stdout                 # print markdown
  bztriage generate --date 2015-04-24 --json # fixed date, JSON summary`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGenerate(cmd, opts)
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.configFile, "config", "", "Config file merged above user and project config")
	f.StringP("output", "o", "", "Output file (default from output.path)")
	f.String("format", "", "Output format: markdown or html")
	f.Int("workers", 0, "Concurrent comment requests")
	f.Bool("best-effort", false, "Render bugs whose comments failed to load with no commentors")
	f.String("roster-file", "", "TOML or YAML roster: identifier = display name")
	f.String("team", "", "Team name in the report title")
	f.StringVar(&opts.date, "date", "", "Report date as YYYY-MM-DD (default today)")
	f.BoolVar(&opts.stdout, "stdout", false, "Print the markdown report instead of writing a file")
	f.BoolP("json", "j", false, "Print a JSON run summary")

	return cmd
}

func runGenerate(cmd *cobra.Command, opts *generateOptions) error {
	jsonOutput := display.ShouldOutputJSON(cmd)
	if opts.stdout && jsonOutput {
		// The report owns stdout
		return errors.New("--stdout and --json cannot be combined")
	}

	cfg, _, err := loadConfig(opts.configFile, cmd.Flags(), generateFlags)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return errors.Wrap(err, "invalid configuration")
	}

	roster, err := cfg.Roster()
	if err != nil {
		return err
	}

	triageOpts := cfg.TriageOptions(roster)
	if opts.date != "" {
		date, err := time.Parse(triage.DateLayout, opts.date)
		if err != nil {
			return errors.WithHint(errors.Wrapf(err, "invalid --date %q", opts.date), "use YYYY-MM-DD")
		}
		triageOpts.Now = func() time.Time { return date }
	}

	tracker := opts.tracker
	if tracker == nil {
		tracker = bugzilla.NewClient(cfg.ClientOptions(version.Get().UserAgent()))
	}

	logger.Infow("Generating triage report",
		logger.FieldWorkers, triageOpts.Fetch.Workers,
		logger.FieldFormat, cfg.Output.Format)

	result, err := triage.NewPipeline(tracker, triageOpts).Generate(cmd.Context())
	if err != nil {
		return err
	}

	summary := runSummary{
		RunID:      result.RunID,
		Date:       result.Date.Format(triage.DateLayout),
		Bugs:       result.Bugs,
		Mentions:   result.Mentions,
		Failed:     result.Failed,
		DurationMS: result.Duration.Milliseconds(),
	}
	if summary.Failed == nil {
		summary.Failed = []int{}
	}

	out := cmd.OutOrStdout()
	status := cmd.ErrOrStderr()

	if opts.stdout {
		_, err := io.WriteString(out, result.Report.Markdown())
		return err
	}

	content, err := renderOutput(cfg, result)
	if err != nil {
		return err
	}
	if err := writeFileAtomic(cfg.Output.Path, []byte(content)); err != nil {
		return err
	}
	summary.Format = cfg.Output.Format
	summary.Output = cfg.Output.Path

	if jsonOutput {
		return display.OutputJSON(out, summary)
	}

	pterm.Success.WithWriter(status).Printf("Wrote %s (%s bugs, %s with mentions)\n",
		pterm.LightCyan(cfg.Output.Path),
		pterm.Green(result.Bugs),
		pterm.Green(result.Mentions))
	if len(result.Failed) > 0 {
		pterm.Warning.WithWriter(status).Printf("Comments unavailable for %d bugs: %v\n", len(result.Failed), result.Failed)
	}
	return nil
}

// renderOutput converts the report into the configured output format
func renderOutput(cfg *config.Config, result *triage.Result) (string, error) {
	md := result.Report.Markdown()
	switch cfg.Output.Format {
	case config.FormatMarkdown:
		return md, nil
	case config.FormatHTML:
		title := fmt.Sprintf("%s triage: %s", cfg.Report.Team, result.Date.Format(triage.DateLayout))
		return markdown.Document(title, md)
	default:
		return "", errors.Newf("unsupported output format %q", cfg.Output.Format)
	}
}

// writeFileAtomic replaces path with data via a temp file in the same
// directory, so readers never see a partial report.
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, config.DefaultDirPermissions); err != nil {
		return errors.Wrapf(err, "create output directory %s", dir)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return errors.Wrap(err, "create temp file")
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op after a successful rename

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return errors.Wrapf(err, "write %s", tmpName)
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrapf(err, "close %s", tmpName)
	}
	if err := os.Chmod(tmpName, config.DefaultFilePermissions); err != nil {
		return errors.Wrapf(err, "chmod %s", tmpName)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return errors.Wrapf(err, "rename to %s", path)
	}

	logger.Debugw("Report written", logger.FieldFile, path, logger.FieldSize, len(data))
	return nil
}
