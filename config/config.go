// Package config loads bz-triage settings from defaults, TOML files,
// BZTRIAGE_* environment variables and CLI flags using viper.
package config

// Config represents the bz-triage configuration
type Config struct {
	Tracker TrackerConfig `mapstructure:"tracker"`
	Fetch   FetchConfig   `mapstructure:"fetch"`
	Report  ReportConfig  `mapstructure:"report"`
	Output  OutputConfig  `mapstructure:"output"`
}

// TrackerConfig describes the Bugzilla instance and how to reach it
type TrackerConfig struct {
	ExportURL            string  `mapstructure:"export_url"`              // buglist.cgi query with ctype=csv
	CommentURLTemplate   string  `mapstructure:"comment_url_template"`    // must contain {id}
	ShortURLTemplate     string  `mapstructure:"short_url_template"`      // must contain {id}
	TimeoutSeconds       int     `mapstructure:"timeout_seconds"`         // per request, 0 = no timeout
	MaxRequestsPerSecond float64 `mapstructure:"max_requests_per_second"` // 0 = unlimited
	AllowPrivateHosts    bool    `mapstructure:"allow_private_hosts"`     // self-hosted Bugzilla on a private network
}

// FetchConfig configures the comment fetch pool
type FetchConfig struct {
	Workers    int  `mapstructure:"workers"`     // concurrent comment requests (default: 12)
	BestEffort bool `mapstructure:"best_effort"` // substitute no participants for a failed bug instead of aborting
}

// ReportConfig configures the rendered report
type ReportConfig struct {
	Team       string `mapstructure:"team"`        // title prefix, e.g. "MemShrink"
	TriageURL  string `mapstructure:"triage_url"`  // saved search to follow along, empty to omit
	Preamble   string `mapstructure:"preamble"`    // markdown inserted before the bug list, empty to omit
	RosterFile string `mapstructure:"roster_file"` // TOML or YAML identifier -> display name, empty for built-in
}

// OutputConfig configures where the report is written
type OutputConfig struct {
	Path   string `mapstructure:"path"`
	Format string `mapstructure:"format"` // markdown or html
}

// Output formats
const (
	FormatMarkdown = "markdown"
	FormatHTML     = "html"
)

// IDPlaceholder is replaced by the bug ID in URL templates
const IDPlaceholder = "{id}"

// File and directory permissions
const (
	DefaultDirPermissions  = 0755
	DefaultFilePermissions = 0644
)
