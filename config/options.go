package config

import (
	"time"

	"github.com/EricRahm/bz-triage/bugzilla"
	"github.com/EricRahm/bz-triage/triage"
)

// Roster returns the roster named by report.roster_file, or the built-in
// MemShrink roster when none is set
func (c *Config) Roster() (triage.Roster, error) {
	if c.Report.RosterFile == "" {
		return triage.DefaultRoster(), nil
	}
	return triage.LoadRosterFile(c.Report.RosterFile)
}

// TriageOptions converts the configuration into pipeline options
func (c *Config) TriageOptions(roster triage.Roster) triage.Options {
	return triage.Options{
		Team:             c.Report.Team,
		TriageURL:        c.Report.TriageURL,
		Preamble:         c.Report.Preamble,
		ShortURLTemplate: c.Tracker.ShortURLTemplate,
		Roster:           roster,
		Fetch: triage.FetcherConfig{
			Workers:    c.Fetch.Workers,
			BestEffort: c.Fetch.BestEffort,
		},
	}
}

// ClientOptions converts the tracker section into Bugzilla client options
func (c *Config) ClientOptions(userAgent string) bugzilla.Options {
	return bugzilla.Options{
		ExportURL:          c.Tracker.ExportURL,
		CommentURLTemplate: c.Tracker.CommentURLTemplate,
		Timeout:            time.Duration(c.Tracker.TimeoutSeconds) * time.Second,
		RequestsPerSecond:  c.Tracker.MaxRequestsPerSecond,
		AllowPrivateHosts:  c.Tracker.AllowPrivateHosts,
		UserAgent:          userAgent,
	}
}
