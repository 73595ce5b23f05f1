package config

import (
	"github.com/spf13/viper"
)

// DefaultExportURL is the MemShrink triage query: open bugs whose whiteboard
// carries an unprioritized [MemShrink] tag.
const DefaultExportURL = "https://bugzilla.mozilla.org/buglist.cgi?bug_status=UNCONFIRMED&" +
	"bug_status=NEW&bug_status=ASSIGNED&bug_status=REOPENED&" +
	"columnlist=product%2Ccomponent%2Creporter%2Cassigned_to%2Cbug_status%2Cresolution%2Cshort_desc%2Cchangeddate&" +
	"query_format=advanced&resolution=---&resolution=DUPLICATE&" +
	"status_whiteboard=MemShrink%5B%5E%3A%5D&" +
	"status_whiteboard_type=regexp&ctype=csv&human=1"

// DefaultPreamble is the agenda and voting legend shown before the bug list
const DefaultPreamble = `### Agenda ###

_(Add name and topic to discuss here)_

### Bug List ###

Vote for:

- **P1** High importance, will follow up periodically
- **P2** Important issue, possibly already being worked on
- **P3** Real issue, someone will get to it if they have time
- **moreinfo** We need logs, or clarifying information
- **invalid** Misclassified, remove the MemShrink tag
`

// SetDefaults configures default values for all configuration options
func SetDefaults(v *viper.Viper) {
	// Tracker defaults
	v.SetDefault("tracker.export_url", DefaultExportURL)
	v.SetDefault("tracker.comment_url_template", "https://bugzilla.mozilla.org/rest/bug/{id}/comment?include_fields=creator")
	v.SetDefault("tracker.short_url_template", "https://bugzil.la/{id}")
	v.SetDefault("tracker.timeout_seconds", 30)
	v.SetDefault("tracker.max_requests_per_second", 0.0)
	v.SetDefault("tracker.allow_private_hosts", false)

	// Fetch pool defaults
	v.SetDefault("fetch.workers", 12)
	v.SetDefault("fetch.best_effort", false)

	// Report defaults
	v.SetDefault("report.team", "MemShrink")
	v.SetDefault("report.triage_url", "http://mzl.la/1yYeaGL")
	v.SetDefault("report.preamble", DefaultPreamble)
	v.SetDefault("report.roster_file", "")

	// Output defaults
	v.SetDefault("output.path", "triage.html")
	v.SetDefault("output.format", FormatHTML)
}
