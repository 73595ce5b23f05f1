package config

import (
	"net/url"
	"strings"

	"github.com/EricRahm/bz-triage/errors"
)

// Validate checks that the configuration is valid
func (c *Config) Validate() error {
	if err := validateURL("tracker.export_url", c.Tracker.ExportURL); err != nil {
		return err
	}

	// Templates: {id} is required, a template without it would fetch the same URL for every bug
	if !strings.Contains(c.Tracker.CommentURLTemplate, IDPlaceholder) {
		return errors.Newf("tracker.comment_url_template must contain %s, got %q", IDPlaceholder, c.Tracker.CommentURLTemplate)
	}
	if err := validateURL("tracker.comment_url_template", strings.ReplaceAll(c.Tracker.CommentURLTemplate, IDPlaceholder, "1")); err != nil {
		return err
	}
	if !strings.Contains(c.Tracker.ShortURLTemplate, IDPlaceholder) {
		return errors.Newf("tracker.short_url_template must contain %s, got %q", IDPlaceholder, c.Tracker.ShortURLTemplate)
	}

	// Timeout: 0 = no timeout, negative = invalid
	if c.Tracker.TimeoutSeconds < 0 {
		return errors.Newf("tracker.timeout_seconds must be >= 0, got %d", c.Tracker.TimeoutSeconds)
	}

	// Rate: 0 = unlimited, negative = invalid
	if c.Tracker.MaxRequestsPerSecond < 0 {
		return errors.Newf("tracker.max_requests_per_second must be >= 0, got %g", c.Tracker.MaxRequestsPerSecond)
	}

	if c.Fetch.Workers < 1 {
		return errors.Newf("fetch.workers must be >= 1, got %d", c.Fetch.Workers)
	}

	if strings.TrimSpace(c.Report.Team) == "" {
		return errors.New("report.team cannot be empty")
	}

	switch c.Output.Format {
	case FormatMarkdown, FormatHTML:
	default:
		return errors.Newf("output.format must be %q or %q, got %q", FormatMarkdown, FormatHTML, c.Output.Format)
	}
	if c.Output.Path == "" {
		return errors.New("output.path cannot be empty")
	}

	return nil
}

func validateURL(key, raw string) error {
	if raw == "" {
		return errors.Newf("%s cannot be empty", key)
	}
	u, err := url.Parse(raw)
	if err != nil {
		return errors.Wrapf(err, "%s is not a valid URL", key)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return errors.Newf("%s must be an http or https URL, got %q", key, raw)
	}
	if u.Host == "" {
		return errors.Newf("%s is missing a host, got %q", key, raw)
	}
	return nil
}
