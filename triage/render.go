package triage

import (
	"fmt"
	"strings"
	"time"

	"github.com/EricRahm/bz-triage/errors"
)

// DateLayout is how the run date appears in the report title
const DateLayout = "2006-01-02"

// Entry is one bug with its participants and matched roster names
type Entry struct {
	Issue        IssueRecord
	Participants ParticipantSet
	Mentions     []string
}

// RenderInput is everything the report is built from
type RenderInput struct {
	Date      time.Time
	Team      string
	TriageURL string // omitted when empty
	Preamble  string // omitted when empty
	Entries   []Entry
}

// Report is the rendered triage document, one element per output line
type Report struct {
	lines []string
}

// Lines returns a copy of the report lines
func (r *Report) Lines() []string {
	return append([]string(nil), r.lines...)
}

// Markdown returns the report text
func (r *Report) Markdown() string {
	return strings.Join(r.lines, "\n")
}

// Render builds the triage report. Entries are rendered in the order given.
func Render(in RenderInput) (*Report, error) {
	r := &Report{}

	r.add(fmt.Sprintf("**%s triage:** %s", in.Team, in.Date.Format(DateLayout)))

	if in.TriageURL != "" {
		r.add("", fmt.Sprintf("**Triage URL:** [%s](%s)", in.TriageURL, in.TriageURL), "")
	}

	if in.Preamble != "" {
		r.add(in.Preamble)
	}

	r.add(fmt.Sprintf("%d bugs to triage", len(in.Entries)), "")

	for _, e := range in.Entries {
		issue := e.Issue
		if issue.ShortURL == "" {
			return nil, errors.NewMalformedInputError("bug %d has no short URL", issue.ID)
		}

		r.add(
			fmt.Sprintf("-   [%d](%s) - %s :: %s - %s", issue.ID, issue.ShortURL, issue.Product, issue.Component, issue.Summary),
			"    ",
			"    Votes:",
			"",
		)
		if len(e.Mentions) > 0 {
			r.add(fmt.Sprintf("    %s, what do you think?", strings.Join(e.Mentions, ", ")), "")
		}
		r.add("")
	}

	return r, nil
}

func (r *Report) add(lines ...string) {
	r.lines = append(r.lines, lines...)
}
