// Package triage turns a Bugzilla export into a markdown triage report:
// ingest the CSV, fetch each bug's commentors through a bounded pool,
// match participants against the team roster, and render.
package triage

import (
	"bytes"
	"context"
	"io"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/EricRahm/bz-triage/errors"
	"github.com/EricRahm/bz-triage/logger"
)

// ExportSource returns the bulk CSV export. The caller closes the reader.
type ExportSource interface {
	FetchExport(ctx context.Context) (io.ReadCloser, error)
}

// Tracker is the remote bug tracker as the pipeline sees it
type Tracker interface {
	ExportSource
	CommentSource
}

// Options is the complete input of a run besides the tracker itself
type Options struct {
	Team             string
	TriageURL        string
	Preamble         string
	ShortURLTemplate string
	Roster           Roster
	Fetch            FetcherConfig
	Now              func() time.Time // run date; defaults to time.Now
}

// Result describes a finished run
type Result struct {
	RunID    string
	Date     time.Time
	Report   *Report
	Bugs     int
	Mentions int   // bugs with at least one roster member involved
	Failed   []int // bugs rendered without commentors (best-effort)
	Duration time.Duration
}

// Pipeline wires ingestion, fetching, matching and rendering together
type Pipeline struct {
	tracker Tracker
	opts    Options
	logger  *zap.SugaredLogger
}

// NewPipeline creates a pipeline over tracker
func NewPipeline(tracker Tracker, opts Options) *Pipeline {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Pipeline{
		tracker: tracker,
		opts:    opts,
		logger:  logger.ComponentLogger("triage"),
	}
}

// Generate runs the whole pipeline. Any error aborts the run; no partial
// report is returned.
func (p *Pipeline) Generate(ctx context.Context) (*Result, error) {
	start := time.Now()
	runID := uuid.NewString()
	ctx = logger.WithRunID(ctx, runID)
	log := p.logger.With(logger.FieldRunID, runID)

	issues, err := p.ingest(ctx)
	if err != nil {
		return nil, err
	}
	log.Infow("Export parsed", logger.FieldStage, "ingest", logger.FieldCount, len(issues))

	fetched, err := NewFetcher(p.tracker, p.opts.Fetch).Fetch(ctx, issues)
	if err != nil {
		return nil, errors.Wrap(err, "fetch participants")
	}

	entries, mentioned := Match(issues, fetched.Commentors, p.opts.Roster)

	date := p.opts.Now()
	report, err := Render(RenderInput{
		Date:      date,
		Team:      p.opts.Team,
		TriageURL: p.opts.TriageURL,
		Preamble:  p.opts.Preamble,
		Entries:   entries,
	})
	if err != nil {
		return nil, errors.Wrap(err, "render report")
	}

	result := &Result{
		RunID:    runID,
		Date:     date,
		Report:   report,
		Bugs:     len(issues),
		Mentions: mentioned,
		Failed:   fetched.Failed,
		Duration: time.Since(start),
	}
	log.Infow("Report generated",
		logger.FieldCount, result.Bugs,
		logger.FieldMentions, result.Mentions,
		logger.FieldDurationMS, result.Duration.Milliseconds())
	return result, nil
}

func (p *Pipeline) ingest(ctx context.Context) ([]IssueRecord, error) {
	body, err := p.tracker.FetchExport(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "fetch export")
	}
	defer body.Close()

	// Buffer first so a dropped connection is a network error, not a bad row
	data, err := io.ReadAll(body)
	if err != nil {
		return nil, errors.MarkNetwork(err, "read export")
	}

	issues, err := ParseExport(bytes.NewReader(data), p.opts.ShortURLTemplate)
	if err != nil {
		return nil, errors.Wrap(err, "parse export")
	}
	return issues, nil
}

// Match merges each bug's commentors with its assignee and reporter and
// resolves roster mentions. commentors[i] belongs to issues[i]. Returns the
// entries and how many of them mention someone.
func Match(issues []IssueRecord, commentors []ParticipantSet, roster Roster) ([]Entry, int) {
	entries := make([]Entry, len(issues))
	mentioned := 0
	for i, issue := range issues {
		participants := commentors[i].WithIssue(issue)
		entries[i] = Entry{
			Issue:        issue,
			Participants: participants,
			Mentions:     roster.Match(participants),
		}
		if len(entries[i].Mentions) > 0 {
			mentioned++
		}
	}
	return entries, mentioned
}
