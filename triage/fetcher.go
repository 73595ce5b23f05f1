package triage

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/EricRahm/bz-triage/errors"
	"github.com/EricRahm/bz-triage/logger"
)

// CommentSource returns the raw creator identifier of every comment on a bug
type CommentSource interface {
	CommentCreators(ctx context.Context, bugID int) ([]string, error)
}

// FetcherConfig configures the comment fetch pool
type FetcherConfig struct {
	Workers    int  // Maximum concurrent requests (default: 12)
	BestEffort bool // Substitute an empty set for a failed bug instead of failing the run
}

// DefaultFetcherConfig returns sensible defaults
func DefaultFetcherConfig() FetcherConfig {
	return FetcherConfig{
		Workers:    12,
		BestEffort: false,
	}
}

// FetchResult holds one commentor set per input issue, in input order
type FetchResult struct {
	Commentors []ParticipantSet
	Failed     []int // bug IDs substituted with an empty set (best-effort only)
}

// Fetcher resolves the commentors of many bugs through a bounded pool
type Fetcher struct {
	source CommentSource
	config FetcherConfig
	logger *zap.SugaredLogger
}

// NewFetcher creates a fetcher. Workers < 1 falls back to the default.
func NewFetcher(source CommentSource, config FetcherConfig) *Fetcher {
	if config.Workers < 1 {
		config.Workers = DefaultFetcherConfig().Workers
	}
	return &Fetcher{
		source: source,
		config: config,
		logger: logger.ComponentLogger("triage.fetch"),
	}
}

// Fetch queries every issue's comments with at most config.Workers requests
// in flight. Each job writes only its own slot, so results line up with
// issues regardless of completion order.
//
// Fail-fast: the first error cancels the remaining jobs and is returned.
// With BestEffort the failing bug gets an empty set and a warning instead,
// unless ctx itself was cancelled.
func (f *Fetcher) Fetch(ctx context.Context, issues []IssueRecord) (*FetchResult, error) {
	log := f.logger.With(logger.FieldsFromContext(ctx)...)
	start := time.Now()

	commentors := make([]ParticipantSet, len(issues))
	failed := make([]bool, len(issues))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(f.config.Workers)

	for i, issue := range issues {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			creators, err := f.source.CommentCreators(gctx, issue.ID)
			if err != nil {
				err = errors.Wrapf(err, "fetch participants for bug %d", issue.ID)
				if f.config.BestEffort && ctx.Err() == nil {
					log.Warnw("Comment fetch failed, continuing without commentors",
						logger.FieldBugID, issue.ID,
						logger.FieldErrorType, errors.Kind(err),
						logger.FieldError, err.Error())
					commentors[i] = NewParticipantSet()
					failed[i] = true
					return nil
				}
				return err
			}

			commentors[i] = CommentorSet(creators)
			log.Debugw("Fetched commentors",
				logger.FieldBugID, issue.ID,
				logger.FieldCount, len(commentors[i]))
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	result := &FetchResult{Commentors: commentors}
	for i, bad := range failed {
		if bad {
			result.Failed = append(result.Failed, issues[i].ID)
		}
	}

	log.Infow("Fetched commentors for all bugs",
		logger.FieldCount, len(issues),
		logger.FieldWorkers, f.config.Workers,
		logger.FieldDurationMS, time.Since(start).Milliseconds())
	return result, nil
}
