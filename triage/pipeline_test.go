package triage

import (
	"context"
	"io"
	"strings"
	"testing"
	"testing/iotest"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/EricRahm/bz-triage/errors"
)

func scenarioTracker() *fakeTracker {
	return &fakeTracker{
		export: scenarioExport,
		creators: map[int][]string{
			1147674: {},
			1155371: {"erahm@example.com"},
			1157839: {},
		},
	}
}

func scenarioOptions() Options {
	return Options{
		Team:             "MemShrink",
		ShortURLTemplate: shortURL,
		Roster:           Roster{"erahm": "erahm"},
		Fetch:            DefaultFetcherConfig(),
		Now:              func() time.Time { return runDate },
	}
}

func TestGenerate_Scenario(t *testing.T) {
	result, err := NewPipeline(scenarioTracker(), scenarioOptions()).Generate(context.Background())
	require.NoError(t, err)

	assert.Equal(t, scenarioMarkdown, result.Report.Markdown())
	assert.Equal(t, 3, result.Bugs)
	assert.Equal(t, 1, result.Mentions)
	assert.Empty(t, result.Failed)
	assert.Equal(t, runDate, result.Date)

	_, err = uuid.Parse(result.RunID)
	assert.NoError(t, err, "run id must be a UUID")

	md := result.Report.Markdown()
	assert.Equal(t, 1, strings.Count(md, "what do you think?"))
	assert.Less(t, strings.Index(md, "[1147674]"), strings.Index(md, "[1155371]"))
	assert.Less(t, strings.Index(md, "[1155371]"), strings.Index(md, "[1157839]"))
}

func TestGenerate_Deterministic(t *testing.T) {
	fast := scenarioTracker()

	// Same data, but completion order reversed relative to sorted order
	slow := scenarioTracker()
	slow.latency = func(bugID int) time.Duration {
		switch bugID {
		case 1147674:
			return 40 * time.Millisecond
		case 1155371:
			return 20 * time.Millisecond
		default:
			return 0
		}
	}

	first, err := NewPipeline(fast, scenarioOptions()).Generate(context.Background())
	require.NoError(t, err)
	second, err := NewPipeline(fast, scenarioOptions()).Generate(context.Background())
	require.NoError(t, err)
	reordered, err := NewPipeline(slow, scenarioOptions()).Generate(context.Background())
	require.NoError(t, err)

	assert.Equal(t, first.Report.Markdown(), second.Report.Markdown())
	assert.Equal(t, first.Report.Markdown(), reordered.Report.Markdown())
	assert.NotEqual(t, first.RunID, second.RunID)
}

func TestGenerate_DefaultClock(t *testing.T) {
	opts := scenarioOptions()
	opts.Now = nil

	result, err := NewPipeline(scenarioTracker(), opts).Generate(context.Background())
	require.NoError(t, err)
	assert.Contains(t, result.Report.Lines()[0], time.Now().Format(DateLayout)[:4])
}

func TestGenerate_Errors(t *testing.T) {
	tests := []struct {
		name    string
		tracker func() *fakeTracker
		opts    func(*Options)
		check   func(error) bool
		stage   string
	}{
		{
			name: "export unreachable",
			tracker: func() *fakeTracker {
				f := scenarioTracker()
				f.exportErr = errors.MarkNetwork(errors.New("dial tcp: no such host"), "fetch export")
				return f
			},
			check: errors.IsNetworkError,
			stage: "fetch export",
		},
		{
			name: "export body dropped",
			tracker: func() *fakeTracker {
				f := scenarioTracker()
				f.exportBody = io.MultiReader(strings.NewReader(scenarioExport[:120]), iotest.ErrReader(io.ErrUnexpectedEOF))
				return f
			},
			check: errors.IsNetworkError,
			stage: "read export",
		},
		{
			name: "malformed export",
			tracker: func() *fakeTracker {
				f := scenarioTracker()
				f.export = "Bug ID,Product\n1,Core\n"
				return f
			},
			check: errors.IsMalformedInputError,
			stage: "parse export",
		},
		{
			name: "bad row",
			tracker: func() *fakeTracker {
				f := scenarioTracker()
				f.export = strings.Replace(scenarioExport, "1157839,", "11578x9,", 1)
				return f
			},
			check: errors.IsRecordParseError,
			stage: "parse export",
		},
		{
			name: "comment fetch fails",
			tracker: func() *fakeTracker {
				f := scenarioTracker()
				f.failures = map[int]error{1155371: errors.NewResponseParseError("comments response has no entry for bug 1155371")}
				return f
			},
			check: errors.IsResponseParseError,
			stage: "fetch participants",
		},
		{
			name:    "bad short URL template",
			tracker: scenarioTracker,
			opts:    func(o *Options) { o.ShortURLTemplate = "" },
			check:   errors.IsMalformedInputError,
			stage:   "render report",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := scenarioOptions()
			if tt.opts != nil {
				tt.opts(&opts)
			}

			result, err := NewPipeline(tt.tracker(), opts).Generate(context.Background())
			require.Error(t, err)
			assert.Nil(t, result, "no partial report")
			assert.True(t, tt.check(err), "unexpected error kind %q: %v", errors.Kind(err), err)
			assert.Contains(t, err.Error(), tt.stage)
		})
	}
}

func TestGenerate_BestEffort(t *testing.T) {
	tracker := scenarioTracker()
	tracker.failures = map[int]error{
		1155371: errors.MarkNetwork(errors.New("503 Service Unavailable"), "fetch comments for bug %d", 1155371),
	}
	opts := scenarioOptions()
	opts.Fetch.BestEffort = true

	result, err := NewPipeline(tracker, opts).Generate(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []int{1155371}, result.Failed)
	// erahm is still the assignee, so the mention survives the failed fetch
	assert.Equal(t, scenarioMarkdown, result.Report.Markdown())
}

func TestMatch(t *testing.T) {
	issues := []IssueRecord{
		{ID: 1, Reporter: "sphink", Assignee: "nobody"},
		{ID: 2, Reporter: "jld", Assignee: "nobody"},
	}
	commentors := []ParticipantSet{
		CommentorSet([]string{"n.nethercote@gmail.com"}),
		nil,
	}

	entries, mentioned := Match(issues, commentors, DefaultRoster())

	require.Len(t, entries, 2)
	assert.Equal(t, 2, mentioned)
	assert.Equal(t, []string{"njn"}, entries[0].Mentions)
	assert.Equal(t, []string{"n.nethercote", "nobody", "sphink"}, entries[0].Participants.Sorted())
	assert.Equal(t, []string{"jld"}, entries[1].Mentions)
}
