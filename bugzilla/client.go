// Package bugzilla talks to the two Bugzilla endpoints a triage run needs:
// the buglist.cgi CSV export and the REST comment listing.
package bugzilla

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/EricRahm/bz-triage/errors"
	"github.com/EricRahm/bz-triage/internal/httpclient"
	"github.com/EricRahm/bz-triage/internal/util"
	"github.com/EricRahm/bz-triage/logger"
	"github.com/EricRahm/bz-triage/triage"
)

// maxErrorBody bounds how much of a failed response is read for its message
const maxErrorBody = 4 << 10

// Options configures a Client
type Options struct {
	ExportURL          string
	CommentURLTemplate string // {id} is replaced by the bug ID
	Timeout            time.Duration
	RequestsPerSecond  float64 // 0 = unlimited
	AllowPrivateHosts  bool
	UserAgent          string

	// HTTPClient overrides the transport, e.g. httpclient.WrapClient in tests.
	// Timeout, AllowPrivateHosts, RequestsPerSecond and UserAgent then apply
	// only as far as the given client is configured for them.
	HTTPClient *httpclient.SaferClient
}

// Client fetches exports and comments from one Bugzilla instance
type Client struct {
	http            *httpclient.SaferClient
	exportURL       string
	commentTemplate string
	logger          *zap.SugaredLogger
}

var _ triage.Tracker = (*Client)(nil)

// NewClient creates a client
func NewClient(opts Options) *Client {
	hc := opts.HTTPClient
	if hc == nil {
		hc = httpclient.NewSaferClientWithOptions(opts.Timeout, httpclient.SaferClientOptions{
			BlockPrivateIP:    util.Ptr(!opts.AllowPrivateHosts),
			RequestsPerSecond: opts.RequestsPerSecond,
			UserAgent:         opts.UserAgent,
		})
	}

	return &Client{
		http:            hc,
		exportURL:       opts.ExportURL,
		commentTemplate: opts.CommentURLTemplate,
		logger:          logger.ComponentLogger("bugzilla"),
	}
}

// FetchExport downloads the CSV export. The caller closes the body.
func (c *Client) FetchExport(ctx context.Context) (io.ReadCloser, error) {
	resp, err := c.get(ctx, c.exportURL)
	if err != nil {
		return nil, errors.MarkNetwork(err, "fetch export")
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		return nil, statusError(resp, "fetch export")
	}
	return resp.Body, nil
}

// commentsResponse is the subset of GET /rest/bug/{id}/comment we read.
// Pointers distinguish a missing key from an empty value.
type commentsResponse struct {
	Bugs map[string]struct {
		Comments *[]struct {
			Creator *string `json:"creator"`
		} `json:"comments"`
	} `json:"bugs"`
}

// CommentCreators returns the creator of every comment on bugID, in comment order
func (c *Client) CommentCreators(ctx context.Context, bugID int) ([]string, error) {
	url := triage.ExpandURL(c.commentTemplate, bugID)

	resp, err := c.get(ctx, url)
	if err != nil {
		return nil, errors.MarkNetwork(err, "fetch comments for bug %d", bugID)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, statusError(resp, fmt.Sprintf("fetch comments for bug %d", bugID))
	}

	// Read before decoding so a truncated body is not reported as bad JSON
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.MarkNetwork(err, "read comments for bug %d", bugID)
	}

	var body commentsResponse
	if err := json.Unmarshal(data, &body); err != nil {
		return nil, errors.Mark(errors.Wrapf(err, "decode comments for bug %d", bugID), errors.ErrResponseParse)
	}

	bug, ok := body.Bugs[strconv.Itoa(bugID)]
	if !ok {
		return nil, errors.NewResponseParseError("comments response has no entry for bug %d", bugID)
	}
	if bug.Comments == nil {
		return nil, errors.NewResponseParseError("comments response for bug %d has no comments list", bugID)
	}

	creators := make([]string, 0, len(*bug.Comments))
	for i, comment := range *bug.Comments {
		// Stricter than accepting "": an empty creator can never match the
		// roster and only shows up in a malformed or filtered response.
		if comment.Creator == nil || *comment.Creator == "" {
			return nil, errors.NewResponseParseError("comment %d on bug %d has no creator", i, bugID)
		}
		creators = append(creators, *comment.Creator)
	}
	return creators, nil
}

func (c *Client) get(ctx context.Context, url string) (*http.Response, error) {
	start := time.Now()
	resp, err := c.http.Get(ctx, url)
	if err != nil {
		return nil, err
	}
	c.logger.Debugw("Request done",
		logger.FieldMethod, http.MethodGet,
		logger.FieldURL, url,
		logger.FieldStatus, resp.StatusCode,
		logger.FieldDurationMS, time.Since(start).Milliseconds())
	return resp, nil
}

// bugzillaError is the body Bugzilla's REST API sends with 4xx/5xx responses
type bugzillaError struct {
	Error   bool   `json:"error"`
	Message string `json:"message"`
	Code    int    `json:"code"`
}

// statusError builds a network error for a non-200 response, attaching
// Bugzilla's own error message as a detail when the body carries one.
func statusError(resp *http.Response, action string) error {
	err := errors.Mark(errors.Newf("%s: unexpected status %s", action, resp.Status), errors.ErrNetwork)

	data, readErr := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if readErr != nil {
		return err
	}
	var be bugzillaError
	if json.Unmarshal(data, &be) == nil && be.Message != "" {
		err = errors.WithDetailf(err, "bugzilla error %d: %s", be.Code, be.Message)
	}
	return err
}
