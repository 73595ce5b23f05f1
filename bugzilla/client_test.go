package bugzilla

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/EricRahm/bz-triage/errors"
	"github.com/EricRahm/bz-triage/internal/httpclient"
	"github.com/EricRahm/bz-triage/triage"
)

const testExport = `"Bug ID","Product","Component","Reporter","Assignee","Status","Resolution","Summary","Changed"
1147674,"Firefox","Untriaged","taylor.a.huston","nobody","UNCONFIRMED","---","Memory leaks in Firefox Developer Edition x64","2015-04-14 13:06:29"
1157839,"Core","JavaScript Engine","sphink","nobody","NEW","---","Investigate using refcounted strings for wrapping","2015-04-23 13:24:05"
1155371,"Core","DOM","erahm","erahm","ASSIGNED","---","Include DOMMediaStream and MediaSource object URLs in memory reports","2015-04-23 00:47:24"
`

func commentsJSON(bugID int, creators ...string) string {
	parts := make([]string, len(creators))
	for i, c := range creators {
		parts[i] = fmt.Sprintf(`{"id":%d,"creator":%q,"text":"..."}`, i+1, c)
	}
	return fmt.Sprintf(`{"bugs":{"%d":{"comments":[%s]}},"comments":{}}`, bugID, strings.Join(parts, ","))
}

// newTestClient points a client at srv. The export lives at /export and
// comments at /rest/bug/{id}/comment.
func newTestClient(srv *httptest.Server) *Client {
	return NewClient(Options{
		ExportURL:          srv.URL + "/export",
		CommentURLTemplate: srv.URL + "/rest/bug/{id}/comment?include_fields=creator",
		HTTPClient:         httpclient.WrapClient(srv.Client()),
	})
}

func TestFetchExport(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/export", r.URL.Path)
		w.Header().Set("Content-Type", "text/csv")
		io.WriteString(w, testExport)
	}))
	defer srv.Close()

	body, err := newTestClient(srv).FetchExport(context.Background())
	require.NoError(t, err)
	defer body.Close()

	data, err := io.ReadAll(body)
	require.NoError(t, err)
	assert.Equal(t, testExport, string(data))
}

func TestFetchExport_StatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		io.WriteString(w, `{"error":true,"message":"The database is down","code":500}`)
	}))
	defer srv.Close()

	_, err := newTestClient(srv).FetchExport(context.Background())
	require.Error(t, err)
	assert.True(t, errors.IsNetworkError(err))
	assert.Contains(t, err.Error(), "fetch export")
	assert.Contains(t, err.Error(), "503")
	assert.Contains(t, errors.FlattenDetails(err), "The database is down")
}

func TestFetchExport_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	client := newTestClient(srv)
	srv.Close()

	_, err := client.FetchExport(context.Background())
	require.Error(t, err)
	assert.True(t, errors.IsNetworkError(err))
}

func TestCommentCreators(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/rest/bug/1155371/comment", r.URL.Path)
		assert.Equal(t, "creator", r.URL.Query().Get("include_fields"))
		io.WriteString(w, commentsJSON(1155371, "erahm@mozilla.com", "n.nethercote@gmail.com", "erahm@mozilla.com"))
	}))
	defer srv.Close()

	creators, err := newTestClient(srv).CommentCreators(context.Background(), 1155371)
	require.NoError(t, err)
	assert.Equal(t, []string{"erahm@mozilla.com", "n.nethercote@gmail.com", "erahm@mozilla.com"}, creators)
}

func TestCommentCreators_NoComments(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"bugs":{"7":{"comments":[]}}}`)
	}))
	defer srv.Close()

	creators, err := newTestClient(srv).CommentCreators(context.Background(), 7)
	require.NoError(t, err)
	assert.Empty(t, creators)
}

func TestCommentCreators_Errors(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		check    func(error) bool
		contains string
	}{
		{
			name:     "invalid JSON",
			status:   http.StatusOK,
			body:     `{"bugs":`,
			check:    errors.IsResponseParseError,
			contains: "decode comments for bug 7",
		},
		{
			name:     "bug missing",
			status:   http.StatusOK,
			body:     `{"bugs":{"8":{"comments":[]}}}`,
			check:    errors.IsResponseParseError,
			contains: "no entry for bug 7",
		},
		{
			name:     "comments missing",
			status:   http.StatusOK,
			body:     `{"bugs":{"7":{}}}`,
			check:    errors.IsResponseParseError,
			contains: "no comments list",
		},
		{
			name:     "creator missing",
			status:   http.StatusOK,
			body:     `{"bugs":{"7":{"comments":[{"creator":"erahm@mozilla.com"},{"id":2}]}}}`,
			check:    errors.IsResponseParseError,
			contains: "comment 1 on bug 7 has no creator",
		},
		{
			name:     "creator empty",
			status:   http.StatusOK,
			body:     `{"bugs":{"7":{"comments":[{"creator":""}]}}}`,
			check:    errors.IsResponseParseError,
			contains: "comment 0 on bug 7",
		},
		{
			name:     "server error",
			status:   http.StatusInternalServerError,
			body:     "oops",
			check:    errors.IsNetworkError,
			contains: "fetch comments for bug 7",
		},
		{
			name:     "bug not visible",
			status:   http.StatusUnauthorized,
			body:     `{"error":true,"message":"You are not authorized to access bug #7.","code":102}`,
			check:    errors.IsNetworkError,
			contains: "401",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				io.WriteString(w, tt.body)
			}))
			defer srv.Close()

			_, err := newTestClient(srv).CommentCreators(context.Background(), 7)
			require.Error(t, err)
			assert.True(t, tt.check(err), "unexpected error kind %q: %v", errors.Kind(err), err)
			assert.Contains(t, err.Error(), tt.contains)
		})
	}
}

func TestStatusError_Detail(t *testing.T) {
	resp := &http.Response{
		Status:     "401 Unauthorized",
		StatusCode: http.StatusUnauthorized,
		Body:       io.NopCloser(strings.NewReader(`{"error":true,"message":"not authorized","code":102}`)),
	}

	err := statusError(resp, "fetch comments for bug 7")
	assert.EqualError(t, err, "fetch comments for bug 7: unexpected status 401 Unauthorized")
	assert.Equal(t, "bugzilla error 102: not authorized", errors.FlattenDetails(err))

	plain := statusError(&http.Response{
		Status:     "502 Bad Gateway",
		StatusCode: http.StatusBadGateway,
		Body:       io.NopCloser(strings.NewReader("<html>bad gateway</html>")),
	}, "fetch export")
	assert.Empty(t, errors.FlattenDetails(plain))
}

func TestCommentCreators_Cancelled(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := newTestClient(srv).CommentCreators(ctx, 7)
	require.Error(t, err)
	assert.True(t, errors.IsNetworkError(err))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

// truncatedServer promises a long body, sends only prefix, then drops the
// connection.
func truncatedServer(t *testing.T, prefix string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, buf, err := w.(http.Hijacker).Hijack()
		if err != nil {
			t.Errorf("hijack: %v", err)
			return
		}
		defer conn.Close()
		fmt.Fprintf(buf, "HTTP/1.1 200 OK\r\nContent-Type: text/plain\r\nContent-Length: 100000\r\n\r\n%s", prefix)
		buf.Flush()
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestCommentCreators_TruncatedBody(t *testing.T) {
	body := commentsJSON(1, strings.Repeat("x", 400)+"@example.com")
	srv := truncatedServer(t, body[:300])

	_, err := newTestClient(srv).CommentCreators(context.Background(), 1)
	require.Error(t, err)
	assert.True(t, errors.IsNetworkError(err), "unexpected error kind %q: %v", errors.Kind(err), err)
	assert.False(t, errors.IsResponseParseError(err))
	assert.Contains(t, err.Error(), "read comments for bug 1")
}

func TestPipelineOverHTTP_TruncatedExport(t *testing.T) {
	srv := truncatedServer(t, testExport[:300])

	pipeline := triage.NewPipeline(newTestClient(srv), triage.Options{
		Team:             "MemShrink",
		ShortURLTemplate: "https://bugzil.la/{id}",
		Roster:           triage.DefaultRoster(),
		Fetch:            triage.DefaultFetcherConfig(),
	})

	result, err := pipeline.Generate(context.Background())
	require.Error(t, err)
	assert.Nil(t, result)
	assert.True(t, errors.IsNetworkError(err), "unexpected error kind %q: %v", errors.Kind(err), err)
	assert.False(t, errors.IsRecordParseError(err))
	assert.Equal(t, "network", errors.Kind(err))
}

func TestNewClient_BlocksPrivateHostsByDefault(t *testing.T) {
	client := NewClient(Options{
		ExportURL: "http://127.0.0.1:1/export",
		Timeout:   time.Second,
	})

	_, err := client.FetchExport(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "private IP address blocked")
}

func TestNewClient_UserAgent(t *testing.T) {
	var got atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got.Store(r.Header.Get("User-Agent"))
		io.WriteString(w, testExport)
	}))
	defer srv.Close()

	client := NewClient(Options{
		ExportURL:         srv.URL + "/export",
		Timeout:           5 * time.Second,
		AllowPrivateHosts: true,
		UserAgent:         "bztriage/test",
	})

	body, err := client.FetchExport(context.Background())
	require.NoError(t, err)
	body.Close()
	assert.Equal(t, "bztriage/test", got.Load())
}

// End to end over HTTP: completion order is reversed relative to the sorted
// bug order, and the report must not notice.
func TestPipelineOverHTTP(t *testing.T) {
	delays := map[string]time.Duration{
		"1147674": 40 * time.Millisecond,
		"1155371": 20 * time.Millisecond,
		"1157839": 0,
	}
	creators := map[string][]string{
		"1147674": {"taylor.a.huston@gmail.com"},
		"1155371": {"erahm@mozilla.com", "n.nethercote@gmail.com"},
		"1157839": {"sphink@mozilla.com"},
	}
	var commentCalls atomic.Int32

	mux := http.NewServeMux()
	mux.HandleFunc("/export", func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, testExport)
	})
	mux.HandleFunc("/rest/bug/{id}/comment", func(w http.ResponseWriter, r *http.Request) {
		commentCalls.Add(1)
		id := r.PathValue("id")
		time.Sleep(delays[id])
		var bugID int
		fmt.Sscanf(id, "%d", &bugID)
		io.WriteString(w, commentsJSON(bugID, creators[id]...))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	pipeline := triage.NewPipeline(newTestClient(srv), triage.Options{
		Team:             "MemShrink",
		ShortURLTemplate: "https://bugzil.la/{id}",
		Roster:           triage.DefaultRoster(),
		Fetch:            triage.DefaultFetcherConfig(),
		Now:              func() time.Time { return time.Date(2015, 4, 24, 0, 0, 0, 0, time.UTC) },
	})

	result, err := pipeline.Generate(context.Background())
	require.NoError(t, err)

	assert.Equal(t, int32(3), commentCalls.Load())
	assert.Equal(t, 3, result.Bugs)
	assert.Equal(t, 1, result.Mentions)

	lines := result.Report.Lines()
	assert.Equal(t, "**MemShrink triage:** 2015-04-24", lines[0])
	assert.Equal(t, "3 bugs to triage", lines[1])
	assert.Equal(t, "-   [1147674](https://bugzil.la/1147674) - Firefox :: Untriaged - Memory leaks in Firefox Developer Edition x64", lines[3])
	assert.Contains(t, lines, "    erahm, njn, what do you think?")
	assert.Equal(t, 1, strings.Count(result.Report.Markdown(), "what do you think?"))
}
