package triage

import (
	"context"
	"io"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/EricRahm/bz-triage/errors"
)

// fakeTracker serves a fixed export and per-bug comment creators, with
// optional per-bug latency and failures
type fakeTracker struct {
	export     string
	exportErr  error
	exportBody io.Reader // replaces export when set
	creators   map[int][]string
	failures   map[int]error
	latency    func(bugID int) time.Duration

	inFlight    atomic.Int32
	maxInFlight atomic.Int32
	calls       atomic.Int32

	mu        sync.Mutex
	cancelled []int
}

func (f *fakeTracker) FetchExport(ctx context.Context) (io.ReadCloser, error) {
	if f.exportErr != nil {
		return nil, f.exportErr
	}
	if f.exportBody != nil {
		return io.NopCloser(f.exportBody), nil
	}
	return io.NopCloser(strings.NewReader(f.export)), nil
}

func (f *fakeTracker) CommentCreators(ctx context.Context, bugID int) ([]string, error) {
	f.calls.Add(1)
	n := f.inFlight.Add(1)
	defer f.inFlight.Add(-1)
	for {
		peak := f.maxInFlight.Load()
		if n <= peak || f.maxInFlight.CompareAndSwap(peak, n) {
			break
		}
	}

	if f.latency != nil {
		select {
		case <-time.After(f.latency(bugID)):
		case <-ctx.Done():
			f.mu.Lock()
			f.cancelled = append(f.cancelled, bugID)
			f.mu.Unlock()
			return nil, errors.MarkNetwork(ctx.Err(), "fetch comments for bug %d", bugID)
		}
	}

	if err := f.failures[bugID]; err != nil {
		return nil, err
	}
	return f.creators[bugID], nil
}
