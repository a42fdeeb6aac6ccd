package fetcher

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"apart-tracker/pkg/httpclient"
	"apart-tracker/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// sleepRecorder replaces real waits and remembers the requested durations.
type sleepRecorder struct {
	mu     sync.Mutex
	sleeps []time.Duration
}

func (s *sleepRecorder) Sleep(ctx context.Context, d time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sleeps = append(s.sleeps, d)
	return ctx.Err()
}

func testOptions(rec *sleepRecorder) Options {
	return Options{
		MaxAttempts: 3,
		Timeout:     time.Second,
		BaseBackoff: time.Second,
		MaxBackoff:  5 * time.Second,
		JitterMin:   2 * time.Second,
		JitterMax:   2 * time.Second,
		DelayMin:    500 * time.Millisecond,
		DelayMax:    500 * time.Millisecond,
		Sleep:       rec.Sleep,
	}
}

func TestFetch_RetriesThenSucceeds(t *testing.T) {
	var hits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&hits, 1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte("<html>ok</html>"))
	}))
	defer server.Close()

	rec := &sleepRecorder{}
	f := New(httpclient.NewClient(httpclient.RotatingClient), testOptions(rec), logger.Discard())

	body, err := f.Fetch(context.Background(), server.URL)
	require.NoError(t, err)
	assert.Equal(t, "<html>ok</html>", body)
	assert.Equal(t, int32(3), atomic.LoadInt32(&hits))

	// backoff+jitter before each retry, then the post-success throttle.
	assert.Equal(t, []time.Duration{3 * time.Second, 4 * time.Second, 500 * time.Millisecond}, rec.sleeps)
}

func TestFetch_ExhaustsRetries(t *testing.T) {
	var hits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	rec := &sleepRecorder{}
	f := New(httpclient.NewClient(httpclient.RotatingClient), testOptions(rec), logger.Discard())

	body, err := f.Fetch(context.Background(), server.URL)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrRetriesExhausted))
	assert.Contains(t, err.Error(), "unexpected status code: 403")
	assert.Empty(t, body)
	assert.Equal(t, int32(3), atomic.LoadInt32(&hits))
	assert.Len(t, rec.sleeps, 2, "no throttle delay after a failure")
}

func TestFetch_TimeoutIsRetried(t *testing.T) {
	var hits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&hits, 1) == 1 {
			select {
			case <-r.Context().Done():
			case <-time.After(2 * time.Second):
			}
			return
		}
		w.Write([]byte("late but fine"))
	}))
	defer server.Close()

	rec := &sleepRecorder{}
	opts := testOptions(rec)
	opts.Timeout = 50 * time.Millisecond
	f := New(httpclient.NewClient(httpclient.RotatingClient), opts, logger.Discard())

	body, err := f.Fetch(context.Background(), server.URL)
	require.NoError(t, err)
	assert.Equal(t, "late but fine", body)
	assert.Equal(t, int32(2), atomic.LoadInt32(&hits))
}

func TestFetch_StopsOnCancelledContext(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	f := New(httpclient.NewClient(httpclient.RotatingClient), testOptions(&sleepRecorder{}), logger.Discard())
	_, err := f.Fetch(ctx, server.URL)
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestFetch_KeepsBodyWhenCancelledDuringThrottle(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html>page</html>"))
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	opts := testOptions(&sleepRecorder{})
	opts.Sleep = func(ctx context.Context, d time.Duration) error {
		cancel()
		return ctx.Err()
	}

	f := New(httpclient.NewClient(httpclient.RotatingClient), opts, logger.Discard())
	body, err := f.Fetch(ctx, server.URL)
	require.NoError(t, err)
	assert.Equal(t, "<html>page</html>", body)
}

func TestBackoff_Capped(t *testing.T) {
	f := New(nil, Options{BaseBackoff: time.Second, MaxBackoff: 5 * time.Second}, logger.Discard())

	assert.Equal(t, time.Second, f.Backoff(1))
	assert.Equal(t, 2*time.Second, f.Backoff(2))
	assert.Equal(t, 4*time.Second, f.Backoff(3))
	assert.Equal(t, 5*time.Second, f.Backoff(4))
	assert.Equal(t, 5*time.Second, f.Backoff(10))
}

func TestBetween(t *testing.T) {
	for i := 0; i < 100; i++ {
		d := between(2*time.Second, 5*time.Second)
		assert.GreaterOrEqual(t, d, 2*time.Second)
		assert.Less(t, d, 5*time.Second)
	}
	assert.Equal(t, time.Second, between(time.Second, time.Second))
}
