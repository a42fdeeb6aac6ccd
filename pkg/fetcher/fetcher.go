// Package fetcher performs single-page GETs against a slow, bot-averse origin
// with bounded retries, capped exponential backoff, random jitter and a
// post-success throttle delay.
package fetcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"time"

	"apart-tracker/pkg/logger"

	"golang.org/x/time/rate"
)

// ErrRetriesExhausted is returned when every attempt for a page failed.
var ErrRetriesExhausted = errors.New("fetch retries exhausted")

// Getter issues a GET bound to ctx. *httpclient.HTTPClient implements it.
type Getter interface {
	Get(ctx context.Context, url string) (*http.Response, error)
}

// Options tune retry and throttling. Zero values take the defaults below.
type Options struct {
	MaxAttempts int
	Timeout     time.Duration // per attempt

	BaseBackoff time.Duration
	MaxBackoff  time.Duration

	// Random extra wait added before every retry.
	JitterMin time.Duration
	JitterMax time.Duration

	// Random pause after a successful fetch.
	DelayMin time.Duration
	DelayMax time.Duration

	// RequestsPerSecond caps outbound attempts across all callers; 0 disables it.
	RequestsPerSecond float64

	// Sleep waits for d or until ctx is done. Tests replace it.
	Sleep func(ctx context.Context, d time.Duration) error
}

// Defaults.
const (
	DefaultMaxAttempts = 3
	DefaultTimeout     = 10 * time.Second
	DefaultBaseBackoff = time.Second
	DefaultMaxBackoff  = 5 * time.Second
	DefaultJitterMin   = 2 * time.Second
	DefaultJitterMax   = 5 * time.Second
	DefaultDelayMin    = 500 * time.Millisecond
	DefaultDelayMax    = 1500 * time.Millisecond
)

func (o Options) withDefaults() Options {
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = DefaultMaxAttempts
	}
	if o.Timeout <= 0 {
		o.Timeout = DefaultTimeout
	}
	if o.BaseBackoff <= 0 {
		o.BaseBackoff = DefaultBaseBackoff
	}
	if o.MaxBackoff <= 0 {
		o.MaxBackoff = DefaultMaxBackoff
	}
	if o.JitterMin <= 0 && o.JitterMax <= 0 {
		o.JitterMin, o.JitterMax = DefaultJitterMin, DefaultJitterMax
	}
	if o.DelayMin <= 0 && o.DelayMax <= 0 {
		o.DelayMin, o.DelayMax = DefaultDelayMin, DefaultDelayMax
	}
	if o.Sleep == nil {
		o.Sleep = sleepContext
	}
	return o
}

// Fetcher fetches page HTML.
type Fetcher struct {
	client  Getter
	opts    Options
	limiter *rate.Limiter
	log     *logger.Logger
}

// New creates a fetcher around client.
func New(client Getter, opts Options, log *logger.Logger) *Fetcher {
	opts = opts.withDefaults()
	f := &Fetcher{
		client: client,
		opts:   opts,
		log:    logger.OrDefault(log),
	}
	if opts.RequestsPerSecond > 0 {
		f.limiter = rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), 1)
	}
	return f
}

// Fetch returns the body of url. Attempts run sequentially; a timeout counts as
// a failed attempt. After the last failed attempt the error wraps
// ErrRetriesExhausted and the last cause.
func (f *Fetcher) Fetch(ctx context.Context, url string) (string, error) {
	var lastErr error

	for attempt := 1; attempt <= f.opts.MaxAttempts; attempt++ {
		if attempt > 1 {
			wait := f.Backoff(attempt-1) + between(f.opts.JitterMin, f.opts.JitterMax)
			if err := f.opts.Sleep(ctx, wait); err != nil {
				return "", fmt.Errorf("fetch %s: %w", url, err)
			}
		}

		if f.limiter != nil {
			if err := f.limiter.Wait(ctx); err != nil {
				return "", fmt.Errorf("fetch %s: %w", url, err)
			}
		}

		body, err := f.fetchOnce(ctx, url)
		if err == nil {
			// The page is already in hand; a cancelled throttle wait must not discard it.
			_ = f.opts.Sleep(ctx, between(f.opts.DelayMin, f.opts.DelayMax))
			return body, nil
		}

		lastErr = err
		f.log.Warn("[fetcher] %s failed (attempt %d/%d): %v", url, attempt, f.opts.MaxAttempts, err)

		if ctx.Err() != nil {
			break
		}
	}

	return "", fmt.Errorf("%w: %s after %d attempts: %w", ErrRetriesExhausted, url, f.opts.MaxAttempts, lastErr)
}

// Backoff returns the wait before the given retry (1-based): BaseBackoff doubled
// per retry, capped at MaxBackoff.
func (f *Fetcher) Backoff(retry int) time.Duration {
	d := f.opts.BaseBackoff
	for i := 1; i < retry; i++ {
		d *= 2
		if d >= f.opts.MaxBackoff {
			return f.opts.MaxBackoff
		}
	}
	if d > f.opts.MaxBackoff {
		return f.opts.MaxBackoff
	}
	return d
}

func (f *Fetcher) fetchOnce(ctx context.Context, url string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, f.opts.Timeout)
	defer cancel()

	resp, err := f.client.Get(ctx, url)
	if err != nil {
		return "", fmt.Errorf("failed to fetch URL: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response body: %w", err)
	}

	return string(body), nil
}

func between(lo, hi time.Duration) time.Duration {
	if hi <= lo {
		return lo
	}
	return lo + time.Duration(rand.Int63n(int64(hi-lo)))
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
