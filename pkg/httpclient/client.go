package httpclient

import (
	"context"
	"fmt"
	"math/rand"
	"net/http"
	"net/http/cookiejar"
)

// ClientType represents the type of HTTP client configuration
type ClientType string

const (
	// BrowserClient sends one fixed browser-like header set.
	BrowserClient ClientType = "browser"

	// RotatingClient picks a User-Agent from a small pool for every request and
	// synthesizes an X-Forwarded-For address, so consecutive requests do not share
	// a fingerprint. Best effort only: the origin's bot defenses can change at any time.
	RotatingClient ClientType = "rotating"
)

// UserAgents is the pool RotatingClient draws from.
var UserAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.4 Safari/605.1.15",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:125.0) Gecko/20100101 Firefox/125.0",
	"Mozilla/5.0 (iPhone; CPU iPhone OS 17_4 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.4 Mobile/15E148 Safari/604.1",
	"Mozilla/5.0 (Linux; Android 14; SM-S918N) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Mobile Safari/537.36",
}

// HTTPClient wraps an http.Client with configuration
type HTTPClient struct {
	client     *http.Client
	clientType ClientType
}

// NewClient creates a new HTTP client with the specified type. The client keeps
// cookies between requests so a session acquired on the base page is reused.
func NewClient(clientType ClientType) *HTTPClient {
	jar, _ := cookiejar.New(nil) // only fails with a non-nil options value

	client := &http.Client{
		Jar: jar,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			// Follow up to 10 redirects
			if len(via) >= 10 {
				return http.ErrUseLastResponse
			}
			return nil
		},
	}

	return &HTTPClient{
		client:     client,
		clientType: clientType,
	}
}

// Do executes an HTTP request with the appropriate headers for the client type
func (c *HTTPClient) Do(req *http.Request) (*http.Response, error) {
	c.setHeaders(req)
	return c.client.Do(req)
}

// Get is a convenience method for GET requests bound to ctx.
func (c *HTTPClient) Get(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	return c.Do(req)
}

// setHeaders sets the appropriate headers based on client type
func (c *HTTPClient) setHeaders(req *http.Request) {
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "ko-KR,ko;q=0.9,en-US;q=0.8,en;q=0.7")

	switch c.clientType {
	case BrowserClient:
		req.Header.Set("User-Agent", UserAgents[0])
		req.Header.Set("Connection", "keep-alive")
		req.Header.Set("Upgrade-Insecure-Requests", "1")

	case RotatingClient:
		req.Header.Set("User-Agent", UserAgents[rand.Intn(len(UserAgents))])
		req.Header.Set("X-Forwarded-For", randomIPv4())

	default:
		// Default: use Go's default User-Agent
	}
}

// randomIPv4 returns a public-looking unicast address.
func randomIPv4() string {
	return fmt.Sprintf("%d.%d.%d.%d", 1+rand.Intn(223), rand.Intn(256), rand.Intn(256), 1+rand.Intn(254))
}
