package httpclient

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRotatingClient_Headers(t *testing.T) {
	var gotUA, gotXFF string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		gotXFF = r.Header.Get("X-Forwarded-For")
	}))
	defer server.Close()

	c := NewClient(RotatingClient)
	resp, err := c.Get(context.Background(), server.URL)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Contains(t, UserAgents, gotUA)
	assert.NotNil(t, net.ParseIP(gotXFF), "X-Forwarded-For %q is not an IP", gotXFF)
}

func TestBrowserClient_NoForwardedFor(t *testing.T) {
	var gotXFF string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotXFF = r.Header.Get("X-Forwarded-For")
	}))
	defer server.Close()

	resp, err := NewClient(BrowserClient).Get(context.Background(), server.URL)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Empty(t, gotXFF)
}

func TestClient_KeepsSessionCookie(t *testing.T) {
	var sawCookie bool
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/" {
			http.SetCookie(w, &http.Cookie{Name: "SESSION", Value: "abc", Path: "/"})
			return
		}
		if c, err := r.Cookie("SESSION"); err == nil && c.Value == "abc" {
			sawCookie = true
		}
	}))
	defer server.Close()

	c := NewClient(RotatingClient)
	for _, path := range []string{"/", "/search"} {
		resp, err := c.Get(context.Background(), server.URL+path)
		require.NoError(t, err)
		resp.Body.Close()
	}

	assert.True(t, sawCookie)
}
