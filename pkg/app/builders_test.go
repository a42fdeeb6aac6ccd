package app

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"apart-tracker/pkg/config"
	"apart-tracker/pkg/db/memstore"
	"apart-tracker/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const listPage = `<html><body><table class="trade-list"><tbody>
<tr><td class="apt-name">개포자이</td><td class="address">서울 강남구 개포동 12</td><td>2025.10.15</td><td>84.97㎡</td><td>5층</td><td>28억</td></tr>
</tbody></table></body></html>`

// instantFetcher fetches without retries or throttle delays.
type instantFetcher struct {
	client *http.Client
	calls  int32
}

func (f *instantFetcher) Fetch(ctx context.Context, url string) (string, error) {
	atomic.AddInt32(&f.calls, 1)
	resp, err := f.client.Get(url)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	return string(body), err
}

func testConfig(baseURL string) *config.Config {
	return &config.Config{
		OriginBaseURL:     baseURL,
		OriginQueryPath:   "/trade",
		CacheCollection:   "crawl_cache",
		ArchiveCollection: "transaction_archives",
		CacheTTL:          3 * time.Hour,
		FetchTimeout:      time.Second,
		FetchMaxAttempts:  1,
		CrawlBatchSize:    5,
		CrawlConcurrency:  5,
		CrawlMaxPages:     100,
	}
}

func TestNewCrawlService_CachesThroughStore(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/trade" && r.URL.Query().Get("page") == "1" {
			_, _ = w.Write([]byte(listPage))
			return
		}
		_, _ = w.Write([]byte("<html></html>"))
	}))
	defer server.Close()

	f := &instantFetcher{client: server.Client()}
	store := memstore.New()
	svc, err := NewCrawlService(testConfig(server.URL), f, store, logger.Discard())
	require.NoError(t, err)

	res, err := svc.CrawlNewTransactions(context.Background(), "11680")
	require.NoError(t, err)
	assert.Equal(t, 1, res.Count)
	calls := atomic.LoadInt32(&f.calls)

	_, err = svc.CrawlNewTransactions(context.Background(), "11680")
	require.NoError(t, err)
	assert.Equal(t, calls, atomic.LoadInt32(&f.calls))
	assert.Equal(t, 1, store.Len())
}

func TestNewCrawlService_RequiresBaseURL(t *testing.T) {
	_, err := NewCrawlService(testConfig(""), &instantFetcher{}, nil, logger.Discard())
	assert.Error(t, err)
}

func TestNewArchiveEngine(t *testing.T) {
	e, err := NewArchiveEngine(testConfig("http://x"), memstore.New(), nil, logger.Discard())
	require.NoError(t, err)

	res, err := e.DiffNewTransactions(context.Background(), "11680")
	require.NoError(t, err)
	assert.Equal(t, 0, res.Count)
}

func TestConnectTransactions_NotConfigured(t *testing.T) {
	_, _, err := ConnectTransactions(context.Background(), testConfig("http://x"))
	assert.Error(t, err)
}

func TestNewFetcher(t *testing.T) {
	assert.NotNil(t, NewFetcher(testConfig("http://x"), logger.Discard()))
}
