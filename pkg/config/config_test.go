package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_DefaultsAndOverrides(t *testing.T) {
	t.Setenv("CACHE_TTL", "90m")
	t.Setenv("CRAWL_MAX_PAGES", "40")
	t.Setenv("CRAWL_BATCH_SIZE", "not-a-number")
	t.Setenv("ORIGIN_RPS", "2.5")
	t.Setenv("ORIGIN_BASE_URL", "https://origin.example")

	cfg := Load()

	assert.Equal(t, 90*time.Minute, cfg.CacheTTL)
	assert.Equal(t, 40, cfg.CrawlMaxPages)
	assert.Equal(t, 5, cfg.CrawlBatchSize)
	assert.Equal(t, 5, cfg.CrawlConcurrency)
	assert.Equal(t, 3, cfg.FetchMaxAttempts)
	assert.Equal(t, 10*time.Second, cfg.FetchTimeout)
	assert.InDelta(t, 2.5, cfg.OriginRPS, 1e-9)
	assert.Equal(t, "https://origin.example", cfg.OriginBaseURL)
}

func TestHasRelationalSource(t *testing.T) {
	assert.False(t, (&Config{}).HasRelationalSource())
	assert.True(t, (&Config{PostgresDSN: "postgres://x"}).HasRelationalSource())
	assert.True(t, (&Config{SupabaseURL: "https://a.supabase.co", SupabaseKey: "k"}).HasRelationalSource())
	assert.False(t, (&Config{SupabaseURL: "https://a.supabase.co"}).HasRelationalSource())
}

func TestLoadRegions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "regions.yaml")
	content := `regions:
  - code: "11680"
    name: 강남구
  - code: " 11650 "
    name: 서초구
  - code: "11680"
    name: duplicate
  - name: no code
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	regions, err := LoadRegions(path)
	require.NoError(t, err)
	assert.Equal(t, []Region{{Code: "11680", Name: "강남구"}, {Code: "11650", Name: "서초구"}}, regions)
	assert.Equal(t, []string{"11680", "11650"}, RegionCodes(regions))
}

func TestLoadRegions_Errors(t *testing.T) {
	_, err := LoadRegions(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("regions: [\n"), 0o644))
	_, err = LoadRegions(path)
	assert.Error(t, err)
}
