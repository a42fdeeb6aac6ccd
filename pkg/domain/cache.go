package domain

import (
	"strconv"
	"strings"
	"time"
)

// CacheEntry is a stored crawl result. Expiry is computed from CrawledAt at read time.
type CacheEntry struct {
	Key       string    `bson:"_id"`
	Payload   string    `bson:"payload"` // JSON
	CrawledAt time.Time `bson:"crawled_at"`
}

// CrawlQuery identifies a crawl. Its Key is used as the cache key.
type CrawlQuery struct {
	Area      string
	ApartName string
	Page      int
}

// Key renders the query with a stable field order and trimmed strings.
func (q CrawlQuery) Key() string {
	var b strings.Builder
	b.WriteString("area=")
	b.WriteString(strings.TrimSpace(q.Area))
	b.WriteString("|apartName=")
	b.WriteString(strings.Join(strings.Fields(q.ApartName), " "))
	if q.Page > 0 {
		b.WriteString("|page=")
		b.WriteString(strconv.Itoa(q.Page))
	}
	return b.String()
}
