package indexer

import "time"

// IndexComplete announces a newly written snapshot. The searcher reloads
// from Path when it receives one.
type IndexComplete struct {
	Path       string    `json:"path"`
	Generation int       `json:"generation"`
	Terms      int       `json:"terms"`
	Pages      int       `json:"pages"`
	CrawlID    string    `json:"crawl_id,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}
