package crawler

import "time"

type EventType string

const (
	EventPage          EventType = "page"
	EventCrawlComplete EventType = "crawl_complete"
)

// PageEvent is what the crawler emits per fetched page, and once more with
// Type EventCrawlComplete when the crawl is over. Words[i] sits at
// position i on the page.
type PageEvent struct {
	Type      EventType `json:"type"`
	CrawlID   string    `json:"crawl_id"`
	URL       string    `json:"url,omitempty"`
	Title     string    `json:"title,omitempty"`
	Words     []string  `json:"words,omitempty"`
	Links     int       `json:"links,omitempty"`
	FetchedAt time.Time `json:"fetched_at"`
	Summary   *Summary  `json:"summary,omitempty"`
}

// Summary reports the totals of one crawl.
type Summary struct {
	CrawlID string        `json:"crawl_id"`
	Pages   int           `json:"pages"`
	Failed  int           `json:"failed"`
	Skipped int           `json:"skipped"`
	Words   int           `json:"words"`
	Elapsed time.Duration `json:"elapsed"`
}
