package crawler

import "github.com/Adithya-Monish-Kumar-K/Web-Query-Engine/internal/indexer/index"

// Frontier is a FIFO of URLs still to visit. Each canonical URL is queued
// at most once over the frontier's lifetime.
type Frontier struct {
	queue []string
	seen  map[string]struct{}
}

func NewFrontier() *Frontier {
	return &Frontier{seen: make(map[string]struct{})}
}

// Push queues raw unless it is unusable or was queued before.
func (f *Frontier) Push(raw string) bool {
	page, err := index.NewPage(raw)
	if err != nil {
		return false
	}
	key := page.URL()
	if _, ok := f.seen[key]; ok {
		return false
	}
	f.seen[key] = struct{}{}
	f.queue = append(f.queue, key)
	return true
}

// Take removes and returns up to n URLs from the head of the queue.
func (f *Frontier) Take(n int) []string {
	if n > len(f.queue) {
		n = len(f.queue)
	}
	out := make([]string, n)
	copy(out, f.queue[:n])
	f.queue = f.queue[n:]
	return out
}

func (f *Frontier) Len() int  { return len(f.queue) }
func (f *Frontier) Seen() int { return len(f.seen) }
