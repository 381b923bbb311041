package crawler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"sync"
	"time"

	"github.com/temoto/robotstxt"
	"golang.org/x/sync/singleflight"

	"github.com/Adithya-Monish-Kumar-K/Web-Query-Engine/pkg/resilience"
)

const maxBodyBytes = 10 << 20

// ErrDisallowed is returned for URLs excluded by robots.txt.
var ErrDisallowed = errors.New("disallowed by robots.txt")

// Fetcher reads pages from the local file system (file://) or over HTTP.
// HTTP fetches honour robots.txt and retry transient failures.
type Fetcher struct {
	client    *http.Client
	userAgent string
	retry     resilience.RetryConfig

	robotsMu sync.RWMutex
	robots   map[string]*robotstxt.RobotsData
	robotsSF singleflight.Group

	logger *slog.Logger
}

func NewFetcher(userAgent string, timeout time.Duration, maxAttempts int) *Fetcher {
	return &Fetcher{
		client: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		userAgent: userAgent,
		retry:     resilience.RetryConfig{MaxAttempts: maxAttempts, InitialDelay: 200 * time.Millisecond, JitterFraction: 0.2},
		robots:    make(map[string]*robotstxt.RobotsData),
		logger:    slog.Default().With("component", "fetcher"),
	}
}

// Fetch returns the body of the page at u.
func (f *Fetcher) Fetch(ctx context.Context, u *url.URL) ([]byte, error) {
	switch u.Scheme {
	case "file":
		return readFile(u)
	case "http", "https":
		if !f.Allowed(ctx, u) {
			return nil, ErrDisallowed
		}
		var body []byte
		err := resilience.Retry(ctx, "fetch "+u.String(), f.retry, func(ctx context.Context) error {
			var err error
			body, err = f.get(ctx, u)
			return err
		})
		return body, err
	default:
		return nil, fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
}

func readFile(u *url.URL) ([]byte, error) {
	fh, err := os.Open(u.Path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", u.Path, err)
	}
	defer fh.Close()
	data, err := io.ReadAll(io.LimitReader(fh, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", u.Path, err)
	}
	return data, nil
}

func (f *Fetcher) get(ctx context.Context, u *url.URL) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, resilience.Permanent(fmt.Errorf("building request: %w", err))
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml;q=0.9,*/*;q=0.5")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", u, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 500, resp.StatusCode == http.StatusTooManyRequests:
		return nil, fmt.Errorf("fetching %s: status %d", u, resp.StatusCode)
	case resp.StatusCode >= 400:
		return nil, resilience.Permanent(fmt.Errorf("fetching %s: status %d", u, resp.StatusCode))
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("reading body of %s: %w", u, err)
	}
	return data, nil
}

// Allowed reports whether robots.txt on u's host permits fetching u. An
// unreachable or missing robots.txt allows everything.
func (f *Fetcher) Allowed(ctx context.Context, u *url.URL) bool {
	origin := u.Scheme + "://" + u.Host
	f.robotsMu.RLock()
	robots, ok := f.robots[origin]
	f.robotsMu.RUnlock()
	if !ok {
		v, _, _ := f.robotsSF.Do(origin, func() (any, error) {
			r := f.fetchRobots(ctx, origin)
			f.robotsMu.Lock()
			f.robots[origin] = r
			f.robotsMu.Unlock()
			return r, nil
		})
		robots = v.(*robotstxt.RobotsData)
	}
	if robots == nil {
		return true
	}
	p := u.EscapedPath()
	if p == "" {
		p = "/"
	}
	return robots.TestAgent(p, f.userAgent)
}

func (f *Fetcher) fetchRobots(ctx context.Context, origin string) *robotstxt.RobotsData {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, origin+"/robots.txt", nil)
	if err != nil {
		return nil
	}
	req.Header.Set("User-Agent", f.userAgent)
	resp, err := f.client.Do(req)
	if err != nil {
		f.logger.Debug("robots.txt unreachable", "origin", origin, "error", err)
		return nil
	}
	defer resp.Body.Close()
	robots, err := robotstxt.FromResponse(resp)
	if err != nil {
		f.logger.Warn("robots.txt unparseable", "origin", origin, "error", err)
		return nil
	}
	return robots
}
