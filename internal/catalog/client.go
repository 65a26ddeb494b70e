package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"

	"github.com/ujjwal16295/book-ai/internal/logging"
)

// ErrNotFound reports that the catalog returned zero matching volumes. It is
// distinct from transport and decode failures on purpose: callers surface the
// two differently.
var ErrNotFound = errors.New("catalog: no matching volume")

// Client talks to the Google Books volumes API. Requests are rate limited and
// retried with exponential backoff on 429/5xx responses.
type Client struct {
	HTTPClient *http.Client
	apiKey     string
	baseURL    string
	limiter    *rate.Limiter
	maxRetries int
	retryBase  time.Duration
	maxSuggest int
	cache      *Cache
}

// NewClient constructs a Client. maxSuggest caps the suggestion result count;
// apiKey may be empty (the public endpoint still answers, with tighter quota).
func NewClient(apiKey string, maxSuggest int) *Client {
	if maxSuggest <= 0 {
		maxSuggest = 8
	}
	return &Client{
		HTTPClient: &http.Client{Timeout: 15 * time.Second},
		apiKey:     apiKey,
		baseURL:    "https://www.googleapis.com/books/v1",
		limiter:    rate.NewLimiter(rate.Every(time.Second/5), 1),
		maxRetries: 2,
		retryBase:  time.Second,
		maxSuggest: maxSuggest,
	}
}

// WithCache attaches a read-through detail cache.
func (c *Client) WithCache(cache *Cache) *Client {
	c.cache = cache
	return c
}

// Suggest searches volumes whose title matches q and returns candidates in
// the order the catalog returned them. Zero matches yield an empty slice and
// a nil error; only transport/decode problems return an error.
func (c *Client) Suggest(ctx context.Context, q string) ([]Candidate, error) {
	u := fmt.Sprintf("%s/volumes?q=%s&maxResults=%d",
		c.baseURL, url.QueryEscape("intitle:"+q), c.maxSuggest)
	if c.apiKey != "" {
		u += "&key=" + url.QueryEscape(c.apiKey)
	}

	var res volumesResponse
	if err := c.get(ctx, u, &res); err != nil {
		return nil, err
	}
	candidates := make([]Candidate, 0, len(res.Items))
	for _, it := range res.Items {
		candidates = append(candidates, candidateFromItem(it))
	}
	return candidates, nil
}

// Lookup resolves title to its single best-matching Record. Returns
// ErrNotFound when the catalog has no match.
func (c *Client) Lookup(ctx context.Context, title string) (Record, error) {
	if c.cache != nil {
		if v, ok := c.cache.Get(ctx, title); ok {
			return recordFromVolume(v), nil
		}
	}

	u := fmt.Sprintf("%s/volumes?q=%s&maxResults=1", c.baseURL, url.QueryEscape(title))
	var res volumesResponse
	if err := c.get(ctx, u, &res); err != nil {
		return Record{}, err
	}
	if len(res.Items) == 0 {
		return Record{}, ErrNotFound
	}

	v := res.Items[0].VolumeInfo
	if c.cache != nil {
		if err := c.cache.Put(ctx, title, v); err != nil {
			logging.Warn("catalog cache write failed", "title", title, "err", err)
		}
	}
	return recordFromVolume(v), nil
}

func (c *Client) get(ctx context.Context, url string, target interface{}) error {
	var lastErr error
	for i := 0; i <= c.maxRetries; i++ {
		if i > 0 {
			// Backoff: 1s, 2s, 4s...
			backoff := c.retryBase * time.Duration(1<<uint(i-1))
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return err
		}

		resp, err := c.HTTPClient.Do(req)
		if err != nil {
			lastErr = err
			continue
		}

		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
				lastErr = fmt.Errorf("catalog: unexpected status %d", resp.StatusCode)
				continue
			}
			return fmt.Errorf("catalog: unexpected status %d", resp.StatusCode)
		}

		err = json.NewDecoder(resp.Body).Decode(target)
		resp.Body.Close()
		if err != nil {
			return fmt.Errorf("catalog: decode response: %w", err)
		}
		return nil
	}
	return fmt.Errorf("catalog: after %d retries: %w", c.maxRetries, lastErr)
}
