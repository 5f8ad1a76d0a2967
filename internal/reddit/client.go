// Package reddit implements the collector's search capability against the
// Reddit API using application-only OAuth.
package reddit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/cognicore/titlecorpus/pkg/titlecorpus/collect"
)

const (
	defaultAuthURL = "https://www.reddit.com/api/v1/access_token"
	defaultAPIURL  = "https://oauth.reddit.com"

	// pageSize is the largest listing page Reddit serves.
	pageSize = 100
)

// Config holds client credentials and endpoints. Empty endpoints select
// Reddit's public ones.
type Config struct {
	ClientID     string
	ClientSecret string
	UserAgent    string
	Subreddit    string
	AuthURL      string
	APIURL       string
	// Interval is the minimum spacing between HTTP requests.
	Interval   time.Duration
	HTTPClient *http.Client
}

// Client searches Reddit. It is safe for concurrent use.
type Client struct {
	cfg     Config
	client  *http.Client
	limiter *rate.Limiter

	mu     sync.Mutex
	token  string
	expiry time.Time
}

// New creates a client.
func New(cfg Config) (*Client, error) {
	if cfg.ClientID == "" || cfg.ClientSecret == "" {
		return nil, errors.New("reddit: client id and secret required")
	}
	if cfg.UserAgent == "" {
		return nil, errors.New("reddit: user agent required")
	}
	if cfg.Subreddit == "" {
		cfg.Subreddit = "all"
	}
	if cfg.AuthURL == "" {
		cfg.AuthURL = defaultAuthURL
	}
	if cfg.APIURL == "" {
		cfg.APIURL = defaultAPIURL
	}
	if cfg.Interval <= 0 {
		cfg.Interval = 600 * time.Millisecond // ~100 requests per minute
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{
		cfg:     cfg,
		client:  client,
		limiter: rate.NewLimiter(rate.Every(cfg.Interval), 1),
	}, nil
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
	Error       string `json:"error"`
}

type listing struct {
	Data struct {
		After    string `json:"after"`
		Children []struct {
			Data post `json:"data"`
		} `json:"children"`
	} `json:"data"`
}

type post struct {
	ID         string  `json:"id"`
	Title      string  `json:"title"`
	CreatedUTC float64 `json:"created_utc"`
}

// Search pages through the listing for q until q.Limit hits are gathered or
// the listing ends.
func (c *Client) Search(ctx context.Context, q collect.Query) ([]collect.Hit, error) {
	limit := q.Limit
	if limit <= 0 || limit > collect.MaxLimit {
		limit = collect.MaxLimit
	}

	var (
		hits  []collect.Hit
		after string
	)
	for len(hits) < limit {
		page, next, err := c.searchPage(ctx, q, min(pageSize, limit-len(hits)), after)
		if err != nil {
			return hits, err
		}
		hits = append(hits, page...)
		if next == "" || len(page) == 0 {
			break
		}
		after = next
	}
	return hits, nil
}

func (c *Client) searchPage(ctx context.Context, q collect.Query, n int, after string) ([]collect.Hit, string, error) {
	params := url.Values{}
	params.Set("q", q.Term)
	params.Set("sort", string(q.Sort))
	params.Set("t", string(q.Window))
	params.Set("limit", strconv.Itoa(n))
	params.Set("restrict_sr", "1")
	params.Set("type", "link")
	params.Set("raw_json", "1")
	if after != "" {
		params.Set("after", after)
	}
	endpoint := fmt.Sprintf("%s/r/%s/search?%s",
		strings.TrimRight(c.cfg.APIURL, "/"), url.PathEscape(c.cfg.Subreddit), params.Encode())

	token, err := c.accessToken(ctx)
	if err != nil {
		return nil, "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, "", err
	}
	req.Header.Set("Authorization", "Bearer "+token)

	var l listing
	if err := c.do(req, &l); err != nil {
		return nil, "", fmt.Errorf("reddit search %s: %w", q, err)
	}

	hits := make([]collect.Hit, 0, len(l.Data.Children))
	for _, child := range l.Data.Children {
		p := child.Data
		hits = append(hits, collect.Hit{ID: p.ID, CreatedAt: unixFloat(p.CreatedUTC), Title: p.Title})
	}
	return hits, l.Data.After, nil
}

// accessToken returns a cached token, fetching a new one when it is missing
// or about to expire.
func (c *Client) accessToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.token != "" && time.Now().Before(c.expiry) {
		return c.token, nil
	}

	form := url.Values{"grant_type": {"client_credentials"}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.AuthURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.SetBasicAuth(c.cfg.ClientID, c.cfg.ClientSecret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	var tr tokenResponse
	if err := c.do(req, &tr); err != nil {
		return "", fmt.Errorf("reddit auth: %w", err)
	}
	if tr.Error != "" || tr.AccessToken == "" {
		return "", fmt.Errorf("reddit auth: %q", tr.Error)
	}
	c.token = tr.AccessToken
	// refresh a minute early
	c.expiry = time.Now().Add(time.Duration(tr.ExpiresIn)*time.Second - time.Minute)
	return c.token, nil
}

// do paces, sends and decodes one request.
func (c *Client) do(req *http.Request, v any) error {
	if err := c.limiter.Wait(req.Context()); err != nil {
		return err
	}
	req.Header.Set("User-Agent", c.cfg.UserAgent)
	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return json.NewDecoder(resp.Body).Decode(v)
}

func unixFloat(sec float64) time.Time {
	whole, frac := math.Modf(sec)
	return time.Unix(int64(whole), int64(frac*1e9)).UTC()
}
