// Package collect harvests unique post titles by sweeping the provider's
// ordering strategies and time windows until a target count is reached.
package collect

import (
	"context"
	"time"

	"github.com/cognicore/titlecorpus/internal/logger"
	"github.com/cognicore/titlecorpus/pkg/titlecorpus/record"
)

// MaxLimit is the largest result count the provider serves per query.
const MaxLimit = 1000

// DefaultDelay is the pause imposed after every query.
const DefaultDelay = 2 * time.Second

// Hit is one item returned by the search provider.
type Hit struct {
	ID        string
	CreatedAt time.Time
	Title     string
}

// Searcher is the search capability consumed by the collector.
type Searcher interface {
	Search(ctx context.Context, q Query) ([]Hit, error)
}

// SearchFunc adapts a function to Searcher.
type SearchFunc func(ctx context.Context, q Query) ([]Hit, error)

// Search calls f.
func (f SearchFunc) Search(ctx context.Context, q Query) ([]Hit, error) {
	return f(ctx, q)
}

// Stats summarizes one Collect call.
type Stats struct {
	Queries  int
	Failures int
	Hits     int
	Admitted int
}

// Collector runs the strategy/window sweep against a Searcher.
type Collector struct {
	searcher Searcher
	delay    time.Duration
	limit    int
	sleep    func(ctx context.Context, d time.Duration) error
	log      *logger.Logger
	stats    Stats
}

// Option customizes a Collector.
type Option func(*Collector)

// WithDelay sets the pause after each query.
func WithDelay(d time.Duration) Option {
	return func(c *Collector) { c.delay = d }
}

// WithLimit sets the per-query result cap. Values above MaxLimit are clamped.
func WithLimit(n int) Option {
	return func(c *Collector) { c.limit = n }
}

// WithSleep replaces the pause implementation, mainly for tests.
func WithSleep(fn func(ctx context.Context, d time.Duration) error) Option {
	return func(c *Collector) { c.sleep = fn }
}

// WithLogger sets the logger.
func WithLogger(l *logger.Logger) Option {
	return func(c *Collector) { c.log = l }
}

// New creates a Collector over s.
func New(s Searcher, opts ...Option) *Collector {
	c := &Collector{
		searcher: s,
		delay:    DefaultDelay,
		limit:    MaxLimit,
		sleep:    sleepContext,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.limit <= 0 || c.limit > MaxLimit {
		c.limit = MaxLimit
	}
	c.log = logger.OrDiscard(c.log).With("stage", "collect")
	return c
}

// LastStats returns the counters of the most recent Collect call.
func (c *Collector) LastStats() Stats {
	return c.stats
}

// Collect gathers at most target unique records matching term. A failed
// query counts as zero results; it never aborts the run. The only error
// returned is context cancellation, together with what was gathered so far.
func (c *Collector) Collect(ctx context.Context, term string, target int) ([]record.Raw, error) {
	c.stats = Stats{}
	if target <= 0 {
		c.log.Info("nothing to collect", "target", target)
		return []record.Raw{}, nil
	}

	seen := NewSeen()
	out := make([]record.Raw, 0, min(target, MaxLimit))

	c.log.Info("collection started", "term", term, "target", target)
	for _, q := range Plan(term, c.limit) {
		if seen.Len() >= target {
			break
		}

		before := seen.Len()
		hits, err := c.searcher.Search(ctx, q)
		c.stats.Queries++
		if err != nil {
			c.stats.Failures++
			c.log.Warn("query failed", "sort", q.Sort, "window", q.Window, "err", err)
		} else {
			c.stats.Hits += len(hits)
			out = c.admit(out, hits, seen, target)
			c.log.Info("query done",
				"sort", q.Sort, "window", q.Window,
				"returned", len(hits), "new", seen.Len()-before,
				"total", seen.Len(), "target", target)
		}

		if err := c.sleep(ctx, c.delay); err != nil {
			c.stats.Admitted = len(out)
			c.log.Warn("collection interrupted", "total", len(out), "err", err)
			return out, err
		}
	}

	c.stats.Admitted = len(out)
	c.log.Info("collection finished", "unique", len(out), "queries", c.stats.Queries, "failures", c.stats.Failures)
	return out, nil
}

func (c *Collector) admit(out []record.Raw, hits []Hit, seen *Seen, target int) []record.Raw {
	for _, h := range hits {
		if seen.Len() >= target {
			break
		}
		if h.ID == "" || !seen.Admit(h.ID) {
			continue
		}
		out = append(out, record.NewRaw(h.ID, h.CreatedAt, h.Title))
	}
	return out
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
