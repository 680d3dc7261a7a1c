package page

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gocolly/colly/v2"
)

// Event is emitted while collecting pages for progress tracking.
type Event struct {
	Type string // "fetching", "done", "error"
	URL  string
	Err  error // only for "error" events
}

// Options configures Collect.
type Options struct {
	URLs        []string
	Parallelism int
	Timeout     time.Duration // per request; 0 = 15s
	UserAgent   string
	OnEvent     func(Event) // optional progress callback
}

func (o *Options) emit(e Event) {
	if o.OnEvent != nil {
		o.OnEvent(e)
	}
}

const seedKey = "seed"

// Collect fetches every URL once (no crawling) and reads the title,
// canonical link and description meta of each page. Results come back
// in the order of opts.URLs; a page that could not be fetched carries
// its error.
func Collect(ctx context.Context, opts Options) ([]Result, error) {
	store := NewStore()

	collectorOpts := []colly.CollectorOption{
		colly.MaxDepth(1),
		colly.Async(),
	}
	if opts.UserAgent != "" {
		collectorOpts = append(collectorOpts, colly.UserAgent(opts.UserAgent))
	}
	c := colly.NewCollector(collectorOpts...)

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	c.SetRequestTimeout(timeout)

	parallelism := opts.Parallelism
	if parallelism <= 0 {
		parallelism = 1
	}
	_ = c.Limit(&colly.LimitRule{
		DomainGlob:  "*",
		Parallelism: parallelism,
	})

	c.OnRequest(func(r *colly.Request) {
		if ctx.Err() != nil {
			r.Abort()
			return
		}
		r.Headers.Set("Accept", "text/html")
		opts.emit(Event{Type: "fetching", URL: r.Ctx.Get(seedKey)})
	})

	c.OnHTML("html", func(e *colly.HTMLElement) {
		seed := e.Request.Ctx.Get(seedKey)
		p, err := FromURL(e.Request.URL.String())
		if err != nil {
			store.Add(Result{URL: seed, Err: err})
			return
		}
		p.Title = collapseSpace(e.ChildText("head > title"))
		p.Description = e.ChildAttr("meta[name='description']", "content")
		if href := e.ChildAttr("link[rel='canonical']", "href"); href != "" {
			p.DocumentURL = e.Request.AbsoluteURL(href)
		}
		store.Add(Result{URL: seed, Page: p})
	})

	c.OnScraped(func(r *colly.Response) {
		seed := r.Ctx.Get(seedKey)
		// Pages without an <html> element still get an identity.
		if !store.Has(seed) {
			p, err := FromURL(r.Request.URL.String())
			store.Add(Result{URL: seed, Page: p, Err: err})
		}
		opts.emit(Event{Type: "done", URL: seed})
	})

	c.OnError(func(r *colly.Response, err error) {
		// Silently ignore aborted requests (context cancellation).
		if ctx.Err() != nil {
			return
		}
		seed := r.Ctx.Get(seedKey)
		store.Add(Result{
			URL: seed,
			Err: fmt.Errorf("request failed (status %d): %w", r.StatusCode, err),
		})
		opts.emit(Event{Type: "error", URL: seed, Err: err})
	})

	queued := make(map[string]bool, len(opts.URLs))
	for _, u := range opts.URLs {
		if queued[u] {
			continue
		}
		queued[u] = true
		pctx := colly.NewContext()
		pctx.Put(seedKey, u)
		if err := c.Request("GET", u, nil, pctx, nil); err != nil {
			store.Add(Result{URL: u, Err: fmt.Errorf("invalid page URL: %w", err)})
			opts.emit(Event{Type: "error", URL: u, Err: err})
		}
	}

	c.Wait()

	if err := ctx.Err(); err != nil {
		return store.Results(opts.URLs), err
	}
	return store.Results(opts.URLs), nil
}

// collapseSpace normalizes whitespace the way document.title does.
func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
