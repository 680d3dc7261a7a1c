package binder

import (
	"context"

	"golang.org/x/time/rate"

	"github.com/Gaurav-Gosain/commentlink/page"
)

// Event is emitted while binding pages for progress tracking.
type Event struct {
	Type     string // "resolving", "found", "missing", "error"
	Identity string
	URL      string // issue URL for "found" events
	Err      error  // only for "error" events
}

// RunOptions configures Run.
type RunOptions struct {
	// Limiter paces search requests; nil means no pacing.
	Limiter *rate.Limiter
	OnEvent func(Event)
}

func (o *RunOptions) emit(e Event) {
	if o.OnEvent != nil {
		o.OnEvent(e)
	}
}

// Result pairs a page with its fragment or the error that prevented it.
type Result struct {
	Page     page.Page
	Fragment Fragment
	Err      error
}

// Run binds pages one at a time, in order, so that at most one search
// request is in flight. A failed page does not stop the run; a
// cancelled context does, returning the results so far along with the
// context's error.
func Run(ctx context.Context, b *Binder, pages []page.Page, opts RunOptions) ([]Result, error) {
	results := make([]Result, 0, len(pages))

	for _, p := range pages {
		if opts.Limiter != nil {
			if err := opts.Limiter.Wait(ctx); err != nil {
				return results, err
			}
		}
		if err := ctx.Err(); err != nil {
			return results, err
		}

		opts.emit(Event{Type: "resolving", Identity: p.Identity})

		frag, err := b.Bind(ctx, p)
		results = append(results, Result{Page: p, Fragment: frag, Err: err})

		switch {
		case err != nil:
			opts.emit(Event{Type: "error", Identity: p.Identity, Err: err})
		case frag.Outcome.Found:
			opts.emit(Event{Type: "found", Identity: p.Identity, URL: frag.Outcome.Issue.HTMLURL})
		default:
			opts.emit(Event{Type: "missing", Identity: p.Identity})
		}
	}

	return results, ctx.Err()
}
