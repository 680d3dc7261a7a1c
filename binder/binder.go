// Package binder turns a resolution outcome into the manual-commenting
// fragment shown under a page's comments.
package binder

import (
	"context"
	"fmt"
	"html"
	"net/url"
	"strings"

	"github.com/Gaurav-Gosain/commentlink/issues"
	"github.com/Gaurav-Gosain/commentlink/page"
)

// DefaultTrackerHost is where new issues are opened.
const DefaultTrackerHost = "github.com"

const openingQuestion = `Don't want to authorize <a target="_blank" rel="noopener noreferrer" href="https://utteranc.es/">utterances</a> to post comments with your GitHub account?`

// Resolver finds the existing issue for a term.
type Resolver interface {
	ResolveByTerm(ctx context.Context, term string) (issues.Outcome, error)
	Repo() issues.Repo
}

// Draft is the issue a reader is invited to open when none exists.
type Draft struct {
	Title string
	Body  string // markdown
	URL   string // prefilled issues/new link
}

// Fragment is the HTML placed in the page's commenting container.
type Fragment struct {
	HTML    string
	Outcome issues.Outcome
	Draft   *Draft // set when no issue exists
}

// Binder resolves pages and renders their fragments.
type Binder struct {
	resolver    Resolver
	trackerHost string
}

// New creates a Binder. An empty trackerHost means DefaultTrackerHost.
func New(resolver Resolver, trackerHost string) *Binder {
	if trackerHost == "" {
		trackerHost = DefaultTrackerHost
	}
	return &Binder{resolver: resolver, trackerHost: trackerHost}
}

// Bind resolves the page's identity and renders the matching fragment.
// Resolution errors are returned as-is and no fragment is produced.
func (b *Binder) Bind(ctx context.Context, p page.Page) (Fragment, error) {
	outcome, err := b.resolver.ResolveByTerm(ctx, p.Identity)
	if err != nil {
		return Fragment{}, err
	}
	return b.Render(outcome, p), nil
}

// Render builds the fragment for an outcome without any network access.
func (b *Binder) Render(outcome issues.Outcome, p page.Page) Fragment {
	if outcome.Found {
		return Fragment{
			HTML:    FoundHTML(outcome.Issue.HTMLURL),
			Outcome: outcome,
		}
	}

	d := b.Draft(p)
	return Fragment{
		HTML:    NewIssueHTML(d.URL),
		Outcome: outcome,
		Draft:   &d,
	}
}

// Draft returns the new-issue draft for a page.
func (b *Binder) Draft(p page.Page) Draft {
	repo := b.resolver.Repo()
	body := fmt.Sprintf("# %s\n\n%s\n\n[%s](%s)", p.Title, p.Description, p.DocumentURL, p.DocumentURL)
	return Draft{
		Title: p.Identity,
		Body:  body,
		URL: fmt.Sprintf("https://%s/%s/%s/issues/new?title=%s&body=%s",
			b.trackerHost, repo.Owner, repo.Name, EncodeComponent(p.Identity), EncodeComponent(body)),
	}
}

// FoundHTML links to an existing issue.
func FoundHTML(issueURL string) string {
	return openingQuestion + `<br><a target="_blank" rel="noopener noreferrer" href="` + html.EscapeString(issueURL) +
		`">Leave a comment on this GitHub issue</a>, and it will be visible to everyone below.`
}

// NewIssueHTML links to a prefilled new issue.
func NewIssueHTML(newIssueURL string) string {
	return openingQuestion + `<br><a target="_blank" rel="noopener noreferrer" href="` + html.EscapeString(newIssueURL) +
		`">Make a new GitHub issue and then leave a comment on it.</a> Your comment will be visible to everyone below.`
}

// componentMarks undoes the escapes url.QueryEscape applies beyond
// encodeURIComponent's set.
var componentMarks = strings.NewReplacer(
	"+", "%20",
	"%21", "!",
	"%27", "'",
	"%28", "(",
	"%29", ")",
	"%2A", "*",
)

// EncodeComponent percent-encodes s for use inside a query value the
// way encodeURIComponent does.
func EncodeComponent(s string) string {
	return componentMarks.Replace(url.QueryEscape(s))
}
