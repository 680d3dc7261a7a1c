package issues

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"charm.land/log/v2"
)

// Issue is a candidate thread from a search.
type Issue struct {
	Title   string `json:"title"`
	HTMLURL string `json:"html_url"`
}

// SearchResult is the body of a search/issues response.
type SearchResult struct {
	TotalCount int     `json:"total_count"`
	Items      []Issue `json:"items"`
}

// Outcome is the result of resolving a term: either an existing issue
// was found or none exists yet.
type Outcome struct {
	Found bool
	Issue Issue
}

// NotFound is the outcome when no issue matches.
var NotFound = Outcome{}

// Found wraps an existing issue.
func Found(issue Issue) Outcome {
	return Outcome{Found: true, Issue: issue}
}

// Resolver looks up the issue for a term in one fixed repository.
type Resolver struct {
	client *Client
	repo   Repo
	logger *log.Logger
}

// NewResolver creates a Resolver searching repo through client.
func NewResolver(client *Client, repo Repo) *Resolver {
	return &Resolver{client: client, repo: repo, logger: client.logger}
}

// Repo returns the repository the resolver searches.
func (r *Resolver) Repo() Repo {
	return r.repo
}

// Query builds the search query for term. The term is not lowercased;
// GitHub's phrase match is case-insensitive already.
func (r *Resolver) Query(term string) string {
	return fmt.Sprintf(`"%s" type:issue in:title repo:%s`, term, r.repo)
}

// ResolveByTerm searches for issues whose title contains term, oldest
// first. A non-2xx response is an error, not a NotFound.
func (r *Resolver) ResolveByTerm(ctx context.Context, term string) (Outcome, error) {
	q := r.Query(term)
	params := url.Values{
		"q":     {q},
		"sort":  {"created"},
		"order": {"asc"},
	}

	req, err := r.client.newRequest(ctx, "search/issues?"+params.Encode())
	if err != nil {
		return NotFound, err
	}

	resp, err := r.client.do(req)
	if err != nil {
		return NotFound, fmt.Errorf("search request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return NotFound, &SearchError{StatusCode: resp.StatusCode, Query: q}
	}

	var results SearchResult
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
		return NotFound, fmt.Errorf("failed to decode search results: %w", err)
	}

	return r.match(q, term, results), nil
}

// match picks the issue for term out of a search result. The first
// item whose title contains term wins; failing that, the first item is
// used anyway so the choice agrees with what utterances displays.
func (r *Resolver) match(q, term string, results SearchResult) Outcome {
	if results.TotalCount == 0 || len(results.Items) == 0 {
		return NotFound
	}
	if results.TotalCount > 1 {
		r.logger.Warnf(`Multiple issues match "%s".`, q)
	}

	term = strings.ToLower(term)
	for _, item := range results.Items {
		if strings.Contains(strings.ToLower(item.Title), term) {
			return Found(item)
		}
	}

	r.logger.Warnf("Issue search results do not contain an issue with title matching \"%s\". Using first result.", term)
	return Found(results.Items[0])
}
