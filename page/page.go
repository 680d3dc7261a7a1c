// Package page derives a page's identity and reads the metadata the
// comment binder needs, either from a live URL or from a built file.
package page

import (
	"net/url"
	"regexp"
	"sync"
)

// extPattern matches one trailing file extension.
var extPattern = regexp.MustCompile(`\.\w+$`)

// Identity derives the stable key for a page from its URL path: the
// leading slash and a trailing extension are dropped, and the site root
// becomes "index".
func Identity(path string) string {
	if len(path) < 2 {
		return "index"
	}
	return extPattern.ReplaceAllString(path[1:], "")
}

// Page is what the binder knows about one page.
type Page struct {
	URL         string // location of the page as loaded
	Identity    string
	Title       string
	Description string
	DocumentURL string // canonical link, or origin+path+query
	Path        string // local file, when read from a built site
}

// FromURL returns a Page with identity and document URL derived from
// rawURL and no further metadata.
func FromURL(rawURL string) (Page, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return Page{}, err
	}
	return Page{
		URL:         rawURL,
		Identity:    Identity(u.EscapedPath()),
		DocumentURL: documentURL(u),
	}, nil
}

// documentURL drops the fragment and anything else a browser's
// origin+pathname+search would not include.
func documentURL(u *url.URL) string {
	out := url.URL{Scheme: u.Scheme, Host: u.Host, Path: u.Path, RawPath: u.RawPath, RawQuery: u.RawQuery}
	if out.Path == "" && out.Host != "" {
		out.Path = "/"
	}
	return out.String()
}

// Result is one collected page, or the error that prevented it.
type Result struct {
	URL  string // the URL as requested
	Page Page
	Err  error
}

// Store is a thread-safe collection of results keyed by requested URL.
type Store struct {
	mu      sync.Mutex
	results []Result
	seen    map[string]bool
}

func NewStore() *Store {
	return &Store{
		seen: make(map[string]bool),
	}
}

// Add keeps the first result recorded for a URL.
func (s *Store) Add(r Result) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.seen[r.URL] {
		return
	}
	s.seen[r.URL] = true
	s.results = append(s.results, r)
}

func (s *Store) Has(url string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.seen[url]
}

func (s *Store) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.results)
}

// Results returns the results ordered like order, followed by any URL
// not listed there.
func (s *Store) Results(order []string) []Result {
	s.mu.Lock()
	defer s.mu.Unlock()

	byURL := make(map[string]Result, len(s.results))
	for _, r := range s.results {
		byURL[r.URL] = r
	}

	out := make([]Result, 0, len(s.results))
	for _, u := range order {
		if r, ok := byURL[u]; ok {
			out = append(out, r)
			delete(byURL, u)
		}
	}
	for _, r := range s.results {
		if _, ok := byURL[r.URL]; ok {
			out = append(out, r)
		}
	}
	return out
}
