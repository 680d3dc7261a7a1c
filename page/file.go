package page

import (
	"fmt"
	"io"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// ParseHTML reads page metadata from an HTML document served at pageURL.
func ParseHTML(r io.Reader, pageURL string) (Page, error) {
	p, err := FromURL(pageURL)
	if err != nil {
		return Page{}, fmt.Errorf("invalid page URL: %w", err)
	}

	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return Page{}, fmt.Errorf("failed to parse HTML: %w", err)
	}

	p.Title = collapseSpace(doc.Find("head > title").First().Text())
	p.Description, _ = doc.Find("meta[name='description']").First().Attr("content")

	if href, ok := doc.Find("link[rel='canonical']").First().Attr("href"); ok && href != "" {
		p.DocumentURL = resolveRef(pageURL, href)
	}
	return p, nil
}

// ReadFile parses a built HTML file that will be served at pageURL.
func ReadFile(path, pageURL string) (Page, error) {
	f, err := os.Open(path)
	if err != nil {
		return Page{}, err
	}
	defer f.Close()

	p, err := ParseHTML(f, pageURL)
	if err != nil {
		return Page{}, fmt.Errorf("%s: %w", path, err)
	}
	p.Path = path
	return p, nil
}

// SiteFile is an HTML file of a built site and the URL it is served at.
type SiteFile struct {
	Path string
	URL  string
}

// WalkSite lists the HTML files under root, in lexical order, mapping
// each to baseURL plus its slash-separated relative path.
func WalkSite(root, baseURL string) ([]SiteFile, error) {
	base := strings.TrimSuffix(baseURL, "/")

	var files []SiteFile
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		switch strings.ToLower(filepath.Ext(path)) {
		case ".html", ".htm":
		default:
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		files = append(files, SiteFile{
			Path: path,
			URL:  base + "/" + escapePath(filepath.ToSlash(rel)),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk site directory: %w", err)
	}
	return files, nil
}

func escapePath(p string) string {
	return (&url.URL{Path: p}).EscapedPath()
}

func resolveRef(base, ref string) string {
	b, err := url.Parse(base)
	if err != nil {
		return ref
	}
	r, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	return b.ResolveReference(r).String()
}
