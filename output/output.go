package output

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"charm.land/glamour/v2"
	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"

	"github.com/Gaurav-Gosain/commentlink/binder"
	"github.com/Gaurav-Gosain/commentlink/config"
)

// Print writes every successful fragment to w in the given format and
// reports failures on stderr.
func Print(w io.Writer, results []binder.Result, format string, wordWrap int) error {
	switch format {
	case config.FormatHTML:
		for _, r := range ok(results) {
			fmt.Fprintf(w, "<!-- %s -->\n%s\n", r.Page.Identity, r.Fragment.HTML)
		}
		return nil
	case config.FormatMarkdown:
		for _, r := range ok(results) {
			md, err := toMarkdown(r)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error converting %s: %v\n", r.Page.Identity, err)
				continue
			}
			fmt.Fprintln(w, md)
		}
		return nil
	default:
		return RenderTerminal(w, results, wordWrap)
	}
}

// RenderTerminal renders all fragments using glamour.
func RenderTerminal(w io.Writer, results []binder.Result, wordWrap int) error {
	renderer, err := glamour.NewTermRenderer(
		glamour.WithEnvironmentConfig(),
		glamour.WithWordWrap(wordWrap),
	)
	if err != nil {
		return fmt.Errorf("failed to create renderer: %w", err)
	}

	for _, r := range ok(results) {
		md, err := toMarkdown(r)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error converting %s: %v\n", r.Page.Identity, err)
			continue
		}
		rendered, err := renderer.Render(md)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error rendering %s: %v\n", r.Page.Identity, err)
			continue
		}
		fmt.Fprint(w, rendered)
	}
	return nil
}

// RenderDraft prints a new-issue draft as markdown.
func RenderDraft(w io.Writer, d binder.Draft, wordWrap int, plain bool) error {
	md := fmt.Sprintf("**Title:** `%s`\n\n**Open:** <%s>\n\n---\n\n%s\n", d.Title, d.URL, d.Body)
	if plain {
		_, err := io.WriteString(w, md)
		return err
	}

	renderer, err := glamour.NewTermRenderer(
		glamour.WithEnvironmentConfig(),
		glamour.WithWordWrap(wordWrap),
	)
	if err != nil {
		return fmt.Errorf("failed to create renderer: %w", err)
	}
	rendered, err := renderer.Render(md)
	if err != nil {
		return fmt.Errorf("failed to render draft: %w", err)
	}
	_, err = io.WriteString(w, rendered)
	return err
}

// WriteFiles writes each fragment as an .html file named after the
// page identity.
func WriteFiles(results []binder.Result, dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	for _, r := range ok(results) {
		path := filepath.Join(dir, identityToFilename(r.Page.Identity))
		if err := os.WriteFile(path, []byte(r.Fragment.HTML+"\n"), 0o644); err != nil {
			fmt.Fprintf(os.Stderr, "Error writing %s: %v\n", path, err)
			continue
		}
		fmt.Fprintf(os.Stderr, "Saved: %s\n", path)
	}
	return nil
}

// ok reports failed results on stderr and returns the rest.
func ok(results []binder.Result) []binder.Result {
	out := make([]binder.Result, 0, len(results))
	for _, r := range results {
		if r.Err != nil {
			fmt.Fprintf(os.Stderr, "Error resolving %s: %v\n", r.Page.Identity, r.Err)
			continue
		}
		out = append(out, r)
	}
	return out
}

func toMarkdown(r binder.Result) (string, error) {
	body, err := htmltomarkdown.ConvertString(r.Fragment.HTML)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("# %s\n\n%s\n", r.Page.Identity, body), nil
}

// identityToFilename converts a page identity to a safe filename.
func identityToFilename(identity string) string {
	name := strings.ReplaceAll(identity, "/", "-")
	name = strings.Trim(name, "-")

	if name == "" {
		name = "index"
	}
	return name + ".html"
}
