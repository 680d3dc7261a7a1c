package binder

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/PuerkitoBio/goquery"
)

// DefaultContainerID is the element the fragment is written into.
const DefaultContainerID = "manual-commenting"

// ErrNoContainer is returned when a document has no container element.
var ErrNoContainer = errors.New("container element not found")

// Inject replaces the content of the element with id containerID in the
// HTML read from r and writes the resulting document to w.
func Inject(r io.Reader, w io.Writer, containerID, fragment string) error {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return fmt.Errorf("failed to parse HTML: %w", err)
	}

	container := doc.Find(fmt.Sprintf("[id=%q]", containerID)).First()
	if container.Length() == 0 {
		return fmt.Errorf("%w: #%s", ErrNoContainer, containerID)
	}
	container.SetHtml(fragment)

	out, err := doc.Html()
	if err != nil {
		return fmt.Errorf("failed to render HTML: %w", err)
	}
	_, err = io.WriteString(w, out)
	return err
}

// InjectFile rewrites the HTML file at path in place.
func InjectFile(path, containerID, fragment string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	src, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	if err := Inject(bytes.NewReader(src), &buf, containerID, fragment); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	return os.WriteFile(path, buf.Bytes(), info.Mode().Perm())
}
