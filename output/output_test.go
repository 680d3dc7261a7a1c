package output

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Gaurav-Gosain/commentlink/binder"
	"github.com/Gaurav-Gosain/commentlink/config"
	"github.com/Gaurav-Gosain/commentlink/page"
)

var sample = []binder.Result{
	{
		Page:     page.Page{Identity: "posts/walrus"},
		Fragment: binder.Fragment{HTML: binder.FoundHTML("https://github.com/o/r/issues/1")},
	},
	{
		Page: page.Page{Identity: "posts/broken"},
		Err:  errors.New("boom"),
	},
}

func TestPrintHTML(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Print(&buf, sample, config.FormatHTML, 80))

	assert.Contains(t, buf.String(), "<!-- posts/walrus -->")
	assert.Contains(t, buf.String(), `href="https://github.com/o/r/issues/1"`)
	assert.NotContains(t, buf.String(), "posts/broken")
}

func TestPrintMarkdown(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Print(&buf, sample, config.FormatMarkdown, 80))

	assert.Contains(t, buf.String(), "# posts/walrus")
	assert.Contains(t, buf.String(), "(https://github.com/o/r/issues/1)")
}

func TestRenderDraftPlain(t *testing.T) {
	var buf bytes.Buffer
	d := binder.Draft{Title: "index", Body: "# Home", URL: "https://github.com/o/r/issues/new?title=index"}
	require.NoError(t, RenderDraft(&buf, d, 80, true))

	assert.Contains(t, buf.String(), "`index`")
	assert.Contains(t, buf.String(), "<https://github.com/o/r/issues/new?title=index>")
	assert.Contains(t, buf.String(), "# Home")
}

func TestWriteFiles(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	require.NoError(t, WriteFiles(sample, dir))

	got, err := os.ReadFile(filepath.Join(dir, "posts-walrus.html"))
	require.NoError(t, err)
	assert.Contains(t, string(got), "Leave a comment on this GitHub issue")

	_, err = os.Stat(filepath.Join(dir, "posts-broken.html"))
	assert.True(t, os.IsNotExist(err))
}

func TestIdentityToFilename(t *testing.T) {
	assert.Equal(t, "index.html", identityToFilename("index"))
	assert.Equal(t, "a-b-c.html", identityToFilename("a/b/c"))
	assert.Equal(t, "posts.html", identityToFilename("posts/"))
	assert.Equal(t, "index.html", identityToFilename(""))
}
