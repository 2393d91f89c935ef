package writer

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/docwright/internal/diag"
	"git.home.luguber.info/inful/docwright/internal/doctree"
	"git.home.luguber.info/inful/docwright/internal/extension"
	"git.home.luguber.info/inful/docwright/internal/graph"
)

func htmlTree(doc, body string) *doctree.Tree {
	return &doctree.Tree{
		Docname:    doc,
		SourcePath: doc + ".md",
		Title:      "Title of " + doc,
		Body:       []byte(body),
	}
}

func TestHTMLWriterRendersDocument(t *testing.T) {
	dir := t.TempDir()
	w := NewHTMLWriter(dir, "abc123")
	ctx := context.Background()

	require.NoError(t, w.PrepareWriting(ctx, []graph.DocID{"guide/intro"}))
	require.NoError(t, w.SerializeMainProcess("guide/intro", nil))

	rec := diag.NewRecorder()
	require.NoError(t, w.WriteDocument(ctx, "guide/intro", htmlTree("guide/intro", "# Hello\n\nworld"), rec))

	out, err := os.ReadFile(filepath.Join(dir, "guide", "intro.html"))
	require.NoError(t, err)
	assert.Contains(t, string(out), "<title>Title of guide/intro</title>")
	assert.Contains(t, string(out), "<h1>Hello</h1>")
	assert.Contains(t, string(out), "<p>world</p>")
}

func TestHTMLWriterRequiresSerializationFirst(t *testing.T) {
	w := NewHTMLWriter(t.TempDir(), "")
	err := w.WriteDocument(context.Background(), "index", htmlTree("index", "x"), diag.NewRecorder())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "template not compiled")
}

func TestHTMLWriterBuildInfoIsDeferred(t *testing.T) {
	dir := t.TempDir()
	w := NewHTMLWriter(dir, "abc123")
	ctx := context.Background()

	require.NoError(t, w.PrepareWriting(ctx, nil))
	require.NoError(t, w.SerializeMainProcess("index", nil))
	require.NoError(t, w.WriteDocument(ctx, "index", htmlTree("index", "hi"), diag.NewRecorder()))

	var tasks []func() error
	require.NoError(t, w.Finish(ctx, func(fn func() error) { tasks = append(tasks, fn) }))
	require.Len(t, tasks, 1)

	// Not written until the orchestrator drains the task.
	_, err := os.Stat(filepath.Join(dir, ".buildinfo"))
	assert.True(t, os.IsNotExist(err))

	require.NoError(t, tasks[0]())
	info, err := os.ReadFile(filepath.Join(dir, ".buildinfo"))
	require.NoError(t, err)
	assert.Contains(t, string(info), "revision: abc123")
	assert.Contains(t, string(info), "documents: 1")
}

func TestHTMLWriterResolvesImageWildcards(t *testing.T) {
	srcDir := t.TempDir()
	outDir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(srcDir, "guide"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(srcDir, "guide", "flow.svg"), []byte("<svg/>"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(srcDir, "guide", "flow.png"), []byte("png"), 0o644))

	w := NewHTMLWriter(outDir, "").
		WithImageSelector(extension.NewPreferredFormatSelector(), srcDir)
	ctx := context.Background()
	require.NoError(t, w.PrepareWriting(ctx, nil))
	require.NoError(t, w.SerializeMainProcess("guide/intro", nil))

	tree := htmlTree("guide/intro", "![flow](flow.*)")
	require.NoError(t, w.WriteDocument(ctx, "guide/intro", tree, diag.NewRecorder()))

	out, err := os.ReadFile(filepath.Join(outDir, "guide", "intro.html"))
	require.NoError(t, err)
	assert.Contains(t, string(out), `src="flow.svg"`)
	assert.NotContains(t, string(out), "flow.*")

	// The selected file is copied by a deferred finish task.
	var tasks []func() error
	require.NoError(t, w.Finish(ctx, func(fn func() error) { tasks = append(tasks, fn) }))
	for _, task := range tasks {
		require.NoError(t, task())
	}
	copied, err := os.ReadFile(filepath.Join(outDir, "guide", "flow.svg"))
	require.NoError(t, err)
	assert.Equal(t, "<svg/>", string(copied))
}

func TestHTMLWriterWarnsOnUnmatchedImageWildcard(t *testing.T) {
	w := NewHTMLWriter(t.TempDir(), "").
		WithImageSelector(extension.NewPreferredFormatSelector(), t.TempDir())
	ctx := context.Background()
	require.NoError(t, w.SerializeMainProcess("index", nil))

	rec := diag.NewRecorder()
	require.NoError(t, w.WriteDocument(ctx, "index", htmlTree("index", "![x](missing.*)"), rec))

	records := rec.Records()
	require.Len(t, records, 2) // warning + verbose "wrote"
	assert.Contains(t, records[0].Message, `no matching candidate for image URI "missing.*"`)
}

func TestPreferredFormatSelectorOrder(t *testing.T) {
	sel := extension.NewPreferredFormatSelector(".png", ".svg")
	got, ok := sel.SelectCandidate("x.*", map[string]string{".svg": "x.svg", ".png": "x.png"})
	require.True(t, ok)
	assert.Equal(t, "x.png", got)

	_, ok = sel.SelectCandidate("x.*", map[string]string{".gif": "x.gif"})
	assert.False(t, ok)
}

func TestTextWriterWritesBodyAndToc(t *testing.T) {
	dir := t.TempDir()
	w := NewTextWriter(dir)
	ctx := context.Background()

	require.False(t, w.ParallelSafe())
	require.NoError(t, w.PrepareWriting(ctx, nil))
	require.NoError(t, w.WriteDocument(ctx, "a", htmlTree("a", "alpha"), diag.NewRecorder()))
	require.NoError(t, w.WriteDocument(ctx, "b", htmlTree("b", "beta"), diag.NewRecorder()))
	require.NoError(t, w.Finish(ctx, func(func() error) {}))

	body, err := os.ReadFile(filepath.Join(dir, "a.txt"))
	require.NoError(t, err)
	assert.Equal(t, "alpha", string(body))

	toc, err := os.ReadFile(filepath.Join(dir, "contents.txt"))
	require.NoError(t, err)
	assert.Equal(t, "Title of a\ta.txt\nTitle of b\tb.txt\n", string(toc))
}
