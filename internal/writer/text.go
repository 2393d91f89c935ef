package writer

import (
	"context"
	"os"
	"path/filepath"

	"git.home.luguber.info/inful/docwright/internal/diag"
	"git.home.luguber.info/inful/docwright/internal/doctree"
	"git.home.luguber.info/inful/docwright/internal/graph"
)

// TextWriter dumps document bodies as plain text. It keeps a shared
// cursor for its table-of-contents file, so it declares itself unsafe for
// parallel writing and forces the scheduler onto the serial path.
type TextWriter struct {
	outDir string
	toc    *os.File
}

func NewTextWriter(outDir string) *TextWriter {
	return &TextWriter{outDir: outDir}
}

func (w *TextWriter) Name() string { return "text" }

func (w *TextWriter) ParallelSafe() bool { return false }

func (w *TextWriter) PrepareWriting(_ context.Context, _ []graph.DocID) error {
	if err := os.MkdirAll(w.outDir, 0o755); err != nil {
		return err
	}
	f, err := os.Create(filepath.Join(w.outDir, "contents.txt"))
	if err != nil {
		return err
	}
	w.toc = f
	return nil
}

func (w *TextWriter) SerializeMainProcess(_ graph.DocID, _ *doctree.Tree) error {
	return nil
}

func (w *TextWriter) WriteDocument(_ context.Context, docname graph.DocID, tree *doctree.Tree, rep diag.Reporter) error {
	outPath := filepath.Join(w.outDir, filepath.FromSlash(string(docname))+".txt")
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return err
	}
	if err := os.WriteFile(outPath, tree.Body, 0o644); err != nil {
		return err
	}
	if w.toc != nil {
		if _, err := w.toc.WriteString(tree.Title + "\t" + string(docname) + ".txt\n"); err != nil {
			return err
		}
	}
	rep.Verbose("wrote " + string(docname))
	return nil
}

func (w *TextWriter) Finish(_ context.Context, _ func(func() error)) error {
	if w.toc == nil {
		return nil
	}
	err := w.toc.Close()
	w.toc = nil
	return err
}

var _ Writer = (*TextWriter)(nil)
