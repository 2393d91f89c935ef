package writer

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/yuin/goldmark"
	gmast "github.com/yuin/goldmark/ast"
	gmtext "github.com/yuin/goldmark/text"

	"git.home.luguber.info/inful/docwright/internal/diag"
	"git.home.luguber.info/inful/docwright/internal/doctree"
	"git.home.luguber.info/inful/docwright/internal/extension"
	"git.home.luguber.info/inful/docwright/internal/graph"
)

const defaultPageTemplate = `<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><title>{{.Title}}</title></head>
<body>
{{.Body}}
</body>
</html>
`

// HTMLWriter renders Markdown bodies through goldmark into a page
// template. The template compiles once, in the main process: that is the
// cold-start cost the parallel warm-up document exists to absorb.
type HTMLWriter struct {
	outDir   string
	revision string

	md goldmark.Markdown

	images extension.ImageSelector
	srcDir string

	tmplOnce sync.Once
	tmpl     *template.Template
	tmplErr  error

	mu       sync.Mutex
	written  int
	copylist map[string]string
}

// NewHTMLWriter creates a writer emitting into outDir. revision is the
// source checkout revision recorded in the build-info file, or empty.
func NewHTMLWriter(outDir, revision string) *HTMLWriter {
	return &HTMLWriter{
		outDir:   outDir,
		revision: revision,
		md:       goldmark.New(),
	}
}

// WithImageSelector enables wildcard image resolution: references like
// "diagram.*" are resolved against sibling files under srcDir, the
// selector picks the candidate, and selected files are copied to the
// output during Finish.
func (w *HTMLWriter) WithImageSelector(sel extension.ImageSelector, srcDir string) *HTMLWriter {
	w.images = sel
	w.srcDir = srcDir
	w.copylist = make(map[string]string)
	return w
}

func (w *HTMLWriter) Name() string { return "html" }

func (w *HTMLWriter) ParallelSafe() bool { return true }

func (w *HTMLWriter) PrepareWriting(_ context.Context, _ []graph.DocID) error {
	return os.MkdirAll(w.outDir, 0o755)
}

// SerializeMainProcess compiles the page template exactly once.
func (w *HTMLWriter) SerializeMainProcess(_ graph.DocID, _ *doctree.Tree) error {
	w.tmplOnce.Do(func() {
		w.tmpl, w.tmplErr = template.New("page").Parse(defaultPageTemplate)
	})
	return w.tmplErr
}

func (w *HTMLWriter) WriteDocument(_ context.Context, docname graph.DocID, tree *doctree.Tree, rep diag.Reporter) error {
	if w.tmpl == nil {
		// Serial path and warm-up both call SerializeMainProcess first;
		// reaching here without a template is a scheduler bug.
		return fmt.Errorf("html writer: template not compiled before writing %s", docname)
	}

	root := w.md.Parser().Parse(gmtext.NewReader(tree.Body))
	if w.images != nil {
		if err := w.resolveImages(root, docname, rep); err != nil {
			return err
		}
	}

	var body bytes.Buffer
	if err := w.md.Renderer().Render(&body, tree.Body, root); err != nil {
		if werr := rep.Warning(fmt.Sprintf("markup conversion failed: %v", err),
			diag.WithLocation(diag.InDocument(string(docname))),
			diag.Tagged("html", "convert")); werr != nil {
			return werr
		}
		body.Reset()
		body.WriteString("<pre>")
		template.HTMLEscape(&body, tree.Body)
		body.WriteString("</pre>")
	}

	outPath := filepath.Join(w.outDir, filepath.FromSlash(string(docname))+".html")
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return err
	}
	f, err := os.Create(outPath)
	if err != nil {
		return err
	}
	defer f.Close()

	err = w.tmpl.Execute(f, map[string]any{
		"Title": tree.Title,
		// goldmark output is trusted markup here, not user HTML.
		"Body": template.HTML(body.String()),
	})
	if err != nil {
		return err
	}

	w.mu.Lock()
	w.written++
	w.mu.Unlock()
	rep.Verbose("wrote " + string(docname))
	return nil
}

// resolveImages rewrites wildcard image destinations ("diagram.*") in
// place and queues the selected files for copying during Finish.
func (w *HTMLWriter) resolveImages(root gmast.Node, docname graph.DocID, rep diag.Reporter) error {
	var warnErr error
	_ = gmast.Walk(root, func(n gmast.Node, entering bool) (gmast.WalkStatus, error) {
		if !entering {
			return gmast.WalkContinue, nil
		}
		img, ok := n.(*gmast.Image)
		if !ok {
			return gmast.WalkContinue, nil
		}
		dest := string(img.Destination)
		if !strings.HasSuffix(dest, ".*") || strings.Contains(dest, "://") || strings.HasPrefix(dest, "/") {
			return gmast.WalkContinue, nil
		}
		chosen, ok := w.selectImage(docname, dest)
		if !ok {
			warnErr = rep.Warning(fmt.Sprintf("no matching candidate for image URI %q", dest),
				diag.WithLocation(diag.InDocument(string(docname))),
				diag.Tagged("image", "not_readable"))
			if warnErr != nil {
				return gmast.WalkStop, nil
			}
			return gmast.WalkContinue, nil
		}
		img.Destination = []byte(chosen)
		return gmast.WalkContinue, nil
	})
	return warnErr
}

// selectImage globs the sibling candidates for a wildcard reference and
// asks the selector to pick one. The returned URI is document-relative.
func (w *HTMLWriter) selectImage(docname graph.DocID, dest string) (string, bool) {
	stem := strings.TrimSuffix(dest, ".*")
	docDir := path.Dir(string(docname))
	rel := path.Join(docDir, stem)

	matches, err := filepath.Glob(filepath.Join(w.srcDir, filepath.FromSlash(rel)) + ".*")
	if err != nil || len(matches) == 0 {
		return "", false
	}
	candidates := make(map[string]string, len(matches))
	for _, m := range matches {
		candidates[filepath.Ext(m)] = stem + filepath.Ext(m)
	}

	chosen, ok := w.images.SelectCandidate(dest, candidates)
	if !ok {
		return "", false
	}
	outRel := path.Join(docDir, chosen)
	w.mu.Lock()
	w.copylist[outRel] = filepath.Join(w.srcDir, filepath.FromSlash(outRel))
	w.mu.Unlock()
	return chosen, true
}

// Finish defers the build-info file so it records the final document
// count after every chunk has completed.
func (w *HTMLWriter) Finish(_ context.Context, addTask func(func() error)) error {
	if len(w.copylist) > 0 {
		addTask(w.copyImages)
	}
	addTask(func() error {
		w.mu.Lock()
		written := w.written
		w.mu.Unlock()

		info := fmt.Sprintf("build: %s\nrevision: %s\ndocuments: %d\ndate: %s\n",
			uuid.NewString(), w.revision, written, time.Now().UTC().Format(time.RFC3339))
		return os.WriteFile(filepath.Join(w.outDir, ".buildinfo"), []byte(info), 0o644)
	})
	return nil
}

func (w *HTMLWriter) copyImages() error {
	w.mu.Lock()
	images := make(map[string]string, len(w.copylist))
	for rel, src := range w.copylist {
		images[rel] = src
	}
	w.mu.Unlock()

	for rel, src := range images {
		dst := filepath.Join(w.outDir, filepath.FromSlash(rel))
		if err := copyFile(src, dst); err != nil {
			return fmt.Errorf("copying image %s: %w", rel, err)
		}
	}
	return nil
}

func copyFile(src, dst string) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()
	_, err = io.Copy(out, in)
	return err
}

var _ Writer = (*HTMLWriter)(nil)
