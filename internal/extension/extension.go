// Package extension holds the registry of active extensions and the
// collaborator interfaces the build core consumes but does not implement.
package extension

import (
	"context"

	"git.home.luguber.info/inful/docwright/internal/diag"
)

// Extension describes one registered extension as the scheduler sees it.
// An extension that cannot guarantee parallel-write safety forces the
// entire write phase onto the serial path.
type Extension struct {
	Name              string
	ParallelWriteSafe bool
}

// Registry is the ordered list of active extensions.
type Registry struct {
	exts []Extension
}

func NewRegistry() *Registry { return &Registry{} }

// Register appends an extension. Registration order is reporting order.
func (r *Registry) Register(ext Extension) {
	r.exts = append(r.exts, ext)
}

// All returns the registered extensions in registration order.
func (r *Registry) All() []Extension {
	if r == nil {
		return nil
	}
	return r.exts
}

// ImageSelector picks the best image candidate for a target format.
// candidates maps file extension to a candidate URI; uri is the wildcard
// reference as written in the document.
type ImageSelector interface {
	SelectCandidate(uri string, candidates map[string]string) (string, bool)
}

// PreferredFormatSelector selects the first candidate whose extension
// appears in its preference order.
type PreferredFormatSelector struct {
	order []string
}

// NewPreferredFormatSelector builds a selector preferring the given
// extensions in order. No arguments means the HTML-friendly default.
func NewPreferredFormatSelector(order ...string) *PreferredFormatSelector {
	if len(order) == 0 {
		order = []string{".svg", ".png", ".jpg", ".jpeg", ".gif"}
	}
	return &PreferredFormatSelector{order: order}
}

func (s *PreferredFormatSelector) SelectCandidate(_ string, candidates map[string]string) (string, bool) {
	for _, ext := range s.order {
		if c, ok := candidates[ext]; ok {
			return c, true
		}
	}
	return "", false
}

var _ ImageSelector = (*PreferredFormatSelector)(nil)

// CatalogCompiler compiles translation catalogs before writing. The
// catalog file format is owned by the implementation; the orchestrator
// only sequences the call and routes its diagnostics.
type CatalogCompiler interface {
	CompileCatalogs(ctx context.Context, rep diag.Reporter) error
}
