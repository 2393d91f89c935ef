package graph

import (
	"path"
	"strings"

	"github.com/yuin/goldmark"
	gmast "github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// extractDocLinks parses a Markdown body and returns link destinations
// that point at corpus documents: relative paths with the source suffix or
// with no suffix at all. External URLs, absolute paths and pure anchors
// are not inclusion relations.
func extractDocLinks(body []byte, suffix string) []string {
	md := goldmark.New()
	root := md.Parser().Parse(text.NewReader(body))

	var targets []string
	_ = gmast.Walk(root, func(n gmast.Node, entering bool) (gmast.WalkStatus, error) {
		if !entering {
			return gmast.WalkContinue, nil
		}
		link, ok := n.(*gmast.Link)
		if !ok {
			return gmast.WalkContinue, nil
		}
		dest := string(link.Destination)
		if t, ok := documentTarget(dest, suffix); ok {
			targets = append(targets, t)
		}
		return gmast.WalkContinue, nil
	})
	return targets
}

func documentTarget(dest, suffix string) (string, bool) {
	if dest == "" || strings.HasPrefix(dest, "#") || strings.HasPrefix(dest, "/") {
		return "", false
	}
	if strings.Contains(dest, "://") || strings.HasPrefix(dest, "mailto:") {
		return "", false
	}
	if i := strings.IndexAny(dest, "#?"); i >= 0 {
		dest = dest[:i]
	}
	if dest == "" {
		return "", false
	}
	if ext := path.Ext(dest); ext != "" && ext != suffix {
		return "", false
	}
	return dest, true
}

// resolveLink turns a link destination found in doc into the DocID of the
// target, resolved against the including document's directory.
func resolveLink(doc DocID, target, suffix string) DocID {
	base := path.Dir(string(doc))
	return Normalize(path.Join(base, target), suffix)
}

// documentTitle returns the text of the first heading, falling back to the
// docname for documents without one.
func documentTitle(body []byte, docname string) string {
	md := goldmark.New()
	root := md.Parser().Parse(text.NewReader(body))

	title := docname
	_ = gmast.Walk(root, func(n gmast.Node, entering bool) (gmast.WalkStatus, error) {
		if !entering {
			return gmast.WalkContinue, nil
		}
		if h, ok := n.(*gmast.Heading); ok {
			var b strings.Builder
			for c := h.FirstChild(); c != nil; c = c.NextSibling() {
				if t, ok := c.(*gmast.Text); ok {
					b.Write(t.Segment.Value(body))
				}
			}
			if b.Len() > 0 {
				title = b.String()
			}
			return gmast.WalkStop, nil
		}
		return gmast.WalkContinue, nil
	})
	return title
}
