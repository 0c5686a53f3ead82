package guard

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/haukened/popcorn/internal/popcorn/common/log"
	"github.com/haukened/popcorn/internal/popcorn/gateways/page"
)

// Sentinel removes injected ad elements: iframes whose src is blocked, and
// any element whose class or id contains a keyword. Keywords match as
// substrings, so "header" matches "ad"; such false positives are accepted.
type Sentinel struct {
	classifier Classifier
	keywords   []string
	logger     log.Logger
}

// NewSentinel returns a Sentinel using keywords (expected lower-case).
func NewSentinel(classifier Classifier, keywords []string, logger log.Logger) *Sentinel {
	return &Sentinel{classifier: classifier, keywords: keywords, logger: logger}
}

// Observer returns a mutation callback for doc. Only the added nodes
// themselves are inspected. The callback never panics.
func (s *Sentinel) Observer(doc *page.Document) page.MutationCallback {
	return func(records []page.MutationRecord) {
		defer func() {
			if r := recover(); r != nil {
				s.logger.Error(map[string]any{"panic": fmt.Sprint(r)}, "dom sentinel callback failed")
			}
		}()
		for _, rec := range records {
			for _, n := range rec.Added {
				if n.Type != html.ElementNode {
					continue
				}
				if reason, ok := s.suspicious(n); ok {
					doc.Remove(n)
					s.logger.Info(map[string]any{"tag": n.Data, "reason": reason}, "removed suspicious element")
				}
			}
		}
	}
}

// suspicious applies both checks to one element.
func (s *Sentinel) suspicious(n *html.Node) (string, bool) {
	if n.DataAtom == atom.Iframe {
		if src, ok := page.Attr(n, "src"); ok && src != "" && s.classifier.Decide(src).IsBlocked() {
			return "blocked_iframe", true
		}
	}
	class, _ := page.Attr(n, "class")
	id, _ := page.Attr(n, "id")
	class, id = strings.ToLower(class), strings.ToLower(id)
	for _, k := range s.keywords {
		if strings.Contains(class, k) || strings.Contains(id, k) {
			return "keyword:" + k, true
		}
	}
	return "", false
}

// Filter removes suspicious elements from the tree under root, which is
// itself kept. It returns the number of removed elements. Removed subtrees
// are not descended into.
func (s *Sentinel) Filter(root *html.Node) int {
	removed := 0
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		for c := n.FirstChild; c != nil; {
			next := c.NextSibling
			if c.Type == html.ElementNode {
				if _, ok := s.suspicious(c); ok {
					n.RemoveChild(c)
					removed++
					c = next
					continue
				}
			}
			walk(c)
			c = next
		}
	}
	walk(root)
	return removed
}

// FilterHTML parses an embed fragment, filters it and writes the result to
// w. It returns the number of removed elements.
func (s *Sentinel) FilterHTML(r io.Reader, w io.Writer) (int, error) {
	body := page.NewElement(atom.Body)
	nodes, err := html.ParseFragment(r, body)
	if err != nil {
		return 0, err
	}
	for _, n := range nodes {
		body.AppendChild(n)
	}
	removed := s.Filter(body)

	var buf bytes.Buffer
	for c := body.FirstChild; c != nil; c = c.NextSibling {
		if err := html.Render(&buf, c); err != nil {
			return removed, err
		}
	}
	if _, err := w.Write(buf.Bytes()); err != nil {
		return removed, err
	}
	s.logger.Debug(map[string]any{"removed": removed}, "filtered embed fragment")
	return removed, nil
}
