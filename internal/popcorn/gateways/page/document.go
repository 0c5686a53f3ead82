package page

import (
	"bytes"
	"io"
	"strings"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// MutationRecord describes one child-list change.
type MutationRecord struct {
	Target  *html.Node
	Added   []*html.Node
	Removed []*html.Node
}

// MutationCallback receives the records of a single mutation batch.
type MutationCallback func(records []MutationRecord)

type observer struct {
	root *html.Node
	fn   MutationCallback
}

// Document is an HTML tree whose child-list mutations are reported to
// observers. Observers run synchronously after each mutation, on the
// mutating goroutine, and may mutate the tree themselves.
type Document struct {
	mu        sync.Mutex
	root      *html.Node
	body      *html.Node
	active    *html.Node
	observers map[uuid.UUID]observer
}

// NewDocument returns an empty document with html, head and body elements.
func NewDocument() *Document {
	d, _ := ParseDocument(strings.NewReader("<!DOCTYPE html><html><head></head><body></body></html>"))
	return d
}

// ParseDocument parses a full HTML document.
func ParseDocument(r io.Reader) (*Document, error) {
	root, err := html.Parse(r)
	if err != nil {
		return nil, err
	}
	d := &Document{root: root, observers: make(map[uuid.UUID]observer)}
	d.body = FindFirst(root, func(n *html.Node) bool { return n.Type == html.ElementNode && n.DataAtom == atom.Body })
	return d, nil
}

// Root returns the document node.
func (d *Document) Root() *html.Node { return d.root }

// Body returns the body element.
func (d *Document) Body() *html.Node { return d.body }

// Observe registers fn for mutations whose target is root or inside it.
func (d *Document) Observe(root *html.Node, fn MutationCallback) uuid.UUID {
	id := uuid.New()
	d.mu.Lock()
	d.observers[id] = observer{root: root, fn: fn}
	d.mu.Unlock()
	return id
}

// Disconnect removes the observer with handle id.
func (d *Document) Disconnect(id uuid.UUID) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.observers[id]; !ok {
		return false
	}
	delete(d.observers, id)
	return true
}

// ObserverCount returns the number of connected observers.
func (d *Document) ObserverCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.observers)
}

// AppendChild appends child to parent and notifies observers.
func (d *Document) AppendChild(parent, child *html.Node) {
	d.mu.Lock()
	if child.Parent != nil {
		child.Parent.RemoveChild(child)
	}
	parent.AppendChild(child)
	d.mu.Unlock()
	d.notify(MutationRecord{Target: parent, Added: []*html.Node{child}})
}

// AppendHTML parses fragment in the context of parent, appends the
// resulting nodes and notifies observers with a single record.
func (d *Document) AppendHTML(parent *html.Node, fragment string) ([]*html.Node, error) {
	nodes, err := html.ParseFragment(strings.NewReader(fragment), parent)
	if err != nil {
		return nil, err
	}
	d.mu.Lock()
	for _, n := range nodes {
		parent.AppendChild(n)
	}
	d.mu.Unlock()
	d.notify(MutationRecord{Target: parent, Added: nodes})
	return nodes, nil
}

// Remove detaches n from its parent and notifies observers. Detached nodes
// are ignored.
func (d *Document) Remove(n *html.Node) {
	d.mu.Lock()
	parent := n.Parent
	if parent == nil {
		d.mu.Unlock()
		return
	}
	parent.RemoveChild(n)
	if d.active != nil && isInclusiveAncestor(n, d.active) {
		d.active = nil
	}
	d.mu.Unlock()
	d.notify(MutationRecord{Target: parent, Removed: []*html.Node{n}})
}

// Contains reports whether n is attached to this document.
func (d *Document) Contains(n *html.Node) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return isInclusiveAncestor(d.root, n)
}

// Focus makes n the active element.
func (d *Document) Focus(n *html.Node) {
	d.mu.Lock()
	d.active = n
	d.mu.Unlock()
}

// ActiveElement returns the focused element, or nil.
func (d *Document) ActiveElement() *html.Node {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.active
}

// Render writes the serialized document.
func (d *Document) Render(w io.Writer) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return html.Render(w, d.root)
}

// String renders the body's children; handy in logs and tests.
func (d *Document) String() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	var buf bytes.Buffer
	for c := d.body.FirstChild; c != nil; c = c.NextSibling {
		_ = html.Render(&buf, c)
	}
	return buf.String()
}

func (d *Document) notify(rec MutationRecord) {
	d.mu.Lock()
	var fns []MutationCallback
	for _, o := range d.observers {
		if isInclusiveAncestor(o.root, rec.Target) {
			fns = append(fns, o.fn)
		}
	}
	d.mu.Unlock()
	for _, fn := range fns {
		fn([]MutationRecord{rec})
	}
}

func isInclusiveAncestor(ancestor, n *html.Node) bool {
	for p := n; p != nil; p = p.Parent {
		if p == ancestor {
			return true
		}
	}
	return false
}

// Attr returns the value of attribute key on n.
func Attr(n *html.Node, key string) (string, bool) {
	if n == nil {
		return "", false
	}
	for _, a := range n.Attr {
		if strings.EqualFold(a.Key, key) {
			return a.Val, true
		}
	}
	return "", false
}

// IsElement reports whether n is an element with tag a.
func IsElement(n *html.Node, a atom.Atom) bool {
	return n != nil && n.Type == html.ElementNode && n.DataAtom == a
}

// NewElement builds a detached element with the given attributes, given as
// key, value pairs.
func NewElement(a atom.Atom, attrs ...string) *html.Node {
	n := &html.Node{Type: html.ElementNode, DataAtom: a, Data: a.String()}
	for i := 0; i+1 < len(attrs); i += 2 {
		n.Attr = append(n.Attr, html.Attribute{Key: attrs[i], Val: attrs[i+1]})
	}
	return n
}

// FindFirst returns the first node in document order for which match is true.
func FindFirst(root *html.Node, match func(*html.Node) bool) *html.Node {
	if root == nil {
		return nil
	}
	if match(root) {
		return root
	}
	for c := root.FirstChild; c != nil; c = c.NextSibling {
		if n := FindFirst(c, match); n != nil {
			return n
		}
	}
	return nil
}
