// Package dom contains the small set of HTML tree helpers used to find
// map containers in a page and to write rendered maps back into them.
package dom

import (
	"strings"

	"github.com/pkg/errors"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Element creates a detached element node. attrs is a list of
// key / value pairs.
func Element(tag atom.Atom, attrs ...string) *html.Node {
	n := &html.Node{
		Type:     html.ElementNode,
		DataAtom: tag,
		Data:     tag.String(),
	}

	for i := 0; i+1 < len(attrs); i += 2 {
		n.Attr = append(n.Attr, html.Attribute{Key: attrs[i], Val: attrs[i+1]})
	}

	return n
}

// Attr returns the value of the attribute key and whether it was present
func Attr(n *html.Node, key string) (string, bool) {
	for _, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

// SetAttr sets or replaces the attribute key
func SetAttr(n *html.Node, key, val string) {
	for i, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			n.Attr[i].Val = val
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: val})
}

// HasClass reports whether class is one of the tokens of the class attribute
func HasClass(n *html.Node, class string) bool {
	if n.Type != html.ElementNode || class == "" {
		return false
	}

	v, _ := Attr(n, "class")
	for _, c := range strings.Fields(v) {
		if c == class {
			return true
		}
	}
	return false
}

// FindByClass returns all elements carrying class in document order
func FindByClass(root *html.Node, class string) []*html.Node {
	return find(root, func(n *html.Node) bool { return HasClass(n, class) })
}

// FindByAttr returns all elements carrying the attribute key in
// document order
func FindByAttr(root *html.Node, key string) []*html.Node {
	return find(root, func(n *html.Node) bool {
		_, ok := Attr(n, key)
		return n.Type == html.ElementNode && ok
	})
}

func find(root *html.Node, match func(*html.Node) bool) []*html.Node {
	var (
		result []*html.Node
		walk   func(*html.Node)
	)

	walk = func(n *html.Node) {
		if match(n) {
			result = append(result, n)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)

	return result
}

// Text returns the concatenated text content of n
func Text(n *html.Node) string {
	var sb strings.Builder
	for _, t := range find(n, func(c *html.Node) bool { return c.Type == html.TextNode }) {
		sb.WriteString(t.Data)
	}
	return sb.String()
}

// Clear detaches all children of n
func Clear(n *html.Node) {
	for c := n.FirstChild; c != nil; c = n.FirstChild {
		n.RemoveChild(c)
	}
}

// AppendHTML parses content as an HTML fragment in the context of parent
// and appends the resulting nodes to it
func AppendHTML(parent *html.Node, content string) error {
	ctxNode := parent
	if ctxNode.DataAtom == 0 {
		ctxNode = Element(atom.Div)
	}

	nodes, err := html.ParseFragment(strings.NewReader(content), ctxNode)
	if err != nil {
		return errors.Wrap(err, "parsing HTML fragment")
	}

	for _, n := range nodes {
		parent.AppendChild(n)
	}
	return nil
}
