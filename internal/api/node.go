package api

import (
	"bytes"
	"encoding/xml"
	"errors"
	"io"
	"strings"
)

// XLinkNamespace is the namespace of the href attributes the service puts
// on resource elements.
const XLinkNamespace = "http://www.w3.org/1999/xlink"

// Node is a parsed XML element. All lookups are nil-safe so mappers can
// chain them without checking intermediate results.
type Node struct {
	Name     xml.Name
	Attrs    []xml.Attr
	Content  string
	Children []*Node
}

// ParseXML parses a document into a Node tree rooted at its document element.
func ParseXML(data []byte) (*Node, error) {
	dec := xml.NewDecoder(bytes.NewReader(data))
	var root *Node
	var stack []*Node

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}

		switch t := tok.(type) {
		case xml.StartElement:
			n := &Node{Name: t.Name, Attrs: append([]xml.Attr(nil), t.Attr...)}
			if len(stack) == 0 {
				if root != nil {
					return nil, errors.New("multiple root elements")
				}
				root = n
			} else {
				parent := stack[len(stack)-1]
				parent.Children = append(parent.Children, n)
			}
			stack = append(stack, n)
		case xml.EndElement:
			stack = stack[:len(stack)-1]
		case xml.CharData:
			if len(stack) > 0 {
				stack[len(stack)-1].Content += string(t)
			}
		}
	}

	if root == nil {
		return nil, errors.New("empty document")
	}
	return root, nil
}

// Text returns the element's character data, or "" for a nil node.
func (n *Node) Text() string {
	if n == nil {
		return ""
	}
	return n.Content
}

// TrimmedText returns Text with surrounding whitespace removed.
func (n *Node) TrimmedText() string {
	return strings.TrimSpace(n.Text())
}

// Attr returns the value of an unqualified attribute.
func (n *Node) Attr(local string) string {
	return n.AttrNS("", local)
}

// AttrNS returns the value of a namespaced attribute. The namespace matches
// either the resolved URI or the literal prefix, since the service does not
// always declare the xlink prefix.
func (n *Node) AttrNS(space, local string) string {
	if n == nil {
		return ""
	}
	for _, a := range n.Attrs {
		if a.Name.Local != local {
			continue
		}
		if a.Name.Space == space || (space == XLinkNamespace && a.Name.Space == "xlink") {
			return a.Value
		}
	}
	return ""
}

// Href returns the element's xlink:href attribute.
func (n *Node) Href() string {
	return n.AttrNS(XLinkNamespace, "href")
}

// Find returns the first element matching path, or nil.
func (n *Node) Find(path string) *Node {
	all := n.FindAll(path)
	if len(all) == 0 {
		return nil
	}
	return all[0]
}

// FindAll returns the elements matching path. Paths are slash separated
// element names relative to n; "*" matches any child and a leading ".//"
// searches all descendants.
func (n *Node) FindAll(path string) []*Node {
	if n == nil {
		return nil
	}

	if rest, ok := strings.CutPrefix(path, ".//"); ok {
		first, tail, _ := strings.Cut(rest, "/")
		var out []*Node
		n.walk(func(d *Node) {
			if !d.matches(first) {
				return
			}
			if tail == "" {
				out = append(out, d)
				return
			}
			out = append(out, d.FindAll(tail)...)
		})
		return out
	}

	nodes := []*Node{n}
	for _, seg := range strings.Split(path, "/") {
		if seg == "" || seg == "." {
			continue
		}
		var next []*Node
		for _, c := range nodes {
			for _, ch := range c.Children {
				if ch.matches(seg) {
					next = append(next, ch)
				}
			}
		}
		nodes = next
	}
	if len(nodes) == 1 && nodes[0] == n {
		return nil
	}
	return nodes
}

func (n *Node) matches(name string) bool {
	return name == "*" || n.Name.Local == name
}

func (n *Node) walk(fn func(*Node)) {
	for _, ch := range n.Children {
		fn(ch)
		ch.walk(fn)
	}
}
