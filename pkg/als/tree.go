// Package als reads Ableton Live project files and finds the racks in them.
package als

import (
	"bytes"
	"compress/gzip"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
)

// gzipMagic is the header of a gzip member
var gzipMagic = []byte{0x1f, 0x8b}

// FormatError reports input that is not a compressed project document
type FormatError struct {
	Err error
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("not a Live project: %v", e.Err)
}

func (e *FormatError) Unwrap() error {
	return e.Err
}

// Node is one element of the project document
type Node struct {
	Name     string
	Attrs    map[string]string
	Children []*Node
}

// Tree is the parsed project document. It is not modified after Load.
type Tree struct {
	Roots []*Node
}

// Attr returns the named attribute, or "" when it is missing
func (n *Node) Attr(name string) string {
	if n == nil {
		return ""
	}
	return n.Attrs[name]
}

// Value returns the Value attribute, which Live uses for most scalar fields
func (n *Node) Value() string {
	return n.Attr("Value")
}

// Child returns the first direct child with the given name. Lookups on a
// nil node return nil, so chains like n.Child("A").Child("B") are safe.
func (n *Node) Child(name string) *Node {
	if n == nil {
		return nil
	}
	for _, c := range n.Children {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// Path follows a chain of direct children
func (n *Node) Path(names ...string) *Node {
	cur := n
	for _, name := range names {
		cur = cur.Child(name)
	}
	return cur
}

// Load decompresses and parses project data. Uncompressed XML is accepted as well.
func Load(data []byte) (*Tree, error) {
	var r io.Reader
	switch {
	case bytes.HasPrefix(data, gzipMagic):
		zr, err := gzip.NewReader(bytes.NewReader(data))
		if err != nil {
			return nil, &FormatError{Err: err}
		}
		defer func() { _ = zr.Close() }()
		r = zr
	case bytes.HasPrefix(bytes.TrimSpace(data), []byte("<")):
		r = bytes.NewReader(data)
	default:
		return nil, &FormatError{Err: errors.New("missing gzip or XML header")}
	}

	tree, err := parse(r)
	if err != nil {
		return nil, &FormatError{Err: err}
	}
	return tree, nil
}

func parse(r io.Reader) (*Tree, error) {
	dec := xml.NewDecoder(r)
	tree := &Tree{}
	var stack []*Node

	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parse xml: %w", err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			node := &Node{Name: t.Name.Local, Attrs: make(map[string]string, len(t.Attr))}
			for _, a := range t.Attr {
				node.Attrs[a.Name.Local] = a.Value
			}
			if len(stack) == 0 {
				tree.Roots = append(tree.Roots, node)
			} else {
				parent := stack[len(stack)-1]
				parent.Children = append(parent.Children, node)
			}
			stack = append(stack, node)
		case xml.EndElement:
			stack = stack[:len(stack)-1]
		}
	}

	if len(stack) != 0 {
		return nil, fmt.Errorf("unclosed element %q", stack[len(stack)-1].Name)
	}
	if len(tree.Roots) == 0 {
		return nil, errors.New("document has no elements")
	}
	return tree, nil
}
