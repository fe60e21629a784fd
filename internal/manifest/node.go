// Package manifest parses the XML registration manifests written by the
// acquisition client and the enumeration file that lists them.
package manifest

import (
	"encoding/xml"
	"io"
	"os"
	"strings"

	"github.com/ynoir/obit-microscopy-core-technology/internal/errors"
)

// Node tags understood by the registration pipeline.
const (
	TagExperiment              = "Experiment"
	TagMicroscopyFile          = "MicroscopyFile"
	TagMicroscopyCompositeFile = "MicroscopyCompositeFile"
	TagMicroscopyFileSeries    = "MicroscopyFileSeries"
)

// Attr is one attribute of a manifest node.
type Attr struct {
	Name  string
	Value string
}

// Node is an element of the manifest tree. Attributes keep document order.
type Node struct {
	Tag      string
	Attrs    []Attr
	Children []*Node
}

// Attr returns the value of the named attribute and whether it is present.
func (n *Node) Attr(name string) (string, bool) {
	for _, a := range n.Attrs {
		if a.Name == name {
			return a.Value, true
		}
	}
	return "", false
}

// AttrValue returns the value of the named attribute, or "" when absent.
func (n *Node) AttrValue(name string) string {
	v, _ := n.Attr(name)
	return v
}

// AttrMap returns the attributes as a map. Later duplicates win.
func (n *Node) AttrMap() map[string]string {
	m := make(map[string]string, len(n.Attrs))
	for _, a := range n.Attrs {
		m[a.Name] = a.Value
	}
	return m
}

// Document is a parsed manifest.
type Document struct {
	// Path is the manifest file the document was read from, if any.
	Path string
	Root *Node
}

// ParseFile reads and parses the manifest at path.
func ParseFile(path string) (*Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, errors.CodeResource, "open manifest %s", path)
	}
	defer f.Close()

	doc, err := Parse(f)
	if err != nil {
		return nil, err
	}
	doc.Path = path
	return doc, nil
}

// Parse builds the node tree of a manifest. Character data is ignored; the
// manifest carries everything in attributes.
func Parse(r io.Reader) (*Document, error) {
	d := xml.NewDecoder(r)

	var (
		root  *Node
		stack []*Node
	)
	for {
		tok, err := d.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrap(err, errors.CodeStructural, "malformed manifest xml")
		}

		switch t := tok.(type) {
		case xml.StartElement:
			n := &Node{Tag: t.Name.Local}
			for _, a := range t.Attr {
				n.Attrs = append(n.Attrs, Attr{Name: a.Name.Local, Value: a.Value})
			}
			if len(stack) == 0 {
				if root != nil {
					return nil, errors.Structural("manifest has more than one root element")
				}
				root = n
			} else {
				parent := stack[len(stack)-1]
				parent.Children = append(parent.Children, n)
			}
			stack = append(stack, n)
		case xml.EndElement:
			stack = stack[:len(stack)-1]
		}
	}

	if root == nil {
		return nil, errors.Structural("manifest has no root element")
	}
	return &Document{Root: root}, nil
}

// ParseString is a convenience wrapper around Parse.
func ParseString(s string) (*Document, error) {
	return Parse(strings.NewReader(s))
}
