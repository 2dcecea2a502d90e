package parsers

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"strings"
)

// Element is a parsed XML element.
type Element struct {
	Space    string
	Local    string
	Attrs    map[string]string
	Text     string
	Children []*Element
}

// Find returns the direct children matching one path step.
func (e *Element) Find(step Step) []*Element {
	var out []*Element
	for _, c := range e.Children {
		if step.matches(c) {
			out = append(out, c)
		}
	}
	return out
}

// Step selects children by local name and optional namespace. "*" matches
// any local name.
type Step struct {
	Space string
	Local string
}

func (s Step) matches(e *Element) bool {
	if s.Local != "*" && s.Local != e.Local {
		return false
	}
	return s.Space == "" || s.Space == e.Space
}

// XML parses a document and returns elements found by Path, walking from
// the root. An empty Path returns the root's children.
type XML struct {
	// Path is "prefix:name/child" style; prefixes resolve through
	// Namespaces.
	Path       string
	Namespaces map[string]string
}

func (p XML) Parse(content []byte) ([]any, error) {
	root, err := ParseElement(content)
	if err != nil {
		return nil, err
	}
	steps, err := p.steps()
	if err != nil {
		return nil, err
	}
	if len(steps) == 0 {
		steps = []Step{{Local: "*"}}
	}

	current := []*Element{root}
	for _, step := range steps {
		var next []*Element
		for _, e := range current {
			next = append(next, e.Find(step)...)
		}
		current = next
	}

	items := make([]any, len(current))
	for i, e := range current {
		items[i] = e
	}
	return items, nil
}

func (p XML) steps() ([]Step, error) {
	path := strings.TrimPrefix(strings.TrimPrefix(p.Path, "."), "/")
	if path == "" {
		return nil, nil
	}
	var steps []Step
	for _, part := range strings.Split(path, "/") {
		step := Step{Local: part}
		if prefix, local, ok := strings.Cut(part, ":"); ok {
			uri, known := p.Namespaces[prefix]
			if !known {
				return nil, fmt.Errorf("unknown XML namespace prefix %q", prefix)
			}
			step = Step{Space: uri, Local: local}
		}
		steps = append(steps, step)
	}
	return steps, nil
}

// ParseElement decodes a whole document into an element tree.
func ParseElement(content []byte) (*Element, error) {
	dec := xml.NewDecoder(bytes.NewReader(content))
	var stack []*Element
	var root *Element
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to parse XML: %w", err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			e := &Element{Space: t.Name.Space, Local: t.Name.Local}
			if len(t.Attr) > 0 {
				e.Attrs = make(map[string]string, len(t.Attr))
				for _, a := range t.Attr {
					e.Attrs[a.Name.Local] = a.Value
				}
			}
			if len(stack) > 0 {
				parent := stack[len(stack)-1]
				parent.Children = append(parent.Children, e)
			} else if root == nil {
				root = e
			}
			stack = append(stack, e)
		case xml.EndElement:
			e := stack[len(stack)-1]
			e.Text = strings.TrimSpace(e.Text)
			stack = stack[:len(stack)-1]
		case xml.CharData:
			if len(stack) > 0 {
				stack[len(stack)-1].Text += string(t)
			}
		}
	}
	if root == nil {
		return nil, fmt.Errorf("failed to parse XML: no root element")
	}
	return root, nil
}
