package validation

import (
	"bytes"
	"encoding/xml"
	"errors"
	"io"
	"strings"

	"github.com/ginjaninja78/rl24-transmission/internal/report"
)

// =============================================================================
// DOCUMENT TREE
// =============================================================================

// Node is one element of a parsed transmission.
type Node struct {
	Name  string
	Space string

	// Text is the trimmed character data directly inside the element.
	Text string

	// Line and Column locate the end of the start tag.
	Line   int
	Column int

	Children []*Node
}

// Child returns the first child element named name, or nil.
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

// All returns every child element named name.
func (n *Node) All(name string) []*Node {
	if n == nil {
		return nil
	}
	var out []*Node
	for _, c := range n.Children {
		if c.Name == name {
			out = append(out, c)
		}
	}
	return out
}

// Find walks a path of child names from n. It returns nil as soon as a step
// is missing.
func (n *Node) Find(path ...string) *Node {
	cur := n
	for _, name := range path {
		cur = cur.Child(name)
		if cur == nil {
			return nil
		}
	}
	return cur
}

// Document is a parsed transmission. Root is whatever structure could be
// read, even when parsing stopped early.
type Document struct {
	Root *Node
	Raw  []byte

	// Findings holds the parser findings.
	Findings report.Findings
}

// WellFormed reports whether parsing finished without an error.
func (d *Document) WellFormed() bool {
	return d.Root != nil && !d.Findings.HasErrors()
}

// Parse reads data into a Document. It never fails: parser problems become
// XmlMalformed findings carrying the line and column when known.
func Parse(data []byte) *Document {
	doc := &Document{Raw: data}

	decoder := xml.NewDecoder(bytes.NewReader(data))
	decoder.Strict = true

	var (
		stack []*Node
		texts []*strings.Builder
	)

	for {
		tok, err := decoder.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			line, col := decoder.InputPos()
			var syntaxErr *xml.SyntaxError
			msg := err.Error()
			if errors.As(err, &syntaxErr) {
				line = syntaxErr.Line
				msg = syntaxErr.Msg
			}
			doc.Findings = append(doc.Findings,
				report.Errorf(report.KindXMLMalformed, "", "%s", msg).At(line, col))
			break
		}

		switch t := tok.(type) {
		case xml.StartElement:
			line, col := decoder.InputPos()
			node := &Node{Name: t.Name.Local, Space: t.Name.Space, Line: line, Column: col}

			if len(stack) == 0 {
				if doc.Root != nil {
					doc.Findings = append(doc.Findings,
						report.Errorf(report.KindXMLMalformed, t.Name.Local,
							"content after the root element").At(line, col))
					return closeOpen(doc, stack, texts)
				}
				doc.Root = node
			} else {
				parent := stack[len(stack)-1]
				parent.Children = append(parent.Children, node)
			}
			stack = append(stack, node)
			texts = append(texts, &strings.Builder{})

		case xml.EndElement:
			top := len(stack) - 1
			stack[top].Text = strings.TrimSpace(texts[top].String())
			stack = stack[:top]
			texts = texts[:top]

		case xml.CharData:
			if len(texts) > 0 {
				texts[len(texts)-1].Write(t)
			} else if strings.TrimSpace(string(t)) != "" {
				line, col := decoder.InputPos()
				doc.Findings = append(doc.Findings,
					report.Errorf(report.KindXMLMalformed, "", "text outside the root element").At(line, col))
			}
		}
	}

	if doc.Root == nil && !doc.Findings.HasErrors() {
		doc.Findings = append(doc.Findings,
			report.Errorf(report.KindXMLMalformed, "", "document has no root element"))
	}

	return closeOpen(doc, stack, texts)
}

// closeOpen keeps the text of elements left open by a parse error.
func closeOpen(doc *Document, stack []*Node, texts []*strings.Builder) *Document {
	for i := range stack {
		stack[i].Text = strings.TrimSpace(texts[i].String())
	}
	return doc
}
