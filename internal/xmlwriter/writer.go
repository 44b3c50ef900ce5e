// =============================================================================
// RL-24 Transmission - XML Writer
// =============================================================================
//
// This file holds the element tree the generator builds and the serializer
// that turns it into text. The tree is deliberately small: every element is
// either a leaf with a text value or a container with children, never both.
//
// XML STRUCTURE:
//
//   <?xml version="1.0" encoding="UTF-8"?>
//   <Transmission xmlns="http://www.mrq.gouv.qc.ca/T5">
//     <Header>
//       <Transmitter>...</Transmitter>
//     </Header>
//     <Group>
//       <Issuer>...</Issuer>
//       <Slip>...</Slip>              <!-- one per record, in input order -->
//       <Summary>...</Summary>
//     </Group>
//   </Transmission>
//
// =============================================================================

package xmlwriter

import (
	"bytes"
	"encoding/xml"
	"strconv"
)

// =============================================================================
// WRITE OPTIONS
// =============================================================================

// WriteOptions controls serialization.
type WriteOptions struct {
	// Indent is the string used for one level of indentation.
	// Default: "  " (two spaces)
	Indent string

	// IncludeXMLDeclaration determines whether to emit the XML declaration.
	// Default: true
	IncludeXMLDeclaration bool
}

// DefaultWriteOptions returns the options used for filed transmissions.
func DefaultWriteOptions() WriteOptions {
	return WriteOptions{
		Indent:                "  ",
		IncludeXMLDeclaration: true,
	}
}

// =============================================================================
// ELEMENT TREE
// =============================================================================

// XMLElement is one node of the document being generated.
type XMLElement struct {
	XMLName    xml.Name
	Attributes []xml.Attr
	Value      string
	Children   []XMLElement
}

// newElement creates a container element.
func newElement(name string, children ...XMLElement) XMLElement {
	return XMLElement{XMLName: xml.Name{Local: name}, Children: children}
}

// textElement creates a leaf element.
func textElement(name, value string) XMLElement {
	return XMLElement{XMLName: xml.Name{Local: name}, Value: value}
}

func intElement(name string, value int) XMLElement {
	return textElement(name, strconv.Itoa(value))
}

// add appends child to e.
func (e *XMLElement) add(children ...XMLElement) {
	e.Children = append(e.Children, children...)
}

// addOptional appends a leaf only when value is not empty.
func (e *XMLElement) addOptional(name, value string) {
	if value != "" {
		e.add(textElement(name, value))
	}
}

// =============================================================================
// SERIALIZATION
// =============================================================================

// Marshal serializes root with the given options.
func Marshal(root XMLElement, options WriteOptions) []byte {
	var buffer bytes.Buffer

	if options.IncludeXMLDeclaration {
		buffer.WriteString(`<?xml version="1.0" encoding="UTF-8"?>` + "\n")
	}

	writeElement(&buffer, root, options.Indent, 0)

	return buffer.Bytes()
}

// writeElement writes an element and its subtree to the buffer.
func writeElement(buffer *bytes.Buffer, element XMLElement, indent string, level int) {
	writeIndent(buffer, indent, level)

	buffer.WriteString("<")
	buffer.WriteString(element.XMLName.Local)

	for _, attr := range element.Attributes {
		buffer.WriteString(" ")
		buffer.WriteString(attr.Name.Local)
		buffer.WriteString(`="`)
		buffer.WriteString(escapeXML(attr.Value))
		buffer.WriteString(`"`)
	}

	if len(element.Children) == 0 && element.Value == "" {
		buffer.WriteString("/>\n")
		return
	}

	buffer.WriteString(">")

	if len(element.Children) == 0 {
		buffer.WriteString(escapeXML(element.Value))
	} else {
		buffer.WriteString("\n")
		for _, child := range element.Children {
			writeElement(buffer, child, indent, level+1)
		}
		writeIndent(buffer, indent, level)
	}

	buffer.WriteString("</")
	buffer.WriteString(element.XMLName.Local)
	buffer.WriteString(">\n")
}

func writeIndent(buffer *bytes.Buffer, indent string, level int) {
	for i := 0; i < level; i++ {
		buffer.WriteString(indent)
	}
}

// escapeXML escapes the five predefined entities.
func escapeXML(s string) string {
	var buffer bytes.Buffer

	for _, r := range s {
		switch r {
		case '&':
			buffer.WriteString("&amp;")
		case '<':
			buffer.WriteString("&lt;")
		case '>':
			buffer.WriteString("&gt;")
		case '"':
			buffer.WriteString("&quot;")
		case '\'':
			buffer.WriteString("&apos;")
		default:
			buffer.WriteRune(r)
		}
	}

	return buffer.String()
}
