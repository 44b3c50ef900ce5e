package xmlwriter

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/ginjaninja78/rl24-transmission/internal/schema"
)

// =============================================================================
// XSD GENERATION
// =============================================================================

// xsdNode describes one element declaration. A node with children is a
// sequence; a leaf carries an XSD type.
type xsdNode struct {
	name      string
	xsdType   string
	optional  bool
	unbounded bool
	children  []xsdNode
}

func leaf(name, xsdType string) xsdNode { return xsdNode{name: name, xsdType: xsdType} }

func optionalLeaf(name, xsdType string) xsdNode {
	return xsdNode{name: name, xsdType: xsdType, optional: true}
}

func group(name string, children ...xsdNode) xsdNode {
	return xsdNode{name: name, children: children}
}

// addressNode declares an address block; withCountry adds the issuer-only Country.
func addressNode(name string, optional, withCountry bool) xsdNode {
	n := group(name,
		leaf(schema.ElemLine1, "AddressLine"),
		optionalLeaf(schema.ElemLine2, "AddressLine"),
		leaf(schema.ElemCity, "City"),
		leaf(schema.ElemProvince, "Province"),
		optionalLeaf(schema.ElemPostalCode, "PostalCode"),
	)
	if withCountry {
		n.children = append(n.children, leaf(schema.ElemCountry, "xs:string"))
	}
	n.optional = optional
	return n
}

// transmissionLayout is the document layout the generator emits.
func transmissionLayout() xsdNode {
	slip := group(schema.ElemSlip,
		group(schema.ElemIdentification,
			leaf(schema.ElemSlipNumber, "xs:positiveInteger"),
			leaf(schema.ElemTypeCode, "SlipType"),
			optionalLeaf(schema.ElemSubCode, "SubCode"),
			optionalLeaf(schema.ElemOriginalSlipNumber, "xs:string"),
		),
		group(schema.ElemRecipient,
			optionalLeaf(schema.ElemIdentityNumber, "IdentityNumber"),
			group(schema.ElemName, leaf(schema.ElemLast, "Name"), leaf(schema.ElemFirst, "Name")),
			addressNode(schema.ElemAddress, true, false),
		),
		group(schema.ElemChild,
			leaf(schema.ElemLast, "Name"),
			leaf(schema.ElemFirst, "Name"),
			optionalLeaf(schema.ElemDateOfBirth, "xs:date"),
		),
		group(schema.ElemServicePeriod, leaf(schema.ElemStart, "xs:date"), leaf(schema.ElemEnd, "xs:date")),
		leaf(schema.ElemBox10, "Days"),
		leaf(schema.ElemBox11, "Amount"),
		leaf(schema.ElemBox12, "Amount"),
		leaf(schema.ElemBox13, "Amount"),
		leaf(schema.ElemBox14, "Amount"),
	)
	slip.unbounded = true

	return group(schema.ElemTransmission,
		group(schema.ElemHeader,
			group(schema.ElemTransmitter,
				leaf(schema.ElemTransmitterNumber, "PreparerNumber"),
				leaf(schema.ElemTransmissionType, "TransmissionType"),
				leaf(schema.ElemTaxYear, "xs:gYear"),
				leaf(schema.ElemSequenceNumber, "SequenceNumber"),
				optionalLeaf(schema.ElemCertificationNumber, "xs:string"),
				leaf(schema.ElemSoftwareName, "xs:string"),
				leaf(schema.ElemSoftwareVersion, "xs:string"),
			),
		),
		group(schema.ElemGroup,
			group(schema.ElemIssuer,
				leaf(schema.ElemEnterpriseNumber, "EnterpriseNumber"),
				group(schema.ElemIssuerName,
					leaf(schema.ElemLine1, "AddressLine"),
					optionalLeaf(schema.ElemLine2, "AddressLine"),
				),
				addressNode(schema.ElemIssuerAddress, false, true),
			),
			slip,
			group(schema.ElemSummary,
				leaf(schema.ElemTotalSlips, "xs:nonNegativeInteger"),
				leaf(schema.ElemTotalDays, "xs:nonNegativeInteger"),
				leaf(schema.ElemTotalBox11, "Total"),
				leaf(schema.ElemTotalBox12, "Total"),
				optionalLeaf(schema.ElemTotalBox13, "Total"),
				optionalLeaf(schema.ElemTotalBox14, "Total"),
			),
		),
	)
}

// GenerateXSD renders a schema definition for the transmission layout. It
// can be handed to xmllint as a local structural check.
//
// RETURNS:
//   - The XSD document.
//
// The definition encodes element order, presence, code lists and the simple
// field limits. Business rules such as Box 14 reconciliation and summary
// totals are outside what XSD can express and stay with the validator.
func GenerateXSD() []byte {
	var buffer bytes.Buffer

	fmt.Fprintf(&buffer, `<?xml version="1.0" encoding="UTF-8"?>
<xs:schema xmlns:xs="http://www.w3.org/2001/XMLSchema" targetNamespace="%s" xmlns="%s" elementFormDefault="qualified">
`, schema.Namespace, schema.Namespace)

	writeXSDElement(&buffer, transmissionLayout(), 1)
	buffer.WriteString("\n")
	writeSimpleTypes(&buffer)

	buffer.WriteString("</xs:schema>\n")
	return buffer.Bytes()
}

// writeXSDElement writes one element declaration and its subtree.
func writeXSDElement(buffer *bytes.Buffer, node xsdNode, indentLevel int) {
	indent := strings.Repeat("  ", indentLevel)

	occurs := ""
	if node.optional {
		occurs += ` minOccurs="0"`
	}
	if node.unbounded {
		occurs += ` maxOccurs="unbounded"`
	}

	if len(node.children) == 0 {
		fmt.Fprintf(buffer, "%s<xs:element name=\"%s\" type=\"%s\"%s/>\n", indent, node.name, node.xsdType, occurs)
		return
	}

	fmt.Fprintf(buffer, "%s<xs:element name=\"%s\"%s>\n", indent, node.name, occurs)
	fmt.Fprintf(buffer, "%s  <xs:complexType>\n%s    <xs:sequence>\n", indent, indent)
	for _, child := range node.children {
		writeXSDElement(buffer, child, indentLevel+3)
	}
	fmt.Fprintf(buffer, "%s    </xs:sequence>\n%s  </xs:complexType>\n", indent, indent)
	fmt.Fprintf(buffer, "%s</xs:element>\n", indent)
}

// writeSimpleTypes writes the named restrictions referenced by the layout.
func writeSimpleTypes(buffer *bytes.Buffer) {
	pattern := func(name, p string) {
		fmt.Fprintf(buffer, `  <xs:simpleType name="%s">
    <xs:restriction base="xs:string"><xs:pattern value="%s"/></xs:restriction>
  </xs:simpleType>
`, name, p)
	}
	maxLength := func(name string, n int) {
		fmt.Fprintf(buffer, `  <xs:simpleType name="%s">
    <xs:restriction base="xs:string"><xs:minLength value="1"/><xs:maxLength value="%d"/></xs:restriction>
  </xs:simpleType>
`, name, n)
	}
	enumeration := func(name string, codes []string) {
		fmt.Fprintf(buffer, "  <xs:simpleType name=\"%s\">\n    <xs:restriction base=\"xs:string\">", name)
		for _, code := range codes {
			fmt.Fprintf(buffer, `<xs:enumeration value="%s"/>`, code)
		}
		buffer.WriteString("</xs:restriction>\n  </xs:simpleType>\n")
	}

	pattern("PreparerNumber", fmt.Sprintf(`%s\d{%d}`, schema.PreparerPrefix, schema.PreparerDigits))
	pattern("EnterpriseNumber", fmt.Sprintf(`\d{%d}`, schema.EnterpriseDigits))
	pattern("IdentityNumber", fmt.Sprintf(`\d{%d}`, schema.IdentityDigits))
	pattern("Province", `[A-Z]{2}`)
	pattern("PostalCode", `[A-Z]\d[A-Z]\d[A-Z]\d`)
	enumeration("TransmissionType", []string{"O", "M", "A"})
	enumeration("SlipType", []string{"O", "A", "D"})
	maxLength("Name", schema.MaxNameLength)
	maxLength("AddressLine", schema.MaxAddressLength)
	maxLength("City", schema.MaxCityLength)
	maxLength("SubCode", schema.MaxSubCodeLength)

	fmt.Fprintf(buffer, `  <xs:simpleType name="SequenceNumber">
    <xs:restriction base="xs:integer"><xs:minInclusive value="%d"/><xs:maxInclusive value="%d"/></xs:restriction>
  </xs:simpleType>
  <xs:simpleType name="Days">
    <xs:restriction base="xs:integer"><xs:minInclusive value="%d"/><xs:maxInclusive value="%d"/></xs:restriction>
  </xs:simpleType>
  <xs:simpleType name="Amount">
    <xs:restriction base="xs:decimal"><xs:minInclusive value="0"/><xs:maxInclusive value="%s"/><xs:fractionDigits value="%d"/></xs:restriction>
  </xs:simpleType>
  <xs:simpleType name="Total">
    <xs:restriction base="xs:decimal"><xs:minInclusive value="0"/><xs:fractionDigits value="%d"/></xs:restriction>
  </xs:simpleType>
`, schema.MinSequenceNumber, schema.MaxSequenceNumber, schema.MinDays, schema.MaxDays,
		schema.MaxAmount.StringFixed(schema.AmountDecimalPlaces), schema.AmountDecimalPlaces, schema.AmountDecimalPlaces)
}
