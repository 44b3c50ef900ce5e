package xmlwriter_test

import (
	"bytes"
	"encoding/xml"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ginjaninja78/rl24-transmission/internal/schema"
	"github.com/ginjaninja78/rl24-transmission/internal/xmlwriter"
)

func TestGenerateXSD_IsWellFormed(t *testing.T) {
	data := xmlwriter.GenerateXSD()

	decoder := xml.NewDecoder(bytes.NewReader(data))
	declared := map[string]bool{}
	for {
		tok, err := decoder.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		require.NoError(t, err)
		if start, ok := tok.(xml.StartElement); ok && start.Name.Local == "element" {
			for _, attr := range start.Attr {
				if attr.Name.Local == "name" {
					declared[attr.Value] = true
				}
			}
		}
	}

	for _, name := range []string{
		schema.ElemTransmission, schema.ElemTransmitterNumber, schema.ElemSlip,
		schema.ElemBox14, schema.ElemSummary, schema.ElemTotalBox14,
	} {
		assert.True(t, declared[name], "element %s is declared", name)
	}
}

func TestGenerateXSD_TargetsNamespace(t *testing.T) {
	data := string(xmlwriter.GenerateXSD())
	assert.Contains(t, data, `targetNamespace="`+schema.Namespace+`"`)
	assert.Contains(t, data, `elementFormDefault="qualified"`)
}
