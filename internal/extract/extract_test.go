package extract

import (
	"archive/zip"
	"bytes"
	"errors"
	"testing"

	"docquery/internal/util"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetect(t *testing.T) {
	cases := []struct {
		declared string
		filename string
		content  []byte
		want     string
	}{
		{"application/pdf", "paper.bin", nil, KindPDF},
		{"text/plain", "notes", nil, KindText},
		{"text/markdown", "readme.md", nil, KindText},
		{"application/vnd.openxmlformats-officedocument.wordprocessingml.document", "r.docx", nil, KindDocx},
		{"", "report.pdf", nil, KindPDF},
		{"", "report.docx", nil, KindDocx},
		{"", "notes.markdown", nil, KindText},
		{"application/octet-stream", "blob.bin", []byte("%PDF-1.7"), KindPDF},
		{"application/octet-stream", "img.png", []byte{0x89, 0x50}, KindUnknown},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, Detect(c.declared, c.filename, c.content), "declared=%q file=%q", c.declared, c.filename)
	}
}

func TestExtractTextUTF8(t *testing.T) {
	res, err := Extract([]byte("hello world\n"), "text/plain", "a.txt")
	require.NoError(t, err)
	assert.Equal(t, "hello world\n", res.Text)
	assert.Equal(t, KindText, res.Kind)
	assert.False(t, res.Partial)
}

func TestExtractTextLatin1Fallback(t *testing.T) {
	res, err := Extract([]byte{'c', 'a', 'f', 0xe9}, "text/plain", "a.txt")
	require.NoError(t, err)
	assert.Equal(t, "café", res.Text)
}

func TestExtractUnsupported(t *testing.T) {
	_, err := Extract([]byte{0x00, 0x01}, "application/octet-stream", "blob.bin")
	require.Error(t, err)
	assert.True(t, errors.Is(err, util.ErrUnsupportedFormat))
}

func TestExtractMalformedPDF(t *testing.T) {
	_, err := Extract([]byte("%PDF-1.4 not really a pdf"), "application/pdf", "x.pdf")
	require.Error(t, err)
	assert.True(t, errors.Is(err, util.ErrExtraction))
}

func TestExtractDocxParagraphOrder(t *testing.T) {
	docXML := `<?xml version="1.0"?>` +
		`<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">` +
		`<w:body>` +
		`<w:p><w:r><w:t>first paragraph</w:t></w:r></w:p>` +
		`<w:p><w:r><w:t>second</w:t></w:r><w:r><w:t> paragraph</w:t></w:r></w:p>` +
		`</w:body></w:document>`

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	f, err := zw.Create("word/document.xml")
	require.NoError(t, err)
	_, err = f.Write([]byte(docXML))
	require.NoError(t, err)
	require.NoError(t, zw.Close())

	res, err := Extract(buf.Bytes(), "application/vnd.openxmlformats-officedocument.wordprocessingml.document", "r.docx")
	require.NoError(t, err)
	assert.Equal(t, "first paragraph\nsecond paragraph", res.Text)
}

func TestExtractDocxMissingDocumentPart(t *testing.T) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	f, err := zw.Create("word/other.xml")
	require.NoError(t, err)
	_, err = f.Write([]byte("<x/>"))
	require.NoError(t, err)
	require.NoError(t, zw.Close())

	_, err = Extract(buf.Bytes(), "", "r.docx")
	require.Error(t, err)
	assert.True(t, errors.Is(err, util.ErrExtraction))
}
