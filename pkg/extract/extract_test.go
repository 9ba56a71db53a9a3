package extract_test

import (
	"archive/zip"
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/vasdom/knowledge/pkg/extract"
)

func buildZip(t *testing.T, entries map[string]string) []byte {
	t.Helper()

	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	for name, content := range entries {
		f, err := w.Create(name)
		require.NoError(t, err)
		_, err = f.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return buf.Bytes()
}

func TestExtractTXT(t *testing.T) {
	e := extract.New()

	res, err := e.Extract([]byte("Hello world. This is a test document."), ".txt")
	require.NoError(t, err)
	assert.Equal(t, "Hello world. This is a test document.", res.Text)
	assert.False(t, res.PagesKnown)
}

func TestExtractTXT_InvalidUTF8(t *testing.T) {
	e := extract.New()

	res, err := e.Extract([]byte{0xff, 0xfe, 'o', 'k'}, ".txt")
	require.NoError(t, err)
	assert.Contains(t, res.Text, "ok")
	assert.Contains(t, res.Text, "�")
}

func TestExtractUnknownExtension(t *testing.T) {
	e := extract.New()

	res, err := e.Extract([]byte("data"), ".exe")
	assert.Error(t, err)
	assert.Empty(t, res.Text)
}

func TestExtractPDF_Corrupt(t *testing.T) {
	e := extract.New()

	res, err := e.Extract([]byte("not a pdf at all"), ".pdf")
	assert.Error(t, err)
	assert.Empty(t, res.Text)
}

func TestExtractDOCX(t *testing.T) {
	e := extract.New()

	document := `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
  <w:body>
    <w:p><w:r><w:t>Первый абзац.</w:t></w:r></w:p>
    <w:p><w:r><w:t>Second </w:t></w:r><w:r><w:t>paragraph.</w:t></w:r></w:p>
  </w:body>
</w:document>`
	data := buildZip(t, map[string]string{"word/document.xml": document})

	res, err := e.Extract(data, ".docx")
	require.NoError(t, err)
	assert.Equal(t, "Первый абзац.\nSecond paragraph.", res.Text)
	assert.False(t, res.PagesKnown)
}

func TestExtractDOCX_MissingDocumentXML(t *testing.T) {
	e := extract.New()

	data := buildZip(t, map[string]string{"other.xml": "<x/>"})
	_, err := e.Extract(data, ".docx")
	assert.Error(t, err)
}

func TestExtractXLSX(t *testing.T) {
	e := extract.New()

	workbook := excelize.NewFile()
	require.NoError(t, workbook.SetCellValue("Sheet1", "A1", "Объект"))
	require.NoError(t, workbook.SetCellValue("Sheet1", "B1", "Адрес"))
	require.NoError(t, workbook.SetCellValue("Sheet1", "A3", "Дом 5"))

	var buf bytes.Buffer
	require.NoError(t, workbook.Write(&buf))

	res, err := e.Extract(buf.Bytes(), ".xlsx")
	require.NoError(t, err)
	assert.Equal(t, "Объект Адрес\nДом 5", res.Text)
	assert.True(t, res.PagesKnown)
	// Row 2 is empty but still scanned.
	assert.Equal(t, 3, res.Pages)
}

func TestExtractZip(t *testing.T) {
	e := extract.New()

	data := buildZip(t, map[string]string{
		"a.txt":       "A",
		"b.txt":       "B",
		"../evil.txt": "X",
		"/abs.txt":    "Y",
		"notes.md":    "ignored",
		"inner.zip":   "nested containers are not descended",
	})

	res, err := e.Extract(data, ".zip")
	require.NoError(t, err)
	assert.Contains(t, res.Text, "A")
	assert.Contains(t, res.Text, "B")
	assert.NotContains(t, res.Text, "X")
	assert.NotContains(t, res.Text, "Y")
	assert.NotContains(t, res.Text, "ignored")
	assert.NotContains(t, res.Text, "nested")
	assert.Contains(t, res.Text, "\n\n")
	assert.True(t, res.PagesKnown)
	assert.Equal(t, 0, res.Pages)

	require.Len(t, res.Sources, 2)
	names := []string{res.Sources[0].Name, res.Sources[1].Name}
	assert.ElementsMatch(t, []string{"a.txt", "b.txt"}, names)
	for _, src := range res.Sources {
		assert.Equal(t, ".txt", src.Ext)
		assert.Equal(t, int64(1), src.SizeBytes)
		assert.Equal(t, 1, src.TextChars)
	}
}

func TestExtractZip_DirectoryEntriesSkipped(t *testing.T) {
	e := extract.New()

	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	_, err := w.Create("docs/")
	require.NoError(t, err)
	f, err := w.Create("docs/readme.txt")
	require.NoError(t, err)
	_, err = f.Write([]byte("inside"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	res, err := e.Extract(buf.Bytes(), ".zip")
	require.NoError(t, err)
	assert.Equal(t, "inside", res.Text)
}
