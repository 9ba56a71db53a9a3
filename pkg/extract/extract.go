// Package extract converts source file bytes into plain UTF-8 text.
// Supported inputs are .txt, .pdf, .docx, .xlsx and .zip containers.
package extract

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"path"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"
	"github.com/xuri/excelize/v2"

	"github.com/vasdom/knowledge/internal/models"
)

// zipEntryExts lists extensions extracted from inside a zip container.
// Nested zips are not descended.
var zipEntryExts = map[string]bool{
	".pdf":  true,
	".docx": true,
	".txt":  true,
	".xlsx": true,
}

type Extractor struct{}

func New() *Extractor {
	return &Extractor{}
}

// Extract converts data with the given lowercased extension into plain
// text and a page count. Unknown extensions and parse failures yield an
// error; callers fold failed sources into empty contributions.
func (e *Extractor) Extract(data []byte, ext string) (res models.Extraction, err error) {
	defer func() {
		// Some format parsers panic on corrupt input.
		if r := recover(); r != nil {
			res = models.Extraction{}
			err = fmt.Errorf("extraction panic: %v", r)
		}
	}()

	switch ext {
	case ".txt":
		return extractTXT(data), nil
	case ".pdf":
		return extractPDF(data)
	case ".docx":
		return extractDOCX(data)
	case ".xlsx":
		return extractXLSX(data)
	case ".zip":
		return e.extractZip(data)
	default:
		return models.Extraction{}, fmt.Errorf("unsupported extension %q", ext)
	}
}

func extractTXT(data []byte) models.Extraction {
	text := string(data)
	if !utf8.ValidString(text) {
		text = strings.ToValidUTF8(text, "�")
	}
	return models.Extraction{Text: text}
}

func extractPDF(data []byte) (models.Extraction, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return models.Extraction{}, fmt.Errorf("open pdf: %w", err)
	}

	total := reader.NumPage()
	parts := make([]string, 0, total)
	for i := 1; i <= total; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			parts = append(parts, "")
			continue
		}
		text, err := pageText(page)
		if err != nil {
			// A broken page contributes empty text.
			text = ""
		}
		parts = append(parts, text)
	}

	return models.Extraction{
		Text:       strings.Join(parts, "\n"),
		Pages:      total,
		PagesKnown: true,
	}, nil
}

func pageText(page pdf.Page) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			text = ""
			err = fmt.Errorf("page text panic: %v", r)
		}
	}()
	return page.GetPlainText(nil)
}

// documentXML mirrors the relevant structure of word/document.xml.
type documentXML struct {
	Body struct {
		Paragraphs []paragraph `xml:"p"`
	} `xml:"body"`
}

type paragraph struct {
	Runs []run `xml:"r"`
}

type run struct {
	Text []textElement `xml:"t"`
}

type textElement struct {
	Content string `xml:",chardata"`
}

func extractDOCX(data []byte) (models.Extraction, error) {
	reader, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return models.Extraction{}, fmt.Errorf("open docx: %w", err)
	}

	for _, file := range reader.File {
		if file.Name != "word/document.xml" {
			continue
		}

		rc, err := file.Open()
		if err != nil {
			return models.Extraction{}, fmt.Errorf("open document.xml: %w", err)
		}
		content, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return models.Extraction{}, fmt.Errorf("read document.xml: %w", err)
		}

		return models.Extraction{Text: parseDocumentXML(content)}, nil
	}

	return models.Extraction{}, fmt.Errorf("docx has no word/document.xml")
}

func parseDocumentXML(content []byte) string {
	var doc documentXML
	if err := xml.Unmarshal(content, &doc); err != nil {
		return ""
	}

	var result strings.Builder
	for i, para := range doc.Body.Paragraphs {
		if i > 0 {
			result.WriteString("\n")
		}
		for _, r := range para.Runs {
			for _, t := range r.Text {
				result.WriteString(t.Content)
			}
		}
	}
	return result.String()
}

func extractXLSX(data []byte) (models.Extraction, error) {
	workbook, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return models.Extraction{}, fmt.Errorf("open xlsx: %w", err)
	}
	defer workbook.Close()

	var lines []string
	scanned := 0
	for _, sheet := range workbook.GetSheetList() {
		rows, err := workbook.GetRows(sheet)
		if err != nil {
			continue
		}
		for _, row := range rows {
			scanned++
			cells := make([]string, 0, len(row))
			for _, cell := range row {
				if cell != "" {
					cells = append(cells, cell)
				}
			}
			if joined := strings.Join(cells, " "); joined != "" {
				lines = append(lines, joined)
			}
		}
	}

	return models.Extraction{
		Text:       strings.Join(lines, "\n"),
		Pages:      scanned,
		PagesKnown: true,
	}, nil
}

// extractZip enumerates container entries one level deep, skipping
// directories, absolute paths, path traversal and unknown extensions.
func (e *Extractor) extractZip(data []byte) (models.Extraction, error) {
	reader, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return models.Extraction{}, fmt.Errorf("open zip: %w", err)
	}

	var texts []string
	var sources []models.FileStat
	pages := 0
	for _, entry := range reader.File {
		if !safeZipEntry(entry) {
			continue
		}

		rc, err := entry.Open()
		if err != nil {
			continue
		}
		content, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			continue
		}

		ext := strings.ToLower(path.Ext(entry.Name))
		inner, err := e.Extract(content, ext)
		if err != nil || inner.Text == "" {
			continue
		}
		texts = append(texts, inner.Text)
		if inner.PagesKnown {
			pages += inner.Pages
		}
		sources = append(sources, models.FileStat{
			Name:      entry.Name,
			Ext:       ext,
			SizeBytes: int64(len(content)),
			Pages:     inner.Pages,
			TextChars: len([]rune(inner.Text)),
		})
	}

	return models.Extraction{
		Text:       strings.Join(texts, "\n\n"),
		Pages:      pages,
		PagesKnown: true,
		Sources:    sources,
	}, nil
}

func safeZipEntry(entry *zip.File) bool {
	name := entry.Name
	if entry.FileInfo().IsDir() || strings.HasSuffix(name, "/") {
		return false
	}
	if path.IsAbs(name) || strings.HasPrefix(name, "\\") {
		return false
	}
	if strings.Contains(name, "..") {
		return false
	}
	return zipEntryExts[strings.ToLower(path.Ext(name))]
}
