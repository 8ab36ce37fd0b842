package extract

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/bull/docindex/internal/analyze"
	"github.com/bull/docindex/internal/document"
)

// extractPDF reads per-page text and runs the same line heuristics as DOCX,
// tagging every heading, paragraph and table with its page. Image presence
// comes from the page resource dictionary; form fields and tables from text
// patterns.
func extractPDF(data []byte) (*Output, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedInput, err)
	}

	pageTexts, pageImages, err := readPages(reader)
	if err != nil {
		return nil, err
	}
	if len(pageTexts) == 0 {
		return nil, ErrEmptyContent
	}

	structure := &document.PDFStructure{}
	var full strings.Builder
	lineOffset := 0

	for i, pageText := range pageTexts {
		pageNum := i + 1
		headings, paragraphs, tables, _, formFields := scanLines(pageText, lineOffset, pageNum)

		page := document.PageInfo{
			Number:        pageNum,
			Text:          pageText,
			WordCount:     countWords(pageText),
			HasImages:     pageImages[i],
			HasTables:     len(tables) > 0,
			HasFormFields: len(formFields) > 0,
		}
		structure.Pages = append(structure.Pages, page)
		structure.Headings = append(structure.Headings, headings...)
		structure.Paragraphs = append(structure.Paragraphs, paragraphs...)
		structure.Tables = append(structure.Tables, tables...)
		structure.FormFields = append(structure.FormFields, formFields...)

		lineOffset += countNonEmptyLines(pageText)

		full.WriteString(pageText)
		if !strings.HasSuffix(pageText, "\n") {
			full.WriteString("\n")
		}
	}

	text := strings.TrimSpace(full.String())
	if text == "" {
		return nil, ErrEmptyContent
	}
	structure.Profile = analyze.Analyze(text)

	return &Output{
		Text:      text,
		WordCount: countWords(text),
		Structure: document.Structure{Kind: document.KindPDF, PDF: structure},
	}, nil
}

// readPages pulls plain text and an image-presence flag per page. A page
// whose text extraction fails is kept as empty rather than failing the
// document; a document where every page fails is empty content.
func readPages(reader *pdf.Reader) ([]string, []bool, error) {
	total := reader.NumPage()
	if total == 0 {
		return nil, nil, ErrEmptyContent
	}

	texts := make([]string, 0, total)
	images := make([]bool, 0, total)
	failed := 0

	for i := 1; i <= total; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			texts = append(texts, "")
			images = append(images, false)
			failed++
			continue
		}

		text, err := page.GetPlainText(nil)
		if err != nil {
			text = ""
			failed++
		}
		texts = append(texts, normalizeNewlines(text))
		images = append(images, pageHasImages(page))
	}

	if failed == total {
		return nil, nil, fmt.Errorf("%w: no page text could be extracted", ErrEmptyContent)
	}
	return texts, images, nil
}

func pageHasImages(page pdf.Page) bool {
	xobjects := page.V.Key("Resources").Key("XObject")
	return !xobjects.IsNull() && len(xobjects.Keys()) > 0
}

func countNonEmptyLines(text string) int {
	n := 0
	for _, line := range strings.Split(text, "\n") {
		if strings.TrimSpace(line) != "" {
			n++
		}
	}
	return n
}
