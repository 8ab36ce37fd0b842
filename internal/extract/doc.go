package extract

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"strings"

	"code.sajari.com/docconv"

	"github.com/bull/docindex/internal/analyze"
	"github.com/bull/docindex/internal/document"
)

// extractDOCX extracts plain text with docconv and derives structure from
// two cheap passes: heuristic line scanning over the text (headings,
// paragraphs, lists, form fields) and markup presence scanning over the
// OOXML body (tables, images, hyperlinks, formatting flags). There is no
// full object-model walk.
func extractDOCX(data []byte) (*Output, error) {
	text, _, err := docconv.ConvertDocx(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedInput, err)
	}

	text = normalizeNewlines(text)
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyContent
	}

	headings, paragraphs, tables, lists, _ := scanLines(text, 0, 0)

	structure := &document.DocStructure{
		Headings:   headings,
		Paragraphs: paragraphs,
		Tables:     tables,
		Lists:      lists,
		Profile:    analyze.Analyze(text),
	}

	applyMarkupFlags(structure, data)

	return &Output{
		Text:      text,
		WordCount: countWords(text),
		Structure: document.Structure{Kind: document.KindDoc, Doc: structure},
	}, nil
}

// applyMarkupFlags scans word/document.xml for markup the plain text cannot
// show: tables, drawings, hyperlinks and inline formatting runs.
func applyMarkupFlags(structure *document.DocStructure, data []byte) {
	body := readZipEntry(data, "word/document.xml")
	if body == "" {
		return
	}

	structure.HasImages = strings.Contains(body, "<w:drawing") || strings.Contains(body, "<pic:pic")
	structure.HyperlinkCount = strings.Count(body, "<w:hyperlink")
	structure.Formatting = document.FormattingFlags{
		Bold:          strings.Contains(body, "<w:b/>") || strings.Contains(body, `<w:b `),
		Italic:        strings.Contains(body, "<w:i/>") || strings.Contains(body, `<w:i `),
		Underline:     strings.Contains(body, "<w:u "),
		Strikethrough: strings.Contains(body, "<w:strike"),
		Highlight:     strings.Contains(body, "<w:highlight"),
	}

	// The text heuristics only see tab-separated table texture; the markup
	// is authoritative when it finds tables the scan missed.
	if markupTables := markupTableRegions(body); len(markupTables) > len(structure.Tables) {
		structure.Tables = markupTables
	}
}

// markupTableRegions pulls each <w:tbl> region out of the document body and
// reduces it to row-joined cell text.
func markupTableRegions(body string) []document.Table {
	var tables []document.Table
	rest := body
	for {
		start := strings.Index(rest, "<w:tbl>")
		if start < 0 {
			break
		}
		end := strings.Index(rest[start:], "</w:tbl>")
		if end < 0 {
			break
		}
		region := rest[start : start+end]
		rest = rest[start+end+len("</w:tbl>"):]

		rows := strings.Count(region, "<w:tr")
		var cols int
		if rows > 0 {
			cols = strings.Count(region, "<w:tc") / rows
		}
		tables = append(tables, document.Table{
			Text:     collectRunText(region),
			RowCount: rows,
			ColCount: cols,
		})
	}
	return tables
}

// collectRunText concatenates the contents of <w:t> runs in a markup region.
func collectRunText(region string) string {
	var parts []string
	rest := region
	for {
		start := strings.Index(rest, "<w:t")
		if start < 0 {
			break
		}
		// Skip <w:tbl>, <w:tr>, <w:tc> and friends; only text runs count.
		if next := rest[start+len("<w:t"):]; next != "" && next[0] != '>' && next[0] != ' ' {
			rest = rest[start+len("<w:t"):]
			continue
		}
		open := strings.Index(rest[start:], ">")
		if open < 0 {
			break
		}
		rest = rest[start+open+1:]
		close := strings.Index(rest, "</w:t>")
		if close < 0 {
			break
		}
		if run := strings.TrimSpace(rest[:close]); run != "" {
			parts = append(parts, run)
		}
		rest = rest[close+len("</w:t>"):]
	}
	return strings.Join(parts, " ")
}

// readZipEntry returns the named entry of a zip archive, or "" if missing.
func readZipEntry(data []byte, name string) string {
	r, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return ""
	}
	for _, file := range r.File {
		if file.Name != name {
			continue
		}
		rc, err := file.Open()
		if err != nil {
			return ""
		}
		defer rc.Close()
		content, err := io.ReadAll(rc)
		if err != nil {
			return ""
		}
		return string(content)
	}
	return ""
}
