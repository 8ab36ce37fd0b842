package extract

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/parser"
	gtext "github.com/yuin/goldmark/text"
	"go.abhg.dev/goldmark/toc"

	"github.com/bull/docindex/internal/analyze"
	"github.com/bull/docindex/internal/document"
)

// extractText handles plain UTF-8 text. No structural metadata; the generic
// chunking strategy applies.
func extractText(data []byte) (*Output, error) {
	if !utf8.Valid(data) {
		return nil, fmt.Errorf("%w: not valid UTF-8 text", ErrMalformedInput)
	}

	text := normalizeNewlines(string(data))
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyContent
	}

	return &Output{
		Text:      text,
		WordCount: countWords(text),
		Structure: document.Structure{Kind: document.KindNone},
	}, nil
}

// extractMarkdown treats markdown as text but recovers the heading tree via
// the goldmark TOC so the document chunking strategy applies. A document
// with no headings degrades to plain text.
func extractMarkdown(data []byte) (*Output, error) {
	if !utf8.Valid(data) {
		return nil, fmt.Errorf("%w: not valid UTF-8 text", ErrMalformedInput)
	}

	text := normalizeNewlines(string(data))
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyContent
	}

	headings := markdownHeadings([]byte(text))
	if len(headings) == 0 {
		return &Output{
			Text:      text,
			WordCount: countWords(text),
			Structure: document.Structure{Kind: document.KindNone},
		}, nil
	}

	structure := &document.DocStructure{
		Headings: headings,
		Profile:  analyze.Analyze(text),
	}

	// Paragraphs, tables and lists come from a line scan that shares its
	// numbering with the heading line index above.
	structure.Paragraphs, structure.Tables, structure.Lists = markdownBlocks(text)

	return &Output{
		Text:      text,
		WordCount: countWords(text),
		Structure: document.Structure{Kind: document.KindDoc, Doc: structure},
	}, nil
}

// markdownHeadings parses markdown and flattens the TOC into headings with
// their level and line position.
func markdownHeadings(source []byte) []document.Heading {
	md := goldmark.New(goldmark.WithParserOptions(parser.WithAutoHeadingID()))
	doc := md.Parser().Parse(gtext.NewReader(source))

	tree, err := toc.Inspect(doc, source,
		toc.MinDepth(1),
		toc.MaxDepth(6),
		toc.Compact(true),
	)
	if err != nil {
		return nil
	}

	lineIndex := headingLineIndex(string(source))

	var headings []document.Heading
	var walk func(items toc.Items, depth int)
	walk = func(items toc.Items, depth int) {
		for _, item := range items {
			title := string(item.Title)
			headings = append(headings, document.Heading{
				Text:  title,
				Level: depth,
				Line:  lineIndex[title],
			})
			walk(item.Items, depth+1)
		}
	}
	walk(tree.Items, 1)
	return headings
}

// headingLineIndex maps heading titles to the non-empty-line index where the
// heading appears, matching the numbering scanLines assigns to paragraphs.
func headingLineIndex(text string) map[string]int {
	index := make(map[string]int)
	line := 0
	for _, raw := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(raw)
		if trimmed == "" {
			continue
		}
		if strings.HasPrefix(trimmed, "#") {
			title := strings.TrimSpace(strings.TrimLeft(trimmed, "#"))
			if _, seen := index[title]; !seen {
				index[title] = line
			}
		}
		line++
	}
	return index
}

// markdownBlocks collects paragraphs, pipe tables and list blocks from
// markdown text. Line numbering counts every non-empty line, including
// heading lines, so it lines up with headingLineIndex.
func markdownBlocks(text string) ([]document.Paragraph, []document.Table, []document.ListBlock) {
	var (
		paragraphs []document.Paragraph
		tables     []document.Table
		lists      []document.ListBlock
	)

	var paraBuf []string
	paraStart := 0
	var tableBuf []string
	tableCols := 0
	var listBuf []string
	listStart := 0
	line := 0

	flushParagraph := func() {
		if len(paraBuf) > 0 {
			paragraphs = append(paragraphs, document.Paragraph{
				Text: strings.Join(paraBuf, " "),
				Line: paraStart,
			})
			paraBuf = nil
		}
	}
	flushTable := func() {
		if len(tableBuf) >= minTableRows {
			tables = append(tables, document.Table{
				Text:     strings.Join(tableBuf, "\n"),
				RowCount: len(tableBuf),
				ColCount: tableCols,
			})
		}
		tableBuf = nil
		tableCols = 0
	}
	flushList := func() {
		if len(listBuf) > 0 {
			lists = append(lists, document.ListBlock{Items: listBuf, Line: listStart})
			listBuf = nil
		}
	}

	for _, raw := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(raw)
		if trimmed == "" {
			flushParagraph()
			flushTable()
			flushList()
			continue
		}

		switch {
		case strings.HasPrefix(trimmed, "#"):
			flushParagraph()
			flushTable()
			flushList()
		case listItemRe.MatchString(raw):
			flushParagraph()
			flushTable()
			if len(listBuf) == 0 {
				listStart = line
			}
			listBuf = append(listBuf, trimmed)
		case strings.Count(trimmed, "|") >= minTableSeparators:
			flushParagraph()
			flushList()
			if len(tableBuf) == 0 {
				tableCols = columnCount(trimmed)
			}
			tableBuf = append(tableBuf, trimmed)
		default:
			flushTable()
			flushList()
			if len(paraBuf) == 0 {
				paraStart = line
			}
			paraBuf = append(paraBuf, trimmed)
		}
		line++
	}
	flushParagraph()
	flushTable()
	flushList()

	return paragraphs, tables, lists
}

func normalizeNewlines(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return strings.ReplaceAll(s, "\r", "\n")
}
