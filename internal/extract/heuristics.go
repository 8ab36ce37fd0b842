package extract

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/bull/docindex/internal/document"
)

// Heuristic structure detection shared by the DOCX and PDF extractors.
// Pattern-based by design: headings, tables and form fields are inferred
// from how the text looks, not from a native object model. Approximate, and
// kept behind this boundary so a real structural parser can replace it
// without touching the chunking contracts.

const (
	maxHeadingLen      = 60
	maxTitleCaseWords  = 8
	minTableRows       = 2
	minTableSeparators = 2
)

var (
	numberedHeadingRe = regexp.MustCompile(`^(\d+(\.\d+)*)[.)]?\s+\S`)
	listItemRe        = regexp.MustCompile(`^\s*([-*•]|\d+[.)])\s+\S`)
	formFieldRe       = regexp.MustCompile(`^(.{1,60}?):\s*(_{3,}|\[\s*\]|\.{4,})\s*$`)
	tableRowRe        = regexp.MustCompile(`\S(\t+|\s{3,}|\s*\|\s*)\S`)
)

// detectHeading reports whether a line reads as a heading and at what level.
func detectHeading(line string) (level int, ok bool) {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" || len(trimmed) > maxHeadingLen {
		return 0, false
	}
	if strings.HasSuffix(trimmed, ".") || strings.HasSuffix(trimmed, ",") {
		return 0, false
	}

	// Numbered lines double as ordered-list items; require a capitalized
	// title after the number to read the line as a heading.
	if m := numberedHeadingRe.FindStringSubmatch(trimmed); m != nil {
		rest := strings.TrimLeft(trimmed[len(m[1]):], ".) \t")
		if r := []rune(rest); len(r) > 0 && unicode.IsUpper(r[0]) {
			return 1 + strings.Count(m[1], "."), true
		}
		return 0, false
	}

	if isAllCaps(trimmed) {
		return 1, true
	}

	if isTitleCase(trimmed) {
		return 2, true
	}

	return 0, false
}

func isAllCaps(s string) bool {
	letters := 0
	for _, r := range s {
		if unicode.IsLetter(r) {
			letters++
			if !unicode.IsUpper(r) {
				return false
			}
		}
	}
	return letters >= 2
}

func isTitleCase(s string) bool {
	words := strings.Fields(s)
	if len(words) == 0 || len(words) > maxTitleCaseWords {
		return false
	}
	for _, w := range words {
		r := []rune(w)[0]
		if unicode.IsLetter(r) && !unicode.IsUpper(r) {
			return false
		}
	}
	return true
}

// looksLikeTableRow reports whether a line has the column-separator texture
// of tabular text: tabs, pipe delimiters or wide space runs between cells.
func looksLikeTableRow(line string) bool {
	return len(tableRowRe.FindAllString(line, -1)) >= minTableSeparators ||
		strings.Count(line, "|") >= minTableSeparators
}

func columnCount(line string) int {
	if strings.Contains(line, "|") {
		n := 0
		for _, cell := range strings.Split(line, "|") {
			if strings.TrimSpace(cell) != "" {
				n++
			}
		}
		return n
	}
	if strings.Contains(line, "\t") {
		return len(strings.FieldsFunc(line, func(r rune) bool { return r == '\t' }))
	}
	return len(regexp.MustCompile(`\s{3,}`).Split(strings.TrimSpace(line), -1))
}

// scanLines walks the non-empty lines of text and produces headings,
// paragraphs, tables, lists and form-field labels. lineOffset and page tag
// the results with their position for section assignment.
func scanLines(text string, lineOffset, page int) (
	headings []document.Heading,
	paragraphs []document.Paragraph,
	tables []document.Table,
	lists []document.ListBlock,
	formFields []string,
) {
	rawLines := strings.Split(text, "\n")

	var paraBuf []string
	paraStart := 0
	line := lineOffset

	flushParagraph := func() {
		if len(paraBuf) == 0 {
			return
		}
		paragraphs = append(paragraphs, document.Paragraph{
			Text: strings.Join(paraBuf, " "),
			Line: paraStart,
			Page: page,
		})
		paraBuf = nil
	}

	var tableBuf []string
	tableCols := 0

	flushTable := func() {
		if len(tableBuf) < minTableRows {
			// Too short to be a table, fold back into prose.
			for _, l := range tableBuf {
				if len(paraBuf) == 0 {
					paraStart = line
				}
				paraBuf = append(paraBuf, strings.TrimSpace(l))
			}
			tableBuf = nil
			tableCols = 0
			return
		}
		tables = append(tables, document.Table{
			Text:     strings.Join(tableBuf, "\n"),
			RowCount: len(tableBuf),
			ColCount: tableCols,
			Page:     page,
		})
		tableBuf = nil
		tableCols = 0
	}

	var listBuf []string
	listStart := 0

	flushList := func() {
		if len(listBuf) == 0 {
			return
		}
		lists = append(lists, document.ListBlock{Items: listBuf, Line: listStart})
		listBuf = nil
	}

	for _, raw := range rawLines {
		trimmed := strings.TrimSpace(raw)
		if trimmed == "" {
			flushTable()
			flushList()
			flushParagraph()
			continue
		}

		if m := formFieldRe.FindStringSubmatch(trimmed); m != nil {
			formFields = append(formFields, strings.TrimSpace(m[1]))
			line++
			continue
		}

		// Heading before list: a numbered title line matches both patterns.
		if level, ok := detectHeading(trimmed); ok && !looksLikeTableRow(raw) {
			flushTable()
			flushList()
			flushParagraph()
			headings = append(headings, document.Heading{
				Text:  trimmed,
				Level: level,
				Line:  line,
				Page:  page,
			})
			line++
			continue
		}

		if listItemRe.MatchString(raw) {
			flushTable()
			flushParagraph()
			if len(listBuf) == 0 {
				listStart = line
			}
			listBuf = append(listBuf, trimmed)
			line++
			continue
		}
		flushList()

		if looksLikeTableRow(raw) {
			flushParagraph()
			if len(tableBuf) == 0 {
				tableCols = columnCount(raw)
			}
			tableBuf = append(tableBuf, raw)
			line++
			continue
		}
		flushTable()

		if len(paraBuf) == 0 {
			paraStart = line
		}
		paraBuf = append(paraBuf, trimmed)
		line++
	}

	flushTable()
	flushList()
	flushParagraph()

	return headings, paragraphs, tables, lists, formFields
}
