package chunker

import (
	"fmt"
	"strings"

	"github.com/bull/docindex/internal/document"
)

// sectionWindow is how many line-positions after a heading a paragraph may
// start and still belong to that heading's section.
const sectionWindow = 2

// paragraphBatchSize is how many leftover paragraphs go into one
// low-priority fallback chunk.
const paragraphBatchSize = 3

// chunkDoc emits, in order: a high-priority document summary, a
// high-priority outline when headings exist, medium section chunks, medium
// table chunks, low list chunks, a medium content-analysis chunk, and
// low-priority batches of any paragraphs no section captured.
func chunkDoc(em *emitter, doc *document.DocStructure) {
	em.emit(docSummary(doc), document.TypeDocSummary, document.PriorityHigh, nil)

	if len(doc.Headings) > 0 {
		em.emit(outlineText(doc.Headings, false), document.TypeDocOutline, document.PriorityHigh, nil)
	}

	captured := emitSections(em, doc.Headings, doc.Paragraphs, document.TypeDocSection, assignByLine)

	for i, table := range doc.Tables {
		text := table.Text
		if text == "" {
			text = fmt.Sprintf("Table with %d rows and %d columns", table.RowCount, table.ColCount)
		}
		em.emit(fmt.Sprintf("Table %d (%d rows x %d columns):\n%s", i+1, table.RowCount, table.ColCount, text),
			document.TypeDocTable, document.PriorityMedium, map[string]any{"table": i + 1})
	}

	for i, list := range doc.Lists {
		em.emit("List:\n"+strings.Join(list.Items, "\n"),
			document.TypeDocList, document.PriorityLow, map[string]any{"list": i + 1})
	}

	em.emit(contentAnalysisText(doc.Profile, &doc.Formatting),
		document.TypeContentAnalysis, document.PriorityMedium, nil)

	emitParagraphBatches(em, doc.Paragraphs, captured, document.TypeDocParagraphs)
}

func docSummary(doc *document.DocStructure) string {
	var b strings.Builder
	b.WriteString("Document summary\n")
	fmt.Fprintf(&b, "Type: %s\n", doc.Profile.DocType)
	fmt.Fprintf(&b, "%d headings, %d paragraphs, %d tables, %d lists\n",
		len(doc.Headings), len(doc.Paragraphs), len(doc.Tables), len(doc.Lists))
	if doc.HasImages {
		b.WriteString("Contains images\n")
	}
	if doc.HyperlinkCount > 0 {
		fmt.Fprintf(&b, "%d hyperlinks\n", doc.HyperlinkCount)
	}
	if len(doc.Profile.Keywords) > 0 {
		fmt.Fprintf(&b, "Key topics: %s\n", strings.Join(doc.Profile.Keywords, ", "))
	}
	return b.String()
}

// outlineText renders the heading tree with indentation by level.
func outlineText(headings []document.Heading, withPages bool) string {
	var b strings.Builder
	b.WriteString("Document outline:\n")
	for _, h := range headings {
		indent := strings.Repeat("  ", max(h.Level-1, 0))
		if withPages {
			fmt.Fprintf(&b, "%s%s (page %d)\n", indent, h.Text, h.Page)
		} else {
			fmt.Fprintf(&b, "%s%s\n", indent, h.Text)
		}
	}
	return b.String()
}

// assignByLine picks the nearest preceding heading within the section
// window, or -1 when the paragraph stands alone.
func assignByLine(headings []document.Heading, p document.Paragraph) int {
	best := -1
	for i, h := range headings {
		if h.Line < p.Line && p.Line-h.Line <= sectionWindow {
			best = i
		}
	}
	return best
}

// assignByPage picks the latest heading whose page does not exceed the
// paragraph's page.
func assignByPage(headings []document.Heading, p document.Paragraph) int {
	best := -1
	for i, h := range headings {
		if h.Page <= p.Page {
			best = i
		}
	}
	return best
}

// emitSections groups paragraphs under their assigned heading and emits one
// medium-priority chunk per non-empty section. Returns the set of paragraph
// indexes captured by some section.
func emitSections(
	em *emitter,
	headings []document.Heading,
	paragraphs []document.Paragraph,
	chunkType string,
	assign func([]document.Heading, document.Paragraph) int,
) map[int]bool {
	captured := make(map[int]bool)
	if len(headings) == 0 {
		return captured
	}

	sections := make([][]int, len(headings))
	for pi, p := range paragraphs {
		hi := assign(headings, p)
		if hi < 0 {
			continue
		}
		sections[hi] = append(sections[hi], pi)
		captured[pi] = true
	}

	for hi, paraIdx := range sections {
		if len(paraIdx) == 0 {
			continue
		}
		var b strings.Builder
		b.WriteString(headings[hi].Text)
		b.WriteString("\n\n")
		for _, pi := range paraIdx {
			b.WriteString(paragraphs[pi].Text)
			b.WriteString("\n\n")
		}
		em.emit(b.String(), chunkType, document.PriorityMedium,
			map[string]any{"section": headings[hi].Text})
	}
	return captured
}

// emitParagraphBatches sweeps up paragraphs no section captured, batched in
// threes.
func emitParagraphBatches(em *emitter, paragraphs []document.Paragraph, captured map[int]bool, chunkType string) {
	var batch []string
	flush := func() {
		if len(batch) == 0 {
			return
		}
		em.emit(strings.Join(batch, "\n\n"), chunkType, document.PriorityLow, nil)
		batch = nil
	}

	for pi, p := range paragraphs {
		if captured[pi] {
			continue
		}
		batch = append(batch, p.Text)
		if len(batch) == paragraphBatchSize {
			flush()
		}
	}
	flush()
}

func contentAnalysisText(profile document.Profile, formatting *document.FormattingFlags) string {
	var b strings.Builder
	b.WriteString("Content analysis\n")
	fmt.Fprintf(&b, "Language: %s\n", profile.Language)
	fmt.Fprintf(&b, "Readability: %s (score %.1f)\n", profile.Readability, profile.Complexity)
	fmt.Fprintf(&b, "Average words per sentence: %.1f\n", profile.AvgWordsPerSentence)
	if len(profile.Keywords) > 0 {
		fmt.Fprintf(&b, "Keywords: %s\n", strings.Join(profile.Keywords, ", "))
	}
	if formatting != nil {
		var used []string
		if formatting.Bold {
			used = append(used, "bold")
		}
		if formatting.Italic {
			used = append(used, "italic")
		}
		if formatting.Underline {
			used = append(used, "underline")
		}
		if formatting.Strikethrough {
			used = append(used, "strikethrough")
		}
		if formatting.Highlight {
			used = append(used, "highlight")
		}
		if len(used) > 0 {
			fmt.Fprintf(&b, "Formatting: %s\n", strings.Join(used, ", "))
		}
	}
	return b.String()
}
