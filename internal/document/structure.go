package document

// StructureKind identifies which structural variant a document carries.
// Chunking strategy dispatch is an exhaustive switch over this kind.
type StructureKind int

const (
	KindNone StructureKind = iota
	KindCSV
	KindXLSX
	KindDoc
	KindPDF
)

// String returns the lowercase name of the kind for logging and payloads.
func (k StructureKind) String() string {
	switch k {
	case KindCSV:
		return "csv"
	case KindXLSX:
		return "xlsx"
	case KindDoc:
		return "doc"
	case KindPDF:
		return "pdf"
	default:
		return "none"
	}
}

// Structure is a closed tagged union over the format-specific structural
// metadata variants. Exactly the field matching Kind is non-nil; everything
// else stays nil. KindNone means no structural signal was detected and the
// generic chunking strategy applies.
type Structure struct {
	Kind StructureKind
	CSV  *CSVStructure
	XLSX *XLSXStructure
	Doc  *DocStructure
	PDF  *PDFStructure
}

// Empty reports whether the structure carries no usable signal for its kind.
// An empty structure falls back to generic chunking.
func (s Structure) Empty() bool {
	switch s.Kind {
	case KindCSV:
		return s.CSV == nil || len(s.CSV.Headers) == 0
	case KindXLSX:
		return s.XLSX == nil || len(s.XLSX.Sheets) == 0
	case KindDoc:
		return s.Doc == nil
	case KindPDF:
		return s.PDF == nil || len(s.PDF.Pages) == 0
	default:
		return true
	}
}

// CSVStructure holds everything the CSV chunking strategy needs.
type CSVStructure struct {
	Headers     []string
	RowCount    int
	ColumnTypes map[string]string // header -> inferred type
	SampleRows  [][]string        // first rows, for the summary chunk
	Rows        [][]string        // all data rows, header excluded
}

// XLSXStructure describes a workbook.
type XLSXStructure struct {
	Sheets    []SheetInfo
	HasMacros bool
	HasCharts bool
}

// SheetInfo describes a single worksheet.
type SheetInfo struct {
	Name        string
	RowCount    int
	ColCount    int
	Headers     []string
	ColumnTypes map[string]string
	Rows        [][]string
	HasFormulas bool
	MergedCells []string // A1-style ranges, e.g. "A1:B2"
}

// FormattingFlags records which inline formatting appears anywhere in a
// word-processing document. Derived from markup presence, not positions.
type FormattingFlags struct {
	Bold          bool
	Italic        bool
	Underline     bool
	Strikethrough bool
	Highlight     bool
}

// Heading is a detected heading with its level and position.
// Line is the index into the document's non-empty line sequence; Page is only
// meaningful for PDF headings.
type Heading struct {
	Text  string
	Level int
	Line  int
	Page  int
}

// Paragraph is a blank-line-delimited text block.
type Paragraph struct {
	Text string
	Line int
	Page int
}

// Table is a detected tabular region.
type Table struct {
	Text     string
	RowCount int
	ColCount int
	Page     int
}

// ListBlock is a run of consecutive bullet or numbered list items.
type ListBlock struct {
	Items []string
	Line  int
}

// DocStructure holds heuristic structure for DOCX and Markdown documents.
type DocStructure struct {
	Headings       []Heading
	Paragraphs     []Paragraph
	Tables         []Table
	Lists          []ListBlock
	HasImages      bool
	HyperlinkCount int
	Formatting     FormattingFlags
	Profile        Profile
}

// PageInfo describes a single PDF page.
type PageInfo struct {
	Number        int // 1-based
	Text          string
	WordCount     int
	HasImages     bool
	HasTables     bool
	HasFormFields bool
}

// PDFStructure holds per-page heuristic structure for PDF documents.
type PDFStructure struct {
	Pages      []PageInfo
	Headings   []Heading
	Paragraphs []Paragraph
	Tables     []Table
	FormFields []string
	Profile    Profile
}

// Profile is the structure analyzer's read on a document's prose: what kind
// of document it looks like, what language it is in, and how hard it reads.
type Profile struct {
	DocType             string   // report, invoice, letter, manual, article, general
	Language            string   // ISO 639-3 code, e.g. "eng"
	Readability         string   // simple, standard, advanced
	Complexity          float64  // Flesch-style score, lower is harder
	AvgWordsPerSentence float64
	Keywords            []string
}
