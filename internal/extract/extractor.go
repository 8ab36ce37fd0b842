// Package extract turns raw uploaded bytes into normalized text plus
// format-specific structural metadata. One extractor per format; dispatch
// resolves the declared MIME type first and falls back to extension sniffing
// when the declaration is absent or generic.
package extract

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/bull/docindex/internal/document"
)

// Output is a successful extraction. A failed extraction never returns a
// partially-valid Output.
type Output struct {
	Text      string
	WordCount int
	Structure document.Structure
}

// Format is a resolved document format.
type Format string

const (
	FormatText     Format = "text"
	FormatMarkdown Format = "markdown"
	FormatCSV      Format = "csv"
	FormatJSON     Format = "json"
	FormatXLSX     Format = "xlsx"
	FormatDOCX     Format = "docx"
	FormatPDF      Format = "pdf"
)

// mimeFormats maps declared MIME types to formats.
var mimeFormats = map[string]Format{
	"text/plain":               FormatText,
	"text/markdown":            FormatMarkdown,
	"text/csv":                 FormatCSV,
	"application/csv":          FormatCSV,
	"application/json":         FormatJSON,
	"application/pdf":          FormatPDF,
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document": FormatDOCX,
	"application/msword": FormatDOCX,
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet": FormatXLSX,
	"application/vnd.ms-excel": FormatXLSX,
}

// extFormats maps file extensions to formats for sniffing.
var extFormats = map[string]Format{
	".txt":  FormatText,
	".md":   FormatMarkdown,
	".csv":  FormatCSV,
	".json": FormatJSON,
	".pdf":  FormatPDF,
	".docx": FormatDOCX,
	".doc":  FormatDOCX,
	".xlsx": FormatXLSX,
	".xls":  FormatXLSX,
}

// ResolveFormat determines the format for a declared MIME type and filename.
// A present, non-generic MIME type wins; otherwise the extension decides.
func ResolveFormat(declaredMIME, filename string) (Format, error) {
	mime := strings.ToLower(strings.TrimSpace(declaredMIME))
	if i := strings.Index(mime, ";"); i >= 0 {
		mime = strings.TrimSpace(mime[:i])
	}

	if mime != "" && mime != "application/octet-stream" {
		if format, ok := mimeFormats[mime]; ok {
			return format, nil
		}
	}

	ext := strings.ToLower(filepath.Ext(filename))
	if format, ok := extFormats[ext]; ok {
		return format, nil
	}

	return "", fmt.Errorf("%w: mime %q, file %q", ErrUnsupportedType, declaredMIME, filename)
}

// Extractor dispatches extraction by resolved format. It is stateless and
// safe for concurrent use across documents.
type Extractor struct{}

// New returns an Extractor.
func New() *Extractor {
	return &Extractor{}
}

// Extract resolves the format and runs the matching extractor.
func (e *Extractor) Extract(data []byte, declaredMIME, filename string) (*Output, error) {
	format, err := ResolveFormat(declaredMIME, filename)
	if err != nil {
		return nil, err
	}

	switch format {
	case FormatText:
		return extractText(data)
	case FormatMarkdown:
		return extractMarkdown(data)
	case FormatCSV:
		return extractCSV(data)
	case FormatJSON:
		return extractJSON(data)
	case FormatXLSX:
		return extractXLSX(data)
	case FormatDOCX:
		return extractDOCX(data)
	case FormatPDF:
		return extractPDF(data)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedType, format)
	}
}

func countWords(text string) int {
	return len(strings.Fields(text))
}
