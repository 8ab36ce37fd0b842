package extract

import (
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/bull/docindex/internal/document"
)

// typeInferenceSample caps how many non-empty values per column are examined
// when inferring a column type.
const typeInferenceSample = 100

// csvSampleRows is how many data rows the structure keeps as a sample for
// the summary chunk.
const csvSampleRows = 3

// extractCSV parses CSV bytes with full quoting support and infers a type
// for every column.
func extractCSV(data []byte) (*Output, error) {
	text := normalizeNewlines(string(data))
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyContent
	}

	records, err := parseCSV(text)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedInput, err)
	}
	if len(records) == 0 {
		return nil, ErrEmptyContent
	}

	headers := records[0]
	rows := records[1:]

	columnTypes := make(map[string]string, len(headers))
	for col, header := range headers {
		columnTypes[header] = inferColumnType(rows, col)
	}

	sample := rows
	if len(sample) > csvSampleRows {
		sample = sample[:csvSampleRows]
	}

	structure := &document.CSVStructure{
		Headers:     headers,
		RowCount:    len(rows),
		ColumnTypes: columnTypes,
		SampleRows:  sample,
		Rows:        rows,
	}

	return &Output{
		Text:      text,
		WordCount: countWords(text),
		Structure: document.Structure{Kind: document.KindCSV, CSV: structure},
	}, nil
}

// parseCSV splits CSV text into records. Quoted fields may contain commas,
// newlines and escaped quotes ("" inside a quoted field), which rules out a
// line-then-comma split.
func parseCSV(text string) ([][]string, error) {
	var (
		records  [][]string
		fields   []string
		field    strings.Builder
		inQuotes bool
	)

	runes := []rune(text)
	endField := func() {
		fields = append(fields, field.String())
		field.Reset()
	}
	endRecord := func() {
		endField()
		// Skip blank records produced by trailing newlines.
		if len(fields) == 1 && fields[0] == "" {
			fields = nil
			return
		}
		records = append(records, fields)
		fields = nil
	}

	for i := 0; i < len(runes); i++ {
		r := runes[i]
		switch {
		case inQuotes:
			if r == '"' {
				if i+1 < len(runes) && runes[i+1] == '"' {
					field.WriteRune('"')
					i++
				} else {
					inQuotes = false
				}
			} else {
				field.WriteRune(r)
			}
		case r == '"':
			if field.Len() > 0 {
				return nil, fmt.Errorf("unexpected quote at offset %d", i)
			}
			inQuotes = true
		case r == ',':
			endField()
		case r == '\n':
			endRecord()
		default:
			field.WriteRune(r)
		}
	}
	if inQuotes {
		return nil, fmt.Errorf("unterminated quoted field")
	}
	if field.Len() > 0 || len(fields) > 0 {
		endRecord()
	}

	return records, nil
}

var (
	emailRe = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)
	phoneRe = regexp.MustCompile(`^\+?[\d\s().-]{7,20}$`)
)

var dateLayouts = []string{
	"2006-01-02",
	"01/02/2006",
	"02/01/2006",
	"2006/01/02",
	"Jan 2, 2006",
	"January 2, 2006",
	"02-Jan-2006",
}

var boolValues = map[string]bool{
	"true": true, "false": true, "1": true, "0": true,
	"yes": true, "no": true, "y": true, "n": true,
}

// valueMatchers orders the inference rules by priority. The first rule that
// matches every sampled value in a column wins.
var valueMatchers = []struct {
	name  string
	match func(string) bool
}{
	{"integer", isInteger},
	{"number", isNumber},
	{"boolean", isBoolean},
	{"date", isDate},
	{"email", emailRe.MatchString},
	{"url", isURL},
	{"phone", phoneRe.MatchString},
}

// inferColumnType samples up to typeInferenceSample non-empty values from a
// column and returns the highest-priority type that matches all of them.
func inferColumnType(rows [][]string, col int) string {
	var sample []string
	for _, row := range rows {
		if col >= len(row) {
			continue
		}
		v := strings.TrimSpace(row[col])
		if v == "" {
			continue
		}
		sample = append(sample, v)
		if len(sample) >= typeInferenceSample {
			break
		}
	}
	if len(sample) == 0 {
		return "string"
	}

	for _, matcher := range valueMatchers {
		all := true
		for _, v := range sample {
			if !matcher.match(v) {
				all = false
				break
			}
		}
		if all {
			return matcher.name
		}
	}
	return "string"
}

func isInteger(v string) bool {
	_, err := strconv.ParseInt(v, 10, 64)
	return err == nil
}

func isNumber(v string) bool {
	_, err := strconv.ParseFloat(strings.ReplaceAll(v, ",", ""), 64)
	return err == nil
}

func isBoolean(v string) bool {
	return boolValues[strings.ToLower(v)]
}

func isDate(v string) bool {
	for _, layout := range dateLayouts {
		if _, err := time.Parse(layout, v); err == nil {
			return true
		}
	}
	// Generic fallback for anything the fixed layouts miss.
	if _, err := time.Parse(time.RFC3339, v); err == nil {
		return true
	}
	return false
}

func isURL(v string) bool {
	u, err := url.Parse(v)
	return err == nil && (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
