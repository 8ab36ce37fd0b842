package chunker

import (
	"sort"
	"strconv"
	"strings"
)

// columnStats summarizes the numeric values of one column.
type columnStats struct {
	Count  int
	Min    float64
	Max    float64
	Mean   float64
	Median float64
	Q1     float64
	Q3     float64
	Range  float64
}

// numericColumnTypes are the inferred types eligible for statistics.
var numericColumnTypes = map[string]bool{
	"integer": true,
	"number":  true,
}

// computeStats parses and summarizes the numeric values in a column.
// Non-numeric stragglers in a numerically-typed column are skipped.
func computeStats(rows [][]string, col int) (columnStats, bool) {
	var values []float64
	for _, row := range rows {
		if col >= len(row) {
			continue
		}
		v := strings.TrimSpace(row[col])
		if v == "" {
			continue
		}
		f, err := strconv.ParseFloat(strings.ReplaceAll(v, ",", ""), 64)
		if err != nil {
			continue
		}
		values = append(values, f)
	}
	if len(values) == 0 {
		return columnStats{}, false
	}

	sort.Float64s(values)

	sum := 0.0
	for _, v := range values {
		sum += v
	}

	stats := columnStats{
		Count:  len(values),
		Min:    values[0],
		Max:    values[len(values)-1],
		Mean:   sum / float64(len(values)),
		Median: quantile(values, 0.5),
		Q1:     quantile(values, 0.25),
		Q3:     quantile(values, 0.75),
	}
	stats.Range = stats.Max - stats.Min
	return stats, true
}

// quantile computes the q-th quantile of sorted values with linear
// interpolation between closest ranks.
func quantile(sorted []float64, q float64) float64 {
	if len(sorted) == 1 {
		return sorted[0]
	}
	pos := q * float64(len(sorted)-1)
	lower := int(pos)
	upper := lower + 1
	if upper >= len(sorted) {
		return sorted[lower]
	}
	frac := pos - float64(lower)
	return sorted[lower]*(1-frac) + sorted[upper]*frac
}

// formatStat renders a float without trailing zero noise.
func formatStat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
