package ingest

import (
	"math"
	"strconv"
	"strings"

	"github.com/chrisdamba/slawatch/internal/logging"
	"github.com/chrisdamba/slawatch/internal/models"
)

// Row is one parsed CSV line. Numeric columns live in Numbers, the rest in Fields.
type Row struct {
	Fields  map[string]string
	Numbers map[string]float64
}

// Text returns the raw value of a text column.
func (r Row) Text(column string) string {
	return r.Fields[column]
}

// Float returns a numeric column, 0 when absent.
func (r Row) Float(column string) float64 {
	return r.Numbers[column]
}

func isNumericColumn(column string) bool {
	for _, c := range models.NumericColumns {
		if c == column {
			return true
		}
	}
	return false
}

// ParseCSV turns header-led comma separated text into rows. Fields are read
// positionally; rows with a different field count are kept and logged. Numeric
// values that do not parse, or parse to NaN or ±Inf, become 0. Empty or
// header-only input yields no rows.
func ParseCSV(text string) []Row {
	text = strings.TrimSpace(text)
	if text == "" {
		logging.Debug().Msg("empty csv input")
		return nil
	}

	lines := strings.Split(text, "\n")
	if len(lines) < 2 {
		return nil
	}

	headers := splitLine(lines[0])
	rows := make([]Row, 0, len(lines)-1)

	for i, line := range lines[1:] {
		line = strings.TrimRight(line, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}

		values := strings.Split(line, ",")
		if len(values) != len(headers) {
			logging.Warn().
				Int("line", i+2).
				Int("expected", len(headers)).
				Int("got", len(values)).
				Msg("csv row field count mismatch, parsing positionally")
		}

		row := Row{
			Fields:  make(map[string]string, len(headers)),
			Numbers: make(map[string]float64),
		}
		for j, header := range headers {
			var value string
			if j < len(values) {
				value = strings.TrimSpace(values[j])
			}
			if !isNumericColumn(header) {
				row.Fields[header] = value
				continue
			}
			f, err := strconv.ParseFloat(value, 64)
			if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
				if value != "" {
					logging.Debug().Int("line", i+2).Str("column", header).Str("value", value).Msg("non-numeric value, using 0")
				}
				f = 0
			}
			row.Numbers[header] = f
		}
		rows = append(rows, row)
	}

	return rows
}

func splitLine(line string) []string {
	parts := strings.Split(strings.ReplaceAll(line, "\r", ""), ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}
