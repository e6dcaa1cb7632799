// Package tabular reads spreadsheet-like data into a header list plus one
// map per row. Sources are CSV files, the Google Sheets values API and
// published HTML tables.
package tabular

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrSourceUnavailable covers connectivity, authorization and read
	// failures. No partial data accompanies it.
	ErrSourceUnavailable = errors.New("source unavailable")

	// ErrInvalidRange means the selector matched nothing.
	ErrInvalidRange = errors.New("invalid range")
)

// Row maps header text to cell text. A header missing from the map is
// "absent", which is distinct from a present blank cell.
type Row map[string]string

// Dataset is an immutable table: headers in source order and rows keyed by
// header.
type Dataset struct {
	Headers []string `json:"headers"`
	Rows    []Row    `json:"rows"`
}

// Source produces raw cell values, first row being headers.
type Source interface {
	Values(ctx context.Context) ([][]string, error)
}

// Describer is implemented by sources that can name themselves for logs and
// run history.
type Describer interface {
	Describe() string
}

// Describe returns a short label for src.
func Describe(src Source) string {
	if d, ok := src.(Describer); ok {
		return d.Describe()
	}
	return fmt.Sprintf("%T", src)
}

// Load reads src and shapes it into a Dataset.
func Load(ctx context.Context, src Source) (*Dataset, error) {
	values, err := src.Values(ctx)
	if err != nil {
		return nil, err
	}
	return FromValues(values)
}

// FromValues shapes raw values into a Dataset. Header cells are trimmed;
// blank headers keep their position but produce no row key. Short rows are
// padded with "".
func FromValues(values [][]string) (*Dataset, error) {
	if len(values) == 0 {
		return nil, fmt.Errorf("%w: no rows returned", ErrInvalidRange)
	}

	headers := make([]string, len(values[0]))
	for i, h := range values[0] {
		headers[i] = strings.TrimSpace(h)
	}

	rows := make([]Row, 0, len(values)-1)
	for _, cells := range values[1:] {
		row := make(Row, len(headers))
		for i, h := range headers {
			if h == "" {
				continue
			}
			if i < len(cells) {
				row[h] = cells[i]
			} else {
				row[h] = ""
			}
		}
		rows = append(rows, row)
	}

	return &Dataset{Headers: headers, Rows: rows}, nil
}

// UsableHeaders returns the non-blank headers in order.
func (d *Dataset) UsableHeaders() []string {
	out := make([]string, 0, len(d.Headers))
	for _, h := range d.Headers {
		if h != "" {
			out = append(out, h)
		}
	}
	return out
}

// Sample returns at most n rows for previews.
func (d *Dataset) Sample(n int) []Row {
	if n < 0 || n >= len(d.Rows) {
		return d.Rows
	}
	return d.Rows[:n]
}
