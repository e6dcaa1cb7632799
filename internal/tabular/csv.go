package tabular

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
)

// CSVSource reads comma separated values from a file path or a reader.
// Reader takes precedence when both are set.
type CSVSource struct {
	Path   string
	Reader io.Reader
	// Name labels reader-backed sources, typically the uploaded file name.
	Name string
	// Comma overrides the field delimiter.
	Comma rune
}

func (s CSVSource) Describe() string {
	switch {
	case s.Name != "":
		return "csv:" + s.Name
	case s.Path != "":
		return "csv:" + filepath.Base(s.Path)
	}
	return "csv"
}

func (s CSVSource) Values(ctx context.Context) ([][]string, error) {
	r := s.Reader
	if r == nil {
		if s.Path == "" {
			return nil, fmt.Errorf("%w: csv path is required", ErrSourceUnavailable)
		}
		f, err := os.Open(s.Path)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrSourceUnavailable, err)
		}
		defer f.Close()
		r = f
	}

	cr := csv.NewReader(cleanText(r))
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.TrimLeadingSpace = true
	if s.Comma != 0 {
		cr.Comma = s.Comma
	}

	var values [][]string
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: parse csv: %v", ErrSourceUnavailable, err)
		}
		values = append(values, rec)
	}
	return values, nil
}

// cleanText strips a UTF-8 byte order mark and replaces ill-formed UTF-8
// with U+FFFD while streaming.
func cleanText(r io.Reader) io.Reader {
	return transform.NewReader(r, transform.Chain(
		unicode.UTF8BOM.NewDecoder(),
		runes.ReplaceIllFormed(),
	))
}
