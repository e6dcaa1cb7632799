// Package mapping turns sheet headers and operator choices into the key
// column and column-to-metadata mappings a reconciliation pass uses.
package mapping

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNoKeyColumn means no filename column was chosen.
	ErrNoKeyColumn = errors.New("select the column that contains filenames")

	// ErrNoMappingsSelected means no enabled column has a destination key.
	ErrNoMappingsSelected = errors.New("select at least one column to map")
)

// keyColumnGuesses are matched case-insensitively, in preference order.
var keyColumnGuesses = []string{"file name", "filename", "clip name", "name"}

// FieldMapping sends one sheet column to one metadata key.
type FieldMapping struct {
	Column      string `json:"column" toml:"column" yaml:"column"`
	MetadataKey string `json:"metadataKey" toml:"metadata_key" yaml:"metadata_key"`
}

// Column is one row of the operator's mapping form.
type Column struct {
	Header      string `json:"header"`
	Enabled     bool   `json:"enabled"`
	MetadataKey string `json:"metadataKey"`
}

// Plan is a validated key column plus its mappings.
type Plan struct {
	KeyColumn string         `json:"filenameColumn"`
	Mappings  []FieldMapping `json:"mappings"`
}

// UsableHeaders drops blank headers.
func UsableHeaders(headers []string) []string {
	out := make([]string, 0, len(headers))
	for _, h := range headers {
		if strings.TrimSpace(h) != "" {
			out = append(out, h)
		}
	}
	return out
}

// GuessKeyColumn picks the header most likely to hold filenames, falling
// back to the first usable header. Returns "" when there is none.
func GuessKeyColumn(headers []string) string {
	usable := UsableHeaders(headers)
	for _, guess := range keyColumnGuesses {
		for _, h := range usable {
			if strings.ToLower(strings.TrimSpace(h)) == guess {
				return h
			}
		}
	}
	if len(usable) > 0 {
		return usable[0]
	}
	return ""
}

// Defaults builds the initial mapping form: every usable header enabled
// except the key column, destination defaulting to the header text.
func Defaults(headers []string, keyColumn string) []Column {
	usable := UsableHeaders(headers)
	cols := make([]Column, 0, len(usable))
	for _, h := range usable {
		cols = append(cols, Column{
			Header:      h,
			Enabled:     h != keyColumn,
			MetadataKey: h,
		})
	}
	return cols
}

// Resolve validates the operator's choices into a Plan.
func Resolve(keyColumn string, columns []Column) (Plan, error) {
	if strings.TrimSpace(keyColumn) == "" {
		return Plan{}, ErrNoKeyColumn
	}

	var mappings []FieldMapping
	for _, c := range columns {
		if !c.Enabled || c.Header == keyColumn {
			continue
		}
		key := strings.TrimSpace(c.MetadataKey)
		if key == "" {
			continue
		}
		mappings = append(mappings, FieldMapping{Column: c.Header, MetadataKey: key})
	}
	if len(mappings) == 0 {
		return Plan{}, ErrNoMappingsSelected
	}
	return Plan{KeyColumn: keyColumn, Mappings: mappings}, nil
}

// Validate checks a plan that arrived pre-built, e.g. over the wire. Entries
// without a metadata key and entries for the key column are dropped.
func (p Plan) Validate() (Plan, error) {
	if strings.TrimSpace(p.KeyColumn) == "" {
		return Plan{}, ErrNoKeyColumn
	}
	out := Plan{KeyColumn: p.KeyColumn}
	for _, m := range p.Mappings {
		m.MetadataKey = strings.TrimSpace(m.MetadataKey)
		if m.MetadataKey == "" || m.Column == p.KeyColumn {
			continue
		}
		out.Mappings = append(out.Mappings, m)
	}
	if len(out.Mappings) == 0 {
		return Plan{}, ErrNoMappingsSelected
	}
	return out, nil
}

// ParsePair parses "Column=Metadata Key". A bare "Column" maps to a key of
// the same name.
func ParsePair(s string) (FieldMapping, error) {
	col, key, found := strings.Cut(s, "=")
	col = strings.TrimSpace(col)
	key = strings.TrimSpace(key)
	if !found {
		key = col
	}
	if col == "" || key == "" {
		return FieldMapping{}, fmt.Errorf("invalid mapping %q: want Column=Metadata Key", s)
	}
	return FieldMapping{Column: col, MetadataKey: key}, nil
}
