package mapping

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// PresetMatchThreshold is the minimum header overlap for a preset to be
// offered for a sheet.
const PresetMatchThreshold = 0.7

// Preset is a saved mapping for sheets with a known layout.
type Preset struct {
	ID        string         `json:"id" toml:"-" yaml:"-"`
	Name      string         `json:"name" toml:"name" yaml:"name"`
	KeyColumn string         `json:"keyColumn" toml:"key_column" yaml:"key_column"`
	Mappings  []FieldMapping `json:"mappings" toml:"mappings" yaml:"mappings"`
	Headers   []string       `json:"headers" toml:"headers" yaml:"headers"`
	CreatedAt time.Time      `json:"createdAt" toml:"-" yaml:"-"`
	UpdatedAt time.Time      `json:"updatedAt" toml:"-" yaml:"-"`
}

// PresetMatch pairs a preset with how well it fits a header set.
type PresetMatch struct {
	Preset     Preset  `json:"preset"`
	MatchScore float64 `json:"matchScore"`
}

// Validate checks the preset has a name, key column and a usable mapping.
func (p Preset) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return fmt.Errorf("preset name is required")
	}
	if _, err := (Plan{KeyColumn: p.KeyColumn, Mappings: p.Mappings}).Validate(); err != nil {
		return fmt.Errorf("preset %q: %w", p.Name, err)
	}
	return nil
}

// Columns lays the preset over a sheet's headers: mapped headers are
// enabled with the preset's destination, the rest are disabled.
func (p Preset) Columns(headers []string) []Column {
	dest := make(map[string]string, len(p.Mappings))
	for _, m := range p.Mappings {
		dest[strings.ToLower(strings.TrimSpace(m.Column))] = m.MetadataKey
	}

	usable := UsableHeaders(headers)
	cols := make([]Column, 0, len(usable))
	for _, h := range usable {
		key, ok := dest[strings.ToLower(strings.TrimSpace(h))]
		if !ok {
			cols = append(cols, Column{Header: h, MetadataKey: h})
			continue
		}
		cols = append(cols, Column{Header: h, Enabled: h != p.KeyColumn, MetadataKey: key})
	}
	return cols
}

// KeyColumnFor returns the preset key column if the sheet has it, else the
// usual guess.
func (p Preset) KeyColumnFor(headers []string) string {
	for _, h := range UsableHeaders(headers) {
		if strings.EqualFold(strings.TrimSpace(h), strings.TrimSpace(p.KeyColumn)) {
			return h
		}
	}
	return GuessKeyColumn(headers)
}

// MatchScore is the fraction of preset headers present in headers.
func MatchScore(headers, presetHeaders []string) float64 {
	if len(presetHeaders) == 0 {
		return 0
	}

	set := make(map[string]bool, len(headers))
	for _, h := range headers {
		set[strings.ToLower(strings.TrimSpace(h))] = true
	}

	matched := 0
	for _, h := range presetHeaders {
		if set[strings.ToLower(strings.TrimSpace(h))] {
			matched++
		}
	}
	return float64(matched) / float64(len(presetHeaders))
}

// MatchPresets returns presets scoring at least PresetMatchThreshold, best
// first.
func MatchPresets(headers []string, presets []Preset) []PresetMatch {
	var matches []PresetMatch
	for _, p := range presets {
		score := MatchScore(headers, p.Headers)
		if score >= PresetMatchThreshold {
			matches = append(matches, PresetMatch{Preset: p, MatchScore: score})
		}
	}
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].MatchScore > matches[j].MatchScore
	})
	return matches
}

// LoadPresetFile reads a preset from a .toml, .yaml or .yml file.
func LoadPresetFile(path string) (*Preset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read preset: %w", err)
	}

	var p Preset
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		err = toml.NewDecoder(bytes.NewReader(data)).DisallowUnknownFields().Decode(&p)
	case ".yaml", ".yml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		err = dec.Decode(&p)
	default:
		return nil, fmt.Errorf("unsupported preset format %q (use .toml or .yaml)", filepath.Ext(path))
	}
	if err != nil {
		return nil, fmt.Errorf("parse preset %s: %w", filepath.Base(path), err)
	}

	if p.Name == "" {
		p.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &p, nil
}

// WritePresetFile saves p in the format implied by the path extension.
func WritePresetFile(path string, p Preset) error {
	var (
		data []byte
		err  error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		data, err = toml.Marshal(p)
	case ".yaml", ".yml":
		data, err = yaml.Marshal(p)
	default:
		return fmt.Errorf("unsupported preset format %q (use .toml or .yaml)", filepath.Ext(path))
	}
	if err != nil {
		return fmt.Errorf("encode preset: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}
