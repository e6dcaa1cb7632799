package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/metasync/internal/mapping"
)

// planFlags choose the filename column and the column mappings.
type planFlags struct {
	keyColumn  string
	pairs      []string
	presetPath string
	savePath   string
	presetName string
}

func (f *planFlags) register(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.StringVar(&f.keyColumn, "key", "", "Column holding clip filenames (default: guessed from headers)")
	flags.StringArrayVar(&f.pairs, "map", nil, `Column to write, as "Column=Metadata Key" (repeatable; default: every column)`)
	flags.StringVar(&f.presetPath, "preset", "", "Load mappings from a .toml or .yaml preset file")
	flags.StringVar(&f.savePath, "save-preset", "", "Save the resulting mappings to a .toml or .yaml preset file")
	flags.StringVar(&f.presetName, "preset-name", "", "Name stored with --save-preset (default: file name)")
}

// plan builds the pass plan for a sheet with the given headers. A preset is
// laid over the headers first; --key and --map refine it.
func (f *planFlags) plan(headers []string) (mapping.Plan, error) {
	var (
		keyColumn = mapping.GuessKeyColumn(headers)
		columns   = mapping.Defaults(headers, keyColumn)
	)

	if f.presetPath != "" {
		p, err := mapping.LoadPresetFile(f.presetPath)
		if err != nil {
			return mapping.Plan{}, err
		}
		keyColumn = p.KeyColumnFor(headers)
		columns = p.Columns(headers)
	}

	if f.keyColumn != "" {
		k, err := findHeader(headers, f.keyColumn)
		if err != nil {
			return mapping.Plan{}, err
		}
		keyColumn = k
	}

	var plan mapping.Plan
	if len(f.pairs) > 0 {
		plan.KeyColumn = keyColumn
		for _, raw := range f.pairs {
			m, err := mapping.ParsePair(raw)
			if err != nil {
				return mapping.Plan{}, err
			}
			if m.Column, err = findHeader(headers, m.Column); err != nil {
				return mapping.Plan{}, err
			}
			plan.Mappings = append(plan.Mappings, m)
		}
	} else {
		var err error
		if plan, err = mapping.Resolve(keyColumn, columns); err != nil {
			return mapping.Plan{}, err
		}
	}

	validated, err := plan.Validate()
	if err != nil {
		return mapping.Plan{}, err
	}

	if f.savePath != "" {
		if err := f.save(validated, headers); err != nil {
			return mapping.Plan{}, err
		}
	}
	return validated, nil
}

func (f *planFlags) save(plan mapping.Plan, headers []string) error {
	name := f.presetName
	if name == "" {
		base := filepath.Base(f.savePath)
		name = strings.TrimSuffix(base, filepath.Ext(base))
	}
	p := mapping.Preset{
		Name:      name,
		KeyColumn: plan.KeyColumn,
		Mappings:  plan.Mappings,
		Headers:   headers,
	}
	if err := mapping.WritePresetFile(f.savePath, p); err != nil {
		return fmt.Errorf("save preset: %w", err)
	}
	return nil
}

// findHeader resolves name to the sheet's spelling of it.
func findHeader(headers []string, name string) (string, error) {
	name = strings.TrimSpace(name)
	for _, h := range headers {
		if strings.EqualFold(strings.TrimSpace(h), name) {
			return h, nil
		}
	}
	return "", fmt.Errorf("column %q is not in the sheet (columns: %s)", name, strings.Join(headers, ", "))
}
