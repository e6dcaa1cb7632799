package reconcile

import (
	"context"
	"strings"

	"github.com/JonMunkholm/metasync/internal/mapping"
	"github.com/JonMunkholm/metasync/internal/tabular"
)

// PreviewResult describes what a pass would do, without writing.
type PreviewResult struct {
	TotalRows     int          `json:"totalRows"`
	Matched       int          `json:"matched"`
	Missing       int          `json:"missing"`
	PlannedWrites int          `json:"plannedWrites"`
	MissingRows   []MissingRow `json:"missingClips"`
	Rows          []PreviewRow `json:"rows"`
}

// PreviewRow is the per-row classification.
type PreviewRow struct {
	Filename string            `json:"filename"`
	Matched  bool              `json:"matched"`
	ItemName string            `json:"itemName,omitempty"`
	Writes   map[string]string `json:"writes,omitempty"`
}

// Preview classifies rows as matched or missing and lists the writes a pass
// would attempt. Lookups go through f; nothing is written.
func Preview(ctx context.Context, f Finder, plan mapping.Plan, rows []tabular.Row) (*PreviewResult, error) {
	plan, err := plan.Validate()
	if err != nil {
		return nil, err
	}

	res := &PreviewResult{
		TotalRows:   len(rows),
		MissingRows: []MissingRow{},
		Rows:        make([]PreviewRow, 0, len(rows)),
	}
	for _, row := range rows {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		key := strings.TrimSpace(row[plan.KeyColumn])
		if key == "" {
			res.Missing++
			res.MissingRows = append(res.MissingRows, MissingRow{Filename: BlankFilename})
			res.Rows = append(res.Rows, PreviewRow{Filename: BlankFilename})
			continue
		}

		item, ok, err := f.Find(ctx, key)
		if err != nil {
			return nil, err
		}
		if !ok {
			res.Missing++
			res.MissingRows = append(res.MissingRows, MissingRow{Filename: key})
			res.Rows = append(res.Rows, PreviewRow{Filename: key})
			continue
		}

		res.Matched++
		pr := PreviewRow{Filename: key, Matched: true, ItemName: item.Name, Writes: map[string]string{}}
		for _, m := range plan.Mappings {
			raw, present := row[m.Column]
			if !present {
				continue
			}
			if v := strings.TrimSpace(raw); v != "" {
				pr.Writes[m.MetadataKey] = v
				res.PlannedWrites++
			}
		}
		res.Rows = append(res.Rows, pr)
	}
	return res, nil
}
