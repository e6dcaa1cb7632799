package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/metasync/internal/mapping"
	"github.com/JonMunkholm/metasync/internal/report"
)

func newHeadersCommand(cc *commandContext) *cobra.Command {
	var (
		src        sourceFlags
		presetPath string
		jsonOut    bool
	)

	cmd := &cobra.Command{
		Use:   "headers",
		Short: "List a sheet's columns with the suggested filename column and mappings",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := cc.ensureConfig()
			if err != nil {
				return err
			}
			svc, closeFn, err := openService(ctx, cfg)
			if err != nil {
				return err
			}
			defer closeFn()

			source, err := src.source(svc)
			if err != nil {
				return err
			}
			sheet, err := svc.LoadSheet(ctx, source)
			if err != nil {
				return err
			}

			keyColumn, columns := sheet.KeyColumn, sheet.Columns
			var score float64
			if presetPath != "" {
				p, err := mapping.LoadPresetFile(presetPath)
				if err != nil {
					return err
				}
				keyColumn, columns = p.KeyColumnFor(sheet.Headers), p.Columns(sheet.Headers)
				score = mapping.MatchScore(sheet.Headers, p.Headers)
			}

			if jsonOut {
				return writeJSON(cmd, map[string]any{
					"source":    sheet.Source,
					"headers":   sheet.Headers,
					"rows":      len(sheet.Rows),
					"keyColumn": keyColumn,
					"columns":   columns,
				})
			}

			rows := make([][]string, 0, len(columns))
			for _, c := range columns {
				use := "no"
				switch {
				case c.Header == keyColumn:
					use = "filename"
				case c.Enabled:
					use = "yes"
				}
				rows = append(rows, []string{c.Header, use, c.MetadataKey})
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s: %d rows\n", sheet.Source, len(sheet.Rows))
			if err := report.Grid(out, []string{"Column", "Use", "Metadata Key"}, rows); err != nil {
				return err
			}
			if presetPath != "" {
				fmt.Fprintf(out, "Preset matches %.0f%% of its saved headers.\n", score*100)
			}
			return nil
		},
	}

	src.register(cmd)
	cmd.Flags().StringVar(&presetPath, "preset", "", "Lay a .toml or .yaml preset over the columns")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Print the columns as JSON")
	return cmd
}
