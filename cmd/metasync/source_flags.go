package main

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/metasync/internal/core"
	"github.com/JonMunkholm/metasync/internal/tabular"
)

// sourceFlags select where the sheet comes from. Exactly one of --csv,
// --sheet-id or --html-url must be given.
type sourceFlags struct {
	csvPath      string
	delimiter    string
	sheetID      string
	sheetRange   string
	htmlURL      string
	htmlSelector string
	published    bool
}

func (f *sourceFlags) register(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.StringVar(&f.csvPath, "csv", "", "CSV file to read")
	flags.StringVar(&f.delimiter, "delimiter", "", "CSV field delimiter (default ,)")
	flags.StringVar(&f.sheetID, "sheet-id", "", "Google Sheets spreadsheet id")
	flags.StringVar(&f.sheetRange, "range", "Sheet1", "A1 range to read with --sheet-id")
	flags.StringVar(&f.htmlURL, "html-url", "", "Web page with a table, such as a published sheet")
	flags.StringVar(&f.htmlSelector, "html-selector", "", "CSS selector of the table (default: first table)")
	flags.BoolVar(&f.published, "published", false, "Drop the row and column labels of a published Google sheet")
}

func (f *sourceFlags) source(svc *core.Service) (tabular.Source, error) {
	set := 0
	for _, v := range []string{f.csvPath, f.sheetID, f.htmlURL} {
		if strings.TrimSpace(v) != "" {
			set++
		}
	}
	switch {
	case set == 0:
		return nil, errors.New("choose a sheet with --csv, --sheet-id or --html-url")
	case set > 1:
		return nil, errors.New("--csv, --sheet-id and --html-url are mutually exclusive")
	}

	switch {
	case f.csvPath != "":
		src := tabular.CSVSource{Path: f.csvPath}
		if f.delimiter != "" {
			if utf8.RuneCountInString(f.delimiter) != 1 {
				return nil, fmt.Errorf("--delimiter must be one character, got %q", f.delimiter)
			}
			src.Comma, _ = utf8.DecodeRuneInString(f.delimiter)
		}
		return src, nil
	case f.sheetID != "":
		return svc.SheetsSource(strings.TrimSpace(f.sheetID), strings.TrimSpace(f.sheetRange)), nil
	}
	return tabular.HTMLTableSource{
		URL:       strings.TrimSpace(f.htmlURL),
		Selector:  f.htmlSelector,
		Published: f.published,
	}, nil
}
