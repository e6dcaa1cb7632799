package report

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/mattn/go-isatty"

	"github.com/JonMunkholm/metasync/internal/reconcile"
)

// ShouldColorize reports whether w is a terminal.
func ShouldColorize(w io.Writer) bool {
	file, ok := w.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// Table writes counts, missing clips and failures as boxed tables.
func Table(w io.Writer, o *reconcile.Outcome) error {
	color := ShouldColorize(w)
	var b strings.Builder

	b.WriteString(renderTable(color, []string{"Rows", "Matched", "Updated", "Missing", "Failed"}, [][]string{{
		strconv.Itoa(o.Stats.TotalRows),
		strconv.Itoa(o.Stats.Matched),
		strconv.Itoa(o.Stats.Updated),
		strconv.Itoa(o.Stats.Missing),
		strconv.Itoa(o.Stats.FailedAssignments),
	}}, true))
	b.WriteString("\n")

	if len(o.MissingRows) > 0 {
		rows := make([][]string, len(o.MissingRows))
		for i, m := range o.MissingRows {
			rows[i] = []string{m.Filename}
		}
		b.WriteString("\nMissing clips\n")
		b.WriteString(renderTable(color, []string{"Filename"}, rows, false))
		b.WriteString("\n")
	}

	if len(o.Failures) > 0 {
		rows := make([][]string, len(o.Failures))
		for i, f := range o.Failures {
			msg := f.Error
			if color {
				msg = text.FgRed.Sprint(msg)
			}
			rows[i] = []string{f.Filename, f.MetadataKey, msg}
		}
		b.WriteString("\nFailed assignments\n")
		b.WriteString(renderTable(color, []string{"Filename", "Metadata Key", "Error"}, rows, false))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(Summary(o))
	b.WriteString("\n")

	_, err := io.WriteString(w, b.String())
	return err
}

// Grid writes rows under headers as a boxed table.
func Grid(w io.Writer, headers []string, rows [][]string) error {
	_, err := fmt.Fprintln(w, renderTable(ShouldColorize(w), headers, rows, false))
	return err
}

func renderTable(color bool, headers []string, rows [][]string, numeric bool) string {
	columns := len(headers)
	if columns == 0 {
		return ""
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.Style().Format.Header = text.FormatDefault
	if color {
		tw.Style().Color.Header = text.Colors{text.Bold}
	}

	header := make(table.Row, columns)
	for i, h := range headers {
		header[i] = h
	}
	tw.AppendHeader(header)

	for _, row := range rows {
		r := make(table.Row, columns)
		for i := 0; i < columns; i++ {
			if i < len(row) {
				r[i] = row[i]
			} else {
				r[i] = ""
			}
		}
		tw.AppendRow(r)
	}

	configs := make([]table.ColumnConfig, 0, columns)
	for i := 0; i < columns; i++ {
		align := text.AlignLeft
		if numeric {
			align = text.AlignRight
		}
		configs = append(configs, table.ColumnConfig{
			Number:      i + 1,
			Align:       align,
			AlignHeader: text.AlignLeft,
		})
	}
	tw.SetColumnConfigs(configs)

	return tw.Render()
}

// PreviewTable writes a dry-run result.
func PreviewTable(w io.Writer, p *reconcile.PreviewResult) error {
	color := ShouldColorize(w)
	rows := make([][]string, 0, len(p.Rows))
	for _, r := range p.Rows {
		status := "missing"
		if r.Matched {
			status = "matched"
		}
		rows = append(rows, []string{r.Filename, status, r.ItemName, strconv.Itoa(len(r.Writes))})
	}

	out := renderTable(color, []string{"Filename", "Status", "Item", "Writes"}, rows, false)
	_, err := fmt.Fprintf(w, "%s\n\n%d of %d rows match; %d writes planned.\n", out, p.Matched, p.TotalRows, p.PlannedWrites)
	return err
}
