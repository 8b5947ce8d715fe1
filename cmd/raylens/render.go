package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/goccy/go-json"
	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/RayforceDB/raylens/bridge"
)

// renderRows writes rows in one of the supported formats. Column order is
// taken from cols so output matches the engine's result shape rather than
// map iteration order.
func renderRows(w io.Writer, cols []string, rows []bridge.Row, format string) error {
	switch format {
	case "json":
		return renderJSON(w, rows)
	case "csv":
		return renderCSV(w, cols, rows)
	case "md", "markdown":
		return renderMarkdown(w, cols, rows)
	case "table", "":
		return renderTable(w, cols, rows)
	default:
		return fmt.Errorf("unknown output format %q", format)
	}
}

func renderTable(w io.Writer, cols []string, rows []bridge.Row) error {
	if len(rows) == 0 {
		_, _ = fmt.Fprintln(w, "(0 rows)")
		return nil
	}

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)

	headerRow := make(table.Row, len(cols))
	for i, col := range cols {
		headerRow[i] = col
	}
	t.AppendHeader(headerRow)

	for _, r := range rows {
		row := make(table.Row, len(cols))
		for i, col := range cols {
			row[i] = formatValue(r[col])
		}
		t.AppendRow(row)
	}

	t.Render()
	_, _ = fmt.Fprintf(w, "(%d rows)\n", len(rows))
	return nil
}

func renderJSON(w io.Writer, rows []bridge.Row) error {
	if rows == nil {
		rows = []bridge.Row{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(rows)
}

func renderCSV(w io.Writer, cols []string, rows []bridge.Row) error {
	_, _ = fmt.Fprintln(w, strings.Join(cols, ","))
	for _, r := range rows {
		values := make([]string, len(cols))
		for i, col := range cols {
			values[i] = escapeCSV(formatValue(r[col]))
		}
		_, _ = fmt.Fprintln(w, strings.Join(values, ","))
	}
	return nil
}

func renderMarkdown(w io.Writer, cols []string, rows []bridge.Row) error {
	if len(rows) == 0 {
		_, _ = fmt.Fprintln(w, "(0 rows)")
		return nil
	}

	_, _ = fmt.Fprintf(w, "| %s |\n", strings.Join(cols, " | "))
	seps := make([]string, len(cols))
	for i := range seps {
		seps[i] = "---"
	}
	_, _ = fmt.Fprintf(w, "| %s |\n", strings.Join(seps, " | "))

	for _, r := range rows {
		values := make([]string, len(cols))
		for i, col := range cols {
			values[i] = formatValue(r[col])
		}
		_, _ = fmt.Fprintf(w, "| %s |\n", strings.Join(values, " | "))
	}
	return nil
}

func formatValue(v any) string {
	if v == nil {
		return "null"
	}
	return fmt.Sprintf("%v", v)
}

func escapeCSV(s string) string {
	if strings.ContainsAny(s, ",\"\n") {
		return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
	}
	return s
}
