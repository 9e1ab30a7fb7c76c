package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// column describes one output column. Cells hold raw values; cell renders
// them, and a nil cell falls back to formatCell.
type column struct {
	title string
	align text.Align
	cell  text.Transformer
}

func textColumn(title string) column { return column{title: title} }

func sizeColumn(title string) column {
	return column{title: title, align: text.AlignRight, cell: formatSizeCell}
}

// fieldColumns is the two-column layout used for single records.
var fieldColumns = []column{textColumn("Field"), textColumn("Value")}

func renderTable(columns []column, rows []table.Row) string {
	if len(columns) == 0 {
		return ""
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)

	header := make(table.Row, len(columns))
	configs := make([]table.ColumnConfig, len(columns))
	for i, col := range columns {
		header[i] = col.title
		cell := col.cell
		if cell == nil {
			cell = formatCell
		}
		configs[i] = table.ColumnConfig{
			Number:      i + 1,
			Align:       col.align,
			AlignHeader: text.AlignLeft,
			Transformer: cell,
		}
	}
	tw.AppendHeader(header)
	tw.SetColumnConfigs(configs)

	for _, row := range rows {
		if len(row) < len(columns) {
			row = append(row, make(table.Row, len(columns)-len(row))...)
		}
		tw.AppendRow(row[:len(columns)])
	}

	return tw.Render() + "\n"
}

// formatCell renders blanks, nil pointers and zero times as "-" and times
// relative to now.
func formatCell(v any) string {
	switch val := v.(type) {
	case nil:
		return "-"
	case string:
		return orDash(val)
	case *string:
		if val == nil {
			return "-"
		}
		return orDash(*val)
	case time.Time:
		if val.IsZero() {
			return "-"
		}
		return humanize.Time(val)
	case fmt.Stringer:
		return orDash(val.String())
	default:
		return orDash(fmt.Sprint(val))
	}
}

func formatSizeCell(v any) string {
	var n int64
	switch val := v.(type) {
	case int64:
		n = val
	case int:
		n = int64(val)
	}
	if n <= 0 {
		return "-"
	}
	return humanize.Bytes(uint64(n))
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}
