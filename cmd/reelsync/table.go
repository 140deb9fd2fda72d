package main

import (
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// Every view here is one of two shapes: a label/value summary or a
// multi-column listing with numeric columns on the right.

// kvTable renders label/value pairs with the values right aligned.
func kvTable(label, value string, rows [][2]string) string {
	tw := newTable(table.Row{label, value})
	for _, row := range rows {
		tw.AppendRow(table.Row{row[0], row[1]})
	}
	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 2, Align: text.AlignRight, AlignHeader: text.AlignLeft},
	})
	return tw.Render()
}

// listTable renders a listing; the named column indexes (zero based)
// are right aligned.
func listTable(headers []string, rows [][]string, numeric ...int) string {
	header := make(table.Row, len(headers))
	for i, h := range headers {
		header[i] = h
	}
	tw := newTable(header)
	for _, row := range rows {
		r := make(table.Row, len(row))
		for i, cell := range row {
			r[i] = cell
		}
		tw.AppendRow(r)
	}

	configs := make([]table.ColumnConfig, 0, len(numeric))
	for _, col := range numeric {
		configs = append(configs, table.ColumnConfig{
			Number:      col + 1,
			Align:       text.AlignRight,
			AlignHeader: text.AlignLeft,
		})
	}
	tw.SetColumnConfigs(configs)
	return tw.Render()
}

func newTable(header table.Row) table.Writer {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(header)
	return tw
}
