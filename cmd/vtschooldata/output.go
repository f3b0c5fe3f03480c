package main

import (
	"encoding/json"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/almartin82/vtschooldata/internal/exporter"
)

// emit writes headers and rows in the selected format. data is what gets
// encoded for --format json.
func (c *cli) emit(data interface{}, headers []string, rows [][]string) error {
	switch c.format {
	case "csv":
		return exporter.Write(c.out, exporter.WriteOptions{Headers: headers, Records: rows})
	case "json":
		enc := json.NewEncoder(c.out)
		enc.SetIndent("", "  ")
		return enc.Encode(data)
	default:
		c.renderTable(headers, rows)
		return nil
	}
}

func (c *cli) renderTable(headers []string, rows [][]string) {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.SetOutputMirror(c.out)

	t.AppendHeader(toRow(headers))
	for _, r := range rows {
		t.AppendRow(toRow(r))
	}
	t.Render()
}

func toRow(cells []string) table.Row {
	row := make(table.Row, len(cells))
	for i, cell := range cells {
		row[i] = cell
	}
	return row
}
