// Package export writes report tables as spreadsheets.
package export

import (
	"fmt"
	"io"
	"strconv"
	"unicode/utf8"

	"github.com/ethpandaops/tally/pkg/table"
	"github.com/xuri/excelize/v2"
)

const (
	// ContentType is the MIME type of xlsx workbooks
	ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	// SheetName is the name of the single report sheet
	SheetName = "Отчет"
	// NumberHeader labels the position column
	NumberHeader = "№"
	// NoFilters describes a report without search or date filters
	NoFilters = "без фильтров"

	minColumnWidth = 8
	maxColumnWidth = 60

	headerFill = "305496"
	bandFill   = "D9E1F2"
	borderGray = "A6A6A6"
)

// Options controls spreadsheet layout
type Options struct {
	// Numbering adds a leading position column
	Numbering bool
}

// Summary returns the trailing line of a spreadsheet, e.g.
// "Всего записей: 10; отфильтровано: 3; фильтры: без фильтров"
func Summary(t *table.Table) string {
	filters := t.Describe()
	if filters == "" {
		filters = NoFilters
	}

	return fmt.Sprintf("Всего записей: %d; отфильтровано: %d; фильтры: %s", t.TotalCount(), t.FilteredCount(), filters)
}

// WriteXLSX writes the filtered rows of t as a workbook: a styled header
// band, banded data rows, autosized columns and a summary line after a blank
// spacer row.
func WriteXLSX(w io.Writer, t *table.Table, opts Options) (err error) {
	f := excelize.NewFile()
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("failed to close workbook: %w", cerr)
		}
	}()

	if err := f.SetSheetName(f.GetSheetName(0), SheetName); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}

	s, err := newStyles(f)
	if err != nil {
		return err
	}

	header := make([]string, 0, len(t.Fields())+1)
	if opts.Numbering {
		header = append(header, NumberHeader)
	}
	for _, field := range t.Fields() {
		header = append(header, field.Label)
	}

	widths := make([]int, len(header))
	track := func(col int, value string) {
		if n := utf8.RuneCountInString(value); n > widths[col] {
			widths[col] = n
		}
	}

	headerCells := make([]interface{}, len(header))
	for i, label := range header {
		track(i, label)
		headerCells[i] = label
	}

	if err := writeRow(f, 1, headerCells, s.header); err != nil {
		return err
	}

	rowIndex := 1
	for i, row := range t.FilteredData() {
		values := make([]interface{}, 0, len(header))
		if opts.Numbering {
			values = append(values, i+1)
			track(0, strconv.Itoa(i+1))
		}
		for _, field := range t.Fields() {
			v := row.Value(field.Name)
			track(len(values), v)
			values = append(values, v)
		}

		style := s.cell
		if i%2 == 1 {
			style = s.band
		}

		rowIndex = i + 2
		if err := writeRow(f, rowIndex, values, style); err != nil {
			return err
		}
	}

	// One blank spacer row precedes the summary
	summaryCell, err := excelize.CoordinatesToCellName(1, rowIndex+2)
	if err != nil {
		return err
	}

	if err := f.SetCellStr(SheetName, summaryCell, Summary(t)); err != nil {
		return fmt.Errorf("failed to write summary: %w", err)
	}

	if err := f.SetCellStyle(SheetName, summaryCell, summaryCell, s.summary); err != nil {
		return fmt.Errorf("failed to style summary: %w", err)
	}

	for i, width := range widths {
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return err
		}

		if err := f.SetColWidth(SheetName, col, col, columnWidth(width)); err != nil {
			return fmt.Errorf("failed to size column %s: %w", col, err)
		}
	}

	if err := f.SetPanes(SheetName, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return fmt.Errorf("failed to freeze header: %w", err)
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}

	return nil
}

// columnWidth pads the longest cell and keeps the width within bounds
func columnWidth(runes int) float64 {
	width := runes + 2

	switch {
	case width < minColumnWidth:
		width = minColumnWidth
	case width > maxColumnWidth:
		width = maxColumnWidth
	}

	return float64(width)
}

func writeRow(f *excelize.File, row int, values []interface{}, style int) error {
	if len(values) == 0 {
		return nil
	}

	start, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}

	end, err := excelize.CoordinatesToCellName(len(values), row)
	if err != nil {
		return err
	}

	if err := f.SetSheetRow(SheetName, start, &values); err != nil {
		return fmt.Errorf("failed to write row %d: %w", row, err)
	}

	if err := f.SetCellStyle(SheetName, start, end, style); err != nil {
		return fmt.Errorf("failed to style row %d: %w", row, err)
	}

	return nil
}

type styles struct {
	header  int
	cell    int
	band    int
	summary int
}

func newStyles(f *excelize.File) (*styles, error) {
	border := []excelize.Border{
		{Type: "left", Color: borderGray, Style: 1},
		{Type: "top", Color: borderGray, Style: 1},
		{Type: "right", Color: borderGray, Style: 1},
		{Type: "bottom", Color: borderGray, Style: 1},
	}

	header, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{headerFill}, Pattern: 1},
		Border:    border,
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center", WrapText: true},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}

	cell, err := f.NewStyle(&excelize.Style{
		Border:    border,
		Alignment: &excelize.Alignment{Vertical: "top"},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create cell style: %w", err)
	}

	band, err := f.NewStyle(&excelize.Style{
		Fill:      excelize.Fill{Type: "pattern", Color: []string{bandFill}, Pattern: 1},
		Border:    border,
		Alignment: &excelize.Alignment{Vertical: "top"},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create band style: %w", err)
	}

	summary, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Italic: true},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create summary style: %w", err)
	}

	return &styles{
		header:  header,
		cell:    cell,
		band:    band,
		summary: summary,
	}, nil
}
