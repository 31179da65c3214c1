package report

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

const maxSheetName = 31

// sheetWriter appends rows to excelize sheets one at a time.
type sheetWriter struct {
	file       *excelize.File
	sheet      string
	row        int
	headerID   int
	openID     int
	closedID   int
	stylesInit bool
}

func newSheetWriter() *sheetWriter {
	return &sheetWriter{file: excelize.NewFile()}
}

// addSheet makes name the current sheet. The default sheet is reused for the first call.
func (w *sheetWriter) addSheet(name string) error {
	if len(name) > maxSheetName {
		name = name[:maxSheetName]
	}

	if w.sheet == "" {
		if err := w.file.SetSheetName("Sheet1", name); err != nil {
			return fmt.Errorf("rename sheet: %w", err)
		}
	} else if _, err := w.file.NewSheet(name); err != nil {
		return fmt.Errorf("create sheet %s: %w", name, err)
	}

	w.sheet = name
	w.row = 1
	return w.initStyles()
}

func (w *sheetWriter) initStyles() error {
	if w.stylesInit {
		return nil
	}
	var err error
	if w.headerID, err = w.file.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}}); err != nil {
		return err
	}
	if w.openID, err = w.file.NewStyle(&excelize.Style{
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"C6EFCE"}},
	}); err != nil {
		return err
	}
	if w.closedID, err = w.file.NewStyle(&excelize.Style{
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"FFC7CE"}},
	}); err != nil {
		return err
	}
	w.stylesInit = true
	return nil
}

// header writes bold column titles and freezes them.
func (w *sheetWriter) header(columns ...string) error {
	if err := w.values(columns...); err != nil {
		return err
	}
	if err := w.styleRow(w.row-1, len(columns), w.headerID); err != nil {
		return err
	}
	return w.file.SetPanes(w.sheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	})
}

func (w *sheetWriter) values(columns ...string) error {
	row := make([]any, len(columns))
	for i, c := range columns {
		row[i] = c
	}
	return w.write(row)
}

// write appends a row to the current sheet.
func (w *sheetWriter) write(row []any) error {
	if w.sheet == "" {
		return fmt.Errorf("no active sheet")
	}
	cell, err := excelize.CoordinatesToCellName(1, w.row)
	if err != nil {
		return err
	}
	if err := w.file.SetSheetRow(w.sheet, cell, &row); err != nil {
		return err
	}
	w.row++
	return nil
}

// stateRow appends a row shaded by open/closed.
func (w *sheetWriter) stateRow(row []any, open bool) error {
	if err := w.write(row); err != nil {
		return err
	}
	style := w.closedID
	if open {
		style = w.openID
	}
	return w.styleRow(w.row-1, len(row), style)
}

func (w *sheetWriter) styleRow(row, width, style int) error {
	start, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	end, err := excelize.CoordinatesToCellName(width, row)
	if err != nil {
		return err
	}
	return w.file.SetCellStyle(w.sheet, start, end, style)
}

func (w *sheetWriter) widths(widths ...float64) error {
	for i, width := range widths {
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return err
		}
		if err := w.file.SetColWidth(w.sheet, col, col, width); err != nil {
			return err
		}
	}
	return nil
}

func (w *sheetWriter) save(out io.Writer) error {
	return w.file.Write(out)
}

func (w *sheetWriter) close() error {
	return w.file.Close()
}
