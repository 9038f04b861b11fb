package report

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

const defaultSheet = "Sheet1"

var styleDefs = map[Style]*excelize.Style{
	StyleTitle: {
		Font:      &excelize.Font{Family: "Century Gothic", Bold: true, Size: 16},
		Alignment: &excelize.Alignment{Horizontal: "left", Vertical: "center"},
	},
	StyleSubtitle: {
		Font:      &excelize.Font{Family: "Century Gothic", Italic: true, Size: 8},
		Alignment: &excelize.Alignment{Horizontal: "left", Vertical: "center"},
	},
	StyleHeading: {
		Font:      &excelize.Font{Family: "Century Gothic", Bold: true},
		Alignment: &excelize.Alignment{Horizontal: "left", Vertical: "center"},
	},
	StyleData: {
		Font:      &excelize.Font{Family: "Consolas"},
		Alignment: &excelize.Alignment{Horizontal: "left", Vertical: "center"},
	},
	StyleDataCentered: {
		Font:      &excelize.Font{Family: "Consolas"},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	},
}

// Workbook is an in-memory spreadsheet implementing CellWriter.
type Workbook struct {
	f      *excelize.File
	styles map[Style]int
	sheets int
}

// NewWorkbook returns an empty workbook.
func NewWorkbook() *Workbook {
	return &Workbook{
		f:      excelize.NewFile(),
		styles: make(map[Style]int),
	}
}

// NewSheet adds a sheet. The placeholder sheet of a new file is replaced
// by the first sheet added.
func (wb *Workbook) NewSheet(name string) error {
	idx, err := wb.f.NewSheet(name)
	if err != nil {
		return err
	}
	if wb.sheets == 0 {
		wb.f.SetActiveSheet(idx)
		if name != defaultSheet {
			if err := wb.f.DeleteSheet(defaultSheet); err != nil {
				return err
			}
		}
	}
	wb.sheets++
	return nil
}

// SetColumnWidth sets the width of a 0-indexed column, in characters.
func (wb *Workbook) SetColumnWidth(sheet string, col int, width float64) error {
	name, err := excelize.ColumnNumberToName(col + 1)
	if err != nil {
		return err
	}
	return wb.f.SetColWidth(sheet, name, name, width)
}

// WriteCell writes a primitive value with a style at a 0-indexed position.
func (wb *Workbook) WriteCell(sheet string, row, col int, value interface{}, style Style) error {
	if !isPrimitive(value) {
		return fmt.Errorf("%w: %T", ErrUnsupportedValue, value)
	}
	cell, err := excelize.CoordinatesToCellName(col+1, row+1)
	if err != nil {
		return err
	}
	if err := wb.f.SetCellValue(sheet, cell, value); err != nil {
		return err
	}

	id, err := wb.style(style)
	if err != nil {
		return err
	}
	return wb.f.SetCellStyle(sheet, cell, cell, id)
}

func (wb *Workbook) style(s Style) (int, error) {
	if id, ok := wb.styles[s]; ok {
		return id, nil
	}
	def, ok := styleDefs[s]
	if !ok {
		return 0, fmt.Errorf("unknown style %d", s)
	}
	id, err := wb.f.NewStyle(def)
	if err != nil {
		return 0, err
	}
	wb.styles[s] = id
	return id, nil
}

// WriteTo serializes the workbook.
func (wb *Workbook) WriteTo(w io.Writer) (int64, error) {
	return wb.f.WriteTo(w)
}

// Close releases the workbook.
func (wb *Workbook) Close() error {
	return wb.f.Close()
}
