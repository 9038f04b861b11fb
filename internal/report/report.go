// Package report lays out a feature class profile as a two-sheet
// spreadsheet and persists it.
package report

import (
	"errors"
	"fmt"
	"time"

	"github.com/miczat/fc-profiler/internal/logger"
	"github.com/miczat/fc-profiler/internal/profile"
)

// Common errors returned by this package.
var (
	ErrUnsupportedValue = errors.New("report: unsupported cell value")
	ErrWriter           = errors.New("report: workbook write failed")
	ErrPermissionDenied = errors.New("report: permission denied")
	ErrInvalidWorkbook  = errors.New("report: not a profile workbook")
)

// Sheet names.
const (
	PropertiesSheet = "fc_properties"
	StructureSheet  = "fc_structure"
)

// Fixed text of the report.
const (
	PropertiesTitle = "Feature Class Profile"
	StructureTitle  = "Feature Class Structure"
	SubtitlePrefix  = "Generated on "
	TimestampLayout = "02-01-2006 15:04:05"
	FileSuffix      = "_fc_profile.xlsx"
)

// Cell positions, 0-indexed.
const (
	titleRow          = 1
	subtitleRow       = 2
	headingRow        = 3
	firstDataRow      = 4
	firstColumn       = 1
	propertyValueCol  = 2
	propertyLabelWide = 18
	propertyValueWide = 80
)

// structureWidths are the widths of the structure columns, in heading order.
var structureWidths = []float64{30, 10, 30, 12, 8, 10, 8, 12, 12, 12, 30}

// leftAligned marks the structure columns holding text.
var leftAligned = map[int]bool{0: true, 2: true, 3: true, 10: true}

// Style is the presentation class of a cell.
type Style int

const (
	StyleTitle Style = iota
	StyleSubtitle
	StyleHeading
	StyleData
	StyleDataCentered
)

// CellWriter is the spreadsheet surface the assembler renders into. Rows
// and columns are 0-indexed.
type CellWriter interface {
	NewSheet(name string) error
	SetColumnWidth(sheet string, col int, width float64) error
	WriteCell(sheet string, row, col int, value interface{}, style Style) error
}

// FileName returns the report file name for a feature class.
func FileName(featureClass string) string {
	return featureClass + FileSuffix
}

// Assembler renders properties and field structure into a CellWriter.
type Assembler struct {
	now func() time.Time
	log *logger.Logger
}

// NewAssembler returns an Assembler stamping reports with now().
func NewAssembler(now func() time.Time, log *logger.Logger) *Assembler {
	if now == nil {
		now = time.Now
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Assembler{now: now, log: log}
}

// Subtitle returns the generation line for t, to the second.
func Subtitle(t time.Time) string {
	return SubtitlePrefix + t.Round(time.Second).Format(TimestampLayout)
}

// Assemble writes both sheets. Any writer failure aborts the assembly.
func (a *Assembler) Assemble(w CellWriter, props []profile.Property, fs profile.FieldStructure) error {
	if err := a.properties(w, props); err != nil {
		return err
	}
	return a.structure(w, fs)
}

func (a *Assembler) properties(w CellWriter, props []profile.Property) error {
	s := PropertiesSheet
	if err := w.NewSheet(s); err != nil {
		return writerErr(err, "create sheet %s", s)
	}

	a.log.Debug("Setting column widths")
	if err := w.SetColumnWidth(s, firstColumn, propertyLabelWide); err != nil {
		return writerErr(err, "width of %s column %d", s, firstColumn)
	}
	if err := w.SetColumnWidth(s, propertyValueCol, propertyValueWide); err != nil {
		return writerErr(err, "width of %s column %d", s, propertyValueCol)
	}

	a.log.Debug("Writing title")
	if err := write(w, s, titleRow, firstColumn, PropertiesTitle, StyleTitle); err != nil {
		return err
	}
	a.log.Debug("Writing subtitle")
	if err := write(w, s, subtitleRow, firstColumn, Subtitle(a.now()), StyleSubtitle); err != nil {
		return err
	}

	a.log.Debug("Writing data")
	for i, p := range props {
		row := firstDataRow + i
		if err := write(w, s, row, firstColumn, p.Label, StyleHeading); err != nil {
			return err
		}
		if err := write(w, s, row, propertyValueCol, p.Value, StyleData); err != nil {
			return err
		}
	}
	return nil
}

func (a *Assembler) structure(w CellWriter, fs profile.FieldStructure) error {
	s := StructureSheet
	if err := w.NewSheet(s); err != nil {
		return writerErr(err, "create sheet %s", s)
	}

	for i, width := range structureWidths {
		if err := w.SetColumnWidth(s, firstColumn+i, width); err != nil {
			return writerErr(err, "width of %s column %d", s, firstColumn+i)
		}
	}

	if err := write(w, s, titleRow, firstColumn, StructureTitle, StyleTitle); err != nil {
		return err
	}

	headings := fs.Headings
	if len(headings) == 0 {
		headings = profile.Headings
	}
	for i, h := range headings {
		if err := write(w, s, headingRow, firstColumn+i, h, StyleHeading); err != nil {
			return err
		}
	}

	a.log.Debugf("Writing %d fields", len(fs.Fields))
	for i, f := range fs.Fields {
		row := firstDataRow + i
		for j, v := range f.Values() {
			style := StyleDataCentered
			if leftAligned[j] {
				style = StyleData
			}
			if err := write(w, s, row, firstColumn+j, v, style); err != nil {
				return err
			}
		}
	}
	return nil
}

// write checks value and writes one cell.
func write(w CellWriter, sheet string, row, col int, value interface{}, style Style) error {
	if !isPrimitive(value) {
		return fmt.Errorf("%w: %T at %s(%d,%d)", ErrUnsupportedValue, value, sheet, row, col)
	}
	if err := w.WriteCell(sheet, row, col, value, style); err != nil {
		return writerErr(err, "cell %s(%d,%d)", sheet, row, col)
	}
	return nil
}

func writerErr(err error, format string, args ...interface{}) error {
	if errors.Is(err, ErrUnsupportedValue) || errors.Is(err, ErrWriter) {
		return err
	}
	return fmt.Errorf("%w: %s: %v", ErrWriter, fmt.Sprintf(format, args...), err)
}

func isPrimitive(v interface{}) bool {
	switch v.(type) {
	case string, bool,
		int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		float32, float64:
		return true
	}
	return false
}
