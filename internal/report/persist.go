package report

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/miczat/fc-profiler/internal/profile"
)

// Persist writes wb to path. The workbook is serialized to a temporary
// file in the same folder and renamed over path, so path never holds a
// partial workbook.
func Persist(wb *Workbook, path string) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fileErr(err, "create "+path)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := wb.WriteTo(tmp); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("%w: serialize %s: %v", ErrWriter, path, err)
	}
	if err := tmp.Close(); err != nil {
		return fileErr(err, "write "+path)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fileErr(err, "replace "+path)
	}
	return nil
}

// DeleteExisting removes the file at path if there is one.
func DeleteExisting(path string) error {
	err := os.Remove(path)
	if err == nil || errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return fileErr(err, "delete "+path)
}

func fileErr(err error, op string) error {
	if errors.Is(err, fs.ErrPermission) {
		return fmt.Errorf("%w: %s: %v", ErrPermissionDenied, op, err)
	}
	return fmt.Errorf("%w: %s: %v", ErrWriter, op, err)
}

// Profile is a report read back from a workbook. Property values are the
// cell text.
type Profile struct {
	Title      string
	Subtitle   string
	Properties []profile.Property
	Structure  profile.FieldStructure
}

// Open reads a profile workbook written by Persist.
func Open(path string) (*Profile, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	sheets := f.GetSheetList()
	if len(sheets) != 2 || sheets[0] != PropertiesSheet || sheets[1] != StructureSheet {
		return nil, fmt.Errorf("%w: sheets %v", ErrInvalidWorkbook, sheets)
	}

	p := &Profile{}
	if p.Title, err = cellValue(f, PropertiesSheet, titleRow, firstColumn); err != nil {
		return nil, err
	}
	if p.Subtitle, err = cellValue(f, PropertiesSheet, subtitleRow, firstColumn); err != nil {
		return nil, err
	}

	for row := firstDataRow; ; row++ {
		label, err := cellValue(f, PropertiesSheet, row, firstColumn)
		if err != nil {
			return nil, err
		}
		if label == "" {
			break
		}
		value, err := cellValue(f, PropertiesSheet, row, propertyValueCol)
		if err != nil {
			return nil, err
		}
		p.Properties = append(p.Properties, profile.Property{Label: label, Value: value})
	}

	for col := firstColumn; col < firstColumn+len(profile.Headings); col++ {
		h, err := cellValue(f, StructureSheet, headingRow, col)
		if err != nil {
			return nil, err
		}
		p.Structure.Headings = append(p.Structure.Headings, h)
	}

	for row := firstDataRow; ; row++ {
		cells := make([]string, len(profile.Headings))
		for i := range cells {
			if cells[i], err = cellValue(f, StructureSheet, row, firstColumn+i); err != nil {
				return nil, err
			}
		}
		if cells[0] == "" {
			break
		}
		fd, err := parseField(cells)
		if err != nil {
			return nil, fmt.Errorf("%w: %s row %d: %v", ErrInvalidWorkbook, StructureSheet, row, err)
		}
		p.Structure.Fields = append(p.Structure.Fields, fd)
	}
	return p, nil
}

func cellValue(f *excelize.File, sheet string, row, col int) (string, error) {
	cell, err := excelize.CoordinatesToCellName(col+1, row+1)
	if err != nil {
		return "", err
	}
	v, err := f.GetCellValue(sheet, cell)
	if err != nil {
		return "", fmt.Errorf("%w: %s!%s: %v", ErrInvalidWorkbook, sheet, cell, err)
	}
	return strings.TrimSpace(v), nil
}

func parseField(cells []string) (profile.FieldDescriptor, error) {
	ints := make([]int, 0, 4)
	for _, i := range []int{1, 4, 5, 6} {
		n, err := strconv.Atoi(cells[i])
		if err != nil {
			return profile.FieldDescriptor{}, err
		}
		ints = append(ints, n)
	}
	return profile.FieldDescriptor{
		Name:       cells[0],
		NameLength: ints[0],
		Alias:      cells[2],
		Type:       cells[3],
		Length:     ints[1],
		Precision:  ints[2],
		Scale:      ints[3],
		Nullable:   profile.ParseBool(cells[7]),
		Required:   profile.ParseBool(cells[8]),
		Editable:   profile.ParseBool(cells[9]),
		Domain:     cells[10],
	}, nil
}
