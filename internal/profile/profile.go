// Package profile reads the descriptive properties and field structure of
// a feature class and shapes them for the report.
package profile

import (
	"strings"

	"github.com/miczat/fc-profiler/internal/gdb"
)

// Property is one labelled value of the properties sheet. Value is a
// string, an integer or a bool.
type Property struct {
	Label string
	Value interface{}
}

// Labels of the properties sheet, in report order.
const (
	LabelFeatureClass = "Feature Class"
	LabelContainer    = "Parent fGDB"
	LabelGeometryType = "Geometry Type"
	LabelCRSName      = "CRS Name"
	LabelCRSWKID      = "CRS EPSG WKID"
	LabelCRSType      = "CRS Type"
	LabelCRSUnits     = "CRS Units"
	LabelHasZ         = "Has Z values?"
	LabelHasM         = "Has M values?"
	LabelRecords      = "Total Records"
	LabelFields       = "Total Fields"
)

// Headings of the structure sheet, in column order.
var Headings = []string{
	"Name",
	"Name field length",
	"Alias",
	"Type",
	"Length",
	"Precision",
	"Scale",
	"is nullable?",
	"is required?",
	"is editable?",
	"Domain Name",
}

// FieldDescriptor is one row of the structure sheet.
type FieldDescriptor struct {
	Name       string
	NameLength int
	Alias      string
	Type       string
	Length     int
	Precision  int
	Scale      int
	Nullable   bool
	Required   bool
	Editable   bool
	Domain     string
}

// NewFieldDescriptor converts a datastore field.
func NewFieldDescriptor(f gdb.Field) FieldDescriptor {
	return FieldDescriptor{
		Name:       f.Name,
		NameLength: len(f.Name),
		Alias:      f.Alias,
		Type:       f.Type.String(),
		Length:     f.Length,
		Precision:  f.Precision,
		Scale:      f.Scale,
		Nullable:   f.Nullable,
		Required:   f.Required,
		Editable:   f.Editable,
		Domain:     f.Domain,
	}
}

// Values returns the row cells in heading order. Flags are rendered as
// "True" or "False".
func (f FieldDescriptor) Values() []interface{} {
	return []interface{}{
		f.Name,
		f.NameLength,
		f.Alias,
		f.Type,
		f.Length,
		f.Precision,
		f.Scale,
		BoolString(f.Nullable),
		BoolString(f.Required),
		BoolString(f.Editable),
		f.Domain,
	}
}

// FieldStructure is the heading row and the fields in schema order.
type FieldStructure struct {
	Headings []string
	Fields   []FieldDescriptor
}

// BoolString renders a flag the way the report shows it.
func BoolString(b bool) string {
	if b {
		return "True"
	}
	return "False"
}

// ParseBool reverses BoolString.
func ParseBool(s string) bool {
	return strings.EqualFold(strings.TrimSpace(s), "true")
}
