package gdb

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/flatgeobuf/flatgeobuf/src/go/flattypes"

	"github.com/miczat/fc-profiler/internal/fgb"
)

// FieldType is the logical type of an attribute field.
type FieldType int

const (
	FieldTypeUnknown FieldType = iota
	FieldTypeOID
	FieldTypeGeometry
	FieldTypeText
	FieldTypeFloat
	FieldTypeDouble
	FieldTypeShort
	FieldTypeLong
	FieldTypeDate
	FieldTypeBlob
	FieldTypeRaster
	FieldTypeGUID
)

var fieldTypeNames = map[FieldType]string{
	FieldTypeOID:      "OID",
	FieldTypeGeometry: "GEOMETRY",
	FieldTypeText:     "TEXT",
	FieldTypeFloat:    "FLOAT",
	FieldTypeDouble:   "DOUBLE",
	FieldTypeShort:    "SHORT",
	FieldTypeLong:     "LONG",
	FieldTypeDate:     "DATE",
	FieldTypeBlob:     "BLOB",
	FieldTypeRaster:   "RASTER",
	FieldTypeGUID:     "GUID",
}

// String returns the upper-case type keyword, e.g. "TEXT".
func (t FieldType) String() string {
	if s, ok := fieldTypeNames[t]; ok {
		return s
	}
	return "UNKNOWN"
}

// ParseFieldType parses a type keyword, case-insensitively.
func ParseFieldType(s string) (FieldType, error) {
	upper := strings.ToUpper(strings.TrimSpace(s))
	for t, name := range fieldTypeNames {
		if name == upper {
			return t, nil
		}
	}
	return FieldTypeUnknown, fmt.Errorf("%w: field type %q", ErrInvalidName, s)
}

// DefaultLength is the storage length reported for a type when the field
// definition does not set one.
func (t FieldType) DefaultLength() int {
	switch t {
	case FieldTypeText:
		return 255
	case FieldTypeShort:
		return 2
	case FieldTypeOID, FieldTypeLong, FieldTypeFloat:
		return 4
	case FieldTypeDouble, FieldTypeDate:
		return 8
	case FieldTypeGUID:
		return 38
	default:
		return 0
	}
}

// columnType maps a user field type to its FlatGeobuf storage type.
func (t FieldType) columnType() (flattypes.ColumnType, bool) {
	switch t {
	case FieldTypeText, FieldTypeGUID:
		return flattypes.ColumnTypeString, true
	case FieldTypeFloat:
		return flattypes.ColumnTypeFloat, true
	case FieldTypeDouble:
		return flattypes.ColumnTypeDouble, true
	case FieldTypeShort:
		return flattypes.ColumnTypeShort, true
	case FieldTypeLong:
		return flattypes.ColumnTypeInt, true
	case FieldTypeDate:
		return flattypes.ColumnTypeDateTime, true
	case FieldTypeBlob, FieldTypeRaster:
		return flattypes.ColumnTypeBinary, true
	default:
		return 0, false
	}
}

// fieldTypeFromColumn infers the logical type of a column written without
// field metadata.
func fieldTypeFromColumn(c flattypes.ColumnType) FieldType {
	switch c {
	case flattypes.ColumnTypeString, flattypes.ColumnTypeJson:
		return FieldTypeText
	case flattypes.ColumnTypeFloat:
		return FieldTypeFloat
	case flattypes.ColumnTypeDouble:
		return FieldTypeDouble
	case flattypes.ColumnTypeBool, flattypes.ColumnTypeByte, flattypes.ColumnTypeUByte, flattypes.ColumnTypeShort:
		return FieldTypeShort
	case flattypes.ColumnTypeUShort, flattypes.ColumnTypeInt, flattypes.ColumnTypeUInt,
		flattypes.ColumnTypeLong, flattypes.ColumnTypeULong:
		return FieldTypeLong
	case flattypes.ColumnTypeDateTime:
		return FieldTypeDate
	case flattypes.ColumnTypeBinary:
		return FieldTypeBlob
	default:
		return FieldTypeUnknown
	}
}

// FieldDef is the definition of a field to add to a feature class.
// The zero value of NonNullable leaves the field nullable.
type FieldDef struct {
	Name        string
	Type        FieldType
	Alias       string // defaults to Name
	Length      int    // Text only; defaults to 255
	Precision   int
	Scale       int
	NonNullable bool
	Required    bool
	Default     string // textual default value, "" for none
	Domain      string // name of a domain in the container catalog
}

// Field describes one field of a feature class, in schema order.
type Field struct {
	Name      string
	Alias     string
	Type      FieldType
	Length    int
	Precision int
	Scale     int
	Nullable  bool
	Required  bool
	Editable  bool
	Default   string
	Domain    string
}

// fieldMeta is the JSON stored in the FlatGeobuf column metadata.
type fieldMeta struct {
	Type     string `json:"type"`
	Required bool   `json:"required,omitempty"`
	Editable bool   `json:"editable"`
	Default  string `json:"default,omitempty"`
	Domain   string `json:"domain,omitempty"`
}

// Names of the fields maintained by the datastore itself.
const (
	OIDFieldName    = "OBJECTID"
	ShapeFieldName  = "Shape"
	LengthFieldName = "Shape_Length"
	AreaFieldName   = "Shape_Area"
)

// systemFields are present on every feature class and are not stored as
// columns.
func systemFields() []Field {
	return []Field{
		{
			Name:     OIDFieldName,
			Alias:    OIDFieldName,
			Type:     FieldTypeOID,
			Length:   FieldTypeOID.DefaultLength(),
			Required: true,
		},
		{
			Name:     ShapeFieldName,
			Alias:    ShapeFieldName,
			Type:     FieldTypeGeometry,
			Nullable: true,
			Required: true,
			Editable: true,
		},
	}
}

// measureColumns returns the stored measure columns for a geometry type.
func measureColumns(g GeometryType) []fgb.Column {
	var names []string
	switch g {
	case Polyline:
		names = []string{LengthFieldName}
	case Polygon:
		names = []string{LengthFieldName, AreaFieldName}
	}

	meta, _ := json.Marshal(fieldMeta{Type: FieldTypeDouble.String(), Required: true})
	cols := make([]fgb.Column, 0, len(names))
	for _, name := range names {
		cols = append(cols, fgb.Column{
			Name:     name,
			Type:     flattypes.ColumnTypeDouble,
			Title:    name,
			Width:    FieldTypeDouble.DefaultLength(),
			Nullable: true,
			Metadata: string(meta),
		})
	}
	return cols
}

// column converts a field definition to a FlatGeobuf column.
func (d FieldDef) column() (fgb.Column, error) {
	if !validName(d.Name) {
		return fgb.Column{}, fmt.Errorf("%w: field %q", ErrInvalidName, d.Name)
	}
	ct, ok := d.Type.columnType()
	if !ok {
		return fgb.Column{}, fmt.Errorf("%w: field %q cannot be of type %s", ErrInvalidName, d.Name, d.Type)
	}

	alias := d.Alias
	if alias == "" {
		alias = d.Name
	}
	length := d.Type.DefaultLength()
	if d.Type == FieldTypeText && d.Length > 0 {
		length = d.Length
	}

	meta, err := json.Marshal(fieldMeta{
		Type:     d.Type.String(),
		Required: d.Required,
		Editable: true,
		Default:  d.Default,
		Domain:   d.Domain,
	})
	if err != nil {
		return fgb.Column{}, err
	}

	return fgb.Column{
		Name:      d.Name,
		Type:      ct,
		Title:     alias,
		Width:     length,
		Precision: d.Precision,
		Scale:     d.Scale,
		Nullable:  !d.NonNullable,
		Metadata:  string(meta),
	}, nil
}

// fieldFromColumn converts a stored column back to a field descriptor.
// Columns written by other tools have no metadata; their logical type is
// inferred from the storage type.
func fieldFromColumn(c fgb.Column) Field {
	var meta fieldMeta
	hasMeta := c.Metadata != "" && json.Unmarshal([]byte(c.Metadata), &meta) == nil

	f := Field{
		Name:      c.Name,
		Alias:     c.Title,
		Type:      fieldTypeFromColumn(c.Type),
		Length:    c.Width,
		Precision: c.Precision,
		Scale:     c.Scale,
		Nullable:  c.Nullable,
		Editable:  true,
	}
	if hasMeta {
		if t, err := ParseFieldType(meta.Type); err == nil {
			f.Type = t
		}
		f.Required = meta.Required
		f.Editable = meta.Editable
		f.Default = meta.Default
		f.Domain = meta.Domain
	}
	if f.Alias == "" {
		f.Alias = f.Name
	}
	if f.Length == 0 {
		f.Length = f.Type.DefaultLength()
	}
	return f
}

// setColumnDomain records domain as the domain of column c.
func setColumnDomain(c *fgb.Column, domain string) error {
	var meta fieldMeta
	if c.Metadata != "" {
		if err := json.Unmarshal([]byte(c.Metadata), &meta); err != nil {
			return fmt.Errorf("%w: field %q metadata: %v", ErrProvider, c.Name, err)
		}
	} else {
		meta = fieldMeta{Type: fieldTypeFromColumn(c.Type).String(), Editable: true}
	}
	meta.Domain = domain

	b, err := json.Marshal(meta)
	if err != nil {
		return err
	}
	c.Metadata = string(b)
	return nil
}
