package fixture

import (
	"time"

	"github.com/paulmach/orb"
	"github.com/shopspring/decimal"

	"github.com/miczat/fc-profiler/internal/fishnet"
	"github.com/miczat/fc-profiler/internal/gdb"
)

// ContainerName is the name of the generated container.
const ContainerName = "fc_profiler_test.gdb"

// featureClass is one empty feature class of the catalog.
type featureClass struct {
	name   string
	geom   gdb.GeometryType
	wkid   int // 0 for no CRS
	hasZ   bool
	hasM   bool
	fields []gdb.FieldDef
}

// Feature classes covering each CRS, with a point geometry.
var crsFeatureClasses = []featureClass{
	{name: "GDA94_GA_Lambert_point", geom: gdb.Point, wkid: 3112},
	{name: "GDA94_point", geom: gdb.Point, wkid: 4283},
	{name: "WGS84_point", geom: gdb.Point, wkid: 4326},
	{name: "Web_Mercator_point", geom: gdb.Point, wkid: 3857},
	{name: "MGAZ56_point", geom: gdb.Point, wkid: 28356},
	{name: "NO_CRS_point", geom: gdb.Point},
}

// Feature classes covering the remaining geometry types.
var geometryFeatureClasses = []featureClass{
	{name: "GDA94_multipoint", geom: gdb.Multipoint, wkid: 4283},
	{name: "GDA94_polyline", geom: gdb.Polyline, wkid: 4283},
	{name: "GDA94_polygon", geom: gdb.Polygon, wkid: 4283},
	{name: "GDA94_multipatch", geom: gdb.MultiPatch, wkid: 4283},
}

// Feature classes covering Z and M enablement.
var zmFeatureClasses = []featureClass{
	{name: "MGAZ56_has_Z_polyline", geom: gdb.Polyline, wkid: 28356, hasZ: true},
	{name: "MGAZ56_has_M_polyline", geom: gdb.Polyline, wkid: 28356, hasM: true},
	{name: "MGAZ56_has_Z_M_polyline", geom: gdb.Polyline, wkid: 28356, hasZ: true, hasM: true},
}

// allFieldTypes covers every field type and the field constraints.
var allFieldTypes = featureClass{
	name: "MGAZ56_all_field_types_point",
	geom: gdb.Point,
	wkid: 28356,
	fields: []gdb.FieldDef{
		{Name: "text_field", Type: gdb.FieldTypeText},
		{Name: "text_50", Type: gdb.FieldTypeText, Length: 50},
		{Name: "text_alias", Type: gdb.FieldTypeText, Alias: "Text field with an alias"},
		{Name: "text_non_nullable", Type: gdb.FieldTypeText, NonNullable: true},
		{Name: "text_required", Type: gdb.FieldTypeText, Required: true},
		{Name: "text_default", Type: gdb.FieldTypeText, Default: "N/A"},
		{Name: "float_field", Type: gdb.FieldTypeFloat},
		{Name: "float_6_2", Type: gdb.FieldTypeFloat, Precision: 6, Scale: 2},
		{Name: "double_field", Type: gdb.FieldTypeDouble},
		{Name: "double_12_4", Type: gdb.FieldTypeDouble, Precision: 12, Scale: 4},
		{Name: "short_field", Type: gdb.FieldTypeShort},
		{Name: "short_default", Type: gdb.FieldTypeShort, Default: "0"},
		{Name: "long_field", Type: gdb.FieldTypeLong},
		{Name: "long_required", Type: gdb.FieldTypeLong, Required: true, NonNullable: true},
		{Name: "date_field", Type: gdb.FieldTypeDate},
		{Name: "blob_field", Type: gdb.FieldTypeBlob},
		{Name: "raster_field", Type: gdb.FieldTypeRaster},
		{Name: "guid_field", Type: gdb.FieldTypeGUID},
	},
}

// domain is one domain of the catalog and the field it is assigned to.
type domain struct {
	name     string
	desc     string
	ft       gdb.FieldType
	codes    []gdb.CodedValue // coded domains
	min, max decimal.Decimal  // range domains
	field    string
}

func (d domain) coded() bool {
	return len(d.codes) > 0
}

var domains = []domain{
	{
		name: "text_coded_domain", desc: "TEXT coded values", ft: gdb.FieldTypeText, field: "text_coded",
		codes: []gdb.CodedValue{{Code: "N", Description: "North"}, {Code: "S", Description: "South"}, {Code: "E", Description: "East"}, {Code: "W", Description: "West"}},
	},
	{
		name: "short_coded_domain", desc: "SHORT coded values", ft: gdb.FieldTypeShort, field: "short_coded",
		codes: []gdb.CodedValue{{Code: "1", Description: "One"}, {Code: "2", Description: "Two"}, {Code: "3", Description: "Three"}},
	},
	{
		name: "long_coded_domain", desc: "LONG coded values", ft: gdb.FieldTypeLong, field: "long_coded",
		codes: []gdb.CodedValue{{Code: "100000", Description: "One hundred thousand"}, {Code: "1000000", Description: "One million"}},
	},
	{
		name: "float_coded_domain", desc: "FLOAT coded values", ft: gdb.FieldTypeFloat, field: "float_coded",
		codes: []gdb.CodedValue{{Code: "0.5", Description: "Half"}, {Code: "0.25", Description: "Quarter"}},
	},
	{
		name: "double_coded_domain", desc: "DOUBLE coded values", ft: gdb.FieldTypeDouble, field: "double_coded",
		codes: []gdb.CodedValue{{Code: "3.14159265358979", Description: "Pi"}, {Code: "2.71828182845905", Description: "e"}},
	},
	{
		name: "short_range_domain", desc: "SHORT range", ft: gdb.FieldTypeShort, field: "short_range",
		min: decimal.NewFromInt(0), max: decimal.NewFromInt(100),
	},
	{
		name: "long_range_domain", desc: "LONG range", ft: gdb.FieldTypeLong, field: "long_range",
		min: decimal.NewFromInt(-1000000), max: decimal.NewFromInt(1000000),
	},
	{
		name: "float_range_domain", desc: "FLOAT range", ft: gdb.FieldTypeFloat, field: "float_range",
		min: decimal.RequireFromString("0.0"), max: decimal.RequireFromString("1.5"),
	},
	{
		name: "double_range_domain", desc: "DOUBLE range", ft: gdb.FieldTypeDouble, field: "double_range",
		min: decimal.RequireFromString("-1000.125"), max: decimal.RequireFromString("1000.125"),
	},
	{
		name: "date_range_domain", desc: "DATE range", ft: gdb.FieldTypeDate, field: "date_range",
		min: gdb.DateBound(time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)),
		max: gdb.DateBound(time.Date(2018, 12, 31, 0, 0, 0, 0, time.UTC)),
	},
}

// domainFeatureClass holds one field per domain.
var domainFeatureClass = featureClass{name: "MGAZ56_domains_point", geom: gdb.Point, wkid: 28356}

// gridFeatureClass is a feature class filled from a fishnet.
type gridFeatureClass struct {
	featureClass
	grid fishnet.Grid
}

// mgaOrigin is the lower-left corner of the generated grids, in MGA zone 56.
var mgaOrigin = orb.Point{500000, 6950000}

// SmallGrid is the grid written as lines: 300x300 cells give 602 lines.
var SmallGrid = Size{Rows: 300, Cols: 300}

// LargeGrid is the default grid written as cells: 5,000,000 polygons.
var LargeGrid = Size{Rows: 2000, Cols: 2500}

const (
	smallGridName = "MGAZ56_602_rec_polyline"
	largeGridName = "MGAZ56_5_million_rec_polygon"
	cellSize      = 10.0
)

func gridFeatureClasses(small, large Size) []gridFeatureClass {
	return []gridFeatureClass{
		{
			featureClass: featureClass{name: smallGridName, geom: gdb.Polyline, wkid: 28356},
			grid:         small.grid(),
		},
		{
			featureClass: featureClass{name: largeGridName, geom: gdb.Polygon, wkid: 28356},
			grid:         large.grid(),
		},
	}
}
