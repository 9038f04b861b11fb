package gdb

import "github.com/flatgeobuf/flatgeobuf/src/go/flattypes"

// GeometryType is the shape type of a feature class.
type GeometryType int

const (
	GeometryUnknown GeometryType = iota
	Point
	Multipoint
	Polyline
	Polygon
	MultiPatch
)

var geometryNames = map[GeometryType]string{
	Point:      "Point",
	Multipoint: "Multipoint",
	Polyline:   "Polyline",
	Polygon:    "Polygon",
	MultiPatch: "MultiPatch",
}

func (g GeometryType) String() string {
	if s, ok := geometryNames[g]; ok {
		return s
	}
	return "Unknown"
}

// layerType is the FlatGeobuf header geometry type used to store g.
// Lines and polygons are stored as their multi-part types so single and
// multi-part features share one layer.
func (g GeometryType) layerType() flattypes.GeometryType {
	switch g {
	case Point:
		return flattypes.GeometryTypePoint
	case Multipoint:
		return flattypes.GeometryTypeMultiPoint
	case Polyline:
		return flattypes.GeometryTypeMultiLineString
	case Polygon:
		return flattypes.GeometryTypeMultiPolygon
	case MultiPatch:
		return flattypes.GeometryTypePolyhedralSurface
	default:
		return flattypes.GeometryTypeUnknown
	}
}

// geometryTypeFromLayer maps a FlatGeobuf header geometry type to a shape type.
func geometryTypeFromLayer(t flattypes.GeometryType) GeometryType {
	switch t {
	case flattypes.GeometryTypePoint:
		return Point
	case flattypes.GeometryTypeMultiPoint:
		return Multipoint
	case flattypes.GeometryTypeLineString, flattypes.GeometryTypeMultiLineString,
		flattypes.GeometryTypeCircularString, flattypes.GeometryTypeCompoundCurve,
		flattypes.GeometryTypeMultiCurve:
		return Polyline
	case flattypes.GeometryTypePolygon, flattypes.GeometryTypeMultiPolygon,
		flattypes.GeometryTypeCurvePolygon, flattypes.GeometryTypeMultiSurface:
		return Polygon
	case flattypes.GeometryTypePolyhedralSurface, flattypes.GeometryTypeTIN,
		flattypes.GeometryTypeTriangle:
		return MultiPatch
	default:
		return GeometryUnknown
	}
}
