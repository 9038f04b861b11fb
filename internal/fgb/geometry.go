package fgb

import (
	"fmt"

	"github.com/flatgeobuf/flatgeobuf/src/go/flattypes"
	"github.com/flatgeobuf/flatgeobuf/src/go/writer"
	flatbuffers "github.com/google/flatbuffers/go"
	"github.com/paulmach/orb"
)

// GeometryTypeOf returns the FlatGeobuf GeometryType of an orb.Geometry.
func GeometryTypeOf(geom orb.Geometry) flattypes.GeometryType {
	switch geom.(type) {
	case orb.Point:
		return flattypes.GeometryTypePoint
	case orb.MultiPoint:
		return flattypes.GeometryTypeMultiPoint
	case orb.LineString:
		return flattypes.GeometryTypeLineString
	case orb.MultiLineString:
		return flattypes.GeometryTypeMultiLineString
	case orb.Ring, orb.Polygon, orb.Bound:
		return flattypes.GeometryTypePolygon
	case orb.MultiPolygon:
		return flattypes.GeometryTypeMultiPolygon
	case orb.Collection:
		return flattypes.GeometryTypeGeometryCollection
	default:
		return flattypes.GeometryTypeUnknown
	}
}

// dims carries the optional ordinates declared by the header.
type dims struct {
	z, m bool
}

// promote returns geom in the shape the layer type expects. Single-part
// geometries are wrapped in the multi-part type of their layer, since
// readers decode features by the header type.
func promote(geom orb.Geometry, layer flattypes.GeometryType) (orb.Geometry, error) {
	gt := GeometryTypeOf(geom)
	if layer == flattypes.GeometryTypeUnknown || layer == gt {
		return geom, nil
	}

	switch {
	case layer == flattypes.GeometryTypeMultiPoint && gt == flattypes.GeometryTypePoint:
		return orb.MultiPoint{geom.(orb.Point)}, nil
	case layer == flattypes.GeometryTypeMultiLineString && gt == flattypes.GeometryTypeLineString:
		return orb.MultiLineString{geom.(orb.LineString)}, nil
	case layer == flattypes.GeometryTypeMultiPolygon && gt == flattypes.GeometryTypePolygon:
		return orb.MultiPolygon{asPolygon(geom)}, nil
	}
	return nil, fmt.Errorf("%w: %s in a %s layer", ErrUnsupportedType,
		flattypes.EnumNamesGeometryType[gt], flattypes.EnumNamesGeometryType[layer])
}

// asPolygon converts the polygonal orb types to an orb.Polygon.
func asPolygon(geom orb.Geometry) orb.Polygon {
	switch v := geom.(type) {
	case orb.Ring:
		return orb.Polygon{v}
	case orb.Bound:
		return v.ToPolygon()
	default:
		return geom.(orb.Polygon)
	}
}

// newGeometry converts geom to a FlatGeobuf geometry built with b.
// Z and M ordinates are written as zeros when the header declares them,
// since orb geometries are two dimensional.
func newGeometry(b *flatbuffers.Builder, geom orb.Geometry, d dims) (*writer.Geometry, error) {
	if geom == nil {
		return nil, ErrNilGeometry
	}

	g := writer.NewGeometry(b).SetType(GeometryTypeOf(geom))
	var xy []float64

	switch v := geom.(type) {
	case orb.Point:
		xy = []float64{v[0], v[1]}
	case orb.MultiPoint:
		xy = pointsToXY(v)
	case orb.LineString:
		xy = pointsToXY(v)
	case orb.MultiLineString:
		var ends []uint32
		for _, ls := range v {
			xy = append(xy, pointsToXY(ls)...)
			ends = append(ends, uint32(len(xy)/2))
		}
		g.SetEnds(ends)
	case orb.Ring, orb.Polygon, orb.Bound:
		var ends []uint32
		xy, ends = polygonToXYEnds(asPolygon(v))
		g.SetEnds(ends)
	case orb.MultiPolygon:
		parts := make([]writer.Geometry, 0, len(v))
		for _, poly := range v {
			part, err := newGeometry(b, poly, d)
			if err != nil {
				return nil, err
			}
			parts = append(parts, *part)
		}
		g.SetParts(parts)
	case orb.Collection:
		parts := make([]writer.Geometry, 0, len(v))
		for _, child := range v {
			part, err := newGeometry(b, child, d)
			if err != nil {
				return nil, err
			}
			parts = append(parts, *part)
		}
		g.SetParts(parts)
	default:
		return nil, ErrUnsupportedType
	}

	if len(xy) > 0 {
		g.SetXY(xy)
		n := len(xy) / 2
		if d.z {
			g.SetZ(make([]float64, n))
		}
		if d.m {
			g.SetM(make([]float64, n))
		}
	}
	return g, nil
}

func pointsToXY[T ~[]orb.Point](points T) []float64 {
	xy := make([]float64, 0, len(points)*2)
	for _, p := range points {
		xy = append(xy, p[0], p[1])
	}
	return xy
}

func polygonToXYEnds(poly orb.Polygon) ([]float64, []uint32) {
	var xy []float64
	ends := make([]uint32, 0, len(poly))
	for _, ring := range poly {
		xy = append(xy, pointsToXY(ring)...)
		ends = append(ends, uint32(len(xy)/2))
	}
	return xy, ends
}

// geometryFromFGB converts a FlatGeobuf geometry to an orb.Geometry.
// The geometry type of the feature wins over the header type; the header
// type is used when the feature leaves it unset.
func geometryFromFGB(g *flattypes.Geometry, headerType flattypes.GeometryType) orb.Geometry {
	if g == nil {
		return nil
	}

	gt := g.Type()
	if gt == flattypes.GeometryTypeUnknown {
		gt = headerType
	}

	switch gt {
	case flattypes.GeometryTypePoint:
		pts := readPoints(g, 0, g.XyLength()/2)
		if len(pts) == 0 {
			return orb.Point{}
		}
		return pts[0]

	case flattypes.GeometryTypeMultiPoint:
		return orb.MultiPoint(readPoints(g, 0, g.XyLength()/2))

	case flattypes.GeometryTypeLineString:
		return orb.LineString(readPoints(g, 0, g.XyLength()/2))

	case flattypes.GeometryTypeMultiLineString:
		mls := orb.MultiLineString{}
		for _, span := range spans(g) {
			mls = append(mls, orb.LineString(readPoints(g, span[0], span[1])))
		}
		return mls

	case flattypes.GeometryTypePolygon:
		return polygonFromFGB(g)

	case flattypes.GeometryTypeMultiPolygon:
		mp := orb.MultiPolygon{}
		if g.PartsLength() == 0 {
			if poly := polygonFromFGB(g); len(poly) > 0 {
				mp = append(mp, poly)
			}
			return mp
		}
		for i := 0; i < g.PartsLength(); i++ {
			var part flattypes.Geometry
			if g.Parts(&part, i) {
				if poly := polygonFromFGB(&part); len(poly) > 0 {
					mp = append(mp, poly)
				}
			}
		}
		return mp

	case flattypes.GeometryTypeGeometryCollection:
		coll := orb.Collection{}
		for i := 0; i < g.PartsLength(); i++ {
			var part flattypes.Geometry
			if g.Parts(&part, i) {
				if child := geometryFromFGB(&part, flattypes.GeometryTypeUnknown); child != nil {
					coll = append(coll, child)
				}
			}
		}
		return coll

	default:
		return nil
	}
}

func polygonFromFGB(g *flattypes.Geometry) orb.Polygon {
	poly := orb.Polygon{}
	for _, span := range spans(g) {
		poly = append(poly, orb.Ring(readPoints(g, span[0], span[1])))
	}
	return poly
}

// spans returns [start, end) point ranges described by the ends array.
// Without ends, all points form a single part.
func spans(g *flattypes.Geometry) [][2]int {
	n := g.XyLength() / 2
	if n == 0 {
		return nil
	}
	if g.EndsLength() == 0 {
		return [][2]int{{0, n}}
	}

	out := make([][2]int, 0, g.EndsLength())
	start := 0
	for i := 0; i < g.EndsLength(); i++ {
		end := int(g.Ends(i))
		if end > n {
			end = n
		}
		out = append(out, [2]int{start, end})
		start = end
	}
	return out
}

func readPoints(g *flattypes.Geometry, start, end int) []orb.Point {
	if end <= start {
		return []orb.Point{}
	}
	pts := make([]orb.Point, 0, end-start)
	for i := start; i < end; i++ {
		pts = append(pts, orb.Point{g.Xy(2 * i), g.Xy(2*i + 1)})
	}
	return pts
}
