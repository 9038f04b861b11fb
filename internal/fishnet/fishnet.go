// Package fishnet generates regular grids of lines or polygon cells as
// feature streams, so grids far larger than memory can be written.
package fishnet

import (
	"errors"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/paulmach/orb/planar"
)

// ErrInvalidGrid is returned for grids without rows, columns or extent.
var ErrInvalidGrid = errors.New("fishnet: invalid grid")

// Property names carried by generated features.
const (
	LengthProperty = "Shape_Length"
	AreaProperty   = "Shape_Area"
)

// Grid describes a fishnet anchored at its lower-left corner.
type Grid struct {
	Origin     orb.Point
	Rows, Cols int
	CellWidth  float64
	CellHeight float64
}

// Validate checks that the grid has at least one cell of positive size.
func (g Grid) Validate() error {
	if g.Rows <= 0 || g.Cols <= 0 || g.CellWidth <= 0 || g.CellHeight <= 0 {
		return ErrInvalidGrid
	}
	return nil
}

// Bound returns the extent of the grid.
func (g Grid) Bound() orb.Bound {
	return orb.Bound{
		Min: g.Origin,
		Max: orb.Point{
			g.Origin[0] + float64(g.Cols)*g.CellWidth,
			g.Origin[1] + float64(g.Rows)*g.CellHeight,
		},
	}
}

// LineCount is the number of lines in the grid: one per row boundary and
// one per column boundary.
func (g Grid) LineCount() uint64 {
	return uint64(g.Rows+1) + uint64(g.Cols+1)
}

// CellCount is the number of polygon cells in the grid.
func (g Grid) CellCount() uint64 {
	return uint64(g.Rows) * uint64(g.Cols)
}

// Lines returns a source of the grid lines, horizontal lines bottom to top
// followed by vertical lines left to right. Each line spans the full grid
// and carries its Shape_Length.
func (g Grid) Lines() (*LineSource, error) {
	if err := g.Validate(); err != nil {
		return nil, err
	}
	return &LineSource{grid: g, bound: g.Bound()}, nil
}

// Cells returns a source of the grid cells in row-major order starting at
// the lower-left cell. Each cell carries Shape_Length and Shape_Area.
func (g Grid) Cells() (*CellSource, error) {
	if err := g.Validate(); err != nil {
		return nil, err
	}
	return &CellSource{grid: g}, nil
}

// LineSource yields the lines of a grid.
type LineSource struct {
	grid  Grid
	bound orb.Bound
	next  int
}

// Count returns the total number of lines.
func (s *LineSource) Count() uint64 {
	return s.grid.LineCount()
}

// Bound returns the extent covered by the lines.
func (s *LineSource) Bound() orb.Bound {
	return s.bound
}

// Generate returns the next line or nil when done.
func (s *LineSource) Generate() *geojson.Feature {
	g := s.grid
	i := s.next
	var line orb.LineString

	switch {
	case i <= g.Rows:
		y := g.Origin[1] + float64(i)*g.CellHeight
		line = orb.LineString{{s.bound.Min[0], y}, {s.bound.Max[0], y}}
	case i <= g.Rows+1+g.Cols:
		x := g.Origin[0] + float64(i-g.Rows-1)*g.CellWidth
		line = orb.LineString{{x, s.bound.Min[1]}, {x, s.bound.Max[1]}}
	default:
		return nil
	}
	s.next++

	f := geojson.NewFeature(line)
	f.Properties = geojson.Properties{LengthProperty: planar.Length(line)}
	return f
}

// CellSource yields the cells of a grid.
type CellSource struct {
	grid Grid
	next uint64
}

// Count returns the total number of cells.
func (s *CellSource) Count() uint64 {
	return s.grid.CellCount()
}

// Bound returns the extent covered by the cells.
func (s *CellSource) Bound() orb.Bound {
	return s.grid.Bound()
}

// Generate returns the next cell or nil when done.
func (s *CellSource) Generate() *geojson.Feature {
	g := s.grid
	if s.next >= g.CellCount() {
		return nil
	}
	row := int(s.next / uint64(g.Cols))
	col := int(s.next % uint64(g.Cols))
	s.next++

	x0 := g.Origin[0] + float64(col)*g.CellWidth
	y0 := g.Origin[1] + float64(row)*g.CellHeight
	x1 := x0 + g.CellWidth
	y1 := y0 + g.CellHeight

	// Clockwise exterior ring.
	poly := orb.Polygon{{{x0, y0}, {x0, y1}, {x1, y1}, {x1, y0}, {x0, y0}}}

	f := geojson.NewFeature(poly)
	f.Properties = geojson.Properties{
		LengthProperty: planar.Length(poly),
		AreaProperty:   planarArea(poly),
	}
	return f
}

// planarArea returns the unsigned area of poly.
func planarArea(poly orb.Polygon) float64 {
	a := planar.Area(poly)
	if a < 0 {
		return -a
	}
	return a
}
