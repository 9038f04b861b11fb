// Package fgb reads and writes FlatGeobuf files holding one feature class.
// Files are written through the flatgeobuf writer without a spatial index.
// The header carries the full column schema and an exact feature count so
// callers can rely on it for record counts.
package fgb

import (
	"errors"

	"github.com/flatgeobuf/flatgeobuf/src/go/flattypes"
	"github.com/paulmach/orb"
)

// Common errors returned by this package.
var (
	ErrNilGeometry      = errors.New("fgb: nil geometry")
	ErrUnsupportedType  = errors.New("fgb: unsupported geometry type")
	ErrInvalidData      = errors.New("fgb: invalid data")
	ErrInvalidColumn    = errors.New("fgb: invalid column type")
	ErrPropertyMismatch = errors.New("fgb: property type mismatch")
	ErrCountMismatch    = errors.New("fgb: feature count does not match header")
)

// CRS represents a coordinate reference system.
type CRS struct {
	Org         string // Authority, "EPSG" when empty
	Code        int    // Authority code (e.g., 4326 for WGS84)
	Name        string // CRS name
	Description string // CRS description
	WKT         string // Well-Known Text, stored as the description
}

// Column describes a property column.
type Column struct {
	Name        string
	Type        flattypes.ColumnType
	Title       string // Human-readable title, used as the field alias
	Description string
	Width       int
	Precision   int
	Scale       int
	Nullable    bool
	Unique      bool
	Metadata    string // Free-form, JSON by convention
}

// Header contains metadata about a FlatGeobuf file.
type Header struct {
	Name          string
	Title         string
	Description   string
	GeometryType  flattypes.GeometryType
	HasZ          bool
	HasM          bool
	FeaturesCount uint64     // 0 means unknown for files written elsewhere
	Envelope      *orb.Bound // nil when not recorded
	CRS           *CRS       // nil when the data has no CRS
	IndexNodeSize uint16     // 0 when there is no spatial index
	Columns       []Column
}

// ColumnIndex returns the position of the named column or -1.
func (h *Header) ColumnIndex(name string) int {
	for i, c := range h.Columns {
		if c.Name == name {
			return i
		}
	}
	return -1
}

// packedRTreeSize returns the byte size of the packed Hilbert R-tree index
// that follows the header of a file with numItems features. It counts
// levels the way the index package lays them out, so a single feature
// still gets a root node above its leaf.
func packedRTreeSize(numItems uint64, nodeSize uint16) uint64 {
	if numItems == 0 || nodeSize < 2 {
		return 0
	}
	n := numItems
	numNodes := n
	for {
		n = (n + uint64(nodeSize) - 1) / uint64(nodeSize)
		numNodes += n
		if n == 1 {
			break
		}
	}
	// minX, minY, maxX, maxY float64 plus a uint64 offset
	return numNodes * 40
}
