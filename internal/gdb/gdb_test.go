package gdb

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/miczat/fc-profiler/internal/fgb"
)

func newWorkspace(t *testing.T) *Workspace {
	t.Helper()
	ws, err := Create(filepath.Join(t.TempDir(), "test.gdb"), false)
	require.NoError(t, err)
	t.Cleanup(func() { _ = ws.Close() })
	return ws
}

func TestContainerPath(t *testing.T) {
	tests := []struct {
		ref      string
		expected string
	}{
		{`c:\tmp\test.gdb\featureclass`, `c:\tmp\test.gdb`},
		{"/data/fc_profiler_test.gdb/GDA94_point", "/data/fc_profiler_test.gdb"},
		{"/data/UPPER.GDB/fc", "/data/UPPER.GDB"},
		{"/data/missing.gdb", "/data/missing.gdb"},
		{"/data/plain/fc", "/data/plain"},
		{"fc", ""},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, ContainerPath(tt.ref), tt.ref)
	}
}

func TestSplitRef(t *testing.T) {
	container, name, err := SplitRef(`c:\tmp\test.gdb\MGAZ56_point`)
	require.NoError(t, err)
	assert.Equal(t, `c:\tmp\test.gdb`, container)
	assert.Equal(t, "MGAZ56_point", name)

	_, _, err = SplitRef("/tmp/test.gdb")
	assert.ErrorIs(t, err, ErrNotFound)

	_, _, err = SplitRef("/tmp/folder/fc")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCreate(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.gdb")

	ws, err := Create(path, false)
	require.NoError(t, err)
	require.NoError(t, ws.Close())
	assert.True(t, Exists(path))
	assert.FileExists(t, filepath.Join(path, catalogFile))

	_, err = Create(path, false)
	assert.ErrorIs(t, err, ErrExists)

	ws, err = Create(path, true)
	require.NoError(t, err)
	require.NoError(t, ws.Close())

	_, err = Create(filepath.Join(dir, "missing", "test.gdb"), false)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = Create(filepath.Join(dir, "test.db"), false)
	assert.ErrorIs(t, err, ErrInvalidName)
}

func TestCreate_OverwriteRemovesContents(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.gdb")
	ws, err := Create(path, false)
	require.NoError(t, err)
	require.NoError(t, ws.CreateFeatureClass(FeatureClassDef{Name: "stale", Geometry: Point}))
	require.NoError(t, ws.Close())

	ws, err = Create(path, true)
	require.NoError(t, err)
	defer func() { _ = ws.Close() }()

	names, err := ws.FeatureClasses()
	require.NoError(t, err)
	assert.Empty(t, names)
}

func TestOpen(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "missing.gdb"))
	assert.ErrorIs(t, err, ErrNotFound)

	plain := t.TempDir()
	_, err = Open(plain)
	assert.ErrorIs(t, err, ErrNotFound)

	ws := newWorkspace(t)
	opened, err := Open(ws.Path())
	require.NoError(t, err)
	assert.Equal(t, ws.Path(), opened.Path())
	assert.NoError(t, opened.Close())
}

func TestCreateFeatureClass_MinimumSchema(t *testing.T) {
	ws := newWorkspace(t)
	sr, ok := SpatialReferenceByWKID(3112)
	require.True(t, ok)

	require.NoError(t, ws.CreateFeatureClass(FeatureClassDef{
		Name:             "GDA94_GA_Lambert_point",
		Geometry:         Point,
		SpatialReference: sr,
	}))

	d, err := ws.Describe("GDA94_GA_Lambert_point")
	require.NoError(t, err)
	assert.Equal(t, Point, d.Geometry)
	assert.Equal(t, uint64(0), d.RecordCount)
	assert.False(t, d.HasZ)
	assert.False(t, d.HasM)
	require.Len(t, d.Fields, 2)

	oid := d.Fields[0]
	assert.Equal(t, OIDFieldName, oid.Name)
	assert.Equal(t, FieldTypeOID, oid.Type)
	assert.Equal(t, 4, oid.Length)
	assert.False(t, oid.Nullable)
	assert.True(t, oid.Required)
	assert.False(t, oid.Editable)

	shape := d.Fields[1]
	assert.Equal(t, ShapeFieldName, shape.Name)
	assert.Equal(t, FieldTypeGeometry, shape.Type)
	assert.True(t, shape.Nullable)
	assert.True(t, shape.Editable)

	assert.Equal(t, "GDA_1994_Geoscience_Australia_Lambert", d.SpatialReference.Name)
	assert.Equal(t, 3112, d.SpatialReference.WKID)
	assert.Equal(t, CRSProjected, d.SpatialReference.Type)
	assert.Equal(t, "Meter", d.SpatialReference.Units())
}

func TestCreateFeatureClass_MeasureFields(t *testing.T) {
	ws := newWorkspace(t)
	require.NoError(t, ws.CreateFeatureClass(FeatureClassDef{Name: "lines", Geometry: Polyline}))
	require.NoError(t, ws.CreateFeatureClass(FeatureClassDef{Name: "cells", Geometry: Polygon}))

	lines, err := ws.Describe("lines")
	require.NoError(t, err)
	require.Len(t, lines.Fields, 3)
	assert.Equal(t, LengthFieldName, lines.Fields[2].Name)
	assert.Equal(t, FieldTypeDouble, lines.Fields[2].Type)
	assert.False(t, lines.Fields[2].Editable)
	assert.True(t, lines.Fields[2].Required)

	cells, err := ws.Describe("cells")
	require.NoError(t, err)
	require.Len(t, cells.Fields, 4)
	assert.Equal(t, AreaFieldName, cells.Fields[3].Name)
	assert.Equal(t, Polygon, cells.Geometry)
}

func TestCreateFeatureClass_Errors(t *testing.T) {
	ws := newWorkspace(t)

	err := ws.CreateFeatureClass(FeatureClassDef{Name: "1bad", Geometry: Point})
	assert.ErrorIs(t, err, ErrInvalidName)

	err = ws.CreateFeatureClass(FeatureClassDef{Name: "nogeom"})
	assert.ErrorIs(t, err, ErrInvalidName)

	require.NoError(t, ws.CreateFeatureClass(FeatureClassDef{Name: "dup", Geometry: Point}))
	err = ws.CreateFeatureClass(FeatureClassDef{Name: "dup", Geometry: Point})
	assert.ErrorIs(t, err, ErrExists)
}

func TestDescribe_GeometryTypesAndZM(t *testing.T) {
	ws := newWorkspace(t)

	defs := []FeatureClassDef{
		{Name: "pt", Geometry: Point},
		{Name: "mpt", Geometry: Multipoint},
		{Name: "line_z", Geometry: Polyline, HasZ: true},
		{Name: "line_m", Geometry: Polyline, HasM: true},
		{Name: "line_zm", Geometry: Polyline, HasZ: true, HasM: true},
		{Name: "poly", Geometry: Polygon},
		{Name: "patch", Geometry: MultiPatch},
	}
	for _, def := range defs {
		require.NoError(t, ws.CreateFeatureClass(def))
	}

	for _, def := range defs {
		d, err := ws.Describe(def.Name)
		require.NoError(t, err, def.Name)
		assert.Equal(t, def.Geometry.String(), d.Geometry.String(), def.Name)
		assert.Equal(t, def.HasZ, d.HasZ, def.Name)
		assert.Equal(t, def.HasM, d.HasM, def.Name)
	}

	names, err := ws.FeatureClasses()
	require.NoError(t, err)
	assert.Len(t, names, len(defs))
}

func TestDescribe_NoCRS(t *testing.T) {
	ws := newWorkspace(t)
	require.NoError(t, ws.CreateFeatureClass(FeatureClassDef{Name: "NO_CRS_point", Geometry: Point}))

	d, err := ws.Describe("NO_CRS_point")
	require.NoError(t, err)
	assert.Equal(t, "Unknown", d.SpatialReference.Name)
	assert.Equal(t, 0, d.SpatialReference.WKID)
	assert.Equal(t, CRSUnknown, d.SpatialReference.Type)
	assert.Equal(t, "Unknown", d.SpatialReference.Units())
}

func TestDescribe_NotFound(t *testing.T) {
	ws := newWorkspace(t)
	_, err := ws.Describe("missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDescribe_Corrupt(t *testing.T) {
	ws := newWorkspace(t)
	require.NoError(t, os.WriteFile(ws.featureClassPath("broken"), []byte("garbage"), 0o644))

	_, err := ws.Describe("broken")
	assert.ErrorIs(t, err, ErrProvider)
}

func TestAddField(t *testing.T) {
	ctx := context.Background()
	ws := newWorkspace(t)
	require.NoError(t, ws.CreateFeatureClass(FeatureClassDef{Name: "pt", Geometry: Point}))

	require.NoError(t, ws.AddField(ctx, "pt", FieldDef{
		Name:        "text_50",
		Type:        FieldTypeText,
		Alias:       "Text fifty",
		Length:      50,
		NonNullable: true,
		Required:    true,
		Default:     "n/a",
	}))
	require.NoError(t, ws.AddField(ctx, "pt", FieldDef{Name: "a_guid", Type: FieldTypeGUID}))

	d, err := ws.Describe("pt")
	require.NoError(t, err)
	require.Len(t, d.Fields, 4)

	f := d.Fields[2]
	assert.Equal(t, "text_50", f.Name)
	assert.Equal(t, "Text fifty", f.Alias)
	assert.Equal(t, FieldTypeText, f.Type)
	assert.Equal(t, 50, f.Length)
	assert.False(t, f.Nullable)
	assert.True(t, f.Required)
	assert.True(t, f.Editable)
	assert.Equal(t, "n/a", f.Default)

	g := d.Fields[3]
	assert.Equal(t, "a_guid", g.Alias)
	assert.Equal(t, FieldTypeGUID, g.Type)
	assert.Equal(t, 38, g.Length)
	assert.True(t, g.Nullable)

	err = ws.AddField(ctx, "pt", FieldDef{Name: "text_50", Type: FieldTypeLong})
	assert.ErrorIs(t, err, ErrExists)

	err = ws.AddField(ctx, "pt", FieldDef{Name: "OBJECTID", Type: FieldTypeLong})
	assert.ErrorIs(t, err, ErrExists)

	err = ws.AddField(ctx, "pt", FieldDef{Name: "oid", Type: FieldTypeOID})
	assert.ErrorIs(t, err, ErrInvalidName)

	err = ws.AddField(ctx, "missing", FieldDef{Name: "x", Type: FieldTypeLong})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestAddField_KeepsFeatures(t *testing.T) {
	ctx := context.Background()
	ws := newWorkspace(t)
	require.NoError(t, ws.CreateFeatureClass(FeatureClassDef{Name: "pt", Geometry: Point}))
	require.NoError(t, ws.Load(ctx, "pt", &pointSource{n: 3}))

	require.NoError(t, ws.AddField(ctx, "pt", FieldDef{Name: "extra", Type: FieldTypeShort}))

	d, err := ws.Describe("pt")
	require.NoError(t, err)
	assert.Equal(t, uint64(3), d.RecordCount)
	assert.Len(t, d.Fields, 3)
}

func TestDomains(t *testing.T) {
	ctx := context.Background()
	ws := newWorkspace(t)

	require.NoError(t, ws.CreateCodedDomain(ctx, "text_coded", "Colours", FieldTypeText, []CodedValue{
		{Code: "R", Description: "Red"},
		{Code: "G", Description: "Green"},
		{Code: "B", Description: "Blue"},
	}))
	require.NoError(t, ws.CreateRangeDomain(ctx, "double_range", "Ratio", FieldTypeDouble,
		decimal.RequireFromString("0.001"), decimal.RequireFromString("99.999")))

	coded, err := ws.Domain(ctx, "text_coded")
	require.NoError(t, err)
	assert.Equal(t, CodedDomain, coded.Type)
	assert.Equal(t, FieldTypeText, coded.FieldType)
	require.Len(t, coded.Codes, 3)
	assert.Equal(t, "B", coded.Codes[2].Code)
	assert.Equal(t, "Blue", coded.Codes[2].Description)

	rng, err := ws.Domain(ctx, "double_range")
	require.NoError(t, err)
	assert.Equal(t, RangeDomain, rng.Type)
	assert.Equal(t, "0.001", rng.Min.String())
	assert.Equal(t, "99.999", rng.Max.String())

	all, err := ws.Domains(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "double_range", all[0].Name)

	_, err = ws.Domain(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	err = ws.CreateCodedDomain(ctx, "text_coded", "", FieldTypeText, []CodedValue{{Code: "x"}})
	assert.ErrorIs(t, err, ErrExists)

	err = ws.CreateRangeDomain(ctx, "text_range", "", FieldTypeText, decimal.Zero, decimal.NewFromInt(1))
	assert.ErrorIs(t, err, ErrDomainMismatch)

	err = ws.CreateRangeDomain(ctx, "inverted", "", FieldTypeLong, decimal.NewFromInt(5), decimal.NewFromInt(1))
	assert.ErrorIs(t, err, ErrInvalidName)
}

func TestAssignDomain(t *testing.T) {
	ctx := context.Background()
	ws := newWorkspace(t)
	require.NoError(t, ws.CreateFeatureClass(FeatureClassDef{Name: "pt", Geometry: Point}))
	require.NoError(t, ws.AddField(ctx, "pt", FieldDef{Name: "code", Type: FieldTypeShort}))
	require.NoError(t, ws.AddField(ctx, "pt", FieldDef{Name: "label", Type: FieldTypeText}))
	require.NoError(t, ws.CreateRangeDomain(ctx, "short_range", "", FieldTypeShort,
		decimal.NewFromInt(-10), decimal.NewFromInt(10)))

	require.NoError(t, ws.AssignDomain(ctx, "pt", "code", "short_range"))

	d, err := ws.Describe("pt")
	require.NoError(t, err)
	assert.Equal(t, "short_range", d.Fields[2].Domain)
	assert.Equal(t, "", d.Fields[3].Domain)

	err = ws.AssignDomain(ctx, "pt", "label", "short_range")
	assert.ErrorIs(t, err, ErrDomainMismatch)

	err = ws.AssignDomain(ctx, "pt", "code", "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	err = ws.AssignDomain(ctx, "pt", "nope", "short_range")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLoad_CountMismatch(t *testing.T) {
	ws := newWorkspace(t)
	require.NoError(t, ws.CreateFeatureClass(FeatureClassDef{Name: "pt", Geometry: Point}))

	err := ws.Load(context.Background(), "pt", &pointSource{n: 2, declared: 5})
	assert.ErrorIs(t, err, ErrProvider)

	d, err := ws.Describe("pt")
	require.NoError(t, err)
	assert.Equal(t, uint64(0), d.RecordCount)
}

func TestLoad_Extent(t *testing.T) {
	ctx := context.Background()
	ws := newWorkspace(t)
	require.NoError(t, ws.CreateFeatureClass(FeatureClassDef{Name: "pt", Geometry: Point}))

	require.NoError(t, ws.Load(ctx, "pt", &pointSource{n: 3}))
	d, err := ws.Describe("pt")
	require.NoError(t, err)
	assert.Nil(t, d.Extent)

	bound := orb.Bound{Min: orb.Point{1, 1}, Max: orb.Point{3, 3}}
	require.NoError(t, ws.Load(ctx, "pt", &boundedSource{pointSource{n: 3}, bound}))
	d, err = ws.Describe("pt")
	require.NoError(t, err)
	require.NotNil(t, d.Extent)
	assert.Equal(t, bound, *d.Extent)

	require.NoError(t, ws.Load(ctx, "pt", &boundedSource{bound: bound}))
	d, err = ws.Describe("pt")
	require.NoError(t, err)
	assert.Nil(t, d.Extent)
}

func TestLoad_Cancelled(t *testing.T) {
	ws := newWorkspace(t)
	require.NoError(t, ws.CreateFeatureClass(FeatureClassDef{Name: "pt", Geometry: Point}))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := ws.Load(ctx, "pt", &pointSource{n: 10000})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestParseFieldType(t *testing.T) {
	ft, err := ParseFieldType("double")
	require.NoError(t, err)
	assert.Equal(t, FieldTypeDouble, ft)

	_, err = ParseFieldType("decimal")
	assert.ErrorIs(t, err, ErrInvalidName)
}

func TestSpatialReferenceFromWKT(t *testing.T) {
	sr := spatialReferenceFromCRS(nil)
	assert.Equal(t, Unknown, sr)

	projected, _ := SpatialReferenceByWKID(28356)
	sr = spatialReferenceFromCRS(&fgb.CRS{Code: 32756, WKT: projected.WKT})
	assert.Equal(t, "GDA_1994_MGA_Zone_56", sr.Name)
	assert.Equal(t, CRSProjected, sr.Type)
	assert.Equal(t, "Meter", sr.Units())

	geographic, _ := SpatialReferenceByWKID(4283)
	sr = spatialReferenceFromCRS(&fgb.CRS{Code: 7844, WKT: geographic.WKT})
	assert.Equal(t, CRSGeographic, sr.Type)
	assert.Equal(t, "Degree", sr.Units())
}

// pointSource yields n points but may declare a different count.
type pointSource struct {
	n, declared int
	i           int
}

func (s *pointSource) Count() uint64 {
	if s.declared > 0 {
		return uint64(s.declared)
	}
	return uint64(s.n)
}

func (s *pointSource) Generate() *geojson.Feature {
	if s.i >= s.n {
		return nil
	}
	s.i++
	return geojson.NewFeature(orb.Point{float64(s.i), float64(s.i)})
}

type boundedSource struct {
	pointSource
	bound orb.Bound
}

func (s *boundedSource) Bound() orb.Bound { return s.bound }
