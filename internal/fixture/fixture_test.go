package fixture

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/miczat/fc-profiler/internal/gdb"
	"github.com/miczat/fc-profiler/internal/logger"
)

var testOptions = Options{
	Overwrite: true,
	LargeGrid: Size{Rows: 4, Cols: 5},
}

func run(t *testing.T, folder string) *gdb.Workspace {
	t.Helper()
	opts := testOptions
	opts.InstallFolder = folder

	path, err := Run(context.Background(), opts, nil)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(folder, ContainerName), path)

	ws, err := gdb.Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = ws.Close() })
	return ws
}

func snapshot(t *testing.T, ws *gdb.Workspace) map[string]*gdb.Description {
	t.Helper()
	names, err := ws.FeatureClasses()
	require.NoError(t, err)

	out := make(map[string]*gdb.Description, len(names))
	for _, name := range names {
		d, err := ws.Describe(name)
		require.NoError(t, err)
		out[name] = d
	}
	return out
}

func TestRun_Catalog(t *testing.T) {
	ws := run(t, t.TempDir())
	got := snapshot(t, ws)

	assert.Len(t, got, 17)

	crs := map[string]int{
		"GDA94_GA_Lambert_point": 3112,
		"GDA94_point":            4283,
		"WGS84_point":            4326,
		"Web_Mercator_point":     3857,
		"MGAZ56_point":           28356,
	}
	for name, wkid := range crs {
		require.Contains(t, got, name)
		assert.Equal(t, wkid, got[name].SpatialReference.WKID, name)
		assert.Equal(t, gdb.Point, got[name].Geometry, name)
		assert.Len(t, got[name].Fields, 2, name)
	}
	assert.Equal(t, "Unknown", got["NO_CRS_point"].SpatialReference.Name)
	assert.Equal(t, 0, got["NO_CRS_point"].SpatialReference.WKID)

	geoms := map[string]gdb.GeometryType{
		"GDA94_multipoint": gdb.Multipoint,
		"GDA94_polyline":   gdb.Polyline,
		"GDA94_polygon":    gdb.Polygon,
		"GDA94_multipatch": gdb.MultiPatch,
	}
	for name, g := range geoms {
		assert.Equal(t, g, got[name].Geometry, name)
	}

	zm := map[string][2]bool{
		"MGAZ56_has_Z_polyline":   {true, false},
		"MGAZ56_has_M_polyline":   {false, true},
		"MGAZ56_has_Z_M_polyline": {true, true},
	}
	for name, want := range zm {
		assert.Equal(t, want, [2]bool{got[name].HasZ, got[name].HasM}, name)
	}
	assert.False(t, got["MGAZ56_point"].HasZ)
	assert.False(t, got["MGAZ56_point"].HasM)
}

func TestRun_Fields(t *testing.T) {
	ws := run(t, t.TempDir())

	d, err := ws.Describe("MGAZ56_all_field_types_point")
	require.NoError(t, err)
	require.Len(t, d.Fields, 2+18)

	byName := map[string]gdb.Field{}
	for _, f := range d.Fields {
		byName[f.Name] = f
	}
	assert.Equal(t, 50, byName["text_50"].Length)
	assert.Equal(t, 255, byName["text_field"].Length)
	assert.Equal(t, "Text field with an alias", byName["text_alias"].Alias)
	assert.False(t, byName["text_non_nullable"].Nullable)
	assert.True(t, byName["text_required"].Required)
	assert.Equal(t, "N/A", byName["text_default"].Default)
	assert.Equal(t, 6, byName["float_6_2"].Precision)
	assert.Equal(t, 2, byName["float_6_2"].Scale)
	assert.Equal(t, gdb.FieldTypeRaster, byName["raster_field"].Type)
	assert.Equal(t, gdb.FieldTypeGUID, byName["guid_field"].Type)
	assert.Equal(t, 38, byName["guid_field"].Length)
}

func TestRun_Domains(t *testing.T) {
	ws := run(t, t.TempDir())

	all, err := ws.Domains(context.Background())
	require.NoError(t, err)
	require.Len(t, all, 10)
	coded := 0
	for _, d := range all {
		if d.Type == gdb.CodedDomain {
			coded++
		}
	}
	assert.Equal(t, 5, coded)

	d, err := ws.Describe("MGAZ56_domains_point")
	require.NoError(t, err)
	require.Len(t, d.Fields, 12)
	for _, f := range d.Fields[2:] {
		assert.Equal(t, f.Name+"_domain", f.Domain)
	}
}

func TestRun_RecordCounts(t *testing.T) {
	ws := run(t, t.TempDir())

	lines, err := ws.Describe("MGAZ56_602_rec_polyline")
	require.NoError(t, err)
	assert.Equal(t, uint64(602), lines.RecordCount)
	assert.Len(t, lines.Fields, 3)

	cells, err := ws.Describe("MGAZ56_5_million_rec_polygon")
	require.NoError(t, err)
	assert.Equal(t, uint64(20), cells.RecordCount)
	assert.Len(t, cells.Fields, 4)

	require.NotNil(t, lines.Extent)
	assert.Equal(t, orb.Bound{Min: mgaOrigin, Max: orb.Point{503000, 6953000}}, *lines.Extent)
	require.NotNil(t, cells.Extent)
	assert.Equal(t, orb.Bound{Min: mgaOrigin, Max: orb.Point{500050, 6950040}}, *cells.Extent)

	assert.Equal(t, uint64(5000000), LargeGrid.grid().CellCount())
	assert.Equal(t, uint64(602), SmallGrid.grid().LineCount())
}

func TestRun_Idempotent(t *testing.T) {
	folder := t.TempDir()

	first := snapshot(t, run(t, folder))
	second := snapshot(t, run(t, folder))
	assert.Equal(t, first, second)
}

func TestRun_NoOverwrite(t *testing.T) {
	folder := t.TempDir()
	run(t, folder)

	opts := testOptions
	opts.InstallFolder = folder
	opts.Overwrite = false
	_, err := Run(context.Background(), opts, nil)
	assert.ErrorIs(t, err, gdb.ErrExists)
}

func TestRun_MissingInstallFolder(t *testing.T) {
	opts := testOptions
	opts.InstallFolder = filepath.Join(t.TempDir(), "missing")
	_, err := Run(context.Background(), opts, nil)
	assert.ErrorIs(t, err, ErrInstallFolder)
}

func TestRun_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	opts := testOptions
	opts.InstallFolder = t.TempDir()
	_, err := Run(ctx, opts, nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCreate_SpatialReferences(t *testing.T) {
	ws, err := gdb.Create(filepath.Join(t.TempDir(), ContainerName), false)
	require.NoError(t, err)
	t.Cleanup(func() { _ = ws.Close() })
	p := &populator{ws: ws, log: logger.Nop()}
	ctx := context.Background()

	require.NoError(t, p.create(ctx, featureClass{name: "MGAZ56_point", geom: gdb.Point, wkid: 28356}))
	d, err := ws.Describe("MGAZ56_point")
	require.NoError(t, err)
	assert.Equal(t, 28356, d.SpatialReference.WKID)
	assert.Equal(t, "GDA_1994_MGA_Zone_56", d.SpatialReference.Name)

	err = p.create(ctx, featureClass{name: "bad_crs_point", geom: gdb.Point, wkid: 99999})
	assert.ErrorIs(t, err, gdb.ErrNotFound)
	assert.False(t, ws.Exists("bad_crs_point"))
}

func TestParseSize(t *testing.T) {
	cases := []struct {
		in      string
		want    Size
		wantErr bool
	}{
		{in: "2000x2500", want: Size{2000, 2500}},
		{in: " 3X4 ", want: Size{3, 4}},
		{in: "2000", wantErr: true},
		{in: "ax3", wantErr: true},
		{in: "0x3", wantErr: true},
	}
	for _, c := range cases {
		got, err := ParseSize(c.in)
		if c.wantErr {
			assert.Error(t, err, c.in)
			continue
		}
		require.NoError(t, err, c.in)
		assert.Equal(t, c.want, got)
		assert.Equal(t, c.want.String(), got.String())
	}
}
