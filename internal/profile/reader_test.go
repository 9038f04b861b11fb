package profile

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/miczat/fc-profiler/internal/gdb"
	"github.com/miczat/fc-profiler/internal/logger"
)

// fakeDescriber serves canned descriptions and counts calls.
type fakeDescriber struct {
	descriptions map[string]*gdb.Description
	calls        int
}

func (f *fakeDescriber) Describe(ref string) (*gdb.Description, error) {
	f.calls++
	d, ok := f.descriptions[ref]
	if !ok {
		return nil, gdb.ErrNotFound
	}
	return d, nil
}

const lambertRef = `c:\tmp\test.gdb\GDA94_GA_Lambert_polygon`

func newFake() *fakeDescriber {
	sr, _ := gdb.SpatialReferenceByWKID(3112)
	return &fakeDescriber{descriptions: map[string]*gdb.Description{
		lambertRef: {
			Name:             "GDA94_GA_Lambert_polygon",
			Geometry:         gdb.Polygon,
			SpatialReference: sr,
			HasZ:             true,
			RecordCount:      5000000,
			Fields: []gdb.Field{
				{Name: "OBJECTID", Alias: "OBJECTID", Type: gdb.FieldTypeOID, Length: 4, Required: true},
				{Name: "Shape", Alias: "Shape", Type: gdb.FieldTypeGeometry, Nullable: true, Required: true, Editable: true},
				{Name: "Shape_Length", Alias: "Shape_Length", Type: gdb.FieldTypeDouble, Length: 8, Nullable: true, Required: true},
				{Name: "Shape_Area", Alias: "Shape_Area", Type: gdb.FieldTypeDouble, Length: 8, Nullable: true, Required: true},
				{Name: "status", Alias: "Status", Type: gdb.FieldTypeText, Length: 10, Nullable: true, Editable: true, Domain: "status_codes"},
			},
		},
		"/data/x.gdb/no_crs": {
			Name:             "no_crs",
			Geometry:         gdb.Point,
			SpatialReference: gdb.Unknown,
			Fields:           make([]gdb.Field, 2),
		},
	}}
}

func TestReader_Properties(t *testing.T) {
	r := NewReader(newFake(), logger.Nop())

	props, err := r.Properties(lambertRef)
	require.NoError(t, err)

	expected := []Property{
		{LabelFeatureClass, "GDA94_GA_Lambert_polygon"},
		{LabelContainer, `c:\tmp\test.gdb`},
		{LabelGeometryType, "Polygon"},
		{LabelCRSName, "GDA_1994_Geoscience_Australia_Lambert"},
		{LabelCRSWKID, 3112},
		{LabelCRSType, "Projected"},
		{LabelCRSUnits, "Meter"},
		{LabelHasZ, "True"},
		{LabelHasM, "False"},
		{LabelRecords, "5,000,000"},
		{LabelFields, 5},
	}
	assert.Equal(t, expected, props)
}

func TestReader_NoCRS(t *testing.T) {
	r := NewReader(newFake(), nil)
	ref := "/data/x.gdb/no_crs"

	name, err := r.CRSName(ref)
	require.NoError(t, err)
	assert.Equal(t, "Unknown", name)

	wkid, err := r.CRSWKID(ref)
	require.NoError(t, err)
	assert.Equal(t, 0, wkid)

	crsType, err := r.CRSType(ref)
	require.NoError(t, err)
	assert.Equal(t, "Unknown", crsType)

	units, err := r.CRSUnits(ref)
	require.NoError(t, err)
	assert.Equal(t, "Unknown", units)

	n, err := r.FieldCount(ref)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestReader_CachesDescriptions(t *testing.T) {
	fake := newFake()
	r := NewReader(fake, nil)

	_, err := r.Name(lambertRef)
	require.NoError(t, err)
	_, err = r.HasZ(lambertRef)
	require.NoError(t, err)
	_, err = r.Properties(lambertRef)
	require.NoError(t, err)

	assert.Equal(t, 1, fake.calls)
}

func TestReader_NotFound(t *testing.T) {
	r := NewReader(newFake(), nil)

	_, err := r.Name("/data/x.gdb/missing")
	assert.True(t, errors.Is(err, gdb.ErrNotFound))

	_, err = r.FieldStructure("/data/x.gdb/missing")
	assert.ErrorIs(t, err, gdb.ErrNotFound)
}

func TestReader_ContainerPathIsTextual(t *testing.T) {
	r := NewReader(newFake(), nil)
	assert.Equal(t, `c:\tmp\test.gdb`, r.ContainerPath(`c:\tmp\test.gdb\featureclass`))
}

func TestReader_FieldStructure(t *testing.T) {
	r := NewReader(newFake(), nil)

	fs, err := r.FieldStructure(lambertRef)
	require.NoError(t, err)
	assert.Equal(t, Headings, fs.Headings)
	require.Len(t, fs.Fields, 5)

	status := fs.Fields[4]
	assert.Equal(t, FieldDescriptor{
		Name:       "status",
		NameLength: 6,
		Alias:      "Status",
		Type:       "TEXT",
		Length:     10,
		Nullable:   true,
		Editable:   true,
		Domain:     "status_codes",
	}, status)

	assert.Equal(t, []interface{}{"OBJECTID", 8, "OBJECTID", "OID", 4, 0, 0, "False", "True", "False", ""},
		fs.Fields[0].Values())
}

func TestDatastore_Describe(t *testing.T) {
	ctx := context.Background()
	container := filepath.Join(t.TempDir(), "fc_profiler_test.gdb")
	ws, err := gdb.Create(container, false)
	require.NoError(t, err)

	sr, _ := gdb.SpatialReferenceByWKID(28356)
	require.NoError(t, ws.CreateFeatureClass(gdb.FeatureClassDef{
		Name:             "MGAZ56_has_Z_M_polyline",
		Geometry:         gdb.Polyline,
		SpatialReference: sr,
		HasZ:             true,
		HasM:             true,
	}))
	require.NoError(t, ws.AddField(ctx, "MGAZ56_has_Z_M_polyline", gdb.FieldDef{Name: "label", Type: gdb.FieldTypeText}))
	require.NoError(t, ws.Close())

	ref := filepath.Join(container, "MGAZ56_has_Z_M_polyline")
	r := NewReader(Datastore{}, nil)

	props, err := r.Properties(ref)
	require.NoError(t, err)
	values := map[string]interface{}{}
	for _, p := range props {
		values[p.Label] = p.Value
	}
	assert.Equal(t, "MGAZ56_has_Z_M_polyline", values[LabelFeatureClass])
	assert.Equal(t, container, values[LabelContainer])
	assert.Equal(t, "Polyline", values[LabelGeometryType])
	assert.Equal(t, 28356, values[LabelCRSWKID])
	assert.Equal(t, "True", values[LabelHasZ])
	assert.Equal(t, "True", values[LabelHasM])
	assert.Equal(t, "0", values[LabelRecords])
	assert.Equal(t, 4, values[LabelFields])

	_, err = r.Name(filepath.Join(container, "missing"))
	assert.ErrorIs(t, err, gdb.ErrNotFound)

	_, err = NewReader(Datastore{}, nil).Name(filepath.Join(t.TempDir(), "nope.gdb", "fc"))
	assert.ErrorIs(t, err, gdb.ErrNotFound)
}
