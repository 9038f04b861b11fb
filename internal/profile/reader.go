package profile

import (
	"fmt"

	"github.com/dustin/go-humanize"

	"github.com/miczat/fc-profiler/internal/gdb"
	"github.com/miczat/fc-profiler/internal/logger"
)

// Describer describes a feature class by reference.
type Describer interface {
	Describe(ref string) (*gdb.Description, error)
}

// Datastore describes feature classes stored in containers on disk.
type Datastore struct{}

// Describe opens the container named by ref and describes the feature
// class in it.
func (Datastore) Describe(ref string) (*gdb.Description, error) {
	container, name, err := gdb.SplitRef(ref)
	if err != nil {
		return nil, err
	}
	ws, err := gdb.Open(container)
	if err != nil {
		return nil, err
	}
	defer func() { _ = ws.Close() }()
	return ws.Describe(name)
}

// Reader answers metadata questions about feature classes. Descriptions
// are cached per reference for the life of the Reader.
type Reader struct {
	describer Describer
	log       *logger.Logger
	cache     map[string]*gdb.Description
}

// NewReader returns a Reader backed by d.
func NewReader(d Describer, log *logger.Logger) *Reader {
	if log == nil {
		log = logger.Nop()
	}
	return &Reader{
		describer: d,
		log:       log,
		cache:     make(map[string]*gdb.Description),
	}
}

func (r *Reader) describe(ref string) (*gdb.Description, error) {
	if d, ok := r.cache[ref]; ok {
		return d, nil
	}
	d, err := r.describer.Describe(ref)
	if err != nil {
		return nil, fmt.Errorf("describe %s: %w", ref, err)
	}
	r.cache[ref] = d
	return d, nil
}

// Name returns the leaf name of the feature class.
func (r *Reader) Name(ref string) (string, error) {
	d, err := r.describe(ref)
	if err != nil {
		return "", err
	}
	r.log.Debugf("Name returning: %s", d.Name)
	return d.Name, nil
}

// ContainerPath returns the enclosing container of ref. It does not
// consult the datastore.
func (r *Reader) ContainerPath(ref string) string {
	p := gdb.ContainerPath(ref)
	r.log.Debugf("ContainerPath returning: %s", p)
	return p
}

// GeometryType returns Point, Multipoint, Polyline, Polygon or MultiPatch.
func (r *Reader) GeometryType(ref string) (string, error) {
	d, err := r.describe(ref)
	if err != nil {
		return "", err
	}
	r.log.Debugf("GeometryType returning: %s", d.Geometry)
	return d.Geometry.String(), nil
}

// CRSName returns the coordinate system name, "Unknown" when there is none.
func (r *Reader) CRSName(ref string) (string, error) {
	d, err := r.describe(ref)
	if err != nil {
		return "", err
	}
	r.log.Debugf("CRSName returning: %s", d.SpatialReference.Name)
	return d.SpatialReference.Name, nil
}

// CRSWKID returns the well-known ID of the coordinate system, 0 when
// there is none.
func (r *Reader) CRSWKID(ref string) (int, error) {
	d, err := r.describe(ref)
	if err != nil {
		return 0, err
	}
	r.log.Debugf("CRSWKID returning: %d", d.SpatialReference.WKID)
	return d.SpatialReference.WKID, nil
}

// CRSType returns Projected, Geographic or Unknown.
func (r *Reader) CRSType(ref string) (string, error) {
	d, err := r.describe(ref)
	if err != nil {
		return "", err
	}
	t := d.SpatialReference.Type
	if t == "" {
		t = gdb.CRSUnknown
	}
	r.log.Debugf("CRSType returning: %s", t)
	return t, nil
}

// CRSUnits returns the linear unit of projected systems, the angular unit
// of geographic systems and "Unknown" otherwise.
func (r *Reader) CRSUnits(ref string) (string, error) {
	d, err := r.describe(ref)
	if err != nil {
		return "", err
	}
	u := d.SpatialReference.Units()
	r.log.Debugf("CRSUnits returning: %s", u)
	return u, nil
}

// HasZ reports whether geometries carry Z values.
func (r *Reader) HasZ(ref string) (bool, error) {
	d, err := r.describe(ref)
	if err != nil {
		return false, err
	}
	r.log.Debugf("HasZ returning: %t", d.HasZ)
	return d.HasZ, nil
}

// HasM reports whether geometries carry M values.
func (r *Reader) HasM(ref string) (bool, error) {
	d, err := r.describe(ref)
	if err != nil {
		return false, err
	}
	r.log.Debugf("HasM returning: %t", d.HasM)
	return d.HasM, nil
}

// TotalRecordCount returns the number of features.
func (r *Reader) TotalRecordCount(ref string) (uint64, error) {
	d, err := r.describe(ref)
	if err != nil {
		return 0, err
	}
	r.log.Debugf("TotalRecordCount returning: %d", d.RecordCount)
	return d.RecordCount, nil
}

// FieldCount returns the number of fields, system fields included.
func (r *Reader) FieldCount(ref string) (int, error) {
	d, err := r.describe(ref)
	if err != nil {
		return 0, err
	}
	r.log.Debugf("FieldCount returning: %d", len(d.Fields))
	return len(d.Fields), nil
}

// Fields returns the field descriptors in schema order.
func (r *Reader) Fields(ref string) ([]FieldDescriptor, error) {
	d, err := r.describe(ref)
	if err != nil {
		return nil, err
	}
	out := make([]FieldDescriptor, 0, len(d.Fields))
	for _, f := range d.Fields {
		out = append(out, NewFieldDescriptor(f))
	}
	return out, nil
}

// Properties returns the labelled properties in report order.
func (r *Reader) Properties(ref string) ([]Property, error) {
	d, err := r.describe(ref)
	if err != nil {
		return nil, err
	}
	crsType, _ := r.CRSType(ref)

	props := []Property{
		{LabelFeatureClass, d.Name},
		{LabelContainer, r.ContainerPath(ref)},
		{LabelGeometryType, d.Geometry.String()},
		{LabelCRSName, d.SpatialReference.Name},
		{LabelCRSWKID, d.SpatialReference.WKID},
		{LabelCRSType, crsType},
		{LabelCRSUnits, d.SpatialReference.Units()},
		{LabelHasZ, BoolString(d.HasZ)},
		{LabelHasM, BoolString(d.HasM)},
		{LabelRecords, humanize.Comma(int64(d.RecordCount))},
		{LabelFields, len(d.Fields)},
	}
	for _, p := range props {
		r.log.Debugf("%s: %v", p.Label, p.Value)
	}
	return props, nil
}

// FieldStructure returns the heading row and field descriptors.
func (r *Reader) FieldStructure(ref string) (FieldStructure, error) {
	fields, err := r.Fields(ref)
	if err != nil {
		return FieldStructure{}, err
	}
	headings := make([]string, len(Headings))
	copy(headings, Headings)
	return FieldStructure{Headings: headings, Fields: fields}, nil
}
