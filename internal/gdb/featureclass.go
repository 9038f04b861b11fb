package gdb

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/miczat/fc-profiler/internal/fgb"
)

// FeatureClassDef is the definition of a new feature class.
type FeatureClassDef struct {
	Name             string
	Geometry         GeometryType
	SpatialReference SpatialReference // zero value or Unknown for none
	HasZ             bool
	HasM             bool
	Alias            string
}

// Description is the metadata of a feature class.
type Description struct {
	Name             string
	Path             string
	Alias            string
	Geometry         GeometryType
	SpatialReference SpatialReference
	HasZ             bool
	HasM             bool
	Extent           *orb.Bound // nil when not recorded
	RecordCount      uint64
	Fields           []Field
}

// FeatureSource yields the features loaded into a feature class. Count
// must match the number of features Generate yields before returning nil.
type FeatureSource interface {
	fgb.FeatureGenerator
	Count() uint64
}

// BoundedSource is a FeatureSource that knows its extent up front. Load
// records that extent in the feature class header.
type BoundedSource interface {
	FeatureSource
	Bound() orb.Bound
}

// Exists reports whether the container holds the named feature class.
func (w *Workspace) Exists(name string) bool {
	info, err := os.Stat(w.featureClassPath(name))
	return err == nil && !info.IsDir()
}

// CreateFeatureClass creates an empty feature class. Polyline feature
// classes get a Shape_Length field and polygon feature classes get
// Shape_Length and Shape_Area.
func (w *Workspace) CreateFeatureClass(def FeatureClassDef) error {
	if !validName(def.Name) {
		return fmt.Errorf("%w: feature class %q", ErrInvalidName, def.Name)
	}
	if def.Geometry == GeometryUnknown {
		return fmt.Errorf("%w: feature class %q has no geometry type", ErrInvalidName, def.Name)
	}
	if w.Exists(def.Name) {
		return fmt.Errorf("%w: feature class %q", ErrExists, def.Name)
	}

	h := &fgb.Header{
		Name:         def.Name,
		Title:        def.Alias,
		GeometryType: def.Geometry.layerType(),
		HasZ:         def.HasZ,
		HasM:         def.HasM,
		CRS:          def.SpatialReference.crs(),
		Columns:      measureColumns(def.Geometry),
	}
	return w.writeFeatureClass(def.Name, h, nil)
}

// AddField appends a field to the schema of a feature class. Existing
// features have no value for the new field.
func (w *Workspace) AddField(ctx context.Context, fc string, def FieldDef) error {
	col, err := def.column()
	if err != nil {
		return err
	}
	if def.Domain != "" {
		if err := w.checkDomain(ctx, def.Domain, def.Type); err != nil {
			return err
		}
	}

	return w.rewriteSchema(fc, func(h *fgb.Header) error {
		if isSystemField(def.Name) || h.ColumnIndex(def.Name) >= 0 {
			return fmt.Errorf("%w: field %q on %q", ErrExists, def.Name, fc)
		}
		h.Columns = append(h.Columns, col)
		return nil
	})
}

// AssignDomain sets the domain of an existing field. The domain must exist
// in the container catalog and constrain the field's type.
func (w *Workspace) AssignDomain(ctx context.Context, fc, field, domain string) error {
	path := w.featureClassPath(fc)
	h, err := fgb.ReadHeader(path)
	if err != nil {
		return w.wrapRead(err, fc)
	}
	i := h.ColumnIndex(field)
	if i < 0 {
		return fmt.Errorf("%w: field %q on %q", ErrNotFound, field, fc)
	}
	f := fieldFromColumn(h.Columns[i])
	if !f.Editable {
		return fmt.Errorf("%w: field %q on %q is not editable", ErrDomainMismatch, field, fc)
	}
	if err := w.checkDomain(ctx, domain, f.Type); err != nil {
		return err
	}

	return w.rewriteSchema(fc, func(h *fgb.Header) error {
		return setColumnDomain(&h.Columns[i], domain)
	})
}

func (w *Workspace) checkDomain(ctx context.Context, name string, ft FieldType) error {
	d, err := w.Domain(ctx, name)
	if err != nil {
		return err
	}
	if d.FieldType != ft {
		return fmt.Errorf("%w: %s domain %q on a %s field", ErrDomainMismatch, d.FieldType, name, ft)
	}
	return nil
}

// Describe returns the metadata of a feature class. The record count is
// read from the header, or counted when the header does not record it.
func (w *Workspace) Describe(fc string) (*Description, error) {
	r, err := fgb.NewReader(w.featureClassPath(fc))
	if err != nil {
		return nil, w.wrapRead(err, fc)
	}
	defer func() { _ = r.Close() }()

	h := r.Header()
	count := h.FeaturesCount
	if count == 0 {
		if count, err = r.Count(); err != nil {
			return nil, fmt.Errorf("%w: count %q: %v", ErrProvider, fc, err)
		}
	}

	fields := systemFields()
	for _, c := range h.Columns {
		fields = append(fields, fieldFromColumn(c))
	}

	return &Description{
		Name:             fc,
		Path:             Ref(w.path, fc),
		Alias:            h.Title,
		Geometry:         geometryTypeFromLayer(h.GeometryType),
		SpatialReference: spatialReferenceFromCRS(h.CRS),
		HasZ:             h.HasZ,
		HasM:             h.HasM,
		Extent:           h.Envelope,
		RecordCount:      count,
		Fields:           fields,
	}, nil
}

// Load replaces the features of a feature class with those of src. The
// schema is kept; every feature property must name one of its fields.
func (w *Workspace) Load(ctx context.Context, fc string, src FeatureSource) error {
	h, err := fgb.ReadHeader(w.featureClassPath(fc))
	if err != nil {
		return w.wrapRead(err, fc)
	}
	h.FeaturesCount = src.Count()
	h.Envelope = nil
	if b, ok := src.(BoundedSource); ok && src.Count() > 0 {
		bound := b.Bound()
		h.Envelope = &bound
	}

	gen := &ctxGenerator{ctx: ctx, src: src}
	if err := w.writeFeatureClass(fc, h, gen); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return err
	}
	return nil
}

// ctxGenerator stops generating once ctx is done.
type ctxGenerator struct {
	ctx context.Context
	src fgb.FeatureGenerator
	n   uint64
}

func (g *ctxGenerator) Generate() *geojson.Feature {
	g.n++
	if g.n%4096 == 0 && g.ctx.Err() != nil {
		return nil
	}
	return g.src.Generate()
}

// writeFeatureClass writes h and the features of gen to a temporary file
// and renames it over the feature class.
func (w *Workspace) writeFeatureClass(name string, h *fgb.Header, gen fgb.FeatureGenerator) error {
	tmp, err := os.CreateTemp(w.path, name+".*.tmp")
	if err != nil {
		return wrapFS(err, "create feature class "+name)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if gen == nil {
		gen = emptyGenerator{}
	}
	if err := fgb.Write(tmp, h, gen); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("%w: write %q: %v", ErrProvider, name, err)
	}
	if err := tmp.Close(); err != nil {
		return wrapFS(err, "write feature class "+name)
	}
	if err := os.Rename(tmp.Name(), w.featureClassPath(name)); err != nil {
		return wrapFS(err, "write feature class "+name)
	}
	return nil
}

type emptyGenerator struct{}

func (emptyGenerator) Generate() *geojson.Feature { return nil }

func (w *Workspace) rewriteSchema(fc string, mutate func(*fgb.Header) error) error {
	err := fgb.RewriteHeader(w.featureClassPath(fc), mutate)
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrExists) || errors.Is(err, ErrNotFound) || errors.Is(err, ErrProvider) {
		return err
	}
	return w.wrapRead(err, fc)
}

func (w *Workspace) wrapRead(err error, fc string) error {
	if errors.Is(err, fgb.ErrInvalidData) || errors.Is(err, fgb.ErrInvalidColumn) {
		return fmt.Errorf("%w: feature class %q: %v", ErrProvider, fc, err)
	}
	if errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("%w: feature class %q in %s", ErrNotFound, fc, filepath.Base(w.path))
	}
	return wrapFS(err, "feature class "+fc)
}

func isSystemField(name string) bool {
	switch name {
	case OIDFieldName, ShapeFieldName:
		return true
	}
	return false
}
