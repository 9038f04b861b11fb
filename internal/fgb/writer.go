package fgb

import (
	"bufio"
	"fmt"
	"io"

	"github.com/flatgeobuf/flatgeobuf/src/go/flattypes"
	"github.com/flatgeobuf/flatgeobuf/src/go/writer"
	flatbuffers "github.com/google/flatbuffers/go"
	"github.com/paulmach/orb/geojson"
)

// FeatureGenerator yields features one at a time; Generate returns nil
// when there are no more features.
type FeatureGenerator interface {
	Generate() *geojson.Feature
}

// Write writes a header followed by every feature the generator yields.
// The header must declare the exact feature count because it precedes the
// features. Spatial indexes are never written. A nil generator writes an
// empty layer.
func Write(w io.Writer, h *Header, gen FeatureGenerator) error {
	if h == nil {
		return ErrInvalidData
	}
	header, err := newHeader(flatbuffers.NewBuilder(4096), h)
	if err != nil {
		return err
	}

	fg := &featureGenerator{
		src:     gen,
		header:  h,
		builder: flatbuffers.NewBuilder(1024),
	}
	bw := bufio.NewWriterSize(w, 64*1024)
	if _, err := writer.NewWriter(header, false, fg, nil).Write(bw); err != nil {
		return err
	}
	if fg.err != nil {
		return fg.err
	}
	if fg.written != h.FeaturesCount {
		return fmt.Errorf("%w: wrote %d, declared %d", ErrCountMismatch, fg.written, h.FeaturesCount)
	}
	return bw.Flush()
}

// encodeHeader returns the size-prefixed header table of h.
func encodeHeader(h *Header) ([]byte, error) {
	b := flatbuffers.NewBuilder(4096)
	header, err := newHeader(b, h)
	if err != nil {
		return nil, err
	}
	b.FinishSizePrefixed(header.Build())
	return b.FinishedBytes(), nil
}

func newHeader(b *flatbuffers.Builder, h *Header) (*writer.Header, error) {
	columns := make([]*writer.Column, 0, len(h.Columns))
	for _, c := range h.Columns {
		if _, ok := flattypes.EnumNamesColumnType[c.Type]; !ok {
			return nil, fmt.Errorf("%w: column %q", ErrInvalidColumn, c.Name)
		}
		columns = append(columns, writer.NewColumn(b).
			SetName(c.Name).
			SetType(c.Type).
			SetTitle(c.Title).
			SetDescription(c.Description).
			SetWidth(c.Width).
			SetPrecision(c.Precision).
			SetScale(c.Scale).
			SetNullable(c.Nullable).
			SetUnique(c.Unique).
			SetMetadata(c.Metadata))
	}

	header := writer.NewHeader(b).
		SetName(h.Name).
		SetTitle(h.Title).
		SetDescription(h.Description).
		SetGeometryType(h.GeometryType).
		SetHasZ(h.HasZ).
		SetHasM(h.HasM).
		SetColumns(columns).
		SetFeaturesCount(h.FeaturesCount).
		SetIndexNodeSize(0)

	if h.Envelope != nil {
		header.SetEnvelope([]float64{h.Envelope.Min[0], h.Envelope.Min[1], h.Envelope.Max[0], h.Envelope.Max[1]})
	}
	if h.CRS != nil {
		header.SetCrs(newCrs(b, h.CRS))
	}
	return header, nil
}

func newCrs(b *flatbuffers.Builder, c *CRS) *writer.Crs {
	org := c.Org
	if org == "" {
		org = "EPSG"
	}
	desc := c.Description
	if c.WKT != "" {
		desc = c.WKT
	}

	crs := writer.NewCrs(b).SetOrg(org).SetName(c.Name).SetDescription(desc)
	if c.Code > 0 {
		crs.SetCode(int32(c.Code))
	}
	return crs
}

// featureGenerator encodes the features of src against the header
// schema. Generate cannot fail, so the first error stops the stream and
// is kept for Write to report.
type featureGenerator struct {
	src     FeatureGenerator
	header  *Header
	builder *flatbuffers.Builder
	written uint64
	err     error
}

func (g *featureGenerator) Generate() *writer.Feature {
	if g.err != nil || g.src == nil {
		return nil
	}
	f := g.src.Generate()
	if f == nil {
		return nil
	}
	if g.written >= g.header.FeaturesCount {
		g.err = fmt.Errorf("%w: more than %d features", ErrCountMismatch, g.header.FeaturesCount)
		return nil
	}

	feature, err := g.encode(f)
	if err != nil {
		g.err = err
		return nil
	}
	g.written++
	return feature
}

func (g *featureGenerator) encode(f *geojson.Feature) (*writer.Feature, error) {
	if f == nil || f.Geometry == nil {
		return nil, ErrNilGeometry
	}
	geom, err := promote(f.Geometry, g.header.GeometryType)
	if err != nil {
		return nil, err
	}
	props, err := encodeProperties(f.Properties, g.header.Columns)
	if err != nil {
		return nil, err
	}

	// The previous feature has been written out by now.
	g.builder.Reset()
	fgbGeom, err := newGeometry(g.builder, geom, dims{z: g.header.HasZ, m: g.header.HasM})
	if err != nil {
		return nil, err
	}

	feature := writer.NewFeature(g.builder).SetGeometry(fgbGeom)
	if len(props) > 0 {
		feature.SetProperties(props)
	}
	return feature, nil
}
