package fgb

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	flatgeobuf "github.com/flatgeobuf/flatgeobuf/src/go"
	"github.com/flatgeobuf/flatgeobuf/src/go/flattypes"
	"github.com/flatgeobuf/flatgeobuf/src/go/writer"
	flatbuffers "github.com/google/flatbuffers/go"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// maxTableSize bounds a single header or feature table.
const maxTableSize = 1 << 30

// Reader provides sequential read access to a FlatGeobuf stream. The
// header and index are validated by the flatgeobuf package; features are
// then read in file order, which that package only offers through an
// index search.
type Reader struct {
	r      *bufio.Reader
	closer io.Closer
	header *Header
	read   uint64
}

// NewReader opens the file at path and reads its header.
func NewReader(path string) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}

	r, err := newReader(f)
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	r.closer = f
	return r, nil
}

// ReadHeader reads only the header of the file at path.
func ReadHeader(path string) (*Header, error) {
	r, err := NewReader(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = r.Close() }()
	return r.Header(), nil
}

func newReader(src io.Reader) (*Reader, error) {
	br := bufio.NewReaderSize(src, 64*1024)

	prefixLen := len(writer.MagicBytes) + flatbuffers.SizeUOffsetT
	data := make([]byte, prefixLen)
	if _, err := io.ReadFull(br, data); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidData, err)
	}
	if !bytes.Equal(data[:len(writer.MagicBytes)], writer.MagicBytes) {
		return nil, fmt.Errorf("%w: bad signature", ErrInvalidData)
	}
	size := binary.LittleEndian.Uint32(data[len(writer.MagicBytes):])
	if size == 0 || size > maxTableSize {
		return nil, fmt.Errorf("%w: header size %d", ErrInvalidData, size)
	}
	data = append(data, make([]byte, size)...)
	if _, err := io.ReadFull(br, data[prefixLen:]); err != nil {
		return nil, fmt.Errorf("%w: truncated header: %v", ErrInvalidData, err)
	}

	// The index size depends on the header, so it is read in a second step.
	nodeSize, count, err := indexParams(data)
	if err != nil {
		return nil, err
	}
	indexSize := packedRTreeSize(count, nodeSize)
	if indexSize > maxTableSize {
		return nil, fmt.Errorf("%w: index size %d", ErrInvalidData, indexSize)
	}
	if indexSize > 0 {
		start := len(data)
		data = append(data, make([]byte, indexSize)...)
		if _, err := io.ReadFull(br, data[start:]); err != nil {
			return nil, fmt.Errorf("%w: truncated index: %v", ErrInvalidData, err)
		}
	} else if nodeSize > 0 {
		// The index loader touches its first byte even when the tree is empty.
		data = append(data, 0)
	}

	h, err := parseHeader(data)
	if err != nil {
		return nil, err
	}
	return &Reader{r: br, header: headerFromFGB(h)}, nil
}

// indexParams returns the index node size and feature count recorded in
// the header of data.
func indexParams(data []byte) (nodeSize uint16, count uint64, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("%w: %v", ErrInvalidData, p)
		}
	}()

	h := flattypes.GetSizePrefixedRootAsHeader(data, flatbuffers.UOffsetT(len(writer.MagicBytes)))
	return h.IndexNodeSize(), h.FeaturesCount(), nil
}

// parseHeader validates data, the file up to the end of its index, and
// returns the decoded header.
func parseHeader(data []byte) (h *flattypes.Header, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("%w: %v", ErrInvalidData, p)
		}
	}()

	file, err := flatgeobuf.NewWithData(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidData, err)
	}
	h = file.Header()
	// Touch the tables so a corrupt header fails here rather than later.
	_ = h.GeometryType()
	_ = h.ColumnsLength()
	return h, nil
}

// readTable reads one size-prefixed flatbuffer table.
func readTable(r io.Reader) ([]byte, error) {
	var size [4]byte
	if _, err := io.ReadFull(r, size[:]); err != nil {
		return nil, err
	}
	n := binary.LittleEndian.Uint32(size[:])
	if n == 0 || n > maxTableSize {
		return nil, fmt.Errorf("%w: table size %d", ErrInvalidData, n)
	}

	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidData, err)
	}
	return buf, nil
}

// headerFromFGB maps the flatbuffer header to a Header.
func headerFromFGB(h *flattypes.Header) *Header {
	header := &Header{
		Name:          string(h.Name()),
		Title:         string(h.Title()),
		Description:   string(h.Description()),
		GeometryType:  h.GeometryType(),
		HasZ:          h.HasZ(),
		HasM:          h.HasM(),
		FeaturesCount: h.FeaturesCount(),
		IndexNodeSize: h.IndexNodeSize(),
	}

	if h.EnvelopeLength() >= 4 {
		header.Envelope = &orb.Bound{
			Min: orb.Point{h.Envelope(0), h.Envelope(1)},
			Max: orb.Point{h.Envelope(2), h.Envelope(3)},
		}
	}

	var crs flattypes.Crs
	if h.Crs(&crs) != nil {
		header.CRS = &CRS{
			Org:         string(crs.Org()),
			Code:        int(crs.Code()),
			Name:        string(crs.Name()),
			Description: string(crs.Description()),
			WKT:         string(crs.Wkt()),
		}
		if header.CRS.WKT == "" && isWKT(header.CRS.Description) {
			header.CRS.WKT = header.CRS.Description
		}
	}

	if n := h.ColumnsLength(); n > 0 {
		header.Columns = make([]Column, 0, n)
		for i := 0; i < n; i++ {
			var col flattypes.Column
			if !h.Columns(&col, i) {
				continue
			}
			header.Columns = append(header.Columns, Column{
				Name:        string(col.Name()),
				Type:        col.Type(),
				Title:       string(col.Title()),
				Description: string(col.Description()),
				Width:       unset(col.Width()),
				Precision:   unset(col.Precision()),
				Scale:       unset(col.Scale()),
				Nullable:    col.Nullable(),
				Unique:      col.Unique(),
				Metadata:    string(col.Metadata()),
			})
		}
	}

	return header
}

// Header returns metadata about the FlatGeobuf file.
func (r *Reader) Header() *Header {
	return r.header
}

// Next returns the next feature, or io.EOF after the last one.
func (r *Reader) Next() (*geojson.Feature, error) {
	buf, err := readTable(r.r)
	if errors.Is(err, io.EOF) {
		return nil, io.EOF
	}
	if err != nil {
		return nil, err
	}
	r.read++

	fgbFeature := flattypes.GetRootAsFeature(buf, 0)

	var geomObj flattypes.Geometry
	geom := geometryFromFGB(fgbFeature.Geometry(&geomObj), r.header.GeometryType)
	if geom == nil {
		return nil, fmt.Errorf("%w: feature %d has no geometry", ErrInvalidData, r.read)
	}
	feature := geojson.NewFeature(geom)

	if n := fgbFeature.PropertiesLength(); n > 0 {
		data := make([]byte, n)
		for i := 0; i < n; i++ {
			data[i] = fgbFeature.Properties(i)
		}
		props, err := decodeProperties(data, r.header.Columns)
		if err != nil {
			return nil, err
		}
		feature.Properties = props
	}

	return feature, nil
}

// Count skips over the remaining features without decoding them and
// returns the total number of features in the stream.
func (r *Reader) Count() (uint64, error) {
	var size [4]byte
	for {
		if _, err := io.ReadFull(r.r, size[:]); err != nil {
			if errors.Is(err, io.EOF) {
				return r.read, nil
			}
			return 0, fmt.Errorf("%w: %v", ErrInvalidData, err)
		}
		n := int64(binary.LittleEndian.Uint32(size[:]))
		if _, err := io.CopyN(io.Discard, r.r, n); err != nil {
			return 0, fmt.Errorf("%w: truncated feature: %v", ErrInvalidData, err)
		}
		r.read++
	}
}

// Close releases the underlying file, if any.
func (r *Reader) Close() error {
	if r.closer == nil {
		return nil
	}
	err := r.closer.Close()
	r.closer = nil
	return err
}

// RewriteHeader replaces the header of the file at path with the result
// of mutate and copies the feature stream through unchanged. Columns may
// only be appended or have their descriptive attributes changed, since
// encoded properties refer to columns by position.
func RewriteHeader(path string, mutate func(*Header) error) error {
	r, err := NewReader(path)
	if err != nil {
		return err
	}
	defer func() { _ = r.Close() }()

	original := r.Header()
	updated := *original
	updated.Columns = append([]Column(nil), original.Columns...)
	if err := mutate(&updated); err != nil {
		return err
	}
	if err := checkColumnPrefix(original.Columns, updated.Columns); err != nil {
		return err
	}
	updated.FeaturesCount = original.FeaturesCount

	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	bw := bufio.NewWriter(tmp)
	header, err := encodeHeader(&updated)
	if err != nil {
		_ = tmp.Close()
		return err
	}
	if _, err := bw.Write(writer.MagicBytes); err != nil {
		_ = tmp.Close()
		return err
	}
	if _, err := bw.Write(header); err != nil {
		_ = tmp.Close()
		return err
	}
	if _, err := io.Copy(bw, r.r); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := bw.Flush(); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := r.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// unset maps the -1 the schema uses for an unset width, precision or
// scale to zero.
func unset(v int32) int {
	if v < 0 {
		return 0
	}
	return int(v)
}

// isWKT reports whether s starts like a WKT coordinate system.
func isWKT(s string) bool {
	s = strings.TrimSpace(s)
	for _, kw := range []string{"PROJCS[", "GEOGCS[", "GEOCCS[", "COMPD_CS[", "PROJCRS[", "GEOGCRS[", "GEODCRS[", "COMPOUNDCRS["} {
		if strings.HasPrefix(s, kw) {
			return true
		}
	}
	return false
}

func checkColumnPrefix(before, after []Column) error {
	if len(after) < len(before) {
		return fmt.Errorf("%w: columns cannot be removed", ErrInvalidColumn)
	}
	for i, c := range before {
		if after[i].Name != c.Name || after[i].Type != c.Type {
			return fmt.Errorf("%w: column %q cannot be renamed or retyped", ErrInvalidColumn, c.Name)
		}
	}
	return nil
}
