package fgb

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/flatgeobuf/flatgeobuf/src/go/flattypes"
	"github.com/paulmach/orb/geojson"
)

// encodeProperties encodes props against the declared schema.
// The layout is [uint16 column index][value] per non-null property,
// in column order. Properties without a column are rejected.
func encodeProperties(props geojson.Properties, columns []Column) ([]byte, error) {
	if len(props) == 0 {
		return nil, nil
	}

	index := make(map[string]int, len(columns))
	for i, c := range columns {
		index[c.Name] = i
	}
	for name := range props {
		if _, ok := index[name]; !ok {
			return nil, fmt.Errorf("%w: no column %q", ErrInvalidColumn, name)
		}
	}

	var buf bytes.Buffer
	for i, col := range columns {
		value, ok := props[col.Name]
		if !ok || value == nil {
			continue
		}

		var idx [2]byte
		binary.LittleEndian.PutUint16(idx[:], uint16(i))
		buf.Write(idx[:])

		if err := writePropertyValue(&buf, value, col.Type); err != nil {
			return nil, fmt.Errorf("column %q: %w", col.Name, err)
		}
	}
	return buf.Bytes(), nil
}

// writePropertyValue writes a single value in the encoding of colType.
func writePropertyValue(buf *bytes.Buffer, value interface{}, colType flattypes.ColumnType) error {
	le := binary.LittleEndian

	switch colType {
	case flattypes.ColumnTypeBool:
		v, ok := value.(bool)
		if !ok {
			return ErrPropertyMismatch
		}
		if v {
			buf.WriteByte(1)
		} else {
			buf.WriteByte(0)
		}

	case flattypes.ColumnTypeByte, flattypes.ColumnTypeUByte:
		v, ok := toInt64(value)
		if !ok {
			return ErrPropertyMismatch
		}
		buf.WriteByte(byte(v))

	case flattypes.ColumnTypeShort, flattypes.ColumnTypeUShort:
		v, ok := toInt64(value)
		if !ok {
			return ErrPropertyMismatch
		}
		buf.Write(le.AppendUint16(nil, uint16(v)))

	case flattypes.ColumnTypeInt, flattypes.ColumnTypeUInt:
		v, ok := toInt64(value)
		if !ok {
			return ErrPropertyMismatch
		}
		buf.Write(le.AppendUint32(nil, uint32(v)))

	case flattypes.ColumnTypeLong:
		v, ok := toInt64(value)
		if !ok {
			return ErrPropertyMismatch
		}
		buf.Write(le.AppendUint64(nil, uint64(v)))

	case flattypes.ColumnTypeULong:
		v, ok := toUint64(value)
		if !ok {
			return ErrPropertyMismatch
		}
		buf.Write(le.AppendUint64(nil, v))

	case flattypes.ColumnTypeFloat:
		v, ok := toFloat64(value)
		if !ok {
			return ErrPropertyMismatch
		}
		buf.Write(le.AppendUint32(nil, math.Float32bits(float32(v))))

	case flattypes.ColumnTypeDouble:
		v, ok := toFloat64(value)
		if !ok {
			return ErrPropertyMismatch
		}
		buf.Write(le.AppendUint64(nil, math.Float64bits(v)))

	case flattypes.ColumnTypeString, flattypes.ColumnTypeDateTime:
		s := toString(value)
		if t, ok := value.(time.Time); ok {
			s = t.Format(time.RFC3339)
		}
		buf.Write(le.AppendUint32(nil, uint32(len(s))))
		buf.WriteString(s)

	case flattypes.ColumnTypeJson:
		b, err := json.Marshal(value)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrPropertyMismatch, err)
		}
		buf.Write(le.AppendUint32(nil, uint32(len(b))))
		buf.Write(b)

	case flattypes.ColumnTypeBinary:
		b, ok := value.([]byte)
		if !ok {
			return ErrPropertyMismatch
		}
		buf.Write(le.AppendUint32(nil, uint32(len(b))))
		buf.Write(b)

	default:
		return ErrInvalidColumn
	}
	return nil
}

// decodeProperties decodes FlatGeobuf binary properties against columns.
func decodeProperties(data []byte, columns []Column) (geojson.Properties, error) {
	if len(data) == 0 {
		return nil, nil
	}

	props := make(geojson.Properties)
	offset := 0
	for offset < len(data) {
		if offset+2 > len(data) {
			return nil, ErrInvalidData
		}
		colIndex := int(binary.LittleEndian.Uint16(data[offset:]))
		offset += 2

		if colIndex >= len(columns) {
			return nil, fmt.Errorf("%w: column index %d out of range", ErrInvalidData, colIndex)
		}
		col := columns[colIndex]

		value, n, err := readPropertyValue(data[offset:], col.Type)
		if err != nil {
			return nil, fmt.Errorf("column %q: %w", col.Name, err)
		}
		offset += n
		props[col.Name] = value
	}
	return props, nil
}

// readPropertyValue reads one value and returns it with the bytes consumed.
func readPropertyValue(data []byte, colType flattypes.ColumnType) (interface{}, int, error) {
	le := binary.LittleEndian

	need := func(n int) error {
		if len(data) < n {
			return ErrInvalidData
		}
		return nil
	}

	switch colType {
	case flattypes.ColumnTypeBool:
		if err := need(1); err != nil {
			return nil, 0, err
		}
		return data[0] != 0, 1, nil

	case flattypes.ColumnTypeByte:
		if err := need(1); err != nil {
			return nil, 0, err
		}
		return int8(data[0]), 1, nil

	case flattypes.ColumnTypeUByte:
		if err := need(1); err != nil {
			return nil, 0, err
		}
		return data[0], 1, nil

	case flattypes.ColumnTypeShort:
		if err := need(2); err != nil {
			return nil, 0, err
		}
		return int16(le.Uint16(data)), 2, nil

	case flattypes.ColumnTypeUShort:
		if err := need(2); err != nil {
			return nil, 0, err
		}
		return le.Uint16(data), 2, nil

	case flattypes.ColumnTypeInt:
		if err := need(4); err != nil {
			return nil, 0, err
		}
		return int32(le.Uint32(data)), 4, nil

	case flattypes.ColumnTypeUInt:
		if err := need(4); err != nil {
			return nil, 0, err
		}
		return le.Uint32(data), 4, nil

	case flattypes.ColumnTypeLong:
		if err := need(8); err != nil {
			return nil, 0, err
		}
		return int64(le.Uint64(data)), 8, nil

	case flattypes.ColumnTypeULong:
		if err := need(8); err != nil {
			return nil, 0, err
		}
		return le.Uint64(data), 8, nil

	case flattypes.ColumnTypeFloat:
		if err := need(4); err != nil {
			return nil, 0, err
		}
		return math.Float32frombits(le.Uint32(data)), 4, nil

	case flattypes.ColumnTypeDouble:
		if err := need(8); err != nil {
			return nil, 0, err
		}
		return math.Float64frombits(le.Uint64(data)), 8, nil

	case flattypes.ColumnTypeString, flattypes.ColumnTypeDateTime,
		flattypes.ColumnTypeJson, flattypes.ColumnTypeBinary:
		if err := need(4); err != nil {
			return nil, 0, err
		}
		length := int(le.Uint32(data))
		if err := need(4 + length); err != nil {
			return nil, 0, err
		}
		raw := data[4 : 4+length]

		switch colType {
		case flattypes.ColumnTypeJson:
			var v interface{}
			if err := json.Unmarshal(raw, &v); err != nil {
				return string(raw), 4 + length, nil
			}
			return v, 4 + length, nil
		case flattypes.ColumnTypeBinary:
			out := make([]byte, length)
			copy(out, raw)
			return out, 4 + length, nil
		default:
			return string(raw), 4 + length, nil
		}

	default:
		return nil, 0, ErrInvalidColumn
	}
}

// Type conversion helpers

func toInt64(v interface{}) (int64, bool) {
	switch val := v.(type) {
	case int:
		return int64(val), true
	case int8:
		return int64(val), true
	case int16:
		return int64(val), true
	case int32:
		return int64(val), true
	case int64:
		return val, true
	case uint:
		return int64(val), true
	case uint8:
		return int64(val), true
	case uint16:
		return int64(val), true
	case uint32:
		return int64(val), true
	case uint64:
		return int64(val), true
	case float32:
		return int64(val), true
	case float64:
		return int64(val), true
	case json.Number:
		if i, err := val.Int64(); err == nil {
			return i, true
		}
		if f, err := val.Float64(); err == nil {
			return int64(f), true
		}
	}
	return 0, false
}

func toUint64(v interface{}) (uint64, bool) {
	if u, ok := v.(uint64); ok {
		return u, true
	}
	if i, ok := toInt64(v); ok && i >= 0 {
		return uint64(i), true
	}
	return 0, false
}

func toFloat64(v interface{}) (float64, bool) {
	switch val := v.(type) {
	case float32:
		return float64(val), true
	case float64:
		return val, true
	case json.Number:
		if f, err := val.Float64(); err == nil {
			return f, true
		}
		return 0, false
	}
	if i, ok := toInt64(v); ok {
		return float64(i), true
	}
	return 0, false
}

func toString(v interface{}) string {
	switch val := v.(type) {
	case string:
		return val
	case []byte:
		return string(val)
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return ""
		}
		return string(b)
	}
}
