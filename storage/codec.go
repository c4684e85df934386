// Copyright 2026 The axisdb Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package storage

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/tinylib/msgp/msgp"

	"github.com/bpowers/axisdb/internal/axis"
	"github.com/bpowers/axisdb/internal/intern"
	"github.com/bpowers/axisdb/internal/mapping"
	"github.com/bpowers/axisdb/internal/unsafestring"
	"github.com/bpowers/axisdb/value"
)

var errOverflow = errors.New("integer overflows int64")

func encodeSnapshot(s *Snapshot) ([]byte, error) {
	b := make([]byte, 0, 256+32*len(s.Slots))
	b = msgp.AppendMapHeader(b, 2)

	b = msgp.AppendString(b, "metadata")
	b = appendMetadata(b, &s.Metadata)

	b = msgp.AppendString(b, "database")
	b = msgp.AppendMapHeader(b, 3)

	b = msgp.AppendString(b, "central_axis")
	b = msgp.AppendMapHeader(b, 2)
	b = msgp.AppendString(b, "vector_points")
	b = msgp.AppendArrayHeader(b, uint32(len(s.Slots)))
	for _, v := range s.Slots {
		if !v.IsValid() {
			b = msgp.AppendNil(b)
			continue
		}
		b = appendValue(b, v)
	}
	b = msgp.AppendString(b, "coordinate_map")
	b = msgp.AppendArrayHeader(b, uint32(len(s.Index)))
	for _, e := range s.Index {
		if !e.Identity.IsValid() {
			return nil, fmt.Errorf("coordinate %d: invalid identity", e.Coordinate)
		}
		b = msgp.AppendArrayHeader(b, 2)
		b = appendValue(b, e.Identity)
		b = msgp.AppendInt64(b, int64(e.Coordinate))
	}

	b = msgp.AppendString(b, "dimensional_spaces")
	b = msgp.AppendMapHeader(b, uint32(len(s.Dimensions)))
	for _, d := range s.Dimensions {
		b = msgp.AppendString(b, d.Name)
		b = msgp.AppendMapHeader(b, 3)
		b = msgp.AppendString(b, "value_domain")
		b = msgp.AppendMapHeader(b, uint32(len(d.Values)))
		for _, e := range d.Values {
			if !e.Value.IsValid() {
				return nil, fmt.Errorf("dimension %q: id %d: invalid value", d.Name, e.ID)
			}
			b = msgp.AppendUint64(b, uint64(e.ID))
			b = appendValue(b, e.Value)
		}
		b = msgp.AppendString(b, "value_to_id")
		b = msgp.AppendMapHeader(b, uint32(len(d.Values)))
		for _, e := range d.Values {
			b = appendValue(b, e.Value)
			b = msgp.AppendUint64(b, uint64(e.ID))
		}
		b = msgp.AppendString(b, "next_id")
		b = msgp.AppendUint64(b, uint64(d.NextID))
	}

	b = msgp.AppendString(b, "coordinate_mappings")
	b = msgp.AppendMapHeader(b, uint32(len(s.Dimensions)))
	for _, d := range s.Dimensions {
		b = msgp.AppendString(b, d.Name)
		b = msgp.AppendMapHeader(b, uint32(len(d.Mapping)))
		for _, e := range d.Mapping {
			b = msgp.AppendInt64(b, int64(e.Coordinate))
			b = msgp.AppendUint64(b, uint64(e.ID))
		}
	}
	return b, nil
}

func appendMetadata(b []byte, m *Metadata) []byte {
	b = msgp.AppendMapHeader(b, 7)
	b = msgp.AppendString(b, "version")
	b = msgp.AppendString(b, m.Version)
	b = msgp.AppendString(b, "format_version")
	b = msgp.AppendInt64(b, int64(m.FormatVersion))
	b = msgp.AppendString(b, "database_id")
	b = msgp.AppendString(b, m.DatabaseID)
	b = msgp.AppendString(b, "created_at")
	b = appendTimestamp(b, m.CreatedAt)
	b = msgp.AppendString(b, "last_modified")
	b = appendTimestamp(b, m.LastModified)
	b = msgp.AppendString(b, "total_points")
	b = msgp.AppendInt64(b, int64(m.TotalPoints))
	b = msgp.AppendString(b, "total_dimensions")
	b = msgp.AppendInt64(b, int64(m.TotalDimensions))
	return b
}

// timestamps are stored as RFC 3339 text so other tools can read them
func appendTimestamp(b []byte, t time.Time) []byte {
	if t.IsZero() {
		return msgp.AppendNil(b)
	}
	return msgp.AppendString(b, t.Format(time.RFC3339Nano))
}

func appendValue(b []byte, v value.Value) []byte {
	switch v.Kind() {
	case value.KindInt:
		i, _ := v.Int()
		return msgp.AppendInt64(b, i)
	case value.KindFloat:
		f, _ := v.Float()
		return msgp.AppendFloat64(b, f)
	case value.KindText:
		return msgp.AppendString(b, v.RawString())
	case value.KindBool:
		x, _ := v.Bool()
		return msgp.AppendBool(b, x)
	case value.KindBytes:
		return msgp.AppendBytes(b, unsafestring.ToBytes(v.RawString()))
	default:
		return msgp.AppendNil(b)
	}
}

func decodeSnapshot(b []byte) (*Snapshot, error) {
	s := new(Snapshot)
	var sawDatabase bool
	err := readMap(&b, func(key string) error {
		var err error
		switch key {
		case "metadata":
			err = readMetadata(&b, &s.Metadata)
		case "database":
			sawDatabase = true
			err = readDatabase(&b, s)
		default:
			b, err = msgp.Skip(b)
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	if !sawDatabase {
		return nil, errors.New("missing database record")
	}
	if len(b) != 0 {
		return nil, fmt.Errorf("%d trailing bytes", len(b))
	}
	return s, nil
}

// readMap walks a string-keyed map, leaving *b positioned after it. fn must
// consume the value of each key it is handed.
func readMap(b *[]byte, fn func(key string) error) error {
	n, o, err := msgp.ReadMapHeaderBytes(*b)
	if err != nil {
		return err
	}
	*b = o
	for i := uint32(0); i < n; i++ {
		var key string
		if key, *b, err = msgp.ReadStringBytes(*b); err != nil {
			return err
		}
		if err := fn(key); err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
	}
	return nil
}

func readMetadata(b *[]byte, m *Metadata) error {
	return readMap(b, func(key string) error {
		var (
			err error
			i   int64
		)
		switch key {
		case "version":
			m.Version, *b, err = msgp.ReadStringBytes(*b)
		case "format_version":
			i, *b, err = readInt(*b)
			m.FormatVersion = int(i)
		case "database_id":
			m.DatabaseID, *b, err = msgp.ReadStringBytes(*b)
		case "created_at":
			m.CreatedAt, *b, err = readTimestamp(*b)
		case "last_modified":
			m.LastModified, *b, err = readTimestamp(*b)
		case "total_points":
			i, *b, err = readInt(*b)
			m.TotalPoints = int(i)
		case "total_dimensions":
			i, *b, err = readInt(*b)
			m.TotalDimensions = int(i)
		default:
			*b, err = msgp.Skip(*b)
		}
		return err
	})
}

func readTimestamp(b []byte) (time.Time, []byte, error) {
	if msgp.IsNil(b) {
		o, err := msgp.ReadNilBytes(b)
		return time.Time{}, o, err
	}
	s, o, err := msgp.ReadStringBytes(b)
	if err != nil {
		return time.Time{}, b, err
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	return t, o, err
}

func readDatabase(b *[]byte, s *Snapshot) error {
	var mappings map[string][]mapping.Entry
	err := readMap(b, func(key string) error {
		var err error
		switch key {
		case "central_axis":
			err = readAxis(b, s)
		case "dimensional_spaces":
			err = readMap(b, func(name string) error {
				for _, d := range s.Dimensions {
					if d.Name == name {
						return errors.New("duplicate dimension")
					}
				}
				d := Dimension{Name: name}
				if err := readDimension(b, &d); err != nil {
					return err
				}
				s.Dimensions = append(s.Dimensions, d)
				return nil
			})
		case "coordinate_mappings":
			mappings = make(map[string][]mapping.Entry)
			err = readMap(b, func(name string) error {
				if _, dup := mappings[name]; dup {
					return errors.New("duplicate mapping")
				}
				entries, err := readMapping(b)
				mappings[name] = entries
				return err
			})
		default:
			*b, err = msgp.Skip(*b)
		}
		return err
	})
	if err != nil {
		return err
	}

	for i := range s.Dimensions {
		d := &s.Dimensions[i]
		d.Mapping = mappings[d.Name]
		delete(mappings, d.Name)
	}
	for name := range mappings {
		return fmt.Errorf("mapping for unknown dimension %q", name)
	}
	return nil
}

func readAxis(b *[]byte, s *Snapshot) error {
	return readMap(b, func(key string) error {
		switch key {
		case "vector_points":
			n, o, err := msgp.ReadArrayHeaderBytes(*b)
			if err != nil {
				return err
			}
			*b = o
			s.Slots = make([]value.Value, 0, min(n, uint32(len(o))))
			for i := uint32(0); i < n; i++ {
				var v value.Value
				if msgp.IsNil(*b) {
					*b, err = msgp.ReadNilBytes(*b)
				} else {
					v, *b, err = readValue(*b)
				}
				if err != nil {
					return fmt.Errorf("slot %d: %w", i, err)
				}
				s.Slots = append(s.Slots, v)
			}
			return nil
		case "coordinate_map":
			n, o, err := msgp.ReadArrayHeaderBytes(*b)
			if err != nil {
				return err
			}
			*b = o
			s.Index = make([]axis.Entry, 0, min(n, uint32(len(o))))
			for i := uint32(0); i < n; i++ {
				var pair uint32
				if pair, *b, err = msgp.ReadArrayHeaderBytes(*b); err != nil {
					return err
				}
				if pair != 2 {
					return fmt.Errorf("entry %d: want [identity, coordinate], got %d elements", i, pair)
				}
				var (
					e     axis.Entry
					coord int64
				)
				if e.Identity, *b, err = readValue(*b); err != nil {
					return fmt.Errorf("entry %d: %w", i, err)
				}
				if coord, *b, err = readInt(*b); err != nil {
					return fmt.Errorf("entry %d: %w", i, err)
				}
				e.Coordinate = int(coord)
				s.Index = append(s.Index, e)
			}
			return nil
		default:
			var err error
			*b, err = msgp.Skip(*b)
			return err
		}
	})
}

func readDimension(b *[]byte, d *Dimension) error {
	return readMap(b, func(key string) error {
		var err error
		switch key {
		case "value_domain":
			var n uint32
			if n, *b, err = msgp.ReadMapHeaderBytes(*b); err != nil {
				return err
			}
			d.Values = make([]intern.Entry, 0, min(n, uint32(len(*b))))
			for i := uint32(0); i < n; i++ {
				var e intern.Entry
				var id uint64
				if id, *b, err = readUint(*b); err != nil {
					return err
				}
				e.ID = intern.ID(id)
				if e.Value, *b, err = readValue(*b); err != nil {
					return fmt.Errorf("id %d: %w", id, err)
				}
				d.Values = append(d.Values, e)
			}
		case "value_to_id":
			var n uint32
			if n, *b, err = msgp.ReadMapHeaderBytes(*b); err != nil {
				return err
			}
			d.Reverse = make(map[value.Value]intern.ID, min(n, uint32(len(*b))))
			for i := uint32(0); i < n; i++ {
				var v value.Value
				var id uint64
				if v, *b, err = readValue(*b); err != nil {
					return err
				}
				if id, *b, err = readUint(*b); err != nil {
					return err
				}
				d.Reverse[v] = intern.ID(id)
			}
		case "next_id":
			var id uint64
			id, *b, err = readUint(*b)
			d.NextID = intern.ID(id)
		default:
			*b, err = msgp.Skip(*b)
		}
		return err
	})
}

func readMapping(b *[]byte) ([]mapping.Entry, error) {
	n, o, err := msgp.ReadMapHeaderBytes(*b)
	if err != nil {
		return nil, err
	}
	*b = o
	entries := make([]mapping.Entry, 0, min(n, uint32(len(o))))
	for i := uint32(0); i < n; i++ {
		var (
			coord int64
			id    uint64
		)
		if coord, *b, err = readInt(*b); err != nil {
			return nil, err
		}
		if id, *b, err = readUint(*b); err != nil {
			return nil, err
		}
		entries = append(entries, mapping.Entry{Coordinate: int(coord), ID: intern.ID(id)})
	}
	return entries, nil
}

func readValue(b []byte) (value.Value, []byte, error) {
	switch t := msgp.NextType(b); t {
	case msgp.IntType, msgp.UintType:
		i, o, err := readInt(b)
		return value.Int(i), o, err
	case msgp.Float64Type:
		f, o, err := msgp.ReadFloat64Bytes(b)
		return value.Float(f), o, err
	case msgp.Float32Type:
		f, o, err := msgp.ReadFloat32Bytes(b)
		return value.Float(float64(f)), o, err
	case msgp.StrType:
		s, o, err := msgp.ReadStringBytes(b)
		return value.Text(s), o, err
	case msgp.BinType:
		p, o, err := msgp.ReadBytesZC(b)
		return value.Bytes(p), o, err
	case msgp.BoolType:
		x, o, err := msgp.ReadBoolBytes(b)
		return value.Bool(x), o, err
	default:
		return value.Value{}, b, fmt.Errorf("unsupported value type %s", t)
	}
}

func readInt(b []byte) (int64, []byte, error) {
	switch t := msgp.NextType(b); t {
	case msgp.IntType:
		return msgp.ReadInt64Bytes(b)
	case msgp.UintType:
		u, o, err := msgp.ReadUint64Bytes(b)
		if err == nil && u > math.MaxInt64 {
			return 0, b, errOverflow
		}
		return int64(u), o, err
	default:
		return 0, b, fmt.Errorf("expected integer, found %s", t)
	}
}

func readUint(b []byte) (uint64, []byte, error) {
	i, o, err := readInt(b)
	if err != nil {
		return 0, b, err
	}
	if i < 0 {
		return 0, b, fmt.Errorf("negative id %d", i)
	}
	return uint64(i), o, nil
}
