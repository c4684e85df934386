// Copyright 2026 The axisdb Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

// Package value defines the closed set of primitive kinds that can be used
// as point identities and attribute values.
//
// A Value is comparable, so it can be used directly as a map key. Equality
// is structural over (kind, payload): values of different kinds are never
// equal, so Int(1), Float(1) and Bool(true) are three distinct keys. Floats
// compare by bit pattern, which makes NaN equal to itself and keeps +0 and
// -0 apart.
//
// The zero Value has kind KindInvalid. It is never accepted as an identity
// or attribute value and is used to mark removed (tombstoned) axis slots.
package value

import (
	"encoding/hex"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/spf13/cast"
)

// Kind identifies which variant a Value holds.
type Kind uint8

const (
	KindInvalid Kind = iota
	KindInt
	KindFloat
	KindText
	KindBool
	KindBytes
)

var kindNames = [...]string{
	KindInvalid: "invalid",
	KindInt:     "int",
	KindFloat:   "float",
	KindText:    "text",
	KindBool:    "bool",
	KindBytes:   "bytes",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "kind(" + strconv.Itoa(int(k)) + ")"
}

// ErrUnsupported is returned by Of for Go values with no matching kind.
var ErrUnsupported = errors.New("unsupported value type")

// Value is a tagged variant over int64, float64, string, bool and []byte.
type Value struct {
	kind Kind
	// num holds ints (two's complement), float bits and bools (0/1)
	num uint64
	// str holds text and bytes; bytes are copied in so the Value stays immutable
	str string
}

// Int returns an integer Value.
func Int(i int64) Value {
	return Value{kind: KindInt, num: uint64(i)}
}

// Float returns a floating point Value.
func Float(f float64) Value {
	return Value{kind: KindFloat, num: math.Float64bits(f)}
}

// Text returns a string Value.
func Text(s string) Value {
	return Value{kind: KindText, str: s}
}

// Bool returns a boolean Value.
func Bool(b bool) Value {
	v := Value{kind: KindBool}
	if b {
		v.num = 1
	}
	return v
}

// Bytes returns a binary Value holding a copy of b.
func Bytes(b []byte) Value {
	return Value{kind: KindBytes, str: string(b)}
}

// Kind reports the variant held by v.
func (v Value) Kind() Kind {
	return v.kind
}

// IsValid reports whether v holds one of the concrete kinds.
func (v Value) IsValid() bool {
	return v.kind != KindInvalid
}

func (v Value) Int() (int64, bool) {
	return int64(v.num), v.kind == KindInt
}

func (v Value) Float() (float64, bool) {
	return math.Float64frombits(v.num), v.kind == KindFloat
}

func (v Value) Text() (string, bool) {
	if v.kind != KindText {
		return "", false
	}
	return v.str, true
}

func (v Value) Bool() (bool, bool) {
	return v.num == 1, v.kind == KindBool
}

// Bytes returns a copy of the binary payload.
func (v Value) Bytes() ([]byte, bool) {
	if v.kind != KindBytes {
		return nil, false
	}
	return []byte(v.str), true
}

// RawString returns the text or binary payload without copying. It is
// empty for the numeric and boolean kinds.
func (v Value) RawString() string {
	return v.str
}

// Len is the payload size in bytes for text and binary values, 0 otherwise.
func (v Value) Len() int {
	return len(v.str)
}

// Any converts v back into a plain Go value (int64, float64, string, bool,
// []byte or nil).
func (v Value) Any() any {
	switch v.kind {
	case KindInt:
		return int64(v.num)
	case KindFloat:
		return math.Float64frombits(v.num)
	case KindText:
		return v.str
	case KindBool:
		return v.num == 1
	case KindBytes:
		return []byte(v.str)
	default:
		return nil
	}
}

func (v Value) String() string {
	switch v.kind {
	case KindInt:
		return strconv.FormatInt(int64(v.num), 10)
	case KindFloat:
		return strconv.FormatFloat(math.Float64frombits(v.num), 'g', -1, 64)
	case KindText:
		return v.str
	case KindBool:
		return strconv.FormatBool(v.num == 1)
	case KindBytes:
		return "0x" + hex.EncodeToString([]byte(v.str))
	default:
		return "<invalid>"
	}
}

// Of converts a Go value into a Value. Every signed and unsigned integer
// type maps to KindInt; uint64 values above math.MaxInt64 are rejected.
func Of(x any) (Value, error) {
	switch x := x.(type) {
	case Value:
		return x, nil
	case string:
		return Text(x), nil
	case []byte:
		return Bytes(x), nil
	case bool:
		return Bool(x), nil
	case float64:
		return Float(x), nil
	case float32:
		return Float(float64(x)), nil
	case uint64:
		if x > math.MaxInt64 {
			return Value{}, fmt.Errorf("uint64 %d overflows int64: %w", x, ErrUnsupported)
		}
		return Int(int64(x)), nil
	case uint:
		if uint64(x) > math.MaxInt64 {
			return Value{}, fmt.Errorf("uint %d overflows int64: %w", x, ErrUnsupported)
		}
		return Int(int64(x)), nil
	case int, int8, int16, int32, int64, uint8, uint16, uint32:
		i, err := cast.ToInt64E(x)
		if err != nil {
			return Value{}, fmt.Errorf("cast.ToInt64E(%v): %w", x, err)
		}
		return Int(i), nil
	default:
		return Value{}, fmt.Errorf("%T: %w", x, ErrUnsupported)
	}
}

// MustOf is like Of but panics on unsupported input.
func MustOf(x any) Value {
	v, err := Of(x)
	if err != nil {
		panic(err)
	}
	return v
}

// Parse interprets a command-line literal. Base-10 integers become Int and
// decimal text with a fraction or exponent becomes Float. Integers written
// with a leading zero ("02134"), hex and other prefixed forms stay Text so
// that the literal is not silently reinterpreted. "true" and "false" become
// booleans and anything else is kept as text.
func Parse(s string) Value {
	switch s {
	case "true":
		return Bool(true)
	case "false":
		return Bool(false)
	}
	if !strings.ContainsAny(s, "0123456789") {
		return Text(s)
	}
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		if digits := strings.TrimLeft(s, "+-"); len(digits) > 1 && digits[0] == '0' {
			return Text(s)
		}
		return Int(i)
	}
	if strings.ContainsAny(s, ".eE") && !strings.ContainsAny(s, "xX_") {
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return Float(f)
		}
	}
	return Text(s)
}
