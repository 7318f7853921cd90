package hashindex

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"math/big"
	"reflect"
	"time"

	"github.com/spf13/cast"
)

// Type tags, ordered the way the host engine orders key types:
// number < date < string < array.
const (
	tagNumber byte = 0x10
	tagDate   byte = 0x20
	tagString byte = 0x30
	tagArray  byte = 0x50

	arrayEnd byte = 0x00
)

const signBit = uint64(1) << 63

// ErrNotIndexable is returned for values that cannot be used as index keys:
// nil, booleans, NaN, objects, and arrays containing any of those.
var ErrNotIndexable = errors.New("value is not a valid index key")

// EncodeKey encodes an indexable value into an order-preserving byte key.
// All numeric Go types share one key space, so int(1), int64(1) and 1.0
// produce the same key. Integers beyond 2^53 keep their exact value.
func EncodeKey(value interface{}) ([]byte, error) {
	var buffer bytes.Buffer
	if err := encodeValue(&buffer, value); err != nil {
		return nil, err
	}
	return buffer.Bytes(), nil
}

// IsIndexable reports whether a value can be stored in or looked up from an index.
func IsIndexable(value interface{}) bool {
	return encodeValue(&bytes.Buffer{}, value) == nil
}

// CompareKeys orders two indexable values the way an index would.
func CompareKeys(a, b interface{}) (int, error) {
	ka, err := EncodeKey(a)
	if err != nil {
		return 0, err
	}
	kb, err := EncodeKey(b)
	if err != nil {
		return 0, err
	}
	return bytes.Compare(ka, kb), nil
}

func encodeValue(buffer *bytes.Buffer, value interface{}) error {
	switch v := value.(type) {
	case nil, bool, []byte:
		return ErrNotIndexable

	case string:
		buffer.WriteByte(tagString)
		writeEscapedString(buffer, v)
		return nil

	case time.Time:
		buffer.WriteByte(tagDate)
		var b [8]byte
		binary.BigEndian.PutUint64(b[:], uint64(v.UnixNano())^signBit)
		buffer.Write(b[:])
		return nil

	case int:
		return writeInt(buffer, int64(v))
	case int8:
		return writeInt(buffer, int64(v))
	case int16:
		return writeInt(buffer, int64(v))
	case int32:
		return writeInt(buffer, int64(v))
	case int64:
		return writeInt(buffer, v)
	case uint, uint8, uint16, uint32, uint64:
		u, err := cast.ToUint64E(v)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrNotIndexable, err)
		}
		return writeUint(buffer, u)
	case float32, float64:
		f, err := cast.ToFloat64E(v)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrNotIndexable, err)
		}
		return writeNumber(buffer, f, 0)

	case []interface{}:
		buffer.WriteByte(tagArray)
		for _, item := range v {
			if err := encodeValue(buffer, item); err != nil {
				return err
			}
		}
		buffer.WriteByte(arrayEnd)
		return nil
	}

	// Named numeric types and typed slices such as []string or primitive.A
	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return writeInt(buffer, rv.Int())
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return writeUint(buffer, rv.Uint())
	case reflect.Float32, reflect.Float64:
		return writeNumber(buffer, rv.Float(), 0)
	case reflect.String:
		buffer.WriteByte(tagString)
		writeEscapedString(buffer, rv.String())
		return nil
	case reflect.Slice, reflect.Array:
		if rv.Type().Elem().Kind() == reflect.Uint8 {
			return ErrNotIndexable
		}
		buffer.WriteByte(tagArray)
		for i := 0; i < rv.Len(); i++ {
			if err := encodeValue(buffer, rv.Index(i).Interface()); err != nil {
				return err
			}
		}
		buffer.WriteByte(arrayEnd)
		return nil
	}

	return ErrNotIndexable
}

// Integers within this range are exact as float64 and need no remainder
const maxExactInt = 1 << 53

func writeInt(buffer *bytes.Buffer, i int64) error {
	if i >= -maxExactInt && i <= maxExactInt {
		return writeNumber(buffer, float64(i), 0)
	}
	return writeBig(buffer, new(big.Int).SetInt64(i))
}

func writeUint(buffer *bytes.Buffer, u uint64) error {
	if u <= maxExactInt {
		return writeNumber(buffer, float64(u), 0)
	}
	return writeBig(buffer, new(big.Int).SetUint64(u))
}

// writeBig writes an integer as its nearest float64 plus the exact
// difference. Rounding is monotonic, so the pair sorts like the integer.
func writeBig(buffer *bytes.Buffer, exact *big.Int) error {
	f, _ := new(big.Float).SetInt(exact).Float64()
	rounded, _ := big.NewFloat(f).Int(nil)
	return writeNumber(buffer, f, new(big.Int).Sub(exact, rounded).Int64())
}

// writeNumber writes the order-preserving bits of f followed by remainder,
// which is non-zero only for integers a float64 cannot hold exactly.
func writeNumber(buffer *bytes.Buffer, f float64, remainder int64) error {
	if math.IsNaN(f) {
		return ErrNotIndexable
	}
	if f == 0 {
		f = 0 // fold -0 into +0
	}
	bits := math.Float64bits(f)
	if bits&signBit != 0 {
		bits = ^bits
	} else {
		bits |= signBit
	}

	buffer.WriteByte(tagNumber)
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], bits)
	buffer.Write(b[:])
	binary.BigEndian.PutUint64(b[:], uint64(remainder)^signBit)
	buffer.Write(b[:])
	return nil
}

// writeEscapedString keeps byte order intact and stays unambiguous inside arrays:
// 0x00 is written as 0x00 0xFF and the string ends with 0x00 0x01.
func writeEscapedString(buffer *bytes.Buffer, s string) {
	for i := 0; i < len(s); i++ {
		if s[i] == 0x00 {
			buffer.WriteByte(0x00)
			buffer.WriteByte(0xFF)
			continue
		}
		buffer.WriteByte(s[i])
	}
	buffer.WriteByte(0x00)
	buffer.WriteByte(0x01)
}

// Elements returns the items of any slice or array value except byte slices.
func Elements(value interface{}) ([]interface{}, bool) {
	switch v := value.(type) {
	case nil, []byte, string:
		return nil, false
	case []interface{}:
		return v, true
	}

	rv := reflect.ValueOf(value)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, false
	}
	if rv.Type().Elem().Kind() == reflect.Uint8 {
		return nil, false
	}
	out := make([]interface{}, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out, true
}
