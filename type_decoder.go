package rosbag2

import (
	"math"
	"unsafe"
)

// fieldDecodeFunc decodes one field. length is the fixed array size, or -1 when the
// size is carried on the wire.
type fieldDecodeFunc func(r *cdrReader, length int) (v interface{}, ok bool)

var fieldDecodeBasicHelper = map[MessageFieldType]fieldDecodeFunc{
	MessageFieldTypeBool:    fieldDecodeBool,
	MessageFieldTypeInt8:    fieldDecodeInt8,
	MessageFieldTypeUint8:   fieldDecodeUint8,
	MessageFieldTypeInt16:   fieldDecodeInt16,
	MessageFieldTypeUint16:  fieldDecodeUint16,
	MessageFieldTypeInt32:   fieldDecodeInt32,
	MessageFieldTypeUint32:  fieldDecodeUint32,
	MessageFieldTypeInt64:   fieldDecodeInt64,
	MessageFieldTypeUint64:  fieldDecodeUint64,
	MessageFieldTypeFloat32: fieldDecodeFloat32,
	MessageFieldTypeFloat64: fieldDecodeFloat64,
	MessageFieldTypeString:  fieldDecodeString,
	MessageFieldTypeWString: fieldDecodeWString,
}

var fieldDecodeSliceHelper = map[MessageFieldType]fieldDecodeFunc{
	MessageFieldTypeBool:    fieldDecodeBoolSlice,
	MessageFieldTypeInt8:    fieldDecodeInt8Slice,
	MessageFieldTypeUint8:   fieldDecodeUint8Slice,
	MessageFieldTypeInt16:   fieldDecodeInt16Slice,
	MessageFieldTypeUint16:  fieldDecodeUint16Slice,
	MessageFieldTypeInt32:   fieldDecodeInt32Slice,
	MessageFieldTypeUint32:  fieldDecodeUint32Slice,
	MessageFieldTypeInt64:   fieldDecodeInt64Slice,
	MessageFieldTypeUint64:  fieldDecodeUint64Slice,
	MessageFieldTypeFloat32: fieldDecodeFloat32Slice,
	MessageFieldTypeFloat64: fieldDecodeFloat64Slice,
	MessageFieldTypeString:  fieldDecodeStringSlice,
	MessageFieldTypeWString: fieldDecodeWStringSlice,
}

func fieldDecodeFixed(r *cdrReader, size int) ([]byte, bool) {
	if !r.align(size) {
		return nil, false
	}

	return r.next(size)
}

func fieldDecodeBool(r *cdrReader, length int) (v interface{}, ok bool) {
	b, ok := r.next(1)
	if !ok {
		return
	}

	return b[0] != 0, true
}

func fieldDecodeInt8(r *cdrReader, length int) (v interface{}, ok bool) {
	b, ok := r.next(1)
	if !ok {
		return
	}

	return int8(b[0]), true
}

func fieldDecodeUint8(r *cdrReader, length int) (v interface{}, ok bool) {
	b, ok := r.next(1)
	if !ok {
		return
	}

	return b[0], true
}

func fieldDecodeInt16(r *cdrReader, length int) (v interface{}, ok bool) {
	b, ok := fieldDecodeFixed(r, 2)
	if !ok {
		return
	}

	return int16(r.order.Uint16(b)), true
}

func fieldDecodeUint16(r *cdrReader, length int) (v interface{}, ok bool) {
	b, ok := fieldDecodeFixed(r, 2)
	if !ok {
		return
	}

	return r.order.Uint16(b), true
}

func fieldDecodeInt32(r *cdrReader, length int) (v interface{}, ok bool) {
	b, ok := fieldDecodeFixed(r, 4)
	if !ok {
		return
	}

	return int32(r.order.Uint32(b)), true
}

func fieldDecodeUint32(r *cdrReader, length int) (v interface{}, ok bool) {
	b, ok := fieldDecodeFixed(r, 4)
	if !ok {
		return
	}

	return r.order.Uint32(b), true
}

func fieldDecodeInt64(r *cdrReader, length int) (v interface{}, ok bool) {
	b, ok := fieldDecodeFixed(r, 8)
	if !ok {
		return
	}

	return int64(r.order.Uint64(b)), true
}

func fieldDecodeUint64(r *cdrReader, length int) (v interface{}, ok bool) {
	b, ok := fieldDecodeFixed(r, 8)
	if !ok {
		return
	}

	return r.order.Uint64(b), true
}

func fieldDecodeFloat32(r *cdrReader, length int) (v interface{}, ok bool) {
	b, ok := fieldDecodeFixed(r, 4)
	if !ok {
		return
	}

	return math.Float32frombits(r.order.Uint32(b)), true
}

func fieldDecodeFloat64(r *cdrReader, length int) (v interface{}, ok bool) {
	b, ok := fieldDecodeFixed(r, 8)
	if !ok {
		return
	}

	return math.Float64frombits(r.order.Uint64(b)), true
}

// fieldDecodeString reads a uint32 length that counts the trailing NUL, followed by
// the characters and the NUL itself.
func fieldDecodeString(r *cdrReader, length int) (v interface{}, ok bool) {
	n, ok := r.readLength(-1)
	if !ok {
		return
	}

	if n == 0 {
		return "", true
	}

	b, ok := r.next(n)
	if !ok {
		return
	}

	if b[n-1] == 0 {
		b = b[:n-1]
	}

	return string(b), true
}

// fieldDecodeWString reads a uint32 character count followed by 4-byte code points.
func fieldDecodeWString(r *cdrReader, length int) (v interface{}, ok bool) {
	n, ok := r.readLength(-1)
	if !ok {
		return
	}

	runes := make([]rune, 0, n)
	for i := 0; i < n; i++ {
		b, ok := r.next(4)
		if !ok {
			return nil, false
		}

		c := rune(r.order.Uint32(b))
		if c == 0 {
			continue
		}
		runes = append(runes, c)
	}

	return string(runes), true
}

// fieldDecodeBasicSlice returns the raw bytes backing a primitive sequence.
func fieldDecodeBasicSlice(r *cdrReader, length int, size int) (raw []byte, n int, ok bool) {
	n, ok = r.readLength(length)
	if !ok {
		return
	}

	if n == 0 {
		return nil, 0, true
	}

	if !r.align(size) {
		return nil, 0, false
	}

	raw, ok = r.next(n * size)
	return raw, n, ok
}

// castSlice reinterprets raw as a []T without copying. It's only valid when the
// payload byte order matches the host and raw is suitably aligned in memory.
func castSlice[T any](r *cdrReader, raw []byte, n int, size int) ([]T, bool) {
	if !fastSlices || r.order != hostEndian || n == 0 {
		return nil, false
	}

	if uintptr(unsafe.Pointer(&raw[0]))%uintptr(size) != 0 {
		return nil, false
	}

	return unsafe.Slice((*T)(unsafe.Pointer(&raw[0])), n), true
}

func decodeNumericSlice[T any](r *cdrReader, length int, size int, get func([]byte) T) (v interface{}, ok bool) {
	raw, n, ok := fieldDecodeBasicSlice(r, length, size)
	if !ok {
		return
	}

	if s, fast := castSlice[T](r, raw, n, size); fast {
		return s, true
	}

	arr := make([]T, n)
	for i := range arr {
		arr[i] = get(raw[i*size:])
	}

	return arr, true
}

func fieldDecodeBoolSlice(r *cdrReader, length int) (v interface{}, ok bool) {
	raw, n, ok := fieldDecodeBasicSlice(r, length, 1)
	if !ok {
		return
	}

	arr := make([]bool, n)
	for i := range arr {
		arr[i] = raw[i] != 0
	}

	return arr, true
}

func fieldDecodeInt8Slice(r *cdrReader, length int) (v interface{}, ok bool) {
	raw, n, ok := fieldDecodeBasicSlice(r, length, 1)
	if !ok {
		return
	}

	arr := make([]int8, n)
	for i := range arr {
		arr[i] = int8(raw[i])
	}

	return arr, true
}

// fieldDecodeUint8Slice aliases the payload. Image buffers are the common case here.
func fieldDecodeUint8Slice(r *cdrReader, length int) (v interface{}, ok bool) {
	raw, _, ok := fieldDecodeBasicSlice(r, length, 1)
	if !ok {
		return
	}

	if raw == nil {
		raw = []byte{}
	}

	return raw, true
}

func fieldDecodeInt16Slice(r *cdrReader, length int) (v interface{}, ok bool) {
	return decodeNumericSlice(r, length, 2, func(b []byte) int16 {
		return int16(r.order.Uint16(b))
	})
}

func fieldDecodeUint16Slice(r *cdrReader, length int) (v interface{}, ok bool) {
	return decodeNumericSlice(r, length, 2, r.order.Uint16)
}

func fieldDecodeInt32Slice(r *cdrReader, length int) (v interface{}, ok bool) {
	return decodeNumericSlice(r, length, 4, func(b []byte) int32 {
		return int32(r.order.Uint32(b))
	})
}

func fieldDecodeUint32Slice(r *cdrReader, length int) (v interface{}, ok bool) {
	return decodeNumericSlice(r, length, 4, r.order.Uint32)
}

func fieldDecodeInt64Slice(r *cdrReader, length int) (v interface{}, ok bool) {
	return decodeNumericSlice(r, length, 8, func(b []byte) int64 {
		return int64(r.order.Uint64(b))
	})
}

func fieldDecodeUint64Slice(r *cdrReader, length int) (v interface{}, ok bool) {
	return decodeNumericSlice(r, length, 8, r.order.Uint64)
}

func fieldDecodeFloat32Slice(r *cdrReader, length int) (v interface{}, ok bool) {
	return decodeNumericSlice(r, length, 4, func(b []byte) float32 {
		return math.Float32frombits(r.order.Uint32(b))
	})
}

func fieldDecodeFloat64Slice(r *cdrReader, length int) (v interface{}, ok bool) {
	return decodeNumericSlice(r, length, 8, func(b []byte) float64 {
		return math.Float64frombits(r.order.Uint64(b))
	})
}

func fieldDecodeStringSlice(r *cdrReader, length int) (v interface{}, ok bool) {
	n, ok := r.readLength(length)
	if !ok {
		return
	}

	s := make([]string, n)
	for i := range s {
		v, ok = fieldDecodeString(r, -1)
		if !ok {
			return nil, false
		}

		s[i] = v.(string)
	}

	return s, true
}

func fieldDecodeWStringSlice(r *cdrReader, length int) (v interface{}, ok bool) {
	n, ok := r.readLength(length)
	if !ok {
		return
	}

	s := make([]string, n)
	for i := range s {
		v, ok = fieldDecodeWString(r, -1)
		if !ok {
			return nil, false
		}

		s[i] = v.(string)
	}

	return s, true
}
