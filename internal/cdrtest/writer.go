// Package cdrtest serializes CDR payloads for tests.
package cdrtest

import (
	"encoding/binary"
	"math"
)

// Writer appends CDR encoded values, aligning each primitive to its size
// relative to the end of the encapsulation header.
type Writer struct {
	buf   []byte
	order binary.ByteOrder
}

// NewWriter starts a payload with the CDR_LE or CDR_BE encapsulation header.
func NewWriter(order binary.ByteOrder) *Writer {
	kind := byte(0x01)
	if order == binary.BigEndian {
		kind = 0x00
	}

	return &Writer{
		buf:   []byte{0x00, kind, 0x00, 0x00},
		order: order,
	}
}

// LE is NewWriter(binary.LittleEndian).
func LE() *Writer {
	return NewWriter(binary.LittleEndian)
}

func (w *Writer) align(size int) {
	body := len(w.buf) - 4
	for body%size != 0 {
		w.buf = append(w.buf, 0)
		body++
	}
}

func (w *Writer) Bool(v bool) *Writer {
	if v {
		w.buf = append(w.buf, 1)
	} else {
		w.buf = append(w.buf, 0)
	}
	return w
}

func (w *Writer) Int8(v int8) *Writer {
	w.buf = append(w.buf, byte(v))
	return w
}

func (w *Writer) Uint8(v uint8) *Writer {
	w.buf = append(w.buf, v)
	return w
}

func (w *Writer) Int16(v int16) *Writer {
	return w.Uint16(uint16(v))
}

func (w *Writer) Uint16(v uint16) *Writer {
	w.align(2)
	var b [2]byte
	w.order.PutUint16(b[:], v)
	w.buf = append(w.buf, b[:]...)
	return w
}

func (w *Writer) Int32(v int32) *Writer {
	return w.Uint32(uint32(v))
}

func (w *Writer) Uint32(v uint32) *Writer {
	w.align(4)
	var b [4]byte
	w.order.PutUint32(b[:], v)
	w.buf = append(w.buf, b[:]...)
	return w
}

func (w *Writer) Int64(v int64) *Writer {
	return w.Uint64(uint64(v))
}

func (w *Writer) Uint64(v uint64) *Writer {
	w.align(8)
	var b [8]byte
	w.order.PutUint64(b[:], v)
	w.buf = append(w.buf, b[:]...)
	return w
}

func (w *Writer) Float32(v float32) *Writer {
	return w.Uint32(math.Float32bits(v))
}

func (w *Writer) Float64(v float64) *Writer {
	return w.Uint64(math.Float64bits(v))
}

// Float64s writes values without a length prefix, as a fixed-size array.
func (w *Writer) Float64s(values ...float64) *Writer {
	for _, v := range values {
		w.Float64(v)
	}
	return w
}

// Length writes a sequence length prefix.
func (w *Writer) Length(n int) *Writer {
	return w.Uint32(uint32(n))
}

// String writes the length including the NUL terminator, the characters and the
// terminator.
func (w *Writer) String(s string) *Writer {
	w.Uint32(uint32(len(s) + 1))
	w.buf = append(w.buf, s...)
	w.buf = append(w.buf, 0)
	return w
}

// WString writes the character count followed by 4-byte code points.
func (w *Writer) WString(s string) *Writer {
	runes := []rune(s)
	w.Length(len(runes))
	for _, r := range runes {
		w.Uint32(uint32(r))
	}
	return w
}

// Bytes writes a uint8 sequence.
func (w *Writer) Bytes(b []byte) *Writer {
	w.Length(len(b))
	w.buf = append(w.buf, b...)
	return w
}

// Raw appends b untouched.
func (w *Writer) Raw(b ...byte) *Writer {
	w.buf = append(w.buf, b...)
	return w
}

// Payload returns the encoded message.
func (w *Writer) Payload() []byte {
	return w.buf
}

// Header writes a std_msgs/msg/Header.
func (w *Writer) Header(sec int32, nanosec uint32, frameID string) *Writer {
	return w.Int32(sec).Uint32(nanosec).String(frameID)
}

// Imu writes a sensor_msgs/msg/Imu with zeroed covariances and vectors.
func Imu(sec int32, nanosec uint32, x, y, z, qw float64) []byte {
	w := LE().Header(sec, nanosec, "imu_link")
	w.Float64s(x, y, z, qw)
	w.Float64s(make([]float64, 9)...)
	w.Float64s(0, 0, 0)
	w.Float64s(make([]float64, 9)...)
	w.Float64s(0, 0, 9.81)
	w.Float64s(make([]float64, 9)...)
	return w.Payload()
}

// Image writes a sensor_msgs/msg/Image.
func Image(sec int32, nanosec uint32, width, height uint32, encoding string, step uint32, data []byte) []byte {
	return LE().
		Header(sec, nanosec, "camera").
		Uint32(height).
		Uint32(width).
		String(encoding).
		Uint8(0).
		Uint32(step).
		Bytes(data).
		Payload()
}

// String writes a std_msgs/msg/String.
func String(s string) []byte {
	return LE().String(s).Payload()
}
