package rosbag2

import (
	"encoding/binary"
	"errors"
)

const (
	encapsulationLen = 4
	lenInBytes       = 4
)

var (
	errShortEncapsulation       = errors.New("payload is shorter than the CDR encapsulation header")
	errUnsupportedEncapsulation = errors.New("unsupported CDR encapsulation kind. Available kinds: [CDR_BE, CDR_LE]")
)

// cdrReader walks a CDR body. Alignment is computed relative to the first byte
// after the encapsulation header.
type cdrReader struct {
	buf   []byte
	off   int
	order binary.ByteOrder
}

func newCDRReader(raw []byte) (*cdrReader, error) {
	if len(raw) < encapsulationLen {
		return nil, errShortEncapsulation
	}

	var order binary.ByteOrder
	switch {
	case raw[0] == 0x00 && raw[1] == 0x00:
		order = binary.BigEndian
	case raw[0] == 0x00 && raw[1] == 0x01:
		order = binary.LittleEndian
	default:
		return nil, errUnsupportedEncapsulation
	}

	return &cdrReader{
		buf:   raw[encapsulationLen:],
		order: order,
	}, nil
}

func (r *cdrReader) align(size int) bool {
	if size <= 1 {
		return true
	}

	pad := (size - r.off%size) % size
	if r.off+pad > len(r.buf) {
		return false
	}

	r.off += pad
	return true
}

// next returns the following n bytes without copying them.
func (r *cdrReader) next(n int) ([]byte, bool) {
	if n < 0 || len(r.buf)-r.off < n {
		return nil, false
	}

	b := r.buf[r.off : r.off+n]
	r.off += n
	return b, true
}

func (r *cdrReader) remaining() int {
	return len(r.buf) - r.off
}

// readLength returns fixedLength for fixed-size arrays, otherwise it reads the
// uint32 sequence prefix.
func (r *cdrReader) readLength(fixedLength int) (int, bool) {
	if fixedLength >= 0 {
		return fixedLength, true
	}

	if !r.align(lenInBytes) {
		return 0, false
	}

	b, ok := r.next(lenInBytes)
	if !ok {
		return 0, false
	}

	length := int(r.order.Uint32(b))
	// every element takes at least one byte, anything larger is garbage
	if length > r.remaining() {
		return 0, false
	}

	return length, true
}
