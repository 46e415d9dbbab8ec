//go:build !integration

package rosbag2

import (
	"encoding/binary"
)

var (
	// hostEndian is the byte order primitives have in memory. Sequences encoded
	// in this order can be reinterpreted in place.
	hostEndian binary.ByteOrder = binary.LittleEndian
	fastSlices                  = true
)

func init() {
	if binary.NativeEndian.Uint16([]byte{0x12, 0x34}) == 0x1234 {
		hostEndian = binary.BigEndian
	}
}
